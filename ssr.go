// Package ssr is structural search and replace for Go source.
//
// A template is a fragment of Go code in which 'name placeholders stand
// for captured nodes:
//
//	cp, err := ssr.Compile(ssr.MatchOptions{Pattern: "errors.New(fmt.Sprintf('args+))"})
//	results, err := ssr.Search(ctx, cp, "a.go", src)
//
// A placeholder may carry a quantifier ('x*, 'x+?, 'x{2,3}) and
// constraints ('x:regex(^err) && exprtype(error)). A replacement template
// refers to captures as $name$.
package ssr

import (
	"context"
	"fmt"

	"github.com/gnoswap-labs/ssr/internal/matcher"
	"github.com/gnoswap-labs/ssr/internal/pattern"
	"github.com/gnoswap-labs/ssr/internal/profile"
	"github.com/gnoswap-labs/ssr/internal/replace"
	"github.com/gnoswap-labs/ssr/internal/types"
)

type (
	// MatchOptions is a complete query: template, constraint table and
	// matching switches.
	MatchOptions = pattern.MatchOptions
	// VariableSpec is one row of the constraint table.
	VariableSpec = pattern.VariableSpec
	// ReplacementVariable is computed by a script for every match.
	ReplacementVariable = pattern.ReplacementVariable
	// CompiledPattern is an immutable compiled query, safe to share.
	CompiledPattern = pattern.CompiledPattern
	// Result is one match.
	Result = matcher.Result
	// Edit is one splice made by Replace.
	Edit = types.Edit
)

const (
	WholeTree  = pattern.WholeTree
	SingleNode = pattern.SingleNode
)

// Errors reported by Compile and Search, for use with errors.Is.
var (
	ErrMalformedPattern   = types.ErrMalformedPattern
	ErrUnsupportedPattern = types.ErrUnsupportedPattern
	ErrEvaluatorFault     = types.ErrEvaluatorFault
)

// Compile validates and compiles a query.
func Compile(opts MatchOptions) (*CompiledPattern, error) {
	return pattern.Compile(opts, nil)
}

// Search parses src and returns every match of cp, ordered by position.
func Search(ctx context.Context, cp *CompiledPattern, filename string, src []byte) ([]*Result, error) {
	t, err := profile.Go.Parse(filename, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return matcher.Search(ctx, cp, t)
}

// Replace compiles opts, searches src and substitutes opts.Replacement
// for every non-overlapping match.
func Replace(ctx context.Context, opts MatchOptions, filename string, src []byte) ([]byte, []Edit, error) {
	cp, err := Compile(opts)
	if err != nil {
		return nil, nil, err
	}
	tmpl, err := replace.Compile(opts.Replacement, cp, opts.ReplacementVariables...)
	if err != nil {
		return nil, nil, err
	}
	tmpl.Reformat = opts.Reformat

	results, err := Search(ctx, cp, filename, src)
	if err != nil {
		return nil, nil, err
	}
	return replace.Apply(src, results, tmpl)
}
