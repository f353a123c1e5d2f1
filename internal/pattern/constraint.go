package pattern

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/gnoswap-labs/ssr/internal/pattern/query"
	"github.com/gnoswap-labs/ssr/internal/profile"
	"github.com/gnoswap-labs/ssr/internal/script"
	"github.com/gnoswap-labs/ssr/internal/tree"
	"github.com/gnoswap-labs/ssr/internal/types"
)

// compileConstraints compiles the terms gathered for every variable and
// for the complete match, then checks them for consistency.
func (c *compiler) compileConstraints() error {
	names := append(c.cp.Names(), ContextVar)

	for _, v := range c.cp.Vars {
		for _, term := range c.terms[v] {
			con, err := c.compileTerm(v.Name, term, names)
			if err != nil {
				return err
			}
			if con.Kind == FormalType {
				for _, occ := range v.Occurrences {
					if occ.Slot.Class != tree.ClassExpr {
						return types.Malformed(v.Name, types.MsgFormalOutsideExpr, v.Name)
					}
				}
			}
			v.Constraints = append(v.Constraints, con)
		}
		sortConstraints(v.Constraints)
		if err := checkConsistent(v.Name, v.Constraints, c.opts.CaseSensitive); err != nil {
			return err
		}
	}

	for _, term := range c.contextTerms {
		con, err := c.compileTerm(ContextVar, term, names)
		if err != nil {
			return err
		}
		if con.Kind == FormalType && c.cp.Shape != RootExpr {
			return types.Malformed(ContextVar, types.MsgFormalOutsideExpr, ContextVar)
		}
		c.cp.Context = append(c.cp.Context, con)
	}
	sortConstraints(c.cp.Context)
	return checkConsistent(ContextVar, c.cp.Context, c.opts.CaseSensitive)
}

func (c *compiler) compileTerm(variable string, term query.Term, names []string) (*Constraint, error) {
	con := &Constraint{Negated: term.Negated, Source: term.String()}

	switch term.Keyword {
	case query.KeyRegex, query.KeyRegexWord:
		con.Kind = TextRegex
		con.WholeWord = term.Keyword == query.KeyRegexWord
		re, err := compileRegex(term.Arg, con.WholeWord, c.opts.CaseSensitive)
		if err != nil {
			return nil, types.Malformed(variable, types.MsgBadRegex, term.Arg, err.Error())
		}
		con.Regex = re

	case query.KeyExprType, query.KeyFormal:
		con.Kind = ExprType
		if term.Keyword == query.KeyFormal {
			con.Kind = FormalType
		}
		tp, err := profile.ParseTypePattern(term.Arg)
		if err != nil {
			return nil, types.Malformed(variable, types.MsgBadTypePattern, term.Arg, err.Error())
		}
		con.Types = tp

	case query.KeyRef, query.KeyWithin, query.KeyContains:
		switch term.Keyword {
		case query.KeyRef:
			con.Kind = Reference
		case query.KeyWithin:
			con.Kind = Within
		default:
			con.Kind = Contains
		}
		sub, err := Compile(MatchOptions{
			Pattern:       term.Arg,
			FileType:      c.opts.FileType,
			CaseSensitive: c.opts.CaseSensitive,
			Loose:         c.opts.Loose,
			Mode:          SingleNode,
		}, c.prof)
		if err != nil {
			return nil, types.Malformed(variable, types.MsgBadSubPattern, term.Keyword, term.Arg, err.Error())
		}
		con.Sub = sub

	case query.KeyScript:
		con.Kind = Script
		prog, err := script.Compile(term.Arg, names)
		if err != nil {
			return nil, types.Malformed(variable, types.MsgBadScript, term.Arg, err.Error())
		}
		con.Program = prog

	default:
		return nil, types.Malformed(variable, types.MsgBadConstraint, term.String(), "unknown keyword")
	}
	return con, nil
}

func compileRegex(pattern string, wholeWord, caseSensitive bool) (*regexp.Regexp, error) {
	expr := "^(?:" + pattern + ")$"
	if wholeWord {
		expr = `\b(?:` + pattern + `)\b`
	}
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	return regexp.Compile(expr)
}

func sortConstraints(cs []*Constraint) {
	sort.SliceStable(cs, func(i, j int) bool {
		return cs[i].Kind.priority() < cs[j].Kind.priority()
	})
}

// checkConsistent rejects two positive exact type constraints of the same
// kind that name disjoint types.
func checkConsistent(variable string, cs []*Constraint, caseSensitive bool) error {
	for i, a := range cs {
		if a.Negated || (a.Kind != ExprType && a.Kind != FormalType) {
			continue
		}
		for _, b := range cs[i+1:] {
			if b.Negated || b.Kind != a.Kind {
				continue
			}
			if profile.Disjoint(a.Types, b.Types, caseSensitive) {
				return types.Malformed(variable, types.MsgInconsistent, variable,
					fmt.Sprintf("%s(%s) and %s(%s)", a.Kind, a.Types, b.Kind, b.Types))
			}
		}
	}
	return nil
}
