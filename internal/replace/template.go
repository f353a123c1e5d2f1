// Package replace expands replacement templates against match results and
// splices the expansions back into the source.
package replace

import (
	"fmt"
	"strings"

	"github.com/gnoswap-labs/ssr/internal/matcher"
	"github.com/gnoswap-labs/ssr/internal/pattern"
	"github.com/gnoswap-labs/ssr/internal/script"
	"github.com/gnoswap-labs/ssr/internal/types"
)

// Node is a piece of a replacement template.
type Node interface {
	isNode()
}

// LiteralNode is template text copied as is.
type LiteralNode struct {
	Value string
}

// VariableNode is a $name$ reference.
type VariableNode struct {
	Name   string
	Offset int
}

func (LiteralNode) isNode()  {}
func (VariableNode) isNode() {}

type computed struct {
	name    string
	program *script.Program
}

// Template is a compiled replacement template.
type Template struct {
	Text  string
	Nodes []Node

	// Reformat runs gofmt over the rewritten source in Apply.
	Reformat bool
	// Imports are added to rewritten files that lack them.
	Imports []string

	computed []computed
}

// Compile parses text against the variables of cp. Replacement variables
// are computed by their scripts once per match and may be referenced like
// any pattern variable.
func Compile(text string, cp *pattern.CompiledPattern, defs ...pattern.ReplacementVariable) (*Template, error) {
	t := &Template{Text: text}

	names := append(cp.Names(), pattern.ContextVar)
	known := make(map[string]bool)
	for _, v := range cp.Vars {
		if !v.DontCare {
			known[v.Name] = true
		}
	}
	for _, def := range defs {
		prog, err := script.Compile(def.Script, names)
		if err != nil {
			return nil, types.Malformed(def.Name, types.MsgBadScript, def.Script, err.Error())
		}
		t.computed = append(t.computed, computed{name: def.Name, program: prog})
		known[def.Name] = true
	}

	nodes, err := parse(text)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if v, ok := n.(VariableNode); ok && !known[v.Name] {
			return nil, types.Malformed(v.Name, types.MsgUndeclaredReplacement, v.Name)
		}
	}
	t.Nodes = nodes
	return t, nil
}

// parse splits a template into literal and variable nodes. "$$" is a
// literal dollar sign.
func parse(text string) ([]Node, error) {
	var (
		nodes []Node
		lit   strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			nodes = append(nodes, LiteralNode{Value: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '$' {
			lit.WriteByte(c)
			continue
		}
		if i+1 < len(text) && text[i+1] == '$' {
			lit.WriteByte('$')
			i++
			continue
		}
		end := strings.IndexByte(text[i+1:], '$')
		if end < 0 {
			return nil, types.Malformed("", types.MsgUnterminatedVariable, i)
		}
		name := text[i+1 : i+1+end]
		if !isName(name) {
			return nil, types.Malformed("", types.MsgUnterminatedVariable, i)
		}
		flush()
		nodes = append(nodes, VariableNode{Name: name, Offset: i})
		i += end + 1
	}
	flush()
	return nodes, nil
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		ok := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (i > 0 && c >= '0' && c <= '9')
		if !ok {
			return false
		}
	}
	return true
}

// piece is an expanded template node. hole marks variable expansions.
type piece struct {
	text string
	hole bool
}

// Expand renders the template for one match.
func (t *Template) Expand(r *matcher.Result) (string, error) {
	values, err := t.compute(r)
	if err != nil {
		return "", err
	}

	indent := ""
	if r.Tree != nil {
		indent = lineIndent(r.Tree.Src, r.Start)
	}

	pieces := make([]piece, 0, len(t.Nodes))
	for _, n := range t.Nodes {
		switch n := n.(type) {
		case LiteralNode:
			pieces = append(pieces, piece{text: strings.ReplaceAll(n.Value, "\n", "\n"+indent)})
		case VariableNode:
			text, ok := values[n.Name]
			if !ok {
				text = r.CaptureText(n.Name)
			}
			pieces = append(pieces, piece{text: text, hole: true})
		}
	}
	return elide(pieces), nil
}

// compute evaluates the replacement variables.
func (t *Template) compute(r *matcher.Result) (map[string]string, error) {
	if len(t.computed) == 0 {
		return nil, nil
	}
	env := r.Env()
	values := make(map[string]string, len(t.computed))
	for _, c := range t.computed {
		v, err := c.program.Eval(env)
		if err != nil {
			return nil, &types.StructuralSearchError{
				Msg: fmt.Sprintf("replacement variable %q", c.name),
				Err: err,
			}
		}
		if _, isNil := v.(script.NilValue); isNil {
			values[c.name] = ""
			continue
		}
		values[c.name] = v.String()
	}
	return values, nil
}

func lineIndent(src []byte, offset int) string {
	start := offset
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	end := start
	for end < len(src) && (src[end] == ' ' || src[end] == '\t') {
		end++
	}
	return string(src[start:end])
}
