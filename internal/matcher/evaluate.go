package matcher

import (
	"fmt"

	"github.com/gnoswap-labs/ssr/internal/pattern"
	"github.com/gnoswap-labs/ssr/internal/profile"
	"github.com/gnoswap-labs/ssr/internal/script"
	"github.com/gnoswap-labs/ssr/internal/tree"
	"github.com/gnoswap-labs/ssr/internal/types"
)

// check evaluates the node constraints of v against every bound node.
// Scripts see the whole match and run once it is complete.
func (s *state) check(v *pattern.Variable, nodes []*tree.Node) bool {
	for _, con := range v.Constraints {
		if con.Kind == pattern.Script {
			continue
		}
		for _, n := range nodes {
			if !s.holds(con, n) {
				return false
			}
		}
	}
	return true
}

// holds evaluates a single node constraint.
func (s *state) holds(con *pattern.Constraint, n *tree.Node) bool {
	switch con.Kind {
	case pattern.TextRegex:
		text := n.Text()
		var ok bool
		if con.WholeWord {
			ok = con.Regex.FindStringIndex(text) != nil
		} else {
			ok = con.Regex.MatchString(text)
		}
		return ok != con.Negated

	case pattern.ExprType, pattern.FormalType:
		var (
			t  profile.Type
			ok bool
		)
		if con.Kind == pattern.ExprType {
			t, ok = s.types().ExprType(n)
		} else {
			t, ok = s.types().FormalType(n)
		}
		if !ok {
			// An unknown type satisfies neither the constraint nor its
			// negation.
			return false
		}
		return typeMatches(t, con.Types, s.cp.CaseSensitive) != con.Negated

	case pattern.Reference:
		return s.references(con.Sub, n) != con.Negated

	case pattern.Within:
		found := false
		for x := n; x != nil && !found; x = x.Parent {
			found = s.matchesAt(con.Sub, x)
		}
		return found != con.Negated

	case pattern.Contains:
		found := false
		n.Walk(func(x *tree.Node) bool {
			if found || s.err != nil {
				return false
			}
			found = s.matchesAt(con.Sub, x)
			return !found
		})
		return found != con.Negated
	}
	return true
}

func typeMatches(t profile.Type, tp profile.TypePattern, caseSensitive bool) bool {
	for _, alt := range tp {
		if t.Matches(alt, caseSensitive) {
			return true
		}
	}
	return false
}

// references reports whether the declaration of n, or the statement or
// declaration enclosing it, matches sub.
func (s *state) references(sub *pattern.CompiledPattern, n *tree.Node) bool {
	decl, ok := s.types().Declaration(n)
	if !ok {
		return false
	}
	for x := decl; x != nil; x = x.Parent {
		if s.matchesAt(sub, x) {
			return true
		}
		if c := x.Kind.Class(); c == tree.ClassStmt || c == tree.ClassDecl {
			break
		}
	}
	return false
}

// matchesAt reports whether sub matches with n as its anchor.
func (s *state) matchesAt(sub *pattern.CompiledPattern, n *tree.Node) bool {
	if n.IsList() || s.err != nil {
		return false
	}
	ss := s.sub(sub)
	var ok bool
	if sub.Shape == pattern.RootSequence {
		if n.InList(sub.SeqList) {
			ok = ss.run(n.Parent.Children, n.Index) != nil
		}
	} else {
		ok = ss.at(n) != nil
	}
	if s.oracle == nil {
		s.oracle = ss.oracle
	}
	if ss.err != nil {
		s.err = ss.err
	}
	return ok
}

// finish returns the final continuation for a match of nodes: scripts and
// complete-match constraints run, then the bindings are recorded.
func (s *state) finish(nodes []*tree.Node) func() bool {
	return func() bool {
		if !s.scripts(nodes) || !s.context(nodes) {
			return false
		}
		s.result = s.snapshot(nodes)
		return true
	}
}

func (s *state) env(nodes []*tree.Node) *script.Env {
	return newEnv(s.cp, func(v *pattern.Variable) ([]*tree.Node, bool) {
		return s.bind[v.Index], s.bound[v.Index]
	}, nodes, s.types)
}

// newEnv builds the script environment seen by constraints and
// replacement variables. types is called only when a script asks for a
// type.
func newEnv(cp *pattern.CompiledPattern, binding func(*pattern.Variable) ([]*tree.Node, bool), nodes []*tree.Node, types func() profile.Oracle) *script.Env {
	env := script.NewEnv()
	for _, v := range cp.Vars {
		if v.DontCare {
			continue
		}
		if bound, ok := binding(v); ok {
			env.Set(v.Name, value(v, bound))
		}
	}
	if len(nodes) == 1 {
		env.Set(pattern.ContextVar, script.NodeValue{Node: nodes[0]})
	} else {
		env.Set(pattern.ContextVar, script.ListValue{Nodes: nodes})
	}
	env.TypeOf = func(n *tree.Node) (string, bool) {
		t, ok := types().ExprType(n)
		if !ok {
			return "", false
		}
		return t.String(), true
	}
	return env
}

// value is how a binding is seen from a script.
func value(v *pattern.Variable, nodes []*tree.Node) script.Value {
	switch {
	case v.Repeats():
		return script.ListValue{Nodes: nodes}
	case len(nodes) == 1:
		return script.NodeValue{Node: nodes[0]}
	default:
		return script.NilValue{}
	}
}

func (s *state) scripts(nodes []*tree.Node) bool {
	var env *script.Env
	for _, v := range s.cp.Vars {
		for _, con := range v.Constraints {
			if con.Kind != pattern.Script {
				continue
			}
			if env == nil {
				env = s.env(nodes)
			}
			if !s.runScript(v.Name, con, env) {
				return false
			}
		}
	}
	return true
}

func (s *state) runScript(name string, con *pattern.Constraint, env *script.Env) bool {
	ok, err := con.Program.Test(env)
	if err != nil {
		s.err = &types.StructuralSearchError{
			Msg: fmt.Sprintf("script constraint on %q", name),
			Err: err,
		}
		return false
	}
	return ok != con.Negated
}

// context evaluates the complete-match constraints on the matched nodes.
func (s *state) context(nodes []*tree.Node) bool {
	var env *script.Env
	for _, con := range s.cp.Context {
		if con.Kind == pattern.Script {
			if env == nil {
				env = s.env(nodes)
			}
			if !s.runScript(pattern.ContextVar, con, env) {
				return false
			}
			continue
		}
		for _, n := range nodes {
			if !s.holds(con, n) {
				return false
			}
		}
	}
	return true
}

func (s *state) snapshot(nodes []*tree.Node) *Result {
	start, end := tree.Span(nodes)
	r := &Result{
		Anchor:   nodes[0],
		Nodes:    append([]*tree.Node(nil), nodes...),
		Start:    start,
		End:      end,
		Tree:     s.tree,
		Pattern:  s.cp,
		oracle:   s.oracle,
		Captures: make(map[string][]*tree.Node),
		bindings: make(map[string][]*tree.Node),
	}
	for _, v := range s.cp.Vars {
		if v.DontCare || !s.bound[v.Index] {
			continue
		}
		bound := append([]*tree.Node(nil), s.bind[v.Index]...)
		r.bindings[v.Name] = bound
		if !v.Anonymous {
			r.Captures[v.Name] = bound
		}
	}
	return r
}
