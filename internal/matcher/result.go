package matcher

import (
	"sort"

	"github.com/gnoswap-labs/ssr/internal/pattern"
	"github.com/gnoswap-labs/ssr/internal/profile"
	"github.com/gnoswap-labs/ssr/internal/script"
	"github.com/gnoswap-labs/ssr/internal/tree"
)

// Result is one match. It is never modified after being returned.
type Result struct {
	// Anchor is the matched node, or the first node of a matched run.
	Anchor *tree.Node
	// Nodes is the run of sibling nodes the pattern matched; a single
	// element unless the pattern is a sequence.
	Nodes []*tree.Node

	Start, End int
	Tree       *tree.Tree
	Pattern    *pattern.CompiledPattern

	// Captures maps every reported variable to the nodes it bound, in
	// source order. Anonymous variables are left out.
	Captures map[string][]*tree.Node

	bindings map[string][]*tree.Node
	// oracle is the one the search used, if it needed one.
	oracle profile.Oracle
}

// Binding returns the nodes bound to a variable, anonymous ones
// included. ok is false when the variable took no part in the match.
func (r *Result) Binding(name string) (nodes []*tree.Node, ok bool) {
	nodes, ok = r.bindings[name]
	return nodes, ok
}

// Text returns the matched source text.
func (r *Result) Text() string {
	if r.Tree == nil || r.Start > r.End || r.End > len(r.Tree.Src) {
		return ""
	}
	return string(r.Tree.Src[r.Start:r.End])
}

// CaptureText returns the source text bound to a variable.
func (r *Result) CaptureText(name string) string {
	nodes, _ := r.Binding(name)
	return tree.Text(nodes)
}

// Env returns the script environment of the match: the same one its
// constraints saw.
func (r *Result) Env() *script.Env {
	return newEnv(r.Pattern, func(v *pattern.Variable) ([]*tree.Node, bool) {
		return r.Binding(v.Name)
	}, r.Nodes, r.types)
}

func (r *Result) types() profile.Oracle {
	if r.oracle != nil {
		return r.oracle
	}
	t := r.Tree
	if t == nil {
		t = &tree.Tree{}
	}
	return r.Pattern.Profile.Oracle(t)
}

// Names returns the reported variable names, sorted.
func (r *Result) Names() []string {
	names := make([]string, 0, len(r.Captures))
	for name := range r.Captures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortResults(results []*Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Start != results[j].Start {
			return results[i].Start < results[j].Start
		}
		return results[i].End > results[j].End
	})
}
