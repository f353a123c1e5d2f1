package matcher

import (
	"context"
	"errors"

	"github.com/gnoswap-labs/ssr/internal/pattern"
	"github.com/gnoswap-labs/ssr/internal/tree"
)

// ErrNilTree is returned when there is nothing to search.
var ErrNilTree = errors.New("matcher: nil tree")

// Search runs cp over a whole tree.
func Search(ctx context.Context, cp *pattern.CompiledPattern, t *tree.Tree) ([]*Result, error) {
	if t == nil || t.Root == nil {
		return nil, ErrNilTree
	}
	return Match(ctx, cp, t.Root)
}

// Match runs cp with root as the search scope. In WholeTree mode every
// node under root is a candidate, in document order; in SingleNode mode
// only root is. A node anchors at most one result, and the runs matched
// by a sequence pattern never overlap within a list.
//
// A script fault aborts the search with a *types.StructuralSearchError;
// cancellation returns ctx.Err(). Results found before an abort are
// discarded.
func Match(ctx context.Context, cp *pattern.CompiledPattern, root *tree.Node) ([]*Result, error) {
	if root == nil {
		return nil, ErrNilTree
	}
	s := newState(ctx, cp, root.Tree())

	var results []*Result
	if cp.Mode == pattern.SingleNode {
		results = s.single(root)
	} else {
		results = s.walk(root)
	}
	if s.err != nil {
		return nil, s.err
	}
	sortResults(results)
	return results, nil
}

func (s *state) single(root *tree.Node) []*Result {
	if s.cp.Shape != pattern.RootSequence {
		if r := s.at(root); r != nil {
			return []*Result{r}
		}
		return nil
	}
	if root.IsList() {
		return s.runs(root)
	}
	if root.InList(s.cp.SeqList) {
		if r := s.run(root.Parent.Children, root.Index); r != nil {
			return []*Result{r}
		}
	}
	return nil
}

func (s *state) walk(root *tree.Node) []*Result {
	var results []*Result
	seen := make(map[*tree.Node]bool)
	root.Walk(func(n *tree.Node) bool {
		if s.err != nil {
			return false
		}
		if err := s.ctx.Err(); err != nil {
			s.err = err
			return false
		}

		if s.cp.Shape == pattern.RootSequence {
			if n.IsList() && (s.cp.SeqList == "" || n.Token == s.cp.SeqList) {
				for _, r := range s.runs(n) {
					if !seen[r.Anchor] {
						seen[r.Anchor] = true
						results = append(results, r)
					}
				}
			}
			return true
		}

		if n.IsList() {
			return true
		}
		if r := s.at(n); r != nil && !seen[n] {
			seen[n] = true
			results = append(results, r)
		}
		return true
	})
	return results
}

// at tries a single-node pattern with n as the anchor.
func (s *state) at(n *tree.Node) *Result {
	s.reset()
	nodes := []*tree.Node{n}
	done := s.finish(nodes)

	root := s.cp.Root
	switch s.cp.Shape {
	case pattern.RootStmtVar:
		if !n.InList(tree.ListStmts) {
			return nil
		}
		s.bindRun(root.Var, root.Slot, nodes, done)
	case pattern.RootExpr, pattern.RootStmt, pattern.RootDecl:
		if root.IsVar() {
			s.bindRun(root.Var, root.Slot, nodes, done)
		} else {
			s.matchNode(root, n, done)
		}
	}
	return s.result
}

// runs finds the non-overlapping runs of a sequence pattern in a list,
// left to right.
func (s *state) runs(list *tree.Node) []*Result {
	var results []*Result
	cs := list.Children
	for i := 0; i < len(cs) && s.err == nil; {
		r := s.run(cs, i)
		if r == nil {
			i++
			continue
		}
		results = append(results, r)
		i = indexAfter(cs, r.Nodes, i)
	}
	return results
}

func indexAfter(cs, run []*tree.Node, from int) int {
	last := run[len(run)-1]
	for j := from; j < len(cs); j++ {
		if cs[j] == last || (cs[j].Start <= last.Start && last.End <= cs[j].End) {
			return j + 1
		}
	}
	return from + 1
}

// run tries the sequence pattern on the siblings starting at cs[i].
func (s *state) run(cs []*tree.Node, i int) *Result {
	s.reset()
	s.seq(s.cp.Seq, cs, i, true, false, func(end int) bool {
		if end == i {
			return false
		}
		return s.finish(cs[i:end])()
	})
	return s.result
}
