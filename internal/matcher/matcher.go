// Package matcher runs compiled patterns against syntax trees.
//
// Matching is a backtracking descent in continuation-passing style: every
// step receives the continuation to run once the current pattern node is
// matched, and a false return unwinds to the latest choice point.
package matcher

import (
	"context"

	"github.com/gnoswap-labs/ssr/internal/pattern"
	"github.com/gnoswap-labs/ssr/internal/pattern/query"
	"github.com/gnoswap-labs/ssr/internal/profile"
	"github.com/gnoswap-labs/ssr/internal/tree"
)

// tickEvery is how many steps run between cancellation checks.
const tickEvery = 256

// state is the mutable half of one search: the bindings under
// construction and the abort reason. A CompiledPattern is never written.
type state struct {
	ctx  context.Context
	cp   *pattern.CompiledPattern
	prof profile.Profile
	tree *tree.Tree

	oracle profile.Oracle

	bind  [][]*tree.Node
	bound []bool

	steps  int
	err    error
	result *Result
}

func newState(ctx context.Context, cp *pattern.CompiledPattern, t *tree.Tree) *state {
	return &state{
		ctx:   ctx,
		cp:    cp,
		prof:  cp.Profile,
		tree:  t,
		bind:  make([][]*tree.Node, len(cp.Vars)),
		bound: make([]bool, len(cp.Vars)),
	}
}

// sub returns a state for a nested pattern over the same tree.
func (s *state) sub(cp *pattern.CompiledPattern) *state {
	ss := newState(s.ctx, cp, s.tree)
	ss.oracle = s.oracle
	return ss
}

func (s *state) reset() {
	for i := range s.bind {
		s.bind[i], s.bound[i] = nil, false
	}
	s.result = nil
}

func (s *state) types() profile.Oracle {
	if s.oracle == nil {
		if s.tree == nil {
			return s.prof.Oracle(&tree.Tree{})
		}
		s.oracle = s.prof.Oracle(s.tree)
	}
	return s.oracle
}

// tick counts a step and reports whether the search may go on.
func (s *state) tick() bool {
	if s.err != nil {
		return false
	}
	s.steps++
	if s.steps%tickEvery == 0 {
		if err := s.ctx.Err(); err != nil {
			s.err = err
			return false
		}
	}
	return true
}

// match matches p against c and runs k on success.
func (s *state) match(p *pattern.Node, c *tree.Node, k func() bool) bool {
	if !s.tick() {
		return false
	}
	if p == nil {
		return c == nil && k()
	}
	if p.IsVar() {
		if c == nil {
			return false
		}
		return s.bindRun(p.Var, p.Slot, []*tree.Node{c}, k)
	}
	if s.matchNode(p, c, k) {
		return true
	}
	if s.cp.Loose && c != nil && c.Kind == tree.KindParenExpr && p.Kind != tree.KindParenExpr {
		return s.match(p, c.Child(0), k)
	}
	return false
}

// matchNode compares a literal pattern node with c: kind, token, then the
// children in layout order.
func (s *state) matchNode(p *pattern.Node, c *tree.Node, k func() bool) bool {
	if c == nil || p.Kind != c.Kind || !s.sameToken(p, c) {
		return false
	}
	if len(p.Children) != len(c.Children) {
		return false
	}
	return s.children(p, c, 0, k)
}

func (s *state) sameToken(p *pattern.Node, c *tree.Node) bool {
	cs := s.cp.CaseSensitive
	switch p.Kind {
	case tree.KindIdent:
		return profile.EqualWords(p.Token, c.Token, cs)
	case tree.KindBasicLit:
		return profile.EqualLiterals(p.Token, c.Token, cs)
	case tree.KindComment:
		return profile.EqualText(p.Token, c.Token, cs)
	default:
		return p.Token == c.Token
	}
}

func (s *state) children(p *pattern.Node, c *tree.Node, i int, k func() bool) bool {
	if i == len(p.Children) {
		return k()
	}
	pc, cc := p.Children[i], c.Children[i]
	next := func() bool { return s.children(p, c, i+1, k) }

	switch {
	case pc == nil:
		if cc == nil || s.prof.Ignorable(p.Kind, i) {
			return next()
		}
		return false
	case pc.Kind == tree.KindList && !pc.IsVar():
		return s.list(pc, cc, next)
	default:
		return s.match(pc, cc, next)
	}
}

// list matches a pattern list against a candidate list as a whole. In
// loose mode a statement list that fails as written is tried again with
// redundant blocks opened up for literal statements.
func (s *state) list(p *pattern.Node, c *tree.Node, k func() bool) bool {
	if c == nil || c.Kind != tree.KindList || c.Token != p.Token {
		return false
	}
	if p.Unordered {
		return s.unordered(p.Children, c.Children, k)
	}
	done := func(int) bool { return k() }
	if s.seq(p.Children, c.Children, 0, false, false, done) {
		return true
	}
	if !s.cp.Loose || c.Token != tree.ListStmts || s.err != nil || !hasBlock(c.Children) {
		return false
	}
	return s.seq(p.Children, c.Children, 0, false, true, done)
}

func hasBlock(stmts []*tree.Node) bool {
	for _, st := range stmts {
		if st.Kind == tree.KindBlockStmt {
			return true
		}
	}
	return false
}

// openBlock returns cs with the block at i replaced by its statements.
func openBlock(cs []*tree.Node, i int) []*tree.Node {
	inner := cs[i].Child(0).Children
	out := make([]*tree.Node, 0, len(cs)-1+len(inner))
	out = append(out, cs[:i]...)
	out = append(out, inner...)
	return append(out, cs[i+1:]...)
}

// sameList reports whether the nodes are siblings of one list, so that
// the text of a run never crosses a block boundary.
func sameList(nodes []*tree.Node) bool {
	if len(nodes) == 0 {
		return true
	}
	for _, n := range nodes[1:] {
		if n.Parent != nodes[0].Parent {
			return false
		}
	}
	return true
}

// seq matches the pattern elements ps against cs starting at i. k gets the
// index one past the last consumed element. Unless open is set the whole
// of cs must be consumed. With splice set, a literal element that fails
// against a block is tried against the statements inside it; variables
// only ever bind runs of one list.
func (s *state) seq(ps []*pattern.Node, cs []*tree.Node, i int, open, splice bool, k func(end int) bool) bool {
	if !s.tick() {
		return false
	}
	if len(ps) == 0 {
		if !open && i != len(cs) {
			return false
		}
		return k(i)
	}

	p, rest := ps[0], ps[1:]
	if !p.IsVar() {
		if i >= len(cs) {
			return false
		}
		c := cs[i]
		if p.Kind == tree.KindGenDecl && c.Kind == tree.KindDeclStmt {
			c = c.Child(0)
		}
		if s.match(p, c, func() bool { return s.seq(rest, cs, i+1, open, splice, k) }) {
			return true
		}
		if splice && c.Kind == tree.KindBlockStmt && p.Kind != tree.KindBlockStmt && s.err == nil {
			return s.seq(ps, openBlock(cs, i), i, open, splice, k)
		}
		return false
	}

	v := p.Var
	avail := len(cs) - i
	lo, hi := v.Min, v.Max
	if hi == query.Unbounded || hi > avail {
		hi = avail
	}
	if !v.DontCare && s.bound[v.Index] {
		// A repeated name binds the same number of nodes again.
		lo = len(s.bind[v.Index])
		hi = lo
		if lo > avail {
			return false
		}
	}
	if lo > hi {
		return false
	}

	try := func(n int) bool {
		run := cs[i : i+n]
		if !sameList(run) {
			return false
		}
		return s.bindRun(v, p.Slot, run, func() bool { return s.seq(rest, cs, i+n, open, splice, k) })
	}
	if v.Greedy {
		for n := hi; n >= lo; n-- {
			if try(n) {
				return true
			}
			if s.err != nil {
				return false
			}
		}
		return false
	}
	for n := lo; n <= hi; n++ {
		if try(n) {
			return true
		}
		if s.err != nil {
			return false
		}
	}
	return false
}

// unordered matches ps against cs as multisets: every literal element
// takes a distinct candidate, the variables share what is left in source
// order.
func (s *state) unordered(ps []*pattern.Node, cs []*tree.Node, k func() bool) bool {
	var lits, vars []*pattern.Node
	for _, p := range ps {
		if p.IsVar() {
			vars = append(vars, p)
		} else {
			lits = append(lits, p)
		}
	}
	if len(lits) > len(cs) {
		return false
	}

	used := make([]bool, len(cs))
	var pick func(i int) bool
	pick = func(i int) bool {
		if i == len(lits) {
			rest := make([]*tree.Node, 0, len(cs)-len(lits))
			for j, c := range cs {
				if !used[j] {
					rest = append(rest, c)
				}
			}
			return s.seq(vars, rest, 0, false, false, func(int) bool { return k() })
		}
		for j, c := range cs {
			if used[j] {
				continue
			}
			used[j] = true
			if s.match(lits[i], c, func() bool { return pick(i + 1) }) {
				return true
			}
			used[j] = false
			if s.err != nil {
				return false
			}
		}
		return false
	}
	return pick(0)
}

// bindRun binds v to nodes, checks the variable's constraints and runs k.
// The binding is undone when k fails.
func (s *state) bindRun(v *pattern.Variable, slot pattern.Slot, nodes []*tree.Node, k func() bool) bool {
	if !v.Covers(len(nodes)) {
		return false
	}
	for _, n := range nodes {
		if !fitsSlot(slot, n) {
			return false
		}
	}

	if v.DontCare {
		return s.check(v, nodes) && k()
	}
	if s.bound[v.Index] {
		return s.sameNodes(s.bind[v.Index], nodes) && k()
	}

	s.bind[v.Index], s.bound[v.Index] = nodes, true
	if s.check(v, nodes) && k() {
		return true
	}
	s.bind[v.Index], s.bound[v.Index] = nil, false
	return false
}

// fitsSlot reports whether n is of the syntactic class the placeholder
// stands for.
func fitsSlot(slot pattern.Slot, n *tree.Node) bool {
	switch slot.Class {
	case tree.ClassExpr:
		return n.Kind.Class() == tree.ClassExpr
	case tree.ClassStmt:
		return n.Kind.Class() == tree.ClassStmt
	case tree.ClassField:
		return n.Kind == tree.KindField
	default:
		return n.Kind.Class() == slot.Class
	}
}

func (s *state) sameNodes(a, b []*tree.Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] && !s.prof.Equal(a[i], b[i], s.cp.CaseSensitive) {
			return false
		}
	}
	return true
}
