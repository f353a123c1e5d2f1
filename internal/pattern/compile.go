package pattern

import (
	"errors"
	"strings"

	"github.com/gnoswap-labs/ssr/internal/pattern/query"
	"github.com/gnoswap-labs/ssr/internal/profile"
	"github.com/gnoswap-labs/ssr/internal/tree"
	"github.com/gnoswap-labs/ssr/internal/types"
)

// Compile turns a template and its constraint table into a
// CompiledPattern. A nil profile is looked up from opts.FileType.
//
// Errors are *types.MalformedPatternError or
// *types.UnsupportedPatternError; nothing is detected later at match time.
func Compile(opts MatchOptions, prof profile.Profile) (*CompiledPattern, error) {
	if prof == nil {
		p, err := profile.Lookup(opts.FileType)
		if err != nil {
			return nil, err
		}
		prof = p
	}
	if strings.TrimSpace(opts.Pattern) == "" {
		return nil, types.Malformed("", types.MsgEmptyTemplate)
	}

	lexed, err := query.Lex(opts.Pattern)
	if err != nil {
		return nil, err
	}
	t, shape, err := prof.ParsePattern(lexed.Text)
	if err != nil {
		if errors.Is(err, profile.ErrFileTemplate) {
			return nil, types.Unsupported(types.MsgWholeFile)
		}
		return nil, types.Malformed("", types.MsgParse, err.Error())
	}

	c := &compiler{
		opts:  opts,
		prof:  prof,
		lexed: lexed,
		cp: &CompiledPattern{
			Text:          opts.Pattern,
			Profile:       prof,
			byName:        make(map[string]*Variable),
			CaseSensitive: opts.CaseSensitive,
			Loose:         opts.Loose,
			Mode:          opts.Mode,
		},
		byPlaceholder: make(map[*query.Placeholder]*Variable),
		terms:         make(map[*Variable][]query.Term),
		seen:          make(map[*query.Placeholder]bool),
	}

	steps := []func() error{
		c.declare,
		func() error { return c.table(opts.Variables) },
		func() error { return c.build(t.Root, shape) },
		c.checkSlots,
		c.compileConstraints,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	c.cp.Plan = c.plan()
	return c.cp, nil
}

type compiler struct {
	opts  MatchOptions
	prof  profile.Profile
	lexed *query.Result
	cp    *CompiledPattern

	byPlaceholder map[*query.Placeholder]*Variable
	terms         map[*Variable][]query.Term
	contextTerms  []query.Term
	seen          map[*query.Placeholder]bool
}

// declare creates one Variable per distinct name. Every occurrence of the
// don't-care name gets a Variable of its own.
func (c *compiler) declare() error {
	explicit := make(map[*Variable]bool)
	for _, ph := range c.lexed.Placeholders {
		if ph.Name == ContextVar {
			return types.Malformed(ph.Name, types.MsgBadConstraint, ph.Raw, "reserved name")
		}
		v, ok := c.cp.byName[ph.Name]
		if !ok || ph.Name == DontCare {
			v = &Variable{
				Name:      ph.Name,
				Index:     len(c.cp.Vars),
				Min:       1,
				Max:       1,
				Greedy:    true,
				Anonymous: strings.HasPrefix(ph.Name, "_"),
				DontCare:  ph.Name == DontCare,
			}
			c.cp.Vars = append(c.cp.Vars, v)
			if !v.DontCare {
				c.cp.byName[v.Name] = v
			}
		}
		c.byPlaceholder[ph] = v
		c.terms[v] = append(c.terms[v], ph.Constraint...)

		if !ph.Quantified {
			continue
		}
		q := ph.Quantifier
		if explicit[v] && (v.Min != q.Min || v.Max != q.Max || v.Greedy == q.Lazy) {
			return types.Malformed(v.Name, types.MsgConflictingQuantifier, v.Name)
		}
		explicit[v] = true
		v.Min, v.Max, v.Greedy = q.Min, q.Max, !q.Lazy
	}
	return nil
}

// table applies the constraint table. A Count overrides any quantifier
// written in the template.
func (c *compiler) table(specs []VariableSpec) error {
	for _, spec := range specs {
		terms, err := query.ParseConstraint(spec.Constraint)
		if err != nil {
			return types.Malformed(spec.Name, types.MsgBadConstraint, spec.Constraint, err.Error())
		}

		switch spec.Name {
		case ContextVar:
			if strings.TrimSpace(spec.Count) != "" {
				return types.Malformed(spec.Name, types.MsgBadQuantifier, spec.Count)
			}
			c.contextTerms = append(c.contextTerms, terms...)
			continue
		case DontCare:
			return types.Malformed(spec.Name, types.MsgBadConstraint, spec.Constraint, "the don't-care variable takes no constraints")
		}

		v, ok := c.cp.byName[spec.Name]
		if !ok {
			return types.Malformed(spec.Name, types.MsgUndeclaredVariable, spec.Name)
		}
		if strings.TrimSpace(spec.Count) != "" {
			q, err := query.ParseQuantifier(spec.Count)
			if err != nil {
				return types.Malformed(spec.Name, types.MsgBadQuantifier, spec.Count)
			}
			v.Min, v.Max, v.Greedy = q.Min, q.Max, !q.Lazy
		}
		c.terms[v] = append(c.terms[v], terms...)
	}
	return nil
}

// build converts the parsed template and decides the root shape.
func (c *compiler) build(root *tree.Node, shape profile.Shape) error {
	top := c.convert(root)
	for _, ph := range c.lexed.Placeholders {
		if !c.seen[ph] {
			return types.Unsupported(types.MsgUnsupportedPlaceholder, ph.Raw)
		}
	}

	cp := c.cp
	switch shape {
	case profile.ShapeExpr:
		top.Slot.Root = top.IsVar()
		if top.IsVar() && !exactlyOne(top.Var) {
			cp.Shape, cp.Seq = RootSequence, []*Node{top}
		} else {
			cp.Shape, cp.Root = RootExpr, top
		}

	default:
		elems := top.Children
		if len(elems) == 0 {
			return types.Unsupported(types.MsgEmptySequence)
		}
		if len(elems) == 1 {
			e := elems[0]
			switch {
			case e.IsVar() && exactlyOne(e.Var):
				cp.Shape, cp.Root = RootStmtVar, e
			case e.IsVar():
				cp.Shape, cp.Seq, cp.SeqList = RootSequence, elems, top.Token
			case e.Kind == tree.KindDeclStmt:
				cp.Shape, cp.Root = RootDecl, e.Children[0]
			case shape == profile.ShapeDecls:
				cp.Shape, cp.Root = RootDecl, e
			default:
				cp.Shape, cp.Root = RootStmt, e
			}
			break
		}

		cp.Shape, cp.Seq, cp.SeqList = RootSequence, elems, top.Token
		if shape == profile.ShapeDecls || allDeclStmts(elems) {
			// Declarations run in files and in function bodies alike.
			cp.SeqList = ""
			for i, e := range elems {
				if e.Kind == tree.KindDeclStmt {
					cp.Seq[i] = e.Children[0]
				}
			}
		}
	}

	if cp.Shape == RootSequence && minLength(cp.Seq) == 0 {
		return types.Unsupported(types.MsgEmptySequence)
	}
	return nil
}

func exactlyOne(v *Variable) bool { return v.Min == 1 && v.Max == 1 }

func allDeclStmts(elems []*Node) bool {
	for _, e := range elems {
		if e.Kind != tree.KindDeclStmt || e.IsVar() {
			return false
		}
	}
	return true
}

func minLength(seq []*Node) int {
	n := 0
	for _, e := range seq {
		if e.IsVar() {
			n += e.Var.Min
		} else {
			n++
		}
	}
	return n
}

// convert maps a parsed template node to a pattern node. Placeholder
// identifiers become capture nodes. An expression statement or an unnamed
// field made of a placeholder alone stands for a whole statement or field.
func (c *compiler) convert(n *tree.Node) *Node {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case tree.KindIdent:
		if v := c.placeholder(n); v != nil {
			return c.capture(v, n, tree.ClassExpr)
		}
	case tree.KindExprStmt:
		if v := c.placeholder(n.Child(0)); v != nil {
			return c.capture(v, n, tree.ClassStmt)
		}
	case tree.KindField:
		if n.Child(0).Len() == 0 && n.Child(2) == nil {
			if v := c.placeholder(n.Child(1)); v != nil {
				return c.capture(v, n, tree.ClassField)
			}
		}
	}

	out := &Node{
		Kind:      n.Kind,
		Token:     n.Token,
		Unordered: n.Unordered,
		Children:  make([]*Node, len(n.Children)),
		Source:    n,
	}
	for i, child := range n.Children {
		out.Children[i] = c.convert(child)
	}
	return out
}

func (c *compiler) placeholder(n *tree.Node) *Variable {
	if n == nil || n.Kind != tree.KindIdent || !strings.HasPrefix(n.Token, query.IdentPrefix) {
		return nil
	}
	ph, ok := c.lexed.Lookup(n.Token)
	if !ok {
		return nil
	}
	c.seen[ph] = true
	return c.byPlaceholder[ph]
}

func (c *compiler) capture(v *Variable, n *tree.Node, class tree.Class) *Node {
	slot := Slot{Class: class}
	if p := n.Parent; p != nil {
		slot.Parent = p.Kind
		if p.Kind == tree.KindList {
			slot.InList, slot.List = true, p.Token
		}
	}
	out := &Node{Kind: n.Kind, Var: v, Slot: slot, Source: n}
	v.Occurrences = append(v.Occurrences, out)
	return out
}

// checkSlots rejects repetition and absence where the grammar allows
// exactly one node.
func (c *compiler) checkSlots() error {
	for _, v := range c.cp.Vars {
		if exactlyOne(v) {
			continue
		}
		for _, occ := range v.Occurrences {
			if !occ.Slot.InList && !occ.Slot.Root {
				return types.Malformed(v.Name, types.MsgRepeatOnFixedSlot, v.Name, occ.Slot.Class.String())
			}
		}
	}
	return nil
}

// plan collects the identifiers and keywords of every literal node. A
// literal node is present in every match, so each word must occur in
// the source.
func (c *compiler) plan() SearchPlan {
	p := SearchPlan{CaseSensitive: c.opts.CaseSensitive}
	seen := make(map[string]bool)
	add := func(w string) {
		if !p.CaseSensitive {
			w = strings.ToLower(w)
		}
		if w == "" || seen[w] {
			return
		}
		seen[w] = true
		p.Words = append(p.Words, w)
	}

	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil || n.IsVar() {
			return
		}
		if n.Kind == tree.KindIdent {
			add(n.Token)
		}
		if n.Source != nil {
			for _, kw := range c.prof.Keywords(n.Source) {
				add(kw)
			}
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	if c.cp.Root != nil {
		walk(c.cp.Root)
	}
	for _, n := range c.cp.Seq {
		walk(n)
	}
	return p
}
