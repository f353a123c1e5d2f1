package profile

import (
	"go/ast"
	"go/token"

	"github.com/gnoswap-labs/ssr/internal/tree"
)

// converter turns go/ast nodes into generic tree nodes. Offsets are
// shifted by base so that wrapped pattern snippets point into the text
// the user wrote.
type converter struct {
	file *token.File
	base int
}

func (c *converter) offset(p token.Pos) int {
	if !p.IsValid() || c.file == nil {
		return 0
	}
	off := c.file.Offset(p) - c.base
	if off < 0 {
		return 0
	}
	return off
}

func (c *converter) mk(kind tree.Kind, n ast.Node, tok string, children ...*tree.Node) *tree.Node {
	out := &tree.Node{
		Kind:     kind,
		Token:    tok,
		Children: children,
		Origin:   n,
	}
	if n != nil {
		out.Start, out.End = c.offset(n.Pos()), c.offset(n.End())
	}
	return out
}

// list builds a KindList node. An empty list sits at pos with zero width.
func (c *converter) list(category string, pos token.Pos, elems []*tree.Node) *tree.Node {
	out := &tree.Node{Kind: tree.KindList, Token: category, Children: elems}
	if len(elems) == 0 {
		out.Start = c.offset(pos)
		out.End = out.Start
		return out
	}
	out.Start, out.End = tree.Span(elems)
	return out
}

func (c *converter) sourceFile(f *ast.File) *tree.Node {
	decls := make([]*tree.Node, 0, len(f.Decls))
	for _, d := range f.Decls {
		decls = append(decls, c.decl(d))
	}
	n := c.mk(tree.KindFile, f, "", c.ident(f.Name), c.list(tree.ListDecls, f.Name.End(), decls))
	n.Start = 0
	if f.FileEnd.IsValid() {
		n.End = c.offset(f.FileEnd)
	}
	return n
}

func (c *converter) comment(g *ast.CommentGroup) *tree.Node {
	if g == nil {
		return nil
	}
	return c.mk(tree.KindComment, g, g.Text())
}

func (c *converter) ident(id *ast.Ident) *tree.Node {
	if id == nil {
		return nil
	}
	return c.mk(tree.KindIdent, id, id.Name)
}

func (c *converter) idents(pos token.Pos, ids []*ast.Ident) *tree.Node {
	elems := make([]*tree.Node, 0, len(ids))
	for _, id := range ids {
		elems = append(elems, c.ident(id))
	}
	return c.list(tree.ListIdents, pos, elems)
}

func (c *converter) exprs(pos token.Pos, xs []ast.Expr) *tree.Node {
	elems := make([]*tree.Node, 0, len(xs))
	for _, x := range xs {
		elems = append(elems, c.expr(x))
	}
	return c.list(tree.ListExprs, pos, elems)
}

func (c *converter) stmts(pos token.Pos, ss []ast.Stmt) *tree.Node {
	elems := make([]*tree.Node, 0, len(ss))
	for _, s := range ss {
		elems = append(elems, c.stmt(s))
	}
	return c.list(tree.ListStmts, pos, elems)
}

func (c *converter) fieldList(fl *ast.FieldList, unordered bool) *tree.Node {
	if fl == nil {
		return nil
	}
	elems := make([]*tree.Node, 0, len(fl.List))
	for _, f := range fl.List {
		elems = append(elems, c.mk(tree.KindField, f, "",
			c.idents(f.Pos(), f.Names), c.expr(f.Type), c.basicLit(f.Tag)))
	}
	pos := fl.Opening
	if pos.IsValid() {
		pos++
	} else {
		pos = fl.Pos()
	}
	l := c.list(tree.ListFields, pos, elems)
	l.Unordered = unordered
	return c.mk(tree.KindFieldList, fl, "", l)
}

func (c *converter) basicLit(b *ast.BasicLit) *tree.Node {
	if b == nil {
		return nil
	}
	return c.mk(tree.KindBasicLit, b, b.Value)
}

func (c *converter) block(b *ast.BlockStmt) *tree.Node {
	if b == nil {
		return nil
	}
	return c.mk(tree.KindBlockStmt, b, "", c.stmts(b.Lbrace+1, b.List))
}

func (c *converter) expr(x ast.Expr) *tree.Node {
	switch x := x.(type) {
	case nil:
		return nil
	case *ast.Ident:
		return c.ident(x)
	case *ast.BasicLit:
		return c.basicLit(x)
	case *ast.CompositeLit:
		return c.mk(tree.KindCompositeLit, x, "", c.expr(x.Type), c.exprs(x.Lbrace+1, x.Elts))
	case *ast.FuncLit:
		return c.mk(tree.KindFuncLit, x, "", c.expr(x.Type), c.block(x.Body))
	case *ast.ParenExpr:
		return c.mk(tree.KindParenExpr, x, "", c.expr(x.X))
	case *ast.SelectorExpr:
		return c.mk(tree.KindSelectorExpr, x, "", c.expr(x.X), c.ident(x.Sel))
	case *ast.IndexExpr:
		return c.mk(tree.KindIndexExpr, x, "", c.expr(x.X), c.expr(x.Index))
	case *ast.IndexListExpr:
		return c.mk(tree.KindIndexListExpr, x, "", c.expr(x.X), c.exprs(x.Lbrack+1, x.Indices))
	case *ast.SliceExpr:
		tok := ""
		if x.Slice3 {
			tok = "3"
		}
		return c.mk(tree.KindSliceExpr, x, tok, c.expr(x.X), c.expr(x.Low), c.expr(x.High), c.expr(x.Max))
	case *ast.TypeAssertExpr:
		return c.mk(tree.KindTypeAssertExpr, x, "", c.expr(x.X), c.expr(x.Type))
	case *ast.CallExpr:
		tok := ""
		if x.Ellipsis.IsValid() {
			tok = "..."
		}
		return c.mk(tree.KindCallExpr, x, tok, c.expr(x.Fun), c.exprs(x.Lparen+1, x.Args))
	case *ast.StarExpr:
		return c.mk(tree.KindStarExpr, x, "", c.expr(x.X))
	case *ast.UnaryExpr:
		return c.mk(tree.KindUnaryExpr, x, x.Op.String(), c.expr(x.X))
	case *ast.BinaryExpr:
		return c.mk(tree.KindBinaryExpr, x, x.Op.String(), c.expr(x.X), c.expr(x.Y))
	case *ast.KeyValueExpr:
		return c.mk(tree.KindKeyValueExpr, x, "", c.expr(x.Key), c.expr(x.Value))
	case *ast.Ellipsis:
		return c.mk(tree.KindEllipsis, x, "", c.expr(x.Elt))
	case *ast.ArrayType:
		return c.mk(tree.KindArrayType, x, "", c.expr(x.Len), c.expr(x.Elt))
	case *ast.StructType:
		return c.mk(tree.KindStructType, x, "", c.fieldList(x.Fields, false))
	case *ast.FuncType:
		return c.mk(tree.KindFuncType, x, "",
			c.fieldList(x.TypeParams, false), c.fieldList(x.Params, false), c.fieldList(x.Results, false))
	case *ast.InterfaceType:
		return c.mk(tree.KindInterfaceType, x, "", c.fieldList(x.Methods, true))
	case *ast.MapType:
		return c.mk(tree.KindMapType, x, "", c.expr(x.Key), c.expr(x.Value))
	case *ast.ChanType:
		tok := "chan"
		switch x.Dir {
		case ast.SEND:
			tok = "chan<-"
		case ast.RECV:
			tok = "<-chan"
		}
		return c.mk(tree.KindChanType, x, tok, c.expr(x.Value))
	default:
		// *ast.BadExpr never reaches here: parse errors abort conversion.
		return c.mk(tree.KindInvalid, x, "")
	}
}

func (c *converter) stmt(s ast.Stmt) *tree.Node {
	switch s := s.(type) {
	case nil:
		return nil
	case *ast.DeclStmt:
		return c.mk(tree.KindDeclStmt, s, "", c.decl(s.Decl))
	case *ast.EmptyStmt:
		return c.mk(tree.KindEmptyStmt, s, "")
	case *ast.LabeledStmt:
		return c.mk(tree.KindLabeledStmt, s, "", c.ident(s.Label), c.stmt(s.Stmt))
	case *ast.ExprStmt:
		return c.mk(tree.KindExprStmt, s, "", c.expr(s.X))
	case *ast.SendStmt:
		return c.mk(tree.KindSendStmt, s, "", c.expr(s.Chan), c.expr(s.Value))
	case *ast.IncDecStmt:
		return c.mk(tree.KindIncDecStmt, s, s.Tok.String(), c.expr(s.X))
	case *ast.AssignStmt:
		return c.mk(tree.KindAssignStmt, s, s.Tok.String(),
			c.exprs(s.Pos(), s.Lhs), c.exprs(s.TokPos+token.Pos(len(s.Tok.String())), s.Rhs))
	case *ast.GoStmt:
		return c.mk(tree.KindGoStmt, s, "", c.expr(s.Call))
	case *ast.DeferStmt:
		return c.mk(tree.KindDeferStmt, s, "", c.expr(s.Call))
	case *ast.ReturnStmt:
		return c.mk(tree.KindReturnStmt, s, "", c.exprs(s.Return+6, s.Results))
	case *ast.BranchStmt:
		return c.mk(tree.KindBranchStmt, s, s.Tok.String(), c.ident(s.Label))
	case *ast.BlockStmt:
		return c.block(s)
	case *ast.IfStmt:
		return c.mk(tree.KindIfStmt, s, "", c.stmt(s.Init), c.expr(s.Cond), c.block(s.Body), c.stmt(s.Else))
	case *ast.CaseClause:
		tok := "case"
		if s.List == nil {
			tok = "default"
		}
		xs := c.exprs(s.Case, s.List)
		xs.Unordered = true
		return c.mk(tree.KindCaseClause, s, tok, xs, c.stmts(s.Colon+1, s.Body))
	case *ast.SwitchStmt:
		return c.mk(tree.KindSwitchStmt, s, "", c.stmt(s.Init), c.expr(s.Tag), c.block(s.Body))
	case *ast.TypeSwitchStmt:
		return c.mk(tree.KindTypeSwitchStmt, s, "", c.stmt(s.Init), c.stmt(s.Assign), c.block(s.Body))
	case *ast.CommClause:
		tok := "case"
		if s.Comm == nil {
			tok = "default"
		}
		return c.mk(tree.KindCommClause, s, tok, c.stmt(s.Comm), c.stmts(s.Colon+1, s.Body))
	case *ast.SelectStmt:
		return c.mk(tree.KindSelectStmt, s, "", c.block(s.Body))
	case *ast.ForStmt:
		return c.mk(tree.KindForStmt, s, "", c.stmt(s.Init), c.expr(s.Cond), c.stmt(s.Post), c.block(s.Body))
	case *ast.RangeStmt:
		tok := ""
		if s.Key != nil {
			tok = s.Tok.String()
		}
		return c.mk(tree.KindRangeStmt, s, tok, c.expr(s.Key), c.expr(s.Value), c.expr(s.X), c.block(s.Body))
	default:
		return c.mk(tree.KindInvalid, s, "")
	}
}

func (c *converter) spec(s ast.Spec) *tree.Node {
	switch s := s.(type) {
	case *ast.ImportSpec:
		return c.mk(tree.KindImportSpec, s, "", c.ident(s.Name), c.basicLit(s.Path))
	case *ast.ValueSpec:
		return c.mk(tree.KindValueSpec, s, "",
			c.idents(s.Pos(), s.Names), c.expr(s.Type), c.exprs(s.End(), s.Values))
	case *ast.TypeSpec:
		tok := ""
		if s.Assign.IsValid() {
			tok = "="
		}
		return c.mk(tree.KindTypeSpec, s, tok, c.ident(s.Name), c.fieldList(s.TypeParams, false), c.expr(s.Type))
	default:
		return c.mk(tree.KindInvalid, s, "")
	}
}

func (c *converter) decl(d ast.Decl) *tree.Node {
	switch d := d.(type) {
	case *ast.GenDecl:
		specs := make([]*tree.Node, 0, len(d.Specs))
		for _, s := range d.Specs {
			specs = append(specs, c.spec(s))
		}
		pos := d.TokPos + token.Pos(len(d.Tok.String()))
		if d.Lparen.IsValid() {
			pos = d.Lparen + 1
		}
		l := c.list(tree.ListSpecs, pos, specs)
		l.Unordered = d.Tok == token.IMPORT
		return c.mk(tree.KindGenDecl, d, d.Tok.String(), c.comment(d.Doc), l)
	case *ast.FuncDecl:
		return c.mk(tree.KindFuncDecl, d, "",
			c.comment(d.Doc), c.fieldList(d.Recv, false), c.ident(d.Name), c.expr(d.Type), c.block(d.Body))
	default:
		return c.mk(tree.KindInvalid, d, "")
	}
}
