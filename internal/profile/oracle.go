package profile

import (
	"go/ast"
	"go/importer"
	"go/token"
	"go/types"
	"strings"
	"sync"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/gnoswap-labs/ssr/internal/tree"
)

// sharedImporter type-checks imported packages from source once per
// process. go/types importers are not safe for concurrent use.
var sharedImporter = &lockedImporter{
	fset: token.NewFileSet(),
}

type lockedImporter struct {
	mu   sync.Mutex
	fset *token.FileSet
	imp  types.Importer
}

func (l *lockedImporter) Import(path string) (*types.Package, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.imp == nil {
		l.imp = importer.ForCompiler(l.fset, "source", nil)
	}
	return l.imp.Import(path)
}

// goOracle answers type queries for one file. The file is type-checked on
// its own; errors are tolerated and leave holes in the type information.
type goOracle struct {
	fset *token.FileSet
	file *ast.File
	pkg  *types.Package
	info *types.Info

	ident map[token.Pos]*tree.Node // declaring identifiers by position
}

func newGoOracle(t *tree.Tree, fset *token.FileSet, file *ast.File) *goOracle {
	info := &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
	}
	conf := types.Config{
		Importer: sharedImporter,
		Error:    func(error) {},
	}
	pkg, _ := conf.Check(file.Name.Name, fset, []*ast.File{file}, info)

	o := &goOracle{
		fset:  fset,
		file:  file,
		pkg:   pkg,
		info:  info,
		ident: make(map[token.Pos]*tree.Node),
	}
	t.Root.Walk(func(n *tree.Node) bool {
		if id, ok := n.Origin.(*ast.Ident); ok {
			o.ident[id.Pos()] = n
		}
		return true
	})
	return o
}

func (o *goOracle) wrap(t types.Type) (Type, bool) {
	if t == nil || t == types.Typ[types.Invalid] {
		return nil, false
	}
	return &goType{t: t, o: o}, true
}

func (o *goOracle) ExprType(n *tree.Node) (Type, bool) {
	x, ok := n.Origin.(ast.Expr)
	if !ok {
		return nil, false
	}
	return o.wrap(o.info.TypeOf(x))
}

func (o *goOracle) FormalType(n *tree.Node) (Type, bool) {
	x, ok := n.Origin.(ast.Expr)
	if !ok {
		return nil, false
	}
	path, _ := astutil.PathEnclosingInterval(o.file, x.Pos(), x.End())
	start := len(path)
	for i, p := range path {
		if p == ast.Node(x) {
			start = i + 1
			break
		}
	}
	child := ast.Node(x)
	for i := start; i < len(path); i++ {
		switch p := path[i].(type) {
		case *ast.ParenExpr:
			child = p
			continue
		case *ast.CallExpr:
			return o.wrap(o.argType(p, child))
		case *ast.AssignStmt:
			if idx := indexOf(p.Rhs, child); idx >= 0 && len(p.Lhs) == len(p.Rhs) {
				return o.wrap(o.info.TypeOf(p.Lhs[idx]))
			}
		case *ast.ValueSpec:
			if idx := indexOf(p.Values, child); idx >= 0 {
				if p.Type != nil {
					return o.wrap(o.info.TypeOf(p.Type))
				}
				if idx < len(p.Names) {
					return o.wrap(o.info.TypeOf(p.Names[idx]))
				}
			}
		case *ast.ReturnStmt:
			if idx := indexOf(p.Results, child); idx >= 0 {
				return o.wrap(o.resultType(path[i+1:], idx))
			}
		case *ast.KeyValueExpr:
			if p.Value == child {
				if lit, ok := parentLit(path, i); ok {
					return o.wrap(o.elemType(lit, p, -1))
				}
			}
		case *ast.CompositeLit:
			if idx := indexOf(p.Elts, child); idx >= 0 {
				return o.wrap(o.elemType(p, nil, idx))
			}
		case *ast.SendStmt:
			if p.Value == child {
				if ch, ok := under(o.info.TypeOf(p.Chan)).(*types.Chan); ok {
					return o.wrap(ch.Elem())
				}
			}
		}
		return nil, false
	}
	return nil, false
}

func (o *goOracle) argType(call *ast.CallExpr, arg ast.Node) types.Type {
	idx := indexOf(call.Args, arg)
	if idx < 0 {
		return nil
	}
	if tv, ok := o.info.Types[call.Fun]; ok && tv.IsType() {
		return tv.Type
	}
	sig, ok := under(o.info.TypeOf(call.Fun)).(*types.Signature)
	if !ok {
		return nil
	}
	params := sig.Params()
	if params.Len() == 0 {
		return nil
	}
	if sig.Variadic() && idx >= params.Len()-1 {
		last := params.At(params.Len() - 1).Type()
		if call.Ellipsis.IsValid() {
			return last
		}
		if s, ok := last.(*types.Slice); ok {
			return s.Elem()
		}
		return last
	}
	if idx >= params.Len() {
		return nil
	}
	return params.At(idx).Type()
}

func (o *goOracle) resultType(path []ast.Node, idx int) types.Type {
	for _, n := range path {
		var sig *types.Signature
		switch f := n.(type) {
		case *ast.FuncLit:
			sig, _ = o.info.TypeOf(f).(*types.Signature)
		case *ast.FuncDecl:
			if fn, ok := o.info.Defs[f.Name].(*types.Func); ok {
				sig, _ = fn.Type().(*types.Signature)
			}
		default:
			continue
		}
		if sig == nil || idx >= sig.Results().Len() {
			return nil
		}
		return sig.Results().At(idx).Type()
	}
	return nil
}

func (o *goOracle) elemType(lit *ast.CompositeLit, kv *ast.KeyValueExpr, idx int) types.Type {
	switch t := under(o.info.TypeOf(lit)).(type) {
	case *types.Struct:
		if kv != nil {
			return o.info.TypeOf(kv.Key)
		}
		if idx < t.NumFields() {
			return t.Field(idx).Type()
		}
	case *types.Map:
		return t.Elem()
	case *types.Slice:
		return t.Elem()
	case *types.Array:
		return t.Elem()
	}
	return nil
}

func parentLit(path []ast.Node, i int) (*ast.CompositeLit, bool) {
	if i+1 < len(path) {
		lit, ok := path[i+1].(*ast.CompositeLit)
		return lit, ok
	}
	return nil, false
}

func (o *goOracle) Declaration(n *tree.Node) (*tree.Node, bool) {
	var id *ast.Ident
	switch x := n.Origin.(type) {
	case *ast.Ident:
		id = x
	case *ast.SelectorExpr:
		id = x.Sel
	default:
		return nil, false
	}
	if _, def := o.info.Defs[id]; def {
		return nil, false
	}
	obj := o.info.Uses[id]
	if obj == nil || !obj.Pos().IsValid() || obj.Pkg() != o.pkg {
		return nil, false
	}
	decl, ok := o.ident[obj.Pos()]
	if !ok {
		return nil, false
	}
	for p := decl; p != nil; p = p.Parent {
		switch p.Kind {
		case tree.KindValueSpec, tree.KindTypeSpec, tree.KindImportSpec, tree.KindFuncDecl,
			tree.KindField, tree.KindAssignStmt, tree.KindRangeStmt, tree.KindLabeledStmt:
			return p, true
		}
	}
	return decl, true
}

func indexOf[T ast.Node](list []T, n ast.Node) int {
	for i, x := range list {
		if ast.Node(x) == n {
			return i
		}
	}
	return -1
}

func under(t types.Type) types.Type {
	if t == nil {
		return nil
	}
	return t.Underlying()
}

func deref(t types.Type) types.Type {
	if p, ok := t.(*types.Pointer); ok {
		return p.Elem()
	}
	return t
}

// goType implements Type over go/types.
type goType struct {
	t types.Type
	o *goOracle
}

func (g *goType) String() string {
	return types.TypeString(g.t, packageName)
}

func packageName(p *types.Package) string { return p.Name() }

func (g *goType) Matches(alt TypeAlt, caseSensitive bool) bool {
	exact := g.spelledAs(alt.Name, caseSensitive)
	switch alt.Hierarchy {
	case OrSubtype:
		return exact || g.subtypeOf(alt.Name, caseSensitive)
	case SubtypeOnly:
		return !exact && g.subtypeOf(alt.Name, caseSensitive)
	default:
		return exact
	}
}

func (g *goType) spelledAs(name string, caseSensitive bool) bool {
	name = strings.ReplaceAll(name, " ", "")
	spellings := []string{
		types.TypeString(g.t, packageName),
		types.TypeString(g.t, nil),
		types.TypeString(g.t, func(*types.Package) string { return "" }),
	}
	for _, s := range spellings {
		if EqualWords(strings.ReplaceAll(s, " ", ""), name, caseSensitive) {
			return true
		}
	}
	return false
}

// subtypeOf reports whether g is a strict subtype of the named type:
// it implements the named interface, or embeds the named type.
func (g *goType) subtypeOf(name string, caseSensitive bool) bool {
	for _, target := range g.o.lookup(name, caseSensitive) {
		if types.Identical(g.t, target) {
			continue
		}
		if iface, ok := target.Underlying().(*types.Interface); ok {
			if types.Implements(g.t, iface) {
				return true
			}
			if _, isPtr := g.t.(*types.Pointer); !isPtr && !types.IsInterface(g.t) {
				if types.Implements(types.NewPointer(g.t), iface) {
					return true
				}
			}
			continue
		}
		if embeds(g.t, target, map[types.Type]bool{}) {
			return true
		}
	}
	return false
}

func embeds(t, target types.Type, seen map[types.Type]bool) bool {
	t = deref(t)
	if seen[t] {
		return false
	}
	seen[t] = true
	st, ok := under(t).(*types.Struct)
	if !ok {
		return false
	}
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if !f.Embedded() {
			continue
		}
		ft := deref(f.Type())
		if types.Identical(ft, target) || embeds(ft, target, seen) {
			return true
		}
	}
	return false
}

// lookup resolves a possibly qualified type name against the file's
// package, its imports and the universe.
func (o *goOracle) lookup(name string, caseSensitive bool) []types.Type {
	if o.pkg == nil {
		return nil
	}
	qual, base := "", name
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		qual, base = name[:i], name[i+1:]
	}

	scopes := []*types.Scope{}
	if qual == "" {
		scopes = append(scopes, o.pkg.Scope(), types.Universe)
	}
	for _, p := range append([]*types.Package{o.pkg}, o.pkg.Imports()...) {
		if qual == "" || EqualWords(p.Name(), qual, caseSensitive) || EqualWords(p.Path(), qual, caseSensitive) {
			if qual == "" && p == o.pkg {
				continue
			}
			scopes = append(scopes, p.Scope())
		}
	}

	var out []types.Type
	for _, s := range scopes {
		for _, n := range s.Names() {
			if !EqualWords(n, base, caseSensitive) {
				continue
			}
			if tn, ok := s.Lookup(n).(*types.TypeName); ok {
				out = append(out, tn.Type())
			}
		}
	}
	return out
}
