package profile

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"strconv"
	"strings"
	"sync"

	"github.com/go-toolsmith/astequal"

	"github.com/gnoswap-labs/ssr/internal/tree"
)

// ErrFileTemplate is returned by ParsePattern for snippets that carry a
// package clause.
var ErrFileTemplate = errors.New("template is a whole source file")

const (
	stmtPrefix = "package p; func _() {\n"
	declPrefix = "package p\n"
)

// Go is the profile for Go and Gno sources.
var Go Profile = goProfile{}

type goProfile struct{}

// goFile is the per-tree state kept in tree.Tree.Data.
type goFile struct {
	fset *token.FileSet
	file *ast.File

	once   sync.Once
	oracle *goOracle
}

func (goProfile) Name() string { return "go" }

func (goProfile) Extensions() []string { return []string{".go", ".gno"} }

func (goProfile) Parse(filename string, src []byte) (*tree.Tree, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, err
	}
	c := &converter{file: fset.File(f.Pos())}
	t := tree.New(filename, src, c.sourceFile(f))
	t.Data = &goFile{fset: fset, file: f}
	return t, nil
}

func (goProfile) ParsePattern(src string) (*tree.Tree, Shape, error) {
	if firstWord(src) == "package" {
		return nil, 0, ErrFileTemplate
	}

	fset := token.NewFileSet()
	if x, err := parser.ParseExprFrom(fset, "", src, parser.ParseComments); err == nil {
		c := &converter{file: fset.File(x.Pos())}
		return tree.New("", []byte(src), c.expr(x)), ShapeExpr, nil
	}

	f, stmtErr := parser.ParseFile(fset, "", stmtPrefix+src+"\n}", parser.ParseComments)
	if stmtErr == nil {
		body := f.Decls[0].(*ast.FuncDecl).Body
		c := &converter{file: fset.File(f.Pos()), base: len(stmtPrefix)}
		return tree.New("", []byte(src), c.stmts(body.Lbrace+1, body.List)), ShapeStmts, nil
	}

	f, err := parser.ParseFile(fset, "", declPrefix+src, parser.ParseComments)
	if err == nil {
		c := &converter{file: fset.File(f.Pos()), base: len(declPrefix)}
		decls := make([]*tree.Node, 0, len(f.Decls))
		for _, d := range f.Decls {
			decls = append(decls, c.decl(d))
		}
		return tree.New("", []byte(src), c.list(tree.ListDecls, f.Name.End(), decls)), ShapeDecls, nil
	}

	return nil, 0, errors.New(firstMessage(stmtErr))
}

func firstMessage(err error) string {
	var list scanner.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		return list[0].Msg
	}
	return err.Error()
}

func firstWord(src string) string {
	var s scanner.Scanner
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))
	s.Init(file, []byte(src), nil, 0)
	_, tok, lit := s.Scan()
	if tok.IsKeyword() {
		return tok.String()
	}
	return lit
}

func (goProfile) Words(src string) []string {
	var s scanner.Scanner
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))
	s.Init(file, []byte(src), nil, 0)

	var words []string
	for {
		_, tok, lit := s.Scan()
		switch {
		case tok == token.EOF:
			return words
		case tok == token.IDENT:
			words = append(words, lit)
		case tok.IsKeyword():
			words = append(words, tok.String())
		}
	}
}

func (goProfile) Keywords(n *tree.Node) []string {
	switch n.Kind {
	case tree.KindFuncLit, tree.KindFuncDecl:
		return []string{"func"}
	case tree.KindStructType:
		return []string{"struct"}
	case tree.KindInterfaceType:
		return []string{"interface"}
	case tree.KindMapType:
		return []string{"map"}
	case tree.KindChanType:
		return []string{"chan"}
	case tree.KindGoStmt:
		return []string{"go"}
	case tree.KindDeferStmt:
		return []string{"defer"}
	case tree.KindReturnStmt:
		return []string{"return"}
	case tree.KindBranchStmt, tree.KindGenDecl, tree.KindCaseClause, tree.KindCommClause:
		return []string{n.Token}
	case tree.KindIfStmt:
		if n.Child(3) != nil {
			return []string{"if", "else"}
		}
		return []string{"if"}
	case tree.KindSwitchStmt, tree.KindTypeSwitchStmt:
		return []string{"switch"}
	case tree.KindSelectStmt:
		return []string{"select"}
	case tree.KindForStmt:
		return []string{"for"}
	case tree.KindRangeStmt:
		return []string{"for", "range"}
	}
	return nil
}

func (goProfile) Ignorable(parent tree.Kind, index int) bool {
	switch parent {
	case tree.KindGenDecl, tree.KindFuncDecl:
		return index == 0 // doc comment
	}
	return false
}

func (goProfile) Equal(a, b *tree.Node, caseSensitive bool) bool {
	if caseSensitive {
		an, aok := a.Origin.(ast.Node)
		bn, bok := b.Origin.(ast.Node)
		if aok && bok && a.Kind != tree.KindList {
			return astequal.Node(an, bn)
		}
	}
	return equalTrees(a, b, caseSensitive)
}

func equalTrees(a, b *tree.Node, caseSensitive bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || len(a.Children) != len(b.Children) {
		return false
	}
	switch a.Kind {
	case tree.KindIdent:
		if !EqualWords(a.Token, b.Token, caseSensitive) {
			return false
		}
	case tree.KindBasicLit:
		if !EqualLiterals(a.Token, b.Token, caseSensitive) {
			return false
		}
	case tree.KindComment:
		if !EqualText(a.Token, b.Token, caseSensitive) {
			return false
		}
	default:
		if a.Token != b.Token {
			return false
		}
	}
	for i := range a.Children {
		if !equalTrees(a.Children[i], b.Children[i], caseSensitive) {
			return false
		}
	}
	return true
}

// EqualWords compares identifiers, folding case when asked to.
func EqualWords(a, b string, caseSensitive bool) bool {
	if caseSensitive {
		return a == b
	}
	return strings.EqualFold(a, b)
}

// EqualText compares free text with runs of whitespace collapsed.
func EqualText(a, b string, caseSensitive bool) bool {
	return EqualWords(strings.Join(strings.Fields(a), " "), strings.Join(strings.Fields(b), " "), caseSensitive)
}

// EqualLiterals compares two literal spellings. Strings are compared by
// value with whitespace normalized, numbers by value.
func EqualLiterals(a, b string, caseSensitive bool) bool {
	if a == b {
		return true
	}
	if isQuoted(a) && isQuoted(b) {
		ua, errA := strconv.Unquote(a)
		ub, errB := strconv.Unquote(b)
		if errA == nil && errB == nil {
			return EqualText(ua, ub, caseSensitive)
		}
		return false
	}
	if a == "" || b == "" || a[0] == '\'' || b[0] == '\'' {
		return false
	}
	na, errA := strconv.ParseInt(strings.ReplaceAll(a, "_", ""), 0, 64)
	nb, errB := strconv.ParseInt(strings.ReplaceAll(b, "_", ""), 0, 64)
	if errA == nil && errB == nil {
		return na == nb
	}
	fa, errA := strconv.ParseFloat(strings.ReplaceAll(a, "_", ""), 64)
	fb, errB := strconv.ParseFloat(strings.ReplaceAll(b, "_", ""), 64)
	return errA == nil && errB == nil && fa == fb
}

func isQuoted(s string) bool {
	return s != "" && (s[0] == '"' || s[0] == '`')
}

func (goProfile) Oracle(t *tree.Tree) Oracle {
	gf, ok := t.Data.(*goFile)
	if !ok {
		return noOracle{}
	}
	gf.once.Do(func() {
		gf.oracle = newGoOracle(t, gf.fset, gf.file)
	})
	return gf.oracle
}

// noOracle knows nothing; used for pattern trees and foreign trees.
type noOracle struct{}

func (noOracle) ExprType(*tree.Node) (Type, bool)          { return nil, false }
func (noOracle) FormalType(*tree.Node) (Type, bool)        { return nil, false }
func (noOracle) Declaration(*tree.Node) (*tree.Node, bool) { return nil, false }

// Syntax returns the go/ast file and file set a tree was parsed from by
// the Go profile.
func Syntax(t *tree.Tree) (*ast.File, *token.FileSet, bool) {
	if t == nil {
		return nil, nil, false
	}
	gf, ok := t.Data.(*goFile)
	if !ok {
		return nil, nil, false
	}
	return gf.file, gf.fset, true
}
