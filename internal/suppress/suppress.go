// Package suppress handles //ssr:ignore comments.
//
//	//ssr:ignore               silences every rule
//	//ssr:ignore rule1,rule2   silences the listed rules
//
// Placed above the package clause, a directive covers the whole file.
// After code on the same line it covers that statement. On a line of its
// own it covers the statement or declaration that starts on the next
// line, or only its own line when nothing starts there.
package suppress

import (
	"errors"
	"go/ast"
	"go/token"
	"strings"
)

const directive = "//ssr:ignore"

var errNotDirective = errors.New("not an ssr:ignore directive")

// Set holds the suppressed ranges of one file.
type Set struct {
	scopes []scope
}

type scope struct {
	rules      map[string]struct{}
	start, end int // lines, inclusive
}

// Parse collects the directives of f.
func Parse(f *ast.File, fset *token.FileSet) *Set {
	set := &Set{}
	if f == nil {
		return set
	}
	idx := index(f, fset)
	packageLine := fset.Position(f.Package).Line

	for _, cg := range f.Comments {
		for _, c := range cg.List {
			rules, err := parseDirective(c.Text)
			if err != nil {
				continue
			}
			line := fset.Position(c.Slash).Line
			sc := scope{rules: rules, start: line, end: line}

			switch {
			case line < packageLine:
				sc.start = 1
				sc.end = fset.Position(f.End()).Line
			case idx.inline(c.Slash, line):
				n := idx.first[line]
				sc.start = fset.Position(n.Pos()).Line
				sc.end = fset.Position(n.End()).Line
			default:
				if n, ok := idx.first[line+1]; ok {
					sc.end = fset.Position(n.End()).Line
				}
			}
			set.scopes = append(set.scopes, sc)
		}
	}
	return set
}

func parseDirective(text string) (map[string]struct{}, error) {
	rest, ok := strings.CutPrefix(text, directive)
	if !ok {
		return nil, errNotDirective
	}
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return nil, errNotDirective
	}
	rules := make(map[string]struct{})
	for _, name := range strings.Split(strings.TrimSpace(rest), ",") {
		if name = strings.TrimSpace(name); name != "" {
			rules[name] = struct{}{}
		}
	}
	return rules, nil
}

// Suppressed reports whether rule is silenced on line.
func (s *Set) Suppressed(line int, rule string) bool {
	if s == nil {
		return false
	}
	for _, sc := range s.scopes {
		if line < sc.start || line > sc.end {
			continue
		}
		if len(sc.rules) == 0 {
			return true
		}
		if _, ok := sc.rules[rule]; ok {
			return true
		}
	}
	return false
}

// Len returns the number of directives found.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.scopes)
}

// lineIndex maps each line to the first statement or declaration that
// starts on it.
type lineIndex struct {
	fset  *token.FileSet
	first map[int]ast.Node
}

func index(f *ast.File, fset *token.FileSet) *lineIndex {
	idx := &lineIndex{fset: fset, first: make(map[int]ast.Node)}
	ast.Inspect(f, func(n ast.Node) bool {
		switch n.(type) {
		case ast.Stmt, ast.Decl, *ast.ValueSpec, *ast.TypeSpec, *ast.Field:
			line := fset.Position(n.Pos()).Line
			if _, ok := idx.first[line]; !ok {
				idx.first[line] = n
			}
		case nil:
			return false
		}
		return true
	})
	return idx
}

// inline reports whether the comment at pos follows code on its line.
func (idx *lineIndex) inline(pos token.Pos, line int) bool {
	n, ok := idx.first[line]
	return ok && n.Pos() < pos
}
