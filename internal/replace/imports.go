package replace

import (
	"bytes"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"strconv"

	"golang.org/x/tools/go/ast/astutil"
)

// FixImports adds the imports a replacement needs to after, and removes
// the imports that before used and after no longer does. Sources that do
// not parse as files are returned unchanged.
func FixImports(before, after []byte, required []string) ([]byte, error) {
	orig, err := parser.ParseFile(token.NewFileSet(), "", before, parser.ParseComments)
	if err != nil {
		return after, nil
	}
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", after, parser.ParseComments)
	if err != nil {
		return after, nil
	}

	modified := false
	for _, path := range required {
		if importSpec(file, path) == nil {
			astutil.AddImport(fset, file, path)
			modified = true
		}
	}
	for _, imp := range orig.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil || !astutil.UsesImport(orig, path) {
			continue
		}
		spec := importSpec(file, path)
		if spec == nil || astutil.UsesImport(file, path) {
			continue
		}
		name := ""
		if spec.Name != nil {
			name = spec.Name.Name
		}
		if astutil.DeleteNamedImport(fset, file, name, path) {
			modified = true
		}
	}
	if !modified {
		return after, nil
	}

	var buf bytes.Buffer
	if err := format.Node(&buf, fset, file); err != nil {
		return after, err
	}
	return buf.Bytes(), nil
}

func importSpec(f *ast.File, path string) *ast.ImportSpec {
	for _, imp := range f.Imports {
		if p, err := strconv.Unquote(imp.Path.Value); err == nil && p == path {
			return imp
		}
	}
	return nil
}
