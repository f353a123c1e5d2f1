// Package profile adapts a concrete language front-end to the generic tree
// model: parsing of sources and pattern snippets, slot rules, structural
// equality and type information.
package profile

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gnoswap-labs/ssr/internal/tree"
)

// Shape tells which grammar production a pattern snippet was parsed as.
type Shape int

const (
	ShapeExpr  Shape = iota // a single expression
	ShapeStmts              // a statement list
	ShapeDecls              // a declaration list
)

func (s Shape) String() string {
	switch s {
	case ShapeExpr:
		return "expression"
	case ShapeStmts:
		return "statements"
	case ShapeDecls:
		return "declarations"
	default:
		return "unknown"
	}
}

// Profile is the language specific half of the engine.
type Profile interface {
	// Name is the file type handled by the profile, e.g. "go".
	Name() string

	// Extensions lists the file extensions the profile accepts.
	Extensions() []string

	// Parse parses a complete source file.
	Parse(filename string, src []byte) (*tree.Tree, error)

	// ParsePattern parses a template snippet in which every placeholder
	// was already replaced with a plain identifier. The returned root is a
	// single expression, or a KindList of statements or declarations.
	ParsePattern(src string) (*tree.Tree, Shape, error)

	// Words returns the identifiers and keywords in src, in order.
	Words(src string) []string

	// Keywords lists the keywords a literal node always spells out.
	Keywords(n *tree.Node) []string

	// Ignorable reports whether an absent optional child at index i of a
	// pattern node of the given kind matches any candidate child.
	Ignorable(parent tree.Kind, index int) bool

	// Equal reports whether two subtrees are structurally identical.
	Equal(a, b *tree.Node, caseSensitive bool) bool

	// Oracle returns the type oracle for t. It never returns nil.
	Oracle(t *tree.Tree) Oracle
}

// Oracle answers type and declaration queries for nodes of one tree.
// Every method reports false when the answer is unknown.
type Oracle interface {
	// ExprType is the static type of an expression node.
	ExprType(n *tree.Node) (Type, bool)

	// FormalType is the type expected by the context the expression
	// appears in: parameter, assignment target, return result or field.
	FormalType(n *tree.Node) (Type, bool)

	// Declaration finds the node declaring the entity n refers to. An
	// identifier that declares something refers to nothing.
	Declaration(n *tree.Node) (*tree.Node, bool)
}

// Type is an opaque static type.
type Type interface {
	String() string

	// Matches reports whether the type satisfies one alternative of a
	// type pattern.
	Matches(alt TypeAlt, caseSensitive bool) bool
}

var profiles = map[string]Profile{}

// Register makes p available by name and by extension.
func Register(p Profile) {
	profiles[p.Name()] = p
	for _, ext := range p.Extensions() {
		profiles[ext] = p
	}
}

// Lookup returns the profile for a file type name ("go") or extension (".gno").
func Lookup(fileType string) (Profile, error) {
	key := strings.ToLower(fileType)
	if key == "" {
		key = "go"
	}
	if p, ok := profiles[key]; ok {
		return p, nil
	}
	if p, ok := profiles["."+key]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("unknown file type %q", fileType)
}

// ForFile returns the profile for a path, or nil if none handles it.
func ForFile(path string) Profile {
	return profiles[strings.ToLower(filepath.Ext(path))]
}

func init() {
	Register(Go)
}
