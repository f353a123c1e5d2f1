// Package pattern compiles structural search templates into immutable
// CompiledPatterns consumed by the matcher and the replacer.
package pattern

import (
	"regexp"
	"strings"

	"github.com/gnoswap-labs/ssr/internal/pattern/query"
	"github.com/gnoswap-labs/ssr/internal/profile"
	"github.com/gnoswap-labs/ssr/internal/script"
	"github.com/gnoswap-labs/ssr/internal/tree"
)

// ContextVar is the reserved variable name whose constraints apply to the
// complete match.
const ContextVar = "__context__"

// DontCare is the variable name that matches anything and is never
// checked for consistency.
const DontCare = "_"

// SearchMode selects which candidate roots are tried.
type SearchMode int

const (
	WholeTree  SearchMode = iota // every node of the tree
	SingleNode                   // only the node handed to the matcher
)

func (m SearchMode) String() string {
	if m == SingleNode {
		return "single"
	}
	return "tree"
}

// ParseSearchMode maps "tree"/"single" (and "" to tree).
func ParseSearchMode(s string) SearchMode {
	if strings.EqualFold(s, "single") || strings.EqualFold(s, "node") {
		return SingleNode
	}
	return WholeTree
}

// VariableSpec is one row of the constraint table supplied next to the
// template.
type VariableSpec struct {
	Name       string `yaml:"name" json:"name"`
	Count      string `yaml:"count,omitempty" json:"count,omitempty"`
	Constraint string `yaml:"constraint,omitempty" json:"constraint,omitempty"`
}

// ReplacementVariable is a variable computed by a script for each match
// and usable in the replacement template.
type ReplacementVariable struct {
	Name   string `yaml:"name" json:"name"`
	Script string `yaml:"script" json:"script"`
}

// MatchOptions is a complete query.
type MatchOptions struct {
	Pattern       string
	Replacement   string
	FileType      string
	CaseSensitive bool
	Mode          SearchMode
	Loose         bool
	Reformat      bool

	Variables            []VariableSpec
	ReplacementVariables []ReplacementVariable
}

// RootShape describes what the top of a compiled pattern matches.
type RootShape int

const (
	RootExpr      RootShape = iota // a single expression (or a variable)
	RootStmt                       // a single statement
	RootDecl                       // a single declaration
	RootStmtVar                    // a variable standing for one statement
	RootSequence                   // a run of siblings inside a list
)

func (s RootShape) String() string {
	switch s {
	case RootExpr:
		return "expression"
	case RootStmt:
		return "statement"
	case RootDecl:
		return "declaration"
	case RootStmtVar:
		return "statement variable"
	case RootSequence:
		return "sequence"
	default:
		return "unknown"
	}
}

// Slot describes the syntactic position a variable occurrence stands in.
type Slot struct {
	Class  tree.Class
	InList bool   // element of a sibling list, may repeat
	List   string // list category when InList
	Parent tree.Kind
	Root   bool
}

// Node is a node of the compiled pattern tree: a literal node, or a
// capture node when Var is set.
type Node struct {
	Kind      tree.Kind
	Token     string
	Unordered bool
	Children  []*Node

	Var  *Variable
	Slot Slot // for capture nodes

	Source *tree.Node // node of the parsed template
}

// IsVar reports whether n is a capture node.
func (n *Node) IsVar() bool { return n != nil && n.Var != nil }

// Variable is a named capture variable.
type Variable struct {
	Name      string
	Index     int // position in CompiledPattern.Vars
	Min, Max  int // Max == query.Unbounded for no upper bound
	Greedy    bool
	Anonymous bool
	DontCare  bool

	// Constraints are sorted by evaluation priority.
	Constraints []*Constraint

	// Occurrences lists every capture node of the variable.
	Occurrences []*Node
}

// Repeats reports whether the variable may bind more than one node.
func (v *Variable) Repeats() bool { return v.Max == query.Unbounded || v.Max > 1 }

// Covers reports whether n bound nodes are within the variable's range.
func (v *Variable) Covers(n int) bool {
	return n >= v.Min && (v.Max == query.Unbounded || n <= v.Max)
}

// ConstraintKind tags a Constraint. The order is the evaluation priority.
type ConstraintKind int

const (
	TextRegex ConstraintKind = iota
	ExprType
	FormalType
	Reference
	Within
	Contains
	Script
)

func (k ConstraintKind) String() string {
	switch k {
	case TextRegex:
		return "regex"
	case ExprType:
		return "exprtype"
	case FormalType:
		return "formal"
	case Reference:
		return "ref"
	case Within:
		return "within"
	case Contains:
		return "contains"
	case Script:
		return "script"
	default:
		return "unknown"
	}
}

func (k ConstraintKind) priority() int {
	switch k {
	case TextRegex:
		return 0
	case ExprType, FormalType:
		return 1
	case Reference:
		return 2
	case Within, Contains:
		return 3
	default:
		return 4
	}
}

// Constraint is a side condition on a variable.
type Constraint struct {
	Kind    ConstraintKind
	Negated bool
	Source  string

	Regex     *regexp.Regexp      // TextRegex
	WholeWord bool                // TextRegex
	Types     profile.TypePattern // ExprType, FormalType
	Sub       *CompiledPattern    // Reference, Within, Contains
	Program   *script.Program     // Script
}

// SearchPlan lists words every match must contain. It is only ever used
// to skip sources early.
type SearchPlan struct {
	Words         []string
	CaseSensitive bool
}

// Admits reports whether a source whose words are given may hold a match.
func (p SearchPlan) Admits(words []string) bool {
	if len(p.Words) == 0 {
		return true
	}
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		if !p.CaseSensitive {
			w = strings.ToLower(w)
		}
		seen[w] = struct{}{}
	}
	for _, w := range p.Words {
		if _, ok := seen[w]; !ok {
			return false
		}
	}
	return true
}

// CompiledPattern is the immutable result of Compile.
type CompiledPattern struct {
	Text    string
	Profile profile.Profile

	Shape RootShape
	Root  *Node   // single-node shapes
	Seq   []*Node // RootSequence elements
	// SeqList is the list category a sequence runs in; empty for any.
	SeqList string

	Vars    []*Variable
	byName  map[string]*Variable
	Context []*Constraint

	CaseSensitive bool
	Loose         bool
	Mode          SearchMode

	Plan SearchPlan
}

// Var returns the named variable.
func (cp *CompiledPattern) Var(name string) (*Variable, bool) {
	v, ok := cp.byName[name]
	return v, ok
}

// Names returns the names of all named variables in order of appearance.
func (cp *CompiledPattern) Names() []string {
	names := make([]string, 0, len(cp.Vars))
	for _, v := range cp.Vars {
		if !v.DontCare {
			names = append(names, v.Name)
		}
	}
	return names
}
