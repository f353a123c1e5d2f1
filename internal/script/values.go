package script

import (
	"fmt"
	"strings"

	"github.com/gnoswap-labs/ssr/internal/tree"
)

// Value is the result of evaluating a script expression.
type Value interface {
	isValue()
	String() string
	Equal(other Value) bool
}

// IntValue represents an integer.
type IntValue struct {
	Val int64
}

func (IntValue) isValue() {}
func (v IntValue) String() string {
	return fmt.Sprintf("%d", v.Val)
}

func (v IntValue) Equal(other Value) bool {
	if o, ok := other.(IntValue); ok {
		return v.Val == o.Val
	}
	return false
}

// BoolValue represents a boolean.
type BoolValue struct {
	Val bool
}

func (BoolValue) isValue() {}
func (v BoolValue) String() string {
	return fmt.Sprintf("%t", v.Val)
}

func (v BoolValue) Equal(other Value) bool {
	if o, ok := other.(BoolValue); ok {
		return v.Val == o.Val
	}
	return false
}

// StringValue represents a string.
type StringValue struct {
	Val string
}

func (StringValue) isValue() {}
func (v StringValue) String() string {
	return v.Val
}

func (v StringValue) Equal(other Value) bool {
	switch o := other.(type) {
	case StringValue:
		return v.Val == o.Val
	case NodeValue:
		return v.Val == o.Node.Text()
	}
	return false
}

// NilValue marks a variable that did not take part in the match.
type NilValue struct{}

func (NilValue) isValue() {}
func (NilValue) String() string {
	return "nil"
}

func (NilValue) Equal(other Value) bool {
	_, ok := other.(NilValue)
	return ok
}

// NodeValue wraps a single bound node. It compares and concatenates as
// its source text.
type NodeValue struct {
	Node *tree.Node
}

func (NodeValue) isValue() {}
func (v NodeValue) String() string {
	return v.Node.Text()
}

func (v NodeValue) Equal(other Value) bool {
	switch o := other.(type) {
	case NodeValue:
		return v.Node == o.Node || v.Node.Text() == o.Node.Text()
	case StringValue:
		return v.Node.Text() == o.Val
	}
	return false
}

// ListValue holds the nodes bound to a repeating variable, in order.
type ListValue struct {
	Nodes []*tree.Node
}

func (ListValue) isValue() {}
func (v ListValue) String() string {
	return tree.Text(v.Nodes)
}

func (v ListValue) Equal(other Value) bool {
	o, ok := other.(ListValue)
	if !ok || len(o.Nodes) != len(v.Nodes) {
		return false
	}
	for i := range v.Nodes {
		if v.Nodes[i].Text() != o.Nodes[i].Text() {
			return false
		}
	}
	return true
}

// Truthy reports how a script result is read as a predicate: false and
// nil are false, everything else is true.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case BoolValue:
		return v.Val
	case NilValue, nil:
		return false
	default:
		return true
	}
}

// Env binds names to values for one evaluation.
type Env struct {
	vars map[string]Value

	// TypeOf resolves the static type of a node for the typeOf builtin.
	TypeOf func(*tree.Node) (string, bool)
}

// NewEnv creates an empty environment.
func NewEnv() *Env {
	return &Env{vars: make(map[string]Value)}
}

// Set binds name to v.
func (e *Env) Set(name string, v Value) {
	e.vars[name] = v
}

// Get returns the value bound to name, NilValue when unbound.
func (e *Env) Get(name string) Value {
	if v, ok := e.vars[name]; ok {
		return v
	}
	return NilValue{}
}

func typeName(v Value) string {
	switch v.(type) {
	case IntValue:
		return "int"
	case BoolValue:
		return "bool"
	case StringValue:
		return "string"
	case NilValue:
		return "nil"
	case NodeValue:
		return "node"
	case ListValue:
		return "list"
	default:
		return strings.TrimPrefix(fmt.Sprintf("%T", v), "script.")
	}
}
