package script

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/ssr/internal/tree"
)

// identNodes builds a tree of identifiers x, y, z over the text "x, y, z".
func identNodes(t *testing.T) []*tree.Node {
	t.Helper()
	src := "x, y, z"
	fset := token.NewFileSet()
	x, err := parser.ParseExprFrom(fset, "", "[]int{"+src+"}", 0)
	require.NoError(t, err)

	lit := x.(*ast.CompositeLit)
	file := fset.File(lit.Pos())
	base := len("[]int{")
	var nodes []*tree.Node
	for _, e := range lit.Elts {
		id := e.(*ast.Ident)
		nodes = append(nodes, &tree.Node{
			Kind:   tree.KindIdent,
			Token:  id.Name,
			Start:  file.Offset(id.Pos()) - base,
			End:    file.Offset(id.End()) - base,
			Origin: id,
		})
	}
	list := &tree.Node{Kind: tree.KindList, Token: tree.ListExprs, Children: nodes}
	tree.New("", []byte(src), list)
	return nodes
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown identifier", "a == b", "undefined: b"},
		{"unknown function", "foo(a)", "undefined function: foo"},
		{"arity", "contains(a)", "contains expects 2 argument(s), got 1"},
		{"syntax", "a ==", "parse"},
		{"selector", "a.b", "unsupported expression"},
		{"float literal", "1.5 > a", "unsupported literal"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Compile(tt.src, []string{"a"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCompileRefs(t *testing.T) {
	t.Parallel()
	p, err := Compile(`len(b) > 1 && text(a) != ""`, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, p.Refs)
}

func TestEval(t *testing.T) {
	t.Parallel()
	nodes := identNodes(t)

	env := NewEnv()
	env.Set("one", NodeValue{Node: nodes[0]})
	env.Set("all", ListValue{Nodes: nodes})
	env.Set("none", NilValue{})
	env.TypeOf = func(n *tree.Node) (string, bool) {
		if n.Token == "x" {
			return "int", true
		}
		return "", false
	}
	names := []string{"one", "all", "none", "unset"}

	tests := []struct {
		src  string
		want Value
	}{
		{`1 + 2 * 3`, IntValue{Val: 7}},
		{`-(4 - 6)`, IntValue{Val: 2}},
		{`7 % 4`, IntValue{Val: 3}},
		{`"a" + "b"`, StringValue{Val: "ab"}},
		{`one == "x"`, BoolValue{Val: true}},
		{`text(one) + "!"`, StringValue{Val: "x!"}},
		{`all`, ListValue{Nodes: nodes}},
		{`text(all)`, StringValue{Val: "x, y, z"}},
		{`len(all)`, IntValue{Val: 3}},
		{`len(one)`, IntValue{Val: 1}},
		{`len(none)`, IntValue{Val: 0}},
		{`len("abcd")`, IntValue{Val: 4}},
		{`text(first(all))`, StringValue{Val: "x"}},
		{`text(last(all))`, StringValue{Val: "z"}},
		{`kind(one)`, StringValue{Val: "Ident"}},
		{`kind(all)`, StringValue{Val: "List"}},
		{`typeOf(one)`, StringValue{Val: "int"}},
		{`typeOf(last(all))`, NilValue{}},
		{`isNil(none)`, BoolValue{Val: true}},
		{`isNil(unset)`, BoolValue{Val: true}},
		{`isNil(one)`, BoolValue{Val: false}},
		{`upper(one)`, StringValue{Val: "X"}},
		{`lower("AbC")`, StringValue{Val: "abc"}},
		{`contains(all, "y, z")`, BoolValue{Val: true}},
		{`hasPrefix(all, "y")`, BoolValue{Val: false}},
		{`hasSuffix(all, "z")`, BoolValue{Val: true}},
		{`matches(one, "^[a-z]$")`, BoolValue{Val: true}},
		{`"b" > "a" && !(1 >= 2)`, BoolValue{Val: true}},
		{`false || none`, BoolValue{Val: false}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			p, err := Compile(tt.src, names)
			require.NoError(t, err)
			got, err := p.Eval(env)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestEvalShortCircuit(t *testing.T) {
	t.Parallel()
	p, err := Compile(`false && 1 / 0 == 1`, nil)
	require.NoError(t, err)
	ok, err := p.Test(NewEnv())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalFaults(t *testing.T) {
	t.Parallel()
	tests := []struct {
		src  string
		want string
	}{
		{`1 / 0`, "division by zero"},
		{`1 % 0`, "division by zero"},
		{`1 + "a"`, "mismatched operands int + string"},
		{`-"a"`, "cannot negate string"},
		{`true < false`, "invalid operation bool < bool"},
		{`matches("a", "(")`, "matches:"},
		{`upper(1)`, "upper: expected text, got int"},
		{`first(1)`, "first/last: expected a list, got int"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			p, err := Compile(tt.src, nil)
			require.NoError(t, err)
			_, err = p.Test(NewEnv())
			require.Error(t, err)

			var f *Fault
			require.True(t, errors.As(err, &f))
			assert.Equal(t, tt.src, f.Script)
			assert.Contains(t, f.Msg, tt.want)
		})
	}
}

func TestTruthy(t *testing.T) {
	t.Parallel()
	assert.True(t, Truthy(IntValue{Val: 0}))
	assert.True(t, Truthy(StringValue{}))
	assert.True(t, Truthy(ListValue{}))
	assert.True(t, Truthy(BoolValue{Val: true}))
	assert.False(t, Truthy(BoolValue{Val: false}))
	assert.False(t, Truthy(NilValue{}))
	assert.False(t, Truthy(nil))
}
