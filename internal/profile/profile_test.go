package profile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/ssr/internal/tree"
)

func TestParsePatternShapes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		src   string
		shape Shape
		root  tree.Kind
	}{
		{"f(x)", ShapeExpr, tree.KindCallExpr},
		{"a + b", ShapeExpr, tree.KindBinaryExpr},
		{"x = 1", ShapeStmts, tree.KindList},
		{"x := f(); return x", ShapeStmts, tree.KindList},
		{"func f() {}", ShapeDecls, tree.KindList},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			pt, shape, err := Go.ParsePattern(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.shape, shape)
			assert.Equal(t, tt.root, pt.Root.Kind)
			assert.Equal(t, tt.src, pt.Root.Text(), "offsets refer to the snippet")
		})
	}
}

func TestParsePatternErrors(t *testing.T) {
	t.Parallel()
	_, _, err := Go.ParsePattern("package p\n\nfunc f() {}")
	assert.True(t, errors.Is(err, ErrFileTemplate))

	_, _, err = Go.ParsePattern("f(")
	assert.Error(t, err)
}

func TestWords(t *testing.T) {
	t.Parallel()
	got := Go.Words(`if x := f("s"); x { return }`)
	assert.Equal(t, []string{"if", "x", "f", "x", "return"}, got)
}

func TestEqualLiterals(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a, b          string
		caseSensitive bool
		want          bool
	}{
		{`"a  b"`, `"a b"`, true, true},
		{`"A"`, `"a"`, false, true},
		{`"A"`, `"a"`, true, false},
		{"`x`", `"x"`, true, true},
		{"0x10", "16", true, true},
		{"1_000", "1000", true, true},
		{"1.0", "1", true, true},
		{"'a'", "'A'", false, false},
		{"1", `"1"`, true, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EqualLiterals(tt.a, tt.b, tt.caseSensitive), "%s vs %s", tt.a, tt.b)
	}
}

func TestEqual(t *testing.T) {
	t.Parallel()
	parse := func(src string) *tree.Node {
		pt, _, err := Go.ParsePattern(src)
		require.NoError(t, err)
		return pt.Root
	}
	a, b := parse("f(a, 1)"), parse("F(A, 0x1)")
	assert.True(t, Go.Equal(a, b, false))
	assert.False(t, Go.Equal(a, b, true))
	assert.True(t, Go.Equal(a, parse("f(a,1)"), true), "layout is ignored")
	assert.False(t, Go.Equal(a, parse("f(a, 2)"), false))
}

func TestParseTypePattern(t *testing.T) {
	t.Parallel()
	got, err := ParseTypePattern(`*io.Reader | +error | "*bytes.Buffer" | map[string]int`)
	require.NoError(t, err)
	assert.Equal(t, TypePattern{
		{Name: "io.Reader", Hierarchy: OrSubtype},
		{Name: "error", Hierarchy: SubtypeOnly},
		{Name: "*bytes.Buffer"},
		{Name: "map[string]int"},
	}, got)
	assert.Equal(t, `*io.Reader|+error|*bytes.Buffer|map[string]int`, got.String())

	for _, bad := range []string{"", "a|", "*", `"unterminated`} {
		_, err := ParseTypePattern(bad)
		assert.Error(t, err, bad)
	}
}

func TestDisjoint(t *testing.T) {
	t.Parallel()
	mustParse := func(s string) TypePattern {
		p, err := ParseTypePattern(s)
		require.NoError(t, err)
		return p
	}
	assert.True(t, Disjoint(mustParse("int"), mustParse("string"), true))
	assert.False(t, Disjoint(mustParse("Buffer"), mustParse("bytes.Buffer"), true))
	assert.False(t, Disjoint(mustParse("*int"), mustParse("string"), true))
	assert.False(t, Disjoint(mustParse("Int"), mustParse("int"), false))
}

func TestLookup(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"", "go", "GO", ".gno", "gno"} {
		p, err := Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, "go", p.Name())
	}
	_, err := Lookup("rust")
	assert.Error(t, err)

	assert.NotNil(t, ForFile("a.GNO"))
	assert.Nil(t, ForFile("a.txt"))
}

func TestSyntax(t *testing.T) {
	t.Parallel()
	tr, err := Go.Parse("a.go", []byte("package p\n\nvar x = 1\n"))
	require.NoError(t, err)
	f, fset, ok := Syntax(tr)
	require.True(t, ok)
	assert.Equal(t, "p", f.Name.Name)
	assert.NotNil(t, fset)

	pt, _, err := Go.ParsePattern("x")
	require.NoError(t, err)
	_, _, ok = Syntax(pt)
	assert.False(t, ok)
}
