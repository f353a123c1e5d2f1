package matcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/ssr/internal/pattern"
	"github.com/gnoswap-labs/ssr/internal/profile"
	"github.com/gnoswap-labs/ssr/internal/script"
	"github.com/gnoswap-labs/ssr/internal/tree"
	"github.com/gnoswap-labs/ssr/internal/types"
)

func parse(t *testing.T, src string) *tree.Tree {
	t.Helper()
	tr, err := profile.Go.Parse("test.go", []byte(src))
	require.NoError(t, err)
	return tr
}

func search(t *testing.T, opts pattern.MatchOptions, src string) []*Result {
	t.Helper()
	cp, err := pattern.Compile(opts, profile.Go)
	require.NoError(t, err)
	results, err := Search(context.Background(), cp, parse(t, src))
	require.NoError(t, err)
	return results
}

func texts(results []*Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Text()
	}
	return out
}

func nodeTexts(nodes []*tree.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Text()
	}
	return out
}

func TestMatchCounts(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		opts pattern.MatchOptions
		src  string
		want []string
	}{
		{
			name: "call without arguments",
			opts: pattern.MatchOptions{Pattern: "a.b()"},
			src:  "package p\nfunc f() { a.b(); a.b(1); x() }",
			want: []string{"a.b()"},
		},
		{
			name: "repeated name binds equal nodes",
			opts: pattern.MatchOptions{Pattern: "'_a = '_a;"},
			src:  "package p\nfunc f() { x = x; x = y }",
			want: []string{"x = x"},
		},
		{
			name: "statement variable",
			opts: pattern.MatchOptions{Pattern: "'_T;"},
			src:  "package p\nfunc f() {\n\ta()\n\tb()\n\tx := 1\n\treturn\n}",
			want: []string{"a()", "b()", "x := 1", "return"},
		},
		{
			name: "counted names",
			opts: pattern.MatchOptions{Pattern: "var '_a{3,4} int"},
			src:  "package p\nvar a, b, c, d int\nvar e, f, g int\nvar h, i int\n",
			want: []string{"var a, b, c, d int", "var e, f, g int"},
		},
		{
			name: "zero count",
			opts: pattern.MatchOptions{Pattern: "f('_a{0,0})"},
			src:  "package p\nvar x, y = f(), f(1)",
			want: []string{"f()"},
		},
		{
			name: "argument run",
			opts: pattern.MatchOptions{Pattern: "f('_a*, last)"},
			src:  "package p\nvar x, y, z = f(last), f(1, 2, last), f(last, 1)",
			want: []string{"f(last)", "f(1, 2, last)"},
		},
		{
			name: "case insensitive",
			opts: pattern.MatchOptions{Pattern: "Foo()"},
			src:  "package p\nfunc f() { foo(); Foo(); FOO(1) }",
			want: []string{"foo()", "Foo()"},
		},
		{
			name: "case sensitive",
			opts: pattern.MatchOptions{Pattern: "Foo()", CaseSensitive: true},
			src:  "package p\nfunc f() { foo(); Foo(); FOO(1) }",
			want: []string{"Foo()"},
		},
		{
			name: "string literals compare by value",
			opts: pattern.MatchOptions{Pattern: `print("a  b")`},
			src:  "package p\nfunc f() { print(`a b`); print(\"ab\") }",
			want: []string{"print(`a b`)"},
		},
		{
			name: "unordered imports",
			opts: pattern.MatchOptions{Pattern: "import (\n\"b\"\n\"a\"\n)"},
			src:  "package p\nimport (\n\t\"a\"\n\t\"b\"\n)\n",
			want: []string{"import (\n\t\"a\"\n\t\"b\"\n)"},
		},
		{
			name: "unordered case values",
			opts: pattern.MatchOptions{Pattern: "switch x { case 2, 1: '_s*; }"},
			src:  "package p\nfunc f() { switch x { case 1, 2: g() } }",
			want: []string{"switch x { case 1, 2: g() }"},
		},
		{
			name: "strict parentheses",
			opts: pattern.MatchOptions{Pattern: "f(x)"},
			src:  "package p\nvar a, b = f(x), f((x))",
			want: []string{"f(x)"},
		},
		{
			name: "loose parentheses",
			opts: pattern.MatchOptions{Pattern: "f(x)", Loose: true},
			src:  "package p\nvar a, b = f(x), f((x))",
			want: []string{"f(x)", "f((x))"},
		},
		{
			name: "loose blocks",
			opts: pattern.MatchOptions{Pattern: "func f() { a(); b(); }", Loose: true},
			src:  "package p\nfunc f() { a(); { b() } }",
			want: []string{"func f() { a(); { b() } }"},
		},
		{
			name: "strict blocks",
			opts: pattern.MatchOptions{Pattern: "func f() { a(); b(); }"},
			src:  "package p\nfunc f() { a(); { b() } }",
			want: []string{},
		},
		{
			name: "doc comment is optional",
			opts: pattern.MatchOptions{Pattern: "func '_f() {}"},
			src:  "package p\n// f is empty.\nfunc f() {}\nfunc g() int { return 0 }",
			want: []string{"func f() {}"},
		},
		{
			name: "parameter fields",
			opts: pattern.MatchOptions{Pattern: "func '_f('_p*) {}"},
			src:  "package p\nfunc a() {}\nfunc b(x int) {}\nfunc c() int { return 0 }",
			want: []string{"func a() {}", "func b(x int) {}"},
		},
		{
			name: "struct fields",
			opts: pattern.MatchOptions{Pattern: "type '_T struct {\n'_before*\nID int\n'_after*\n}"},
			src:  "package p\ntype A struct { ID int }\ntype B struct { Name string; ID int; Age int }\ntype C struct { Name string }",
			want: []string{"type A struct { ID int }", "type B struct { Name string; ID int; Age int }"},
		},
		{
			name: "declarations in function bodies",
			opts: pattern.MatchOptions{Pattern: "var '_v = '_e"},
			src:  "package p\nvar a = 1\nfunc f() { var b = 2 }",
			want: []string{"var a = 1", "var b = 2"},
		},
		{
			name: "regex constraint",
			opts: pattern.MatchOptions{Pattern: "'f:regex(Must.*)('_a*)"},
			src:  "package p\nvar a, b, c = MustParse(s), Parse(s), mustRun()",
			want: []string{"MustParse(s)", "mustRun()"},
		},
		{
			name: "negated regex",
			opts: pattern.MatchOptions{Pattern: "'f:!regex(Must.*)('_a*)", CaseSensitive: true},
			src:  "package p\nvar a, b, c = MustParse(s), Parse(s), mustRun()",
			want: []string{"Parse(s)", "mustRun()"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := search(t, tt.opts, tt.src)
			assert.Equal(t, tt.want, texts(got))
		})
	}
}

func TestLooseKeepsBindings(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		pattern string
		src     string
		want    []string // capture text of T per match, loose mode
	}{
		{
			name:    "run ending in a block",
			pattern: "func g() { 'T*; }",
			src:     "package p\nfunc g() { a(); { b() } }",
			want:    []string{"a(); { b() }"},
		},
		{
			name:    "literal opens a block",
			pattern: "func g() { a(); 'T* }",
			src:     "package p\nfunc g() { { a() }; b(); c() }",
			want:    []string{"b(); c()"},
		},
		{
			name:    "run may not leave a block",
			pattern: "func g() { a(); 'T* }",
			src:     "package p\nfunc g() { { a(); b() }; c() }",
			want:    []string{},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			loose := search(t, pattern.MatchOptions{Pattern: tt.pattern, Loose: true}, tt.src)
			got := make([]string, len(loose))
			for i, r := range loose {
				got[i] = r.CaptureText("T")
			}
			assert.Equal(t, tt.want, got)

			strict := search(t, pattern.MatchOptions{Pattern: tt.pattern}, tt.src)
			for i, r := range strict {
				require.Less(t, i, len(loose))
				assert.Equal(t, r.CaptureText("T"), loose[i].CaptureText("T"), "loose mode changed a binding")
			}
		})
	}
}

func TestGreedyAndLazyBlocks(t *testing.T) {
	t.Parallel()
	src := "package p\nfunc f() { a(); b(); c() }"

	greedy := search(t, pattern.MatchOptions{Pattern: "{ '_T*; '_T2*; }"}, src)
	require.Len(t, greedy, 1)
	tNodes, _ := greedy[0].Binding("_T")
	t2Nodes, ok := greedy[0].Binding("_T2")
	assert.True(t, ok)
	assert.Equal(t, []string{"a()", "b()", "c()"}, nodeTexts(tNodes))
	assert.Empty(t, t2Nodes)

	lazy := search(t, pattern.MatchOptions{Pattern: "{ '_T+?; '_T2*?; }"}, src)
	require.Len(t, lazy, 1)
	tNodes, _ = lazy[0].Binding("_T")
	t2Nodes, _ = lazy[0].Binding("_T2")
	assert.Equal(t, []string{"a()"}, nodeTexts(tNodes))
	assert.Equal(t, []string{"b()", "c()"}, nodeTexts(t2Nodes))
}

func TestCaptures(t *testing.T) {
	t.Parallel()
	results := search(t, pattern.MatchOptions{Pattern: "'_a = 'b;"}, "package p\nfunc f() { x = y + 1 }")
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, []string{"b"}, r.Names())
	assert.Equal(t, "y + 1", r.CaptureText("b"))
	assert.Equal(t, "x", r.CaptureText("_a"))
	_, reported := r.Captures["_a"]
	assert.False(t, reported)
	assert.Equal(t, tree.KindAssignStmt, r.Anchor.Kind)
}

func TestSequenceRuns(t *testing.T) {
	t.Parallel()
	src := "package p\nfunc f() {\n\ta()\n\tb()\n\ta()\n\tc()\n\ta()\n}"
	results := search(t, pattern.MatchOptions{Pattern: "a()\n'x;"}, src)
	require.Len(t, results, 2)
	assert.Equal(t, "a()\n\tb()", results[0].Text())
	assert.Equal(t, "a()\n\tc()", results[1].Text())
	assert.Len(t, results[0].Nodes, 2)
	assert.Equal(t, "c()", results[1].CaptureText("x"))
}

func TestDeclarationSequence(t *testing.T) {
	t.Parallel()
	src := "package p\nvar a int\nvar b int\nfunc f() {\n\tvar a int\n\tvar b int\n}"
	results := search(t, pattern.MatchOptions{Pattern: "var a int\nvar b int"}, src)
	assert.Len(t, results, 2)
}

const typedSrc = `package p

type Reader interface{ Read() }

type File struct{}

func (File) Read() {}

type Logged struct{ File }

func use(r Reader) {}

func main() {
	var f File
	var l Logged
	var n int
	use(f)
	use(l)
	println(n, f, l, missing)
}
`

func TestTypeConstraints(t *testing.T) {
	t.Parallel()
	tests := []struct {
		pattern string
		want    []string
	}{
		{"println('_a*?, 'x:exprtype(File), '_b*)", []string{"f"}},
		{"println('_a*?, 'x:exprtype(*File), '_b*)", []string{"f"}},
		{"println('_a*?, 'x:exprtype(+File), '_b*)", []string{"l"}},
		{"println('_a*?, 'x:exprtype(*Reader), '_b*)", []string{"f"}},
		{"println('_a*?, 'x:exprtype(+Reader), '_b*)", []string{"f"}},
		{"println('_a*?, 'x:exprtype(Logged|int), '_b*)", []string{"n"}},
		{"println('_a*?, 'x:!exprtype(int), '_b*)", []string{"f"}},
		{"println('_a*?, 'x:exprtype(string), '_b*)", nil},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.pattern, func(t *testing.T) {
			t.Parallel()
			var got []string
			for _, r := range search(t, pattern.MatchOptions{Pattern: tt.pattern}, typedSrc) {
				got = append(got, r.CaptureText("x"))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormalTypeConstraint(t *testing.T) {
	t.Parallel()
	results := search(t, pattern.MatchOptions{Pattern: "use('x:formal(Reader))"}, typedSrc)
	assert.Equal(t, []string{"use(f)", "use(l)"}, texts(results))

	results = search(t, pattern.MatchOptions{Pattern: "use('x:formal(File))"}, typedSrc)
	assert.Empty(t, results)
}

func TestUnresolvedTypeFailsClosed(t *testing.T) {
	t.Parallel()
	for _, p := range []string{"println('_a*, 'x:exprtype(int), '_b*)", "println('_a*, 'x:!exprtype(int), '_b*)"} {
		results := search(t, pattern.MatchOptions{Pattern: p}, "package p\nfunc f() { println(missing) }")
		assert.Empty(t, results, p)
	}
}

func TestReferenceConstraint(t *testing.T) {
	t.Parallel()
	src := "package p\nfunc f() {\n\tvar n int\n\tm := 2\n\tprintln(n, m)\n}"
	results := search(t, pattern.MatchOptions{Pattern: "'x:ref(var '_v int)"}, src)
	require.Len(t, results, 1, "the declaring identifier is not a reference")
	assert.Equal(t, "n", results[0].Text())
	assert.Equal(t, "println(n, m)", results[0].Anchor.Parent.Parent.Text())

	results = search(t, pattern.MatchOptions{Pattern: "'x:ref(var '_v = 1)"}, "package p\nvar a = 1\nvar _ = a\n")
	require.Len(t, results, 1)
	assert.Equal(t, len("package p\nvar a = 1\nvar _ = "), results[0].Start)
}

func TestWithinAndContains(t *testing.T) {
	t.Parallel()
	src := "package p\nfunc a() { x := 1; _ = x }\nfunc b() { y := 2; _ = y }\n"
	results := search(t, pattern.MatchOptions{Pattern: "'v:within(func a() { '_s*; }) := '_e"}, src)
	require.Len(t, results, 1)
	assert.Equal(t, "x", results[0].CaptureText("v"))

	src = "package p\nfunc f(a int) int {\n\tif a > 0 { return a }\n\tif a < 0 { println(a) }\n\treturn 0\n}"
	results = search(t, pattern.MatchOptions{
		Pattern:   "if '_c { '_body*; }",
		Variables: []pattern.VariableSpec{{Name: pattern.ContextVar, Constraint: "contains(return '_r)"}},
	}, src)
	require.Len(t, results, 1)
	assert.Equal(t, "if a > 0 { return a }", results[0].Text())

	results = search(t, pattern.MatchOptions{
		Pattern:   "if '_c { '_body*; }",
		Variables: []pattern.VariableSpec{{Name: pattern.ContextVar, Constraint: "!contains(return '_r)"}},
	}, src)
	require.Len(t, results, 1)
	assert.Equal(t, "if a < 0 { println(a) }", results[0].Text())
}

func TestScriptConstraints(t *testing.T) {
	t.Parallel()
	src := "package p\nvar a, b, c = f(1), f(1, 2), f(1, 2, 3)"
	results := search(t, pattern.MatchOptions{
		Pattern: "f('args*)",
		Variables: []pattern.VariableSpec{
			{Name: "args", Constraint: "script(len(args) >= 2 && text(first(args)) == \"1\")"},
		},
	}, src)
	assert.Equal(t, []string{"f(1, 2)", "f(1, 2, 3)"}, texts(results))

	results = search(t, pattern.MatchOptions{
		Pattern:   "f('args*)",
		Variables: []pattern.VariableSpec{{Name: pattern.ContextVar, Constraint: `script(contains(__context__, "3"))`}},
	}, src)
	assert.Equal(t, []string{"f(1, 2, 3)"}, texts(results))
}

func TestResultEnv(t *testing.T) {
	t.Parallel()
	tr := parse(t, "package p\nfunc f(any) {}\nvar n int\nvar s string\nvar a, b = f(n), f(s)")
	prog, err := script.Compile("typeOf(x)", []string{"x"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		pattern    string
		usedOracle bool
	}{
		{"oracle kept from the search", "f('x:exprtype(int|string))", true},
		{"oracle taken from the tree", "f('x)", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cp, err := pattern.Compile(pattern.MatchOptions{Pattern: tt.pattern}, profile.Go)
			require.NoError(t, err)
			results, err := Search(context.Background(), cp, tr)
			require.NoError(t, err)
			require.Len(t, results, 2)

			assert.Equal(t, tt.usedOracle, results[0].oracle != nil)
			assert.Same(t, results[0].types(), results[1].types(), "one oracle per tree")

			for i, want := range []string{"int", "string"} {
				v, err := prog.Eval(results[i].Env())
				require.NoError(t, err)
				assert.Equal(t, script.StringValue{Val: want}, v)
			}
		})
	}
}

func TestScriptFaultAbortsSearch(t *testing.T) {
	t.Parallel()
	cp, err := pattern.Compile(pattern.MatchOptions{Pattern: "f('x:script(1 / 0 == 1))"}, profile.Go)
	require.NoError(t, err)

	tr := parse(t, "package p\nvar a = f(1)")
	_, err = Search(context.Background(), cp, tr)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrEvaluatorFault))

	var sse *types.StructuralSearchError
	require.True(t, errors.As(err, &sse))
	assert.Contains(t, sse.Error(), "division by zero")

	// The compiled pattern stays usable.
	ok, err := pattern.Compile(pattern.MatchOptions{Pattern: "f('x)"}, profile.Go)
	require.NoError(t, err)
	results, err := Search(context.Background(), ok, tr)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchCancelled(t *testing.T) {
	t.Parallel()
	cp, err := pattern.Compile(pattern.MatchOptions{Pattern: "'_x"}, profile.Go)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Search(ctx, cp, parse(t, "package p\nvar a = 1"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSingleNodeMode(t *testing.T) {
	t.Parallel()
	cp, err := pattern.Compile(pattern.MatchOptions{Pattern: "'_x + 1", Mode: pattern.SingleNode}, profile.Go)
	require.NoError(t, err)

	tr := parse(t, "package p\nvar a = b + 1")
	var sum *tree.Node
	tr.Root.Walk(func(n *tree.Node) bool {
		if n.Kind == tree.KindBinaryExpr {
			sum = n
		}
		return true
	})
	require.NotNil(t, sum)

	results, err := Match(context.Background(), cp, tr.Root)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = Match(context.Background(), cp, sum)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b + 1", results[0].Text())
}

func TestCaseToggleIgnoresNonLetterDifferences(t *testing.T) {
	t.Parallel()
	src := "package p\nvar a, b, c = get1(), get2(), GET1()"
	for _, cs := range []bool{true, false} {
		results := search(t, pattern.MatchOptions{Pattern: "get2()", CaseSensitive: cs}, src)
		assert.Len(t, results, 1)
	}
	assert.Len(t, search(t, pattern.MatchOptions{Pattern: "get1()"}, src), 2)
	assert.Len(t, search(t, pattern.MatchOptions{Pattern: "get1()", CaseSensitive: true}, src), 1)
}

func TestNilTree(t *testing.T) {
	t.Parallel()
	cp, err := pattern.Compile(pattern.MatchOptions{Pattern: "x"}, profile.Go)
	require.NoError(t, err)
	_, err = Search(context.Background(), cp, nil)
	assert.ErrorIs(t, err, ErrNilTree)
}
