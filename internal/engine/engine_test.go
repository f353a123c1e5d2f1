package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/ssr/internal/cache"
	"github.com/gnoswap-labs/ssr/internal/config"
	"github.com/gnoswap-labs/ssr/internal/types"
)

var testRules = []config.Rule{
	{
		Name:        "sprintf-error",
		Pattern:     "errors.New(fmt.Sprintf('args+))",
		Replacement: "fmt.Errorf($args$)",
		Message:     "use fmt.Errorf",
		Severity:    "error",
	},
	{
		Name:    "self-assign",
		Pattern: "'_a = '_a",
	},
}

const sampleSrc = `package p

import (
	"errors"
	"fmt"
)

func f(name string) error {
	x := 1
	x = x
	return errors.New(fmt.Sprintf("bad %s", name))
}

func g() error {
	//ssr:ignore sprintf-error
	return errors.New(fmt.Sprintf("skip"))
}
`

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(testRules, opts...)
	require.NoError(t, err)
	return e
}

func TestNewRejectsBadRules(t *testing.T) {
	t.Parallel()
	_, err := New([]config.Rule{{Name: "broken", Pattern: "f('x*, 'x+)"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrMalformedPattern))
	assert.Contains(t, err.Error(), `rule "broken"`)

	_, err = New([]config.Rule{{Name: "bad-repl", Pattern: "f('x)", Replacement: "g($y$)"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replacement")
}

func TestRunSource(t *testing.T) {
	t.Parallel()
	e := newEngine(t)
	res, err := e.RunSource(context.Background(), "a.go", []byte(sampleSrc))
	require.NoError(t, err)
	require.Len(t, res.Issues, 2)

	selfAssign := res.Issues[0]
	assert.Equal(t, "self-assign", selfAssign.Rule)
	assert.Equal(t, "x = x", selfAssign.Matched)
	assert.Equal(t, 10, selfAssign.Start.Line)
	assert.Equal(t, 2, selfAssign.Start.Column)
	assert.Equal(t, types.SeverityWarning, selfAssign.Severity)
	assert.Empty(t, selfAssign.Captures, "anonymous variables are not reported")

	sprintf := res.Issues[1]
	assert.Equal(t, "sprintf-error", sprintf.Rule)
	assert.Equal(t, types.SeverityError, sprintf.Severity)
	assert.Equal(t, `fmt.Errorf("bad %s", name)`, sprintf.Suggestion)
	assert.Equal(t, map[string]string{"args": `"bad %s", name`}, sprintf.Captures)
	assert.Equal(t, 11, sprintf.Start.Line)
}

func TestIgnoreRule(t *testing.T) {
	t.Parallel()
	e := newEngine(t)
	e.IgnoreRule("self-assign")
	res, err := e.RunSource(context.Background(), "a.go", []byte(sampleSrc))
	require.NoError(t, err)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "sprintf-error", res.Issues[0].Rule)
}

func TestRunSourceParseError(t *testing.T) {
	t.Parallel()
	e := newEngine(t)
	_, err := e.RunSource(context.Background(), "bad.go", []byte("package p\nfunc {"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.go")
}

func TestFix(t *testing.T) {
	t.Parallel()
	e := newEngine(t)
	res, err := e.Fix(context.Background(), "a.go", []byte(sampleSrc))
	require.NoError(t, err)
	require.True(t, res.Changed())

	fixed := string(res.Fixed)
	assert.Contains(t, fixed, `return fmt.Errorf("bad %s", name)`)
	assert.Contains(t, fixed, `return errors.New(fmt.Sprintf("skip"))`, "suppressed matches stay")
	assert.Len(t, res.Edits, 1)
}

func TestFixWithoutMatches(t *testing.T) {
	t.Parallel()
	e := newEngine(t)
	res, err := e.Fix(context.Background(), "a.go", []byte("package p\n\nvar v = 1\n"))
	require.NoError(t, err)
	assert.False(t, res.Changed())
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestFiles(t *testing.T) {
	t.Parallel()
	root := writeTree(t, map[string]string{
		"a.go":             "package p",
		"b.gno":            "package p",
		"notes.txt":        "x",
		"vendor/v/v.go":    "package v",
		"sub/c.go":         "package sub",
		"sub/c_gen.go":     "package sub",
		"testdata/skip.go": "package skip",
	})
	e := newEngine(t, WithExcludes("**/vendor/**", "**/testdata/**", "*_gen.go"))

	files, err := e.Files([]string{root})
	require.NoError(t, err)
	rel := make([]string, len(files))
	for i, f := range files {
		r, err := filepath.Rel(root, f)
		require.NoError(t, err)
		rel[i] = filepath.ToSlash(r)
	}
	assert.Equal(t, []string{"a.go", "b.gno", "sub/c.go"}, rel)

	_, err = e.Files([]string{filepath.Join(root, "missing")})
	assert.Error(t, err)
}

func TestProcessPaths(t *testing.T) {
	t.Parallel()
	root := writeTree(t, map[string]string{
		"a.go":      sampleSrc,
		"b.go":      "package p\n\nvar v = 1\n",
		"broken.go": "package p\nfunc {",
	})
	e := newEngine(t, WithLogger(zap.NewNop()))

	results, summary, err := e.ProcessPaths(context.Background(), []string{root}, e.Search(), ProcessOptions{Workers: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, filepath.Join(root, "a.go"), results[0].Filename)

	assert.Equal(t, 3, summary.Files)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, 2, summary.Issues)
	assert.Contains(t, summary.String(), "3 files")
	assert.Contains(t, summary.String(), "2 matches in 1 file")
	assert.Contains(t, summary.String(), "1 failed")
}

func TestReplaceProcessor(t *testing.T) {
	t.Parallel()
	root := writeTree(t, map[string]string{"a.go": sampleSrc})
	e := newEngine(t)
	path := filepath.Join(root, "a.go")

	res, err := e.Replace(false)(context.Background(), path)
	require.NoError(t, err)
	require.True(t, res.Changed())
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sampleSrc, string(onDisk), "dry run leaves the file alone")

	_, summary, err := e.ProcessPaths(context.Background(), []string{path}, e.Replace(true), ProcessOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Changed)
	onDisk, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(onDisk), "fmt.Errorf"))
}

func TestCachedRun(t *testing.T) {
	t.Parallel()
	c, err := cache.New(t.TempDir())
	require.NoError(t, err)
	e := newEngine(t, WithCache(c))

	first, err := e.RunSource(context.Background(), "a.go", []byte(sampleSrc))
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := e.RunSource(context.Background(), "b.go", []byte(sampleSrc))
	require.NoError(t, err)
	assert.True(t, second.Cached)
	require.Len(t, second.Issues, len(first.Issues))
	assert.Equal(t, "b.go", second.Issues[0].Filename)

	e.IgnoreRule("self-assign")
	third, err := e.RunSource(context.Background(), "a.go", []byte(sampleSrc))
	require.NoError(t, err)
	assert.False(t, third.Cached, "ignoring a rule changes the cache key")
}

func TestProcessPathsCancelled(t *testing.T) {
	t.Parallel()
	root := writeTree(t, map[string]string{"a.go": sampleSrc})
	e := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := e.ProcessPaths(ctx, []string{root}, e.Search(), ProcessOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWatch(t *testing.T) {
	t.Parallel()
	root := writeTree(t, map[string]string{"a.go": "package p\n"})
	e := newEngine(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reports := make(chan *FileResult, 4)
	done := make(chan error, 1)
	go func() {
		done <- e.Watch(ctx, []string{root}, func(res *FileResult, err error) {
			if err != nil {
				return
			}
			select {
			case reports <- res:
			default:
			}
		})
	}()

	path := filepath.Join(root, "a.go")
	var res *FileResult
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(sampleSrc), 0o644)
		select {
		case res = <-reports:
			return len(res.Issues) > 0
		case <-time.After(300 * time.Millisecond):
			return false
		}
	}, 8*time.Second, 50*time.Millisecond)
	assert.Equal(t, path, res.Filename)

	cancel()
	assert.NoError(t, <-done)
}

func TestFixAddsImports(t *testing.T) {
	t.Parallel()
	e, err := New([]config.Rule{{
		Name:        "log-panic",
		Pattern:     "panic('x)",
		Replacement: "log.Panic($x$)",
		Imports:     []string{"log"},
	}})
	require.NoError(t, err)

	src := "package p\n\nfunc f() {\n\tpanic(\"boom\")\n}\n"
	res, err := e.Fix(context.Background(), "a.go", []byte(src))
	require.NoError(t, err)
	require.True(t, res.Changed())
	assert.Contains(t, string(res.Fixed), "import \"log\"\n")
	assert.Contains(t, string(res.Fixed), `log.Panic("boom")`)
}
