package formatter

import (
	"bytes"
	"encoding/json"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/ssr/internal/types"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

var code = &SourceCode{
	Lines: []string{
		"package p",
		"",
		"func f(name string) error {",
		"\treturn errors.New(fmt.Sprintf(",
		"\t\t\"bad %s\", name))",
		"\tx = x",
		"}",
	},
}

func TestGenerateFormattedIssue(t *testing.T) {
	t.Parallel()
	issues := []types.Issue{
		{
			Rule:     "self-assign",
			Filename: "a.go",
			Severity: types.SeverityWarning,
			Start:    token.Position{Line: 6, Column: 2},
			End:      token.Position{Line: 6, Column: 7},
		},
	}

	expected := `warning: self-assign
 --> a.go:6:2
  |
6 | x = x
  | ~~~~~
  = matches self-assign

`
	assert.Equal(t, expected, GenerateFormattedIssue(issues, code))
}

func TestGenerateFormattedIssueWithSuggestion(t *testing.T) {
	t.Parallel()
	issue := types.Issue{
		Rule:       "sprintf-error",
		Filename:   "a.go",
		Message:    "use fmt.Errorf",
		Severity:   types.SeverityError,
		Suggestion: `fmt.Errorf("bad %s", name)`,
		Captures:   map[string]string{"args": `"bad %s", name`},
		Start:      token.Position{Line: 4, Column: 9},
		End:        token.Position{Line: 5, Column: 19},
	}

	expected := "error: sprintf-error\n" +
		" --> a.go:4:9\n" +
		"  |\n" +
		"4 | return errors.New(fmt.Sprintf(\n" +
		"5 | \t\"bad %s\", name))\n" +
		"  | " + strings.Repeat(" ", 7) + strings.Repeat("~", 23) + "\n" +
		"  = use fmt.Errorf\n" +
		"\n" +
		"Suggestion:\n" +
		"  |\n" +
		"4 | fmt.Errorf(\"bad %s\", name)\n" +
		"  |\n" +
		"  = $args$ \"bad %s\", name\n" +
		"\n"
	assert.Equal(t, expected, GenerateFormattedIssue([]types.Issue{issue}, code))
}

func TestGenerateFormattedIssueMultipleDigitLines(t *testing.T) {
	t.Parallel()
	lines := make([]string, 12)
	lines[11] = "\tprintln(\"end\")"
	issue := types.Issue{
		Rule:     "println",
		Filename: "b.go",
		Severity: types.SeverityInfo,
		Message:  "debug output",
		Start:    token.Position{Line: 12, Column: 2},
		End:      token.Position{Line: 12, Column: 16},
	}

	expected := `info: println
  --> b.go:12:2
   |
12 | println("end")
   | ~~~~~~~~~~~~~~
   = debug output

`
	assert.Equal(t, expected, GenerateFormattedIssue([]types.Issue{issue}, &SourceCode{Lines: lines}))
}

func TestGenerateFormattedIssueOutOfRange(t *testing.T) {
	t.Parallel()
	issue := types.Issue{
		Rule:     "r",
		Filename: "a.go",
		Message:  "gone",
		Start:    token.Position{Line: 40, Column: 1},
		End:      token.Position{Line: 41, Column: 1},
	}
	out := GenerateFormattedIssue([]types.Issue{issue}, code)
	assert.Contains(t, out, "= gone\n")
	assert.NotContains(t, out, "~")
}

func TestCalculateVisualColumn(t *testing.T) {
	t.Parallel()
	tests := []struct {
		line   string
		column int
		want   int
	}{
		{"abc", 1, 0},
		{"abc", 3, 2},
		{"\tx", 2, 8},
		{"a\tb", 3, 8},
		{"abc", -1, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, calculateVisualColumn(tt.line, tt.column), "%q col %d", tt.line, tt.column)
	}
}

func TestFindCommonIndent(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "\t", findCommonIndent([]string{"\tif x {", "", "\t\ty()", "\t}"}))
	assert.Equal(t, "", findCommonIndent([]string{"a", "\tb"}))
	assert.Equal(t, "", findCommonIndent(nil))
}

func TestReadSourceCode(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package p\n\nvar v = 1\n"), 0o644))
	sc, err := ReadSourceCode(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"package p", "", "var v = 1", ""}, sc.Lines)

	_, err = ReadSourceCode(filepath.Join(t.TempDir(), "missing.go"))
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()
	issues := []types.Issue{
		{
			Rule:     "self-assign",
			Filename: "a.go",
			Severity: types.SeverityWarning,
			Matched:  "x = x",
			Start:    token.Position{Line: 6, Column: 2, Offset: 80},
			End:      token.Position{Line: 6, Column: 7, Offset: 85},
		},
		{Rule: "r", Filename: "b.go", Matched: "y"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, issues))

	var report map[string][]JSONIssue
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	require.Len(t, report["a.go"], 1)
	assert.Equal(t, "WARNING", report["a.go"][0].Severity)
	assert.Equal(t, JSONPosition{Line: 6, Column: 2, Offset: 80}, report["a.go"][0].Start)
	assert.Equal(t, "INFO", report["b.go"][0].Severity)
	assert.NotContains(t, buf.String(), "suggestion", "empty fields are omitted")
}

func TestUnifiedDiff(t *testing.T) {
	t.Parallel()
	before := []byte("package p\n\nvar v = f(1)\n")
	after := []byte("package p\n\nvar v = g(1)\n")

	diff, err := UnifiedDiff("a.go", before, after)
	require.NoError(t, err)
	assert.Contains(t, diff, "--- a/a.go")
	assert.Contains(t, diff, "+++ b/a.go")
	assert.Contains(t, diff, "-var v = f(1)\n")
	assert.Contains(t, diff, "+var v = g(1)\n")

	same, err := UnifiedDiff("a.go", before, before)
	require.NoError(t, err)
	assert.Empty(t, same)

	assert.Equal(t, diff, ColorDiff(diff), "no color codes without a terminal")
}
