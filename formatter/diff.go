package formatter

import (
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
)

var (
	addStyle  = color.New(color.FgGreen)
	delStyle  = color.New(color.FgRed)
	hunkStyle = color.New(color.FgCyan)
)

// UnifiedDiff returns the unified diff between the original and the
// rewritten content of a file, or "" when they are equal.
func UnifiedDiff(filename string, before, after []byte) (string, error) {
	if string(before) == string(after) {
		return "", nil
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: "a/" + filename,
		ToFile:   "b/" + filename,
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}

// ColorDiff colors the lines of a unified diff.
func ColorDiff(diff string) string {
	lines := strings.SplitAfter(diff, "\n")
	var b strings.Builder
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			b.WriteString(fileStyle.Sprint(line))
		case strings.HasPrefix(line, "@@"):
			b.WriteString(hunkStyle.Sprint(line))
		case strings.HasPrefix(line, "+"):
			b.WriteString(addStyle.Sprint(line))
		case strings.HasPrefix(line, "-"):
			b.WriteString(delStyle.Sprint(line))
		default:
			b.WriteString(line)
		}
	}
	return b.String()
}
