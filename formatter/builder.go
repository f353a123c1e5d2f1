// Package formatter renders match reports for the terminal, as JSON and
// as unified diffs.
package formatter

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"
	"unicode"

	"github.com/fatih/color"

	"github.com/gnoswap-labs/ssr/internal/types"
)

const tabWidth = 8

var (
	errorStyle      = color.New(color.FgRed, color.Bold)
	warningStyle    = color.New(color.FgHiYellow, color.Bold)
	infoStyle       = color.New(color.FgHiCyan, color.Bold)
	ruleStyle       = color.New(color.FgYellow, color.Bold)
	fileStyle       = color.New(color.FgCyan, color.Bold)
	lineStyle       = color.New(color.FgHiBlue, color.Bold)
	messageStyle    = color.New(color.FgRed, color.Bold)
	suggestionStyle = color.New(color.FgGreen, color.Bold)
	captureStyle    = color.New(color.FgMagenta)
)

// SourceCode holds the lines of a source file.
type SourceCode struct {
	Lines []string
}

// NewSourceCode splits src into lines.
func NewSourceCode(src []byte) *SourceCode {
	return &SourceCode{Lines: strings.Split(string(src), "\n")}
}

// ReadSourceCode reads a file into a SourceCode.
func ReadSourceCode(filename string) (*SourceCode, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return NewSourceCode(content), nil
}

const issueTemplate = `{{header .Rule .Severity .MaxLineNumWidth .Filename .StartLine .StartColumn -}}
{{snippet .SnippetLines .StartLine .EndLine .MaxLineNumWidth .CommonIndent .Padding -}}
{{underlineAndMessage .Message .Padding .StartLine .EndLine .StartColumn .EndColumn .SnippetLines .CommonIndent -}}
{{if .Suggestion}}{{suggestion .Suggestion .Padding .MaxLineNumWidth .StartLine}}{{end -}}
{{if .Captures}}{{captures .Captures .Padding}}{{end}}
`

var issueTmpl = template.Must(template.New("issue").Funcs(template.FuncMap{
	"header":              header,
	"snippet":             codeSnippet,
	"underlineAndMessage": underlineAndMessage,
	"suggestion":          suggestion,
	"captures":            captures,
}).Parse(issueTemplate))

// GenerateFormattedIssue renders issues of one file, each followed by a
// blank line.
func GenerateFormattedIssue(issues []types.Issue, snippet *SourceCode) string {
	var builder strings.Builder
	for _, issue := range issues {
		builder.WriteString(buildIssue(issue, snippet))
	}
	return builder.String()
}

// IssueData is what the issue template is executed with.
type IssueData struct {
	Severity        string
	Rule            string
	Filename        string
	Padding         string
	StartLine       int
	StartColumn     int
	EndLine         int
	EndColumn       int
	MaxLineNumWidth int
	Message         string
	Suggestion      string
	Captures        []Capture
	SnippetLines    []string
	CommonIndent    string
}

// Capture is a variable binding shown under an issue.
type Capture struct {
	Name, Text string
}

func buildIssue(issue types.Issue, snippet *SourceCode) string {
	startLine := issue.Start.Line
	endLine := issue.End.Line
	maxLineNumWidth := calculateMaxLineNumWidth(endLine)
	padding := strings.Repeat(" ", maxLineNumWidth+1)

	var commonIndent string
	if isValidLineRange(startLine, endLine, snippet.Lines) {
		commonIndent = findCommonIndent(snippet.Lines[startLine-1 : endLine])
	}

	msg := issue.Message
	if msg == "" {
		msg = "matches " + issue.Rule
	}

	data := IssueData{
		Severity:        issue.Severity.String(),
		Rule:            issue.Rule,
		Filename:        issue.Filename,
		StartLine:       startLine,
		StartColumn:     issue.Start.Column,
		EndLine:         endLine,
		EndColumn:       issue.End.Column,
		Message:         msg,
		Suggestion:      issue.Suggestion,
		Captures:        sortedCaptures(issue.Captures),
		MaxLineNumWidth: maxLineNumWidth,
		Padding:         padding,
		CommonIndent:    commonIndent,
		SnippetLines:    snippet.Lines,
	}

	var buf bytes.Buffer
	if err := issueTmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Error formatting issue: %v", err)
	}
	return buf.String()
}

func header(rule, severity string, maxLineNumWidth int, filename string, startLine, startColumn int) string {
	var out string
	switch severity {
	case "ERROR":
		out = errorStyle.Sprint("error: ")
	case "WARNING":
		out = warningStyle.Sprint("warning: ")
	default:
		out = infoStyle.Sprint("info: ")
	}
	out += ruleStyle.Sprintf("%s", rule) + "\n"
	out += lineStyle.Sprintf("%s--> ", strings.Repeat(" ", maxLineNumWidth))
	out += fileStyle.Sprintf("%s:%d:%d", filename, startLine, startColumn) + "\n"
	return out
}

func codeSnippet(lines []string, startLine, endLine, maxLineNumWidth int, commonIndent, padding string) string {
	out := lineStyle.Sprintf("%s|", padding) + "\n"
	for i := startLine; i <= endLine; i++ {
		if i-1 < 0 || i-1 >= len(lines) {
			continue
		}
		line := strings.TrimPrefix(lines[i-1], commonIndent)
		out += lineStyle.Sprintf("%*d | ", maxLineNumWidth, i) + line + "\n"
	}
	return out
}

// underlineAndMessage marks the matched columns. A match spanning lines
// is marked from its start to the end of its first line.
func underlineAndMessage(message, padding string, startLine, endLine, startColumn, endColumn int, lines []string, commonIndent string) string {
	if !isValidLineRange(startLine, endLine, lines) {
		return lineStyle.Sprintf("%s= ", padding) + messageStyle.Sprint(message) + "\n"
	}

	indentWidth := calculateVisualColumn(commonIndent, len(commonIndent)+1)
	first := lines[startLine-1]
	start := calculateVisualColumn(first, startColumn) - indentWidth
	if start < 0 {
		start = 0
	}
	end := calculateVisualColumn(first, len(first)+1) - indentWidth
	if startLine == endLine {
		end = calculateVisualColumn(first, endColumn) - indentWidth
	}
	length := end - start
	if length < 1 {
		length = 1
	}

	out := lineStyle.Sprintf("%s| ", padding)
	out += strings.Repeat(" ", start) + messageStyle.Sprint(strings.Repeat("~", length)) + "\n"
	out += lineStyle.Sprintf("%s= ", padding) + messageStyle.Sprint(message) + "\n"
	return out
}

func suggestion(text, padding string, maxLineNumWidth, startLine int) string {
	out := "\n" + suggestionStyle.Sprint("Suggestion:") + "\n"
	out += lineStyle.Sprintf("%s|", padding) + "\n"
	for i, line := range strings.Split(text, "\n") {
		out += lineStyle.Sprintf("%*d | ", maxLineNumWidth, startLine+i) + line + "\n"
	}
	out += lineStyle.Sprintf("%s|", padding) + "\n"
	return out
}

func captures(caps []Capture, padding string) string {
	out := ""
	for _, c := range caps {
		out += lineStyle.Sprintf("%s= ", padding) + captureStyle.Sprintf("$%s$", c.Name) + " " + oneLine(c.Text) + "\n"
	}
	return out
}

func sortedCaptures(m map[string]string) []Capture {
	if len(m) == 0 {
		return nil
	}
	caps := make([]Capture, 0, len(m))
	for name, text := range m {
		caps = append(caps, Capture{Name: name, Text: text})
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i].Name < caps[j].Name })
	return caps
}

func oneLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func isValidLineRange(startLine, endLine int, lines []string) bool {
	return startLine > 0 &&
		endLine > 0 &&
		startLine <= endLine &&
		endLine <= len(lines)
}

func calculateMaxLineNumWidth(endLine int) int {
	return len(fmt.Sprintf("%d", endLine))
}

// calculateVisualColumn returns the display column of a 1-based byte
// column, with tabs expanded.
func calculateVisualColumn(line string, column int) int {
	if column < 0 {
		return 0
	}
	visual := 0
	for i, ch := range line {
		if i+1 >= column {
			break
		}
		if ch == '\t' {
			visual += tabWidth - (visual % tabWidth)
		} else {
			visual++
		}
	}
	return visual
}

// findCommonIndent returns the indentation shared by all non-blank lines.
func findCommonIndent(lines []string) string {
	var common []rune
	found := false
	for _, line := range lines {
		trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
		if trimmed == "" {
			continue
		}
		indent := []rune(line[:len(line)-len(trimmed)])
		if !found {
			common, found = indent, true
			continue
		}
		common = commonPrefix(common, indent)
		if len(common) == 0 {
			break
		}
	}
	return string(common)
}

func commonPrefix(a, b []rune) []rune {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:n]
}
