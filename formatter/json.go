package formatter

import (
	"encoding/json"
	"io"

	"github.com/gnoswap-labs/ssr/internal/types"
)

// JSONPosition is a position in a JSON report.
type JSONPosition struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Offset int `json:"offset"`
}

// JSONIssue is one issue in a JSON report.
type JSONIssue struct {
	Rule       string            `json:"rule"`
	Severity   string            `json:"severity"`
	Message    string            `json:"message,omitempty"`
	Matched    string            `json:"matched"`
	Suggestion string            `json:"suggestion,omitempty"`
	Captures   map[string]string `json:"captures,omitempty"`
	Start      JSONPosition      `json:"start"`
	End        JSONPosition      `json:"end"`
}

// JSONReport groups issues by file name.
func JSONReport(issues []types.Issue) map[string][]JSONIssue {
	report := make(map[string][]JSONIssue)
	for _, is := range issues {
		report[is.Filename] = append(report[is.Filename], JSONIssue{
			Rule:       is.Rule,
			Severity:   is.Severity.String(),
			Message:    is.Message,
			Matched:    is.Matched,
			Suggestion: is.Suggestion,
			Captures:   is.Captures,
			Start:      JSONPosition{Line: is.Start.Line, Column: is.Start.Column, Offset: is.Start.Offset},
			End:        JSONPosition{Line: is.End.Line, Column: is.End.Column, Offset: is.End.Offset},
		})
	}
	return report
}

// WriteJSON writes the JSON report of issues to w.
func WriteJSON(w io.Writer, issues []types.Issue) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(JSONReport(issues))
}
