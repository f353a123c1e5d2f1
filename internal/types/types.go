package types

import "go/token"

// Severity orders how loudly an issue is reported.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// ParseSeverity maps a configuration value to a Severity. Unknown values
// map to SeverityWarning.
func ParseSeverity(s string) Severity {
	switch s {
	case "info", "INFO":
		return SeverityInfo
	case "error", "ERROR":
		return SeverityError
	default:
		return SeverityWarning
	}
}

// Issue is one match of a rule in a file, as reported to the user.
type Issue struct {
	Rule     string
	Filename string
	Message  string
	Severity Severity

	// Matched is the source text of the match; Suggestion is its
	// replacement when the rule defines one.
	Matched    string
	Suggestion string

	// Captures holds the text bound to every named variable.
	Captures map[string]string

	Start token.Position
	End   token.Position
}

// Edit replaces Src[Start:End] with Text.
type Edit struct {
	Start, End int
	Text       string
}
