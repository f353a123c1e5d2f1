package profile

import (
	"fmt"
	"strconv"
	"strings"
)

// Hierarchy selects how a type name relates to the matched type.
type Hierarchy int

const (
	Exact       Hierarchy = iota // T
	OrSubtype                    // *T: T itself or any subtype
	SubtypeOnly                  // +T: a strict subtype of T
)

func (h Hierarchy) String() string {
	switch h {
	case OrSubtype:
		return "*"
	case SubtypeOnly:
		return "+"
	default:
		return ""
	}
}

// TypeAlt is one alternative of a type pattern.
type TypeAlt struct {
	Name      string
	Hierarchy Hierarchy
}

func (a TypeAlt) String() string { return a.Hierarchy.String() + a.Name }

// TypePattern is a list of alternatives written as A|B.
type TypePattern []TypeAlt

func (p TypePattern) String() string {
	parts := make([]string, len(p))
	for i, a := range p {
		parts[i] = a.String()
	}
	return strings.Join(parts, "|")
}

// ParseTypePattern parses "T", "*T", "+T", "A|B". A quoted alternative is
// taken verbatim, which is how a Go pointer type such as "*bytes.Buffer"
// is spelled.
func ParseTypePattern(s string) (TypePattern, error) {
	var out TypePattern
	for _, part := range splitTop(s, '|') {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty alternative in type pattern %q", s)
		}
		if part[0] == '"' || part[0] == '`' {
			name, err := strconv.Unquote(part)
			if err != nil {
				return nil, fmt.Errorf("bad quoted type %s: %w", part, err)
			}
			out = append(out, TypeAlt{Name: name})
			continue
		}
		alt := TypeAlt{Name: part}
		switch part[0] {
		case '*':
			alt = TypeAlt{Name: strings.TrimSpace(part[1:]), Hierarchy: OrSubtype}
		case '+':
			alt = TypeAlt{Name: strings.TrimSpace(part[1:]), Hierarchy: SubtypeOnly}
		}
		if alt.Name == "" {
			return nil, fmt.Errorf("missing type name in %q", s)
		}
		out = append(out, alt)
	}
	return out, nil
}

// Disjoint reports whether two exact patterns can never name the same type.
// Only the final name segment is compared so that "Buffer" and
// "bytes.Buffer" are not reported as disjoint.
func Disjoint(a, b TypePattern, caseSensitive bool) bool {
	for _, x := range a {
		if x.Hierarchy != Exact {
			return false
		}
	}
	for _, y := range b {
		if y.Hierarchy != Exact {
			return false
		}
	}
	for _, x := range a {
		for _, y := range b {
			if EqualWords(lastSegment(x.Name), lastSegment(y.Name), caseSensitive) {
				return false
			}
		}
	}
	return true
}

func lastSegment(name string) string {
	name = strings.TrimLeft(name, "*[]")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// splitTop splits s on sep outside of brackets and quotes.
func splitTop(s string, sep byte) []string {
	var (
		parts []string
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' && quote == '"' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '`':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
