package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Constraint term keywords.
const (
	KeyRegex     = "regex"
	KeyRegexWord = "regexw"
	KeyExprType  = "exprtype"
	KeyFormal    = "formal"
	KeyRef       = "ref"
	KeyScript    = "script"
	KeyWithin    = "within"
	KeyContains  = "contains"
)

var termKeywords = map[string]bool{
	KeyRegex:     true,
	KeyRegexWord: true,
	KeyExprType:  true,
	KeyFormal:    true,
	KeyRef:       true,
	KeyScript:    true,
	KeyWithin:    true,
	KeyContains:  true,
}

// Term is one negatable predicate of a constraint expression.
type Term struct {
	Keyword string
	Arg     string
	Negated bool
}

func (t Term) String() string {
	neg := ""
	if t.Negated {
		neg = "!"
	}
	return fmt.Sprintf("%s%s(%s)", neg, t.Keyword, strconv.Quote(t.Arg))
}

// ParseConstraint parses a constraint expression: terms joined by &&.
func ParseConstraint(s string) ([]Term, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	terms, end, err := scanChain(s, 0)
	if err != nil {
		return nil, err
	}
	if terms == nil {
		return nil, fmt.Errorf("expected a constraint term at %q", s)
	}
	if rest := strings.TrimSpace(s[end:]); rest != "" {
		return nil, fmt.Errorf("unexpected %q after constraint", rest)
	}
	return terms, nil
}

// startsTerm reports whether s[i:] begins with [!]keyword(.
func startsTerm(s string, i int) bool {
	if i < len(s) && s[i] == '!' {
		i++
	}
	j := i
	for j < len(s) && isIdentByte(s[j]) {
		j++
	}
	return termKeywords[s[i:j]] && j < len(s) && s[j] == '('
}

// scanChain reads term (&& term)* starting at s[i]. It returns nil terms
// when s[i:] does not start with a term.
func scanChain(s string, i int) ([]Term, int, error) {
	if !startsTerm(s, i) {
		return nil, i, nil
	}
	var terms []Term
	for {
		t, end, err := scanTerm(s, i)
		if err != nil {
			return nil, i, err
		}
		terms = append(terms, t)
		i = end

		j := skipSpaces(s, i)
		if !strings.HasPrefix(s[j:], "&&") {
			return terms, i, nil
		}
		k := skipSpaces(s, j+2)
		if !startsTerm(s, k) {
			return terms, i, nil
		}
		i = k
	}
}

func scanTerm(s string, i int) (Term, int, error) {
	var t Term
	if s[i] == '!' {
		t.Negated = true
		i++
	}
	j := i
	for j < len(s) && isIdentByte(s[j]) {
		j++
	}
	t.Keyword = s[i:j]

	// s[j] is '(' here, guaranteed by startsTerm.
	end, err := matchParen(s, j)
	if err != nil {
		return t, j, err
	}
	arg := strings.TrimSpace(s[j+1 : end])
	if arg != "" && (arg[0] == '"' || arg[0] == '`') {
		if unquoted, err := strconv.Unquote(arg); err == nil {
			arg = unquoted
		}
	}
	t.Arg = arg
	return t, end + 1, nil
}

// matchParen returns the index of the parenthesis closing s[open],
// skipping over Go string literals.
func matchParen(s string, open int) (int, error) {
	depth := 0
	for i := open; i < len(s); i++ {
		switch c := s[i]; c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, nil
			}
		case '"', '`':
			end := skipString(s, i)
			if end < 0 {
				return -1, fmt.Errorf("unterminated string in constraint %q", s[open:])
			}
			i = end - 1
		}
	}
	return -1, fmt.Errorf("unbalanced parentheses in constraint %q", s[open:])
}

// skipString returns the index just past the string literal at s[i], or
// -1 when it is not terminated.
func skipString(s string, i int) int {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		switch {
		case s[j] == '\\' && quote != '`':
			j++
		case s[j] == quote:
			return j + 1
		case s[j] == '\n' && quote != '`':
			return -1
		}
	}
	return -1
}

func skipSpaces(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
