package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Unbounded is the Max of a quantifier without an upper bound.
const Unbounded = -1

// Quantifier is the occurrence range of a placeholder.
type Quantifier struct {
	Min, Max int
	Lazy     bool
}

// One is the implicit quantifier of a bare placeholder.
var One = Quantifier{Min: 1, Max: 1}

func (q Quantifier) String() string {
	var s string
	switch {
	case q.Min == 1 && q.Max == 1:
		s = ""
	case q.Min == 0 && q.Max == 1:
		s = "?"
	case q.Min == 0 && q.Max == Unbounded:
		s = "*"
	case q.Min == 1 && q.Max == Unbounded:
		s = "+"
	case q.Max == Unbounded:
		s = fmt.Sprintf("{%d,}", q.Min)
	case q.Min == q.Max:
		s = fmt.Sprintf("{%d}", q.Min)
	default:
		s = fmt.Sprintf("{%d,%d}", q.Min, q.Max)
	}
	if q.Lazy {
		s += "?"
	}
	return s
}

// Repeats reports whether more than one node may be bound.
func (q Quantifier) Repeats() bool { return q.Max == Unbounded || q.Max > 1 }

// Optional reports whether zero nodes may be bound.
func (q Quantifier) Optional() bool { return q.Min == 0 }

// Covers reports whether n nodes are within the range.
func (q Quantifier) Covers(n int) bool {
	return n >= q.Min && (q.Max == Unbounded || n <= q.Max)
}

var countedRange = regexp.MustCompile(`^\{(\d+)(,(\d*))?\}`)

var simpleQuantifiers = map[byte]Quantifier{
	'?': {Min: 0, Max: 1},
	'*': {Min: 0, Max: Unbounded},
	'+': {Min: 1, Max: Unbounded},
}

// scanQuantifier reads a quantifier at the start of s. It returns the
// number of bytes consumed, zero when s does not start with one.
func scanQuantifier(s string) (Quantifier, int, error) {
	if s == "" {
		return One, 0, nil
	}
	var (
		q Quantifier
		n int
	)
	if simple, ok := simpleQuantifiers[s[0]]; ok {
		q, n = simple, 1
	} else if m := countedRange.FindStringSubmatch(s); m != nil {
		lo, err := strconv.Atoi(m[1])
		if err != nil {
			return One, 0, fmt.Errorf("bad lower bound in %q", m[0])
		}
		hi := lo
		if m[2] != "" {
			hi = Unbounded
			if m[3] != "" {
				if hi, err = strconv.Atoi(m[3]); err != nil {
					return One, 0, fmt.Errorf("bad upper bound in %q", m[0])
				}
			}
		}
		if hi != Unbounded && hi < lo {
			return One, 0, fmt.Errorf("upper bound below lower bound in %q", m[0])
		}
		q, n = Quantifier{Min: lo, Max: hi}, len(m[0])
	} else {
		return One, 0, nil
	}
	if n < len(s) && s[n] == '?' {
		q.Lazy = true
		n++
	}
	return q, n, nil
}

// ParseQuantifier parses a quantifier given on its own, as in a constraint
// table: "?", "*", "+", "{m,n}", "{m,}", "{m}", a trailing "?" for lazy,
// or the bare forms "m,n", "m," and "m".
func ParseQuantifier(s string) (Quantifier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return One, nil
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "{" + s + "}"
		if strings.HasSuffix(s, "?}") {
			s = strings.TrimSuffix(s, "?}") + "}?"
		}
	}
	q, n, err := scanQuantifier(s)
	if err != nil {
		return One, err
	}
	if n == 0 || n != len(s) {
		return One, fmt.Errorf("malformed quantifier %q", s)
	}
	return q, nil
}
