package query

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gnoswap-labs/ssr/internal/types"
)

// IdentPrefix starts every synthetic identifier produced by Lex.
const IdentPrefix = "_ssr"

// Placeholder is one occurrence of a capture variable in a template.
type Placeholder struct {
	Name  string
	Ident string // synthetic identifier standing in for the placeholder

	Quantifier Quantifier
	Quantified bool // a quantifier was written explicitly

	Constraint []Term
	Raw        string // placeholder text as written, suffixes included

	Pos int // offset of the quote in the template
}

// Result is the outcome of lexing a template.
type Result struct {
	Text         string
	Placeholders []*Placeholder
	byIdent      map[string]*Placeholder
}

// Lookup returns the placeholder a synthetic identifier stands for.
func (r *Result) Lookup(ident string) (*Placeholder, bool) {
	p, ok := r.byIdent[ident]
	return p, ok
}

// Lexer rewrites placeholders in a template into plain identifiers.
type Lexer struct {
	input    string
	position int

	out    strings.Builder
	result *Result
}

// NewLexer returns a Lexer over input.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		result: &Result{byIdent: make(map[string]*Placeholder)},
	}
}

// Lex is shorthand for NewLexer(template).Lex().
func Lex(template string) (*Result, error) {
	return NewLexer(template).Lex()
}

// Lex scans the whole input.
func (l *Lexer) Lex() (*Result, error) {
	for l.position < len(l.input) {
		c := l.input[l.position]
		switch {
		case c == '"' || c == '`':
			if err := l.copyString(); err != nil {
				return nil, err
			}
		case c == '/' && l.peek(1) == '/':
			l.copyUntil("\n", false)
		case c == '/' && l.peek(1) == '*':
			l.copyUntil("*/", true)
		case c == '\'':
			if err := l.quote(); err != nil {
				return nil, err
			}
		default:
			l.out.WriteByte(c)
			l.position++
		}
	}
	l.result.Text = l.out.String()
	return l.result, nil
}

func (l *Lexer) peek(n int) byte {
	if l.position+n < len(l.input) {
		return l.input[l.position+n]
	}
	return 0
}

func (l *Lexer) copyString() error {
	end := skipString(l.input, l.position)
	if end < 0 {
		return types.Malformed("", types.MsgParse, fmt.Sprintf("unterminated string at offset %d", l.position))
	}
	l.out.WriteString(l.input[l.position:end])
	l.position = end
	return nil
}

// copyUntil copies a comment through its terminator.
func (l *Lexer) copyUntil(term string, include bool) {
	rest := l.input[l.position:]
	idx := strings.Index(rest[2:], term)
	if idx < 0 {
		l.out.WriteString(rest)
		l.position = len(l.input)
		return
	}
	end := idx + 2
	if include {
		end += len(term)
	}
	l.out.WriteString(rest[:end])
	l.position += end
}

// quote handles a single quote: either a rune literal or a placeholder.
func (l *Lexer) quote() error {
	if l.isRuneLiteral() {
		end := l.position + 1
		for end < len(l.input) && l.input[end] != '\'' {
			if l.input[end] == '\\' {
				end++
			}
			end++
		}
		end++
		if end > len(l.input) {
			end = len(l.input)
		}
		l.out.WriteString(l.input[l.position:end])
		l.position = end
		return nil
	}

	start := l.position
	i := start + 1
	for i < len(l.input) && isIdentByte(l.input[i]) {
		i++
	}
	if i == start+1 || isDigit(l.input[start+1]) {
		return types.Malformed("", types.MsgParse, fmt.Sprintf("stray quote at offset %d", start))
	}

	p := &Placeholder{
		Name:       l.input[start+1 : i],
		Quantifier: One,
		Pos:        start,
	}

	q, n, err := scanQuantifier(l.input[i:])
	if err != nil {
		return types.Malformed(p.Name, types.MsgBadQuantifier, l.input[i:min(len(l.input), i+8)])
	}
	if n > 0 {
		p.Quantifier, p.Quantified = q, true
		i += n
	}

	if terms, end, err := l.constraint(i); err != nil {
		return types.Malformed(p.Name, types.MsgBadConstraint, l.input[i:], err.Error())
	} else if terms != nil {
		p.Constraint = terms
		i = end
	}

	p.Raw = l.input[start:i]
	p.Ident = fmt.Sprintf("%s%d_%s", IdentPrefix, len(l.result.Placeholders), p.Name)
	l.result.Placeholders = append(l.result.Placeholders, p)
	l.result.byIdent[p.Ident] = p

	l.out.WriteString(p.Ident)
	l.position = i
	return nil
}

// isRuneLiteral reports whether the quote at the current position opens a
// rune literal: an escape, or a single character followed by a quote.
func (l *Lexer) isRuneLiteral() bool {
	rest := l.input[l.position+1:]
	if rest == "" {
		return false
	}
	if rest[0] == '\\' {
		return true
	}
	_, size := utf8.DecodeRuneInString(rest)
	return size < len(rest) && rest[size] == '\''
}

// constraint reads a ":terms" or "[terms]" suffix at i.
func (l *Lexer) constraint(i int) ([]Term, int, error) {
	if i >= len(l.input) {
		return nil, i, nil
	}
	switch l.input[i] {
	case ':':
		return scanChain(l.input, i+1)
	case '[':
		j := skipSpaces(l.input, i+1)
		terms, end, err := scanChain(l.input, j)
		if err != nil || terms == nil {
			return nil, i, err
		}
		end = skipSpaces(l.input, end)
		if end >= len(l.input) || l.input[end] != ']' {
			return nil, i, fmt.Errorf("missing closing bracket")
		}
		return terms, end + 1, nil
	}
	return nil, i, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
