package lang

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
)

// ExprKind identifies the form of an [Expr].
type ExprKind int

const (
	ExprNumber ExprKind = iota
	ExprString
	ExprArray
	ExprPath
)

var exprKindName = [...]string{"number", "string", "array", "path"}

func (k ExprKind) String() string {
	if k >= 0 && int(k) < len(exprKindName) {
		return exprKindName[k]
	}

	return fmt.Sprintf("expr(%d)", int(k))
}

// MarshalText encodes k by name.
func (k ExprKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes an expression kind name.
func (k *ExprKind) UnmarshalText(b []byte) error {
	for i, n := range exprKindName {
		if n == string(b) {
			*k = ExprKind(i)

			return nil
		}
	}

	return ErrInvalidExpression.With(slog.String("kind", string(b)))
}

// Expr is a parsed expression: a number, a quoted string, a literal array
// of expressions, or a dotted path.
type Expr struct {
	Kind   ExprKind `json:"kind"`
	Source string   `json:"source"`
	Items  []Expr   `json:"items,omitempty"`
}

// Number returns the value of a number expression.
func (e Expr) Number() float64 {
	f, _ := strconv.ParseFloat(e.Source, 64)

	return f
}

// String returns the unquoted value of a string expression, or the source
// text of any other expression.
func (e Expr) String() string {
	if e.Kind != ExprString {
		return e.Source
	}

	s, _ := unquote(e.Source)

	return s
}

// Path returns the segments of a path expression.
func (e Expr) Path() []string {
	if e.Kind != ExprPath {
		return nil
	}

	return strings.Split(e.Source, ".")
}

// ParseExpr parses src as a number, quoted string, literal array, or
// dotted path, tried in that order.
func ParseExpr(src string) (Expr, error) {
	src = strings.TrimSpace(src)

	switch {
	case src == "":
		return Expr{}, ErrInvalidExpression.With(slog.String("expr", src))

	case isNumber(src):
		return Expr{Kind: ExprNumber, Source: src}, nil

	case src[0] == '"' || src[0] == '\'':
		if _, err := unquote(src); err != nil {
			return Expr{}, ErrInvalidExpression.Wrap(err).
				With(slog.String("expr", src))
		}

		return Expr{Kind: ExprString, Source: src}, nil

	case src[0] == '[':
		if src[len(src)-1] != ']' {
			return Expr{}, ErrUnterminated.With(slog.String("expr", src))
		}

		parts, err := splitList(src[1 : len(src)-1])
		if err != nil {
			return Expr{}, err
		}

		var items []Expr

		for _, p := range parts {
			item, err := ParseExpr(p)
			if err != nil {
				return Expr{}, err
			}

			items = append(items, item)
		}

		return Expr{Kind: ExprArray, Source: src, Items: items}, nil

	case isPath(src):
		return Expr{Kind: ExprPath, Source: src}, nil

	default:
		return Expr{}, ErrInvalidExpression.With(slog.String("expr", src))
	}
}

func isNumber(s string) bool {
	i := 0
	if s[0] == '-' || s[0] == '+' {
		i++
	}

	if i < len(s) && s[i] == '.' {
		i++
	}

	if i >= len(s) || s[i] < '0' || s[i] > '9' {
		return false
	}

	_, err := strconv.ParseFloat(s, 64)

	return err == nil
}

func isPath(s string) bool {
	for seg := range strings.SplitSeq(s, ".") {
		if seg == "" {
			return false
		}

		for _, r := range seg {
			if !isIdentRune(r) && r != '$' {
				return false
			}
		}
	}

	return true
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// unquote decodes a double- or single-quoted string literal.
func unquote(s string) (string, error) {
	if len(s) < 2 || s[len(s)-1] != s[0] {
		return "", ErrUnterminated.With(slog.String("string", s))
	}

	if s[0] == '"' {
		return strconv.Unquote(s)
	}

	var sb strings.Builder

	body := s[1 : len(s)-1]

	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			i++
			c = body[i]
		} else if c == '\'' {
			return "", ErrSyntax.With(slog.String("string", s))
		}

		sb.WriteByte(c)
	}

	return sb.String(), nil
}

// splitList splits the body of an array literal on top-level commas.
func splitList(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

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
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}

		case c == '"' || c == '\'':
			quote = c

		case c == '[':
			depth++

		case c == ']':
			depth--

		case c == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}

	if quote != 0 || depth != 0 {
		return nil, ErrUnterminated.With(slog.String("expr", "["+s+"]"))
	}

	return append(parts, s[start:]), nil
}

// fields splits s on whitespace, keeping quoted strings and bracketed
// arrays intact.
func fields(s string) ([]string, error) {
	var (
		out   []string
		cur   strings.Builder
		depth int
		quote byte
	)

	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case quote != 0:
			cur.WriteByte(c)

			if c == '\\' && i+1 < len(s) {
				i++
				cur.WriteByte(s[i])
			} else if c == quote {
				quote = 0
			}

		case c == '"' || c == '\'':
			quote = c
			cur.WriteByte(c)

		case c == '[':
			depth++
			cur.WriteByte(c)

		case c == ']':
			depth--
			cur.WriteByte(c)

		case (c == ' ' || c == '\t') && depth == 0:
			flush()

		default:
			cur.WriteByte(c)
		}
	}

	if quote != 0 || depth != 0 {
		return nil, ErrUnterminated.With(slog.String("text", s))
	}

	flush()

	return out, nil
}

// Segment is one piece of text split around mustaches. Exactly one of
// Text or Expr is meaningful.
type Segment struct {
	Text string
	Expr *Expr
}

const (
	openMustache  = "{{"
	closeMustache = "}}"
)

// Segments splits s into literal text and mustache expressions.
func Segments(s string) ([]Segment, error) {
	var segs []Segment

	for {
		i := strings.Index(s, openMustache)
		if i < 0 {
			if s != "" {
				segs = append(segs, Segment{Text: s})
			}

			return segs, nil
		}

		if i > 0 {
			segs = append(segs, Segment{Text: s[:i]})
		}

		rest := s[i+len(openMustache):]

		j := closeIndex(rest)
		if j < 0 {
			return nil, ErrUnterminated.With(slog.String("text", s[i:]))
		}

		e, err := ParseExpr(rest[:j])
		if err != nil {
			return nil, err
		}

		segs = append(segs, Segment{Expr: &e})
		s = rest[j+len(closeMustache):]
	}
}

// closeIndex returns the index in s of the "}}" ending a mustache whose
// opening marker precedes s, or -1. Quoted strings are skipped.
func closeIndex(s string) int {
	var quote byte

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}

		case c == '"' || c == '\'':
			quote = c

		case strings.HasPrefix(s[i:], closeMustache):
			return i
		}
	}

	return -1
}

// HasMustache reports whether s contains an interpolation marker.
func HasMustache(s string) bool {
	return strings.Contains(s, openMustache)
}
