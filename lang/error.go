package lang

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ardnew/weft/pkg"
)

// Predefined errors (sentinel values).
var (
	ErrBadIndentation      = pkg.NewError("bad indentation")
	ErrTooMuchIndentation  = pkg.NewError("too much indentation")
	ErrContentAndChildren  = pkg.NewError("node has both content and children")
	ErrUnknownInstruction  = pkg.NewError("unknown instruction")
	ErrSyntax              = pkg.NewError("syntax error")
	ErrUnterminated        = pkg.NewError("unterminated delimiter")
	ErrInvalidExpression   = pkg.NewError("invalid expression")
	ErrReadInput           = pkg.NewError("failed to read input")
	ErrUnexpectedCharacter = pkg.NewError("unexpected character")
)

// Error is the structured error type shared by every package.
type Error = pkg.Error

// ParseError reports a failure to parse one template line. It renders as
// "file:line: message" when File is known and "line N: message" otherwise.
type ParseError struct {
	File string // Template name or path, if known
	Line int    // 1-based line number
	Text string // The offending source line
	Err  error  // Underlying cause, one of the sentinel errors above
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
	}

	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ParseError) Unwrap() error { return e.Err }

// LogValue implements slog.LogValuer.
func (e *ParseError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("error", e.Err.Error()),
		slog.Int("line", e.Line),
	}

	if e.File != "" {
		attrs = append(attrs, slog.String("file", e.File))
	}

	if e.Text != "" {
		attrs = append(attrs, slog.String("text", e.Text))
	}

	return slog.GroupValue(attrs...)
}

// Snippet formats the offending line with a line-number gutter.
func (e *ParseError) Snippet() string {
	if e.Text == "" {
		return ""
	}

	return fmt.Sprintf("%4d | %s", e.Line, e.Text)
}

// Hint returns the suggestion attached to the underlying error, if any.
func (e *ParseError) Hint() string {
	var ee *Error
	if !errors.As(e.Err, &ee) {
		return ""
	}

	for _, a := range ee.Attrs() {
		if a.Key == "suggest" {
			return a.Value.String()
		}
	}

	return ""
}

// withFile returns a copy of e naming file.
func (e *ParseError) withFile(file string) *ParseError {
	c := *e
	c.File = file

	return &c
}
