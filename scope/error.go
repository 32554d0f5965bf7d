package scope

import (
	"fmt"
	"log/slog"

	"github.com/ardnew/weft/pkg"
)

// Predefined errors (sentinel values).
var (
	ErrPathNotFound = pkg.NewError("path not found")
	ErrEmptyPath    = pkg.NewError("empty path")
	ErrNotWritable  = pkg.NewError("reference not writable")
	ErrCall         = pkg.NewError("getter failed")
)

// PathError reports a dotted path that could not be resolved.
type PathError struct {
	Path    string // The full path
	Segment string // The segment whose value was missing or failed
	Err     error
}

func (e *PathError) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("%q: %v", e.Path, e.Err)
	}

	return fmt.Sprintf("%q at %q: %v", e.Path, e.Segment, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// LogValue implements slog.LogValuer.
func (e *PathError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("error", e.Err.Error()),
		slog.String("path", e.Path),
		slog.String("segment", e.Segment),
	)
}
