package eval

import "github.com/ardnew/weft/pkg"

// Predefined errors (sentinel values).
var (
	ErrMissingViewModel = pkg.NewError("view model not registered")
	ErrMissingTemplate  = pkg.NewError("template not found")
	ErrMissingContent   = pkg.NewError("no content bound")
	ErrMissingMethod    = pkg.NewError("action method not found")
	ErrNotIterable      = pkg.NewError("value is not iterable")
	ErrImportDepth      = pkg.NewError("import nesting too deep")
	ErrUnknownNode      = pkg.NewError("unknown node kind")
	ErrAction           = pkg.NewError("action failed")
	ErrRender           = pkg.NewError("render failed")
)
