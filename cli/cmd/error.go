package cmd

import "github.com/ardnew/weft/pkg"

// Predefined errors (sentinel values).
var (
	ErrYAMLMarshal = pkg.NewError("marshal YAML")
	ErrWriteConfig = pkg.NewError("write configuration file")
	ErrFileExists  = pkg.NewError("file exists (use --force to overwrite)")
	ErrNoTemplate  = pkg.NewError("no template name or source given")
	ErrData        = pkg.NewError("read data file")
	ErrCheck       = pkg.NewError("templates failed to parse")
	ErrSettings    = pkg.NewError("invalid server settings")
	ErrServe       = pkg.NewError("serve")
)
