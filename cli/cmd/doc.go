// Package cmd implements the weft subcommands.
//
// Every command receives the shared [Globals] flags and builds its template
// library, engine and optional record store from them. Output goes to the
// writers of the running [kong.Context] so commands can be driven from
// tests with in-memory buffers.
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path
	// to the configuration file written by [Init].
	ConfigIdentifier = "config"

	// DatabaseIdentifier is the kong variable identifier containing the
	// default record store data source name.
	DatabaseIdentifier = "db"
)
