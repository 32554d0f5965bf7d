// Package cli contains the command line interface for weft.
//
// # Usage
//
//	weft [flags] [render] NAME       render template NAME to stdout
//	weft render --stream NAME        emit each part as soon as it is ready
//	weft ast --format json NAME      print the syntax tree
//	weft check                       parse every template on the search path
//	weft serve --addr :8080          serve pages and chunk streams over HTTP
//	weft seed people -n 20           fill a record collection with fake data
//	weft init                        write the current flags to the config file
//
// Templates are looked up by name in the --path directories and then in
// the directories listed in WEFT_PATH. With no name, render and ast read
// the --source files (or stdin for "-").
//
// Render data comes from a YAML or JSON --data file. Database-backed view
// models are registered with --view NAME=COLLECTION (every record) and
// --record NAME=COLLECTION (one record by id, the view's first argument),
// reading the SQLite store named by --db.
//
// # Configuration
//
// Flags may be set in $XDG_CONFIG_HOME/weft/config.yaml (or config.json),
// either at the top level or under a "weft" key. Flag names may use
// hyphens or underscores:
//
//	log-level: debug
//	path: [./templates]
//	view: {people: people}
//
// Command-line flags override config file values.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (json, text)
//   - --log-time-layout: Set timestamp format (RFC3339, Kitchen, ...)
//   - --log-caller: Include caller information in log output
//   - --log-pretty: Colorize text output
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o weft .
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory (default:
//     ~/.cache/weft/pprof)
package cli
