// Package log provides the structured logger used throughout weft. It is a
// thin layer over [log/slog] adding a Trace level, colorized text output,
// and functional options applied at construction time.
//
// # Basic Usage
//
//	logger := log.Make(os.Stderr)
//	logger.Info("render complete", slog.String("template", "index"))
//
// The zero value of [Logger] is valid and discards everything, so library
// packages accept a Logger through a WithLogger option and log
// unconditionally.
//
// # Configuration
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelTrace),
//		log.WithFormat(log.FormatText),
//		log.WithTimeLayout("kitchen"),
//		log.WithCaller(true))
//
// # Default Logger
//
// Package-level functions ([Info], [DebugContext], ...) write through a
// process-wide default logger. The CLI reconfigures it with [Config] once
// flags are parsed; [Default] returns a copy for handing to libraries.
package log
