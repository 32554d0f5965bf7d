// Package profile starts and stops runtime profiling of the weft command.
//
// Profiling is compiled in only with the "pprof" build tag:
//
//	go build -tags pprof -o weft .
//	weft --pprof-mode cpu render page
//
// Without the tag every [Profiler] is a no-op and [Modes] is empty.
//
// Profiles are written to [Profiler.Dir] with names matching the mode
// (cpu.pprof, mem.pprof, ...) and are read with the usual tooling:
//
//	go tool pprof -http=: ~/.cache/weft/pprof/cpu.pprof
//
// The tagged build also registers the net/http/pprof handlers, which the
// serve command exposes under /debug/pprof/ on its router.
package profile

// Tag is the build tag required to enable profiling.
const Tag = `pprof`
