package profile

// Stopper stops a running profiler.
type Stopper interface{ Stop() }

// Profiler configures one profiling session.
type Profiler struct {
	Mode  string // One of [Modes]; empty disables profiling
	Dir   string // Output directory
	Quiet bool   // Suppress the profiler's own log output
}

// Start begins profiling and returns the handle that ends it. Unknown or
// empty modes, and builds without the pprof tag, return a no-op Stopper.
// Both Start and Stop are always safe to call.
func (p Profiler) Start() Stopper {
	if p.Mode == "" {
		return ignore{}
	}

	return start(p)
}

// Enabled reports whether mode names a supported profiling mode.
func Enabled(mode string) bool {
	for _, m := range Modes() {
		if m == mode {
			return true
		}
	}

	return false
}

type ignore struct{}

func (ignore) Stop() {}
