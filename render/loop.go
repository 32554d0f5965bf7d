package render

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ardnew/weft/log"
)

// Loop is a single-threaded scheduler. Tasks posted to it run one at a
// time on whichever goroutine calls [Loop.Drain] or [Loop.Run]; work
// started with [Loop.Go] runs on its own goroutine and reports back by
// posting a completion task. Render nodes are only ever mutated from
// tasks, so they need no locking.
type Loop struct {
	mu       sync.Mutex
	queue    []func()
	inflight int
	err      error
	wake     chan struct{}
	logger   log.Logger
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithLoopLogger sets the logger for scheduler tracing.
func WithLoopLogger(logger log.Logger) LoopOption {
	return func(l *Loop) { l.logger = logger }
}

// NewLoop returns an idle loop.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{wake: make(chan struct{}, 1)}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Post queues fn to run after every task already queued.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	l.signal()
}

// Go runs work on a new goroutine. When it succeeds, done is posted to the
// loop; when it fails, the error is recorded and done never runs, leaving
// whatever waited on it unfinished.
func (l *Loop) Go(ctx context.Context, work func(context.Context) error, done func()) {
	l.mu.Lock()
	l.inflight++
	l.mu.Unlock()

	go func() {
		err := work(ctx)

		l.mu.Lock()
		l.inflight--

		if err != nil {
			if l.err == nil {
				l.err = err
			}
		} else {
			l.queue = append(l.queue, done)
		}
		l.mu.Unlock()

		if err != nil {
			l.logger.DebugContext(ctx, "async work failed", slog.Any("error", err))
		}

		l.signal()
	}()
}

// Fail records err as the loop's failure unless one is already recorded.
func (l *Loop) Fail(err error) {
	if err == nil {
		return
	}

	l.mu.Lock()
	first := l.err == nil
	if first {
		l.err = err
	}
	l.mu.Unlock()

	if !first {
		l.logger.Debug("dropped later failure", slog.Any("error", err))
	}

	l.signal()
}

// Err returns the first recorded failure.
func (l *Loop) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.err
}

// Idle reports whether nothing is queued or in flight.
func (l *Loop) Idle() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.queue) == 0 && l.inflight == 0
}

// Drain runs queued tasks, including those they post, until the queue is
// empty. It returns the number of tasks run and never waits for work
// started with [Loop.Go].
func (l *Loop) Drain() int {
	n := 0

	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()

			return n
		}

		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		fn()
		n++
	}
}

// Run drains the loop until it is idle, a failure is recorded, or ctx is
// done. It returns the first failure, or the context's cause.
func (l *Loop) Run(ctx context.Context) error {
	for {
		n := l.Drain()

		l.mu.Lock()
		err, idle := l.err, len(l.queue) == 0 && l.inflight == 0
		inflight := l.inflight
		l.mu.Unlock()

		l.logger.TraceContext(ctx, "loop pass",
			slog.Int("tasks", n),
			slog.Int("inflight", inflight),
		)

		switch {
		case err != nil:
			return err
		case idle:
			return nil
		}

		select {
		case <-l.wake:
		case <-ctx.Done():
			return context.Cause(ctx)
		}
	}
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
