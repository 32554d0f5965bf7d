package render

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoop_PostRunsInOrder(t *testing.T) {
	l := NewLoop()

	var got []int

	l.Post(func() {
		got = append(got, 1)
		l.Post(func() { got = append(got, 3) })
	})
	l.Post(func() { got = append(got, 2) })

	if n := l.Drain(); n != 3 {
		t.Errorf("expected 3 tasks, got %d", n)
	}

	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("unexpected order: %v", got)
	}

	if !l.Idle() {
		t.Error("expected idle loop after drain")
	}
}

func TestLoop_GoCompletesOnLoop(t *testing.T) {
	l := NewLoop()

	var result, seen string

	l.Go(t.Context(), func(context.Context) error {
		result = "ready"

		return nil
	}, func() { seen = result })

	if err := l.Run(t.Context()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if seen != "ready" {
		t.Errorf("expected completion to observe work result, got %q", seen)
	}
}

func TestLoop_GoFailureStopsRun(t *testing.T) {
	l := NewLoop()
	boom := errors.New("boom")

	ran := false

	l.Go(t.Context(), func(context.Context) error { return boom }, func() { ran = true })

	if err := l.Run(t.Context()); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}

	if ran {
		t.Error("completion ran after failed work")
	}
}

func TestLoop_RunHonorsContext(t *testing.T) {
	l := NewLoop()
	release := make(chan struct{})

	defer close(release)

	l.Go(t.Context(), func(context.Context) error {
		<-release

		return nil
	}, func() {})

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	if err := l.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
