package model

import (
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/ardnew/weft/scope"
)

// subscription is one handler registered on a Record.
type subscription struct {
	rec   *Record
	event string
	fn    scope.Handler
	once  bool
	done  atomic.Bool
}

// Off withdraws the handler. It is safe to call more than once and from
// inside a handler.
func (s *subscription) Off() {
	s.done.Store(true)
	s.rec.remove(s)
}

// On registers fn for every event named event, either an action such as
// "change" or an action with a key such as "change:title".
func (r *Record) On(event string, fn scope.Handler) scope.Subscription {
	return r.add(event, fn, false)
}

// Once registers fn for the next event named event only.
func (r *Record) Once(event string, fn scope.Handler) scope.Subscription {
	return r.add(event, fn, true)
}

// Off removes every handler for event, or every handler when event is
// empty.
func (r *Record) Off(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for ev, subs := range r.handlers {
		if event != "" && ev != event {
			continue
		}

		for _, s := range subs {
			s.done.Store(true)
		}

		delete(r.handlers, ev)
	}
}

// Subscribers returns the number of handlers registered for event, or for
// all events when event is empty.
func (r *Record) Subscribers(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event != "" {
		return len(r.handlers[event])
	}

	n := 0
	for _, subs := range r.handlers {
		n += len(subs)
	}

	return n
}

func (r *Record) add(event string, fn scope.Handler, once bool) *subscription {
	s := &subscription{rec: r, event: event, fn: fn, once: once}

	r.mu.Lock()
	r.handlers[event] = append(r.handlers[event], s)
	r.mu.Unlock()

	return s
}

func (r *Record) remove(s *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := slices.DeleteFunc(slices.Clone(r.handlers[s.event]),
		func(x *subscription) bool { return x == s })

	if len(subs) == 0 {
		delete(r.handlers, s.event)
	} else {
		r.handlers[s.event] = subs
	}
}

// emit delivers ch to "action:key" handlers, then to "action" handlers.
// Each list is snapshotted so handlers may subscribe or unsubscribe while
// it is delivered.
func (r *Record) emit(ch scope.Change) {
	for _, event := range []string{scope.Event(ch.Action, ch.Key), ch.Action} {
		r.mu.Lock()
		snapshot := slices.Clone(r.handlers[event])

		if kept := slices.DeleteFunc(slices.Clone(snapshot),
			func(s *subscription) bool { return s.once }); len(kept) == 0 {
			delete(r.handlers, event)
		} else {
			r.handlers[event] = kept
		}
		r.mu.Unlock()

		r.logger.Trace("emit",
			slog.String("event", event),
			slog.String("id", r.id),
			slog.Int("handlers", len(snapshot)),
		)

		for _, s := range snapshot {
			if s.once {
				if !s.done.CompareAndSwap(false, true) {
					continue
				}
			} else if s.done.Load() {
				continue
			}

			s.fn(ch)
		}
	}
}
