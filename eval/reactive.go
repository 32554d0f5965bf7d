package eval

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/ardnew/weft/lang"
	"github.com/ardnew/weft/render"
	"github.com/ardnew/weft/scope"
)

// watch subscribes out to the next change of each reference it was
// rendered from. Only interactive targets are kept up to date.
//
// Subscriptions are one-shot: the first change re-renders out, and the
// replacement subscribes afresh. A change that reaches a node already
// replaced is dropped.
func (e *Evaluator) watch(
	ctx context.Context,
	out render.Node,
	src *lang.Node,
	sc *scope.Scope,
	refs []scope.Ref,
) {
	if e.target.Mode() != render.ModeInteractive || len(refs) == 0 {
		return
	}

	meta := out.Meta()
	meta.Bind(src, sc)

	type key struct {
		obj any
		key string
	}

	seen := make(map[key]bool, len(refs))

	for _, ref := range refs {
		n, ok := ref.Notifier()
		if !ok {
			continue
		}

		if reflect.TypeOf(ref.Obj).Comparable() {
			k := key{ref.Obj, ref.Key}
			if seen[k] {
				continue
			}

			seen[k] = true
		}

		sub := n.Once(scope.Event(scope.ActionChange, ref.Key), func(ch scope.Change) {
			e.invalidate(ctx, out, ch)
		})

		meta.Track(sub)
	}
}

// invalidate re-renders out after ch. The subscriptions of out and its
// descendants are withdrawn on the loop once the current notification
// has been delivered.
func (e *Evaluator) invalidate(ctx context.Context, out render.Node, ch scope.Change) {
	meta := out.Meta()

	if meta.Released() {
		// TODO: coalesce changes that arrive while a replacement is
		// still evaluating asynchronous children; they are dropped here.
		e.logger.DebugContext(ctx, "change dropped by replaced node",
			slog.String("key", ch.Key),
			slog.Any("value", ch.Value),
		)

		return
	}

	subs := release(out)

	e.loop.Post(func() {
		for _, s := range subs {
			s.Off()
		}
	})

	e.logger.TraceContext(ctx, "re-render",
		slog.String("key", ch.Key),
		slog.String("node", meta.Source.String()),
	)

	repl, err := e.evaluate(ctx, meta.Source, meta.Scope)
	if err == nil {
		err = out.ReplaceWith(repl)
	}

	if err != nil {
		e.logger.ErrorContext(ctx, "re-render failed", slog.Any("error", err))
		e.loop.Fail(err)
	}
}

// release marks n and its descendants replaced and returns every
// subscription they held.
func release(n render.Node) []scope.Subscription {
	var subs []scope.Subscription

	render.Walk(n, func(c render.Node) {
		subs = append(subs, c.Meta().Release()...)
	})

	return subs
}
