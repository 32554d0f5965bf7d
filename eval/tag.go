package eval

import (
	"context"
	"log/slog"
	"reflect"
	"strings"

	"github.com/ardnew/weft/lang"
	"github.com/ardnew/weft/render"
	"github.com/ardnew/weft/scope"
)

// Listenable is implemented by output nodes that accept event listeners.
type Listenable interface {
	AddEventListener(event string, fn render.Listener)
}

// attrSetter is implemented by output nodes whose attributes can change
// in place.
type attrSetter interface {
	SetAttr(name, value string)
}

// bindEvents are the events that write an input's value back to its model.
var bindEvents = []string{"input", "change"}

type binding struct {
	attr lang.Attr
	ref  scope.Ref
	prev any
}

func (e *Evaluator) tag(ctx context.Context, n *lang.Node, sc *scope.Scope) (render.Node, error) {
	var (
		id       = n.ID
		classes  = append([]string(nil), n.Classes...)
		attrs    []render.Attr
		refs     []scope.Ref
		bindings []binding
	)

	for _, a := range n.Attrs {
		val, present := a.Value, true

		switch a.Kind {
		case lang.AttrInterpolated:
			s, r, err := interpolate(sc, a.Value)
			if err != nil {
				return nil, located(err, n)
			}

			val, refs = s, append(refs, r...)

		case lang.AttrPath:
			v, r, err := value(sc, *a.Expr)
			if err != nil {
				return nil, located(err, n)
			}

			refs = append(refs, r...)

			if a.Binding != lang.BindNone && len(r) > 0 {
				bindings = append(bindings, binding{attr: a, ref: r[0], prev: v})
			}

			// Booleans toggle presence, as for checked or disabled.
			switch b := v.(type) {
			case bool:
				val, present = "", b
			case nil:
				val, present = "", false
			default:
				val = Stringify(v)
			}
		}

		switch {
		case !present:
		case a.Name == "id":
			id = val
		case a.Name == "class":
			classes = append(classes, strings.Fields(val)...)
		default:
			attrs = append(attrs, render.Attr{Name: a.Name, Value: val})
		}
	}

	out := e.target.CreateElement(n.Name, id, classes, attrs)

	if n.Content != "" {
		s, r, err := interpolate(sc, n.Content)
		if err != nil {
			return nil, located(err, n)
		}

		refs = append(refs, r...)
		out.AppendChild(e.target.CreateTextNode(s))
	} else if err := e.children(ctx, out, n.Children, sc); err != nil {
		return nil, err
	}

	if e.target.Mode() == render.ModeInteractive {
		if l, ok := out.(Listenable); ok {
			for _, b := range bindings {
				e.bind(ctx, l, out, b)
			}

			for _, act := range n.Actions {
				l.AddEventListener(act.Event, e.action(ctx, act, sc))
			}
		}
	}

	e.watch(ctx, out, n, sc, refs)

	return out, nil
}

// bind writes input values back through b's reference, saving the owning
// model afterward for auto-save bindings.
func (e *Evaluator) bind(ctx context.Context, l Listenable, out render.Node, b binding) {
	fn := func(ev render.Event) error {
		v := coerce(b.prev, ev.Value)

		if as, ok := out.(attrSetter); ok && b.attr.Name != "id" && b.attr.Name != "class" {
			as.SetAttr(b.attr.Name, ev.Value)
		}

		if err := b.ref.Set(v); err != nil {
			return err
		}

		b.prev = v

		e.logger.TraceContext(ctx, "binding write",
			slog.String("attr", b.attr.Name),
			slog.String("key", b.ref.Key),
		)

		if b.attr.Binding == lang.BindAutoSave {
			return b.ref.Save(ctx)
		}

		return nil
	}

	for _, ev := range bindEvents {
		l.AddEventListener(ev, fn)
	}
}

var (
	eventType   = reflect.TypeFor[render.Event]()
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
	stringType  = reflect.TypeFor[string]()
)

// action returns a listener that resolves act's target and calls its
// method. The method may accept a context, the event, or the event's
// value as a string, in that order, and may return an error.
func (e *Evaluator) action(ctx context.Context, act lang.Action, sc *scope.Scope) render.Listener {
	return func(ev render.Event) error {
		res, err := sc.ResolvePath(act.Target)
		if err != nil {
			return ErrAction.Wrap(err).With(slog.String("target", act.Target))
		}

		m, ok := scope.Method(res.Value, act.Method)
		if !ok {
			return ErrMissingMethod.With(
				slog.String("target", act.Target),
				slog.String("method", act.Method),
			)
		}

		args, ok := actionArgs(ctx, m.Type(), ev)
		if !ok {
			return ErrAction.With(
				slog.String("method", act.Method),
				slog.String("signature", m.Type().String()),
			)
		}

		e.logger.DebugContext(ctx, "action",
			slog.String("event", ev.Type),
			slog.String("target", act.Target),
			slog.String("method", act.Method),
		)

		out := m.Call(args)

		if k := len(out); k > 0 && m.Type().Out(k-1) == errorType && !out[k-1].IsNil() {
			return ErrAction.Wrap(out[k-1].Interface().(error)).
				With(slog.String("method", act.Method))
		}

		return nil
	}
}

func actionArgs(ctx context.Context, t reflect.Type, ev render.Event) ([]reflect.Value, bool) {
	args := make([]reflect.Value, 0, t.NumIn())

	for i := range t.NumIn() {
		switch in := t.In(i); {
		case in == contextType:
			args = append(args, reflect.ValueOf(ctx))
		case in == eventType:
			args = append(args, reflect.ValueOf(ev))
		case in == stringType:
			args = append(args, reflect.ValueOf(ev.Value))
		default:
			return nil, false
		}
	}

	return args, true
}
