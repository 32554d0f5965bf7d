package eval

import (
	"context"
	"log/slog"

	"github.com/ardnew/weft/lang"
	"github.com/ardnew/weft/render"
	"github.com/ardnew/weft/scope"
)

// Every statement renders into a fragment of its own, so that the
// statement's output can be replaced or completed later without
// disturbing its siblings.
func (e *Evaluator) statement(ctx context.Context, n *lang.Node, sc *scope.Scope) (render.Node, error) {
	e.logger.TraceContext(ctx, "statement",
		slog.String("keyword", n.Keyword.String()),
		slog.Int("line", n.Line),
	)

	out := e.target.CreateFragment()

	var err error

	switch n.Keyword {
	case lang.KeywordIf, lang.KeywordIfGreater, lang.KeywordIfEqual, lang.KeywordIfNotEqual:
		err = e.conditional(ctx, out, n, sc)
	case lang.KeywordFor:
		err = e.each(ctx, out, n, sc)
	case lang.KeywordView:
		err = e.view(ctx, out, n, sc)
	case lang.KeywordImport:
		err = e.imports(ctx, out, n, sc)
	case lang.KeywordContent:
		err = e.content(ctx, out, n, sc)
	case lang.KeywordClient:
		if e.target.Mode() == render.ModeInteractive {
			err = e.children(ctx, out, n.Children, sc)
		}
	default:
		err = lang.ErrUnknownInstruction.With(slog.String("keyword", n.Keyword.String()))
	}

	if err != nil {
		return nil, located(err, n)
	}

	return out, nil
}

func (e *Evaluator) conditional(ctx context.Context, out render.Node, n *lang.Node, sc *scope.Scope) error {
	args, refs, err := values(sc, n.Args)
	if err != nil {
		return err
	}

	var ok bool

	switch n.Keyword {
	case lang.KeywordIf:
		ok = Truthy(args[0])
	case lang.KeywordIfGreater:
		ok = Greater(args[0], args[1])
	case lang.KeywordIfEqual:
		ok = Equal(args[0], args[1])
	case lang.KeywordIfNotEqual:
		ok = !Equal(args[0], args[1])
	}

	if ok {
		if err := e.children(ctx, out, n.Children, sc); err != nil {
			return err
		}
	}

	e.watch(ctx, out, n, sc, refs)

	return nil
}

func (e *Evaluator) each(ctx context.Context, out render.Node, n *lang.Node, sc *scope.Scope) error {
	v, refs, err := value(sc, n.Args[0])
	if err != nil {
		return err
	}

	e.watch(ctx, out, n, sc, refs)

	if q, ok := v.(Query); ok {
		var items []any

		e.async(ctx, out,
			func(ctx context.Context) (err error) {
				items, err = q.All(ctx)

				return err
			},
			func() error { return e.iterate(ctx, out, n, sc, items) },
		)

		return nil
	}

	items, err := Iterate(v)
	if err != nil {
		return err
	}

	return e.iterate(ctx, out, n, sc, items)
}

// iterate renders n's children once per item, each pass into a fragment
// of its own under a scope with the item as its innermost layer, bound
// to the loop variable when one is named.
func (e *Evaluator) iterate(
	ctx context.Context,
	out render.Node,
	n *lang.Node,
	sc *scope.Scope,
	items []any,
) error {
	for _, item := range items {
		layer := item
		if n.Var != "" {
			layer = map[string]any{n.Var: item}
		}

		pass := e.target.CreateFragment()
		if err := e.children(ctx, pass, n.Children, sc.Clone().AddLayer(layer)); err != nil {
			return err
		}

		out.AppendChild(pass)
	}

	return nil
}

func (e *Evaluator) view(ctx context.Context, out render.Node, n *lang.Node, sc *scope.Scope) error {
	if n.Name == "" {
		return e.children(ctx, out, n.Children, sc)
	}

	ctor, ok := e.views.Lookup(n.Name)
	if !ok {
		if !n.Optional {
			return ErrMissingViewModel.With(slog.String("view", n.Name)).
				With(e.views.suggest(n.Name)...)
		}

		e.logger.WarnContext(ctx, "optional view model not registered",
			slog.String("view", n.Name),
			slog.Int("line", n.Line),
		)

		return e.children(ctx, out, n.Children, sc)
	}

	args, refs, err := values(sc, n.Args)
	if err != nil {
		return err
	}

	var model any

	e.async(ctx, out,
		func(ctx context.Context) (err error) {
			model, err = ctor.Create(ctx, args, out)
			if err != nil {
				return ErrRender.Wrap(err).With(
					slog.String("view", n.Name),
					slog.Int("line", n.Line),
				)
			}

			return nil
		},
		func() error {
			vsc := sc.Clone()
			if model != nil {
				vsc.AddLayer(model)
			}

			return e.children(ctx, out, n.Children, vsc)
		},
	)

	// The constructor ran with these arguments, so a change to any of
	// them rebuilds the view model.
	e.watch(ctx, out, n, sc, refs)

	return nil
}

type depthKey struct{}

func importDepth(ctx context.Context) int {
	d, _ := ctx.Value(depthKey{}).(int)

	return d
}

func (e *Evaluator) imports(ctx context.Context, out render.Node, n *lang.Node, sc *scope.Scope) error {
	depth := importDepth(ctx) + 1
	if depth > MaxImportDepth {
		return ErrImportDepth.With(slog.String("template", n.Name))
	}

	tpl, err := e.templates.Lookup(ctx, n.Name)
	if err != nil {
		return err
	}

	params := make(map[string]any, len(n.Params)+1)
	params[ContentKey] = &Slot{Nodes: n.Children, Scope: sc}

	var refs []scope.Ref

	for _, p := range n.Params {
		v, r, err := value(sc, p.Value)
		if err != nil {
			return err
		}

		params[p.Name] = v
		refs = append(refs, r...)
	}

	body, err := e.evaluate(context.WithValue(ctx, depthKey{}, depth), tpl, scope.New(params))
	if err != nil {
		return err
	}

	out.AppendChild(body)
	e.watch(ctx, out, n, sc, refs)

	return nil
}

func (e *Evaluator) content(ctx context.Context, out render.Node, n *lang.Node, sc *scope.Scope) error {
	v, _ := sc.Get(ContentKey)

	slot, ok := v.(*Slot)
	if !ok {
		e.logger.WarnContext(ctx, "content outside an import",
			slog.Any("error", ErrMissingContent),
			slog.Int("line", n.Line),
		)

		return nil
	}

	return e.children(ctx, out, slot.Nodes, slot.Scope)
}
