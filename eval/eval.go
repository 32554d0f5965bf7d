package eval

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ardnew/weft/lang"
	"github.com/ardnew/weft/log"
	"github.com/ardnew/weft/render"
	"github.com/ardnew/weft/scope"
)

// MaxImportDepth bounds how deeply imports may nest.
const MaxImportDepth = 32

// Evaluator renders parsed templates into one [render.Target]. An
// Evaluator belongs to a single render: its target and loop carry that
// render's state, and its methods must only be called from the loop.
type Evaluator struct {
	target    render.Target
	loop      *render.Loop
	views     *Registry
	templates Templates
	logger    log.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithViews sets the view-model registry.
func WithViews(r *Registry) Option {
	return func(e *Evaluator) { e.views = r }
}

// WithTemplates sets the source of imported templates.
func WithTemplates(t Templates) Option {
	return func(e *Evaluator) { e.templates = t }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(e *Evaluator) { e.logger = logger }
}

// New returns an Evaluator rendering into target. Asynchronous work and
// deferred cleanup are scheduled on loop.
func New(target render.Target, loop *render.Loop, opts ...Option) *Evaluator {
	e := &Evaluator{
		target:    target,
		loop:      loop,
		views:     NewRegistry(),
		templates: TemplateMap{},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Target returns the target e renders into.
func (e *Evaluator) Target() render.Target { return e.target }

// Loop returns the loop e schedules work on.
func (e *Evaluator) Loop() *render.Loop { return e.loop }

// Evaluate renders node under sc and returns the output node. Subtrees
// waiting on asynchronous work are left unfinished and complete as the
// loop runs.
func (e *Evaluator) Evaluate(ctx context.Context, node *lang.Node, sc *scope.Scope) (render.Node, error) {
	if sc == nil {
		sc = scope.New()
	}

	return e.evaluate(ctx, node, sc)
}

func (e *Evaluator) evaluate(ctx context.Context, n *lang.Node, sc *scope.Scope) (render.Node, error) {
	var (
		out render.Node
		err error
	)

	switch n.Kind {
	case lang.KindTop:
		out = e.target.CreateFragment()
		err = e.children(ctx, out, n.Children, sc)

	case lang.KindText:
		out, err = e.text(ctx, n, sc)

	case lang.KindTag:
		out, err = e.tag(ctx, n, sc)

	case lang.KindStatement:
		out, err = e.statement(ctx, n, sc)

	default:
		return nil, ErrUnknownNode.With(slog.String("kind", n.Kind.String()))
	}

	if err != nil {
		return nil, err
	}

	out.Meta().Bind(n, sc)

	return out, nil
}

// children evaluates nodes under sc and appends each result to parent.
func (e *Evaluator) children(
	ctx context.Context,
	parent render.Node,
	nodes []*lang.Node,
	sc *scope.Scope,
) error {
	for _, c := range nodes {
		out, err := e.evaluate(ctx, c, sc)
		if err != nil {
			return err
		}

		parent.AppendChild(out)
	}

	return nil
}

func (e *Evaluator) text(ctx context.Context, n *lang.Node, sc *scope.Scope) (render.Node, error) {
	s, refs, err := interpolate(sc, n.Content)
	if err != nil {
		return nil, located(err, n)
	}

	out := e.target.CreateTextNode(s)
	e.watch(ctx, out, n, sc, refs)

	return out, nil
}

// async runs work off the loop with out left unfinished, then calls done
// on the loop. An error from done fails the loop.
func (e *Evaluator) async(
	ctx context.Context,
	out render.Node,
	work func(context.Context) error,
	done func() error,
) {
	out.Unfinish()

	e.loop.Go(ctx, work, func() {
		if err := done(); err != nil {
			e.logger.ErrorContext(ctx, "async render failed", slog.Any("error", err))
			e.loop.Fail(err)

			return
		}

		out.Finish()
	})
}

// located attaches the source line of n to err, once.
func located(err error, n *lang.Node) error {
	if errors.Is(err, ErrRender) {
		return err
	}

	return ErrRender.Wrap(err).With(
		slog.Int("line", n.Line),
		slog.String("node", n.String()),
	)
}
