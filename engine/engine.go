// Package engine renders named templates to markup, to a chunk stream, or
// to a live interactive tree.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/ardnew/weft/eval"
	"github.com/ardnew/weft/lang"
	"github.com/ardnew/weft/log"
	"github.com/ardnew/weft/pkg"
	"github.com/ardnew/weft/render"
	"github.com/ardnew/weft/scope"
)

// Predefined errors (sentinel values).
var (
	ErrTimeout    = pkg.NewError("render timed out")
	ErrIncomplete = pkg.NewError("stream ended before eof")
)

// Engine renders templates from one template source with one set of view
// models. Each render gets its own target and loop, so an Engine is safe
// for concurrent use.
type Engine struct {
	templates eval.Templates
	views     *eval.Registry
	logger    log.Logger
	minify    bool
	timeout   time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithTemplates sets the template source.
func WithTemplates(t eval.Templates) Option {
	return func(e *Engine) { e.templates = t }
}

// WithViews sets the view-model registry.
func WithViews(r *eval.Registry) Option {
	return func(e *Engine) { e.views = r }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMinify minifies markup rendered to a string.
func WithMinify(enable bool) Option {
	return func(e *Engine) { e.minify = enable }
}

// WithTimeout bounds each render; zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// New returns an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		templates: eval.TemplateMap{},
		views:     eval.NewRegistry(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Views returns the view-model registry.
func (e *Engine) Views() *eval.Registry { return e.views }

// Register binds a view-model constructor to name.
func (e *Engine) Register(name string, c eval.Constructor) {
	e.views.Register(name, c)
}

// Template returns the parsed template named name.
func (e *Engine) Template(ctx context.Context, name string) (*lang.Node, error) {
	return e.templates.Lookup(ctx, name)
}

func (e *Engine) evaluator(target render.Target, loop *render.Loop) *eval.Evaluator {
	return eval.New(target, loop,
		eval.WithViews(e.views),
		eval.WithTemplates(e.templates),
		eval.WithLogger(e.logger),
	)
}

func (e *Engine) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeoutCause(ctx, e.timeout,
		ErrTimeout.With(slog.Duration("timeout", e.timeout)))
}

// RenderString renders template name to markup once every asynchronous
// part has completed. Layers are the scope, outermost first.
func (e *Engine) RenderString(ctx context.Context, name string, layers ...any) (string, error) {
	tpl, err := e.Template(ctx, name)
	if err != nil {
		return "", err
	}

	return e.RenderNodeString(ctx, tpl, layers...)
}

// RenderNodeString is [Engine.RenderString] for a parsed template.
func (e *Engine) RenderNodeString(ctx context.Context, tpl *lang.Node, layers ...any) (string, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()

	start := time.Now()
	loop := render.NewLoop(render.WithLoopLogger(e.logger))
	st := render.NewStatic(render.WithMinify(e.minify))

	out, err := e.evaluator(st, loop).Evaluate(ctx, tpl, scope.New(layers...))
	if err != nil {
		return "", err
	}

	if err := loop.Run(ctx); err != nil {
		return "", err
	}

	st.Mount(out)
	s := st.String()

	e.logger.DebugContext(ctx, "rendered",
		slog.String("mode", st.Mode().String()),
		slog.Int("bytes", len(s)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return s, nil
}

// RenderStream renders template name to sink in document order, emitting
// each part as soon as it and everything before it is ready. The final
// chunk has EOF set.
func (e *Engine) RenderStream(ctx context.Context, name string, sink render.Sink, layers ...any) error {
	tpl, err := e.Template(ctx, name)
	if err != nil {
		return err
	}

	return e.RenderNodeStream(ctx, tpl, sink, layers...)
}

// RenderNodeStream is [Engine.RenderStream] for a parsed template.
func (e *Engine) RenderNodeStream(ctx context.Context, tpl *lang.Node, sink render.Sink, layers ...any) error {
	ctx, cancel := e.bound(ctx)
	defer cancel()

	loop := render.NewLoop(render.WithLoopLogger(e.logger))
	s := render.NewStream(loop, render.WithStreamLogger(e.logger))

	out, err := e.evaluator(s, loop).Evaluate(ctx, tpl, scope.New(layers...))
	if err != nil {
		return err
	}

	if err := s.Render(out, sink); err != nil {
		return err
	}

	if err := loop.Run(ctx); err != nil {
		return err
	}

	if !s.Done() {
		return ErrIncomplete.With(slog.Int("pending", s.Pending()))
	}

	return nil
}

// Live is a mounted interactive tree. Changes to its data made outside
// [Live.Dispatch] should go through [Live.Update], which runs the
// re-renders and releases they schedule.
type Live struct {
	DOM  *render.DOM
	Loop *render.Loop

	engine *Engine
}

// Dispatch delivers an event to the element with the given id.
func (l *Live) Dispatch(id string, ev render.Event) error {
	n := l.DOM.Root().FindByID(id)
	if n == nil {
		return render.ErrDetached.With(slog.String("id", id))
	}

	return l.DOM.Dispatch(n, ev)
}

// Update calls fn, which typically writes to models the tree was rendered
// from, and then runs the loop until every resulting re-render has
// completed and every replaced subscription has been withdrawn.
func (l *Live) Update(ctx context.Context, fn func() error) error {
	err := fn()

	rctx, cancel := l.engine.bound(ctx)
	defer cancel()

	if rerr := l.Loop.Run(rctx); err == nil {
		err = rerr
	}

	return err
}

// String renders the current tree.
func (l *Live) String() string { return l.DOM.Root().String() }

// Mount renders template name into a live tree that re-renders the parts
// whose data changes and dispatches events to actions and bindings.
func (e *Engine) Mount(ctx context.Context, name string, layers ...any) (*Live, error) {
	tpl, err := e.Template(ctx, name)
	if err != nil {
		return nil, err
	}

	loop := render.NewLoop(render.WithLoopLogger(e.logger))
	d := render.NewDOM(loop)

	out, err := e.evaluator(d, loop).Evaluate(ctx, tpl, scope.New(layers...))
	if err != nil {
		return nil, err
	}

	d.Mount(out)

	rctx, cancel := e.bound(ctx)
	defer cancel()

	if err := loop.Run(rctx); err != nil {
		return nil, err
	}

	return &Live{DOM: d, Loop: loop, engine: e}, nil
}
