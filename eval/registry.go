package eval

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/sahilm/fuzzy"

	"github.com/ardnew/weft/lang"
	"github.com/ardnew/weft/render"
	"github.com/ardnew/weft/scope"
)

// Constructor builds a view model. Create runs off the render loop and
// may block; out is the node the view renders into and must not be
// modified by Create.
type Constructor interface {
	Create(ctx context.Context, args []any, out render.Node) (any, error)
}

// ConstructorFunc adapts a function to [Constructor].
type ConstructorFunc func(ctx context.Context, args []any, out render.Node) (any, error)

// Create calls f.
func (f ConstructorFunc) Create(ctx context.Context, args []any, out render.Node) (any, error) {
	return f(ctx, args, out)
}

// Registry maps view-model names to constructors. It is safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	views map[string]Constructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[string]Constructor)}
}

// Register binds name to c, replacing any previous binding.
func (r *Registry) Register(name string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.views[name] = c
}

// Lookup returns the constructor registered as name.
func (r *Registry) Lookup(name string) (Constructor, bool) {
	if r == nil {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.views[name]

	return c, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.views))
}

// suggest returns the closest registered name to name, if any.
func (r *Registry) suggest(name string) []slog.Attr {
	if m := fuzzy.Find(name, r.Names()); len(m) > 0 {
		return []slog.Attr{slog.String("suggest", m[0].Str)}
	}

	return nil
}

// Templates resolves imported template names to parsed templates.
type Templates interface {
	Lookup(ctx context.Context, name string) (*lang.Node, error)
}

// TemplateMap is a fixed set of parsed templates.
type TemplateMap map[string]*lang.Node

// Lookup returns the template named name.
func (m TemplateMap) Lookup(_ context.Context, name string) (*lang.Node, error) {
	if n, ok := m[name]; ok {
		return n, nil
	}

	return nil, ErrMissingTemplate.With(slog.String("template", name))
}

// Collection is a synchronous named collection iterated by its current
// values.
type Collection interface {
	Values() []any
}

// Query is an asynchronous collection. All may block; its results are
// iterated on the render loop once it returns.
type Query interface {
	All(ctx context.Context) ([]any, error)
}

// ContentKey is the scope key an import binds its caller's children to.
const ContentKey = "content"

// Slot is the caller content passed to an imported template: the caller's
// child nodes and the scope they render under.
type Slot struct {
	Nodes []*lang.Node
	Scope *scope.Scope
}
