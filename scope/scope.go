// Package scope resolves names and dotted paths against an ordered stack of
// layers, innermost first.
//
// A layer is any value: a [Bindable] model queried through its Get
// accessor, a map with string keys, or a struct (or pointer to one) whose
// fields and zero-argument methods are visible by name. Resolving a path
// yields the value together with a [Ref] naming the last container and key
// touched, which callers use to subscribe to changes and to write values
// back.
package scope

import (
	"context"
	"log/slog"
	"strings"
)

// Scope is an ordered sequence of layers. The zero value is an empty scope.
type Scope struct {
	layers []any
}

// New returns a scope with the given layers, outermost first.
func New(layers ...any) *Scope {
	return &Scope{layers: append([]any(nil), layers...)}
}

// AddLayer pushes obj as the new innermost layer and returns s.
func (s *Scope) AddLayer(obj any) *Scope {
	s.layers = append(s.layers, obj)

	return s
}

// Layers returns a copy of the layer list, outermost first.
func (s *Scope) Layers() []any {
	return append([]any(nil), s.layers...)
}

// Len returns the number of layers.
func (s *Scope) Len() int { return len(s.layers) }

// Clone returns a scope sharing the current layer objects but owning an
// independent list, so layers added to either afterward are not seen by
// the other.
func (s *Scope) Clone() *Scope {
	return &Scope{layers: append(make([]any, 0, len(s.layers)+1), s.layers...)}
}

// Get returns the value bound to key by the innermost layer exposing it.
func (s *Scope) Get(key string) (any, bool) {
	_, v, ok := s.find(key)

	return v, ok
}

// GetFirstRespondent returns the innermost layer exposing key.
func (s *Scope) GetFirstRespondent(key string) (any, bool) {
	layer, _, ok := s.find(key)

	return layer, ok
}

func (s *Scope) find(key string) (layer, value any, ok bool) {
	for i := len(s.layers) - 1; i >= 0; i-- {
		if v, found := lookup(s.layers[i], key); found {
			return s.layers[i], v, true
		}
	}

	return nil, nil, false
}

// innermost returns the most recently added layer, or nil.
func (s *Scope) innermost() any {
	if len(s.layers) == 0 {
		return nil
	}

	return s.layers[len(s.layers)-1]
}

// Ref identifies an attribute of a container: the object a path ended on
// and the final key looked up in it.
type Ref struct {
	Obj any
	Key string
}

// Valid reports whether r names a container.
func (r Ref) Valid() bool { return r.Obj != nil && r.Key != "" }

// Notifier returns the container as a [Notifier] if it supports change
// subscription.
func (r Ref) Notifier() (Notifier, bool) {
	n, ok := r.Obj.(Notifier)

	return n, ok
}

// Set writes value to the referenced attribute.
func (r Ref) Set(value any) error {
	if !r.Valid() {
		return ErrNotWritable.With(slog.String("key", r.Key))
	}

	if w, ok := r.Obj.(Writable); ok {
		return w.Set(r.Key, value)
	}

	return assign(r.Obj, r.Key, value)
}

// Save persists the referenced container if it supports saving.
func (r Ref) Save(ctx context.Context) error {
	if sv, ok := r.Obj.(Saver); ok {
		return sv.Save(ctx)
	}

	return nil
}

// Result is the outcome of resolving a path.
type Result struct {
	Value any
	Ref   Ref
}

// ResolvePath resolves a dotted path. The first segment is looked up in
// the scope; each later segment is looked up on the previous value.
// Zero-argument functions met along the way are called. A missing final
// segment resolves to nil; a missing intermediate value fails with a
// [*PathError].
func (s *Scope) ResolvePath(path string) (Result, error) {
	return s.Resolve(strings.Split(path, "."))
}

// Resolve is [Scope.ResolvePath] for a path already split into segments.
func (s *Scope) Resolve(segs []string) (Result, error) {
	if len(segs) == 0 || segs[0] == "" {
		return Result{}, &PathError{Path: strings.Join(segs, "."), Err: ErrEmptyPath}
	}

	layer, value, ok := s.find(segs[0])
	if !ok {
		layer = s.innermost()
	}

	value, err := call(value)
	if err != nil {
		return Result{}, &PathError{Path: strings.Join(segs, "."), Segment: segs[0], Err: err}
	}

	res := Result{Value: value, Ref: Ref{Obj: layer, Key: segs[0]}}

	for i, seg := range segs[1:] {
		if IsNil(res.Value) {
			return Result{}, &PathError{
				Path:    strings.Join(segs, "."),
				Segment: segs[i],
				Err:     ErrPathNotFound,
			}
		}

		obj := res.Value
		v, _ := lookup(obj, seg)

		v, err := call(v)
		if err != nil {
			return Result{}, &PathError{Path: strings.Join(segs, "."), Segment: seg, Err: err}
		}

		res = Result{Value: v, Ref: Ref{Obj: obj, Key: seg}}
	}

	return res, nil
}
