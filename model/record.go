// Package model provides Record, an observable key-value data model that
// satisfies every scope capability: it can be read, written, watched for
// changes, and saved.
package model

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ardnew/weft/log"
	"github.com/ardnew/weft/pkg"
	"github.com/ardnew/weft/scope"
)

// Predefined errors (sentinel values).
var (
	ErrNoPersister = pkg.NewError("record has no persister")
	ErrSave        = pkg.NewError("save record")
)

// Persister stores a record. Implementations may block.
type Persister interface {
	Persist(ctx context.Context, r *Record) error
}

// PersisterFunc adapts a function to [Persister].
type PersisterFunc func(ctx context.Context, r *Record) error

// Persist calls f.
func (f PersisterFunc) Persist(ctx context.Context, r *Record) error { return f(ctx, r) }

// Record is a named collection of attributes published to subscribers as
// they change. Handlers run synchronously on the goroutine calling
// [Record.Set], after the record's lock is released.
type Record struct {
	id         string
	collection string
	persister  Persister
	logger     log.Logger

	mu       sync.Mutex
	data     map[string]any
	handlers map[string][]*subscription
}

// Option configures a Record.
type Option func(*Record)

// WithID sets the record identifier. By default a random UUID is used.
func WithID(id string) Option {
	return func(r *Record) { r.id = id }
}

// WithPersister sets the store used by [Record.Save].
func WithPersister(p Persister) Option {
	return func(r *Record) { r.persister = p }
}

// WithLogger sets the logger for change tracing.
func WithLogger(logger log.Logger) Option {
	return func(r *Record) { r.logger = logger }
}

// New returns a record of collection holding a copy of data.
func New(collection string, data map[string]any, opts ...Option) *Record {
	r := &Record{
		collection: collection,
		data:       maps.Clone(data),
		handlers:   make(map[string][]*subscription),
	}

	if r.data == nil {
		r.data = make(map[string]any)
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.id == "" {
		r.id = uuid.NewString()
	}

	return r
}

// ID returns the record identifier.
func (r *Record) ID() string { return r.id }

// Collection returns the name of the collection r belongs to.
func (r *Record) Collection() string { return r.collection }

// Get returns the value of key. The pseudo-key "id" yields the identifier
// unless data defines it.
func (r *Record) Get(key string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.data[key]
	if !ok && key == "id" {
		return r.id, true
	}

	return v, ok
}

// Data returns a shallow copy of the attributes.
func (r *Record) Data() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	return maps.Clone(r.data)
}

// Keys returns the attribute names in sorted order.
func (r *Record) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Sorted(maps.Keys(r.data))
}

// Set assigns value to key and publishes "change" and "change:key" to
// subscribers when the value differs from the previous one.
func (r *Record) Set(key string, value any) error {
	r.mu.Lock()

	prev, had := r.data[key]
	if had && reflect.DeepEqual(prev, value) {
		r.mu.Unlock()

		return nil
	}

	r.data[key] = value
	r.mu.Unlock()

	r.emit(scope.Change{
		Action:   scope.ActionChange,
		Key:      key,
		Value:    value,
		Previous: prev,
	})

	return nil
}

// Save hands r to its persister.
func (r *Record) Save(ctx context.Context) error {
	if r.persister == nil {
		return ErrNoPersister.With(slog.String("id", r.id))
	}

	if err := r.persister.Persist(ctx, r); err != nil {
		return ErrSave.Wrap(err).With(
			slog.String("collection", r.collection),
			slog.String("id", r.id),
		)
	}

	return nil
}

// MarshalJSON encodes the attributes.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Data())
}

// LogValue implements slog.LogValuer.
func (r *Record) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("collection", r.collection),
		slog.String("id", r.id),
		slog.String("keys", strings.Join(r.Keys(), ",")),
	)
}
