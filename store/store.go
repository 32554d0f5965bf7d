// Package store persists model records in SQLite and exposes them to
// templates as asynchronous queries and view models.
//
// Records of every collection share one table; each row holds a record's
// attributes as a JSON document.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/ardnew/weft/log"
	"github.com/ardnew/weft/model"
	"github.com/ardnew/weft/pkg"
)

// Predefined errors (sentinel values).
var (
	ErrOpen     = pkg.NewError("open database")
	ErrMigrate  = pkg.NewError("migrate database")
	ErrNotFound = pkg.NewError("record not found")
	ErrQuery    = pkg.NewError("query records")
	ErrPersist  = pkg.NewError("persist record")
	ErrDecode   = pkg.NewError("decode record")
	ErrFilter   = pkg.NewError("invalid filter key")
	ErrArgument = pkg.NewError("missing record id")
)

// Memory is the data source name of a private in-memory database.
const Memory = ":memory:"

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its base filesystem and dialect in package state.
var migrateMu sync.Mutex

// Store is a SQLite-backed record store. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger log.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open opens the database at dsn and applies pending migrations.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	s := &Store{}

	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, ErrOpen.Wrap(err).With(slog.String("dsn", dsn))
	}

	if dsn == Memory {
		// Every connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, ErrOpen.Wrap(err).With(slog.String("dsn", dsn))
	}

	s.db = db

	if err := s.migrate(ctx); err != nil {
		_ = db.Close()

		return nil, err
	}

	s.logger.DebugContext(ctx, "store opened",
		slog.String("driver", driverName),
		slog.String("dsn", dsn),
	)

	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return ErrMigrate.Wrap(err)
	}

	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return ErrMigrate.Wrap(err)
	}

	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB { return s.db }

// Driver returns the name of the database/sql driver in use.
func (s *Store) Driver() string { return driverName }

// New returns an unsaved record of collection that persists to s.
func (s *Store) New(collection string, data map[string]any, opts ...model.Option) *model.Record {
	opts = append([]model.Option{model.WithPersister(s), model.WithLogger(s.logger)}, opts...)

	return model.New(collection, data, opts...)
}

// Persist inserts r or replaces its stored attributes. It implements
// [model.Persister].
func (s *Store) Persist(ctx context.Context, r *model.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return ErrPersist.Wrap(err).With(slog.String("id", r.ID()))
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO records (collection, id, data, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (collection, id) DO UPDATE
SET data = excluded.data, updated_at = excluded.updated_at`,
		r.Collection(), r.ID(), string(data))
	if err != nil {
		return ErrPersist.Wrap(err).With(
			slog.String("collection", r.Collection()),
			slog.String("id", r.ID()),
		)
	}

	s.logger.TraceContext(ctx, "record saved",
		slog.String("collection", r.Collection()),
		slog.String("id", r.ID()),
	)

	return nil
}

// Get loads the record of collection with the given id.
func (s *Store) Get(ctx context.Context, collection, id string) (*model.Record, error) {
	var data string

	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM records WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&data)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound.With(
			slog.String("collection", collection),
			slog.String("id", id),
		)
	case err != nil:
		return nil, ErrQuery.Wrap(err)
	}

	return s.decode(collection, id, data)
}

// Delete removes the record of collection with the given id.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return ErrQuery.Wrap(err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound.With(
			slog.String("collection", collection),
			slog.String("id", id),
		)
	}

	return nil
}

// Count returns the number of records in collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var n int

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE collection = ?`, collection,
	).Scan(&n)
	if err != nil {
		return 0, ErrQuery.Wrap(err)
	}

	return n, nil
}

func (s *Store) decode(collection, id, data string) (*model.Record, error) {
	attrs := make(map[string]any)

	if err := json.Unmarshal([]byte(data), &attrs); err != nil {
		return nil, ErrDecode.Wrap(err).With(
			slog.String("collection", collection),
			slog.String("id", id),
		)
	}

	return s.New(collection, attrs, model.WithID(id)), nil
}
