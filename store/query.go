package store

import (
	"context"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/ardnew/weft/eval"
	"github.com/ardnew/weft/model"
	"github.com/ardnew/weft/pkg"
	"github.com/ardnew/weft/render"
)

// filterKey restricts filter keys to plain attribute names.
var filterKey = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Query selects the records of one collection whose attributes equal
// every value in its filter. It implements [eval.Query], so templates
// iterate it asynchronously.
type Query struct {
	store      *Store
	collection string
	where      map[string]any
	limit      int
}

// Find returns a query over collection.
func (s *Store) Find(collection string) *Query {
	return &Query{store: s, collection: collection, where: map[string]any{}}
}

// Where adds the condition key = value and returns q.
func (q *Query) Where(key string, value any) *Query {
	q.where[key] = value

	return q
}

// Limit caps the number of records returned; zero means no limit.
func (q *Query) Limit(n int) *Query {
	q.limit = n

	return q
}

// Records runs the query. Records are ordered by id.
func (q *Query) Records(ctx context.Context) ([]*model.Record, error) {
	var (
		sb   strings.Builder
		args = []any{q.collection}
	)

	sb.WriteString(`SELECT id, data FROM records WHERE collection = ?`)

	for _, key := range slices.Sorted(maps.Keys(q.where)) {
		if !filterKey.MatchString(key) {
			return nil, ErrFilter.With(slog.String("key", key))
		}

		sb.WriteString(` AND json_extract(data, ?) = ?`)
		args = append(args, "$."+key, sqlValue(q.where[key]))
	}

	sb.WriteString(` ORDER BY id`)

	if q.limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.limit)
	}

	rows, err := q.store.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, ErrQuery.Wrap(err).With(slog.String("collection", q.collection))
	}
	defer rows.Close()

	var out []*model.Record

	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, ErrQuery.Wrap(err)
		}

		r, err := q.store.decode(q.collection, id, data)
		if err != nil {
			return nil, err
		}

		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, ErrQuery.Wrap(err)
	}

	q.store.logger.TraceContext(ctx, "query",
		slog.String("collection", q.collection),
		slog.Int("filters", len(q.where)),
		slog.Int("records", len(out)),
	)

	return out, nil
}

// All runs the query and returns its records as template values.
func (q *Query) All(ctx context.Context) ([]any, error) {
	recs, err := q.Records(ctx)
	if err != nil {
		return nil, err
	}

	return slices.Collect(pkg.AnyValues(recs...)), nil
}

// sqlValue converts a filter value to the form json_extract yields.
func sqlValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}

		return 0
	}

	return v
}

// Loader returns a view-model constructor that loads the record of
// collection whose id is the view's first argument.
func (s *Store) Loader(collection string) eval.Constructor {
	return eval.ConstructorFunc(func(ctx context.Context, args []any, _ render.Node) (any, error) {
		if len(args) == 0 {
			return nil, ErrArgument.With(slog.String("collection", collection))
		}

		return s.Get(ctx, collection, eval.Stringify(args[0]))
	})
}

// Lister returns a view-model constructor exposing every record of
// collection as the query "records".
func (s *Store) Lister(collection string) eval.Constructor {
	return eval.ConstructorFunc(func(context.Context, []any, render.Node) (any, error) {
		return map[string]any{"records": s.Find(collection)}, nil
	})
}
