package store

import (
	"context"
	"log/slog"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/ardnew/weft/model"
)

// Seed saves n records of fake people to collection. The same seed always
// produces the same records.
func (s *Store) Seed(ctx context.Context, collection string, n int, seed uint64) ([]*model.Record, error) {
	f := gofakeit.New(seed)

	out := make([]*model.Record, 0, n)

	for range n {
		r := s.New(collection, map[string]any{
			"name":    f.Name(),
			"email":   f.Email(),
			"company": f.Company(),
			"city":    f.City(),
			"age":     f.Number(18, 90),
			"active":  f.Bool(),
		}, model.WithID(f.UUID()))

		if err := r.Save(ctx); err != nil {
			return out, err
		}

		out = append(out, r)
	}

	s.logger.DebugContext(ctx, "seeded",
		slog.String("collection", collection),
		slog.Int("records", len(out)),
	)

	return out, nil
}
