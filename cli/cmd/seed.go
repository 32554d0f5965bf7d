package cmd

import (
	"context"
	"fmt"
)

// Seed fills a collection of the record store with fake people and prints
// the id of each new record.
type Seed struct {
	Collection string `arg:""        help:"Collection to fill"`
	Count      int    `default:"10"  help:"Number of records"                           short:"n"`
	Seed       uint64 `default:"1"   help:"Random seed; equal seeds yield equal records"`
}

// Run executes the seed command.
func (s *Seed) Run(ctx context.Context, g *Globals) (err error) {
	st, err := g.open(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := st.Close(); err == nil {
			err = cerr
		}
	}()

	recs, err := st.Seed(ctx, s.Collection, s.Count, s.Seed)
	if err != nil {
		return err
	}

	w := stdout(ctx)

	for _, r := range recs {
		if _, err := fmt.Fprintln(w, r.ID()); err != nil {
			return err
		}
	}

	return nil
}
