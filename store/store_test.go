package store

import (
	"errors"
	"testing"

	"github.com/ardnew/weft/eval"
	"github.com/ardnew/weft/lang"
	"github.com/ardnew/weft/render"
	"github.com/ardnew/weft/scope"
)

func open(t *testing.T) *Store {
	t.Helper()

	s, err := Open(t.Context(), Memory)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestStore_SaveAndGet(t *testing.T) {
	s := open(t)

	r := s.New("users", map[string]any{"name": "ada", "age": 36})
	if err := r.Save(t.Context()); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := r.Set("name", "ada l."); err != nil {
		t.Fatal(err)
	}

	if err := r.Save(t.Context()); err != nil {
		t.Fatalf("save again: %v", err)
	}

	got, err := s.Get(t.Context(), "users", r.ID())
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if v, _ := got.Get("name"); v != "ada l." {
		t.Errorf("expected updated name, got %v", v)
	}

	if v, _ := got.Get("age"); v != 36.0 {
		t.Errorf("expected age 36, got %#v", v)
	}

	if n, _ := s.Count(t.Context(), "users"); n != 1 {
		t.Errorf("expected upsert to keep one row, got %d", n)
	}
}

func TestStore_NotFound(t *testing.T) {
	s := open(t)

	if _, err := s.Get(t.Context(), "users", "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := s.Delete(t.Context(), "users", "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on delete, got %v", err)
	}
}

func TestQuery_Filters(t *testing.T) {
	s := open(t)

	for _, d := range []map[string]any{
		{"name": "ada", "team": "red", "active": true},
		{"name": "bob", "team": "blue", "active": true},
		{"name": "cy", "team": "red", "active": false},
	} {
		if err := s.New("users", d).Save(t.Context()); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	tests := []struct {
		name  string
		query *Query
		want  int
	}{
		{"all", s.Find("users"), 3},
		{"team", s.Find("users").Where("team", "red"), 2},
		{"team and active", s.Find("users").Where("team", "red").Where("active", true), 1},
		{"limit", s.Find("users").Limit(2), 2},
		{"other collection", s.Find("posts"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.query.All(t.Context())
			if err != nil {
				t.Fatalf("query: %v", err)
			}

			if len(got) != tt.want {
				t.Errorf("expected %d records, got %d", tt.want, len(got))
			}
		})
	}

	if _, err := s.Find("users").Where("a') OR 1=1 --", 1).All(t.Context()); !errors.Is(err, ErrFilter) {
		t.Errorf("expected ErrFilter, got %v", err)
	}
}

func TestStore_Seed(t *testing.T) {
	a, b := open(t), open(t)

	ra, err := a.Seed(t.Context(), "people", 5, 7)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	rb, _ := b.Seed(t.Context(), "people", 5, 7)

	if n, _ := a.Count(t.Context(), "people"); n != 5 {
		t.Errorf("expected 5 records, got %d", n)
	}

	for i := range ra {
		na, _ := ra[i].Get("name")
		nb, _ := rb[i].Get("name")

		if ra[i].ID() != rb[i].ID() || na != nb {
			t.Errorf("expected deterministic record %d", i)
		}
	}
}

func TestStore_ViewModels(t *testing.T) {
	s := open(t)

	r := s.New("users", map[string]any{"name": "ada"})
	if err := r.Save(t.Context()); err != nil {
		t.Fatal(err)
	}

	reg := eval.NewRegistry()
	reg.Register("user", s.Loader("users"))
	reg.Register("users", s.Lister("users"))

	src := "- view user uid\n  h1 {{ name }}\n- view users\n  - for u in records\n    li {{ u.name }}"

	tpl, err := lang.Parse(t.Context(), src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	loop := render.NewLoop()
	st := render.NewStatic()

	out, err := eval.New(st, loop, eval.WithViews(reg)).
		Evaluate(t.Context(), tpl, scope.New(map[string]any{"uid": r.ID()}))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	if err := loop.Run(t.Context()); err != nil {
		t.Fatalf("run: %v", err)
	}

	st.Mount(out)

	if got, want := st.String(), "<h1>ada</h1><li>ada</li>"; got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
