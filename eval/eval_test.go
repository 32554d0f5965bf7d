package eval

import (
	"context"
	"errors"
	"testing"

	"github.com/ardnew/weft/lang"
	"github.com/ardnew/weft/pkg"
	"github.com/ardnew/weft/render"
	"github.com/ardnew/weft/scope"
)

func parse(t *testing.T, src string) *lang.Node {
	t.Helper()

	n, err := lang.Parse(t.Context(), src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	return n
}

// renderStatic evaluates src to markup, running the loop to completion.
func renderStatic(t *testing.T, src string, sc *scope.Scope, opts ...Option) (string, error) {
	t.Helper()

	loop := render.NewLoop()
	st := render.NewStatic()

	out, err := New(st, loop, opts...).Evaluate(t.Context(), parse(t, src), sc)
	if err != nil {
		return "", err
	}

	if err := loop.Run(t.Context()); err != nil {
		return "", err
	}

	st.Mount(out)

	return st.String(), nil
}

func mustRender(t *testing.T, src string, sc *scope.Scope, opts ...Option) string {
	t.Helper()

	got, err := renderStatic(t, src, sc, opts...)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	return got
}

func TestEvaluate_TagsAndLoops(t *testing.T) {
	src := "ul#list.items\n" +
		"  - for item in [1, 2, 3]\n" +
		"    li(class=\"n{{ item }}\") {{ item }}"

	want := `<ul id="list" class="items">` +
		`<li class="n1">1</li><li class="n2">2</li><li class="n3">3</li></ul>`

	if got := mustRender(t, src, nil); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestEvaluate_ForProducesOneSubtreePerItem(t *testing.T) {
	loop := render.NewLoop()
	st := render.NewStatic()

	out, err := New(st, loop).Evaluate(t.Context(),
		parse(t, "- for item in [1, 2, 3]\n  | {{ item }}"), nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	stmt := out.Children()[0]
	if n := len(stmt.Children()); n != 3 {
		t.Errorf("expected 3 subtrees, got %d", n)
	}
}

func TestEvaluate_ForWithoutVariable(t *testing.T) {
	sc := scope.New(map[string]any{
		"people": []map[string]any{{"name": "ada"}, {"name": "bob"}},
		"name":   "outer",
	})

	got := mustRender(t, "- for people\n  i {{ name }}", sc)
	if want := "<i>ada</i><i>bob</i>"; got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestEvaluate_Conditionals(t *testing.T) {
	sc := scope.New(map[string]any{
		"a": 3, "b": 3.0, "c": "4", "s": "x", "empty": "", "list": []int{},
	})

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"truthy string", "- if s\n  | yes", "yes\n"},
		{"empty string", "- if empty\n  | yes", ""},
		{"empty slice", "- if list\n  | yes", ""},
		{"missing", "- if missing\n  | yes", ""},
		{"greater", "- if-greater a 2\n  | gt", "gt\n"},
		{"not greater", "- if-greater a c\n  | gt", ""},
		{"numeric string", "- if-greater c a\n  | gt", "gt\n"},
		{"equal across types", "- if-equal a b\n  | eq", "eq\n"},
		{"equal literal", "- if-equal s \"x\"\n  | eq", "eq\n"},
		{"not equal", "- if-not-equal a b\n  | ne", ""},
		{"not equal differs", "- if-not-equal a c\n  | ne", "ne\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mustRender(t, tt.src, sc); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestEvaluate_PathAttributes(t *testing.T) {
	sc := scope.New(map[string]any{
		"done": true, "off": false, "name": "n", "cls": "x y", "ident": "me",
	})

	src := `input(checked="{{ done }}" disabled="{{ off }}" value="{{ name }}" class="{{ cls }}" id="{{ ident }}")`
	want := `<input id="me" class="x y" checked="" value="n"/>`

	if got := mustRender(t, src, sc); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestEvaluate_Escaping(t *testing.T) {
	sc := scope.New(map[string]any{"x": "<b>&"})

	got := mustRender(t, "p {{ x }}", sc)
	if want := "<p>&lt;b&gt;&amp;</p>"; got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestEvaluate_MissingIntermediate(t *testing.T) {
	_, err := renderStatic(t, "p {{ user.name }}", scope.New(map[string]any{}))
	if !errors.Is(err, scope.ErrPathNotFound) || !errors.Is(err, ErrRender) {
		t.Errorf("expected located path error, got %v", err)
	}
}

func TestEvaluate_Views(t *testing.T) {
	reg := NewRegistry()
	reg.Register("user", ConstructorFunc(
		func(_ context.Context, args []any, _ render.Node) (any, error) {
			return map[string]any{"name": args[0]}, nil
		}))
	reg.Register("broken", ConstructorFunc(
		func(context.Context, []any, render.Node) (any, error) {
			return nil, errors.New("offline")
		}))

	t.Run("async", func(t *testing.T) {
		got := mustRender(t, "- view user \"ada\"\n  p {{ name }}", nil, WithViews(reg))
		if got != "<p>ada</p>" {
			t.Errorf("expected <p>ada</p>, got %s", got)
		}
	})

	t.Run("required missing", func(t *testing.T) {
		_, err := renderStatic(t, "- view usr\n  p x", nil, WithViews(reg))
		if !errors.Is(err, ErrMissingViewModel) {
			t.Errorf("expected ErrMissingViewModel, got %v", err)
		}
	})

	t.Run("optional missing", func(t *testing.T) {
		sc := scope.New(map[string]any{"name": "outer"})

		got := mustRender(t, "- view ?nope\n  p {{ name }}", sc, WithViews(reg))
		if got != "<p>outer</p>" {
			t.Errorf("expected children under unchanged scope, got %s", got)
		}
	})

	t.Run("bare", func(t *testing.T) {
		if got := mustRender(t, "- view\n  p x", nil); got != "<p>x</p>" {
			t.Errorf("expected <p>x</p>, got %s", got)
		}
	})

	t.Run("constructor error", func(t *testing.T) {
		_, err := renderStatic(t, "- view broken\n  p x", nil, WithViews(reg))
		if err == nil || !errors.Is(err, ErrRender) {
			t.Errorf("expected render failure, got %v", err)
		}
	})
}

func TestRegistry_SuggestsNearName(t *testing.T) {
	reg := NewRegistry()
	reg.Register("profile", ConstructorFunc(
		func(context.Context, []any, render.Node) (any, error) { return nil, nil }))

	_, err := renderStatic(t, "- view profil", nil, WithViews(reg))

	if err == nil || !containsAttr(err, "suggest", "profile") {
		t.Errorf("expected suggestion profile, got %v", err)
	}
}

// containsAttr reports whether any error in the chain of err carries the
// attribute key=value.
func containsAttr(err error, key, value string) bool {
	for _, e := range pkg.UnwrapErrors(err) {
		var pe *pkg.Error
		if !errors.As(e, &pe) {
			continue
		}

		for _, a := range pe.Attrs() {
			if a.Key == key && a.Value.String() == value {
				return true
			}
		}
	}

	return false
}

type sliceQuery []any

func (q sliceQuery) All(context.Context) ([]any, error) { return q, nil }

type failingQuery struct{}

func (failingQuery) All(context.Context) ([]any, error) { return nil, errors.New("query failed") }

func TestEvaluate_QueryLoop(t *testing.T) {
	sc := scope.New(map[string]any{
		"rows": sliceQuery{"a", "b"},
		"bad":  failingQuery{},
	})

	if got := mustRender(t, "- for r in rows\n  b {{ r }}", sc); got != "<b>a</b><b>b</b>" {
		t.Errorf("unexpected markup %s", got)
	}

	if _, err := renderStatic(t, "- for r in bad\n  b {{ r }}", sc); err == nil {
		t.Error("expected query failure")
	}
}

func TestEvaluate_NotIterable(t *testing.T) {
	_, err := renderStatic(t, "- for x in n\n  | x", scope.New(map[string]any{"n": 4}))
	if !errors.Is(err, ErrNotIterable) {
		t.Errorf("expected ErrNotIterable, got %v", err)
	}
}

func TestEvaluate_ImportAndContent(t *testing.T) {
	tpl := TemplateMap{
		"card": parse(t, "section.card\n  h2 {{ title }}{{ who }}\n  - content"),
		"self": parse(t, "- import self"),
	}
	sc := scope.New(map[string]any{"who": "me"})

	got := mustRender(t, "- import card title=\"Hi\"\n  p {{ who }}", sc, WithTemplates(tpl))

	want := `<section class="card"><h2>Hi</h2><p>me</p></section>`
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	if _, err := renderStatic(t, "- import nope", sc, WithTemplates(tpl)); !errors.Is(err, ErrMissingTemplate) {
		t.Errorf("expected ErrMissingTemplate, got %v", err)
	}

	if _, err := renderStatic(t, "- import self", sc, WithTemplates(tpl)); !errors.Is(err, ErrImportDepth) {
		t.Errorf("expected ErrImportDepth, got %v", err)
	}
}

func TestEvaluate_ContentWithoutImport(t *testing.T) {
	if got := mustRender(t, "p a\n- content", nil); got != "<p>a</p>" {
		t.Errorf("expected content to render nothing, got %s", got)
	}
}

func TestEvaluate_ClientOnlyInteractive(t *testing.T) {
	src := "p a\n- client\n  p b"

	if got := mustRender(t, src, nil); got != "<p>a</p>" {
		t.Errorf("expected client block skipped, got %s", got)
	}

	loop := render.NewLoop()
	d := render.NewDOM(loop)

	out, err := New(d, loop).Evaluate(t.Context(), parse(t, src), nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	d.Mount(out)

	if got := d.Root().String(); got != "<p>a</p><p>b</p>" {
		t.Errorf("expected client block rendered, got %s", got)
	}
}
