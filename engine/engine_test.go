package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ardnew/weft/eval"
	"github.com/ardnew/weft/lang"
	"github.com/ardnew/weft/model"
	"github.com/ardnew/weft/render"
)

func templates(t *testing.T, srcs map[string]string) eval.TemplateMap {
	t.Helper()

	m := make(eval.TemplateMap, len(srcs))

	for name, src := range srcs {
		n, err := lang.ParseString(t.Context(), src, lang.WithFile(name))
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}

		m[name] = n
	}

	return m
}

const (
	layoutSrc = "html\n  body\n    - content"
	pageSrc   = "- import layout\n  h1 {{ title }}\n  - view greeting who\n    p {{ message }}"
)

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()

	e := New(append([]Option{WithTemplates(templates(t, map[string]string{
		"layout": layoutSrc,
		"page":   pageSrc,
	}))}, opts...)...)

	e.Register("greeting", eval.ConstructorFunc(
		func(_ context.Context, args []any, _ render.Node) (any, error) {
			return map[string]any{"message": "hello " + eval.Stringify(args[0])}, nil
		}))

	return e
}

func TestEngine_RenderString(t *testing.T) {
	e := newEngine(t)

	got, err := e.RenderString(t.Context(), "page", map[string]any{"title": "T", "who": "ada"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	want := "<html><body><h1>T</h1><p>hello ada</p></body></html>"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestEngine_RenderStreamMatchesString(t *testing.T) {
	e := newEngine(t)
	data := map[string]any{"title": "T", "who": "ada"}

	var (
		sb     strings.Builder
		chunks []render.Chunk
	)

	err := e.RenderStream(t.Context(), "page", func(c render.Chunk) error {
		chunks = append(chunks, c)
		sb.WriteString(c.Data)

		return nil
	}, data)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	want, _ := e.RenderString(t.Context(), "page", data)
	if sb.String() != want {
		t.Errorf("expected %s, got %s", want, sb.String())
	}

	if !chunks[len(chunks)-1].EOF {
		t.Error("expected final eof chunk")
	}
}

func TestEngine_Timeout(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	e := newEngine(t, WithTimeout(20*time.Millisecond))
	e.Register("greeting", eval.ConstructorFunc(
		func(context.Context, []any, render.Node) (any, error) {
			<-block

			return nil, nil
		}))

	_, err := e.RenderString(t.Context(), "page", map[string]any{"who": "x"})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestEngine_MissingTemplate(t *testing.T) {
	if _, err := newEngine(t).RenderString(t.Context(), "nope"); !errors.Is(err, eval.ErrMissingTemplate) {
		t.Errorf("expected ErrMissingTemplate, got %v", err)
	}
}

func TestEngine_MountUpdatesAndDispatches(t *testing.T) {
	e := New(WithTemplates(templates(t, map[string]string{
		"form": "form\n  input#n(value=\"{{ user.name }}!\")\n  p {{ user.name }}",
	})))

	user := model.New("users", map[string]any{"name": "ada"})

	live, err := e.Mount(t.Context(), "form", map[string]any{"user": user})
	if err != nil {
		t.Fatalf("mount: %v", err)
	}

	if err := live.Dispatch("n", render.Event{Type: "input", Value: "bob"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	want := `<form><input id="n" value="bob"/><p>bob</p></form>`
	if got := live.String(); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	if err := live.Dispatch("missing", render.Event{Type: "input"}); !errors.Is(err, render.ErrDetached) {
		t.Errorf("expected ErrDetached, got %v", err)
	}
}

func TestLive_UpdateWithdrawsReplacedSubscriptions(t *testing.T) {
	e := New(WithTemplates(templates(t, map[string]string{
		"pair": "p {{ user.a }} {{ user.b }}",
	})))

	user := model.New("users", map[string]any{"a": 0, "b": "x"})

	live, err := e.Mount(t.Context(), "pair", map[string]any{"user": user})
	if err != nil {
		t.Fatalf("mount: %v", err)
	}

	for i := range 50 {
		err := live.Update(t.Context(), func() error { return user.Set("a", i+1) })
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}

		if n := user.Subscribers("change:b"); n != 1 {
			t.Fatalf("update %d: expected 1 subscription to b, got %d", i, n)
		}
	}

	if want := "<p>50 x</p>"; live.String() != want {
		t.Errorf("expected %s, got %s", want, live.String())
	}
}

func TestLive_UpdateReturnsChangeError(t *testing.T) {
	live, err := newEngine(t).Mount(t.Context(), "page", map[string]any{"title": "T", "who": "ada"})
	if err != nil {
		t.Fatalf("mount: %v", err)
	}

	boom := errors.New("boom")
	if err := live.Update(t.Context(), func() error { return boom }); !errors.Is(err, boom) {
		t.Errorf("expected %v, got %v", boom, err)
	}
}
