package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ardnew/weft/pkg"
	"github.com/ardnew/weft/render"
)

var site = map[string]string{
	"layout.weft": "html\n  body\n    - content\n",
	"page.weft":   "- import layout\n  h1 {{ title }}\n  - for n in items\n    li {{ n }}\n",
	"data.yaml":   "title: Hi\nitems: [1, 2]\n",
}

// globals returns flags searching dir only.
func globals(t *testing.T, dir string) *Globals {
	t.Helper()
	t.Setenv(pkg.EnvPath, "")

	return &Globals{
		Path:    []string{dir},
		Data:    filepath.Join(dir, "data.yaml"),
		Timeout: 5 * time.Second,
	}
}

const sitePage = "<html><body><h1>Hi</h1><li>1</li><li>2</li></body></html>"

func TestRender_String(t *testing.T) {
	ctx, out := commandContext(t)

	if err := (&Render{Name: "page"}).Run(ctx, globals(t, writeFiles(t, site))); err != nil {
		t.Fatalf("render: %v", err)
	}

	if want := sitePage + "\n"; out.String() != want {
		t.Errorf("expected %q, got %q", want, out.String())
	}
}

func TestRender_Stream(t *testing.T) {
	ctx, out := commandContext(t)

	if err := (&Render{Name: "page", Stream: true}).Run(ctx, globals(t, writeFiles(t, site))); err != nil {
		t.Fatalf("render: %v", err)
	}

	if want := sitePage + "\n"; out.String() != want {
		t.Errorf("expected %q, got %q", want, out.String())
	}
}

func TestRender_StreamJSON(t *testing.T) {
	ctx, out := commandContext(t)

	if err := (&Render{Name: "page", Stream: true, JSON: true}).Run(ctx, globals(t, writeFiles(t, site))); err != nil {
		t.Fatalf("render: %v", err)
	}

	var (
		sb     strings.Builder
		chunks []render.Chunk
	)

	sc := bufio.NewScanner(out)
	for sc.Scan() {
		var c render.Chunk
		if err := json.Unmarshal(sc.Bytes(), &c); err != nil {
			t.Fatalf("decode %q: %v", sc.Text(), err)
		}

		chunks = append(chunks, c)
		sb.WriteString(c.Data)
	}

	if sb.String() != sitePage {
		t.Errorf("expected %q, got %q", sitePage, sb.String())
	}

	for i, c := range chunks {
		if c.EOF != (i == len(chunks)-1) {
			t.Errorf("expected eof only on the final chunk, chunk %d has eof=%v", i, c.EOF)
		}
	}
}

func TestRender_Source(t *testing.T) {
	dir := writeFiles(t, site)
	src := filepath.Join(dir, "inline.txt")

	if err := writeFile(src, "- import layout\n  p {{ title }}\n"); err != nil {
		t.Fatal(err)
	}

	ctx, out := commandContext(t)
	ctx = WithSourceFiles(ctx, []string{src})

	if err := (&Render{}).Run(ctx, globals(t, dir)); err != nil {
		t.Fatalf("render: %v", err)
	}

	if want := "<html><body><p>Hi</p></body></html>\n"; out.String() != want {
		t.Errorf("expected %q, got %q", want, out.String())
	}
}

func TestRender_NoTemplate(t *testing.T) {
	ctx, _ := commandContext(t)

	err := (&Render{}).Run(ctx, globals(t, writeFiles(t, site)))
	if !errors.Is(err, ErrNoTemplate) {
		t.Errorf("expected ErrNoTemplate, got %v", err)
	}
}

func TestRender_BadData(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"page.weft": "p x\n",
		"data.yaml": "title: [unclosed\n",
	})

	ctx, _ := commandContext(t)

	if err := (&Render{Name: "page"}).Run(ctx, globals(t, dir)); !errors.Is(err, ErrData) {
		t.Errorf("expected ErrData, got %v", err)
	}
}
