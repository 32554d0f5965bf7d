package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ardnew/weft/lang"
	"github.com/ardnew/weft/render"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()

	return routerFor(t, writeFiles(t, site))
}

// routerFor returns a router serving the templates under dir.
func routerFor(t *testing.T, dir string) *gin.Engine {
	t.Helper()

	g := globals(t, dir)
	lib := g.library()

	eng, closeStore, err := g.engine(t.Context(), lib)
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() { _ = closeStore() })

	layers, err := g.layers()
	if err != nil {
		t.Fatal(err)
	}

	return (&Serve{Mode: gin.TestMode}).router(lib, eng, layers)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequestWithContext(t.Context(), http.MethodGet, target, nil))

	return rec
}

func TestServe_Page(t *testing.T) {
	r := newRouter(t)

	tests := []struct {
		target string
		status int
		body   string
	}{
		{"/page/page", http.StatusOK, sitePage},
		{"/page/page?title=Query", http.StatusOK, strings.Replace(sitePage, "Hi", "Query", 1)},
		{"/page/missing", http.StatusNotFound, `"error"`},
		{"/ping", http.StatusOK, "pong"},
		{"/templates", http.StatusOK, `{"templates":["layout","page"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := get(t, r, tt.target)

			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}

			if !strings.Contains(rec.Body.String(), tt.body) {
				t.Errorf("expected body to contain %q, got %q", tt.body, rec.Body.String())
			}
		})
	}
}

func TestServe_PageOutsideSearchPath(t *testing.T) {
	dir := writeFiles(t, site)

	secret := filepath.Join(filepath.Dir(dir), "secret.weft")
	if err := writeFile(secret, "p classified\n"); err != nil {
		t.Fatal(err)
	}

	r := routerFor(t, dir)

	for _, target := range []string{"/page/..%2Fsecret", "/ast/..%2Fsecret", "/render/..%2Fsecret"} {
		rec := get(t, r, target)

		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected status %d, got %d", target, http.StatusNotFound, rec.Code)
		}

		if strings.Contains(rec.Body.String(), "classified") {
			t.Errorf("%s: expected no content outside the search path, got %q", target, rec.Body.String())
		}
	}
}

func TestServe_RenderStream(t *testing.T) {
	rec := get(t, newRouter(t), "/render/page")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("expected ndjson content type, got %q", ct)
	}

	var (
		sb   strings.Builder
		last render.Chunk
	)

	sc := bufio.NewScanner(rec.Body)
	for sc.Scan() {
		if err := json.Unmarshal(sc.Bytes(), &last); err != nil {
			t.Fatalf("decode %q: %v", sc.Text(), err)
		}

		sb.WriteString(last.Data)
	}

	if sb.String() != sitePage {
		t.Errorf("expected %q, got %q", sitePage, sb.String())
	}

	if !last.EOF {
		t.Error("expected final chunk to carry eof")
	}
}

func TestServe_AST(t *testing.T) {
	rec := get(t, newRouter(t), "/ast/layout")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	root, err := lang.DecodeJSON(rec.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(root.Children) != 1 || root.Children[0].Name != "html" {
		t.Errorf("expected html root, got %+v", root.Children)
	}
}

func TestServe_Validate(t *testing.T) {
	tests := []struct {
		name    string
		serve   Serve
		wantErr []string
	}{
		{"defaults", Serve{Addr: "localhost:8080", Mode: "release", Shutdown: 5 * time.Second}, nil},
		{"bad addr", Serve{Addr: "nohost", Mode: "release"}, []string{"addr"}},
		{"bad everything", Serve{Addr: "", Mode: "fast", Shutdown: -time.Second}, []string{"addr", "mode", "shutdown"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.serve.validate()

			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}

				return
			}

			if !errors.Is(err, ErrSettings) {
				t.Fatalf("expected ErrSettings, got %v", err)
			}

			for _, field := range tt.wantErr {
				if !strings.Contains(err.Error(), field+":") {
					t.Errorf("expected %q reported, got %v", field, err)
				}
			}
		})
	}
}
