package pkg

import (
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"
)

func TestName(t *testing.T) {
	if expected := "weft"; Name != expected {
		t.Errorf("expected Name %q, got %q", expected, Name)
	}

	if !strings.HasSuffix(Ext, Name) {
		t.Errorf("expected Ext to end with %q, got %q", Name, Ext)
	}
}

func TestVersion(t *testing.T) {
	v := Version()
	if v == "" || strings.TrimSpace(v) != v {
		t.Errorf("expected trimmed non-empty version, got %q", v)
	}
}

func TestAuthor(t *testing.T) {
	for i, author := range Author {
		if author.Name == "" && author.Email == "" {
			t.Errorf("Author[%d] must define at least Name or Email", i)
		}
	}
}

func TestAnyValues(t *testing.T) {
	got := slices.Collect(AnyValues(1, 2, 3))
	if len(got) != 3 || got[2] != 3 {
		t.Errorf("expected [1 2 3], got %v", got)
	}
}

func TestError(t *testing.T) {
	base := NewError("base")
	cause := errors.New("cause")

	err := base.Wrap(cause).With(slog.String("k", "v"))

	if got, want := err.Error(), "base: cause"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	if !errors.Is(err, base) {
		t.Error("expected wrapped error to match its sentinel")
	}

	if !errors.Is(err, cause) {
		t.Error("expected wrapped error to match its cause")
	}

	if attrs := err.Attrs(); len(attrs) != 1 || attrs[0].Key != "k" {
		t.Errorf("expected one attribute k, got %v", attrs)
	}
}

func TestUserDir(t *testing.T) {
	fail := func() (string, error) { return "", errors.New("unset") }

	t.Setenv("HOME", "/home/x")

	if got, want := userDir(fail, ".cache"), "/home/x/.cache/"+Prefix(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	ok := func() (string, error) { return "/etc/xdg", nil }

	if got, want := userDir(ok, ".cache"), "/etc/xdg/"+Prefix(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
