package render

import (
	"strings"
	"testing"
)

func buildPage(t Target) Node {
	root := t.CreateFragment()

	body := t.CreateElement("body", "top", []string{"page", "dark"},
		[]Attr{{Name: "data-x", Value: `"q"`}})
	root.AppendChild(body)

	p := t.CreateElement("p", "", nil, nil)
	p.AppendChild(t.CreateTextNode("a & b"))
	body.AppendChild(p)

	slot := t.CreateFragment()
	slot.AppendChild(t.CreateElement("input", "", nil, []Attr{{Name: "value", Value: "v"}}))
	body.AppendChild(slot)

	return root
}

const pageMarkup = `<body id="top" class="page dark" data-x="&#34;q&#34;">` +
	`<p>a &amp; b</p><input value="v"/></body>`

func TestStatic_String(t *testing.T) {
	s := NewStatic()
	s.Mount(buildPage(s))

	if got := s.String(); got != pageMarkup {
		t.Errorf("expected %s, got %s", pageMarkup, got)
	}
}

func TestStatic_Minify(t *testing.T) {
	s := NewStatic(WithMinify(true))

	root := s.CreateElement("p", "", nil, nil)
	root.AppendChild(s.CreateTextNode("  a    b  \n"))
	s.Mount(root)

	out := s.String()
	if strings.Contains(out, "    ") || !strings.Contains(out, "a b") {
		t.Errorf("expected collapsed whitespace, got %q", out)
	}
}

func TestStatic_PendingCounts(t *testing.T) {
	s := NewStatic()
	n := s.CreateFragment()

	n.Unfinish()
	n.Unfinish()
	n.Finish()

	if s.Pending() != 1 {
		t.Errorf("expected 1 pending, got %d", s.Pending())
	}
}

func TestElement_ReplaceWith(t *testing.T) {
	s := NewStatic()
	root := s.CreateElement("div", "", nil, nil)
	old := s.CreateTextNode("old")
	root.AppendChild(old)
	root.AppendChild(s.CreateTextNode("!"))
	s.Mount(root)

	if err := old.ReplaceWith(s.CreateTextNode("new")); err != nil {
		t.Fatalf("replace: %v", err)
	}

	if got := s.String(); got != "<div>new!</div>" {
		t.Errorf("unexpected markup %q", got)
	}

	if err := old.ReplaceWith(s.CreateTextNode("again")); err == nil {
		t.Error("expected detached node to fail replacement")
	}
}
