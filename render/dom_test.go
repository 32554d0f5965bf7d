package render

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func TestDOM_MarkupMatchesStatic(t *testing.T) {
	d := NewDOM(NewLoop())
	root := buildPage(d)
	d.Mount(root)

	if got := d.Root().String(); got != pageMarkup {
		t.Errorf("expected %s, got %s", pageMarkup, got)
	}
}

func TestDOM_HTMLFlattensFragments(t *testing.T) {
	d := NewDOM(NewLoop())
	root := buildPage(d)

	doc := root.(*DOMNode).HTML()

	body := doc.FirstChild
	if body == nil || body.Type != html.ElementNode || body.Data != "body" {
		t.Fatalf("expected body element, got %+v", body)
	}

	var tags []string
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		tags = append(tags, c.Data)
	}

	if strings.Join(tags, ",") != "p,input" {
		t.Errorf("expected p,input children, got %v", tags)
	}
}

func TestDOM_DispatchAndDrain(t *testing.T) {
	loop := NewLoop()
	d := NewDOM(loop)

	btn := d.CreateElement("button", "go", nil, nil).(*DOMNode)

	var order []string

	btn.AddEventListener("click", func(ev Event) error {
		order = append(order, "first:"+ev.Value)
		loop.Post(func() { order = append(order, "deferred") })

		return nil
	})
	btn.AddEventListener("click", func(Event) error {
		order = append(order, "second")

		return errors.New("bad")
	})

	err := d.Dispatch(btn, Event{Type: "click", Value: "v"})
	if err == nil || !strings.Contains(err.Error(), "bad") {
		t.Errorf("expected combined listener error, got %v", err)
	}

	if strings.Join(order, ",") != "first:v,second,deferred" {
		t.Errorf("unexpected order %v", order)
	}

	if err := d.Dispatch(btn, Event{Type: "hover"}); err != nil {
		t.Errorf("expected no error without listeners, got %v", err)
	}
}

func TestDOMNode_ReplaceWithAndQueries(t *testing.T) {
	d := NewDOM(NewLoop())

	root := d.CreateElement("ul", "list", nil, nil).(*DOMNode)
	d.Mount(root)

	slot := d.CreateFragment()
	root.AppendChild(slot)

	li := d.CreateElement("li", "one", nil, nil)
	li.AppendChild(d.CreateTextNode("1"))
	slot.AppendChild(li)

	repl := d.CreateFragment()
	for _, x := range []string{"a", "b"} {
		item := d.CreateElement("li", "", nil, nil)
		item.AppendChild(d.CreateTextNode(x))
		repl.AppendChild(item)
	}

	if err := slot.ReplaceWith(repl); err != nil {
		t.Fatalf("replace: %v", err)
	}

	if got := root.TextContent(); got != "ab" {
		t.Errorf("expected text ab, got %q", got)
	}

	if n := len(root.FindByTag("li")); n != 2 {
		t.Errorf("expected 2 items, got %d", n)
	}

	if root.FindByID("one") != nil {
		t.Error("replaced node still reachable")
	}

	if n := len(root.Elements()); n != 2 {
		t.Errorf("expected 2 elements through fragment, got %d", n)
	}

	root.SetAttr("data-n", "2")

	if v, ok := root.Attr("data-n"); !ok || v != "2" {
		t.Errorf("expected data-n=2, got %q", v)
	}
}
