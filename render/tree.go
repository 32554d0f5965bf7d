package render

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

type nodeKind int

const (
	kindFragment nodeKind = iota
	kindElement
	kindText
)

// owner receives pending-count transitions from the elements it created.
type owner interface {
	unfinished(e *element)
	finished(e *element)
}

// element is the markup node shared by the static and streaming targets.
type element struct {
	owner    owner
	kind     nodeKind
	tag      string
	attrs    []Attr
	text     string
	parent   *element
	children []*element
	pending  int
	head     bool // opening markup emitted
	tail     bool // closing markup emitted
	meta     Meta
}

func newElement(o owner, kind nodeKind) *element {
	return &element{owner: o, kind: kind}
}

func asElement(o owner, n Node) *element {
	e, ok := n.(*element)
	if !ok || e.owner != o {
		panic(fmt.Sprintf("%v: %T", ErrForeignNode, n))
	}

	return e
}

func (e *element) AppendChild(child Node) {
	c := asElement(e.owner, child)
	c.parent = e
	e.children = append(e.children, c)
}

func (e *element) ReplaceWith(n Node) error {
	if e.parent == nil {
		return ErrDetached
	}

	r := asElement(e.owner, n)

	i := slices.Index(e.parent.children, e)
	if i < 0 {
		return ErrDetached
	}

	r.parent = e.parent
	e.parent.children[i] = r
	e.parent = nil

	return nil
}

func (e *element) Children() []Node {
	out := make([]Node, len(e.children))
	for i, c := range e.children {
		out[i] = c
	}

	return out
}

func (e *element) Unfinish() {
	e.pending++
	e.owner.unfinished(e)
}

func (e *element) Finish() {
	if e.pending == 0 {
		return
	}

	e.pending--
	e.owner.finished(e)
}

func (e *element) Meta() *Meta { return &e.meta }

// write appends the complete markup of e and its descendants to b.
func (e *element) write(b *strings.Builder) {
	switch e.kind {
	case kindText:
		b.WriteString(html.EscapeString(e.text))

		return

	case kindElement:
		writeOpen(b, e.tag, e.attrs)
	}

	for _, c := range e.children {
		c.write(b)
	}

	if e.kind == kindElement {
		writeClose(b, e.tag)
	}
}

// serialize appends the markup of e not yet emitted, stopping at the first
// descendant still waiting on asynchronous work. It reports whether e is
// now completely emitted.
func (e *element) serialize(b *strings.Builder) bool {
	if e.tail {
		return true
	}

	if !e.head {
		switch e.kind {
		case kindText:
			b.WriteString(html.EscapeString(e.text))
			e.head, e.tail = true, true

			return true

		case kindElement:
			writeOpen(b, e.tag, e.attrs)
		}

		e.head = true
	}

	for _, c := range e.children {
		if !c.serialize(b) {
			return false
		}
	}

	if e.pending > 0 {
		return false
	}

	if e.kind == kindElement {
		writeClose(b, e.tag)
	}

	e.tail = true

	return true
}
