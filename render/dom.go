package render

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DOM builds a live tree that dispatches events and can have subtrees
// replaced in place.
type DOM struct {
	loop    *Loop
	root    *DOMNode
	pending int
}

// NewDOM returns an empty interactive target. Event handlers run on the
// caller's goroutine; work they post to loop runs when [DOM.Dispatch]
// drains it.
func NewDOM(loop *Loop) *DOM {
	return &DOM{loop: loop}
}

func (d *DOM) Mode() Mode { return ModeInteractive }

func (d *DOM) CreateFragment() Node {
	return &DOMNode{dom: d, kind: kindFragment}
}

func (d *DOM) CreateElement(tag, id string, classes []string, attrs []Attr) Node {
	return &DOMNode{
		dom:     d,
		kind:    kindElement,
		Tag:     tag,
		ID:      id,
		Classes: slices.Clone(classes),
		Attrs:   slices.Clone(attrs),
	}
}

func (d *DOM) CreateTextNode(text string) Node {
	return &DOMNode{dom: d, kind: kindText, Text: text}
}

// Mount sets the root of the live tree.
func (d *DOM) Mount(root Node) {
	d.root = d.node(root)
}

// Root returns the mounted root.
func (d *DOM) Root() *DOMNode { return d.root }

// Pending returns the number of unfinished asynchronous subtrees.
func (d *DOM) Pending() int { return d.pending }

// Dispatch delivers ev to n and then runs the work its handlers posted.
func (d *DOM) Dispatch(n *DOMNode, ev Event) error {
	err := n.Dispatch(ev)
	d.loop.Drain()

	return err
}

func (d *DOM) node(n Node) *DOMNode {
	dn, ok := n.(*DOMNode)
	if !ok || dn.dom != d {
		panic(fmt.Sprintf("%v: %T", ErrForeignNode, n))
	}

	return dn
}

// Event is delivered to the listeners of a [DOMNode].
type Event struct {
	Type   string
	Value  string
	Target *DOMNode
}

// Listener handles one event.
type Listener func(Event) error

// DOMNode is a node of a live tree.
type DOMNode struct {
	dom  *DOM
	kind nodeKind

	Tag     string
	ID      string
	Classes []string
	Attrs   []Attr
	Text    string

	parent    *DOMNode
	children  []*DOMNode
	listeners map[string][]Listener
	pending   int
	meta      Meta
}

func (n *DOMNode) AppendChild(child Node) {
	c := n.dom.node(child)
	c.parent = n
	n.children = append(n.children, c)
}

func (n *DOMNode) ReplaceWith(r Node) error {
	if n.parent == nil {
		if n.dom.root == n {
			n.dom.root = n.dom.node(r)

			return nil
		}

		return ErrDetached
	}

	rn := n.dom.node(r)

	i := slices.Index(n.parent.children, n)
	if i < 0 {
		return ErrDetached
	}

	rn.parent = n.parent
	n.parent.children[i] = rn
	n.parent = nil

	return nil
}

func (n *DOMNode) Children() []Node {
	out := make([]Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}

	return out
}

func (n *DOMNode) Unfinish() {
	n.pending++
	n.dom.pending++
}

func (n *DOMNode) Finish() {
	if n.pending == 0 {
		return
	}

	n.pending--
	n.dom.pending--
}

func (n *DOMNode) Meta() *Meta { return &n.meta }

// Parent returns the containing node, or nil.
func (n *DOMNode) Parent() *DOMNode { return n.parent }

// Elements returns the child nodes, looking through fragments.
func (n *DOMNode) Elements() []*DOMNode {
	var out []*DOMNode

	for _, c := range n.children {
		if c.kind == kindFragment {
			out = append(out, c.Elements()...)
		} else {
			out = append(out, c)
		}
	}

	return out
}

// Attr returns the value of the named attribute.
func (n *DOMNode) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}

	return "", false
}

// SetAttr sets the named attribute, adding it when absent.
func (n *DOMNode) SetAttr(name, value string) {
	for i, a := range n.Attrs {
		if a.Name == name {
			n.Attrs[i].Value = value

			return
		}
	}

	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

// AddEventListener registers fn for events of type event.
func (n *DOMNode) AddEventListener(event string, fn Listener) {
	if n.listeners == nil {
		n.listeners = make(map[string][]Listener)
	}

	n.listeners[event] = append(n.listeners[event], fn)
}

// Listeners returns the number of listeners for event.
func (n *DOMNode) Listeners(event string) int { return len(n.listeners[event]) }

// Dispatch calls every listener for ev.Type in registration order and
// returns their combined errors.
func (n *DOMNode) Dispatch(ev Event) error {
	if ev.Target == nil {
		ev.Target = n
	}

	var result *multierror.Error

	for _, fn := range slices.Clone(n.listeners[ev.Type]) {
		if err := fn(ev); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

// Find returns the first node in document order for which match is true.
func (n *DOMNode) Find(match func(*DOMNode) bool) *DOMNode {
	if match(n) {
		return n
	}

	for _, c := range n.children {
		if f := c.Find(match); f != nil {
			return f
		}
	}

	return nil
}

// FindByID returns the element with the given id.
func (n *DOMNode) FindByID(id string) *DOMNode {
	return n.Find(func(x *DOMNode) bool { return x.kind == kindElement && x.ID == id })
}

// FindByTag returns every element with the given tag in document order.
func (n *DOMNode) FindByTag(tag string) []*DOMNode {
	var out []*DOMNode

	n.Find(func(x *DOMNode) bool {
		if x.kind == kindElement && x.Tag == tag {
			out = append(out, x)
		}

		return false
	})

	return out
}

// TextContent returns the concatenated text of n and its descendants.
func (n *DOMNode) TextContent() string {
	var b strings.Builder

	n.Find(func(x *DOMNode) bool {
		if x.kind == kindText {
			b.WriteString(x.Text)
		}

		return false
	})

	return b.String()
}

// HTML materializes n as a document node whose children are the html
// nodes n renders to. Fragments contribute their children directly.
func (n *DOMNode) HTML() *html.Node {
	doc := &html.Node{Type: html.DocumentNode}

	for _, h := range n.htmlNodes() {
		doc.AppendChild(h)
	}

	return doc
}

func (n *DOMNode) htmlNodes() []*html.Node {
	switch n.kind {
	case kindText:
		return []*html.Node{{Type: html.TextNode, Data: n.Text}}

	case kindElement:
		h := &html.Node{
			Type:     html.ElementNode,
			Data:     n.Tag,
			DataAtom: atom.Lookup([]byte(n.Tag)),
		}

		for _, a := range allAttrs(n.ID, n.Classes, n.Attrs) {
			h.Attr = append(h.Attr, html.Attribute{Key: a.Name, Val: a.Value})
		}

		for _, c := range n.children {
			for _, ch := range c.htmlNodes() {
				h.AppendChild(ch)
			}
		}

		return []*html.Node{h}

	default:
		var out []*html.Node

		for _, c := range n.children {
			out = append(out, c.htmlNodes()...)
		}

		return out
	}
}

// String renders n as markup.
func (n *DOMNode) String() string {
	var b strings.Builder

	if err := html.Render(&b, n.HTML()); err != nil {
		return ""
	}

	return b.String()
}
