package render

import (
	"github.com/ardnew/weft/lang"
	"github.com/ardnew/weft/pkg"
	"github.com/ardnew/weft/scope"
)

// Predefined errors (sentinel values).
var (
	ErrSinkInstalled = pkg.NewError("stream sink already installed")
	ErrForeignNode   = pkg.NewError("node belongs to another target")
	ErrDetached      = pkg.NewError("node has no parent")
	ErrSink          = pkg.NewError("stream sink failed")
)

// Mode identifies the kind of output a [Target] produces.
type Mode int

const (
	// ModeInteractive builds a live tree that dispatches events and is
	// updated in place when its data changes.
	ModeInteractive Mode = iota
	// ModeStatic builds markup once and ignores reactivity.
	ModeStatic
	// ModeStreaming emits markup incrementally, in document order, as
	// asynchronous subtrees complete.
	ModeStreaming
)

func (m Mode) String() string {
	switch m {
	case ModeInteractive:
		return "interactive"
	case ModeStatic:
		return "static"
	case ModeStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Attr is one rendered attribute.
type Attr struct {
	Name  string
	Value string
}

// Target builds output nodes.
type Target interface {
	Mode() Mode
	CreateFragment() Node
	CreateElement(tag, id string, classes []string, attrs []Attr) Node
	CreateTextNode(text string) Node
}

// Node is one output node. Fragments group children without producing
// markup of their own.
type Node interface {
	AppendChild(child Node)
	// ReplaceWith puts n in place of the receiver within its parent.
	ReplaceWith(n Node) error
	Children() []Node
	// Unfinish marks the node as waiting on asynchronous work; Finish
	// marks one such piece of work complete.
	Unfinish()
	Finish()
	Meta() *Meta
}

// Meta records where a node came from and what it subscribes to, so that
// the node can be re-rendered when its data changes.
type Meta struct {
	Source *lang.Node
	Scope  *scope.Scope

	subs     []scope.Subscription
	released bool
}

// Bind records the template node and scope n was rendered from.
func (m *Meta) Bind(src *lang.Node, sc *scope.Scope) {
	m.Source, m.Scope = src, sc
}

// Track adds sub to the subscriptions owned by the node. A released node
// withdraws sub immediately and reports false.
func (m *Meta) Track(sub scope.Subscription) bool {
	if m.released {
		sub.Off()

		return false
	}

	m.subs = append(m.subs, sub)

	return true
}

// Subscriptions returns the number of live subscriptions.
func (m *Meta) Subscriptions() int { return len(m.subs) }

// Release marks the node as replaced and hands back its subscriptions
// for disposal.
func (m *Meta) Release() []scope.Subscription {
	subs := m.subs
	m.subs, m.released = nil, true

	return subs
}

// Released reports whether the node has been replaced.
func (m *Meta) Released() bool { return m.released }

// Walk calls fn for n and each descendant in document order.
func Walk(n Node, fn func(Node)) {
	fn(n)

	for _, c := range n.Children() {
		Walk(c, fn)
	}
}
