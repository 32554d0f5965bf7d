package render

import (
	"strings"
	"sync"

	"github.com/tdewolff/minify/v2"
	mhtml "github.com/tdewolff/minify/v2/html"
)

// Static builds markup in memory. Reactivity is ignored; asynchronous
// subtrees are waited for by running the loop before calling
// [Static.String].
type Static struct {
	root    *element
	pending int
	minify  bool
}

// StaticOption configures a Static target.
type StaticOption func(*Static)

// WithMinify compacts the markup returned by [Static.String].
func WithMinify(enable bool) StaticOption {
	return func(s *Static) { s.minify = enable }
}

// NewStatic returns an empty static target.
func NewStatic(opts ...StaticOption) *Static {
	s := &Static{}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Static) Mode() Mode { return ModeStatic }

func (s *Static) CreateFragment() Node { return newElement(s, kindFragment) }

func (s *Static) CreateElement(tag, id string, classes []string, attrs []Attr) Node {
	e := newElement(s, kindElement)
	e.tag = tag
	e.attrs = allAttrs(id, classes, attrs)

	return e
}

func (s *Static) CreateTextNode(text string) Node {
	e := newElement(s, kindText)
	e.text = text

	return e
}

func (s *Static) unfinished(*element) { s.pending++ }
func (s *Static) finished(*element)   { s.pending-- }

// Pending returns the number of unfinished asynchronous subtrees.
func (s *Static) Pending() int { return s.pending }

// Mount sets the node whose markup [Static.String] returns.
func (s *Static) Mount(root Node) {
	s.root = asElement(s, root)
}

// String returns the markup of the mounted tree.
func (s *Static) String() string {
	if s.root == nil {
		return ""
	}

	var b strings.Builder

	s.root.write(&b)

	if !s.minify {
		return b.String()
	}

	out, err := getMinifier().String("text/html", b.String())
	if err != nil {
		return b.String()
	}

	return out
}

var (
	minifier     *minify.M
	minifierOnce sync.Once
)

func getMinifier() *minify.M {
	minifierOnce.Do(func() {
		minifier = minify.New()
		minifier.Add("text/html", &mhtml.Minifier{KeepEndTags: true})
	})

	return minifier
}
