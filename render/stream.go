package render

import (
	"log/slog"
	"strings"

	"github.com/ardnew/weft/log"
)

// Chunk is one emission of a streaming render.
type Chunk struct {
	Data string `json:"data"`
	EOF  bool   `json:"eof"`
}

// Sink receives the chunks of a streaming render.
type Sink func(Chunk) error

// Stream emits markup in document order while asynchronous subtrees are
// still resolving. All of its state belongs to one render; nothing is
// shared between streams.
type Stream struct {
	loop   *Loop
	logger log.Logger

	root        *element
	sink        Sink
	pending     int
	flushQueued bool
	eof         bool
}

// StreamOption configures a Stream.
type StreamOption func(*Stream)

// WithStreamLogger sets the logger for flush tracing.
func WithStreamLogger(logger log.Logger) StreamOption {
	return func(s *Stream) { s.logger = logger }
}

// NewStream returns a stream whose flushes are scheduled on loop.
func NewStream(loop *Loop, opts ...StreamOption) *Stream {
	s := &Stream{loop: loop}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Stream) Mode() Mode { return ModeStreaming }

func (s *Stream) CreateFragment() Node { return newElement(s, kindFragment) }

func (s *Stream) CreateElement(tag, id string, classes []string, attrs []Attr) Node {
	e := newElement(s, kindElement)
	e.tag = tag
	e.attrs = allAttrs(id, classes, attrs)

	return e
}

func (s *Stream) CreateTextNode(text string) Node {
	e := newElement(s, kindText)
	e.text = text

	return e
}

func (s *Stream) unfinished(*element) { s.pending++ }

// finished queues a flush rather than flushing in place, so a cascade of
// completions never recurses back into the stream.
func (s *Stream) finished(*element) {
	s.pending--
	s.schedule()
}

func (s *Stream) schedule() {
	if s.flushQueued || s.sink == nil || s.eof {
		return
	}

	s.flushQueued = true

	s.loop.Post(func() {
		s.flushQueued = false
		s.flush()
	})
}

// Pending returns the number of unfinished asynchronous subtrees.
func (s *Stream) Pending() int { return s.pending }

// Done reports whether the final chunk has been emitted.
func (s *Stream) Done() bool { return s.eof }

// Render installs sink and root and emits whatever markup is ready. Later
// output is emitted as asynchronous subtrees finish. The final chunk has
// EOF set; nothing is emitted after it.
func (s *Stream) Render(root Node, sink Sink) error {
	if s.sink != nil {
		return ErrSinkInstalled
	}

	s.root = asElement(s, root)
	s.sink = sink
	s.flush()

	return nil
}

// Serialize returns the markup that became available since the previous
// call. It stops at the first node still waiting on asynchronous work, so
// output always follows document order.
func (s *Stream) Serialize() string {
	if s.root == nil {
		return ""
	}

	var b strings.Builder

	s.root.serialize(&b)

	return b.String()
}

func (s *Stream) flush() {
	if s.eof || s.sink == nil {
		return
	}

	data := s.Serialize()
	done := s.pending == 0 && s.root.tail

	s.logger.Trace("flush",
		slog.Int("bytes", len(data)),
		slog.Int("pending", s.pending),
		slog.Bool("eof", done),
	)

	if data == "" && !done {
		return
	}

	if done {
		s.eof = true
	}

	if err := s.sink(Chunk{Data: data, EOF: done}); err != nil {
		s.loop.Fail(ErrSink.Wrap(err))
	}
}
