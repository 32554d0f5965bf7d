package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// palette styles the parts of a pretty log line. Styles render plain text
// unless the output is a color terminal.
type palette struct {
	key, number, yes, no, duration, time, text lipgloss.Style
	levels                                     map[string]lipgloss.Style
}

func newPalette(w io.Writer) *palette {
	r := lipgloss.NewRenderer(w)
	fg := func(c string) lipgloss.Style { return r.NewStyle().Foreground(lipgloss.Color(c)) }

	return &palette{
		key:      fg("8"),
		number:   fg("3"),
		yes:      fg("2"),
		no:       fg("1"),
		duration: fg("5"),
		time:     fg("4"),
		text:     fg("6"),
		levels: map[string]lipgloss.Style{
			"ERROR": fg("1").Bold(true),
			"WARN":  fg("3").Bold(true),
			"INFO":  fg("2"),
			"DEBUG": fg("4"),
			"TRACE": fg("8"),
		},
	}
}

// prettyHandler writes colorized key=value lines without quoting.
type prettyHandler struct {
	opts   slog.HandlerOptions
	mu     *sync.Mutex
	w      io.Writer
	style  *palette
	attrs  []slog.Attr
	prefix string
}

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *prettyHandler {
	return &prettyHandler{opts: *opts, mu: &sync.Mutex{}, w: w, style: newPalette(w)}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	if !r.Time.IsZero() {
		h.writeAttr(&buf, h.replace(slog.Time(slog.TimeKey, r.Time)))
	}

	h.writeAttr(&buf, h.replace(slog.Any(slog.LevelKey, r.Level)))

	if h.opts.AddSource {
		if src := r.Source(); src != nil {
			h.writeAttr(&buf, slog.String(
				slog.SourceKey, fmt.Sprintf("%s:%d", src.File, src.Line)))
		}
	}

	h.writeAttr(&buf, slog.String(slog.MessageKey, r.Message))

	for _, a := range h.attrs {
		h.writeAttr(&buf, a)
	}

	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&buf, a)

		return true
	})

	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(buf.Bytes())

	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...)

	return &c
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	c := *h
	c.prefix = h.prefix + name + "."

	return &c
}

func (h *prettyHandler) replace(a slog.Attr) slog.Attr {
	if h.opts.ReplaceAttr == nil {
		return a
	}

	return h.opts.ReplaceAttr(nil, a)
}

func (h *prettyHandler) writeAttr(buf *bytes.Buffer, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}

	if buf.Len() > 0 {
		buf.WriteByte(' ')
	}

	buf.WriteString(h.style.key.Render(h.prefix + a.Key))
	buf.WriteByte('=')
	buf.WriteString(h.value(a.Key, a.Value.Resolve()))
}

func (h *prettyHandler) value(key string, v slog.Value) string {
	s := h.style

	switch v.Kind() {
	case slog.KindInt64:
		return s.number.Render(strconv.FormatInt(v.Int64(), 10))
	case slog.KindUint64:
		return s.number.Render(strconv.FormatUint(v.Uint64(), 10))
	case slog.KindFloat64:
		return s.number.Render(strconv.FormatFloat(v.Float64(), 'g', -1, 64))
	case slog.KindBool:
		if v.Bool() {
			return s.yes.Render("true")
		}

		return s.no.Render("false")
	case slog.KindDuration:
		return s.duration.Render(v.Duration().String())
	case slog.KindTime:
		return s.time.Render(v.Time().String())
	}

	if key == slog.LevelKey {
		if st, ok := s.levels[v.String()]; ok {
			return st.Render(v.String())
		}
	}

	return s.text.Render(v.String())
}
