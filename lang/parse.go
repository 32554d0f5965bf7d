package lang

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/ardnew/weft/log"
)

// IndentWidth is the number of spaces per indentation level.
const IndentWidth = 2

// Source markers.
const (
	commentMarker   = "//"
	statementMarker = '-'
	textMarker      = '|'
	actionMarker    = '@'
	defaultTag      = "div"
)

// Option configures parsing.
type Option func(*options)

type options struct {
	file   string
	logger log.Logger
}

// WithFile names the template in parse errors.
func WithFile(name string) Option {
	return func(o *options) { o.file = name }
}

// WithLogger sets the logger for parse tracing.
func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func makeOptions(opts ...Option) options {
	var o options

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// Parse parses src without consulting the cache.
func Parse(ctx context.Context, src string, opts ...Option) (*Node, error) {
	o := makeOptions(opts...)

	o.logger.TraceContext(ctx, "parse start",
		slog.String("file", o.file),
		slog.Int("source_bytes", len(src)),
	)

	root, err := parse(src)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) && o.file != "" {
			err = pe.withFile(o.file)
		}

		o.logger.DebugContext(ctx, "parse failed", slog.Any("error", err))

		return nil, err
	}

	o.logger.TraceContext(ctx, "parse complete",
		slog.String("file", o.file),
		slog.Int("top_nodes", len(root.Children)),
	)

	return root, nil
}

// parser holds the ancestor stack while lines are consumed.
type parser struct {
	stack []*Node
	prev  *Node
}

func parse(src string) (*Node, error) {
	root := &Node{Kind: KindTop}
	p := &parser{stack: []*Node{root}}

	for i, raw := range strings.Split(src, "\n") {
		if err := p.line(i+1, strings.TrimSuffix(raw, "\r")); err != nil {
			return nil, err
		}
	}

	return root, nil
}

func (p *parser) line(num int, raw string) error {
	body := strings.TrimLeft(raw, " ")
	if strings.TrimSpace(body) == "" || strings.HasPrefix(body, commentMarker) {
		return nil
	}

	fail := func(err error) error {
		return &ParseError{Line: num, Text: raw, Err: err}
	}

	indent := len(raw) - len(body)
	if body[0] == '\t' || indent%IndentWidth != 0 {
		return fail(ErrBadIndentation.With(slog.Int("indent", indent)))
	}

	level := indent / IndentWidth
	depth := len(p.stack) - 1

	switch {
	case level > depth+1 || (level == depth+1 && p.prev == nil):
		return fail(ErrTooMuchIndentation.With(
			slog.Int("level", level),
			slog.Int("max", depth+1),
		))

	case level == depth+1:
		if p.prev.HasContent() {
			return fail(ErrContentAndChildren.With(
				slog.Int("parent_line", p.prev.Line)))
		}

		p.stack = append(p.stack, p.prev)

	case level < depth:
		p.stack = p.stack[:level+1]
	}

	node, err := parseLine(body)
	if err != nil {
		return fail(err)
	}

	node.Line = num

	parent := p.stack[len(p.stack)-1]
	parent.Children = append(parent.Children, node)
	p.prev = node

	return nil
}

// parseLine classifies one unindented line: statement, text, or tag.
func parseLine(s string) (*Node, error) {
	switch s[0] {
	case statementMarker:
		return parseStatement(strings.TrimSpace(s[1:]))

	case textMarker:
		text := strings.TrimPrefix(s[1:], " ")
		if _, err := Segments(text); err != nil {
			return nil, err
		}

		return &Node{Kind: KindText, Content: text + "\n"}, nil

	default:
		return parseTag(s)
	}
}

func parseStatement(s string) (*Node, error) {
	word, rest, _ := strings.Cut(s, " ")

	kw, ok := LookupKeyword(word)
	if !ok {
		err := ErrUnknownInstruction.With(slog.String("keyword", word))

		if m := fuzzy.Find(word, Keywords()); len(m) > 0 {
			err = err.With(slog.String("suggest", m[0].Str))
		}

		return nil, err
	}

	args, err := fields(strings.TrimSpace(rest))
	if err != nil {
		return nil, err
	}

	n := &Node{Kind: KindStatement, Keyword: kw}

	arity := func(want int) error {
		if len(args) != want {
			return ErrSyntax.With(
				slog.String("keyword", word),
				slog.Int("want", want),
				slog.Int("got", len(args)),
			)
		}

		return nil
	}

	switch kw {
	case KeywordIf:
		if err := arity(1); err != nil {
			return nil, err
		}

	case KeywordIfGreater, KeywordIfEqual, KeywordIfNotEqual:
		if err := arity(2); err != nil {
			return nil, err
		}

	case KeywordFor:
		switch {
		case len(args) == 3 && args[1] == "in":
			if !isPath(args[0]) || strings.Contains(args[0], ".") {
				return nil, ErrSyntax.With(slog.String("var", args[0]))
			}

			n.Var, args = args[0], args[2:]

		case len(args) != 1:
			return nil, ErrSyntax.With(slog.String("for", rest))
		}

	case KeywordView:
		if len(args) == 0 {
			n.Optional = true

			break
		}

		n.Name, args = args[0], args[1:]

		if name, ok := strings.CutPrefix(n.Name, "?"); ok {
			n.Name, n.Optional = name, true
		}

		if n.Name != "" && !isPath(n.Name) {
			return nil, ErrSyntax.With(slog.String("view", n.Name))
		}

	case KeywordImport:
		if len(args) == 0 {
			return nil, ErrSyntax.With(slog.String("import", "missing template name"))
		}

		n.Name = args[0]

		for _, a := range args[1:] {
			key, val, ok := strings.Cut(a, "=")
			if !ok || key == "" {
				return nil, ErrSyntax.With(slog.String("param", a))
			}

			e, err := ParseExpr(val)
			if err != nil {
				return nil, err
			}

			n.Params = append(n.Params, Param{Name: key, Value: e})
		}

		args = nil

	case KeywordContent, KeywordClient:
		if err := arity(0); err != nil {
			return nil, err
		}
	}

	for _, a := range args {
		e, err := ParseExpr(a)
		if err != nil {
			return nil, err
		}

		n.Args = append(n.Args, e)
	}

	return n, nil
}

func parseTag(s string) (*Node, error) {
	n := &Node{Kind: KindTag}

	i := scanIdent(s, 0)
	n.Name = s[:i]

	for i < len(s) && (s[i] == '#' || s[i] == '.') {
		mark := s[i]
		j := scanIdent(s, i+1)

		if j == i+1 {
			return nil, ErrSyntax.With(slog.String("selector", s[i:]))
		}

		if mark == '#' {
			n.ID = s[i+1 : j]
		} else {
			n.Classes = append(n.Classes, s[i+1:j])
		}

		i = j
	}

	if n.Name == "" {
		n.Name = defaultTag
	}

	if i < len(s) && s[i] == '(' {
		j, err := matchParen(s, i)
		if err != nil {
			return nil, err
		}

		if err := parseAttrs(n, s[i+1:j]); err != nil {
			return nil, err
		}

		i = j + 1
	}

	if i < len(s) {
		if s[i] != ' ' {
			return nil, ErrUnexpectedCharacter.With(
				slog.String("char", string(s[i])),
				slog.Int("column", i+1),
			)
		}

		n.Content = s[i+1:]

		if _, err := Segments(n.Content); err != nil {
			return nil, err
		}
	}

	return n, nil
}

func scanIdent(s string, i int) int {
	for i < len(s) {
		c := s[i]
		if c == '_' || c == '-' || c == ':' ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') {
			i++

			continue
		}

		break
	}

	return i
}

// matchParen returns the index of the ')' closing the '(' at open,
// skipping quoted strings and mustaches.
func matchParen(s string, open int) (int, error) {
	var quote byte

	for i := open + 1; i < len(s); i++ {
		c := s[i]

		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}

		case c == '"' || c == '\'':
			quote = c

		case strings.HasPrefix(s[i:], openMustache):
			j := closeIndex(s[i+len(openMustache):])
			if j < 0 {
				return 0, ErrUnterminated.With(slog.String("text", s[i:]))
			}

			i += len(openMustache) + j + len(closeMustache) - 1

		case c == ')':
			return i, nil
		}
	}

	return 0, ErrUnterminated.With(slog.String("attrs", s[open:]))
}

// parseAttrs fills the attributes and actions of n from the body of its
// parenthesized block.
func parseAttrs(n *Node, s string) error {
	i := 0

	for {
		for i < len(s) && s[i] == ' ' {
			i++
		}

		if i >= len(s) {
			return nil
		}

		if s[i] == actionMarker {
			return parseActions(n, s[i+1:])
		}

		j := i
		for j < len(s) && s[j] != '=' && s[j] != ' ' {
			j++
		}

		name := s[i:j]
		if name == "" {
			return ErrSyntax.With(slog.String("attr", s[i:]))
		}

		if j >= len(s) || s[j] != '=' {
			n.Attrs = append(n.Attrs, Attr{Name: name})
			i = j

			continue
		}

		j++
		if j >= len(s) || (s[j] != '"' && s[j] != '\'') {
			return ErrSyntax.With(slog.String("attr", name))
		}

		end := closingQuote(s, j)
		if end < 0 {
			return ErrUnterminated.With(slog.String("attr", name))
		}

		raw, err := unquote(s[j : end+1])
		if err != nil {
			return err
		}

		attr, err := makeAttr(name, raw)
		if err != nil {
			return err
		}

		n.Attrs = append(n.Attrs, attr)
		i = end + 1
	}
}

func closingQuote(s string, open int) int {
	for i := open + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case s[open]:
			return i
		}
	}

	return -1
}

// makeAttr classifies an attribute value. A value that is exactly one
// mustache, optionally followed by "!" or "!!", is a path attribute.
func makeAttr(name, value string) (Attr, error) {
	a := Attr{Name: name, Value: value}

	if !HasMustache(value) {
		return a, nil
	}

	body, binding := value, BindNone

	switch {
	case strings.HasSuffix(body, closeMustache+"!!"):
		body, binding = strings.TrimSuffix(body, "!!"), BindAutoSave
	case strings.HasSuffix(body, closeMustache+"!"):
		body, binding = strings.TrimSuffix(body, "!"), BindTwoWay
	}

	segs, err := Segments(body)
	if err != nil {
		return Attr{}, err
	}

	if len(segs) == 1 && segs[0].Expr != nil {
		a.Kind = AttrPath
		a.Value = body
		a.Expr = segs[0].Expr
		a.Binding = binding

		if binding != BindNone && a.Expr.Kind != ExprPath {
			return Attr{}, ErrSyntax.With(
				slog.String("attr", name),
				slog.String("binding", binding.String()),
			)
		}

		return a, nil
	}

	a.Kind = AttrInterpolated

	return a, nil
}

// parseActions reads "{{event target method}}" triples.
func parseActions(n *Node, s string) error {
	for {
		s = strings.TrimLeft(s, " ")
		if s == "" {
			return nil
		}

		if !strings.HasPrefix(s, openMustache) {
			return ErrSyntax.With(slog.String("action", s))
		}

		end := strings.Index(s, closeMustache)
		if end < 0 {
			return ErrUnterminated.With(slog.String("action", s))
		}

		parts := strings.Fields(s[len(openMustache):end])
		if len(parts) != 3 {
			return ErrSyntax.With(
				slog.String("action", s[:end+len(closeMustache)]),
				slog.Int("want", 3),
				slog.Int("got", len(parts)),
			)
		}

		n.Actions = append(n.Actions, Action{
			Event:  parts[0],
			Target: parts[1],
			Method: parts[2],
		})

		s = s[end+len(closeMustache):]
	}
}
