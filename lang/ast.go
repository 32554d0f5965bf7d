package lang

import (
	"fmt"
	"log/slog"
	"strings"
)

// Kind identifies the variant of a [Node].
type Kind int

const (
	KindTop Kind = iota
	KindText
	KindTag
	KindStatement
)

var kindName = [...]string{
	KindTop:       "top",
	KindText:      "text",
	KindTag:       "tag",
	KindStatement: "statement",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindName) {
		return kindName[k]
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText encodes k by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	for i, n := range kindName {
		if n == string(b) {
			*k = Kind(i)

			return nil
		}
	}

	return ErrSyntax.With(slog.String("kind", string(b)))
}

// Keyword identifies a statement variant.
type Keyword int

const (
	KeywordNone Keyword = iota
	KeywordIf
	KeywordIfGreater
	KeywordIfEqual
	KeywordIfNotEqual
	KeywordFor
	KeywordView
	KeywordImport
	KeywordContent
	KeywordClient
)

var keywordName = [...]string{
	KeywordNone:       "",
	KeywordIf:         "if",
	KeywordIfGreater:  "if-greater",
	KeywordIfEqual:    "if-equal",
	KeywordIfNotEqual: "if-not-equal",
	KeywordFor:        "for",
	KeywordView:       "view",
	KeywordImport:     "import",
	KeywordContent:    "content",
	KeywordClient:     "client",
}

// Keywords returns the source spelling of every statement keyword.
func Keywords() []string {
	return append([]string(nil), keywordName[1:]...)
}

// LookupKeyword returns the keyword spelled s.
func LookupKeyword(s string) (Keyword, bool) {
	for i, n := range keywordName[1:] {
		if n == s {
			return Keyword(i + 1), true
		}
	}

	return KeywordNone, false
}

func (k Keyword) String() string {
	if k >= 0 && int(k) < len(keywordName) {
		return keywordName[k]
	}

	return fmt.Sprintf("keyword(%d)", int(k))
}

// MarshalText encodes k by its source spelling.
func (k Keyword) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a keyword spelling.
func (k *Keyword) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*k = KeywordNone

		return nil
	}

	kw, ok := LookupKeyword(string(b))
	if !ok {
		return ErrUnknownInstruction.With(slog.String("keyword", string(b)))
	}

	*k = kw

	return nil
}

// Conditional reports whether k is one of the if variants.
func (k Keyword) Conditional() bool {
	return k >= KeywordIf && k <= KeywordIfNotEqual
}

// Node is one element of a parsed template. Nodes are immutable after
// parsing and may be shared by concurrent renders.
type Node struct {
	Kind Kind `json:"kind"`
	Line int  `json:"line,omitempty"`

	// Tag fields. Name is also the view-model name of a view statement and
	// the template name of an import statement.
	Name    string   `json:"name,omitempty"`
	ID      string   `json:"id,omitempty"`
	Classes []string `json:"classes,omitempty"`
	Attrs   []Attr   `json:"attrs,omitempty"`
	Actions []Action `json:"actions,omitempty"`

	// Content is the literal text of a Text node or the trailing inline
	// content of a Tag. It may contain mustaches.
	Content string `json:"content,omitempty"`

	// Statement fields.
	Keyword  Keyword `json:"keyword,omitempty"`
	Var      string  `json:"var,omitempty"`
	Optional bool    `json:"optional,omitempty"`
	Args     []Expr  `json:"args,omitempty"`
	Params   []Param `json:"params,omitempty"`

	Children []*Node `json:"children,omitempty"`
}

// HasContent reports whether n carries literal or interpolated content.
func (n *Node) HasContent() bool {
	return n.Kind == KindText || n.Content != ""
}

// Walk calls fn for n and every descendant in document order. Returning
// false from fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}

	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Imports returns the names of templates imported anywhere under n.
func (n *Node) Imports() []string {
	var names []string

	n.Walk(func(c *Node) bool {
		if c.Kind == KindStatement && c.Keyword == KeywordImport {
			names = append(names, c.Name)
		}

		return true
	})

	return names
}

// String returns the source line of n without its children.
func (n *Node) String() string {
	var sb strings.Builder

	switch n.Kind {
	case KindTop:
		sb.WriteString("top")

	case KindText:
		sb.WriteString("| " + strings.TrimSuffix(n.Content, "\n"))

	case KindTag:
		sb.WriteString(n.Name)

		if n.ID != "" {
			sb.WriteString("#" + n.ID)
		}

		for _, c := range n.Classes {
			sb.WriteString("." + c)
		}

		if len(n.Attrs) > 0 || len(n.Actions) > 0 {
			sb.WriteByte('(')

			for i, a := range n.Attrs {
				if i > 0 {
					sb.WriteByte(' ')
				}

				sb.WriteString(a.String())
			}

			if len(n.Actions) > 0 {
				if len(n.Attrs) > 0 {
					sb.WriteByte(' ')
				}

				sb.WriteByte('@')

				for _, act := range n.Actions {
					fmt.Fprintf(&sb, " {{%s %s %s}}", act.Event, act.Target, act.Method)
				}
			}

			sb.WriteByte(')')
		}

		if n.Content != "" {
			sb.WriteString(" " + n.Content)
		}

	case KindStatement:
		sb.WriteString("- " + n.Keyword.String())

		switch n.Keyword {
		case KeywordFor:
			if n.Var != "" {
				sb.WriteString(" " + n.Var + " in")
			}

		case KeywordView:
			switch {
			case n.Name == "":
			case n.Optional:
				sb.WriteString(" ?" + n.Name)
			default:
				sb.WriteString(" " + n.Name)
			}

		case KeywordImport:
			sb.WriteString(" " + n.Name)

			for _, p := range n.Params {
				sb.WriteString(" " + p.Name + "=" + p.Value.Source)
			}
		}

		for _, a := range n.Args {
			sb.WriteString(" " + a.Source)
		}
	}

	return sb.String()
}

// AttrKind classifies how an attribute value is produced.
type AttrKind int

const (
	// AttrLiteral values are used verbatim.
	AttrLiteral AttrKind = iota
	// AttrInterpolated values contain mustaches mixed with literal text.
	AttrInterpolated
	// AttrPath values are exactly one mustache; they may carry a binding.
	AttrPath
)

var attrKindName = [...]string{"literal", "interpolated", "path"}

func (k AttrKind) String() string {
	if k >= 0 && int(k) < len(attrKindName) {
		return attrKindName[k]
	}

	return fmt.Sprintf("attr(%d)", int(k))
}

// MarshalText encodes k by name.
func (k AttrKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes an attribute kind name.
func (k *AttrKind) UnmarshalText(b []byte) error {
	for i, n := range attrKindName {
		if n == string(b) {
			*k = AttrKind(i)

			return nil
		}
	}

	return ErrSyntax.With(slog.String("attr_kind", string(b)))
}

// Binding selects write-back behavior for a path attribute.
type Binding int

const (
	BindNone Binding = iota
	// BindTwoWay writes input changes back through the resolved reference.
	BindTwoWay
	// BindAutoSave additionally saves the owning model after each write.
	BindAutoSave
)

var bindingName = [...]string{"", "two-way", "auto-save"}

func (b Binding) String() string {
	if b >= 0 && int(b) < len(bindingName) {
		return bindingName[b]
	}

	return fmt.Sprintf("binding(%d)", int(b))
}

// MarshalText encodes b by name.
func (b Binding) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// UnmarshalText decodes a binding name.
func (b *Binding) UnmarshalText(t []byte) error {
	for i, n := range bindingName {
		if n == string(t) {
			*b = Binding(i)

			return nil
		}
	}

	return ErrSyntax.With(slog.String("binding", string(t)))
}

// Attr is one tag attribute. Attributes keep their source order.
type Attr struct {
	Name    string   `json:"name"`
	Value   string   `json:"value,omitempty"`
	Kind    AttrKind `json:"kind"`
	Expr    *Expr    `json:"expr,omitempty"`
	Binding Binding  `json:"binding,omitempty"`
}

func (a Attr) String() string {
	if a.Value == "" && a.Kind == AttrLiteral {
		return a.Name
	}

	suffix := ""

	switch a.Binding {
	case BindTwoWay:
		suffix = "!"
	case BindAutoSave:
		suffix = "!!"
	}

	return fmt.Sprintf("%s=%q", a.Name, a.Value+suffix)
}

// Action binds a target-side event to a method resolved against scope.
type Action struct {
	Event  string `json:"event"`
	Target string `json:"target"`
	Method string `json:"method"`
}

// Param is a named import argument.
type Param struct {
	Name  string `json:"name"`
	Value Expr   `json:"value"`
}
