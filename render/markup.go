package render

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// voidElements are written self-closed, as html.Render writes them.
var voidElements = []string{
	"area", "base", "br", "col", "embed", "hr", "img", "input",
	"keygen", "link", "meta", "param", "source", "track", "wbr",
}

func isVoid(tag string) bool {
	return slices.Contains(voidElements, strings.ToLower(tag))
}

// allAttrs returns id and class followed by attrs, in rendering order.
func allAttrs(id string, classes []string, attrs []Attr) []Attr {
	out := make([]Attr, 0, len(attrs)+2)

	if id != "" {
		out = append(out, Attr{Name: "id", Value: id})
	}

	if len(classes) > 0 {
		out = append(out, Attr{Name: "class", Value: strings.Join(classes, " ")})
	}

	return append(out, attrs...)
}

func writeOpen(b *strings.Builder, tag string, attrs []Attr) {
	b.WriteByte('<')
	b.WriteString(tag)

	for _, a := range attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(a.Value))
		b.WriteByte('"')
	}

	if isVoid(tag) {
		b.WriteString("/>")

		return
	}

	b.WriteByte('>')
}

func writeClose(b *strings.Builder, tag string) {
	if isVoid(tag) {
		return
	}

	b.WriteString("</")
	b.WriteString(tag)
	b.WriteByte('>')
}
