package lang

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
)

// Format writes root back out as template source, one node per line,
// indented [IndentWidth] spaces per level. Parsing the output yields an
// AST equal to root apart from line numbers.
func Format(_ context.Context, w io.Writer, root *Node) error {
	var sb strings.Builder

	var walk func(n *Node, depth int)

	walk = func(n *Node, depth int) {
		if n.Kind != KindTop {
			sb.WriteString(strings.Repeat(" ", depth*IndentWidth))
			sb.WriteString(n.String())
			sb.WriteByte('\n')
			depth++
		}

		for _, c := range n.Children {
			walk(c, depth)
		}
	}

	walk(root, 0)

	_, err := io.WriteString(w, sb.String())

	return err
}

// FormatJSON writes root as JSON. A positive indent pretty-prints.
func FormatJSON(_ context.Context, w io.Writer, root *Node, indent int) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", indent))
	}

	return enc.Encode(root)
}

// FormatYAML writes root as YAML.
func FormatYAML(_ context.Context, w io.Writer, root *Node, indent int) error {
	var opts []yaml.EncodeOption

	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	}

	// Round-trip through JSON so the json tags and text marshalers define
	// the document shape.
	data, err := json.Marshal(root)
	if err != nil {
		return err
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}

	out, err := yaml.MarshalWithOptions(doc, opts...)
	if err != nil {
		return err
	}

	_, err = w.Write(out)

	return err
}

// DecodeJSON reads an AST previously written by [FormatJSON].
func DecodeJSON(r io.Reader) (*Node, error) {
	var root Node

	if err := json.NewDecoder(r).Decode(&root); err != nil {
		return nil, ErrReadInput.Wrap(err)
	}

	return &root, nil
}
