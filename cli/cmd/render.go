package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ardnew/weft/render"
)

// Render renders one template to standard output.
type Render struct {
	Name   string `arg:""                                    help:"Template name; --source is read when omitted" optional:""`
	Stream bool   `help:"Write each part as soon as it is ready" short:"S"`
	JSON   bool   `help:"Write streamed chunks as JSON lines"    name:"json"`
}

// Run executes the render command.
func (r *Render) Run(ctx context.Context, g *Globals) (err error) {
	lib := g.library()

	tpl, err := g.template(ctx, lib, r.Name)
	if err != nil {
		return err
	}

	eng, closeStore, err := g.engine(ctx, lib)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := closeStore(); err == nil {
			err = cerr
		}
	}()

	layers, err := g.layers()
	if err != nil {
		return err
	}

	w := stdout(ctx)

	if !r.Stream {
		s, err := eng.RenderNodeString(ctx, tpl, layers...)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(w, s)

		return err
	}

	return eng.RenderNodeStream(ctx, tpl, chunkWriter(w, r.JSON), layers...)
}

// chunkWriter returns a sink writing chunk data to w, or each whole chunk
// as a line of JSON.
func chunkWriter(w io.Writer, asJSON bool) render.Sink {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)

		return func(c render.Chunk) error { return enc.Encode(c) }
	}

	return func(c render.Chunk) error {
		if _, err := io.WriteString(w, c.Data); err != nil {
			return err
		}

		if c.EOF {
			_, err := io.WriteString(w, "\n")

			return err
		}

		return nil
	}
}
