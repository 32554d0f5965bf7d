package cmd

import (
	"context"

	"github.com/ardnew/weft/lang"
)

// AST prints the syntax tree of one template.
type AST struct {
	Name   string `arg:""         help:"Template name; --source is read when omitted" optional:""`
	Format string `default:"tree" enum:"tree,json,yaml"                              help:"Output format" short:"f"`
	Indent int    `default:"2"    help:"Indent width of json and yaml output"`
}

// Run executes the ast command.
func (a *AST) Run(ctx context.Context, g *Globals) error {
	tpl, err := g.template(ctx, g.library(), a.Name)
	if err != nil {
		return err
	}

	w := stdout(ctx)

	switch a.Format {
	case "json":
		return lang.FormatJSON(ctx, w, tpl, a.Indent)
	case "yaml":
		return lang.FormatYAML(ctx, w, tpl, a.Indent)
	default:
		return lang.Format(ctx, w, tpl)
	}
}
