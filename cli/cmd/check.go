package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/lipgloss"
	"github.com/hashicorp/go-multierror"

	"github.com/ardnew/weft/lang"
)

// Check parses every template on the search path and reports each failure
// with its location, the offending line and a suggestion when one exists.
type Check struct {
	Quiet bool `help:"Only report failures" short:"q"`
}

// Run executes the check command.
func (c *Check) Run(ctx context.Context, g *Globals) error {
	lib := g.library()
	names := lib.Names()
	rep := newReport(stdout(ctx))

	var failed []error

	if err := lib.Check(ctx); err != nil {
		var merr *multierror.Error
		if errors.As(err, &merr) {
			failed = merr.Errors
		} else {
			failed = []error{err}
		}
	}

	for _, err := range failed {
		rep.failure(err)
	}

	if len(failed) > 0 {
		return ErrCheck.With(
			slog.Int("failed", len(failed)),
			slog.Int("templates", len(names)),
		)
	}

	if !c.Quiet {
		rep.success(len(names))
	}

	return nil
}

// report writes styled diagnostics. Styles degrade to plain text when w
// is not a color terminal.
type report struct {
	w io.Writer

	location lipgloss.Style
	message  lipgloss.Style
	snippet  lipgloss.Style
	hint     lipgloss.Style
	ok       lipgloss.Style
}

func newReport(w io.Writer) report {
	r := lipgloss.NewRenderer(w)

	return report{
		w:        w,
		location: r.NewStyle().Bold(true),
		message:  r.NewStyle().Foreground(lipgloss.Color("1")),
		snippet:  r.NewStyle().Foreground(lipgloss.Color("8")),
		hint:     r.NewStyle().Foreground(lipgloss.Color("4")),
		ok:       r.NewStyle().Foreground(lipgloss.Color("2")),
	}
}

func (r report) failure(err error) {
	var pe *lang.ParseError
	if !errors.As(err, &pe) {
		fmt.Fprintln(r.w, r.message.Render(err.Error()))

		return
	}

	loc := fmt.Sprintf("%s:%d:", pe.File, pe.Line)
	fmt.Fprintln(r.w, r.location.Render(loc), r.message.Render(pe.Err.Error()))

	if s := pe.Snippet(); s != "" {
		fmt.Fprintln(r.w, r.snippet.Render(s))
	}

	if h := pe.Hint(); h != "" {
		fmt.Fprintln(r.w, r.hint.Render(fmt.Sprintf("     did you mean %q?", h)))
	}
}

func (r report) success(n int) {
	fmt.Fprintln(r.w, r.ok.Render(fmt.Sprintf("ok: %d templates", n)))
}
