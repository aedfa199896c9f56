// Package report prints solve progress for people.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/edp1096/toy-transport/pkg/solver"
	"github.com/edp1096/toy-transport/pkg/util"
)

const (
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorDefault = "\033[39m"
)

// Console writes pass/fail lines, colored when the output is a terminal.
type Console struct {
	w     io.Writer
	color bool
}

var _ solver.Reporter = (*Console)(nil)

func NewConsole(w io.Writer) *Console {
	c := &Console{w: w}
	if f, ok := w.(*os.File); ok {
		c.color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return c
}

func (c *Console) paint(color, text string) string {
	if !c.color {
		return text
	}
	return color + text + colorDefault
}

func (c *Console) StepOutcome(step int, solved, converged bool) {
	switch {
	case !solved:
		fmt.Fprintf(c.w, "Grid step %d:%s\n", step, c.paint(colorGreen, " Solve Skipped!"))
	case converged:
		fmt.Fprintf(c.w, "Grid step %d:%s\n", step, c.paint(colorGreen, " Solve Converged!"))
	default:
		fmt.Fprintf(c.w, "Grid step %d:%s\n", step, c.paint(colorRed, " Solve Did NOT Converge!"))
	}
}

func (c *Console) GroupOutcome(strategy solver.Strategy, group int, converged bool) {
	what := "Forward substitution"
	if strategy.SourceIteration() {
		what = "Scattering source iteration"
	}
	if converged {
		fmt.Fprintln(c.w, c.paint(colorGreen, fmt.Sprintf("%s for group %d converged!", what, group)))
		return
	}
	fmt.Fprintln(c.w, c.paint(colorRed, fmt.Sprintf("%s for group %d did NOT converge!", what, group)))
}

func (c *Console) InnerIteration(group, iteration int, residual float64) {
	fmt.Fprintf(c.w, "Scattering source iteration %d - Group %d angular flux residual maximum norm:\n%s\n",
		iteration, group, c.paint(colorGreen, util.FormatResidual(residual)))
}
