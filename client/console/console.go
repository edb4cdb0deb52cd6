// Package console prints the judge progress in the terminal
package console

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/hydrogen-oj/judger/client"
	"github.com/hydrogen-oj/judger/types"
)

var _ client.Reporter = &Console{}

// Console prints a line for every case and the final result
type Console struct {
	w io.Writer

	ok   *color.Color
	bad  *color.Color
	info *color.Color
}

// New creates the console reporter, colors follow color.NoColor unless
// noColor is set
func New(w io.Writer, noColor bool) *Console {
	c := &Console{
		w:    w,
		ok:   color.New(color.FgGreen, color.Bold),
		bad:  color.New(color.FgRed, color.Bold),
		info: color.New(color.FgCyan),
	}
	if noColor {
		c.ok.DisableColor()
		c.bad.DisableColor()
		c.info.DisableColor()
	}
	return c
}

// Compiled prints the compile result
func (c *Console) Compiled(p *types.ProgressCompiled) {
	if p.Status == types.ProgressSucceeded {
		fmt.Fprintln(c.w, c.info.Sprint("Compiled."))
		return
	}
	fmt.Fprintln(c.w, c.bad.Sprint("Compile Failed."))
	if p.Message != "" {
		fmt.Fprint(c.w, p.Message)
	}
}

// Progressed prints `Test Case i: <t>ms <m>KiB <s>pts <STATUS>`
func (c *Console) Progressed(p *types.ProgressProgressed) {
	r := p.CaseResult
	fmt.Fprintf(c.w, "Test Case %d: %dms %dKiB %dpts %s\n",
		p.TestCaseIndex+1, r.Time, r.Space, r.Score, c.caseStatus(r.Status))
}

// Finished prints the summary
func (c *Console) Finished(rt *types.JudgeResult) error {
	status := c.bad.Sprint(rt.Status)
	if rt.Status == types.JudgeAccepted {
		status = c.ok.Sprint(rt.Status)
	}
	_, err := fmt.Fprintf(c.w, "%s %dpts %dms %dKiB\nJudge Finished.\n", status, rt.Score, rt.Time, rt.Space)
	return err
}

func (c *Console) caseStatus(s types.CaseStatus) string {
	if s == types.CaseAccepted {
		return c.ok.Sprint(s)
	}
	return c.bad.Sprint(s)
}
