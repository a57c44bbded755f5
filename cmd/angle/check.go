package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"charm.land/lipgloss/v2"
	"github.com/midbel/cli"
	"github.com/midbel/xsltc/xslt"
	"golang.org/x/sync/errgroup"
)

var checkCmd = cli.Command{
	Name:    "check",
	Summary: "compile stylesheets and report their diagnostics",
	Handler: &CheckCmd{},
}

type CheckCmd struct {
	Jobs     int
	FailFast bool
	Quiet    bool
	CompileOptions
}

type checkResult struct {
	File    string
	Program *xslt.Program
	Err     error
}

func (c *CheckCmd) Run(args []string) error {
	set := cli.NewFlagSet("check")
	set.IntVar(&c.Jobs, "j", runtime.NumCPU(), "number of stylesheets compiled concurrently")
	set.BoolVar(&c.FailFast, "fail-fast", false, "stop as soon as a stylesheet fails to compile")
	set.BoolVar(&c.Quiet, "q", false, "only report stylesheets with errors")
	c.CompileOptions.attach(set)
	if err := set.Parse(args); err != nil {
		return err
	}
	files := set.Args()
	if len(files) == 0 {
		return fmt.Errorf("no stylesheet given")
	}

	results := make([]checkResult, len(files))
	spin := NewSpinner()
	spin.SetMessage(fmt.Sprintf("compiling %d stylesheet(s)", len(files)))
	err := spin.Run(func() error {
		return c.compileAll(files, results)
	})

	failed := err != nil
	for _, r := range results {
		if r.File == "" {
			continue
		}
		if r.Err != nil {
			failed = true
		}
		c.report(r)
	}
	if failed {
		return errFail
	}
	return nil
}

// compileAll compiles each file with its own program so that runs share no
// registry.
func (c *CheckCmd) compileAll(files []string, results []checkResult) error {
	grp, ctx := errgroup.WithContext(context.Background())
	if c.Jobs > 0 {
		grp.SetLimit(c.Jobs)
	}
	for i, file := range files {
		grp.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			prog, err := c.load(file)
			results[i] = checkResult{
				File:    file,
				Program: prog,
				Err:     err,
			}
			if err != nil && c.FailFast {
				return err
			}
			return nil
		})
	}
	return grp.Wait()
}

func (c *CheckCmd) report(r checkResult) {
	if r.Program != nil {
		printDiagnostics(os.Stderr, r.Program.Diagnostics(), true)
	}
	if r.Err != nil {
		if r.Program == nil || !r.Program.Diagnostics().Failed() {
			lipgloss.Fprintln(os.Stderr, errStyle.Render(fmt.Sprintf("%s: %s", r.File, r.Err)))
		}
		lipgloss.Fprintln(os.Stdout, errStyle.Render(r.File+": failed"))
		return
	}
	if c.Quiet {
		return
	}
	var (
		modes = len(r.Program.ModeNames())
		tpls  = len(r.Program.Templates)
		msg   = fmt.Sprintf("%s: ok (%d mode(s), %d template(s))", r.File, modes, tpls)
	)
	lipgloss.Fprintln(os.Stdout, okStyle.Render(msg))
}
