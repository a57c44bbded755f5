package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/midbel/cli"
	"github.com/midbel/xsltc/xslt"
)

var compileCmd = cli.Command{
	Name:    "compile",
	Alias:   []string{"listing"},
	Summary: "compile a stylesheet and print the dispatch procedures of its modes",
	Handler: &CompileCmd{},
}

type CompileCmd struct {
	Mode  string
	Plain bool
	File  string
	CompileOptions
}

func (c *CompileCmd) Run(args []string) error {
	set := cli.NewFlagSet("compile")
	set.StringVar(&c.Mode, "m", "", "print only the procedures of mode")
	set.BoolVar(&c.Plain, "plain", false, "print listing without colors")
	set.StringVar(&c.File, "f", "", "output file")
	c.CompileOptions.attach(set)
	if err := set.Parse(args); err != nil {
		return err
	}
	prog, err := c.load(set.Arg(0))
	if err := reportDiagnostics(prog, err, !c.Plain); err != nil {
		return err
	}
	listing, err := writeListing(prog, c.Mode)
	if err != nil {
		return err
	}
	if c.File != "" || c.Plain {
		var w io.Writer = os.Stdout
		if c.File != "" {
			f, err := os.Create(c.File)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		_, err = io.WriteString(w, listing)
		return err
	}
	_, err = lipgloss.Fprintln(os.Stdout, styleListing(listing))
	return err
}

func writeListing(prog *xslt.Program, mode string) (string, error) {
	var str strings.Builder
	if mode == "" {
		if err := prog.Listing(&str); err != nil {
			return "", err
		}
		return str.String(), nil
	}
	m, err := prog.Mode(mode)
	if err != nil {
		return "", err
	}
	d, err := m.Dispatch()
	if err != nil {
		return "", err
	}
	list := append([]*xslt.Dispatch{d}, m.Windows()...)
	for _, d := range list {
		if err := d.Listing(&str); err != nil {
			return "", err
		}
	}
	return str.String(), nil
}

// reportDiagnostics prints the diagnostics of prog and returns errFail when
// they already describe err.
func reportDiagnostics(prog *xslt.Program, err error, color bool) error {
	if prog == nil {
		return err
	}
	printDiagnostics(os.Stderr, prog.Diagnostics(), color)
	if err != nil && prog.Diagnostics().Failed() {
		return errFail
	}
	return err
}

func printDiagnostics(w io.Writer, diag *xslt.Diagnostics, color bool) {
	for _, d := range diag.All() {
		msg := d.Error()
		if color {
			style := warnStyle
			if d.Severity == xslt.SeverityError {
				style = errStyle
			}
			lipgloss.Fprintln(w, style.Render(msg))
			continue
		}
		fmt.Fprintln(w, msg)
	}
}
