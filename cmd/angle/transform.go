package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/midbel/cli"
	"github.com/midbel/xsltc/xml"
	"github.com/midbel/xsltc/xslt"
)

var transformCmd = cli.Command{
	Name:    "transform",
	Alias:   []string{"exec"},
	Summary: "apply transformation defined in xslt to xml document",
	Handler: &TransformCmd{},
}

type TransformCmd struct {
	Mode      string
	File      string
	Text      bool
	Quiet     bool
	Compact   bool
	NoProlog  bool
	NoComment bool
	Params    map[string]string
	CompileOptions
}

func (c *TransformCmd) Run(args []string) error {
	c.Params = make(map[string]string)

	set := cli.NewFlagSet("transform")
	set.StringVar(&c.Mode, "m", "", "initial mode")
	set.StringVar(&c.File, "f", "", "output file")
	set.BoolVar(&c.Text, "text", false, "write only the text content of the result")
	set.BoolVar(&c.Quiet, "q", false, "quiet")
	set.BoolVar(&c.Compact, "compact", false, "write result without indentation")
	set.BoolVar(&c.NoProlog, "omit-prolog", false, "omit xml prolog")
	set.BoolVar(&c.NoComment, "no-comment", false, "omit comments from result")
	set.Func("param", "global parameter given as name=value", func(str string) error {
		name, value, ok := strings.Cut(str, "=")
		if !ok || name == "" {
			return fmt.Errorf("%s: parameter should be given as name=value", str)
		}
		c.Params[name] = value
		return nil
	})
	c.CompileOptions.attach(set)
	if err := set.Parse(args); err != nil {
		return err
	}

	prog, err := c.load(set.Arg(0))
	if err := reportDiagnostics(prog, err, true); err != nil {
		return err
	}
	for k, v := range c.Params {
		prog.Params[k] = v
	}
	doc, err := parseDocument(set.Arg(1), true)
	if err != nil {
		return err
	}
	if c.Text {
		return c.runText(prog, doc)
	}
	sink := xslt.NewTreeSink()
	if err := prog.RunMode(c.initialMode(prog), doc, sink); err != nil {
		return err
	}
	if c.Quiet {
		return nil
	}
	return writeDocument(sink.Document(), c.File, c.writerOptions())
}

func (c *TransformCmd) runText(prog *xslt.Program, doc *xml.Document) error {
	var w io.Writer = os.Stdout
	if c.Quiet {
		w = io.Discard
	} else if c.File != "" {
		f, err := os.Create(c.File)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return prog.RunMode(c.initialMode(prog), doc, xslt.NewTextSink(w))
}

func (c *TransformCmd) initialMode(prog *xslt.Program) string {
	if c.Mode != "" {
		return c.Mode
	}
	return prog.Initial
}

func (c *TransformCmd) writerOptions() xml.WriterOptions {
	var options xml.WriterOptions
	if c.Compact {
		options |= xml.OptionCompact
	}
	if c.NoProlog {
		options |= xml.OptionNoProlog
	}
	if c.NoComment {
		options |= xml.OptionNoComment
	}
	return options
}
