package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/midbel/xsltc/xml"
	"github.com/midbel/xsltc/xpath"
	"github.com/midbel/xsltc/xslt"
)

// CompileOptions are the flags shared by every command loading a stylesheet.
type CompileOptions struct {
	Config     string
	TableLimit int
	NoOptimize bool
	NoWarning  bool
	Trace      bool
	TraceExpr  bool
}

type flagSet interface {
	StringVar(*string, string, string, string)
	IntVar(*int, string, int, string)
	BoolVar(*bool, string, bool, string)
}

func (c *CompileOptions) attach(set flagSet) {
	set.StringVar(&c.Config, "config", "", "configuration file")
	set.IntVar(&c.TableLimit, "table-limit", 0, "number of codes above which type switches are sparse")
	set.BoolVar(&c.NoOptimize, "no-optimize", false, "evaluate every positional predicate in the general context")
	set.BoolVar(&c.NoWarning, "no-warning", false, "do not report shadowed rules")
	set.BoolVar(&c.Trace, "trace", false, "trace compilation and execution on stderr")
	set.BoolVar(&c.TraceExpr, "trace-expr", false, "trace the parsing of xpath expressions on stderr")
}

func (c *CompileOptions) load(file string) (*xslt.Program, error) {
	cfg, err := readConfig(c.Config)
	if err != nil {
		return nil, err
	}
	options := cfg.Options
	if c.TableLimit > 0 {
		options = append(options, xslt.WithTableLimit(c.TableLimit))
	}
	if c.NoOptimize {
		options = append(options, xslt.WithOptimizePredicates(false))
	}
	if c.NoWarning {
		options = append(options, xslt.WithWarnings(false))
	}
	if c.Trace {
		options = append(options, xslt.WithTracer(xslt.Stderr()))
	}
	if c.TraceExpr {
		options = append(options, xslt.WithExprTracer(xpath.TraceStderr()))
	}
	doc, err := parseDocument(file, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	prog, err := xslt.LoadDocument(doc, file, options...)
	if prog != nil {
		for k, v := range cfg.Params {
			prog.Params[k] = v
		}
	}
	return prog, err
}

func parseDocument(file string, trim bool) (*xml.Document, error) {
	r, err := openFile(file)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	p := xml.NewParser(r)
	p.TrimSpace = trim
	return p.Parse()
}

func writeDocument(doc *xml.Document, file string, options xml.WriterOptions) error {
	if doc == nil {
		return fmt.Errorf("no document to be written")
	}
	var w io.Writer = os.Stdout
	if file != "" {
		f, err := os.Create(file)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return xslt.Serialize(w, doc, options)
}

func openFile(file string) (io.ReadCloser, error) {
	u, err := url.Parse(file)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http", "https":
		req, err := http.NewRequest(http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("accept", "text/xml")
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}
		if res.StatusCode != 200 {
			res.Body.Close()
			return nil, fmt.Errorf("fail to retrieve remote file")
		}
		return res.Body, nil
	default:
		return os.Open(file)
	}
}
