package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/midbel/xsltc/xml"
	"github.com/midbel/xsltc/xpath"
	"github.com/midbel/xsltc/xslt"
)

// Config is read from a file like:
//
//	<angle>
//	  <namespace prefix="ns">urn:ns</namespace>
//	  <table-limit>512</table-limit>
//	  <optimize-predicates>false</optimize-predicates>
//	  <warnings>true</warnings>
//	  <param name="lang">en</param>
//	</angle>
type Config struct {
	Options []xslt.Option
	Params  map[string]string
}

func readConfig(file string) (*Config, error) {
	cfg := Config{
		Params: make(map[string]string),
	}
	if file == "" {
		return &cfg, nil
	}
	doc, err := parseDocument(file, true)
	if err != nil {
		return nil, err
	}
	for _, el := range configElements(doc, "/angle/namespace") {
		var (
			a = el.GetAttribute("prefix")
			o = xslt.WithNamespace(attrValue(a), el.Value())
		)
		cfg.Options = append(cfg.Options, o)
	}
	for _, el := range configElements(doc, "/angle/table-limit") {
		n, err := strconv.Atoi(strings.TrimSpace(el.Value()))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%s: table-limit: invalid value %q", file, el.Value())
		}
		cfg.Options = append(cfg.Options, xslt.WithTableLimit(n))
	}
	for _, el := range configElements(doc, "/angle/optimize-predicates") {
		b, err := strconv.ParseBool(strings.TrimSpace(el.Value()))
		if err != nil {
			return nil, fmt.Errorf("%s: optimize-predicates: %w", file, err)
		}
		cfg.Options = append(cfg.Options, xslt.WithOptimizePredicates(b))
	}
	for _, el := range configElements(doc, "/angle/warnings") {
		b, err := strconv.ParseBool(strings.TrimSpace(el.Value()))
		if err != nil {
			return nil, fmt.Errorf("%s: warnings: %w", file, err)
		}
		cfg.Options = append(cfg.Options, xslt.WithWarnings(b))
	}
	for _, el := range configElements(doc, "/angle/param") {
		name := attrValue(el.GetAttribute("name"))
		if name == "" {
			return nil, fmt.Errorf("%s: param without name", file)
		}
		cfg.Params[name] = el.Value()
	}
	return &cfg, nil
}

func configElements(doc *xml.Document, query string) []*xml.Element {
	expr, err := xpath.CompileString(query)
	if err != nil {
		return nil
	}
	seq, err := xpath.Find(expr, doc)
	if err != nil {
		return nil
	}
	var list []*xml.Element
	for i := range seq {
		if el, ok := seq[i].Node().(*xml.Element); ok {
			list = append(list, el)
		}
	}
	return list
}

func attrValue(a *xml.Attribute) string {
	if a == nil {
		return ""
	}
	return a.Value()
}
