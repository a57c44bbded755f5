package xml_test

import (
	"strings"
	"testing"

	"github.com/midbel/xsltc/xml"
)

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform" xmlns:h="urn:html">
	<xsl:template match="h:p[@id]" priority="1">
		<!-- paragraph -->
		<h:div class="para"><xsl:value-of select="."/></h:div>
	</xsl:template>
	<?target data?>
</xsl:stylesheet>`

func TestParseValidDocument(t *testing.T) {
	p := xml.NewParser(strings.NewReader(sample))
	p.TrimSpace = true
	doc, err := p.Parse()
	if err != nil {
		t.Fatalf("fail to parse sample document: %s", err)
	}
	root, ok := doc.Root().(*xml.Element)
	if !ok {
		t.Fatalf("root element expected")
	}
	if got, want := root.QualifiedName(), "xsl:stylesheet"; got != want {
		t.Errorf("root: want %s, got %s", want, got)
	}
	if got, want := root.Uri, "http://www.w3.org/1999/XSL/Transform"; got != want {
		t.Errorf("root namespace: want %s, got %s", want, got)
	}
	if len(root.Namespaces) != 2 {
		t.Errorf("namespaces: want 2, got %d", len(root.Namespaces))
	}
	var (
		tpl  = xml.Collect(xml.Typed(xml.Children(root), xml.TypeElement))
		pi   = xml.Collect(xml.Typed(xml.Children(root), xml.TypeInstruction))
		divs = xml.Collect(xml.Named(xml.Descendants(root), "urn:html", "div"))
	)
	if len(tpl) != 1 {
		t.Fatalf("templates: want 1, got %d", len(tpl))
	}
	if len(pi) != 1 {
		t.Errorf("instructions: want 1, got %d", len(pi))
	}
	if len(divs) != 1 {
		t.Fatalf("h:div: want 1, got %d", len(divs))
	}
	el := tpl[0].(*xml.Element)
	if a := el.GetAttribute("match"); a == nil || a.Value() != "h:p[@id]" {
		t.Errorf("match attribute not found")
	}
	if uri, ok := divs[0].(*xml.Element).LookupNS("h"); !ok || uri != "urn:html" {
		t.Errorf("prefix h not resolved from descendant")
	}
}

func TestParseDocumentOrder(t *testing.T) {
	doc, err := xml.ParseString(`<root><a/><b><c/></b><d/></root>`)
	if err != nil {
		t.Fatalf("fail to parse document: %s", err)
	}
	var names []string
	xml.Walk(doc, func(n xml.Node) bool {
		if n.Type() == xml.TypeElement {
			names = append(names, n.LocalName())
		}
		return true
	})
	if got, want := strings.Join(names, ","), "root,a,b,c,d"; got != want {
		t.Errorf("walk: want %s, got %s", want, got)
	}
	var (
		all = xml.Collect(xml.Descendants(doc.Root()))
		c   = all[2]
		d   = all[3]
	)
	if !xml.Before(c, d) || xml.Before(d, c) {
		t.Errorf("c should come before d in document order")
	}
}

func TestParseInvalidDocument(t *testing.T) {
	data := []struct {
		Xml   string
		Cause string
	}{
		{
			Xml:   ``,
			Cause: "document without root element",
		},
		{
			Xml:   `<root empty-attr></root>`,
			Cause: "attribute without value",
		},
		{
			Xml:   `<root><child></root>`,
			Cause: "element not closed",
		},
		{
			Xml:   `<root></root></other>`,
			Cause: "unexpected closing element",
		},
	}
	for _, d := range data {
		_, err := xml.ParseString(d.Xml)
		if err == nil {
			t.Errorf("%s: invalid document parsed properly!", d.Cause)
		}
	}
}

func TestParseStrictNamespace(t *testing.T) {
	p := xml.NewParser(strings.NewReader(`<x:root/>`))
	p.StrictNS = true
	if _, err := p.Parse(); err == nil {
		t.Errorf("undeclared prefix should be rejected in strict mode")
	}
}
