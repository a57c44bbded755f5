package xslt

import (
	"errors"
	"strings"
	"testing"
)

func TestCompilePattern(t *testing.T) {
	tests := []struct {
		Pattern string
		Want    string
	}{
		{Pattern: "item", Want: "item"},
		{Pattern: "child::item", Want: "item"},
		{Pattern: "/", Want: "/"},
		{Pattern: "document-node()", Want: "/"},
		{Pattern: "/root", Want: "/root"},
		{Pattern: "//item", Want: "//item"},
		{Pattern: "group/item", Want: "group/item"},
		{Pattern: "root//group/item", Want: "root//group/item"},
		{Pattern: "@id", Want: "@id"},
		{Pattern: "attribute::id", Want: "@id"},
		{Pattern: "@*", Want: "@*"},
		{Pattern: "attribute::node()", Want: "attribute::node()"},
		{Pattern: "attribute()", Want: "attribute::node()"},
		{Pattern: "element()", Want: "*"},
		{Pattern: "ns:*", Want: "ns:*"},
		{Pattern: "ns:item", Want: "ns:item"},
		{Pattern: "@ns:lang", Want: "@ns:lang"},
		{Pattern: "item[@id][1]", Want: "item[@id][1]"},
		{Pattern: "item[ @id = 'a]' ]", Want: "item[@id = 'a]']"},
		{Pattern: "item[group[1]]", Want: "item[group[1]]"},
		{Pattern: "text()", Want: "text()"},
		{Pattern: "comment()", Want: "comment()"},
		{Pattern: "node()", Want: "node()"},
		{Pattern: "processing-instruction()", Want: "processing-instruction()"},
		{Pattern: "processing-instruction('target')", Want: "processing-instruction('target')"},
		{Pattern: "processing-instruction(target)", Want: "processing-instruction('target')"},
		{Pattern: "id('a')", Want: "id('a')"},
		{Pattern: "key('k', 'v')", Want: "key('k', 'v')"},
		{Pattern: "id('a')/item", Want: "id('a')/item"},
		{Pattern: "key('k','v')//item", Want: "key('k', 'v')//item"},
		{Pattern: "a | b", Want: "a | b"},
		{Pattern: "a union b", Want: "a | b"},
		{Pattern: "a|b/c|@d", Want: "a | b/c | @d"},
	}
	for _, tt := range tests {
		p, err := CompilePattern(tt.Pattern, testNamespaces())
		if err != nil {
			t.Errorf("%s: unexpected error: %s", tt.Pattern, err)
			continue
		}
		if got := p.String(); got != tt.Want {
			t.Errorf("%s: want %s, got %s", tt.Pattern, tt.Want, got)
		}
	}
}

func TestCompileInvalidPattern(t *testing.T) {
	tests := []string{
		"",
		"item/",
		"item[",
		"item]",
		"a |",
		"@",
		"text(",
		"id(a)",
		"key('k')",
		"id('a')item",
		"foo::item",
		"parent::item",
		"undeclared:item",
		"attribute::text()",
		"@comment()",
		"item(x)",
	}
	for _, str := range tests {
		_, err := CompilePattern(str, testNamespaces())
		if err == nil {
			t.Errorf("%q: expected error but pattern compiled", str)
			continue
		}
		if !errors.Is(err, ErrPattern) {
			t.Errorf("%q: unexpected error type: %s", str, err)
		}
	}
}

func TestKernel(t *testing.T) {
	tests := []struct {
		Pattern string
		Want    string
	}{
		{Pattern: "item", Want: "item"},
		{Pattern: "group/item[1]", Want: "item"},
		{Pattern: "id('a')//ns:*", Want: "ns:*"},
		{Pattern: "/", Want: ""},
		{Pattern: "key('k', 'v')", Want: ""},
		{Pattern: "a | b", Want: ""},
	}
	for _, tt := range tests {
		p, err := CompilePattern(tt.Pattern, testNamespaces())
		if err != nil {
			t.Fatalf("%s: unexpected error: %s", tt.Pattern, err)
		}
		var got string
		if k := Kernel(p); k != nil {
			got = k.String()
		}
		if got != tt.Want {
			t.Errorf("%s: kernel: want %q, got %q", tt.Pattern, tt.Want, got)
		}
	}
}

func TestSubsumes(t *testing.T) {
	tests := []struct {
		Left  string
		Right string
		Want  bool
	}{
		{Left: "*", Right: "item", Want: true},
		{Left: "*", Right: "ns:*", Want: true},
		{Left: "item", Right: "*", Want: false},
		{Left: "ns:*", Right: "ns:item", Want: true},
		{Left: "ns:*", Right: "item", Want: false},
		{Left: "item", Right: "item", Want: true},
		{Left: "item", Right: "other", Want: false},
		{Left: "node()", Right: "text()", Want: true},
		{Left: "node()", Right: "*", Want: true},
		{Left: "text()", Right: "node()", Want: false},
		{Left: "*", Right: "text()", Want: false},
		{Left: "@*", Right: "item", Want: false},
		{Left: "@*", Right: "@id", Want: true},
		{Left: "attribute::node()", Right: "@id", Want: true},
		{Left: "node()", Right: "@id", Want: false},
		{Left: "processing-instruction()", Right: "processing-instruction('t')", Want: true},
		{Left: "processing-instruction('t')", Right: "processing-instruction()", Want: false},
	}
	for _, tt := range tests {
		left, err := CompilePattern(tt.Left, testNamespaces())
		if err != nil {
			t.Fatalf("%s: unexpected error: %s", tt.Left, err)
		}
		right, err := CompilePattern(tt.Right, testNamespaces())
		if err != nil {
			t.Fatalf("%s: unexpected error: %s", tt.Right, err)
		}
		got := subsumes(left.(*StepPattern), right.(*StepPattern))
		if got != tt.Want {
			t.Errorf("%s subsumes %s: want %t, got %t", tt.Left, tt.Right, tt.Want, got)
		}
	}
}

func TestScanPattern(t *testing.T) {
	scan := Scan(strings.NewReader("ns:item[@id]/text() | key('k', \"v\")"))
	want := []Token{
		{Type: opName, Literal: "ns"},
		{Type: opNamespace},
		{Type: opName, Literal: "item"},
		{Type: opPredicate, Literal: "@id"},
		{Type: opCurrentLevel},
		{Type: opName, Literal: "text"},
		{Type: begGrp},
		{Type: endGrp},
		{Type: opUnion},
		{Type: opName, Literal: "key"},
		{Type: begGrp},
		{Type: opLiteral, Literal: "k"},
		{Type: opSeq},
		{Type: opLiteral, Literal: "v"},
		{Type: endGrp},
		{Type: opEOF},
	}
	for i, w := range want {
		got := scan.Scan()
		if got != w {
			t.Fatalf("token %d: want %s, got %s", i, w, got)
		}
	}
}
