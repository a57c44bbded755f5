package xslt

import (
	"errors"
	"testing"

	"github.com/midbel/xsltc/xml"
	"github.com/midbel/xsltc/xpath"
)

func TestKeyTableUnion(t *testing.T) {
	doc, err := xml.ParseString(`<root><a v="x"/><b v="x"/><c v="x"/><a v="y"/></root>`)
	if err != nil {
		t.Fatalf("fail to parse document: %s", err)
	}
	match, err := CompilePattern("a | b", nil)
	if err != nil {
		t.Fatalf("fail to compile key pattern: %s", err)
	}
	use, err := xpath.CompileString("@v")
	if err != nil {
		t.Fatalf("fail to compile key expression: %s", err)
	}
	p := NewProgram(nil)
	if err := p.Keys.Define(&Key{Name: "k", Match: match, Use: use}); err != nil {
		t.Fatalf("fail to define key: %s", err)
	}
	if n := len(p.Keys["k"]); n != 2 {
		t.Fatalf("declarations: want 2, got %d", n)
	}

	ctx := p.NewContext(doc, NewTreeSink())
	tests := []struct {
		Value string
		Want  []string
	}{
		{Value: "x", Want: []string{"a", "b"}},
		{Value: "y", Want: []string{"a"}},
		{Value: "z"},
	}
	for _, tt := range tests {
		nodes, err := ctx.keys().Lookup("k", tt.Value, doc)
		if err != nil {
			t.Errorf("%s: unexpected error: %s", tt.Value, err)
			continue
		}
		var got []string
		for _, n := range nodes {
			got = append(got, n.LocalName())
		}
		if len(got) != len(tt.Want) {
			t.Errorf("%s: want %v, got %v", tt.Value, tt.Want, got)
			continue
		}
		for i := range got {
			if got[i] != tt.Want[i] {
				t.Errorf("%s: want %v, got %v", tt.Value, tt.Want, got)
				break
			}
		}
	}
}

func TestKeyTableDispatchUnion(t *testing.T) {
	doc := parseSample(t)
	match, err := CompilePattern("item | other", nil)
	if err != nil {
		t.Fatalf("fail to compile key pattern: %s", err)
	}
	use, err := xpath.CompileString("'all'")
	if err != nil {
		t.Fatalf("fail to compile key expression: %s", err)
	}
	p := NewProgram(nil)
	p.Keys.Define(&Key{Name: "any", Match: match, Use: use})

	tpl := makeTemplate(t, "key('any', 'all')", 1)
	d, err := Emit("test", []*Template{tpl})
	if err != nil {
		t.Fatalf("fail to emit dispatch: %s", err)
	}
	ctx := p.NewContext(doc, NewTreeSink())
	var count int
	for _, n := range allNodes(doc) {
		e, err := d.Select(ctx, n)
		if err != nil {
			t.Fatalf("%s: unexpected error: %s", nodeLabel(n), err)
		}
		if e != nil {
			count++
		}
	}
	if count != 5 {
		t.Errorf("matching nodes: want 5, got %d", count)
	}
}

func TestKeyTableNestedUnion(t *testing.T) {
	left, err := CompilePattern("a", nil)
	if err != nil {
		t.Fatalf("fail to compile pattern: %s", err)
	}
	right, err := CompilePattern("b", nil)
	if err != nil {
		t.Fatalf("fail to compile pattern: %s", err)
	}
	step, err := CompilePattern("c", nil)
	if err != nil {
		t.Fatalf("fail to compile pattern: %s", err)
	}
	match := &PathPattern{
		Anchor: &AlternativePattern{Left: left, Right: right},
		Steps:  []*StepPattern{step.(*StepPattern)},
	}
	keys := make(KeyTable)
	err = keys.Define(&Key{Name: "k", Match: match})
	if !errors.Is(err, ErrInternal) {
		t.Errorf("internal error expected, got %v", err)
	}
	if len(keys["k"]) != 0 {
		t.Errorf("invalid key should not be defined")
	}
}
