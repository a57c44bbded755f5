package xslt

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/midbel/xsltc/xml"
)

func parseString(t *testing.T, str string) *xml.Document {
	t.Helper()
	p := xml.NewParser(strings.NewReader(str))
	p.TrimSpace = true
	doc, err := p.Parse()
	if err != nil {
		t.Fatalf("fail to parse document: %s", err)
	}
	return doc
}

// selectByValue maps the string value of the nodes of doc with the given
// type to the template selected for them. Elements with a k attribute are
// keyed by its value instead.
func selectByValue(t *testing.T, d *Dispatch, doc *xml.Document, kind xml.NodeType) map[string]string {
	t.Helper()
	var (
		ctx  = NewProgram(nil).NewContext(doc, NewTreeSink())
		list = make(map[string]string)
	)
	for _, n := range allNodes(doc) {
		if n.Type() != kind {
			continue
		}
		e, err := d.Select(ctx, n)
		if err != nil {
			t.Fatalf("%s: select failed: %s", n.QualifiedName(), err)
		}
		key := n.Value()
		if el, ok := n.(*xml.Element); ok {
			if a := el.GetAttribute("k"); a != nil {
				key = a.Value()
			}
		}
		list[key] = winnerName(e)
	}
	return list
}

func TestEmitNamedOverWildcard(t *testing.T) {
	doc := parseString(t, `<root><elem>1</elem><other>2</other><elem>3</elem></root>`)
	list := []*Template{
		makeTemplate(t, "elem", 1),
		makeTemplate(t, "*", 2),
	}
	d, err := Emit("test", list)
	if err != nil {
		t.Fatalf("emit failed: %s", err)
	}
	want := map[string]string{
		"123": "*#2",
		"1":   "elem#1",
		"2":   "*#2",
		"3":   "elem#1",
	}
	got := selectByValue(t, d, doc, xml.TypeElement)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("winners mismatched (-want +got):\n%s", diff)
	}
}

func TestEmitUnionLikeSeparateTemplates(t *testing.T) {
	doc := parseString(t, `<root k="root">
		<a k="a"><b k="ab">1</b><c k="ac">2</c></a>
		<c k="c"><b k="cb">3</b></c>
		<d k="d"><b k="db">4</b></d>
		<b k="b">5</b>
	</root>`)

	union := []*Template{
		makeTemplate(t, "*", 1),
		makeTemplate(t, "a/b | c/b", 2),
		makeTemplate(t, "b[. = '4']", 3),
	}
	split := []*Template{
		makeTemplate(t, "*", 1),
		makeTemplate(t, "a/b", 2),
		makeTemplate(t, "c/b", 3),
		makeTemplate(t, "b[. = '4']", 4),
	}
	rename := func(list map[string]string) map[string]string {
		for k, v := range list {
			switch v {
			case "a/b#2", "c/b#3", "a/b | c/b#2":
				list[k] = "A/B|C/B"
			case "b[. = '4']#3", "b[. = '4']#4":
				list[k] = "B4"
			}
		}
		return list
	}

	d1, err := Emit("union", union)
	if err != nil {
		t.Fatalf("emit failed: %s", err)
	}
	d2, err := Emit("split", split)
	if err != nil {
		t.Fatalf("emit failed: %s", err)
	}
	var (
		want = rename(selectByValue(t, d2, doc, xml.TypeElement))
		got  = rename(selectByValue(t, d1, doc, xml.TypeElement))
	)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("union and separate templates dispatch differently (-want +got):\n%s", diff)
	}
	if got["ab"] != "A/B|C/B" || got["cb"] != "A/B|C/B" {
		t.Errorf("both branches of the union should be selected: %v", got)
	}
	if got["db"] != "B4" || got["b"] != "*#1" || got["ac"] != "*#1" {
		t.Errorf("unexpected winners: %v", got)
	}
}

func TestEmitNodeFirst(t *testing.T) {
	doc := parseString(t, `<root>text</root>`)
	tests := []struct {
		Name        string
		Templates   []*Template
		Element     string
		Text        string
		NodeElement bool
		NodeText    bool
	}{
		{
			Name: "node above element only",
			Templates: []*Template{
				withPriority(makeTemplate(t, "node()", 1), 1),
				withPriority(makeTemplate(t, "*", 2), 0),
				withPriority(makeTemplate(t, "text()", 3), 2),
			},
			Element:     "node()#1",
			Text:        "text()#3",
			NodeElement: true,
		},
		{
			Name: "node above text only",
			Templates: []*Template{
				withPriority(makeTemplate(t, "node()", 1), 0),
				withPriority(makeTemplate(t, "*", 2), 1),
				withPriority(makeTemplate(t, "text()", 3), -1),
			},
			Element:  "*#2",
			Text:     "node()#1",
			NodeText: true,
		},
		{
			Name: "same priority declared first",
			Templates: []*Template{
				withPriority(makeTemplate(t, "node()", 1), 0),
				withPriority(makeTemplate(t, "*", 2), 0),
				withPriority(makeTemplate(t, "text()", 3), 0),
			},
			Element: "*#2",
			Text:    "text()#3",
		},
		{
			Name: "same priority declared last",
			Templates: []*Template{
				withPriority(makeTemplate(t, "*", 1), 0),
				withPriority(makeTemplate(t, "text()", 2), 0),
				withPriority(makeTemplate(t, "node()", 3), 0),
			},
			Element:     "node()#3",
			Text:        "node()#3",
			NodeElement: true,
			NodeText:    true,
		},
		{
			Name: "node alone",
			Templates: []*Template{
				makeTemplate(t, "node()", 1),
			},
			Element:     "node()#1",
			Text:        "node()#1",
			NodeElement: true,
			NodeText:    true,
		},
		{
			Name: "no node template",
			Templates: []*Template{
				makeTemplate(t, "*", 1),
			},
			Element: "*#1",
			Text:    "builtin",
		},
	}
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			d, err := Emit("test", tt.Templates)
			if err != nil {
				t.Fatalf("emit failed: %s", err)
			}
			if d.NodeFirstElement != tt.NodeElement {
				t.Errorf("node-first element: want %t, got %t", tt.NodeElement, d.NodeFirstElement)
			}
			if d.NodeFirstText != tt.NodeText {
				t.Errorf("node-first text: want %t, got %t", tt.NodeText, d.NodeFirstText)
			}
			elements := selectByValue(t, d, doc, xml.TypeElement)
			if got := elements["text"]; got != tt.Element {
				t.Errorf("element: want %s, got %s", tt.Element, got)
			}
			texts := selectByValue(t, d, doc, xml.TypeText)
			if got := texts["text"]; got != tt.Text {
				t.Errorf("text: want %s, got %s", tt.Text, got)
			}
		})
	}
}

func TestEmitPositionalPredicate(t *testing.T) {
	doc := parseString(t, `<root>
		<item>1</item>
		<other>x</other>
		<item>2</item>
		<item>3</item>
		<group><other>y</other><item>4</item><item>5</item></group>
	</root>`)
	tests := []struct {
		Pattern  string
		Optimize bool
		Kinds    []ContextKind
	}{
		{
			Pattern:  "item[position()=2]",
			Optimize: true,
			Kinds:    []ContextKind{SimpleContext},
		},
		{
			Pattern:  "item[position()=2]",
			Optimize: false,
			Kinds:    []ContextKind{GeneralContext},
		},
		{
			Pattern:  "item[2]",
			Optimize: true,
			Kinds:    []ContextKind{SimpleContext},
		},
		{
			Pattern:  "item[. != 'z'][2]",
			Optimize: true,
			Kinds:    []ContextKind{SimpleContext},
		},
		{
			Pattern:  "item[position() > 1][1]",
			Optimize: true,
			Kinds:    []ContextKind{GeneralContext},
		},
	}
	want := map[string]string{
		"1": "builtin",
		"2": "",
		"3": "builtin",
		"4": "builtin",
		"5": "",
	}
	for _, tt := range tests {
		tpl := makeTemplate(t, tt.Pattern, 1)
		d, err := Emit("test", []*Template{tpl}, WithOptimizePredicates(tt.Optimize))
		if err != nil {
			t.Fatalf("%s: emit failed: %s", tt.Pattern, err)
		}
		var (
			ctx  = NewProgram(nil).NewContext(doc, NewTreeSink())
			node = ctx.Node
			got  = make(map[string]string)
		)
		for _, n := range allNodes(doc) {
			if n.LocalName() != "item" {
				continue
			}
			e, err := d.Select(ctx, n)
			if err != nil {
				t.Fatalf("%s: select failed: %s", tt.Pattern, err)
			}
			if e == nil {
				got[n.Value()] = "builtin"
				continue
			}
			got[n.Value()] = ""
			if diff := cmp.Diff(tt.Kinds, e.Contexts()); diff != "" {
				t.Errorf("%s: contexts mismatched (-want +got):\n%s", tt.Pattern, diff)
			}
		}
		if ctx.Node != node {
			t.Errorf("%s: current node not restored", tt.Pattern)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s: winners mismatched (-want +got):\n%s", tt.Pattern, diff)
		}
	}
}

func TestEmitPredicateContexts(t *testing.T) {
	tests := []struct {
		Pattern string
		Kinds   []ContextKind
	}{
		{Pattern: "item", Kinds: []ContextKind{NoContext}},
		{Pattern: "item[@id]", Kinds: []ContextKind{NoContext}},
		{Pattern: "item[last()]", Kinds: []ContextKind{SimpleContext}},
		{Pattern: "item[1][last()]", Kinds: []ContextKind{GeneralContext}},
		{Pattern: "group/item[1]", Kinds: []ContextKind{NoContext, SimpleContext}},
		{Pattern: "group[2]/item[1]", Kinds: []ContextKind{SimpleContext, SimpleContext}},
		{Pattern: "group//item[1]", Kinds: []ContextKind{NoContext, GeneralContext}},
		{Pattern: "item[$pos]", Kinds: []ContextKind{GeneralContext}},
		{Pattern: "item[@id = $id][1]", Kinds: []ContextKind{GeneralContext}},
	}
	for _, tt := range tests {
		entries, err := Resolve([]*Template{makeTemplate(t, tt.Pattern, 1)})
		if err != nil {
			t.Fatalf("%s: resolve failed: %s", tt.Pattern, err)
		}
		classifyContexts(entries[0], true)
		if diff := cmp.Diff(tt.Kinds, entries[0].Contexts()); diff != "" {
			t.Errorf("%s: contexts mismatched (-want +got):\n%s", tt.Pattern, diff)
		}
	}
}

func TestEmitIdKeyBeforeSwitch(t *testing.T) {
	doc := parseString(t, `<root><item id="a">a</item><item id="b">b</item></root>`)
	tests := []struct {
		Name      string
		Templates []*Template
		Want      map[string]string
	}{
		{
			Name: "id ranked above",
			Templates: []*Template{
				withPriority(makeTemplate(t, "item", 1), 0),
				makeTemplate(t, "id('b')", 2),
			},
			Want: map[string]string{
				"ab": "builtin",
				"a":  "item#1",
				"b":  "id('b')#2",
			},
		},
		{
			Name: "type branch ranked above",
			Templates: []*Template{
				makeTemplate(t, "id('b')", 1),
				makeTemplate(t, "item", 2),
			},
			Want: map[string]string{
				"ab": "builtin",
				"a":  "item#2",
				"b":  "item#2",
			},
		},
		{
			Name: "id only",
			Templates: []*Template{
				makeTemplate(t, "id('a b')", 1),
			},
			Want: map[string]string{
				"ab": "builtin",
				"a":  "id('a b')#1",
				"b":  "id('a b')#1",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			d, err := Emit("test", tt.Templates)
			if err != nil {
				t.Fatalf("emit failed: %s", err)
			}
			got := selectByValue(t, d, doc, xml.TypeElement)
			if diff := cmp.Diff(tt.Want, got); diff != "" {
				t.Errorf("winners mismatched (-want +got):\n%s", diff)
			}
			blocks := d.Blocks()
			if len(blocks) == 0 || blocks[0].Kind != BlockIdKey {
				t.Fatalf("id/key block should come first")
			}
		})
	}

	c := NewCompiler()
	if _, err := c.Emit("test", []*Template{makeTemplate(t, "key('k', 'x')", 1)}); err != nil {
		t.Fatalf("emit failed: %s", err)
	}
	if n := c.Registry().Len(); n != NTypes {
		t.Errorf("key pattern should not register names: %v", c.Registry().Names())
	}
}

func TestEmitShadowed(t *testing.T) {
	tests := []struct {
		Name      string
		Templates []*Template
		Options   []Option
		Want      int
	}{
		{
			Name: "wildcard above name",
			Templates: []*Template{
				withPriority(makeTemplate(t, "*", 1), 5),
				makeTemplate(t, "item", 2),
			},
			Want: 1,
		},
		{
			Name: "predicate does not shadow",
			Templates: []*Template{
				withPriority(makeTemplate(t, "*[@id]", 1), 5),
				makeTemplate(t, "item", 2),
			},
		},
		{
			Name: "name above wildcard",
			Templates: []*Template{
				makeTemplate(t, "item", 1),
				makeTemplate(t, "*", 2),
			},
		},
		{
			Name: "wildcard kept for other names",
			Templates: []*Template{
				withPriority(makeTemplate(t, "item", 1), 5),
				makeTemplate(t, "item", 2),
				makeTemplate(t, "*", 3),
			},
			Want: 1,
		},
		{
			Name: "root lost",
			Templates: []*Template{
				makeTemplate(t, "/", 1),
				makeTemplate(t, "/", 2),
			},
			Want: 1,
		},
		{
			Name: "warnings disabled",
			Templates: []*Template{
				withPriority(makeTemplate(t, "*", 1), 5),
				makeTemplate(t, "item", 2),
			},
			Options: []Option{WithWarnings(false)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			c := NewCompiler(tt.Options...)
			if _, err := c.Emit("test", tt.Templates); err != nil {
				t.Fatalf("emit failed: %s", err)
			}
			list := c.Diagnostics().Warnings()
			if len(list) != tt.Want {
				t.Fatalf("warnings: want %d, got %d (%v)", tt.Want, len(list), list)
			}
			for _, w := range list {
				if !errors.Is(w, errShadowed) {
					t.Errorf("unexpected warning: %s", w)
				}
			}
			if c.Diagnostics().Failed() {
				t.Errorf("warnings should not fail the compilation")
			}
		})
	}
}

func TestEmitListing(t *testing.T) {
	list := []*Template{
		makeTemplate(t, "item", 1),
		makeTemplate(t, "*", 2),
	}
	d, err := Emit("test", list)
	if err != nil {
		t.Fatalf("emit failed: %s", err)
	}
	var str strings.Builder
	if err := d.Listing(&str); err != nil {
		t.Fatalf("listing failed: %s", err)
	}
	want := `procedure test
  switch: table[8]
  node-first: element=false text=false
aa-02: ELEMENT
  * (1, -0.5, 2) -> *#2 [NO_CONTEXT]
  default apply-templates
aa-07: item
  item (1, 0.5, 1) -> item#1 [NO_CONTEXT]
  * (1, -0.5, 2) -> *#2 [NO_CONTEXT]
  default apply-templates
`
	if diff := cmp.Diff(want, str.String()); diff != "" {
		t.Errorf("listing mismatched (-want +got):\n%s", diff)
	}

	other, err := Emit("test", []*Template{list[1], list[0]})
	if err != nil {
		t.Fatalf("emit failed: %s", err)
	}
	var again strings.Builder
	other.Listing(&again)
	if again.String() != str.String() {
		t.Errorf("listing depends on declaration order")
	}
}

func TestEmitSparseSwitch(t *testing.T) {
	list := []*Template{
		makeTemplate(t, "item", 1),
		makeTemplate(t, "@id", 2),
		makeTemplate(t, "*", 3),
	}
	d, err := Emit("test", list, WithTableLimit(2))
	if err != nil {
		t.Fatalf("emit failed: %s", err)
	}
	if !d.Sparse() {
		t.Fatalf("dispatch should use a sparse switch above the table limit")
	}
	doc := parseString(t, `<root><item id="x">1</item><other>2</other></root>`)
	want := map[string]string{
		"12": "*#3",
		"1":  "item#1",
		"2":  "*#3",
	}
	got := selectByValue(t, d, doc, xml.TypeElement)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("winners mismatched (-want +got):\n%s", diff)
	}
	attrs := selectByValue(t, d, doc, xml.TypeAttribute)
	if attrs["x"] != "@id#2" {
		t.Errorf("attribute: want @id#2, got %s", attrs["x"])
	}
}

func TestEmitNamespaceSwitch(t *testing.T) {
	doc := parseString(t, `<root xmlns:ns="urn:ns" xmlns:x="urn:x">
		<ns:item>1</ns:item>
		<ns:other>2</ns:other>
		<x:other>3</x:other>
		<item ns:lang="en">4</item>
	</root>`)
	list := []*Template{
		makeTemplate(t, "ns:*", 1),
		makeTemplate(t, "ns:item", 2),
		makeTemplate(t, "*", 3),
		makeTemplate(t, "@ns:*", 4),
	}
	d, err := Emit("test", list)
	if err != nil {
		t.Fatalf("emit failed: %s", err)
	}
	want := map[string]string{
		"1234": "*#3",
		"1":    "ns:item#2",
		"2":    "ns:*#1",
		"3":    "*#3",
		"4":    "*#3",
	}
	got := selectByValue(t, d, doc, xml.TypeElement)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("winners mismatched (-want +got):\n%s", diff)
	}
	attrs := selectByValue(t, d, doc, xml.TypeAttribute)
	if attrs["en"] != "@ns:*#4" {
		t.Errorf("attribute: want @ns:*#4, got %s", attrs["en"])
	}
}

func TestModeWindowed(t *testing.T) {
	var (
		base     = makeTemplate(t, "item", 1)
		override = makeTemplate(t, "item", 2)
		doc      = parseString(t, `<root><item>1</item></root>`)
	)
	override.Precedence = 2
	override.MinPrecedence = 1

	m := newMode("", NewCompiler())
	m.Append(base)
	m.Append(override)

	d, err := m.Dispatch()
	if err != nil {
		t.Fatalf("dispatch failed: %s", err)
	}
	if got := selectByValue(t, d, doc, xml.TypeElement)["1"]; got != "item#2" {
		t.Errorf("unrestricted: want item#2, got %s", got)
	}
	w := override.ImportWindow()
	dw, err := m.Windowed(w)
	if err != nil {
		t.Fatalf("windowed dispatch failed: %s", err)
	}
	if got := selectByValue(t, dw, doc, xml.TypeElement)["1"]; got != "item#1" {
		t.Errorf("windowed: want item#1, got %s", got)
	}
	if want := "#default$1_2"; dw.Name != want {
		t.Errorf("name: want %s, got %s", want, dw.Name)
	}
	again, _ := m.Windowed(w)
	if again != dw {
		t.Errorf("windowed dispatch should be compiled once")
	}
	if got := selectByValue(t, d, doc, xml.TypeElement)["1"]; got != "item#2" {
		t.Errorf("unrestricted dispatch altered by window: got %s", got)
	}
	if n := len(m.Windows()); n != 1 {
		t.Errorf("windows: want 1, got %d", n)
	}
	if d, _ := m.Windowed(Unbounded()); d != m.dispatch {
		t.Errorf("unbounded window should return the unrestricted dispatch")
	}
}

func TestModeWindowedWarnings(t *testing.T) {
	var (
		first    = makeTemplate(t, "*", 1)
		second   = makeTemplate(t, "*", 2)
		override = makeTemplate(t, "item", 3)
		c        = NewCompiler()
	)
	override.Precedence = 2
	override.MinPrecedence = 1

	m := newMode("", c)
	m.Append(first)
	m.Append(second)
	m.Append(override)

	if _, err := m.Dispatch(); err != nil {
		t.Fatalf("dispatch failed: %s", err)
	}
	if n := len(c.Diagnostics().Warnings()); n != 1 {
		t.Fatalf("unrestricted: want 1 warning, got %d", n)
	}
	if _, err := m.Windowed(override.ImportWindow()); err != nil {
		t.Fatalf("windowed dispatch failed: %s", err)
	}
	list := c.Diagnostics().Warnings()
	if len(list) != 1 {
		t.Errorf("windowed: want 1 warning, got %d", len(list))
	}
	if !errors.Is(list[0], errShadowed) {
		t.Errorf("shadowed warning expected, got %s", list[0])
	}
}
