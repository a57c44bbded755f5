package xslt

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/midbel/xsltc/environ"
	"github.com/midbel/xsltc/xml"
	"github.com/midbel/xsltc/xpath"
)

const sampleDocument = `<?xml version="1.0" encoding="UTF-8"?>
<root xmlns:ns="urn:ns">
	<item id="a">alpha</item>
	<item id="b" ns:id="x">beta<!--note--></item>
	<group>
		<item>gamma</item>
		<ns:item ns:lang="en">delta</ns:item>
		<other/>
		<item>epsilon</item>
	</group>
	<?target data?>
	<ns:other>zeta</ns:other>
</root>`

var patternPool = []string{
	"item",
	"*",
	"node()",
	"text()",
	"@id",
	"@*",
	"group/item",
	"item[2]",
	"item[@id]",
	"item[position()=last()]",
	"root//item",
	"/",
	"/root",
	"comment()",
	"processing-instruction()",
	"item | group",
	"group/item | root/item",
	"id('b')",
	"key('byname', 'beta')",
	"ns:*",
	"ns:item",
	"@ns:*",
	"attribute::node()",
	"node()[1]",
	"text()[contains(., 'e')]",
	"*[@id='a'] | text()",
}

func testNamespaces() environ.Environ[string] {
	env := environ.Empty[string]()
	env.Define("ns", "urn:ns")
	return env
}

func parseSample(t testing.TB) *xml.Document {
	t.Helper()
	p := xml.NewParser(strings.NewReader(sampleDocument))
	p.TrimSpace = true
	doc, err := p.Parse()
	if err != nil {
		t.Fatalf("fail to parse sample document: %s", err)
	}
	return doc
}

func makeTemplate(t testing.TB, match string, position int) *Template {
	t.Helper()
	p, err := CompilePattern(match, testNamespaces())
	if err != nil {
		t.Fatalf("%s: fail to compile pattern: %s", match, err)
	}
	return &Template{
		Match:         match,
		Pattern:       p,
		Position:      position,
		Precedence:    1,
		MinPrecedence: 1,
	}
}

func withPriority(t *Template, prio float64) *Template {
	t.Priority = prio
	t.HasPriority = true
	return t
}

func sampleProgram(t testing.TB) *Program {
	t.Helper()
	p := NewProgram(nil)
	match, err := CompilePattern("item", nil)
	if err != nil {
		t.Fatalf("fail to compile key pattern: %s", err)
	}
	use, err := xpath.CompileString(".")
	if err != nil {
		t.Fatalf("fail to compile key expression: %s", err)
	}
	p.Keys.Define(&Key{
		Name:  "byname",
		Match: match,
		Use:   use,
	})
	return p
}

// allNodes returns the document node, elements, texts, comments,
// instructions and attributes of doc in document order.
func allNodes(doc *xml.Document) []xml.Node {
	var list []xml.Node
	xml.Walk(doc, func(n xml.Node) bool {
		list = append(list, n)
		list = append(list, xml.Collect(xml.Attributes(n))...)
		return true
	})
	return list
}

func nodeLabel(n xml.Node) string {
	var parts []string
	for curr := n; curr != nil; curr = curr.Parent() {
		name := curr.QualifiedName()
		switch curr.Type() {
		case xml.TypeDocument:
			continue
		case xml.TypeAttribute:
			name = "@" + name
		case xml.TypeText:
			name = "text()"
		case xml.TypeComment:
			name = "comment()"
		case xml.TypeInstruction:
			name = "pi()"
		}
		parts = append(parts, fmt.Sprintf("%s[%d]", name, curr.Position()))
	}
	slices.Reverse(parts)
	if len(parts) == 0 {
		return "/"
	}
	var str string
	for _, p := range parts {
		str += "/" + p
	}
	return str
}

// winners runs the dispatch on every node of doc and returns the identifier
// of the selected template per node, "builtin" when none is selected.
func winners(t testing.TB, d *Dispatch, p *Program, doc *xml.Document) map[string]string {
	t.Helper()
	var (
		ctx  = p.NewContext(doc, NewTreeSink())
		list = make(map[string]string)
	)
	for _, n := range allNodes(doc) {
		e, err := d.Select(ctx, n)
		if err != nil {
			t.Fatalf("%s: select failed: %s", nodeLabel(n), err)
		}
		list[nodeLabel(n)] = winnerName(e)
	}
	return list
}

// expected computes the winners by testing every entry against every node
// without any bucketing.
func expected(t testing.TB, templates []*Template, p *Program, doc *xml.Document) map[string]string {
	t.Helper()
	entries, err := Resolve(templates)
	if err != nil {
		t.Fatalf("resolve failed: %s", err)
	}
	var (
		ctx  = p.NewContext(doc, NewTreeSink())
		list = make(map[string]string)
	)
	for _, n := range allNodes(doc) {
		var best *Entry
		for _, e := range entries {
			ok, err := e.Match(ctx, n)
			if err != nil {
				t.Fatalf("%s: match failed: %s", nodeLabel(n), err)
			}
			if ok {
				best = e
				break
			}
		}
		list[nodeLabel(n)] = winnerName(best)
	}
	return list
}

func winnerName(e *Entry) string {
	if e == nil {
		return "builtin"
	}
	return e.Template.Ident()
}

func randomTemplates(t testing.TB, seed int64) []*Template {
	var (
		rnd   = rand.New(rand.NewSource(seed))
		size  = 1 + rnd.Intn(12)
		prios = []float64{-1, 0, 0.5, 1, 2}
		list  []*Template
	)
	for i := 0; i < size; i++ {
		match := patternPool[rnd.Intn(len(patternPool))]
		tpl := makeTemplate(t, match, i+1)
		tpl.Precedence = 1 + rnd.Intn(3)
		if rnd.Intn(2) == 0 {
			withPriority(tpl, prios[rnd.Intn(len(prios))])
		}
		list = append(list, tpl)
	}
	return list
}

func TestDefaultPriority(t *testing.T) {
	tests := []struct {
		Pattern string
		Want    float64
	}{
		{Pattern: "item", Want: 0.5},
		{Pattern: "@id", Want: 0.5},
		{Pattern: "ns:item", Want: 0.5},
		{Pattern: "ns:*", Want: -0.25},
		{Pattern: "@ns:*", Want: -0.25},
		{Pattern: "*", Want: -0.5},
		{Pattern: "@*", Want: -0.5},
		{Pattern: "text()", Want: -0.5},
		{Pattern: "comment()", Want: -0.5},
		{Pattern: "processing-instruction()", Want: -0.5},
		{Pattern: "processing-instruction('target')", Want: 0},
		{Pattern: "node()", Want: -0.75},
		{Pattern: "attribute::node()", Want: -0.75},
		{Pattern: "item[1]", Want: 1},
		{Pattern: "*[@id]", Want: 0},
		{Pattern: "node()[1]", Want: -0.25},
		{Pattern: "group/item", Want: 1},
		{Pattern: "group/*", Want: 0},
		{Pattern: "/", Want: 0.5},
		{Pattern: "/root", Want: 1},
		{Pattern: "id('a')", Want: 0.5},
		{Pattern: "item | *", Want: 0.5},
	}
	for _, tt := range tests {
		p, err := CompilePattern(tt.Pattern, testNamespaces())
		if err != nil {
			t.Errorf("%s: fail to compile pattern: %s", tt.Pattern, err)
			continue
		}
		if got := DefaultPriority(p); got != tt.Want {
			t.Errorf("%s: priority mismatched! want %g, got %g", tt.Pattern, tt.Want, got)
		}
	}
}

func TestResolveUnionBranches(t *testing.T) {
	tpl := makeTemplate(t, "group/item | *", 1)
	entries, err := Resolve([]*Template{tpl})
	if err != nil {
		t.Fatalf("resolve failed: %s", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries: want 2, got %d", len(entries))
	}
	var got []Rank
	for _, e := range entries {
		if e.Template != tpl {
			t.Errorf("%s: branch should point at its template", e)
		}
		got = append(got, e.Rank)
	}
	want := []Rank{
		{Precedence: 1, Priority: 1, Position: 1, Branch: 0},
		{Precedence: 1, Priority: -0.5, Position: 1, Branch: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ranks mismatched (-want +got):\n%s", diff)
	}
}

func TestResolveSkipsDisabled(t *testing.T) {
	var (
		keep = makeTemplate(t, "item", 1)
		skip = makeTemplate(t, "*", 2)
	)
	skip.Disable()
	entries, err := Resolve([]*Template{keep, skip})
	if err != nil {
		t.Fatalf("resolve failed: %s", err)
	}
	if len(entries) != 1 || entries[0].Template != keep {
		t.Errorf("disabled template should not produce entries")
	}
}

func TestResolveInternalError(t *testing.T) {
	broken := &Template{
		Match:    "broken",
		Position: 1,
		Pattern: &AlternativePattern{
			Left: &StepPattern{Test: WildcardTest{}},
		},
	}
	_, err := Resolve([]*Template{broken})
	if err == nil {
		t.Fatalf("union with a missing branch should fail")
	}
	if !errors.Is(err, ErrInternal) {
		t.Errorf("internal error expected, got %s", err)
	}
}

func TestResolveProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	properties.Property("entries are totally ordered", prop.ForAll(
		func(seed int64) bool {
			entries, err := Resolve(randomTemplates(t, seed))
			if err != nil {
				return false
			}
			for i := 1; i < len(entries); i++ {
				if !entries[i-1].Above(entries[i].Rank) {
					return false
				}
			}
			return true
		},
		gen.Int64(),
	))
	properties.Property("resolution does not depend on input order", prop.ForAll(
		func(seed int64, shuffle int64) bool {
			var (
				list  = randomTemplates(t, seed)
				other = slices.Clone(list)
				rnd   = rand.New(rand.NewSource(shuffle))
			)
			rnd.Shuffle(len(other), func(i, j int) {
				other[i], other[j] = other[j], other[i]
			})
			want, err1 := Resolve(list)
			got, err2 := Resolve(other)
			if err1 != nil || err2 != nil || len(want) != len(got) {
				return false
			}
			for i := range want {
				if want[i].Template != got[i].Template || want[i].Rank != got[i].Rank {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.Int64(),
	))
	properties.TestingRun(t)
}

func TestDispatchProperties(t *testing.T) {
	var (
		doc = parseSample(t)
		prg = sampleProgram(t)
	)
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	properties.Property("dispatch selects the highest ranked matching template", prop.ForAll(
		func(seed int64, optimize bool) bool {
			list := randomTemplates(t, seed)
			d, err := NewCompiler(WithOptimizePredicates(optimize)).Emit("test", list)
			if err != nil {
				t.Logf("emit failed: %s", err)
				return false
			}
			want := expected(t, list, prg, doc)
			got := winners(t, d, prg, doc)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Logf("winners mismatched (-want +got):\n%s", diff)
				return false
			}
			return true
		},
		gen.Int64(),
		gen.Bool(),
	))
	properties.Property("dispatch does not depend on declaration order", prop.ForAll(
		func(seed int64, shuffle int64) bool {
			var (
				list  = randomTemplates(t, seed)
				other = slices.Clone(list)
				rnd   = rand.New(rand.NewSource(shuffle))
			)
			rnd.Shuffle(len(other), func(i, j int) {
				other[i], other[j] = other[j], other[i]
			})
			d1, err1 := NewCompiler().Emit("test", list)
			d2, err2 := NewCompiler().Emit("test", other)
			if err1 != nil || err2 != nil {
				return false
			}
			return cmp.Equal(winners(t, d1, prg, doc), winners(t, d2, prg, doc))
		},
		gen.Int64(),
		gen.Int64(),
	))
	properties.Property("sparse switch selects like the table", prop.ForAll(
		func(seed int64) bool {
			list := randomTemplates(t, seed)
			d1, err1 := NewCompiler().Emit("test", list)
			d2, err2 := NewCompiler(WithTableLimit(0)).Emit("test", list)
			if err1 != nil || err2 != nil || !d2.Sparse() {
				return false
			}
			return cmp.Equal(winners(t, d1, prg, doc), winners(t, d2, prg, doc))
		},
		gen.Int64(),
	))
	properties.TestingRun(t)
}

func TestResolveAdditivePriority(t *testing.T) {
	tests := []struct {
		Other string
		Want  float64
	}{
		{Other: "group/*", Want: 0},
		{Other: "*[. = 'x']", Want: 0},
		{Other: "ns:*[1]", Want: 0.25},
	}
	for _, tt := range tests {
		list := []*Template{
			makeTemplate(t, "item", 1),
			makeTemplate(t, tt.Other, 2),
		}
		entries, err := Resolve(list)
		if err != nil {
			t.Fatalf("%s: resolve failed: %s", tt.Other, err)
		}
		if got := entries[0].Template.Ident(); got != "item#1" {
			t.Errorf("%s: item should rank first, got %s", tt.Other, got)
		}
		if got := entries[1].Rank.Priority; got != tt.Want {
			t.Errorf("%s: priority: want %g, got %g", tt.Other, tt.Want, got)
		}
	}
}
