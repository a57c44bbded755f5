package xslt

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/midbel/xsltc/xml"
)

func TestRegistryCodes(t *testing.T) {
	r := NewRegistry()
	var (
		item  = r.ElementCode("", "item")
		id    = r.AttributeCode("", "item")
		other = r.ElementCode("urn:ns", "item")
	)
	if item != NTypes {
		t.Errorf("first name code: want %d, got %d", NTypes, item)
	}
	if item == id || item == other || id == other {
		t.Errorf("names should get distinct codes: %d, %d, %d", item, id, other)
	}
	if again := r.ElementCode("", "item"); again != item {
		t.Errorf("code should be stable: want %d, got %d", item, again)
	}
	if r.Len() != NTypes+3 {
		t.Errorf("len: want %d, got %d", NTypes+3, r.Len())
	}
	if !r.IsAttribute(id) || r.IsAttribute(item) || !r.IsAttribute(CodeAttribute) {
		t.Errorf("attribute codes not recognized")
	}
	want := []string{"item", "@item", "{urn:ns}item"}
	if diff := cmp.Diff(want, r.Names()); diff != "" {
		t.Errorf("names mismatched (-want +got):\n%s", diff)
	}
	if got := r.Name(CodeInstruction); got != "PROCESSING_INSTRUCTION" {
		t.Errorf("type name: want PROCESSING_INSTRUCTION, got %s", got)
	}
	if got := r.Uri(other); got != "urn:ns" {
		t.Errorf("uri: want urn:ns, got %s", got)
	}
	if _, ok := r.Lookup("", "other", false); ok {
		t.Errorf("lookup should not assign codes")
	}
	if r.Len() != NTypes+3 {
		t.Errorf("lookup changed the registry")
	}
}

func TestRegistryNamespaces(t *testing.T) {
	r := NewRegistry()
	var (
		ns    = r.NamespaceCode("urn:ns")
		other = r.NamespaceCode("urn:other")
	)
	if ns != 0 || other != 1 {
		t.Errorf("namespace codes: want 0 and 1, got %d and %d", ns, other)
	}
	if again := r.NamespaceCode("urn:ns"); again != ns {
		t.Errorf("namespace code should be stable")
	}
	if got := r.Namespace(other); got != "urn:other" {
		t.Errorf("namespace: want urn:other, got %s", got)
	}
	if r.Len() != NTypes {
		t.Errorf("namespace codes should not count as name codes")
	}
}

func TestRegistryCodeOf(t *testing.T) {
	var (
		doc = parseSample(t)
		r   = NewRegistry()
	)
	item := r.ElementCode("", "item")
	lang := r.AttributeCode("urn:ns", "lang")

	counts := make(map[int]int)
	for _, n := range allNodes(doc) {
		counts[r.CodeOf(n)]++
	}
	if counts[CodeRoot] != 1 {
		t.Errorf("root: want 1, got %d", counts[CodeRoot])
	}
	if counts[item] == 0 {
		t.Errorf("no element coded as item")
	}
	if counts[lang] != 1 {
		t.Errorf("ns:lang: want 1, got %d", counts[lang])
	}
	if counts[CodeComment] != 1 || counts[CodeInstruction] != 1 {
		t.Errorf("comment and pi should use their type codes: %v", counts)
	}
	for _, n := range allNodes(doc) {
		if n.Type() == xml.TypeElement && n.LocalName() == "item" {
			qn, _ := xml.NameOf(n)
			if qn.Uri == "" && r.CodeOf(n) != item {
				t.Errorf("%s: want code %d", nodeLabel(n), item)
			}
		}
	}
}
