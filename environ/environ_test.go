package environ

import (
	"errors"
	"slices"
	"testing"
)

func TestEnclosed(t *testing.T) {
	parent := Empty[string]()
	parent.Define("xsl", "http://www.w3.org/1999/XSL/Transform")
	parent.Define("ns", "urn:parent")

	child := Enclosed(parent)
	child.Define("ns", "urn:child")

	tests := []struct {
		Name string
		Want string
	}{
		{Name: "ns", Want: "urn:child"},
		{Name: "xsl", Want: "http://www.w3.org/1999/XSL/Transform"},
	}
	for _, tt := range tests {
		got, err := child.Resolve(tt.Name)
		if err != nil {
			t.Errorf("%s: unexpected error: %s", tt.Name, err)
			continue
		}
		if got != tt.Want {
			t.Errorf("%s: want %s, got %s", tt.Name, tt.Want, got)
		}
	}
	if got, _ := parent.Resolve("ns"); got != "urn:parent" {
		t.Errorf("parent altered: got %s", got)
	}
	if _, err := child.Resolve("other"); !errors.Is(err, ErrDefined) {
		t.Errorf("undefined identifier expected, got %v", err)
	}
	all := child.(*Env[string]).All()
	if !slices.Equal(all, []string{"ns", "xsl"}) {
		t.Errorf("names: want [ns xsl], got %v", all)
	}
	if child.Len() != 1 {
		t.Errorf("len: want 1, got %d", child.Len())
	}
}

func TestFrom(t *testing.T) {
	values := map[string]int{"a": 1}
	env := From(values)
	env.Define("b", 2)
	if _, ok := values["b"]; ok {
		t.Errorf("From should copy its values")
	}
	if !slices.Equal(env.Names(), []string{"a", "b"}) {
		t.Errorf("names: want [a b], got %v", env.Names())
	}
}
