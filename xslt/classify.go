package xslt

import (
	"fmt"
	"slices"

	"github.com/midbel/xsltc/xml"
)

// buckets holds the entries of a mode grouped by the node test of their
// kernel. Every list is kept in rank order, highest first.
type buckets struct {
	names        map[int][]*Entry
	elements     []*Entry
	attributes   []*Entry
	nodes        []*Entry
	attrNodes    []*Entry
	kinds        map[int][]*Entry
	nsElements   map[int][]*Entry
	nsAttributes map[int][]*Entry
	idkeys       []*Entry

	root     *Entry
	rootLost []*Entry
}

func newBuckets() *buckets {
	return &buckets{
		names:        make(map[int][]*Entry),
		kinds:        make(map[int][]*Entry),
		nsElements:   make(map[int][]*Entry),
		nsAttributes: make(map[int][]*Entry),
	}
}

// classify places each entry in the bucket of its kernel, assigning name and
// namespace codes from registry along the way.
func classify(entries []*Entry, registry *Registry) (*buckets, error) {
	b := newBuckets()
	for _, e := range entries {
		if err := b.add(e, registry); err != nil {
			return nil, errorWithContext(e.Template.Ident(), err)
		}
	}
	return b, nil
}

func (b *buckets) add(e *Entry, registry *Registry) error {
	switch p := e.Pattern.(type) {
	case *RootPattern:
		e.home = typeNames[CodeRoot]
		switch {
		case b.root == nil:
			b.root = e
		case e.Above(b.root.Rank):
			b.rootLost = append(b.rootLost, b.root)
			b.root = e
		default:
			b.rootLost = append(b.rootLost, e)
		}
		return nil
	case *IdKeyPattern:
		e.home = "IDKEY"
		b.idkeys = insertRanked(b.idkeys, e)
		return nil
	case *AlternativePattern:
		return fmt.Errorf("%w: %s: union not flattened", ErrInternal, p)
	}
	step := kernelStep(e.Pattern)
	if step == nil {
		return fmt.Errorf("%w: %s: pattern without kernel", ErrInternal, e.Pattern)
	}
	attr := step.Axis == AxisAttribute
	switch t := step.Test.(type) {
	case NameTest:
		var code int
		if attr {
			code = registry.AttributeCode(t.Uri, t.Name)
		} else {
			code = registry.ElementCode(t.Uri, t.Name)
		}
		e.home = registry.Name(code)
		b.names[code] = insertRanked(b.names[code], e)
	case NamespaceTest:
		code := registry.NamespaceCode(t.Uri)
		if attr {
			e.home = "@" + t.String()
			b.nsAttributes[code] = insertRanked(b.nsAttributes[code], e)
		} else {
			e.home = t.String()
			b.nsElements[code] = insertRanked(b.nsElements[code], e)
		}
	case WildcardTest:
		if attr {
			e.home = typeNames[CodeAttribute]
			b.attributes = insertRanked(b.attributes, e)
		} else {
			e.home = typeNames[CodeElement]
			b.elements = insertRanked(b.elements, e)
		}
	case KindTest:
		switch t.Kind {
		case xml.TypeNode:
			e.home = "node()"
			b.nodes = insertRanked(b.nodes, e)
		case xml.TypeAttribute:
			e.home = "attribute::node()"
			b.attrNodes = insertRanked(b.attrNodes, e)
		case xml.TypeText:
			e.home = typeNames[CodeText]
			b.kinds[CodeText] = insertRanked(b.kinds[CodeText], e)
		case xml.TypeComment:
			e.home = typeNames[CodeComment]
			b.kinds[CodeComment] = insertRanked(b.kinds[CodeComment], e)
		case xml.TypeInstruction:
			e.home = typeNames[CodeInstruction]
			b.kinds[CodeInstruction] = insertRanked(b.kinds[CodeInstruction], e)
		default:
			return fmt.Errorf("%w: %s: unsupported kind test", ErrInternal, t)
		}
	default:
		return fmt.Errorf("%w: %s: unsupported node test", ErrInternal, step.Test)
	}
	return nil
}

// insertRanked inserts e in list after every entry ranked above it.
func insertRanked(list []*Entry, e *Entry) []*Entry {
	ix, _ := slices.BinarySearchFunc(list, e, compareEntries)
	return slices.Insert(list, ix, e)
}
