package xslt

import (
	"fmt"
	"maps"
	"slices"

	"github.com/midbel/xsltc/xml"
	"github.com/midbel/xsltc/xpath"
)

// Key is one xsl:key declaration. Several declarations may share a name.
type Key struct {
	Name  string
	Match Pattern
	Use   xpath.Expr
}

// KeyTable groups key declarations by name.
type KeyTable map[string][]*Key

// Define adds k to the table. A union match is split into one declaration
// per branch sharing the name and the use expression of k.
func (t KeyTable) Define(k *Key) error {
	branches, err := flattenAlternative(k.Match)
	if err != nil {
		return fmt.Errorf("key %s: %w", k.Name, err)
	}
	if len(branches) == 1 {
		t[k.Name] = append(t[k.Name], k)
		return nil
	}
	for _, b := range branches {
		d := Key{
			Name:  k.Name,
			Match: b,
			Use:   k.Use,
		}
		t[k.Name] = append(t[k.Name], &d)
	}
	return nil
}

func (t KeyTable) Names() []string {
	return slices.Sorted(maps.Keys(t))
}

// keyIndex lazily indexes the documents queried through key patterns and the
// key() function, one index per document and key name.
type keyIndex struct {
	table    KeyTable
	ctx      *Context
	docs     map[xml.Node]map[string]map[string][]xml.Node
	building map[string]bool
}

func newKeyIndex(table KeyTable, ctx *Context) *keyIndex {
	return &keyIndex{
		table:    table,
		ctx:      ctx,
		docs:     make(map[xml.Node]map[string]map[string][]xml.Node),
		building: make(map[string]bool),
	}
}

func (k *keyIndex) Lookup(name, value string, node xml.Node) ([]xml.Node, error) {
	defs, ok := k.table[name]
	if !ok {
		return nil, fmt.Errorf("key %s: %w", name, ErrUnresolved)
	}
	root := xml.Root(node)
	idx, ok := k.docs[root]
	if !ok {
		idx = make(map[string]map[string][]xml.Node)
		k.docs[root] = idx
	}
	values, ok := idx[name]
	if !ok {
		if k.building[name] {
			return nil, fmt.Errorf("key %s: recursive definition", name)
		}
		k.building[name] = true
		defer delete(k.building, name)

		var err error
		if values, err = k.build(defs, root); err != nil {
			return nil, err
		}
		idx[name] = values
	}
	return values[value], nil
}

func (k *keyIndex) build(defs []*Key, root xml.Node) (map[string][]xml.Node, error) {
	var (
		values = make(map[string][]xml.Node)
		ctx    = k.ctx
		err    error
	)
	visit := func(n xml.Node) {
		if err != nil {
			return
		}
		for _, d := range defs {
			e := Entry{
				Pattern: d.Match,
			}
			ok, err1 := e.Match(ctx, n)
			if err1 != nil {
				err = err1
				return
			}
			if !ok {
				continue
			}
			seq, err1 := k.use(d, n)
			if err1 != nil {
				err = err1
				return
			}
			for _, str := range useValues(seq) {
				if !slices.Contains(values[str], n) {
					values[str] = append(values[str], n)
				}
			}
		}
	}
	xml.Walk(root, func(n xml.Node) bool {
		visit(n)
		for _, a := range xml.Collect(xml.Attributes(n)) {
			visit(a)
		}
		return err == nil
	})
	return values, err
}

func (k *keyIndex) use(d *Key, node xml.Node) (xpath.Sequence, error) {
	ctx := k.ctx
	defer ctx.restore(ctx.save())
	ctx.Node = node
	return xpath.Eval(d.Use, ctx.eval(node, 1, 1))
}

func useValues(seq xpath.Sequence) []string {
	var list []string
	for _, i := range seq {
		if n := i.Node(); n != nil {
			list = append(list, n.Value())
			continue
		}
		list = append(list, xpath.StringValue(xpath.Sequence{i}))
	}
	return list
}
