package xslt

import (
	"fmt"
)

// Emit compiles the dispatch procedure name for the enabled templates of
// list.
func (c *Compiler) Emit(name string, list []*Template) (*Dispatch, error) {
	return c.emit(name, list, c.Warnings)
}

// emit builds the dispatch. Shadowed rules are reported only when warn is
// set.
func (c *Compiler) emit(name string, list []*Template, warn bool) (*Dispatch, error) {
	entries, err := Resolve(list)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		classifyContexts(e, c.Optimize)
	}
	b, err := classify(entries, c.registry)
	if err != nil {
		return nil, err
	}
	d := Dispatch{
		Name:         name,
		Window:       Unbounded(),
		registry:     c.registry,
		nsElements:   make(map[int]*TestSequence),
		nsAttributes: make(map[int]*TestSequence),
	}
	var (
		builder  = newSequenceBuilder()
		branches = make(map[int]*TestSequence)
	)
	d.idkeys = &TestSequence{
		Label:   "IDKEY",
		Entries: b.idkeys,
	}
	root := TestSequence{
		Label: typeNames[CodeRoot],
	}
	if b.root != nil {
		root.Entries = append(root.Entries, b.root)
	}
	branches[CodeRoot] = &root
	if warn {
		for _, e := range b.rootLost {
			c.warn(e.Template, e.Pattern.String(), errShadowed)
		}
	}

	for _, code := range sortedKeys(b.names) {
		var (
			label = c.registry.Name(code)
			uri   = c.registry.Uri(code)
		)
		if c.registry.IsAttribute(code) {
			ns := c.lookupNS(b.nsAttributes, uri)
			branches[code] = builder.build(label, b.names[code], ns, b.attributes, b.attrNodes)
		} else {
			ns := c.lookupNS(b.nsElements, uri)
			branches[code] = builder.build(label, b.names[code], ns, b.elements, b.nodes)
		}
	}
	for _, ns := range sortedKeys(b.nsElements) {
		label := nsLabel(c.registry.Namespace(ns), false)
		d.nsElements[ns] = builder.build(label, b.nsElements[ns], b.elements, b.nodes)
	}
	for _, ns := range sortedKeys(b.nsAttributes) {
		label := nsLabel(c.registry.Namespace(ns), true)
		d.nsAttributes[ns] = builder.build(label, b.nsAttributes[ns], b.attributes, b.attrNodes)
	}
	branches[CodeElement] = builder.build(typeNames[CodeElement], b.elements, b.nodes)
	branches[CodeAttribute] = builder.build(typeNames[CodeAttribute], b.attributes, b.attrNodes)
	for _, code := range []int{CodeText, CodeComment, CodeInstruction} {
		branches[code] = builder.build(typeNames[code], b.kinds[code], b.nodes)
	}
	if warn {
		for _, e := range builder.shadowed() {
			c.warn(e.Template, e.Pattern.String(), errShadowed)
		}
	}

	d.NodeFirstElement = bestOf(b.nodes).Above(bestOf(b.elements))
	d.NodeFirstText = bestOf(b.nodes).Above(bestOf(b.kinds[CodeText]))

	if size := c.registry.Len(); size > c.TableLimit {
		d.sparse = branches
	} else {
		d.table = make([]*TestSequence, size)
		for code, seq := range branches {
			d.table[code] = seq
		}
	}
	c.Tracer.Compiled(&d)
	return &d, nil
}

// EmitWindow compiles the variant of the dispatch name restricted to the
// templates whose precedence falls in w. Built-in rules of the variant
// recurse through base. Shadowed rules are only reported for the base
// dispatch.
func (c *Compiler) EmitWindow(name string, list []*Template, w Window, base *Dispatch) (*Dispatch, error) {
	d, err := c.emit(name+w.Suffix(), filterWindow(list, w), false)
	if err != nil {
		return nil, err
	}
	d.Window = w
	d.fallback = base
	return d, nil
}

// Emit compiles a dispatch for list with a compiler created from options.
// Diagnostics reported during compilation are returned as an error only when
// one of them is fatal.
func Emit(name string, list []*Template, options ...Option) (*Dispatch, error) {
	c := NewCompiler(options...)
	d, err := c.Emit(name, list)
	if err != nil {
		return nil, err
	}
	if c.diag.Failed() {
		return nil, fmt.Errorf("%s: %w", name, c.diag.Err())
	}
	return d, nil
}

func (c *Compiler) lookupNS(set map[int][]*Entry, uri string) []*Entry {
	ns, ok := c.registry.LookupNS(uri)
	if !ok {
		return nil
	}
	return set[ns]
}

func bestOf(list []*Entry) Rank {
	if len(list) == 0 {
		return lowestRank()
	}
	return list[0].Rank
}
