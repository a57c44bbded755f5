package xpath

import (
	"github.com/midbel/xsltc/environ"
	"github.com/midbel/xsltc/xml"
)

// KeyResolver gives access to the keys declared by a stylesheet. Lookup
// returns the nodes of the document containing node indexed under value for
// the named key.
type KeyResolver interface {
	Lookup(name, value string, node xml.Node) ([]xml.Node, error)
}

type Context struct {
	xml.Node
	Index int
	Size  int

	Current xml.Node
	Vars    environ.Environ[Sequence]
	Keys    KeyResolver
}

func DefaultContext(node xml.Node) Context {
	return Context{
		Node:    node,
		Index:   1,
		Size:    1,
		Current: node,
		Vars:    environ.Empty[Sequence](),
	}
}

// Sub returns a context focused on node at the given position. Variables,
// keys and the current node are shared with c.
func (c Context) Sub(node xml.Node, pos int, size int) Context {
	ctx := c
	ctx.Node = node
	ctx.Index = pos
	ctx.Size = size
	return ctx
}

// Nest returns a copy of c with an enclosed variable scope.
func (c Context) Nest() Context {
	ctx := c
	ctx.Vars = environ.Enclosed(c.vars())
	return ctx
}

func (c Context) Define(ident string, value Sequence) {
	c.vars().Define(ident, value)
}

func (c Context) Resolve(ident string) (Sequence, error) {
	return c.vars().Resolve(ident)
}

func (c Context) Root() Context {
	if c.Node == nil {
		return c
	}
	return c.Sub(xml.Root(c.Node), 1, 1)
}

func (c Context) vars() environ.Environ[Sequence] {
	if c.Vars == nil {
		return environ.Empty[Sequence]()
	}
	return c.Vars
}
