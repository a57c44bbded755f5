package xslt

import (
	"github.com/midbel/xsltc/environ"
	"github.com/midbel/xsltc/xml"
	"github.com/midbel/xsltc/xpath"
)

// Context is the runtime state of a transformation. Node and Iter are the
// current node and the iterator it was pulled from; every component changing
// them restores their previous values before returning.
type Context struct {
	Program  *Program
	Mode     *Mode
	Template *Template

	Node     xml.Node
	Iter     xml.Iterator
	Position int
	Size     int

	Sink  Sink
	Vars  environ.Environ[xpath.Sequence]
	Arena *Arena
	Tracer

	index *keyIndex
	depth int

	// params given by call-template to the next invoked template, and the
	// ones received by the current template.
	params map[string]xpath.Sequence
	passed map[string]xpath.Sequence
}

func (c *Context) Depth() int {
	return c.depth
}

type frame struct {
	node     xml.Node
	iter     xml.Iterator
	position int
	size     int
	tpl      *Template
	mode     *Mode
	vars     environ.Environ[xpath.Sequence]
	params   map[string]xpath.Sequence
	passed   map[string]xpath.Sequence
}

func (c *Context) save() frame {
	return frame{
		node:     c.Node,
		iter:     c.Iter,
		position: c.Position,
		size:     c.Size,
		tpl:      c.Template,
		mode:     c.Mode,
		vars:     c.Vars,
		params:   c.params,
		passed:   c.passed,
	}
}

func (c *Context) restore(f frame) {
	c.Node = f.node
	c.Iter = f.iter
	c.Position = f.position
	c.Size = f.size
	c.Template = f.tpl
	c.Mode = f.mode
	c.Vars = f.vars
	c.params = f.params
	c.passed = f.passed
}

// nest opens a new variable scope. It is closed by restoring a frame saved
// before the call.
func (c *Context) nest() {
	c.Vars = environ.Enclosed(c.vars())
}

func (c *Context) vars() environ.Environ[xpath.Sequence] {
	if c.Vars == nil {
		c.Vars = environ.Empty[xpath.Sequence]()
	}
	return c.Vars
}

// eval returns the expression context focused on node. The current node of
// the transformation becomes the value of current().
func (c *Context) eval(node xml.Node, pos, size int) xpath.Context {
	return xpath.Context{
		Node:    node,
		Index:   pos,
		Size:    size,
		Current: c.Node,
		Vars:    c.vars(),
		Keys:    c.keys(),
	}
}

// Query evaluates expr with the current node as context item.
func (c *Context) Query(expr xpath.Expr) (xpath.Sequence, error) {
	pos, size := c.Position, c.Size
	if pos == 0 {
		pos, size = 1, 1
	}
	return xpath.Eval(expr, c.eval(c.Node, pos, size))
}

func (c *Context) keys() *keyIndex {
	if c.index == nil {
		var table KeyTable
		if c.Program != nil {
			table = c.Program.Keys
		}
		c.index = newKeyIndex(table, c)
	}
	return c.index
}

func (c *Context) arena() *Arena {
	if c.Arena == nil {
		c.Arena = NewArena()
	}
	return c.Arena
}

func (c *Context) tracer() Tracer {
	if c.Tracer == nil {
		return NoopTracer()
	}
	return c.Tracer
}
