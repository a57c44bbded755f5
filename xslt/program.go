package xslt

import (
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"

	"github.com/midbel/xsltc/environ"
	"github.com/midbel/xsltc/xml"
	"github.com/midbel/xsltc/xpath"
)

// Variable is a top level xsl:variable or xsl:param.
type Variable struct {
	Name   string
	Select xpath.Expr
	// Value is used when Select is nil.
	Value      string
	Param      bool
	Precedence int
	Position   int
}

// Program is a compiled stylesheet: the modes with their dispatch
// procedures, the named templates, the keys and the global variables.
type Program struct {
	Modes     map[string]*Mode
	Named     environ.Environ[*Template]
	Keys      KeyTable
	Globals   []*Variable
	Templates []*Template
	Initial   string
	Params    map[string]string

	compiler *Compiler

	mu    sync.Mutex
	exprs map[exprKey]xpath.Expr
}

type exprKey struct {
	elem   *xml.Element
	source string
}

func NewProgram(compiler *Compiler) *Program {
	if compiler == nil {
		compiler = NewCompiler()
	}
	p := Program{
		Modes:    make(map[string]*Mode),
		Named:    environ.Empty[*Template](),
		Keys:     make(KeyTable),
		Params:   make(map[string]string),
		compiler: compiler,
		exprs:    make(map[exprKey]xpath.Expr),
	}
	p.Modes[""] = newMode("", compiler)
	return &p
}

func (p *Program) Compiler() *Compiler {
	return p.compiler
}

func (p *Program) Registry() *Registry {
	return p.compiler.Registry()
}

func (p *Program) Diagnostics() *Diagnostics {
	return p.compiler.Diagnostics()
}

// Define adds t to the program. Templates must be defined by increasing
// precedence so that a named template hides the ones it overrides.
func (p *Program) Define(t *Template) {
	p.Templates = append(p.Templates, t)
	if t.Name != "" {
		p.Named.Define(t.Name, t)
	}
	if t.Pattern == nil {
		return
	}
	p.Declare(t.Mode).Append(t)
}

// Declare creates the named mode when it does not exist yet.
func (p *Program) Declare(mode string) *Mode {
	if mode == defaultMode {
		mode = ""
	}
	m, ok := p.Modes[mode]
	if !ok {
		m = newMode(mode, p.compiler)
		p.Modes[mode] = m
	}
	return m
}

// ModeNames returns the names of the modes of p, the default mode first.
func (p *Program) ModeNames() []string {
	return slices.Sorted(maps.Keys(p.Modes))
}

// Mode returns the named mode. Unknown names fail with the closest declared
// names.
func (p *Program) Mode(name string) (*Mode, error) {
	if name == defaultMode {
		name = ""
	}
	m, ok := p.Modes[name]
	if !ok {
		return nil, suggest(name, p.ModeNames(), ErrMode)
	}
	return m, nil
}

// Template returns the named template with the highest precedence.
func (p *Program) Template(name string) (*Template, error) {
	t, err := p.Named.Resolve(name)
	if err != nil {
		return nil, suggest(name, p.Named.Names(), ErrUnresolved)
	}
	return t, nil
}

// Compile builds the dispatch of every mode, then checks the template bodies:
// expressions are compiled, called templates and modes must exist and the
// dispatch of every apply-imports window is requested.
func (p *Program) Compile() error {
	for _, name := range p.ModeNames() {
		if err := p.Modes[name].Compile(); err != nil {
			p.compiler.fail(nil, "", err)
		}
	}
	if p.Diagnostics().Failed() {
		return p.Diagnostics().Err()
	}
	for _, t := range p.Templates {
		p.prepare(t)
	}
	return p.Diagnostics().Err()
}

// Run transforms doc, starting in the initial mode.
func (p *Program) Run(doc xml.Node, sink Sink) error {
	return p.RunMode(p.Initial, doc, sink)
}

func (p *Program) RunMode(mode string, doc xml.Node, sink Sink) error {
	m, err := p.Mode(mode)
	if err != nil {
		return err
	}
	d, err := m.Dispatch()
	if err != nil {
		return err
	}
	ctx := p.NewContext(doc, sink)
	ctx.Mode = m
	if err := p.globals(ctx); err != nil {
		return err
	}
	return d.Apply(ctx, xml.Single(doc))
}

// CallTemplate invokes the named template with the current node of ctx as
// context.
func (p *Program) CallTemplate(ctx *Context, name string) error {
	t, err := p.Template(name)
	if err != nil {
		return err
	}
	return invoke(ctx, t)
}

// NewContext returns a context to transform doc. The arena is reset for each
// context.
func (p *Program) NewContext(doc xml.Node, sink Sink) *Context {
	ctx := Context{
		Program:  p,
		Node:     doc,
		Iter:     xml.Single(doc),
		Position: 1,
		Size:     1,
		Sink:     sink,
		Vars:     environ.Empty[xpath.Sequence](),
		Arena:    NewArena(),
		Tracer:   p.compiler.Tracer,
	}
	ctx.Arena.Reset()
	return &ctx
}

func (p *Program) globals(ctx *Context) error {
	list := slices.Clone(p.Globals)
	slices.SortStableFunc(list, func(a, b *Variable) int {
		if c := cmp.Compare(a.Precedence, b.Precedence); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})
	for _, v := range list {
		if str, ok := p.Params[v.Name]; ok && v.Param {
			ctx.Vars.Define(v.Name, xpath.Singleton(str))
			continue
		}
		if v.Select == nil {
			ctx.Vars.Define(v.Name, xpath.Singleton(v.Value))
			continue
		}
		seq, err := ctx.Query(v.Select)
		if err != nil {
			return fmt.Errorf("variable %s: %w", v.Name, err)
		}
		ctx.Vars.Define(v.Name, seq)
	}
	return nil
}

// Listing writes the listing of every dispatch of p, mode by mode.
func (p *Program) Listing(w io.Writer) error {
	for _, d := range p.Dispatches() {
		if err := d.Listing(w); err != nil {
			return err
		}
	}
	return nil
}

// Dispatches returns the compiled dispatches of every mode, each mode being
// followed by its windowed variants.
func (p *Program) Dispatches() []*Dispatch {
	var list []*Dispatch
	for _, name := range p.ModeNames() {
		m := p.Modes[name]
		if m.dispatch == nil {
			continue
		}
		list = append(list, m.dispatch)
		list = append(list, m.Windows()...)
	}
	return list
}

// expr returns the expression source as compiled in the namespace scope of
// elem.
func (p *Program) expr(elem *xml.Element, source string) (xpath.Expr, error) {
	key := exprKey{
		elem:   elem,
		source: source,
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.exprs[key]; ok {
		return e, nil
	}
	e, err := xpath.CompileString(source, xpath.WithNamespaces(scopeOf(elem)), xpath.WithTracer(p.compiler.ExprTracer))
	if err != nil {
		return nil, err
	}
	p.exprs[key] = e
	return e, nil
}

// scopeOf returns the namespace prefixes in scope on elem.
func scopeOf(elem *xml.Element) environ.Environ[string] {
	var chain []*xml.Element
	if elem == nil {
		return environ.Empty[string]()
	}
	for n := xml.Node(elem); n != nil; n = n.Parent() {
		if el, ok := n.(*xml.Element); ok {
			chain = append(chain, el)
		}
	}
	env := environ.Empty[string]()
	for i := len(chain) - 1; i >= 0; i-- {
		for _, ns := range chain[i].Namespaces {
			env.Define(ns.Prefix, ns.Uri)
		}
	}
	return env
}
