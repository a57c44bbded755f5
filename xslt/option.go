package xslt

import (
	"github.com/midbel/xsltc/environ"
	"github.com/midbel/xsltc/xpath"
)

// Compiler holds the settings shared by every mode compiled from a
// stylesheet, and the diagnostics reported while compiling them.
type Compiler struct {
	Tracer

	TableLimit int
	Optimize   bool
	Warnings   bool

	// tracer given to the xpath compiler for the expressions of the
	// stylesheet
	ExprTracer xpath.Tracer

	namespaces environ.Environ[string]
	registry   *Registry
	diag       Diagnostics
}

type Option func(*Compiler)

func WithTracer(tracer Tracer) Option {
	return func(c *Compiler) {
		c.Tracer = tracer
	}
}

func WithExprTracer(tracer xpath.Tracer) Option {
	return func(c *Compiler) {
		c.ExprTracer = tracer
	}
}

// WithTableLimit sets the number of codes above which type switches use a
// sparse map.
func WithTableLimit(limit int) Option {
	return func(c *Compiler) {
		c.TableLimit = limit
	}
}

// WithOptimizePredicates enables the SIMPLE strategy for steps with a single
// positional predicate.
func WithOptimizePredicates(optimize bool) Option {
	return func(c *Compiler) {
		c.Optimize = optimize
	}
}

// WithNamespace declares a prefix usable in the patterns compiled without an
// enclosing stylesheet.
func WithNamespace(prefix, uri string) Option {
	return func(c *Compiler) {
		c.namespaces.Define(prefix, uri)
	}
}

// WithWarnings makes the compiler report shadowed rules and ignored
// declarations.
func WithWarnings(warn bool) Option {
	return func(c *Compiler) {
		c.Warnings = warn
	}
}

func WithRegistry(registry *Registry) Option {
	return func(c *Compiler) {
		c.registry = registry
	}
}

func NewCompiler(options ...Option) *Compiler {
	c := Compiler{
		Tracer:     NoopTracer(),
		ExprTracer: xpath.NoopTracer(),
		TableLimit: DefaultTableLimit,
		Optimize:   true,
		Warnings:   true,
		namespaces: environ.Empty[string](),
		registry:   NewRegistry(),
	}
	for _, o := range options {
		o(&c)
	}
	return &c
}

func (c *Compiler) Registry() *Registry {
	return c.registry
}

func (c *Compiler) Diagnostics() *Diagnostics {
	return &c.diag
}

// Pattern compiles a match pattern against the prefixes declared with
// WithNamespace.
func (c *Compiler) Pattern(pattern string) (Pattern, error) {
	return CompilePattern(pattern, c.namespaces)
}

func (c *Compiler) warn(tpl *Template, pattern string, err error) {
	if !c.Warnings {
		return
	}
	c.diag.Warn(tpl, pattern, err)
	list := c.diag.All()
	c.Tracer.Warning(list[len(list)-1])
}

func (c *Compiler) fail(tpl *Template, pattern string, err error) {
	c.diag.Fail(tpl, pattern, err)
}
