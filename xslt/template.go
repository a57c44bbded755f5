package xslt

import (
	"fmt"
	"strconv"
)

// Body is the compiled sequence constructor of a template.
type Body interface {
	Execute(*Context) error
}

// BodyFunc adapts a function to the Body interface.
type BodyFunc func(*Context) error

func (f BodyFunc) Execute(ctx *Context) error {
	return f(ctx)
}

type Template struct {
	Name        string
	Match       string
	Mode        string
	Pattern     Pattern
	Priority    float64
	HasPriority bool

	// Position is unique across the whole stylesheet tree and follows
	// document order.
	Position int
	// Precedence is the import precedence of the declaring stylesheet and
	// MinPrecedence the lowest precedence among the stylesheets it imports,
	// directly or not.
	Precedence    int
	MinPrecedence int

	Body Body
	File string

	disabled bool
}

// Disable removes the template from pattern dispatch. It stays callable by
// name.
func (t *Template) Disable() {
	t.disabled = true
}

func (t *Template) Disabled() bool {
	return t.disabled
}

// Ident returns a short identification of the template for diagnostics.
func (t *Template) Ident() string {
	switch {
	case t.Name != "" && t.Match != "":
		return fmt.Sprintf("%s(%s)#%d", t.Name, t.Match, t.Position)
	case t.Name != "":
		return fmt.Sprintf("%s#%d", t.Name, t.Position)
	default:
		return fmt.Sprintf("%s#%d", t.Match, t.Position)
	}
}

// ImportWindow returns the precedence window searched by apply-imports
// invoked from the body of t.
func (t *Template) ImportWindow() Window {
	return Window{
		Min: t.MinPrecedence,
		Max: t.Precedence,
	}
}

func (t *Template) String() string {
	prio := "default"
	if t.HasPriority {
		prio = strconv.FormatFloat(t.Priority, 'f', -1, 64)
	}
	return fmt.Sprintf("template(%s, mode=%s, priority=%s, precedence=%d)", t.Ident(), modeName(t.Mode), prio, t.Precedence)
}

func execute(ctx *Context, t *Template) error {
	if t.Body == nil {
		return nil
	}
	return t.Body.Execute(ctx)
}
