package xslt

import (
	"fmt"

	"github.com/midbel/xsltc/xml"
)

// prepare checks the body of t once the modes are compiled. Every problem is
// reported as a fatal diagnostic of t.
func (p *Program) prepare(t *Template) {
	body, ok := t.Body.(constructor)
	if !ok {
		return
	}
	for _, n := range body.nodes {
		p.prepareNode(t, n)
	}
}

func (p *Program) prepareNode(t *Template, node xml.Node) {
	elem, ok := node.(*xml.Element)
	if !ok {
		return
	}
	var err error
	if isXsl(elem) {
		err = p.prepareInstruction(t, elem)
	} else {
		err = p.prepareLiteral(elem)
	}
	if err != nil {
		p.compiler.fail(t, t.Match, err)
	}
	for _, n := range elem.Nodes {
		p.prepareNode(t, n)
	}
}

func (p *Program) prepareInstruction(t *Template, elem *xml.Element) error {
	name := elem.LocalName()
	if _, ok := executers[name]; !ok {
		switch name {
		case "when", "otherwise":
		default:
			return fmt.Errorf("%s: %w", elem.QualifiedName(), errInstruction)
		}
	}
	for _, attr := range []string{"select", "test"} {
		query, err := getAttribute(elem, attr)
		if err != nil {
			continue
		}
		if _, err := p.expr(elem, query); err != nil {
			return fmt.Errorf("%s: %s: %w", elem.QualifiedName(), attr, err)
		}
	}
	switch name {
	case "call-template":
		ident, err := getAttribute(elem, "name")
		if err != nil {
			return err
		}
		_, err = p.Template(ident)
		return err
	case "apply-templates":
		mode, err := getAttribute(elem, "mode")
		if err != nil || mode == "#current" {
			return nil
		}
		_, err = p.Mode(mode)
		return err
	case "apply-imports":
		if t.Pattern == nil {
			return fmt.Errorf("%s: no current template rule", elem.QualifiedName())
		}
		m, err := p.Mode(t.Mode)
		if err != nil {
			return err
		}
		_, err = m.Windowed(t.ImportWindow())
		return err
	case "element", "attribute":
		ident, err := getAttribute(elem, "name")
		if err != nil {
			return err
		}
		return compileAVT(p, elem, ident)
	default:
		return nil
	}
}

func (p *Program) prepareLiteral(elem *xml.Element) error {
	for _, a := range elem.Attrs {
		if a.Uri == xsltNamespaceUri {
			continue
		}
		if err := compileAVT(p, elem, a.Datum); err != nil {
			return fmt.Errorf("%s: %s: %w", elem.QualifiedName(), a.QualifiedName(), err)
		}
	}
	return nil
}
