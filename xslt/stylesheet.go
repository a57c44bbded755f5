package xslt

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/midbel/xsltc/xml"
)

const (
	xsltNamespaceUri    = "http://www.w3.org/1999/XSL/Transform"
	xsltNamespacePrefix = "xsl"
)

var errCircular = errors.New("circular import")

// Stylesheet is one module of a stylesheet tree: a document and the
// documents it includes.
type Stylesheet struct {
	File string
	// Precedence is assigned once every imported stylesheet is loaded, so
	// that imports always rank below their importer.
	Precedence    int
	MinPrecedence int
	Imports       []*Stylesheet
	Includes      []string
}

type declaration struct {
	file string
	elem *xml.Element
}

type loader struct {
	program    *Program
	precedence int
	position   int
	loading    []string
}

// Load reads the stylesheet tree rooted at file and compiles it. The program
// is returned with its diagnostics even when the compilation fails.
func Load(file string, options ...Option) (*Program, error) {
	doc, err := xml.ParseFile(file)
	if err != nil {
		return nil, err
	}
	return LoadDocument(doc, file, options...)
}

// LoadDocument is like Load but starts from an already parsed document.
// Relative hrefs are resolved against the directory of file.
func LoadDocument(doc *xml.Document, file string, options ...Option) (*Program, error) {
	ld := loader{
		program: NewProgram(NewCompiler(options...)),
	}
	if _, err := ld.loadDocument(doc, file); err != nil {
		return ld.program, err
	}
	if err := ld.program.Diagnostics().Err(); err != nil {
		return ld.program, err
	}
	return ld.program, ld.program.Compile()
}

func (ld *loader) load(file string) (*Stylesheet, error) {
	if slices.Contains(ld.loading, file) {
		return nil, fmt.Errorf("%s: %w", file, errCircular)
	}
	doc, err := xml.ParseFile(file)
	if err != nil {
		return nil, err
	}
	return ld.loadDocument(doc, file)
}

func (ld *loader) loadDocument(doc *xml.Document, file string) (*Stylesheet, error) {
	ld.loading = append(ld.loading, file)
	defer func() {
		ld.loading = ld.loading[:len(ld.loading)-1]
	}()

	sheet := Stylesheet{
		File: file,
	}
	var (
		decls   []declaration
		imports []string
	)
	err := ld.collect(&sheet, doc, file, &decls, &imports)
	if err != nil {
		return nil, err
	}
	for _, href := range imports {
		other, err := ld.load(href)
		if err != nil {
			return nil, err
		}
		sheet.Imports = append(sheet.Imports, other)
	}
	ld.precedence++
	sheet.Precedence = ld.precedence
	sheet.MinPrecedence = sheet.Precedence
	for _, other := range sheet.Imports {
		sheet.MinPrecedence = min(sheet.MinPrecedence, other.MinPrecedence)
	}
	for _, d := range decls {
		if err := ld.declare(&sheet, d); err != nil {
			return nil, fmt.Errorf("%s: %w", d.file, err)
		}
	}
	return &sheet, nil
}

// collect gathers the declarations of doc in document order, expanding
// includes in place. The imports of included documents belong to the
// including stylesheet.
func (ld *loader) collect(sheet *Stylesheet, doc *xml.Document, file string, decls *[]declaration, imports *[]string) error {
	root, err := stylesheetRoot(doc)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	for _, n := range root.Nodes {
		elem, ok := n.(*xml.Element)
		if !ok || !isXsl(elem) {
			continue
		}
		switch elem.LocalName() {
		case "import", "include":
			href, err := getAttribute(elem, "href")
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			href = resolveHref(file, href)
			if elem.LocalName() == "import" {
				*imports = append(*imports, href)
				continue
			}
			if slices.Contains(ld.loading, href) || slices.Contains(sheet.Includes, href) {
				return fmt.Errorf("%s: %w", href, errCircular)
			}
			sheet.Includes = append(sheet.Includes, href)
			other, err := xml.ParseFile(href)
			if err != nil {
				return err
			}
			if err := ld.collect(sheet, other, href, decls, imports); err != nil {
				return err
			}
		default:
			d := declaration{
				file: file,
				elem: elem,
			}
			*decls = append(*decls, d)
		}
	}
	return nil
}

func (ld *loader) declare(sheet *Stylesheet, d declaration) error {
	switch name := d.elem.LocalName(); name {
	case "template":
		return ld.loadTemplate(sheet, d)
	case "key":
		return ld.loadKey(d.elem)
	case "variable", "param":
		return ld.loadVariable(sheet, d.elem, name == "param")
	case "mode":
		return ld.loadMode(d.elem)
	case "strip-space", "preserve-space", "output":
		return nil
	default:
		return fmt.Errorf("%s: %w: unexpected declaration", d.elem.QualifiedName(), ErrStylesheet)
	}
}

func (ld *loader) loadTemplate(sheet *Stylesheet, d declaration) error {
	ld.position++
	tpl := Template{
		Position:      ld.position,
		Precedence:    sheet.Precedence,
		MinPrecedence: sheet.MinPrecedence,
		File:          d.file,
		Body: constructor{
			nodes: d.elem.Nodes,
		},
	}
	tpl.Name, _ = getAttribute(d.elem, "name")
	tpl.Match, _ = getAttribute(d.elem, "match")
	if tpl.Name == "" && tpl.Match == "" {
		ld.fail(&tpl, "", fmt.Errorf("%w: template without match nor name", ErrStylesheet))
		return nil
	}
	if prio, err := getAttribute(d.elem, "priority"); err == nil {
		tpl.Priority, err = strconv.ParseFloat(strings.TrimSpace(prio), 64)
		if err != nil {
			ld.fail(&tpl, tpl.Match, fmt.Errorf("%w: priority %q", ErrStylesheet, prio))
			return nil
		}
		tpl.HasPriority = true
	}
	if tpl.Match != "" {
		pat, err := CompilePattern(tpl.Match, scopeOf(d.elem))
		if err != nil {
			ld.fail(&tpl, tpl.Match, err)
			return nil
		}
		tpl.Pattern = pat
	}
	if tpl.Name != "" {
		if other, err := ld.program.Named.Resolve(tpl.Name); err == nil && other.Precedence == tpl.Precedence {
			ld.fail(&tpl, "", fmt.Errorf("%w: template %s already defined", ErrStylesheet, tpl.Name))
			return nil
		}
	}
	modes := []string{""}
	if str, err := getAttribute(d.elem, "mode"); err == nil && tpl.Pattern != nil {
		modes = strings.Fields(str)
	}
	for i, m := range modes {
		t := tpl
		if m == defaultMode {
			m = ""
		}
		t.Mode = m
		if i > 0 {
			t.Name = ""
		}
		ld.program.Define(&t)
	}
	return nil
}

func (ld *loader) loadKey(elem *xml.Element) error {
	name, err := getAttribute(elem, "name")
	if err != nil {
		return err
	}
	match, err := getAttribute(elem, "match")
	if err != nil {
		return err
	}
	use, err := getAttribute(elem, "use")
	if err != nil {
		return err
	}
	pat, err := CompilePattern(match, scopeOf(elem))
	if err != nil {
		ld.fail(nil, match, fmt.Errorf("key %s: %w", name, err))
		return nil
	}
	expr, err := ld.program.expr(elem, use)
	if err != nil {
		ld.fail(nil, "", fmt.Errorf("key %s: %w", name, err))
		return nil
	}
	k := Key{
		Name:  name,
		Match: pat,
		Use:   expr,
	}
	if err := ld.program.Keys.Define(&k); err != nil {
		ld.fail(nil, match, err)
	}
	return nil
}

func (ld *loader) loadVariable(sheet *Stylesheet, elem *xml.Element, param bool) error {
	name, err := getAttribute(elem, "name")
	if err != nil {
		return err
	}
	ld.position++
	v := Variable{
		Name:       name,
		Param:      param,
		Precedence: sheet.Precedence,
		Position:   ld.position,
	}
	if query, err := getAttribute(elem, "select"); err == nil {
		if len(elem.Nodes) > 0 {
			return fmt.Errorf("%s: select attribute can not be used with children", name)
		}
		v.Select, err = ld.program.expr(elem, query)
		if err != nil {
			ld.fail(nil, "", fmt.Errorf("variable %s: %w", name, err))
			return nil
		}
	} else {
		v.Value = elem.Value()
	}
	ld.program.Globals = append(ld.program.Globals, &v)
	return nil
}

func (ld *loader) loadMode(elem *xml.Element) error {
	name, _ := getAttribute(elem, "name")
	ld.program.Declare(name)
	for _, a := range elem.Attrs {
		switch a.Name {
		case "name":
		case "on-no-match", "on-multiple-match", "warning-on-no-match", "warning-on-multiple-match":
			ld.program.compiler.warn(nil, "", fmt.Errorf("mode %s: %s ignored", modeName(name), a.Name))
		default:
		}
	}
	return nil
}

func (ld *loader) fail(tpl *Template, pattern string, err error) {
	ld.program.compiler.fail(tpl, pattern, err)
}

// stylesheetRoot returns the root element of a stylesheet document. A
// simplified stylesheet is turned into a stylesheet with a single template
// matching the document node.
func stylesheetRoot(doc *xml.Document) (*xml.Element, error) {
	root, ok := doc.Root().(*xml.Element)
	if !ok {
		return nil, fmt.Errorf("%w: document without root element", ErrStylesheet)
	}
	if isXsl(root) {
		switch root.LocalName() {
		case "stylesheet", "transform":
			return root, nil
		default:
			return nil, fmt.Errorf("%s: %w: unexpected root element", root.QualifiedName(), ErrStylesheet)
		}
	}
	return simplified(root)
}

func simplified(root *xml.Element) (*xml.Element, error) {
	ix := slices.IndexFunc(root.Attrs, func(a *xml.Attribute) bool {
		return a.Uri == xsltNamespaceUri && a.Name == "version"
	})
	if ix < 0 {
		return nil, fmt.Errorf("%s: %w: simplified stylesheet without xsl:version", root.QualifiedName(), ErrStylesheet)
	}
	var (
		top   = xml.NewElement(xml.ExpandedName("stylesheet", xsltNamespacePrefix, xsltNamespaceUri))
		tpl   = xml.NewElement(xml.ExpandedName("template", xsltNamespacePrefix, xsltNamespaceUri))
		match = xml.NewAttribute(xml.LocalName("match"), "/")
	)
	tpl.SetAttribute(match)
	tpl.Append(root)
	top.Append(tpl)
	return top, nil
}

func resolveHref(file, href string) string {
	if filepath.IsAbs(href) {
		return href
	}
	return filepath.Join(filepath.Dir(file), href)
}
