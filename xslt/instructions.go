package xslt

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/midbel/xsltc/xml"
	"github.com/midbel/xsltc/xpath"
)

var (
	errMissed      = errors.New("missing attribute")
	errInstruction = errors.New("unknown instruction")
)

// ExecuteFunc runs one instruction of a template body.
type ExecuteFunc func(*Context, *xml.Element) error

var executers map[string]ExecuteFunc

func init() {
	executers = map[string]ExecuteFunc{
		"apply-templates": executeApplyTemplates,
		"apply-imports":   executeApplyImports,
		"call-template":   executeCallTemplate,
		"with-param":      skipInstruction,
		"param":           executeParam,
		"variable":        executeVariable,
		"value-of":        executeValueOf,
		"text":            executeText,
		"if":              executeIf,
		"choose":          executeChoose,
		"for-each":        executeForeach,
		"copy":            executeCopy,
		"copy-of":         executeCopyOf,
		"element":         executeElement,
		"attribute":       executeAttribute,
		"comment":         executeComment,
	}
}

// constructor is the body of a template loaded from a stylesheet.
type constructor struct {
	nodes []xml.Node
}

func (c constructor) Execute(ctx *Context) error {
	return executeNodes(ctx, c.nodes)
}

func executeNodes(ctx *Context, nodes []xml.Node) error {
	for _, n := range nodes {
		if err := executeNode(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func executeNode(ctx *Context, node xml.Node) error {
	switch n := node.(type) {
	case *xml.Element:
		if !isXsl(n) {
			return executeLiteral(ctx, n)
		}
		exec, ok := executers[n.LocalName()]
		if !ok {
			return fmt.Errorf("%s: %w", n.QualifiedName(), errInstruction)
		}
		return exec(ctx, n)
	case *xml.Text:
		if strings.TrimSpace(n.Content) == "" {
			return nil
		}
		return ctx.Sink.Text(n.Content)
	default:
		return nil
	}
}

func executeApplyTemplates(ctx *Context, elem *xml.Element) error {
	var (
		nodes []xml.Node
		err   error
	)
	if query, err1 := getAttribute(elem, "select"); err1 == nil {
		nodes, err = selectNodes(ctx, elem, query)
		if err != nil {
			return err
		}
	} else {
		nodes = xml.ChildNodes(ctx.Node)
	}
	// without a mode attribute, templates are applied in the default mode
	mode := ctx.Program.Modes[""]
	if name, err := getAttribute(elem, "mode"); err == nil {
		if name == "#current" {
			mode = ctx.Mode
		} else if mode, err = ctx.Program.Mode(name); err != nil {
			return err
		}
	}
	if mode == nil {
		return fmt.Errorf("apply-templates: %w", ErrMode)
	}
	d, err := mode.Dispatch()
	if err != nil {
		return err
	}
	defer ctx.restore(ctx.save())
	ctx.Mode = mode
	return d.Apply(ctx, xml.FromSlice(nodes))
}

func executeApplyImports(ctx *Context, elem *xml.Element) error {
	if ctx.Template == nil || ctx.Mode == nil {
		return fmt.Errorf("%s: no current template rule", elem.QualifiedName())
	}
	d, err := ctx.Mode.Windowed(ctx.Template.ImportWindow())
	if err != nil {
		return err
	}
	return d.Apply(ctx, xml.Single(ctx.Node))
}

func executeCallTemplate(ctx *Context, elem *xml.Element) error {
	name, err := getAttribute(elem, "name")
	if err != nil {
		return err
	}
	t, err := ctx.Program.Template(name)
	if err != nil {
		return err
	}
	params, err := evalParams(ctx, elem)
	if err != nil {
		return err
	}
	defer ctx.restore(ctx.save())
	ctx.params = params
	return invoke(ctx, t)
}

func evalParams(ctx *Context, elem *xml.Element) (map[string]xpath.Sequence, error) {
	params := make(map[string]xpath.Sequence)
	for _, n := range elem.Nodes {
		el, ok := n.(*xml.Element)
		if !ok || !isXsl(el) || el.LocalName() != "with-param" {
			continue
		}
		name, err := getAttribute(el, "name")
		if err != nil {
			return nil, err
		}
		seq, err := evalValue(ctx, el)
		if err != nil {
			return nil, err
		}
		params[name] = seq
	}
	return params, nil
}

func skipInstruction(_ *Context, _ *xml.Element) error {
	return nil
}

// executeParam binds the default value of a template parameter unless the
// caller passed a value for it.
func executeParam(ctx *Context, elem *xml.Element) error {
	name, err := getAttribute(elem, "name")
	if err != nil {
		return err
	}
	seq, ok := ctx.passed[name]
	if !ok {
		if seq, err = evalValue(ctx, elem); err != nil {
			return err
		}
	}
	ctx.vars().Define(name, seq)
	return nil
}

func executeVariable(ctx *Context, elem *xml.Element) error {
	name, err := getAttribute(elem, "name")
	if err != nil {
		return err
	}
	seq, err := evalValue(ctx, elem)
	if err != nil {
		return err
	}
	ctx.vars().Define(name, seq)
	return nil
}

// evalValue computes the value of a variable like element: its select
// expression or the text produced by its children.
func evalValue(ctx *Context, elem *xml.Element) (xpath.Sequence, error) {
	if query, err := getAttribute(elem, "select"); err == nil {
		if len(elem.Nodes) > 0 {
			return nil, fmt.Errorf("%s: select attribute can not be used with children", elem.QualifiedName())
		}
		e, err := ctx.Program.expr(elem, query)
		if err != nil {
			return nil, err
		}
		return ctx.Query(e)
	}
	str, err := captureText(ctx, elem.Nodes)
	if err != nil {
		return nil, err
	}
	return xpath.Singleton(str), nil
}

func executeValueOf(ctx *Context, elem *xml.Element) error {
	sep, err := getAttribute(elem, "separator")
	if err != nil {
		sep = " "
	}
	query, err := getAttribute(elem, "select")
	if err != nil {
		return err
	}
	e, err := ctx.Program.expr(elem, query)
	if err != nil {
		return err
	}
	items, err := ctx.Query(e)
	if err != nil {
		return err
	}
	var str strings.Builder
	for i := range items {
		if i > 0 {
			str.WriteString(sep)
		}
		str.WriteString(xpath.StringValue(items[i : i+1]))
	}
	return ctx.Sink.Text(str.String())
}

func executeText(ctx *Context, elem *xml.Element) error {
	return ctx.Sink.Text(elem.Value())
}

func executeIf(ctx *Context, elem *xml.Element) error {
	ok, err := testCondition(ctx, elem)
	if !ok || err != nil {
		return err
	}
	return executeNodes(ctx, elem.Nodes)
}

func executeChoose(ctx *Context, elem *xml.Element) error {
	for _, n := range elem.Nodes {
		el, ok := n.(*xml.Element)
		if !ok || !isXsl(el) {
			continue
		}
		switch el.LocalName() {
		case "when":
			ok, err := testCondition(ctx, el)
			if err != nil {
				return err
			}
			if ok {
				return executeNodes(ctx, el.Nodes)
			}
		case "otherwise":
			return executeNodes(ctx, el.Nodes)
		default:
			return fmt.Errorf("%s: unexpected element in choose", el.QualifiedName())
		}
	}
	return nil
}

func testCondition(ctx *Context, elem *xml.Element) (bool, error) {
	test, err := getAttribute(elem, "test")
	if err != nil {
		return false, err
	}
	e, err := ctx.Program.expr(elem, test)
	if err != nil {
		return false, err
	}
	seq, err := ctx.Query(e)
	if err != nil {
		return false, err
	}
	return xpath.EffectiveBooleanValue(seq), nil
}

func executeForeach(ctx *Context, elem *xml.Element) error {
	query, err := getAttribute(elem, "select")
	if err != nil {
		return err
	}
	nodes, err := selectNodes(ctx, elem, query)
	if err != nil {
		return err
	}
	defer ctx.restore(ctx.save())
	ctx.Iter = xml.FromSlice(nodes)
	ctx.Size = len(nodes)
	for pos := 1; ; pos++ {
		n := ctx.Iter.Next()
		if n == nil {
			break
		}
		ctx.Node = n
		ctx.Position = pos
		if err := executeNodes(ctx, elem.Nodes); err != nil {
			return err
		}
	}
	return nil
}

func executeCopy(ctx *Context, elem *xml.Element) error {
	switch n := ctx.Node.(type) {
	case *xml.Element:
		if err := ctx.Sink.StartElement(n.QName); err != nil {
			return err
		}
		if err := executeNodes(ctx, elem.Nodes); err != nil {
			return err
		}
		return ctx.Sink.EndElement()
	case *xml.Document:
		return executeNodes(ctx, elem.Nodes)
	default:
		return copyNode(ctx.Sink, n)
	}
}

func executeCopyOf(ctx *Context, elem *xml.Element) error {
	query, err := getAttribute(elem, "select")
	if err != nil {
		return err
	}
	e, err := ctx.Program.expr(elem, query)
	if err != nil {
		return err
	}
	items, err := ctx.Query(e)
	if err != nil {
		return err
	}
	for i := range items {
		if n := items[i].Node(); n != nil {
			err = copyNode(ctx.Sink, n)
		} else {
			err = ctx.Sink.Text(xpath.StringValue(items[i : i+1]))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func executeElement(ctx *Context, elem *xml.Element) error {
	qn, err := evalName(ctx, elem)
	if err != nil {
		return err
	}
	if err := ctx.Sink.StartElement(qn); err != nil {
		return err
	}
	if err := executeNodes(ctx, elem.Nodes); err != nil {
		return err
	}
	return ctx.Sink.EndElement()
}

func executeAttribute(ctx *Context, elem *xml.Element) error {
	qn, err := evalName(ctx, elem)
	if err != nil {
		return err
	}
	seq, err := evalValue(ctx, elem)
	if err != nil {
		return err
	}
	var list []string
	for i := range seq {
		list = append(list, xpath.StringValue(seq[i:i+1]))
	}
	return ctx.Sink.Attribute(qn, strings.Join(list, " "))
}

func executeComment(ctx *Context, elem *xml.Element) error {
	str, err := captureText(ctx, elem.Nodes)
	if err != nil {
		return err
	}
	return ctx.Sink.Comment(str)
}

// executeLiteral copies a literal result element, its attributes being
// attribute value templates.
func executeLiteral(ctx *Context, elem *xml.Element) error {
	if err := ctx.Sink.StartElement(elem.QName); err != nil {
		return err
	}
	for _, a := range elem.Attrs {
		if a.Uri == xsltNamespaceUri {
			continue
		}
		value, err := evalAVT(ctx, elem, a.Datum)
		if err != nil {
			return err
		}
		if err := ctx.Sink.Attribute(a.QName, value); err != nil {
			return err
		}
	}
	if err := executeNodes(ctx, elem.Nodes); err != nil {
		return err
	}
	return ctx.Sink.EndElement()
}

func evalName(ctx *Context, elem *xml.Element) (xml.QName, error) {
	name, err := getAttribute(elem, "name")
	if err != nil {
		return xml.QName{}, err
	}
	if name, err = evalAVT(ctx, elem, name); err != nil {
		return xml.QName{}, err
	}
	qn, err := xml.ParseName(name)
	if err != nil {
		return qn, err
	}
	if uri, err := getAttribute(elem, "namespace"); err == nil {
		qn.Uri = uri
	} else if qn.Space != "" {
		uri, ok := elem.LookupNS(qn.Space)
		if !ok {
			return qn, fmt.Errorf("%s: namespace prefix not declared", qn.Space)
		}
		qn.Uri = uri
	}
	return qn, nil
}

// captureText runs nodes and returns the text they produce.
func captureText(ctx *Context, nodes []xml.Node) (string, error) {
	var str strings.Builder
	defer func(sink Sink) {
		ctx.Sink = sink
	}(ctx.Sink)
	ctx.Sink = NewTextSink(&str)
	err := executeNodes(ctx, nodes)
	return str.String(), err
}

func selectNodes(ctx *Context, elem *xml.Element, query string) ([]xml.Node, error) {
	e, err := ctx.Program.expr(elem, query)
	if err != nil {
		return nil, err
	}
	seq, err := ctx.Query(e)
	if err != nil {
		return nil, err
	}
	var list []xml.Node
	for i := range seq {
		n := seq[i].Node()
		if n == nil {
			return nil, fmt.Errorf("%s: %w: %s selects atomic values", elem.QualifiedName(), xpath.ErrType, query)
		}
		list = append(list, n)
	}
	return list, nil
}

func isXsl(elem *xml.Element) bool {
	return elem.Uri == xsltNamespaceUri
}

func getElementFromNode(node xml.Node) (*xml.Element, error) {
	el, ok := node.(*xml.Element)
	if !ok {
		return nil, fmt.Errorf("%s: xml element expected", node.QualifiedName())
	}
	return el, nil
}

func getAttribute(el *xml.Element, ident string) (string, error) {
	ix := slices.IndexFunc(el.Attrs, func(a *xml.Attribute) bool {
		return a.Name == ident && a.Uri == ""
	})
	if ix < 0 {
		return "", fmt.Errorf("%s: %w %q", el.QualifiedName(), errMissed, ident)
	}
	return el.Attrs[ix].Value(), nil
}
