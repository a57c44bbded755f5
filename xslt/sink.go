package xslt

import (
	"errors"
	"fmt"
	"io"

	"github.com/midbel/xsltc/xml"
)

var errSink = errors.New("invalid output")

// Sink receives the result of a transformation as a stream of events.
type Sink interface {
	StartElement(xml.QName) error
	EndElement() error
	Attribute(xml.QName, string) error
	Text(string) error
	Comment(string) error
}

// TreeSink builds a result document.
type TreeSink struct {
	doc   *xml.Document
	stack []*xml.Element
}

func NewTreeSink() *TreeSink {
	return &TreeSink{
		doc: xml.EmptyDocument(),
	}
}

// Document returns the result tree with document order assigned.
func (t *TreeSink) Document() *xml.Document {
	xml.Renumber(t.doc)
	return t.doc
}

func (t *TreeSink) StartElement(name xml.QName) error {
	el := xml.NewElement(name)
	t.append(el)
	t.stack = append(t.stack, el)
	return nil
}

func (t *TreeSink) EndElement() error {
	if len(t.stack) == 0 {
		return fmt.Errorf("%w: no element to close", errSink)
	}
	t.stack = t.stack[:len(t.stack)-1]
	return nil
}

func (t *TreeSink) Attribute(name xml.QName, value string) error {
	if len(t.stack) == 0 {
		return fmt.Errorf("%w: attribute %s outside of element", errSink, name.QualifiedName())
	}
	el := t.stack[len(t.stack)-1]
	if len(el.Nodes) > 0 {
		return fmt.Errorf("%w: attribute %s after children of %s", errSink, name.QualifiedName(), el.QualifiedName())
	}
	el.SetAttribute(xml.NewAttribute(name, value))
	return nil
}

func (t *TreeSink) Text(str string) error {
	if str == "" {
		return nil
	}
	nodes := t.children()
	if n := len(nodes); n > 0 {
		if txt, ok := nodes[n-1].(*xml.Text); ok {
			txt.Content += str
			return nil
		}
	}
	t.append(xml.NewText(str))
	return nil
}

func (t *TreeSink) Comment(str string) error {
	t.append(xml.NewComment(str))
	return nil
}

func (t *TreeSink) children() []xml.Node {
	if len(t.stack) == 0 {
		return t.doc.Nodes
	}
	return t.stack[len(t.stack)-1].Nodes
}

func (t *TreeSink) append(n xml.Node) {
	if len(t.stack) == 0 {
		t.doc.Append(n)
		return
	}
	t.stack[len(t.stack)-1].Append(n)
}

// TextSink writes the text content of the result, markup discarded.
type TextSink struct {
	w io.Writer
}

func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{
		w: w,
	}
}

func (*TextSink) StartElement(xml.QName) error {
	return nil
}

func (*TextSink) EndElement() error {
	return nil
}

func (*TextSink) Attribute(xml.QName, string) error {
	return nil
}

func (t *TextSink) Text(str string) error {
	_, err := io.WriteString(t.w, str)
	return err
}

func (*TextSink) Comment(string) error {
	return nil
}

// copyNode sends a deep copy of node to sink.
func copyNode(sink Sink, node xml.Node) error {
	switch n := node.(type) {
	case *xml.Document:
		for _, c := range n.Nodes {
			if err := copyNode(sink, c); err != nil {
				return err
			}
		}
		return nil
	case *xml.Element:
		if err := sink.StartElement(n.QName); err != nil {
			return err
		}
		for _, a := range n.Attrs {
			if err := sink.Attribute(a.QName, a.Datum); err != nil {
				return err
			}
		}
		for _, c := range n.Nodes {
			if err := copyNode(sink, c); err != nil {
				return err
			}
		}
		return sink.EndElement()
	case *xml.Attribute:
		return sink.Attribute(n.QName, n.Datum)
	case *xml.Text:
		return sink.Text(n.Content)
	case *xml.Comment:
		return sink.Comment(n.Value())
	default:
		return nil
	}
}

// Serialize writes doc to w. Indentation and prolog follow options.
func Serialize(w io.Writer, doc *xml.Document, options xml.WriterOptions) error {
	writer := xml.NewWriter(w)
	writer.WriterOptions = options
	return writer.Write(doc)
}
