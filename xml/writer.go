package xml

import (
	"bufio"
	"bytes"
	"html"
	"io"
	"strings"
)

type WriterOptions uint64

const (
	OptionCompact WriterOptions = 1 << iota
	OptionNoComment
	OptionNoProlog
)

func (w WriterOptions) Compact() bool {
	return w&OptionCompact > 0
}

func (w WriterOptions) NoComment() bool {
	return w&OptionNoComment > 0
}

func (w WriterOptions) NoProlog() bool {
	return w&OptionNoProlog > 0
}

type Writer struct {
	writer *bufio.Writer

	Indent string
	WriterOptions
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{
		writer: bufio.NewWriter(w),
		Indent: "  ",
	}
}

// WriteNode returns the compact serialization of node.
func WriteNode(node Node) string {
	var buf bytes.Buffer
	ws := NewWriter(&buf)
	ws.WriterOptions |= OptionCompact
	ws.writeNode(node, 0)
	ws.writer.Flush()
	return buf.String()
}

func (w *Writer) Write(doc *Document) error {
	if !w.NoProlog() {
		w.writer.WriteString(`<?xml version="`)
		w.writer.WriteString(doc.Version)
		w.writer.WriteString(`" encoding="`)
		w.writer.WriteString(doc.Encoding)
		w.writer.WriteString(`"?>`)
		w.writeNL()
	}
	for _, n := range doc.Nodes {
		w.writeNode(n, 0)
		w.writeNL()
	}
	return w.writer.Flush()
}

func (w *Writer) writeNode(node Node, depth int) {
	switch n := node.(type) {
	case *Document:
		for _, c := range n.Nodes {
			w.writeNode(c, depth)
		}
	case *Element:
		w.writeElement(n, depth)
	case *Text:
		w.writer.WriteString(html.EscapeString(n.Content))
	case *Comment:
		if w.NoComment() {
			return
		}
		w.writeIndent(depth)
		w.writer.WriteString("<!--")
		w.writer.WriteString(n.Content)
		w.writer.WriteString("-->")
	case *Instruction:
		w.writeIndent(depth)
		w.writer.WriteString("<?")
		w.writer.WriteString(n.QualifiedName())
		if n.Content != "" {
			w.writer.WriteString(" ")
			w.writer.WriteString(n.Content)
		}
		w.writer.WriteString("?>")
	case *Attribute:
		w.writer.WriteString(html.EscapeString(n.Datum))
	default:
	}
}

func (w *Writer) writeElement(el *Element, depth int) {
	w.writeIndent(depth)
	w.writer.WriteString("<")
	w.writer.WriteString(el.QualifiedName())
	for _, ns := range el.Namespaces {
		w.writer.WriteString(" ")
		w.writer.WriteString(AttrXmlNS)
		if ns.Prefix != "" {
			w.writer.WriteString(":")
			w.writer.WriteString(ns.Prefix)
		}
		w.writer.WriteString(`="`)
		w.writer.WriteString(html.EscapeString(ns.Uri))
		w.writer.WriteString(`"`)
	}
	for _, a := range el.Attrs {
		w.writer.WriteString(" ")
		w.writer.WriteString(a.QualifiedName())
		w.writer.WriteString(`="`)
		w.writer.WriteString(html.EscapeString(a.Datum))
		w.writer.WriteString(`"`)
	}
	if len(el.Nodes) == 0 {
		w.writer.WriteString("/>")
		return
	}
	w.writer.WriteString(">")
	textOnly := true
	for _, n := range el.Nodes {
		if n.Type() != TypeText {
			textOnly = false
			break
		}
	}
	for _, n := range el.Nodes {
		if !textOnly {
			w.writeNL()
		}
		w.writeNode(n, depth+1)
	}
	if !textOnly {
		w.writeNL()
		w.writeIndent(depth)
	}
	w.writer.WriteString("</")
	w.writer.WriteString(el.QualifiedName())
	w.writer.WriteString(">")
}

func (w *Writer) writeIndent(depth int) {
	if w.Compact() || depth == 0 {
		return
	}
	w.writer.WriteString(strings.Repeat(w.Indent, depth))
}

func (w *Writer) writeNL() {
	if w.Compact() {
		return
	}
	w.writer.WriteString("\n")
}
