package xml

import (
	"errors"
	"fmt"
	"strings"
)

type NodeType int16

const (
	TypeDocument NodeType = 1 << iota
	TypeElement
	TypeComment
	TypeAttribute
	TypeInstruction
	TypeText
	TypeNamespace
)

// TypeNode groups the kinds selected by child::node().
const TypeNode = TypeElement | TypeComment | TypeInstruction | TypeText

func (n NodeType) String() string {
	switch n {
	default:
		return "<>"
	case TypeDocument:
		return "document"
	case TypeElement:
		return "element"
	case TypeComment:
		return "comment"
	case TypeAttribute:
		return "attribute"
	case TypeInstruction:
		return "pi"
	case TypeText:
		return "text"
	case TypeNamespace:
		return "namespace"
	case TypeNode:
		return "node"
	}
}

var (
	ErrElement = errors.New("element expected")
	ErrRoot    = errors.New("root element expected")
)

type Node interface {
	Type() NodeType
	LocalName() string
	QualifiedName() string
	Parent() Node
	Position() int
	Value() string
	Identity() string

	setParent(Node)
	setPosition(int)
	order() int
	setOrder(int)
}

// Before reports whether left comes before right in document order. Nodes
// that were never numbered by the parser compare by their position among
// their siblings.
func Before(left, right Node) bool {
	if left.order() != 0 || right.order() != 0 {
		return left.order() < right.order()
	}
	return left.Position() < right.Position()
}

// Root returns the document (or the topmost ancestor) of node.
func Root(node Node) Node {
	for node != nil {
		p := node.Parent()
		if p == nil {
			break
		}
		node = p
	}
	return node
}

type QName struct {
	Uri   string
	Space string
	Name  string
}

func ParseName(name string) (QName, error) {
	var (
		qn QName
		ok bool
	)
	qn.Space, qn.Name, ok = strings.Cut(name, ":")
	if !ok {
		qn.Name, qn.Space = qn.Space, ""
	}
	if ok && qn.Space == "" {
		return qn, fmt.Errorf("%s: invalid namespace", name)
	}
	return qn, nil
}

func ExpandedName(name, space, uri string) QName {
	return QName{
		Name:  name,
		Space: space,
		Uri:   uri,
	}
}

func LocalName(name string) QName {
	return ExpandedName(name, "", "")
}

func QualifiedName(name, space string) QName {
	return ExpandedName(name, space, "")
}

func (q QName) Equal(other QName) bool {
	return q.Uri == other.Uri && q.Name == other.Name
}

func (q QName) LocalName() string {
	return q.Name
}

func (q QName) ExpandedName() string {
	if q.Uri == "" {
		return q.Name
	}
	return fmt.Sprintf("{%s}%s", q.Uri, q.Name)
}

func (q QName) QualifiedName() string {
	if q.Space == "" {
		return q.Name
	}
	return fmt.Sprintf("%s:%s", q.Space, q.Name)
}

type node struct {
	parent   Node
	position int
	number   int
}

func (n *node) Parent() Node {
	return n.parent
}

func (n *node) Position() int {
	return n.position
}

func (n *node) setParent(p Node) {
	n.parent = p
}

func (n *node) setPosition(pos int) {
	n.position = pos
}

func (n *node) order() int {
	return n.number
}

func (n *node) setOrder(num int) {
	n.number = num
}

type Document struct {
	Version  string
	Encoding string
	Nodes    []Node

	node
	ids map[string]*Element
}

func NewDocument(root Node) *Document {
	doc := EmptyDocument()
	if root != nil {
		doc.Append(root)
	}
	return doc
}

func EmptyDocument() *Document {
	return &Document{
		Version:  SupportedVersion,
		Encoding: SupportedEncoding,
	}
}

func (d *Document) Append(n Node) {
	n.setParent(d)
	n.setPosition(len(d.Nodes))
	d.Nodes = append(d.Nodes, n)
}

func (d *Document) Root() Node {
	for i := range d.Nodes {
		if d.Nodes[i].Type() == TypeElement {
			return d.Nodes[i]
		}
	}
	return nil
}

// GetElementById returns the element carrying the given id or xml:id
// attribute value, nil when there is none.
func (d *Document) GetElementById(id string) *Element {
	if d.ids == nil {
		d.ids = make(map[string]*Element)
		Walk(d, func(n Node) bool {
			el, ok := n.(*Element)
			if !ok {
				return true
			}
			for _, a := range el.Attrs {
				if a.Name != "id" {
					continue
				}
				if a.Space == "" || a.Space == "xml" {
					if _, ok := d.ids[a.Datum]; !ok {
						d.ids[a.Datum] = el
					}
				}
			}
			return true
		})
	}
	return d.ids[id]
}

func (d *Document) Type() NodeType {
	return TypeDocument
}

func (d *Document) LocalName() string {
	return ""
}

func (d *Document) QualifiedName() string {
	return ""
}

func (d *Document) Value() string {
	if root := d.Root(); root != nil {
		return root.Value()
	}
	return ""
}

func (d *Document) Identity() string {
	return "document"
}

type Attribute struct {
	QName
	Datum string

	node
}

func NewAttribute(name QName, value string) *Attribute {
	return &Attribute{
		QName: name,
		Datum: value,
	}
}

func (*Attribute) Type() NodeType {
	return TypeAttribute
}

func (a *Attribute) Value() string {
	return a.Datum
}

func (a *Attribute) Identity() string {
	return identity("attribute", a.QualifiedName(), a)
}

// Namespace is a namespace node declared on an element.
type Namespace struct {
	Prefix string
	Uri    string

	node
}

func NewNamespace(prefix, uri string) *Namespace {
	return &Namespace{
		Prefix: prefix,
		Uri:    uri,
	}
}

func (*Namespace) Type() NodeType {
	return TypeNamespace
}

func (n *Namespace) LocalName() string {
	return n.Prefix
}

func (n *Namespace) QualifiedName() string {
	return n.Prefix
}

func (n *Namespace) Value() string {
	return n.Uri
}

func (n *Namespace) Identity() string {
	return identity("namespace", n.Prefix, n)
}

type Element struct {
	QName
	Attrs      []*Attribute
	Namespaces []*Namespace
	Nodes      []Node

	node
}

func NewElement(name QName) *Element {
	return &Element{
		QName: name,
	}
}

func (*Element) Type() NodeType {
	return TypeElement
}

func (e *Element) Value() string {
	var str strings.Builder
	for _, n := range e.Nodes {
		switch n.Type() {
		case TypeElement, TypeText:
			str.WriteString(n.Value())
		default:
		}
	}
	return str.String()
}

func (e *Element) Identity() string {
	return identity("element", e.QualifiedName(), e)
}

func (e *Element) Append(n Node) {
	n.setParent(e)
	n.setPosition(len(e.Nodes))
	e.Nodes = append(e.Nodes, n)
}

func (e *Element) SetAttribute(attr *Attribute) {
	attr.setParent(e)
	for i := range e.Attrs {
		if e.Attrs[i].QName.Equal(attr.QName) {
			attr.setPosition(i)
			e.Attrs[i] = attr
			return
		}
	}
	attr.setPosition(len(e.Attrs))
	e.Attrs = append(e.Attrs, attr)
}

func (e *Element) GetAttribute(name string) *Attribute {
	for _, a := range e.Attrs {
		if a.QualifiedName() == name {
			return a
		}
	}
	return nil
}

func (e *Element) DeclareNS(ns *Namespace) {
	ns.setParent(e)
	ns.setPosition(len(e.Namespaces))
	e.Namespaces = append(e.Namespaces, ns)
}

// LookupNS resolves prefix against the namespace declarations of e and its
// ancestors.
func (e *Element) LookupNS(prefix string) (string, bool) {
	for curr := Node(e); curr != nil; curr = curr.Parent() {
		el, ok := curr.(*Element)
		if !ok {
			break
		}
		for _, ns := range el.Namespaces {
			if ns.Prefix == prefix {
				return ns.Uri, true
			}
		}
	}
	if prefix == "xml" {
		return xmlNamespaceUri, true
	}
	return "", false
}

type Text struct {
	Content string

	node
}

func NewText(text string) *Text {
	return &Text{
		Content: text,
	}
}

func (*Text) Type() NodeType {
	return TypeText
}

func (*Text) LocalName() string {
	return ""
}

func (*Text) QualifiedName() string {
	return ""
}

func (t *Text) Value() string {
	return t.Content
}

func (t *Text) Identity() string {
	return identity("text", "", t)
}

type Comment struct {
	Content string

	node
}

func NewComment(comment string) *Comment {
	return &Comment{
		Content: comment,
	}
}

func (*Comment) Type() NodeType {
	return TypeComment
}

func (*Comment) LocalName() string {
	return ""
}

func (*Comment) QualifiedName() string {
	return ""
}

func (c *Comment) Value() string {
	return c.Content
}

func (c *Comment) Identity() string {
	return identity("comment", "", c)
}

type Instruction struct {
	QName
	Content string

	node
}

func NewInstruction(name QName, content string) *Instruction {
	return &Instruction{
		QName:   name,
		Content: content,
	}
}

func (*Instruction) Type() NodeType {
	return TypeInstruction
}

func (i *Instruction) Value() string {
	return i.Content
}

func (i *Instruction) Identity() string {
	return identity("pi", i.Name, i)
}

func identity(kind, name string, n Node) string {
	if name == "" {
		return fmt.Sprintf("%s()#%d", kind, n.order())
	}
	return fmt.Sprintf("%s(%s)#%d", kind, name, n.order())
}

const (
	SupportedVersion  = "1.0"
	SupportedEncoding = "UTF-8"

	xmlNamespaceUri = "http://www.w3.org/XML/1998/namespace"
)
