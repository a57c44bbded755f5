package xslt

import (
	"fmt"

	"github.com/midbel/xsltc/xml"
)

// Generic type codes. Name codes assigned by a Registry start at NTypes.
const (
	CodeRoot = iota
	CodeElement
	CodeAttribute
	CodeText
	CodeComment
	CodeInstruction
	CodeNamespace
	NTypes
)

var typeNames = [NTypes]string{
	CodeRoot:        "ROOT",
	CodeElement:     "ELEMENT",
	CodeAttribute:   "ATTRIBUTE",
	CodeText:        "TEXT",
	CodeComment:     "COMMENT",
	CodeInstruction: "PROCESSING_INSTRUCTION",
	CodeNamespace:   "NAMESPACE",
}

type nameKey struct {
	uri   string
	local string
	attr  bool
}

// Registry assigns dense integer codes to element names, attribute names and
// namespace uris in first-seen order. One registry is shared by every mode of
// a compilation run.
type Registry struct {
	names  map[nameKey]int
	list   []nameKey
	spaces map[string]int
	uris   []string
}

func NewRegistry() *Registry {
	return &Registry{
		names:  make(map[nameKey]int),
		spaces: make(map[string]int),
	}
}

func (r *Registry) ElementCode(uri, local string) int {
	return r.code(nameKey{uri: uri, local: local})
}

func (r *Registry) AttributeCode(uri, local string) int {
	return r.code(nameKey{uri: uri, local: local, attr: true})
}

func (r *Registry) NamespaceCode(uri string) int {
	if c, ok := r.spaces[uri]; ok {
		return c
	}
	c := len(r.uris)
	r.spaces[uri] = c
	r.uris = append(r.uris, uri)
	return c
}

// Lookup returns the code of a name without assigning a new one.
func (r *Registry) Lookup(uri, local string, attr bool) (int, bool) {
	c, ok := r.names[nameKey{uri: uri, local: local, attr: attr}]
	return c, ok
}

func (r *Registry) LookupNS(uri string) (int, bool) {
	c, ok := r.spaces[uri]
	return c, ok
}

// TypeOf returns the generic type code of node, -1 for unknown node kinds.
func (r *Registry) TypeOf(node xml.Node) int {
	switch node.Type() {
	case xml.TypeDocument:
		return CodeRoot
	case xml.TypeElement:
		return CodeElement
	case xml.TypeAttribute:
		return CodeAttribute
	case xml.TypeText:
		return CodeText
	case xml.TypeComment:
		return CodeComment
	case xml.TypeInstruction:
		return CodeInstruction
	case xml.TypeNamespace:
		return CodeNamespace
	default:
		return -1
	}
}

// CodeOf returns the name code of an element or attribute node when its name
// is known, its generic type code otherwise.
func (r *Registry) CodeOf(node xml.Node) int {
	code := r.TypeOf(node)
	if code != CodeElement && code != CodeAttribute {
		return code
	}
	qn, _ := xml.NameOf(node)
	if c, ok := r.Lookup(qn.Uri, qn.Name, code == CodeAttribute); ok {
		return c
	}
	return code
}

func (r *Registry) IsAttribute(code int) bool {
	if code < NTypes {
		return code == CodeAttribute
	}
	i := code - NTypes
	return i < len(r.list) && r.list[i].attr
}

// Len returns the number of codes in use, generic type codes included.
func (r *Registry) Len() int {
	return NTypes + len(r.list)
}

// Name returns a printable name for code.
func (r *Registry) Name(code int) string {
	if code >= 0 && code < NTypes {
		return typeNames[code]
	}
	i := code - NTypes
	if i < 0 || i >= len(r.list) {
		return fmt.Sprintf("#%d", code)
	}
	k := r.list[i]
	name := k.local
	if k.uri != "" {
		name = fmt.Sprintf("{%s}%s", k.uri, k.local)
	}
	if k.attr {
		name = "@" + name
	}
	return name
}

// Uri returns the namespace uri of the name registered under code.
func (r *Registry) Uri(code int) string {
	i := code - NTypes
	if i < 0 || i >= len(r.list) {
		return ""
	}
	return r.list[i].uri
}

// Namespace returns the uri registered under code.
func (r *Registry) Namespace(code int) string {
	if code < 0 || code >= len(r.uris) {
		return ""
	}
	return r.uris[code]
}

// Names returns the printable names of every registered name code, in code
// order.
func (r *Registry) Names() []string {
	list := make([]string, 0, len(r.list))
	for i := range r.list {
		list = append(list, r.Name(NTypes+i))
	}
	return list
}

func (r *Registry) code(key nameKey) int {
	if c, ok := r.names[key]; ok {
		return c
	}
	c := NTypes + len(r.list)
	r.names[key] = c
	r.list = append(r.list, key)
	return c
}
