package xml

import (
	stdxml "encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/midbel/xsltc/environ"
)

const MaxDepth = 512

const AttrXmlNS = "xmlns"

type ParseError struct {
	Line    int
	Element string
	Message string
}

func (p ParseError) Error() string {
	if p.Element == "" {
		return fmt.Sprintf("%d: %s", p.Line, p.Message)
	}
	return fmt.Sprintf("%d: %s: %s", p.Line, p.Element, p.Message)
}

// Parser builds a Document from a token stream. Prefixes are resolved by
// the parser itself so that both the prefix and the namespace uri of every
// name are kept.
type Parser struct {
	decoder *stdxml.Decoder

	TrimSpace bool
	StrictNS  bool
	MaxDepth  int

	namespaces environ.Environ[string]
}

func NewParser(r io.Reader) *Parser {
	p := Parser{
		decoder:    stdxml.NewDecoder(r),
		MaxDepth:   MaxDepth,
		namespaces: environ.Empty[string](),
	}
	p.decoder.Strict = true
	return &p
}

func ParseFile(file string) (*Document, error) {
	r, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ParseReader(r)
}

func ParseString(str string) (*Document, error) {
	return ParseReader(strings.NewReader(str))
}

func ParseReader(r io.Reader) (*Document, error) {
	return NewParser(r).Parse()
}

func (p *Parser) Parse() (*Document, error) {
	var (
		doc   = EmptyDocument()
		stack []*Element
	)
	appendNode := func(n Node) {
		if len(stack) == 0 {
			doc.Append(n)
			return
		}
		stack[len(stack)-1].Append(n)
	}
	for {
		tok, err := p.decoder.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, p.createError("", err.Error())
		}
		switch tok := tok.(type) {
		case stdxml.StartElement:
			if len(stack) >= p.MaxDepth {
				return nil, p.createError(tok.Name.Local, "maximum depth reached")
			}
			p.enter()
			el, err := p.parseElement(tok)
			if err != nil {
				return nil, err
			}
			appendNode(el)
			stack = append(stack, el)
		case stdxml.EndElement:
			if len(stack) == 0 {
				return nil, p.createError(tok.Name.Local, "unexpected closing element")
			}
			stack = stack[:len(stack)-1]
			p.leave()
		case stdxml.CharData:
			if len(stack) == 0 {
				continue
			}
			str := string(tok)
			if p.TrimSpace && strings.TrimSpace(str) == "" {
				continue
			}
			appendNode(NewText(str))
		case stdxml.Comment:
			appendNode(NewComment(string(tok)))
		case stdxml.ProcInst:
			if tok.Target == "xml" {
				continue
			}
			appendNode(NewInstruction(LocalName(tok.Target), strings.TrimSpace(string(tok.Inst))))
		default:
		}
	}
	if len(stack) > 0 {
		return nil, p.createError(stack[len(stack)-1].QualifiedName(), "element not closed")
	}
	if doc.Root() == nil {
		return nil, p.createError("", "document has no root element")
	}
	Renumber(doc)
	return doc, nil
}

func (p *Parser) parseElement(tok stdxml.StartElement) (*Element, error) {
	for _, a := range tok.Attr {
		switch {
		case a.Name.Space == "" && a.Name.Local == AttrXmlNS:
			p.namespaces.Define("", a.Value)
		case a.Name.Space == AttrXmlNS:
			p.namespaces.Define(a.Name.Local, a.Value)
		default:
		}
	}
	qn := QualifiedName(tok.Name.Local, tok.Name.Space)
	uri, err := p.resolve(qn.Space, true)
	if err != nil {
		return nil, p.createError(qn.QualifiedName(), err.Error())
	}
	qn.Uri = uri

	el := NewElement(qn)
	for _, a := range tok.Attr {
		switch {
		case a.Name.Space == "" && a.Name.Local == AttrXmlNS:
			el.DeclareNS(NewNamespace("", a.Value))
			continue
		case a.Name.Space == AttrXmlNS:
			el.DeclareNS(NewNamespace(a.Name.Local, a.Value))
			continue
		default:
		}
		an := QualifiedName(a.Name.Local, a.Name.Space)
		if an.Space != "" {
			uri, err := p.resolve(an.Space, false)
			if err != nil {
				return nil, p.createError(el.QualifiedName(), err.Error())
			}
			an.Uri = uri
		}
		el.SetAttribute(NewAttribute(an, a.Value))
	}
	return el, nil
}

func (p *Parser) resolve(prefix string, elem bool) (string, error) {
	if prefix == "xml" {
		return xmlNamespaceUri, nil
	}
	if prefix == "" && !elem {
		return "", nil
	}
	uri, err := p.namespaces.Resolve(prefix)
	if err == nil {
		return uri, nil
	}
	if prefix == "" || !p.StrictNS {
		return "", nil
	}
	return "", fmt.Errorf("%s: namespace prefix not declared", prefix)
}

func (p *Parser) enter() {
	p.namespaces = environ.Enclosed(p.namespaces)
}

func (p *Parser) leave() {
	if u, ok := p.namespaces.(interface{ Unwrap() environ.Environ[string] }); ok {
		p.namespaces = u.Unwrap()
	}
}

func (p *Parser) createError(elem, msg string) error {
	line, _ := p.decoder.InputPos()
	return ParseError{
		Line:    line,
		Element: elem,
		Message: msg,
	}
}
