package xslt

import (
	"iter"
	"strings"

	"github.com/midbel/xsltc/xml"
	"github.com/midbel/xsltc/xpath"
)

// evalAVT expands the attribute value template value found on elem.
func evalAVT(ctx *Context, elem *xml.Element, value string) (string, error) {
	var str strings.Builder
	for q, ok := range iterAVT(value) {
		if !ok {
			str.WriteString(q)
			continue
		}
		e, err := ctx.Program.expr(elem, q)
		if err != nil {
			return "", err
		}
		items, err := ctx.Query(e)
		if err != nil {
			return "", err
		}
		for i := range items {
			if i > 0 {
				str.WriteString(" ")
			}
			str.WriteString(xpath.StringValue(items[i : i+1]))
		}
	}
	return str.String(), nil
}

// compileAVT checks the expressions of value without evaluating them.
func compileAVT(p *Program, elem *xml.Element, value string) error {
	for q, ok := range iterAVT(value) {
		if !ok {
			continue
		}
		if _, err := p.expr(elem, q); err != nil {
			return err
		}
	}
	return nil
}

func iterAVT(str string) iter.Seq2[string, bool] {
	fn := func(yield func(string, bool) bool) {
		var offset int
		for {
			var (
				ix  = strings.IndexRune(str[offset:], '{')
				ptr = offset
			)
			if ix < 0 {
				yield(str[offset:], false)
				break
			}
			offset += ix + 1
			ix = strings.IndexRune(str[offset:], '}')
			if ix < 0 {
				yield(str[ptr:], false)
				break
			}
			if !yield(str[ptr:offset-1], false) {
				break
			}
			if !yield(str[offset:offset+ix], true) {
				break
			}
			offset += ix + 1
		}
	}
	return fn
}
