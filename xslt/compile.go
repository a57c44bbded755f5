package xslt

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/midbel/xsltc/environ"
	"github.com/midbel/xsltc/xml"
	"github.com/midbel/xsltc/xpath"
)

// CompilePattern compiles a match pattern. Prefixes are resolved against
// namespaces, which may be nil when the pattern uses none.
func CompilePattern(pattern string, namespaces environ.Environ[string]) (Pattern, error) {
	if namespaces == nil {
		namespaces = environ.Empty[string]()
	}
	c := patternCompiler{
		source:     pattern,
		scan:       Scan(strings.NewReader(pattern)),
		namespaces: namespaces,
	}
	c.next()
	c.next()
	p, err := c.compile()
	if err != nil {
		return nil, err
	}
	if !c.done() {
		return nil, c.error("unexpected token %s", c.curr)
	}
	return p, nil
}

type patternCompiler struct {
	source     string
	scan       *Scanner
	curr       Token
	peek       Token
	namespaces environ.Environ[string]
}

func (c *patternCompiler) compile() (Pattern, error) {
	left, err := c.compilePath()
	if err != nil {
		return nil, err
	}
	if !c.is(opUnion) {
		return left, nil
	}
	c.next()
	right, err := c.compile()
	if err != nil {
		return nil, err
	}
	a := AlternativePattern{
		Left:  left,
		Right: right,
	}
	return &a, nil
}

func (c *patternCompiler) compilePath() (Pattern, error) {
	var (
		path PathPattern
		rel  = RelParent
	)
	switch {
	case c.is(opCurrentLevel):
		c.next()
		path.Anchor = &RootPattern{}
		if c.endPath() {
			return path.Anchor, nil
		}
	case c.is(opAnyLevel):
		c.next()
		path.Anchor = &RootPattern{}
		rel = RelAncestor
	case c.is(opName) && c.peekIs(begGrp) && isIdKey(c.getCurrentLiteral()):
		anchor, err := c.compileIdKey()
		if err != nil {
			return nil, err
		}
		if c.endPath() {
			return anchor, nil
		}
		path.Anchor = anchor
		if c.is(opAnyLevel) {
			rel = RelAncestor
		} else if !c.is(opCurrentLevel) {
			return nil, c.error("\"/\" or \"//\" expected after %s", anchor)
		}
		c.next()
	case c.is(opName) && c.peekIs(begGrp) && c.getCurrentLiteral() == "document-node":
		c.next()
		c.next()
		if !c.is(endGrp) {
			return nil, c.error("expected \")\"")
		}
		c.next()
		return &RootPattern{}, nil
	default:
	}
	for {
		step, err := c.compileStep()
		if err != nil {
			return nil, err
		}
		step.Rel = rel
		path.Steps = append(path.Steps, step)
		if c.endPath() {
			break
		}
		switch {
		case c.is(opCurrentLevel):
			rel = RelParent
		case c.is(opAnyLevel):
			rel = RelAncestor
		default:
			return nil, c.error("\"/\" or \"//\" expected")
		}
		c.next()
	}
	if path.Anchor == nil && len(path.Steps) == 1 {
		return path.Steps[0], nil
	}
	return &path, nil
}

func (c *patternCompiler) compileIdKey() (Pattern, error) {
	p := IdKeyPattern{
		Func: c.getCurrentLiteral(),
	}
	c.next()
	c.next()
	if p.Func == funcKey {
		if !c.is(opLiteral) {
			return nil, c.error("key name expected")
		}
		p.Key = c.getCurrentLiteral()
		c.next()
		if !c.is(opSeq) {
			return nil, c.error("expected \",\"")
		}
		c.next()
	}
	if !c.is(opLiteral) {
		return nil, c.error("literal expected in %s()", p.Func)
	}
	p.Value = c.getCurrentLiteral()
	c.next()
	if !c.is(endGrp) {
		return nil, c.error("expected \")\"")
	}
	c.next()
	return &p, nil
}

func (c *patternCompiler) compileStep() (*StepPattern, error) {
	var step StepPattern
	switch {
	case c.is(opAttribute):
		c.next()
		step.Axis = AxisAttribute
	case c.is(opName) && c.peekIs(opAxis):
		switch axis := c.getCurrentLiteral(); axis {
		case "child":
			step.Axis = AxisChild
		case "attribute":
			step.Axis = AxisAttribute
		default:
			return nil, c.error("%s: axis not allowed in pattern", axis)
		}
		c.next()
		c.next()
	default:
	}
	test, err := c.compileTest(&step)
	if err != nil {
		return nil, err
	}
	step.Test = test
	for c.is(opPredicate) {
		expr, err := xpath.CompileString(c.getCurrentLiteral(), xpath.WithNamespaces(c.namespaces))
		if err != nil {
			return nil, c.error("predicate [%s]: %s", c.getCurrentLiteral(), err)
		}
		step.Predicates = append(step.Predicates, expr)
		step.sources = append(step.sources, c.getCurrentLiteral())
		c.next()
	}
	return &step, nil
}

func (c *patternCompiler) compileTest(step *StepPattern) (NodeTest, error) {
	if c.is(opStar) {
		c.next()
		return WildcardTest{}, nil
	}
	if !c.is(opName) {
		return nil, c.error("name or node test expected, got %s", c.curr)
	}
	if c.peekIs(begGrp) {
		return c.compileKind(step)
	}
	qn := xml.LocalName(c.getCurrentLiteral())
	c.next()
	if !c.is(opNamespace) {
		return NameTest{QName: qn}, nil
	}
	c.next()
	prefix := qn.Name
	uri, err := c.namespaces.Resolve(prefix)
	if err != nil {
		return nil, c.error("%s: namespace prefix not declared", prefix)
	}
	if c.is(opStar) {
		c.next()
		t := NamespaceTest{
			Uri:    uri,
			Prefix: prefix,
		}
		return t, nil
	}
	if !c.is(opName) {
		return nil, c.error("name expected after %s:", prefix)
	}
	qn = xml.ExpandedName(c.getCurrentLiteral(), prefix, uri)
	c.next()
	return NameTest{QName: qn}, nil
}

func (c *patternCompiler) compileKind(step *StepPattern) (NodeTest, error) {
	var (
		test KindTest
		name = c.getCurrentLiteral()
	)
	switch name {
	case "node":
		test.Kind = xml.TypeNode
		if step.Axis == AxisAttribute {
			test.Kind = xml.TypeAttribute
		}
	case "text":
		test.Kind = xml.TypeText
	case "comment":
		test.Kind = xml.TypeComment
	case "processing-instruction":
		test.Kind = xml.TypeInstruction
	case "attribute":
		step.Axis = AxisAttribute
		test.Kind = xml.TypeAttribute
	case "element":
	default:
		return nil, c.error("%s(): node test not supported in pattern", name)
	}
	c.next()
	c.next()
	if test.Kind == xml.TypeInstruction && (c.is(opLiteral) || c.is(opName)) {
		test.Target = c.getCurrentLiteral()
		c.next()
	}
	if !c.is(endGrp) {
		return nil, c.error("expected \")\" after %s(", name)
	}
	c.next()
	if name == "element" {
		return WildcardTest{}, nil
	}
	if step.Axis == AxisAttribute && test.Kind != xml.TypeAttribute {
		return nil, c.error("%s(): node test never matches on attribute axis", name)
	}
	return test, nil
}

func (c *patternCompiler) endPath() bool {
	return c.done() || c.is(opUnion)
}

func (c *patternCompiler) error(format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", c.source, ErrPattern, fmt.Sprintf(format, args...))
}

func (c *patternCompiler) getCurrentLiteral() string {
	return c.curr.Literal
}

func (c *patternCompiler) next() {
	c.curr = c.peek
	c.peek = c.scan.Scan()
}

func (c *patternCompiler) is(kind rune) bool {
	return c.curr.Type == kind
}

func (c *patternCompiler) peekIs(kind rune) bool {
	return c.peek.Type == kind
}

func (c *patternCompiler) done() bool {
	return c.is(opEOF)
}

func isIdKey(name string) bool {
	return name == funcId || name == funcKey
}

const (
	opEOF rune = -(1 + iota)
	opName
	opAttribute
	opLiteral
	opPredicate
	opInvalid
	opCurrentLevel
	opAnyLevel
	begGrp
	endGrp
	opNamespace
	opSeq
	opUnion
	opAxis
	opStar
)

type Token struct {
	Literal string
	Type    rune
}

func (t Token) String() string {
	switch t.Type {
	case opUnion:
		return "<union>"
	case opAxis:
		return "<axis>"
	case opStar:
		return "<star>"
	case opCurrentLevel:
		return "<current-level>"
	case opAnyLevel:
		return "<any-level>"
	case begGrp:
		return "<begin-group>"
	case endGrp:
		return "<end-group>"
	case opSeq:
		return "<sequence>"
	case opNamespace:
		return "<namespace>"
	case opEOF:
		return "<eof>"
	case opAttribute:
		return "<attribute>"
	case opName:
		return fmt.Sprintf("name(%s)", t.Literal)
	case opLiteral:
		return fmt.Sprintf("literal(%s)", t.Literal)
	case opPredicate:
		return fmt.Sprintf("predicate(%s)", t.Literal)
	case opInvalid:
		return fmt.Sprintf("invalid(%s)", t.Literal)
	default:
		return "<unknown>"
	}
}

type Scanner struct {
	input *bufio.Reader
	char  rune
	str   bytes.Buffer
}

func Scan(r io.Reader) *Scanner {
	scan := &Scanner{
		input: bufio.NewReader(r),
	}
	scan.read()
	return scan
}

func (s *Scanner) Scan() Token {
	var tok Token
	s.skipBlank()
	if s.done() {
		tok.Type = opEOF
		return tok
	}
	s.str.Reset()

	switch {
	case s.char == star:
		tok.Type = opStar
		s.read()
	case s.char == comma:
		tok.Type = opSeq
		s.read()
	case s.char == arobase:
		tok.Type = opAttribute
		s.read()
	case isDelimiter(s.char):
		s.scanDelimiter(&tok)
	case s.char == apos || s.char == quote:
		s.scanLiteral(&tok)
	case s.char == lsquare:
		s.scanPredicate(&tok)
	case unicode.IsLetter(s.char) || s.char == underscore:
		s.scanIdent(&tok)
	default:
		tok.Type = opInvalid
		tok.Literal = string(s.char)
		s.read()
	}
	return tok
}

func (s *Scanner) scanDelimiter(tok *Token) {
	switch k := s.peek(); s.char {
	case colon:
		tok.Type = opNamespace
		if k == colon {
			s.read()
			tok.Type = opAxis
		}
	case pipe:
		tok.Type = opUnion
	case lparen:
		tok.Type = begGrp
	case rparen:
		tok.Type = endGrp
	case slash:
		tok.Type = opCurrentLevel
		if k == slash {
			s.read()
			tok.Type = opAnyLevel
		}
	default:
		tok.Type = opInvalid
	}
	s.read()
}

// scanPredicate reads the raw text of a predicate, nested brackets and
// quoted literals included.
func (s *Scanner) scanPredicate(tok *Token) {
	s.read()
	var (
		depth = 1
		quote rune
	)
	for !s.done() {
		switch {
		case quote != 0:
			if s.char == quote {
				quote = 0
			}
		case s.char == apos || s.char == '"':
			quote = s.char
		case s.char == lsquare:
			depth++
		case s.char == rsquare:
			depth--
		}
		if depth == 0 {
			break
		}
		s.write()
		s.read()
	}
	tok.Literal = strings.TrimSpace(s.str.String())
	tok.Type = opPredicate
	if depth != 0 || tok.Literal == "" {
		tok.Type = opInvalid
		return
	}
	s.read()
}

func (s *Scanner) scanLiteral(tok *Token) {
	quote := s.char
	s.read()
	for !s.done() && s.char != quote {
		s.write()
		s.read()
	}
	tok.Type = opLiteral
	tok.Literal = s.str.String()
	if s.char != quote {
		tok.Type = opInvalid
		return
	}
	s.read()
}

func (s *Scanner) scanIdent(tok *Token) {
	accept := func() bool {
		return unicode.IsLetter(s.char) || unicode.IsDigit(s.char) ||
			s.char == dash || s.char == underscore || s.char == dot
	}
	for !s.done() && accept() {
		s.write()
		s.read()
	}
	tok.Literal = s.str.String()
	tok.Type = opName
	if tok.Literal == "union" {
		tok.Type = opUnion
	}
}

func (s *Scanner) skipBlank() {
	for unicode.IsSpace(s.char) {
		s.read()
	}
}

func (s *Scanner) write() {
	s.str.WriteRune(s.char)
}

func (s *Scanner) read() {
	c, _, err := s.input.ReadRune()
	if err != nil {
		s.char = utf8.RuneError
	} else {
		s.char = c
	}
}

func (s *Scanner) peek() rune {
	defer s.input.UnreadRune()
	c, _, _ := s.input.ReadRune()
	return c
}

func (s *Scanner) done() bool {
	return s.char == utf8.RuneError
}

const (
	lsquare    = '['
	rsquare    = ']'
	lparen     = '('
	rparen     = ')'
	colon      = ':'
	quote      = '"'
	apos       = '\''
	slash      = '/'
	dash       = '-'
	underscore = '_'
	dot        = '.'
	arobase    = '@'
	comma      = ','
	star       = '*'
	pipe       = '|'
)

func isDelimiter(c rune) bool {
	return c == pipe || c == slash || c == lparen || c == rparen || c == colon
}
