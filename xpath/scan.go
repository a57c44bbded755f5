package xpath

import (
	"fmt"
	"io"
	"unicode"
)

type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

const (
	EOF rune = -(1 + iota)
	Name
	Namespace // name:
	Literal
	Digit
	Invalid
)

const (
	currNode = -(iota + 1000)
	parentNode
	attrNode
	variable
	currLevel
	anyLevel
	begPred
	endPred
	begGrp
	endGrp
	opAdd
	opSub
	opMul
	opDiv
	opMod
	opEq
	opNe
	opGt
	opGe
	opLt
	opLe
	opUnion
	opAnd
	opOr
	opSeq
	opAxis
)

var tokenNames = map[rune]string{
	EOF:        "<eof>",
	Namespace:  "<namespace>",
	Invalid:    "<invalid>",
	currNode:   "<current-node>",
	parentNode: "<parent-node>",
	attrNode:   "<attribute>",
	currLevel:  "<current-level>",
	anyLevel:   "<any-level>",
	begPred:    "<begin-predicate>",
	endPred:    "<end-predicate>",
	begGrp:     "<begin-group>",
	endGrp:     "<end-group>",
	opAdd:      "<add>",
	opSub:      "<subtract>",
	opMul:      "<multiply>",
	opDiv:      "<divide>",
	opMod:      "<modulo>",
	opEq:       "<equal>",
	opNe:       "<not-equal>",
	opGt:       "<greater-than>",
	opGe:       "<greater-eq>",
	opLt:       "<lesser-than>",
	opLe:       "<lesser-eq>",
	opUnion:    "<union>",
	opAnd:      "<and>",
	opOr:       "<or>",
	opSeq:      "<sequence>",
	opAxis:     "<axis>",
}

type Token struct {
	Literal string
	Type    rune
	Position
}

func (t Token) String() string {
	switch t.Type {
	case Digit:
		return fmt.Sprintf("number(%s)", t.Literal)
	case Name:
		return fmt.Sprintf("name(%s)", t.Literal)
	case Literal:
		return fmt.Sprintf("literal(%s)", t.Literal)
	case variable:
		return fmt.Sprintf("variable(%s)", t.Literal)
	}
	if str, ok := tokenNames[t.Type]; ok {
		return str
	}
	return "<unknown>"
}

// symbols maps the characters starting a punctuation token to their token
// type, and doubled gives the type of the two characters tokens.
var (
	symbols = map[rune]rune{
		'+': opAdd,
		'-': opSub,
		'*': opMul,
		'=': opEq,
		'<': opLt,
		'>': opGt,
		'(': begGrp,
		')': endGrp,
		'[': begPred,
		']': endPred,
		',': opSeq,
		'|': opUnion,
		'@': attrNode,
		'/': currLevel,
		'.': currNode,
		':': Namespace,
		'!': Invalid,
	}
	doubled = map[string]rune{
		"!=": opNe,
		"<=": opLe,
		">=": opGe,
		"//": anyLevel,
		"..": parentNode,
		"::": opAxis,
	}
	keywords = map[string]rune{
		"and": opAnd,
		"or":  opOr,
		"div": opDiv,
		"mod": opMod,
	}
)

// Scanner splits an expression into tokens. The whole expression is read
// when the scanner is created.
type Scanner struct {
	input []rune
	ptr   int
	Position
}

func Scan(r io.Reader) *Scanner {
	buf, _ := io.ReadAll(r)
	return &Scanner{
		input:    []rune(string(buf)),
		Position: Position{Line: 1, Column: 1},
	}
}

func (s *Scanner) Scan() Token {
	s.skipBlank()
	tok := Token{
		Position: s.Position,
	}
	if s.done() {
		tok.Type = EOF
		return tok
	}
	switch c := s.char(); {
	case c == '\'' || c == '"':
		s.scanLiteral(&tok)
	case c == '$':
		s.advance()
		tok.Literal = s.scanName()
		tok.Type = variable
		if tok.Literal == "" {
			tok.Type = Invalid
		}
	case isLetter(c):
		tok.Literal = s.scanName()
		tok.Type = Name
		if kw, ok := keywords[tok.Literal]; ok {
			tok.Type = kw
		}
	case unicode.IsDigit(c):
		s.scanNumber(&tok)
	default:
		s.scanSymbol(&tok)
	}
	return tok
}

func (s *Scanner) scanSymbol(tok *Token) {
	c := s.char()
	s.advance()
	if !s.done() {
		if kind, ok := doubled[string([]rune{c, s.char()})]; ok {
			s.advance()
			tok.Type = kind
			return
		}
	}
	kind, ok := symbols[c]
	if !ok {
		kind = Invalid
		tok.Literal = string(c)
	}
	tok.Type = kind
}

func (s *Scanner) scanLiteral(tok *Token) {
	quote := s.char()
	s.advance()
	start := s.ptr
	for !s.done() && s.char() != quote {
		s.advance()
	}
	tok.Literal = string(s.input[start:s.ptr])
	tok.Type = Literal
	if s.done() {
		tok.Type = Invalid
		return
	}
	s.advance()
}

func (s *Scanner) scanNumber(tok *Token) {
	start := s.ptr
	s.skipDigits()
	if !s.done() && s.char() == '.' {
		s.advance()
		s.skipDigits()
	}
	tok.Type = Digit
	tok.Literal = string(s.input[start:s.ptr])
}

func (s *Scanner) scanName() string {
	start := s.ptr
	for !s.done() && isNameChar(s.char()) {
		s.advance()
	}
	return string(s.input[start:s.ptr])
}

func (s *Scanner) skipDigits() {
	for !s.done() && unicode.IsDigit(s.char()) {
		s.advance()
	}
}

func (s *Scanner) skipBlank() {
	for !s.done() && unicode.IsSpace(s.char()) {
		s.advance()
	}
}

func (s *Scanner) char() rune {
	return s.input[s.ptr]
}

func (s *Scanner) advance() {
	if s.input[s.ptr] == '\n' {
		s.Line++
		s.Column = 0
	}
	s.Column++
	s.ptr++
}

func (s *Scanner) done() bool {
	return s.ptr >= len(s.input)
}

func isLetter(c rune) bool {
	return unicode.IsLetter(c) || c == '_'
}

func isNameChar(c rune) bool {
	return isLetter(c) || unicode.IsDigit(c) || c == '-' || c == '.'
}
