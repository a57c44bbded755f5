package xpath

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/midbel/xsltc/environ"
	"github.com/midbel/xsltc/xml"
)

const (
	CodeGenericError = "XPST0003"
	CodeUndefinedNS  = "XPST0081"
	CodeUnknownFunc  = "XPST0017"
)

type SyntaxError struct {
	Code  string
	Expr  string
	Cause string
	Position
}

func (e SyntaxError) Error() string {
	if e.Expr == "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Position, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Expr, e.Cause)
}

func (e SyntaxError) Unwrap() error {
	return ErrSyntax
}

type Option func(*Compiler)

// WithNamespaces gives the compiler the prefixes in scope for name tests.
func WithNamespaces(env environ.Environ[string]) Option {
	return func(c *Compiler) {
		c.namespaces = env
	}
}

func WithTracer(tracer Tracer) Option {
	return func(c *Compiler) {
		c.Tracer = tracer
	}
}

type Compiler struct {
	scan  *Scanner
	curr  Token
	peek  Token
	query string

	Tracer
	namespaces environ.Environ[string]

	infix  map[rune]func(Expr) (Expr, error)
	prefix map[rune]func() (Expr, error)
}

func NewCompiler(r io.Reader, options ...Option) *Compiler {
	cp := Compiler{
		scan:       Scan(r),
		Tracer:     discardTracer{},
		namespaces: environ.Empty[string](),
	}
	for _, o := range options {
		o(&cp)
	}

	cp.infix = map[rune]func(Expr) (Expr, error){
		currLevel: cp.compileStep,
		anyLevel:  cp.compileDescendantStep,
		begPred:   cp.compileFilter,
		opAdd:     cp.compileBinary,
		opSub:     cp.compileBinary,
		opMul:     cp.compileBinary,
		opDiv:     cp.compileBinary,
		opMod:     cp.compileBinary,
		opEq:      cp.compileBinary,
		opNe:      cp.compileBinary,
		opGt:      cp.compileBinary,
		opGe:      cp.compileBinary,
		opLt:      cp.compileBinary,
		opLe:      cp.compileBinary,
		opAnd:     cp.compileBinary,
		opOr:      cp.compileBinary,
		opUnion:   cp.compileUnion,
	}
	cp.prefix = map[rune]func() (Expr, error){
		currLevel:  cp.compileRoot,
		anyLevel:   cp.compileDescendantRoot,
		Name:       cp.compileName,
		opMul:      cp.compileName,
		opDiv:      cp.compileName,
		opMod:      cp.compileName,
		opAnd:      cp.compileName,
		opOr:       cp.compileName,
		attrNode:   cp.compileAttr,
		variable:   cp.compileVariable,
		currNode:   cp.compileCurrent,
		parentNode: cp.compileParent,
		Literal:    cp.compileLiteral,
		Digit:      cp.compileNumber,
		opSub:      cp.compileReverse,
		begGrp:     cp.compileGroup,
	}

	cp.next()
	cp.next()
	return &cp
}

func CompileString(q string, options ...Option) (Expr, error) {
	cp := NewCompiler(strings.NewReader(q), options...)
	cp.query = q
	return cp.Compile()
}

func Compile(r io.Reader, options ...Option) (Expr, error) {
	return NewCompiler(r, options...).Compile()
}

func (c *Compiler) Compile() (Expr, error) {
	expr, err := c.compileExpr(powLowest)
	if err != nil {
		c.Error("compile", err)
		return nil, err
	}
	if !c.done() {
		err = c.syntaxError(fmt.Sprintf("unexpected token %s", c.curr))
		c.Error("compile", err)
		return nil, err
	}
	return expr, nil
}

func (c *Compiler) compileExpr(pow int) (Expr, error) {
	c.Enter("expr")
	defer c.Leave("expr")

	fn, ok := c.prefix[c.curr.Type]
	if !ok {
		return nil, c.syntaxError(fmt.Sprintf("unexpected prefix expression %s", c.curr))
	}
	left, err := fn()
	if err != nil {
		return nil, err
	}
	for !c.done() && pow < c.power() {
		fn, ok := c.infix[c.curr.Type]
		if !ok {
			return nil, c.syntaxError(fmt.Sprintf("unexpected infix expression %s", c.curr))
		}
		left, err = fn(left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (c *Compiler) compileFilter(left Expr) (Expr, error) {
	c.Enter("filter")
	defer c.Leave("filter")

	c.next()
	pred, err := c.compileExpr(powLowest)
	if err != nil {
		return nil, err
	}
	if !c.is(endPred) {
		return nil, c.syntaxError("missing closing ']'")
	}
	c.next()
	switch e := left.(type) {
	case axis:
		e.predicates = append(e.predicates, pred)
		return e, nil
	case filter:
		e.predicates = append(e.predicates, pred)
		return e, nil
	default:
		f := filter{
			expr:       left,
			predicates: []Expr{pred},
		}
		return f, nil
	}
}

func (c *Compiler) compileUnion(left Expr) (Expr, error) {
	c.Enter("union")
	defer c.Leave("union")

	c.next()
	right, err := c.compileExpr(powUnion)
	if err != nil {
		return nil, err
	}
	u := union{
		left:  left,
		right: right,
	}
	return u, nil
}

func (c *Compiler) compileBinary(left Expr) (Expr, error) {
	c.Enter("binary")
	defer c.Leave("binary")

	var (
		op  = c.curr.Type
		pow = c.power()
	)
	c.next()
	right, err := c.compileExpr(pow)
	if err != nil {
		return nil, err
	}
	b := binary{
		left:  left,
		right: right,
		op:    op,
	}
	return b, nil
}

func (c *Compiler) compileGroup() (Expr, error) {
	c.Enter("group")
	defer c.Leave("group")

	c.next()
	expr, err := c.compileExpr(powLowest)
	if err != nil {
		return nil, err
	}
	if !c.is(endGrp) {
		return nil, c.syntaxError("missing closing ')'")
	}
	c.next()
	return expr, nil
}

func (c *Compiler) compileLiteral() (Expr, error) {
	defer c.next()
	i := literal{
		value: c.getCurrentLiteral(),
	}
	return i, nil
}

func (c *Compiler) compileNumber() (Expr, error) {
	defer c.next()
	f, err := strconv.ParseFloat(c.getCurrentLiteral(), 64)
	if err != nil {
		return nil, c.syntaxError(fmt.Sprintf("%s: invalid number", c.getCurrentLiteral()))
	}
	n := number{
		value: f,
	}
	return n, nil
}

func (c *Compiler) compileReverse() (Expr, error) {
	c.Enter("reverse")
	defer c.Leave("reverse")

	c.next()
	expr, err := c.compileExpr(powPrefix)
	if err != nil {
		return nil, err
	}
	r := reverse{
		expr: expr,
	}
	return r, nil
}

func (c *Compiler) compileVariable() (Expr, error) {
	defer c.next()
	v := identifier{
		ident: c.getCurrentLiteral(),
	}
	return v, nil
}

func (c *Compiler) compileCall() (Expr, error) {
	c.Enter("call")
	defer c.Leave("call")

	fn := call{
		ident: c.getCurrentLiteral(),
	}
	if !IsBuiltin(fn.ident) {
		err := c.syntaxError(fmt.Sprintf("%s: unknown function", fn.ident))
		if e, ok := err.(SyntaxError); ok {
			e.Code = CodeUnknownFunc
			err = e
		}
		return nil, err
	}
	c.next()
	c.next()
	for !c.done() && !c.is(endGrp) {
		arg, err := c.compileExpr(powLowest)
		if err != nil {
			return nil, err
		}
		fn.args = append(fn.args, arg)
		switch {
		case c.is(opSeq):
			c.next()
			if c.is(endGrp) {
				return nil, c.syntaxError("argument expected after ','")
			}
		case c.is(endGrp):
		default:
			return nil, c.syntaxError("expected ',' or ')' in argument list")
		}
	}
	if !c.is(endGrp) {
		return nil, c.syntaxError("missing closing ')'")
	}
	c.next()
	return fn, nil
}

func (c *Compiler) compileName() (Expr, error) {
	c.Enter("name")
	defer c.Leave("name")

	if c.is(Name) && c.peek.Type == begGrp && !isKind(c.getCurrentLiteral()) {
		return c.compileCall()
	}
	if c.is(Name) && c.peek.Type == opAxis {
		return c.compileAxis()
	}
	test, err := c.compileNodeTest()
	if err != nil {
		return nil, err
	}
	a := axis{
		kind: childAxis,
		test: test,
	}
	return a, nil
}

func (c *Compiler) compileAxis() (Expr, error) {
	c.Enter("axis")
	defer c.Leave("axis")

	a := axis{
		kind: c.getCurrentLiteral(),
	}
	if !isAxis(a.kind) {
		return nil, c.syntaxError(fmt.Sprintf("%s: unsupported axis", a.kind))
	}
	c.next()
	c.next()
	test, err := c.compileNodeTest()
	if err != nil {
		return nil, err
	}
	a.test = test
	return a, nil
}

func (c *Compiler) compileAttr() (Expr, error) {
	c.Enter("attribute")
	defer c.Leave("attribute")

	c.next()
	test, err := c.compileNodeTest()
	if err != nil {
		return nil, err
	}
	a := axis{
		kind: attributeAxis,
		test: test,
	}
	return a, nil
}

func (c *Compiler) compileNodeTest() (NodeTest, error) {
	if c.is(opMul) {
		c.next()
		return WildcardTest{Any: true}, nil
	}
	if c.is(Name) && isKind(c.getCurrentLiteral()) && c.peek.Type == begGrp {
		return c.compileKind()
	}
	if !c.isName() {
		return nil, c.syntaxError(fmt.Sprintf("name expected, got %s", c.curr))
	}
	qn := xml.LocalName(c.getCurrentLiteral())
	c.next()
	if !c.is(Namespace) {
		return NameTest{QName: qn}, nil
	}
	c.next()
	uri, err := c.resolve(qn.Name)
	if err != nil {
		return nil, err
	}
	if c.is(opMul) {
		c.next()
		return WildcardTest{Uri: uri}, nil
	}
	if !c.isName() {
		return nil, c.syntaxError("name expected after namespace")
	}
	qn = xml.ExpandedName(c.getCurrentLiteral(), qn.Name, uri)
	c.next()
	return NameTest{QName: qn}, nil
}

func (c *Compiler) compileKind() (NodeTest, error) {
	c.Enter("kind")
	defer c.Leave("kind")

	var test KindTest
	switch c.getCurrentLiteral() {
	case "node":
		test.Kind = xml.TypeNode
	case "element":
		test.Kind = xml.TypeElement
	case "text":
		test.Kind = xml.TypeText
	case "comment":
		test.Kind = xml.TypeComment
	case "attribute":
		test.Kind = xml.TypeAttribute
	case "processing-instruction":
		test.Kind = xml.TypeInstruction
	case "document-node":
		test.Kind = xml.TypeDocument
	default:
		return nil, c.syntaxError("kind test not supported")
	}
	c.next()
	c.next()
	if test.Kind == xml.TypeInstruction && (c.is(Literal) || c.is(Name)) {
		test.Target = c.getCurrentLiteral()
		c.next()
	}
	if !c.is(endGrp) {
		return nil, c.syntaxError("missing closing ')' after kind test")
	}
	c.next()
	return test, nil
}

func (c *Compiler) compileCurrent() (Expr, error) {
	c.next()
	return current{}, nil
}

func (c *Compiler) compileParent() (Expr, error) {
	c.next()
	a := axis{
		kind: parentAxis,
		test: KindTest{Kind: xml.TypeNode | xml.TypeDocument},
	}
	return a, nil
}

func (c *Compiler) compileStep(left Expr) (Expr, error) {
	c.Enter("step")
	defer c.Leave("step")

	c.next()
	next, err := c.compileExpr(powStep)
	if err != nil {
		return nil, err
	}
	s := step{
		curr: left,
		next: next,
	}
	return s, nil
}

func (c *Compiler) compileDescendantStep(left Expr) (Expr, error) {
	c.Enter("descendant-step")
	defer c.Leave("descendant-step")

	c.next()
	next, err := c.compileExpr(powStep)
	if err != nil {
		return nil, err
	}
	s := step{
		curr: step{
			curr: left,
			next: descendantOrSelf(),
		},
		next: next,
	}
	return s, nil
}

func (c *Compiler) compileRoot() (Expr, error) {
	c.Enter("root")
	defer c.Leave("root")

	c.next()
	if !c.startStep() {
		return root{}, nil
	}
	next, err := c.compileExpr(powStep)
	if err != nil {
		return nil, err
	}
	s := step{
		curr: root{},
		next: next,
	}
	return s, nil
}

func (c *Compiler) compileDescendantRoot() (Expr, error) {
	c.Enter("descendant-root")
	defer c.Leave("descendant-root")

	c.next()
	next, err := c.compileExpr(powStep)
	if err != nil {
		return nil, err
	}
	s := step{
		curr: step{
			curr: root{},
			next: descendantOrSelf(),
		},
		next: next,
	}
	return s, nil
}

func descendantOrSelf() Expr {
	return axis{
		kind: descendantSelfAxis,
		test: KindTest{Kind: xml.TypeNode | xml.TypeDocument},
	}
}

func (c *Compiler) resolve(prefix string) (string, error) {
	if prefix == "xml" {
		return "http://www.w3.org/XML/1998/namespace", nil
	}
	uri, err := c.namespaces.Resolve(prefix)
	if err != nil {
		err := c.syntaxError(fmt.Sprintf("%s: namespace prefix not declared", prefix))
		if e, ok := err.(SyntaxError); ok {
			e.Code = CodeUndefinedNS
			err = e
		}
		return "", err
	}
	return uri, nil
}

func (c *Compiler) startStep() bool {
	switch c.curr.Type {
	case Name, opMul, attrNode, currNode, parentNode:
		return true
	case opDiv, opMod, opAnd, opOr:
		return true
	default:
		return false
	}
}

func (c *Compiler) isName() bool {
	switch c.curr.Type {
	case Name, opDiv, opMod, opAnd, opOr:
		return true
	default:
		return false
	}
}

func (c *Compiler) syntaxError(cause string) error {
	return SyntaxError{
		Code:     CodeGenericError,
		Expr:     c.query,
		Cause:    cause,
		Position: c.curr.Position,
	}
}

func (c *Compiler) power() int {
	return bindings[c.curr.Type]
}

func (c *Compiler) getCurrentLiteral() string {
	return c.curr.Literal
}

func (c *Compiler) is(kind rune) bool {
	return c.curr.Type == kind
}

func (c *Compiler) done() bool {
	return c.is(EOF)
}

func (c *Compiler) next() {
	c.curr = c.peek
	c.peek = c.scan.Scan()
}

func isKind(str string) bool {
	switch str {
	case "node", "element", "text", "comment", "attribute", "processing-instruction", "document-node":
		return true
	default:
		return false
	}
}

const (
	powLowest = iota
	powOr
	powAnd
	powCmp
	powRel
	powAdd
	powMul
	powPrefix
	powUnion
	powStep
	powPred
)

var bindings = map[rune]int{
	currLevel: powStep,
	anyLevel:  powStep,
	opUnion:   powUnion,
	opEq:      powCmp,
	opNe:      powCmp,
	opGt:      powRel,
	opGe:      powRel,
	opLt:      powRel,
	opLe:      powRel,
	opAnd:     powAnd,
	opOr:      powOr,
	opAdd:     powAdd,
	opSub:     powAdd,
	opMul:     powMul,
	opDiv:     powMul,
	opMod:     powMul,
	begPred:   powPred,
}
