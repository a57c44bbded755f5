package xpath

import (
	"errors"
	"fmt"
	"math"

	"github.com/midbel/xsltc/xml"
)

var (
	ErrType      = errors.New("invalid type")
	ErrUndefined = errors.New("undefined")
	ErrArgument  = errors.New("invalid number of argument(s)")
	ErrSyntax    = errors.New("invalid syntax")
)

type Expr interface {
	find(Context) (Sequence, error)
}

// Eval evaluates expr against ctx.
func Eval(expr Expr, ctx Context) (Sequence, error) {
	if expr == nil {
		return nil, fmt.Errorf("no expression can be evaluated")
	}
	return expr.find(ctx)
}

// Find evaluates expr with node as context item and an empty environment.
func Find(expr Expr, node xml.Node) (Sequence, error) {
	return Eval(expr, DefaultContext(node))
}

// Test evaluates expr as a predicate: a numeric result is true when it equals
// the context position, any other result is converted to its effective
// boolean value.
func Test(expr Expr, ctx Context) (bool, error) {
	seq, err := Eval(expr, ctx)
	if err != nil {
		return false, err
	}
	return predicateTrue(seq, ctx.Index), nil
}

func predicateTrue(seq Sequence, pos int) bool {
	if seq.Singleton() && seq[0].Atomic() {
		if f, ok := seq[0].Value().(float64); ok {
			return f == float64(pos)
		}
	}
	return EffectiveBooleanValue(seq)
}

// FilterNodes applies each predicate in turn to list, positions being
// counted in the order of list.
func FilterNodes(ctx Context, list []xml.Node, predicates []Expr) ([]xml.Node, error) {
	for _, pred := range predicates {
		var keep []xml.Node
		for i, n := range list {
			ok, err := Test(pred, ctx.Sub(n, i+1, len(list)))
			if err != nil {
				return nil, err
			}
			if ok {
				keep = append(keep, n)
			}
		}
		list = keep
	}
	return list, nil
}

type root struct{}

func (root) find(ctx Context) (Sequence, error) {
	if ctx.Node == nil {
		return nil, fmt.Errorf("root: %w: no context node", ErrUndefined)
	}
	return Singleton(xml.Root(ctx.Node)), nil
}

type current struct{}

func (current) find(ctx Context) (Sequence, error) {
	if ctx.Node == nil {
		return nil, nil
	}
	return Singleton(ctx.Node), nil
}

type step struct {
	curr Expr
	next Expr
}

func (s step) find(ctx Context) (Sequence, error) {
	is, err := s.curr.find(ctx)
	if err != nil {
		return nil, err
	}
	var list Sequence
	for i, n := range is {
		if n.Atomic() {
			return nil, fmt.Errorf("path step: %w: node expected", ErrType)
		}
		others, err := s.next.find(ctx.Sub(n.Node(), i+1, len(is)))
		if err != nil {
			return nil, err
		}
		list.Concat(others)
	}
	return list.Unique(), nil
}

const (
	childAxis          = "child"
	parentAxis         = "parent"
	selfAxis           = "self"
	attributeAxis      = "attribute"
	ancestorAxis       = "ancestor"
	ancestorSelfAxis   = "ancestor-or-self"
	descendantAxis     = "descendant"
	descendantSelfAxis = "descendant-or-self"
	prevSiblingAxis    = "preceding-sibling"
	nextSiblingAxis    = "following-sibling"
	namespaceAxis      = "namespace"
)

func isAxis(name string) bool {
	switch name {
	case childAxis, parentAxis, selfAxis, attributeAxis:
	case ancestorAxis, ancestorSelfAxis, descendantAxis, descendantSelfAxis:
	case prevSiblingAxis, nextSiblingAxis, namespaceAxis:
	default:
		return false
	}
	return true
}

func isReverse(axis string) bool {
	switch axis {
	case parentAxis, ancestorAxis, ancestorSelfAxis, prevSiblingAxis:
		return true
	default:
		return false
	}
}

type axis struct {
	kind       string
	test       NodeTest
	predicates []Expr
}

func (a axis) principalType() xml.NodeType {
	switch a.kind {
	case attributeAxis:
		return xml.TypeAttribute
	case namespaceAxis:
		return xml.TypeNamespace
	default:
		return xml.TypeElement
	}
}

func (a axis) find(ctx Context) (Sequence, error) {
	if ctx.Node == nil {
		return nil, nil
	}
	var (
		principal = a.principalType()
		list      []xml.Node
	)
	for _, n := range Axis(a.kind, ctx.Node) {
		if a.test.Match(n, principal) {
			list = append(list, n)
		}
	}
	list, err := FilterNodes(ctx, list, a.predicates)
	if err != nil {
		return nil, err
	}
	seq := FromNodes(list)
	if isReverse(a.kind) {
		seq = seq.Unique()
	}
	return seq, nil
}

// Axis returns the nodes of the named axis from node, in axis order: reverse
// axes list the nearest node first.
func Axis(kind string, node xml.Node) []xml.Node {
	var list []xml.Node
	switch kind {
	case selfAxis:
		list = append(list, node)
	case childAxis:
		list = append(list, xml.ChildNodes(node)...)
	case attributeAxis:
		list = xml.Collect(xml.Attributes(node))
	case namespaceAxis:
		list = xml.Collect(xml.Namespaces(node))
	case parentAxis:
		if p := node.Parent(); p != nil {
			list = append(list, p)
		}
	case ancestorAxis, ancestorSelfAxis:
		if kind == ancestorSelfAxis {
			list = append(list, node)
		}
		for p := node.Parent(); p != nil; p = p.Parent() {
			list = append(list, p)
		}
	case descendantAxis, descendantSelfAxis:
		if kind == descendantSelfAxis {
			list = append(list, node)
		}
		list = append(list, xml.Collect(xml.Descendants(node))...)
	case prevSiblingAxis:
		if isChild(node) {
			siblings := xml.ChildNodes(node.Parent())
			for i := node.Position() - 1; i >= 0; i-- {
				list = append(list, siblings[i])
			}
		}
	case nextSiblingAxis:
		if isChild(node) {
			siblings := xml.ChildNodes(node.Parent())
			list = append(list, siblings[node.Position()+1:]...)
		}
	default:
	}
	return list
}

func isChild(node xml.Node) bool {
	if node.Parent() == nil {
		return false
	}
	switch node.Type() {
	case xml.TypeAttribute, xml.TypeNamespace:
		return false
	default:
		return true
	}
}

// NodeTest is the node test of a location step.
type NodeTest interface {
	Match(node xml.Node, principal xml.NodeType) bool
}

// NameTest matches nodes of the principal type with the given expanded name.
type NameTest struct {
	xml.QName
}

func (n NameTest) Match(node xml.Node, principal xml.NodeType) bool {
	if node.Type() != principal {
		return false
	}
	qn, ok := xml.NameOf(node)
	return ok && qn.Equal(n.QName)
}

// WildcardTest matches every node of the principal type, restricted to one
// namespace when Any is false.
type WildcardTest struct {
	Uri string
	Any bool
}

func (w WildcardTest) Match(node xml.Node, principal xml.NodeType) bool {
	if node.Type() != principal {
		return false
	}
	if w.Any {
		return true
	}
	qn, ok := xml.NameOf(node)
	return ok && qn.Uri == w.Uri
}

// KindTest matches nodes by type. Target restricts processing-instruction
// tests to one target.
type KindTest struct {
	Kind   xml.NodeType
	Target string
}

func (k KindTest) Match(node xml.Node, _ xml.NodeType) bool {
	if node.Type()&k.Kind == 0 {
		return false
	}
	if k.Kind == xml.TypeInstruction && k.Target != "" {
		return node.LocalName() == k.Target
	}
	return true
}

type filter struct {
	expr       Expr
	predicates []Expr
}

func (f filter) find(ctx Context) (Sequence, error) {
	is, err := f.expr.find(ctx)
	if err != nil {
		return nil, err
	}
	for _, pred := range f.predicates {
		var keep Sequence
		for i, item := range is {
			sub := ctx.Sub(item.Node(), i+1, len(is))
			if item.Atomic() {
				sub.Node = nil
			}
			ok, err := Test(pred, sub)
			if err != nil {
				return nil, err
			}
			if ok {
				keep.Append(item)
			}
		}
		is = keep
	}
	return is, nil
}

type identifier struct {
	ident string
}

func (i identifier) find(ctx Context) (Sequence, error) {
	seq, err := ctx.Resolve(i.ident)
	if err != nil {
		return nil, fmt.Errorf("$%s: %w", i.ident, ErrUndefined)
	}
	return seq, nil
}

type literal struct {
	value string
}

func (i literal) find(_ Context) (Sequence, error) {
	return Singleton(i.value), nil
}

type number struct {
	value float64
}

func (n number) find(_ Context) (Sequence, error) {
	return Singleton(n.value), nil
}

type reverse struct {
	expr Expr
}

func (r reverse) find(ctx Context) (Sequence, error) {
	seq, err := r.expr.find(ctx)
	if err != nil {
		return nil, err
	}
	return Singleton(-NumberValue(seq)), nil
}

type union struct {
	left  Expr
	right Expr
}

func (u union) find(ctx Context) (Sequence, error) {
	left, err := u.left.find(ctx)
	if err != nil {
		return nil, err
	}
	right, err := u.right.find(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range [...]Sequence{left, right} {
		for _, i := range s {
			if i.Atomic() {
				return nil, fmt.Errorf("union: %w: node expected", ErrType)
			}
		}
	}
	left.Concat(right)
	return left.Unique(), nil
}

type binary struct {
	left  Expr
	right Expr
	op    rune
}

func (b binary) find(ctx Context) (Sequence, error) {
	left, err := b.left.find(ctx)
	if err != nil {
		return nil, err
	}
	switch b.op {
	case opAnd:
		if !left.True() {
			return Singleton(false), nil
		}
	case opOr:
		if left.True() {
			return Singleton(true), nil
		}
	default:
	}
	right, err := b.right.find(ctx)
	if err != nil {
		return nil, err
	}
	switch b.op {
	case opAnd, opOr:
		return Singleton(right.True()), nil
	case opEq, opNe, opLt, opLe, opGt, opGe:
		return Singleton(compareSequence(left, right, b.op)), nil
	case opAdd, opSub, opMul, opDiv, opMod:
		return Singleton(apply(NumberValue(left), NumberValue(right), b.op)), nil
	default:
		return nil, fmt.Errorf("binary: %w: unsupported operator", ErrSyntax)
	}
}

func apply(left, right float64, op rune) float64 {
	switch op {
	case opAdd:
		return left + right
	case opSub:
		return left - right
	case opMul:
		return left * right
	case opDiv:
		return left / right
	case opMod:
		return math.Mod(left, right)
	default:
		return math.NaN()
	}
}

func compareSequence(left, right Sequence, op rune) bool {
	if isBool(left) || isBool(right) {
		return compareValues(left.True(), right.True(), op)
	}
	for _, x := range left {
		for _, y := range right {
			if compareValues(x.Value(), y.Value(), op) {
				return true
			}
		}
	}
	return false
}

func isBool(seq Sequence) bool {
	if !seq.Singleton() || !seq[0].Atomic() {
		return false
	}
	_, ok := seq[0].Value().(bool)
	return ok
}

func compareValues(left, right any, op rune) bool {
	if op == opEq || op == opNe {
		var eq bool
		_, lf := left.(float64)
		_, rf := right.(float64)
		switch {
		case isBoolValue(left) || isBoolValue(right):
			eq = toBool(left) == toBool(right)
		case lf || rf:
			eq = toNumber(left) == toNumber(right)
		default:
			eq = toString(left) == toString(right)
		}
		if op == opNe {
			return !eq
		}
		return eq
	}
	x, y := toNumber(left), toNumber(right)
	switch op {
	case opLt:
		return x < y
	case opLe:
		return x <= y
	case opGt:
		return x > y
	case opGe:
		return x >= y
	default:
		return false
	}
}

func isBoolValue(v any) bool {
	_, ok := v.(bool)
	return ok
}

func toBool(v any) bool {
	return createLiteral(v).True()
}

type call struct {
	ident string
	args  []Expr
}

func (c call) find(ctx Context) (Sequence, error) {
	fn, ok := builtins[c.ident]
	if !ok {
		return nil, fmt.Errorf("%s: %w function", c.ident, ErrUndefined)
	}
	return fn(ctx, c.args)
}
