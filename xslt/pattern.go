package xslt

import (
	"fmt"
	"strings"

	"github.com/midbel/xsltc/xml"
	"github.com/midbel/xsltc/xpath"
)

// Pattern is the closed set of match pattern shapes: *StepPattern,
// *PathPattern, *AlternativePattern, *IdKeyPattern and *RootPattern.
type Pattern interface {
	fmt.Stringer
	pattern()
}

type Axis int8

const (
	AxisChild Axis = iota
	AxisAttribute
)

func (a Axis) String() string {
	if a == AxisAttribute {
		return "attribute"
	}
	return "child"
}

func (a Axis) principal() xml.NodeType {
	if a == AxisAttribute {
		return xml.TypeAttribute
	}
	return xml.TypeElement
}

// Relation links a step to the step (or anchor) on its left.
type Relation int8

const (
	RelParent Relation = iota
	RelAncestor
)

func (r Relation) String() string {
	if r == RelAncestor {
		return "//"
	}
	return "/"
}

type StepPattern struct {
	Axis       Axis
	Test       NodeTest
	Predicates []xpath.Expr
	Rel        Relation

	sources []string
}

func (*StepPattern) pattern() {}

func (s *StepPattern) String() string {
	var str strings.Builder
	if s.Axis == AxisAttribute {
		if _, ok := s.Test.(KindTest); ok {
			str.WriteString("attribute::")
		} else {
			str.WriteString("@")
		}
	}
	str.WriteString(s.Test.String())
	for _, p := range s.sources {
		str.WriteString("[")
		str.WriteString(p)
		str.WriteString("]")
	}
	return str.String()
}

// Unconditional reports whether the step matches every node accepted by its
// node test.
func (s *StepPattern) Unconditional() bool {
	return len(s.Predicates) == 0
}

// PathPattern is a chain of steps, optionally anchored at the root or at an
// id/key pattern.
type PathPattern struct {
	Anchor Pattern
	Steps  []*StepPattern
}

func (*PathPattern) pattern() {}

func (p *PathPattern) String() string {
	var str strings.Builder
	if p.Anchor != nil {
		if _, ok := p.Anchor.(*RootPattern); !ok {
			str.WriteString(p.Anchor.String())
		}
	}
	for i, s := range p.Steps {
		if i > 0 || p.Anchor != nil {
			str.WriteString(s.Rel.String())
		}
		str.WriteString(s.String())
	}
	return str.String()
}

type AlternativePattern struct {
	Left  Pattern
	Right Pattern
}

func (*AlternativePattern) pattern() {}

func (a *AlternativePattern) String() string {
	return fmt.Sprintf("%s | %s", a.Left, a.Right)
}

const (
	funcId  = "id"
	funcKey = "key"
)

type IdKeyPattern struct {
	Func  string
	Key   string
	Value string
}

func (*IdKeyPattern) pattern() {}

func (i *IdKeyPattern) String() string {
	if i.Func == funcKey {
		return fmt.Sprintf("key('%s', '%s')", i.Key, i.Value)
	}
	return fmt.Sprintf("id('%s')", i.Value)
}

type RootPattern struct{}

func (*RootPattern) pattern() {}

func (*RootPattern) String() string {
	return "/"
}

// Kernel returns the node test of the terminal step of p, nil for root and
// id/key patterns. Unions have no kernel.
func Kernel(p Pattern) NodeTest {
	if s := kernelStep(p); s != nil {
		return s.Test
	}
	return nil
}

func kernelStep(p Pattern) *StepPattern {
	switch p := p.(type) {
	case *StepPattern:
		return p
	case *PathPattern:
		if len(p.Steps) == 0 {
			return nil
		}
		return p.Steps[len(p.Steps)-1]
	default:
		return nil
	}
}

// NodeTest is the closed set of node tests: NameTest, NamespaceTest,
// WildcardTest and KindTest.
type NodeTest interface {
	fmt.Stringer
	Match(xml.Node, Axis) bool
	nodeTest()
}

type NameTest struct {
	xml.QName
}

func (NameTest) nodeTest() {}

func (n NameTest) Match(node xml.Node, axis Axis) bool {
	if node.Type() != axis.principal() {
		return false
	}
	qn, ok := xml.NameOf(node)
	return ok && qn.Equal(n.QName)
}

func (n NameTest) String() string {
	return n.QualifiedName()
}

// NamespaceTest is the ns:* test.
type NamespaceTest struct {
	Uri    string
	Prefix string
}

func (NamespaceTest) nodeTest() {}

func (n NamespaceTest) Match(node xml.Node, axis Axis) bool {
	if node.Type() != axis.principal() {
		return false
	}
	qn, ok := xml.NameOf(node)
	return ok && qn.Uri == n.Uri
}

func (n NamespaceTest) String() string {
	return n.Prefix + ":*"
}

type WildcardTest struct{}

func (WildcardTest) nodeTest() {}

func (WildcardTest) Match(node xml.Node, axis Axis) bool {
	return node.Type() == axis.principal()
}

func (WildcardTest) String() string {
	return "*"
}

type KindTest struct {
	Kind   xml.NodeType
	Target string
}

func (KindTest) nodeTest() {}

func (k KindTest) Match(node xml.Node, _ Axis) bool {
	if node.Type()&k.Kind == 0 {
		return false
	}
	if k.Target != "" {
		return node.LocalName() == k.Target
	}
	return true
}

func (k KindTest) String() string {
	switch k.Kind {
	case xml.TypeText:
		return "text()"
	case xml.TypeComment:
		return "comment()"
	case xml.TypeInstruction:
		if k.Target != "" {
			return fmt.Sprintf("processing-instruction('%s')", k.Target)
		}
		return "processing-instruction()"
	case xml.TypeNode, xml.TypeAttribute:
		return "node()"
	default:
		return k.Kind.String() + "()"
	}
}

// subsumes reports whether every node accepted by the test of b is also
// accepted by the test of a.
func subsumes(a, b *StepPattern) bool {
	if a.Axis != b.Axis {
		return false
	}
	switch x := a.Test.(type) {
	case KindTest:
		y, ok := b.Test.(KindTest)
		if ok {
			return y.Kind&^x.Kind == 0 && (x.Target == "" || x.Target == y.Target)
		}
		return x.Kind&a.Axis.principal() != 0
	case WildcardTest:
		switch b.Test.(type) {
		case WildcardTest, NamespaceTest, NameTest:
			return true
		default:
			return false
		}
	case NamespaceTest:
		switch y := b.Test.(type) {
		case NamespaceTest:
			return y.Uri == x.Uri
		case NameTest:
			return y.Uri == x.Uri
		default:
			return false
		}
	case NameTest:
		y, ok := b.Test.(NameTest)
		return ok && y.Equal(x.QName)
	default:
		return false
	}
}
