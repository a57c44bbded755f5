package xpath

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/midbel/xsltc/xml"
)

type Item interface {
	Node() xml.Node
	Value() any
	True() bool
	Atomic() bool
}

type Sequence []Item

func NewSequence() Sequence {
	var seq Sequence
	return seq
}

// Singleton wraps value into a sequence of one item. Nodes become node items,
// any other value is stored as a literal.
func Singleton(value any) Sequence {
	var item Item
	switch value := value.(type) {
	case xml.Node:
		item = createNode(value)
	case Item:
		item = value
	default:
		item = createLiteral(value)
	}
	return Sequence{item}
}

// FromNodes builds a sequence of node items.
func FromNodes(nodes []xml.Node) Sequence {
	seq := make(Sequence, 0, len(nodes))
	for _, n := range nodes {
		seq.Append(createNode(n))
	}
	return seq
}

func (s *Sequence) First() Item {
	if s.Empty() {
		return nil
	}
	return (*s)[0]
}

func (s *Sequence) Len() int {
	return len(*s)
}

func (s *Sequence) Append(item Item) {
	*s = append(*s, item)
}

func (s *Sequence) Concat(other Sequence) {
	*s = slices.Concat(*s, other)
}

func (s *Sequence) True() bool {
	return EffectiveBooleanValue(*s)
}

func (s *Sequence) Empty() bool {
	return len(*s) == 0
}

func (s *Sequence) Singleton() bool {
	return len(*s) == 1
}

// Nodes returns the nodes of the sequence, atomic items excluded.
func (s *Sequence) Nodes() []xml.Node {
	var list []xml.Node
	for _, i := range *s {
		if i.Atomic() {
			continue
		}
		list = append(list, i.Node())
	}
	return list
}

// Unique removes duplicate nodes and sorts the remaining ones in document
// order. Atomic items are kept after the nodes in their original order.
func (s *Sequence) Unique() Sequence {
	var (
		nodes []xml.Node
		atoms Sequence
		seen  = make(map[xml.Node]struct{})
	)
	for _, i := range *s {
		if i.Atomic() {
			atoms.Append(i)
			continue
		}
		n := i.Node()
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		nodes = append(nodes, n)
	}
	slices.SortStableFunc(nodes, func(a, b xml.Node) int {
		if xml.Before(a, b) {
			return -1
		}
		if xml.Before(b, a) {
			return 1
		}
		return 0
	})
	seq := FromNodes(nodes)
	seq.Concat(atoms)
	return seq
}

func (s *Sequence) Strings() []string {
	var list []string
	for _, i := range *s {
		list = append(list, toString(i.Value()))
	}
	return list
}

func EffectiveBooleanValue(seq Sequence) bool {
	if seq.Empty() {
		return false
	}
	if !seq[0].Atomic() {
		return true
	}
	return seq[0].True()
}

type literalItem struct {
	value any
}

func NewLiteralItem(value any) Item {
	return createLiteral(value)
}

func createLiteral(value any) Item {
	switch v := value.(type) {
	case int:
		value = float64(v)
	case int64:
		value = float64(v)
	default:
	}
	return literalItem{
		value: value,
	}
}

func (i literalItem) Atomic() bool {
	return true
}

func (i literalItem) True() bool {
	switch x := i.value.(type) {
	case string:
		return x != ""
	case float64:
		return x != 0 && !math.IsNaN(x)
	case bool:
		return x
	default:
		return false
	}
}

func (i literalItem) Node() xml.Node {
	return nil
}

func (i literalItem) Value() any {
	return i.value
}

type nodeItem struct {
	node xml.Node
}

func NewNodeItem(node xml.Node) Item {
	return createNode(node)
}

func createNode(node xml.Node) Item {
	return nodeItem{
		node: node,
	}
}

func (i nodeItem) Atomic() bool {
	return false
}

func (i nodeItem) Node() xml.Node {
	return i.node
}

func (i nodeItem) True() bool {
	return true
}

func (i nodeItem) Value() any {
	return i.node.Value()
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return formatNumber(v)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return ""
	}
}

func toNumber(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		return strconv.FormatInt(int64(f), 10)
	default:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}

// StringValue returns the string value of the first item of seq.
func StringValue(seq Sequence) string {
	if seq.Empty() {
		return ""
	}
	return toString(seq[0].Value())
}

// NumberValue returns the numeric value of the first item of seq, NaN when
// the sequence is empty.
func NumberValue(seq Sequence) float64 {
	if seq.Empty() {
		return math.NaN()
	}
	return toNumber(seq[0].Value())
}
