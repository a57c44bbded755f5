package xml

// Iterator walks a sequence of nodes. Next returns nil once the sequence is
// exhausted.
type Iterator interface {
	Next() Node
}

type sliceIterator struct {
	nodes []Node
	index int
}

func FromSlice(nodes []Node) Iterator {
	return &sliceIterator{
		nodes: nodes,
	}
}

func Single(n Node) Iterator {
	if n == nil {
		return Empty()
	}
	return FromSlice([]Node{n})
}

func Empty() Iterator {
	return FromSlice(nil)
}

func (i *sliceIterator) Next() Node {
	if i.index >= len(i.nodes) {
		return nil
	}
	n := i.nodes[i.index]
	i.index++
	return n
}

type filterIterator struct {
	Iterator
	accept func(Node) bool
}

// Filter returns an iterator over the nodes of it accepted by fn.
func Filter(it Iterator, fn func(Node) bool) Iterator {
	return filterIterator{
		Iterator: it,
		accept:   fn,
	}
}

// Typed returns an iterator over the nodes of it whose type is in kind.
func Typed(it Iterator, kind NodeType) Iterator {
	return Filter(it, func(n Node) bool {
		return n.Type()&kind != 0
	})
}

// Named returns an iterator over the nodes of it with the given expanded
// name. An empty local name matches every node of the namespace.
func Named(it Iterator, uri, local string) Iterator {
	return Filter(it, func(n Node) bool {
		qn, ok := NameOf(n)
		if !ok || qn.Uri != uri {
			return false
		}
		return local == "" || qn.Name == local
	})
}

func (i filterIterator) Next() Node {
	for {
		n := i.Iterator.Next()
		if n == nil || i.accept(n) {
			return n
		}
	}
}

// Collect drains it into a slice.
func Collect(it Iterator) []Node {
	var list []Node
	for n := it.Next(); n != nil; n = it.Next() {
		list = append(list, n)
	}
	return list
}

func ChildNodes(n Node) []Node {
	switch n := n.(type) {
	case *Document:
		return n.Nodes
	case *Element:
		return n.Nodes
	default:
		return nil
	}
}

func Children(n Node) Iterator {
	return FromSlice(ChildNodes(n))
}

func Attributes(n Node) Iterator {
	el, ok := n.(*Element)
	if !ok {
		return Empty()
	}
	list := make([]Node, 0, len(el.Attrs))
	for _, a := range el.Attrs {
		list = append(list, a)
	}
	return FromSlice(list)
}

func Namespaces(n Node) Iterator {
	el, ok := n.(*Element)
	if !ok {
		return Empty()
	}
	list := make([]Node, 0, len(el.Namespaces))
	for _, ns := range el.Namespaces {
		list = append(list, ns)
	}
	return FromSlice(list)
}

// Descendants returns the descendants of n in document order, n excluded.
func Descendants(n Node) Iterator {
	var list []Node
	for _, c := range ChildNodes(n) {
		Walk(c, func(d Node) bool {
			list = append(list, d)
			return true
		})
	}
	return FromSlice(list)
}

// NameOf returns the expanded name of element, attribute and processing
// instruction nodes.
func NameOf(n Node) (QName, bool) {
	switch n := n.(type) {
	case *Element:
		return n.QName, true
	case *Attribute:
		return n.QName, true
	case *Instruction:
		return n.QName, true
	default:
		return QName{}, false
	}
}

// Walk visits n and its descendants (attributes excluded) in document order.
// Returning false from fn skips the children of the visited node.
func Walk(n Node, fn func(Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range ChildNodes(n) {
		Walk(c, fn)
	}
}

// Renumber assigns document order to every node of the tree rooted at n,
// namespace and attribute nodes of an element coming right after it.
func Renumber(n Node) {
	var count int
	var visit func(Node)
	visit = func(n Node) {
		count++
		n.setOrder(count)
		if el, ok := n.(*Element); ok {
			for _, ns := range el.Namespaces {
				count++
				ns.setOrder(count)
			}
			for _, a := range el.Attrs {
				count++
				a.setOrder(count)
			}
		}
		for _, c := range ChildNodes(n) {
			visit(c)
		}
	}
	visit(n)
}
