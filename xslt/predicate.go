package xslt

import (
	"fmt"
	"strings"

	"github.com/midbel/xsltc/xml"
	"github.com/midbel/xsltc/xpath"
)

// ContextKind tells how much of the focus a step needs to evaluate its
// predicates.
type ContextKind int8

const (
	// NoContext steps have no positional predicate: they are evaluated on the
	// candidate node alone.
	NoContext ContextKind = iota
	// SimpleContext steps have a single positional predicate: position and
	// size are counted over the siblings accepted by the step.
	SimpleContext
	// GeneralContext steps filter the siblings accepted by the step with all
	// their predicates and test the membership of the candidate.
	GeneralContext
)

func (k ContextKind) String() string {
	switch k {
	case SimpleContext:
		return "SIMPLE"
	case GeneralContext:
		return "GENERAL"
	default:
		return "NO_CONTEXT"
	}
}

type stepContext struct {
	kind ContextKind
	// index of the positional predicate of a SimpleContext step
	positional int
	// filtered siblings can be shared by all the candidates of a parent
	shared bool
}

// classifyContexts decides the context kind of each step of e.
func classifyContexts(e *Entry, optimize bool) {
	steps := patternSteps(e.Pattern)
	if len(steps) == 0 {
		return
	}
	optimize = optimize && !e.union
	for _, s := range steps {
		if s.Rel == RelAncestor {
			optimize = false
		}
		for _, p := range s.Predicates {
			if xpath.UsesVariables(p) {
				optimize = false
			}
		}
	}
	e.steps = make([]stepContext, len(steps))
	for i, s := range steps {
		e.steps[i] = stepContextOf(s, optimize)
	}
}

func stepContextOf(s *StepPattern, optimize bool) stepContext {
	var (
		sc   stepContext
		list []int
	)
	sc.shared = true
	for i, p := range s.Predicates {
		if xpath.IsPositional(p) {
			list = append(list, i)
		}
		if xpath.Calls(p, "current") {
			sc.shared = false
		}
	}
	switch {
	case len(list) == 0:
		sc.kind = NoContext
	case len(list) == 1 && optimize:
		sc.kind = SimpleContext
		sc.positional = list[0]
	default:
		sc.kind = GeneralContext
	}
	return sc
}

func patternSteps(p Pattern) []*StepPattern {
	switch p := p.(type) {
	case *StepPattern:
		return []*StepPattern{p}
	case *PathPattern:
		return p.Steps
	default:
		return nil
	}
}

// Contexts describes the context kind of every step of the entry, left to
// right.
func (e *Entry) Contexts() []ContextKind {
	var list []ContextKind
	for i, s := range patternSteps(e.Pattern) {
		list = append(list, e.context(i, s).kind)
	}
	return list
}

func (e *Entry) context(i int, s *StepPattern) stepContext {
	if i < len(e.steps) {
		return e.steps[i]
	}
	return stepContextOf(s, false)
}

// Match reports whether node matches the pattern of e. The focus of ctx is
// left untouched.
func (e *Entry) Match(ctx *Context, node xml.Node) (bool, error) {
	switch p := e.Pattern.(type) {
	case *RootPattern:
		return node.Type() == xml.TypeDocument, nil
	case *IdKeyPattern:
		return matchIdKey(ctx, p, node)
	case *StepPattern:
		return e.matchStep(ctx, 0, p, node)
	case *PathPattern:
		return e.matchPath(ctx, p, len(p.Steps)-1, node)
	default:
		return false, fmt.Errorf("%w: %s: pattern can not be matched", ErrInternal, e.Pattern)
	}
}

func (e *Entry) matchPath(ctx *Context, p *PathPattern, i int, node xml.Node) (bool, error) {
	s := p.Steps[i]
	ok, err := e.matchStep(ctx, i, s, node)
	if !ok || err != nil {
		return ok, err
	}
	for parent := node.Parent(); parent != nil; parent = parent.Parent() {
		if i == 0 {
			ok, err = matchAnchor(ctx, p.Anchor, parent)
		} else {
			ok, err = e.matchPath(ctx, p, i-1, parent)
		}
		if ok || err != nil {
			return ok, err
		}
		if s.Rel == RelParent {
			break
		}
	}
	return i == 0 && p.Anchor == nil, nil
}

func matchAnchor(ctx *Context, anchor Pattern, node xml.Node) (bool, error) {
	switch a := anchor.(type) {
	case nil:
		return true, nil
	case *RootPattern:
		return node.Type() == xml.TypeDocument, nil
	case *IdKeyPattern:
		return matchIdKey(ctx, a, node)
	default:
		return false, fmt.Errorf("%w: %s: invalid path anchor", ErrInternal, anchor)
	}
}

func matchIdKey(ctx *Context, p *IdKeyPattern, node xml.Node) (bool, error) {
	var (
		list []xml.Node
		err  error
	)
	if p.Func == funcKey {
		list, err = ctx.keys().Lookup(p.Key, p.Value, node)
		if err != nil {
			return false, err
		}
	} else {
		doc, ok := xml.Root(node).(*xml.Document)
		if !ok {
			return false, nil
		}
		for _, id := range strings.Fields(p.Value) {
			if el := doc.GetElementById(id); el != nil {
				list = append(list, el)
			}
		}
	}
	for _, n := range list {
		if n == node {
			return true, nil
		}
	}
	return false, nil
}

func (e *Entry) matchStep(ctx *Context, i int, s *StepPattern, node xml.Node) (bool, error) {
	if !s.Test.Match(node, s.Axis) {
		return false, nil
	}
	if len(s.Predicates) == 0 {
		return true, nil
	}
	sc := e.context(i, s)
	switch sc.kind {
	case NoContext:
		return matchDirect(ctx, s.Predicates, node)
	case SimpleContext:
		return matchSimple(ctx, s, sc.positional, node)
	default:
		return matchGeneral(ctx, s, sc.shared, node)
	}
}

func matchDirect(ctx *Context, predicates []xpath.Expr, node xml.Node) (bool, error) {
	defer ctx.restore(ctx.save())
	ctx.Node = node
	return testAll(ctx.eval(node, 1, 1), predicates)
}

func matchSimple(ctx *Context, s *StepPattern, positional int, node xml.Node) (bool, error) {
	defer ctx.restore(ctx.save())
	ctx.Node = node
	ctx.Iter = siblings(node, s)

	var (
		before = s.Predicates[:positional]
		pos    int
		size   int
	)
	for n := ctx.Iter.Next(); n != nil; n = ctx.Iter.Next() {
		ok, err := testAll(ctx.eval(n, 1, 1), before)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		size++
		if n == node {
			pos = size
		}
	}
	if pos == 0 {
		return false, nil
	}
	ok, err := xpath.Test(s.Predicates[positional], ctx.eval(node, pos, size))
	if !ok || err != nil {
		return ok, err
	}
	return testAll(ctx.eval(node, 1, 1), s.Predicates[positional+1:])
}

func matchGeneral(ctx *Context, s *StepPattern, shared bool, node xml.Node) (bool, error) {
	defer ctx.restore(ctx.save())
	ctx.Node = node

	parent := node.Parent()
	if shared && parent != nil {
		slot := ctx.arena().slot(s)
		if set, ok := slot.lookup(parent); ok {
			_, found := set[node]
			return found, nil
		}
		list, err := filterSiblings(ctx, s, node)
		if err != nil {
			return false, err
		}
		_, found := slot.store(parent, list)[node]
		return found, nil
	}
	list, err := filterSiblings(ctx, s, node)
	if err != nil {
		return false, err
	}
	for _, n := range list {
		if n == node {
			return true, nil
		}
	}
	return false, nil
}

func filterSiblings(ctx *Context, s *StepPattern, node xml.Node) ([]xml.Node, error) {
	ctx.Iter = siblings(node, s)
	list := xml.Collect(ctx.Iter)
	return xpath.FilterNodes(ctx.eval(node, 1, 1), list, s.Predicates)
}

// siblings iterates over the nodes of the parent of node reachable by the
// axis of s and accepted by its test. A node without parent is its own
// single sibling.
func siblings(node xml.Node, s *StepPattern) xml.Iterator {
	parent := node.Parent()
	if parent == nil {
		return xml.Single(node)
	}
	var it xml.Iterator
	if s.Axis == AxisAttribute {
		it = xml.Attributes(parent)
	} else {
		it = xml.Children(parent)
	}
	return xml.Filter(it, func(n xml.Node) bool {
		return s.Test.Match(n, s.Axis)
	})
}

func testAll(ctx xpath.Context, predicates []xpath.Expr) (bool, error) {
	for _, p := range predicates {
		ok, err := xpath.Test(p, ctx)
		if !ok || err != nil {
			return ok, err
		}
	}
	return true, nil
}

// Arena holds the sibling lists filtered by GENERAL steps. A slot is created
// the first time a step needs it and kept until Reset.
type Arena struct {
	slots map[*StepPattern]*searchSlot
}

func NewArena() *Arena {
	return &Arena{
		slots: make(map[*StepPattern]*searchSlot),
	}
}

// Reset drops every slot. It is called at the start of each traversal.
func (a *Arena) Reset() {
	clear(a.slots)
}

func (a *Arena) Len() int {
	return len(a.slots)
}

func (a *Arena) slot(s *StepPattern) *searchSlot {
	if a.slots == nil {
		a.slots = make(map[*StepPattern]*searchSlot)
	}
	slot, ok := a.slots[s]
	if !ok {
		slot = &searchSlot{
			parents: make(map[xml.Node]map[xml.Node]struct{}),
		}
		a.slots[s] = slot
	}
	return slot
}

type searchSlot struct {
	parents map[xml.Node]map[xml.Node]struct{}
}

func (s *searchSlot) lookup(parent xml.Node) (map[xml.Node]struct{}, bool) {
	set, ok := s.parents[parent]
	return set, ok
}

func (s *searchSlot) store(parent xml.Node, list []xml.Node) map[xml.Node]struct{} {
	set := make(map[xml.Node]struct{}, len(list))
	for _, n := range list {
		set[n] = struct{}{}
	}
	s.parents[parent] = set
	return set
}
