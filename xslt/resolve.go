package xslt

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/midbel/xsltc/xml"
)

// Rank orders the entries competing for a node: higher import precedence
// first, then higher priority, then later source position. Branches of the
// same union compare by their index so that the order stays total.
type Rank struct {
	Precedence int
	Priority   float64
	Position   int
	Branch     int
}

// Compare returns a positive number when r ranks above other, a negative one
// when it ranks below and zero when both are equal.
func (r Rank) Compare(other Rank) int {
	if c := cmp.Compare(r.Precedence, other.Precedence); c != 0 {
		return c
	}
	if c := cmp.Compare(r.Priority, other.Priority); c != 0 {
		return c
	}
	if c := cmp.Compare(r.Position, other.Position); c != 0 {
		return c
	}
	return cmp.Compare(other.Branch, r.Branch)
}

func (r Rank) Above(other Rank) bool {
	return r.Compare(other) > 0
}

func (r Rank) String() string {
	return fmt.Sprintf("(%d, %g, %d)", r.Precedence, r.Priority, r.Position)
}

// Entry is one branch of a template pattern, after union flattening.
type Entry struct {
	Pattern  Pattern
	Template *Template
	Rank

	union bool
	steps []stepContext
	home  string
}

func (e *Entry) String() string {
	return fmt.Sprintf("%s %s", e.Pattern, e.Rank)
}

// Unconditional reports whether the entry matches every node accepted by its
// kernel test.
func (e *Entry) Unconditional() bool {
	s, ok := e.Pattern.(*StepPattern)
	return ok && s.Unconditional()
}

const (
	priorityName      = 0.5
	priorityNamespace = -0.25
	priorityWildcard  = -0.5
	priorityNode      = -0.75
	priorityTarget    = 0
	priorityBump      = 0.5
)

// DefaultPriority computes the priority of a pattern without explicit
// priority. Unions get the priority of their highest branch; dispatch uses
// the priority of each branch.
func DefaultPriority(p Pattern) float64 {
	switch p := p.(type) {
	case *RootPattern:
		return priorityName
	case *IdKeyPattern:
		return priorityName
	case *StepPattern:
		prio := testPriority(p.Test)
		if len(p.Predicates) > 0 {
			prio += priorityBump
		}
		return prio
	case *PathPattern:
		if len(p.Steps) == 0 {
			return priorityName
		}
		return testPriority(p.Steps[len(p.Steps)-1].Test) + priorityBump
	case *AlternativePattern:
		return max(DefaultPriority(p.Left), DefaultPriority(p.Right))
	default:
		return priorityNode
	}
}

func testPriority(test NodeTest) float64 {
	switch t := test.(type) {
	case NameTest:
		return priorityName
	case NamespaceTest:
		return priorityNamespace
	case WildcardTest:
		return priorityWildcard
	case KindTest:
		switch {
		case t.Kind == xml.TypeNode || t.Kind == xml.TypeAttribute:
			return priorityNode
		case t.Target != "":
			return priorityTarget
		default:
			return priorityWildcard
		}
	default:
		return priorityNode
	}
}

// flattenAlternative splits a union into its branches, left to right.
func flattenAlternative(p Pattern) ([]Pattern, error) {
	switch p := p.(type) {
	case nil:
		return nil, fmt.Errorf("%w: missing pattern branch", ErrInternal)
	case *AlternativePattern:
		left, err := flattenAlternative(p.Left)
		if err != nil {
			return nil, err
		}
		right, err := flattenAlternative(p.Right)
		if err != nil {
			return nil, err
		}
		return slices.Concat(left, right), nil
	case *PathPattern:
		switch p.Anchor.(type) {
		case nil, *RootPattern, *IdKeyPattern:
		default:
			return nil, fmt.Errorf("%w: %s: union can not anchor a path", ErrInternal, p)
		}
		if len(p.Steps) == 0 {
			return nil, fmt.Errorf("%w: %s: path without steps", ErrInternal, p)
		}
		return []Pattern{p}, nil
	default:
		return []Pattern{p}, nil
	}
}

// Resolve flattens the patterns of the enabled templates and returns their
// entries sorted from the highest to the lowest rank. The input is left
// untouched and the result does not depend on its order.
func Resolve(templates []*Template) ([]*Entry, error) {
	var (
		list []*Entry
		errs []error
	)
	for _, t := range templates {
		if t.disabled || t.Pattern == nil {
			continue
		}
		branches, err := flattenAlternative(t.Pattern)
		if err != nil {
			errs = append(errs, errorWithContext(t.Ident(), err))
			continue
		}
		for i, b := range branches {
			e := Entry{
				Pattern:  b,
				Template: t,
				union:    len(branches) > 1,
			}
			e.Rank = Rank{
				Precedence: t.Precedence,
				Priority:   t.Priority,
				Position:   t.Position,
				Branch:     i,
			}
			if !t.HasPriority {
				e.Priority = DefaultPriority(b)
			}
			list = append(list, &e)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	slices.SortFunc(list, compareEntries)
	return list, nil
}

func compareEntries(a, b *Entry) int {
	return b.Compare(a.Rank)
}
