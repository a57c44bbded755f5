package xslt

import (
	"errors"
	"math"
	"slices"

	"github.com/midbel/xsltc/xml"
)

var errShadowed = errors.New("template rule shadowed by a higher ranked rule")

// TestSequence is the ordered list of entries tried for one dispatch branch.
// The first matching entry wins.
type TestSequence struct {
	Label   string
	Entries []*Entry
}

func (s *TestSequence) Empty() bool {
	return s == nil || len(s.Entries) == 0
}

func (s *TestSequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}

// Best returns the rank of the first entry. An empty sequence ranks below
// everything.
func (s *TestSequence) Best() Rank {
	if s.Empty() {
		return lowestRank()
	}
	return s.Entries[0].Rank
}

// Select returns the first entry of the sequence matching node.
func (s *TestSequence) Select(ctx *Context, node xml.Node) (*Entry, error) {
	return s.selectAbove(ctx, node, nil)
}

// selectAbove is Select restricted to the entries ranked above limit when
// limit is not nil.
func (s *TestSequence) selectAbove(ctx *Context, node xml.Node, limit *Entry) (*Entry, error) {
	if s == nil {
		return nil, nil
	}
	for _, e := range s.Entries {
		if limit != nil && !e.Above(limit.Rank) {
			break
		}
		ok, err := e.Match(ctx, node)
		if err != nil {
			return nil, err
		}
		if ok {
			return e, nil
		}
	}
	return nil, nil
}

func lowestRank() Rank {
	return Rank{
		Precedence: math.MinInt,
		Priority:   math.Inf(-1),
		Position:   math.MinInt,
	}
}

// sequenceBuilder merges buckets into test sequences and drops the entries
// that can never win. It counts in how many sequences each entry survives so
// that an entry never surviving anywhere is reported once.
type sequenceBuilder struct {
	seen  map[*Entry]int
	alive map[*Entry]int
}

func newSequenceBuilder() *sequenceBuilder {
	return &sequenceBuilder{
		seen:  make(map[*Entry]int),
		alive: make(map[*Entry]int),
	}
}

func (b *sequenceBuilder) build(label string, lists ...[]*Entry) *TestSequence {
	all := merge(lists...)
	for _, e := range all {
		b.seen[e]++
	}
	all = reduce(all)
	for _, e := range all {
		b.alive[e]++
	}
	return &TestSequence{
		Label:   label,
		Entries: all,
	}
}

// shadowed returns the entries dropped from every sequence they were merged
// into, in rank order.
func (b *sequenceBuilder) shadowed() []*Entry {
	var list []*Entry
	for e := range b.seen {
		if b.alive[e] == 0 {
			list = append(list, e)
		}
	}
	slices.SortFunc(list, compareEntries)
	return list
}

// merge interleaves rank ordered lists into one rank ordered list.
func merge(lists ...[]*Entry) []*Entry {
	all := slices.Concat(lists...)
	slices.SortStableFunc(all, compareEntries)
	return slices.Compact(all)
}

// reduce drops every entry preceded by an unconditional entry whose test
// accepts all the nodes accepted by its kernel.
func reduce(list []*Entry) []*Entry {
	var keep []*Entry
	for _, e := range list {
		if !dominated(keep, e) {
			keep = append(keep, e)
		}
	}
	return keep
}

func dominated(list []*Entry, e *Entry) bool {
	kernel := kernelStep(e.Pattern)
	if kernel == nil {
		return false
	}
	for _, k := range list {
		if !k.Unconditional() {
			continue
		}
		if subsumes(kernelStep(k.Pattern), kernel) {
			return true
		}
	}
	return false
}
