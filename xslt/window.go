package xslt

import (
	"fmt"
	"math"
)

// Window is a half open range of import precedences [Min, Max).
type Window struct {
	Min int
	Max int
}

// Unbounded returns the window containing every precedence.
func Unbounded() Window {
	return Window{
		Min: math.MinInt,
		Max: math.MaxInt,
	}
}

func (w Window) Contains(prec int) bool {
	return prec >= w.Min && prec < w.Max
}

func (w Window) Empty() bool {
	return w.Min >= w.Max
}

func (w Window) Unbounded() bool {
	return w == Unbounded()
}

// Suffix is appended to the mode name to name the dispatch variant compiled
// for w.
func (w Window) Suffix() string {
	if w.Unbounded() {
		return ""
	}
	return fmt.Sprintf("$%d_%d", w.Min, w.Max)
}

func (w Window) String() string {
	return fmt.Sprintf("[%d, %d)", w.Min, w.Max)
}

// filterWindow keeps the templates of list whose precedence falls in w.
func filterWindow(list []*Template, w Window) []*Template {
	var res []*Template
	for _, t := range list {
		if w.Contains(t.Precedence) {
			res = append(res, t)
		}
	}
	return res
}
