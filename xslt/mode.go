package xslt

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
)

const defaultMode = "#default"

func modeName(name string) string {
	if name == "" {
		return defaultMode
	}
	return name
}

// Mode owns the templates declared for one mode name and the dispatch
// procedures compiled from them.
type Mode struct {
	Name      string
	Templates []*Template

	compiler *Compiler
	dispatch *Dispatch

	mu      sync.Mutex
	windows map[Window]*Dispatch
}

func newMode(name string, compiler *Compiler) *Mode {
	return &Mode{
		Name:     name,
		compiler: compiler,
		windows:  make(map[Window]*Dispatch),
	}
}

func (m *Mode) Append(t *Template) {
	m.Templates = append(m.Templates, t)
}

// Compile builds the unrestricted dispatch of m.
func (m *Mode) Compile() error {
	d, err := m.compiler.Emit(modeName(m.Name), m.Templates)
	if err != nil {
		return fmt.Errorf("mode %s: %w", modeName(m.Name), err)
	}
	m.dispatch = d
	return nil
}

// Dispatch returns the unrestricted dispatch of m, compiling it when needed.
func (m *Mode) Dispatch() (*Dispatch, error) {
	if m.dispatch == nil {
		if err := m.Compile(); err != nil {
			return nil, err
		}
	}
	return m.dispatch, nil
}

// Windowed returns the dispatch restricted to the templates whose precedence
// falls in w. Variants are compiled once per window from the templates of m
// and never alter the unrestricted dispatch.
func (m *Mode) Windowed(w Window) (*Dispatch, error) {
	base, err := m.Dispatch()
	if err != nil {
		return nil, err
	}
	if w.Unbounded() {
		return base, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.windows[w]; ok {
		return d, nil
	}
	d, err := m.compiler.EmitWindow(modeName(m.Name), m.Templates, w, base)
	if err != nil {
		return nil, fmt.Errorf("mode %s: window %s: %w", modeName(m.Name), w, err)
	}
	m.windows[w] = d
	return d, nil
}

// Windows returns the compiled variants of m ordered by window.
func (m *Mode) Windows() []*Dispatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*Dispatch
	for _, d := range m.windows {
		list = append(list, d)
	}
	slices.SortFunc(list, func(a, b *Dispatch) int {
		if c := cmp.Compare(a.Window.Min, b.Window.Min); c != 0 {
			return c
		}
		return cmp.Compare(a.Window.Max, b.Window.Max)
	})
	return list
}
