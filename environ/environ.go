package environ

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

var ErrDefined = errors.New("undefined identifier")

// Environ resolves identifiers to values of type T, falling back to an
// enclosing environ when an identifier is not defined locally.
type Environ[T any] interface {
	Resolve(string) (T, error)
	Define(string, T)
	Names() []string
	Len() int
}

type Env[T any] struct {
	values map[string]T
	parent Environ[T]
}

func Empty[T any]() Environ[T] {
	return Enclosed[T](nil)
}

func Enclosed[T any](parent Environ[T]) Environ[T] {
	e := Env[T]{
		values: make(map[string]T),
		parent: parent,
	}
	return &e
}

// From returns a new environ holding a copy of values.
func From[T any](values map[string]T) Environ[T] {
	e := Env[T]{
		values: maps.Clone(values),
		parent: nil,
	}
	if e.values == nil {
		e.values = make(map[string]T)
	}
	return &e
}

func (e *Env[T]) Len() int {
	return len(e.values)
}

// Names returns the sorted names defined locally.
func (e *Env[T]) Names() []string {
	names := slices.Collect(maps.Keys(e.values))
	slices.Sort(names)
	return names
}

// All returns the sorted names visible from e, parents included.
func (e *Env[T]) All() []string {
	names := e.Names()
	if e.parent != nil {
		var others []string
		if a, ok := e.parent.(interface{ All() []string }); ok {
			others = a.All()
		} else {
			others = e.parent.Names()
		}
		names = append(names, others...)
		slices.Sort(names)
		names = slices.Compact(names)
	}
	return names
}

func (e *Env[T]) Define(ident string, value T) {
	e.values[ident] = value
}

func (e *Env[T]) Resolve(ident string) (T, error) {
	value, ok := e.values[ident]
	if ok {
		return value, nil
	}
	if e.parent != nil {
		return e.parent.Resolve(ident)
	}
	var t T
	return t, fmt.Errorf("%s: %w", ident, ErrDefined)
}

func (e *Env[T]) Unwrap() Environ[T] {
	if e.parent == nil {
		return e
	}
	return e.parent
}

func (e *Env[T]) Merge(other Environ[T]) {
	x, ok := other.(*Env[T])
	if !ok {
		return
	}
	maps.Copy(e.values, x.values)
}
