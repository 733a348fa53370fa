// Package address builds templates from dotted paths.
//
// An Address names a position inside a base object, such as
// loan.applications[{appIndex:0}].borrower.name, and carries the template
// that reaches that position from the base. Using addresses as symbols in
// a template lets a match be read back into the shape of the base object:
//
//	space := address.NewSpace()
//	rec := space.Root("record")
//	template := regular.List(regular.Map(
//		regular.FieldVal("name", rec.Field("name").Sym()),
//	))
//	out, err := space.ReverseFormat(template, regular.Match(template, data))
//	// {record:{name:john}}
package address

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Neumenon/regular/regular"
)

var (
	// ErrNestedList is carried by an address that indexes a list address.
	ErrNestedList = errors.New("address: nested list indexing is not supported")

	// ErrBadFilter is carried by an address indexed with a list.
	ErrBadFilter = errors.New("address: list filters must be maps or scalars")

	// ErrListAddress is returned when a list address is resolved to a value.
	ErrListAddress = errors.New("address: a list address has no single value")
)

// Space records the addresses created from its roots, so that symbols
// found in a template can be traced back to their paths.
type Space struct {
	mu    sync.RWMutex
	addrs map[regular.Symbol]*Address
}

// NewSpace returns an empty address space.
func NewSpace() *Space {
	return &Space{addrs: make(map[regular.Symbol]*Address)}
}

// Root returns the address of a base object.
func (s *Space) Root(base string) *Address {
	return s.register(&Address{
		space: s,
		base:  base,
		name:  base,
		path:  regular.Sym(base),
	})
}

// Lookup returns the address registered under sym.
func (s *Space) Lookup(sym regular.Symbol) (*Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.addrs[sym]
	return a, ok
}

func (s *Space) register(a *Address) *Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.addrs[regular.Symbol(a.name)]; ok && prev.err == nil {
		return prev
	}
	s.addrs[regular.Symbol(a.name)] = a
	return a
}

// Address is a named position inside a base object. An address made by
// indexing with a map filter is a list address: it names the list elements
// that match the filter, and its fields add to a copy of the filter.
type Address struct {
	space  *Space
	base   string
	name   string
	path   *regular.Value
	filter *regular.Value
	err    error
}

// Field returns the address of a map field below a.
func (a *Address) Field(name string) *Address {
	if a.err != nil {
		return a
	}
	child := a.name + "." + name

	var sub *regular.Value
	if a.filter != nil {
		sub = regular.List(a.filter.With(name, regular.Sym(child)))
	} else {
		sub = regular.Map(regular.FieldVal(name, regular.Sym(child)))
	}
	path, err := regular.Instantiate(a.path, regular.Bindings{a.Symbol(): sub})
	if err != nil {
		return a.fail(child, err)
	}
	return a.space.register(&Address{space: a.space, base: a.base, name: child, path: path})
}

// Index returns the address of the list elements of a that match filter.
// A scalar filter is read as a field name.
func (a *Address) Index(filter *regular.Value) *Address {
	if a.err != nil {
		return a
	}
	switch filter.Kind() {
	case regular.KindMap:
	case regular.KindList, regular.KindSymbol, regular.KindTransform, regular.KindOptional:
		return a.fail(a.name+"["+regular.Emit(filter)+"]", ErrBadFilter)
	default:
		if s, err := filter.AsStr(); err == nil {
			return a.Field(s)
		}
		return a.Field(regular.Emit(filter))
	}

	child := a.name + "[" + regular.Emit(filter) + "]"
	if a.filter != nil {
		return a.fail(child, ErrNestedList)
	}
	path, err := regular.Instantiate(a.path, regular.Bindings{a.Symbol(): regular.Sym(child)})
	if err != nil {
		return a.fail(child, err)
	}
	return a.space.register(&Address{space: a.space, base: a.base, name: child, path: path, filter: filter})
}

func (a *Address) fail(name string, err error) *Address {
	return a.space.register(&Address{
		space: a.space,
		base:  a.base,
		name:  name,
		path:  a.path,
		err:   fmt.Errorf("%s: %w", name, err),
	})
}

// Err returns the first error met while building a.
func (a *Address) Err() error { return a.err }

// Base returns the name of the base object.
func (a *Address) Base() string { return a.base }

// Name returns the full dotted name.
func (a *Address) Name() string { return a.name }

// Symbol returns the symbol the address binds.
func (a *Address) Symbol() regular.Symbol { return regular.Symbol(a.name) }

// Sym returns the address as a template leaf.
func (a *Address) Sym() *regular.Value { return regular.Sym(a.name) }

// Path returns the template that reaches the address from the base object.
func (a *Address) Path() *regular.Value { return a.path }

// IsList reports whether a is a list address.
func (a *Address) IsList() bool { return a.filter != nil }

// Filter returns the filter of a list address.
func (a *Address) Filter() *regular.Value { return a.filter }

// String returns the name.
func (a *Address) String() string { return a.name }

// Resolve returns the value of a under b. A binding of the address symbol
// itself wins; otherwise the address path is matched against the binding
// of the base object and must select exactly one value.
func (a *Address) Resolve(b regular.Bindings) (*regular.Value, error) {
	if a.err != nil {
		return nil, a.err
	}
	if v, ok := b[a.Symbol()]; ok {
		return v, nil
	}
	if a.filter != nil {
		return nil, fmt.Errorf("%s: %w", a.name, ErrListAddress)
	}
	base, err := b.Get(regular.Symbol(a.base))
	if err != nil {
		return nil, err
	}
	found, err := regular.Match(a.path, base).Single()
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", a.name, err)
	}
	return found.Get(a.Symbol())
}
