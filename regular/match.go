package regular

import (
	"fmt"
)

// Matcher is a deferred binding of one template to one data tree. It holds
// no results: every query re-runs the match, restricted to the symbols the
// query needs.
type Matcher struct {
	template *Value
	data     *Value
}

// Match binds template to data without matching anything yet.
func Match(template, data *Value) *Matcher {
	return &Matcher{template: template, data: data}
}

// Template returns the matched template.
func (m *Matcher) Template() *Value {
	return m.template
}

// Data returns the matched data.
func (m *Matcher) Data() *Value {
	return m.data
}

// All returns every binding set of every symbol.
func (m *Matcher) All() ([]Bindings, error) {
	return Unify(m.template, m.data, AllSymbols())
}

// Project returns every distinct binding set of the given symbols.
func (m *Matcher) Project(syms ...Symbol) ([]Bindings, error) {
	return Unify(m.template, m.data, OnlySymbols(syms...))
}

// Get returns the value of sym in the first binding set that binds it.
func (m *Matcher) Get(sym Symbol) (*Value, error) {
	sets, err := m.Project(sym)
	if err != nil {
		return nil, err
	}
	for _, b := range sets {
		if v, ok := b[sym]; ok {
			return orNull(v), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, sym)
}

// Values returns every distinct value bound to sym, in discovery order.
func (m *Matcher) Values(sym Symbol) ([]*Value, error) {
	sets, err := m.Project(sym)
	if err != nil {
		return nil, err
	}
	out := make([]*Value, 0, len(sets))
	for _, b := range sets {
		if v, ok := b[sym]; ok {
			out = append(out, orNull(v))
		}
	}
	return out, nil
}

// Single returns the only binding set of the match. Zero or several
// binding sets are a *MisuseError.
func (m *Matcher) Single() (Bindings, error) {
	sets, err := m.All()
	if err != nil {
		return nil, err
	}
	if len(sets) != 1 {
		return nil, &MisuseError{Op: "Single", Results: len(sets)}
	}
	return sets[0], nil
}

// First returns the first binding set of the match.
func (m *Matcher) First() (Bindings, error) {
	sets, err := m.All()
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return nil, &MisuseError{Op: "First", Results: 0}
	}
	return sets[0], nil
}

// String renders the pair for logs.
func (m *Matcher) String() string {
	return fmt.Sprintf("Match(%s, %s)", emitShort(m.template), emitShort(m.data))
}
