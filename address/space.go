package address

import (
	"fmt"

	"github.com/Neumenon/regular/regular"
)

// Expansion merges the paths of every address used in template into one
// template rooted at the base objects, e.g. w.x and w.y.v expand to
//
//	{w:{x:S(w.x) y:{v:S(w.y.v)}}}
//
// Symbols that are not addresses of s, and list addresses, are ignored.
func (s *Space) Expansion(template *regular.Value) (*regular.Value, error) {
	out := regular.Map()
	for _, sym := range regular.Symbols(template) {
		a, ok := s.Lookup(sym)
		if !ok {
			continue
		}
		if a.err != nil {
			return nil, a.err
		}
		if a.IsList() {
			continue
		}
		merged, err := regular.Merge(regular.Map(regular.FieldVal(a.base, a.path)), out)
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", a.name, err)
		}
		out = merged
	}
	return out, nil
}

// ReverseFormat formats the expansion of template from m and returns the
// first result: the base objects rebuilt from the matched data.
func (s *Space) ReverseFormat(template *regular.Value, m *regular.Matcher) (*regular.Value, error) {
	all, err := s.ReverseFormatAll(template, m)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, &regular.MisuseError{Op: "ReverseFormat", Results: 0}
	}
	return all[0], nil
}

// ReverseFormatAll returns every result of formatting the expansion of
// template from m.
func (s *Space) ReverseFormatAll(template *regular.Value, m *regular.Matcher) ([]*regular.Value, error) {
	expansion, err := s.Expansion(template)
	if err != nil {
		return nil, err
	}
	return regular.FormatAll(expansion, m)
}

// Instantiate substitutes b into template, resolving address symbols that
// b does not bind directly through the binding of their base object.
// Addresses whose base is unbound stay in place.
func (s *Space) Instantiate(template *regular.Value, b regular.Bindings) (*regular.Value, error) {
	full := make(regular.Bindings, len(b))
	for sym, v := range b {
		full[sym] = v
	}
	for _, sym := range regular.Symbols(template) {
		if _, ok := full[sym]; ok {
			continue
		}
		a, ok := s.Lookup(sym)
		if !ok || a.IsList() {
			continue
		}
		if _, ok := b[regular.Symbol(a.base)]; !ok {
			continue
		}
		v, err := a.Resolve(b)
		if err != nil {
			return nil, err
		}
		full[sym] = v
	}
	return regular.Instantiate(template, full)
}
