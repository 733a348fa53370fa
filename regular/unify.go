package regular

import (
	"errors"
)

// Unify matches template against data and returns every consistent binding
// set for the requested symbols, deduplicated, in discovery order.
//
// A successful match that binds nothing returns one empty binding set. A
// failed match returns a *NoMatchError naming the template element that
// could not be matched. Errors raised by transform functions are returned
// as *TransformError and are never recovered.
func Unify(template, data *Value, syms SymbolSet) ([]Bindings, error) {
	if syms.IsEmpty() {
		return unit(), nil
	}
	return unify(template, data, syms)
}

// CanMatch reports whether template matches data. It computes every binding
// set; use it on small inputs.
func CanMatch(template, data *Value) bool {
	_, err := Unify(template, data, AllSymbols())
	return err == nil
}

func unit() []Bindings {
	return []Bindings{{}}
}

func unify(t, d *Value, syms SymbolSet) ([]Bindings, error) {
	switch t.Kind() {
	case KindSymbol:
		sym := Symbol(t.strVal)
		if !syms.Has(sym) {
			return unit(), nil
		}
		return []Bindings{{sym: orNull(d)}}, nil

	case KindTransform:
		if !syms.anyIn(t.inner) {
			return unit(), nil
		}
		pre, err := t.trans.apply(Reverse, d, t.inner)
		if err != nil {
			return nil, err
		}
		if sym, ok := t.inner.AsSymbol(); ok {
			return []Bindings{{sym: pre}}, nil
		}
		return unify(t.inner, pre, syms)

	case KindOptional:
		out, err := unify(t.inner, d, syms)
		if err != nil {
			if errors.Is(err, ErrNoMatch) {
				return unit(), nil
			}
			return nil, err
		}
		return out, nil

	case KindMap:
		if d.Kind() != KindMap {
			return nil, noMatch(t, d, "expected map, got "+d.Kind().String())
		}
		partials := make([][]Bindings, 0, len(t.mapVal))
		for _, e := range t.mapVal {
			sub, err := unify(e.Value, d.Get(e.Key), syms)
			if err != nil {
				return nil, err
			}
			partials = append(partials, sub)
		}
		return joinOrFail(t, d, partials)

	case KindList:
		if d.Kind() != KindList {
			return nil, noMatch(t, d, "expected list, got "+d.Kind().String())
		}
		partials := make([][]Bindings, 0, len(t.listVal))
		for _, elem := range t.listVal {
			matches, err := unifyElement(elem, d, syms)
			if err != nil {
				return nil, err
			}
			partials = append(partials, matches)
		}
		return joinOrFail(t, d, partials)

	default:
		if !Equal(t, d) {
			return nil, noMatch(t, d, "")
		}
		return unit(), nil
	}
}

// unifyElement matches one template list element against every element of
// data and returns the union of the successful candidates.
func unifyElement(elem, data *Value, syms SymbolSet) ([]Bindings, error) {
	var matches []Bindings
	found := false
	for _, cand := range data.listVal {
		sub, err := unify(elem, cand, syms)
		if err != nil {
			if errors.Is(err, ErrNoMatch) {
				continue
			}
			return nil, err
		}
		found = true
		matches = append(matches, sub...)
	}
	if !found {
		return nil, noMatch(elem, data, "no list element matched")
	}
	return Dedupe(matches), nil
}

// joinOrFail joins the per-position lists of a container node. Positions
// that all succeeded but admit no common binding set fail the node.
func joinOrFail(t, d *Value, partials [][]Bindings) ([]Bindings, error) {
	if len(partials) == 0 {
		return unit(), nil
	}
	out := Join(partials)
	if len(out) == 0 {
		return nil, noMatch(t, d, "conflicting values for a repeated symbol")
	}
	return out, nil
}
