package regular

// Symbols returns the distinct symbols of a template in first-occurrence
// order. Map entries are visited in their stored order.
func Symbols(t *Value) []Symbol {
	var out []Symbol
	seen := map[Symbol]bool{}
	walkSymbols(t, true, func(s Symbol) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	})
	return out
}

// singles returns the symbols of t that are not inside a nested list.
func singles(t *Value) []Symbol {
	var out []Symbol
	seen := map[Symbol]bool{}
	walkSymbols(t, false, func(s Symbol) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	})
	return out
}

func walkSymbols(t *Value, intoLists bool, visit func(Symbol)) {
	switch t.Kind() {
	case KindSymbol:
		visit(Symbol(t.strVal))
	case KindTransform, KindOptional:
		walkSymbols(t.inner, intoLists, visit)
	case KindList:
		if !intoLists {
			return
		}
		for _, item := range t.listVal {
			walkSymbols(item, intoLists, visit)
		}
	case KindMap:
		for _, e := range t.mapVal {
			walkSymbols(e.Value, intoLists, visit)
		}
	}
}

// HasPlaceholder reports whether any symbol remains in t. Transform and
// Optional nodes count only through their contents.
func HasPlaceholder(t *Value) bool {
	switch t.Kind() {
	case KindSymbol:
		return true
	case KindTransform, KindOptional:
		return HasPlaceholder(t.inner)
	case KindList:
		for _, item := range t.listVal {
			if HasPlaceholder(item) {
				return true
			}
		}
	case KindMap:
		for _, e := range t.mapVal {
			if HasPlaceholder(e.Value) {
				return true
			}
		}
	}
	return false
}

// IsPlaceholder reports whether t is a substitutable leaf: a symbol, or a
// transform whose contents are still unresolved.
func IsPlaceholder(t *Value) bool {
	switch t.Kind() {
	case KindSymbol:
		return true
	case KindTransform:
		return HasPlaceholder(t.inner)
	}
	return false
}
