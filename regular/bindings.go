package regular

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
)

// Bindings is one binding set: a consistent assignment of data values to
// symbols. Bindings are treated as immutable once returned.
type Bindings map[Symbol]*Value

// Symbols returns the bound symbols in sorted order.
func (b Bindings) Symbols() []Symbol {
	syms := make([]Symbol, 0, len(b))
	for s := range b {
		syms = append(syms, s)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i] < syms[j] })
	return syms
}

// Lookup returns the value bound to sym.
func (b Bindings) Lookup(sym Symbol) (*Value, bool) {
	v, ok := b[sym]
	return v, ok
}

// Get returns the value bound to sym, or ErrUnknownSymbol.
func (b Bindings) Get(sym Symbol) (*Value, error) {
	v, ok := b[sym]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, sym)
	}
	return orNull(v), nil
}

// Equal reports whether both sets bind the same symbols to equal values.
func (b Bindings) Equal(o Bindings) bool {
	if len(b) != len(o) {
		return false
	}
	for s, v := range b {
		ov, ok := o[s]
		if !ok || !Equal(v, ov) {
			return false
		}
	}
	return true
}

// Compatible reports whether every symbol bound in both sets has equal
// values.
func (b Bindings) Compatible(o Bindings) bool {
	small, large := b, o
	if len(small) > len(large) {
		small, large = large, small
	}
	for s, v := range small {
		if ov, ok := large[s]; ok && !Equal(v, ov) {
			return false
		}
	}
	return true
}

// Union returns a new set holding the entries of both. On shared symbols
// the value from o wins; callers join only Compatible sets.
func (b Bindings) Union(o Bindings) Bindings {
	out := make(Bindings, len(b)+len(o))
	for s, v := range b {
		out[s] = v
	}
	for s, v := range o {
		out[s] = v
	}
	return out
}

// Project returns the subset of b bound to syms.
func (b Bindings) Project(syms ...Symbol) Bindings {
	out := make(Bindings, len(syms))
	for _, s := range syms {
		if v, ok := b[s]; ok {
			out[s] = v
		}
	}
	return out
}

// Key returns the blake3 fingerprint of the canonical encoding. Equal
// binding sets have equal keys.
func (b Bindings) Key() Digest {
	return projectKey(b, b.Symbols())
}

// projectKey fingerprints the values bound to syms, in the given order.
func projectKey(b Bindings, syms []Symbol) Digest {
	var sb strings.Builder
	for _, s := range syms {
		sb.WriteString(quoteString(string(s)))
		sb.WriteByte('=')
		writeCanon(&sb, b[s])
		sb.WriteByte(';')
	}
	return blake3.Sum256([]byte(sb.String()))
}

// ToValue returns the set as a map value keyed by symbol name, sorted.
func (b Bindings) ToValue() *Value {
	syms := b.Symbols()
	entries := make([]MapEntry, len(syms))
	for i, s := range syms {
		entries[i] = FieldVal(string(s), orNull(b[s]))
	}
	return &Value{kind: KindMap, mapVal: entries}
}

// String renders the set as {sym:value ...}.
func (b Bindings) String() string {
	return Emit(b.ToValue())
}

// BindingsFromValue reads a binding set from a map value keyed by symbol
// name.
func BindingsFromValue(v *Value) (Bindings, error) {
	if v.Kind() != KindMap {
		return nil, fmt.Errorf("regular: bindings must be a map, got %s", v.Kind())
	}
	b := make(Bindings, len(v.mapVal))
	for _, e := range v.mapVal {
		if HasPlaceholder(e.Value) {
			return nil, fmt.Errorf("regular: binding for %s contains a placeholder", e.Key)
		}
		b[Symbol(e.Key)] = orNull(e.Value)
	}
	return b, nil
}

// Dedupe removes structurally equal binding sets, keeping first
// occurrences in order.
func Dedupe(sets []Bindings) []Bindings {
	if len(sets) < 2 {
		return sets
	}
	seen := make(map[Digest]struct{}, len(sets))
	out := make([]Bindings, 0, len(sets))
	for _, b := range sets {
		k := b.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, b)
	}
	return out
}
