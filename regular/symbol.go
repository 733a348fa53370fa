package regular

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Symbol names a placeholder. Symbols are a distinct type from string
// scalars: Symbol("name") is the explicit conversion from a string literal,
// and Sym("name") builds the template leaf.
type Symbol string

// String returns the symbol name.
func (s Symbol) String() string {
	return string(s)
}

// ============================================================
// Symbol Sets
// ============================================================

// SymbolSet selects which symbols a match binds. The zero value selects
// every symbol.
type SymbolSet struct {
	restricted bool
	only       map[Symbol]struct{}
}

// AllSymbols selects every symbol in the template.
func AllSymbols() SymbolSet {
	return SymbolSet{}
}

// OnlySymbols selects exactly the given symbols. With no arguments the set
// is empty and a match binds nothing.
func OnlySymbols(syms ...Symbol) SymbolSet {
	only := make(map[Symbol]struct{}, len(syms))
	for _, s := range syms {
		only[s] = struct{}{}
	}
	return SymbolSet{restricted: true, only: only}
}

// Has reports whether sym is selected.
func (s SymbolSet) Has(sym Symbol) bool {
	if !s.restricted {
		return true
	}
	_, ok := s.only[sym]
	return ok
}

// IsAll reports whether the set selects every symbol.
func (s SymbolSet) IsAll() bool {
	return !s.restricted
}

// IsEmpty reports whether the set selects nothing.
func (s SymbolSet) IsEmpty() bool {
	return s.restricted && len(s.only) == 0
}

// anyIn reports whether any symbol of the template subtree is selected.
func (s SymbolSet) anyIn(t *Value) bool {
	if t.Kind() == KindSymbol {
		return s.Has(Symbol(t.strVal))
	}
	for _, sym := range Symbols(t) {
		if s.Has(sym) {
			return true
		}
	}
	return false
}

// ============================================================
// Transforms
// ============================================================

// TransformFunc converts a value in one direction of a Transform.
//
// present is false when the value was absent or null at that position; in
// is then a null value. The function decides what absence means; NullSafe
// adapts a function that only handles present values.
type TransformFunc func(in *Value, present bool) (*Value, error)

// Identity returns its input unchanged.
func Identity(in *Value, present bool) (*Value, error) {
	return orNull(in), nil
}

// NullSafe adapts f so that absent inputs pass through as null without
// calling f.
func NullSafe(f func(in *Value) (*Value, error)) TransformFunc {
	return func(in *Value, present bool) (*Value, error) {
		if !present {
			return Null(), nil
		}
		return f(in)
	}
}

// Direction identifies which function of a Transform ran.
type Direction uint8

const (
	Forward Direction = iota // format: inner value to output value
	Reverse                  // match: data value to inner value
)

// String returns the direction name.
func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

// Transform is the conversion carried by a Transform node. It is shared by
// every partially substituted copy of the node.
type Transform struct {
	forward TransformFunc
	reverse TransformFunc

	name   string    // registry name for function transforms, "" otherwise
	pairs  []MapPair // table for map transforms, nil otherwise
	strict bool      // map transforms: fail on a miss instead of yielding null
}

// Name returns the registry name of a function transform.
func (t *Transform) Name() string {
	return t.name
}

// Pairs returns the table of a map transform. The slice must not be
// modified.
func (t *Transform) Pairs() []MapPair {
	return t.pairs
}

// Strict reports whether a map transform fails on a miss.
func (t *Transform) Strict() bool {
	return t.strict
}

// apply runs one direction and wraps failures in a TransformError naming the
// symbols under inner.
func (t *Transform) apply(dir Direction, in, inner *Value) (*Value, error) {
	f := t.forward
	if dir == Reverse {
		f = t.reverse
	}
	if f == nil {
		f = Identity
	}
	out, err := f(orNull(in), !in.IsNull())
	if err != nil {
		return nil, &TransformError{Direction: dir, Symbols: Symbols(inner), Input: orNull(in), Err: err}
	}
	return orNull(out), nil
}

// Trans wraps a placeholder-bearing subtree with a forward and a reverse
// function. A nil function is the identity.
func Trans(inner *Value, forward, reverse TransformFunc) *Value {
	return &Value{kind: KindTransform, inner: inner, trans: &Transform{forward: forward, reverse: reverse}}
}

// TransNamed is Trans with a registry name attached, so the node can be
// written back out by EncodeMarkers.
func TransNamed(inner *Value, name string, forward, reverse TransformFunc) *Value {
	return &Value{kind: KindTransform, inner: inner, trans: &Transform{forward: forward, reverse: reverse, name: name}}
}

// MapPair is one row of a map transform: From formats to To, To matches
// back to From.
type MapPair struct {
	From *Value
	To   *Value
}

// MapOpts configures map transforms.
type MapOpts struct {
	// Strict fails with a TransformError when a present value is missing
	// from the table. When false (default), a miss yields null.
	Strict bool
}

// StrPairs builds map rows from a string table, sorted by key.
func StrPairs(m map[string]string) []MapPair {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]MapPair, len(keys))
	for i, k := range keys {
		pairs[i] = MapPair{From: Str(k), To: Str(m[k])}
	}
	return pairs
}

// TransMap wraps inner with a finite bijective map. The table must be
// strictly invertible: duplicate keys or duplicate values are rejected.
func TransMap(inner *Value, pairs []MapPair) (*Value, error) {
	return TransMapWithOpts(inner, pairs, MapOpts{})
}

// TransMapWithOpts is TransMap with options.
func TransMapWithOpts(inner *Value, pairs []MapPair, opts MapOpts) (*Value, error) {
	fwd := make(map[string]*Value, len(pairs))
	rev := make(map[string]*Value, len(pairs))
	for _, p := range pairs {
		from, to := Canonical(p.From), Canonical(p.To)
		if _, dup := fwd[from]; dup {
			return nil, fmt.Errorf("%w: duplicate key %s", ErrInvalidTransform, Emit(p.From))
		}
		if _, dup := rev[to]; dup {
			return nil, fmt.Errorf("%w: value %s is not unique, map is not invertible", ErrInvalidTransform, Emit(p.To))
		}
		fwd[from] = orNull(p.To)
		rev[to] = orNull(p.From)
	}

	lookup := func(table map[string]*Value) TransformFunc {
		return func(in *Value, present bool) (*Value, error) {
			if !present {
				return Null(), nil
			}
			if out, ok := table[Canonical(in)]; ok {
				return out, nil
			}
			if opts.Strict {
				return nil, fmt.Errorf("no entry for %s", Emit(in))
			}
			return Null(), nil
		}
	}

	cp := make([]MapPair, len(pairs))
	copy(cp, pairs)
	return &Value{kind: KindTransform, inner: inner, trans: &Transform{
		forward: lookup(fwd),
		reverse: lookup(rev),
		pairs:   cp,
		strict:  opts.Strict,
	}}, nil
}

// MustTransMap is TransMap that panics on a non-invertible table.
func MustTransMap(inner *Value, pairs []MapPair) *Value {
	v, err := TransMap(inner, pairs)
	if err != nil {
		panic(err)
	}
	return v
}

// ============================================================
// Named transform functions
// ============================================================

// FuncPair holds both directions of a named transform.
type FuncPair struct {
	Forward TransformFunc
	Reverse TransformFunc
}

// Funcs is a registry of named transforms, used when templates are read
// from text ({"$trans": ..., "func": "int"}).
type Funcs map[string]FuncPair

// DefaultFuncs returns the built-in registry:
//   - int:   forward converts numbers and numeric strings to int; reverse is identity
//   - float: forward converts numbers and numeric strings to float; reverse is identity
//   - str:   forward renders scalars as strings; reverse parses numbers back
func DefaultFuncs() Funcs {
	return Funcs{
		"int":   {Forward: NullSafe(toInt), Reverse: Identity},
		"float": {Forward: NullSafe(toFloat), Reverse: Identity},
		"str":   {Forward: NullSafe(toStr), Reverse: NullSafe(parseNumber)},
	}
}

func toInt(in *Value) (*Value, error) {
	switch in.Kind() {
	case KindInt:
		return in, nil
	case KindFloat:
		if math.IsNaN(in.floatVal) || math.IsInf(in.floatVal, 0) {
			return nil, fmt.Errorf("cannot convert %s to int", canonFloat(in.floatVal))
		}
		return Int(int64(in.floatVal)), nil
	case KindBool:
		if in.boolVal {
			return Int(1), nil
		}
		return Int(0), nil
	case KindStr:
		n, err := strconv.ParseInt(strings.TrimSpace(in.strVal), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to int: %w", in.strVal, err)
		}
		return Int(n), nil
	default:
		return nil, fmt.Errorf("cannot convert %s to int", in.Kind())
	}
}

func toFloat(in *Value) (*Value, error) {
	switch in.Kind() {
	case KindFloat:
		return in, nil
	case KindInt:
		return Float(float64(in.intVal)), nil
	case KindStr:
		f, err := strconv.ParseFloat(strings.TrimSpace(in.strVal), 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to float: %w", in.strVal, err)
		}
		return Float(f), nil
	default:
		return nil, fmt.Errorf("cannot convert %s to float", in.Kind())
	}
}

func toStr(in *Value) (*Value, error) {
	switch in.Kind() {
	case KindStr:
		return in, nil
	case KindInt:
		return Str(strconv.FormatInt(in.intVal, 10)), nil
	case KindFloat:
		return Str(canonFloat(in.floatVal)), nil
	case KindBool:
		return Str(strconv.FormatBool(in.boolVal)), nil
	default:
		return nil, fmt.Errorf("cannot convert %s to str", in.Kind())
	}
}

// parseNumber turns numeric strings back into numbers and leaves anything
// else as it is.
func parseNumber(in *Value) (*Value, error) {
	if in.Kind() != KindStr {
		return in, nil
	}
	s := strings.TrimSpace(in.strVal)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(n), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Float(f), nil
	}
	return in, nil
}
