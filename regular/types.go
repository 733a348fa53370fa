package regular

import (
	"fmt"
)

// Kind represents the kind of a tree node.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindList
	KindMap
	KindSymbol    // Placeholder bound to a single data value
	KindTransform // Placeholder subtree with a forward/reverse conversion
	KindOptional  // Subtree whose match is allowed to fail
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindSymbol:
		return "symbol"
	case KindTransform:
		return "transform"
	case KindOptional:
		return "optional"
	default:
		return "unknown"
	}
}

// IsScalar reports whether the kind is null, bool, int, float or str.
func (k Kind) IsScalar() bool {
	return k <= KindStr
}

// Value is a node of a template or data tree.
//
// Values are immutable once constructed. Every operation in this package
// returns fresh values and may share unchanged subtrees between its input
// and its output. A nil *Value reads as null everywhere.
type Value struct {
	kind Kind

	// Scalar values (only one valid based on kind)
	boolVal  bool
	intVal   int64
	floatVal float64
	strVal   string // string scalar, or the symbol name for KindSymbol

	// Container values
	listVal []*Value
	mapVal  []MapEntry

	// Placeholder wrappers
	trans *Transform // conversion for KindTransform
	inner *Value     // wrapped subtree for KindTransform and KindOptional
}

// MapEntry represents a key-value pair in a map.
type MapEntry struct {
	Key   string
	Value *Value
}

// FieldVal creates a MapEntry.
func FieldVal(key string, value *Value) MapEntry {
	return MapEntry{Key: key, Value: value}
}

// ============================================================
// Constructors
// ============================================================

// Null creates a null value.
func Null() *Value {
	return &Value{kind: KindNull}
}

// Bool creates a boolean value.
func Bool(v bool) *Value {
	return &Value{kind: KindBool, boolVal: v}
}

// Int creates an integer value.
func Int(v int64) *Value {
	return &Value{kind: KindInt, intVal: v}
}

// Float creates a float value.
func Float(v float64) *Value {
	return &Value{kind: KindFloat, floatVal: v}
}

// Str creates a string value.
func Str(v string) *Value {
	return &Value{kind: KindStr, strVal: v}
}

// List creates a list value. The slice is owned by the returned value.
func List(values ...*Value) *Value {
	return &Value{kind: KindList, listVal: values}
}

// Map creates a map value from key-value pairs. Keys are unique: when a key
// repeats, the entry keeps its first position and takes the last value.
func Map(entries ...MapEntry) *Value {
	return &Value{kind: KindMap, mapVal: uniqueEntries(entries)}
}

// Sym creates a symbol placeholder.
func Sym(name string) *Value {
	return &Value{kind: KindSymbol, strVal: name}
}

// Opt wraps a template subtree whose match is allowed to fail.
func Opt(inner *Value) *Value {
	return &Value{kind: KindOptional, inner: inner}
}

func uniqueEntries(entries []MapEntry) []MapEntry {
	if len(entries) < 2 {
		return entries
	}
	seen := make(map[string]int, len(entries))
	out := entries[:0:0]
	for _, e := range entries {
		if i, ok := seen[e.Key]; ok {
			out[i].Value = e.Value
			continue
		}
		seen[e.Key] = len(out)
		out = append(out, e)
	}
	return out
}

// ============================================================
// Accessors
// ============================================================

// Kind returns the node kind.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

// IsNull returns true if this is a null value.
func (v *Value) IsNull() bool {
	return v == nil || v.kind == KindNull
}

// AsBool returns the boolean value.
func (v *Value) AsBool() (bool, error) {
	if v.Kind() != KindBool {
		return false, fmt.Errorf("regular: expected bool, got %s", v.Kind())
	}
	return v.boolVal, nil
}

// AsInt returns the integer value.
func (v *Value) AsInt() (int64, error) {
	if v.Kind() != KindInt {
		return 0, fmt.Errorf("regular: expected int, got %s", v.Kind())
	}
	return v.intVal, nil
}

// AsFloat returns the float value.
func (v *Value) AsFloat() (float64, error) {
	if v.Kind() != KindFloat {
		return 0, fmt.Errorf("regular: expected float, got %s", v.Kind())
	}
	return v.floatVal, nil
}

// AsStr returns the string value.
func (v *Value) AsStr() (string, error) {
	if v.Kind() != KindStr {
		return "", fmt.Errorf("regular: expected str, got %s", v.Kind())
	}
	return v.strVal, nil
}

// AsList returns the list elements. The slice must not be modified.
func (v *Value) AsList() ([]*Value, error) {
	if v.Kind() != KindList {
		return nil, fmt.Errorf("regular: expected list, got %s", v.Kind())
	}
	return v.listVal, nil
}

// AsMap returns the map entries. The slice must not be modified.
func (v *Value) AsMap() ([]MapEntry, error) {
	if v.Kind() != KindMap {
		return nil, fmt.Errorf("regular: expected map, got %s", v.Kind())
	}
	return v.mapVal, nil
}

// AsSymbol returns the symbol of a symbol placeholder.
func (v *Value) AsSymbol() (Symbol, bool) {
	if v.Kind() != KindSymbol {
		return "", false
	}
	return Symbol(v.strVal), true
}

// Inner returns the wrapped subtree of a Transform or Optional node.
func (v *Value) Inner() *Value {
	switch v.Kind() {
	case KindTransform, KindOptional:
		return v.inner
	}
	return nil
}

// Transform returns the conversion of a Transform node.
func (v *Value) Transform() *Transform {
	if v.Kind() != KindTransform {
		return nil
	}
	return v.trans
}

// Number returns the numeric value of an int or float.
func (v *Value) Number() (float64, bool) {
	switch v.Kind() {
	case KindInt:
		return float64(v.intVal), true
	case KindFloat:
		return v.floatVal, true
	}
	return 0, false
}

// IsNumeric returns true for int and float values.
func (v *Value) IsNumeric() bool {
	k := v.Kind()
	return k == KindInt || k == KindFloat
}

// Len returns the length of a list or map.
func (v *Value) Len() int {
	switch v.Kind() {
	case KindList:
		return len(v.listVal)
	case KindMap:
		return len(v.mapVal)
	default:
		return 0
	}
}

// Get returns a map value by key, or nil when the key is absent or v is not
// a map.
func (v *Value) Get(key string) *Value {
	if v.Kind() != KindMap {
		return nil
	}
	for _, e := range v.mapVal {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

// Has reports whether a map has the key.
func (v *Value) Has(key string) bool {
	if v.Kind() != KindMap {
		return false
	}
	for _, e := range v.mapVal {
		if e.Key == key {
			return true
		}
	}
	return false
}

// Index returns the i-th element of a list.
func (v *Value) Index(i int) (*Value, error) {
	if v.Kind() != KindList {
		return nil, fmt.Errorf("regular: not a list")
	}
	if i < 0 || i >= len(v.listVal) {
		return nil, fmt.Errorf("regular: index %d out of bounds (len=%d)", i, len(v.listVal))
	}
	return v.listVal[i], nil
}

// String returns the compact emission of the value.
func (v *Value) String() string {
	return Emit(v)
}

// ============================================================
// Copy-on-write helpers
// ============================================================

// With returns a copy of the map with key set to val. The receiver is
// unchanged.
func (v *Value) With(key string, val *Value) *Value {
	if v.Kind() != KindMap {
		return Map(FieldVal(key, val))
	}
	entries := make([]MapEntry, len(v.mapVal), len(v.mapVal)+1)
	copy(entries, v.mapVal)
	for i := range entries {
		if entries[i].Key == key {
			entries[i].Value = val
			return &Value{kind: KindMap, mapVal: entries}
		}
	}
	return &Value{kind: KindMap, mapVal: append(entries, FieldVal(key, val))}
}

// Append returns a copy of the list with val appended. The receiver is
// unchanged.
func (v *Value) Append(val *Value) *Value {
	if v.Kind() != KindList {
		return List(val)
	}
	items := make([]*Value, len(v.listVal), len(v.listVal)+1)
	copy(items, v.listVal)
	return &Value{kind: KindList, listVal: append(items, val)}
}

func orNull(v *Value) *Value {
	if v == nil {
		return Null()
	}
	return v
}
