package regular

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"
)

// ============================================================
// JSON Bridge
// ============================================================
//
// Converts between JSON (or decoded Go values) and Value. Object key order
// is preserved on both sides. Templates are written with $-markers:
//
//	{"$sym": "name"}                              symbol
//	{"$opt": <template>}                          optional subtree
//	{"$trans": <template>, "map": {"CA": "California"}, "strict": true}
//	{"$trans": <template>, "pairs": [[1, "one"], [2, "two"]]}
//	{"$trans": <template>, "func": "int"}         named function from Funcs
//	{"$lit": <data>}                              data read without markers

// Marker keys.
const (
	MarkerSym   = "$sym"
	MarkerOpt   = "$opt"
	MarkerTrans = "$trans"
	MarkerLit   = "$lit"
)

// BridgeOpts configures the JSON bridge.
type BridgeOpts struct {
	// Markers enables $-marker templates. When false (default), objects with
	// $-keys are plain data.
	Markers bool

	// Funcs resolves {"$trans": ..., "func": name}. Nil means DefaultFuncs().
	Funcs Funcs
}

// DefaultBridgeOpts returns options for data: markers off.
func DefaultBridgeOpts() BridgeOpts {
	return BridgeOpts{}
}

// TemplateBridgeOpts returns options for templates: markers on, default
// function registry.
func TemplateBridgeOpts() BridgeOpts {
	return BridgeOpts{Markers: true, Funcs: DefaultFuncs()}
}

// ============================================================
// FromJSON - JSON to Value
// ============================================================

// FromJSON reads JSON data.
func FromJSON(data []byte) (*Value, error) {
	return FromJSONWithOpts(data, DefaultBridgeOpts())
}

// FromJSONTemplate reads a JSON template with $-markers.
func FromJSONTemplate(data []byte) (*Value, error) {
	return FromJSONWithOpts(data, TemplateBridgeOpts())
}

// FromJSONWithOpts reads JSON with options.
func FromJSONWithOpts(data []byte, opts BridgeOpts) (*Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeJSON(dec)
	if err != nil {
		return nil, fmt.Errorf("JSON parse error: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("JSON parse error: trailing data after value")
	}
	if opts.Markers {
		return DecodeMarkers(v, opts.Funcs)
	}
	return v, nil
}

func decodeJSON(dec *json.Decoder) (*Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return fromNumber(t)
	case string:
		return Str(t), nil
	case json.Delim:
		switch t {
		case '[':
			items := []*Value{}
			for dec.More() {
				item, err := decodeJSON(dec)
				if err != nil {
					return nil, fmt.Errorf("array[%d]: %w", len(items), err)
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return List(items...), nil
		case '{':
			entries := []MapEntry{}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T", kt)
				}
				val, err := decodeJSON(dec)
				if err != nil {
					return nil, fmt.Errorf("object[%q]: %w", key, err)
				}
				entries = append(entries, MapEntry{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return Map(entries...), nil
		}
	}
	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}

func fromNumber(n json.Number) (*Value, error) {
	if i, err := n.Int64(); err == nil {
		return Int(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", n, err)
	}
	return Float(f), nil
}

// ============================================================
// FromAny - decoded Go values to Value
// ============================================================

// FromAny converts a decoded Go value (from encoding/json, YAML or CBOR
// decoders, or built by hand) to data. Go maps carry no order, so their
// keys are sorted.
func FromAny(x any) (*Value, error) {
	switch val := x.(type) {
	case nil:
		return Null(), nil
	case *Value:
		return orNull(val), nil
	case Symbol:
		return Sym(string(val)), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(int64(val)), nil
	case int8:
		return Int(int64(val)), nil
	case int16:
		return Int(int64(val)), nil
	case int32:
		return Int(int64(val)), nil
	case int64:
		return Int(val), nil
	case uint:
		return fromUint(uint64(val))
	case uint8:
		return Int(int64(val)), nil
	case uint16:
		return Int(int64(val)), nil
	case uint32:
		return Int(int64(val)), nil
	case uint64:
		return fromUint(val)
	case float32:
		return Float(float64(val)), nil
	case float64:
		return Float(val), nil
	case json.Number:
		return fromNumber(val)
	case string:
		return Str(val), nil
	case []byte:
		return Str(string(val)), nil
	case time.Time:
		return Str(val.Format(time.RFC3339Nano)), nil
	case []any:
		items := make([]*Value, 0, len(val))
		for i, elem := range val {
			v, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			items = append(items, v)
		}
		return List(items...), nil
	case []string:
		items := make([]*Value, len(val))
		for i, s := range val {
			items[i] = Str(s)
		}
		return List(items...), nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]MapEntry, 0, len(val))
		for _, k := range keys {
			v, err := FromAny(val[k])
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			entries = append(entries, MapEntry{Key: k, Value: v})
		}
		return Map(entries...), nil
	case map[any]any:
		conv := make(map[string]any, len(val))
		for k, v := range val {
			conv[fmt.Sprint(k)] = v
		}
		return FromAny(conv)
	default:
		return nil, fmt.Errorf("unsupported Go type: %T", x)
	}
}

func fromUint(u uint64) (*Value, error) {
	if u > math.MaxInt64 {
		return Float(float64(u)), nil
	}
	return Int(int64(u)), nil
}

// ============================================================
// ToAny / ToJSON - Value to Go values and JSON
// ============================================================

// ToAny converts data to plain Go values: nil, bool, int64, float64,
// string, []any and map[string]any. Placeholders are an error; encode them
// with EncodeMarkers first.
func ToAny(v *Value) (any, error) {
	switch v.Kind() {
	case KindNull:
		return nil, nil
	case KindBool:
		return v.boolVal, nil
	case KindInt:
		return v.intVal, nil
	case KindFloat:
		return v.floatVal, nil
	case KindStr:
		return v.strVal, nil
	case KindList:
		items := make([]any, 0, len(v.listVal))
		for i, elem := range v.listVal {
			x, err := ToAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			items = append(items, x)
		}
		return items, nil
	case KindMap:
		obj := make(map[string]any, len(v.mapVal))
		for _, e := range v.mapVal {
			x, err := ToAny(e.Value)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", e.Key, err)
			}
			obj[e.Key] = x
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("%s placeholder %s has no data form", v.Kind(), emitShort(v))
	}
}

// ToJSON writes data as compact JSON, keeping map entry order.
func ToJSON(v *Value) ([]byte, error) {
	return ToJSONWithOpts(v, DefaultBridgeOpts())
}

// ToJSONWithOpts writes JSON with options. With Markers set, placeholders
// are written as $-markers.
func ToJSONWithOpts(v *Value, opts BridgeOpts) ([]byte, error) {
	if opts.Markers {
		enc, err := EncodeMarkers(v)
		if err != nil {
			return nil, err
		}
		v = enc
	}
	var buf bytes.Buffer
	if err := writeJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v *Value) error {
	switch v.Kind() {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.boolVal))
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.intVal, 10))
	case KindFloat:
		if math.IsNaN(v.floatVal) || math.IsInf(v.floatVal, 0) {
			return fmt.Errorf("NaN/Infinity not allowed in JSON")
		}
		b, err := json.Marshal(v.floatVal)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindStr:
		writeJSONString(buf, v.strVal)
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.listVal {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case KindMap:
		buf.WriteByte('{')
		for i, e := range v.mapVal {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(buf, e.Key)
			buf.WriteByte(':')
			if err := writeJSON(buf, e.Value); err != nil {
				return fmt.Errorf("object[%q]: %w", e.Key, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("%s placeholder %s has no JSON form without markers", v.Kind(), emitShort(v))
	}
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s) // strings always encode
	buf.Truncate(buf.Len() - 1)
}

// ============================================================
// Template Markers
// ============================================================

var errNotMarker = errors.New("not a marker")

// DecodeMarkers turns $-marker maps of a data tree into placeholders.
// funcs resolves named transforms; nil means DefaultFuncs().
func DecodeMarkers(v *Value, funcs Funcs) (*Value, error) {
	if funcs == nil {
		funcs = DefaultFuncs()
	}
	return decodeMarkers(v, funcs)
}

func decodeMarkers(v *Value, funcs Funcs) (*Value, error) {
	switch v.Kind() {
	case KindList:
		items := make([]*Value, len(v.listVal))
		for i, item := range v.listVal {
			nv, err := decodeMarkers(item, funcs)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			items[i] = nv
		}
		return List(items...), nil
	case KindMap:
		t, err := fromMarker(v, funcs)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, errNotMarker) {
			return nil, err
		}
		entries := make([]MapEntry, len(v.mapVal))
		for i, e := range v.mapVal {
			nv, err := decodeMarkers(e.Value, funcs)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", e.Key, err)
			}
			entries[i] = MapEntry{Key: e.Key, Value: nv}
		}
		return Map(entries...), nil
	default:
		return v, nil
	}
}

func fromMarker(obj *Value, funcs Funcs) (*Value, error) {
	switch {
	case obj.Has(MarkerSym):
		if err := onlyKeys(obj, MarkerSym); err != nil {
			return nil, err
		}
		name, err := obj.Get(MarkerSym).AsStr()
		if err != nil || name == "" {
			return nil, fmt.Errorf("%s marker needs a non-empty string name", MarkerSym)
		}
		return Sym(name), nil

	case obj.Has(MarkerOpt):
		if err := onlyKeys(obj, MarkerOpt); err != nil {
			return nil, err
		}
		inner, err := decodeMarkers(obj.Get(MarkerOpt), funcs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", MarkerOpt, err)
		}
		return Opt(inner), nil

	case obj.Has(MarkerLit):
		if err := onlyKeys(obj, MarkerLit); err != nil {
			return nil, err
		}
		return orNull(obj.Get(MarkerLit)), nil

	case obj.Has(MarkerTrans):
		return fromTransMarker(obj, funcs)
	}
	return nil, errNotMarker
}

func fromTransMarker(obj *Value, funcs Funcs) (*Value, error) {
	if err := onlyKeys(obj, MarkerTrans, "map", "pairs", "func", "strict"); err != nil {
		return nil, err
	}
	inner, err := decodeMarkers(obj.Get(MarkerTrans), funcs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MarkerTrans, err)
	}

	opts := MapOpts{}
	if s := obj.Get("strict"); s != nil {
		if opts.Strict, err = s.AsBool(); err != nil {
			return nil, fmt.Errorf("%s strict: %w", MarkerTrans, err)
		}
	}

	switch {
	case obj.Has("func"):
		name, err := obj.Get("func").AsStr()
		if err != nil {
			return nil, fmt.Errorf("%s func: %w", MarkerTrans, err)
		}
		fp, ok := funcs[name]
		if !ok {
			return nil, fmt.Errorf("%s: unknown func %q", MarkerTrans, name)
		}
		return TransNamed(inner, name, fp.Forward, fp.Reverse), nil

	case obj.Has("map"):
		table := obj.Get("map")
		if table.Kind() != KindMap {
			return nil, fmt.Errorf("%s map must be an object", MarkerTrans)
		}
		pairs := make([]MapPair, len(table.mapVal))
		for i, e := range table.mapVal {
			pairs[i] = MapPair{From: Str(e.Key), To: e.Value}
		}
		return TransMapWithOpts(inner, pairs, opts)

	case obj.Has("pairs"):
		rows, err := obj.Get("pairs").AsList()
		if err != nil {
			return nil, fmt.Errorf("%s pairs: %w", MarkerTrans, err)
		}
		pairs := make([]MapPair, len(rows))
		for i, row := range rows {
			if row.Len() != 2 || row.Kind() != KindList {
				return nil, fmt.Errorf("%s pairs[%d]: expected [from, to]", MarkerTrans, i)
			}
			pairs[i] = MapPair{From: row.listVal[0], To: row.listVal[1]}
		}
		return TransMapWithOpts(inner, pairs, opts)
	}
	return Trans(inner, nil, nil), nil
}

func hasMarkerKey(obj *Value) bool {
	return obj.Has(MarkerSym) || obj.Has(MarkerOpt) || obj.Has(MarkerTrans) || obj.Has(MarkerLit)
}

func onlyKeys(obj *Value, allowed ...string) error {
	for _, e := range obj.mapVal {
		ok := false
		for _, a := range allowed {
			if e.Key == a {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("unexpected key %q in %s marker", e.Key, allowed[0])
		}
	}
	return nil
}

// EncodeMarkers turns placeholders into $-marker maps, so a template can be
// written as plain data. Data maps that would read back as markers are
// wrapped in {"$lit": ...}. Transforms built from functions without a
// registry name cannot be encoded.
func EncodeMarkers(t *Value) (*Value, error) {
	switch t.Kind() {
	case KindSymbol:
		return Map(FieldVal(MarkerSym, Str(t.strVal))), nil

	case KindOptional:
		inner, err := EncodeMarkers(t.inner)
		if err != nil {
			return nil, err
		}
		return Map(FieldVal(MarkerOpt, inner)), nil

	case KindTransform:
		inner, err := EncodeMarkers(t.inner)
		if err != nil {
			return nil, err
		}
		tr := t.trans
		switch {
		case tr.name != "":
			return Map(FieldVal(MarkerTrans, inner), FieldVal("func", Str(tr.name))), nil
		case tr.pairs != nil:
			rows := make([]*Value, len(tr.pairs))
			for i, p := range tr.pairs {
				rows[i] = List(orNull(p.From), orNull(p.To))
			}
			entries := []MapEntry{FieldVal(MarkerTrans, inner), FieldVal("pairs", List(rows...))}
			if tr.strict {
				entries = append(entries, FieldVal("strict", Bool(true)))
			}
			return Map(entries...), nil
		case tr.forward == nil && tr.reverse == nil:
			return Map(FieldVal(MarkerTrans, inner)), nil
		}
		return nil, fmt.Errorf("transform over %s has no registry name", emitShort(t.inner))

	case KindList:
		items := make([]*Value, len(t.listVal))
		for i, item := range t.listVal {
			nv, err := EncodeMarkers(item)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			items[i] = nv
		}
		return List(items...), nil

	case KindMap:
		if hasMarkerKey(t) {
			return Map(FieldVal(MarkerLit, t)), nil
		}
		entries := make([]MapEntry, len(t.mapVal))
		for i, e := range t.mapVal {
			nv, err := EncodeMarkers(e.Value)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", e.Key, err)
			}
			entries[i] = MapEntry{Key: e.Key, Value: nv}
		}
		return Map(entries...), nil

	default:
		return t, nil
	}
}
