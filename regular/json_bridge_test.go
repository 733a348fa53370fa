package regular

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFromJSON_Data(t *testing.T) {
	input := `{"name":"john","age":41,"height":1.8,"tags":["a","b"],"ok":true,"none":null,"$sym":"x"}`

	v, err := FromJSON([]byte(input))
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	want := Map(
		FieldVal("name", Str("john")),
		FieldVal("age", Int(41)),
		FieldVal("height", Float(1.8)),
		FieldVal("tags", List(Str("a"), Str("b"))),
		FieldVal("ok", Bool(true)),
		FieldVal("none", Null()),
		FieldVal("$sym", Str("x")),
	)
	if diff := cmp.Diff(want, v, valueCmp); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	out, err := ToJSON(v)
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	if string(out) != input {
		t.Errorf("key order not preserved:\n got %s\nwant %s", out, input)
	}
}

func TestFromJSON_Errors(t *testing.T) {
	for _, input := range []string{``, `{`, `[1,]`, `{"a":1} {"b":2}`} {
		if _, err := FromJSON([]byte(input)); err == nil {
			t.Errorf("FromJSON(%q) should fail", input)
		}
	}
}

func TestFromJSONTemplate_Markers(t *testing.T) {
	input := `{
		"name": {"$sym": "name"},
		"state": {"$trans": {"$sym": "state"}, "map": {"CA": "California"}},
		"age": {"$trans": {"$sym": "age"}, "func": "int"},
		"nick": {"$opt": {"$sym": "nick"}},
		"raw": {"$lit": {"$sym": "not a symbol"}}
	}`

	template, err := FromJSONTemplate([]byte(input))
	if err != nil {
		t.Fatalf("FromJSONTemplate failed: %v", err)
	}
	if diff := cmp.Diff([]Symbol{"name", "state", "age", "nick"}, Symbols(template)); diff != "" {
		t.Errorf("symbols mismatch (-want +got):\n%s", diff)
	}
	if got := template.Get("raw").Get("$sym"); !Equal(got, Str("not a symbol")) {
		t.Errorf("$lit content should be data, got %s", got)
	}

	data, _ := FromJSON([]byte(`{"name":"john","state":"California","age":"41","raw":{"$sym":"not a symbol"}}`))
	b, err := Match(template, data).Single()
	if err != nil {
		t.Fatalf("Single failed: %v", err)
	}
	want := Bindings{"name": Str("john"), "state": Str("CA"), "age": Str("41"), "nick": Null()}
	if diff := cmp.Diff(want, b, valueCmp); diff != "" {
		t.Errorf("bindings mismatch (-want +got):\n%s", diff)
	}

	out, err := Instantiate(template, b)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	if !Equal(out.Get("age"), Int(41)) {
		t.Errorf("int func should convert, got %s", out.Get("age"))
	}
}

func TestFromJSONTemplate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"extra key on symbol", `{"$sym": "a", "b": 1}`, nil},
		{"empty symbol", `{"$sym": ""}`, nil},
		{"unknown func", `{"$trans": {"$sym": "a"}, "func": "nope"}`, nil},
		{"non-invertible map", `{"$trans": {"$sym": "a"}, "map": {"x": "1", "y": "1"}}`, ErrInvalidTransform},
		{"bad pairs", `{"$trans": {"$sym": "a"}, "pairs": [[1]]}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromJSONTemplate([]byte(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestEncodeMarkers_RoundTrip(t *testing.T) {
	strict, err := TransMapWithOpts(Sym("n"), []MapPair{{From: Int(1), To: Str("one")}}, MapOpts{Strict: true})
	if err != nil {
		t.Fatal(err)
	}
	toInt := DefaultFuncs()["int"]
	template := Map(
		FieldVal("a", Sym("a")),
		FieldVal("n", strict),
		FieldVal("i", TransNamed(Sym("i"), "int", toInt.Forward, toInt.Reverse)),
		FieldVal("o", Opt(List(Sym("o")))),
		FieldVal("lit", Map(FieldVal("$opt", Int(1)))),
	)

	text, err := ToJSONWithOpts(template, TemplateBridgeOpts())
	if err != nil {
		t.Fatalf("ToJSONWithOpts failed: %v", err)
	}
	back, err := FromJSONTemplate(text)
	if err != nil {
		t.Fatalf("FromJSONTemplate(%s) failed: %v", text, err)
	}
	if Canonical(back) != Canonical(template) {
		t.Errorf("round trip changed the template:\n got %s\nwant %s", back, template)
	}
	if !back.Get("n").Transform().Strict() {
		t.Error("strict flag lost")
	}

	if _, err := ToJSON(template); err == nil {
		t.Error("placeholders have no JSON form without markers")
	}
	if _, err := EncodeMarkers(Trans(Sym("x"), Identity, Identity)); err == nil {
		t.Error("unnamed function transforms cannot be encoded")
	}
}

func TestFromAny(t *testing.T) {
	var decoded any
	if err := json.Unmarshal([]byte(`{"b":[1,2.5],"a":"x"}`), &decoded); err != nil {
		t.Fatal(err)
	}
	v, err := FromAny(decoded)
	if err != nil {
		t.Fatalf("FromAny failed: %v", err)
	}
	want := Map(FieldVal("a", Str("x")), FieldVal("b", List(Int(1), Float(2.5))))
	if diff := cmp.Diff(want, v, valueCmp); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if v.mapVal[0].Key != "a" {
		t.Error("Go map keys should be sorted")
	}

	mixed, err := FromAny(map[any]any{"k": []string{"x"}, 1: uint8(7), "s": Symbol("s")})
	if err != nil {
		t.Fatalf("FromAny failed: %v", err)
	}
	if !Equal(mixed.Get("1"), Int(7)) || mixed.Get("s").Kind() != KindSymbol {
		t.Errorf("unexpected conversion: %s", mixed)
	}

	if _, err := FromAny(struct{}{}); err == nil {
		t.Error("structs are not supported")
	}

	back, err := ToAny(want)
	if err != nil {
		t.Fatalf("ToAny failed: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"a": "x", "b": []any{int64(1), 2.5}}, back); diff != "" {
		t.Errorf("ToAny mismatch (-want +got):\n%s", diff)
	}
}
