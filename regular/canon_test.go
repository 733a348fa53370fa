package regular

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		name string
		v    *Value
		want string
	}{
		{"null", nil, "∅"},
		{"bool", Bool(true), "t"},
		{"int", Int(-42), "-42"},
		{"integral float", Float(3.0), "3"},
		{"negative zero", Float(math.Copysign(0, -1)), "0"},
		{"float", Float(2.5e-10), "2.5e-10"},
		{"nan", Float(math.NaN()), "NaN"},
		{"bare string", Str("hello"), "hello"},
		{"reserved word", Str("true"), `"true"`},
		{"spaced string", Str("two words"), `"two words"`},
		{"numeric string", Str("42"), `"42"`},
		{"control char", Str("a\x01"), `"a\u0001"`},
		{"list", List(Int(1), Str("a")), "[1 a]"},
		{"map sorted", Map(FieldVal("b", Int(1)), FieldVal("a", Int(2))), "{a:2 b:1}"},
		{"symbol", Sym("x"), `$S("x")`},
		{"optional", Opt(Sym("x")), `$O($S("x"))`},
		{"transform", Trans(Sym("x"), nil, nil), `$T($S("x"))`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Canonical(tt.v); got != tt.want {
				t.Errorf("Canonical() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	tr := Trans(Sym("x"), nil, nil)

	tests := []struct {
		name string
		a, b *Value
		want bool
	}{
		{"nil is null", nil, Null(), true},
		{"int float", Int(1), Float(1.0), true},
		{"int fractional float", Int(1), Float(1.5), false},
		{"large int float", Int(1 << 62), Float(1 << 62), true},
		{"nan", Float(math.NaN()), Float(math.NaN()), true},
		{"str vs symbol", Str("x"), Sym("x"), false},
		{"map order", Map(FieldVal("a", Int(1)), FieldVal("b", Int(2))), Map(FieldVal("b", Int(2)), FieldVal("a", Int(1))), true},
		{"map null vs missing", Map(FieldVal("a", Null())), Map(FieldVal("b", Null())), false},
		{"list order", List(Int(1), Int(2)), List(Int(2), Int(1)), false},
		{"same transform", tr, tr, true},
		{"distinct transforms", Trans(Sym("x"), nil, nil), Trans(Sym("x"), nil, nil), false},
		{"optional", Opt(Int(1)), Opt(Float(1)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := Equal(tt.b, tt.a); got != tt.want {
				t.Errorf("Equal is not symmetric for %s, %s", tt.a, tt.b)
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	a := Map(FieldVal("x", Int(1)), FieldVal("y", List(Str("s"))))
	b := Map(FieldVal("y", List(Str("s"))), FieldVal("x", Float(1)))
	c := Map(FieldVal("x", Int(2)), FieldVal("y", List(Str("s"))))

	if Fingerprint(a) != Fingerprint(b) {
		t.Error("equal values must share a fingerprint")
	}
	if Fingerprint(a) == Fingerprint(c) {
		t.Error("different values share a fingerprint")
	}
	d := Fingerprint(a)
	if len(d.String()) != 64 || len(d.Short()) != 16 {
		t.Errorf("unexpected digest lengths: %s %s", d, d.Short())
	}
	if !strings.HasPrefix(d.String(), d.Short()) {
		t.Error("Short should be a prefix of String")
	}
}

func TestEmit(t *testing.T) {
	v := Map(
		FieldVal("name", Sym("name")),
		FieldVal("tags", List(Str("x"), Str("two words"))),
		FieldVal("age", Opt(Trans(Sym("age"), nil, nil))),
		FieldVal("h", Float(2)),
		FieldVal("n", Null()),
	)
	want := `{name:S(name) tags:[x "two words"] age:Opt(Trans(S(age))) h:2.0 n:∅}`
	if got := Emit(v); got != want {
		t.Errorf("Emit() = %s, want %s", got, want)
	}
	if got := v.String(); got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}

	sorted := EmitWithOptions(Map(FieldVal("b", Int(1)), FieldVal("a", Int(2))), EmitOptions{SortFields: true})
	if sorted != "{a:2 b:1}" {
		t.Errorf("sorted emit = %s", sorted)
	}

	pretty := EmitPretty(Map(FieldVal("a", List(Int(1)))))
	if pretty != "{\n  a:[\n    1\n  ]\n}" {
		t.Errorf("pretty emit = %q", pretty)
	}

	long := EmitWithOptions(Str(strings.Repeat("é", 20)), EmitOptions{MaxLen: 7})
	if !strings.HasSuffix(long, "...") || strings.ContainsRune(long, '�') {
		t.Errorf("truncation broke a rune: %q", long)
	}
}

func TestTransMap_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		pairs []MapPair
	}{
		{"duplicate key", []MapPair{{From: Str("a"), To: Int(1)}, {From: Str("a"), To: Int(2)}}},
		{"duplicate value", []MapPair{{From: Str("a"), To: Int(1)}, {From: Str("b"), To: Int(1)}}},
		{"int and float key collide", []MapPair{{From: Int(1), To: Str("x")}, {From: Float(1), To: Str("y")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := TransMap(Sym("s"), tt.pairs); !errors.Is(err, ErrInvalidTransform) {
				t.Errorf("expected ErrInvalidTransform, got %v", err)
			}
		})
	}

	defer func() {
		if recover() == nil {
			t.Error("MustTransMap should panic on an invalid table")
		}
	}()
	MustTransMap(Sym("s"), tests[0].pairs)
}

func TestTransMap_Directions(t *testing.T) {
	v := MustTransMap(Sym("s"), StrPairs(map[string]string{"CA": "California", "WA": "Washington"}))
	tr := v.Transform()
	if tr.Strict() || len(tr.Pairs()) != 2 || tr.Pairs()[0].From.strVal != "CA" {
		t.Fatalf("unexpected transform metadata: %+v", tr.Pairs())
	}

	got, err := tr.apply(Forward, Str("WA"), v.Inner())
	if err != nil || !Equal(got, Str("Washington")) {
		t.Errorf("forward = %s, %v", got, err)
	}
	got, err = tr.apply(Reverse, Str("California"), v.Inner())
	if err != nil || !Equal(got, Str("CA")) {
		t.Errorf("reverse = %s, %v", got, err)
	}

	strict, _ := TransMapWithOpts(Sym("s"), StrPairs(map[string]string{"CA": "California"}), MapOpts{Strict: true})
	_, err = strict.Transform().apply(Forward, Str("TX"), strict.Inner())
	var te *TransformError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransformError, got %v", err)
	}
	if te.Direction != Forward || len(te.Symbols) != 1 || te.Symbols[0] != "s" {
		t.Errorf("unexpected error detail: %+v", te)
	}
}

func TestDefaultFuncs(t *testing.T) {
	funcs := DefaultFuncs()

	tests := []struct {
		name string
		fn   TransformFunc
		in   *Value
		want *Value
	}{
		{"int from string", funcs["int"].Forward, Str(" 41 "), Int(41)},
		{"int from float", funcs["int"].Forward, Float(3.9), Int(3)},
		{"int passes null", funcs["int"].Forward, Null(), Null()},
		{"float from int", funcs["float"].Forward, Int(2), Float(2)},
		{"str from float", funcs["str"].Forward, Float(0.5), Str("0.5")},
		{"str reverse parses", funcs["str"].Reverse, Str("12"), Int(12)},
		{"str reverse keeps text", funcs["str"].Reverse, Str("abc"), Str("abc")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(tt.in, true)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !Equal(got, tt.want) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := funcs["int"].Forward(Str("forty"), true); err == nil {
		t.Error("non-numeric string should not convert to int")
	}
}

func TestSymbolSet(t *testing.T) {
	all := AllSymbols()
	if !all.IsAll() || all.IsEmpty() || !all.Has("anything") {
		t.Error("zero set should contain every symbol")
	}
	only := OnlySymbols("a", "b")
	if only.IsAll() || !only.Has("a") || only.Has("c") {
		t.Error("restricted set membership is wrong")
	}
	if !OnlySymbols().IsEmpty() {
		t.Error("OnlySymbols() should be empty")
	}
	if !only.anyIn(Map(FieldVal("k", Opt(Sym("b"))))) || only.anyIn(List(Sym("z"))) {
		t.Error("anyIn should look through wrappers")
	}
}
