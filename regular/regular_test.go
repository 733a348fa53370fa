package regular

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var valueCmp = cmp.Comparer(Equal)

func people() *Value {
	return List(
		Map(
			FieldVal("name", Str("john")),
			FieldVal("addresses", List(
				Map(FieldVal("state", Str("CA"))),
				Map(FieldVal("state", Str("CT"))),
			)),
		),
		Map(
			FieldVal("name", Str("allan")),
			FieldVal("addresses", List(
				Map(FieldVal("state", Str("CA"))),
				Map(FieldVal("state", Str("WA"))),
			)),
		),
	)
}

func byPerson() *Value {
	return List(Map(
		FieldVal("name", Sym("name")),
		FieldVal("addresses", List(Map(FieldVal("state", Sym("state"))))),
	))
}

// ============================================================
// End-to-end scenarios
// ============================================================

func TestFormat_SingleMatch(t *testing.T) {
	data := Map(FieldVal("name", Str("john")))
	template := Map(FieldVal("name", Sym("name")))

	got, err := Format(template, Match(template, data))
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if diff := cmp.Diff(data, got, valueCmp); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFormat_TwoMatches(t *testing.T) {
	data := List(
		Map(FieldVal("name", Str("john"))),
		Map(FieldVal("name", Str("abe"))),
	)
	template := List(Map(FieldVal("name", Sym("name"))))

	got, err := Format(template, Match(template, data))
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if diff := cmp.Diff(data, got, valueCmp); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFormat_Transposition(t *testing.T) {
	byState := List(Map(
		FieldVal("address", Map(FieldVal("state", Sym("state")))),
		FieldVal("names", List(Sym("name"))),
	))
	want := List(
		Map(
			FieldVal("address", Map(FieldVal("state", Str("CA")))),
			FieldVal("names", List(Str("john"), Str("allan"))),
		),
		Map(
			FieldVal("address", Map(FieldVal("state", Str("CT")))),
			FieldVal("names", List(Str("john"))),
		),
		Map(
			FieldVal("address", Map(FieldVal("state", Str("WA")))),
			FieldVal("names", List(Str("allan"))),
		),
	)

	got, err := Format(byState, Match(byPerson(), people()))
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if diff := cmp.Diff(want, got, valueCmp); diff != "" {
		t.Errorf("transposition mismatch (-want +got):\n%s", diff)
	}
}

func TestFormat_TranspositionRoundTrip(t *testing.T) {
	got, err := Format(byPerson(), Match(byPerson(), people()))
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if diff := cmp.Diff(people(), got, valueCmp); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFormat_EquiJoin(t *testing.T) {
	data := Map(
		FieldVal("people", List(
			Map(FieldVal("id", Int(1)), FieldVal("name", Str("ann"))),
			Map(FieldVal("id", Int(2)), FieldVal("name", Str("bob"))),
			Map(FieldVal("id", Int(3)), FieldVal("name", Str("cat"))),
		)),
		FieldVal("emails", List(
			Map(FieldVal("id", Int(2)), FieldVal("email", Str("bob@x"))),
			Map(FieldVal("id", Int(1)), FieldVal("email", Str("ann@x"))),
			Map(FieldVal("id", Int(4)), FieldVal("email", Str("dan@x"))),
		)),
	)
	template := Map(
		FieldVal("people", List(Map(FieldVal("id", Sym("id")), FieldVal("name", Sym("name"))))),
		FieldVal("emails", List(Map(FieldVal("id", Sym("id")), FieldVal("email", Sym("email"))))),
	)
	joined := List(Map(
		FieldVal("id", Sym("id")),
		FieldVal("name", Sym("name")),
		FieldVal("email", Sym("email")),
	))
	// later positions vary slowest, so the emails order wins
	want := List(
		Map(FieldVal("id", Int(2)), FieldVal("name", Str("bob")), FieldVal("email", Str("bob@x"))),
		Map(FieldVal("id", Int(1)), FieldVal("name", Str("ann")), FieldVal("email", Str("ann@x"))),
	)

	got, err := Format(joined, Match(template, data))
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if diff := cmp.Diff(want, got, valueCmp); diff != "" {
		t.Errorf("join mismatch (-want +got):\n%s", diff)
	}
}

func TestMatch_OptionalMissing(t *testing.T) {
	template := Map(FieldVal("person", Opt(List(Map(FieldVal("name", Sym("name")))))))

	b, err := Match(template, Map()).Single()
	if err != nil {
		t.Fatalf("Single failed: %v", err)
	}
	if len(b) != 0 {
		t.Errorf("expected no bindings, got %s", b)
	}
}

func TestMatch_OptionalConserved(t *testing.T) {
	data := Map(FieldVal("state", Str("CA")))
	template := Map(
		FieldVal("person", Opt(List(Map(FieldVal("name", Sym("name")))))),
		FieldVal("state", Sym("state")),
	)

	partial, err := Instantiate(template, Bindings{"state": Str("CA")})
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	if partial.Get("person").Kind() != KindOptional {
		t.Fatalf("optional with open symbols must stay wrapped, got %s", partial.Get("person"))
	}
	if _, err := Match(partial, data).Single(); err != nil {
		t.Fatalf("partially formatted template should still match: %v", err)
	}

	full, err := Instantiate(partial, Bindings{"name": Str("john")})
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	if full.Get("person").Kind() != KindList {
		t.Fatalf("resolved optional must unwrap, got %s", full.Get("person"))
	}
	_, err = Match(full, data).Single()
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected no match once the optional resolved, got %v", err)
	}
}

func TestMatch_TransformMap(t *testing.T) {
	data := Map(FieldVal("state", Str("California")))
	template := Map(FieldVal("state", MustTransMap(Sym("state"), StrPairs(map[string]string{"CA": "California"}))))

	m := Match(template, data)
	b, err := m.Single()
	if err != nil {
		t.Fatalf("Single failed: %v", err)
	}
	if diff := cmp.Diff(Bindings{"state": Str("CA")}, b, valueCmp); diff != "" {
		t.Errorf("bindings mismatch (-want +got):\n%s", diff)
	}

	got, err := Format(template, m)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if diff := cmp.Diff(data, got, valueCmp); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFormat_StagedResolution(t *testing.T) {
	calls := 0
	double := NullSafe(func(in *Value) (*Value, error) {
		calls++
		n, err := in.AsInt()
		if err != nil {
			return nil, err
		}
		return Int(n * 2), nil
	})
	template := Map(
		FieldVal("state", MustTransMap(Sym("state"), StrPairs(map[string]string{"CA": "California"}))),
		FieldVal("size", Trans(Sym("n"), double, nil)),
		FieldVal("person", Opt(Map(
			FieldVal("name", Sym("name")),
			FieldVal("pair", Trans(List(Sym("n"), Sym("name")), nil, nil)),
		))),
	)
	all := Bindings{"state": Str("CA"), "n": Int(2), "name": Str("john")}

	once, err := Instantiate(template, all)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	callsOnce := calls

	calls = 0
	staged := template
	for _, b := range []Bindings{{"state": Str("CA")}, {"name": Str("john")}, {"n": Int(2)}} {
		staged, err = Instantiate(staged, b)
		if err != nil {
			t.Fatalf("Instantiate failed: %v", err)
		}
	}

	if diff := cmp.Diff(once, staged, valueCmp); diff != "" {
		t.Errorf("staged mismatch (-once +staged):\n%s", diff)
	}
	if callsOnce != 1 || calls != 1 {
		t.Errorf("forward applied %d times at once and %d times staged, want 1 and 1", callsOnce, calls)
	}
	want := Map(
		FieldVal("state", Str("California")),
		FieldVal("size", Int(4)),
		FieldVal("person", Map(
			FieldVal("name", Str("john")),
			FieldVal("pair", List(Int(2), Str("john"))),
		)),
	)
	if diff := cmp.Diff(want, staged, valueCmp); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestFormat_StagedThenMatch(t *testing.T) {
	template := Map(
		FieldVal("state", MustTransMap(Sym("state"), StrPairs(map[string]string{"CA": "California", "WA": "Washington"}))),
		FieldVal("person", Opt(Map(FieldVal("name", Sym("name"))))),
	)
	data := Map(
		FieldVal("state", Str("Washington")),
		FieldVal("person", Map(FieldVal("name", Str("allan")))),
	)

	partial, err := Instantiate(template, Bindings{"name": Str("allan")})
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	m := Match(partial, data)
	b, err := m.Single()
	if err != nil {
		t.Fatalf("Single failed: %v", err)
	}
	if diff := cmp.Diff(Bindings{"state": Str("WA")}, b, valueCmp); diff != "" {
		t.Errorf("bindings mismatch (-want +got):\n%s", diff)
	}
	got, err := Format(partial, m)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if diff := cmp.Diff(data, got, valueCmp); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestFormat_TransformErrorSurfaces(t *testing.T) {
	toInt := DefaultFuncs()["int"]
	out := Map(FieldVal("amount", TransNamed(Sym("amount"), "int", toInt.Forward, toInt.Reverse)))
	in := Map(FieldVal("a", Sym("amount")))
	data := Map(FieldVal("a", Str("four hundred")))

	_, err := Format(out, Match(in, data))
	if !errors.Is(err, ErrTransform) {
		t.Fatalf("expected transform error, got %v", err)
	}
	var te *TransformError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransformError, got %T", err)
	}
	if te.Direction != Forward {
		t.Errorf("direction = %s, want forward", te.Direction)
	}
	if diff := cmp.Diff([]Symbol{"amount"}, te.Symbols); diff != "" {
		t.Errorf("symbols mismatch (-want +got):\n%s", diff)
	}

	_, err = Instantiate(out, Bindings{"amount": Str("x")})
	if !errors.Is(err, ErrTransform) {
		t.Fatalf("Instantiate: expected transform error, got %v", err)
	}
}

func TestFormat_IndependentSequences(t *testing.T) {
	keys := []string{"u", "v", "w", "x", "y", "z"}
	const n = 1000

	data := make([]MapEntry, len(keys))
	template := make([]MapEntry, len(keys))
	for k, key := range keys {
		items := make([]*Value, n)
		for i := range items {
			items[i] = Float(float64(i) + float64(k)/10 + 0.5)
		}
		data[k] = FieldVal(key, List(items...))
		template[k] = FieldVal(key, List(Sym(key)))
	}
	d, tmpl := Map(data...), Map(template...)

	got, err := Format(tmpl, Match(tmpl, d))
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if !Equal(d, got) {
		t.Errorf("round trip mismatch: got %s", EmitWithOptions(got, EmitOptions{MaxLen: 300}))
	}
}

func TestUnify_KeyJoinScales(t *testing.T) {
	const n = 2000
	left := make([]*Value, n)
	right := make([]*Value, n)
	for i := 0; i < n; i++ {
		left[i] = Map(FieldVal("id", Int(int64(i))), FieldVal("l", Str(fmt.Sprintf("l%d", i))))
		right[i] = Map(FieldVal("id", Int(int64(n-1-i))), FieldVal("r", Str(fmt.Sprintf("r%d", n-1-i))))
	}
	data := Map(FieldVal("left", List(left...)), FieldVal("right", List(right...)))
	template := Map(
		FieldVal("left", List(Map(FieldVal("id", Sym("id")), FieldVal("l", Sym("l"))))),
		FieldVal("right", List(Map(FieldVal("id", Sym("id")), FieldVal("r", Sym("r"))))),
	)

	sets, err := Match(template, data).All()
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(sets) != n {
		t.Fatalf("expected %d joined sets, got %d", n, len(sets))
	}
	for i, b := range sets {
		id, _ := b["id"].AsInt()
		if id != int64(n-1-i) {
			t.Fatalf("set %d: id = %d, want right order", i, id)
		}
		if l, _ := b["l"].AsStr(); l != fmt.Sprintf("l%d", id) {
			t.Errorf("set %d: l = %s", i, l)
		}
		if r, _ := b["r"].AsStr(); r != fmt.Sprintf("r%d", id) {
			t.Errorf("set %d: r = %s", i, r)
		}
	}
}

// ============================================================
// Match handle
// ============================================================

func TestMatcher_Queries(t *testing.T) {
	m := Match(byPerson(), people())

	names, err := m.Values("name")
	if err != nil {
		t.Fatalf("Values failed: %v", err)
	}
	if diff := cmp.Diff([]*Value{Str("john"), Str("allan")}, names, valueCmp); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	first, err := m.Get("state")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !Equal(first, Str("CA")) {
		t.Errorf("Get(state) = %s, want CA", first)
	}

	if _, err := m.Get("missing"); !errors.Is(err, ErrUnknownSymbol) {
		t.Errorf("Get(missing): expected ErrUnknownSymbol, got %v", err)
	}

	all, err := m.All()
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("expected 4 binding sets, got %d: %v", len(all), all)
	}

	_, err = m.Single()
	var me *MisuseError
	if !errors.As(err, &me) || me.Results != 4 {
		t.Errorf("Single: expected misuse with 4 results, got %v", err)
	}

	first4, err := m.First()
	if err != nil {
		t.Fatalf("First failed: %v", err)
	}
	if diff := cmp.Diff(Bindings{"name": Str("john"), "state": Str("CA")}, first4, valueCmp); diff != "" {
		t.Errorf("First mismatch (-want +got):\n%s", diff)
	}
}

func TestCanMatch(t *testing.T) {
	template := Map(FieldVal("kind", Str("person")), FieldVal("name", Sym("name")))
	if !CanMatch(template, Map(FieldVal("kind", Str("person")), FieldVal("name", Str("x")))) {
		t.Error("expected match")
	}
	if CanMatch(template, Map(FieldVal("kind", Str("robot")))) {
		t.Error("expected no match")
	}
}

func TestFormat_MisuseAtRoot(t *testing.T) {
	template := Map(FieldVal("name", Sym("name")))
	m := Match(byPerson(), people())

	_, err := Format(template, m)
	var me *MisuseError
	if !errors.As(err, &me) {
		t.Fatalf("expected *MisuseError, got %v", err)
	}
	if me.Results != 2 {
		t.Errorf("Results = %d, want 2", me.Results)
	}

	all, err := FormatAll(template, m)
	if err != nil {
		t.Fatalf("FormatAll failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("FormatAll returned %d results, want 2", len(all))
	}
}

func TestFormat_RootNoMatch(t *testing.T) {
	template := Map(FieldVal("kind", Str("person")), FieldVal("name", Sym("name")))
	data := Map(FieldVal("kind", Str("robot")), FieldVal("name", Str("r2")))

	_, err := Format(template, Match(template, data))
	var nm *NoMatchError
	if !errors.As(err, &nm) {
		t.Fatalf("expected *NoMatchError, got %v", err)
	}
	if !Equal(nm.Template, Str("person")) {
		t.Errorf("error should name the failing element, got %s", nm.Template)
	}
}

func TestFormat_ListRootNoMatch(t *testing.T) {
	template := List(Map(FieldVal("kind", Str("a")), FieldVal("name", Sym("name"))))
	data := List(Map(FieldVal("kind", Str("b")), FieldVal("name", Str("john"))))
	m := Match(template, data)

	for _, out := range []*Value{List(Sym("name")), template} {
		got, err := Format(out, m)
		if !errors.Is(err, ErrNoMatch) {
			t.Errorf("Format(%s): expected no match, got %s, %v", out, got, err)
		}
		if _, err := FormatAll(out, m); !errors.Is(err, ErrNoMatch) {
			t.Errorf("FormatAll(%s): expected no match, got %v", out, err)
		}
	}
}

func TestFormat_IndependentListsOrder(t *testing.T) {
	template := Map(FieldVal("u", List(Sym("u"))), FieldVal("v", List(Sym("v"))))
	data := Map(FieldVal("u", List(Int(1), Int(2))), FieldVal("v", List(Int(3), Int(4))))
	out := List(Map(FieldVal("u", Sym("u")), FieldVal("v", Sym("v"))))

	got, err := Format(out, Match(template, data))
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	pair := func(u, v int64) *Value { return Map(FieldVal("u", Int(u)), FieldVal("v", Int(v))) }
	want := List(pair(1, 3), pair(2, 3), pair(1, 4), pair(2, 4))
	if diff := cmp.Diff(want, got, valueCmp); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatEach(t *testing.T) {
	template := Map(FieldVal("n", Sym("n")))
	got, err := FormatEach(template, []Bindings{{"n": Int(1)}, {"n": Int(2)}})
	if err != nil {
		t.Fatalf("FormatEach failed: %v", err)
	}
	want := []*Value{Map(FieldVal("n", Int(1))), Map(FieldVal("n", Int(2)))}
	if diff := cmp.Diff(want, got, valueCmp); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestPlaceholders(t *testing.T) {
	template := Map(
		FieldVal("name", Sym("name")),
		FieldVal("age", Trans(Sym("age"), Identity, Identity)),
		FieldVal("tags", List(Sym("tag"), Sym("name"))),
		FieldVal("nick", Opt(Sym("nick"))),
	)

	if diff := cmp.Diff([]Symbol{"name", "age", "tag", "nick"}, Symbols(template)); diff != "" {
		t.Errorf("Symbols mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Symbol{"name", "age", "nick"}, singles(template)); diff != "" {
		t.Errorf("singles mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		name        string
		v           *Value
		has, isLeaf bool
	}{
		{"symbol", Sym("x"), true, true},
		{"open transform", Trans(Sym("x"), Identity, Identity), true, true},
		{"closed transform", Trans(Str("x"), Identity, Identity), false, false},
		{"optional", Opt(Sym("x")), true, false},
		{"nested", Map(FieldVal("a", List(Int(1), Sym("x")))), true, false},
		{"concrete", Map(FieldVal("a", List(Int(1)))), false, false},
		{"nil", nil, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasPlaceholder(tt.v); got != tt.has {
				t.Errorf("HasPlaceholder = %v, want %v", got, tt.has)
			}
			if got := IsPlaceholder(tt.v); got != tt.isLeaf {
				t.Errorf("IsPlaceholder = %v, want %v", got, tt.isLeaf)
			}
		})
	}
}
