package regular

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestInstantiate_SharesUnchangedSubtrees(t *testing.T) {
	constant := Map(FieldVal("version", Int(2)))
	open := Map(FieldVal("other", Sym("other")))
	template := Map(
		FieldVal("meta", constant),
		FieldVal("name", Sym("name")),
		FieldVal("rest", open),
	)

	got, err := Instantiate(template, Bindings{"name": Str("john")})
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	if got.Get("meta") != constant {
		t.Error("placeholder-free subtree should be shared")
	}
	if got.Get("rest") != open {
		t.Error("subtree with unbound symbols only should be shared")
	}
	if template.Get("name").Kind() != KindSymbol {
		t.Error("template must not be modified")
	}

	same, err := Instantiate(template, Bindings{"unrelated": Int(1)})
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	if same != template {
		t.Error("instantiating nothing should return the template itself")
	}
}

func TestInstantiate_Wrappers(t *testing.T) {
	pairs := StrPairs(map[string]string{"CA": "California"})

	tests := []struct {
		name     string
		template *Value
		b        Bindings
		want     *Value
		wantKind Kind
	}{
		{
			name:     "transform resolves",
			template: MustTransMap(Sym("s"), pairs),
			b:        Bindings{"s": Str("CA")},
			want:     Str("California"),
		},
		{
			name:     "transform stays open",
			template: Trans(List(Sym("a"), Sym("b")), nil, nil),
			b:        Bindings{"a": Int(1)},
			wantKind: KindTransform,
		},
		{
			name:     "transform with null binding",
			template: MustTransMap(Sym("s"), pairs),
			b:        Bindings{"s": Null()},
			want:     Null(),
		},
		{
			name:     "optional unwraps",
			template: Opt(Map(FieldVal("n", Sym("n")))),
			b:        Bindings{"n": Int(1)},
			want:     Map(FieldVal("n", Int(1))),
		},
		{
			name:     "optional stays wrapped",
			template: Opt(Map(FieldVal("n", Sym("n")), FieldVal("m", Sym("m")))),
			b:        Bindings{"n": Int(1)},
			wantKind: KindOptional,
		},
		{
			name:     "list elements substitute",
			template: List(Sym("a"), Str("lit"), Sym("a")),
			b:        Bindings{"a": Int(5)},
			want:     List(Int(5), Str("lit"), Int(5)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Instantiate(tt.template, tt.b)
			if err != nil {
				t.Fatalf("Instantiate failed: %v", err)
			}
			if tt.want != nil {
				if diff := cmp.Diff(tt.want, got, valueCmp); diff != "" {
					t.Errorf("mismatch (-want +got):\n%s", diff)
				}
				return
			}
			if got.Kind() != tt.wantKind {
				t.Errorf("kind = %s, want %s (%s)", got.Kind(), tt.wantKind, got)
			}
		})
	}
}

func TestFormat_OptionalInsideList(t *testing.T) {
	match := List(Map(
		FieldVal("name", Sym("name")),
		FieldVal("nick", Opt(Sym("nick"))),
	))
	data := List(
		Map(FieldVal("name", Str("john")), FieldVal("nick", Str("jj"))),
		Map(FieldVal("name", Str("abe"))),
	)
	out := List(Map(FieldVal("who", Sym("name")), FieldVal("aka", Opt(Sym("nick")))))

	got, err := Format(out, Match(match, data))
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	want := List(
		Map(FieldVal("who", Str("john")), FieldVal("aka", Str("jj"))),
		Map(FieldVal("who", Str("abe")), FieldVal("aka", Null())),
	)
	if diff := cmp.Diff(want, got, valueCmp); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	cleaned, err := CleanWithOpts(got, CleanOpts{DropNulls: true})
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	wantClean := List(
		Map(FieldVal("who", Str("john")), FieldVal("aka", Str("jj"))),
		Map(FieldVal("who", Str("abe"))),
	)
	if diff := cmp.Diff(wantClean, cleaned, valueCmp); diff != "" {
		t.Errorf("clean mismatch (-want +got):\n%s", diff)
	}
}

func TestFormat_NestedListSkipsUnmatched(t *testing.T) {
	match := Map(FieldVal("orders", List(Map(
		FieldVal("id", Sym("id")),
		FieldVal("lines", List(Map(FieldVal("sku", Sym("sku"))))),
	))))
	data := Map(FieldVal("orders", List(
		Map(FieldVal("id", Int(1)), FieldVal("lines", List(
			Map(FieldVal("sku", Str("a"))),
			Map(FieldVal("sku", Str("b"))),
		))),
		Map(FieldVal("id", Int(2)), FieldVal("lines", List(
			Map(FieldVal("sku", Str("b"))),
		))),
	)))
	bySku := List(Map(
		FieldVal("sku", Sym("sku")),
		FieldVal("orders", List(Sym("id"))),
	))

	got, err := Format(bySku, Match(match, data))
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	want := List(
		Map(FieldVal("sku", Str("a")), FieldVal("orders", List(Int(1)))),
		Map(FieldVal("sku", Str("b")), FieldVal("orders", List(Int(1), Int(2)))),
	)
	if diff := cmp.Diff(want, got, valueCmp); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFormat_NestedListSkipsFailedRefinement(t *testing.T) {
	// Texas has no table entry, so it matches as a null state. Formatting
	// the null state back gives null, which no person matches, and the
	// names under that state are skipped.
	match := List(Map(
		FieldVal("state", MustTransMap(Sym("state"), StrPairs(map[string]string{"CA": "California"}))),
		FieldVal("name", Sym("name")),
	))
	data := List(
		Map(FieldVal("state", Str("California")), FieldVal("name", Str("john"))),
		Map(FieldVal("state", Str("Texas")), FieldVal("name", Str("bob"))),
	)
	byState := List(Map(
		FieldVal("state", Sym("state")),
		FieldVal("names", List(Sym("name"))),
	))

	got, err := Format(byState, Match(match, data))
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	want := List(
		Map(FieldVal("state", Str("CA")), FieldVal("names", List(Str("john")))),
		Map(FieldVal("state", Null()), FieldVal("names", List())),
	)
	if diff := cmp.Diff(want, got, valueCmp); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFormat_ConstantListElements(t *testing.T) {
	match := Map(FieldVal("n", Sym("n")))
	out := Map(FieldVal("values", List(Str("fixed"), Sym("n"))))

	got, err := Format(out, Match(match, Map(FieldVal("n", Int(3)))))
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	want := Map(FieldVal("values", List(Str("fixed"), Int(3))))
	if diff := cmp.Diff(want, got, valueCmp); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		template *Value
		opts     CleanOpts
		want     *Value
	}{
		{
			name:     "drops symbols from maps",
			template: Map(FieldVal("a", Int(1)), FieldVal("b", Sym("b"))),
			want:     Map(FieldVal("a", Int(1))),
		},
		{
			name:     "keeps emptied maps",
			template: Map(FieldVal("inner", Map(FieldVal("b", Sym("b"))))),
			want:     Map(FieldVal("inner", Map())),
		},
		{
			name:     "removes emptied lists",
			template: Map(FieldVal("a", Int(1)), FieldVal("l", List(Sym("x"), Sym("y")))),
			want:     Map(FieldVal("a", Int(1))),
		},
		{
			name:     "keeps lists that were empty",
			template: Map(FieldVal("l", List())),
			want:     Map(FieldVal("l", List())),
		},
		{
			name:     "drops symbols from lists",
			template: List(Int(1), Sym("x"), Int(2)),
			want:     List(Int(1), Int(2)),
		},
		{
			name:     "unwraps optional",
			template: Map(FieldVal("p", Opt(Map(FieldVal("n", Str("john")), FieldVal("m", Sym("m")))))),
			want:     Map(FieldVal("p", Map(FieldVal("n", Str("john"))))),
		},
		{
			name:     "drops open transform",
			template: Map(FieldVal("s", MustTransMap(Sym("s"), StrPairs(map[string]string{"CA": "California"})))),
			want:     Map(),
		},
		{
			name:     "keeps nulls by default",
			template: Map(FieldVal("n", Null())),
			want:     Map(FieldVal("n", Null())),
		},
		{
			name:     "drops nulls on request",
			template: Map(FieldVal("n", Null()), FieldVal("v", Int(1))),
			opts:     CleanOpts{DropNulls: true},
			want:     Map(FieldVal("v", Int(1))),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanWithOpts(tt.template, tt.opts)
			if err != nil {
				t.Fatalf("Clean failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got, valueCmp); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClean_StrippedRoot(t *testing.T) {
	for _, template := range []*Value{Sym("x"), List(Sym("x")), Opt(Sym("x"))} {
		got, err := Clean(template)
		if err != nil {
			t.Fatalf("Clean(%s) failed: %v", template, err)
		}
		if got != nil {
			t.Errorf("Clean(%s) = %s, want nil", template, got)
		}
	}
}

func TestClean_ResolvedTransformApplies(t *testing.T) {
	boom := NullSafe(func(in *Value) (*Value, error) { return nil, errors.New("boom") })
	_, err := Clean(Map(FieldVal("v", Trans(Int(1), boom, nil))))
	if !errors.Is(err, ErrTransform) {
		t.Fatalf("expected transform error, got %v", err)
	}
}
