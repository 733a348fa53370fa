package regular

import (
	"errors"
)

// ============================================================
// Single-binding substitution
// ============================================================

// Instantiate substitutes one binding set into template. Symbols missing
// from b are left in place, so the result can be matched or formatted
// again. Transform nodes apply their forward function only once their
// contents are placeholder-free, otherwise they are re-wrapped around the
// partially substituted contents; Optional nodes unwrap under the same
// rule. Unchanged subtrees are shared with template.
func Instantiate(template *Value, b Bindings) (*Value, error) {
	v, _, err := instantiate(template, b)
	return v, err
}

// FormatBindings formats template with a single binding set.
func FormatBindings(template *Value, b Bindings) (*Value, error) {
	return Instantiate(template, b)
}

// FormatEach formats template once per binding set.
func FormatEach(template *Value, sets []Bindings) ([]*Value, error) {
	out := make([]*Value, 0, len(sets))
	for _, b := range sets {
		v, err := Instantiate(template, b)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// instantiate returns the substituted tree and whether a placeholder
// remains in it.
func instantiate(t *Value, b Bindings) (*Value, bool, error) {
	switch t.Kind() {
	case KindSymbol:
		if v, ok := b[Symbol(t.strVal)]; ok {
			return orNull(v), false, nil
		}
		return t, true, nil

	case KindTransform:
		inner, open, err := instantiate(t.inner, b)
		if err != nil {
			return nil, false, err
		}
		return finishTransform(t, inner, open)

	case KindOptional:
		inner, open, err := instantiate(t.inner, b)
		if err != nil {
			return nil, false, err
		}
		return finishOptional(t, inner, open), open, nil

	case KindList:
		var items []*Value
		anyOpen := false
		for i, item := range t.listVal {
			nv, open, err := instantiate(item, b)
			if err != nil {
				return nil, false, err
			}
			anyOpen = anyOpen || open
			if nv != item && items == nil {
				items = make([]*Value, len(t.listVal))
				copy(items, t.listVal[:i])
			}
			if items != nil {
				items[i] = nv
			}
		}
		if items == nil {
			return t, anyOpen, nil
		}
		return &Value{kind: KindList, listVal: items}, anyOpen, nil

	case KindMap:
		var entries []MapEntry
		anyOpen := false
		for i, e := range t.mapVal {
			nv, open, err := instantiate(e.Value, b)
			if err != nil {
				return nil, false, err
			}
			anyOpen = anyOpen || open
			if nv != e.Value && entries == nil {
				entries = make([]MapEntry, len(t.mapVal))
				copy(entries, t.mapVal[:i])
			}
			if entries != nil {
				entries[i] = MapEntry{Key: e.Key, Value: nv}
			}
		}
		if entries == nil {
			return t, anyOpen, nil
		}
		return &Value{kind: KindMap, mapVal: entries}, anyOpen, nil

	default:
		return t, false, nil
	}
}

// finishTransform re-wraps t around inner while placeholders remain and
// applies the forward function once they are gone.
func finishTransform(t, inner *Value, open bool) (*Value, bool, error) {
	if open {
		if inner == t.inner {
			return t, true, nil
		}
		return &Value{kind: KindTransform, inner: inner, trans: t.trans}, true, nil
	}
	out, err := t.trans.apply(Forward, inner, t.inner)
	if err != nil {
		return nil, false, err
	}
	return out, false, nil
}

func finishOptional(t, inner *Value, open bool) *Value {
	if !open {
		return inner
	}
	if inner == t.inner {
		return t
	}
	return &Value{kind: KindOptional, inner: inner}
}

// ============================================================
// Multi-valued formatting
// ============================================================

// Format materializes template from the bindings of m.
//
// A list template is resolved element by element: each element expands to
// one output per distinct combination of the symbols it uses outside nested
// lists, and the outputs are concatenated. Any other template must expand
// to exactly one result; zero or several results are a *MisuseError.
//
// A failed match at the root is returned as the *NoMatchError, for list
// roots too. Elements of nested lists whose refined match fails are
// skipped.
func Format(template *Value, m *Matcher) (*Value, error) {
	if template.Kind() == KindList {
		v, _, err := resolveSequences(template, &lazyMatch{base: m, root: true})
		return v, err
	}
	results, err := expand(template, m)
	if err != nil {
		return nil, err
	}
	if len(results) != 1 {
		return nil, &MisuseError{Op: "Format", Results: len(results)}
	}
	return results[0], nil
}

// FormatAll is Format without the single-result check on non-list roots.
// A list root yields one result.
func FormatAll(template *Value, m *Matcher) ([]*Value, error) {
	if template.Kind() == KindList {
		v, err := Format(template, m)
		if err != nil {
			return nil, err
		}
		return []*Value{v}, nil
	}
	return expand(template, m)
}

// lazyMatch is the handle refined by one binding set. The refined template
// is only built when a nested list needs it. root marks the handle of a
// list root, whose elements may not be skipped.
type lazyMatch struct {
	base *Matcher
	b    Bindings
	m    *Matcher
	root bool
}

func (l *lazyMatch) get() (*Matcher, error) {
	if l.m != nil {
		return l.m, nil
	}
	if len(l.b) == 0 {
		l.m = l.base
		return l.m, nil
	}
	t, err := Instantiate(l.base.template, l.b)
	if err != nil {
		return nil, err
	}
	l.m = &Matcher{template: t, data: l.base.data}
	return l.m, nil
}

// expand formats a template position that is not itself a list. It
// returns one result per binding set of the symbols t uses outside nested
// lists.
func expand(t *Value, m *Matcher) ([]*Value, error) {
	sets, err := Unify(m.template, m.data, OnlySymbols(singles(t)...))
	if err != nil {
		return nil, err
	}
	out := make([]*Value, 0, len(sets))
	for _, b := range sets {
		nt, err := Instantiate(t, b)
		if err != nil {
			return nil, err
		}
		v, _, err := resolveSequences(nt, &lazyMatch{base: m, b: b})
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// resolveSequences expands every list inside t against the refined handle.
// It returns the resolved tree and whether a placeholder remains.
func resolveSequences(t *Value, lm *lazyMatch) (*Value, bool, error) {
	switch t.Kind() {
	case KindSymbol:
		return t, true, nil

	case KindTransform:
		inner, open, err := resolveSequences(t.inner, lm)
		if err != nil {
			return nil, false, err
		}
		return finishTransform(t, inner, open)

	case KindOptional:
		inner, open, err := resolveSequences(t.inner, lm)
		if err != nil {
			return nil, false, err
		}
		return finishOptional(t, inner, open), open, nil

	case KindList:
		if len(t.listVal) == 0 {
			return t, false, nil
		}
		m, err := lm.get()
		if err != nil {
			return nil, false, err
		}
		var items []*Value
		for _, elem := range t.listVal {
			results, err := expand(elem, m)
			if err != nil {
				if errors.Is(err, ErrNoMatch) && !lm.root {
					continue
				}
				return nil, false, err
			}
			items = append(items, results...)
		}
		anyOpen := false
		for _, item := range items {
			if HasPlaceholder(item) {
				anyOpen = true
				break
			}
		}
		if items == nil {
			items = []*Value{}
		}
		return &Value{kind: KindList, listVal: items}, anyOpen, nil

	case KindMap:
		var entries []MapEntry
		anyOpen := false
		for i, e := range t.mapVal {
			nv, open, err := resolveSequences(e.Value, lm)
			if err != nil {
				return nil, false, err
			}
			anyOpen = anyOpen || open
			if nv != e.Value && entries == nil {
				entries = make([]MapEntry, len(t.mapVal))
				copy(entries, t.mapVal[:i])
			}
			if entries != nil {
				entries[i] = MapEntry{Key: e.Key, Value: nv}
			}
		}
		if entries == nil {
			return t, anyOpen, nil
		}
		return &Value{kind: KindMap, mapVal: entries}, anyOpen, nil

	default:
		return t, false, nil
	}
}

// ============================================================
// Clean
// ============================================================

// CleanOpts configures Clean.
type CleanOpts struct {
	// DropNulls also removes map entries whose value is null.
	DropNulls bool
}

// Clean strips unresolved placeholders from a template. Symbols and
// transforms over unresolved contents are dropped from their parent,
// Optionals unwrap, maps emptied by stripping are kept and lists emptied by
// stripping are removed. A fully stripped root returns nil.
func Clean(template *Value) (*Value, error) {
	return CleanWithOpts(template, CleanOpts{})
}

// CleanWithOpts is Clean with options.
func CleanWithOpts(template *Value, opts CleanOpts) (*Value, error) {
	v, keep, err := clean(template, opts)
	if err != nil || !keep {
		return nil, err
	}
	return v, nil
}

func clean(t *Value, opts CleanOpts) (*Value, bool, error) {
	switch t.Kind() {
	case KindSymbol:
		return nil, false, nil

	case KindTransform:
		if HasPlaceholder(t.inner) {
			return nil, false, nil
		}
		inner, keep, err := clean(t.inner, opts)
		if err != nil || !keep {
			return nil, keep, err
		}
		out, err := t.trans.apply(Forward, inner, t.inner)
		if err != nil {
			return nil, false, err
		}
		return out, true, nil

	case KindOptional:
		return clean(t.inner, opts)

	case KindList:
		if len(t.listVal) == 0 {
			return t, true, nil
		}
		items := make([]*Value, 0, len(t.listVal))
		for _, item := range t.listVal {
			nv, keep, err := clean(item, opts)
			if err != nil {
				return nil, false, err
			}
			if keep {
				items = append(items, nv)
			}
		}
		if len(items) == 0 {
			return nil, false, nil
		}
		return &Value{kind: KindList, listVal: items}, true, nil

	case KindMap:
		entries := make([]MapEntry, 0, len(t.mapVal))
		for _, e := range t.mapVal {
			nv, keep, err := clean(e.Value, opts)
			if err != nil {
				return nil, false, err
			}
			if !keep || (opts.DropNulls && nv.IsNull()) {
				continue
			}
			entries = append(entries, MapEntry{Key: e.Key, Value: nv})
		}
		return &Value{kind: KindMap, mapVal: entries}, true, nil

	default:
		return t, true, nil
	}
}
