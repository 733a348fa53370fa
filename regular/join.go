package regular

import (
	"sort"
	"strings"
)

// Join combines independent lists of partial binding sets into their
// equi-join: two sets combine iff every symbol they share is bound to equal
// values, and the combination is their union.
//
// Empty input gives empty output. Empty lists carry no constraint and are
// skipped. A single list is returned unchanged. The first position varies
// fastest: the join of the later positions is the outer loop and each
// earlier position's candidates the inner one, both in input order. The
// result is deduplicated.
func Join(partials [][]Bindings) []Bindings {
	if len(partials) == 0 {
		return nil
	}
	if len(partials) == 1 && len(partials[0]) > 0 {
		return partials[0]
	}

	var acc []Bindings
	for i := len(partials) - 1; i >= 0; i-- {
		p := partials[i]
		if len(p) == 0 {
			continue
		}
		if acc == nil {
			acc = p
			continue
		}
		acc = joinPair(acc, p)
		if len(acc) == 0 {
			return nil
		}
	}
	if acc == nil {
		return unit()
	}
	return Dedupe(acc)
}

// joinGroup is a run of right-hand binding sets that bind the same symbols.
type joinGroup struct {
	syms    []Symbol
	members []int // indexes into the right list, ascending

	// indexes by projection key, built on first use per shared-symbol set
	byShared map[string]map[Digest][]int
}

// joinPair joins left with right, left outer and right inner. Right is
// grouped by symbol signature and each group is hash-indexed on the symbols
// it shares with a left set, so only compatible pairs are visited.
func joinPair(left, right []Bindings) []Bindings {
	groups := groupBySignature(right)
	out := make([]Bindings, 0, len(left))

	var shared []Symbol
	var hits []int
	for _, l := range left {
		hits = hits[:0]
		contributing := 0
		for _, g := range groups {
			shared = shared[:0]
			for _, s := range g.syms {
				if _, ok := l[s]; ok {
					shared = append(shared, s)
				}
			}
			n := len(hits)
			if len(shared) == 0 {
				hits = append(hits, g.members...)
			} else {
				for _, idx := range g.lookup(right, shared, projectKey(l, shared)) {
					if l.Compatible(right[idx]) {
						hits = append(hits, idx)
					}
				}
			}
			if len(hits) > n {
				contributing++
			}
		}
		if contributing > 1 {
			sort.Ints(hits)
		}
		for _, idx := range hits {
			out = append(out, l.Union(right[idx]))
		}
	}
	return out
}

func groupBySignature(sets []Bindings) []*joinGroup {
	var groups []*joinGroup
	bySig := map[string]*joinGroup{}
	for i, b := range sets {
		syms := b.Symbols()
		sig := signature(syms)
		g, ok := bySig[sig]
		if !ok {
			g = &joinGroup{syms: syms}
			bySig[sig] = g
			groups = append(groups, g)
		}
		g.members = append(g.members, i)
	}
	return groups
}

// lookup returns the members whose projection on shared hashes to key.
func (g *joinGroup) lookup(right []Bindings, shared []Symbol, key Digest) []int {
	sig := signature(shared)
	if g.byShared == nil {
		g.byShared = map[string]map[Digest][]int{}
	}
	index, ok := g.byShared[sig]
	if !ok {
		index = make(map[Digest][]int, len(g.members))
		for _, idx := range g.members {
			k := projectKey(right[idx], shared)
			index[k] = append(index[k], idx)
		}
		g.byShared[sig] = index
	}
	return index[key]
}

func signature(syms []Symbol) string {
	var b strings.Builder
	for _, s := range syms {
		b.WriteString(string(s))
		b.WriteByte(0)
	}
	return b.String()
}
