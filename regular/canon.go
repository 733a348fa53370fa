package regular

import (
	"encoding/hex"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zeebo/blake3"
)

// ============================================================
// Canonical Scalar Encoding
// ============================================================

func canonNull() string {
	return "∅"
}

func canonBool(b bool) string {
	if b {
		return "t"
	}
	return "f"
}

// canonInt returns the canonical integer representation.
func canonInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

// canonFloat returns the canonical float representation.
// Shortest round-trip form, E→e, -0→0. Integral floats encode like the
// equal int, so 1 and 1.0 are the same value.
func canonFloat(f float64) string {
	if f == 0 {
		return "0"
	}
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	if isIntegral(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strings.ReplaceAll(strconv.FormatFloat(f, 'g', -1, 64), "E", "e")
}

// isIntegral reports whether f is a whole number representable as int64.
func isIntegral(f float64) bool {
	return f == math.Trunc(f) && f >= -(1<<63) && f < 1<<63
}

// canonString uses the bare form if safe, otherwise quoted.
func canonString(s string) string {
	if isBareSafe(s) {
		return s
	}
	return quoteString(s)
}

// isBareSafe checks if a string can be represented without quotes.
// Pattern: ^[A-Za-z_][A-Za-z0-9_\-./]*$, minus reserved words.
func isBareSafe(s string) bool {
	if len(s) == 0 {
		return false
	}

	switch s {
	case "t", "f", "true", "false", "null", "none", "nil", "NaN", "Inf":
		return false
	}

	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return false
	}
	if !unicode.IsLetter(r) && r != '_' {
		return false
	}

	for i := size; i < len(s); {
		r, size = utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) &&
			r != '_' && r != '-' && r != '.' && r != '/' {
			return false
		}
		i += size
	}

	return true
}

// quoteString returns a quoted string with minimal escapes.
func quoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 10)
	b.WriteByte('"')

	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				b.WriteString(`\u00`)
				h := strconv.FormatInt(int64(r), 16)
				if len(h) == 1 {
					b.WriteByte('0')
				}
				b.WriteString(strings.ToUpper(h))
			} else {
				b.WriteRune(r)
			}
		}
	}

	b.WriteByte('"')
	return b.String()
}

// ============================================================
// Canonical Value Encoding
// ============================================================

// Canonical returns the canonical text of a value: map keys sorted, numbers
// normalized, strings quoted only when needed. Two values are Equal exactly
// when their canonical texts match, except that transforms with different
// functions share a canonical text.
func Canonical(v *Value) string {
	var b strings.Builder
	writeCanon(&b, v)
	return b.String()
}

func writeCanon(b *strings.Builder, v *Value) {
	switch v.Kind() {
	case KindNull:
		b.WriteString(canonNull())
	case KindBool:
		b.WriteString(canonBool(v.boolVal))
	case KindInt:
		b.WriteString(canonInt(v.intVal))
	case KindFloat:
		b.WriteString(canonFloat(v.floatVal))
	case KindStr:
		b.WriteString(canonString(v.strVal))
	case KindList:
		b.WriteByte('[')
		for i, item := range v.listVal {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeCanon(b, item)
		}
		b.WriteByte(']')
	case KindMap:
		b.WriteByte('{')
		for i, e := range sortedEntries(v.mapVal) {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(canonString(e.Key))
			b.WriteByte(':')
			writeCanon(b, e.Value)
		}
		b.WriteByte('}')
	case KindSymbol:
		b.WriteString("$S(")
		b.WriteString(quoteString(v.strVal))
		b.WriteByte(')')
	case KindTransform:
		b.WriteString("$T(")
		writeCanon(b, v.inner)
		b.WriteByte(')')
	case KindOptional:
		b.WriteString("$O(")
		writeCanon(b, v.inner)
		b.WriteByte(')')
	}
}

// sortedEntries returns the entries sorted by key, copying only when the
// order changes.
func sortedEntries(entries []MapEntry) []MapEntry {
	if sort.SliceIsSorted(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key }) {
		return entries
	}
	sorted := make([]MapEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	return sorted
}

// ============================================================
// Equality and Fingerprints
// ============================================================

// Equal reports structural equality. Map entry order is ignored, ints and
// floats compare by numeric value, placeholders compare by name and shape,
// and transforms additionally by identity of their conversion.
func Equal(a, b *Value) bool {
	ka, kb := a.Kind(), b.Kind()
	if ka != kb {
		switch {
		case ka == KindInt && kb == KindFloat:
			return isIntegral(b.floatVal) && int64(b.floatVal) == a.intVal
		case ka == KindFloat && kb == KindInt:
			return isIntegral(a.floatVal) && int64(a.floatVal) == b.intVal
		}
		return false
	}

	switch ka {
	case KindNull:
		return true
	case KindBool:
		return a.boolVal == b.boolVal
	case KindInt:
		return a.intVal == b.intVal
	case KindFloat:
		return a.floatVal == b.floatVal || (math.IsNaN(a.floatVal) && math.IsNaN(b.floatVal))
	case KindStr, KindSymbol:
		return a.strVal == b.strVal
	case KindList:
		if len(a.listVal) != len(b.listVal) {
			return false
		}
		for i := range a.listVal {
			if !Equal(a.listVal[i], b.listVal[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.mapVal) != len(b.mapVal) {
			return false
		}
		for _, e := range a.mapVal {
			other := b.Get(e.Key)
			if other == nil && !b.Has(e.Key) {
				return false
			}
			if !Equal(e.Value, other) {
				return false
			}
		}
		return true
	case KindTransform:
		return a.trans == b.trans && Equal(a.inner, b.inner)
	case KindOptional:
		return Equal(a.inner, b.inner)
	}
	return false
}

// Digest is a blake3 fingerprint of a canonical encoding.
type Digest [32]byte

// String returns the digest as lowercase hex.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 8 bytes as hex, for logs.
func (d Digest) Short() string {
	return hex.EncodeToString(d[:8])
}

// Fingerprint returns the blake3 digest of the canonical encoding. Equal
// values have equal fingerprints.
func Fingerprint(v *Value) Digest {
	return blake3.Sum256([]byte(Canonical(v)))
}
