package regular

import (
	"math"
	"strconv"
	"strings"
)

// EmitOptions configures the text emitter.
type EmitOptions struct {
	// Pretty adds newlines and indentation
	Pretty bool

	// Indent string for pretty mode (default: "  ")
	Indent string

	// SortFields sorts map entries by key
	SortFields bool

	// MaxLen truncates the output with "..." (0 = unlimited)
	MaxLen int
}

// DefaultEmitOptions returns compact, insertion-ordered output.
func DefaultEmitOptions() EmitOptions {
	return EmitOptions{
		Indent: "  ",
	}
}

// PrettyEmitOptions returns indented output.
func PrettyEmitOptions() EmitOptions {
	return EmitOptions{
		Pretty: true,
		Indent: "  ",
	}
}

// Emit renders a value as compact text, e.g.
//
//	{name:S(name) tags:[x "two words"] age:Opt(Trans(S(age)))}
func Emit(v *Value) string {
	return EmitWithOptions(v, DefaultEmitOptions())
}

// EmitPretty renders a value as indented multi-line text.
func EmitPretty(v *Value) string {
	return EmitWithOptions(v, PrettyEmitOptions())
}

// EmitWithOptions renders a value with custom options.
func EmitWithOptions(v *Value, opts EmitOptions) string {
	if opts.Indent == "" {
		opts.Indent = "  "
	}
	e := &emitter{opts: opts}
	e.emit(v, 0)
	s := e.sb.String()
	if opts.MaxLen > 0 && len(s) > opts.MaxLen {
		cut := opts.MaxLen
		for cut > 0 && !isRuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}

// emitShort is the truncated form used in error messages.
func emitShort(v *Value) string {
	return EmitWithOptions(v, EmitOptions{MaxLen: 200})
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

type emitter struct {
	sb   strings.Builder
	opts EmitOptions
}

func (e *emitter) emit(v *Value, depth int) {
	switch v.Kind() {
	case KindNull:
		e.sb.WriteString("∅")

	case KindBool:
		e.sb.WriteString(canonBool(v.boolVal))

	case KindInt:
		e.sb.WriteString(strconv.FormatInt(v.intVal, 10))

	case KindFloat:
		e.emitFloat(v.floatVal)

	case KindStr:
		e.sb.WriteString(canonString(v.strVal))

	case KindList:
		e.emitList(v, depth)

	case KindMap:
		e.emitMap(v, depth)

	case KindSymbol:
		e.sb.WriteString("S(")
		e.sb.WriteString(canonString(v.strVal))
		e.sb.WriteString(")")

	case KindTransform:
		e.sb.WriteString("Trans(")
		e.emit(v.inner, depth)
		e.sb.WriteString(")")

	case KindOptional:
		e.sb.WriteString("Opt(")
		e.emit(v.inner, depth)
		e.sb.WriteString(")")
	}
}

func (e *emitter) emitFloat(f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		e.sb.WriteString(canonFloat(f))
		return
	}

	s := strconv.FormatFloat(f, 'g', -1, 64)
	// Keep a decimal point to distinguish from int
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	e.sb.WriteString(s)
}

func (e *emitter) emitList(v *Value, depth int) {
	e.sb.WriteString("[")

	if e.opts.Pretty && len(v.listVal) > 0 {
		e.sb.WriteString("\n")
	}

	for i, elem := range v.listVal {
		if e.opts.Pretty {
			e.writeIndent(depth + 1)
		}

		e.emit(elem, depth+1)

		if e.opts.Pretty {
			e.sb.WriteString("\n")
		} else if i < len(v.listVal)-1 {
			e.sb.WriteString(" ")
		}
	}

	if e.opts.Pretty && len(v.listVal) > 0 {
		e.writeIndent(depth)
	}
	e.sb.WriteString("]")
}

func (e *emitter) emitMap(v *Value, depth int) {
	entries := v.mapVal
	if e.opts.SortFields {
		entries = sortedEntries(entries)
	}

	e.sb.WriteString("{")

	if e.opts.Pretty && len(entries) > 0 {
		e.sb.WriteString("\n")
	}

	for i, entry := range entries {
		if e.opts.Pretty {
			e.writeIndent(depth + 1)
		}

		e.sb.WriteString(canonString(entry.Key))
		e.sb.WriteString(":")
		e.emit(entry.Value, depth+1)

		if e.opts.Pretty {
			e.sb.WriteString("\n")
		} else if i < len(entries)-1 {
			e.sb.WriteString(" ")
		}
	}

	if e.opts.Pretty && len(entries) > 0 {
		e.writeIndent(depth)
	}
	e.sb.WriteString("}")
}

func (e *emitter) writeIndent(depth int) {
	for i := 0; i < depth; i++ {
		e.sb.WriteString(e.opts.Indent)
	}
}
