package regular

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoMatch is matched by every *NoMatchError.
	ErrNoMatch = errors.New("regular: no match")
	// ErrTransform is matched by every *TransformError.
	ErrTransform = errors.New("regular: transform failed")
	// ErrMisuse is matched by every *MisuseError.
	ErrMisuse = errors.New("regular: misuse")
	// ErrUnknownSymbol is returned when a symbol is not bound.
	ErrUnknownSymbol = errors.New("regular: unknown symbol")
	// ErrInvalidTransform is returned for a map transform that is not invertible.
	ErrInvalidTransform = errors.New("regular: invalid transform")
	// ErrMergeConflict is matched by every *MergeConflictError.
	ErrMergeConflict = errors.New("regular: merge conflict")
)

// NoMatchError reports that a template subtree cannot describe the data at
// that position. It is recoverable under an Optional.
type NoMatchError struct {
	Template *Value
	Data     *Value
	Reason   string
}

func (e *NoMatchError) Error() string {
	var b strings.Builder
	b.WriteString("regular: no match")
	if e.Reason != "" {
		b.WriteString(" (")
		b.WriteString(e.Reason)
		b.WriteString(")")
	}
	b.WriteString(": template ")
	b.WriteString(emitShort(e.Template))
	b.WriteString(" against ")
	b.WriteString(emitShort(e.Data))
	return b.String()
}

// Is makes errors.Is(err, ErrNoMatch) true.
func (e *NoMatchError) Is(target error) bool {
	return target == ErrNoMatch
}

func noMatch(t, d *Value, reason string) error {
	return &NoMatchError{Template: t, Data: d, Reason: reason}
}

// TransformError wraps a failure raised by a transform function. It is
// never recovered by an Optional.
type TransformError struct {
	Direction Direction
	Symbols   []Symbol
	Input     *Value
	Err       error
}

func (e *TransformError) Error() string {
	names := make([]string, len(e.Symbols))
	for i, s := range e.Symbols {
		names[i] = string(s)
	}
	return fmt.Sprintf("regular: %s transform over [%s] failed on %s: %v",
		e.Direction, strings.Join(names, " "), emitShort(e.Input), e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTransform) true.
func (e *TransformError) Is(target error) bool {
	return target == ErrTransform
}

// MisuseError reports an API used outside its contract, such as a
// single-result format that produced several results.
type MisuseError struct {
	Op      string
	Results int
	Message string
}

func (e *MisuseError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("regular: %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("regular: %s: expected exactly 1 result, got %d", e.Op, e.Results)
}

// Is makes errors.Is(err, ErrMisuse) true.
func (e *MisuseError) Is(target error) bool {
	return target == ErrMisuse
}

// MergeConflictError reports two scalars that cannot be merged.
type MergeConflictError struct {
	Path   string
	Source *Value
	Target *Value
}

func (e *MergeConflictError) Error() string {
	path := e.Path
	if path == "" {
		path = "$"
	}
	return fmt.Sprintf("regular: merge conflict at %s: %s vs %s", path, emitShort(e.Source), emitShort(e.Target))
}

// Is makes errors.Is(err, ErrMergeConflict) true.
func (e *MergeConflictError) Is(target error) bool {
	return target == ErrMergeConflict
}
