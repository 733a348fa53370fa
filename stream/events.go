package stream

import (
	"errors"
	"fmt"

	"github.com/Neumenon/regular/regular"
)

// Error codes carried by err frames.
const (
	CodeNoMatch       = "NO_MATCH"
	CodeTransform     = "TRANSFORM"
	CodeMisuse        = "MISUSE"
	CodeMergeConflict = "MERGE_CONFLICT"
	CodeBadPayload    = "BAD_PAYLOAD"
	CodeBaseMismatch  = "BASE_MISMATCH"
	CodeInternal      = "INTERNAL"
)

// ErrorEvent is the payload of a kind=err frame.
// Payload: {"code":"NO_MATCH","msg":"...","sid":1,"seq":42}
type ErrorEvent struct {
	Code    string
	Message string
	SID     uint64
	Seq     uint64
}

// NewErrorEvent builds the event for err raised while handling frame
// sid/seq.
func NewErrorEvent(err error, sid, seq uint64) ErrorEvent {
	return ErrorEvent{Code: ErrorCode(err), Message: err.Error(), SID: sid, Seq: seq}
}

// ErrorCode classifies err.
func ErrorCode(err error) string {
	var payloadErr *PayloadError
	var baseErr *BaseMismatchError
	switch {
	case errors.As(err, &payloadErr):
		return CodeBadPayload
	case errors.As(err, &baseErr):
		return CodeBaseMismatch
	case errors.Is(err, regular.ErrNoMatch):
		return CodeNoMatch
	case errors.Is(err, regular.ErrTransform):
		return CodeTransform
	case errors.Is(err, regular.ErrMisuse):
		return CodeMisuse
	case errors.Is(err, regular.ErrMergeConflict):
		return CodeMergeConflict
	}
	return CodeInternal
}

// Value returns the event as a map value.
func (e ErrorEvent) Value() *regular.Value {
	return regular.Map(
		regular.FieldVal("code", regular.Str(e.Code)),
		regular.FieldVal("msg", regular.Str(e.Message)),
		regular.FieldVal("sid", regular.Int(int64(e.SID))),
		regular.FieldVal("seq", regular.Int(int64(e.Seq))),
	)
}

// Error implements error so a received event can be returned as one.
func (e ErrorEvent) Error() string {
	return fmt.Sprintf("%s (sid %d seq %d): %s", e.Code, e.SID, e.Seq, e.Message)
}

// eventShape matches an err payload and binds its fields. Missing keys
// bind null.
var eventShape = regular.Map(
	regular.FieldVal("code", regular.Sym("code")),
	regular.FieldVal("msg", regular.Sym("msg")),
	regular.FieldVal("sid", regular.Sym("sid")),
	regular.FieldVal("seq", regular.Sym("seq")),
)

// ParseErrorEvent decodes an err frame payload.
func ParseErrorEvent(payload []byte) (ErrorEvent, error) {
	v, err := regular.FromJSON(payload)
	if err != nil {
		return ErrorEvent{}, fmt.Errorf("parse error event: %w", err)
	}
	b, err := regular.Match(eventShape, v).Single()
	if err != nil {
		return ErrorEvent{}, fmt.Errorf("parse error event: %w", err)
	}

	var ev ErrorEvent
	if ev.Code, err = b["code"].AsStr(); err != nil {
		return ErrorEvent{}, fmt.Errorf("parse error event code: %w", err)
	}
	if ev.Message, err = b["msg"].AsStr(); err != nil {
		return ErrorEvent{}, fmt.Errorf("parse error event msg: %w", err)
	}
	for _, f := range []struct {
		sym regular.Symbol
		dst *uint64
	}{{"sid", &ev.SID}, {"seq", &ev.Seq}} {
		n := b[f.sym]
		if n.IsNull() {
			continue
		}
		i, err := n.AsInt()
		if err != nil || i < 0 {
			return ErrorEvent{}, fmt.Errorf("parse error event %s: want a non-negative int, got %s", f.sym, n)
		}
		*f.dst = uint64(i)
	}
	return ev, nil
}
