// Package stream implements GS1-T, a text framing protocol that carries
// documents into a match/format job and results back out.
//
// A frame is a header line followed by exactly len payload bytes:
//
//	@frame{v=1 sid=N seq=N kind=K len=N [crc=X] [base=blake3:X] [final=true]}
//	<payload>
//
// Frames provide:
//   - Message boundaries and resync
//   - Multiplexing via stream IDs (sid)
//   - Ordering via sequence numbers (seq)
//   - Integrity via optional CRC-32
//   - Correlation via an optional base hash, the fingerprint of the
//     document a result was computed from
//
// Payloads are JSON. Headers are not part of the payload and do not take
// part in fingerprints.
package stream

import (
	"fmt"
	"strconv"

	"github.com/Neumenon/regular/regular"
)

// Version is the GS1 protocol version.
const Version uint8 = 1

// FrameKind indicates the semantic category of a frame's payload.
type FrameKind uint8

const (
	KindDoc      FrameKind = 0 // Data document to match
	KindBindings FrameKind = 1 // Binding sets of a match-only job
	KindResult   FrameKind = 2 // Formatted output
	KindErr      FrameKind = 3 // Error event
	KindAck      FrameKind = 4 // Acknowledgement
	KindPing     FrameKind = 5 // Keepalive
	KindPong     FrameKind = 6 // Ping response
)

// String returns the kind name.
func (k FrameKind) String() string {
	switch k {
	case KindDoc:
		return "doc"
	case KindBindings:
		return "bindings"
	case KindResult:
		return "result"
	case KindErr:
		return "err"
	case KindAck:
		return "ack"
	case KindPing:
		return "ping"
	case KindPong:
		return "pong"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// ParseKind parses a kind name or its numeric value.
func ParseKind(s string) (FrameKind, bool) {
	switch s {
	case "doc":
		return KindDoc, true
	case "bindings":
		return KindBindings, true
	case "result":
		return KindResult, true
	case "err":
		return KindErr, true
	case "ack":
		return KindAck, true
	case "ping":
		return KindPing, true
	case "pong":
		return KindPong, true
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, false
	}
	return FrameKind(n), true
}

// Flags for GS1 frames.
type Flags uint8

const (
	FlagHasCRC  Flags = 0x01 // CRC-32 is present
	FlagHasBase Flags = 0x02 // Base hash is present
	FlagFinal   Flags = 0x04 // End-of-stream for this SID
)

// Frame represents a single GS1 frame.
type Frame struct {
	// Required fields
	Version uint8     // Protocol version (must be 1)
	SID     uint64    // Stream identifier
	Seq     uint64    // Sequence number (per-SID, monotonic)
	Kind    FrameKind // Frame kind
	Payload []byte    // JSON payload bytes

	// Optional fields
	CRC   *uint32         // CRC-32 of payload (nil if not present)
	Base  *regular.Digest // Fingerprint of the source document (nil if not present)
	Flags Flags           // Flag bits
	Final bool            // End-of-stream marker
}

// HasCRC returns true if CRC is present.
func (f *Frame) HasCRC() bool {
	return f.CRC != nil
}

// HasBase returns true if base hash is present.
func (f *Frame) HasBase() bool {
	return f.Base != nil
}

// IsFinal returns true if this is the final frame for this SID.
func (f *Frame) IsFinal() bool {
	return f.Final || f.Flags&FlagFinal != 0
}

// MaxPayloadSize is the default maximum payload size (64 MiB).
const MaxPayloadSize = 64 * 1024 * 1024

// ParseError reports a malformed frame.
type ParseError struct {
	Reason string
	Offset int
}

func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("gs1: %s at offset %d", e.Reason, e.Offset)
	}
	return fmt.Sprintf("gs1: %s", e.Reason)
}

// CRCMismatchError is returned when CRC verification fails.
type CRCMismatchError struct {
	Expected uint32
	Got      uint32
}

func (e *CRCMismatchError) Error() string {
	return fmt.Sprintf("gs1: CRC mismatch: expected %08x, got %08x", e.Expected, e.Got)
}

// BaseMismatchError is returned when a frame's base does not match the
// document last seen on its SID.
type BaseMismatchError struct {
	Expected regular.Digest
	Got      regular.Digest
}

func (e *BaseMismatchError) Error() string {
	return fmt.Sprintf("gs1: base mismatch: frame has %s, stream is at %s", e.Expected.Short(), e.Got.Short())
}

// PayloadError reports a payload that does not decode as its kind
// requires. The frame's sequence number has already been consumed.
type PayloadError struct {
	SID  uint64
	Seq  uint64
	Kind FrameKind
	Err  error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("gs1: sid %d seq %d: bad %s payload: %v", e.SID, e.Seq, e.Kind, e.Err)
}

func (e *PayloadError) Unwrap() error {
	return e.Err
}
