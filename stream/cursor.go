package stream

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Neumenon/regular/codec"
	"github.com/Neumenon/regular/regular"
)

// Cursor tracks per-SID state for stream processing: sequence numbers,
// the last document seen and its state hash, and acknowledgements.
type Cursor struct {
	mu      sync.RWMutex
	cursors map[uint64]*SIDState
}

// SIDState holds state for a single stream ID.
type SIDState struct {
	SID       uint64
	LastSeq   uint64         // Last sequence number seen
	LastAcked uint64         // Last sequence number acknowledged
	StateHash regular.Digest // Fingerprint of State
	HasState  bool           // Whether StateHash is valid
	State     *regular.Value // Last document (optional)
	Final     bool           // Whether stream has ended
}

// NewCursor creates a new stream cursor.
func NewCursor() *Cursor {
	return &Cursor{
		cursors: make(map[uint64]*SIDState),
	}
}

// Get returns the state for a SID, creating it if needed.
func (c *Cursor) Get(sid uint64) *SIDState {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.cursors[sid]
	if !ok {
		state = &SIDState{SID: sid}
		c.cursors[sid] = state
	}
	return state
}

// GetReadOnly returns the state for a SID without creating it.
func (c *Cursor) GetReadOnly(sid uint64) *SIDState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cursors[sid]
}

// Delete removes state for a SID.
func (c *Cursor) Delete(sid uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cursors, sid)
}

// AllSIDs returns all tracked SIDs in ascending order.
func (c *Cursor) AllSIDs() []uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sids := make([]uint64, 0, len(c.cursors))
	for sid := range c.cursors {
		sids = append(sids, sid)
	}
	sort.Slice(sids, func(i, j int) bool { return sids[i] < sids[j] })
	return sids
}

// ProcessFrame checks a frame against cursor state and records its
// sequence number. It fails when:
//   - the sequence number is not monotonic (gap or duplicate)
//   - a bindings or result frame names a base other than the SID's
//     current state
func (c *Cursor) ProcessFrame(frame *Frame) error {
	state := c.Get(frame.SID)

	if frame.Seq != 0 && frame.Seq <= state.LastSeq {
		return fmt.Errorf("sequence not monotonic: got %d, last was %d", frame.Seq, state.LastSeq)
	}
	if state.LastSeq > 0 && frame.Seq != state.LastSeq+1 {
		return fmt.Errorf("sequence gap: expected %d, got %d", state.LastSeq+1, frame.Seq)
	}

	if carriesBase(frame) {
		if !state.HasState {
			return fmt.Errorf("cannot verify base: no state hash for SID %d", frame.SID)
		}
		if !VerifyBase(state.StateHash, *frame.Base) {
			return &BaseMismatchError{Expected: *frame.Base, Got: state.StateHash}
		}
	}

	state.LastSeq = frame.Seq
	if frame.IsFinal() {
		state.Final = true
	}
	return nil
}

// carriesBase reports whether frame names the document it was computed
// from.
func carriesBase(frame *Frame) bool {
	return frame.Base != nil && (frame.Kind == KindBindings || frame.Kind == KindResult)
}

// SetState records the current document and its hash.
func (c *Cursor) SetState(sid uint64, value *regular.Value) {
	state := c.Get(sid)
	state.State = value
	state.StateHash = StateHash(value)
	state.HasState = true
}

// SetStateHash sets the state hash directly.
// Use this when you have pre-computed the hash.
func (c *Cursor) SetStateHash(sid uint64, hash regular.Digest) {
	state := c.Get(sid)
	state.StateHash = hash
	state.HasState = true
}

// Ack marks a sequence as acknowledged.
func (c *Cursor) Ack(sid, seq uint64) {
	state := c.Get(sid)
	if seq > state.LastAcked {
		state.LastAcked = seq
	}
}

// PendingAcks returns sequences that have been seen but not acked.
func (c *Cursor) PendingAcks(sid uint64) []uint64 {
	state := c.GetReadOnly(sid)
	if state == nil || state.LastSeq <= state.LastAcked {
		return nil
	}

	pending := make([]uint64, 0, state.LastSeq-state.LastAcked)
	for seq := state.LastAcked + 1; seq <= state.LastSeq; seq++ {
		pending = append(pending, seq)
	}
	return pending
}

// NeedsResync returns true if the SID has no document to verify bases
// against.
func (c *Cursor) NeedsResync(sid uint64) bool {
	state := c.GetReadOnly(sid)
	if state == nil {
		return true
	}
	return !state.HasState
}

// ============================================================
// Handler - functional processing helper
// ============================================================

// Handler decodes frames, tracks their state and dispatches them to
// callbacks. Payloads are decoded before the callback runs; a payload
// that does not decode is returned as a *PayloadError after its sequence
// number is recorded, so the caller can report it and continue.
type Handler struct {
	Cursor *Cursor

	// Callbacks (optional)
	OnDoc      func(frame *Frame, doc *regular.Value, state *SIDState) error
	OnBindings func(frame *Frame, sets []regular.Bindings, state *SIDState) error
	OnResult   func(frame *Frame, result *regular.Value, state *SIDState) error
	OnErr      func(frame *Frame, ev ErrorEvent, state *SIDState) error
	OnAck      func(frame *Frame, state *SIDState) error
	OnPing     func(frame *Frame, state *SIDState) error
	OnFinal    func(sid uint64, state *SIDState) error

	// Error handling
	OnSeqGap       func(sid uint64, expected, got uint64) error // Called on sequence gap
	OnBaseMismatch func(sid uint64, frame *Frame) error         // Called on base hash mismatch
}

// NewHandler creates a handler with a fresh cursor.
func NewHandler() *Handler {
	return &Handler{
		Cursor: NewCursor(),
	}
}

// Handle processes a frame and calls the appropriate callback. Duplicate
// and out-of-order frames are skipped.
func (h *Handler) Handle(frame *Frame) error {
	state := h.Cursor.Get(frame.SID)

	if frame.Seq != 0 && state.LastSeq > 0 {
		if frame.Seq <= state.LastSeq {
			return nil
		}
		if frame.Seq != state.LastSeq+1 && h.OnSeqGap != nil {
			if err := h.OnSeqGap(frame.SID, state.LastSeq+1, frame.Seq); err != nil {
				return err
			}
		}
	}

	if carriesBase(frame) && state.HasState && !VerifyBase(state.StateHash, *frame.Base) {
		if h.OnBaseMismatch != nil {
			return h.OnBaseMismatch(frame.SID, frame)
		}
		return &BaseMismatchError{Expected: *frame.Base, Got: state.StateHash}
	}

	state.LastSeq = frame.Seq

	if err := h.dispatch(frame, state); err != nil {
		return err
	}

	if frame.IsFinal() {
		state.Final = true
		if h.OnFinal != nil {
			return h.OnFinal(frame.SID, state)
		}
	}
	return nil
}

func (h *Handler) dispatch(frame *Frame, state *SIDState) error {
	bad := func(err error) error {
		return &PayloadError{SID: frame.SID, Seq: frame.Seq, Kind: frame.Kind, Err: err}
	}

	switch frame.Kind {
	case KindDoc:
		doc, err := regular.FromJSON(frame.Payload)
		if err != nil {
			return bad(err)
		}
		h.Cursor.SetState(frame.SID, doc)
		if h.OnDoc != nil {
			return h.OnDoc(frame, doc, state)
		}
	case KindBindings:
		if h.OnBindings == nil {
			return nil
		}
		sets, err := codec.DecodeBindings(frame.Payload, codec.JSON)
		if err != nil {
			return bad(err)
		}
		return h.OnBindings(frame, sets, state)
	case KindResult:
		if h.OnResult == nil {
			return nil
		}
		v, err := codec.DecodeTemplate(frame.Payload, codec.JSON, nil)
		if err != nil {
			return bad(err)
		}
		return h.OnResult(frame, v, state)
	case KindErr:
		if h.OnErr == nil {
			return nil
		}
		ev, err := ParseErrorEvent(frame.Payload)
		if err != nil {
			return bad(err)
		}
		return h.OnErr(frame, ev, state)
	case KindAck:
		if h.OnAck != nil {
			return h.OnAck(frame, state)
		}
	case KindPing:
		if h.OnPing != nil {
			return h.OnPing(frame, state)
		}
	}
	return nil
}
