package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Neumenon/regular/job"
	"github.com/Neumenon/regular/regular"
)

// Processor runs a job over every doc frame it reads and writes one
// bindings or result frame per document, on the document's SID, with the
// document's state hash as base. Job failures and undecodable payloads
// become err frames; the stream continues. Pings are answered with pongs.
type Processor struct {
	job    *job.Job
	w      *Writer
	logger *slog.Logger
	h      *Handler
	seqs   map[uint64]uint64
}

// NewProcessor creates a processor writing to w.
func NewProcessor(j *job.Job, w *Writer, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p := &Processor{
		job:    j,
		w:      w,
		logger: logger,
		h:      NewHandler(),
		seqs:   make(map[uint64]uint64),
	}
	p.h.OnDoc = p.onDoc
	p.h.OnPing = func(frame *Frame, _ *SIDState) error {
		return p.w.WritePong(frame.SID, p.nextSeq(frame.SID))
	}
	p.h.OnSeqGap = func(sid uint64, expected, got uint64) error {
		p.logger.Warn("sequence gap", "sid", sid, "expected", expected, "got", got)
		return nil
	}
	return p
}

// Cursor exposes the per-SID input state.
func (p *Processor) Cursor() *Cursor {
	return p.h.Cursor
}

// Run processes frames until r is exhausted or ctx is done. It returns
// nil at end of input and the first read or write error otherwise.
func (p *Processor) Run(ctx context.Context, r *Reader) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := p.Process(frame); err != nil {
			return err
		}
	}
}

// Process handles one frame.
func (p *Processor) Process(frame *Frame) error {
	p.logger.Debug("frame", "header", headerString(frame))

	err := p.h.Handle(frame)
	var payloadErr *PayloadError
	if errors.As(err, &payloadErr) {
		p.logger.Warn("bad payload", "sid", frame.SID, "seq", frame.Seq, "error", err)
		return p.w.WriteErr(frame.SID, p.nextSeq(frame.SID), NewErrorEvent(err, frame.SID, frame.Seq), nil)
	}
	return err
}

func (p *Processor) onDoc(frame *Frame, doc *regular.Value, state *SIDState) error {
	base := state.StateHash
	seq := p.nextSeq(frame.SID)

	out, err := p.job.Run(doc)
	if err != nil {
		p.logger.Warn("job failed", "sid", frame.SID, "seq", frame.Seq, "base", base.Short(), "error", err)
		ev := NewErrorEvent(err, frame.SID, frame.Seq)
		return p.w.WriteValue(frame.SID, seq, KindErr, ev.Value(), &base, frame.IsFinal())
	}

	kind := KindResult
	if p.job.MatchOnly() {
		kind = KindBindings
	}
	if err := p.w.WriteValue(frame.SID, seq, kind, out, &base, frame.IsFinal()); err != nil {
		return fmt.Errorf("sid %d: %w", frame.SID, err)
	}
	p.logger.Debug("wrote", "sid", frame.SID, "seq", seq, "kind", kind.String(), "base", base.Short())
	return nil
}

func (p *Processor) nextSeq(sid uint64) uint64 {
	p.seqs[sid]++
	return p.seqs[sid]
}
