package stream

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/Neumenon/regular/codec"
	"github.com/Neumenon/regular/regular"
)

// Writer writes GS1-T (text) frames to an io.Writer. A Writer is safe for
// concurrent use; each frame is written with a single Write call.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	withCRC bool
}

// NewWriter creates a new GS1-T frame writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// NewWriterWithCRC creates a writer that computes CRC for each frame.
func NewWriterWithCRC(w io.Writer) *Writer {
	return &Writer{w: w, withCRC: true}
}

// WriteFrame writes a single frame in GS1-T format.
//
// Format:
//
//	@frame{v=1 sid=N seq=N kind=K len=N [crc=X] [base=blake3:X] [final=true]}\n
//	<payload bytes>\n
func (w *Writer) WriteFrame(f *Frame) error {
	var buf bytes.Buffer
	buf.WriteString("@frame{v=")
	if f.Version == 0 {
		buf.WriteString(strconv.Itoa(int(Version)))
	} else {
		buf.WriteString(strconv.Itoa(int(f.Version)))
	}
	buf.WriteString(" sid=")
	buf.WriteString(strconv.FormatUint(f.SID, 10))
	buf.WriteString(" seq=")
	buf.WriteString(strconv.FormatUint(f.Seq, 10))
	buf.WriteString(" kind=")
	buf.WriteString(f.Kind.String())
	buf.WriteString(" len=")
	buf.WriteString(strconv.Itoa(len(f.Payload)))

	crc := f.CRC
	if crc == nil && w.withCRC && len(f.Payload) > 0 {
		computed := ComputeCRC(f.Payload)
		crc = &computed
	}
	if crc != nil {
		fmt.Fprintf(&buf, " crc=%08x", *crc)
	}
	if f.Base != nil {
		buf.WriteString(" base=")
		buf.WriteString(FormatBase(*f.Base))
	}
	if f.IsFinal() {
		buf.WriteString(" final=true")
	}
	buf.WriteString("}\n")
	buf.Write(f.Payload)
	buf.WriteByte('\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write frame sid=%d seq=%d: %w", f.SID, f.Seq, err)
	}
	return nil
}

// EncodePayload renders v as a single-line JSON payload. Placeholders are
// written as $-markers.
func EncodePayload(v *regular.Value) ([]byte, error) {
	data, err := codec.Encode(v, codec.JSON, codec.EncodeOpts{})
	if err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(data, []byte("\n")), nil
}

// WriteValue encodes v as the payload of a frame of the given kind.
func (w *Writer) WriteValue(sid, seq uint64, kind FrameKind, v *regular.Value, base *regular.Digest, final bool) error {
	payload, err := EncodePayload(v)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return w.WriteFrame(&Frame{
		Version: Version,
		SID:     sid,
		Seq:     seq,
		Kind:    kind,
		Payload: payload,
		Base:    base,
		Final:   final,
	})
}

// WriteDoc writes a doc frame carrying v.
func (w *Writer) WriteDoc(sid, seq uint64, v *regular.Value) error {
	return w.WriteValue(sid, seq, KindDoc, v, nil, false)
}

// WriteBindings writes binding sets computed from the document with
// fingerprint base.
func (w *Writer) WriteBindings(sid, seq uint64, sets []regular.Bindings, base *regular.Digest) error {
	items := make([]*regular.Value, len(sets))
	for i, b := range sets {
		items[i] = b.ToValue()
	}
	return w.WriteValue(sid, seq, KindBindings, regular.List(items...), base, false)
}

// WriteResult writes a formatted result computed from the document with
// fingerprint base.
func (w *Writer) WriteResult(sid, seq uint64, v *regular.Value, base *regular.Digest) error {
	return w.WriteValue(sid, seq, KindResult, v, base, false)
}

// WriteAck writes an acknowledgement frame (no payload).
func (w *Writer) WriteAck(sid, seq uint64) error {
	return w.WriteFrame(&Frame{Version: Version, SID: sid, Seq: seq, Kind: KindAck})
}

// WriteErr writes an error event frame.
func (w *Writer) WriteErr(sid, seq uint64, ev ErrorEvent, base *regular.Digest) error {
	return w.WriteValue(sid, seq, KindErr, ev.Value(), base, false)
}

// WritePing writes a ping frame.
func (w *Writer) WritePing(sid, seq uint64) error {
	return w.WriteFrame(&Frame{Version: Version, SID: sid, Seq: seq, Kind: KindPing})
}

// WritePong writes a pong frame.
func (w *Writer) WritePong(sid, seq uint64) error {
	return w.WriteFrame(&Frame{Version: Version, SID: sid, Seq: seq, Kind: KindPong})
}

// WriteFinal writes a final frame for a stream.
func (w *Writer) WriteFinal(sid, seq uint64, kind FrameKind, payload []byte) error {
	return w.WriteFrame(&Frame{
		Version: Version,
		SID:     sid,
		Seq:     seq,
		Kind:    kind,
		Payload: payload,
		Final:   true,
	})
}

// headerString is the header line of f without the newline, for logs.
func headerString(f *Frame) string {
	var b strings.Builder
	fmt.Fprintf(&b, "sid=%d seq=%d kind=%s len=%d", f.SID, f.Seq, f.Kind, len(f.Payload))
	if f.Base != nil {
		b.WriteString(" base=")
		b.WriteString(f.Base.Short())
	}
	if f.IsFinal() {
		b.WriteString(" final")
	}
	return b.String()
}
