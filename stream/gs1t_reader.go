package stream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Reader reads GS1-T (text) frames from an io.Reader.
type Reader struct {
	r          *bufio.Reader
	maxPayload int
	verifyCRC  bool
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxPayload sets the maximum payload size (default: 64 MiB).
func WithMaxPayload(max int) ReaderOption {
	return func(r *Reader) {
		r.maxPayload = max
	}
}

// WithoutCRCVerification accepts frames whose crc does not match.
func WithoutCRCVerification() ReaderOption {
	return func(r *Reader) {
		r.verifyCRC = false
	}
}

// NewReader creates a new GS1-T frame reader. CRCs are verified when
// present.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	reader := &Reader{
		r:          bufio.NewReader(r),
		maxPayload: MaxPayloadSize,
		verifyCRC:  true,
	}
	for _, opt := range opts {
		opt(reader)
	}
	return reader
}

// Next reads and returns the next frame.
// Returns io.EOF when no more frames are available.
func (r *Reader) Next() (*Frame, error) {
	headerLine, err := r.readHeaderLine()
	if err != nil {
		return nil, err
	}

	frame, payloadLen, err := parseHeader(headerLine)
	if err != nil {
		return nil, err
	}
	if payloadLen > r.maxPayload {
		return nil, &ParseError{Reason: fmt.Sprintf("payload too large: %d > %d", payloadLen, r.maxPayload), Offset: -1}
	}

	if payloadLen > 0 {
		frame.Payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r.r, frame.Payload); err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
	}

	// Trailing newline is optional at EOF.
	if b, err := r.r.ReadByte(); err == nil && b != '\n' {
		_ = r.r.UnreadByte()
	}

	if r.verifyCRC && frame.CRC != nil {
		if computed := ComputeCRC(frame.Payload); computed != *frame.CRC {
			return nil, &CRCMismatchError{Expected: *frame.CRC, Got: computed}
		}
	}

	return frame, nil
}

// readHeaderLine returns the next non-blank line.
func (r *Reader) readHeaderLine() (string, error) {
	for {
		line, err := r.r.ReadString('\n')
		if strings.TrimSpace(line) != "" {
			if err != nil && !errors.Is(err, io.EOF) {
				return "", fmt.Errorf("read header: %w", err)
			}
			return line, nil
		}
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("read header: %w", err)
		}
	}
}

// parseHeader parses the @frame{...} header line and returns the frame
// and its declared payload length.
func parseHeader(line string) (*Frame, int, error) {
	line = strings.TrimSpace(line)

	if !strings.HasPrefix(line, "@frame{") {
		return nil, 0, &ParseError{Reason: "expected @frame{", Offset: 0}
	}
	endIdx := strings.LastIndex(line, "}")
	if endIdx < 0 {
		return nil, 0, &ParseError{Reason: "missing closing }", Offset: len(line)}
	}

	frame := &Frame{Version: Version}
	payloadLen := -1

	for _, pair := range tokenize(line[len("@frame{"):endIdx]) {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}

		switch key {
		case "v":
			v, err := strconv.ParseUint(val, 10, 8)
			if err != nil {
				return nil, 0, &ParseError{Reason: "invalid version", Offset: -1}
			}
			if uint8(v) != Version {
				return nil, 0, &ParseError{Reason: "unsupported version " + val, Offset: -1}
			}
			frame.Version = uint8(v)

		case "sid":
			sid, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return nil, 0, &ParseError{Reason: "invalid sid", Offset: -1}
			}
			frame.SID = sid

		case "seq":
			seq, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return nil, 0, &ParseError{Reason: "invalid seq", Offset: -1}
			}
			frame.Seq = seq

		case "kind":
			kind, ok := ParseKind(val)
			if !ok {
				return nil, 0, &ParseError{Reason: "invalid kind: " + val, Offset: -1}
			}
			frame.Kind = kind

		case "len":
			l, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return nil, 0, &ParseError{Reason: "invalid len", Offset: -1}
			}
			payloadLen = int(l)

		case "crc":
			crc, ok := parseCRC(val)
			if !ok {
				return nil, 0, &ParseError{Reason: "invalid crc: " + val, Offset: -1}
			}
			frame.CRC = &crc

		case "base":
			base, ok := ParseBase(val)
			if !ok {
				return nil, 0, &ParseError{Reason: "invalid base: " + val, Offset: -1}
			}
			frame.Base = &base

		case "final":
			frame.Final = val == "true" || val == "1"

		case "flags":
			if flags, err := strconv.ParseUint(val, 16, 8); err == nil {
				frame.Flags = Flags(flags)
			}
		}
	}

	if payloadLen < 0 {
		return nil, 0, &ParseError{Reason: "missing len", Offset: -1}
	}
	return frame, payloadLen, nil
}

// tokenize splits key=value pairs separated by spaces, tabs or commas.
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(c rune) bool {
		return c == ' ' || c == ',' || c == '\t'
	})
}

// parseCRC parses "crc32:XXXXXXXX" or "XXXXXXXX".
func parseCRC(val string) (uint32, bool) {
	val = strings.TrimPrefix(val, "crc32:")
	if len(val) != 8 {
		return 0, false
	}
	v, err := strconv.ParseUint(val, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// ReadAll reads all frames until EOF.
func (r *Reader) ReadAll() ([]*Frame, error) {
	var frames []*Frame
	for {
		frame, err := r.Next()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, frame)
	}
}
