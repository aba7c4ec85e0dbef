package rpcproto

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// maxFrameSize guards against a malicious or corrupt length prefix
// requesting an unbounded allocation.
const maxFrameSize = 16 << 20

// WriteFrame writes a 4-byte big-endian length prefix followed by the
// JSON-encoded frame, the teacher's own TCP-framing idiom applied to RPC
// instead of DNS wire format.
func WriteFrame(w io.Writer, f Frame) error {
	body, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("rpcproto: marshal frame: %w", err)
	}
	if len(body) > maxFrameSize {
		return fmt.Errorf("rpcproto: frame too large: %d bytes", len(body))
	}

	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(body)))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("rpcproto: write header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("rpcproto: write body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r.
func ReadFrame(r io.Reader) (Frame, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return Frame{}, err
	}
	length := binary.BigEndian.Uint32(header)
	if length > maxFrameSize {
		return Frame{}, fmt.Errorf("rpcproto: frame too large: %d bytes", length)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return Frame{}, fmt.Errorf("rpcproto: read body: %w", err)
	}

	var f Frame
	if err := json.Unmarshal(body, &f); err != nil {
		return Frame{}, fmt.Errorf("rpcproto: unmarshal frame: %w", err)
	}
	return f, nil
}

// encodePayload marshals v into a Frame's Payload field.
func encodePayload(v interface{}) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("rpcproto: marshal payload: %w", err)
	}
	return json.RawMessage(b), nil
}
