package protocol

import (
	"encoding/binary"
	"fmt"
)

const (
	// HeaderSize is the length prefix plus the opcode.
	HeaderSize = 6
	// MaxFrameLength caps the length field (opcode + payload).
	MaxFrameLength = 16 << 20
)

// Frame is one message on the stream.
type Frame struct {
	Opcode  Opcode
	Payload []byte
}

func NewFrame(op Opcode, payload string) Frame {
	return Frame{Opcode: op, Payload: []byte(payload)}
}

func (f Frame) String() string {
	return fmt.Sprintf("%s(%d bytes)", f.Opcode, len(f.Payload))
}

// Encode lays out [len u32 BE][opcode u16 BE][payload].
func Encode(f Frame) []byte {
	buf := make([]byte, HeaderSize+len(f.Payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(2+len(f.Payload)))
	binary.BigEndian.PutUint16(buf[4:6], uint16(f.Opcode))
	copy(buf[HeaderSize:], f.Payload)
	return buf
}

// TryParse extracts the first complete frame of buf using the default cap.
func TryParse(buf []byte) (Frame, int, error) {
	return TryParseLimit(buf, MaxFrameLength)
}

// TryParseLimit extracts the first complete frame of buf. On success it
// returns the frame and the number of bytes consumed; the payload is a copy
// so buf may be reused. Incomplete input yields ErrTooShort or ErrNeedMore
// and consumes nothing.
func TryParseLimit(buf []byte, maxLength int) (Frame, int, error) {
	if len(buf) < HeaderSize {
		return Frame{}, 0, ErrTooShort
	}
	length := binary.BigEndian.Uint32(buf[0:4])
	if length < 2 {
		return Frame{}, 0, ErrMalformed
	}
	if uint64(length) > uint64(maxLength) {
		return Frame{}, 0, ErrTooLarge
	}
	total := 4 + int(length)
	if len(buf) < total {
		return Frame{}, 0, ErrNeedMore
	}
	payload := make([]byte, total-HeaderSize)
	copy(payload, buf[HeaderSize:total])
	return Frame{
		Opcode:  Opcode(binary.BigEndian.Uint16(buf[4:6])),
		Payload: payload,
	}, total, nil
}
