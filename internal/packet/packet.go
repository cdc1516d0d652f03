// Package packet implements the wire packet layer that sits on top of the
// KISS codec: a one-byte frame type, an opaque payload, and a trailing
// 4-byte checksum.
package packet

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/battlesnake/iplink/internal/checksum"
	"github.com/battlesnake/iplink/internal/kiss"
)

// FrameType identifies the kind of packet carried inside one KISS frame.
type FrameType byte

const (
	FrameTypeKeepalive FrameType = 0x01
	FrameTypeIPPacket  FrameType = 0x02
)

func (t FrameType) String() string {
	switch t {
	case FrameTypeKeepalive:
		return "keepalive"
	case FrameTypeIPPacket:
		return "ip_packet"
	default:
		return fmt.Sprintf("unknown(%#02x)", byte(t))
	}
}

// minRawLength is type(1) + checksum(4); an empty payload still carries
// both.
const minRawLength = 5

var (
	// ErrTooShort is returned when a raw KISS frame is too small to hold a
	// frame type and checksum.
	ErrTooShort = errors.New("packet: frame too short")
	// ErrChecksum is returned when the trailing checksum does not match the
	// payload.
	ErrChecksum = errors.New("packet: checksum mismatch")
)

// Encode produces the bytes to append to the serial output queue for one
// packet: a KISS frame wrapping [frame_type][payload][checksum].
func Encode(frameType FrameType, payload []byte) []byte {
	raw := make([]byte, 0, 1+len(payload)+4)
	raw = append(raw, byte(frameType))
	raw = append(raw, payload...)

	cs := checksum.Calc(payload) ^ uint32(frameType)
	var csBuf [4]byte
	binary.BigEndian.PutUint32(csBuf[:], cs)
	raw = append(raw, csBuf[:]...)

	return kiss.Encode(raw)
}

// Decode validates and unwraps one raw (already de-KISSed) frame taken
// from the decoder's output queue.
func Decode(raw []byte) (FrameType, []byte, error) {
	if len(raw) < minRawLength {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrTooShort, len(raw))
	}

	frameType := FrameType(raw[0])
	payload := raw[1 : len(raw)-4]
	csExpect := binary.BigEndian.Uint32(raw[len(raw)-4:])

	csActual := checksum.Calc(payload) ^ uint32(frameType)
	if csExpect != csActual {
		return 0, nil, fmt.Errorf("%w: expected=%#08x actual=%#08x", ErrChecksum, csExpect, csActual)
	}

	return frameType, payload, nil
}
