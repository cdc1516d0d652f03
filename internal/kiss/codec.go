// Package kiss implements the KISS/SLIP byte-stuffed framing used to carry
// opaque packets over the serial link: a single delimiter byte with two
// escape substitutions, per RFC 1055.
package kiss

// Framing constants. TFEND uses the RFC 1055-normative value rather than
// the original implementation's 0xdb typo (see spec's design notes):
// wire-compatibility with that binary is not a goal here.
const (
	FEND  byte = 0xc0
	FESC  byte = 0xdb
	TFEND byte = 0xdc
	TFESC byte = 0xdd
)

// Encode returns buf wrapped in one KISS frame.
func Encode(buf []byte) []byte {
	out := make([]byte, 0, len(buf)+2)
	out = append(out, FEND)
	for _, b := range buf {
		switch b {
		case FEND:
			out = append(out, FESC, TFEND)
		case FESC:
			out = append(out, FESC, TFESC)
		default:
			out = append(out, b)
		}
	}
	out = append(out, FEND)
	return out
}

type state int

const (
	stateIdle state = iota
	stateError
	stateActive
	stateActiveEscape
)

// Decoder is a streaming KISS decoder. It holds state across arbitrarily
// chunked reads so that frames split across multiple Feed calls decode
// correctly.
type Decoder struct {
	maxPacketLength int
	state           state
	buffer          []byte
}

// NewDecoder returns a Decoder that rejects any frame longer than
// maxPacketLength bytes (post-unescape) by entering the error state.
func NewDecoder(maxPacketLength int) *Decoder {
	return &Decoder{
		maxPacketLength: maxPacketLength,
		state:           stateIdle,
		buffer:          make([]byte, 0, maxPacketLength),
	}
}

// Feed processes in and returns the zero or more complete frames it
// produced. The returned slices are owned by the caller; Feed does not
// retain them.
func (d *Decoder) Feed(in []byte) [][]byte {
	var frames [][]byte
	for _, b := range in {
		if d.state == stateError {
			if b == FEND {
				d.state = stateIdle
			}
			continue
		}
		if d.state == stateIdle {
			if b == FEND {
				continue
			}
			d.state = stateActive
			d.buffer = d.buffer[:0]
		}

		switch d.state {
		case stateActive:
			switch b {
			case FESC:
				d.state = stateActiveEscape
				continue
			case FEND:
				frame := make([]byte, len(d.buffer))
				copy(frame, d.buffer)
				frames = append(frames, frame)
				d.state = stateIdle
				continue
			default:
				d.appendByte(b)
			}
		case stateActiveEscape:
			switch b {
			case TFEND:
				d.state = stateActive
				d.appendByte(FEND)
			case TFESC:
				d.state = stateActive
				d.appendByte(FESC)
			default:
				d.state = stateError
			}
		}
	}
	return frames
}

// appendByte appends b to the in-progress frame, overflowing to the error
// state if the frame would exceed maxPacketLength.
func (d *Decoder) appendByte(b byte) {
	if len(d.buffer) >= d.maxPacketLength {
		d.state = stateError
		return
	}
	d.buffer = append(d.buffer, b)
}

// State name exposed for tests/diagnostics.
func (d *Decoder) State() string {
	switch d.state {
	case stateIdle:
		return "idle"
	case stateError:
		return "error"
	case stateActive:
		return "active"
	case stateActiveEscape:
		return "active_escape"
	default:
		return "unknown"
	}
}

// Buffered returns a copy of the bytes accumulated for the in-progress
// frame (only meaningful in the active/active_escape states).
func (d *Decoder) Buffered() []byte {
	out := make([]byte, len(d.buffer))
	copy(out, d.buffer)
	return out
}
