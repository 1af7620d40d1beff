package virtkbd

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/seatkit/seatkit/keyboard"
)

// Client -> server frame opcodes. Every frame starts with a one-byte opcode
// followed by a fixed-size little-endian body.
const (
	OpKey       = 0x01 // time u32, keycode u32, state u8, flags u8
	OpModifiers = 0x02 // depressed u32, latched u32, locked u32, group u32
	OpRepeat    = 0x03 // rate i32, delay i32
)

// OpKey flag bits.
const (
	// KeyFlagUpdateState requests that the transition is fed into the
	// composition engine. Clients re-injecting state they already composed
	// themselves leave it unset.
	KeyFlagUpdateState = 0x01
)

const (
	keyBodySize       = 10
	modifiersBodySize = 16
	repeatBodySize    = 8
)

// Frame is one decoded client frame.
type Frame struct {
	Op byte

	Key KeyFrame

	Depressed, Latched, Locked, Group uint32

	Rate, Delay int32
}

// KeyFrame is the body of an OpKey frame.
type KeyFrame struct {
	TimeMsec    uint32
	Keycode     uint32
	Pressed     bool
	UpdateState bool
}

// ReadFrame reads and decodes a single frame.
func ReadFrame(r io.Reader) (Frame, error) {
	var op [1]byte
	if _, err := io.ReadFull(r, op[:]); err != nil {
		return Frame{}, err
	}
	f := Frame{Op: op[0]}
	switch f.Op {
	case OpKey:
		var body [keyBodySize]byte
		if _, err := io.ReadFull(r, body[:]); err != nil {
			return Frame{}, fmt.Errorf("read key frame: %w", err)
		}
		f.Key.TimeMsec = binary.LittleEndian.Uint32(body[0:4])
		f.Key.Keycode = binary.LittleEndian.Uint32(body[4:8])
		f.Key.Pressed = body[8] != 0
		f.Key.UpdateState = body[9]&KeyFlagUpdateState != 0
	case OpModifiers:
		var body [modifiersBodySize]byte
		if _, err := io.ReadFull(r, body[:]); err != nil {
			return Frame{}, fmt.Errorf("read modifiers frame: %w", err)
		}
		f.Depressed = binary.LittleEndian.Uint32(body[0:4])
		f.Latched = binary.LittleEndian.Uint32(body[4:8])
		f.Locked = binary.LittleEndian.Uint32(body[8:12])
		f.Group = binary.LittleEndian.Uint32(body[12:16])
	case OpRepeat:
		var body [repeatBodySize]byte
		if _, err := io.ReadFull(r, body[:]); err != nil {
			return Frame{}, fmt.Errorf("read repeat frame: %w", err)
		}
		f.Rate = int32(binary.LittleEndian.Uint32(body[0:4]))
		f.Delay = int32(binary.LittleEndian.Uint32(body[4:8]))
	default:
		return Frame{}, fmt.Errorf("unknown frame opcode 0x%02x", f.Op)
	}
	return f, nil
}

// EncodeKey encodes an OpKey frame.
func EncodeKey(timeMsec, keycode uint32, pressed, updateState bool) []byte {
	b := make([]byte, 1+keyBodySize)
	b[0] = OpKey
	binary.LittleEndian.PutUint32(b[1:5], timeMsec)
	binary.LittleEndian.PutUint32(b[5:9], keycode)
	if pressed {
		b[9] = 1
	}
	if updateState {
		b[10] = KeyFlagUpdateState
	}
	return b
}

// EncodeModifiers encodes an OpModifiers frame.
func EncodeModifiers(depressed, latched, locked, group uint32) []byte {
	b := make([]byte, 1+modifiersBodySize)
	b[0] = OpModifiers
	binary.LittleEndian.PutUint32(b[1:5], depressed)
	binary.LittleEndian.PutUint32(b[5:9], latched)
	binary.LittleEndian.PutUint32(b[9:13], locked)
	binary.LittleEndian.PutUint32(b[13:17], group)
	return b
}

// EncodeRepeat encodes an OpRepeat frame.
func EncodeRepeat(rate, delay int32) []byte {
	b := make([]byte, 1+repeatBodySize)
	b[0] = OpRepeat
	binary.LittleEndian.PutUint32(b[1:5], uint32(rate))
	binary.LittleEndian.PutUint32(b[5:9], uint32(delay))
	return b
}

// KeyState converts a frame's pressed flag to the tracker's key state.
func (kf KeyFrame) KeyState() keyboard.KeyState {
	if kf.Pressed {
		return keyboard.KeyPressed
	}
	return keyboard.KeyReleased
}
