// internal/meter/frame.go
package meter

import "encoding/binary"

// Modbus function used by the meter.
const FuncReadHoldingRegisters byte = 0x03

// Read geometry of the meter's measurement block.
const (
	StartRegister uint16 = 0x0100
	RegisterCount uint16 = 0x44

	// ResponseSize is the register payload of a full reply (68 regs x 2 bytes).
	ResponseSize = int(RegisterCount) * 2
)

// FrameSize is the request length without CRC: addr(1) fc(1) start(2) count(2).
const FrameSize = 6

// Frame is the fixed read request sent on every poll.
// The address is the only variable byte and is set at construction.
type Frame struct {
	b [FrameSize]byte
}

// NewFrame builds the request for the meter at the given bus address.
func NewFrame(addr uint8) Frame {
	var f Frame
	f.b[0] = addr
	f.b[1] = FuncReadHoldingRegisters
	binary.BigEndian.PutUint16(f.b[2:4], StartRegister)
	binary.BigEndian.PutUint16(f.b[4:6], RegisterCount)
	return f
}

// Address returns the slave address embedded in the frame.
func (f Frame) Address() uint8 { return f.b[0] }

// Bytes returns a copy of the frame; callers may not mutate the template.
func (f Frame) Bytes() []byte {
	out := make([]byte, FrameSize)
	copy(out, f.b[:])
	return out
}
