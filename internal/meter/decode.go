// internal/meter/decode.go
package meter

import (
	"encoding/binary"
	"fmt"
)

// malformedCode is the status error code reported for a rejected response.
const malformedCode uint16 = 2

// LengthError is returned when the response is not exactly ResponseSize bytes.
// Typically a modbus exception reply or a truncated read.
type LengthError struct {
	Got int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("meter: received %d bytes, expected %d", e.Got, ResponseSize)
}

// Code exposes a status code for the device status block.
func (e *LengthError) Code() uint16 { return malformedCode }

// Reading is one fully decoded response.
type Reading struct {
	// Direction is the raw reverse-flow bitfield.
	Direction uint16

	// Registers holds all 68 raw registers in read order.
	Registers []uint16

	values [Total + 1][quantityCount]float64
}

// Value returns the decoded value of f. Invalid fields read as 0.
func (r *Reading) Value(f Field) float64 {
	if !f.Valid() {
		return 0
	}
	return r.values[f.Phase][f.Quantity]
}

// Decode validates and decodes a raw response buffer.
// All-or-nothing: a buffer of the wrong size yields no reading.
func Decode(data []byte) (*Reading, error) {
	if len(data) != ResponseSize {
		return nil, &LengthError{Got: len(data)}
	}

	r := &Reading{
		Direction: reg16(data, RegDirection),
		Registers: make([]uint16, RegisterCount),
	}
	for i := range r.Registers {
		r.Registers[i] = reg16(data, i)
	}

	for _, f := range allFields {
		reg := layout(f)

		var raw float64
		if reg.wide {
			raw = float64(reg32(data, reg.offset))
		} else {
			raw = float64(reg16(data, reg.offset))
		}
		v := raw * reg.scale

		// Power magnitude is unsigned; flow direction comes from the bitfield.
		if f.Quantity == ActivePower && r.Direction&(1<<directionBit(f.Phase)) != 0 {
			v = -v
		}

		r.values[f.Phase][f.Quantity] = v
	}

	return r, nil
}

func reg16(data []byte, off int) uint16 {
	return binary.BigEndian.Uint16(data[off*2:])
}

func reg32(data []byte, off int) uint32 {
	return binary.BigEndian.Uint32(data[off*2:])
}
