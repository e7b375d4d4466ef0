// internal/meter/layout.go
package meter

// Decimal scales used by the meter's fixed-point registers.
const (
	UnitNoDec  = 1.0
	UnitOneDec = 0.1
	UnitTwoDec = 0.01
)

// RegDirection holds the reverse-flow bits: bit 0..2 per phase, bit 3 total.
const RegDirection = 0x32

const totalDirectionBit = 3

// register describes where a field lives in the response block.
// Offsets are zero-based register indexes; byte offset is offset*2.
type register struct {
	offset int
	wide   bool // 32-bit, high register first
	scale  float64
}

// layout returns the register geometry of a valid field.
// Offsets are kept exactly as the device documents them.
func layout(f Field) register {
	if f.Phase < Total {
		p := int(f.Phase)
		switch f.Quantity {
		case Voltage:
			return register{offset: p, scale: UnitTwoDec}
		case Current:
			return register{offset: p + 3, scale: UnitTwoDec}
		case ActivePower:
			return register{offset: p + 6, scale: UnitNoDec}
		case ForwardActiveEnergy:
			return register{offset: p*2 + 0x34, wide: true, scale: UnitTwoDec}
		case BackwardActiveEnergy:
			return register{offset: p*2 + 0x3c, wide: true, scale: UnitTwoDec}
		}
	}

	switch f.Quantity {
	case ActivePower:
		return register{offset: 0x09, wide: true, scale: UnitNoDec}
	case ForwardActiveEnergy:
		return register{offset: 0x3A, wide: true, scale: UnitTwoDec}
	case BackwardActiveEnergy:
		return register{offset: 0x42, wide: true, scale: UnitTwoDec}
	default:
		return register{offset: 0x15, scale: UnitTwoDec}
	}
}

// directionBit is the bit of RegDirection that flips the sign of an active power field.
func directionBit(p Phase) uint {
	if p == Total {
		return totalDirectionBit
	}
	return uint(p)
}
