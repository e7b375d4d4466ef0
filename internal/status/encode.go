// internal/status/encode.go
package status

// Encode converts a Snapshot into the live part of a device status block.
// The device name slots are left zero; the mirror fills them.
// No IO. No side effects.
func Encode(s Snapshot) []uint16 {
	regs := make([]uint16, SlotsPerDevice)

	regs[SlotHealthCode] = s.Health
	regs[SlotLastErrorCode] = s.LastErrorCode
	regs[SlotSecondsInError] = s.SecondsInError
	regs[SlotDirection] = s.Direction

	return regs
}
