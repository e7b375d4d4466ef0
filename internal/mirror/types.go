// internal/mirror/types.go
package mirror

import "github.com/tamzrod/jsy-meter/internal/poller"

// Target kinds.
const (
	KindModbus = "modbus"
	KindIngest = "ingest"
)

// areaHoldingRegisters is the only memory area the mirror writes.
const areaHoldingRegisters byte = 3

// Target is one destination for the mirrored register block.
type Target struct {
	ID       uint32
	Kind     string
	Endpoint string
	UnitID   uint8
	Address  uint16 // first register of the 68-register block

	// Status memory for this target; nil disables status on it.
	StatusUnitID *uint8
}

// key identifies the shared endpoint client of a target.
func (t Target) key() string { return t.Kind + "|" + t.Endpoint }

// StatusPlan places the device status block.
type StatusPlan struct {
	Slot       uint16 // block index; address = Slot * SlotsPerDevice
	DeviceName string
}

// Plan is the fully-built mirror plan for one meter.
type Plan struct {
	Device  string
	Targets []Target
	Status  *StatusPlan // nil disables the status block
}

// Writer writes poll results into targets.
type Writer interface {
	Write(res poller.PollResult) error
}

// endpointClient is the exact contract the mirror uses.
type endpointClient interface {
	WriteRegisters(area byte, unitID uint8, addr uint16, regs []uint16) error
}
