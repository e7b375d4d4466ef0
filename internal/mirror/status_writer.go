// internal/mirror/status_writer.go
package mirror

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/jsy-meter/internal/status"
)

// deviceStatusWriter writes the status block of one target.
// No logic, no interpretation; it delivers the snapshot it is given.
type deviceStatusWriter struct {
	plan     *StatusPlan
	endpoint string
	unitID   uint8
	cli      endpointClient

	needFull bool
	last     status.Snapshot
	nameRegs []uint16
}

func newDeviceStatusWriter(plan *StatusPlan, tgt Target, cli endpointClient) *deviceStatusWriter {
	return &deviceStatusWriter{
		plan:     plan,
		endpoint: tgt.Endpoint,
		unitID:   *tgt.StatusUnitID,
		cli:      cli,
		needFull: true, // full re-assert on first successful write
		last:     status.Snapshot{Health: status.HealthUnknown},
		nameRegs: encodeDeviceNameRegs(plan.DeviceName),
	}
}

// WriteStatus delivers a snapshot into status memory.
// On any write failure, the next call re-asserts the full block.
func (sw *deviceStatusWriter) WriteStatus(s status.Snapshot) error {
	if sw.cli == nil {
		return fmt.Errorf("status writer: missing client for endpoint %s", sw.endpoint)
	}

	baseAddr := sw.baseAddr()

	// ---- full block write (identity re-assert) ----
	if sw.needFull {
		if err := sw.cli.WriteRegisters(
			areaHoldingRegisters,
			sw.unitID,
			baseAddr,
			sw.fullBlockRegs(s),
		); err != nil {
			return fmt.Errorf("status writer: ep=%s full block write failed: %w", sw.endpoint, err)
		}

		sw.needFull = false
		sw.last = s
		return nil
	}

	// ---- incremental slot writes ----
	slots := []struct {
		slot uint16
		name string
		prev *uint16
		next uint16
	}{
		{status.SlotHealthCode, "health", &sw.last.Health, s.Health},
		{status.SlotLastErrorCode, "last_error", &sw.last.LastErrorCode, s.LastErrorCode},
		{status.SlotSecondsInError, "seconds", &sw.last.SecondsInError, s.SecondsInError},
		{status.SlotDirection, "direction", &sw.last.Direction, s.Direction},
	}

	var errs []string
	for _, sl := range slots {
		if *sl.prev == sl.next {
			continue
		}
		if err := sw.cli.WriteRegisters(
			areaHoldingRegisters,
			sw.unitID,
			baseAddr+sl.slot,
			[]uint16{sl.next},
		); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d %s write failed: %v", sl.slot, sl.name, err))
			continue
		}
		*sl.prev = sl.next
	}

	if len(errs) > 0 {
		// partial failure: re-assert on next call
		sw.needFull = true
		return errors.New("status writer: ep=" + sw.endpoint + ": " + strings.Join(errs, " | "))
	}

	return nil
}

func (sw *deviceStatusWriter) baseAddr() uint16 {
	// each device owns a fixed SlotsPerDevice block
	return sw.plan.Slot * status.SlotsPerDevice
}

func (sw *deviceStatusWriter) fullBlockRegs(s status.Snapshot) []uint16 {
	regs := status.Encode(s)

	// device name always lives at the end of the block
	copy(regs[status.SlotDeviceNameStart:status.SlotDeviceNameEnd+1], sw.nameRegs)

	return regs
}

// encodeDeviceNameRegs packs up to 16 ASCII characters into 8 registers,
// two bytes per register, big-endian.
func encodeDeviceNameRegs(name string) []uint16 {
	out := make([]uint16, status.SlotDeviceNameSlots)

	b := []byte(name)
	if len(b) > status.DeviceNameMaxChars {
		b = b[:status.DeviceNameMaxChars]
	}

	for i := 0; i < len(b); i++ {
		if b[i] < 0x20 || b[i] > 0x7E {
			b[i] = '?'
		}
	}

	for i := 0; i < status.DeviceNameMaxChars; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}

	return out
}
