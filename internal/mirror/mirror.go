// internal/mirror/mirror.go
package mirror

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/jsy-meter/internal/meter"
	"github.com/tamzrod/jsy-meter/internal/poller"
	"github.com/tamzrod/jsy-meter/internal/status"
)

type mirrorImpl struct {
	plan    Plan
	clients map[string]endpointClient
}

func New(plan Plan, clients map[string]endpointClient) Writer {
	return &mirrorImpl{
		plan:    plan,
		clients: clients,
	}
}

// Write copies the raw registers of a successful poll into every target.
// Failed polls are not mirrored; the status block reports them.
func (w *mirrorImpl) Write(res poller.PollResult) error {
	if res.Err != nil {
		return nil
	}
	if len(res.Registers) != int(meter.RegisterCount) {
		return fmt.Errorf("mirror: expected %d registers, got %d", meter.RegisterCount, len(res.Registers))
	}

	var errs []string

	for _, tgt := range w.plan.Targets {
		cli := w.clients[tgt.key()]
		if cli == nil {
			errs = append(errs, fmt.Sprintf(
				"mirror: missing client for endpoint %s",
				tgt.Endpoint,
			))
			continue
		}

		if err := cli.WriteRegisters(areaHoldingRegisters, tgt.UnitID, tgt.Address, res.Registers); err != nil {
			errs = append(errs, fmt.Sprintf(
				"mirror: target=%d ep=%s unit=%d addr=%d err=%v",
				tgt.ID, tgt.Endpoint, tgt.UnitID, tgt.Address, err,
			))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}

	return nil
}

// ---- STATUS ----

// StatusWriter is the delivery-only contract for device status.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// statusGroup fans a snapshot out to every target with status memory.
type statusGroup []*deviceStatusWriter

func (g statusGroup) WriteStatus(s status.Snapshot) error {
	var errs []string
	for _, sw := range g {
		if err := sw.WriteStatus(s); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}
	return nil
}

// NewStatusWriter builds the status writer for the plan.
// Reports false when the status block is disabled.
func NewStatusWriter(plan Plan, clients map[string]endpointClient) (StatusWriter, bool) {
	if plan.Status == nil {
		return nil, false
	}

	var g statusGroup
	for _, tgt := range plan.Targets {
		if tgt.StatusUnitID == nil {
			continue
		}
		g = append(g, newDeviceStatusWriter(plan.Status, tgt, clients[tgt.key()]))
	}

	if len(g) == 0 {
		return nil, false
	}
	return g, true
}
