// internal/mirror/builder.go
package mirror

import (
	"errors"
	"fmt"
	"time"

	cfg "github.com/tamzrod/jsy-meter/internal/config"
	"github.com/tamzrod/jsy-meter/internal/mirror/ingest"
	"github.com/tamzrod/jsy-meter/internal/mirror/tcp"
)

// BuildPlan converts the mirror config into a Plan.
// Assumes config has already passed validation and normalization.
func BuildPlan(device string, m *cfg.MirrorConfig) (Plan, error) {
	if m == nil {
		return Plan{}, errors.New("mirror: config required")
	}

	plan := Plan{Device: device}

	for _, t := range m.Targets {
		plan.Targets = append(plan.Targets, Target{
			ID:           t.ID,
			Kind:         t.Kind,
			Endpoint:     t.Endpoint,
			UnitID:       t.UnitID,
			Address:      t.Address,
			StatusUnitID: t.StatusUnitID,
		})
	}

	if m.StatusSlot != nil {
		plan.Status = &StatusPlan{
			Slot:       *m.StatusSlot,
			DeviceName: m.DeviceName,
		}
	}

	return plan, nil
}

type closer interface {
	endpointClient
	Close() error
}

// BuildEndpointClients creates one client per unique kind|endpoint.
func BuildEndpointClients(m *cfg.MirrorConfig) (map[string]endpointClient, func() error, error) {
	timeout := time.Duration(m.TimeoutMs) * time.Millisecond

	clients := make(map[string]endpointClient)
	var closers []func() error

	closeAll := func() error {
		var last error
		for _, fn := range closers {
			if err := fn(); err != nil {
				last = err
			}
		}
		return last
	}

	for _, t := range m.Targets {
		tgt := Target{Kind: t.Kind, Endpoint: t.Endpoint}
		if _, ok := clients[tgt.key()]; ok {
			continue
		}

		var (
			c   closer
			err error
		)
		switch t.Kind {
		case KindModbus:
			c, err = tcp.NewEndpointClient(tcp.Config{Endpoint: t.Endpoint, Timeout: timeout})
		case KindIngest:
			c, err = ingest.NewEndpointClient(ingest.Config{Endpoint: t.Endpoint, Timeout: timeout})
		default:
			err = fmt.Errorf("mirror: unknown target kind %q", t.Kind)
		}
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}

		clients[tgt.key()] = c
		closers = append(closers, c.Close)
	}

	return clients, closeAll, nil
}
