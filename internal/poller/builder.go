// internal/poller/builder.go
package poller

import (
	"time"

	"go.uber.org/zap"

	cfg "github.com/tamzrod/jsy-meter/internal/config"
	"github.com/tamzrod/jsy-meter/internal/meter"
)

// Build constructs a Runner for one meter from validated config.
// The transport is owned by the caller; Build only wires it.
func Build(c *cfg.Config, tr Transport, sinks meter.Sinks, log *zap.Logger) (*Runner, error) {
	d := c.Device
	if log == nil {
		log = zap.NewNop()
	}

	sched, err := NewScheduler(
		Config{
			Device:   d.Name,
			Address:  d.Address,
			Interval: time.Duration(d.PollIntervalMs) * time.Millisecond,
		},
		tr,
		NewClock(),
		sinks,
		log,
	)
	if err != nil {
		return nil, err
	}

	log.Info("meter poller configured",
		zap.String("device", d.Name),
		zap.Uint8("address", d.Address),
		zap.Int("poll_interval_ms", d.PollIntervalMs),
		zap.Int("bound_fields", len(sinks)))

	return NewRunner(sched, tr, time.Duration(d.LoopIntervalMs)*time.Millisecond), nil
}
