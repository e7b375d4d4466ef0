// internal/config/validate.go
package config

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/tamzrod/jsy-meter/internal/meter"
	"github.com/tamzrod/jsy-meter/internal/status"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	// ------------------------------------------------------------
	// DEVICE + SERIAL LINE
	// ------------------------------------------------------------

	d := cfg.Device
	if d.Address < 1 || d.Address > 247 {
		return fmt.Errorf("device %q: address %d out of range 1-247", d.Name, d.Address)
	}
	if d.PollIntervalMs <= 0 {
		return fmt.Errorf("device %q: poll_interval_ms must be > 0", d.Name)
	}
	if d.LoopIntervalMs <= 0 || d.LoopIntervalMs >= d.PollIntervalMs {
		return fmt.Errorf(
			"device %q: loop_interval_ms must be > 0 and below poll_interval_ms (%d)",
			d.Name,
			d.PollIntervalMs,
		)
	}

	s := cfg.Serial
	if s.Port == "" {
		return fmt.Errorf("serial: port required")
	}
	if s.BaudRate <= 0 {
		return fmt.Errorf("serial: baud_rate must be > 0")
	}
	if s.DataBits != 7 && s.DataBits != 8 {
		return fmt.Errorf("serial: data_bits must be 7 or 8, got %d", s.DataBits)
	}
	switch strings.ToUpper(s.Parity) {
	case "N", "E", "O":
	default:
		return fmt.Errorf("serial: parity must be N, E or O, got %q", s.Parity)
	}
	if s.StopBits != 1 && s.StopBits != 2 {
		return fmt.Errorf("serial: stop_bits must be 1 or 2, got %d", s.StopBits)
	}
	if s.TimeoutMs <= 0 {
		return fmt.Errorf("serial: timeout_ms must be > 0")
	}

	// ------------------------------------------------------------
	// SENSOR BINDINGS
	// ------------------------------------------------------------

	for phase, quantities := range cfg.Sensors {
		seen := make(map[string]bool, len(quantities))
		for _, q := range quantities {
			if _, err := meter.ParseField(phase, q); err != nil {
				return fmt.Errorf("sensors: %w", err)
			}
			if seen[q] {
				return fmt.Errorf("sensors: %s.%s bound twice", phase, q)
			}
			seen[q] = true
		}
	}

	// ------------------------------------------------------------
	// OUTPUTS
	// ------------------------------------------------------------

	if p := cfg.Outputs.Prometheus; p != nil {
		if p.Listen == "" {
			return fmt.Errorf("outputs.prometheus: listen required")
		}
		if !strings.HasPrefix(p.Path, "/") {
			return fmt.Errorf("outputs.prometheus: path must start with '/', got %q", p.Path)
		}
		if p.Path == "/health" || strings.HasPrefix(p.Path, "/api/") {
			return fmt.Errorf("outputs.prometheus: path %q is reserved", p.Path)
		}
	}

	if m := cfg.Outputs.MQTT; m != nil {
		if m.Broker == "" {
			return fmt.Errorf("outputs.mqtt: broker required")
		}
		if strings.ContainsAny(m.Topic, "+#") {
			return fmt.Errorf("outputs.mqtt: topic %q must not contain wildcards", m.Topic)
		}
	}

	// ------------------------------------------------------------
	// MIRROR
	// ------------------------------------------------------------

	if cfg.Mirror != nil {
		if err := validateMirror(cfg.Mirror); err != nil {
			return err
		}
	}

	// ------------------------------------------------------------
	// LOGGING
	// ------------------------------------------------------------

	if _, err := zapcore.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	return nil
}

func validateMirror(m *MirrorConfig) error {
	type span struct {
		start  uint32
		end    uint32
		target uint32
	}

	if len(m.Targets) == 0 {
		return fmt.Errorf("mirror: at least one target required")
	}

	// device_name sanity (ASCII only)
	for i := 0; i < len(m.DeviceName); i++ {
		if m.DeviceName[i] > 0x7F {
			return fmt.Errorf("mirror: device_name must contain ASCII characters only")
		}
	}

	// key = endpoint | unit_id
	spans := make(map[string][]span)

	for _, t := range m.Targets {
		switch t.Kind {
		case "modbus", "ingest":
		default:
			return fmt.Errorf("mirror target %d: kind must be modbus or ingest, got %q", t.ID, t.Kind)
		}
		if t.Endpoint == "" {
			return fmt.Errorf("mirror target %d: endpoint required", t.ID)
		}

		start := uint32(t.Address)
		end := start + uint32(meter.RegisterCount) - 1
		if end > 0xFFFF {
			return fmt.Errorf(
				"mirror target %d: address %d leaves no room for %d registers",
				t.ID,
				t.Address,
				meter.RegisterCount,
			)
		}

		key := fmt.Sprintf("%s|%d", t.Endpoint, t.UnitID)
		for _, s := range spans[key] {
			// overlap check (inclusive)
			if !(end < s.start || start > s.end) {
				return fmt.Errorf(
					"mirror overlap: endpoint=%s unit_id=%d range=%d-%d overlaps with target=%d range=%d-%d",
					t.Endpoint,
					t.UnitID,
					start,
					end,
					s.target,
					s.start,
					s.end,
				)
			}
		}
		spans[key] = append(spans[key], span{start: start, end: end, target: t.ID})

		// status is opt-in; when enabled every target needs status memory
		if m.StatusSlot != nil && t.StatusUnitID == nil {
			return fmt.Errorf(
				"mirror: status_slot is set but target %q has no status_unit_id",
				t.Endpoint,
			)
		}
	}

	if m.StatusSlot == nil {
		return nil
	}

	// ------------------------------------------------------------
	// STATUS BLOCK PLACEMENT
	// ------------------------------------------------------------

	statusStart := uint32(*m.StatusSlot) * status.SlotsPerDevice
	statusEnd := statusStart + status.SlotsPerDevice - 1
	if statusEnd > 0xFFFF {
		return fmt.Errorf(
			"mirror: status_slot %d places the status block at %d-%d, beyond register 65535",
			*m.StatusSlot,
			statusStart,
			statusEnd,
		)
	}

	// the status block must not land inside any mirrored data block
	for _, t := range m.Targets {
		key := fmt.Sprintf("%s|%d", t.Endpoint, *t.StatusUnitID)
		for _, s := range spans[key] {
			if !(statusEnd < s.start || statusStart > s.end) {
				return fmt.Errorf(
					"mirror overlap: endpoint=%s unit_id=%d status block %d-%d overlaps with target=%d range=%d-%d",
					t.Endpoint,
					*t.StatusUnitID,
					statusStart,
					statusEnd,
					s.target,
					s.start,
					s.end,
				)
			}
		}
	}

	return nil
}
