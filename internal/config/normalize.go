// internal/config/normalize.go
package config

import "strings"

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Serial.Parity = strings.ToUpper(cfg.Serial.Parity)

	if m := cfg.Outputs.MQTT; m != nil {
		m.Topic = strings.TrimRight(m.Topic, "/")
		m.DiscoveryPrefix = strings.TrimRight(m.DiscoveryPrefix, "/")
	}

	// ------------------------------------------------------------
	// DEVICE STATUS BLOCK NORMALIZATION (OPT-IN)
	// ------------------------------------------------------------

	m := cfg.Mirror
	if m == nil || m.StatusSlot == nil {
		return
	}

	// Default the stored name to the device name.
	if m.DeviceName == "" {
		m.DeviceName = cfg.Device.Name
	}

	// Truncate to max 16 characters
	if len(m.DeviceName) > 16 {
		m.DeviceName = m.DeviceName[:16]
	}
}
