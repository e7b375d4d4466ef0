// internal/config/load.go
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults mirror a stock JSY meter on a 9600 8N1 line.
const (
	DefaultAddress        = 0x01
	DefaultPollIntervalMs = 10000
	DefaultLoopIntervalMs = 50
	DefaultBaudRate       = 9600
	DefaultDataBits       = 8
	DefaultParity         = "N"
	DefaultStopBits       = 1
	DefaultTimeoutMs      = 1000
	DefaultMetricsPath    = "/metrics"
	DefaultTopic          = "jsy_meter"
	DefaultLogLevel       = "info"
)

// Load reads a YAML config file and applies defaults.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes YAML bytes and applies defaults.
func Parse(raw []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	d := &cfg.Device
	if d.Name == "" {
		d.Name = "jsy-meter"
	}
	if d.Address == 0 {
		d.Address = DefaultAddress
	}
	if d.PollIntervalMs == 0 {
		d.PollIntervalMs = DefaultPollIntervalMs
	}
	if d.LoopIntervalMs == 0 {
		d.LoopIntervalMs = DefaultLoopIntervalMs
	}

	s := &cfg.Serial
	if s.BaudRate == 0 {
		s.BaudRate = DefaultBaudRate
	}
	if s.DataBits == 0 {
		s.DataBits = DefaultDataBits
	}
	if s.Parity == "" {
		s.Parity = DefaultParity
	}
	if s.StopBits == 0 {
		s.StopBits = DefaultStopBits
	}
	if s.TimeoutMs == 0 {
		s.TimeoutMs = DefaultTimeoutMs
	}

	if p := cfg.Outputs.Prometheus; p != nil && p.Path == "" {
		p.Path = DefaultMetricsPath
	}
	if m := cfg.Outputs.MQTT; m != nil && m.Topic == "" {
		m.Topic = DefaultTopic
	}

	if cfg.Mirror != nil && cfg.Mirror.TimeoutMs == 0 {
		cfg.Mirror.TimeoutMs = DefaultTimeoutMs
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
}
