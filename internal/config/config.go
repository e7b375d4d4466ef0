// internal/config/config.go
package config

type Config struct {
	Device  DeviceConfig        `yaml:"device"`
	Serial  SerialConfig        `yaml:"serial"`
	Sensors map[string][]string `yaml:"sensors"` // phase key -> quantity names
	Outputs OutputsConfig       `yaml:"outputs"`
	Mirror  *MirrorConfig       `yaml:"mirror"`
	Logging LoggingConfig       `yaml:"logging"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	Name           string `yaml:"name"`
	Address        uint8  `yaml:"address"`
	PollIntervalMs int    `yaml:"poll_interval_ms"`
	LoopIntervalMs int    `yaml:"loop_interval_ms"`
}

// ---- SERIAL LINE ----

type SerialConfig struct {
	Port      string `yaml:"port"`
	BaudRate  int    `yaml:"baud_rate"`
	DataBits  int    `yaml:"data_bits"`
	Parity    string `yaml:"parity"`
	StopBits  int    `yaml:"stop_bits"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- OUTPUTS ----

type OutputsConfig struct {
	Log        *LogOutputConfig  `yaml:"log"`
	Prometheus *PrometheusConfig `yaml:"prometheus"`
	MQTT       *MQTTConfig       `yaml:"mqtt"`
}

type LogOutputConfig struct {
	Enabled bool `yaml:"enabled"`
}

type PrometheusConfig struct {
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
}

type MQTTConfig struct {
	Broker          string `yaml:"broker"`
	ClientID        string `yaml:"client_id"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	Topic           string `yaml:"topic"`
	DiscoveryPrefix string `yaml:"discovery_prefix"` // empty disables discovery
	Retain          *bool  `yaml:"retain"`
}

// ---- MIRROR ----

// MirrorConfig replicates raw registers and device status into targets.
type MirrorConfig struct {
	TimeoutMs int            `yaml:"timeout_ms"`
	Targets   []TargetConfig `yaml:"targets"`

	// Device status block (optional, opt-in)
	StatusSlot *uint16 `yaml:"status_slot"`
	DeviceName string  `yaml:"device_name"`
}

type TargetConfig struct {
	ID           uint32 `yaml:"id"`
	Kind         string `yaml:"kind"` // modbus | ingest
	Endpoint     string `yaml:"endpoint"`
	UnitID       uint8  `yaml:"unit_id"`
	Address      uint16 `yaml:"address"`        // first register of the mirrored block
	StatusUnitID *uint8 `yaml:"status_unit_id"` // per-target status memory (optional)
}

// ---- LOGGING ----

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}
