// internal/status/snapshot.go
package status

// Snapshot represents exactly what status consumers are allowed to see.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	SecondsInError uint16
	Direction      uint16
}

// OK reports whether the meter is currently answering.
func (s Snapshot) OK() bool { return s.Health == HealthOK }
