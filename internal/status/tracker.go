// internal/status/tracker.go
package status

import "errors"

// Tracker owns the device-level health of one meter.
// Not safe for concurrent use; the orchestrator goroutine owns it.
type Tracker struct {
	snap Snapshot
}

// NewTracker starts in HealthUnknown.
func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Health: HealthUnknown}}
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot { return t.snap }

// Observe records the outcome of one exchange and reports whether the
// snapshot changed. direction is only applied on success.
func (t *Tracker) Observe(err error, direction uint16) bool {
	before := t.snap

	if err == nil {
		// Recovery / OK: error state is cleared.
		t.snap.Health = HealthOK
		t.snap.LastErrorCode = 0
		t.snap.SecondsInError = 0
		t.snap.Direction = direction
	} else {
		// seconds_in_error increments on Tick only.
		t.snap.Health = HealthError
		t.snap.LastErrorCode = ErrorCode(err)
	}

	return t.snap != before
}

// Tick advances seconds-in-error; call it at 1 Hz.
// Reports whether the snapshot changed.
func (t *Tracker) Tick() bool {
	if t.snap.Health == HealthOK {
		return false
	}
	if t.snap.SecondsInError >= MaxSecondsInError {
		return false
	}
	t.snap.SecondsInError++
	return true
}

// ErrorCode extracts a best-effort uint16 code from an error without assuming concrete types.
// If the error does not expose a code, returns ErrorCodeGeneric.
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	type coder interface{ Code() uint16 }

	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}

	return ErrorCodeGeneric
}
