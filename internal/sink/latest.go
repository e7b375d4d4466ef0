// internal/sink/latest.go
package sink

import (
	"sync"
	"time"

	"github.com/tamzrod/jsy-meter/internal/meter"
)

// Latest keeps the most recent value of every bound field.
// Written from the poll goroutine, read from HTTP handlers.
type Latest struct {
	mu      sync.RWMutex
	values  map[meter.Field]float64
	updated time.Time
}

func NewLatest() *Latest {
	return &Latest{values: make(map[meter.Field]float64)}
}

// Sink returns a sink storing values for f.
func (l *Latest) Sink(f meter.Field) meter.Sink {
	return meter.SinkFunc(func(v float64) {
		l.mu.Lock()
		l.values[f] = v
		l.updated = time.Now()
		l.mu.Unlock()
	})
}

// Value is one entry of a Latest snapshot.
type Value struct {
	Field string  `json:"field"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Values returns the stored values in layout order and the time of the last update.
func (l *Latest) Values() ([]Value, time.Time) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Value, 0, len(l.values))
	for _, f := range meter.Fields() {
		v, ok := l.values[f]
		if !ok {
			continue
		}
		out = append(out, Value{Field: f.String(), Value: v, Unit: f.Quantity.Unit()})
	}
	return out, l.updated
}
