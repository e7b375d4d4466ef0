// internal/sink/log.go
package sink

import (
	"go.uber.org/zap"

	"github.com/tamzrod/jsy-meter/internal/meter"
)

// Log returns a sink writing each value of f as a debug line.
func Log(log *zap.Logger, f meter.Field) meter.Sink {
	name := f.String()
	unit := f.Quantity.Unit()

	return meter.SinkFunc(func(v float64) {
		log.Debug("measurement",
			zap.String("field", name),
			zap.Float64("value", v),
			zap.String("unit", unit))
	})
}
