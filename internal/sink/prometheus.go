// internal/sink/prometheus.go
package sink

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tamzrod/jsy-meter/internal/meter"
	"github.com/tamzrod/jsy-meter/internal/status"
)

const namespace = "jsy_meter"

// Metrics exposes decoded fields and device health as Prometheus gauges.
// Per-quantity gauge vectors are labelled by phase (a, b, c, total).
type Metrics struct {
	quantities map[meter.Quantity]*prometheus.GaugeVec

	up             prometheus.Gauge
	lastErrorCode  prometheus.Gauge
	secondsInError prometheus.Gauge
}

var metricNames = map[meter.Quantity][2]string{
	meter.Voltage:              {"voltage_volts", "Phase voltage (V)"},
	meter.Current:              {"current_amperes", "Phase current (A)"},
	meter.ActivePower:          {"active_power_watts", "Active power, negative on reverse flow (W)"},
	meter.ForwardActiveEnergy:  {"forward_active_energy_kwh", "Cumulative forward active energy (kWh)"},
	meter.BackwardActiveEnergy: {"backward_active_energy_kwh", "Cumulative backward active energy (kWh)"},
	meter.Frequency:            {"frequency_hertz", "Line frequency (Hz)"},
}

// NewMetrics registers all gauges on reg with a constant device label.
func NewMetrics(reg prometheus.Registerer, device string) (*Metrics, error) {
	labels := prometheus.Labels{"device": device}

	m := &Metrics{
		quantities: make(map[meter.Quantity]*prometheus.GaugeVec, len(metricNames)),
		up: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "up",
			Help:        "1 when the last exchange with the meter succeeded",
			ConstLabels: labels,
		}),
		lastErrorCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "last_error_code",
			Help:        "Code of the last failed exchange, 0 when healthy",
			ConstLabels: labels,
		}),
		secondsInError: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "seconds_in_error",
			Help:        "Seconds the meter has been unhealthy",
			ConstLabels: labels,
		}),
	}

	collectors := []prometheus.Collector{m.up, m.lastErrorCode, m.secondsInError}

	for q, n := range metricNames {
		gv := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        n[0],
			Help:        n[1],
			ConstLabels: labels,
		}, []string{"phase"})
		m.quantities[q] = gv
		collectors = append(collectors, gv)
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Sink returns the gauge backing f.
func (m *Metrics) Sink(f meter.Field) meter.Sink {
	gv, ok := m.quantities[f.Quantity]
	if !ok {
		return nil
	}
	return gaugeSink{gv.WithLabelValues(phaseLabel(f.Phase))}
}

// SetStatus mirrors a device status snapshot.
func (m *Metrics) SetStatus(s status.Snapshot) {
	if s.OK() {
		m.up.Set(1)
	} else {
		m.up.Set(0)
	}
	m.lastErrorCode.Set(float64(s.LastErrorCode))
	m.secondsInError.Set(float64(s.SecondsInError))
}

type gaugeSink struct {
	g prometheus.Gauge
}

func (s gaugeSink) Publish(v float64) { s.g.Set(v) }

func phaseLabel(p meter.Phase) string {
	switch p {
	case meter.PhaseA:
		return "a"
	case meter.PhaseB:
		return "b"
	case meter.PhaseC:
		return "c"
	default:
		return "total"
	}
}
