// internal/meter/sink.go
package meter

// Sink receives decoded values for one field.
type Sink interface {
	Publish(value float64)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(value float64)

func (fn SinkFunc) Publish(value float64) { fn(value) }

// Multi fans one value out to several sinks. Nil entries are skipped.
type Multi []Sink

func (m Multi) Publish(value float64) {
	for _, s := range m {
		if s != nil {
			s.Publish(value)
		}
	}
}

// Sinks binds fields to sinks. Unbound fields are silently dropped.
type Sinks map[Field]Sink

// Bind attaches s to f, fanning out if f already has a sink.
func (s Sinks) Bind(f Field, sink Sink) {
	if sink == nil {
		return
	}
	prev, ok := s[f]
	if !ok {
		s[f] = sink
		return
	}
	if m, ok := prev.(Multi); ok {
		s[f] = append(m, sink)
		return
	}
	s[f] = Multi{prev, sink}
}

// Publish forwards every field of r to its bound sink, if any.
func (s Sinks) Publish(r *Reading) {
	if r == nil {
		return
	}
	for _, f := range allFields {
		if sink := s[f]; sink != nil {
			sink.Publish(r.Value(f))
		}
	}
}
