// internal/meter/field.go
package meter

import "fmt"

// Phase selects one electrical phase or the aggregate of all three.
type Phase uint8

const (
	PhaseA Phase = iota
	PhaseB
	PhaseC
	Total
)

// PhaseCount is the number of real phases (Total excluded).
const PhaseCount = 3

var phaseNames = [...]string{"phase_a", "phase_b", "phase_c", "total"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// Quantity is the physical quantity of a field.
type Quantity uint8

const (
	Voltage Quantity = iota
	Current
	ActivePower
	ForwardActiveEnergy
	BackwardActiveEnergy
	Frequency
)

const quantityCount = 6

var quantityNames = [...]string{
	"voltage",
	"current",
	"active_power",
	"forward_active_energy",
	"backward_active_energy",
	"frequency",
}

var quantityUnits = [...]string{"V", "A", "W", "kWh", "kWh", "Hz"}

func (q Quantity) String() string {
	if int(q) < len(quantityNames) {
		return quantityNames[q]
	}
	return fmt.Sprintf("quantity(%d)", uint8(q))
}

// Unit returns the physical unit of values of this quantity.
func (q Quantity) Unit() string {
	if int(q) < len(quantityUnits) {
		return quantityUnits[q]
	}
	return ""
}

// Field identifies one decoded measurement.
type Field struct {
	Phase    Phase
	Quantity Quantity
}

func (f Field) String() string {
	return f.Phase.String() + "." + f.Quantity.String()
}

// Valid reports whether the meter actually provides this field.
// Phases carry everything but frequency; Total carries power, energies and frequency.
func (f Field) Valid() bool {
	switch {
	case f.Phase < Total:
		return f.Quantity <= BackwardActiveEnergy
	case f.Phase == Total:
		return f.Quantity >= ActivePower && f.Quantity <= Frequency
	default:
		return false
	}
}

var allFields = func() []Field {
	var out []Field
	for p := PhaseA; p <= Total; p++ {
		for q := Voltage; q <= Frequency; q++ {
			if f := (Field{Phase: p, Quantity: q}); f.Valid() {
				out = append(out, f)
			}
		}
	}
	return out
}()

// Fields returns all 19 fields in layout order.
func Fields() []Field {
	out := make([]Field, len(allFields))
	copy(out, allFields)
	return out
}

// ParsePhase maps a config key (phase_a, phase_b, phase_c, total) to a Phase.
func ParsePhase(s string) (Phase, error) {
	for i, n := range phaseNames {
		if n == s {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("meter: unknown phase %q", s)
}

// ParseQuantity maps a config name such as "active_power" to a Quantity.
func ParseQuantity(s string) (Quantity, error) {
	for i, n := range quantityNames {
		if n == s {
			return Quantity(i), nil
		}
	}
	return 0, fmt.Errorf("meter: unknown quantity %q", s)
}

// ParseField parses a phase key and quantity name into a valid Field.
func ParseField(phase, quantity string) (Field, error) {
	p, err := ParsePhase(phase)
	if err != nil {
		return Field{}, err
	}
	q, err := ParseQuantity(quantity)
	if err != nil {
		return Field{}, err
	}
	f := Field{Phase: p, Quantity: q}
	if !f.Valid() {
		return Field{}, fmt.Errorf("meter: %s is not provided by the meter", f)
	}
	return f, nil
}
