// internal/config/fields.go
package config

import (
	"sort"

	"github.com/tamzrod/jsy-meter/internal/meter"
)

// Fields returns the meter fields bound by the sensors section, in layout order.
// A config without a sensors section binds every field; an empty section binds none.
// Invalid entries are skipped; Validate reports them.
func (c *Config) Fields() []meter.Field {
	if c.Sensors == nil {
		return meter.Fields()
	}

	var out []meter.Field
	for phase, quantities := range c.Sensors {
		for _, q := range quantities {
			f, err := meter.ParseField(phase, q)
			if err != nil {
				continue
			}
			out = append(out, f)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Phase != out[j].Phase {
			return out[i].Phase < out[j].Phase
		}
		return out[i].Quantity < out[j].Quantity
	})
	return out
}
