// internal/sink/discovery.go
package sink

import (
	"encoding/json"
	"strings"

	"github.com/tamzrod/jsy-meter/internal/meter"
)

// sensorMeta is the Home Assistant presentation of one quantity.
type sensorMeta struct {
	deviceClass string
	stateClass  string
	icon        string
	decimals    int
}

var sensorMetas = map[meter.Quantity]sensorMeta{
	meter.Voltage:              {deviceClass: "voltage", decimals: 2},
	meter.Current:              {deviceClass: "current", stateClass: "measurement", decimals: 2},
	meter.ActivePower:          {deviceClass: "power", stateClass: "measurement", decimals: 0},
	meter.ForwardActiveEnergy:  {deviceClass: "energy", stateClass: "total_increasing", decimals: 2},
	meter.BackwardActiveEnergy: {deviceClass: "energy", stateClass: "total_increasing", decimals: 2},
	meter.Frequency:            {stateClass: "measurement", icon: "mdi:current-ac", decimals: 2},
}

// HassAutoconfig is a Home Assistant MQTT discovery payload (abbreviated keys).
type HassAutoconfig struct {
	DeviceClass       string               `json:"dev_cla,omitempty"`
	UnitOfMeasurement string               `json:"unit_of_meas"`
	Name              string               `json:"name"`
	StateTopic        string               `json:"stat_t"`
	AvailabilityTopic string               `json:"avty_t"`
	UniqueID          string               `json:"uniq_id"`
	StateClass        string               `json:"stat_cla,omitempty"`
	Icon              string               `json:"ic,omitempty"`
	Precision         int                  `json:"sug_dsp_prc"`
	Device            HassAutoconfigDevice `json:"dev"`
}

type HassAutoconfigDevice struct {
	IDs          string `json:"ids"`
	Name         string `json:"name"`
	Manufacturer string `json:"mf,omitempty"`
	Model        string `json:"mdl,omitempty"`
}

// discoveryMessage is one retained config publish.
type discoveryMessage struct {
	Topic   string
	Payload []byte
}

// buildDiscovery renders discovery configs for the bound fields.
func buildDiscovery(prefix, baseTopic, device string, fields []meter.Field) ([]discoveryMessage, error) {
	node := nodeID(device)
	out := make([]discoveryMessage, 0, len(fields))

	for _, f := range fields {
		meta := sensorMetas[f.Quantity]
		objectID := f.Phase.String() + "_" + f.Quantity.String()

		autoconf := HassAutoconfig{
			DeviceClass:       meta.deviceClass,
			UnitOfMeasurement: f.Quantity.Unit(),
			Name:              strings.ReplaceAll(objectID, "_", " "),
			StateTopic:        stateTopic(baseTopic, f),
			AvailabilityTopic: availabilityTopic(baseTopic),
			UniqueID:          node + "_" + objectID,
			StateClass:        meta.stateClass,
			Icon:              meta.icon,
			Precision:         meta.decimals,
			Device: HassAutoconfigDevice{
				IDs:          node,
				Name:         device,
				Manufacturer: "JSY",
				Model:        "JSY-MK-333",
			},
		}

		payload, err := json.Marshal(&autoconf)
		if err != nil {
			return nil, err
		}

		out = append(out, discoveryMessage{
			Topic:   prefix + "/sensor/" + node + "/" + objectID + "/config",
			Payload: payload,
		})
	}

	return out, nil
}

func stateTopic(base string, f meter.Field) string {
	return base + "/" + f.Phase.String() + "/" + f.Quantity.String()
}

func availabilityTopic(base string) string {
	return base + "/status"
}

// nodeID reduces a device name to the characters discovery topics accept.
func nodeID(device string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(device) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "jsy_meter"
	}
	return b.String()
}
