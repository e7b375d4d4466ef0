// internal/sink/mqtt.go
package sink

import (
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tamzrod/jsy-meter/internal/config"
	"github.com/tamzrod/jsy-meter/internal/meter"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttDiscoveryWait  = 5 * time.Second
)

// publisher is the part of mqtt.Client the sink uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes every bound field on its own retained topic and keeps an
// availability topic in sync with device health.
type MQTT struct {
	client publisher
	closer func()

	topic           string
	discoveryPrefix string
	retain          bool
	log             *zap.Logger

	online atomic.Bool
	known  atomic.Bool // set by the first SetAvailability
}

// DialMQTT connects to the broker. The will marks the meter offline when the
// process disappears.
func DialMQTT(c *config.MQTTConfig, log *zap.Logger) (*MQTT, error) {
	if c == nil {
		return nil, errors.New("mqtt: config required")
	}

	clientID := c.ClientID
	if clientID == "" {
		clientID = "jsymeter-" + uuid.NewString()[:8]
	}

	m := &MQTT{
		topic:           c.Topic,
		discoveryPrefix: c.DiscoveryPrefix,
		retain:          c.Retain == nil || *c.Retain,
		log:             log,
	}

	opts := mqtt.NewClientOptions().AddBroker(c.Broker).SetClientID(clientID)
	opts.SetUsername(c.Username)
	opts.SetPassword(c.Password)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetWill(availabilityTopic(c.Topic), "offline", 0, true)
	opts.OnConnect = func(client mqtt.Client) {
		log.Info("mqtt connected", zap.String("broker", c.Broker))
		m.onConnect(client)
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Warn("mqtt connection lost", zap.Error(err))
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("mqtt: connect to %s timed out", c.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect to %s: %w", c.Broker, err)
	}

	m.client = client
	m.closer = func() {
		client.Publish(availabilityTopic(m.topic), 0, true, "offline").WaitTimeout(time.Second)
		client.Disconnect(250)
	}
	return m, nil
}

// Sink returns a sink publishing f on <topic>/<phase>/<quantity>.
func (m *MQTT) Sink(f meter.Field) meter.Sink {
	topic := stateTopic(m.topic, f)
	decimals := sensorMetas[f.Quantity].decimals

	return meter.SinkFunc(func(v float64) {
		m.publish(topic, m.retain, strconv.FormatFloat(v, 'f', decimals, 64))
	})
}

// SetAvailability publishes online/offline on the first call and whenever
// it changes afterwards.
func (m *MQTT) SetAvailability(online bool) {
	prev := m.online.Swap(online)
	if m.known.Swap(true) && prev == online {
		return
	}
	m.log.Info("meter availability changed", zap.String("state", availability(online)))
	m.publish(availabilityTopic(m.topic), true, availability(online))
}

// PublishDiscovery pushes Home Assistant discovery configs for fields.
// No-op when no discovery prefix is configured.
func (m *MQTT) PublishDiscovery(device string, fields []meter.Field) error {
	if m.discoveryPrefix == "" {
		return nil
	}

	msgs, err := buildDiscovery(m.discoveryPrefix, m.topic, device, fields)
	if err != nil {
		return fmt.Errorf("mqtt discovery: %w", err)
	}

	for _, msg := range msgs {
		t := m.client.Publish(msg.Topic, 0, true, msg.Payload)
		if !t.WaitTimeout(mqttDiscoveryWait) {
			return fmt.Errorf("mqtt discovery: publish %s timed out", msg.Topic)
		}
		if err := t.Error(); err != nil {
			return fmt.Errorf("mqtt discovery: publish %s: %w", msg.Topic, err)
		}
	}

	m.log.Info("published discovery configs", zap.Int("sensors", len(msgs)))
	return nil
}

// onConnect re-asserts availability after a (re)connect. Until the meter
// state is known the retained topic is left alone.
func (m *MQTT) onConnect(client publisher) {
	if !m.known.Load() {
		return
	}
	client.Publish(availabilityTopic(m.topic), 0, true, availability(m.online.Load()))
}

// Close marks the meter offline and disconnects.
func (m *MQTT) Close() {
	if m.closer != nil {
		m.closer()
	}
}

// publish never blocks the poll loop; failures that are already known are logged.
func (m *MQTT) publish(topic string, retained bool, payload string) {
	t := m.client.Publish(topic, 0, retained, payload)
	select {
	case <-t.Done():
		if err := t.Error(); err != nil {
			m.log.Warn("mqtt publish failed", zap.String("topic", topic), zap.Error(err))
		}
	default:
	}
}

func availability(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}
