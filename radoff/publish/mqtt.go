package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/radoff/radoff/entity"
)

const (
	payloadOnline  = "online"
	payloadOffline = "offline"
)

// mqttClient is the part of mqtt.Client used for publishing.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

type MQTTOptions struct {
	DiscoveryPrefix string
	StatePrefix     string
	QoS             byte
	Timeout         time.Duration
}

// MQTT announces entities through Home Assistant MQTT discovery and publishes
// their states.
type MQTT struct {
	client mqttClient
	opts   MQTTOptions
}

func NewMQTT(client mqttClient, opts MQTTOptions) *MQTT {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &MQTT{client: client, opts: opts}
}

// DialMQTT connects to broker and waits for the connection to be established.
func DialMQTT(broker, clientID string, timeout time.Duration) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout)
	client := mqtt.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, errors.Errorf("timed out connecting to %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", broker)
	}
	return client, nil
}

type discoveryDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name,omitempty"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model,omitempty"`
}

type discoveryConfig struct {
	Name              string          `json:"name"`
	UniqueID          string          `json:"unique_id"`
	ObjectID          string          `json:"object_id"`
	StateTopic        string          `json:"state_topic"`
	AvailabilityTopic string          `json:"availability_topic"`
	DeviceClass       string          `json:"device_class,omitempty"`
	UnitOfMeasurement string          `json:"unit_of_measurement,omitempty"`
	StateClass        string          `json:"state_class,omitempty"`
	Options           []string        `json:"options,omitempty"`
	Device            discoveryDevice `json:"device"`
}

func (m *MQTT) stateTopic(s *entity.Sensor) string {
	topic := fmt.Sprintf("%s/%s/%s", m.opts.StatePrefix, s.Device().DeviceID, s.Key())
	if s.Kind() == entity.KindIndex {
		return topic + "/index"
	}
	return topic
}

func (m *MQTT) availabilityTopic(s *entity.Sensor) string {
	return m.stateTopic(s) + "/availability"
}

func (m *MQTT) discoveryTopic(s *entity.Sensor) string {
	return fmt.Sprintf("%s/sensor/%s/config", m.opts.DiscoveryPrefix, s.UniqueID())
}

func (m *MQTT) discovery(s *entity.Sensor) discoveryConfig {
	info := s.DeviceInfo()
	ids := make([]string, 0, len(info.Identifiers))
	for _, id := range info.Identifiers {
		ids = append(ids, id[0]+"_"+id[1])
	}

	cfg := discoveryConfig{
		Name:              s.Name(),
		UniqueID:          s.UniqueID(),
		ObjectID:          s.UniqueID(),
		StateTopic:        m.stateTopic(s),
		AvailabilityTopic: m.availabilityTopic(s),
		DeviceClass:       s.DeviceClass(),
		UnitOfMeasurement: s.Unit(),
		StateClass:        s.StateClass(),
		Device: discoveryDevice{
			Identifiers:  ids,
			Name:         info.Name,
			Manufacturer: info.Manufacturer,
			Model:        info.Model,
		},
	}
	if s.Kind() == entity.KindIndex {
		cfg.DeviceClass = "enum"
		for _, c := range s.Options() {
			cfg.Options = append(cfg.Options, c.String())
		}
	}
	return cfg
}

func (m *MQTT) Register(_ context.Context, sensors []*entity.Sensor) error {
	for _, s := range sensors {
		payload, err := json.Marshal(m.discovery(s))
		if err != nil {
			return errors.Wrapf(err, "failed to marshal discovery for %s", s.UniqueID())
		}
		if err := m.publish(m.discoveryTopic(s), true, payload); err != nil {
			return err
		}
	}
	return nil
}

func (m *MQTT) Publish(_ context.Context, s *entity.Sensor) error {
	state, err := s.State()
	if err != nil {
		log.Debugf("%s: %s", s.UniqueID(), err)
		return m.publish(m.availabilityTopic(s), true, payloadOffline)
	}
	if err := m.publish(m.availabilityTopic(s), true, payloadOnline); err != nil {
		return err
	}
	return m.publish(m.stateTopic(s), true, state)
}

func (m *MQTT) publish(topic string, retained bool, payload interface{}) error {
	token := m.client.Publish(topic, m.opts.QoS, retained, payload)
	if !token.WaitTimeout(m.opts.Timeout) {
		return errors.Errorf("timed out publishing to %s", topic)
	}
	return errors.Wrapf(token.Error(), "failed to publish to %s", topic)
}
