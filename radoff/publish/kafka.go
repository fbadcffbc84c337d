package publish

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/alepar/radoff/radoff/entity"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Event is the JSON body of one Kafka message.
type Event struct {
	UniqueID  string    `json:"uniqueId"`
	DeviceID  string    `json:"deviceId"`
	Serial    string    `json:"serial"`
	Sensor    string    `json:"sensor"`
	Kind      string    `json:"kind"`
	Available bool      `json:"available"`
	State     string    `json:"state,omitempty"`
	Unit      string    `json:"unit,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Kafka writes entity states to a topic, keyed by unique id.
type Kafka struct {
	writer messageWriter
	now    func() time.Time
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
}

func NewKafka(writer messageWriter) *Kafka {
	return &Kafka{writer: writer, now: time.Now}
}

func (k *Kafka) Register(context.Context, []*entity.Sensor) error {
	return nil
}

func (k *Kafka) Publish(ctx context.Context, s *entity.Sensor) error {
	d := s.Device()
	ev := Event{
		UniqueID:  s.UniqueID(),
		DeviceID:  d.DeviceID,
		Serial:    d.Serial,
		Sensor:    s.Key(),
		Kind:      s.Kind().String(),
		Unit:      s.Unit(),
		Timestamp: k.now().UTC(),
	}
	if state, err := s.State(); err == nil {
		ev.Available = true
		ev.State = state
	}

	b, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event")
	}
	err = k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(ev.UniqueID), Value: b, Time: ev.Timestamp})
	return errors.Wrapf(err, "failed to write %s", ev.UniqueID)
}
