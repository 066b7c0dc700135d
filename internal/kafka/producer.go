package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer streams attendance events to Kafka. A nil Producer is a valid
// no-op, used when Kafka is disabled in config.
type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer}
}

// VisitEvent is the payload published when a detection is ingested.
type VisitEvent struct {
	EventID    int64     `json:"event_id"`
	Order      int       `json:"order"`
	EmployeeID int64     `json:"employee_id,omitempty"`
	Count      int       `json:"count,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

// EventDeleted is published when an event and its attendance data are removed.
type EventDeleted struct {
	EventID int64 `json:"event_id"`
}

// Publish marshals the payload and writes it to the given topic.
func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	if p == nil || p.Writer == nil {
		return nil
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

func (p *Producer) Close() error {
	if p == nil || p.Writer == nil {
		return nil
	}
	return p.Writer.Close()
}
