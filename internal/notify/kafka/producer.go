// Package kafka publishes milestone events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer emits one message per milestone keyed by container number.
type Producer struct {
	w     writer
	topic string
}

// NewProducer creates a producer for topic on brokers.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, fmt.Errorf("kafka brokers and topic are required")
	}
	return newProducerWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}, topic), nil
}

func newProducerWithWriter(w writer, topic string) *Producer {
	return &Producer{w: w, topic: topic}
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	if err := p.w.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}

// Name implements tracker.Notifier.
func (*Producer) Name() string { return "kafka" }

// SendMilestoneNotification implements tracker.Notifier.
func (p *Producer) SendMilestoneNotification(ctx context.Context, n tracker.MilestoneNotification) error {
	value, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(n.ContainerNo),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(n.Current.EventType())},
			{Key: "watch_id", Value: []byte(n.Watch.ID)},
		},
	}); err != nil {
		return &tracker.NotifyError{Channel: "kafka", Err: fmt.Errorf("kafka publish: %w", err)}
	}
	return nil
}
