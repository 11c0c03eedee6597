// Package pubsub publishes milestone events to a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

type publishFunc func(ctx context.Context, msg *pubsub.Message) (string, error)

// Publisher emits one JSON message per milestone.
type Publisher struct {
	publish publishFunc
	client  *pubsub.Client
	topic   *pubsub.Topic
}

// New connects to project and publishes to topicID.
func New(ctx context.Context, projectID, topicID string) (*Publisher, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("pubsub project and topic are required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	topic := client.Topic(topicID)
	return &Publisher{
		client: client,
		topic:  topic,
		publish: func(ctx context.Context, msg *pubsub.Message) (string, error) {
			return topic.Publish(ctx, msg).Get(ctx)
		},
	}, nil
}

// Close flushes pending messages and closes the client.
func (p *Publisher) Close() error {
	if p.topic != nil {
		p.topic.Stop()
	}
	if p.client != nil {
		if err := p.client.Close(); err != nil {
			return fmt.Errorf("close pubsub client: %w", err)
		}
	}
	return nil
}

// Name implements tracker.Notifier.
func (*Publisher) Name() string { return "pubsub" }

// SendMilestoneNotification implements tracker.Notifier.
func (p *Publisher) SendMilestoneNotification(ctx context.Context, n tracker.MilestoneNotification) error {
	if p.publish == nil {
		return &tracker.NotifyError{Channel: "pubsub", Err: fmt.Errorf("publisher is not configured")}
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"watch_id":     n.Watch.ID,
			"container_no": n.ContainerNo,
			"event_type":   n.Current.EventType(),
		},
	}
	if _, err := p.publish(ctx, msg); err != nil {
		return &tracker.NotifyError{Channel: "pubsub", Err: fmt.Errorf("publish message: %w", err)}
	}
	return nil
}
