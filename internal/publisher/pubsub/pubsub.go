// Package pubsub implements a Google Cloud Pub/Sub publisher.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub"

	"github.com/searchpress/indexrunner/internal/publisher"
)

// Publisher wraps a Pub/Sub client.
type Publisher struct {
	client *gcppubsub.Client
}

// New creates a Publisher over an existing Pub/Sub client.
func New(client *gcppubsub.Client) (*Publisher, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client is required")
	}
	return &Publisher{client: client}, nil
}

// Publish marshals the event to JSON and publishes it to the topic.
func (p *Publisher) Publish(ctx context.Context, topic string, event publisher.Event) (string, error) {
	if topic == "" {
		return "", fmt.Errorf("topic name is required")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	result := p.client.Topic(topic).Publish(ctx, &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"run_id": event.RunID,
			"status": event.Status,
		},
	})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish event: %w", err)
	}
	return id, nil
}
