// Package pubsub adapts Google Cloud Pub/Sub to the job queue contract.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/davmora/siteforge/internal/sitegen"
)

// Config captures the Pub/Sub connection parameters.
type Config struct {
	ProjectID    string
	TopicID      string
	Subscription string
}

// Publisher sends job messages to a Pub/Sub topic.
type Publisher struct {
	topic  *gcppubsub.Topic
	logger *zap.Logger
}

// NewPublisher wraps an existing client's topic.
func NewPublisher(client *gcppubsub.Client, topicID string, logger *zap.Logger) (*Publisher, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client is required")
	}
	if topicID == "" {
		return nil, fmt.Errorf("topic id is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{topic: client.Topic(topicID), logger: logger}, nil
}

// Send publishes the message and waits for the server acknowledgment so the
// submission API only reports success once the job is durably enqueued.
func (p *Publisher) Send(ctx context.Context, msg sitegen.JobMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal job message: %w", err)
	}
	result := p.topic.Publish(ctx, &gcppubsub.Message{Data: body})
	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish job message: %w", err)
	}
	p.logger.Debug("job message published",
		zap.String("job_id", msg.JobID),
		zap.String("message_id", id),
	)
	return nil
}

// Stop flushes pending publishes.
func (p *Publisher) Stop() {
	p.topic.Stop()
}
