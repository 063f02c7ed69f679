package pubsub

import (
	"context"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/davmora/siteforge/internal/consumer"
)

// Subscriber pulls deliveries from a Pub/Sub subscription and settles them
// through the consumer handler.
type Subscriber struct {
	sub    *gcppubsub.Subscription
	logger *zap.Logger
}

// NewSubscriber wraps an existing client's subscription. Concurrency is
// bounded via the subscription's receive settings.
func NewSubscriber(client *gcppubsub.Client, subscriptionID string, maxOutstanding int, logger *zap.Logger) (*Subscriber, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client is required")
	}
	if subscriptionID == "" {
		return nil, fmt.Errorf("subscription id is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	sub := client.Subscription(subscriptionID)
	if maxOutstanding > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = maxOutstanding
	}
	return &Subscriber{sub: sub, logger: logger}, nil
}

// Run receives until ctx is canceled. Ack outcomes acknowledge the message;
// retry outcomes nack it so the server redelivers after the backoff it
// computes. The broker tracks the delivery-attempt counter.
func (s *Subscriber) Run(ctx context.Context, handle consumer.Handler) error {
	err := s.sub.Receive(ctx, func(ctx context.Context, m *gcppubsub.Message) {
		attempt := 1
		if m.DeliveryAttempt != nil {
			attempt = *m.DeliveryAttempt
		}
		outcome := handle(ctx, consumer.Delivery{Body: m.Data, Attempt: attempt})
		if outcome.Ack {
			m.Ack()
			return
		}
		m.Nack()
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("pubsub receive: %w", err)
	}
	return nil
}
