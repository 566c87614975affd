package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubConfig holds configuration for the Pub/Sub source.
type PubSubConfig struct {
	ProjectID      string
	Subscription   string
	MaxOutstanding int
	Processor      *Processor
	Logger         zerolog.Logger
}

// PubSubSource receives journey events from a Pub/Sub subscription.
type PubSubSource struct {
	client       *pubsub.Client
	subscriber   *pubsub.Subscriber
	subscription string
	processor    *Processor
	logger       zerolog.Logger
}

// NewPubSubSource connects to Pub/Sub.
func NewPubSubSource(ctx context.Context, cfg PubSubConfig) (*PubSubSource, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.Subscription)
	if cfg.MaxOutstanding > 0 {
		subscriber.ReceiveSettings.MaxOutstandingMessages = cfg.MaxOutstanding
	}
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubSource{
		client:       client,
		subscriber:   subscriber,
		subscription: cfg.Subscription,
		processor:    cfg.Processor,
		logger:       cfg.Logger,
	}, nil
}

// Start processes messages until ctx is cancelled.
func (s *PubSubSource) Start(ctx context.Context) error {
	s.logger.Info().
		Str("subscription", s.subscription).
		Msg("starting pubsub source")

	return s.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		logger := s.logger.With().
			Str("message_id", msg.ID).
			Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
			Logger()
		handleDelivery(ctx, s.processor, msg.Data, msg, logger)
	})
}

// Close closes the Pub/Sub client.
func (s *PubSubSource) Close() error {
	return s.client.Close()
}

// acker settles one delivery. *pubsub.Message implements it.
type acker interface {
	Ack()
	Nack()
}

// handleDelivery acks processed and malformed messages and nacks the rest for redelivery.
func handleDelivery(ctx context.Context, p *Processor, data []byte, msg acker, logger zerolog.Logger) {
	start := time.Now()
	err := p.Process(ctx, data)
	switch {
	case errors.Is(err, ErrMalformed):
		logger.Error().Err(err).Msg("dropping malformed message")
		msg.Ack()
	case err != nil:
		logger.Error().Err(err).Msg("message processing failed")
		msg.Nack()
	default:
		logger.Debug().Dur("duration", time.Since(start)).Msg("message processed")
		msg.Ack()
	}
}
