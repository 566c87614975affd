package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

// KafkaConfig holds configuration for the Kafka source.
type KafkaConfig struct {
	Brokers   []string
	Topic     string
	GroupID   string
	Processor *Processor
	Logger    zerolog.Logger
	// MaxRetries bounds redelivery attempts of a failing message before its offset is committed.
	MaxRetries      uint64
	InitialInterval time.Duration
}

// messageReader is the subset of *kafkago.Reader the source uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaSource consumes journey events from a Kafka topic within a consumer group.
type KafkaSource struct {
	reader          messageReader
	topic           string
	processor       *Processor
	logger          zerolog.Logger
	maxRetries      uint64
	initialInterval time.Duration
}

// NewKafkaSource creates a source reading cfg.Topic as member of cfg.GroupID.
func NewKafkaSource(cfg KafkaConfig) *KafkaSource {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return newKafkaSource(reader, cfg)
}

func newKafkaSource(reader messageReader, cfg KafkaConfig) *KafkaSource {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	return &KafkaSource{
		reader:          reader,
		topic:           cfg.Topic,
		processor:       cfg.Processor,
		logger:          cfg.Logger,
		maxRetries:      cfg.MaxRetries,
		initialInterval: cfg.InitialInterval,
	}
}

// Start processes messages until ctx is cancelled. A message's offset is
// committed once it is processed, dropped as malformed, or out of retries.
func (s *KafkaSource) Start(ctx context.Context) error {
	s.logger.Info().Str("topic", s.topic).Msg("starting kafka source")

	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		logger := s.logger.With().
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Logger()

		if err := s.handle(ctx, msg, logger); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error().Err(err).Msg("giving up on message")
		}

		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit offset: %w", err)
		}
	}
}

func (s *KafkaSource) handle(ctx context.Context, msg kafkago.Message, logger zerolog.Logger) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.initialInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, s.maxRetries), ctx)

	return backoff.RetryNotify(func() error {
		err := s.processor.Process(ctx, msg.Value)
		if errors.Is(err, ErrMalformed) {
			logger.Error().Err(err).Msg("dropping malformed message")
			return nil
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		logger.Warn().Err(err).Dur("retry_in", wait).Msg("message processing failed, retrying")
	})
}

// Close closes the reader and leaves the consumer group.
func (s *KafkaSource) Close() error {
	return s.reader.Close()
}
