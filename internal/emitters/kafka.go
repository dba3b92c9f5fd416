package emitters

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"yapp-query/internal/models"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the emitter uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEmitter publishes settled query events to a Kafka topic, keyed by
// address (or name) so events about one account stay ordered. Writes are
// asynchronous: EmitEvent only enqueues, and delivery failures are logged.
type KafkaEmitter struct {
	writer messageWriter
	logger *zerolog.Logger
	// mu guards writer against Close; emits share the read lock.
	mu sync.RWMutex
}

// NewKafkaEmitter creates a new KafkaEmitter
func NewKafkaEmitter(brokerAddress, topic string, batchSize int, batchTimeout time.Duration, logger *zerolog.Logger) *KafkaEmitter {
	return &KafkaEmitter{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokerAddress),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchSize:    batchSize,
			BatchTimeout: batchTimeout,
			Async:        true,
			Completion:   completionLogger(logger),
		},
		logger: logger,
	}
}

func completionLogger(logger *zerolog.Logger) func([]kafka.Message, error) {
	return func(msgs []kafka.Message, err error) {
		if err == nil {
			return
		}
		logger.Error().
			Err(err).
			Int("messages", len(msgs)).
			Msg("Failed to deliver events to Kafka")
	}
}

func (k *KafkaEmitter) EmitEvent(ctx context.Context, event models.QueryEvent) error {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.writer == nil {
		return fmt.Errorf("kafka emitter is closed")
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Key()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(event.Kind.String())},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	k.logger.Debug().
		Str("kind", event.Kind.String()).
		Str("key", event.Key()).
		Msg("Queued event for Kafka")
	return nil
}

func (k *KafkaEmitter) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.writer != nil {
		err := k.writer.Close()
		k.writer = nil
		return err
	}
	return nil
}
