package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"drumtrack-service/internal/logging"
)

// Publisher pushes lifecycle events onto the plant event bus.
type Publisher struct {
	writer *kafka.Writer
	logger *logging.Logger
}

// NewPublisher constructs a Publisher against one broker and topic. Returns
// nil when no broker is configured; callers treat a nil Publisher as a no-op.
func NewPublisher(broker, topic string, logger *logging.Logger) *Publisher {
	if broker == "" || topic == "" {
		return nil
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(broker),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Publish sends one event keyed by drum. Failure is logged, never fatal: the
// bus is an observer, not a dependency of the schedule.
func (p *Publisher) Publish(ctx context.Context, drumID string, payload interface{}) {
	if p == nil {
		return
	}
	value, err := json.Marshal(payload)
	if err != nil {
		p.logger.Errorf("Failed to encode bus event: %v", err)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(drumID),
		Value: value,
	})
	if err != nil {
		p.logger.Errorf("Failed to publish bus event for drum %s: %v", drumID, err)
	}
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	return nil
}
