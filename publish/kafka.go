// Package publish delivers submission events to the downstream document
// pipeline.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"docintel/core"
)

// KafkaPublisher writes submission events to a kafka topic. Events are keyed
// by submission ID so retries for the same submission land in one partition.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.SugaredLogger
}

// NewKafkaPublisher creates a publisher for the given brokers and topic
func NewKafkaPublisher(brokers []string, topic string, logger *zap.SugaredLogger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 10 * time.Second,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaPublisher{writer: writer, logger: logger}
}

// Publish delivers one submission event
func (p *KafkaPublisher) Publish(ctx context.Context, event core.SubmissionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode submission event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.SubmissionID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("write submission event: %w", err)
	}

	p.logger.Debugw("Submission event published",
		"submission", event.SubmissionID, "feed", event.FeedID)
	return nil
}

// Close flushes and closes the underlying writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher satisfies core.Publisher for deployments without a broker.
// Events are logged and dropped.
type NoopPublisher struct {
	logger *zap.SugaredLogger
}

// NewNoopPublisher creates a publisher that only logs
func NewNoopPublisher(logger *zap.SugaredLogger) *NoopPublisher {
	return &NoopPublisher{logger: logger}
}

func (p *NoopPublisher) Publish(ctx context.Context, event core.SubmissionEvent) error {
	p.logger.Infow("Submission event (no broker configured)",
		"submission", event.SubmissionID, "feed", event.FeedID, "url", event.URL)
	return nil
}

func (p *NoopPublisher) Close() error { return nil }
