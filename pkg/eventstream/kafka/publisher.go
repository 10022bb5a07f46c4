// Package kafka publishes transcript events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/transcriber/pkg/eventstream"
	"github.com/papercomputeco/transcriber/pkg/logger"
)

var (
	// ErrNoBrokers is returned when no broker address is configured.
	ErrNoBrokers = errors.New("kafka publisher requires at least one broker")

	// ErrNoTopic is returned when no topic is configured.
	ErrNoTopic = errors.New("kafka publisher requires a topic")
)

const defaultBatchTimeout = 50 * time.Millisecond

// Config is the Kafka publisher configuration.
type Config struct {
	Brokers []string
	Topic   string

	// BatchTimeout bounds how long messages are buffered before a write.
	BatchTimeout time.Duration

	Logger *slog.Logger
}

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes one message per transcript event, keyed by thread id so
// that events of one conversation land on the same partition.
type Publisher struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewPublisher validates cfg and creates a Kafka publisher. No connection is
// made until the first publish.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if cfg.Topic == "" {
		return nil, ErrNoTopic
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = defaultBatchTimeout
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchTimeout:           batchTimeout,
		AllowAutoTopicCreation: true,
	}

	return newPublisher(w, cfg.Topic, cfg.Logger), nil
}

func newPublisher(w messageWriter, topic string, l *slog.Logger) *Publisher {
	return &Publisher{
		writer: w,
		topic:  topic,
		logger: logger.OrNop(l),
	}
}

// PublishTranscript encodes event as JSON and writes it to the topic.
func (p *Publisher) PublishTranscript(ctx context.Context, event *eventstream.TranscriptCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilTranscriptEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling transcript event: %w", err)
	}

	key := event.Source.ThreadID
	if key == "" {
		key = event.EventID
	}

	msg := kafkago.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_version", Value: []byte(fmt.Sprint(event.SchemaVersion))},
		},
		Time: event.EmittedAt,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing to kafka topic %s: %w", p.topic, err)
	}

	p.logger.Debug("published transcript event",
		"topic", p.topic,
		"event_id", event.EventID,
		"bytes", len(payload),
	)
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("closing kafka writer: %w", err)
	}
	return nil
}
