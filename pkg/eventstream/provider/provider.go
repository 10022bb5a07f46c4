// Package provider selects an eventstream.Publisher by name.
package provider

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/transcriber/pkg/eventstream"
	"github.com/papercomputeco/transcriber/pkg/eventstream/kafka"
	"github.com/papercomputeco/transcriber/pkg/eventstream/nop"
)

const (
	// None disables publishing.
	None = "none"

	// Kafka publishes to a Kafka topic.
	Kafka = "kafka"
)

// Config selects and configures a publisher.
type Config struct {
	Provider string
	Brokers  []string
	Topic    string
	Logger   *slog.Logger
}

// Supported returns the provider names accepted by New.
func Supported() []string {
	return []string{None, Kafka}
}

// New creates the publisher named by cfg.Provider. An empty provider is the
// same as None.
func New(cfg Config) (eventstream.Publisher, error) {
	switch cfg.Provider {
	case "", None:
		return nop.NewPublisher(cfg.Logger), nil
	case Kafka:
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: cfg.Brokers,
			Topic:   cfg.Topic,
			Logger:  cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown publish provider %q (supported: %v)", cfg.Provider, Supported())
	}
}
