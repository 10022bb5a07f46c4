// Package nop implements the "none" publish provider: events are validated,
// counted and dropped.
package nop

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/papercomputeco/transcriber/pkg/eventstream"
	"github.com/papercomputeco/transcriber/pkg/logger"
)

type Publisher struct {
	logger  *slog.Logger
	dropped atomic.Int64
}

// NewPublisher returns a Publisher that logs each dropped event at debug
// level. A nil logger discards.
func NewPublisher(l *slog.Logger) *Publisher {
	return &Publisher{logger: logger.OrNop(l)}
}

func (p *Publisher) PublishTranscript(ctx context.Context, event *eventstream.TranscriptCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilTranscriptEvent
	}

	p.dropped.Add(1)
	p.logger.DebugContext(ctx, "publishing disabled, dropping transcript",
		"event_id", event.EventID,
		"thread_id", event.Source.ThreadID,
		"messages", len(event.Transcript.Messages),
	)
	return nil
}

// Dropped is the number of events accepted so far.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

func (p *Publisher) Close() error { return nil }
