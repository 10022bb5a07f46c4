package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/transcriber/pkg/stream"
	"github.com/papercomputeco/transcriber/pkg/transcript"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTranscriptCompleted is emitted after a streamed turn finished.
	EventTypeTranscriptCompleted = "transcriber.transcript.completed"
)

// TranscriptCompletedEvent is a transport-neutral event payload for a
// finished stream.
type TranscriptCompletedEvent struct {
	SchemaVersion int                   `json:"schema_version"`
	EventType     string                `json:"event_type"`
	EventID       string                `json:"event_id"`
	EmittedAt     time.Time             `json:"emitted_at"`
	Source        EventSource           `json:"source"`
	Stream        StreamMeta            `json:"stream"`
	Transcript    transcript.Transcript `json:"transcript"`
}

// EventSource identifies where the transcript originated.
type EventSource struct {
	Endpoint string `json:"endpoint,omitempty"`
	ThreadID string `json:"thread_id,omitempty"`
}

// StreamMeta captures stream lifecycle metadata for the event.
type StreamMeta struct {
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
	DurationMs   int64     `json:"duration_ms"`
	Done         bool      `json:"done"`
	Records      int       `json:"records"`
	Malformed    int       `json:"malformed"`
	ServerErrors []string  `json:"server_errors,omitempty"`
}

// NewTranscriptCompletedEvent builds the event for a finished stream.
func NewTranscriptCompletedEvent(source EventSource, startedAt time.Time, res *stream.Result) *TranscriptCompletedEvent {
	now := time.Now().UTC()

	ev := &TranscriptCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTranscriptCompleted,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     now,
		Source:        source,
		Stream: StreamMeta{
			StartedAt:   startedAt.UTC(),
			CompletedAt: now,
			DurationMs:  now.Sub(startedAt).Milliseconds(),
		},
	}

	if res != nil {
		ev.Stream.Done = res.Done
		ev.Stream.Records = res.Records
		ev.Stream.Malformed = res.Malformed
		ev.Stream.ServerErrors = res.ServerErrors
		ev.Transcript = res.Transcript
	}

	return ev
}
