// Package stream drives a single streaming chat response end to end: it pulls
// byte chunks from a Source, frames them into records, decodes the records
// into events, folds the events into a transcript and publishes snapshots to
// the caller after every read.
//
// Each call to Parse owns its framer and transcript builder; nothing is shared
// between concurrent sessions.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/papercomputeco/transcriber/pkg/event"
	"github.com/papercomputeco/transcriber/pkg/logger"
	"github.com/papercomputeco/transcriber/pkg/ndjson"
	"github.com/papercomputeco/transcriber/pkg/transcript"
	"github.com/papercomputeco/transcriber/pkg/utils"
)

// ErrNoSource is returned when Parse is called without a byte source.
var ErrNoSource = errors.New("no stream source")

const recordPreviewLen = 120

// ToolCallUpdate carries the active tool. An empty Name signals that the
// tool finished and nothing is executing.
type ToolCallUpdate struct {
	Name string `json:"name"`
}

// Update is a partial state update. Nil fields are absent.
type Update struct {
	// Messages is a full copy of the message list.
	Messages []transcript.Message `json:"messages,omitempty"`

	// Todos is the full replacement todo list. It is non-nil (possibly
	// empty) whenever the update carries todos, so it encodes as null when
	// absent and [] when the list was cleared.
	Todos []event.Todo `json:"todos"`

	// ToolCall is set when the active tool changed.
	ToolCall *ToolCallUpdate `json:"tool_call,omitempty"`
}

// UpdateFunc receives updates synchronously from the read loop. Updates are
// copies and may be retained, but should be treated as read-only.
type UpdateFunc func(Update)

// Result summarizes a finished session.
type Result struct {
	// Transcript is the final state at the point the loop stopped.
	Transcript transcript.Transcript

	// Done is true when the stream ended with a "done" event.
	Done bool

	// Records counts decoded events, Malformed counts skipped records.
	Records   int
	Malformed int

	// ServerErrors holds the content of every "error" event, in order.
	ServerErrors []string
}

type options struct {
	seed      []transcript.Message
	todos     []event.Todo
	ids       *transcript.IDGenerator
	logger    *slog.Logger
	tee       io.Writer
	maxRecord int
}

// Option configures Parse.
type Option func(*options)

// WithSeed starts the transcript from prior history.
func WithSeed(msgs []transcript.Message) Option {
	return func(o *options) {
		o.seed = msgs
	}
}

// WithSeedTodos starts the transcript with an existing todo list.
func WithSeedTodos(todos []event.Todo) Option {
	return func(o *options) {
		o.todos = todos
	}
}

// WithIDGenerator overrides the id generator, e.g. for reproducible ids.
func WithIDGenerator(g *transcript.IDGenerator) Option {
	return func(o *options) {
		o.ids = g
	}
}

// WithLogger sets the logger. Defaults to a Nop logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithTee copies every raw byte read from the source to w.
func WithTee(w io.Writer) Option {
	return func(o *options) {
		o.tee = w
	}
}

// WithMaxRecordSize bounds a single record; exceeding it ends the session
// with ndjson.ErrRecordTooLarge.
func WithMaxRecordSize(n int) Option {
	return func(o *options) {
		o.maxRecord = n
	}
}

// Parse consumes src until a "done" event, end of stream, a transport error
// or context cancellation, calling onUpdate as the transcript changes. The
// source is closed on every return path. On error the partial result is
// returned alongside it.
func Parse(ctx context.Context, src Source, onUpdate UpdateFunc, opts ...Option) (*Result, error) {
	if src == nil {
		return nil, ErrNoSource
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	s := newSession(o, onUpdate)

	defer func() {
		if err := src.Close(); err != nil {
			s.logger.Debug("closing stream source", "error", err)
		}
	}()

	// Cancellation closes the source so a Next blocked in the transport returns.
	stop := context.AfterFunc(ctx, func() {
		_ = src.Close()
	})
	defer stop()

	for {
		chunk, err := src.Next(ctx)
		if len(chunk) > 0 {
			done, feedErr := s.feed(chunk)
			if feedErr != nil {
				return s.result(), feedErr
			}
			if done {
				return s.result(), nil
			}
		}

		if err == nil {
			continue
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return s.result(), ctxErr
		}
		if isEOF(err) {
			s.finish()
			return s.result(), nil
		}
		return s.result(), fmt.Errorf("reading stream: %w", err)
	}
}

// session is the per-stream state: framer, builder and counters.
type session struct {
	framer   *ndjson.Framer
	builder  *transcript.Builder
	onUpdate UpdateFunc
	logger   *slog.Logger

	done         bool
	records      int
	malformed    int
	serverErrors []string
}

func newSession(o *options, onUpdate UpdateFunc) *session {
	if onUpdate == nil {
		onUpdate = func(Update) {}
	}

	var framerOpts []ndjson.Option
	if o.tee != nil {
		framerOpts = append(framerOpts, ndjson.WithTee(o.tee))
	}
	if o.maxRecord > 0 {
		framerOpts = append(framerOpts, ndjson.WithMaxRecordSize(o.maxRecord))
	}

	builderOpts := []transcript.BuilderOption{transcript.WithIDGenerator(o.ids)}
	if o.todos != nil {
		builderOpts = append(builderOpts, transcript.WithTodos(o.todos))
	}

	return &session{
		framer:   ndjson.NewFramer(framerOpts...),
		builder:  transcript.NewBuilder(o.seed, builderOpts...),
		onUpdate: onUpdate,
		logger:   logger.OrNop(o.logger),
	}
}

// feed processes every record completed by chunk and publishes the resulting
// updates. It reports whether a "done" event was seen.
func (s *session) feed(chunk []byte) (bool, error) {
	records, framerErr := s.framer.Feed(chunk)

	dirty := false
	for i, rec := range records {
		ev, err := event.Decode(rec)
		if errors.Is(err, event.ErrEmptyRecord) {
			continue
		}
		if err != nil {
			s.malformed++
			s.logger.Warn("skipping malformed record",
				"error", err,
				"record", utils.Truncate(rec, recordPreviewLen),
			)
			continue
		}

		s.records++
		effect := s.builder.Apply(ev)

		if effect.Has(transcript.EffectToolCall) {
			s.onUpdate(Update{ToolCall: &ToolCallUpdate{Name: s.builder.ActiveTool()}})
		}
		if effect.Has(transcript.EffectTodos) {
			s.onUpdate(Update{Todos: s.builder.Todos()})
		}
		if effect.Has(transcript.EffectMessages) {
			dirty = true
		}
		if effect.Has(transcript.EffectServerError) {
			content := ev.Text()
			s.serverErrors = append(s.serverErrors, content)
			s.logger.Warn("stream reported error", "content", content)
		}
		if !ev.Known() {
			s.logger.Debug("ignoring unknown event", "type", string(ev.Type))
		}

		if effect.Has(transcript.EffectDone) {
			s.done = true
			if skipped := len(records) - i - 1; skipped > 0 {
				s.logger.Debug("ignoring records after done", "count", skipped)
			}
			break
		}
	}

	if dirty {
		s.onUpdate(Update{Messages: s.builder.Messages()})
	}

	if s.done {
		return true, nil
	}
	return false, framerErr
}

// finish handles a clean end of stream without a "done" event.
func (s *session) finish() {
	if n := s.framer.Pending(); n > 0 {
		s.logger.Debug("discarding unterminated record at end of stream", "bytes", n)
	}
	s.framer.Reset()
}

func (s *session) result() *Result {
	return &Result{
		Transcript:   s.builder.Snapshot(),
		Done:         s.done,
		Records:      s.records,
		Malformed:    s.malformed,
		ServerErrors: s.serverErrors,
	}
}
