// Package transcript folds decoded stream events into a chat transcript.
//
// The Builder is a small state machine around a cursor that is either closed
// (no ai message in progress) or open on the index of the ai message that
// tokens and tool calls are appended to. Messages are only ever appended; the
// open ai message is the single message that is mutated in place.
package transcript

import (
	"github.com/papercomputeco/transcriber/pkg/event"
)

const (
	aiIDPrefix         = "streaming-ai-"
	toolCallIDPrefix   = "call_"
	toolResultIDPrefix = "tool-res-"
)

// Effect reports what applying an event changed.
type Effect uint8

const (
	// EffectMessages means the message list was mutated.
	EffectMessages Effect = 1 << iota

	// EffectToolCall means the active tool was set or cleared.
	EffectToolCall

	// EffectTodos means the todo list was replaced.
	EffectTodos

	// EffectServerError means the event was a server-reported error.
	EffectServerError

	// EffectDone means the stream signalled completion.
	EffectDone
)

// Has reports whether all bits of f are set in e.
func (e Effect) Has(f Effect) bool {
	return e&f == f
}

type cursorState uint8

const (
	cursorClosed cursorState = iota
	cursorOpen
)

type cursor struct {
	state cursorState
	index int
}

// Builder accumulates a transcript from stream events. One Builder belongs to
// one stream session; it is not safe for concurrent use.
type Builder struct {
	messages   []Message
	todos      []event.Todo
	activeTool string

	cursor cursor
	ids    *IDGenerator
	seen   map[string]struct{}
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithIDGenerator sets the generator used for synthesized ids.
func WithIDGenerator(g *IDGenerator) BuilderOption {
	return func(b *Builder) {
		if g != nil {
			b.ids = g
		}
	}
}

// WithTodos seeds the todo list.
func WithTodos(todos []event.Todo) BuilderOption {
	return func(b *Builder) {
		b.todos = CloneTodos(todos)
	}
}

// NewBuilder returns a Builder that starts from a copy of seed with a closed
// cursor: the first token always opens a new ai message.
func NewBuilder(seed []Message, opts ...BuilderOption) *Builder {
	b := &Builder{
		messages: CloneMessages(seed),
		seen:     make(map[string]struct{}, len(seed)),
	}
	for _, m := range b.messages {
		b.seen[m.ID] = struct{}{}
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.ids == nil {
		b.ids = NewIDGenerator()
	}
	return b
}

// Apply folds one event into the transcript. Unknown event types are no-ops.
func (b *Builder) Apply(ev event.Event) Effect {
	switch ev.Type {
	case event.TypeToken:
		i := b.openAI()
		b.messages[i].Content += ev.Text()
		return EffectMessages

	case event.TypeToolStart:
		i := b.openAI()
		id := ev.RunID
		if id == "" {
			id = b.ids.Next(toolCallIDPrefix)
		}
		b.messages[i].ToolCalls = append(b.messages[i].ToolCalls, ToolCall{
			ID:   id,
			Name: ev.Tool,
			Args: ev.ToolInput(),
		})
		b.activeTool = ev.Tool
		return EffectMessages | EffectToolCall

	case event.TypeToolEnd:
		callID := ev.RunID
		if callID == "" {
			callID = UnknownToolCallID
		}

		id := ""
		if ev.RunID != "" {
			id = toolResultIDPrefix + ev.RunID
		}
		if _, dup := b.seen[id]; id == "" || dup {
			id = b.ids.Next(toolResultIDPrefix)
		}

		b.append(Message{
			ID:         id,
			Role:       RoleTool,
			Content:    ev.OutputText(),
			ToolCallID: callID,
			Name:       ev.Tool,
		})

		// A tool result is interpreted by a new ai message, never by the one
		// that issued the call.
		b.cursor = cursor{state: cursorClosed}
		b.activeTool = ""
		return EffectMessages | EffectToolCall

	case event.TypeValues:
		if ev.Todos == nil {
			return 0
		}
		b.todos = CloneTodos(ev.Todos)
		return EffectTodos

	case event.TypeError:
		return EffectServerError

	case event.TypeDone:
		return EffectDone

	default:
		return 0
	}
}

// openAI returns the index of the open ai message, appending a new empty one
// and opening the cursor on it when the cursor is closed.
func (b *Builder) openAI() int {
	if b.cursor.state == cursorOpen {
		return b.cursor.index
	}

	b.append(Message{
		ID:   b.ids.Next(aiIDPrefix),
		Role: RoleAI,
	})
	b.cursor = cursor{state: cursorOpen, index: len(b.messages) - 1}
	return b.cursor.index
}

func (b *Builder) append(m Message) {
	b.seen[m.ID] = struct{}{}
	b.messages = append(b.messages, m)
}

// OpenIndex returns the index of the ai message currently receiving tokens.
func (b *Builder) OpenIndex() (int, bool) {
	if b.cursor.state != cursorOpen {
		return 0, false
	}
	return b.cursor.index, true
}

// Len returns the number of messages in the transcript.
func (b *Builder) Len() int {
	return len(b.messages)
}

// Messages returns a deep copy of the message list.
func (b *Builder) Messages() []Message {
	return CloneMessages(b.messages)
}

// Todos returns a copy of the latest todo list.
func (b *Builder) Todos() []event.Todo {
	return CloneTodos(b.todos)
}

// ActiveTool returns the name of the tool currently executing.
func (b *Builder) ActiveTool() string {
	return b.activeTool
}

// Snapshot returns a deep copy of the full transcript state.
func (b *Builder) Snapshot() Transcript {
	return Transcript{
		Messages:   b.Messages(),
		Todos:      b.Todos(),
		ActiveTool: b.activeTool,
	}
}
