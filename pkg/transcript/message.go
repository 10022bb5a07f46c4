package transcript

import (
	"bytes"
	"encoding/json"

	"github.com/papercomputeco/transcriber/pkg/event"
)

// Role identifies who authored a message.
type Role string

const (
	RoleHuman Role = "human"
	RoleAI    Role = "ai"
	RoleTool  Role = "tool"
)

// UnknownToolCallID is used as the tool call reference of a tool result
// whose originating run id was never sent.
const UnknownToolCallID = "unknown"

// ToolCall is a tool invocation requested by an ai message.
type ToolCall struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// Message is a single unit of conversation.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolCalls is only set on ai messages, in arrival order.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// Tool result fields (role=tool)
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name,omitempty"`
}

// NewHumanMessage creates a human message with the given id and text.
func NewHumanMessage(id, content string) Message {
	return Message{
		ID:      id,
		Role:    RoleHuman,
		Content: content,
	}
}

// Clone returns a deep copy of m.
func (m Message) Clone() Message {
	c := m
	if m.ToolCalls != nil {
		c.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			c.ToolCalls[i] = ToolCall{
				ID:   tc.ID,
				Name: tc.Name,
				Args: bytes.Clone(tc.Args),
			}
		}
	}
	return c
}

// Transcript is an immutable view of the conversation state.
type Transcript struct {
	Messages []Message   `json:"messages"`
	Todos    []event.Todo `json:"todos,omitempty"`

	// ActiveTool is the name of the tool currently executing, if any.
	ActiveTool string `json:"active_tool,omitempty"`
}

// CloneMessages deep copies a message list. The result is never nil.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// CloneTodos deep-copies a todo list, preserving nil.
func CloneTodos(todos []event.Todo) []event.Todo {
	if todos == nil {
		return nil
	}
	out := make([]event.Todo, len(todos))
	for i, t := range todos {
		out[i] = t.Clone()
	}
	return out
}

// LastAI returns the most recent ai message, if any.
func (t Transcript) LastAI() (Message, bool) {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if t.Messages[i].Role == RoleAI {
			return t.Messages[i], true
		}
	}
	return Message{}, false
}
