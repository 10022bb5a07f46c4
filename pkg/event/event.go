// Package event defines the typed events carried on the assistant's
// newline-delimited JSON stream and decodes raw records into them.
package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Type discriminates stream events.
type Type string

const (
	TypeToken     Type = "token"
	TypeToolStart Type = "tool_start"
	TypeToolEnd   Type = "tool_end"
	TypeValues    Type = "values"
	TypeError     Type = "error"
	TypeDone      Type = "done"
)

var (
	// ErrEmptyRecord is returned for blank records. These carry no event
	// and are skipped without being reported as malformed.
	ErrEmptyRecord = errors.New("empty record")

	// ErrMalformedRecord is returned when a record is not a JSON object.
	ErrMalformedRecord = errors.New("malformed record")
)

// Todo is one entry of the out-of-band todo list published by "values"
// events. Entries are opaque: the JSON is kept as the backend sent it, minus
// insignificant whitespace, and only read leniently for display.
type Todo json.RawMessage

// NewTodo builds a todo entry with the conventional content and status keys.
func NewTodo(content, status string) Todo {
	fields := map[string]string{"content": content}
	if status != "" {
		fields["status"] = status
	}
	data, _ := json.Marshal(fields)
	return Todo(data)
}

func (t Todo) MarshalJSON() ([]byte, error) {
	if len(t) == 0 {
		return []byte("null"), nil
	}
	return t, nil
}

// UnmarshalJSON stores data with insignificant whitespace removed.
func (t *Todo) UnmarshalJSON(data []byte) error {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return err
	}
	*t = buf.Bytes()
	return nil
}

// Clone returns a copy that shares no memory with t.
func (t Todo) Clone() Todo {
	if t == nil {
		return nil
	}
	return bytes.Clone(t)
}

// Content is the entry's "content" string. Entries without one render as
// their raw JSON.
func (t Todo) Content() string {
	if s, ok := t.field("content"); ok {
		return s
	}
	if s, ok := t.string(); ok {
		return s
	}
	return string(bytes.TrimSpace(t))
}

// Status is the entry's "status" string, or "" when absent or not a string.
func (t Todo) Status() string {
	s, _ := t.field("status")
	return s
}

func (t Todo) field(name string) (string, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(t, &obj); err != nil {
		return "", false
	}
	raw, ok := obj[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func (t Todo) string() (string, bool) {
	var s string
	err := json.Unmarshal(t, &s)
	return s, err == nil
}

// Event is a single decoded stream record. Which fields are populated
// depends on Type.
type Event struct {
	Type Type `json:"type"`

	// Content is the token text (type=token) or the error description
	// (type=error). It is normally a JSON string; see Text.
	Content json.RawMessage `json:"content,omitempty"`

	// Tool fields (type=tool_start, type=tool_end)
	Tool   string          `json:"tool,omitempty"`
	Input  json.RawMessage `json:"input,omitempty"`
	Output json.RawMessage `json:"output,omitempty"`
	RunID  string          `json:"run_id,omitempty"`

	// Todos is non-nil when a "values" event carries a todo list, even an
	// empty one.
	Todos []Todo `json:"todos,omitempty"`
}

// Known reports whether the event type is one the stream protocol defines.
func (e Event) Known() bool {
	switch e.Type {
	case TypeToken, TypeToolStart, TypeToolEnd, TypeValues, TypeError, TypeDone:
		return true
	default:
		return false
	}
}

// Decode parses one raw record. Surrounding whitespace (including a trailing
// carriage return) is ignored. Unknown event types decode successfully and
// are left to the caller to ignore.
func Decode(record string) (Event, error) {
	trimmed := strings.TrimSpace(record)
	if trimmed == "" {
		return Event{}, ErrEmptyRecord
	}

	var ev Event
	if err := json.Unmarshal([]byte(trimmed), &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	return ev, nil
}

// Text returns Content normalized to text. Strings pass through, arrays of
// content parts are concatenated (string parts and the "text" field of object
// parts), and any other JSON value is rendered compactly. Absent or null
// content is empty.
func (e Event) Text() string {
	return coerceText(e.Content)
}

// OutputText renders a tool output as text: strings pass through, every
// other JSON value is rendered with two-space indentation. An absent output
// is empty.
func (e Event) OutputText() string {
	raw := bytes.TrimSpace(e.Output)
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// ToolInput returns the tool_start input, or an empty JSON object when the
// event carried none.
func (e Event) ToolInput() json.RawMessage {
	raw := bytes.TrimSpace(e.Input)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return json.RawMessage("{}")
	}
	return bytes.Clone(raw)
}

func coerceText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err == nil {
		var b strings.Builder
		for _, part := range parts {
			b.WriteString(partText(part))
		}
		return b.String()
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// partText extracts the text of a single multi-part content element.
func partText(part json.RawMessage) string {
	var s string
	if err := json.Unmarshal(part, &s); err == nil {
		return s
	}

	var block struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(part, &block); err == nil && block.Text != nil {
		return *block.Text
	}

	return ""
}
