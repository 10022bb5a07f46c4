package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/papercomputeco/transcriber/pkg/event"
	"github.com/papercomputeco/transcriber/pkg/transcript"
)

const (
	threadFile = "thread.json"
)

// ThreadState is the persisted conversation a chat session resumes from.
type ThreadState struct {
	// ThreadID is sent with every request so the backend can correlate turns.
	ThreadID string `json:"thread_id"`

	// Messages is the full transcript in chronological order.
	Messages []transcript.Message `json:"messages"`

	// Todos is the latest todo list published by the backend.
	Todos []event.Todo `json:"todos,omitempty"`
}

// LoadThreadState loads the thread state from a target .transcriber/thread.json.
// Returns nil, nil if no thread state exists (new conversation).
// If overrideDir is non-empty, it is used instead of the default location.
func (m *Manager) LoadThreadState(overrideDir string) (*ThreadState, error) {
	path, err := m.Path(overrideDir, threadFile)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading thread state: %w", err)
	}

	state := &ThreadState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing thread state: %w", err)
	}

	return state, nil
}

// SaveThreadState persists the thread state to a target .transcriber/thread.json.
func (m *Manager) SaveThreadState(state *ThreadState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil thread state")
	}

	path, err := m.Path(overrideDir, threadFile)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling thread state: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing thread state: %w", err)
	}

	return nil
}

// ClearThreadState removes the thread state file so the next chat session
// starts a new conversation.
// Returns nil if the file doesn't exist (already cleared).
func (m *Manager) ClearThreadState(overrideDir string) error {
	path, err := m.Path(overrideDir, threadFile)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing thread state: %w", err)
	}

	return nil
}
