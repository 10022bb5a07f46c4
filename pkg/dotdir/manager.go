// Package dotdir manages the .transcriber/ and ~/.transcriber directories.
//
// The directory holds config.toml and the thread state that lets a chat
// session resume a conversation.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the directory looked up in the working directory and in $HOME.
const DirName = ".transcriber"

// Manager resolves the state directory. The zero value is not usable; call
// NewManager.
type Manager struct {
	getwd   func() (string, error)
	homeDir func() (string, error)
}

func NewManager() *Manager {
	return &Manager{
		getwd:   os.Getwd,
		homeDir: os.UserHomeDir,
	}
}

// Target resolves, creates and returns the absolute state directory. An
// explicit overrideDir wins, then ./.transcriber when present, then
// ~/.transcriber.
func (m *Manager) Target(overrideDir string) (string, error) {
	dir, err := m.resolve(overrideDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating transcriber directory %s: %w", dir, err)
	}
	return filepath.Abs(dir)
}

// Path joins name onto the resolved state directory.
func (m *Manager) Path(overrideDir, name string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func (m *Manager) resolve(overrideDir string) (string, error) {
	if overrideDir != "" {
		return overrideDir, nil
	}

	if cwd, err := m.getwd(); err == nil {
		local := filepath.Join(cwd, DirName)
		if fi, err := os.Stat(local); err == nil && fi.IsDir() {
			return local, nil
		}
	}

	home, err := m.homeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}
