package fixture

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/papercomputeco/transcriber/pkg/event"
)

// ErrEmptyScript is returned when a recording holds no records.
var ErrEmptyScript = errors.New("fixture script has no records")

const maxScriptLine = 16 * 1024 * 1024

// Script is an ordered list of raw NDJSON records, without newlines.
type Script struct {
	Records [][]byte
}

// LoadScript reads a recording. Blank lines are dropped; every other line is
// kept verbatim, including malformed ones, so that a replay reproduces the
// original stream.
func LoadScript(r io.Reader) (*Script, error) {
	s := &Script{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxScriptLine)
	for scanner.Scan() {
		line := bytes.TrimRight(scanner.Bytes(), "\r")
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		s.Records = append(s.Records, bytes.Clone(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading fixture script: %w", err)
	}

	if len(s.Records) == 0 {
		return nil, ErrEmptyScript
	}
	return s, nil
}

// Bytes renders the script as an NDJSON stream.
func (s *Script) Bytes() []byte {
	var buf bytes.Buffer
	for _, rec := range s.Records {
		buf.Write(rec)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// EchoScript streams text back word by word, followed by "done".
func EchoScript(text string) (*Script, error) {
	s := &Script{}

	words := strings.SplitAfter(text, " ")
	for _, w := range words {
		if w == "" {
			continue
		}
		content, err := json.Marshal(w)
		if err != nil {
			return nil, fmt.Errorf("encoding token: %w", err)
		}
		if err := s.add(event.Event{Type: event.TypeToken, Content: content}); err != nil {
			return nil, err
		}
	}

	if err := s.add(event.Event{Type: event.TypeDone}); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Script) add(ev event.Event) error {
	rec, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", ev.Type, err)
	}
	s.Records = append(s.Records, rec)
	return nil
}
