package sse

import (
	"context"
	"io"
	"strings"
	"sync"
)

// Source adapts an SSE body to the chunk interface the stream decoder reads
// from. Every event with a non-empty data payload becomes one newline
// terminated record; newlines inside a payload are folded to spaces.
type Source struct {
	rc     io.ReadCloser
	reader *Reader

	closeOnce sync.Once
	closeErr  error
}

// NewSource wraps rc. maxLine is passed to NewReader.
func NewSource(rc io.ReadCloser, maxLine int) *Source {
	return &Source{
		rc:     rc,
		reader: NewReader(rc, maxLine),
	}
}

// Next returns the next record, or io.EOF once the body is exhausted.
func (s *Source) Next(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ev, err := s.reader.Next()
		if err != nil {
			return nil, err
		}
		if ev == nil {
			return nil, io.EOF
		}
		if strings.TrimSpace(ev.Data) == "" {
			continue
		}

		record := strings.ReplaceAll(ev.Data, "\n", " ")
		return []byte(record + "\n"), nil
	}
}

// Close closes the underlying body. It is safe to call more than once.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.rc.Close()
	})
	return s.closeErr
}
