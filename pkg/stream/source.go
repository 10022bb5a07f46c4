package stream

import (
	"context"
	"errors"
	"io"
	"sync"
)

const defaultReadSize = 32 * 1024

// Source yields raw byte chunks from the transport.
//
// Next blocks until bytes are available and returns io.EOF once the stream is
// exhausted. The returned slice is only valid until the next call. Close
// releases the underlying transport; it may be called more than once and from
// another goroutine to unblock a pending Next.
type Source interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// ReaderSource adapts an io.ReadCloser, typically an HTTP response body, to
// a Source.
type ReaderSource struct {
	rc  io.ReadCloser
	buf []byte

	once     sync.Once
	closeErr error
}

// NewReaderSource wraps rc, reading up to size bytes per chunk. A size of
// zero or less uses a 32KiB buffer.
func NewReaderSource(rc io.ReadCloser, size int) *ReaderSource {
	if size <= 0 {
		size = defaultReadSize
	}
	return &ReaderSource{
		rc:  rc,
		buf: make([]byte, size),
	}
}

// Next reads the next chunk. Data returned together with io.EOF is delivered
// first; io.EOF is reported on the following call.
func (s *ReaderSource) Next(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := s.rc.Read(s.buf)
		if n > 0 {
			return s.buf[:n], nil
		}
		if err != nil {
			return nil, err
		}
		// (0, nil) is allowed by io.Reader; read again.
	}
}

// Close closes the wrapped reader exactly once.
func (s *ReaderSource) Close() error {
	s.once.Do(func() {
		s.closeErr = s.rc.Close()
	})
	return s.closeErr
}

// isEOF reports whether err signals a normal end of stream.
func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
