// Package ndjson provides an incremental framer for newline-delimited JSON
// streams. Bytes arrive in arbitrary chunks from the transport; the Framer
// hands back only complete records and keeps the unterminated tail for the
// next chunk.
//
// Splitting happens on raw bytes and a record is converted to text only once
// its terminating newline has arrived. A newline byte can never occur inside a
// multi-byte UTF-8 sequence, so a rune split across two chunks is always
// reassembled before it is decoded.
//
//	┌────────────┐   ┌────────────────┐   ┌───────────────┐
//	│ byte chunk │──▶│ Framer.Feed()  │──▶│ tee io.Writer │
//	└────────────┘   └────────────────┘   └───────────────┘
//	                         │
//	                         ▼
//	                 ┌────────────────┐
//	                 │ []string lines │
//	                 └────────────────┘
package ndjson

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ErrRecordTooLarge is returned by Feed when a record, complete or still
// unterminated, grows beyond the configured maximum size.
var ErrRecordTooLarge = errors.New("ndjson record exceeds maximum size")

// Framer splits a byte stream into newline terminated records.
// A Framer is owned by a single stream session and is not safe for concurrent use.
type Framer struct {
	buf []byte

	// tee receives every fed byte verbatim when set.
	tee io.Writer

	// maxRecord bounds every record, newline excluded. Zero means unbounded.
	maxRecord int
}

// Option configures a Framer.
type Option func(*Framer)

// WithTee forwards all raw bytes to w as they are fed, before framing.
func WithTee(w io.Writer) Option {
	return func(f *Framer) {
		f.tee = w
	}
}

// WithMaxRecordSize bounds the size of a single record in bytes.
func WithMaxRecordSize(n int) Option {
	return func(f *Framer) {
		if n > 0 {
			f.maxRecord = n
		}
	}
}

// NewFramer returns an empty Framer.
func NewFramer(opts ...Option) *Framer {
	f := &Framer{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Feed appends chunk to the internal buffer and returns every record that is
// now complete, in stream order, without the trailing newline. The final
// fragment after the last newline is retained for the next call. Empty
// records (blank lines) are returned as empty strings; callers decide whether
// to skip them.
func (f *Framer) Feed(chunk []byte) ([]string, error) {
	if len(chunk) == 0 {
		return nil, nil
	}

	if f.tee != nil {
		if _, err := f.tee.Write(chunk); err != nil {
			return nil, fmt.Errorf("writing tee: %w", err)
		}
	}

	f.buf = append(f.buf, chunk...)

	var records []string
	start := 0
	for {
		i := bytes.IndexByte(f.buf[start:], '\n')
		if i < 0 {
			break
		}
		if f.maxRecord > 0 && i > f.maxRecord {
			f.discard(start + i + 1)
			return records, fmt.Errorf("%w: %d byte record (max %d)", ErrRecordTooLarge, i, f.maxRecord)
		}
		records = append(records, string(f.buf[start:start+i]))
		start += i + 1
	}

	f.discard(start)

	if f.maxRecord > 0 && len(f.buf) > f.maxRecord {
		return records, fmt.Errorf("%w: %d bytes buffered (max %d)", ErrRecordTooLarge, len(f.buf), f.maxRecord)
	}

	return records, nil
}

// discard drops the first n buffered bytes, reusing the backing array.
func (f *Framer) discard(n int) {
	if n == 0 {
		return
	}
	m := copy(f.buf, f.buf[n:])
	f.buf = f.buf[:m]
}

// Pending reports the number of buffered bytes that do not yet form a
// complete record.
func (f *Framer) Pending() int {
	return len(f.buf)
}

// Remainder returns a copy of the unterminated tail. At end of stream this
// data is never decoded: every well-formed event is newline terminated.
func (f *Framer) Remainder() []byte {
	return bytes.Clone(f.buf)
}

// Reset drops any buffered bytes.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
}
