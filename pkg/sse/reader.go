package sse

import (
	"bufio"
	"io"
	"strings"
)

const defaultMaxLine = 1024 * 1024

// Reader parses SSE events from an io.Reader.
type Reader struct {
	scanner *bufio.Scanner

	current *Event

	// pending is set once any field of the current event was read.
	pending bool
	// sawData is set once a data field of the current event was read, even
	// an empty one. Later data lines are joined to it with a newline.
	sawData bool
}

// NewReader returns a Reader over src. maxLine bounds a single line; zero or
// less allows lines of up to 1MiB.
func NewReader(src io.Reader, maxLine int) *Reader {
	if maxLine <= 0 {
		maxLine = defaultMaxLine
	}

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, min(64*1024, maxLine)), maxLine)

	return &Reader{
		scanner: scanner,
		current: &Event{},
	}
}

// Next returns the next event. It blocks until a blank line terminates the
// event or the source ends. Next returns nil, nil when the source is
// exhausted.
func (r *Reader) Next() (*Event, error) {
	for r.scanner.Scan() {
		raw := strings.TrimSuffix(r.scanner.Text(), "\r")

		if raw == "" {
			if r.pending {
				return r.take(), nil
			}
			// keep-alive
			continue
		}

		if strings.HasPrefix(raw, ":") {
			continue
		}

		r.parseLine(raw)
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	// An event cut off by the end of the stream is still delivered.
	if r.pending {
		return r.take(), nil
	}
	return nil, nil
}

// parseLine accumulates one "field:value" line into the current event. A
// single space after the colon is stripped; a line without a colon is a
// field with an empty value.
func (r *Reader) parseLine(line string) {
	field, value, ok := strings.Cut(line, ":")
	if ok {
		value = strings.TrimPrefix(value, " ")
	}

	switch field {
	case "data":
		if r.sawData {
			r.current.Data += "\n"
		}
		r.current.Data += value
		r.sawData = true
		r.pending = true
	case "event":
		r.current.Type = value
		r.pending = true
	case "id":
		r.current.ID = value
		r.pending = true
	default:
		// "retry" and unknown fields are ignored.
	}
}

func (r *Reader) take() *Event {
	ev := r.current
	r.current = &Event{}
	r.pending = false
	r.sawData = false
	return ev
}
