// Package sse reads Server-Sent Events and exposes their data payloads as a
// record stream. Backends that answer a chat turn with text/event-stream
// carry one stream record per event, so the payloads can be fed to the same
// decoder as an NDJSON body.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event is a single parsed SSE event, delimited by a blank line.
type Event struct {
	// Type is the "event:" field. Empty means the default "message" type.
	Type string

	// Data is the concatenation of all "data:" lines, joined with "\n".
	Data string

	// ID is the "id:" field, if present.
	ID string
}
