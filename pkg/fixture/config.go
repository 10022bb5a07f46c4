// Package fixture provides a local chat backend that replays recorded NDJSON
// event streams. It lets the client and the CLI be exercised end to end
// without a running agent.
package fixture

import "time"

// Config is the fixture server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8000")
	ListenAddr string

	// Script is the recorded stream to replay. If nil, the server echoes the
	// last message of each request back as a token stream.
	Script *Script

	// Delay is the pause between two records.
	Delay time.Duration

	// ChunkSize splits every record into writes of at most this many bytes.
	// Zero writes each record, newline included, in one piece.
	ChunkSize int

	// EventStream serves text/event-stream, one "data:" event per record,
	// instead of NDJSON.
	EventStream bool
}
