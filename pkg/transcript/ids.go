package transcript

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces unique message and tool call ids for one stream
// session: a per-session salt plus a monotonic counter. Using a fixed salt
// makes generated ids reproducible.
type IDGenerator struct {
	salt string
	n    atomic.Uint64
}

// NewIDGenerator returns a generator salted with a random fragment.
func NewIDGenerator() *IDGenerator {
	salt, _, _ := strings.Cut(uuid.NewString(), "-")
	return NewSaltedIDGenerator(salt)
}

// NewSaltedIDGenerator returns a generator using the given salt.
func NewSaltedIDGenerator(salt string) *IDGenerator {
	return &IDGenerator{salt: salt}
}

// Next returns "<prefix><salt>-<n>" where n starts at 1.
func (g *IDGenerator) Next(prefix string) string {
	return fmt.Sprintf("%s%s-%d", prefix, g.salt, g.n.Add(1))
}
