// Package id provides identifier generation for the agent.
//
// Session and event identifiers are prefixed ULIDs (sess_*, evt_*), which
// keeps the two namespaces disjoint and makes logs readable. Trace and span
// identifiers are built from RandomHex, which draws lowercase hexadecimal
// characters from a cryptographically secure source.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionID identifies one agent process lifetime.
type SessionID string

// EventID identifies a single buffered event.
type EventID string

const (
	SessionPrefix = "sess"
	EventPrefix   = "evt"
)

// Generator produces ULIDs from a guarded entropy source.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the shared generator backed by crypto/rand.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator with cryptographically secure entropy.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source,
// for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewSessionID generates a session identifier, unique for the process lifetime.
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(SessionPrefix))
}

// NewEventID generates an event identifier in its own namespace.
func NewEventID() EventID {
	return EventID(Default().GenerateWithPrefix(EventPrefix))
}

func (id SessionID) String() string { return string(id) }
func (id EventID) String() string   { return string(id) }

// RandomHex returns n lowercase hexadecimal characters drawn uniformly at
// random. It is a pure function of the process entropy source.
func RandomHex(n int) string {
	if n <= 0 {
		return ""
	}
	buf := make([]byte, (n+1)/2)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(fmt.Sprintf("id: entropy source unavailable: %v", err))
	}
	return hex.EncodeToString(buf)[:n]
}
