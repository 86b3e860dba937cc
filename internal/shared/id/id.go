// Package id provides ULID-based identifiers for embedded program instances.
//
// Every identifier is a prefixed ULID:
//   - inst_*: one embedded instance (one foreign process, one foreign window)
//   - conn_*: one connection slot held by the connection manager
//   - hook_*: one move/resize hook registration
//
// ULIDs sort by creation time, so log lines and listings order naturally.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// InstanceID identifies an embedded instance
type InstanceID string

// ConnectionID identifies a connection slot in the manager
type ConnectionID string

// HookID identifies a move/resize hook registration
type HookID string

const (
	InstancePrefix   = "inst"
	ConnectionPrefix = "conn"
	HookPrefix       = "hook"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Tests use it for deterministic ids.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewInstanceID generates a new instance ID
func NewInstanceID() InstanceID {
	return InstanceID(Default().GenerateWithPrefix(InstancePrefix))
}

// NewConnectionID generates a new connection ID
func NewConnectionID() ConnectionID {
	return ConnectionID(Default().GenerateWithPrefix(ConnectionPrefix))
}

// NewHookID generates a new hook registration ID
func NewHookID() HookID {
	return HookID(Default().GenerateWithPrefix(HookPrefix))
}

func (id InstanceID) String() string   { return string(id) }
func (id ConnectionID) String() string { return string(id) }
func (id HookID) String() string       { return string(id) }

// Split separates a prefixed id into its prefix and ULID parts
func Split(s string) (prefix string, u ulid.ULID, err error) {
	prefix, raw, ok := strings.Cut(s, "_")
	if !ok {
		return "", ulid.ULID{}, fmt.Errorf("missing prefix in id %q", s)
	}
	u, err = ulid.Parse(raw)
	if err != nil {
		return "", ulid.ULID{}, fmt.Errorf("parse id %q: %w", s, err)
	}
	return prefix, u, nil
}

// IsValid reports whether s is a well-formed prefixed id
func IsValid(s string) bool {
	_, _, err := Split(s)
	return err == nil
}

// Timestamp extracts the creation time of a prefixed id
func Timestamp(s string) (time.Time, error) {
	_, u, err := Split(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}
