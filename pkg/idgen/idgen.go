// Package idgen generates process-local correlation ids, the same way
// the teacher mints session ids: a monotonic ULID, cheap enough to call
// per request without contending a shared counter.
package idgen

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator produces monotonically increasing ids from a single entropy
// source. A Generator is safe for concurrent use: ulid.MonotonicEntropy is
// not, so ULID and LogID hold mu across the Timestamp/New pairing, and two
// goroutines never race between reading the clock and minting an id.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New creates a Generator seeded from crypto/rand.
func New() *Generator {
	return &Generator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// ULID mints a new id as its canonical 26-character Crockford base32 form.
func (g *Generator) ULID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
	return id.String()
}

// LogID mints a correlation id suitable for a single RPC attempt: the low
// 64 bits of a freshly minted ULID, unique enough to correlate retries
// across a router's attempt budget without the overhead of a full ULID
// string on the wire.
func (g *Generator) LogID() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
	return binary.BigEndian.Uint64(id[8:16])
}

var defaultGenerator = New()

// Default returns the package-level Generator, convenient for call sites
// that don't need a dedicated entropy stream.
func Default() *Generator { return defaultGenerator }
