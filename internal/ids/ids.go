// Package ids generates record identities.
package ids

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Generator produces globally unique record identities.
// Implemented by UUIDv7 (production) and Sequence (tests).
type Generator interface {
	New() string
}

// UUIDv7 generates time-sortable UUIDv7 identities.
//
// UUIDv7 embeds a timestamp in the most significant bits, so rows inserted on
// one device sort by creation time when keyed by id.
//
// Thread-safety: UUIDv7 is stateless and safe for concurrent use.
type UUIDv7 struct{}

// New creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7) New() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Sequence returns predetermined identities, then numbered fallbacks.
//
// Tests provide a known list so stored rows and golden output are stable.
// Once the list is consumed, Sequence yields "<prefix>-<n>".
//
// Thread-safety: Sequence is safe for concurrent use via internal mutex.
type Sequence struct {
	mu     sync.Mutex
	prefix string
	ids    []string
	idx    int
}

// NewSequence creates a generator returning ids in order.
//
// Example:
//
//	gen := NewSequence("id", "tx-1", "item-1")
//	gen.New() // "tx-1"
//	gen.New() // "item-1"
//	gen.New() // "id-3"
func NewSequence(prefix string, ids ...string) *Sequence {
	return &Sequence{prefix: prefix, ids: ids}
}

// New returns the next identity.
func (g *Sequence) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.idx++
	if g.idx <= len(g.ids) {
		return g.ids[g.idx-1]
	}
	return fmt.Sprintf("%s-%d", g.prefix, g.idx)
}
