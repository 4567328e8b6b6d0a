package testutil

import (
	"sync"

	"github.com/roach88/kassa/internal/model"
)

// Recorder is a sink that keeps every forwarded record in order.
type Recorder struct {
	mu       sync.Mutex
	entities []model.Entity
}

// Forward appends the records.
func (r *Recorder) Forward(entities ...model.Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities = append(r.entities, entities...)
}

// Entities returns a copy of the recorded records.
func (r *Recorder) Entities() []model.Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Entity, len(r.entities))
	copy(out, r.entities)
	return out
}
