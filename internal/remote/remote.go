// Package remote defines the narrow contract with the remote system of record.
//
// The remote is a mirror: the device never reads from it. Every write is an
// insert-if-absent keyed by the local identity, so delivering the same
// record twice leaves one copy.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/kassa/internal/model"
)

// ErrOffline is returned by Offline for every delivery.
var ErrOffline = errors.New("remote: offline")

// Remote accepts records keyed by their local identity.
type Remote interface {
	// InsertIfAbsent stores e unless a record with the same collection and
	// key already exists. An existing record is a success, not an error.
	InsertIfAbsent(ctx context.Context, e model.Entity) error
}

// Offline is the Remote used when no remote is configured.
type Offline struct{}

// InsertIfAbsent always fails with ErrOffline.
func (Offline) InsertIfAbsent(_ context.Context, e model.Entity) error {
	return fmt.Errorf("%w: %s %s", ErrOffline, e.Collection(), e.Key())
}

// Table returns the remote table name for a collection.
// Collections map one to one onto tables named after them.
func Table(c model.Collection) string {
	return string(c)
}
