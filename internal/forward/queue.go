package forward

import (
	"sync"

	"github.com/roach88/kassa/internal/model"
)

// unit is a group of records delivered together, in order. Only the first
// record may carry a sync flag; it is marked once the whole unit is
// delivered. A sale is one unit: its transaction followed by its items.
type unit []model.Entity

// head is the record whose sync flag stands for the unit.
func (u unit) head() model.Entity { return u[0] }

// group splits records into units. Each transaction absorbs the items
// directly following it that belong to it; every other record is a unit
// of its own.
func group(records []model.Entity) []unit {
	units := make([]unit, 0, len(records))
	for _, e := range records {
		if item, ok := e.(model.TransactionItem); ok && len(units) > 0 {
			last := units[len(units)-1]
			if tr, ok := last.head().(model.Transaction); ok && tr.ID == item.TransactionID {
				units[len(units)-1] = append(last, e)
				continue
			}
		}
		units = append(units, unit{e})
	}
	return units
}

// queue is a thread-safe FIFO of units awaiting delivery.
//
// The queue is unbounded so that Forward never blocks a sale, however long
// the remote is down. Units live in memory only; anything still queued at
// shutdown stays unsynced locally and is picked up by Resend.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type queue struct {
	mu     sync.Mutex
	units  []unit
	closed bool
	signal chan struct{} // Signals unit availability (buffered, size 1)
}

func newQueue() *queue {
	return &queue{
		units:  make([]unit, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds units to the back of the queue.
// Returns false if the queue is closed.
func (q *queue) Enqueue(units ...unit) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.units = append(q.units, units...)

	// Non-blocking: buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front unit without blocking.
// Returns (nil, false) if the queue is empty.
func (q *queue) TryDequeue() (unit, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.units) == 0 {
		return nil, false
	}

	u := q.units[0]

	// Nil out the slot so the backing array does not retain delivered units.
	q.units[0] = nil

	if len(q.units) == 1 {
		q.units = q.units[:0]
	} else {
		q.units = q.units[1:]
	}

	return u, true
}

// Wait returns a channel that signals when units may be available.
// The channel is closed when the queue is closed.
func (q *queue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued units.
func (q *queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.units)
}

// Close signals that no more units will be enqueued.
// Units already queued can still be dequeued.
func (q *queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
