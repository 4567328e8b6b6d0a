package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/kassa/internal/model"
)

// externalPollInterval is how often live subscriptions check for commits
// made through another connection, such as a second kassa process.
const externalPollInterval = time.Second

// observer is one live query registered with Subscribe.
type observer struct {
	collections map[model.Collection]bool

	// signal is buffered (size 1); multiple commits coalesce into one refresh.
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

func (o *observer) watches(touched map[model.Collection]bool) bool {
	for c := range touched {
		if o.collections[c] {
			return true
		}
	}
	return false
}

func (o *observer) stop() {
	o.once.Do(func() { close(o.done) })
}

// registry tracks observers by id.
type registry struct {
	mu        sync.Mutex
	nextID    int
	observers map[int]*observer
}

func newRegistry() *registry {
	return &registry{observers: make(map[int]*observer)}
}

func (r *registry) add(o *observer) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.observers[r.nextID] = o
	return r.nextID
}

func (r *registry) remove(id int) {
	r.mu.Lock()
	o, ok := r.observers[id]
	delete(r.observers, id)
	r.mu.Unlock()
	if ok {
		o.stop()
	}
}

// notify signals every observer watching a touched collection.
// Non-blocking: a pending signal already covers this commit.
func (r *registry) notify(touched map[model.Collection]bool) {
	if len(touched) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.observers {
		if !o.watches(touched) {
			continue
		}
		select {
		case o.signal <- struct{}{}:
		default:
		}
	}
}

// notifyAll signals every observer.
func (r *registry) notifyAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.observers {
		select {
		case o.signal <- struct{}{}:
		default:
		}
	}
}

func (r *registry) closeAll() {
	r.mu.Lock()
	observers := r.observers
	r.observers = make(map[int]*observer)
	r.mu.Unlock()
	for _, o := range observers {
		o.stop()
	}
}

// Subscribe registers a live query over the given collections.
//
// refresh runs once immediately and again after every committed write that
// touches one of the collections. It runs on a dedicated goroutine, so it
// may read from the store but never observes a batch mid-flight. Bursts of
// commits coalesce into a single refresh that reads the latest state.
//
// Commits from other connections to the same database file carry no
// collection information; they refresh every subscription within
// externalPollInterval.
//
// The subscription ends when ctx is cancelled, when the returned cancel
// function is called, or when the store is closed.
func (s *Store) Subscribe(ctx context.Context, refresh func(ctx context.Context), collections ...model.Collection) (cancel func()) {
	o := &observer{
		collections: make(map[model.Collection]bool, len(collections)),
		signal:      make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	for _, c := range collections {
		o.collections[c] = true
	}

	// Initial delivery, like a live query's first result.
	o.signal <- struct{}{}

	id := s.observers.add(o)
	if s.stopPoll != nil {
		s.pollOnce.Do(func() {
			last, err := s.dataVersion()
			if err != nil {
				slog.Debug("data_version unavailable", "error", err)
			}
			go s.pollExternal(s.stopPoll, last)
		})
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				s.observers.remove(id)
				return
			case <-o.done:
				return
			case <-o.signal:
				refresh(ctx)
			}
		}
	}()

	return func() { s.observers.remove(id) }
}

// pollExternal notifies all observers whenever PRAGMA data_version moves.
// The value only changes for commits made through other connections; this
// store's own writes are announced by notify.
func (s *Store) pollExternal(stop <-chan struct{}, last int64) {
	ticker := time.NewTicker(externalPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			v, err := s.dataVersion()
			if err != nil {
				continue
			}
			if v != last {
				last = v
				s.observers.notifyAll()
			}
		}
	}
}

func (s *Store) dataVersion() (int64, error) {
	var v int64
	err := s.db.QueryRow("PRAGMA data_version").Scan(&v)
	return v, err
}
