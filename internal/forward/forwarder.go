// Package forward mirrors committed records to the remote system of record.
//
// Forwarding is best-effort and never on the sale path: Forward only
// enqueues, and a single background worker (Run) delivers one unit at a
// time: a lone record, or a sale made of its transaction and items. A failed
// delivery is logged and dropped; the unit's head record keeps its local
// "not synced" flag so a later Resend can catch it up.
package forward

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/roach88/kassa/internal/model"
	"github.com/roach88/kassa/internal/remote"
)

// DefaultTimeout bounds a single delivery.
const DefaultTimeout = 3 * time.Second

// Marker records a successful delivery locally.
// Implemented by *store.Store.
type Marker interface {
	MarkSynced(ctx context.Context, c model.Collection, id string) error
}

// Source lists locally unsynced records and the items of a sale.
// Implemented by *store.Store.
type Source interface {
	PendingSync(ctx context.Context, c model.Collection) ([]model.Entity, error)
	TransactionItems(ctx context.Context, transactionID string) ([]model.TransactionItem, error)
}

// resendOrder lists the flagged collections parents first, so the remote
// sees a shop before its products, sales and reports.
var resendOrder = []model.Collection{
	model.CollectionShops,
	model.CollectionProducts,
	model.CollectionTransactions,
	model.CollectionDailyReports,
}

// Stats counts delivery outcomes.
type Stats struct {
	Delivered int
	Failed    int
}

// Forwarder is the sync worker.
//
// Thread-safety model:
//   - Forward(), Resend(), Stop(), Pending(): safe from any goroutine
//   - Run() or Drain(): at most one at a time
type Forwarder struct {
	remote  remote.Remote
	marker  Marker
	queue   *queue
	breaker *gobreaker.CircuitBreaker[struct{}]
	timeout time.Duration

	delivered atomic.Int64
	failed    atomic.Int64
}

// Option configures a Forwarder.
type Option func(*Forwarder)

// WithTimeout sets the per-delivery timeout. Default: 3s.
func WithTimeout(d time.Duration) Option {
	return func(f *Forwarder) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithBreaker replaces the default circuit breaker settings.
func WithBreaker(st gobreaker.Settings) Option {
	return func(f *Forwarder) {
		f.breaker = gobreaker.NewCircuitBreaker[struct{}](st)
	}
}

// DefaultBreakerSettings opens the circuit after 5 consecutive failures and
// lets a trial call through after 30s.
func DefaultBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "remote",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Info("sync circuit state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
}

// New creates a Forwarder delivering to r. When every record of a unit is
// delivered, its head is marked synced through m if its collection carries
// a flag.
func New(r remote.Remote, m Marker, opts ...Option) *Forwarder {
	f := &Forwarder{
		remote:  r,
		marker:  m,
		queue:   newQueue(),
		breaker: gobreaker.NewCircuitBreaker[struct{}](DefaultBreakerSettings()),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Forward enqueues records for delivery. It never blocks.
// A transaction followed by its items is delivered as one unit.
// After Stop the records are dropped; they stay unsynced locally.
func (f *Forwarder) Forward(entities ...model.Entity) {
	if len(entities) == 0 {
		return
	}
	if !f.queue.Enqueue(group(entities)...) {
		slog.Debug("forwarder stopped, record left for resend", "count", len(entities))
	}
}

// Resend enqueues every locally unsynced shop, product, transaction and
// daily report. An unsynced transaction goes out with all of its items.
// Returns the number of records enqueued.
func (f *Forwarder) Resend(ctx context.Context, src Source) (int, error) {
	n := 0
	for _, c := range resendOrder {
		pending, err := src.PendingSync(ctx, c)
		if err != nil {
			return n, fmt.Errorf("resend %s: %w", c, err)
		}
		for _, e := range pending {
			batch := []model.Entity{e}
			if tr, ok := e.(model.Transaction); ok {
				lines, err := src.TransactionItems(ctx, tr.ID)
				if err != nil {
					return n, fmt.Errorf("resend transaction %s: %w", tr.ID, err)
				}
				for _, item := range lines {
					batch = append(batch, item)
				}
			}
			f.Forward(batch...)
			n += len(batch)
		}
	}

	slog.Info("resend queued unsynced records", "count", n)
	return n, nil
}

// Run delivers queued units until ctx is cancelled or Stop is called.
//
// Delivery errors never stop the loop. Returns ctx.Err() on cancellation and
// nil after Stop once the queue is drained.
func (f *Forwarder) Run(ctx context.Context) error {
	slog.Info("forwarder starting")

	for {
		u, ok := f.queue.TryDequeue()
		if ok {
			f.deliver(ctx, u)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("forwarder stopping: context cancelled", "pending", f.queue.Len())
			f.queue.Close()
			return ctx.Err()

		case _, open := <-f.queue.Wait():
			// The signal channel closes with the queue; a closed, empty queue ends the loop.
			if !open && f.queue.Len() == 0 {
				slog.Info("forwarder stopping: queue closed")
				return nil
			}
		}
	}
}

// Drain delivers everything currently queued and returns the outcome counts
// of this drain. Used by one-shot commands that have no background worker.
func (f *Forwarder) Drain(ctx context.Context) (Stats, error) {
	before := f.Stats()
	for {
		if err := ctx.Err(); err != nil {
			return f.Stats().sub(before), err
		}
		u, ok := f.queue.TryDequeue()
		if !ok {
			return f.Stats().sub(before), nil
		}
		f.deliver(ctx, u)
	}
}

// Stop closes the queue. Run delivers what is left and returns.
func (f *Forwarder) Stop() {
	f.queue.Close()
}

// Pending returns the number of queued units.
func (f *Forwarder) Pending() int {
	return f.queue.Len()
}

// Stats returns the cumulative outcome counts.
func (f *Forwarder) Stats() Stats {
	return Stats{
		Delivered: int(f.delivered.Load()),
		Failed:    int(f.failed.Load()),
	}
}

func (s Stats) sub(o Stats) Stats {
	return Stats{Delivered: s.Delivered - o.Delivered, Failed: s.Failed - o.Failed}
}

// deliver sends the records of u in order through the breaker. The head is
// marked synced only after the last record lands, so a sale whose items did
// not all arrive stays pending and Resend sends it whole again. Failures are
// logged and counted, never returned.
func (f *Forwarder) deliver(ctx context.Context, u unit) {
	head := u.head()
	for i, e := range u {
		if err := f.send(ctx, e); err != nil {
			f.delivered.Add(int64(i))
			f.failed.Add(int64(len(u) - i))
			slog.Warn("sync delivery failed",
				"collection", e.Collection(),
				"id", e.Key(),
				"unit", head.Key(),
				"error", err)
			return
		}
	}

	if head.Collection().HasSyncFlag() && f.marker != nil {
		if err := f.marker.MarkSynced(ctx, head.Collection(), head.Key()); err != nil {
			f.delivered.Add(int64(len(u) - 1))
			f.failed.Add(1)
			slog.Warn("mark synced failed",
				"collection", head.Collection(),
				"id", head.Key(),
				"error", err)
			return
		}
	}

	f.delivered.Add(int64(len(u)))
	slog.Debug("record synced", "collection", head.Collection(), "id", head.Key(), "records", len(u))
}

func (f *Forwarder) send(ctx context.Context, e model.Entity) error {
	_, err := f.breaker.Execute(func() (struct{}, error) {
		dctx, cancel := context.WithTimeout(ctx, f.timeout)
		defer cancel()
		return struct{}{}, f.remote.InsertIfAbsent(dctx, e)
	})
	return err
}
