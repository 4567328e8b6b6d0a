// Package daybook computes same-day sales statistics and closes business days.
//
// Stats are always derived from the committed transactions of one business
// date; nothing is cached between calls. Closing a day freezes a given set
// of stats into an immutable DailyReport. It does not touch transactions.
package daybook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/kassa/internal/clock"
	"github.com/roach88/kassa/internal/forward"
	"github.com/roach88/kassa/internal/ids"
	"github.com/roach88/kassa/internal/model"
	"github.com/roach88/kassa/internal/store"
)

var (
	// ErrNoActiveShop is returned when called before onboarding.
	ErrNoActiveShop = errors.New("daybook: no active shop")

	// ErrInvalidDate is returned for a business date not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("daybook: invalid business date")

	// ErrDayClosed is returned when a report already exists for the date.
	ErrDayClosed = errors.New("daybook: day already closed")
)

// Stats are the running totals of one business date.
type Stats struct {
	Total     model.Money `json:"total"`
	Count     int         `json:"count"`
	CashTotal model.Money `json:"cash_total"`
	CardTotal model.Money `json:"card_total"`
}

// Fold sums transactions in one pass with exact integer arithmetic.
func Fold(txs []model.Transaction) Stats {
	var st Stats
	for _, tr := range txs {
		st.Total += tr.Total
		st.Count++
		switch tr.PaymentType {
		case model.PaymentCash:
			st.CashTotal += tr.Total
		case model.PaymentCard:
			st.CardTotal += tr.Total
		}
	}
	return st
}

// Service reads and closes business days.
type Service struct {
	store *store.Store
	ids   ids.Generator
	clock clock.Clock
	loc   *time.Location
	sink  forward.Sink
	group singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for Today and ClosedAt. Default: clock.System.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithIDs sets the report identity generator. Default: ids.UUIDv7.
func WithIDs(g ids.Generator) Option {
	return func(s *Service) { s.ids = g }
}

// WithLocation sets the location that defines "today". Default: time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithSink sets where closed reports are forwarded. Default: forward.Discard.
func WithSink(sink forward.Sink) Option {
	return func(s *Service) { s.sink = sink }
}

// New creates a daybook over st.
func New(st *store.Store, opts ...Option) *Service {
	s := &Service{
		store: st,
		ids:   ids.UUIDv7{},
		clock: clock.System{},
		loc:   time.Local,
		sink:  forward.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current business date.
func (s *Service) Today() string {
	return clock.BusinessDate(s.clock.Now(), s.loc)
}

// LiveStats folds the transactions committed for date.
//
// Concurrent calls for the same shop and date share one read. The shared read
// is detached from the cancellation of whichever caller started it; each
// caller stops waiting when its own ctx is done.
func (s *Service) LiveStats(ctx context.Context, shop *model.Shop, date string) (Stats, error) {
	if shop == nil {
		return Stats{}, ErrNoActiveShop
	}
	if !clock.ValidDate(date) {
		return Stats{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	readCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(shop.ID+"/"+date, func() (any, error) {
		txs, err := s.store.TransactionsByDate(readCtx, shop.ID, date)
		if err != nil {
			return Stats{}, err
		}
		return Fold(txs), nil
	})

	select {
	case <-ctx.Done():
		return Stats{}, fmt.Errorf("live stats: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return Stats{}, fmt.Errorf("live stats: %w", res.Err)
		}
		return res.Val.(Stats), nil
	}
}

// Watch calls fn with the stats of date now and after every committed
// transaction. Read errors are logged and skipped. The returned function
// stops the watch; so does cancelling ctx.
func (s *Service) Watch(ctx context.Context, shop *model.Shop, date string, fn func(Stats)) (func(), error) {
	if shop == nil {
		return nil, ErrNoActiveShop
	}
	if !clock.ValidDate(date) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	cancel := s.store.Subscribe(ctx, func(ctx context.Context) {
		st, err := s.LiveStats(ctx, shop, date)
		if err != nil {
			slog.Warn("live stats refresh failed", "shop_id", shop.ID, "business_date", date, "error", err)
			return
		}
		fn(st)
	}, model.CollectionTransactions)
	return cancel, nil
}

// CloseDay freezes st as the report of date and forwards it.
//
// The report is written exactly as given, so the caller closes on the
// figures it showed. A second close of the same date fails with ErrDayClosed
// and leaves the first report in place.
func (s *Service) CloseDay(ctx context.Context, shop *model.Shop, date string, st Stats) (model.DailyReport, error) {
	if shop == nil {
		return model.DailyReport{}, ErrNoActiveShop
	}
	if !clock.ValidDate(date) {
		return model.DailyReport{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	report := model.DailyReport{
		ID:               s.ids.New(),
		ShopID:           shop.ID,
		BusinessDate:     date,
		TotalSales:       st.Total,
		CashTotal:        st.CashTotal,
		CardTotal:        st.CardTotal,
		TransactionCount: st.Count,
		ClosedAt:         s.clock.Now().Truncate(time.Millisecond),
	}

	if err := s.store.InsertDailyReport(ctx, report); err != nil {
		if store.IsDuplicateKey(err) {
			return model.DailyReport{}, fmt.Errorf("%w: %s", ErrDayClosed, date)
		}
		return model.DailyReport{}, fmt.Errorf("close day: %w", err)
	}

	slog.Info("day closed",
		"shop_id", shop.ID,
		"business_date", date,
		"total_sales", report.TotalSales,
		"transactions", report.TransactionCount)

	s.sink.Forward(report)
	return report, nil
}

// Reports lists the shop's closed days, newest first.
func (s *Service) Reports(ctx context.Context, shop *model.Shop) ([]model.DailyReport, error) {
	if shop == nil {
		return nil, ErrNoActiveShop
	}
	reports, err := s.store.DailyReports(ctx, shop.ID)
	if err != nil {
		return nil, fmt.Errorf("reports: %w", err)
	}
	return reports, nil
}
