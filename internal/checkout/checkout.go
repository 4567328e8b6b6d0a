// Package checkout commits a cart as an immutable sale.
//
// A sale is one Transaction plus one TransactionItem per cart line, written in
// a single atomic batch. Either every record lands or none does; on failure
// the cart is left exactly as it was so the cashier can retry.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/kassa/internal/cart"
	"github.com/roach88/kassa/internal/clock"
	"github.com/roach88/kassa/internal/forward"
	"github.com/roach88/kassa/internal/ids"
	"github.com/roach88/kassa/internal/model"
	"github.com/roach88/kassa/internal/store"
)

var (
	// ErrNoActiveShop is returned when checkout runs before onboarding.
	ErrNoActiveShop = errors.New("checkout: no active shop")

	// ErrEmptyCart is returned for a cart with no lines.
	ErrEmptyCart = errors.New("checkout: cart is empty")

	// ErrInvalidPayment is returned for a payment tag other than cash or card.
	ErrInvalidPayment = errors.New("checkout: invalid payment type")
)

// Sale is a committed transaction with its items in cart order.
type Sale struct {
	Transaction model.Transaction
	Items       []model.TransactionItem
}

// Service commits carts.
type Service struct {
	store *store.Store
	ids   ids.Generator
	clock clock.Clock
	loc   *time.Location
	sink  forward.Sink
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used to stamp sales. Default: clock.System.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithIDs sets the identity generator. Default: ids.UUIDv7.
func WithIDs(g ids.Generator) Option {
	return func(s *Service) { s.ids = g }
}

// WithLocation sets the location that defines the business date.
// Default: time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithSink sets where committed records are forwarded. Default: forward.Discard.
func WithSink(sink forward.Sink) Option {
	return func(s *Service) { s.sink = sink }
}

// New creates a checkout service over st.
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

// Checkout commits the cart as a sale paid by payment.
//
// Preconditions are checked before anything is written. The business date is
// fixed here from the commit instant and never recomputed. On success the
// cart is cleared and the records are handed to the forwarder; forwarding
// cannot fail the sale.
func (s *Service) Checkout(ctx context.Context, shop *model.Shop, c *cart.Cart, payment model.PaymentType) (Sale, error) {
	if shop == nil {
		return Sale{}, ErrNoActiveShop
	}
	if c == nil || c.Empty() {
		return Sale{}, ErrEmptyCart
	}
	if !payment.Valid() {
		return Sale{}, fmt.Errorf("%w: %q", ErrInvalidPayment, payment)
	}

	now := s.clock.Now().Truncate(time.Millisecond)
	sale := s.build(shop, c.Lines(), payment, now)

	err := s.store.RunAtomic(ctx, func(ctx context.Context, tx *store.Tx) error {
		if err := tx.InsertTransaction(ctx, sale.Transaction); err != nil {
			return err
		}
		for _, item := range sale.Items {
			if err := tx.InsertTransactionItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Sale{}, fmt.Errorf("checkout: %w", err)
	}

	c.Clear()

	slog.Info("sale committed",
		"transaction_id", sale.Transaction.ID,
		"business_date", sale.Transaction.BusinessDate,
		"total", sale.Transaction.Total,
		"payment", sale.Transaction.PaymentType,
		"items", len(sale.Items))

	entities := make([]model.Entity, 0, len(sale.Items)+1)
	entities = append(entities, sale.Transaction)
	for _, item := range sale.Items {
		entities = append(entities, item)
	}
	s.sink.Forward(entities...)

	return sale, nil
}

// build copies the cart lines into the records of a sale.
// Names and prices are copied by value so later catalog edits leave history alone.
func (s *Service) build(shop *model.Shop, lines []cart.Line, payment model.PaymentType, now time.Time) Sale {
	tr := model.Transaction{
		ID:           s.ids.New(),
		ShopID:       shop.ID,
		BusinessDate: clock.BusinessDate(now, s.loc),
		PaymentType:  payment,
		CreatedAt:    now,
	}

	items := make([]model.TransactionItem, 0, len(lines))
	for i, l := range lines {
		item := model.TransactionItem{
			ID:            s.ids.New(),
			TransactionID: tr.ID,
			ProductName:   l.Product.Name,
			Price:         l.Product.Price,
			Quantity:      l.Quantity,
			Position:      i,
		}
		tr.Total += item.Subtotal()
		items = append(items, item)
	}

	return Sale{Transaction: tr, Items: items}
}
