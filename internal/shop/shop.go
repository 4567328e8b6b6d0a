// Package shop onboards the device's shop and edits its settings.
//
// A device holds exactly one shop. The shop returned by Active is the
// explicit context passed to catalog, checkout and daybook calls.
package shop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"

	"github.com/roach88/kassa/internal/clock"
	"github.com/roach88/kassa/internal/forward"
	"github.com/roach88/kassa/internal/ids"
	"github.com/roach88/kassa/internal/model"
	"github.com/roach88/kassa/internal/store"
)

var (
	// ErrNotOnboarded is returned when the store holds no shop yet.
	ErrNotOnboarded = errors.New("shop: not onboarded")

	// ErrAlreadyOnboarded is returned by a second Onboard on the same device.
	ErrAlreadyOnboarded = errors.New("shop: already onboarded")

	// ErrInvalidShop is returned for a blank name, an unknown currency or
	// a malformed language tag.
	ErrInvalidShop = errors.New("shop: invalid shop")
)

// Input is the onboarding form.
type Input struct {
	OwnerID  string
	Name     string
	Currency string
	Language string
}

// Settings is a partial settings edit. Nil fields are left alone.
type Settings struct {
	Name     *string
	Currency *string
	Language *string
}

// Service owns the shop record.
type Service struct {
	store *store.Store
	ids   ids.Generator
	clock clock.Clock
	sink  forward.Sink
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for CreatedAt. Default: clock.System.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithIDs sets the shop identity generator. Default: ids.UUIDv7.
func WithIDs(g ids.Generator) Option {
	return func(s *Service) { s.ids = g }
}

// WithSink sets where the shop record is forwarded. Default: forward.Discard.
func WithSink(sink forward.Sink) Option {
	return func(s *Service) { s.sink = sink }
}

// New creates a shop service over st.
func New(st *store.Store, opts ...Option) *Service {
	s := &Service{
		store: st,
		ids:   ids.UUIDv7{},
		clock: clock.System{},
		sink:  forward.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Onboard creates the shop. The currency is normalized to its ISO 4217 code
// and the language to its canonical BCP 47 form.
func (s *Service) Onboard(ctx context.Context, in Input) (*model.Shop, error) {
	name, cur, lang, err := normalize(in.Name, in.Currency, in.Language)
	if err != nil {
		return nil, err
	}

	shop := model.Shop{
		ID:        s.ids.New(),
		OwnerID:   strings.TrimSpace(in.OwnerID),
		Name:      name,
		Currency:  cur,
		Language:  lang,
		CreatedAt: s.clock.Now().Truncate(time.Millisecond),
	}

	err = s.store.RunAtomic(ctx, func(ctx context.Context, tx *store.Tx) error {
		n, err := tx.CountShops(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyOnboarded
		}
		return tx.InsertShop(ctx, shop)
	})
	if errors.Is(err, ErrAlreadyOnboarded) {
		return nil, ErrAlreadyOnboarded
	}
	if err != nil {
		return nil, fmt.Errorf("onboard: %w", err)
	}

	slog.Info("shop onboarded", "shop_id", shop.ID, "currency", shop.Currency, "language", shop.Language)
	s.sink.Forward(shop)
	return &shop, nil
}

// Active returns the device's shop.
func (s *Service) Active(ctx context.Context) (*model.Shop, error) {
	shops, err := s.store.Shops(ctx)
	if err != nil {
		return nil, fmt.Errorf("active shop: %w", err)
	}
	if len(shops) == 0 {
		return nil, ErrNotOnboarded
	}
	return &shops[0], nil
}

// UpdateSettings applies a partial edit to shop and returns the stored result.
// An empty edit returns the shop unchanged.
func (s *Service) UpdateSettings(ctx context.Context, shop *model.Shop, set Settings) (*model.Shop, error) {
	if shop == nil {
		return nil, ErrNotOnboarded
	}

	name, cur, lang := shop.Name, shop.Currency, shop.Language
	if set.Name != nil {
		name = *set.Name
	}
	if set.Currency != nil {
		cur = *set.Currency
	}
	if set.Language != nil {
		lang = *set.Language
	}
	name, cur, lang, err := normalize(name, cur, lang)
	if err != nil {
		return nil, err
	}

	var patch store.ShopPatch
	if set.Name != nil {
		patch.Name = &name
	}
	if set.Currency != nil {
		patch.Currency = &cur
	}
	if set.Language != nil {
		patch.Language = &lang
	}
	if err := s.store.UpdateShop(ctx, shop.ID, patch); err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}

	updated, err := s.store.Shop(ctx, shop.ID)
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	slog.Debug("shop settings updated", "shop_id", updated.ID)
	return &updated, nil
}

func normalize(name, cur, lang string) (string, string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", "", fmt.Errorf("%w: name is required", ErrInvalidShop)
	}

	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(cur)))
	if err != nil {
		return "", "", "", fmt.Errorf("%w: currency %q: %v", ErrInvalidShop, cur, err)
	}

	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return "", "", "", fmt.Errorf("%w: language %q: %v", ErrInvalidShop, lang, err)
	}

	return name, unit.String(), tag.String(), nil
}
