// Package catalog manages the shop's products: manual entry, ad-hoc entry
// during a sale, edits, search and bulk import.
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/kassa/internal/clock"
	"github.com/roach88/kassa/internal/forward"
	"github.com/roach88/kassa/internal/ids"
	"github.com/roach88/kassa/internal/model"
	"github.com/roach88/kassa/internal/schema"
	"github.com/roach88/kassa/internal/store"
)

var (
	// ErrNoActiveShop is returned when called before onboarding.
	ErrNoActiveShop = errors.New("catalog: no active shop")

	// ErrInvalidProduct is returned for a blank name or a negative price.
	ErrInvalidProduct = errors.New("catalog: invalid product")

	// ErrUnknownBarcode is returned by Lookup when no product has the barcode.
	ErrUnknownBarcode = errors.New("catalog: unknown barcode")
)

// Input is a new product.
type Input struct {
	Barcode string      `yaml:"barcode"`
	Name    string      `yaml:"name"`
	Price   model.Money `yaml:"price"`
}

// Patch is a partial product edit. Nil fields are left alone.
type Patch struct {
	Barcode *string
	Name    *string
	Price   *model.Money
}

// Service manages products of a shop.
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

// WithIDs sets the product identity generator. Default: ids.UUIDv7.
func WithIDs(g ids.Generator) Option {
	return func(s *Service) { s.ids = g }
}

// WithSink sets where new products are forwarded. Default: forward.Discard.
func WithSink(sink forward.Sink) Option {
	return func(s *Service) { s.sink = sink }
}

// New creates a catalog over st.
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

// Add creates a product in shop.
// A barcode already used in the shop surfaces as a store DUPLICATE_KEY error.
func (s *Service) Add(ctx context.Context, shop *model.Shop, in Input) (model.Product, error) {
	if shop == nil {
		return model.Product{}, ErrNoActiveShop
	}
	p, err := s.product(shop, in)
	if err != nil {
		return model.Product{}, err
	}
	if err := s.store.InsertProduct(ctx, p); err != nil {
		return model.Product{}, fmt.Errorf("add product: %w", err)
	}

	slog.Debug("product added", "product_id", p.ID, "barcode", p.Barcode)
	s.sink.Forward(p)
	return p, nil
}

// AddUnknown creates a product for a barcode scanned during a sale.
// A blank name defaults to "Product <barcode>".
func (s *Service) AddUnknown(ctx context.Context, shop *model.Shop, barcode, name string, price model.Money) (model.Product, error) {
	if strings.TrimSpace(name) == "" {
		name = "Product " + strings.TrimSpace(barcode)
	}
	return s.Add(ctx, shop, Input{Barcode: barcode, Name: name, Price: price})
}

// Edit applies a partial edit to the product id and returns the stored result.
func (s *Service) Edit(ctx context.Context, id string, p Patch) (model.Product, error) {
	var patch store.ProductPatch
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return model.Product{}, fmt.Errorf("%w: name is required", ErrInvalidProduct)
		}
		patch.Name = &name
	}
	if p.Price != nil {
		if *p.Price < 0 {
			return model.Product{}, fmt.Errorf("%w: negative price %d", ErrInvalidProduct, *p.Price)
		}
		patch.Price = p.Price
	}
	if p.Barcode != nil {
		barcode := strings.TrimSpace(*p.Barcode)
		patch.Barcode = &barcode
	}

	if err := s.store.UpdateProduct(ctx, id, patch); err != nil {
		return model.Product{}, fmt.Errorf("edit product: %w", err)
	}
	updated, err := s.store.Product(ctx, id)
	if err != nil {
		return model.Product{}, fmt.Errorf("edit product: %w", err)
	}
	return updated, nil
}

// Search returns products whose name starts with term, ignoring case, plus
// an exact barcode match. A blank term lists the whole catalog.
func (s *Service) Search(ctx context.Context, shop *model.Shop, term string) ([]model.Product, error) {
	if shop == nil {
		return nil, ErrNoActiveShop
	}
	found, err := s.store.SearchProducts(ctx, shop.ID, term)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return found, nil
}

// Lookup finds the product with barcode.
func (s *Service) Lookup(ctx context.Context, shop *model.Shop, barcode string) (model.Product, error) {
	if shop == nil {
		return model.Product{}, ErrNoActiveShop
	}
	p, err := s.store.ProductByBarcode(ctx, shop.ID, strings.TrimSpace(barcode))
	if store.IsNotFound(err) {
		return model.Product{}, fmt.Errorf("%w: %q", ErrUnknownBarcode, barcode)
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("lookup barcode: %w", err)
	}
	return p, nil
}

// Watch calls fn with the search results for term now and after every
// catalog change. The returned function stops the watch.
func (s *Service) Watch(ctx context.Context, shop *model.Shop, term string, fn func([]model.Product)) (func(), error) {
	if shop == nil {
		return nil, ErrNoActiveShop
	}
	cancel := s.store.Subscribe(ctx, func(ctx context.Context) {
		found, err := s.store.SearchProducts(ctx, shop.ID, term)
		if err != nil {
			slog.Warn("product list refresh failed", "shop_id", shop.ID, "error", err)
			return
		}
		fn(found)
	}, model.CollectionProducts)
	return cancel, nil
}

type importDoc struct {
	Products []Input `yaml:"products"`
}

// Import bulk-loads a YAML catalog of the form
//
//	products:
//	  - barcode: "4780000000017"
//	    name: Latte
//	    price: 10000
//
// The document is checked against the #Catalog schema and inserted in one
// atomic batch: a single bad or duplicate row leaves the catalog unchanged.
func (s *Service) Import(ctx context.Context, shop *model.Shop, data []byte) ([]model.Product, error) {
	if shop == nil {
		return nil, ErrNoActiveShop
	}
	if err := schema.ValidateYAML(schema.Catalog, data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProduct, err)
	}

	var doc importDoc
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}

	products := make([]model.Product, 0, len(doc.Products))
	for i, in := range doc.Products {
		p, err := s.product(shop, in)
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", i, err)
		}
		products = append(products, p)
	}

	err := s.store.RunAtomic(ctx, func(ctx context.Context, tx *store.Tx) error {
		for _, p := range products {
			if err := tx.InsertProduct(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import catalog: %w", err)
	}

	slog.Info("catalog imported", "shop_id", shop.ID, "products", len(products))
	entities := make([]model.Entity, len(products))
	for i, p := range products {
		entities[i] = p
	}
	s.sink.Forward(entities...)
	return products, nil
}

func (s *Service) product(shop *model.Shop, in Input) (model.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Product{}, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if in.Price < 0 {
		return model.Product{}, fmt.Errorf("%w: negative price %d", ErrInvalidProduct, in.Price)
	}
	return model.Product{
		ID:        s.ids.New(),
		ShopID:    shop.ID,
		Barcode:   strings.TrimSpace(in.Barcode),
		Name:      name,
		Price:     in.Price,
		CreatedAt: s.clock.Now().Truncate(time.Millisecond),
	}, nil
}
