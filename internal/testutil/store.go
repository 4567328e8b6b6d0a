package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/kassa/internal/model"
	"github.com/roach88/kassa/internal/store"
)

// Now is the instant shared by service tests: 2026-10-15 09:30 UTC.
var Now = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

// OpenStore opens a fresh file-backed store in a temp dir and closes it
// when the test ends.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "kassa.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// SeedShop inserts the "Cafe" shop (UZS, uz) and returns it.
func SeedShop(t testing.TB, s *store.Store, id string) *model.Shop {
	t.Helper()
	shop := model.Shop{
		ID:        id,
		OwnerID:   "owner-1",
		Name:      "Cafe",
		Currency:  "UZS",
		Language:  "uz",
		CreatedAt: Now,
	}
	require.NoError(t, s.InsertShop(context.Background(), shop))
	return &shop
}

// SeedProduct inserts a product into a shop and returns it.
func SeedProduct(t testing.TB, s *store.Store, shopID, id, barcode, name string, price model.Money) model.Product {
	t.Helper()
	p := model.Product{
		ID:        id,
		ShopID:    shopID,
		Barcode:   barcode,
		Name:      name,
		Price:     price,
		CreatedAt: Now,
	}
	require.NoError(t, s.InsertProduct(context.Background(), p))
	return p
}
