package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/kassa/internal/model"
)

var testNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestShop inserts a shop with minimal required fields.
func createTestShop(t *testing.T, s *Store, id string) model.Shop {
	t.Helper()
	shop := model.Shop{
		ID:        id,
		OwnerID:   "owner-1",
		Name:      "Cafe",
		Currency:  "UZS",
		Language:  "uz",
		CreatedAt: testNow,
	}
	if err := s.InsertShop(context.Background(), shop); err != nil {
		t.Fatalf("InsertShop() failed: %v", err)
	}
	return shop
}

// createTestProduct inserts a product in a shop.
func createTestProduct(t *testing.T, s *Store, shopID, id, barcode, name string, price model.Money) model.Product {
	t.Helper()
	p := model.Product{
		ID:        id,
		ShopID:    shopID,
		Barcode:   barcode,
		Name:      name,
		Price:     price,
		CreatedAt: testNow,
	}
	if err := s.InsertProduct(context.Background(), p); err != nil {
		t.Fatalf("InsertProduct() failed: %v", err)
	}
	return p
}

// createTestTransaction builds a transaction with minimal required fields.
func createTestTransaction(id, shopID, date string, total model.Money, payment model.PaymentType) model.Transaction {
	return model.Transaction{
		ID:           id,
		ShopID:       shopID,
		BusinessDate: date,
		Total:        total,
		PaymentType:  payment,
		CreatedAt:    testNow,
	}
}

// createTestItem builds a transaction item.
func createTestItem(id, txID, name string, price model.Money, qty, pos int) model.TransactionItem {
	return model.TransactionItem{
		ID:            id,
		TransactionID: txID,
		ProductName:   name,
		Price:         price,
		Quantity:      qty,
		Position:      pos,
	}
}

// commitSale writes a transaction and its items in one batch.
func commitSale(t *testing.T, s *Store, tr model.Transaction, items ...model.TransactionItem) {
	t.Helper()
	err := s.RunAtomic(context.Background(), func(ctx context.Context, tx *Tx) error {
		if err := tx.InsertTransaction(ctx, tr); err != nil {
			return err
		}
		for _, item := range items {
			if err := tx.InsertTransactionItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunAtomic() failed: %v", err)
	}
}
