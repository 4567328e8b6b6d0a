package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kassa/internal/model"
	"github.com/roach88/kassa/internal/remote"
)

func TestInsertSQL(t *testing.T) {
	cols, err := remote.Row(model.TransactionItem{
		ID: "item-1", TransactionID: "tx-1", ProductName: "Latte", Price: 10000, Quantity: 2, Position: 0,
	})
	require.NoError(t, err)

	query, args := insertSQL("transaction_items", cols)
	assert.Equal(t,
		`INSERT INTO "transaction_items" ("id", "transaction_id", "product_name", "price", "quantity", "position") `+
			`VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
		query)
	assert.Equal(t, []any{"item-1", "tx-1", "Latte", int64(10000), 2, 0}, args)
}

func TestInsertSQL_QuotesIdentifiers(t *testing.T) {
	query, _ := insertSQL(`we"ird`, []remote.Column{{Name: "id", Value: "x"}})
	assert.Contains(t, query, `"we""ird"`)
}

func TestOpen_NoNetworkNeeded(t *testing.T) {
	m, err := Open("postgres://kassa@127.0.0.1:1/kassa?sslmode=disable&connect_timeout=1")
	require.NoError(t, err)
	defer m.Close()

	// Delivery fails, but only when attempted.
	err = m.InsertIfAbsent(context.Background(), model.Shop{ID: "shop-1"})
	assert.Error(t, err)
}

func TestOpen_BadDSN(t *testing.T) {
	_, err := Open("postgres://%zz")
	assert.Error(t, err)
}

func TestSchemaEmbedded(t *testing.T) {
	for _, table := range []string{"shops", "products", "transactions", "transaction_items", "daily_reports"} {
		assert.Contains(t, schemaSQL, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}
