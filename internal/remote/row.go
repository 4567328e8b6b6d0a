package remote

import (
	"fmt"

	"github.com/roach88/kassa/internal/model"
)

// Column is one named value of a remote row.
type Column struct {
	Name  string
	Value any
}

// Row flattens an entity into its remote columns, in table order.
// Timestamps use the millisecond UTC wire layout. The local sync flag is
// never sent; the remote copy is the synced state.
func Row(e model.Entity) ([]Column, error) {
	switch v := e.(type) {
	case model.Shop:
		return []Column{
			{"id", v.ID},
			{"owner_id", v.OwnerID},
			{"name", v.Name},
			{"currency", v.Currency},
			{"language", v.Language},
			{"created_at", model.FormatTime(v.CreatedAt)},
		}, nil
	case model.Product:
		return []Column{
			{"id", v.ID},
			{"shop_id", v.ShopID},
			{"barcode", v.Barcode},
			{"name", v.Name},
			{"price", int64(v.Price)},
			{"created_at", model.FormatTime(v.CreatedAt)},
		}, nil
	case model.Transaction:
		return []Column{
			{"id", v.ID},
			{"shop_id", v.ShopID},
			{"business_date", v.BusinessDate},
			{"total", int64(v.Total)},
			{"payment_type", string(v.PaymentType)},
			{"created_at", model.FormatTime(v.CreatedAt)},
		}, nil
	case model.TransactionItem:
		return []Column{
			{"id", v.ID},
			{"transaction_id", v.TransactionID},
			{"product_name", v.ProductName},
			{"price", int64(v.Price)},
			{"quantity", v.Quantity},
			{"position", v.Position},
		}, nil
	case model.DailyReport:
		return []Column{
			{"id", v.ID},
			{"shop_id", v.ShopID},
			{"business_date", v.BusinessDate},
			{"total_sales", int64(v.TotalSales)},
			{"cash_total", int64(v.CashTotal)},
			{"card_total", int64(v.CardTotal)},
			{"transaction_count", v.TransactionCount},
			{"closed_at", model.FormatTime(v.ClosedAt)},
		}, nil
	default:
		return nil, fmt.Errorf("remote: unsupported record %T", e)
	}
}
