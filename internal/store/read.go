package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/kassa/internal/model"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const shopColumns = `id, owner_id, name, currency, language, created_at, synced`

func scanShop(row rowScanner) (model.Shop, error) {
	var shop model.Shop
	var createdAt string
	if err := row.Scan(&shop.ID, &shop.OwnerID, &shop.Name, &shop.Currency, &shop.Language, &createdAt, &shop.Synced); err != nil {
		return model.Shop{}, err
	}
	t, err := unmarshalTime(createdAt)
	if err != nil {
		return model.Shop{}, err
	}
	shop.CreatedAt = t
	return shop, nil
}

const productColumns = `id, shop_id, barcode, name, price, created_at, synced`

func scanProduct(row rowScanner) (model.Product, error) {
	var p model.Product
	var price int64
	var createdAt string
	if err := row.Scan(&p.ID, &p.ShopID, &p.Barcode, &p.Name, &price, &createdAt, &p.Synced); err != nil {
		return model.Product{}, err
	}
	t, err := unmarshalTime(createdAt)
	if err != nil {
		return model.Product{}, err
	}
	p.Price = model.Money(price)
	p.CreatedAt = t
	return p, nil
}

const transactionColumns = `id, shop_id, business_date, total, payment_type, created_at, synced`

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var tr model.Transaction
	var total int64
	var payment, createdAt string
	if err := row.Scan(&tr.ID, &tr.ShopID, &tr.BusinessDate, &total, &payment, &createdAt, &tr.Synced); err != nil {
		return model.Transaction{}, err
	}
	t, err := unmarshalTime(createdAt)
	if err != nil {
		return model.Transaction{}, err
	}
	tr.Total = model.Money(total)
	tr.PaymentType = model.PaymentType(payment)
	tr.CreatedAt = t
	return tr, nil
}

const itemColumns = `id, transaction_id, product_name, price, quantity, position`

func scanItem(row rowScanner) (model.TransactionItem, error) {
	var item model.TransactionItem
	var price int64
	if err := row.Scan(&item.ID, &item.TransactionID, &item.ProductName, &price, &item.Quantity, &item.Position); err != nil {
		return model.TransactionItem{}, err
	}
	item.Price = model.Money(price)
	return item, nil
}

const reportColumns = `id, shop_id, business_date, total_sales, cash_total, card_total, transaction_count, closed_at, synced`

func scanReport(row rowScanner) (model.DailyReport, error) {
	var r model.DailyReport
	var total, cash, card int64
	var closedAt string
	if err := row.Scan(&r.ID, &r.ShopID, &r.BusinessDate, &total, &cash, &card, &r.TransactionCount, &closedAt, &r.Synced); err != nil {
		return model.DailyReport{}, err
	}
	t, err := unmarshalTime(closedAt)
	if err != nil {
		return model.DailyReport{}, err
	}
	r.TotalSales = model.Money(total)
	r.CashTotal = model.Money(cash)
	r.CardTotal = model.Money(card)
	r.ClosedAt = t
	return r, nil
}

// queryList runs a list query and scans every row.
// Returns an empty slice (not nil) if no rows match.
func queryList[T any](ctx context.Context, db *sql.DB, op string, scan func(rowScanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, fmt.Errorf("query: %w", err))
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, classify(op, fmt.Errorf("scan: %w", err))
		}
		out = append(out, v)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(op, fmt.Errorf("iterate: %w", err))
	}

	return out, nil
}

// Shops returns all shops ordered by creation.
// A device holds at most one at steady state.
func (s *Store) Shops(ctx context.Context) ([]model.Shop, error) {
	return queryList(ctx, s.db, "read shops", scanShop, `
		SELECT `+shopColumns+`
		FROM shops
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`)
}

// Shop retrieves a shop by id.
// Returns a NOT_FOUND error if absent.
func (s *Store) Shop(ctx context.Context, id string) (model.Shop, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+shopColumns+` FROM shops WHERE id = ?`, id)
	shop, err := scanShop(row)
	if err != nil {
		return model.Shop{}, classify("read shop", err)
	}
	return shop, nil
}

// Products returns the shop's whole catalog ordered by name.
func (s *Store) Products(ctx context.Context, shopID string) ([]model.Product, error) {
	return queryList(ctx, s.db, "read products", scanProduct, `
		SELECT `+productColumns+`
		FROM products
		WHERE shop_id = ?
		ORDER BY name_key COLLATE BINARY ASC, id COLLATE BINARY ASC
	`, shopID)
}

// Product retrieves a product by id.
// Returns a NOT_FOUND error if absent.
func (s *Store) Product(ctx context.Context, id string) (model.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err != nil {
		return model.Product{}, classify("read product", err)
	}
	return p, nil
}

// ProductByBarcode retrieves the product with an exact barcode in a shop.
// Returns a NOT_FOUND error if absent. An empty barcode never matches.
func (s *Store) ProductByBarcode(ctx context.Context, shopID, barcode string) (model.Product, error) {
	if barcode == "" {
		return model.Product{}, &Error{Code: ErrCodeNotFound, Op: "read product by barcode", Err: fmt.Errorf("empty barcode")}
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE shop_id = ? AND barcode = ?
	`, shopID, barcode)
	p, err := scanProduct(row)
	if err != nil {
		return model.Product{}, classify("read product by barcode", err)
	}
	return p, nil
}

// SearchProducts returns products whose name starts with term
// (case-insensitive, Unicode aware) or whose barcode equals term exactly.
// An empty term returns the whole catalog.
//
// The prefix match is a range scan over name_key so it can use the
// (shop_id, name_key) index.
func (s *Store) SearchProducts(ctx context.Context, shopID, term string) ([]model.Product, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.Products(ctx, shopID)
	}
	key := NameKey(term)
	return queryList(ctx, s.db, "search products", scanProduct, `
		SELECT `+productColumns+`
		FROM products
		WHERE shop_id = ?
		  AND ((name_key >= ? AND name_key < ?) OR barcode = ?)
		ORDER BY name_key COLLATE BINARY ASC, id COLLATE BINARY ASC
	`, shopID, key, prefixUpperBound(key), term)
}

// Transactions returns every transaction of a shop, oldest first.
func (s *Store) Transactions(ctx context.Context, shopID string) ([]model.Transaction, error) {
	return queryList(ctx, s.db, "read transactions", scanTransaction, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE shop_id = ?
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`, shopID)
}

// Transaction retrieves a transaction by id.
// Returns a NOT_FOUND error if absent.
func (s *Store) Transaction(ctx context.Context, id string) (model.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tr, err := scanTransaction(row)
	if err != nil {
		return model.Transaction{}, classify("read transaction", err)
	}
	return tr, nil
}

// TransactionsByDate returns a shop's transactions for one business date,
// oldest first.
func (s *Store) TransactionsByDate(ctx context.Context, shopID, businessDate string) ([]model.Transaction, error) {
	return queryList(ctx, s.db, "read transactions by date", scanTransaction, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE shop_id = ? AND business_date = ?
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`, shopID, businessDate)
}

// TransactionsByPayment returns a shop's transactions with a payment tag,
// oldest first.
func (s *Store) TransactionsByPayment(ctx context.Context, shopID string, payment model.PaymentType) ([]model.Transaction, error) {
	return queryList(ctx, s.db, "read transactions by payment", scanTransaction, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE shop_id = ? AND payment_type = ?
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`, shopID, string(payment))
}

// TransactionItems returns the lines of a transaction in cart order.
func (s *Store) TransactionItems(ctx context.Context, transactionID string) ([]model.TransactionItem, error) {
	return queryList(ctx, s.db, "read transaction items", scanItem, `
		SELECT `+itemColumns+`
		FROM transaction_items
		WHERE transaction_id = ?
		ORDER BY position ASC, id COLLATE BINARY ASC
	`, transactionID)
}

// DailyReports returns a shop's closed days, newest business date first.
func (s *Store) DailyReports(ctx context.Context, shopID string) ([]model.DailyReport, error) {
	return queryList(ctx, s.db, "read daily reports", scanReport, `
		SELECT `+reportColumns+`
		FROM daily_reports
		WHERE shop_id = ?
		ORDER BY business_date DESC, id COLLATE BINARY ASC
	`, shopID)
}

// DailyReportByDate retrieves the report of one business date.
// Returns a NOT_FOUND error if the day has not been closed.
func (s *Store) DailyReportByDate(ctx context.Context, shopID, businessDate string) (model.DailyReport, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+reportColumns+`
		FROM daily_reports
		WHERE shop_id = ? AND business_date = ?
	`, shopID, businessDate)
	r, err := scanReport(row)
	if err != nil {
		return model.DailyReport{}, classify("read daily report", err)
	}
	return r, nil
}

// PendingSync returns the records of a collection whose sync flag is unset,
// oldest first. Transaction items carry no flag; they travel with their
// transaction.
func (s *Store) PendingSync(ctx context.Context, c model.Collection) ([]model.Entity, error) {
	switch c {
	case model.CollectionShops:
		shops, err := queryList(ctx, s.db, "read pending shops", scanShop, `
			SELECT `+shopColumns+` FROM shops WHERE synced = 0
			ORDER BY created_at ASC, id COLLATE BINARY ASC
		`)
		return toEntities(shops), err
	case model.CollectionProducts:
		products, err := queryList(ctx, s.db, "read pending products", scanProduct, `
			SELECT `+productColumns+` FROM products WHERE synced = 0
			ORDER BY created_at ASC, id COLLATE BINARY ASC
		`)
		return toEntities(products), err
	case model.CollectionTransactions:
		txs, err := queryList(ctx, s.db, "read pending transactions", scanTransaction, `
			SELECT `+transactionColumns+` FROM transactions WHERE synced = 0
			ORDER BY created_at ASC, id COLLATE BINARY ASC
		`)
		return toEntities(txs), err
	case model.CollectionDailyReports:
		reports, err := queryList(ctx, s.db, "read pending reports", scanReport, `
			SELECT `+reportColumns+` FROM daily_reports WHERE synced = 0
			ORDER BY closed_at ASC, id COLLATE BINARY ASC
		`)
		return toEntities(reports), err
	default:
		return nil, fmt.Errorf("pending sync: collection %q has no sync flag", c)
	}
}

func toEntities[T model.Entity](in []T) []model.Entity {
	out := make([]model.Entity, 0, len(in))
	for _, v := range in {
		out = append(out, v)
	}
	return out
}
