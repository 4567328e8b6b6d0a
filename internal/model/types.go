package model

import (
	"fmt"
	"time"
)

// TimeLayout is the wire and storage layout for timestamps (UTC, milliseconds).
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// DateLayout is the layout of a business date.
const DateLayout = "2006-01-02"

// Money is an exact amount in the shop's currency unit.
// The supported currencies have no fractional subunit in display.
type Money int64

// Times returns m multiplied by a quantity.
func (m Money) Times(qty int) Money {
	return m * Money(qty)
}

// PaymentType tags how a transaction was paid.
type PaymentType string

const (
	PaymentCash PaymentType = "cash"
	PaymentCard PaymentType = "card"
)

// Valid reports whether p is one of the supported payment tags.
func (p PaymentType) Valid() bool {
	return p == PaymentCash || p == PaymentCard
}

// ParsePaymentType converts a tag string to a PaymentType.
func ParsePaymentType(s string) (PaymentType, error) {
	p := PaymentType(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown payment type %q: must be cash or card", s)
	}
	return p, nil
}

// Collection names a durable collection in the local store.
type Collection string

const (
	CollectionShops            Collection = "shops"
	CollectionProducts         Collection = "products"
	CollectionTransactions     Collection = "transactions"
	CollectionTransactionItems Collection = "transaction_items"
	CollectionDailyReports     Collection = "daily_reports"
)

// HasSyncFlag reports whether records in c carry a sync flag.
func (c Collection) HasSyncFlag() bool {
	switch c {
	case CollectionShops, CollectionProducts, CollectionTransactions, CollectionDailyReports:
		return true
	}
	return false
}

// Entity is a durable record addressable by collection and identity.
// Implemented by every persisted type; used by the sync forwarder.
type Entity interface {
	Collection() Collection
	Key() string
}

// Shop is the single shop configured on a device.
type Shop struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
	Synced    bool      `json:"-"`
}

func (s Shop) Collection() Collection { return CollectionShops }
func (s Shop) Key() string            { return s.ID }

// Product is a catalog entry. Barcode may be empty for manually keyed items.
type Product struct {
	ID        string    `json:"id"`
	ShopID    string    `json:"shop_id"`
	Barcode   string    `json:"barcode"`
	Name      string    `json:"name"`
	Price     Money     `json:"price"`
	CreatedAt time.Time `json:"created_at"`
	Synced    bool      `json:"-"`
}

func (p Product) Collection() Collection { return CollectionProducts }
func (p Product) Key() string            { return p.ID }

// Transaction is a committed sale. Immutable once created except for Synced.
type Transaction struct {
	ID           string      `json:"id"`
	ShopID       string      `json:"shop_id"`
	BusinessDate string      `json:"business_date"`
	Total        Money       `json:"total"`
	PaymentType  PaymentType `json:"payment_type"`
	CreatedAt    time.Time   `json:"created_at"`
	Synced       bool        `json:"-"`
}

func (t Transaction) Collection() Collection { return CollectionTransactions }
func (t Transaction) Key() string            { return t.ID }

// TransactionItem is one sold line. Name and price are captured by value
// at sale time and never follow later catalog edits.
type TransactionItem struct {
	ID            string `json:"id"`
	TransactionID string `json:"transaction_id"`
	ProductName   string `json:"product_name"`
	Price         Money  `json:"price"`
	Quantity      int    `json:"quantity"`
	Position      int    `json:"position"`
}

func (i TransactionItem) Collection() Collection { return CollectionTransactionItems }
func (i TransactionItem) Key() string            { return i.ID }

// Subtotal returns price × quantity.
func (i TransactionItem) Subtotal() Money {
	return i.Price.Times(i.Quantity)
}

// DailyReport freezes the totals of one business date at close time.
type DailyReport struct {
	ID               string    `json:"id"`
	ShopID           string    `json:"shop_id"`
	BusinessDate     string    `json:"business_date"`
	TotalSales       Money     `json:"total_sales"`
	CashTotal        Money     `json:"cash_total"`
	CardTotal        Money     `json:"card_total"`
	TransactionCount int       `json:"transaction_count"`
	ClosedAt         time.Time `json:"closed_at"`
	Synced           bool      `json:"-"`
}

func (r DailyReport) Collection() Collection { return CollectionDailyReports }
func (r DailyReport) Key() string            { return r.ID }

// FormatTime formats t in UTC with TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a timestamp written by FormatTime (or any RFC 3339 value).
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}
