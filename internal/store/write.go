package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/kassa/internal/model"
)

// Tx is a write batch inside RunAtomic.
// All writes made through a Tx commit together or not at all.
//
// Note: the pool holds one connection, so Store read methods called from
// inside a batch would block until the batch ends. Use Tx methods instead.
type Tx struct {
	tx      *sql.Tx
	touched map[model.Collection]bool
}

// RunAtomic executes work as a single all-or-nothing batch.
//
// The batch is serialized against every other write. If work returns an
// error, or any statement or the commit fails, the transaction is rolled
// back and the store is left exactly as it was; the returned error has code
// ATOMIC_BATCH_FAILED and wraps the cause.
//
// Observers of the touched collections are notified after commit.
func (s *Store) RunAtomic(ctx context.Context, work func(ctx context.Context, tx *Tx) error) error {
	if err := s.write(ctx, "run atomic", work); err != nil {
		return &Error{Code: ErrCodeAtomicBatch, Op: "run atomic", Err: err}
	}
	return nil
}

// write runs work in one SQL transaction under the writer mutex and
// notifies observers once the commit succeeded.
func (s *Store) write(ctx context.Context, op string, work func(ctx context.Context, tx *Tx) error) error {
	touched, err := s.writeLocked(ctx, op, work)
	if err != nil {
		return err
	}
	s.observers.notify(touched)
	return nil
}

func (s *Store) writeLocked(ctx context.Context, op string, work func(ctx context.Context, tx *Tx) error) (map[model.Collection]bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(op, fmt.Errorf("begin tx: %w", err))
	}
	defer sqlTx.Rollback() // No-op if committed

	tx := &Tx{tx: sqlTx, touched: make(map[model.Collection]bool)}
	if err := work(ctx, tx); err != nil {
		return nil, err
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, classify(op, fmt.Errorf("commit: %w", err))
	}

	return tx.touched, nil
}

// exec runs a statement in the batch and records the touched collection.
func (t *Tx) exec(ctx context.Context, op string, c model.Collection, query string, args ...any) (sql.Result, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	t.touched[c] = true
	return res, nil
}

// InsertShop inserts a shop row.
// A duplicate id surfaces as DUPLICATE_KEY.
func (t *Tx) InsertShop(ctx context.Context, shop model.Shop) error {
	_, err := t.exec(ctx, "insert shop", model.CollectionShops, `
		INSERT INTO shops (id, owner_id, name, currency, language, created_at, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		shop.ID,
		shop.OwnerID,
		shop.Name,
		shop.Currency,
		shop.Language,
		marshalTime(shop.CreatedAt),
		marshalBool(shop.Synced),
	)
	return err
}

// CountShops returns the number of shop rows, read inside the batch.
func (t *Tx) CountShops(ctx context.Context) (int, error) {
	var n int
	if err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM shops`).Scan(&n); err != nil {
		return 0, classify("count shops", err)
	}
	return n, nil
}

// InsertProduct inserts a catalog product. The name search key is derived here.
// A duplicate id or a non-empty barcode already used in the shop surfaces
// as DUPLICATE_KEY.
func (t *Tx) InsertProduct(ctx context.Context, p model.Product) error {
	_, err := t.exec(ctx, "insert product", model.CollectionProducts, `
		INSERT INTO products (id, shop_id, barcode, name, name_key, price, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID,
		p.ShopID,
		p.Barcode,
		p.Name,
		NameKey(p.Name),
		int64(p.Price),
		marshalTime(p.CreatedAt),
	)
	return err
}

// InsertTransaction inserts a committed sale header.
func (t *Tx) InsertTransaction(ctx context.Context, tr model.Transaction) error {
	_, err := t.exec(ctx, "insert transaction", model.CollectionTransactions, `
		INSERT INTO transactions (id, shop_id, business_date, total, payment_type, created_at, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		tr.ID,
		tr.ShopID,
		tr.BusinessDate,
		int64(tr.Total),
		string(tr.PaymentType),
		marshalTime(tr.CreatedAt),
		marshalBool(tr.Synced),
	)
	return err
}

// InsertTransactionItem inserts one sold line.
// The referenced transaction must exist (foreign key constraint).
func (t *Tx) InsertTransactionItem(ctx context.Context, item model.TransactionItem) error {
	_, err := t.exec(ctx, "insert transaction item", model.CollectionTransactionItems, `
		INSERT INTO transaction_items (id, transaction_id, product_name, price, quantity, position)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		item.ID,
		item.TransactionID,
		item.ProductName,
		int64(item.Price),
		item.Quantity,
		item.Position,
	)
	return err
}

// InsertDailyReport inserts a frozen day-close report.
// A second report for the same (shop, business date) surfaces as DUPLICATE_KEY.
func (t *Tx) InsertDailyReport(ctx context.Context, r model.DailyReport) error {
	_, err := t.exec(ctx, "insert daily report", model.CollectionDailyReports, `
		INSERT INTO daily_reports
		(id, shop_id, business_date, total_sales, cash_total, card_total, transaction_count, closed_at, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		r.ShopID,
		r.BusinessDate,
		int64(r.TotalSales),
		int64(r.CashTotal),
		int64(r.CardTotal),
		r.TransactionCount,
		marshalTime(r.ClosedAt),
		marshalBool(r.Synced),
	)
	return err
}

// InsertShop inserts a single shop outside an explicit batch.
func (s *Store) InsertShop(ctx context.Context, shop model.Shop) error {
	return s.write(ctx, "insert shop", func(ctx context.Context, tx *Tx) error {
		return tx.InsertShop(ctx, shop)
	})
}

// InsertProduct inserts a single product outside an explicit batch.
func (s *Store) InsertProduct(ctx context.Context, p model.Product) error {
	return s.write(ctx, "insert product", func(ctx context.Context, tx *Tx) error {
		return tx.InsertProduct(ctx, p)
	})
}

// InsertDailyReport inserts a single report outside an explicit batch.
func (s *Store) InsertDailyReport(ctx context.Context, r model.DailyReport) error {
	return s.write(ctx, "insert daily report", func(ctx context.Context, tx *Tx) error {
		return tx.InsertDailyReport(ctx, r)
	})
}

// ShopPatch lists the shop fields to change. Nil fields are left alone.
type ShopPatch struct {
	Name     *string
	Currency *string
	Language *string
}

// UpdateShop applies a partial update to a shop.
// Returns a NOT_FOUND error if no shop has the id.
func (s *Store) UpdateShop(ctx context.Context, id string, p ShopPatch) error {
	var sets []string
	var args []any
	if p.Name != nil {
		sets, args = append(sets, "name = ?"), append(args, *p.Name)
	}
	if p.Currency != nil {
		sets, args = append(sets, "currency = ?"), append(args, *p.Currency)
	}
	if p.Language != nil {
		sets, args = append(sets, "language = ?"), append(args, *p.Language)
	}
	return s.update(ctx, "update shop", model.CollectionShops, id, sets, args)
}

// ProductPatch lists the product fields to change. Nil fields are left alone.
type ProductPatch struct {
	Barcode *string
	Name    *string
	Price   *model.Money
}

// UpdateProduct applies a partial catalog edit.
// Historical transaction items are unaffected: they hold copies.
func (s *Store) UpdateProduct(ctx context.Context, id string, p ProductPatch) error {
	var sets []string
	var args []any
	if p.Barcode != nil {
		sets, args = append(sets, "barcode = ?"), append(args, *p.Barcode)
	}
	if p.Name != nil {
		sets, args = append(sets, "name = ?", "name_key = ?"), append(args, *p.Name, NameKey(*p.Name))
	}
	if p.Price != nil {
		sets, args = append(sets, "price = ?"), append(args, int64(*p.Price))
	}
	return s.update(ctx, "update product", model.CollectionProducts, id, sets, args)
}

// MarkSynced sets the sync flag of a shop, product, transaction or daily report.
// Marking an already synced record is a no-op success.
func (s *Store) MarkSynced(ctx context.Context, c model.Collection, id string) error {
	if !c.HasSyncFlag() {
		return fmt.Errorf("mark synced: collection %q has no sync flag", c)
	}
	return s.update(ctx, "mark synced", c, id, []string{"synced = 1"}, nil)
}

// update runs UPDATE <collection> SET <sets> WHERE id = ?.
// An empty set list only checks that the record exists.
func (s *Store) update(ctx context.Context, op string, c model.Collection, id string, sets []string, args []any) error {
	return s.write(ctx, op, func(ctx context.Context, tx *Tx) error {
		if len(sets) == 0 {
			var one int
			err := tx.tx.QueryRowContext(ctx,
				fmt.Sprintf(`SELECT 1 FROM %s WHERE id = ?`, c), id).Scan(&one)
			return classify(op, err)
		}

		query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, c, strings.Join(sets, ", "))
		res, err := tx.exec(ctx, op, c, query, append(args, id)...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return classify(op, fmt.Errorf("rows affected: %w", err))
		}
		if n == 0 {
			return &Error{Code: ErrCodeNotFound, Op: op, Err: fmt.Errorf("%s %q", c, id)}
		}
		return nil
	})
}
