// Package postgres mirrors records straight into a PostgreSQL database.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/roach88/kassa/internal/model"
	"github.com/roach88/kassa/internal/remote"
)

//go:embed schema.sql
var schemaSQL string

// Mirror is a remote.Remote backed by PostgreSQL.
type Mirror struct {
	db *sql.DB
}

var _ remote.Remote = (*Mirror)(nil)

// Open prepares a mirror for dsn. No connection is made until first use,
// so a device can start without the network.
func Open(dsn string) (*Mirror, error) {
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(2)
	return &Mirror{db: db}, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Mirror {
	return &Mirror{db: db}
}

// Close releases the connection pool.
func (m *Mirror) Close() error {
	return m.db.Close()
}

// EnsureSchema creates the mirror tables if they do not exist.
func (m *Mirror) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

// InsertIfAbsent inserts the record unless its id already exists.
func (m *Mirror) InsertIfAbsent(ctx context.Context, e model.Entity) error {
	cols, err := remote.Row(e)
	if err != nil {
		return err
	}
	query, args := insertSQL(remote.Table(e.Collection()), cols)
	if _, err := m.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: insert %s %s: %w", e.Collection(), e.Key(), describe(err))
	}
	return nil
}

// insertSQL builds INSERT ... ON CONFLICT (id) DO NOTHING for cols.
func insertSQL(table string, cols []remote.Column) (string, []any) {
	names := make([]string, len(cols))
	holders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		names[i] = pq.QuoteIdentifier(col.Name)
		holders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = col.Value
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO NOTHING",
		pq.QuoteIdentifier(table),
		strings.Join(names, ", "),
		strings.Join(holders, ", "),
	)
	return query, args
}

// describe adds the SQLSTATE name to server errors.
func describe(err error) error {
	if pqErr, ok := err.(*pq.Error); ok {
		return fmt.Errorf("%s (%s): %w", pqErr.Code.Name(), pqErr.Code, err)
	}
	return err
}
