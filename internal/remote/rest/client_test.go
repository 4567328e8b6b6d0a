package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kassa/internal/model"
)

type recorded struct {
	method  string
	path    string
	headers http.Header
	body    map[string]any
}

// fakePostgREST keeps rows per table and ignores duplicates by id.
type fakePostgREST struct {
	mu       sync.Mutex
	requests []recorded
	rows     map[string]map[string]bool
	status   int
	reply    string
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recorded{method: r.Method, path: r.URL.Path, headers: r.Header.Clone(), body: body})
	if f.status != 0 {
		reply := f.reply
		if reply == "" {
			reply = `{"message":"boom"}`
		}
		w.WriteHeader(f.status)
		w.Write([]byte(reply))
		return
	}
	if f.rows == nil {
		f.rows = make(map[string]map[string]bool)
	}
	if f.rows[r.URL.Path] == nil {
		f.rows[r.URL.Path] = make(map[string]bool)
	}
	f.rows[r.URL.Path][body["id"].(string)] = true
	w.WriteHeader(http.StatusCreated)
}

func newServer(t *testing.T) (*fakePostgREST, *httptest.Server) {
	t.Helper()
	fake := &fakePostgREST{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, srv
}

var sale = model.Transaction{
	ID:           "tx-1",
	ShopID:       "shop-1",
	BusinessDate: "2026-10-15",
	Total:        25000,
	PaymentType:  model.PaymentCash,
	CreatedAt:    time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC),
}

func TestInsertIfAbsent_Request(t *testing.T) {
	fake, srv := newServer(t)
	c := New(srv.URL+"/", "anon-key")

	require.NoError(t, c.InsertIfAbsent(context.Background(), sale))

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/rest/v1/transactions", req.path)
	assert.Equal(t, "anon-key", req.headers.Get("apikey"))
	assert.Equal(t, "Bearer anon-key", req.headers.Get("Authorization"))
	assert.Contains(t, req.headers.Get("Prefer"), "resolution=ignore-duplicates")
	assert.Equal(t, "application/json", req.headers.Get("Content-Type"))

	assert.Equal(t, map[string]any{
		"id":            "tx-1",
		"shop_id":       "shop-1",
		"business_date": "2026-10-15",
		"total":         float64(25000),
		"payment_type":  "cash",
		"created_at":    "2026-10-15T09:30:00.000Z",
	}, req.body)
}

func TestInsertIfAbsent_Twice(t *testing.T) {
	fake, srv := newServer(t)
	c := New(srv.URL, "")

	require.NoError(t, c.InsertIfAbsent(context.Background(), sale))
	require.NoError(t, c.InsertIfAbsent(context.Background(), sale))

	assert.Len(t, fake.rows["/rest/v1/transactions"], 1)
	assert.Empty(t, fake.requests[0].headers.Get("Authorization"), "no key, no auth header")
}

func TestInsertIfAbsent_PrimaryKeyConflictIsSuccess(t *testing.T) {
	fake, srv := newServer(t)
	fake.status = http.StatusConflict
	fake.reply = `{"code":"23505","details":"Key (id)=(tx-1) already exists.","hint":null,` +
		`"message":"duplicate key value violates unique constraint \"transactions_pkey\""}`
	c := New(srv.URL, "k")

	assert.NoError(t, c.InsertIfAbsent(context.Background(), sale))
}

func TestInsertIfAbsent_OtherConflictFails(t *testing.T) {
	report := model.DailyReport{
		ID: "r-2", ShopID: "shop-1", BusinessDate: "2026-10-15",
		ClosedAt: time.Date(2026, 10, 15, 21, 0, 0, 0, time.UTC),
	}
	tests := []struct {
		name  string
		reply string
	}{
		{"business date taken", `{"code":"23505","details":"Key (shop_id, business_date)=(shop-1, 2026-10-15) already exists.",` +
			`"hint":null,"message":"duplicate key value violates unique constraint \"daily_reports_shop_id_business_date_key\""}`},
		{"foreign key", `{"code":"23503","details":"Key (shop_id)=(shop-9) is not present in table \"shops\".",` +
			`"hint":null,"message":"insert or update on table \"daily_reports\" violates foreign key constraint"}`},
		{"no sqlstate", `{"message":"conflict"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake, srv := newServer(t)
			fake.status = http.StatusConflict
			fake.reply = tt.reply
			c := New(srv.URL, "k")

			err := c.InsertIfAbsent(context.Background(), report)
			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, http.StatusConflict, se.Code)
		})
	}
}

func TestInsertIfAbsent_ServerError(t *testing.T) {
	fake, srv := newServer(t)
	fake.status = http.StatusServiceUnavailable
	c := New(srv.URL, "k")

	err := c.InsertIfAbsent(context.Background(), sale)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Contains(t, se.Error(), "boom")
}

func TestInsertIfAbsent_ContextTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(block) })

	c := New(srv.URL, "k")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.InsertIfAbsent(ctx, sale)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInsertIfAbsent_ItemTable(t *testing.T) {
	fake, srv := newServer(t)
	c := New(srv.URL, "k", WithHTTPClient(srv.Client()))

	require.NoError(t, c.InsertIfAbsent(context.Background(), model.TransactionItem{
		ID: "item-1", TransactionID: "tx-1", ProductName: "Latte", Price: 10000, Quantity: 2,
	}))
	assert.Equal(t, "/rest/v1/transaction_items", fake.requests[0].path)
	assert.Equal(t, float64(2), fake.requests[0].body["quantity"])
}
