// Package rest mirrors records to a PostgREST-style HTTP API (as served by
// Supabase): one POST per record with duplicate rows ignored by the server.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/roach88/kassa/internal/model"
	"github.com/roach88/kassa/internal/remote"
)

// Client is a remote.Remote over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ remote.Remote = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its transport is used as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the API at baseURL (e.g. https://xyz.supabase.co).
// apiKey is sent both as the apikey header and as a bearer token.
//
// Requests are traced through an otelhttp transport; without a configured
// tracer provider this is a no-op.
func New(baseURL, apiKey string, opts ...Option) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 10
	transport.IdleConnTimeout = 90 * time.Second

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http: &http.Client{
			Transport: otelhttp.NewTransport(transport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InsertIfAbsent posts the record to /rest/v1/<table>.
// The server ignores a row whose primary key already exists. A 409 from
// servers that do not honour the preference counts as success only when it
// is a primary-key violation; any other conflict means the remote holds a
// different row and is returned as a *StatusError.
func (c *Client) InsertIfAbsent(ctx context.Context, e model.Entity) error {
	cols, err := remote.Row(e)
	if err != nil {
		return err
	}
	body, err := json.Marshal(rowObject(cols))
	if err != nil {
		return fmt.Errorf("rest: marshal %s: %w", e.Collection(), err)
	}

	endpoint := c.baseURL + "/rest/v1/" + remote.Table(e.Collection())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("rest: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=ignore-duplicates,return=minimal")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rest: post %s %s: %w", e.Collection(), e.Key(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 2 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode == http.StatusConflict && primaryKeyConflict(msg) {
		return nil
	}
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
}

// uniqueViolation is the Postgres SQLSTATE PostgREST reports for a
// duplicate key.
const uniqueViolation = "23505"

// apiError is the PostgREST error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// primaryKeyConflict reports whether a 409 body is a unique violation on a
// table's primary key, i.e. the same record already exists.
func primaryKeyConflict(body []byte) bool {
	var e apiError
	if err := json.Unmarshal(body, &e); err != nil {
		return false
	}
	if e.Code != uniqueViolation {
		return false
	}
	return strings.Contains(e.Message, `_pkey"`) || strings.HasPrefix(e.Details, "Key (id)=")
}

// StatusError is an unexpected HTTP response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("rest: unexpected status %d", e.Code)
	}
	return fmt.Sprintf("rest: unexpected status %d: %s", e.Code, e.Body)
}

// rowObject preserves column order when marshalled.
type rowObject []remote.Column

func (r rowObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(col.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(col.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
