// Package receipt encodes a committed sale as a portable payload, wraps it in
// a viewer URL and a QR code, and decodes it back on the viewer side.
//
// The wire form is compact JSON with one-letter keys:
//
//	{"s":"Cafe","d":"2026-10-15T09:30:00.000Z","i":[{"n":"Latte","p":10000,"q":2}],"t":20000,"p":"cash"}
//
// The decoder accepts exactly this shape. Anything else is ErrInvalid.
package receipt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/kassa/internal/model"
)

// ErrInvalid is returned for any payload that is missing, malformed or not in
// the exact wire shape.
var ErrInvalid = errors.New("receipt: invalid")

// Param is the query parameter carrying the payload.
const Param = "data"

// Item is one receipt line.
type Item struct {
	Name     string      `json:"n"`
	Price    model.Money `json:"p"`
	Quantity int         `json:"q"`
}

// Subtotal returns price × quantity.
func (i Item) Subtotal() model.Money {
	return i.Price.Times(i.Quantity)
}

// Payload is a self-contained receipt.
// Date is kept as the exact string that was encoded.
type Payload struct {
	Shop    string            `json:"s"`
	Date    string            `json:"d"`
	Items   []Item            `json:"i"`
	Total   model.Money       `json:"t"`
	Payment model.PaymentType `json:"p"`
}

// Time parses Date.
func (p Payload) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, p.Date)
}

// Build assembles the payload of a committed sale. Items keep their order.
func Build(shop model.Shop, tr model.Transaction, items []model.TransactionItem) Payload {
	p := Payload{
		Shop:    shop.Name,
		Date:    model.FormatTime(tr.CreatedAt),
		Items:   make([]Item, 0, len(items)),
		Total:   tr.Total,
		Payment: tr.PaymentType,
	}
	for _, it := range items {
		p.Items = append(p.Items, Item{Name: it.ProductName, Price: it.Price, Quantity: it.Quantity})
	}
	return p
}

// Encode returns the compact JSON form.
// HTML characters are not escaped so the JSON stays byte-minimal.
func Encode(p Payload) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return "", fmt.Errorf("encode receipt: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// URL returns <origin>/receipt?data=<percent-encoded JSON>.
func URL(origin string, p Payload) (string, error) {
	data, err := Encode(p)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(origin, "/") + "/receipt?" + Param + "=" + EscapeComponent(data), nil
}

// wire mirrors Payload with pointers so that absent keys are detectable.
type wire struct {
	S *string     `json:"s"`
	D *string     `json:"d"`
	I *[]wireItem `json:"i"`
	T *int64      `json:"t"`
	P *string     `json:"p"`
}

type wireItem struct {
	N *string `json:"n"`
	P *int64  `json:"p"`
	Q *int    `json:"q"`
}

// Decode parses the JSON form strictly.
//
// Rejected: unknown or missing keys, null values, trailing data, a payment
// tag other than cash or card, an unparseable timestamp, an empty item list,
// a non-positive quantity, a negative price, a line or total beyond the
// int64 range, and a total that is not the sum of the lines.
func Decode(data string) (Payload, error) {
	if strings.TrimSpace(data) == "" {
		return Payload{}, fmt.Errorf("%w: empty payload", ErrInvalid)
	}

	dec := json.NewDecoder(strings.NewReader(data))
	dec.DisallowUnknownFields()

	var w wire
	if err := dec.Decode(&w); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Payload{}, fmt.Errorf("%w: trailing data", ErrInvalid)
	}
	// encoding/json matches keys case-insensitively; the wire form does not.
	if err := exactKeys(data); err != nil {
		return Payload{}, err
	}

	if w.S == nil || w.D == nil || w.I == nil || w.T == nil || w.P == nil {
		return Payload{}, fmt.Errorf("%w: missing field", ErrInvalid)
	}

	payment, err := model.ParsePaymentType(*w.P)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := time.Parse(time.RFC3339Nano, *w.D); err != nil {
		return Payload{}, fmt.Errorf("%w: bad timestamp %q", ErrInvalid, *w.D)
	}
	if len(*w.I) == 0 {
		return Payload{}, fmt.Errorf("%w: no items", ErrInvalid)
	}

	p := Payload{
		Shop:    *w.S,
		Date:    *w.D,
		Items:   make([]Item, 0, len(*w.I)),
		Total:   model.Money(*w.T),
		Payment: payment,
	}
	var sum model.Money
	for i, wi := range *w.I {
		if wi.N == nil || wi.P == nil || wi.Q == nil {
			return Payload{}, fmt.Errorf("%w: item %d: missing field", ErrInvalid, i)
		}
		if *wi.Q <= 0 {
			return Payload{}, fmt.Errorf("%w: item %d: quantity %d", ErrInvalid, i, *wi.Q)
		}
		if *wi.P < 0 {
			return Payload{}, fmt.Errorf("%w: item %d: price %d", ErrInvalid, i, *wi.P)
		}
		if *wi.P > math.MaxInt64/int64(*wi.Q) {
			return Payload{}, fmt.Errorf("%w: item %d: subtotal overflows", ErrInvalid, i)
		}
		item := Item{Name: *wi.N, Price: model.Money(*wi.P), Quantity: *wi.Q}
		if sum > math.MaxInt64-item.Subtotal() {
			return Payload{}, fmt.Errorf("%w: item %d: total overflows", ErrInvalid, i)
		}
		sum += item.Subtotal()
		p.Items = append(p.Items, item)
	}
	if sum != p.Total {
		return Payload{}, fmt.Errorf("%w: total %d does not match lines %d", ErrInvalid, p.Total, sum)
	}

	return p, nil
}

// FromQuery decodes the data parameter of a viewer request.
// A missing parameter is ErrInvalid.
func FromQuery(q url.Values) (Payload, error) {
	if !q.Has(Param) {
		return Payload{}, fmt.Errorf("%w: missing %s parameter", ErrInvalid, Param)
	}
	return Decode(q.Get(Param))
}

// FromURL decodes a full receipt URL.
func FromURL(raw string) (Payload, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return FromQuery(q)
}

var (
	payloadKeys = []string{"s", "d", "i", "t", "p"}
	itemKeys    = []string{"n", "p", "q"}
)

// exactKeys checks that the payload and each item use exactly the wire keys.
func exactKeys(data string) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &top); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := hasKeys(top, payloadKeys); err != nil {
		return err
	}
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(top["i"], &items); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	for _, item := range items {
		if err := hasKeys(item, itemKeys); err != nil {
			return err
		}
	}
	return nil
}

func hasKeys(obj map[string]json.RawMessage, keys []string) error {
	if len(obj) != len(keys) {
		return fmt.Errorf("%w: want keys %v", ErrInvalid, keys)
	}
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			return fmt.Errorf("%w: missing key %q", ErrInvalid, k)
		}
	}
	return nil
}
