// Package cart holds the pending sale: an ordered list of product lines that
// exists only in memory until checkout.
//
// A Cart is owned by a single goroutine (the till). It performs no I/O.
package cart

import "github.com/roach88/kassa/internal/model"

// Line is one product in the cart with its quantity.
// The product is a snapshot taken when the line was added.
type Line struct {
	Product  model.Product
	Quantity int
}

// Subtotal returns price × quantity.
func (l Line) Subtotal() model.Money {
	return l.Product.Price.Times(l.Quantity)
}

// Cart is the pending sale.
//
// It holds at most one line per product ID; lines keep the order in which
// their product was first added. The zero value is an empty cart ready to use.
type Cart struct {
	lines []*Line
	index map[string]*Line
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Add puts one unit of p in the cart: the existing line for p.ID is
// incremented, otherwise a line with quantity 1 is appended.
func (c *Cart) Add(p model.Product) {
	if l, ok := c.index[p.ID]; ok {
		l.Quantity++
		return
	}
	if c.index == nil {
		c.index = make(map[string]*Line)
	}
	l := &Line{Product: p, Quantity: 1}
	c.lines = append(c.lines, l)
	c.index[p.ID] = l
}

// AdjustQuantity changes a line's quantity by delta.
//
// If the result would be zero or less the call does nothing; removing a line
// is an explicit Remove. Unknown product IDs are ignored.
func (c *Cart) AdjustQuantity(productID string, delta int) {
	l, ok := c.index[productID]
	if !ok {
		return
	}
	if l.Quantity+delta <= 0 {
		return
	}
	l.Quantity += delta
}

// Remove drops the line for productID, if present.
func (c *Cart) Remove(productID string) {
	if _, ok := c.index[productID]; !ok {
		return
	}
	delete(c.index, productID)
	for i, l := range c.lines {
		if l.Product.ID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			break
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
	c.index = nil
}

// Total returns the sum of price × quantity over all lines.
// Recomputed on every call; there is no cached total to go stale.
func (c *Cart) Total() model.Money {
	var total model.Money
	for _, l := range c.lines {
		total += l.Subtotal()
	}
	return total
}

// Lines returns a copy of the lines in cart order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	for i, l := range c.lines {
		out[i] = *l
	}
	return out
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Units returns the total quantity across lines.
func (c *Cart) Units() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}
