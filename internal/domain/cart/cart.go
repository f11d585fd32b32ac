package cart

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/mbjj-storefront/internal/domain/product"
)

var (
	// ErrNotFound is returned when a cart id is unknown.
	ErrNotFound = errors.New("cart not found")
	// ErrInvalidQuantity is returned when adding a non-positive quantity.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// Line is a single product entry in a cart.
type Line struct {
	Product  product.Product
	Quantity int
}

// Subtotal returns price * quantity for the line.
func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Adder is the part of a cart a product view needs.
type Adder interface {
	Add(ctx context.Context, p product.Product, quantity int) error
}

var _ Adder = (*Cart)(nil)

// Cart holds the lines a shopper has added. Lines keep insertion order and
// adding a product that is already present merges the quantities.
// A Cart is safe for concurrent use.
type Cart struct {
	id string

	mu    sync.Mutex
	lines []Line
}

// New returns an empty cart with the given id.
func New(id string) *Cart {
	return &Cart{id: id}
}

// ID returns the cart identifier.
func (c *Cart) ID() string { return c.id }

// Add puts quantity units of p into the cart.
func (c *Cart) Add(_ context.Context, p product.Product, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Product.ID == p.ID {
			c.lines[i].Quantity += quantity
			return nil
		}
	}
	c.lines = append(c.lines, Line{Product: p, Quantity: quantity})
	return nil
}

// Remove deletes the line for productID. Removing a missing product is a no-op.
func (c *Cart) Remove(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Lines returns a snapshot of the cart contents.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Deduct subtracts the quantities in lines from the cart, dropping lines that
// reach zero. Lines added after the snapshot was taken are kept.
func (c *Cart) Deduct(lines []Line) {
	taken := make(map[string]int, len(lines))
	for _, l := range lines {
		taken[l.Product.ID] += l.Quantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.lines[:0]
	for _, l := range c.lines {
		l.Quantity -= taken[l.Product.ID]
		if l.Quantity > 0 {
			kept = append(kept, l)
		}
	}
	c.lines = kept
}

// Total returns the sum of all line subtotals rounded to 2 decimal places.
func (c *Cart) Total() decimal.Decimal {
	return Total(c.Lines())
}

// Clear removes every line.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Total sums line subtotals and rounds to 2 decimal places.
func Total(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum.Round(2)
}
