package product

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	InStock     bool
	// Images is ordered; the first entry is the primary image.
	Images   []string
	Variants []Variant
}

// Variant is a sub-configuration of a product distinguished by size and/or
// color. Either attribute may be empty.
type Variant struct {
	Size  string `json:"size,omitempty"`
	Color string `json:"color,omitempty"`
}

// Repository defines read operations for the product catalog. List and
// ListByCategory return products in catalog order.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	ListByCategory(ctx context.Context, category string) ([]Product, error)
}

// Clone returns a copy of p that shares no slices with it.
func (p Product) Clone() Product {
	p.Images = slices.Clone(p.Images)
	p.Variants = slices.Clone(p.Variants)
	return p
}

// Validate reports whether p is a well-formed catalog entry.
func (p Product) Validate() error {
	switch {
	case p.ID == "":
		return errors.New("id is required")
	case p.Name == "":
		return errors.Errorf("product %s: name is required", p.ID)
	case p.Price.IsNegative():
		return errors.Errorf("product %s: negative price %s", p.ID, p.Price)
	case len(p.Images) == 0:
		return errors.Errorf("product %s: at least one image is required", p.ID)
	}
	return nil
}
