// Package memory provides in-process implementations of the domain
// repositories.
package memory

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/mbjj-storefront/internal/domain/product"
)

var _ product.Repository = (*Catalog)(nil)

// Catalog is a read-only product.Repository over a fixed product list.
type Catalog struct {
	products []product.Product
	byID     map[string]int
}

// NewCatalog returns a Catalog holding products in the given order.
func NewCatalog(products []product.Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]product.Product, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for i, p := range products {
		c.products[i] = p.Clone()
		if err := p.Validate(); err != nil {
			return nil, errors.Wrap(err, "invalid product")
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, errors.Errorf("duplicate product id %q", p.ID)
		}
		c.byID[p.ID] = i
	}
	return c, nil
}

// List returns all products in catalog order.
func (c *Catalog) List(_ context.Context) ([]product.Product, error) {
	out := make([]product.Product, len(c.products))
	for i, p := range c.products {
		out[i] = p.Clone()
	}
	return out, nil
}

// GetByID returns the product with the given id or product.ErrNotFound.
func (c *Catalog) GetByID(_ context.Context, id string) (*product.Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	p := c.products[i].Clone()
	return &p, nil
}

// ListByCategory returns the products of category in catalog order.
func (c *Catalog) ListByCategory(_ context.Context, category string) ([]product.Product, error) {
	var out []product.Product
	for _, p := range c.products {
		if p.Category == category {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

// Len returns the number of products.
func (c *Catalog) Len() int { return len(c.products) }
