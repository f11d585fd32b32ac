package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/mbjj-storefront/internal/domain/order"
	"github.com/xenking/mbjj-storefront/internal/domain/product"
)

func newTestProduct(id, category string) product.Product {
	return product.Product{
		ID:       id,
		Name:     "Product " + id,
		Price:    decimal.RequireFromString("10.00"),
		Category: category,
		InStock:  true,
		Images:   []string{id + ".jpg"},
	}
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	c, err := NewCatalog([]product.Product{
		newTestProduct("A", "gi"),
		newTestProduct("D", "belt"),
		newTestProduct("B", "gi"),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	all, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "A", all[0].ID)
	assert.Equal(t, "D", all[1].ID)
	assert.Equal(t, "B", all[2].ID)

	gis, err := c.ListByCategory(ctx, "gi")
	require.NoError(t, err)
	require.Len(t, gis, 2)
	assert.Equal(t, "A", gis[0].ID)
	assert.Equal(t, "B", gis[1].ID)

	none, err := c.ListByCategory(ctx, "rashguard")
	require.NoError(t, err)
	assert.Empty(t, none)

	p, err := c.GetByID(ctx, "D")
	require.NoError(t, err)
	assert.Equal(t, "belt", p.Category)

	_, err = c.GetByID(ctx, "missing")
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestCatalog_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	seed := newTestProduct("A", "gi")
	seed.Variants = []product.Variant{{Size: "A1", Color: "White"}}
	c, err := NewCatalog([]product.Product{seed})
	require.NoError(t, err)
	seed.Images[0] = "seed-mutated"

	all, err := c.List(ctx)
	require.NoError(t, err)
	all[0].Name = "changed"
	all[0].Images[0] = "list-mutated"
	all[0].Variants[0].Size = "A9"

	p, err := c.GetByID(ctx, "A")
	require.NoError(t, err)
	p.InStock = false
	p.Images[0] = "mutated"
	p.Variants[0] = product.Variant{Size: "A0", Color: "Black"}

	gis, err := c.ListByCategory(ctx, "gi")
	require.NoError(t, err)
	gis[0].Images[0] = "category-mutated"
	gis[0].Variants[0].Color = "Blue"

	again, err := c.GetByID(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "Product A", again.Name)
	assert.True(t, again.InStock)
	assert.Equal(t, []string{"A.jpg"}, again.Images)
	assert.Equal(t, []product.Variant{{Size: "A1", Color: "White"}}, again.Variants)
}

func TestNewCatalog_Invalid(t *testing.T) {
	_, err := NewCatalog([]product.Product{newTestProduct("A", "gi"), newTestProduct("A", "belt")})
	require.ErrorContains(t, err, "duplicate product id")

	bad := newTestProduct("B", "gi")
	bad.Images = nil
	_, err = NewCatalog([]product.Product{bad})
	require.Error(t, err)
}

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()
	r := NewOrderRepository()
	o := &order.Order{ID: "o1", Status: order.StatusPaid}

	require.NoError(t, r.Create(ctx, o))
	require.Error(t, r.Create(ctx, o))

	got, err := r.GetByID(ctx, "o1")
	require.NoError(t, err)
	assert.Same(t, o, got)

	_, err = r.GetByID(ctx, "missing")
	require.ErrorIs(t, err, order.ErrNotFound)
}
