package handler

import (
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/mbjj-storefront/internal/domain/cart"
	"github.com/xenking/mbjj-storefront/internal/domain/order"
	"github.com/xenking/mbjj-storefront/internal/domain/product"
	"github.com/xenking/mbjj-storefront/internal/domain/productview"
)

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(2)))
}

func encodeStrings(e *jx.Encoder, ss []string) {
	e.Arr(func(e *jx.Encoder) {
		for _, s := range ss {
			e.Str(s)
		}
	})
}

func (h *Handler) imageURL(path string) string {
	return h.imageBaseURL + path
}

func (h *Handler) encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		e.Field("price", func(e *jx.Encoder) { encodeMoney(e, p.Price) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		e.Field("inStock", func(e *jx.Encoder) { e.Bool(p.InStock) })
		e.Field("images", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, img := range p.Images {
					e.Str(h.imageURL(img))
				}
			})
		})
		e.Field("variants", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, v := range p.Variants {
					e.Obj(func(e *jx.Encoder) {
						if v.Size != "" {
							e.Field("size", func(e *jx.Encoder) { e.Str(v.Size) })
						}
						if v.Color != "" {
							e.Field("color", func(e *jx.Encoder) { e.Str(v.Color) })
						}
					})
				}
			})
		})
	})
}

func (h *Handler) encodeProducts(e *jx.Encoder, products []product.Product) {
	e.Arr(func(e *jx.Encoder) {
		for _, p := range products {
			h.encodeProduct(e, p)
		}
	})
}

// encodeView writes a view snapshot. applied is omitted for reads.
func (h *Handler) encodeView(e *jx.Encoder, v *productview.View, s productview.State, applied *bool) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(v.ID) })
		e.Field("cartId", func(e *jx.Encoder) { e.Str(v.Cart.ID()) })
		if applied != nil {
			e.Field("applied", func(e *jx.Encoder) { e.Bool(*applied) })
		}
		e.Field("product", func(e *jx.Encoder) { h.encodeProduct(e, s.Product) })
		e.Field("sizes", func(e *jx.Encoder) { encodeStrings(e, s.Sizes) })
		e.Field("colors", func(e *jx.Encoder) { encodeStrings(e, s.Colors) })
		e.Field("selection", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("size", func(e *jx.Encoder) { e.Str(s.Selection.Size) })
				e.Field("color", func(e *jx.Encoder) { e.Str(s.Selection.Color) })
				e.Field("matches", func(e *jx.Encoder) { e.Bool(s.SelectionMatches) })
			})
		})
		e.Field("imageIndex", func(e *jx.Encoder) { e.Int(s.ImageIndex) })
		if s.ImageIndex < len(s.Product.Images) {
			e.Field("image", func(e *jx.Encoder) { e.Str(h.imageURL(s.Product.Images[s.ImageIndex])) })
		}
		e.Field("quantity", func(e *jx.Encoder) { e.Int(s.Quantity) })
		e.Field("confirmed", func(e *jx.Encoder) { e.Bool(s.Confirmed) })
		e.Field("canAddToCart", func(e *jx.Encoder) { e.Bool(s.CanAddToCart) })
		e.Field("related", func(e *jx.Encoder) { h.encodeProducts(e, s.Related) })
	})
}

func (h *Handler) encodeLines(e *jx.Encoder, lines []cart.Line) {
	e.Arr(func(e *jx.Encoder) {
		for _, l := range lines {
			e.Obj(func(e *jx.Encoder) {
				e.Field("product", func(e *jx.Encoder) { h.encodeProduct(e, l.Product) })
				e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
				e.Field("subtotal", func(e *jx.Encoder) { encodeMoney(e, l.Subtotal()) })
			})
		}
	})
}

func (h *Handler) encodeCart(e *jx.Encoder, c *cart.Cart) {
	lines := c.Lines()
	var units int
	for _, l := range lines {
		units += l.Quantity
	}
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(c.ID()) })
		e.Field("lines", func(e *jx.Encoder) { h.encodeLines(e, lines) })
		e.Field("itemCount", func(e *jx.Encoder) { e.Int(units) })
		e.Field("total", func(e *jx.Encoder) { encodeMoney(e, cart.Total(lines)) })
	})
}

func (h *Handler) encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("cartId", func(e *jx.Encoder) { e.Str(o.CartID) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("paymentRef", func(e *jx.Encoder) { e.Str(o.PaymentRef) })
		e.Field("lines", func(e *jx.Encoder) { h.encodeLines(e, o.Lines) })
		e.Field("total", func(e *jx.Encoder) { encodeMoney(e, o.Total) })
		e.Field("createdAt", func(e *jx.Encoder) { e.Str(o.CreatedAt.UTC().Format(time.RFC3339)) })
	})
}
