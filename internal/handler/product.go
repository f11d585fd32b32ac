package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/mbjj-storefront/internal/domain/product"
	"github.com/xenking/mbjj-storefront/internal/domain/variant"
)

// listProducts returns the catalog, optionally filtered by ?category=.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []product.Product
		err      error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		products, err = h.products.ListByCategory(r.Context(), category)
	} else {
		products, err = h.products.List(r.Context())
	}
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "list products"))
		return
	}

	var e jx.Encoder
	h.encodeProducts(&e, products)
	writeJSON(w, http.StatusOK, &e)
}

// getProduct returns a product with its option sets and related products.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "productID")

	p, err := h.products.GetByID(ctx, id)
	if errors.Is(err, product.ErrNotFound) {
		h.writeProductNotFound(w, id)
		return
	}
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "get product"))
		return
	}

	sameCategory, err := h.products.ListByCategory(ctx, p.Category)
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "list related"))
		return
	}
	related := product.Related(sameCategory, *p, product.RelatedLimit)
	options := variant.NewResolver(p.Variants)

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("product", func(e *jx.Encoder) { h.encodeProduct(e, *p) })
		e.Field("sizes", func(e *jx.Encoder) { encodeStrings(e, options.AvailableSizes()) })
		e.Field("colors", func(e *jx.Encoder) { encodeStrings(e, options.AvailableColors()) })
		e.Field("related", func(e *jx.Encoder) { h.encodeProducts(e, related) })
	})
	writeJSON(w, http.StatusOK, &e)
}
