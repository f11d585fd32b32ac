package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(chi.URLParam(r, "cartID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var e jx.Encoder
	h.encodeCart(&e, c)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(chi.URLParam(r, "cartID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c.Remove(chi.URLParam(r, "productID"))

	var e jx.Encoder
	h.encodeCart(&e, c)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(chi.URLParam(r, "cartID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c.Clear()

	var e jx.Encoder
	h.encodeCart(&e, c)
	writeJSON(w, http.StatusOK, &e)
}

// checkout runs the simulated payment for the cart and returns the order.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Checkout(r.Context(), chi.URLParam(r, "cartID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	zctx.From(r.Context()).Info("Order paid",
		zap.String("order_id", o.ID),
		zap.String("cart_id", o.CartID),
		zap.String("total", o.Total.StringFixed(2)),
	)

	var e jx.Encoder
	h.encodeOrder(&e, o)
	w.Header().Set("Location", "/api/orders/"+o.ID)
	writeJSON(w, http.StatusCreated, &e)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var e jx.Encoder
	h.encodeOrder(&e, o)
	writeJSON(w, http.StatusOK, &e)
}
