package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/mbjj-storefront/internal/domain/productview"
)

// openView creates a product view. A missing product answers with the
// not-found fallback and keeps no session.
func (h *Handler) openView(w http.ResponseWriter, r *http.Request) {
	req, err := decodeOpenView(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	v, state, err := h.views.Open(r.Context(), req.ProductID, req.CartID)
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "open view"))
		return
	}
	if v == nil {
		h.writeProductNotFound(w, state.RequestedID)
		return
	}

	var e jx.Encoder
	h.encodeView(&e, v, state, nil)
	w.Header().Set("Location", "/api/views/"+v.ID)
	writeJSON(w, http.StatusCreated, &e)
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request) (*productview.View, bool) {
	v, err := h.views.Get(chi.URLParam(r, "viewID"))
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return v, true
}

func (h *Handler) getView(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	var e jx.Encoder
	h.encodeView(&e, v, v.Visit(), nil)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) closeView(w http.ResponseWriter, r *http.Request) {
	if err := h.views.Close(chi.URLParam(r, "viewID")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setImage(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	index, err := decodeInt(w, r, "index")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondApplied(w, r, v, "image", v.SetImageIndex(index))
}

func (h *Handler) setQuantity(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	quantity, err := decodeInt(w, r, "quantity")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondApplied(w, r, v, "quantity", v.SetQuantity(quantity))
}

func (h *Handler) selectVariant(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	req, err := decodeVariant(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	applied := true
	if req.Size != nil {
		applied = v.SelectSize(*req.Size) && applied
	}
	if req.Color != nil {
		applied = v.SelectColor(*req.Color) && applied
	}
	h.respondApplied(w, r, v, "variant", applied)
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}

	added, err := v.AddToCart(r.Context())
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "add to cart"))
		return
	}
	if added > 0 {
		h.cartAdditions.Add(r.Context(), int64(added),
			metric.WithAttributes(attribute.String("product.category", v.State().Product.Category)),
		)
	}
	h.respondApplied(w, r, v, "cart", added > 0)
}

// respondApplied answers 200 with the current state. Rejected operations are
// not errors; they are logged and counted.
func (h *Handler) respondApplied(w http.ResponseWriter, r *http.Request, v *productview.View, op string, applied bool) {
	if !applied {
		zctx.From(r.Context()).Debug("View operation ignored",
			zap.String("view_id", v.ID),
			zap.String("op", op),
		)
		h.rejected.Add(r.Context(), 1, metric.WithAttributes(attribute.String("op", op)))
	}

	var e jx.Encoder
	h.encodeView(&e, v, v.State(), &applied)
	writeJSON(w, http.StatusOK, &e)
}
