// Package handler exposes the storefront over HTTP: catalog browsing, product
// views, carts and checkout.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/mbjj-storefront/internal/domain/cart"
	"github.com/xenking/mbjj-storefront/internal/domain/order"
	"github.com/xenking/mbjj-storefront/internal/domain/product"
	"github.com/xenking/mbjj-storefront/internal/domain/productview"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to image paths in responses.
	ImageBaseURL string
	// ShopPath is the listing page linked from not-found responses.
	ShopPath string
}

// Handler serves the /api routes.
type Handler struct {
	products product.Repository
	carts    *cart.Registry
	views    *productview.Registry
	orders   *order.Service

	imageBaseURL string
	shopPath     string

	cartAdditions metric.Int64Counter
	rejected      metric.Int64Counter
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	products product.Repository,
	carts *cart.Registry,
	views *productview.Registry,
	orders *order.Service,
	mp metric.MeterProvider,
) (*Handler, error) {
	meter := mp.Meter("storefront/handler")

	cartAdditions, err := meter.Int64Counter("storefront.cart.additions",
		metric.WithDescription("Units added to carts from product views"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create cart additions counter")
	}
	rejected, err := meter.Int64Counter("storefront.view.rejected_operations",
		metric.WithDescription("View operations ignored because they were invalid"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create rejected operations counter")
	}

	shopPath := cfg.ShopPath
	if shopPath == "" {
		shopPath = "/shop"
	}
	return &Handler{
		products:      products,
		carts:         carts,
		views:         views,
		orders:        orders,
		imageBaseURL:  cfg.ImageBaseURL,
		shopPath:      shopPath,
		cartAdditions: cartAdditions,
		rejected:      rejected,
	}, nil
}

// Routes registers the API on r. Mount it under /api.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Get("/{productID}", h.getProduct)
	})
	r.Route("/views", func(r chi.Router) {
		r.Post("/", h.openView)
		r.Route("/{viewID}", func(r chi.Router) {
			r.Get("/", h.getView)
			r.Delete("/", h.closeView)
			r.Put("/image", h.setImage)
			r.Put("/quantity", h.setQuantity)
			r.Put("/variant", h.selectVariant)
			r.Post("/cart", h.addToCart)
		})
	})
	r.Route("/carts/{cartID}", func(r chi.Router) {
		r.Get("/", h.getCart)
		r.Delete("/", h.clearCart)
		r.Delete("/items/{productID}", h.removeCartItem)
		r.Post("/checkout", h.checkout)
	})
	r.Get("/orders/{orderID}", h.getOrder)
}

// writeJSON writes the encoder contents with the given status.
func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(status) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
	})
	writeJSON(w, status, &e)
}

// writeProductNotFound renders the not-found fallback with a link back to
// the listing.
func (h *Handler) writeProductNotFound(w http.ResponseWriter, productID string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(http.StatusNotFound) })
		e.Field("message", func(e *jx.Encoder) { e.Str("product not found") })
		e.Field("productId", func(e *jx.Encoder) { e.Str(productID) })
		e.Field("backTo", func(e *jx.Encoder) { e.Str(h.shopPath) })
	})
	writeJSON(w, http.StatusNotFound, &e)
}

// fail maps domain errors to responses. Anything unknown is logged and
// answered with 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, productview.ErrViewNotFound):
		writeError(w, http.StatusNotFound, "view not found")
	case errors.Is(err, cart.ErrNotFound):
		writeError(w, http.StatusNotFound, "cart not found")
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, order.ErrEmptyCart):
		writeError(w, http.StatusUnprocessableEntity, "cart is empty")
	case errors.Is(err, order.ErrCheckoutInProgress):
		writeError(w, http.StatusConflict, "checkout already in progress")
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
