package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/mbjj-storefront/internal/domain/cart"
	"github.com/xenking/mbjj-storefront/internal/domain/order"
	"github.com/xenking/mbjj-storefront/internal/domain/payment"
	"github.com/xenking/mbjj-storefront/internal/domain/productview"
	"github.com/xenking/mbjj-storefront/internal/handler"
	"github.com/xenking/mbjj-storefront/internal/storage/memory"
	"github.com/xenking/mbjj-storefront/pkg/health"
	"github.com/xenking/mbjj-storefront/pkg/httpmiddleware"
)

// --- Helpers ---

func testConfig() *Config {
	return &Config{
		ShopPath: "/shop",
		CORS:     CORSConfig{Origins: []string{"*"}},
	}
}

// startServer wires the full HTTP stack the way Run does, without telemetry
// exporters or the listener lifecycle.
func startServer(t *testing.T, cfg *Config) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	clock := clockwork.NewFakeClock()

	hs := health.New(clock)
	src, err := openCatalog(ctx, zap.NewNop(), cfg, hs)
	require.NoError(t, err)
	t.Cleanup(src.close)
	hs.SetReady(true)

	carts := cart.NewRegistry(clock)
	views := productview.NewRegistry(src.repo, carts, productview.Options{Clock: clock})
	t.Cleanup(views.CloseAll)

	orders, err := order.NewService(
		carts,
		payment.NewSimulator(clock, 0),
		memory.NewOrderRepository(),
		clock,
		tracenoop.NewTracerProvider(),
		metricnoop.NewMeterProvider(),
	)
	require.NoError(t, err)

	h, err := handler.New(handler.Config{ShopPath: cfg.ShopPath}, src.repo, carts, views, orders, metricnoop.NewMeterProvider())
	require.NoError(t, err)

	srv := httptest.NewServer(newServerHandler(ctx, cfg, clock,
		tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider(), hs, h))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, srv.URL+path, rd)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]any{}
	switch {
	case len(data) == 0:
	case data[0] == '[':
		var items []any
		require.NoError(t, json.Unmarshal(data, &items))
		out["items"] = items
	default:
		require.NoError(t, json.Unmarshal(data, &out), string(data))
	}
	return resp, out
}

// checkPurchaseFlow walks the bundled catalog from listing to a paid order.
func checkPurchaseFlow(t *testing.T, srv *httptest.Server) {
	t.Helper()

	resp, _ := call(t, srv, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := call(t, srv, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["items"], 10)

	resp, body = call(t, srv, http.MethodGet, "/api/products/unknown-gi", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "/shop", body["backTo"])

	resp, view := call(t, srv, http.MethodPost, "/api/views", `{"productId":"premium-belt"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, view)
	assert.NotEmpty(t, resp.Header.Get(httpmiddleware.RequestIDHeader))
	viewPath := "/api/views/" + view["id"].(string)
	cartID := view["cartId"].(string)

	resp, body = call(t, srv, http.MethodPut, viewPath+"/quantity", `{"quantity":2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["applied"])

	resp, body = call(t, srv, http.MethodPut, viewPath+"/variant", `{"size":"A2","color":"purple"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["selection"].(map[string]any)["matches"])

	resp, body = call(t, srv, http.MethodPost, viewPath+"/cart", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["applied"])
	assert.Equal(t, true, body["confirmed"])

	resp, o := call(t, srv, http.MethodPost, "/api/carts/"+cartID+"/checkout", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode, o)
	assert.Equal(t, "paid", o["status"])
	assert.InDelta(t, 49.0, o["total"], 0.001)

	resp, body = call(t, srv, http.MethodGet, "/api/orders/"+o["id"].(string), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, cartID, body["cartId"])

	resp, _ = call(t, srv, http.MethodDelete, viewPath, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

// --- Tests ---

func TestServer_PurchaseFlow(t *testing.T) {
	checkPurchaseFlow(t, startServer(t, testConfig()))
}

func TestServer_Probes(t *testing.T) {
	srv := startServer(t, testConfig())

	resp, body := call(t, srv, http.MethodGet, "/livez", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestServer_CORSPreflight(t *testing.T) {
	srv := startServer(t, testConfig())

	req, err := http.NewRequestWithContext(context.Background(), http.MethodOptions, srv.URL+"/api/views", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = RateLimitConfig{Max: 2, Window: time.Minute}
	srv := startServer(t, cfg)

	for range 2 {
		resp, _ := call(t, srv, http.MethodGet, "/livez", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, _ := call(t, srv, http.MethodGet, "/livez", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}
