// Package app wires the storefront API server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/mbjj-storefront/internal/domain/cart"
	"github.com/xenking/mbjj-storefront/internal/domain/order"
	"github.com/xenking/mbjj-storefront/internal/domain/payment"
	"github.com/xenking/mbjj-storefront/internal/domain/productview"
	"github.com/xenking/mbjj-storefront/internal/handler"
	"github.com/xenking/mbjj-storefront/internal/storage/memory"
	"github.com/xenking/mbjj-storefront/pkg/health"
	"github.com/xenking/mbjj-storefront/pkg/httpmiddleware"
)

const serviceName = "storefront-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	clock := clockwork.NewRealClock()

	// Health check service.
	healthSvc := health.New(clock)
	healthSvc.Add(health.Liveness, "runtime", time.Second, health.RuntimeCheck(10000, 0))

	// Catalog: PostgreSQL or in-memory document.
	src, err := openCatalog(ctx, lg, cfg, healthSvc)
	if err != nil {
		return err
	}
	defer src.close()

	// Domain services.
	carts := cart.NewRegistry(clock)
	views := productview.NewRegistry(src.repo, carts, productview.Options{
		Clock:           clock,
		ConfirmationTTL: cfg.View.ConfirmationTTL,
		Logger:          lg.Named("views"),
	})
	views.StartJanitor(ctx, cfg.View.SweepInterval, cfg.View.IdleTimeout)

	orderService, err := order.NewService(
		carts,
		payment.NewSimulator(clock, cfg.Payment.Delay),
		memory.NewOrderRepository(),
		clock,
		m.TracerProvider(),
		m.MeterProvider(),
	)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	// HTTP handlers.
	h, err := handler.New(
		handler.Config{ImageBaseURL: cfg.ImageBaseURL, ShopPath: cfg.ShopPath},
		src.repo,
		carts,
		views,
		orderService,
		m.MeterProvider(),
	)
	if err != nil {
		return errors.Wrap(err, "create handler")
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		// Checkout waits for the simulated payment.
		WriteTimeout:   10*time.Second + cfg.Payment.Delay,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Addr:           cfg.Addr,
		Handler:        newServerHandler(ctx, cfg, clock, m.TracerProvider(), m.MeterProvider(), healthSvc, h),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	// Graceful shutdown: wait for context cancellation, drain, then stop.
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		views.CloseAll()
		healthSvc.Stop()
		return nil
	})
	return g.Wait()
}

// newServerHandler builds the full HTTP stack: probes and API on a chi router
// behind the outer middleware chain. Instrumentation and request logging run
// inside chi so the matched route pattern is available.
func newServerHandler(
	ctx context.Context,
	cfg *Config,
	clock clockwork.Clock,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
	hs *health.Health,
	h *handler.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		httpmiddleware.Instrument(serviceName, tp, mp),
		httpmiddleware.LogRequests(),
	)
	r.Get("/livez", hs.LiveEndpoint)
	r.Get("/readyz", hs.ReadyEndpoint)
	r.Route("/api", h.Routes)

	return httpmiddleware.Wrap(r,
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.RequestID(),
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
			ExposeHeaders:    []string{"Location", httpmiddleware.RequestIDHeader},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
			Clock:  clock,
		}),
	)
}
