package app

import (
	"bytes"
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/mbjj-storefront/db"
	"github.com/xenking/mbjj-storefront/internal/catalog"
	"github.com/xenking/mbjj-storefront/internal/domain/product"
	"github.com/xenking/mbjj-storefront/internal/storage/memory"
	"github.com/xenking/mbjj-storefront/internal/storage/postgres"
	"github.com/xenking/mbjj-storefront/pkg/health"
)

// catalogSource is the product repository the server reads from and the
// function that releases it.
type catalogSource struct {
	repo  product.Repository
	close func()
}

// openCatalog connects to PostgreSQL when a database URL is configured and
// otherwise loads the catalog document into memory. Readiness checks for the
// chosen backend are registered on hs.
func openCatalog(ctx context.Context, lg *zap.Logger, cfg *Config, hs *health.Health) (*catalogSource, error) {
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}

		repo := postgres.NewProductRepository(pool)
		hs.Add(health.Readiness, "postgres", 5*time.Second, health.PingCheck(repo))
		hs.Add(health.Readiness, "catalog", 5*time.Second, health.CountCheck("products", 1, countProducts(repo)))

		lg.Info("Serving catalog from PostgreSQL")
		return &catalogSource{repo: repo, close: pool.Close}, nil
	}

	products, err := loadDocument(cfg.CatalogFile)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}
	repo, err := memory.NewCatalog(products)
	if err != nil {
		return nil, errors.Wrap(err, "build catalog")
	}
	hs.Add(health.Readiness, "catalog", time.Second, health.CountCheck("products", 1,
		func(context.Context) (int, error) { return repo.Len(), nil },
	))

	lg.Info("Serving catalog from memory",
		zap.String("file", cfg.CatalogFile),
		zap.Int("products", repo.Len()),
	)
	return &catalogSource{repo: repo, close: func() {}}, nil
}

// loadDocument reads path, or the bundled catalog when path is empty.
func loadDocument(path string) ([]product.Product, error) {
	if path == "" {
		return catalog.Decode(bytes.NewReader(db.Catalog))
	}
	return catalog.ReadFile(path)
}

func countProducts(repo product.Repository) func(ctx context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		products, err := repo.List(ctx)
		return len(products), err
	}
}
