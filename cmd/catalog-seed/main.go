// Command catalog-seed loads a catalog document into PostgreSQL.
package main

import (
	"bytes"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/mbjj-storefront/db"
	"github.com/xenking/mbjj-storefront/internal/catalog"
	"github.com/xenking/mbjj-storefront/internal/domain/product"
	"github.com/xenking/mbjj-storefront/internal/storage/postgres"
)

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "", "catalog JSON document, .gz allowed (default: bundled catalog)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

// run parses the document while the database is being prepared, then
// upserts every product.
func run(ctx context.Context, databaseURL, productsFile string) error {
	var (
		products []product.Product
		pool     *pgxpool.Pool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = readProducts(productsFile)
		return err
	})
	g.Go(func() error {
		slog.Info("connecting to database")

		var err error
		pool, err = postgres.NewPool(gctx, databaseURL)
		if err != nil {
			return errors.Wrap(err, "connect to database")
		}

		slog.Info("running migrations")
		return postgres.RunMigrations(gctx, pool)
	})
	err := g.Wait()
	if pool != nil {
		defer pool.Close()
	}
	if err != nil {
		return err
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	if err := postgres.NewProductRepository(pool).Upsert(ctx, products); err != nil {
		return errors.Wrap(err, "upsert products")
	}

	for _, p := range products {
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}
	return nil
}

func readProducts(path string) ([]product.Product, error) {
	if path == "" {
		slog.Info("reading bundled catalog")
		return catalog.Decode(bytes.NewReader(db.Catalog))
	}

	slog.Info("reading products file", slog.String("path", path))
	return catalog.ReadFile(path)
}
