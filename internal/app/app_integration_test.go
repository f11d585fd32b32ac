//go:build integration

package app

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/mbjj-storefront/db"
	"github.com/xenking/mbjj-storefront/internal/catalog"
	"github.com/xenking/mbjj-storefront/internal/storage/postgres"
)

// startSeededPostgres runs PostgreSQL in a container and loads the bundled
// catalog into it. It returns the connection URL.
func startSeededPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "storefront",
				"POSTGRES_PASSWORD": "storefront",
				"POSTGRES_DB":       "storefront",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	url := fmt.Sprintf("postgres://storefront:storefront@%s:%s/storefront?sslmode=disable", host, port.Port())

	pool, err := postgres.NewPool(ctx, url)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, postgres.RunMigrations(ctx, pool))

	products, err := catalog.Decode(bytes.NewReader(db.Catalog))
	require.NoError(t, err)
	require.NoError(t, postgres.NewProductRepository(pool).Upsert(ctx, products))

	return url
}

func TestServer_PurchaseFlowPostgres(t *testing.T) {
	cfg := testConfig()
	cfg.DatabaseURL = startSeededPostgres(t)

	checkPurchaseFlow(t, startServer(t, cfg))
}
