package pgbulk_test

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/fwojciec/pgbulk"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// isolatedTest creates a test environment with an isolated schema and
// returns a pool whose search path points at it.
func isolatedTest(t *testing.T, setupSQL string) (*pgbulk.Pool, string) {
	t.Helper()

	// Get test database URL
	dbURL := getDatabaseURL(t)

	// Create admin connection
	ctx := context.Background()
	adminPool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)

	// Create isolated schema with timestamp and random number
	schemaName := fmt.Sprintf("test_%d_%d", time.Now().UnixNano(), rand.Intn(10000))
	_, err = adminPool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA %s", schemaName))
	require.NoError(t, err)

	// Create pool with schema search path
	poolConfig, err := pgxpool.ParseConfig(dbURL)
	require.NoError(t, err)
	poolConfig.ConnConfig.RuntimeParams["search_path"] = schemaName

	pgxPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err)

	// Run setup SQL if provided
	if setupSQL != "" {
		_, err = pgxPool.Exec(ctx, setupSQL)
		require.NoError(t, err)
	}

	pool, err := pgbulk.NewPool(ctx, "", pgbulk.WithExistingPool(pgxPool))
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
		pgxPool.Close()
		_, _ = adminPool.Exec(ctx, fmt.Sprintf("DROP SCHEMA %s CASCADE", schemaName))
		adminPool.Close()
	})

	return pool, schemaName
}

// getDatabaseURL returns the test database connection string
func getDatabaseURL(t *testing.T) string {
	t.Helper()

	// Check for environment variable first
	if dbURL := os.Getenv("TEST_DATABASE_URL"); dbURL != "" {
		return dbURL
	}

	// Skip test if no database URL is available
	t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	return ""
}

// countRows returns the number of rows in table
func countRows(t *testing.T, pool *pgbulk.Pool, table string) int64 {
	t.Helper()
	var n int64
	err := pool.Pgx().QueryRow(context.Background(), "SELECT count(*) FROM "+table).Scan(&n)
	require.NoError(t, err)
	return n
}
