package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"stockfeed/pkg/storage/postgres"

	"go.uber.org/zap"
)

// testClient connects to the database named by STOCKFEED_TEST_DSN and runs
// migrations. Tests that need a live database are skipped when it is unset.
func testClient(t *testing.T) *postgres.PostgresClient {
	t.Helper()

	dsn := os.Getenv("STOCKFEED_TEST_DSN")
	if dsn == "" {
		t.Skip("STOCKFEED_TEST_DSN not set, skipping DB-backed test")
	}

	client, err := postgres.NewClient(dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to connect to DB: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	if err := client.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return client
}

// go test -v --run ^TestPostgresInvalidDSN$
func TestPostgresInvalidDSN(t *testing.T) {
	invalidDSN := "host=invalid port=5432 user=fail password=fail dbname=fail sslmode=disable"

	_, err := postgres.NewClient(invalidDSN, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for invalid DSN, got nil")
	}
}

// go test -v --run ^TestPostgresHealthy$
func TestPostgresHealthy(t *testing.T) {
	client := testClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if !client.IsHealthy(ctx) {
		t.Fatal("expected healthy DB connection")
	}
}
