package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"stockfeed/internal/ingest"
	"stockfeed/pkg/storage/postgres"

	"github.com/shopspring/decimal"
)

func testBars(symbol string, start time.Time, n int) []ingest.PriceBar {
	bars := make([]ingest.PriceBar, n)
	for i := range bars {
		price := decimal.NewFromInt(int64(4500 + i))
		bars[i] = ingest.PriceBar{
			Symbol:    symbol,
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open:      price,
			High:      price.Add(decimal.NewFromInt(2)),
			Low:       price.Sub(decimal.NewFromInt(2)),
			Close:     price.Add(decimal.NewFromInt(1)),
			Volume:    int64(1000 * (i + 1)),
		}
	}
	return bars
}

func cleanupBars(t *testing.T, client *postgres.PostgresClient, symbol string) {
	t.Helper()
	t.Cleanup(func() {
		client.DB.Where("symbol = ?", symbol).Delete(&postgres.PriceBarRecord{})
	})
}

// go test -v --run TestBulkInsertConflictSkip
func TestBulkInsertConflictSkip(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	symbol := "TEST_CONFLICT.T"
	cleanupBars(t, client, symbol)
	start := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	// Pre-insert the first 5 bars
	first, err := client.BulkInsertBars(ctx, testBars(symbol, start, 5))
	if err != nil {
		t.Fatalf("initial insert failed: %v", err)
	}
	if first != 5 {
		t.Fatalf("expected 5 inserted, got %d", first)
	}

	// Re-insert 10 bars, 5 of which overlap
	inserted, err := client.BulkInsertBars(ctx, testBars(symbol, start, 10))
	if err != nil {
		t.Fatalf("overlapping insert failed: %v", err)
	}
	if inserted != 5 {
		t.Errorf("expected 5 newly inserted, got %d", inserted)
	}

	var total int64
	client.DB.Model(&postgres.PriceBarRecord{}).Where("symbol = ?", symbol).Count(&total)
	if total != 10 {
		t.Errorf("expected 10 rows total, none duplicated, got %d", total)
	}
}

// go test -v --run TestBulkInsertEmptyBatch
func TestBulkInsertEmptyBatch(t *testing.T) {
	client := testClient(t)

	inserted, err := client.BulkInsertBars(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted != 0 {
		t.Errorf("expected 0 inserted, got %d", inserted)
	}
}

// go test -v --run TestBulkInsertMalformedValue
func TestBulkInsertMalformedValue(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	symbol := "TEST_MALFORMED.T"
	cleanupBars(t, client, symbol)
	start := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	bars := testBars(symbol, start, 4)
	// numeric(10,2) overflows at 1e8, making the third bar unstorable
	bars[2].Open = decimal.New(1, 12)

	_, err := client.BulkInsertBars(ctx, bars)

	var perr *ingest.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ingest.PersistenceError, got %v", err)
	}
	if perr.Bar == nil || !perr.Bar.Timestamp.Equal(bars[2].Timestamp) {
		t.Errorf("offending record not pinpointed: %+v", perr.Bar)
	}

	// the whole batch must have been rolled back
	var total int64
	client.DB.Model(&postgres.PriceBarRecord{}).Where("symbol = ?", symbol).Count(&total)
	if total != 0 {
		t.Errorf("expected no committed rows after failed batch, got %d", total)
	}
}

// go test -v --run TestCountBarsPerDay
func TestCountBarsPerDay(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	symbol := "TEST_COUNTS.T"
	cleanupBars(t, client, symbol)

	day1 := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)

	if _, err := client.BulkInsertBars(ctx, testBars(symbol, day1, 7)); err != nil {
		t.Fatalf("seed day1: %v", err)
	}
	if _, err := client.BulkInsertBars(ctx, testBars(symbol, day2, 3)); err != nil {
		t.Fatalf("seed day2: %v", err)
	}

	counts, err := client.CountBarsPerDay(ctx, symbol,
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("aggregate query failed: %v", err)
	}

	if len(counts) != 2 {
		t.Fatalf("expected 2 day buckets, got %d: %v", len(counts), counts)
	}
	if counts[0].Count != 7 || counts[1].Count != 3 {
		t.Errorf("unexpected counts: %v", counts)
	}
	if !counts[0].Day.Before(counts[1].Day) {
		t.Errorf("buckets must be ordered by day: %v", counts)
	}
}
