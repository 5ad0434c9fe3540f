package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MinBarsPerDay is the coverage threshold for a calendar day. A full trading
// day carries around 300 one-minute bars (two sessions of 150 minutes); a day
// with fewer stored bars than this is treated as under-covered and re-fetched.
// Holidays naturally sit at zero and are re-checked every run.
const MinBarsPerDay = 200

// PriceBar is a single 1-minute OHLCV observation. The (Symbol, Timestamp)
// pair is the identity used for idempotent writes; a bar is never mutated
// after creation.
type PriceBar struct {
	Symbol    string
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    int64
}

// TimeRange is a half-open interval [Start, End). It doubles as the fetch
// request unit and the gap descriptor.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
}

// Gap is a contiguous sub-range of a window that is missing or
// under-populated in storage. Adjacent under-covered calendar days are merged
// into one Gap to minimize provider calls.
type Gap = TimeRange

// DayCount is the stored bar count for one calendar day of one symbol.
// Detector input only, never persisted on its own.
type DayCount struct {
	Day   time.Time
	Count int
}

// BarProvider is the external market data capability: 1-minute bars for a
// symbol over a half-open time range. A response with zero bars is a valid
// success (non-trading period).
type BarProvider interface {
	GetBars(ctx context.Context, symbol string, start, end time.Time) ([]PriceBar, error)
}

// BarStore is the persistence capability consumed by the pipeline.
type BarStore interface {
	// CountBarsPerDay returns per-calendar-day stored bar counts for the
	// symbol within [start, end), as one aggregate query. Days with no rows
	// are simply absent from the result.
	CountBarsPerDay(ctx context.Context, symbol string, start, end time.Time) ([]DayCount, error)
	// BulkInsertBars persists a batch idempotently, skipping rows whose
	// (symbol, timestamp) already exists, and returns the number of rows
	// actually inserted. The batch is transactionally atomic.
	BulkInsertBars(ctx context.Context, bars []PriceBar) (int, error)
}

// SymbolRegistry yields the set of active instruments to ingest. When only
// is non-empty the result is filtered to that single symbol.
type SymbolRegistry interface {
	ActiveSymbols(ctx context.Context, only string) ([]string, error)
}
