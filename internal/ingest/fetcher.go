package ingest

import (
	"context"
	"time"

	"stockfeed/config"

	"go.uber.org/zap"
)

// RangeFetcher wraps the external market data provider with bounded retry.
// Every failure is retried the same way; the design deliberately does not
// classify transient vs permanent provider errors.
type RangeFetcher struct {
	provider   BarProvider
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	sleep func(time.Duration) // replaced in tests
}

func NewRangeFetcher(provider BarProvider, cfg config.IngestConfig, logger *zap.Logger) *RangeFetcher {
	return &RangeFetcher{
		provider:   provider,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
		sleep:      time.Sleep,
	}
}

// Fetch requests 1-minute bars for symbol over rng. It makes at most
// 1+maxRetries provider calls, sleeping retryDelay between attempts, and
// returns a *FetchError once all attempts are exhausted. A zero-bar response
// is a valid success (non-trading period).
func (f *RangeFetcher) Fetch(ctx context.Context, symbol string, rng TimeRange) ([]PriceBar, error) {
	attempts := 1 + f.maxRetries

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		bars, err := f.provider.GetBars(ctx, symbol, rng.Start, rng.End)
		if err == nil {
			f.logger.Info("fetched bars",
				zap.String("symbol", symbol),
				zap.Stringer("range", rng),
				zap.Int("attempt", attempt),
				zap.Int("bars", len(bars)),
			)
			return bars, nil
		}

		lastErr = err
		f.logger.Warn("fetch attempt failed",
			zap.String("symbol", symbol),
			zap.Stringer("range", rng),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)

		if attempt < attempts {
			f.sleep(f.retryDelay)
		}
	}

	f.logger.Error("all fetch attempts exhausted",
		zap.String("symbol", symbol),
		zap.Stringer("range", rng),
		zap.Int("attempts", attempts),
	)

	return nil, &FetchError{Symbol: symbol, Range: rng, Attempts: attempts, Err: lastErr}
}
