package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stockfeed/config"

	"go.uber.org/zap"
)

// SymbolStatus is the terminal per-symbol outcome of a run.
type SymbolStatus string

const (
	// StatusSuccess means every gap of the symbol was processed.
	StatusSuccess SymbolStatus = "success"
	// StatusPartial means some gaps failed while at least one succeeded.
	StatusPartial SymbolStatus = "partial"
	// StatusFailed means every attempted gap failed and nothing was imported.
	StatusFailed SymbolStatus = "failed"
)

// SymbolResult summarizes one symbol's processing.
type SymbolResult struct {
	Symbol     string
	Status     SymbolStatus
	Gaps       int
	GapsFailed int
	Imported   int
}

// Summary is the outcome of a whole ingestion run. Failures below the
// orchestrator never abort the run; they surface here and in the logs.
type Summary struct {
	Window  TimeRange
	DryRun  bool
	Results []SymbolResult
}

// Imported returns the total number of bars imported (or, in dry-run mode,
// that would have been imported) across all symbols.
func (s *Summary) Imported() int {
	total := 0
	for _, r := range s.Results {
		total += r.Imported
	}
	return total
}

// FailedSymbols returns how many symbols ended in StatusFailed.
func (s *Summary) FailedSymbols() int {
	n := 0
	for _, r := range s.Results {
		if r.Status == StatusFailed {
			n++
		}
	}
	return n
}

// Options control a single ingestion run.
type Options struct {
	Symbol       string // restrict the run to one symbol; empty = all active
	LookbackDays int    // 0 = use the configured default
	DryRun       bool   // fetch and report, skip persistence
}

// Orchestrator drives the per-symbol pipeline: resolve window, detect gaps,
// fetch each gap, persist, and keep going even when one symbol fails.
type Orchestrator struct {
	registry SymbolRegistry
	detector *GapDetector
	fetcher  *RangeFetcher
	store    BarStore
	cfg      config.IngestConfig
	logger   *zap.Logger

	now func() time.Time // replaced in tests
}

func NewOrchestrator(
	registry SymbolRegistry,
	detector *GapDetector,
	fetcher *RangeFetcher,
	store BarStore,
	cfg config.IngestConfig,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		detector: detector,
		fetcher:  fetcher,
		store:    store,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Run ingests the trailing lookback window for every active symbol. Symbols
// are processed in registry order; with Concurrency > 1 they run in a bounded
// pool, but each symbol's own gaps stay strictly ordered inside its task.
// Run only errors when the symbol set itself cannot be resolved; per-symbol
// failures are contained and reported through the Summary.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Summary, error) {
	days := opts.LookbackDays
	if days <= 0 {
		days = o.cfg.LookbackDays
	}

	end := o.now()
	window := TimeRange{Start: startOfDay(end.AddDate(0, 0, -days)), End: end}

	symbols, err := o.registry.ActiveSymbols(ctx, opts.Symbol)
	if err != nil {
		return nil, fmt.Errorf("resolve active symbols: %w", err)
	}

	o.logger.Info("ingestion run started",
		zap.Int("symbols", len(symbols)),
		zap.Stringer("window", window),
		zap.Bool("dry_run", opts.DryRun),
	)

	summary := &Summary{
		Window:  window,
		DryRun:  opts.DryRun,
		Results: make([]SymbolResult, len(symbols)),
	}

	workers := o.cfg.Concurrency
	if workers < 1 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, symbol := range symbols {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			defer func() { <-sem }()
			summary.Results[i] = o.processSymbol(ctx, symbol, window, opts.DryRun)
		}(i, symbol)
	}
	wg.Wait()

	o.logger.Info("ingestion run completed",
		zap.Int("symbols", len(symbols)),
		zap.Int("failed_symbols", summary.FailedSymbols()),
		zap.Int("imported", summary.Imported()),
	)

	return summary, nil
}

// processSymbol runs the detect/fetch/persist loop for one symbol. Gaps are
// processed oldest to newest; a failed gap is logged and skipped, it never
// stops the remaining gaps.
func (o *Orchestrator) processSymbol(ctx context.Context, symbol string, window TimeRange, dryRun bool) SymbolResult {
	res := SymbolResult{Symbol: symbol, Status: StatusSuccess}

	gaps, err := o.detector.DetectGaps(ctx, symbol, window)
	if err != nil {
		o.logger.Error("gap detection failed",
			zap.String("symbol", symbol),
			zap.Stringer("window", window),
			zap.Error(err),
		)
		res.Status = StatusFailed
		return res
	}

	if len(gaps) == 0 {
		o.logger.Info("window fully covered, nothing to fetch", zap.String("symbol", symbol))
		return res
	}

	o.logger.Info("gaps detected",
		zap.String("symbol", symbol),
		zap.Int("gaps", len(gaps)),
	)

	res.Gaps = len(gaps)
	succeeded := 0

	for _, gap := range gaps {
		bars, err := o.fetcher.Fetch(ctx, symbol, gap)
		if err != nil {
			o.logger.Error("gap fetch failed",
				zap.String("symbol", symbol),
				zap.Stringer("gap", gap),
				zap.Error(err),
			)
			res.GapsFailed++
			continue
		}

		if len(bars) == 0 {
			o.logger.Warn("no bars returned for gap",
				zap.String("symbol", symbol),
				zap.Stringer("gap", gap),
			)
			succeeded++
			continue
		}

		if dryRun {
			o.logger.Info("dry run, skipping persistence",
				zap.String("symbol", symbol),
				zap.Stringer("gap", gap),
				zap.Int("bars", len(bars)),
			)
			res.Imported += len(bars)
			succeeded++
			continue
		}

		inserted, err := o.store.BulkInsertBars(ctx, bars)
		if err != nil {
			o.logger.Error("gap persistence failed",
				zap.String("symbol", symbol),
				zap.Stringer("gap", gap),
				zap.Error(err),
			)
			res.GapsFailed++
			continue
		}

		o.logger.Info("gap imported",
			zap.String("symbol", symbol),
			zap.Stringer("gap", gap),
			zap.Int("imported", inserted),
		)
		res.Imported += inserted
		succeeded++
	}

	switch {
	case res.GapsFailed == 0:
		res.Status = StatusSuccess
	case succeeded > 0:
		res.Status = StatusPartial
	default:
		res.Status = StatusFailed
	}

	o.logger.Info("symbol completed",
		zap.String("symbol", symbol),
		zap.String("status", string(res.Status)),
		zap.Int("imported", res.Imported),
	)

	return res
}
