package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// GapDetector inspects stored coverage for a symbol and computes the minimal
// set of contiguous sub-ranges of a window that must be (re)fetched.
type GapDetector struct {
	store  BarStore
	logger *zap.Logger
}

func NewGapDetector(store BarStore, logger *zap.Logger) *GapDetector {
	return &GapDetector{store: store, logger: logger}
}

// DetectGaps returns the under-covered portions of window for symbol, ordered
// oldest to newest, non-overlapping. Consecutive under-covered calendar days
// are merged into one Gap; gaps are clamped to the window bounds. An empty
// result means the window is fully covered. Absence of data is a valid
// coverage state, not an error: the only failure mode is the aggregate query
// itself.
func (d *GapDetector) DetectGaps(ctx context.Context, symbol string, window TimeRange) ([]Gap, error) {
	counts, err := d.store.CountBarsPerDay(ctx, symbol, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("count bars per day for %s: %w", symbol, err)
	}

	loc := window.Start.Location()
	byDay := make(map[string]int, len(counts))
	for _, dc := range counts {
		byDay[dc.Day.In(loc).Format("2006-01-02")] = dc.Count
	}

	var gaps []Gap
	var open *Gap // accumulation of consecutive under-covered days

	for day := startOfDay(window.Start); day.Before(window.End); day = day.AddDate(0, 0, 1) {
		count := byDay[day.Format("2006-01-02")]
		if count >= MinBarsPerDay {
			if open != nil {
				gaps = append(gaps, *open)
				open = nil
			}
			continue
		}

		if count > 0 {
			d.logger.Info("day under coverage threshold, will re-fetch",
				zap.String("symbol", symbol),
				zap.String("day", day.Format("2006-01-02")),
				zap.Int("count", count),
				zap.Int("threshold", MinBarsPerDay),
			)
		}

		next := day.AddDate(0, 0, 1)
		if open == nil {
			open = &Gap{Start: maxTime(day, window.Start), End: minTime(next, window.End)}
		} else {
			open.End = minTime(next, window.End)
		}
	}

	if open != nil {
		gaps = append(gaps, *open)
	}

	return gaps, nil
}

// startOfDay truncates t to midnight in its own location.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
