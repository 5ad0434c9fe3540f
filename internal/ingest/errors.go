package ingest

import (
	"fmt"
	"time"
)

// FetchError reports a provider call that failed after exhausting retries for
// one gap. It is recovered at the symbol level: the gap is skipped and the
// symbol's remaining gaps are still attempted.
type FetchError struct {
	Symbol   string
	Range    TimeRange
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %s failed after %d attempt(s): %v",
		e.Symbol, e.Range, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PersistenceError reports a store-level write failure for one gap's batch.
// When the offending record could be pinpointed it is attached as Bar.
type PersistenceError struct {
	Symbol string
	Bar    *PriceBar
	Err    error
}

func (e *PersistenceError) Error() string {
	if e.Bar != nil {
		return fmt.Sprintf("persist %s failed at bar %s: %v",
			e.Symbol, e.Bar.Timestamp.Format(time.RFC3339), e.Err)
	}
	return fmt.Sprintf("persist %s failed: %v", e.Symbol, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
