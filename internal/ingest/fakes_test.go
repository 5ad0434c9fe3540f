package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// memStore is an in-memory BarStore double with the same conflict-skip
// semantics as the real postgres store: rows are keyed by (symbol, timestamp)
// and a failing batch stores nothing.
type memStore struct {
	mu        sync.Mutex
	bars      map[string]map[int64]PriceBar // symbol -> unix ts -> bar
	countErr  error
	insertErr map[string]error // per-symbol forced batch failure
}

func newMemStore() *memStore {
	return &memStore{
		bars:      make(map[string]map[int64]PriceBar),
		insertErr: make(map[string]error),
	}
}

func (m *memStore) CountBarsPerDay(_ context.Context, symbol string, start, end time.Time) ([]DayCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.countErr != nil {
		return nil, m.countErr
	}

	loc := start.Location()
	byDay := make(map[time.Time]int)
	for _, bar := range m.bars[symbol] {
		ts := bar.Timestamp.In(loc)
		if ts.Before(start) || !ts.Before(end) {
			continue
		}
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, loc)
		byDay[day]++
	}

	var out []DayCount
	for day, count := range byDay {
		out = append(out, DayCount{Day: day, Count: count})
	}
	return out, nil
}

func (m *memStore) BulkInsertBars(_ context.Context, bars []PriceBar) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(bars) > 0 {
		if err := m.insertErr[bars[0].Symbol]; err != nil {
			return 0, err
		}
	}

	inserted := 0
	for _, bar := range bars {
		rows, ok := m.bars[bar.Symbol]
		if !ok {
			rows = make(map[int64]PriceBar)
			m.bars[bar.Symbol] = rows
		}
		key := bar.Timestamp.Unix()
		if _, exists := rows[key]; exists {
			continue
		}
		rows[key] = bar
		inserted++
	}
	return inserted, nil
}

// seedDay stores count synthetic bars for symbol starting at day midnight.
func (m *memStore) seedDay(symbol string, day time.Time, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.bars[symbol]
	if !ok {
		rows = make(map[int64]PriceBar)
		m.bars[symbol] = rows
	}
	for i := 0; i < count; i++ {
		ts := day.Add(time.Duration(i) * time.Minute)
		rows[ts.Unix()] = makeBar(symbol, ts)
	}
}

func (m *memStore) total(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bars[symbol])
}

// fakeProvider answers GetBars through a pluggable respond function and
// counts calls.
type fakeProvider struct {
	mu      sync.Mutex
	calls   int
	respond func(symbol string, start, end time.Time) ([]PriceBar, error)
}

func (p *fakeProvider) GetBars(_ context.Context, symbol string, start, end time.Time) ([]PriceBar, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.respond(symbol, start, end)
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeRegistry struct {
	symbols []string
	err     error
}

func (r *fakeRegistry) ActiveSymbols(_ context.Context, only string) ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	if only != "" {
		for _, s := range r.symbols {
			if s == only {
				return []string{s}, nil
			}
		}
		return nil, nil
	}
	return r.symbols, nil
}

func makeBar(symbol string, ts time.Time) PriceBar {
	price := decimal.NewFromInt(100)
	return PriceBar{
		Symbol:    symbol,
		Timestamp: ts,
		Open:      price,
		High:      price.Add(decimal.NewFromInt(1)),
		Low:       price.Sub(decimal.NewFromInt(1)),
		Close:     price,
		Volume:    1000,
	}
}

// makeBars generates n one-minute bars starting at start.
func makeBars(symbol string, start time.Time, n int) []PriceBar {
	bars := make([]PriceBar, n)
	for i := range bars {
		bars[i] = makeBar(symbol, start.Add(time.Duration(i)*time.Minute))
	}
	return bars
}

var errBoom = fmt.Errorf("boom")
