package postgres

import (
	"context"
	"fmt"
)

// ActiveSymbols returns the tickers flagged active in the registry, in table
// order. When only is non-empty the result is restricted to that ticker.
func (p *PostgresClient) ActiveSymbols(ctx context.Context, only string) ([]string, error) {
	q := p.DB.WithContext(ctx).
		Model(&SymbolRecord{}).
		Where("is_active = ?", true).
		Order("id")

	if only != "" {
		q = q.Where("ticker = ?", only)
	}

	var tickers []string
	if err := q.Pluck("ticker", &tickers).Error; err != nil {
		return nil, fmt.Errorf("query active symbols: %w", err)
	}

	return tickers, nil
}

// UpsertSymbol registers a ticker, activating it if it already exists.
// Used by operational tooling, not by the ingestion pipeline itself.
func (p *PostgresClient) UpsertSymbol(ctx context.Context, ticker, name string) error {
	rec := SymbolRecord{Ticker: ticker, Name: name, IsActive: true}
	err := p.DB.WithContext(ctx).
		Where("ticker = ?", ticker).
		Assign(map[string]any{"name": name, "is_active": true}).
		FirstOrCreate(&rec).Error
	if err != nil {
		return fmt.Errorf("upsert symbol %s: %w", ticker, err)
	}
	return nil
}
