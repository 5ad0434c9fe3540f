package postgres

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceBarRecord is one stored 1-minute OHLCV bar. The (symbol,
// price_datetime) pair carries the unique constraint used for idempotent
// conflict-skip inserts; rows are never updated or deleted by the pipeline.
type PriceBarRecord struct {
	ID uint64 `gorm:"primaryKey"`

	// unique index
	Symbol        string    `gorm:"type:varchar(20);not null;index:idx_price_bars_symbol;index:idx_price_bars_symbol_datetime,unique"`
	PriceDatetime time.Time `gorm:"not null;index:idx_price_bars_datetime;index:idx_price_bars_symbol_datetime,unique"`

	Open  decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	High  decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Low   decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Close decimal.Decimal `gorm:"type:numeric(10,2);not null"`

	Volume int64 `gorm:"type:bigint;not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (PriceBarRecord) TableName() string {
	return "price_bars_1m"
}

// SymbolRecord is one instrument in the registry. Only rows with IsActive set
// are considered by the ingestion run.
type SymbolRecord struct {
	ID uint64 `gorm:"primaryKey"`

	Ticker   string `gorm:"type:varchar(20);not null;uniqueIndex:idx_symbols_ticker"`
	Name     string `gorm:"type:varchar(200)"`
	IsActive bool   `gorm:"not null;default:true;index:idx_symbols_is_active"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides the default table name for GORM.
func (SymbolRecord) TableName() string {
	return "symbols"
}
