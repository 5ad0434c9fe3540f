package postgres

import (
	"context"
	"errors"
	"time"

	"stockfeed/internal/ingest"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// errProbeRollback aborts a pinpoint probe transaction so the probe write is
// never committed.
var errProbeRollback = errors.New("rollback pinpoint probe")

func onConflictSkipBars() clause.OnConflict {
	return clause.OnConflict{
		Columns: []clause.Column{
			{Name: "symbol"},
			{Name: "price_datetime"},
		},
		DoNothing: true,
	}
}

// BulkInsertBars persists a batch of bars in one transaction with
// conflict-skip semantics: rows whose (symbol, price_datetime) already exists
// are silently skipped and the count of rows actually inserted is returned.
// When the batch fails for any other reason the transaction is rolled back as
// a whole and the offending record is pinpointed by re-running the rows one
// at a time, logged, and attached to the returned *ingest.PersistenceError.
func (p *PostgresClient) BulkInsertBars(ctx context.Context, bars []ingest.PriceBar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	records := make([]PriceBarRecord, len(bars))
	for i, bar := range bars {
		records[i] = toRecord(bar)
	}

	var inserted int64
	err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(onConflictSkipBars()).Create(&records)
		if res.Error != nil {
			return res.Error
		}
		inserted = res.RowsAffected
		return nil
	})
	if err != nil {
		perr := &ingest.PersistenceError{Symbol: bars[0].Symbol, Err: err}
		if bad := p.pinpointFailingRecord(ctx, records, err); bad != nil {
			bar := fromRecord(*bad)
			perr.Bar = &bar
		}
		return 0, perr
	}

	if skipped := len(records) - int(inserted); skipped > 0 {
		p.logger.Info("insert completed with duplicates skipped",
			zap.String("symbol", bars[0].Symbol),
			zap.Int64("inserted", inserted),
			zap.Int("skipped", skipped),
			zap.Int("total", len(records)),
		)
	}

	return int(inserted), nil
}

// pinpointFailingRecord replays the failed batch one row at a time inside
// probe transactions that always roll back, so the exact offending record can
// be identified and logged without leaving partial data behind.
func (p *PostgresClient) pinpointFailingRecord(ctx context.Context, records []PriceBarRecord, bulkErr error) *PriceBarRecord {
	p.logger.Error("bulk insert failed, pinpointing offending record",
		zap.Int("batch_size", len(records)),
		zap.Error(bulkErr),
	)

	for i := range records {
		probe := records[i]
		probe.ID = 0
		err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Clauses(onConflictSkipBars()).Create(&probe).Error; err != nil {
				return err
			}
			return errProbeRollback
		})
		if err != nil && !errors.Is(err, errProbeRollback) {
			p.logger.Error("failing record identified",
				zap.String("symbol", records[i].Symbol),
				zap.Time("price_datetime", records[i].PriceDatetime),
				zap.String("open", records[i].Open.String()),
				zap.String("high", records[i].High.String()),
				zap.String("low", records[i].Low.String()),
				zap.String("close", records[i].Close.String()),
				zap.Int64("volume", records[i].Volume),
				zap.Error(err),
			)
			return &records[i]
		}
	}

	return nil
}

// CountBarsPerDay returns per-calendar-day stored bar counts for symbol
// within [start, end) as a single aggregate query. Days without rows are
// absent from the result.
func (p *PostgresClient) CountBarsPerDay(ctx context.Context, symbol string, start, end time.Time) ([]ingest.DayCount, error) {
	var rows []struct {
		Day   time.Time
		Count int
	}

	err := p.DB.WithContext(ctx).
		Model(&PriceBarRecord{}).
		Select("date_trunc('day', price_datetime) AS day, count(*) AS count").
		Where("symbol = ? AND price_datetime >= ? AND price_datetime < ?", symbol, start, end).
		Group("date_trunc('day', price_datetime)").
		Order("day").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make([]ingest.DayCount, len(rows))
	for i, row := range rows {
		counts[i] = ingest.DayCount{Day: row.Day, Count: row.Count}
	}
	return counts, nil
}

func toRecord(bar ingest.PriceBar) PriceBarRecord {
	return PriceBarRecord{
		Symbol:        bar.Symbol,
		PriceDatetime: bar.Timestamp,
		Open:          bar.Open,
		High:          bar.High,
		Low:           bar.Low,
		Close:         bar.Close,
		Volume:        bar.Volume,
	}
}

func fromRecord(rec PriceBarRecord) ingest.PriceBar {
	return ingest.PriceBar{
		Symbol:    rec.Symbol,
		Timestamp: rec.PriceDatetime,
		Open:      rec.Open,
		High:      rec.High,
		Low:       rec.Low,
		Close:     rec.Close,
		Volume:    rec.Volume,
	}
}
