package trades

import (
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	models "marketflow/database/models_pkg"
	"marketflow/database/stocks"
)

// Repository handles database operations for realtime trade data
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new trades repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SaveTrade persists one trade with its running cumulative volume.
//
// The whole read-modify-write runs in a single transaction: resolve (or
// register) the symbol, read the latest cumulative volume for that stock,
// insert the new row with previous + size. A duplicate (stock_id, ts) hits
// the unique index and is dropped by ON CONFLICT DO NOTHING, so the
// cumulative total does not advance for duplicates.
//
// Correctness of the read-modify-write relies on a single writer per symbol.
// That is guaranteed upstream: the producer keys Kafka messages by symbol, so
// one partition owns a symbol, and one consumer in the group owns the
// partition. Do not scale persistence workers beyond the partition count.
func (r *Repository) SaveTrade(symbol string, ts time.Time, price, size float64) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		stockID, err := stocks.GetOrCreate(tx, symbol, "", "")
		if err != nil {
			return err
		}

		var prev models.RealtimeTrade
		previousVolume := 0.0
		err = tx.Select("volume").
			Where("stock_id = ?", stockID).
			Order("ts DESC, trade_id DESC").
			First(&prev).Error
		if err == nil {
			previousVolume = prev.Volume
		} else if err != gorm.ErrRecordNotFound {
			return err
		}

		trade := models.RealtimeTrade{
			StockID:   stockID,
			Timestamp: ts,
			Price:     price,
			Size:      size,
			Volume:    previousVolume + size,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stock_id"}, {Name: "ts"}},
			DoNothing: true,
		}).Create(&trade).Error
	})
	if err != nil {
		return fmt.Errorf("SaveTrade: %w", err)
	}
	return nil
}

// GetAccumulatedVolumes returns the latest cumulative volume per symbol in a
// single query. Symbols without trades come back as 0; symbols that are not
// registered at all are simply absent from the result.
func (r *Repository) GetAccumulatedVolumes(symbols []string) (map[string]float64, error) {
	result := make(map[string]float64)
	if len(symbols) == 0 {
		return result, nil
	}

	var rows []struct {
		Symbol string
		Volume float64
	}
	// LATERAL join picks the most recent trade row per stock.
	query := `
		SELECT
			s.symbol AS symbol,
			COALESCE(t.volume, 0) AS volume
		FROM stocks AS s
		LEFT JOIN LATERAL (
			SELECT volume
			FROM stock_trades_realtime
			WHERE stock_id = s.stock_id
			ORDER BY ts DESC, trade_id DESC
			LIMIT 1
		) AS t ON true
		WHERE s.symbol = ANY(?)
			AND s.delisted IS FALSE
	`
	if err := r.db.Raw(query, pq.Array(symbols)).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("GetAccumulatedVolumes: %w", err)
	}

	for _, row := range rows {
		result[row.Symbol] = row.Volume
	}
	return result, nil
}

// GetTradesByTimeRange retrieves trades for a symbol within a time range,
// oldest first.
func (r *Repository) GetTradesByTimeRange(symbol string, startTime, endTime time.Time) ([]models.RealtimeTrade, error) {
	var rows []models.RealtimeTrade
	err := r.db.
		Joins("JOIN stocks ON stocks.stock_id = stock_trades_realtime.stock_id").
		Where("stocks.symbol = ? AND ts >= ? AND ts <= ?", symbol, startTime, endTime).
		Order("ts ASC, trade_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("GetTradesByTimeRange: %w", err)
	}
	return rows, nil
}
