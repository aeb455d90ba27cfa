package bars

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	models "marketflow/database/models_pkg"
	"marketflow/database/stocks"
)

// Candle is the query-facing shape of one OHLCV bar.
type Candle struct {
	Time       time.Time `json:"time"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     float64   `json:"volume"`
	TradeCount *int64    `json:"trade_count,omitempty"`
	VWAP       *float64  `json:"vwap,omitempty"`
}

// Repository handles database operations for staged minute bars
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new bars repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// UpsertBar writes one bar, overwriting OHLCV on conflict. The source revises
// bars as late trades arrive within the minute, so last write wins.
//
// Symbol registration happens in the same transaction as the bar write so a
// bar row never references a missing registry row.
func (r *Repository) UpsertBar(symbol, timeframe string, ts time.Time, open, high, low, closePrice, volume float64, tradeCount *int64, vwap *float64) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		stockID, err := stocks.GetOrCreate(tx, symbol, "", "")
		if err != nil {
			return err
		}

		bar := models.StockBar{
			StockID:    stockID,
			Timestamp:  ts,
			Timeframe:  timeframe,
			OpenPrice:  open,
			HighPrice:  high,
			LowPrice:   low,
			ClosePrice: closePrice,
			Volume:     volume,
			TradeCount: tradeCount,
			VWAP:       vwap,
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "stock_id"}, {Name: "ts"}, {Name: "timeframe"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"open_price", "high_price", "low_price", "close_price",
				"volume", "trade_count", "vwap",
			}),
		}).Create(&bar).Error
	})
	if err != nil {
		return fmt.Errorf("UpsertBar: %w", err)
	}
	return nil
}

// GetCandles retrieves the most recent bars for a symbol and timeframe,
// newest first, capped at limit.
func (r *Repository) GetCandles(symbol, timeframe string, limit int) ([]Candle, error) {
	var rows []struct {
		Timestamp  time.Time `gorm:"column:ts"`
		OpenPrice  float64
		HighPrice  float64
		LowPrice   float64
		ClosePrice float64
		Volume     float64
		TradeCount *int64
		VWAP       *float64 `gorm:"column:vwap"`
	}
	err := r.db.Table("stock_bars_staging").
		Select("ts, open_price, high_price, low_price, close_price, volume, trade_count, vwap").
		Joins("JOIN stocks ON stocks.stock_id = stock_bars_staging.stock_id").
		Where("stocks.symbol = ? AND timeframe = ?", symbol, timeframe).
		Order("ts DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("GetCandles: %w", err)
	}

	candles := make([]Candle, 0, len(rows))
	for _, row := range rows {
		candles = append(candles, Candle{
			Time:       row.Timestamp,
			Open:       row.OpenPrice,
			High:       row.HighPrice,
			Low:        row.LowPrice,
			Close:      row.ClosePrice,
			Volume:     row.Volume,
			TradeCount: row.TradeCount,
			VWAP:       row.VWAP,
		})
	}
	return candles, nil
}
