package eod

import (
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	models "marketflow/database/models_pkg"
	"marketflow/database/stocks"
)

// LatestEOD is one symbol's most recent end-of-day row.
type LatestEOD struct {
	Symbol      string    `gorm:"column:symbol"`
	TradingDate time.Time `gorm:"column:trading_date"`
	OpenPrice   float64   `gorm:"column:open_price"`
	HighPrice   float64   `gorm:"column:high_price"`
	LowPrice    float64   `gorm:"column:low_price"`
	ClosePrice  float64   `gorm:"column:close_price"`
	Volume      float64   `gorm:"column:volume"`
	PctChange   float64   `gorm:"column:pct_change"`
}

// PricePoint is one day of OHLCV history.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Repository handles database operations for end-of-day prices
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new EOD repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Upsert writes one EOD row keyed by (stock_id, trading_date). On conflict all
// OHLCV fields and pct_change are overwritten and inserted_at is bumped, so
// re-running a backfill for the same date is idempotent.
func (r *Repository) Upsert(row *models.EODPrice) error {
	row.InsertedAt = time.Now()
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "stock_id"}, {Name: "trading_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"open_price", "high_price", "low_price", "close_price",
			"volume", "pct_change", "inserted_at",
		}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

// UpsertForSymbol registers the symbol if needed (default exchange NASDAQ for
// backfilled symbols) and upserts the EOD row in the same transaction.
func (r *Repository) UpsertForSymbol(symbol string, row *models.EODPrice) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		stockID, err := stocks.GetOrCreate(tx, symbol, "", "NASDAQ")
		if err != nil {
			return err
		}
		row.StockID = stockID
		row.InsertedAt = time.Now()
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "stock_id"}, {Name: "trading_date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"open_price", "high_price", "low_price", "close_price",
				"volume", "pct_change", "inserted_at",
			}),
		}).Create(row).Error
	})
	if err != nil {
		return fmt.Errorf("UpsertForSymbol: %w", err)
	}
	return nil
}

// GetLatestEODBatch returns each symbol's most recent EOD row in one query.
// Symbols with no EOD rows are absent from the map.
func (r *Repository) GetLatestEODBatch(symbols []string) (map[string]LatestEOD, error) {
	result := make(map[string]LatestEOD)
	if len(symbols) == 0 {
		return result, nil
	}

	var rows []LatestEOD
	query := `
		SELECT DISTINCT ON (s.symbol)
			s.symbol,
			e.trading_date,
			e.open_price,
			e.high_price,
			e.low_price,
			e.close_price,
			e.volume,
			e.pct_change
		FROM stocks AS s
		JOIN stock_eod_prices AS e ON e.stock_id = s.stock_id
		WHERE s.symbol = ANY(?)
		ORDER BY s.symbol, e.trading_date DESC
	`
	if err := r.db.Raw(query, pq.Array(symbols)).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("GetLatestEODBatch: %w", err)
	}

	for _, row := range rows {
		result[row.Symbol] = row
	}
	return result, nil
}

// GetPreviousClosesBatch returns the most recent close per symbol.
func (r *Repository) GetPreviousClosesBatch(symbols []string) (map[string]float64, error) {
	result := make(map[string]float64)
	if len(symbols) == 0 {
		return result, nil
	}

	var rows []struct {
		Symbol     string
		ClosePrice float64
	}
	query := `
		SELECT DISTINCT ON (s.symbol)
			s.symbol,
			e.close_price
		FROM stocks AS s
		JOIN stock_eod_prices AS e ON e.stock_id = s.stock_id
		WHERE s.symbol = ANY(?)
		ORDER BY s.symbol, e.trading_date DESC
	`
	if err := r.db.Raw(query, pq.Array(symbols)).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("GetPreviousClosesBatch: %w", err)
	}

	for _, row := range rows {
		result[row.Symbol] = row.ClosePrice
	}
	return result, nil
}

// GetLatestPrice returns the most recent EOD row for one stock, or nil when
// the stock has no EOD rows yet.
func (r *Repository) GetLatestPrice(stockID string) (*models.EODPrice, error) {
	var row models.EODPrice
	err := r.db.
		Where("stock_id = ?", stockID).
		Order("trading_date DESC").
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetLatestPrice: %w", err)
	}
	return &row, nil
}

// GetPriceHistory returns daily OHLCV rows for a symbol from a start date
// onwards, oldest first.
func (r *Repository) GetPriceHistory(symbol string, from time.Time) ([]PricePoint, error) {
	var rows []struct {
		TradingDate time.Time
		OpenPrice   float64
		HighPrice   float64
		LowPrice    float64
		ClosePrice  float64
		Volume      float64
	}
	err := r.db.Table("stock_eod_prices").
		Select("trading_date, open_price, high_price, low_price, close_price, volume").
		Joins("JOIN stocks ON stocks.stock_id = stock_eod_prices.stock_id").
		Where("stocks.symbol = ? AND trading_date >= ?", symbol, from).
		Order("trading_date ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("GetPriceHistory: %w", err)
	}

	points := make([]PricePoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, PricePoint{
			Date:   row.TradingDate,
			Open:   row.OpenPrice,
			High:   row.HighPrice,
			Low:    row.LowPrice,
			Close:  row.ClosePrice,
			Volume: row.Volume,
		})
	}
	return points, nil
}
