package models

import "time"

// Stock is the symbol registry. One row per tradable instrument.
//
// Rows are created lazily: the persistence worker inserts a registry row the
// first time it sees a trade or bar for an unknown symbol, and the EOD
// backfill does the same for symbols it fetches. Rows are never deleted.
//
// StockID is a locally generated UUID surrogate key; Symbol is the canonical
// uppercase ticker (indices prefixed with ^ are allowed).
type Stock struct {
	StockID  string `gorm:"type:uuid;primaryKey" json:"stock_id"`
	Symbol   string `gorm:"size:20;uniqueIndex;not null" json:"symbol"`
	Name     string `gorm:"size:100" json:"name,omitempty"`
	Exchange string `gorm:"size:20" json:"exchange,omitempty"`
	Delisted bool   `gorm:"default:false" json:"delisted"`
}

// TableName specifies the table name for Stock
func (Stock) TableName() string {
	return "stocks"
}

// RealtimeTrade is one row per inbound trade event.
//
// Volume is the running cumulative total of Size for this stock across all
// rows up to and including this one, so the latest row answers "what is the
// total traded volume". The UNIQUE (stock_id, ts) index turns duplicate
// inserts into no-ops, which keeps the cumulative total correct under replay.
type RealtimeTrade struct {
	TradeID   int64     `gorm:"primaryKey;autoIncrement" json:"trade_id"`
	StockID   string    `gorm:"type:uuid;uniqueIndex:idx_trades_stock_ts;not null" json:"stock_id"`
	Timestamp time.Time `gorm:"column:ts;uniqueIndex:idx_trades_stock_ts;not null" json:"ts"`
	Price     float64   `gorm:"type:decimal(15,4);not null" json:"price"`
	Size      float64   `gorm:"type:decimal(15,2);not null" json:"size"`
	Volume    float64   `gorm:"type:decimal(20,2);not null" json:"volume"` // cumulative
}

// TableName specifies the table name for RealtimeTrade
func (RealtimeTrade) TableName() string {
	return "stock_trades_realtime"
}

// StockBar is one row per (stock, timeframe, minute) from the live bars feed.
//
// On conflict the OHLCV fields are overwritten: the source revises bars as
// late trades arrive within the minute. Volume here is the bar volume, not
// the cumulative trade volume.
type StockBar struct {
	StockID    string    `gorm:"type:uuid;primaryKey" json:"stock_id"`
	Timestamp  time.Time `gorm:"column:ts;primaryKey" json:"ts"`
	Timeframe  string    `gorm:"size:5;primaryKey" json:"timeframe"`
	OpenPrice  float64   `gorm:"type:decimal(15,4);not null" json:"open"`
	HighPrice  float64   `gorm:"type:decimal(15,4);not null" json:"high"`
	LowPrice   float64   `gorm:"type:decimal(15,4);not null" json:"low"`
	ClosePrice float64   `gorm:"type:decimal(15,4);not null" json:"close"`
	Volume     float64   `gorm:"type:decimal(20,2);not null" json:"volume"`
	TradeCount *int64    `json:"trade_count,omitempty"`
	VWAP       *float64  `gorm:"column:vwap;type:decimal(15,4)" json:"vwap,omitempty"`
}

// TableName specifies the table name for StockBar
func (StockBar) TableName() string {
	return "stock_bars_staging"
}

// EODPrice is the daily settlement OHLCV for a trading date.
//
// Written by the auto-backfill service and the daily batch job; at most one
// row per (stock, trading date). PctChange is always recomputed on write as
// (close-open)/open*100 rounded to 2 decimals.
type EODPrice struct {
	StockID     string    `gorm:"type:uuid;primaryKey" json:"stock_id"`
	TradingDate time.Time `gorm:"type:date;primaryKey" json:"trading_date"`
	OpenPrice   float64   `gorm:"type:decimal(15,4)" json:"open"`
	HighPrice   float64   `gorm:"type:decimal(15,4)" json:"high"`
	LowPrice    float64   `gorm:"type:decimal(15,4)" json:"low"`
	ClosePrice  float64   `gorm:"type:decimal(15,4)" json:"close"`
	Volume      float64   `gorm:"type:decimal(20,2)" json:"volume"`
	PctChange   float64   `gorm:"type:decimal(10,2)" json:"pct_change"`
	InsertedAt  time.Time `gorm:"autoUpdateTime" json:"inserted_at"`
}

// TableName specifies the table name for EODPrice
func (EODPrice) TableName() string {
	return "stock_eod_prices"
}
