// Package kafka defines this system's contract with the durable message log:
// topic names, consumer group names, message shapes, and thin producer and
// consumer wrappers around franz-go.
//
// Both topics are keyed by the uppercase symbol so that all events for one
// symbol land on one partition in arrival order. Per-symbol ordering
// downstream depends on that keying.
package kafka

import "encoding/json"

// Topic and consumer group names.
const (
	TopicTrades = "stock_trades_realtime"
	TopicBars   = "stock_bars_staging"

	GroupPersistence = "database-persistence"
	GroupBroadcast   = "broadcast-fanout"
)

// TradeMessage is the wire shape of one trade on the trades topic.
//
// Timestamp is forwarded exactly as received from the upstream feed, which
// sends either an ISO-8601 string or integer nanoseconds since epoch. It is
// kept raw here; normalization happens at the persistence worker.
type TradeMessage struct {
	Symbol     string          `json:"symbol"`
	Price      float64         `json:"price"`
	Size       float64         `json:"size"`
	Timestamp  json.RawMessage `json:"timestamp"`
	Exchange   string          `json:"exchange,omitempty"`
	Conditions []string        `json:"conditions,omitempty"`
}

// BarMessage is the wire shape of one minute bar on the bars topic.
type BarMessage struct {
	Symbol     string          `json:"symbol"`
	Open       float64         `json:"open"`
	High       float64         `json:"high"`
	Low        float64         `json:"low"`
	Close      float64         `json:"close"`
	Volume     float64         `json:"volume"`
	Timestamp  json.RawMessage `json:"timestamp"`
	TradeCount *int64          `json:"trade_count,omitempty"`
	VWAP       *float64        `json:"vwap,omitempty"`
}
