// Package persist runs the database persistence consumer: it reads trades
// and bars from the durable log and writes them into Postgres, committing
// each offset only after the row is down.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"marketflow/database/bars"
	"marketflow/database/trades"
	"marketflow/kafka"
	"marketflow/validation"
)

// Bars from the live feed are always one-minute bars.
const liveTimeframe = "1m"

// tradeWriter and barWriter are the repository slices this worker writes
// through.
type tradeWriter interface {
	SaveTrade(symbol string, ts time.Time, price, size float64) error
}

type barWriter interface {
	UpsertBar(symbol, timeframe string, ts time.Time, open, high, low, closePrice, volume float64, tradeCount *int64, vwap *float64) error
}

// Worker consumes both topics in the database-persistence group and writes
// into the relational store.
type Worker struct {
	consumer  *kafka.Consumer
	tradeRepo tradeWriter
	barRepo   barWriter
}

// NewWorker creates the persistence worker.
func NewWorker(consumer *kafka.Consumer, tradeRepo *trades.Repository, barRepo *bars.Repository) *Worker {
	return &Worker{
		consumer:  consumer,
		tradeRepo: tradeRepo,
		barRepo:   barRepo,
	}
}

// Run consumes until ctx is canceled. A database failure leaves the offset
// uncommitted so the message is re-delivered after a restart; replay is safe
// because the trade insert is a no-op on duplicates and the bar write is an
// upsert.
func (w *Worker) Run(ctx context.Context) {
	log.Println("🗄️  Persistence worker started")
	w.consumer.Run(ctx, w.handleRecord)
	log.Println("🗄️  Persistence worker stopped")
}

// handleRecord dispatches one record by topic. A payload that cannot be
// decoded is logged and dropped (committing it; replay cannot fix malformed
// JSON). A write failure is returned so the offset stays uncommitted.
func (w *Worker) handleRecord(record *kgo.Record) error {
	switch record.Topic {
	case kafka.TopicTrades:
		var msg kafka.TradeMessage
		if err := json.Unmarshal(record.Value, &msg); err != nil {
			log.Printf("⚠️  Dropping undecodable trade message: %v", err)
			return nil
		}
		return w.writeTrade(&msg)
	case kafka.TopicBars:
		var msg kafka.BarMessage
		if err := json.Unmarshal(record.Value, &msg); err != nil {
			log.Printf("⚠️  Dropping undecodable bar message: %v", err)
			return nil
		}
		return w.writeBar(&msg)
	default:
		return nil
	}
}

func (w *Worker) writeTrade(msg *kafka.TradeMessage) error {
	symbol, ok := cleanSymbol("trade", msg.Symbol)
	if !ok {
		return nil
	}
	ts := normalizeTimestamp(msg.Timestamp)
	if err := w.tradeRepo.SaveTrade(symbol, ts, msg.Price, msg.Size); err != nil {
		return fmt.Errorf("writeTrade %s: %w", symbol, err)
	}
	return nil
}

func (w *Worker) writeBar(msg *kafka.BarMessage) error {
	symbol, ok := cleanSymbol("bar", msg.Symbol)
	if !ok {
		return nil
	}
	ts := normalizeTimestamp(msg.Timestamp)
	err := w.barRepo.UpsertBar(symbol, liveTimeframe, ts,
		msg.Open, msg.High, msg.Low, msg.Close, msg.Volume, msg.TradeCount, msg.VWAP)
	if err != nil {
		return fmt.Errorf("writeBar %s: %w", symbol, err)
	}
	return nil
}

// cleanSymbol normalizes the feed symbol before it reaches the registry, so
// registry rows stay uppercase and grammar-valid no matter what the upstream
// sent. A symbol that fails validation drops the message; replay cannot fix
// it.
func cleanSymbol(kind, raw string) (string, bool) {
	symbol, err := validation.NormalizeSymbol(raw)
	if err != nil {
		log.Printf("⚠️  Dropping %s message with invalid symbol %q: %v", kind, raw, err)
		return "", false
	}
	return symbol, true
}

// normalizeTimestamp converts the raw feed timestamp into a point in time.
// The feed sends either an ISO-8601 string (with offset) or integer
// nanoseconds since the Unix epoch. A value that parses as neither is
// replaced by the current wall clock so the pipeline keeps moving; the log
// line is the data quality signal.
func normalizeTimestamp(raw json.RawMessage) time.Time {
	if len(raw) > 0 {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return ts
			}
		} else {
			var ns int64
			if err := json.Unmarshal(raw, &ns); err == nil && ns > 0 {
				return time.Unix(0, ns)
			}
		}
	}
	log.Printf("⚠️  Failed to normalize timestamp %q, substituting wall clock", string(raw))
	return time.Now()
}
