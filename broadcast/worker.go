// Package broadcast runs the low-latency fan-out consumer: every trade and
// bar from the durable log is re-emitted onto capped Redis streams that live
// UI subscribers read directly.
package broadcast

import (
	"context"
	"log"

	"github.com/twmb/franz-go/pkg/kgo"

	"marketflow/cache"
	"marketflow/helpers"
	"marketflow/kafka"
)

// Stream keys for live subscribers.
const (
	StreamTrades = "stream:stock_trades"
	StreamBars   = "stream:stock_bars"
)

// Worker consumes both topics in its own group and republishes onto Redis
// streams. This path is best-effort: there is no offset discipline beyond
// the group's auto commit, and duplicates or gaps are invisible to UI
// subscribers.
type Worker struct {
	consumer *kafka.Consumer
	redis    *cache.RedisClient
	maxLen   int64
}

// NewWorker creates the broadcast fan-out worker.
func NewWorker(consumer *kafka.Consumer, redis *cache.RedisClient, maxLen int64) *Worker {
	return &Worker{
		consumer: consumer,
		redis:    redis,
		maxLen:   maxLen,
	}
}

// Run consumes until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	log.Println("📣 Broadcast fan-out worker started")
	w.consumer.Run(ctx, func(record *kgo.Record) error {
		w.republish(ctx, record)
		return nil
	})
	log.Println("📣 Broadcast fan-out worker stopped")
}

// republish appends one entry of the form {symbol, data} onto the stream for
// the record's topic. Redis errors are logged and swallowed; the broadcast
// path never blocks consumption.
func (w *Worker) republish(ctx context.Context, record *kgo.Record) {
	var stream string
	switch record.Topic {
	case kafka.TopicTrades:
		stream = StreamTrades
	case kafka.TopicBars:
		stream = StreamBars
	default:
		return
	}

	symbol := string(record.Key)
	if symbol == "" {
		log.Printf("⚠️  Record on %s missing symbol key, skipping", record.Topic)
		return
	}

	helpers.SafeRedisCall("xadd "+stream, func() (struct{}, error) {
		return struct{}{}, w.redis.XAdd(ctx, stream, w.maxLen, map[string]interface{}{
			"symbol": symbol,
			"data":   string(record.Value),
		})
	})
}
