// Package ingest runs the feed-to-Kafka producer: it keeps a WebSocket
// session to the upstream market data feed alive and republishes every trade
// and bar onto the durable log, keyed by symbol.
package ingest

import (
	"context"
	"errors"
	"log"
	"time"

	"marketflow/helpers"
	"marketflow/kafka"
	"marketflow/websocket"
)

// feed is the slice of the WebSocket client the worker drives.
type feed interface {
	Connect() error
	Subscribe(tradeSymbols, barSymbols []string) error
	ReadMessages() ([]websocket.Message, error)
	Close() error
}

// Worker owns the WebSocket session and the Kafka producer.
type Worker struct {
	client   feed
	producer *kafka.Producer
	symbols  []string
	backoff  helpers.Backoff
}

// NewWorker creates the ingest worker. The same symbol list is subscribed
// for both trades and bars.
func NewWorker(client *websocket.Client, producer *kafka.Producer, symbols []string) *Worker {
	return &Worker{
		client:   client,
		producer: producer,
		symbols:  symbols,
		backoff:  helpers.Backoff{Base: 5 * time.Second, Max: 60 * time.Second},
	}
}

// Run connects, subscribes and pumps frames into Kafka until ctx is
// canceled. The upstream drops sessions frequently, so any read error tears
// the connection down and reconnects with exponential backoff; frames missed
// while disconnected are accepted as lost. An authentication rejection is
// fatal and returned to the caller.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := w.client.Connect(); err != nil {
			if errors.Is(err, websocket.ErrAuthFailed) {
				log.Printf("❌ Feed rejected credentials: %v", err)
				return err
			}
			if !w.wait(ctx, "connect failed", err) {
				return nil
			}
			continue
		}

		if err := w.client.Subscribe(w.symbols, w.symbols); err != nil {
			w.client.Close()
			if !w.wait(ctx, "subscribe failed", err) {
				return nil
			}
			continue
		}
		// The backoff resets only once a full session is up; a feed that
		// accepts the dial but rejects the subscription keeps backing off.
		w.backoff.Reset()

		w.readLoop(ctx)
		w.client.Close()
		if ctx.Err() != nil {
			return nil
		}
		log.Println("🔄 Feed connection lost, reconnecting...")
	}
}

// wait sleeps for the next backoff delay. It returns false when ctx was
// canceled during the wait.
func (w *Worker) wait(ctx context.Context, what string, cause error) bool {
	delay := w.backoff.Next()
	log.Printf("⚠️  Feed %s: %v (retrying in %v)", what, cause, delay)
	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}

// readLoop pumps frames until the connection breaks or ctx is canceled.
func (w *Worker) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		messages, err := w.client.ReadMessages()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("⚠️  WebSocket error: %v", err)
			}
			return
		}

		for _, msg := range messages {
			switch {
			case msg.Trade != nil:
				w.publishTrade(ctx, msg.Trade)
			case msg.Bar != nil:
				w.publishBar(ctx, msg.Bar)
			case msg.Control != nil:
				w.logControl(msg.Control)
			}
		}
	}
}

func (w *Worker) publishTrade(ctx context.Context, trade *websocket.Trade) {
	message := kafka.TradeMessage{
		Symbol:     trade.Symbol,
		Price:      trade.Price,
		Size:       trade.Size,
		Timestamp:  trade.Timestamp,
		Exchange:   trade.Exchange,
		Conditions: trade.Conditions,
	}
	helpers.SafeKafkaCall("publish trade", func() (struct{}, error) {
		return struct{}{}, w.producer.Publish(ctx, kafka.TopicTrades, trade.Symbol, message)
	})
}

func (w *Worker) publishBar(ctx context.Context, bar *websocket.Bar) {
	message := kafka.BarMessage{
		Symbol:     bar.Symbol,
		Open:       bar.Open,
		High:       bar.High,
		Low:        bar.Low,
		Close:      bar.Close,
		Volume:     bar.Volume,
		Timestamp:  bar.Timestamp,
		TradeCount: bar.TradeCount,
		VWAP:       bar.VWAP,
	}
	helpers.SafeKafkaCall("publish bar", func() (struct{}, error) {
		return struct{}{}, w.producer.Publish(ctx, kafka.TopicBars, bar.Symbol, message)
	})
}

func (w *Worker) logControl(ctrl *websocket.Control) {
	switch ctrl.Type {
	case "subscription":
		log.Printf("📡 Subscription confirmed: trades=%v bars=%v", ctrl.Trades, ctrl.Bars)
	case "error":
		log.Printf("⚠️  Feed error frame: %s (code %d)", ctrl.Msg, ctrl.Code)
	}
}
