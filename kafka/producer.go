package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer publishes JSON messages to the durable log, keyed by symbol.
//
// Writes use acks=all with bounded retries. A publish that exhausts retries
// is logged and dropped; the delivery callback never blocks the caller, so
// the WebSocket reader is never stalled by a slow broker.
type Producer struct {
	client *kgo.Client
}

// NewProducer creates a Kafka producer connected to the given brokers.
func NewProducer(brokers []string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RecordRetries(3),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.Printf("✅ Kafka producer connected to %v", brokers)
	return &Producer{client: client}, nil
}

// Publish serializes the value as JSON and produces it asynchronously with
// the symbol as the partition key. Delivery failures are logged and the one
// message is dropped; downstream idempotent writes make redelivery safe, and
// a realtime feed must not block on a broker hiccup.
func (p *Producer) Publish(ctx context.Context, topic, symbol string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(symbol),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		if err != nil {
			log.Printf("✗ Error publishing to %s (key=%s): %v", r.Topic, string(r.Key), err)
		}
	})
	return nil
}

// Close flushes pending records and closes the client.
func (p *Producer) Close() {
	// Flush what we can; in-flight records beyond this are dropped.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil {
		log.Printf("⚠️  Kafka producer flush: %v", err)
	}
	p.client.Close()
	log.Println("✅ Kafka producer closed")
}
