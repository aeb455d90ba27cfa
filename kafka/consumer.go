package kafka

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"marketflow/helpers"
)

// HandlerFunc processes one consumed record. Returning an error means the
// record was NOT durably handled and its offset must not be committed.
type HandlerFunc func(record *kgo.Record) error

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Brokers []string
	Group   string
	Topics  []string

	// AutoCommit enables broker-side auto commit. The persistence worker
	// keeps this false: offsets are committed per record only after the
	// database write succeeds, which is what makes delivery at-least-once.
	AutoCommit bool
}

// Consumer wraps a franz-go consumer-group client.
type Consumer struct {
	client     *kgo.Client
	group      string
	autoCommit bool
}

// NewConsumer creates a consumer-group client subscribed to the given topics.
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if cfg.Group == "" {
		return nil, fmt.Errorf("consumer group is required")
	}
	if len(cfg.Topics) == 0 {
		return nil, fmt.Errorf("at least one topic is required")
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.FetchMaxWait(500 * time.Millisecond),
		kgo.SessionTimeout(30 * time.Second),
		kgo.RebalanceTimeout(60 * time.Second),
		kgo.OnPartitionsAssigned(func(_ context.Context, _ *kgo.Client, assigned map[string][]int32) {
			log.Printf("📦 [%s] Partitions assigned: %v", cfg.Group, assigned)
		}),
		kgo.OnPartitionsRevoked(func(_ context.Context, _ *kgo.Client, revoked map[string][]int32) {
			log.Printf("📦 [%s] Partitions revoked: %v", cfg.Group, revoked)
		}),
	}
	if !cfg.AutoCommit {
		opts = append(opts, kgo.DisableAutoCommit())
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	log.Printf("✅ Kafka consumer connected: group=%s topics=%v", cfg.Group, cfg.Topics)
	return &Consumer{client: client, group: cfg.Group, autoCommit: cfg.AutoCommit}, nil
}

// Run polls for records until the context is canceled, invoking handle for
// each record in order. With auto commit disabled, offsets are committed only
// for the records handle accepted; when handle fails, the partition is
// rewound to the failed record so no later offset on that partition can be
// committed past it, and the record is re-delivered on a following poll.
// Fetch errors are logged and the loop continues.
func (c *Consumer) Run(ctx context.Context, handle HandlerFunc) {
	backoff := helpers.Backoff{Base: time.Second, Max: 30 * time.Second}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			for _, err := range errs {
				log.Printf("⚠️  [%s] Fetch error on %s/%d: %v", c.group, err.Topic, err.Partition, err.Err)
			}
		}

		anyFailed := false
		fetches.EachPartition(func(p kgo.FetchTopicPartition) {
			done, failed, err := processPartition(p.Records, handle)
			if !c.autoCommit && len(done) > 0 {
				if cerr := c.client.CommitRecords(ctx, done...); cerr != nil {
					log.Printf("⚠️  [%s] Offset commit failed for %s/%d: %v",
						c.group, p.Topic, p.Partition, cerr)
				}
			}
			if failed != nil {
				anyFailed = true
				log.Printf("⚠️  [%s] Handler error on %s/%d@%d (key=%s), rewinding: %v",
					c.group, failed.Topic, failed.Partition, failed.Offset, string(failed.Key), err)
				c.client.SetOffsets(map[string]map[int32]kgo.EpochOffset{
					failed.Topic: {failed.Partition: {
						Epoch:  failed.LeaderEpoch,
						Offset: failed.Offset,
					}},
				})
			}
		})

		if anyFailed {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff.Next()):
			}
		} else {
			backoff.Reset()
		}
	}
}

// processPartition runs handle over one partition's records in order,
// stopping at the first failure. It returns the records that were handled
// successfully (safe to commit) and, when a handler failed, the failed
// record with its error. Records after the failed one are left unhandled so
// per-partition ordering is preserved.
func processPartition(records []*kgo.Record, handle HandlerFunc) ([]*kgo.Record, *kgo.Record, error) {
	done := make([]*kgo.Record, 0, len(records))
	for _, record := range records {
		if err := handle(record); err != nil {
			return done, record, err
		}
		done = append(done, record)
	}
	return done, nil, nil
}

// Close leaves the group and releases the client.
func (c *Consumer) Close() {
	c.client.Close()
	log.Printf("✅ Kafka consumer closed: group=%s", c.group)
}
