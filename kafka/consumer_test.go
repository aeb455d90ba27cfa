package kafka

import (
	"errors"
	"testing"

	"github.com/twmb/franz-go/pkg/kgo"
)

func TestProcessPartitionStopsAtFirstFailure(t *testing.T) {
	records := []*kgo.Record{
		{Topic: TopicTrades, Partition: 0, Offset: 0, Key: []byte("AAPL")},
		{Topic: TopicTrades, Partition: 0, Offset: 1, Key: []byte("AAPL")},
		{Topic: TopicTrades, Partition: 0, Offset: 2, Key: []byte("AAPL")},
	}

	dbDown := errors.New("database unavailable")
	var seen []int64
	done, failed, err := processPartition(records, func(r *kgo.Record) error {
		seen = append(seen, r.Offset)
		if r.Offset == 1 {
			return dbDown
		}
		return nil
	})

	if len(done) != 1 || done[0].Offset != 0 {
		t.Errorf("committable records = %v, want only offset 0", done)
	}
	if failed == nil || failed.Offset != 1 {
		t.Fatalf("failed record = %+v, want offset 1", failed)
	}
	if !errors.Is(err, dbDown) {
		t.Errorf("err = %v, want %v", err, dbDown)
	}
	// The record after the failure must not be handled: handling it and
	// committing its offset would skip the failed record permanently.
	if len(seen) != 2 || seen[len(seen)-1] != 1 {
		t.Errorf("handled offsets = %v, want [0 1]", seen)
	}
}

func TestProcessPartitionAllSuccess(t *testing.T) {
	records := []*kgo.Record{
		{Topic: TopicBars, Offset: 10},
		{Topic: TopicBars, Offset: 11},
	}

	done, failed, err := processPartition(records, func(r *kgo.Record) error {
		return nil
	})
	if err != nil || failed != nil {
		t.Fatalf("unexpected failure: %v, %+v", err, failed)
	}
	if len(done) != 2 || done[0].Offset != 10 || done[1].Offset != 11 {
		t.Errorf("committable records = %v, want offsets [10 11]", done)
	}
}

func TestProcessPartitionEmpty(t *testing.T) {
	done, failed, err := processPartition(nil, func(r *kgo.Record) error {
		t.Error("handler must not be called for an empty batch")
		return nil
	})
	if len(done) != 0 || failed != nil || err != nil {
		t.Errorf("got %v, %+v, %v", done, failed, err)
	}
}
