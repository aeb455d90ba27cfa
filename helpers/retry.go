// Package helpers provides the shared retry and safe-call wrappers used at
// worker loop boundaries. Workers wrap their I/O in these so a transient
// failure or one bad message is logged and absorbed instead of killing the
// goroutine.
package helpers

import (
	"context"
	"time"
)

// Retry runs op up to attempts times with exponential backoff starting at
// baseDelay, doubling after each failure. It stops early when ctx is
// canceled and returns the last error when all attempts fail.
func Retry(ctx context.Context, attempts int, baseDelay time.Duration, op func() error) error {
	var err error
	delay := baseDelay
	for i := 0; i < attempts; i++ {
		if err = op(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

// Backoff tracks an exponential reconnect delay with an upper bound.
type Backoff struct {
	Base    time.Duration
	Max     time.Duration
	current time.Duration
}

// Next returns the delay to wait before the next attempt and advances the
// backoff.
func (b *Backoff) Next() time.Duration {
	if b.current == 0 {
		b.current = b.Base
	}
	delay := b.current
	b.current *= 2
	if b.current > b.Max {
		b.current = b.Max
	}
	return delay
}

// Reset restores the backoff to its base delay after a success.
func (b *Backoff) Reset() {
	b.current = 0
}
