package query

import (
	"context"
	"testing"
)

func TestPeriodDays(t *testing.T) {
	cases := []struct {
		period string
		want   int
	}{
		{"1d", 1},
		{"5d", 5},
		{"1m", 30},
		{"3m", 90},
		{"6m", 180},
		{"ytd", 365},
		{"1y", 365},
		{"5y", 1825},
		{"max", 3650},
		{"bogus", 90},
		{"", 90},
	}

	for _, c := range cases {
		if got := PeriodDays(c.period); got != c.want {
			t.Errorf("PeriodDays(%q) = %d, want %d", c.period, got, c.want)
		}
	}
}

func TestVolumesCacheKeyOrderIndependent(t *testing.T) {
	a := volumesCacheKey([]string{"MSFT", "AAPL", "GOOGL"})
	b := volumesCacheKey([]string{"AAPL", "GOOGL", "MSFT"})
	if a != b {
		t.Errorf("same batch produced different keys: %q vs %q", a, b)
	}
	if a != "heatmap:volumes:AAPL:GOOGL:MSFT" {
		t.Errorf("unexpected key: %q", a)
	}
}

func TestVolumesCacheKeyDoesNotMutateInput(t *testing.T) {
	symbols := []string{"MSFT", "AAPL"}
	volumesCacheKey(symbols)
	if symbols[0] != "MSFT" || symbols[1] != "AAPL" {
		t.Errorf("input slice mutated: %v", symbols)
	}
}

func TestEmptyBatchesSkipBackends(t *testing.T) {
	// A zero service panics on any backend access, so these passing proves
	// the empty input short-circuits.
	s := &Service{}

	volumes, err := s.GetAccumulatedVolumes(context.Background(), nil)
	if err != nil || len(volumes) != 0 {
		t.Errorf("GetAccumulatedVolumes(nil) = %v, %v", volumes, err)
	}

	eod, err := s.GetLatestEODBatch(context.Background(), nil, true)
	if err != nil || len(eod) != 0 {
		t.Errorf("GetLatestEODBatch(nil) = %v, %v", eod, err)
	}

	closes, err := s.GetPreviousClosesBatch(nil)
	if err != nil || len(closes) != 0 {
		t.Errorf("GetPreviousClosesBatch(nil) = %v, %v", closes, err)
	}
}

func TestRound2(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{1.005, 1.0},
		{1.006, 1.01},
		{-2.675, -2.68},
		{100, 100},
	}
	for _, c := range cases {
		if got := round2(c.in); got != c.want {
			t.Errorf("round2(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
