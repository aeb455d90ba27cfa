package eodfetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestChunkSymbols(t *testing.T) {
	symbols := make([]string, 450)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("SYM%d", i)
	}

	chunks := chunkSymbols(symbols, 200)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 200 || len(chunks[1]) != 200 || len(chunks[2]) != 50 {
		t.Errorf("chunk sizes = %d/%d/%d, want 200/200/50", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}
	if chunks[2][49] != "SYM449" {
		t.Errorf("last symbol = %q, want SYM449", chunks[2][49])
	}
}

func TestChunkSymbolsSmallInput(t *testing.T) {
	chunks := chunkSymbols([]string{"AAPL", "MSFT"}, 200)
	if len(chunks) != 1 || len(chunks[0]) != 2 {
		t.Errorf("expected single chunk of 2, got %v", chunks)
	}

	if chunks := chunkSymbols(nil, 200); chunks != nil {
		t.Errorf("expected nil for empty input, got %v", chunks)
	}
}

func TestChunkSymbolsExactBoundary(t *testing.T) {
	symbols := make([]string, 200)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("SYM%d", i)
	}
	chunks := chunkSymbols(symbols, 200)
	if len(chunks) != 1 || len(chunks[0]) != 200 {
		t.Errorf("expected one full chunk, got %d chunks", len(chunks))
	}
}

func TestBackfillDateRetriesVendorErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("APCA-API-KEY-ID") != "key" || r.Header.Get("APCA-API-SECRET-KEY") != "secret" {
			t.Errorf("missing auth headers: %v", r.Header)
		}
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"bars":{}}`))
	}))
	defer srv.Close()

	s := NewService(srv.URL, "key", "secret", nil)
	s.retryDelay = time.Millisecond

	written, err := s.BackfillDate(context.Background(), []string{"AAPL"},
		time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != 0 {
		t.Errorf("written = %d, want 0 (vendor returned no bars)", written)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("vendor calls = %d, want 3 (two failures then success)", got)
	}
}

func TestBackfillDateSwallowsExhaustedRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewService(srv.URL, "key", "secret", nil)
	s.retryDelay = time.Millisecond

	written, err := s.BackfillDate(context.Background(), []string{"AAPL"},
		time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("chunk failures must degrade, not error: %v", err)
	}
	if written != 0 {
		t.Errorf("written = %d, want 0", written)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("vendor calls = %d, want 3 attempts", got)
	}
}

func TestPctChange(t *testing.T) {
	cases := []struct {
		open, close float64
		want        float64
	}{
		{100, 105, 5},
		{100, 95, -5},
		{100, 100, 0},
		{0, 50, 0},
		{3, 1, -66.67},
		{187.12, 189.01, 1.01},
	}

	for _, c := range cases {
		got := PctChange(c.open, c.close)
		if got != c.want {
			t.Errorf("PctChange(%v, %v) = %v, want %v", c.open, c.close, got, c.want)
		}
	}
}
