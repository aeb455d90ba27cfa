// Package eodfetch backfills end-of-day prices on demand from the market
// data vendor's daily bars endpoint.
package eodfetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"marketflow/database/eod"
	models "marketflow/database/models_pkg"
	"marketflow/helpers"
)

// The vendor's free tier caps one bars request at 200 symbols.
const maxSymbolsPerRequest = 200

const (
	requestTimeout = 30 * time.Second
	fetchAttempts  = 3
)

// vendorBar is one daily bar as returned by the vendor.
type vendorBar struct {
	Timestamp string  `json:"t"`
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    float64 `json:"v"`
}

type barsResponse struct {
	Bars map[string][]vendorBar `json:"bars"`
}

// Service fetches daily bars and upserts them into the EOD table.
type Service struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	secretKey  string
	eodRepo    *eod.Repository
	retryDelay time.Duration
}

// NewService creates the backfill service.
func NewService(baseURL, apiKey, secretKey string, eodRepo *eod.Repository) *Service {
	return &Service{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		secretKey:  secretKey,
		eodRepo:    eodRepo,
		retryDelay: 2 * time.Second,
	}
}

// BackfillDate fetches daily bars for the given symbols and trading date and
// upserts them. Symbols the vendor has no bar for (holidays, unknown
// tickers) are simply skipped. Vendor errors are logged and swallowed so the
// caller gets whatever rows did land; the count of rows written is returned.
func (s *Service) BackfillDate(ctx context.Context, symbols []string, tradingDate time.Time) (int, error) {
	if len(symbols) == 0 {
		return 0, nil
	}

	written := 0
	for _, chunk := range chunkSymbols(symbols, maxSymbolsPerRequest) {
		var bars map[string][]vendorBar
		err := helpers.Retry(ctx, fetchAttempts, s.retryDelay, func() error {
			var ferr error
			bars, ferr = s.fetchDailyBars(ctx, chunk, tradingDate)
			return ferr
		})
		if err != nil {
			log.Printf("⚠️  EOD fetch failed for %d symbols: %v", len(chunk), err)
			continue
		}

		for symbol, symbolBars := range bars {
			if len(symbolBars) == 0 {
				continue
			}
			bar := symbolBars[0]
			row := &models.EODPrice{
				TradingDate: tradingDate,
				OpenPrice:   bar.Open,
				HighPrice:   bar.High,
				LowPrice:    bar.Low,
				ClosePrice:  bar.Close,
				Volume:      bar.Volume,
				PctChange:   PctChange(bar.Open, bar.Close),
			}
			if _, ok := helpers.SafeDBCall("eod upsert "+symbol, func() (struct{}, error) {
				return struct{}{}, s.eodRepo.UpsertForSymbol(symbol, row)
			}); !ok {
				continue
			}
			written++
		}
	}

	if written > 0 {
		log.Printf("✅ Backfilled %d EOD rows for %s", written, tradingDate.Format("2006-01-02"))
	}
	return written, nil
}

// fetchDailyBars calls the vendor's bars endpoint for one chunk of symbols.
func (s *Service) fetchDailyBars(ctx context.Context, symbols []string, tradingDate time.Time) (map[string][]vendorBar, error) {
	day := tradingDate.Format("2006-01-02")
	params := url.Values{}
	params.Set("symbols", strings.Join(symbols, ","))
	params.Set("timeframe", "1Day")
	params.Set("start", day)
	params.Set("end", day)

	endpoint := s.baseURL + "/v2/stocks/bars?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("APCA-API-KEY-ID", s.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", s.secretKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("vendor returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed barsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode vendor response: %w", err)
	}
	return parsed.Bars, nil
}

// chunkSymbols splits the symbol list into slices of at most size.
func chunkSymbols(symbols []string, size int) [][]string {
	if len(symbols) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(symbols)+size-1)/size)
	for start := 0; start < len(symbols); start += size {
		end := start + size
		if end > len(symbols) {
			end = len(symbols)
		}
		chunks = append(chunks, symbols[start:end])
	}
	return chunks
}

// PctChange computes the day's percent change from open to close, rounded to
// 2 decimals.
func PctChange(open, closePrice float64) float64 {
	if open == 0 {
		return 0
	}
	return math.Round((closePrice-open)/open*100*100) / 100
}
