// Package query implements the read contracts the HTTP services expose over
// the market data store: quotes, batch EOD reads with on-demand backfill,
// accumulated volumes and candles.
package query

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"marketflow/cache"
	"marketflow/database/bars"
	"marketflow/database/eod"
	"marketflow/database/stocks"
	"marketflow/database/trades"
	"marketflow/eodfetch"
	"marketflow/helpers"
	"marketflow/markethours"
)

// The volumes cache trades 2 seconds of staleness against hammering the
// trades table on every heatmap refresh.
const volumesCacheTTL = 2 * time.Second

// Quote is the detail payload for a single symbol.
type Quote struct {
	CurrentPrice  float64 `json:"currentPrice"`
	Change        float64 `json:"change"`
	PercentChange float64 `json:"percentChange"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Open          float64 `json:"open"`
	PreviousClose float64 `json:"previousClose"`
	PE            float64 `json:"pe"`
	EPS           float64 `json:"eps"`
}

// LatestEOD is one symbol's entry in the latest-EOD batch response.
type LatestEOD struct {
	Price         float64 `json:"price"`
	Volume        float64 `json:"volume"`
	ChangePercent float64 `json:"changePercent"`
	PreviousClose float64 `json:"previousClose"`
}

// Service is the stateless query layer over the relational store, with the
// Redis cache in front of the hot paths and the backfill service behind the
// latest-EOD read.
type Service struct {
	stockRepo *stocks.Repository
	tradeRepo *trades.Repository
	barRepo   *bars.Repository
	eodRepo   *eod.Repository
	redis     *cache.RedisClient
	backfill  *eodfetch.Service
}

// NewService creates the query service. redis may be nil, which disables
// caching but not correctness.
func NewService(stockRepo *stocks.Repository, tradeRepo *trades.Repository, barRepo *bars.Repository, eodRepo *eod.Repository, redis *cache.RedisClient, backfill *eodfetch.Service) *Service {
	return &Service{
		stockRepo: stockRepo,
		tradeRepo: tradeRepo,
		barRepo:   barRepo,
		eodRepo:   eodRepo,
		redis:     redis,
		backfill:  backfill,
	}
}

// GetQuote returns the latest EOD row for a symbol with the previous close
// inferred from the percent change. Returns nil when the symbol has no data.
// PE and EPS are not tracked by this pipeline and are surfaced as zero
// rather than fabricated.
func (s *Service) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	stockID, err := s.stockRepo.GetID(symbol)
	if err != nil {
		return nil, fmt.Errorf("GetQuote: %w", err)
	}
	if stockID == "" {
		return nil, nil
	}

	latest, err := s.eodRepo.GetLatestPrice(stockID)
	if err != nil {
		return nil, fmt.Errorf("GetQuote: %w", err)
	}
	if latest == nil {
		return nil, nil
	}

	currentPrice := latest.ClosePrice
	percentChange := latest.PctChange

	var change, previousClose float64
	if percentChange != 0 {
		previousClose = currentPrice / (1 + percentChange/100)
		change = currentPrice - previousClose
	} else {
		previousClose = currentPrice
	}

	return &Quote{
		CurrentPrice:  round2(currentPrice),
		Change:        round2(change),
		PercentChange: round2(percentChange),
		High:          round2(latest.HighPrice),
		Low:           round2(latest.LowPrice),
		Open:          round2(latest.OpenPrice),
		PreviousClose: round2(previousClose),
	}, nil
}

// GetPreviousClosesBatch returns the most recent close per symbol. Unknown
// symbols are absent from the map; an empty input returns an empty map
// without touching the database.
func (s *Service) GetPreviousClosesBatch(symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}
	return s.eodRepo.GetPreviousClosesBatch(symbols)
}

// GetLatestEODBatch returns {price, volume, changePercent, previousClose}
// per symbol. When autoFetch is set and any symbol has no row for the latest
// trading date, the backfill service is invoked for the missing set and the
// batch is re-queried. Backfill errors degrade to whatever data is present.
func (s *Service) GetLatestEODBatch(ctx context.Context, symbols []string, autoFetch bool) (map[string]LatestEOD, error) {
	result := make(map[string]LatestEOD)
	if len(symbols) == 0 {
		return result, nil
	}

	rows, err := s.eodRepo.GetLatestEODBatch(symbols)
	if err != nil {
		return nil, fmt.Errorf("GetLatestEODBatch: %w", err)
	}

	if autoFetch {
		targetDate := markethours.LatestTradingDate(time.Now())

		missing := make([]string, 0)
		for _, symbol := range symbols {
			row, ok := rows[symbol]
			if !ok || row.TradingDate.Before(targetDate) {
				missing = append(missing, symbol)
			}
		}

		if len(missing) > 0 {
			log.Printf("📥 Latest EOD missing/outdated for %d symbols, backfilling %s",
				len(missing), targetDate.Format("2006-01-02"))
			written, err := s.backfill.BackfillDate(ctx, missing, targetDate)
			if err != nil {
				log.Printf("⚠️  EOD backfill error: %v", err)
			}
			if written > 0 {
				rows, err = s.eodRepo.GetLatestEODBatch(symbols)
				if err != nil {
					return nil, fmt.Errorf("GetLatestEODBatch re-query: %w", err)
				}
			}
		}
	}

	for symbol, row := range rows {
		price := row.ClosePrice
		previousClose := price
		if row.PctChange != 0 {
			previousClose = price / (1 + row.PctChange/100)
		}
		result[symbol] = LatestEOD{
			Price:         price,
			Volume:        row.Volume,
			ChangePercent: row.PctChange,
			PreviousClose: round2(previousClose),
		}
	}
	return result, nil
}

// GetAccumulatedVolumes returns the running cumulative trade volume per
// symbol, 0 for symbols with no trades (registered or not). Results are
// cached for a couple of seconds keyed by the sorted symbol list; two
// concurrent misses may both compute, last write wins.
func (s *Service) GetAccumulatedVolumes(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	cacheKey := volumesCacheKey(symbols)
	if s.redis != nil {
		var cached map[string]float64
		if err := s.redis.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		} else if !cache.IsCacheMiss(err) {
			log.Printf("⚠️  Volumes cache read error: %v", err)
		}
	}

	volumes, err := s.tradeRepo.GetAccumulatedVolumes(symbols)
	if err != nil {
		return nil, fmt.Errorf("GetAccumulatedVolumes: %w", err)
	}
	// Requested symbols with no registry row still get an explicit zero.
	for _, symbol := range symbols {
		if _, ok := volumes[symbol]; !ok {
			volumes[symbol] = 0
		}
	}

	if s.redis != nil {
		helpers.SafeRedisCall("cache volumes", func() (struct{}, error) {
			return struct{}{}, s.redis.Set(ctx, cacheKey, volumes, volumesCacheTTL)
		})
	}
	return volumes, nil
}

// GetCandles returns the most recent bars for a symbol and timeframe, newest
// first. A pre-rendered candles key in Redis is served when present.
func (s *Service) GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]bars.Candle, error) {
	if s.redis != nil {
		var cached []bars.Candle
		key := fmt.Sprintf("candles:%s:%s", symbol, timeframe)
		if err := s.redis.Get(ctx, key, &cached); err == nil {
			if len(cached) > limit {
				cached = cached[:limit]
			}
			return cached, nil
		} else if !cache.IsCacheMiss(err) {
			log.Printf("⚠️  Candles cache read error: %v", err)
		}
	}
	return s.barRepo.GetCandles(symbol, timeframe, limit)
}

// periodDays maps a display period to a lookback in days.
var periodDays = map[string]int{
	"1d":  1,
	"5d":  5,
	"1m":  30,
	"3m":  90,
	"6m":  180,
	"ytd": 365,
	"1y":  365,
	"5y":  1825,
	"max": 3650,
}

// PeriodDays resolves a display period to its lookback in days, defaulting
// to 90 for unknown periods.
func PeriodDays(period string) int {
	if days, ok := periodDays[period]; ok {
		return days
	}
	return 90
}

// GetPriceHistory returns daily OHLCV points covering the given period,
// oldest first.
func (s *Service) GetPriceHistory(symbol, period string) ([]eod.PricePoint, error) {
	from := time.Now().AddDate(0, 0, -PeriodDays(period))
	return s.eodRepo.GetPriceHistory(symbol, from)
}

// volumesCacheKey builds the cache key from the sorted symbol list so the
// same batch in any order shares one entry.
func volumesCacheKey(symbols []string) string {
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)
	return "heatmap:volumes:" + strings.Join(sorted, ":")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
