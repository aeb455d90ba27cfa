package api

import (
	"net/http"

	"marketflow/validation"
)

func (s *Server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	symbol, err := validation.NormalizeSymbol(r.URL.Query().Get("symbol"))
	if err != nil {
		respondQueryError(w, err)
		return
	}

	quote, err := s.queries.GetQuote(r.Context(), symbol)
	if err != nil {
		respondQueryError(w, err)
		return
	}
	if quote == nil {
		respondWithError(w, http.StatusNotFound, "no data for symbol "+symbol, nil)
		return
	}
	respondWithJSON(w, http.StatusOK, quote)
}

func (s *Server) handleGetLatestEOD(w http.ResponseWriter, r *http.Request) {
	symbols, err := validation.ParseSymbolsCSV(r.URL.Query().Get("symbols"))
	if err != nil {
		respondQueryError(w, err)
		return
	}
	autoFetch := r.URL.Query().Get("auto_fetch") != "false"

	result, err := s.queries.GetLatestEODBatch(r.Context(), symbols, autoFetch)
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetPreviousCloses(w http.ResponseWriter, r *http.Request) {
	symbols, err := validation.ParseSymbolsCSV(r.URL.Query().Get("symbols"))
	if err != nil {
		respondQueryError(w, err)
		return
	}

	closes, err := s.queries.GetPreviousClosesBatch(symbols)
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, closes)
}

func (s *Server) handleGetVolumes(w http.ResponseWriter, r *http.Request) {
	symbols, err := validation.ParseSymbolsCSV(r.URL.Query().Get("symbols"))
	if err != nil {
		respondQueryError(w, err)
		return
	}

	volumes, err := s.queries.GetAccumulatedVolumes(r.Context(), symbols)
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, volumes)
}

func (s *Server) handleGetCandles(w http.ResponseWriter, r *http.Request) {
	symbol, err := validation.NormalizeSymbol(r.URL.Query().Get("symbol"))
	if err != nil {
		respondQueryError(w, err)
		return
	}
	timeframe := r.URL.Query().Get("timeframe")
	if timeframe == "" {
		timeframe = "1m"
	}
	minLimit, maxLimit := 1, 1000
	limit := getIntParam(r, "limit", 100, &minLimit, &maxLimit)

	candles, err := s.queries.GetCandles(r.Context(), symbol, timeframe, limit)
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":    symbol,
		"timeframe": timeframe,
		"candles":   candles,
	})
}

func (s *Server) handleGetPriceHistory(w http.ResponseWriter, r *http.Request) {
	symbol, err := validation.NormalizeSymbol(r.URL.Query().Get("symbol"))
	if err != nil {
		respondQueryError(w, err)
		return
	}
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "3m"
	}

	points, err := s.queries.GetPriceHistory(symbol, period)
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"period": period,
		"points": points,
	})
}
