package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"marketflow/query"
)

// Server handles HTTP API requests
type Server struct {
	queries        *query.Service
	allowedOrigins []string
	httpServer     *http.Server
}

// NewServer creates a new API server instance
func NewServer(queries *query.Service, allowedOrigins []string) *Server {
	return &Server{
		queries:        queries,
		allowedOrigins: allowedOrigins,
	}
}

// Start starts the HTTP server on the specified port and blocks until the
// server exits.
func (s *Server) Start(port int) error {
	mux := http.NewServeMux()

	// Register routes
	mux.HandleFunc("GET /api/quote", s.handleGetQuote)
	mux.HandleFunc("GET /api/market/latest-eod", s.handleGetLatestEOD)
	mux.HandleFunc("GET /api/market/previous-closes", s.handleGetPreviousCloses)
	mux.HandleFunc("GET /api/market/volumes", s.handleGetVolumes)
	mux.HandleFunc("GET /api/candles", s.handleGetCandles)
	mux.HandleFunc("GET /api/price-history", s.handleGetPriceHistory)

	mux.HandleFunc("GET /health", s.handleHealth)

	// Add middleware
	handler := s.corsMiddleware(s.loggingMiddleware(mux))

	serverAddr := fmt.Sprintf("0.0.0.0:%d", port)
	s.httpServer = &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	log.Printf("🚀 API Server starting on %s", serverAddr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowed := s.resolveOrigin(origin); allowed != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowed)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) resolveOrigin(origin string) string {
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if allowed == origin {
			return origin
		}
	}
	return ""
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
