// Package api provides the HTTP server for the trading simulator: the
// trading endpoints, portfolio and market views, and clickstream capture.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"tradesim/internal/ledger"
	"tradesim/internal/quote"
	"tradesim/internal/telemetry"
	"tradesim/internal/util"
)

// Server hosts the simulator's HTTP API. All endpoints are session scoped:
// a cookie identifies the participant and every request is matched to that
// session's account.
type Server struct {
	ledger   *ledger.Ledger
	quotes   quote.Source
	recorder *telemetry.Recorder
	log      *slog.Logger

	rateLimitPerMin int
	limiters        sync.Map // sessionID → *util.RateLimiter
}

// NewServer creates a Server wired with the given dependencies. recorder may
// be nil to disable clickstream capture. rateLimitPerMin <= 0 disables
// per-session throttling.
func NewServer(l *ledger.Ledger, quotes quote.Source, recorder *telemetry.Recorder, rateLimitPerMin int, log *slog.Logger) *Server {
	return &Server{
		ledger:          l,
		quotes:          quotes,
		recorder:        recorder,
		log:             log,
		rateLimitPerMin: rateLimitPerMin,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /trade", s.withSession(s.handleTrade))
	mux.HandleFunc("POST /cancel_order", s.withSession(s.handleCancelOrder))
	mux.HandleFunc("POST /reset", s.withSession(s.handleReset))
	mux.HandleFunc("POST /event", s.withSession(s.handleEvent))
	mux.HandleFunc("GET /portfolio", s.withSession(s.handlePortfolio))
	mux.HandleFunc("GET /market", s.handleMarket)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func (s *Server) limiter(sessionID string) *util.RateLimiter {
	if rl, ok := s.limiters.Load(sessionID); ok {
		return rl.(*util.RateLimiter)
	}
	rl, _ := s.limiters.LoadOrStore(sessionID, util.NewRateLimiter(s.rateLimitPerMin))
	return rl.(*util.RateLimiter)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
