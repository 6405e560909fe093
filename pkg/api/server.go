// Package api exposes the search pipeline over HTTP: translation, validation,
// card search execution, history management and a websocket firehose of
// search notices.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tolaria/manasearch/pkg/history"
	"github.com/tolaria/manasearch/pkg/log"
	"github.com/tolaria/manasearch/pkg/scryfall"
	"github.com/tolaria/manasearch/pkg/searcher"
	"github.com/tolaria/manasearch/pkg/translate"
)

// Config carries the per-search knobs the server passes to each session.
type Config struct {
	Timeout  time.Duration
	Cooldown time.Duration
}

// Server wires shared pipeline state (cache, history, limiter, card client)
// into HTTP handlers. Each search request gets its own session; the limiter
// and the caches are shared so cooldowns and dedup apply across requests.
type Server struct {
	translator translate.Translator
	history    *history.Store
	limiter    *searcher.Limiter
	cards      *scryfall.Client
	config     Config
	hub        *noticeHub
	logger     *log.Logger
}

// NewServer creates an API server. cards may be nil to disable execution of
// translated queries against the card API.
func NewServer(translator translate.Translator, hist *history.Store, limiter *searcher.Limiter, cards *scryfall.Client, cfg Config) *Server {
	if cfg.Timeout <= 0 {
		cfg.Timeout = searcher.DefaultTimeout
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = searcher.DefaultCooldown
	}
	return &Server{
		translator: translator,
		history:    hist,
		limiter:    limiter,
		cards:      cards,
		config:     cfg,
		hub:        newNoticeHub(),
		logger:     log.ForService("api"),
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: error, Message: message})
}

// CorsMiddleware allows browser front-ends on other origins to call the API.
func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
