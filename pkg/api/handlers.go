package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/tolaria/manasearch/pkg/searcher"
	"github.com/tolaria/manasearch/pkg/syntax"
	"github.com/tolaria/manasearch/pkg/version"
)

// HandleSearch runs the full pipeline for one query: rate-limit check,
// cached/deduplicated translation with timeout and fallback, then optional
// execution against the card API when execute=true.
func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "Missing query parameter", "Query parameter 'q' is required")
		return
	}

	opts := searcher.Options{
		BypassCache: r.URL.Query().Get("bypass_cache") == "true",
		CacheSalt:   r.URL.Query().Get("cache_salt"),
	}

	outcome, notice, ok := s.runSearch(r, query, opts)
	if !ok {
		s.writeError(w, http.StatusGatewayTimeout, "Search did not settle", "The search pipeline produced no outcome in time")
		return
	}

	response := SearchResponse{Query: query, Notice: notice}
	if outcome != nil {
		response.Result = &outcome.Result
		response.ScryfallQuery = outcome.Result.ScryfallQuery
	}

	if notice.Kind == searcher.NoticeRateLimited {
		s.writeJSON(w, http.StatusTooManyRequests, response)
		return
	}

	if outcome != nil && s.cards != nil && r.URL.Query().Get("execute") == "true" {
		page, err := s.cards.Search(r.Context(), outcome.Result.ScryfallQuery, 1)
		if err != nil {
			s.logger.Warnf("executing card search: %v", err)
		} else {
			response.Cards = page
		}
	}

	s.writeJSON(w, http.StatusOK, response)
}

// HandleTranslate runs translation only, without touching the card API.
func (s *Server) HandleTranslate(w http.ResponseWriter, r *http.Request) {
	var req TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "Missing query", "Field 'query' is required")
		return
	}

	opts := searcher.Options{
		Filters:     req.Filters,
		CacheSalt:   req.CacheSalt,
		BypassCache: req.BypassCache,
	}

	outcome, notice, ok := s.runSearch(r, query, opts)
	if !ok {
		s.writeError(w, http.StatusGatewayTimeout, "Translation did not settle", "The translation produced no outcome in time")
		return
	}

	response := SearchResponse{Query: query, Notice: notice}
	if outcome != nil {
		response.Result = &outcome.Result
		response.ScryfallQuery = outcome.Result.ScryfallQuery
	}
	if notice.Kind == searcher.NoticeRateLimited {
		s.writeJSON(w, http.StatusTooManyRequests, response)
		return
	}
	s.writeJSON(w, http.StatusOK, response)
}

// runSearch executes one search session and waits for it to settle. Every
// non-empty search emits exactly one notice, and the outcome (when there is
// one) is delivered before the notice, so waiting on the notice is enough.
func (s *Server) runSearch(r *http.Request, query string, opts searcher.Options) (*searcher.Outcome, searcher.Notice, bool) {
	outcomeCh := make(chan searcher.Outcome, 1)
	noticeCh := make(chan searcher.Notice, 4)

	session := searcher.New(s.translator, s.history, s.limiter, searcher.Config{
		Timeout:  s.config.Timeout,
		Cooldown: s.config.Cooldown,
	})
	session.OnResult(func(o searcher.Outcome) {
		outcomeCh <- o
	})
	session.OnNotice(func(n searcher.Notice) {
		s.hub.Broadcast(n)
		select {
		case noticeCh <- n:
		default:
		}
	})

	session.HandleSearch(query, opts)

	select {
	case notice := <-noticeCh:
		var outcome *searcher.Outcome
		select {
		case o := <-outcomeCh:
			outcome = &o
		default:
		}
		return outcome, notice, true
	case <-r.Context().Done():
		return nil, searcher.Notice{}, false
	case <-time.After(s.config.Timeout + 2*time.Second):
		return nil, searcher.Notice{}, false
	}
}

// HandleValidate reports structural validation and precedence normalization
// for a raw query without running a search.
func (s *Server) HandleValidate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	report := syntax.Validate(query)

	issues := report.Issues
	if issues == nil {
		issues = []string{}
	}
	s.writeJSON(w, http.StatusOK, ValidateResponse{
		Sanitized:  report.Sanitized,
		Normalized: syntax.NormalizeBooleanPrecedence(report.Sanitized),
		Issues:     issues,
		Valid:      len(report.Issues) == 0,
	})
}

// HandleHistory returns the search history, most recent first.
func (s *Server) HandleHistory(w http.ResponseWriter, r *http.Request) {
	entries := s.history.Entries()
	s.writeJSON(w, http.StatusOK, HistoryResponse{Entries: entries, Count: len(entries)})
}

// HandleHistoryDelete removes one entry (?query=...) or clears the history.
func (s *Server) HandleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	var err error
	if query == "" {
		err = s.history.Clear()
	} else {
		err = s.history.Remove(query)
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "History update failed", err.Error())
		return
	}

	entries := s.history.Entries()
	s.writeJSON(w, http.StatusOK, HistoryResponse{Entries: entries, Count: len(entries)})
}

// HandleHealth reports liveness plus the current rate-limit cooldown.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   version.APIVersion(),
		Cooldown:  s.limiter.Seconds(),
	})
}
