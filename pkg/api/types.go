package api

import (
	"time"

	"github.com/tolaria/manasearch/pkg/scryfall"
	"github.com/tolaria/manasearch/pkg/searcher"
	"github.com/tolaria/manasearch/pkg/translate"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type SearchResponse struct {
	Query         string               `json:"query"`
	ScryfallQuery string               `json:"scryfall_query"`
	Result        *translate.Result    `json:"result,omitempty"`
	Notice        searcher.Notice      `json:"notice"`
	Cards         *scryfall.SearchPage `json:"cards,omitempty"`
}

type TranslateRequest struct {
	Query       string                 `json:"query"`
	Filters     *translate.FilterState `json:"filters,omitempty"`
	CacheSalt   string                 `json:"cache_salt,omitempty"`
	BypassCache bool                   `json:"bypass_cache,omitempty"`
}

type ValidateResponse struct {
	Sanitized  string   `json:"sanitized"`
	Normalized string   `json:"normalized"`
	Issues     []string `json:"issues"`
	Valid      bool     `json:"valid"`
}

type HistoryResponse struct {
	Entries []string `json:"entries"`
	Count   int      `json:"count"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Cooldown  int       `json:"cooldown_seconds"`
}
