// Package translate turns free-text card searches into Scryfall syntax by
// calling the translation backend, with client-side caching and request
// deduplication layered in front of the network.
package translate

import "context"

// FilterState mirrors the UI-selected constraints that accompany a query.
// It participates in cache-key equality, so field order and omitempty tags
// matter for stable serialization.
type FilterState struct {
	Colors  []string `json:"colors,omitempty"`
	Types   []string `json:"types,omitempty"`
	ManaMin *int     `json:"mana_min,omitempty"`
	ManaMax *int     `json:"mana_max,omitempty"`
	Sort    string   `json:"sort,omitempty"`
}

// Request is one translation request. Cache and dedup equality is structural
// over Query, Filters and CacheSalt; BypassCache never participates.
type Request struct {
	Query       string       `json:"query"`
	Filters     *FilterState `json:"filters"`
	CacheSalt   string       `json:"cache_salt,omitempty"`
	BypassCache bool         `json:"bypass_cache,omitempty"`
}

// Source identifies where a translation result came from.
type Source string

const (
	SourceAI            Source = "ai"
	SourceDeterministic Source = "deterministic"
	SourceCache         Source = "cache"
	SourceFallback      Source = "client_fallback"
)

// Explanation describes how the translator interpreted the query.
// Confidence is in [0, 1].
type Explanation struct {
	Readable    string   `json:"readable"`
	Assumptions []string `json:"assumptions"`
	Confidence  float64  `json:"confidence"`
}

// Result is a completed translation. ScryfallQuery is always non-empty and
// structurally balanced; the client enforces that before returning one.
type Result struct {
	ScryfallQuery    string      `json:"scryfall_query"`
	Explanation      Explanation `json:"explanation"`
	ShowAffiliate    bool        `json:"show_affiliate"`
	ValidationIssues []string    `json:"validation_issues,omitempty"`
	Intent           string      `json:"intent,omitempty"`
	Source           Source      `json:"source"`
}

// Translator is anything that can translate a request: the HTTP client, the
// caching layer wrapped around it, or a test fake.
type Translator interface {
	Translate(ctx context.Context, req Request) (*Result, error)
}
