package searcher

import (
	"time"

	"github.com/google/uuid"
	"github.com/tolaria/manasearch/pkg/translate"
)

// NoticeKind classifies the transient notices a search emits. Rendering is a
// UI concern; the kinds carry everything needed to render them.
type NoticeKind string

const (
	// NoticeSuccess: the translation completed and the result is current.
	NoticeSuccess NoticeKind = "success"
	// NoticeTimeout: the backend exceeded the deadline and a client-side
	// fallback query was delivered instead.
	NoticeTimeout NoticeKind = "timeout_degraded"
	// NoticeRateLimited: the search was withheld or rejected because of a
	// rate-limit cooldown.
	NoticeRateLimited NoticeKind = "rate_limited"
	// NoticeDegraded: the backend failed for any other reason and a
	// client-side fallback query was delivered.
	NoticeDegraded NoticeKind = "degraded"
)

// Notice is one classified user-facing event from the search pipeline.
type Notice struct {
	ID              uuid.UUID        `json:"id"`
	Kind            NoticeKind       `json:"kind"`
	Source          translate.Source `json:"source,omitempty"`
	QueryPreview    string           `json:"query_preview"`
	CooldownSeconds int              `json:"cooldown_seconds,omitempty"`
	Message         string           `json:"message"`
	At              time.Time        `json:"at"`
}

const previewLimit = 60

// preview truncates a query for display in notices.
func preview(query string) string {
	runes := []rune(query)
	if len(runes) <= previewLimit {
		return query
	}
	return string(runes[:previewLimit]) + "…"
}
