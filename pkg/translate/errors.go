package translate

import (
	"errors"
	"strings"
)

// Kind classifies translation failures so callers can branch on the failure
// class instead of matching error message text.
type Kind string

const (
	KindRateLimited Kind = "rate_limited"
	KindUnavailable Kind = "unavailable"
	KindBadResponse Kind = "bad_response"
)

// Error is a classified translation failure.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// rateLimitMarkers are matched against opaque error text from backends that
// do not return a structured kind. Compatibility net only; the HTTP client
// always produces a typed *Error.
var rateLimitMarkers = []string{"429", "rate", "Rate limit", "Please wait"}

// IsRateLimited reports whether err represents a rate-limit condition, either
// via a typed *Error or by marker text in an opaque error.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Kind == KindRateLimited
	}
	msg := err.Error()
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
