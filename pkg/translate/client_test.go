package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestBackend(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "")
}

func TestClientTranslateSuccess(t *testing.T) {
	client := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate" {
			t.Errorf("expected /translate, got %s", r.URL.Path)
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Query != "green ramp" {
			t.Errorf("expected query 'green ramp', got %q", req.Query)
		}
		_ = json.NewEncoder(w).Encode(Result{
			ScryfallQuery: "otag:ramp c:green",
			Explanation:   Explanation{Readable: "ramp spells in green", Confidence: 0.92},
			Source:        SourceAI,
		})
	})

	result, err := client.Translate(context.Background(), Request{Query: "green ramp"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ScryfallQuery != "otag:ramp c:green" {
		t.Errorf("expected translated query, got %q", result.ScryfallQuery)
	}
	if result.Source != SourceAI {
		t.Errorf("expected source ai, got %s", result.Source)
	}
}

func TestClientDefaultsMissingSource(t *testing.T) {
	client := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Result{ScryfallQuery: "c:g"})
	})

	result, err := client.Translate(context.Background(), Request{Query: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Source != SourceAI {
		t.Errorf("expected defaulted source ai, got %s", result.Source)
	}
}

func TestClientRateLimitStatus(t *testing.T) {
	client := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Translate(context.Background(), Request{Query: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	var terr *Error
	if !errors.As(err, &terr) || terr.Kind != KindRateLimited {
		t.Errorf("expected typed rate-limit error, got %v", err)
	}
	if !IsRateLimited(err) {
		t.Error("IsRateLimited should report true")
	}
}

func TestClientRateLimitPayloadCode(t *testing.T) {
	client := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "Please wait before searching again",
			"code":  "rate_limited",
		})
	})

	_, err := client.Translate(context.Background(), Request{Query: "x"})
	if !IsRateLimited(err) {
		t.Errorf("expected rate-limit classification, got %v", err)
	}
}

func TestClientGenericFailure(t *testing.T) {
	client := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Translate(context.Background(), Request{Query: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if IsRateLimited(err) {
		t.Errorf("500 must not classify as rate limit: %v", err)
	}
}

func TestClientRejectsUnbalancedQuery(t *testing.T) {
	client := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Result{ScryfallQuery: "(c:green t:creature"})
	})

	_, err := client.Translate(context.Background(), Request{Query: "x"})
	if err == nil {
		t.Fatal("expected unbalanced query to be rejected")
	}
	var terr *Error
	if !errors.As(err, &terr) || terr.Kind != KindBadResponse {
		t.Errorf("expected bad-response kind, got %v", err)
	}
}

func TestClientRejectsEmptyQuery(t *testing.T) {
	client := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Result{ScryfallQuery: "   "})
	})

	if _, err := client.Translate(context.Background(), Request{Query: "x"}); err == nil {
		t.Fatal("expected empty query to be rejected")
	}
}

func TestIsRateLimitedMarkers(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("upstream returned 429"), true},
		{errors.New("Rate limit exceeded"), true},
		{errors.New("Please wait a moment"), true},
		{errors.New("rate of requests too high"), true},
		{errors.New("connection refused"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := IsRateLimited(tt.err); got != tt.want {
			t.Errorf("IsRateLimited(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
