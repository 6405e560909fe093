package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tolaria/manasearch/pkg/log"
	"github.com/tolaria/manasearch/pkg/syntax"
	"golang.org/x/oauth2"
)

// Client calls the translation backend over HTTP. It classifies failures into
// typed errors and validates the returned query before handing it to callers,
// so downstream code never sees an empty or unbalanced Scryfall string.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *log.Logger
}

// NewClient creates a translation client for the given endpoint. When apiKey
// is non-empty the underlying transport attaches it as a bearer token.
func NewClient(endpoint, apiKey string) *Client {
	httpClient := &http.Client{Timeout: 60 * time.Second}
	if apiKey != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: httpClient,
		logger:     log.ForService("translate"),
	}
}

type errorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Translate posts the request to the backend and decodes the result.
// HTTP 429 and rate-limit error codes map to KindRateLimited; every other
// transport or decode failure maps to KindUnavailable or KindBadResponse.
func (c *Client) Translate(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &Error{Kind: KindBadResponse, Message: fmt.Sprintf("encoding request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/translate", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, Message: err.Error()}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warnf("closing response body: %v", err)
		}
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &Error{Kind: KindRateLimited, Message: "translation backend rate limited the request"}
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		var payload errorPayload
		if json.Unmarshal(snippet, &payload) == nil && payload.Code == "rate_limited" {
			return nil, &Error{Kind: KindRateLimited, Message: payload.Error}
		}
		return nil, &Error{
			Kind:    KindUnavailable,
			Message: fmt.Sprintf("backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
		}
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &Error{Kind: KindBadResponse, Message: fmt.Sprintf("decoding response: %v", err)}
	}

	if result.Source == "" {
		result.Source = SourceAI
	}

	report := syntax.Validate(result.ScryfallQuery)
	if report.HasStructuralIssue() {
		return nil, &Error{
			Kind:    KindBadResponse,
			Message: fmt.Sprintf("backend produced unusable query %q: %s", result.ScryfallQuery, strings.Join(report.Issues, "; ")),
		}
	}
	result.ScryfallQuery = syntax.NormalizeBooleanPrecedence(report.Sanitized)
	result.ValidationIssues = append(result.ValidationIssues, report.Issues...)

	c.logger.Debugf("translated %q -> %q (source=%s)", req.Query, result.ScryfallQuery, result.Source)
	return &result, nil
}
