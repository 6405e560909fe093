// Package scryfall is a thin client for the card search API that consumes the
// final translated query string. It paginates /cards/search, treats 404 as an
// empty result set and spaces requests out to stay inside the API's courtesy
// rate guidance.
package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tolaria/manasearch/pkg/log"
	"github.com/tolaria/manasearch/pkg/version"
)

const (
	// DefaultEndpoint is the public API root.
	DefaultEndpoint = "https://api.scryfall.com"
	// DefaultMinInterval spaces consecutive requests per the API's
	// published guidance (50-100ms between requests).
	DefaultMinInterval = 100 * time.Millisecond
)

// Card is the subset of the card object the pipeline surfaces.
type Card struct {
	Name        string `json:"name"`
	ManaCost    string `json:"mana_cost"`
	TypeLine    string `json:"type_line"`
	OracleText  string `json:"oracle_text"`
	SetName     string `json:"set_name"`
	Rarity      string `json:"rarity"`
	ScryfallURI string `json:"scryfall_uri"`
	Prices      struct {
		USD string `json:"usd"`
	} `json:"prices"`
}

// SearchPage is one page of search results.
type SearchPage struct {
	TotalCards int    `json:"total_cards"`
	HasMore    bool   `json:"has_more"`
	Data       []Card `json:"data"`
}

// Client talks to the card search API. Safe for concurrent use; requests are
// serialized through the courtesy interval.
type Client struct {
	endpoint    string
	httpClient  *http.Client
	minInterval time.Duration
	logger      *log.Logger

	mu          sync.Mutex
	lastRequest time.Time
}

// NewClient creates a client for endpoint, or the public API when empty.
func NewClient(endpoint string, minInterval time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &Client{
		endpoint:    strings.TrimRight(endpoint, "/"),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		minInterval: minInterval,
		logger:      log.ForService("scryfall"),
	}
}

// Search runs a card search for the given query string. page is 1-based;
// values below 1 mean the first page. A 404 response means the query matched
// nothing and returns an empty page rather than an error.
func (c *Client) Search(ctx context.Context, query string, page int) (*SearchPage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}
	if page < 1 {
		page = 1
	}

	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("page", strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.endpoint+"/cards/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "manasearch/"+version.Version)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("card search request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warnf("closing response body: %v", err)
		}
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return &SearchPage{}, nil
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("card API rate limited the request")
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("card API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var pageResult SearchPage
	if err := json.NewDecoder(resp.Body).Decode(&pageResult); err != nil {
		return nil, fmt.Errorf("decoding card search response: %w", err)
	}
	c.logger.Debugf("query %q page %d: %d cards (total %d)", query, page, len(pageResult.Data), pageResult.TotalCards)
	return &pageResult, nil
}

// throttle waits out the courtesy interval since the previous request.
func (c *Client) throttle(ctx context.Context) error {
	c.mu.Lock()
	now := time.Now()
	wait := c.minInterval - now.Sub(c.lastRequest)
	if wait < 0 {
		wait = 0
	}
	c.lastRequest = now.Add(wait)
	c.mu.Unlock()

	if wait == 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
