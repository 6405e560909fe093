// Package searcher drives one search session: rate limiting, cancellable
// translation with a timeout race, stale-result suppression and classified
// notices. It is the only component with real state-machine behavior; every
// failure path degrades to a usable result or a no-op, never a surfaced error.
package searcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tolaria/manasearch/pkg/log"
	"github.com/tolaria/manasearch/pkg/syntax"
	"github.com/tolaria/manasearch/pkg/translate"
)

const (
	// DefaultTimeout bounds one translation attempt.
	DefaultTimeout = 15 * time.Second
	// DefaultCooldown is the local lockout after a backend rate limit.
	DefaultCooldown = 30 * time.Second
)

// History is the slice of the history store the searcher needs.
type History interface {
	Add(query string) error
}

// Outcome is the normalized result handed to the completion callback.
type Outcome struct {
	Query  string
	Result translate.Result
}

// Options carry the per-search knobs that accompany the query text.
type Options struct {
	Filters     *translate.FilterState
	CacheSalt   string
	BypassCache bool
}

// Config tunes a search session. Zero values pick the defaults.
type Config struct {
	Timeout  time.Duration
	Cooldown time.Duration
}

// Searcher owns one logical search session. Starting a new search cancels the
// transport of the previous one; a monotonic token minted per invocation is
// the sole arbiter of which result may update state. Results for superseded
// tokens are discarded silently.
type Searcher struct {
	translator translate.Translator
	history    History
	limiter    *Limiter
	timeout    time.Duration
	cooldown   time.Duration
	logger     *log.Logger

	onResult func(Outcome)
	onNotice func(Notice)

	mu        sync.Mutex
	token     uint64
	cancel    context.CancelFunc
	lastQuery string
	searching bool
	now       func() time.Time
}

// New creates a search session. translator is usually a *translate.Cache so
// identical concurrent searches collapse into one backend call; history and
// limiter may be shared across sessions. A nil limiter gets a private one.
func New(translator translate.Translator, history History, limiter *Limiter, cfg Config) *Searcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if limiter == nil {
		limiter = NewLimiter()
	}
	return &Searcher{
		translator: translator,
		history:    history,
		limiter:    limiter,
		timeout:    cfg.Timeout,
		cooldown:   cfg.Cooldown,
		logger:     log.ForService("searcher"),
		now:        time.Now,
	}
}

// OnResult registers the completion callback. It is invoked at most once per
// search, and never for a superseded one.
func (s *Searcher) OnResult(fn func(Outcome)) {
	s.onResult = fn
}

// OnNotice registers the notice callback.
func (s *Searcher) OnNotice(fn func(Notice)) {
	s.onNotice = fn
}

// Searching reports whether a search is currently in flight.
func (s *Searcher) Searching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searching
}

// Cooldown returns the remaining rate-limit cooldown in whole seconds.
func (s *Searcher) Cooldown() int {
	return s.limiter.Seconds()
}

// Limiter exposes the session's limiter, for countdown display.
func (s *Searcher) Limiter() *Limiter {
	return s.limiter
}

// HandleSearch starts one search. An empty resolved query is a no-op; a live
// rate-limit cooldown rejects the search locally with a notice. Otherwise the
// query is recorded in history, any prior in-flight request is cancelled, and
// the translation is raced against the timeout on a fresh goroutine. The
// completion callback fires with a real result on success or a client-built
// fallback on timeout or failure; rate-limit errors trip the cooldown instead
// of falling back.
func (s *Searcher) HandleSearch(queryOverride string, opts Options) {
	query := strings.TrimSpace(queryOverride)
	if query == "" {
		s.mu.Lock()
		query = s.lastQuery
		s.mu.Unlock()
	}
	if query == "" {
		return
	}

	if s.limiter.Limited() {
		s.emit(Notice{
			Kind:            NoticeRateLimited,
			QueryPreview:    preview(query),
			CooldownSeconds: s.limiter.Seconds(),
			Message:         fmt.Sprintf("Too many searches. Try again in %d seconds.", s.limiter.Seconds()),
		})
		return
	}

	if s.history != nil {
		if err := s.history.Add(query); err != nil {
			s.logger.Warnf("recording history: %v", err)
		}
	}

	s.mu.Lock()
	s.token++
	token := s.token
	if s.cancel != nil {
		// best-effort abort of the superseded request's transport; the
		// token check is what actually guarantees correctness
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.searching = true
	s.lastQuery = query
	s.mu.Unlock()

	go s.run(ctx, token, query, opts)
}

func (s *Searcher) run(ctx context.Context, token uint64, query string, opts Options) {
	defer func() {
		s.mu.Lock()
		if token == s.token {
			s.searching = false
			if s.cancel != nil {
				s.cancel()
				s.cancel = nil
			}
		}
		s.mu.Unlock()
	}()

	type settled struct {
		result *translate.Result
		err    error
	}
	ch := make(chan settled, 1)
	go func() {
		result, err := s.translator.Translate(ctx, translate.Request{
			Query:       query,
			Filters:     opts.Filters,
			CacheSalt:   opts.CacheSalt,
			BypassCache: opts.BypassCache,
		})
		ch <- settled{result, err}
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	var outcome settled
	timedOut := false
	select {
	case outcome = <-ch:
	case <-timer.C:
		timedOut = true
	case <-ctx.Done():
		// superseded before anything settled
		return
	}

	if !s.current(token) {
		// a newer search won the race for this session; drop silently
		return
	}

	switch {
	case timedOut:
		result := s.fallbackResult(query, "The translation service took too long, so this search was built directly from your text.")
		s.deliver(token, query, result)
		s.emit(Notice{
			Kind:         NoticeTimeout,
			Source:       translate.SourceFallback,
			QueryPreview: preview(query),
			Message:      "Search took too long; showing a simplified match instead.",
		})
	case outcome.err != nil && translate.IsRateLimited(outcome.err):
		s.limiter.Trip(s.cooldown)
		s.logger.Warnf("rate limited by backend, cooling down %v", s.cooldown)
		s.emit(Notice{
			Kind:            NoticeRateLimited,
			QueryPreview:    preview(query),
			CooldownSeconds: s.limiter.Seconds(),
			Message:         fmt.Sprintf("Rate limited. Try again in %d seconds.", s.limiter.Seconds()),
		})
	case outcome.err != nil:
		s.logger.Warnf("translation failed: %v", outcome.err)
		result := s.fallbackResult(query, "The translation service was unavailable, so this search was built directly from your text.")
		s.deliver(token, query, result)
		s.emit(Notice{
			Kind:         NoticeDegraded,
			Source:       translate.SourceFallback,
			QueryPreview: preview(query),
			Message:      "Smart search unavailable; showing a direct match instead.",
		})
	default:
		s.deliver(token, query, *outcome.result)
		s.emit(Notice{
			Kind:         NoticeSuccess,
			Source:       outcome.result.Source,
			QueryPreview: preview(query),
			Message:      fmt.Sprintf("Found results for %q.", preview(query)),
		})
	}
}

// current reports whether token is still the latest minted token.
func (s *Searcher) current(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return token == s.token
}

// deliver invokes the completion callback unless the search was superseded
// between settling and delivery.
func (s *Searcher) deliver(token uint64, query string, result translate.Result) {
	if !s.current(token) || s.onResult == nil {
		return
	}
	s.onResult(Outcome{Query: query, Result: result})
}

func (s *Searcher) emit(notice Notice) {
	if s.onNotice == nil {
		return
	}
	notice.ID = uuid.New()
	notice.At = s.now()
	s.onNotice(notice)
}

// fallbackResult builds a degraded result from the raw query text.
func (s *Searcher) fallbackResult(query, reason string) translate.Result {
	return translate.Result{
		ScryfallQuery: syntax.BuildFallbackQuery(query),
		Explanation: translate.Explanation{
			Readable:    "Direct text match for: " + preview(query),
			Assumptions: []string{reason},
			Confidence:  0.3,
		},
		Source: translate.SourceFallback,
	}
}
