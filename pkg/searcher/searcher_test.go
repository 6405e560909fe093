package searcher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tolaria/manasearch/pkg/translate"
)

// fakeTranslator scripts the backend: per-query results, errors, or blocking.
type fakeTranslator struct {
	mu      sync.Mutex
	calls   atomic.Int64
	results map[string]translate.Result
	errs    map[string]error
	blocks  map[string]chan struct{} // query -> release channel
}

func newFakeTranslator() *fakeTranslator {
	return &fakeTranslator{
		results: make(map[string]translate.Result),
		errs:    make(map[string]error),
		blocks:  make(map[string]chan struct{}),
	}
}

func (f *fakeTranslator) Translate(ctx context.Context, req translate.Request) (*translate.Result, error) {
	f.calls.Add(1)
	f.mu.Lock()
	block := f.blocks[req.Query]
	err := f.errs[req.Query]
	result, ok := f.results[req.Query]
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		result = translate.Result{ScryfallQuery: "c:g", Source: translate.SourceAI}
	}
	return &result, nil
}

// recordingHistory implements History in memory.
type recordingHistory struct {
	mu      sync.Mutex
	entries []string
}

func (r *recordingHistory) Add(query string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, query)
	return nil
}

func (r *recordingHistory) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.entries...)
}

type session struct {
	searcher *Searcher
	outcomes chan Outcome
	notices  chan Notice
}

func newSession(translator translate.Translator, history History, cfg Config) *session {
	s := &session{
		outcomes: make(chan Outcome, 8),
		notices:  make(chan Notice, 8),
	}
	s.searcher = New(translator, history, nil, cfg)
	s.searcher.OnResult(func(o Outcome) { s.outcomes <- o })
	s.searcher.OnNotice(func(n Notice) { s.notices <- n })
	return s
}

func (s *session) waitNotice(t *testing.T, timeout time.Duration) Notice {
	t.Helper()
	select {
	case n := <-s.notices:
		return n
	case <-time.After(timeout):
		t.Fatal("timed out waiting for notice")
		return Notice{}
	}
}

func TestHandleSearchSuccess(t *testing.T) {
	backend := newFakeTranslator()
	backend.results["green ramp"] = translate.Result{
		ScryfallQuery: "otag:ramp c:green",
		Explanation:   translate.Explanation{Readable: "ramp in green", Confidence: 0.9},
		Source:        translate.SourceAI,
	}
	history := &recordingHistory{}
	s := newSession(backend, history, Config{Timeout: time.Second})

	s.searcher.HandleSearch("green ramp", Options{})

	notice := s.waitNotice(t, time.Second)
	if notice.Kind != NoticeSuccess {
		t.Fatalf("expected success notice, got %s (%s)", notice.Kind, notice.Message)
	}
	if notice.Source != translate.SourceAI {
		t.Errorf("notice source: expected ai, got %s", notice.Source)
	}

	outcome := <-s.outcomes
	if outcome.Result.ScryfallQuery != "otag:ramp c:green" {
		t.Errorf("expected translated query, got %q", outcome.Result.ScryfallQuery)
	}
	if got := history.all(); len(got) != 1 || got[0] != "green ramp" {
		t.Errorf("expected history [green ramp], got %v", got)
	}
}

func TestHandleSearchEmptyQueryIsNoop(t *testing.T) {
	backend := newFakeTranslator()
	history := &recordingHistory{}
	s := newSession(backend, history, Config{Timeout: time.Second})

	s.searcher.HandleSearch("", Options{})
	s.searcher.HandleSearch("   \n ", Options{})

	time.Sleep(50 * time.Millisecond)
	if got := backend.calls.Load(); got != 0 {
		t.Errorf("expected no backend calls, got %d", got)
	}
	if len(history.all()) != 0 {
		t.Error("empty searches must not touch history")
	}
	select {
	case n := <-s.notices:
		t.Errorf("unexpected notice: %+v", n)
	default:
	}
}

func TestHandleSearchEmptyOverrideReusesLastQuery(t *testing.T) {
	backend := newFakeTranslator()
	s := newSession(backend, &recordingHistory{}, Config{Timeout: time.Second})

	s.searcher.HandleSearch("goblins", Options{})
	s.waitNotice(t, time.Second)
	<-s.outcomes

	s.searcher.HandleSearch("", Options{})
	notice := s.waitNotice(t, time.Second)
	if notice.Kind != NoticeSuccess {
		t.Fatalf("expected success, got %s", notice.Kind)
	}
	outcome := <-s.outcomes
	if outcome.Query != "goblins" {
		t.Errorf("expected last query to be reused, got %q", outcome.Query)
	}
}

func TestHandleSearchTimeoutFallsBack(t *testing.T) {
	backend := newFakeTranslator()
	backend.blocks["green ramp"] = make(chan struct{}) // never released
	s := newSession(backend, &recordingHistory{}, Config{Timeout: 100 * time.Millisecond})

	start := time.Now()
	s.searcher.HandleSearch("green ramp", Options{})

	notice := s.waitNotice(t, time.Second)
	if notice.Kind != NoticeTimeout {
		t.Fatalf("expected timeout notice, got %s", notice.Kind)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("fallback arrived before the timeout: %v", elapsed)
	}

	outcome := <-s.outcomes
	if outcome.Result.Source != translate.SourceFallback {
		t.Errorf("expected client_fallback source, got %s", outcome.Result.Source)
	}
	if outcome.Result.ScryfallQuery == "" {
		t.Error("fallback query must not be empty")
	}
	if outcome.Result.Explanation.Confidence >= 0.9 {
		t.Error("fallback should carry reduced confidence")
	}
}

func TestHandleSearchRateLimit(t *testing.T) {
	backend := newFakeTranslator()
	backend.errs["popular"] = &translate.Error{Kind: translate.KindRateLimited, Message: "slow down"}
	s := newSession(backend, &recordingHistory{}, Config{Timeout: time.Second, Cooldown: 30 * time.Second})

	now := time.Now()
	s.searcher.limiter.SetClock(func() time.Time { return now })

	s.searcher.HandleSearch("popular", Options{})
	notice := s.waitNotice(t, time.Second)
	if notice.Kind != NoticeRateLimited {
		t.Fatalf("expected rate-limit notice, got %s", notice.Kind)
	}
	if notice.CooldownSeconds != 30 {
		t.Errorf("expected 30s cooldown, got %d", notice.CooldownSeconds)
	}
	select {
	case o := <-s.outcomes:
		t.Errorf("rate limit must not produce a fallback result, got %+v", o)
	default:
	}

	// inside the cooldown window: rejected locally, no backend call
	calls := backend.calls.Load()
	s.searcher.HandleSearch("anything", Options{})
	notice = s.waitNotice(t, time.Second)
	if notice.Kind != NoticeRateLimited {
		t.Fatalf("expected local rate-limit rejection, got %s", notice.Kind)
	}
	if backend.calls.Load() != calls {
		t.Error("cooldown rejection must not call the backend")
	}

	// after the window a new search goes through
	now = now.Add(31 * time.Second)
	s.searcher.HandleSearch("anything", Options{})
	notice = s.waitNotice(t, time.Second)
	if notice.Kind != NoticeSuccess {
		t.Fatalf("expected success after cooldown, got %s", notice.Kind)
	}
	<-s.outcomes
}

func TestHandleSearchGenericErrorFallsBack(t *testing.T) {
	backend := newFakeTranslator()
	backend.errs["broken"] = errors.New("connection refused")
	s := newSession(backend, &recordingHistory{}, Config{Timeout: time.Second})

	s.searcher.HandleSearch("broken", Options{})
	notice := s.waitNotice(t, time.Second)
	if notice.Kind != NoticeDegraded {
		t.Fatalf("expected degraded notice, got %s", notice.Kind)
	}
	outcome := <-s.outcomes
	if outcome.Result.Source != translate.SourceFallback {
		t.Errorf("expected client_fallback, got %s", outcome.Result.Source)
	}
}

func TestHandleSearchStaleResultSuppressed(t *testing.T) {
	backend := newFakeTranslator()
	first := make(chan struct{})
	backend.blocks["first"] = first
	backend.results["first"] = translate.Result{ScryfallQuery: "t:elf", Source: translate.SourceAI}
	backend.results["second"] = translate.Result{ScryfallQuery: "t:goblin", Source: translate.SourceAI}

	s := newSession(backend, &recordingHistory{}, Config{Timeout: 5 * time.Second})

	s.searcher.HandleSearch("first", Options{})
	time.Sleep(20 * time.Millisecond) // let the first request reach the backend
	s.searcher.HandleSearch("second", Options{})

	notice := s.waitNotice(t, time.Second)
	if notice.Kind != NoticeSuccess {
		t.Fatalf("expected success for second search, got %s", notice.Kind)
	}
	outcome := <-s.outcomes
	if outcome.Result.ScryfallQuery != "t:goblin" {
		t.Fatalf("expected second search result, got %q", outcome.Result.ScryfallQuery)
	}

	// release the first request; its late result must be dropped silently
	close(first)
	time.Sleep(100 * time.Millisecond)
	select {
	case o := <-s.outcomes:
		t.Errorf("stale result leaked through: %+v", o)
	case n := <-s.notices:
		t.Errorf("stale search emitted a notice: %+v", n)
	default:
	}
}

func TestHandleSearchCleansUpSearchingFlag(t *testing.T) {
	backend := newFakeTranslator()
	s := newSession(backend, &recordingHistory{}, Config{Timeout: time.Second})

	s.searcher.HandleSearch("goblins", Options{})
	s.waitNotice(t, time.Second)
	<-s.outcomes

	deadline := time.Now().Add(time.Second)
	for s.searcher.Searching() {
		if time.Now().After(deadline) {
			t.Fatal("searching flag never cleared")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNoticePreviewTruncates(t *testing.T) {
	long := strings.Repeat("x", 200)
	got := preview(long)
	if len([]rune(got)) != previewLimit+1 {
		t.Errorf("expected %d runes plus ellipsis, got %d", previewLimit, len([]rune(got)))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("expected ellipsis suffix, got %q", got)
	}
	if preview("short") != "short" {
		t.Error("short queries must pass through untouched")
	}
}
