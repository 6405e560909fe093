// Package history persists the list of past search queries: bounded,
// deduplicated case-insensitively, most recent first. Entries live in a small
// namespaced key/value table as a JSON string array, so corrupt or missing
// data degrades to an empty list instead of an error.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"golang.org/x/text/cases"

	"github.com/tolaria/manasearch/pkg/log"
)

// DefaultMaxEntries bounds the history list.
const DefaultMaxEntries = 20

const storageKey = "manasearch.search-history"

// Store is the durable search history. All mutations persist immediately;
// the in-memory list is the source of truth between loads.
type Store struct {
	db     *sql.DB
	max    int
	logger *log.Logger

	mu      sync.Mutex
	entries []string
}

// Open opens (creating if needed) the history database at dbPath. maxEntries
// caps the list; non-positive values pick the default. Unreadable or corrupt
// stored data is treated as an empty history, never an error.
func Open(dbPath string, maxEntries int) (*Store, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating kv table: %w", err)
	}

	s := &Store{
		db:     db,
		max:    maxEntries,
		logger: log.ForService("history"),
	}
	s.load()
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Entries returns the current list, most recent first.
func (s *Store) Entries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.entries))
	copy(out, s.entries)
	return out
}

// Add records a query at the front of the list. An existing entry matching
// case-insensitively is removed first, then the list is truncated to the
// configured maximum. Blank queries are ignored.
func (s *Store) Add(query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(query)
	s.entries = append([]string{query}, s.entries...)
	if len(s.entries) > s.max {
		s.entries = s.entries[:s.max]
	}
	return s.persistLocked()
}

// Remove deletes a query from the list, matching case-insensitively.
func (s *Store) Remove(query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(query)
	return s.persistLocked()
}

// Clear empties the list.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return s.persistLocked()
}

// removeLocked drops every entry case-folding equal to query. Callers hold s.mu.
func (s *Store) removeLocked(query string) {
	folded := fold(query)
	kept := s.entries[:0]
	for _, entry := range s.entries {
		if fold(entry) != folded {
			kept = append(kept, entry)
		}
	}
	s.entries = kept
}

// load reads the stored JSON array. Anything unreadable means empty history.
func (s *Store) load() {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, storageKey).Scan(&raw)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logger.Warnf("loading history: %v", err)
		}
		return
	}

	var entries []string
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.logger.Warnf("discarding corrupt history value: %v", err)
		return
	}
	if len(entries) > s.max {
		entries = entries[:s.max]
	}
	s.entries = entries
}

// persistLocked writes the list back as a JSON array. Callers hold s.mu.
func (s *Store) persistLocked() error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	if _, err := s.db.Exec(`INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)`, storageKey, string(data)); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	return nil
}

// fold lowercases with full Unicode case folding so "Sol Ring" and
// "sol ring" collapse to one entry.
func fold(s string) string {
	return cases.Fold().String(s)
}
