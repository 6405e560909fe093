package translate

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"
)

// snapshotEntry is the on-disk form of one cached translation.
type snapshotEntry struct {
	Key        string `json:"key"`
	Result     Result `json:"result"`
	InsertedAt int64  `json:"inserted_at"` // unix seconds
}

// SaveSnapshot writes the current cache contents to path as zstd-compressed
// JSON. Expired entries are skipped. Used by long-running servers to carry
// the cache across restarts.
func (c *Cache) SaveSnapshot(path string) error {
	c.mu.Lock()
	entries := make([]snapshotEntry, 0, len(c.entries))
	for _, key := range c.order {
		entry, ok := c.entries[key]
		if !ok || c.now().Sub(entry.insertedAt) >= c.ttl {
			continue
		}
		entries = append(entries, snapshotEntry{
			Key:        key,
			Result:     entry.result,
			InsertedAt: entry.insertedAt.Unix(),
		})
	}
	c.mu.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot file: %w", err)
	}
	defer func() { _ = f.Close() }()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(entries); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flushing snapshot: %w", err)
	}
	return f.Close()
}

// LoadSnapshot restores cache contents from a snapshot written by
// SaveSnapshot. Entries past their TTL are dropped, insertion order is
// preserved and capacity still applies. A missing file is not an error;
// a corrupt one is.
func (c *Cache) LoadSnapshot(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening snapshot file: %w", err)
	}
	defer func() { _ = f.Close() }()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("creating zstd reader: %w", err)
	}
	defer zr.Close()

	var entries []snapshotEntry
	if err := json.NewDecoder(zr).Decode(&entries); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].InsertedAt < entries[j].InsertedAt
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, entry := range entries {
		insertedAt := time.Unix(entry.InsertedAt, 0)
		if c.now().Sub(insertedAt) >= c.ttl {
			continue
		}
		if _, ok := c.entries[entry.Key]; ok {
			continue
		}
		c.entries[entry.Key] = cacheEntry{result: entry.Result, insertedAt: insertedAt}
		c.order = append(c.order, entry.Key)
		for len(c.order) > c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
	}
	return nil
}
