package ogengine

import (
	"database/sql"
	"sync"
	"time"

	"github.com/kphr/ogengine/content"
)

// ErrNotFound is returned when a requested entry does not exist.
var ErrNotFound = sql.ErrNoRows

// EntryCache is an in-memory copy of the content index with TTL.
type EntryCache struct {
	mu      sync.RWMutex
	entries map[string]content.Entry
	list    []content.Entry
	fetched time.Time
	ttl     time.Duration
	store   *Store
}

// NewEntryCache creates an EntryCache backed by the given Store.
func NewEntryCache(s *Store, ttl time.Duration) *EntryCache {
	return &EntryCache{store: s, ttl: ttl}
}

func (c *EntryCache) valid() bool {
	return c.entries != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *EntryCache) Invalidate() {
	c.mu.Lock()
	c.entries = nil
	c.list = nil
	c.mu.Unlock()
}

func (c *EntryCache) load() error {
	if c.valid() {
		return nil
	}
	list, err := c.store.ListEntries("", "")
	if err != nil {
		return err
	}
	entries := make(map[string]content.Entry, len(list))
	for _, e := range list {
		entries[e.Key()] = e
	}
	c.entries = entries
	c.list = list
	c.fetched = time.Now()
	return nil
}

// ensureLoaded returns the cached index after ensuring it is fresh.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *EntryCache) ensureLoaded() (map[string]content.Entry, []content.Entry, error) {
	c.mu.RLock()
	if c.valid() {
		entries, list := c.entries, c.list
		c.mu.RUnlock()
		return entries, list, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(); err != nil {
		return nil, nil, err
	}
	return c.entries, c.list, nil
}

// GetEntry returns a single entry by collection and id.
func (c *EntryCache) GetEntry(collection, id string) (content.Entry, error) {
	entries, _, err := c.ensureLoaded()
	if err != nil {
		return content.Entry{}, err
	}
	e, ok := entries[content.Entry{Collection: collection, ID: id}.Key()]
	if !ok {
		return content.Entry{}, ErrNotFound
	}
	return e, nil
}

// ListEntries returns the entries of collection, or of every collection
// when collection is empty.
func (c *EntryCache) ListEntries(collection string) ([]content.Entry, error) {
	_, list, err := c.ensureLoaded()
	if err != nil {
		return nil, err
	}
	if collection == "" {
		return list, nil
	}
	var out []content.Entry
	for _, e := range list {
		if e.Collection == collection {
			out = append(out, e)
		}
	}
	return out, nil
}
