package provider

import (
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// responseCache memoizes GET responses by request shape. POST and PATCH are
// never cached; idempotency stays the caller's responsibility.
type responseCache struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]cacheEntry
}

type cacheEntry struct {
	expiresAt time.Time
	body      []byte
	status    int
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{
		ttl:   ttl,
		items: make(map[string]cacheEntry),
	}
}

// cacheKey derives the key from method, path and sorted query params.
func cacheKey(method, path string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(method)
	sb.WriteString(" ")
	sb.WriteString(path)
	for _, k := range keys {
		sb.WriteString("&")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(strings.Join(params[k], ","))
	}
	return sb.String()
}

func (c *responseCache) Get(key string) ([]byte, int, bool) {
	if c == nil || c.ttl <= 0 || key == "" {
		return nil, 0, false
	}
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, 0, false
	}
	if time.Now().UTC().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil, 0, false
	}
	body := append([]byte(nil), entry.body...)
	return body, entry.status, true
}

func (c *responseCache) Set(key string, body []byte, status int) {
	if c == nil || c.ttl <= 0 || key == "" {
		return
	}
	cloned := append([]byte(nil), body...)
	c.mu.Lock()
	c.items[key] = cacheEntry{
		expiresAt: time.Now().UTC().Add(c.ttl),
		body:      cloned,
		status:    status,
	}
	c.mu.Unlock()
}

// InvalidatePath drops every cached entry for the given path. Called after a
// successful write so a follow-up read never sees a stale session.
func (c *responseCache) InvalidatePath(path string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	for key := range c.items {
		if strings.Contains(key, path) {
			delete(c.items, key)
		}
	}
	c.mu.Unlock()
}
