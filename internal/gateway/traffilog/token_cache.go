package traffilog

import (
	"sync"
	"time"
)

// TokenCache holds the single session token shared by all requests in this
// process. A token older than its TTL reads as absent. Concurrent requests
// that both see an expired token may both log in; the last write wins, which
// is fine because any valid token will do.
type TokenCache struct {
	mu         sync.Mutex
	token      string
	acquiredAt time.Time
	ttl        time.Duration

	now func() time.Time
}

// NewTokenCache creates an empty cache whose tokens expire after ttl.
func NewTokenCache(ttl time.Duration) *TokenCache {
	return &TokenCache{ttl: ttl, now: time.Now}
}

// Get returns the cached token, or false if none is cached or it has expired.
func (c *TokenCache) Get() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || c.now().Sub(c.acquiredAt) >= c.ttl {
		return "", false
	}
	return c.token, true
}

// Store replaces the cached token and resets its acquisition timestamp.
func (c *TokenCache) Store(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.acquiredAt = c.now()
}
