package fakebackend

import (
	"sync"
	"time"
)

// revokedTokens tracks issued access token ids so tests can expire every
// outstanding token at once.
type revokedTokens struct {
	mu      sync.RWMutex
	issued  map[string]time.Time
	revoked map[string]time.Time
}

func newRevokedTokens() *revokedTokens {
	return &revokedTokens{
		issued:  make(map[string]time.Time),
		revoked: make(map[string]time.Time),
	}
}

func (c *revokedTokens) Issued(jti string, exp time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued[jti] = exp
}

func (c *revokedTokens) RevokeAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.issued)
	for jti, exp := range c.issued {
		c.revoked[jti] = exp
		delete(c.issued, jti)
	}
	return n
}

func (c *revokedTokens) IsRevoked(jti string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.revoked[jti]
	return exists
}
