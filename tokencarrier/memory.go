package tokencarrier

import (
	"sync"
	"time"
)

// MemoryCarrier is an in-process slot used in tests.
type MemoryCarrier struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

var _ Carrier = (*MemoryCarrier)(nil)

func NewMemoryCarrier() *MemoryCarrier {
	return &MemoryCarrier{}
}

func (c *MemoryCarrier) Read() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.token == "" || time.Now().After(c.expiresAt) {
		return "", nil
	}
	return c.token, nil
}

func (c *MemoryCarrier) Write(token string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
	c.expiresAt = time.Now().Add(ttl)
	return nil
}

func (c *MemoryCarrier) Clear() error {
	return c.Write("", -time.Second)
}
