package waitlist

import (
	"context"
	"sync"
	"time"

	"lumepay/internal/models"
)

// DefaultCacheTTL bounds how stale a cached waitlist config may be.
const DefaultCacheTTL = 5 * time.Minute

// ConfigCache memoizes the waitlist config for the whole process. Admin
// updates call Invalidate so the next read goes to the store.
type ConfigCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	value   models.WaitlistConfig
	expires time.Time
	valid   bool
}

func NewConfigCache(ttl time.Duration, now func() time.Time) *ConfigCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &ConfigCache{ttl: ttl, now: now}
}

// Get returns the cached value, calling load on a miss. A load error is
// returned as is and nothing is cached.
func (c *ConfigCache) Get(ctx context.Context, load func(context.Context) (models.WaitlistConfig, error)) (models.WaitlistConfig, error) {
	c.mu.Lock()
	if c.valid && c.now().Before(c.expires) {
		v := c.value
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err := load(ctx)
	if err != nil {
		return models.WaitlistConfig{}, err
	}

	c.mu.Lock()
	c.value = v
	c.expires = c.now().Add(c.ttl)
	c.valid = true
	c.mu.Unlock()
	return v, nil
}

func (c *ConfigCache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}
