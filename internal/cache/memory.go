package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type entry struct {
	v       decimal.Decimal
	expires time.Time
}

// Memory is an in-process TTL map.
type Memory struct {
	mu  sync.Mutex
	m   map[string]entry
	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{m: map[string]entry{}, now: time.Now}
}

func (c *Memory) Get(_ context.Context, key string) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		return decimal.Zero, false
	}
	if !c.now().Before(e.expires) {
		delete(c.m, key)
		return decimal.Zero, false
	}
	return e.v, true
}

func (c *Memory) Set(_ context.Context, key string, v decimal.Decimal, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.mu.Lock()
	c.m[key] = entry{v: v, expires: c.now().Add(ttl)}
	c.mu.Unlock()
}

func (c *Memory) Delete(_ context.Context, keys ...string) {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.m, k)
	}
	c.mu.Unlock()
}
