package cache

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestMemoryTTLAndDelete(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemory()
	c.now = func() time.Time { return now }

	key := BalanceKey("123456")
	if key != "account_balance:123456" {
		t.Fatalf("key = %q", key)
	}
	c.Set(ctx, key, decimal.NewFromInt(70), time.Minute)
	if v, ok := c.Get(ctx, key); !ok || !v.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("get = %s %v", v, ok)
	}

	now = now.Add(time.Minute)
	if _, ok := c.Get(ctx, key); ok {
		t.Fatalf("entry should expire at ttl")
	}

	c.Set(ctx, key, decimal.NewFromInt(1), 0)
	c.Delete(ctx, key, "other")
	if _, ok := c.Get(ctx, key); ok {
		t.Fatalf("entry should be deleted")
	}
}
