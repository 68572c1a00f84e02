// Package cache holds the advisory balance cache. Entries are bounded by a
// TTL and deleted on every movement that touches the account; nothing in
// here is ever authoritative.
package cache

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultTTL = 300 * time.Second

type Balances interface {
	Get(ctx context.Context, key string) (decimal.Decimal, bool)
	Set(ctx context.Context, key string, v decimal.Decimal, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
}

func BalanceKey(accountNumber string) string { return "account_balance:" + accountNumber }
