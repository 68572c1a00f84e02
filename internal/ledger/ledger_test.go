package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/bankmore/internal/apperr"
	"github.com/baharkarakas/bankmore/internal/cache"
	"github.com/baharkarakas/bankmore/internal/logger"
	"github.com/baharkarakas/bankmore/internal/models"
	"github.com/baharkarakas/bankmore/internal/repository"
	"github.com/baharkarakas/bankmore/internal/repository/memory"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func setup(t *testing.T) (*Ledger, repository.Repositories, *cache.Memory) {
	t.Helper()
	repos := memory.New().Repositories()
	c := cache.NewMemory()
	l := New(repos.Accounts, repos.Movements, c, cache.DefaultTTL, logger.Discard())
	for _, n := range []string{"100001", "100002"} {
		if _, err := repos.Accounts.Create(context.Background(), models.Account{Number: n, Name: "acc " + n, Document: n, Active: true}); err != nil {
			t.Fatal(err)
		}
	}
	return l, repos, c
}

func TestBalanceIsFoldOfLog(t *testing.T) {
	ctx := context.Background()
	l, _, _ := setup(t)

	steps := []struct {
		dir    models.Direction
		amount string
		want   string
	}{
		{models.Credit, "100.00", "100.00"},
		{models.Debit, "30.00", "70.00"},
		{models.Credit, "0.01", "70.01"},
		{models.Debit, "70.01", "0"},
	}
	for _, s := range steps {
		if _, err := l.Append(ctx, AppendInput{AccountNumber: "100001", Amount: d(s.amount), Direction: s.dir}); err != nil {
			t.Fatalf("append %s %s: %v", s.dir, s.amount, err)
		}
		got, err := l.BalanceOf(ctx, "100001")
		if err != nil {
			t.Fatal(err)
		}
		ms, _ := l.Movements(ctx, "100001", 0)
		if !got.Equal(d(s.want)) || !got.Equal(models.Fold(ms)) {
			t.Fatalf("after %s %s balance = %s, fold = %s, want %s", s.dir, s.amount, got, models.Fold(ms), s.want)
		}
	}
}

func TestAppendRejections(t *testing.T) {
	ctx := context.Background()
	l, repos, _ := setup(t)
	a, _ := repos.Accounts.GetByNumber(ctx, "100002")
	_ = repos.Accounts.SetActive(ctx, a.ID, false)

	cases := []struct {
		name string
		in   AppendInput
		want apperr.Kind
	}{
		{"zero", AppendInput{AccountNumber: "100001", Amount: d("0"), Direction: models.Credit}, apperr.InvalidValue},
		{"negative", AppendInput{AccountNumber: "100001", Amount: d("-5"), Direction: models.Credit}, apperr.InvalidValue},
		{"sub-cent", AppendInput{AccountNumber: "100001", Amount: d("0.001"), Direction: models.Credit}, apperr.InvalidValue},
		{"bad type", AppendInput{AccountNumber: "100001", Amount: d("1"), Direction: "X"}, apperr.InvalidType},
		{"unknown", AppendInput{AccountNumber: "999999", Amount: d("1"), Direction: models.Credit}, apperr.AccountNotFound},
		{"inactive", AppendInput{AccountNumber: "100002", Amount: d("1"), Direction: models.Credit}, apperr.InactiveAccount},
		{"overdraft", AppendInput{AccountNumber: "100001", Amount: d("0.01"), Direction: models.Debit}, apperr.InsufficientBalance},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := l.Append(ctx, tc.in); apperr.KindOf(err) != tc.want {
				t.Fatalf("err = %v, want kind %s", err, tc.want)
			}
		})
	}
	ms, _ := l.Movements(ctx, "100001", 0)
	if len(ms) != 0 {
		t.Fatalf("rejected appends wrote %d movements", len(ms))
	}
}

func TestAppendInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	l, repos, c := setup(t)
	a, _ := repos.Accounts.GetByNumber(ctx, "100001")

	if _, err := l.Append(ctx, AppendInput{AccountNumber: a.Number, Amount: d("10"), Direction: models.Credit}); err != nil {
		t.Fatal(err)
	}
	if b, _ := l.CachedBalance(ctx, a); !b.Equal(d("10")) {
		t.Fatalf("cached = %s", b)
	}
	if _, ok := c.Get(ctx, cache.BalanceKey(a.Number)); !ok {
		t.Fatalf("CachedBalance should populate the cache")
	}

	if _, err := l.Append(ctx, AppendInput{AccountNumber: a.Number, Amount: d("4"), Direction: models.Debit}); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(ctx, cache.BalanceKey(a.Number)); ok {
		t.Fatalf("append must delete the cached balance")
	}
	if b, _ := l.CachedBalance(ctx, a); !b.Equal(d("6")) {
		t.Fatalf("cached after invalidation = %s, want 6", b)
	}
}

// racingCache lands a debit right after the first fold, before the value
// is written, the way a concurrent Append on another request would.
type racingCache struct {
	*cache.Memory
	race func()
}

func (c *racingCache) Set(ctx context.Context, key string, v decimal.Decimal, ttl time.Duration) {
	if c.race != nil {
		race := c.race
		c.race = nil
		race()
	}
	c.Memory.Set(ctx, key, v, ttl)
}

func TestCachedBalanceDropsValueRacedByAppend(t *testing.T) {
	ctx := context.Background()
	repos := memory.New().Repositories()
	c := &racingCache{Memory: cache.NewMemory()}
	l := New(repos.Accounts, repos.Movements, c, cache.DefaultTTL, logger.Discard())
	a, err := repos.Accounts.Create(ctx, models.Account{Number: "100001", Name: "acc", Document: "100001", Active: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Append(ctx, AppendInput{AccountNumber: a.Number, Amount: d("10"), Direction: models.Credit}); err != nil {
		t.Fatal(err)
	}
	c.race = func() {
		if _, err := l.Append(ctx, AppendInput{AccountNumber: a.Number, Amount: d("3"), Direction: models.Debit}); err != nil {
			t.Fatal(err)
		}
	}

	b, err := l.CachedBalance(ctx, a)
	if err != nil || !b.Equal(d("7")) {
		t.Fatalf("cached balance = %s, %v; want 7", b, err)
	}
	if v, ok := c.Get(ctx, cache.BalanceKey(a.Number)); ok && !v.Equal(d("7")) {
		t.Fatalf("stale value %s left in cache", v)
	}
	if b, _ := l.CachedBalance(ctx, a); !b.Equal(d("7")) {
		t.Fatalf("next read = %s, want 7", b)
	}
}
