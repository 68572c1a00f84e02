package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/bankmore/internal/apperr"
	"github.com/baharkarakas/bankmore/internal/auth"
	"github.com/baharkarakas/bankmore/internal/cache"
	"github.com/baharkarakas/bankmore/internal/events"
	"github.com/baharkarakas/bankmore/internal/gateway"
	"github.com/baharkarakas/bankmore/internal/idempotency"
	"github.com/baharkarakas/bankmore/internal/ledger"
	"github.com/baharkarakas/bankmore/internal/logger"
	"github.com/baharkarakas/bankmore/internal/models"
	repo "github.com/baharkarakas/bankmore/internal/repository"
	"github.com/baharkarakas/bankmore/internal/repository/memory"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// flakyMutator forwards to the account service unless the request_id ends
// with one of the configured suffixes.
type flakyMutator struct {
	next gateway.Mutator

	mu    sync.Mutex
	fail  map[string]bool
	calls []gateway.MovementRequest
}

func (m *flakyMutator) failOn(suffixes ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = map[string]bool{}
	for _, s := range suffixes {
		m.fail[s] = true
	}
}

func (m *flakyMutator) ApplyMovement(ctx context.Context, req gateway.MovementRequest) error {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	var failing bool
	for s := range m.fail {
		if strings.HasSuffix(req.RequestID, s) {
			failing = true
		}
	}
	m.mu.Unlock()
	if failing {
		return apperr.E(apperr.UpstreamFailure, "account service answered 503")
	}
	return m.next.ApplyMovement(ctx, req)
}

type fixture struct {
	store    *memory.Store
	repos    repo.Repositories
	cache    *cache.Memory
	bus      *events.Bus
	tm       *auth.TokenManager
	accounts *AccountService
	mut      *flakyMutator
	tokens   map[string]*auth.Claims
}

func newFixture(t *testing.T, opts TransferOptions) (*fixture, *TransferService, *FeeService) {
	t.Helper()
	store := memory.New()
	repos := store.Repositories()
	c := cache.NewMemory()
	log := logger.Discard()
	l := ledger.New(repos.Accounts, repos.Movements, c, cache.DefaultTTL, log)
	tm := auth.NewTokenManager("secret", "bankmore", "", 0, 0)

	f := &fixture{store: store, repos: repos, cache: c, bus: events.NewBus(), tm: tm, tokens: map[string]*auth.Claims{}}
	f.accounts = NewAccountService(repos, l,
		idempotency.New(repos.Idempotency, "movement", idempotency.ProceedInFlight, log), c, tm, log)
	f.mut = &flakyMutator{next: f.accounts.ServiceMutator("test")}

	ts := NewTransferService(repos, f.accounts, f.mut,
		idempotency.New(repos.Idempotency, "transfer", idempotency.ProceedInFlight, log), f.bus, c, opts, log)
	fs := NewFeeService(repos.Fees, f.accounts, f.mut, f.bus, c, DefaultTransferFee, log)
	return f, ts, fs
}

// open creates an active account holding balance and returns its caller
// claims.
func (f *fixture) open(t *testing.T, number, balance string) *auth.Claims {
	t.Helper()
	ctx := context.Background()
	a, err := f.repos.Accounts.Create(ctx, models.Account{Number: number, Name: "Holder " + number, Document: "doc" + number, Active: true})
	if err != nil {
		t.Fatal(err)
	}
	if b := d(balance); b.IsPositive() {
		if _, err := f.repos.Movements.Append(ctx, models.Movement{AccountNumber: number, Amount: b, Direction: models.Credit}); err != nil {
			t.Fatal(err)
		}
	}
	c := &auth.Claims{AccountID: a.ID, AccountNumber: a.Number, Role: auth.RoleCustomer}
	f.tokens[number] = c
	return c
}

func (f *fixture) balance(t *testing.T, number string) decimal.Decimal {
	t.Helper()
	b, err := f.accounts.FreshBalance(context.Background(), number)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func (f *fixture) movements(t *testing.T, number string) []models.Movement {
	t.Helper()
	ms, err := f.accounts.Statement(context.Background(), f.tokens[number].AccountID, 0)
	if err != nil {
		t.Fatal(err)
	}
	return ms
}

func countDebits(ms []models.Movement) int {
	n := 0
	for _, m := range ms {
		if m.Direction == models.Debit {
			n++
		}
	}
	return n
}

func wantKind(t *testing.T, err error, k apperr.Kind) {
	t.Helper()
	if apperr.KindOf(err) != k {
		t.Fatalf("err = %v, want kind %s", err, k)
	}
}
