// Package ledger is the append-only movement log. Balances are always a
// fold over the log; the cache is only consulted by CachedBalance.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/bankmore/internal/apperr"
	"github.com/baharkarakas/bankmore/internal/cache"
	"github.com/baharkarakas/bankmore/internal/metrics"
	"github.com/baharkarakas/bankmore/internal/models"
	"github.com/baharkarakas/bankmore/internal/repository"
)

type Ledger struct {
	accounts  repository.Accounts
	movements repository.Movements
	cache     cache.Balances
	ttl       time.Duration
	log       *slog.Logger
}

func New(a repository.Accounts, m repository.Movements, c cache.Balances, ttl time.Duration, log *slog.Logger) *Ledger {
	return &Ledger{accounts: a, movements: m, cache: c, ttl: ttl, log: log}
}

type AppendInput struct {
	AccountNumber  string
	Amount         decimal.Decimal
	Direction      models.Direction
	Description    string
	IdempotencyKey string
}

func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperr.E(apperr.InvalidValue, "amount must be positive")
	}
	if !amount.Equal(amount.Round(2)) {
		return apperr.E(apperr.InvalidValue, "amount must have at most two decimal places")
	}
	return nil
}

// Append writes one movement. Debits are conditional: the store appends
// only if the resulting balance stays non-negative.
func (l *Ledger) Append(ctx context.Context, in AppendInput) (models.Movement, error) {
	if err := checkAmount(in.Amount); err != nil {
		metrics.MovementsRejected.WithLabelValues("invalid_amount").Inc()
		return models.Movement{}, err
	}
	if !in.Direction.Valid() {
		metrics.MovementsRejected.WithLabelValues("invalid_type").Inc()
		return models.Movement{}, apperr.E(apperr.InvalidType, "movement type must be C or D")
	}

	m := models.Movement{
		AccountNumber: in.AccountNumber,
		Amount:        in.Amount,
		Direction:     in.Direction,
		Description:   in.Description,
	}
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		m.IdempotencyKey = &key
	}

	out, err := l.movements.Append(ctx, m)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		metrics.MovementsRejected.WithLabelValues("account_not_found").Inc()
		return models.Movement{}, apperr.E(apperr.AccountNotFound, "account not found")
	case errors.Is(err, repository.ErrAccountInactive):
		metrics.MovementsRejected.WithLabelValues("inactive_account").Inc()
		return models.Movement{}, apperr.E(apperr.InactiveAccount, "account is inactive")
	case errors.Is(err, repository.ErrInsufficientFunds):
		metrics.MovementsRejected.WithLabelValues("insufficient_balance").Inc()
		return models.Movement{}, apperr.E(apperr.InsufficientBalance, "insufficient balance")
	case err != nil:
		return models.Movement{}, apperr.Wrap(apperr.Internal, "append movement", err)
	}

	l.cache.Delete(ctx, cache.BalanceKey(in.AccountNumber))
	metrics.MovementsTotal.WithLabelValues(in.Direction.String()).Inc()
	l.log.Info("movement appended",
		"account", in.AccountNumber, "type", in.Direction.String(), "amount", in.Amount.StringFixed(2))
	return out, nil
}

func (l *Ledger) account(ctx context.Context, number string) (models.Account, error) {
	a, err := l.accounts.GetByNumber(ctx, number)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Account{}, apperr.E(apperr.AccountNotFound, "account not found")
	}
	if err != nil {
		return models.Account{}, apperr.Wrap(apperr.Internal, "load account", err)
	}
	return a, nil
}

// BalanceOf recomputes the balance from the movement log.
func (l *Ledger) BalanceOf(ctx context.Context, number string) (decimal.Decimal, error) {
	a, err := l.account(ctx, number)
	if err != nil {
		return decimal.Zero, err
	}
	return l.fold(ctx, a)
}

func (l *Ledger) fold(ctx context.Context, a models.Account) (decimal.Decimal, error) {
	b, err := l.movements.Balance(ctx, a.ID)
	if err != nil {
		return decimal.Zero, apperr.Wrap(apperr.Internal, "fold movements", err)
	}
	return b, nil
}

// CachedBalance serves display reads; it may lag by at most the TTL for
// writers that bypass Append.
//
// An Append that lands between the fold and the Set would leave the old
// value cached, since its Delete may run before the Set. Folding again
// after the Set catches that: Append deletes only after its insert, so
// either the second fold sees the movement or the Delete follows the Set.
func (l *Ledger) CachedBalance(ctx context.Context, a models.Account) (decimal.Decimal, error) {
	key := cache.BalanceKey(a.Number)
	if v, ok := l.cache.Get(ctx, key); ok {
		return v, nil
	}
	b, err := l.fold(ctx, a)
	if err != nil {
		return decimal.Zero, err
	}
	l.cache.Set(ctx, key, b, l.ttl)
	again, err := l.fold(ctx, a)
	if err != nil {
		l.cache.Delete(ctx, key)
		return decimal.Zero, err
	}
	if !again.Equal(b) {
		l.cache.Delete(ctx, key)
		return again, nil
	}
	return b, nil
}

func (l *Ledger) Movements(ctx context.Context, number string, limit int) ([]models.Movement, error) {
	a, err := l.account(ctx, number)
	if err != nil {
		return nil, err
	}
	ms, err := l.movements.ListByAccount(ctx, a.ID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list movements", err)
	}
	return ms, nil
}
