package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/bankmore/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrAccountInactive   = errors.New("account inactive")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Repositories groups one implementation of every store.
type Repositories struct {
	Accounts    Accounts
	Movements   Movements
	Transfers   Transfers
	Fees        Fees
	Idempotency Idempotency
	AuditLogs   AuditLogs
}

type Accounts interface {
	Create(ctx context.Context, a models.Account) (models.Account, error)
	GetByID(ctx context.Context, id string) (models.Account, error)
	GetByNumber(ctx context.Context, number string) (models.Account, error)
	GetByDocument(ctx context.Context, document string) (models.Account, error)
	SetActive(ctx context.Context, id string, active bool) error
}

type Movements interface {
	// Append writes m for the account m.AccountNumber. The account row is
	// locked for the duration, so the active check and, when m is a debit,
	// the non-negative balance check happen in the same atomic unit as the
	// insert.
	Append(ctx context.Context, m models.Movement) (models.Movement, error)
	Balance(ctx context.Context, accountID string) (decimal.Decimal, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]models.Movement, error)
}

type Transfers interface {
	Create(ctx context.Context, t models.Transfer) (models.Transfer, error)
	GetByID(ctx context.Context, id string) (models.Transfer, error)
	ListByAccount(ctx context.Context, accountID string) ([]models.Transfer, error)
	ListByIdempotencyKey(ctx context.Context, key string) ([]models.Transfer, error)
	// MarkDebited records that the origin debit of transfer id landed.
	MarkDebited(ctx context.Context, id string) error
	// Finish moves a PENDING transfer to a terminal status. ErrConflict if
	// the transfer already left PENDING.
	Finish(ctx context.Context, id string, status models.TransferStatus) (models.Transfer, error)
}

type Fees interface {
	Create(ctx context.Context, f models.Fee) (models.Fee, error)
	GetByID(ctx context.Context, id string) (models.Fee, error)
	ListByAccount(ctx context.Context, accountID string) ([]models.Fee, error)
}

type Idempotency interface {
	// Insert creates a PENDING record; ErrConflict if (scope, key) exists.
	Insert(ctx context.Context, rec models.IdempotencyRecord) error
	Get(ctx context.Context, scope, key string) (models.IdempotencyRecord, error)
	// Refingerprint replaces the fingerprint of a PENDING record so the
	// response stored by Complete belongs to the payload that produced it.
	// ErrConflict if the record already completed.
	Refingerprint(ctx context.Context, scope, key, fingerprint string) error
	Complete(ctx context.Context, scope, key string, response []byte) error
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}
