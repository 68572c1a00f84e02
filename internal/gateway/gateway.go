// Package gateway is the client side of the account service: the only way
// the transfer and fee services read or mutate accounts.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/bankmore/internal/models"
)

// MovementRequest is the body of POST /api/account/movement.
type MovementRequest struct {
	RequestID     string           `json:"request_id"`
	AccountNumber string           `json:"account_number"`
	Amount        decimal.Decimal  `json:"amount"`
	Type          models.Direction `json:"type"`
}

// AccountInfo is what the account service discloses to other services.
type AccountInfo struct {
	ID     string `json:"id"`
	Number string `json:"number"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type Mutator interface {
	ApplyMovement(ctx context.Context, req MovementRequest) error
}

type Directory interface {
	// Resolve looks an account up by id or number.
	Resolve(ctx context.Context, ref string) (AccountInfo, error)
	// FreshBalance folds the movement log, bypassing any cache.
	FreshBalance(ctx context.Context, number string) (decimal.Decimal, error)
}

type TokenSource interface {
	Token() (string, error)
}
