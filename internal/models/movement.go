package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	Credit Direction = "C"
	Debit  Direction = "D"
)

func (d Direction) Valid() bool { return d == Credit || d == Debit }

func (d Direction) String() string {
	switch d {
	case Credit:
		return "credit"
	case Debit:
		return "debit"
	}
	return "unknown"
}

// Movement is an immutable ledger entry. Amount is always a positive
// magnitude; Direction carries the sign.
type Movement struct {
	ID             string          `json:"id"`
	AccountID      string          `json:"account_id"`
	AccountNumber  string          `json:"account_number"`
	Amount         decimal.Decimal `json:"amount"`
	Direction      Direction       `json:"type"`
	Description    string          `json:"description,omitempty"`
	IdempotencyKey *string         `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Signed returns the amount with the direction applied.
func (m Movement) Signed() decimal.Decimal {
	if m.Direction == Debit {
		return m.Amount.Neg()
	}
	return m.Amount
}

// Fold recomputes a balance from a movement log.
func Fold(ms []Movement) decimal.Decimal {
	total := decimal.Zero
	for _, m := range ms {
		total = total.Add(m.Signed())
	}
	return total
}
