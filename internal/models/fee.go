package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const FeeTypeTransfer = "TRANSFER"

type Fee struct {
	ID            string          `json:"id"`
	AccountID     string          `json:"-"`
	AccountNumber string          `json:"account_number"`
	Amount        decimal.Decimal `json:"amount"`
	Type          string          `json:"type"`
	Description   string          `json:"description"`
	RequestID     string          `json:"request_id"`
	CreatedAt     time.Time       `json:"created_at"`
}
