package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransferStatus int

const (
	TransferPending   TransferStatus = 0
	TransferCompleted TransferStatus = 1
	TransferFailed    TransferStatus = 2
)

func (s TransferStatus) String() string {
	switch s {
	case TransferPending:
		return "pending"
	case TransferCompleted:
		return "completed"
	case TransferFailed:
		return "failed"
	}
	return "unknown"
}

type Transfer struct {
	ID                   string          `json:"id"`
	OriginAccountID      string          `json:"-"`
	OriginNumber         string          `json:"origin_account_number"`
	DestinationAccountID string          `json:"-"`
	DestinationNumber    string          `json:"destination_account_number"`
	Amount               decimal.Decimal `json:"amount"`
	Status               TransferStatus  `json:"status"`
	Description          string          `json:"description"`
	IdempotencyKey       string          `json:"-"`
	Debited              bool            `json:"-"`
	CompletedAt          *time.Time      `json:"completed_at"`
	CreatedAt            time.Time       `json:"created_at"`
}

// TransferRequest is what a client submits; the origin comes from the caller.
type TransferRequest struct {
	RequestID                string          `json:"request_id"`
	DestinationAccountNumber string          `json:"destination_account_number"`
	Amount                   decimal.Decimal `json:"amount"`
}

type TransferResponse struct {
	TransferID               string          `json:"transfer_id"`
	Message                  string          `json:"message"`
	OriginAccountNumber      string          `json:"origin_account_number"`
	DestinationAccountNumber string          `json:"destination_account_number"`
	Amount                   decimal.Decimal `json:"amount"`
}
