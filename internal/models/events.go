package models

import "github.com/shopspring/decimal"

const (
	TopicTransferCompleted = "transfer-completed"
	TopicFeeCharges        = "fee-charges"
)

type TransferCompletedEvent struct {
	ID                       string          `json:"id"`
	OriginAccountNumber      string          `json:"origin_account_number"`
	DestinationAccountNumber string          `json:"destination_account_number"`
	Amount                   decimal.Decimal `json:"amount"`
	RequestID                string          `json:"request_id"`
}

type FeeChargedEvent struct {
	FeeID         string          `json:"fee_id"`
	TransferID    string          `json:"transfer_id"`
	AccountNumber string          `json:"account_number"`
	Amount        decimal.Decimal `json:"amount"`
	RequestID     string          `json:"request_id"`
}
