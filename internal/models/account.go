package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID           string    `json:"id"`
	Number       string    `json:"number"`
	Name         string    `json:"name"`
	Document     string    `json:"document"`
	Active       bool      `json:"active"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (a *Account) Validate() error {
	a.Name = strings.TrimSpace(a.Name)
	a.Document = strings.TrimSpace(a.Document)
	if len(a.Name) < 2 {
		return errors.New("name must have at least 2 characters")
	}
	if a.Document == "" {
		return errors.New("document is required")
	}
	return nil
}

// Balance is the display view of an account balance.
type Balance struct {
	AccountNumber string          `json:"account_number"`
	AccountName   string          `json:"account_name"`
	Balance       decimal.Decimal `json:"balance"`
}
