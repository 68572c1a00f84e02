package validate

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/bankmore/internal/apperr"
)

type ErrField struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

type Errs []ErrField

func (e Errs) Error() string {
	var b strings.Builder
	for i, ef := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ef.Field + ": " + ef.Msg)
	}
	return b.String()
}

// Collect drops nil results and returns an INVALID_ARGUMENT error, or nil
// when every check passed.
func Collect(checks ...*ErrField) error {
	var errs Errs
	for _, c := range checks {
		if c != nil {
			errs = append(errs, *c)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return apperr.Wrap(apperr.InvalidArgument, errs.Error(), errs)
}

func Required(field, value string) *ErrField {
	if strings.TrimSpace(value) == "" {
		return &ErrField{Field: field, Msg: "required"}
	}
	return nil
}

func MinLen(field, value string, min int) *ErrField {
	if len([]rune(strings.TrimSpace(value))) < min {
		return &ErrField{Field: field, Msg: "must have at least " + strconv.Itoa(min) + " characters"}
	}
	return nil
}

// AccountNumber accepts exactly six digits.
func AccountNumber(field, value string) *ErrField {
	if len(value) != 6 || strings.IndexFunc(value, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
		return &ErrField{Field: field, Msg: "must be a 6-digit account number"}
	}
	return nil
}

// Amount parses a positive decimal with at most two decimal places.
func Amount(value decimal.Decimal) error {
	if !value.IsPositive() {
		return apperr.E(apperr.InvalidValue, "amount must be positive")
	}
	if !value.Equal(value.Round(2)) {
		return apperr.E(apperr.InvalidValue, "amount must have at most two decimal places")
	}
	return nil
}

// CleanDocument strips everything but digits.
func CleanDocument(doc string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, doc)
}

// Document checks an 11-digit CPF including both check digits. doc must
// already be cleaned.
func Document(doc string) error {
	if len(doc) != 11 || strings.Count(doc, doc[:1]) == 11 {
		return apperr.E(apperr.InvalidDocument, "invalid document")
	}
	digit := func(n int) int {
		sum := 0
		for i := 0; i < n; i++ {
			sum += int(doc[i]-'0') * (n + 1 - i)
		}
		if r := sum % 11; r >= 2 {
			return 11 - r
		}
		return 0
	}
	if int(doc[9]-'0') != digit(9) || int(doc[10]-'0') != digit(10) {
		return apperr.E(apperr.InvalidDocument, "invalid document")
	}
	return nil
}
