package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := E(InsufficientBalance, "insufficient balance")
	wrapped := fmt.Errorf("debit: %w", base)

	if got := KindOf(wrapped); got != InsufficientBalance {
		t.Fatalf("KindOf = %s", got)
	}
	if got := KindOf(errors.New("boom")); got != Internal {
		t.Fatalf("plain error kind = %s, want %s", got, Internal)
	}
	if !errors.Is(wrapped, E(InsufficientBalance, "")) {
		t.Fatalf("errors.Is should match on kind")
	}
	if errors.Is(wrapped, E(InactiveAccount, "")) {
		t.Fatalf("errors.Is matched a different kind")
	}
}

func TestMessageOfHidesInternals(t *testing.T) {
	err := Wrap(Internal, "db exploded", errors.New("conn reset"))
	if MessageOf(err) != "internal server error" {
		t.Fatalf("internal message leaked: %q", MessageOf(err))
	}
	if MessageOf(E(InvalidTransfer, "same account")) != "same account" {
		t.Fatalf("client message lost")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		AccountNotFound:       http.StatusNotFound,
		InsufficientBalance:   http.StatusUnprocessableEntity,
		InvalidTransfer:       http.StatusBadRequest,
		UserUnauthorized:      http.StatusUnauthorized,
		UnauthorizedOperation: http.StatusForbidden,
		UpstreamFailure:       http.StatusBadGateway,
		IdempotencyConflict:   http.StatusConflict,
		Internal:              http.StatusInternalServerError,
	}
	for k, want := range cases {
		if got := HTTPStatus(k); got != want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", k, got, want)
		}
	}
}
