package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/baharkarakas/bankmore/internal/models"
)

func TestGenerateParseCustomer(t *testing.T) {
	tm := NewTokenManager("secret", "bankmore", "bankmore-api", time.Hour, time.Hour)
	tok, exp, err := tm.Generate(models.Account{ID: "a1", Number: "123456", Name: "Ana"})
	if err != nil {
		t.Fatal(err)
	}
	if !exp.After(time.Now()) {
		t.Fatalf("exp = %v", exp)
	}
	c, err := tm.Parse(tok)
	if err != nil {
		t.Fatal(err)
	}
	if c.AccountID != "a1" || c.AccountNumber != "123456" || c.Role != RoleCustomer {
		t.Fatalf("claims = %+v", c)
	}
}

func TestParseRejects(t *testing.T) {
	tm := NewTokenManager("secret", "bankmore", "bankmore-api", time.Hour, time.Hour)
	tok, _, _ := tm.Generate(models.Account{ID: "a1", Number: "123456"})

	other := NewTokenManager("other", "bankmore", "bankmore-api", time.Hour, time.Hour)
	if _, err := other.Parse(tok); err == nil {
		t.Fatalf("wrong secret accepted")
	}
	wrongAud := NewTokenManager("secret", "bankmore", "elsewhere", time.Hour, time.Hour)
	if _, err := wrongAud.Parse(tok); err == nil {
		t.Fatalf("wrong audience accepted")
	}

	expired := NewTokenManager("secret", "bankmore", "bankmore-api", time.Minute, time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, _ := expired.Generate(models.Account{ID: "a1"})
	if _, err := tm.Parse(old); err == nil {
		t.Fatalf("expired token accepted")
	}
	if _, err := tm.Parse("garbage"); err == nil {
		t.Fatalf("garbage accepted")
	}
}

func TestServiceTokensCached(t *testing.T) {
	tm := NewTokenManager("secret", "bankmore", "", time.Hour, time.Hour)
	st := tm.ServiceTokens("transfer-api")
	a, err := st.Token()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := st.Token()
	if a != b {
		t.Fatalf("token not reused")
	}
	c, err := tm.Parse(a)
	if err != nil || c.Role != RoleService || c.Name != "transfer-api" {
		t.Fatalf("service claims = %+v, %v", c, err)
	}
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatal(err)
	}
	if VerifyPassword("s3cret!", h) != nil {
		t.Fatalf("correct password rejected")
	}
	if err := VerifyPassword("nope", h); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("wrong password err = %v", err)
	}
	if err := VerifyPassword("s3cret!", "not-a-bcrypt-hash"); err == nil || errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("corrupt hash err = %v", err)
	}
	if _, err := HashPassword(strings.Repeat("x", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("long password err = %v", err)
	}
}
