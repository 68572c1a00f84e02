package services

import (
	"context"
	"testing"

	"github.com/baharkarakas/bankmore/internal/apperr"
	"github.com/baharkarakas/bankmore/internal/auth"
	"github.com/baharkarakas/bankmore/internal/gateway"
	"github.com/baharkarakas/bankmore/internal/models"
)

const validCPF = "52998224725"

func register(t *testing.T, s *AccountService, doc string) RegisterResult {
	t.Helper()
	res, err := s.Register(context.Background(), RegisterInput{Document: doc, Name: "Ana Souza", Password: "s3cret!"})
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	f, _, _ := newFixture(t, TransferOptions{})
	s := f.accounts

	res := register(t, s, "529.982.247-25")
	if len(res.AccountNumber) != 6 {
		t.Fatalf("account number = %q", res.AccountNumber)
	}

	login, err := s.Authenticate(ctx, validCPF, "s3cret!")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := f.tm.Parse(login.Token)
	if err != nil || claims.AccountNumber != res.AccountNumber || claims.Role != auth.RoleCustomer {
		t.Fatalf("claims = %+v, %v", claims, err)
	}
	if _, err := s.Authenticate(ctx, res.AccountNumber, "s3cret!"); err != nil {
		t.Fatalf("login by account number: %v", err)
	}

	_, err = s.Authenticate(ctx, validCPF, "wrong")
	wantKind(t, err, apperr.UserUnauthorized)
	_, err = s.Authenticate(ctx, "00000000000", "s3cret!")
	wantKind(t, err, apperr.UserUnauthorized)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	f, _, _ := newFixture(t, TransferOptions{})
	s := f.accounts
	register(t, s, validCPF)

	cases := []struct {
		name string
		in   RegisterInput
		want apperr.Kind
	}{
		{"bad document", RegisterInput{Document: "12345678900", Name: "Ana", Password: "s3cret!"}, apperr.InvalidDocument},
		{"duplicate document", RegisterInput{Document: validCPF, Name: "Ana", Password: "s3cret!"}, apperr.InvalidDocument},
		{"short name", RegisterInput{Document: "11144477735", Name: "A", Password: "s3cret!"}, apperr.InvalidArgument},
		{"short password", RegisterInput{Document: "11144477735", Name: "Ana", Password: "12345"}, apperr.InvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Register(ctx, tc.in)
			wantKind(t, err, tc.want)
		})
	}
}

func TestDeactivateActivate(t *testing.T) {
	ctx := context.Background()
	f, _, _ := newFixture(t, TransferOptions{})
	s := f.accounts
	res := register(t, s, validCPF)
	info, _ := s.Resolve(ctx, res.AccountNumber)

	wantKind(t, s.Deactivate(ctx, info.ID, "wrong"), apperr.UserUnauthorized)
	if err := s.Deactivate(ctx, info.ID, "s3cret!"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.Exists(ctx, res.AccountNumber); ok {
		t.Fatalf("inactive account reported as existing")
	}
	_, err := s.Authenticate(ctx, validCPF, "s3cret!")
	wantKind(t, err, apperr.InactiveAccount)
	_, err = s.BalanceByNumber(ctx, res.AccountNumber, false)
	wantKind(t, err, apperr.InactiveAccount)

	svc := &auth.Claims{Role: auth.RoleService}
	err = s.ApplyMovement(ctx, svc, gateway.MovementRequest{RequestID: "m1", AccountNumber: res.AccountNumber, Amount: d("1"), Type: models.Credit})
	wantKind(t, err, apperr.InactiveAccount)

	if err := s.Activate(ctx, info.ID, "s3cret!"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.Exists(ctx, res.AccountNumber); !ok {
		t.Fatalf("reactivated account not found")
	}

	var actions []string
	for _, l := range f.store.AuditLogs() {
		if l.EntityType == "account" {
			actions = append(actions, l.Action)
		}
	}
	if len(actions) != 3 || actions[1] != "deactivated" || actions[2] != "activated" {
		t.Fatalf("audit actions = %v", actions)
	}
}

func TestApplyMovementReplayAndAuthorization(t *testing.T) {
	ctx := context.Background()
	f, _, _ := newFixture(t, TransferOptions{})
	s := f.accounts
	owner := f.open(t, "100001", "0")
	f.open(t, "100002", "0")

	credit := gateway.MovementRequest{RequestID: "m1", AccountNumber: "100001", Amount: d("50"), Type: models.Credit}
	for i := 0; i < 3; i++ {
		if err := s.ApplyMovement(ctx, owner, credit); err != nil {
			t.Fatal(err)
		}
	}
	if !f.balance(t, "100001").Equal(d("50")) {
		t.Fatalf("balance = %s, want 50 after replays", f.balance(t, "100001"))
	}

	changed := credit
	changed.Amount = d("60")
	wantKind(t, s.ApplyMovement(ctx, owner, changed), apperr.IdempotencyConflict)

	other := gateway.MovementRequest{RequestID: "m2", AccountNumber: "100002", Amount: d("1"), Type: models.Credit}
	wantKind(t, s.ApplyMovement(ctx, owner, other), apperr.UnauthorizedOperation)
	if err := s.ApplyMovement(ctx, &auth.Claims{Role: auth.RoleService}, other); err != nil {
		t.Fatalf("service caller: %v", err)
	}

	overdraft := gateway.MovementRequest{RequestID: "m3", AccountNumber: "100001", Amount: d("50.01"), Type: models.Debit}
	wantKind(t, s.ApplyMovement(ctx, owner, overdraft), apperr.InsufficientBalance)
	bad := gateway.MovementRequest{RequestID: "m4", AccountNumber: "100001", Amount: d("1"), Type: "X"}
	wantKind(t, s.ApplyMovement(ctx, owner, bad), apperr.InvalidType)
	if n := countDebits(f.movements(t, "100001")); n != 0 {
		t.Fatalf("rejected debits wrote %d movements", n)
	}
}

func TestBalanceAndResolve(t *testing.T) {
	ctx := context.Background()
	f, _, _ := newFixture(t, TransferOptions{})
	s := f.accounts
	c := f.open(t, "100001", "12.34")

	b, err := s.Balance(ctx, c.AccountID)
	if err != nil || !b.Balance.Equal(d("12.34")) || b.AccountNumber != "100001" {
		t.Fatalf("balance = %+v, %v", b, err)
	}
	byID, err := s.Resolve(ctx, c.AccountID)
	if err != nil || byID.Number != "100001" {
		t.Fatalf("resolve by id = %+v, %v", byID, err)
	}
	byNumber, err := s.Resolve(ctx, "100001")
	if err != nil || byNumber.ID != c.AccountID {
		t.Fatalf("resolve by number = %+v, %v", byNumber, err)
	}
	_, err = s.Resolve(ctx, "999999")
	wantKind(t, err, apperr.AccountNotFound)
	if ok, _ := s.Exists(ctx, "999999"); ok {
		t.Fatalf("unknown account exists")
	}
}
