package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/bankmore/internal/models"
	"github.com/baharkarakas/bankmore/internal/repository"
)

func seed(t *testing.T, r repository.Repositories, number string, active bool) models.Account {
	t.Helper()
	a, err := r.Accounts.Create(context.Background(), models.Account{
		Number: number, Name: "Test " + number, Document: "doc-" + number, Active: active,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a
}

func TestAppendConditionalDebit(t *testing.T) {
	ctx := context.Background()
	r := New().Repositories()
	a := seed(t, r, "100001", true)

	if _, err := r.Movements.Append(ctx, models.Movement{AccountNumber: a.Number, Amount: decimal.NewFromInt(10), Direction: models.Credit}); err != nil {
		t.Fatalf("credit: %v", err)
	}
	_, err := r.Movements.Append(ctx, models.Movement{AccountNumber: a.Number, Amount: decimal.RequireFromString("10.01"), Direction: models.Debit})
	if !errors.Is(err, repository.ErrInsufficientFunds) {
		t.Fatalf("overdraft err = %v", err)
	}
	bal, _ := r.Movements.Balance(ctx, a.ID)
	if !bal.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("balance = %s, want 10", bal)
	}
}

func TestAppendRejectsInactiveAndUnknown(t *testing.T) {
	ctx := context.Background()
	r := New().Repositories()
	off := seed(t, r, "100002", false)

	_, err := r.Movements.Append(ctx, models.Movement{AccountNumber: off.Number, Amount: decimal.NewFromInt(1), Direction: models.Credit})
	if !errors.Is(err, repository.ErrAccountInactive) {
		t.Fatalf("inactive err = %v", err)
	}
	_, err = r.Movements.Append(ctx, models.Movement{AccountNumber: "999999", Amount: decimal.NewFromInt(1), Direction: models.Credit})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("unknown err = %v", err)
	}
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	r := New().Repositories()
	a := seed(t, r, "100003", true)
	if _, err := r.Movements.Append(ctx, models.Movement{AccountNumber: a.Number, Amount: decimal.NewFromInt(50), Direction: models.Credit}); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Movements.Append(ctx, models.Movement{AccountNumber: a.Number, Amount: decimal.NewFromInt(10), Direction: models.Debit})
		}()
	}
	wg.Wait()

	bal, _ := r.Movements.Balance(ctx, a.ID)
	if !bal.IsZero() {
		t.Fatalf("balance = %s, want 0", bal)
	}
}

func TestTransferFinishOnce(t *testing.T) {
	ctx := context.Background()
	r := New().Repositories()
	tr, _ := r.Transfers.Create(ctx, models.Transfer{Amount: decimal.NewFromInt(1)})

	done, err := r.Transfers.Finish(ctx, tr.ID, models.TransferCompleted)
	if err != nil || done.CompletedAt == nil {
		t.Fatalf("finish: %v %+v", err, done)
	}
	if _, err := r.Transfers.Finish(ctx, tr.ID, models.TransferFailed); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("second finish err = %v", err)
	}
}

func TestIdempotencyInsertOnce(t *testing.T) {
	ctx := context.Background()
	r := New().Repositories()
	rec := models.IdempotencyRecord{Scope: "transfer", Key: "k1", Fingerprint: "f"}
	if err := r.Idempotency.Insert(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if err := r.Idempotency.Insert(ctx, rec); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("dup insert err = %v", err)
	}
	// same key, other scope is a different record
	if err := r.Idempotency.Insert(ctx, models.IdempotencyRecord{Scope: "movement", Key: "k1"}); err != nil {
		t.Fatalf("other scope: %v", err)
	}
	if err := r.Idempotency.Complete(ctx, "transfer", "missing", nil); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("complete missing err = %v", err)
	}
}

func TestIdempotencyRefingerprintPendingOnly(t *testing.T) {
	ctx := context.Background()
	r := New().Repositories()
	_ = r.Idempotency.Insert(ctx, models.IdempotencyRecord{Scope: "transfer", Key: "k1", Fingerprint: "old"})

	if err := r.Idempotency.Refingerprint(ctx, "transfer", "k1", "new"); err != nil {
		t.Fatal(err)
	}
	rec, _ := r.Idempotency.Get(ctx, "transfer", "k1")
	if rec.Fingerprint != "new" {
		t.Fatalf("fingerprint = %q", rec.Fingerprint)
	}
	_ = r.Idempotency.Complete(ctx, "transfer", "k1", []byte(`{}`))
	if err := r.Idempotency.Refingerprint(ctx, "transfer", "k1", "other"); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("refingerprint completed err = %v", err)
	}
}

func TestTransfersByIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	r := New().Repositories()
	first, _ := r.Transfers.Create(ctx, models.Transfer{Amount: decimal.NewFromInt(1), IdempotencyKey: "r1"})
	_, _ = r.Transfers.Create(ctx, models.Transfer{Amount: decimal.NewFromInt(1), IdempotencyKey: "r2"})

	if err := r.Transfers.MarkDebited(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := r.Transfers.ListByIdempotencyKey(ctx, "r1")
	if len(got) != 1 || got[0].ID != first.ID || !got[0].Debited {
		t.Fatalf("attempts = %+v", got)
	}
	if err := r.Transfers.MarkDebited(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("mark missing err = %v", err)
	}
}
