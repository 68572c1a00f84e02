// Package memory implements the repository interfaces in process memory.
// One Store guards every table with a single mutex, which gives Append the
// same lock-check-insert atomicity the Postgres implementation gets from a
// row lock.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/baharkarakas/bankmore/internal/models"
	"github.com/baharkarakas/bankmore/internal/repository"
)

type Store struct {
	mu        sync.Mutex
	accounts  map[string]models.Account
	movements []models.Movement
	transfers map[string]models.Transfer
	fees      []models.Fee
	idem      map[string]models.IdempotencyRecord
	audit     []models.AuditLog
	now       func() time.Time
}

func New() *Store {
	return &Store{
		accounts:  map[string]models.Account{},
		transfers: map[string]models.Transfer{},
		idem:      map[string]models.IdempotencyRecord{},
		now:       time.Now,
	}
}

func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Accounts:    accounts{s},
		Movements:   movements{s},
		Transfers:   transfers{s},
		Fees:        fees{s},
		Idempotency: idempotency{s},
		AuditLogs:   auditLogs{s},
	}
}

// AuditLogs returns a copy of everything written to the audit trail.
func (s *Store) AuditLogs() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditLog(nil), s.audit...)
}

// ---------------- accounts ----------------

type accounts struct{ s *Store }

func (r accounts) Create(_ context.Context, a models.Account) (models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.accounts {
		if existing.Number == a.Number || existing.Document == a.Document {
			return models.Account{}, repository.ErrConflict
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = r.s.now()
	a.UpdatedAt = a.CreatedAt
	r.s.accounts[a.ID] = a
	return a, nil
}

func (r accounts) GetByID(_ context.Context, id string) (models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return models.Account{}, repository.ErrNotFound
	}
	return a, nil
}

func (r accounts) find(match func(models.Account) bool) (models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.findAccount(match)
}

func (s *Store) findAccount(match func(models.Account) bool) (models.Account, error) {
	for _, a := range s.accounts {
		if match(a) {
			return a, nil
		}
	}
	return models.Account{}, repository.ErrNotFound
}

func (r accounts) GetByNumber(_ context.Context, number string) (models.Account, error) {
	return r.find(func(a models.Account) bool { return a.Number == number })
}

func (r accounts) GetByDocument(_ context.Context, document string) (models.Account, error) {
	return r.find(func(a models.Account) bool { return a.Document == document })
}

func (r accounts) SetActive(_ context.Context, id string, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Active = active
	a.UpdatedAt = r.s.now()
	r.s.accounts[id] = a
	return nil
}

// ---------------- movements ----------------

type movements struct{ s *Store }

func (s *Store) balanceLocked(accountID string) decimal.Decimal {
	total := decimal.Zero
	for _, m := range s.movements {
		if m.AccountID == accountID {
			total = total.Add(m.Signed())
		}
	}
	return total
}

func (r movements) Append(_ context.Context, m models.Movement) (models.Movement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, err := r.s.findAccount(func(a models.Account) bool { return a.Number == m.AccountNumber })
	if err != nil {
		return models.Movement{}, err
	}
	if !a.Active {
		return models.Movement{}, repository.ErrAccountInactive
	}
	if m.Direction == models.Debit && r.s.balanceLocked(a.ID).LessThan(m.Amount) {
		return models.Movement{}, repository.ErrInsufficientFunds
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.AccountID = a.ID
	m.CreatedAt = r.s.now()
	r.s.movements = append(r.s.movements, m)
	return m, nil
}

func (r movements) Balance(_ context.Context, accountID string) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.balanceLocked(accountID), nil
}

func (r movements) ListByAccount(_ context.Context, accountID string, limit int) ([]models.Movement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Movement
	for i := len(r.s.movements) - 1; i >= 0; i-- {
		if r.s.movements[i].AccountID == accountID {
			out = append(out, r.s.movements[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ---------------- transfers ----------------

type transfers struct{ s *Store }

func (r transfers) Create(_ context.Context, t models.Transfer) (models.Transfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = r.s.now()
	r.s.transfers[t.ID] = t
	return t, nil
}

func (r transfers) GetByID(_ context.Context, id string) (models.Transfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.transfers[id]
	if !ok {
		return models.Transfer{}, repository.ErrNotFound
	}
	return t, nil
}

func (r transfers) ListByAccount(_ context.Context, accountID string) ([]models.Transfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Transfer
	for _, t := range r.s.transfers {
		if t.OriginAccountID == accountID || t.DestinationAccountID == accountID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r transfers) ListByIdempotencyKey(_ context.Context, key string) ([]models.Transfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Transfer
	for _, t := range r.s.transfers {
		if t.IdempotencyKey == key {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r transfers) MarkDebited(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.transfers[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.Debited = true
	r.s.transfers[id] = t
	return nil
}

func (r transfers) Finish(_ context.Context, id string, status models.TransferStatus) (models.Transfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.transfers[id]
	if !ok {
		return models.Transfer{}, repository.ErrNotFound
	}
	if t.Status != models.TransferPending {
		return models.Transfer{}, repository.ErrConflict
	}
	t.Status = status
	if status == models.TransferCompleted {
		at := r.s.now()
		t.CompletedAt = &at
	}
	r.s.transfers[id] = t
	return t, nil
}

// ---------------- fees ----------------

type fees struct{ s *Store }

func (r fees) Create(_ context.Context, f models.Fee) (models.Fee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.CreatedAt = r.s.now()
	r.s.fees = append(r.s.fees, f)
	return f, nil
}

func (r fees) GetByID(_ context.Context, id string) (models.Fee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, f := range r.s.fees {
		if f.ID == id {
			return f, nil
		}
	}
	return models.Fee{}, repository.ErrNotFound
}

func (r fees) ListByAccount(_ context.Context, accountID string) ([]models.Fee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Fee
	for i := len(r.s.fees) - 1; i >= 0; i-- {
		if r.s.fees[i].AccountID == accountID {
			out = append(out, r.s.fees[i])
		}
	}
	return out, nil
}

// ---------------- idempotency ----------------

type idempotency struct{ s *Store }

func idemKey(scope, key string) string { return scope + "\x00" + key }

func (r idempotency) Insert(_ context.Context, rec models.IdempotencyRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := idemKey(rec.Scope, rec.Key)
	if _, ok := r.s.idem[k]; ok {
		return repository.ErrConflict
	}
	rec.Status = models.IdemPending
	rec.CreatedAt = r.s.now()
	rec.UpdatedAt = rec.CreatedAt
	r.s.idem[k] = rec
	return nil
}

func (r idempotency) Get(_ context.Context, scope, key string) (models.IdempotencyRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.idem[idemKey(scope, key)]
	if !ok {
		return models.IdempotencyRecord{}, repository.ErrNotFound
	}
	return rec, nil
}

func (r idempotency) Refingerprint(_ context.Context, scope, key, fingerprint string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := idemKey(scope, key)
	rec, ok := r.s.idem[k]
	if !ok || rec.Status != models.IdemPending {
		return repository.ErrConflict
	}
	rec.Fingerprint = fingerprint
	rec.UpdatedAt = r.s.now()
	r.s.idem[k] = rec
	return nil
}

func (r idempotency) Complete(_ context.Context, scope, key string, response []byte) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := idemKey(scope, key)
	rec, ok := r.s.idem[k]
	if !ok {
		return repository.ErrNotFound
	}
	rec.Status = models.IdemCompleted
	rec.Response = json.RawMessage(append([]byte(nil), response...))
	rec.UpdatedAt = r.s.now()
	r.s.idem[k] = rec
	return nil
}

// ---------------- audit ----------------

type auditLogs struct{ s *Store }

func (r auditLogs) Create(_ context.Context, l models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = r.s.now()
	r.s.audit = append(r.s.audit, l)
	return nil
}
