package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/baharkarakas/bankmore/internal/api/validate"
	"github.com/baharkarakas/bankmore/internal/apperr"
	"github.com/baharkarakas/bankmore/internal/auth"
	"github.com/baharkarakas/bankmore/internal/cache"
	"github.com/baharkarakas/bankmore/internal/gateway"
	"github.com/baharkarakas/bankmore/internal/idempotency"
	"github.com/baharkarakas/bankmore/internal/ledger"
	"github.com/baharkarakas/bankmore/internal/models"
	repo "github.com/baharkarakas/bankmore/internal/repository"
)

// AccountService owns accounts and is the server side of the account
// mutation gateway.
type AccountService struct {
	accounts repo.Accounts
	audit    repo.AuditLogs
	ledger   *ledger.Ledger
	idem     *idempotency.Store
	cache    cache.Balances
	tm       *auth.TokenManager
	log      *slog.Logger
}

func NewAccountService(r repo.Repositories, l *ledger.Ledger, idem *idempotency.Store, c cache.Balances, tm *auth.TokenManager, log *slog.Logger) *AccountService {
	return &AccountService{
		accounts: r.Accounts,
		audit:    r.AuditLogs,
		ledger:   l,
		idem:     idem,
		cache:    c,
		tm:       tm,
		log:      log,
	}
}

// ----------------- Helpers -----------------

func (s *AccountService) auditLog(ctx context.Context, accountID, action string, details map[string]any) {
	if err := s.audit.Create(ctx, models.AuditLog{
		EntityType: models.AuditAccount,
		EntityID:   &accountID,
		Action:     action,
		Details:    details,
	}); err != nil {
		s.log.Warn("audit log failed", "account_id", accountID, "action", action, "err", err)
	}
}

func (s *AccountService) byID(ctx context.Context, id string) (models.Account, error) {
	a, err := s.accounts.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Account{}, apperr.E(apperr.AccountNotFound, "account not found")
	}
	if err != nil {
		return models.Account{}, apperr.Wrap(apperr.Internal, "load account", err)
	}
	return a, nil
}

func (s *AccountService) byNumber(ctx context.Context, number string) (models.Account, error) {
	a, err := s.accounts.GetByNumber(ctx, number)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Account{}, apperr.E(apperr.AccountNotFound, "account not found")
	}
	if err != nil {
		return models.Account{}, apperr.Wrap(apperr.Internal, "load account", err)
	}
	return a, nil
}

func newAccountNumber() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// ----------------- Registration & login -----------------

type RegisterInput struct {
	Document string `json:"cpf"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type RegisterResult struct {
	AccountNumber string `json:"account_number"`
	Message       string `json:"message"`
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	doc := validate.CleanDocument(in.Document)
	if err := validate.Document(doc); err != nil {
		return RegisterResult{}, err
	}
	acct := models.Account{Name: in.Name, Document: doc, Active: true}
	if err := acct.Validate(); err != nil {
		return RegisterResult{}, apperr.Wrap(apperr.InvalidArgument, err.Error(), err)
	}
	if err := validate.Collect(validate.MinLen("password", in.Password, 6)); err != nil {
		return RegisterResult{}, err
	}
	if _, err := s.accounts.GetByDocument(ctx, doc); err == nil {
		return RegisterResult{}, apperr.E(apperr.InvalidDocument, "document already registered")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return RegisterResult{}, apperr.Wrap(apperr.Internal, "check document", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return RegisterResult{}, apperr.Wrap(apperr.InvalidArgument, "password must be at most 72 bytes", err)
	}
	if err != nil {
		return RegisterResult{}, apperr.Wrap(apperr.Internal, "hash password", err)
	}
	acct.PasswordHash = hash

	// numbers are random; retry the rare collision
	for attempt := 0; attempt < 5; attempt++ {
		number, err := newAccountNumber()
		if err != nil {
			return RegisterResult{}, apperr.Wrap(apperr.Internal, "account number", err)
		}
		acct.Number = number
		a, err := s.accounts.Create(ctx, acct)
		if errors.Is(err, repo.ErrConflict) {
			if _, derr := s.accounts.GetByDocument(ctx, doc); derr == nil {
				return RegisterResult{}, apperr.E(apperr.InvalidDocument, "document already registered")
			}
			continue
		}
		if err != nil {
			return RegisterResult{}, apperr.Wrap(apperr.Internal, "create account", err)
		}
		s.auditLog(ctx, a.ID, models.ActionCreated, nil)
		s.log.Info("account created", "account", a.Number)
		return RegisterResult{AccountNumber: a.Number, Message: "account created"}, nil
	}
	return RegisterResult{}, apperr.E(apperr.Internal, "could not allocate an account number")
}

type LoginResult struct {
	Token         string `json:"token"`
	AccountNumber string `json:"account_number"`
	Name          string `json:"name"`
	ExpiresAt     int64  `json:"expires_at"`
}

// Authenticate accepts a document or an account number as login.
func (s *AccountService) Authenticate(ctx context.Context, login, password string) (LoginResult, error) {
	bad := apperr.E(apperr.UserUnauthorized, "invalid credentials")
	a, err := s.accounts.GetByDocument(ctx, validate.CleanDocument(login))
	if errors.Is(err, repo.ErrNotFound) {
		a, err = s.accounts.GetByNumber(ctx, login)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return LoginResult{}, bad
	}
	if err != nil {
		return LoginResult{}, apperr.Wrap(apperr.Internal, "load account", err)
	}
	if auth.VerifyPassword(password, a.PasswordHash) != nil {
		return LoginResult{}, bad
	}
	if !a.Active {
		return LoginResult{}, apperr.E(apperr.InactiveAccount, "account is inactive")
	}
	tok, exp, err := s.tm.Generate(a)
	if err != nil {
		return LoginResult{}, apperr.Wrap(apperr.Internal, "issue token", err)
	}
	return LoginResult{Token: tok, AccountNumber: a.Number, Name: a.Name, ExpiresAt: exp.Unix()}, nil
}

// ----------------- Activation -----------------

func (s *AccountService) setActive(ctx context.Context, accountID, password string, active bool) error {
	a, err := s.byID(ctx, accountID)
	if err != nil {
		return err
	}
	if auth.VerifyPassword(password, a.PasswordHash) != nil {
		return apperr.E(apperr.UserUnauthorized, "invalid password")
	}
	if err := s.accounts.SetActive(ctx, a.ID, active); err != nil {
		return apperr.Wrap(apperr.Internal, "update account", err)
	}
	s.cache.Delete(ctx, cache.BalanceKey(a.Number))
	action := models.ActionDeactivated
	if active {
		action = models.ActionActivated
	}
	s.auditLog(ctx, a.ID, action, nil)
	s.log.Info("account "+action, "account", a.Number)
	return nil
}

// Deactivate stops all movements on the account. Nothing is deleted.
func (s *AccountService) Deactivate(ctx context.Context, accountID, password string) error {
	return s.setActive(ctx, accountID, password, false)
}

func (s *AccountService) Activate(ctx context.Context, accountID, password string) error {
	return s.setActive(ctx, accountID, password, true)
}

// ----------------- Movements -----------------

type movementFingerprint struct {
	AccountNumber string `json:"account_number"`
	Amount        string `json:"amount"`
	Type          string `json:"type"`
}

type movementResult struct {
	MovementID string `json:"movement_id"`
	Message    string `json:"message"`
}

// ApplyMovement is the gateway operation. A repeated request_id with the
// same payload is answered without touching the ledger. Customers may only
// move their own account; service callers may move any.
func (s *AccountService) ApplyMovement(ctx context.Context, caller *auth.Claims, req gateway.MovementRequest) error {
	if caller == nil {
		return apperr.E(apperr.UserUnauthorized, "authentication required")
	}
	if err := validate.Collect(validate.Required("account_number", req.AccountNumber)); err != nil {
		return err
	}
	if caller.Role != auth.RoleService && caller.AccountNumber != req.AccountNumber {
		return apperr.E(apperr.UnauthorizedOperation, "operation not allowed for this account")
	}
	prior, err := s.idem.Begin(ctx, req.RequestID, movementFingerprint{
		AccountNumber: req.AccountNumber,
		Amount:        req.Amount.StringFixed(2),
		Type:          string(req.Type),
	})
	if err != nil {
		return err
	}
	if prior != nil {
		return nil
	}

	m, err := s.ledger.Append(ctx, ledger.AppendInput{
		AccountNumber:  req.AccountNumber,
		Amount:         req.Amount,
		Direction:      req.Type,
		Description:    req.Type.String(),
		IdempotencyKey: req.RequestID,
	})
	if err != nil {
		return err
	}
	s.idem.Complete(ctx, req.RequestID, movementResult{MovementID: m.ID, Message: "movement applied"})
	return nil
}

// ServiceMutator applies movements in-process with service privileges.
func (s *AccountService) ServiceMutator(name string) gateway.Mutator {
	return localMutator{s: s, caller: &auth.Claims{Name: name, Role: auth.RoleService}}
}

type localMutator struct {
	s      *AccountService
	caller *auth.Claims
}

func (m localMutator) ApplyMovement(ctx context.Context, req gateway.MovementRequest) error {
	return m.s.ApplyMovement(ctx, m.caller, req)
}

// ----------------- Reads -----------------

// Balance is the display balance of the caller's own account.
func (s *AccountService) Balance(ctx context.Context, accountID string) (models.Balance, error) {
	a, err := s.byID(ctx, accountID)
	if err != nil {
		return models.Balance{}, err
	}
	b, err := s.ledger.CachedBalance(ctx, a)
	if err != nil {
		return models.Balance{}, err
	}
	return models.Balance{AccountNumber: a.Number, AccountName: a.Name, Balance: b}, nil
}

// BalanceByNumber refuses inactive accounts. fresh skips the cache.
func (s *AccountService) BalanceByNumber(ctx context.Context, number string, fresh bool) (models.Balance, error) {
	a, err := s.byNumber(ctx, number)
	if err != nil {
		return models.Balance{}, err
	}
	if !a.Active {
		return models.Balance{}, apperr.E(apperr.InactiveAccount, "account is inactive")
	}
	var b decimal.Decimal
	if fresh {
		b, err = s.ledger.BalanceOf(ctx, a.Number)
	} else {
		b, err = s.ledger.CachedBalance(ctx, a)
	}
	if err != nil {
		return models.Balance{}, err
	}
	return models.Balance{AccountNumber: a.Number, AccountName: a.Name, Balance: b}, nil
}

// Exists reports whether an active account has this number.
func (s *AccountService) Exists(ctx context.Context, number string) (bool, error) {
	a, err := s.accounts.GetByNumber(ctx, number)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Wrap(apperr.Internal, "load account", err)
	}
	return a.Active, nil
}

// Resolve accepts an account id or number.
func (s *AccountService) Resolve(ctx context.Context, ref string) (gateway.AccountInfo, error) {
	var (
		a   models.Account
		err error
	)
	if _, perr := uuid.Parse(ref); perr == nil {
		a, err = s.byID(ctx, ref)
	} else {
		a, err = s.byNumber(ctx, ref)
	}
	if err != nil {
		return gateway.AccountInfo{}, err
	}
	return gateway.AccountInfo{ID: a.ID, Number: a.Number, Name: a.Name, Active: a.Active}, nil
}

func (s *AccountService) FreshBalance(ctx context.Context, number string) (decimal.Decimal, error) {
	return s.ledger.BalanceOf(ctx, number)
}

func (s *AccountService) Statement(ctx context.Context, accountID string, limit int) ([]models.Movement, error) {
	a, err := s.byID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.ledger.Movements(ctx, a.Number, limit)
}
