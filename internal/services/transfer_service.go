package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/baharkarakas/bankmore/internal/api/validate"
	"github.com/baharkarakas/bankmore/internal/apperr"
	"github.com/baharkarakas/bankmore/internal/auth"
	"github.com/baharkarakas/bankmore/internal/cache"
	"github.com/baharkarakas/bankmore/internal/events"
	"github.com/baharkarakas/bankmore/internal/gateway"
	"github.com/baharkarakas/bankmore/internal/idempotency"
	"github.com/baharkarakas/bankmore/internal/metrics"
	"github.com/baharkarakas/bankmore/internal/models"
	repo "github.com/baharkarakas/bankmore/internal/repository"
)

type TransferOptions struct {
	// CompensateOnFailure re-credits the origin when the debit went through
	// but the credit did not.
	CompensateOnFailure bool
}

// TransferService runs the transfer saga: debit origin, credit destination,
// then record the outcome. Accounts are only reached through the gateway.
type TransferService struct {
	transfers repo.Transfers
	audit     repo.AuditLogs
	dir       gateway.Directory
	mut       gateway.Mutator
	idem      *idempotency.Store
	pub       events.Publisher
	cache     cache.Balances
	opts      TransferOptions
	log       *slog.Logger
}

func NewTransferService(r repo.Repositories, dir gateway.Directory, mut gateway.Mutator, idem *idempotency.Store,
	pub events.Publisher, c cache.Balances, opts TransferOptions, log *slog.Logger) *TransferService {
	return &TransferService{
		transfers: r.Transfers,
		audit:     r.AuditLogs,
		dir:       dir,
		mut:       mut,
		idem:      idem,
		pub:       pub,
		cache:     c,
		opts:      opts,
		log:       log,
	}
}

// ----------------- Helpers -----------------

func (s *TransferService) auditLog(ctx context.Context, transferID, action, details string) {
	var det map[string]any
	if details != "" {
		det = map[string]any{"message": details}
	}
	if err := s.audit.Create(ctx, models.AuditLog{
		EntityType: models.AuditTransfer,
		EntityID:   &transferID,
		Action:     action,
		Details:    det,
	}); err != nil {
		s.log.Warn("audit log failed", "transfer_id", transferID, "err", err)
	}
}

// debitHeld reports whether an earlier failed attempt of the same request
// debited the origin and left the debit in place.
func (s *TransferService) debitHeld(ctx context.Context, req models.TransferRequest, originID, destID string) (bool, error) {
	prior, err := s.transfers.ListByIdempotencyKey(ctx, req.RequestID)
	if err != nil {
		return false, apperr.Wrap(apperr.Internal, "load earlier attempts", err)
	}
	for _, t := range prior {
		if t.Debited && t.Status == models.TransferFailed &&
			t.OriginAccountID == originID && t.DestinationAccountID == destID && t.Amount.Equal(req.Amount) {
			return true, nil
		}
	}
	return false, nil
}

func (s *TransferService) finish(ctx context.Context, t models.Transfer, status models.TransferStatus, reason string) {
	if _, err := s.transfers.Finish(ctx, t.ID, status); err != nil {
		s.log.Error("transfer status update failed", "transfer_id", t.ID, "status", status.String(), "err", err)
		return
	}
	s.auditLog(ctx, t.ID, models.ActionStatusChange, fmt.Sprintf("%s: %s", status, reason))
}

// sagaOutcome is what the request_id stores. A failed outcome is only
// stored once the saga compensated, so a retry cannot re-credit the
// destination against a reversed debit.
type sagaOutcome struct {
	Response      *models.TransferResponse `json:"response,omitempty"`
	FailedKind    apperr.Kind              `json:"failed_kind,omitempty"`
	FailedMessage string                   `json:"failed_message,omitempty"`
}

type transferFingerprint struct {
	OriginAccountID          string `json:"origin_account_id"`
	DestinationAccountNumber string `json:"destination_account_number"`
	Amount                   string `json:"amount"`
}

func (s *TransferService) activeAccount(ctx context.Context, ref, role string) (gateway.AccountInfo, error) {
	info, err := s.dir.Resolve(ctx, ref)
	if err != nil {
		if apperr.KindOf(err) == apperr.AccountNotFound {
			return gateway.AccountInfo{}, apperr.E(apperr.AccountNotFound, role+" account not found")
		}
		return gateway.AccountInfo{}, err
	}
	if !info.Active {
		return gateway.AccountInfo{}, apperr.E(apperr.InactiveAccount, role+" account is inactive")
	}
	return info, nil
}

// ----------------- Saga -----------------

// Create transfers req.Amount from the caller's account. Validation
// failures change nothing and leave request_id open for a corrected retry.
func (s *TransferService) Create(ctx context.Context, caller *auth.Claims, req models.TransferRequest) (models.TransferResponse, error) {
	if caller == nil || caller.AccountID == "" {
		return models.TransferResponse{}, apperr.E(apperr.UserUnauthorized, "authentication required")
	}
	prior, err := s.idem.Begin(ctx, req.RequestID, transferFingerprint{
		OriginAccountID:          caller.AccountID,
		DestinationAccountNumber: req.DestinationAccountNumber,
		Amount:                   req.Amount.StringFixed(2),
	})
	if err != nil {
		return models.TransferResponse{}, err
	}
	if prior != nil {
		var out sagaOutcome
		if err := prior.Decode(&out); err != nil {
			return models.TransferResponse{}, apperr.Wrap(apperr.Internal, "decode stored response", err)
		}
		if out.FailedKind != "" {
			return models.TransferResponse{}, apperr.E(out.FailedKind, out.FailedMessage)
		}
		if out.Response == nil {
			return models.TransferResponse{}, apperr.E(apperr.Internal, "stored response is empty")
		}
		return *out.Response, nil
	}

	if err := validate.Amount(req.Amount); err != nil {
		return models.TransferResponse{}, err
	}
	if err := validate.Collect(validate.Required("destination_account_number", req.DestinationAccountNumber)); err != nil {
		return models.TransferResponse{}, err
	}
	origin, err := s.activeAccount(ctx, caller.AccountID, "origin")
	if err != nil {
		return models.TransferResponse{}, err
	}
	dest, err := s.activeAccount(ctx, req.DestinationAccountNumber, "destination")
	if err != nil {
		return models.TransferResponse{}, err
	}
	if origin.ID == dest.ID {
		return models.TransferResponse{}, apperr.E(apperr.InvalidTransfer, "cannot transfer to the same account")
	}
	held, err := s.debitHeld(ctx, req, origin.ID, dest.ID)
	if err != nil {
		return models.TransferResponse{}, err
	}
	// a held debit already took the amount; the -debit key replays it
	if !held {
		bal, err := s.dir.FreshBalance(ctx, origin.Number)
		if err != nil {
			return models.TransferResponse{}, err
		}
		if bal.LessThan(req.Amount) {
			return models.TransferResponse{}, apperr.E(apperr.InsufficientBalance, "insufficient balance")
		}
	}

	t, err := s.transfers.Create(ctx, models.Transfer{
		OriginAccountID:      origin.ID,
		OriginNumber:         origin.Number,
		DestinationAccountID: dest.ID,
		DestinationNumber:    dest.Number,
		Amount:               req.Amount,
		Status:               models.TransferPending,
		Description:          "transfer to account " + dest.Number,
		IdempotencyKey:       req.RequestID,
	})
	if err != nil {
		return models.TransferResponse{}, apperr.Wrap(apperr.Internal, "create transfer", err)
	}
	s.auditLog(ctx, t.ID, models.ActionCreated, "transfer created")

	// 1) debit origin
	if err := s.mut.ApplyMovement(ctx, gateway.MovementRequest{
		RequestID:     req.RequestID + "-debit",
		AccountNumber: origin.Number,
		Amount:        req.Amount,
		Type:          models.Debit,
	}); err != nil {
		return models.TransferResponse{}, s.fail(ctx, t, req.RequestID, false, fmt.Errorf("debit origin: %w", err))
	}
	if err := s.transfers.MarkDebited(ctx, t.ID); err != nil {
		s.log.Error("mark transfer debited failed", "transfer_id", t.ID, "err", err)
	}

	// 2) credit destination
	if err := s.mut.ApplyMovement(ctx, gateway.MovementRequest{
		RequestID:     req.RequestID + "-credit",
		AccountNumber: dest.Number,
		Amount:        req.Amount,
		Type:          models.Credit,
	}); err != nil {
		return models.TransferResponse{}, s.fail(ctx, t, req.RequestID, true, fmt.Errorf("credit destination: %w", err))
	}

	s.finish(ctx, t, models.TransferCompleted, "debit and credit applied")
	s.cache.Delete(ctx, cache.BalanceKey(origin.Number), cache.BalanceKey(dest.Number))
	metrics.TransfersTotal.WithLabelValues("completed").Inc()

	if err := s.pub.Publish(ctx, models.TopicTransferCompleted, t.ID, models.TransferCompletedEvent{
		ID:                       t.ID,
		OriginAccountNumber:      origin.Number,
		DestinationAccountNumber: dest.Number,
		Amount:                   req.Amount,
		RequestID:                req.RequestID,
	}); err != nil {
		// the money already moved; only the fee is lost
		s.log.Error("publish transfer-completed failed", "transfer_id", t.ID, "err", err)
	}

	resp := models.TransferResponse{
		TransferID:               t.ID,
		Message:                  "transfer completed",
		OriginAccountNumber:      origin.Number,
		DestinationAccountNumber: dest.Number,
		Amount:                   req.Amount,
	}
	s.idem.Complete(ctx, req.RequestID, sagaOutcome{Response: &resp})
	s.log.Info("transfer completed", "transfer_id", t.ID, "origin", origin.Number, "destination", dest.Number, "amount", req.Amount.StringFixed(2))
	return resp, nil
}

// fail marks t FAILED. With compensation on and the debit applied, the
// origin is re-credited first.
func (s *TransferService) fail(ctx context.Context, t models.Transfer, requestID string, debited bool, cause error) error {
	s.log.Warn("transfer step failed", "transfer_id", t.ID, "err", cause)
	reason := cause.Error()

	if debited && s.opts.CompensateOnFailure {
		err := s.mut.ApplyMovement(ctx, gateway.MovementRequest{
			RequestID:     requestID + "-debit-reversal",
			AccountNumber: t.OriginNumber,
			Amount:        t.Amount,
			Type:          models.Credit,
		})
		if err != nil {
			// origin stays debited; the reversal key makes a manual replay safe
			s.log.Error("debit reversal failed", "transfer_id", t.ID, "err", err)
			reason += "; reversal failed: " + err.Error()
		} else {
			reason += "; debit reversed"
			s.finish(ctx, t, models.TransferFailed, reason)
			s.cache.Delete(ctx, cache.BalanceKey(t.OriginNumber))
			metrics.TransfersTotal.WithLabelValues("compensated").Inc()
			msg := "transfer failed and the debit was reversed"
			s.idem.Complete(ctx, requestID, sagaOutcome{FailedKind: apperr.UpstreamFailure, FailedMessage: msg})
			return apperr.Wrap(apperr.UpstreamFailure, msg, cause)
		}
	}

	s.finish(ctx, t, models.TransferFailed, reason)
	s.cache.Delete(ctx, cache.BalanceKey(t.OriginNumber))
	metrics.TransfersTotal.WithLabelValues("failed").Inc()
	return apperr.Wrap(apperr.UpstreamFailure, "transfer failed", cause)
}

// ----------------- Reads -----------------

func (s *TransferService) List(ctx context.Context, accountID string) ([]models.Transfer, error) {
	ts, err := s.transfers.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list transfers", err)
	}
	return ts, nil
}

// Get only returns transfers the account took part in.
func (s *TransferService) Get(ctx context.Context, transferID, accountID string) (models.Transfer, error) {
	t, err := s.transfers.GetByID(ctx, transferID)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Transfer{}, apperr.E(apperr.InvalidTransfer, "transfer not found")
	}
	if err != nil {
		return models.Transfer{}, apperr.Wrap(apperr.Internal, "load transfer", err)
	}
	if t.OriginAccountID != accountID && t.DestinationAccountID != accountID {
		return models.Transfer{}, apperr.E(apperr.InvalidTransfer, "transfer not found")
	}
	return t, nil
}
