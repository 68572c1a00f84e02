package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/bankmore/internal/apperr"
	"github.com/baharkarakas/bankmore/internal/cache"
	"github.com/baharkarakas/bankmore/internal/events"
	"github.com/baharkarakas/bankmore/internal/gateway"
	"github.com/baharkarakas/bankmore/internal/metrics"
	"github.com/baharkarakas/bankmore/internal/models"
	repo "github.com/baharkarakas/bankmore/internal/repository"
)

var DefaultTransferFee = decimal.RequireFromString("2.00")

// FeeService charges the transfer fee for every completed transfer. The
// debit carries a key derived from the transfer's request_id, so a
// redelivered event never charges twice; the Fee row itself may repeat.
type FeeService struct {
	fees   repo.Fees
	dir    gateway.Directory
	mut    gateway.Mutator
	pub    events.Publisher
	cache  cache.Balances
	amount decimal.Decimal
	log    *slog.Logger
}

func NewFeeService(fees repo.Fees, dir gateway.Directory, mut gateway.Mutator, pub events.Publisher, c cache.Balances, amount decimal.Decimal, log *slog.Logger) *FeeService {
	if !amount.IsPositive() {
		amount = DefaultTransferFee
	}
	return &FeeService{fees: fees, dir: dir, mut: mut, pub: pub, cache: c, amount: amount, log: log}
}

// HandleTransferCompleted returns nil for events that are dropped on
// purpose (unknown or inactive origin).
func (s *FeeService) HandleTransferCompleted(ctx context.Context, ev models.TransferCompletedEvent) error {
	log := s.log.With("transfer_id", ev.ID, "request_id", ev.RequestID)
	feeRequestID := ev.RequestID + "-fee"
	debitRequestID := ev.RequestID + "-fee-debit"

	origin, err := s.dir.Resolve(ctx, ev.OriginAccountNumber)
	if apperr.KindOf(err) == apperr.AccountNotFound {
		log.Warn("fee skipped: origin account not found", "account", ev.OriginAccountNumber)
		metrics.FeesTotal.WithLabelValues("skipped").Inc()
		return nil
	}
	if err != nil {
		metrics.FeesTotal.WithLabelValues("failed").Inc()
		return err
	}
	if !origin.Active {
		log.Warn("fee skipped: origin account inactive", "account", origin.Number)
		metrics.FeesTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	fee, err := s.fees.Create(ctx, models.Fee{
		AccountID:     origin.ID,
		AccountNumber: origin.Number,
		Amount:        s.amount,
		Type:          models.FeeTypeTransfer,
		Description:   "transfer fee, destination " + ev.DestinationAccountNumber,
		RequestID:     feeRequestID,
	})
	if err != nil {
		metrics.FeesTotal.WithLabelValues("failed").Inc()
		return apperr.Wrap(apperr.Internal, "record fee", err)
	}

	if err := s.mut.ApplyMovement(ctx, gateway.MovementRequest{
		RequestID:     debitRequestID,
		AccountNumber: origin.Number,
		Amount:        s.amount,
		Type:          models.Debit,
	}); err != nil {
		log.Error("fee debit failed", "fee_id", fee.ID, "account", origin.Number, "err", err)
		metrics.FeesTotal.WithLabelValues("failed").Inc()
		return err
	}

	s.cache.Delete(ctx, cache.BalanceKey(origin.Number))
	metrics.FeesTotal.WithLabelValues("charged").Inc()
	log.Info("transfer fee charged", "fee_id", fee.ID, "account", origin.Number, "amount", s.amount.StringFixed(2))

	if err := s.pub.Publish(ctx, models.TopicFeeCharges, fee.ID, models.FeeChargedEvent{
		FeeID:         fee.ID,
		TransferID:    ev.ID,
		AccountNumber: origin.Number,
		Amount:        s.amount,
		RequestID:     feeRequestID,
	}); err != nil {
		log.Error("publish fee-charges failed", "fee_id", fee.ID, "err", err)
	}
	return nil
}

// Handle adapts HandleTransferCompleted to the event consumer.
func (s *FeeService) Handle(ctx context.Context, e events.Event) error {
	var ev models.TransferCompletedEvent
	if err := e.Decode(&ev); err != nil {
		// a malformed payload will never decode; drop it
		s.log.Error("bad transfer-completed payload", "offset", e.Offset, "err", err)
		return nil
	}
	if ev.RequestID == "" || ev.OriginAccountNumber == "" {
		s.log.Error("transfer-completed event missing fields", "offset", e.Offset)
		return nil
	}
	return s.HandleTransferCompleted(ctx, ev)
}

// ----------------- Reads -----------------

func (s *FeeService) ListByAccountNumber(ctx context.Context, number string) ([]models.Fee, error) {
	info, err := s.dir.Resolve(ctx, number)
	if err != nil {
		return nil, err
	}
	return s.ListByAccountID(ctx, info.ID)
}

func (s *FeeService) ListByAccountID(ctx context.Context, accountID string) ([]models.Fee, error) {
	fs, err := s.fees.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list fees", err)
	}
	return fs, nil
}

func (s *FeeService) Get(ctx context.Context, feeID string) (models.Fee, error) {
	f, err := s.fees.GetByID(ctx, feeID)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Fee{}, apperr.E(apperr.NotFound, "fee not found")
	}
	if err != nil {
		return models.Fee{}, apperr.Wrap(apperr.Internal, "load fee", err)
	}
	return f, nil
}
