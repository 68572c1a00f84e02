// Package idempotency guards side-effecting operations with caller-supplied
// keys. A key is reserved PENDING on first sight and finalized COMPLETED
// with the response it produced; later arrivals replay that response.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/baharkarakas/bankmore/internal/apperr"
	"github.com/baharkarakas/bankmore/internal/metrics"
	"github.com/baharkarakas/bankmore/internal/models"
	"github.com/baharkarakas/bankmore/internal/repository"
)

// InFlightPolicy decides what Begin does when the key is still PENDING.
type InFlightPolicy int

const (
	// ProceedInFlight lets the caller re-attempt. Two concurrent submissions
	// of one key can both run their side effects under this policy.
	ProceedInFlight InFlightPolicy = iota
	// RejectInFlight fails with DuplicateInFlight instead.
	RejectInFlight
)

type Store struct {
	repo   repository.Idempotency
	scope  string
	policy InFlightPolicy
	log    *slog.Logger
}

func New(r repository.Idempotency, scope string, policy InFlightPolicy, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{repo: r, scope: scope, policy: policy, log: log.With("scope", scope)}
}

// Prior is a stored response for a key that already completed.
type Prior struct {
	Response json.RawMessage
}

func (p *Prior) Decode(v any) error { return json.Unmarshal(p.Response, v) }

// Fingerprint is the sha256 of the canonical JSON encoding of request.
// encoding/json sorts map keys, so maps and structs with fixed field order
// both encode deterministically.
func Fingerprint(request any) (string, error) {
	b, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Begin returns (nil, nil) when the caller should run the operation, or
// the stored response when the key already completed.
func (s *Store) Begin(ctx context.Context, key string, request any) (*Prior, error) {
	if key == "" {
		return nil, apperr.E(apperr.InvalidArgument, "request_id is required")
	}
	fp, err := Fingerprint(request)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "fingerprint request", err)
	}

	err = s.repo.Insert(ctx, models.IdempotencyRecord{Scope: s.scope, Key: key, Fingerprint: fp})
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, repository.ErrConflict) {
		return nil, apperr.Wrap(apperr.Internal, "reserve idempotency key", err)
	}

	rec, err := s.repo.Get(ctx, s.scope, key)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "load idempotency key", err)
	}
	if rec.Status == models.IdemCompleted {
		return s.replay(key, fp, rec)
	}

	if s.policy == RejectInFlight {
		return nil, apperr.E(apperr.DuplicateInFlight, "request with this request_id is already in progress")
	}
	if rec.Fingerprint != fp {
		// a corrected retry now owns the key
		err := s.repo.Refingerprint(ctx, s.scope, key, fp)
		if errors.Is(err, repository.ErrConflict) {
			// completed between Get and here
			if rec, err = s.repo.Get(ctx, s.scope, key); err != nil {
				return nil, apperr.Wrap(apperr.Internal, "load idempotency key", err)
			}
			return s.replay(key, fp, rec)
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "update idempotency fingerprint", err)
		}
	}
	s.log.Warn("idempotency key still pending, re-attempting", "key", key)
	return nil, nil
}

func (s *Store) replay(key, fp string, rec models.IdempotencyRecord) (*Prior, error) {
	if rec.Fingerprint != fp {
		return nil, apperr.E(apperr.IdempotencyConflict, "request_id already used with a different payload")
	}
	metrics.IdempotentReplays.WithLabelValues(s.scope).Inc()
	s.log.Info("idempotent replay", "key", key)
	return &Prior{Response: rec.Response}, nil
}

// Complete stores response under key. The guarded operation has already
// succeeded, so failures here are logged and never returned.
func (s *Store) Complete(ctx context.Context, key string, response any) {
	b, err := json.Marshal(response)
	if err != nil {
		s.log.Error("idempotency: marshal response", "key", key, "err", err)
		return
	}
	if err := s.repo.Complete(ctx, s.scope, key, b); err != nil {
		s.log.Error("idempotency: complete failed", "key", key, "err", err)
	}
}
