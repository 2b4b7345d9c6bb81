package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cashpoints/referralhub/internal/model"
	"cashpoints/referralhub/internal/repository"
	"cashpoints/referralhub/pkg/metrics"
)

// LedgerService settles rewards: one atomic balance increment paired with
// one append-only earning row. Settlement is never left half-applied: if
// the earning insert cannot be completed the increment is compensated.
type LedgerService interface {
	Settle(ctx context.Context, referrerID string, amount int64, referralID *uuid.UUID, kind model.EarningKind, description string) (uuid.UUID, error)
}

type ledgerService struct {
	referrerRepo repository.ReferrerRepository
	earningRepo  repository.EarningRepository
	logger       *zap.Logger

	maxAttempts  int
	retryBackoff time.Duration
}

func NewLedgerService(referrerRepo repository.ReferrerRepository, earningRepo repository.EarningRepository, logger *zap.Logger) LedgerService {
	return &ledgerService{
		referrerRepo: referrerRepo,
		earningRepo:  earningRepo,
		logger:       logger,
		maxAttempts:  3,
		retryBackoff: 50 * time.Millisecond,
	}
}

func (s *ledgerService) Settle(ctx context.Context, referrerID string, amount int64, referralID *uuid.UUID, kind model.EarningKind, description string) (uuid.UUID, error) {
	if err := s.incrementBalance(ctx, referrerID, amount); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, fmt.Errorf("%w: %s", ErrUnknownReferrer, referrerID)
		}
		metrics.SettlementFailures.Inc()
		return uuid.Nil, fmt.Errorf("%w: increment balance: %v", ErrLedgerWriteFailed, err)
	}

	earning := &model.Earning{
		UserID:      referrerID,
		Amount:      amount,
		Kind:        kind,
		Description: description,
		ReferralID:  referralID,
	}
	if err := s.insertEarning(ctx, earning); err != nil {
		// Paid but unlogged is not acceptable: take the balance back.
		if compErr := s.incrementBalance(ctx, referrerID, -amount); compErr != nil {
			s.logger.Error("failed to compensate balance after earning insert failure",
				zap.String("referrer_id", referrerID),
				zap.Int64("amount", amount),
				zap.Error(compErr),
			)
		}
		metrics.SettlementFailures.Inc()
		return uuid.Nil, fmt.Errorf("%w: insert earning: %v", ErrLedgerWriteFailed, err)
	}

	metrics.Settlements.WithLabelValues(string(kind)).Inc()
	return earning.ID, nil
}

// incrementBalance retries transient store errors a bounded number of times.
// A missing referrer is not transient and aborts immediately.
func (s *ledgerService) incrementBalance(ctx context.Context, referrerID string, delta int64) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.referrerRepo.IncrementBalance(ctx, referrerID, delta)
		if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if !s.wait(ctx) {
			return err
		}
	}
	return err
}

func (s *ledgerService) insertEarning(ctx context.Context, earning *model.Earning) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.earningRepo.Insert(ctx, earning)
		if err == nil {
			return nil
		}
		if !s.wait(ctx) {
			return err
		}
	}
	return err
}

func (s *ledgerService) wait(ctx context.Context) bool {
	if s.retryBackoff <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(s.retryBackoff):
		return true
	}
}

var _ LedgerService = (*ledgerService)(nil)
