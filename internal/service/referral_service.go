package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cashpoints/referralhub/internal/config"
	"cashpoints/referralhub/internal/model"
	"cashpoints/referralhub/internal/repository"
	"cashpoints/referralhub/pkg/metrics"
)

// JoinRequest is an inbound "user joined via referral" event.
type JoinRequest struct {
	ReferrerID   string
	ReferredID   string
	ReferralCode string
}

type JoinOutcome string

const (
	OutcomeFresh     JoinOutcome = "fresh"
	OutcomeDuplicate JoinOutcome = "duplicate"
	OutcomeRejoin    JoinOutcome = "rejoin"
)

// JoinResult is the settled decision for one join event. ReferrerReward is
// the amount actually paid in this call (0 for in-cooldown duplicates).
type JoinResult struct {
	Outcome        JoinOutcome
	ReferrerReward int64
	Referral       *model.Referral
	LevelUp        *LevelUp
}

// ReferralService owns attribution resolution and the duplicate/rejoin
// guard: for each join event it decides fresh / duplicate / rejoin /
// conflict and drives settlement for the rewardable cases.
type ReferralService interface {
	HandleJoin(ctx context.Context, req JoinRequest) (*JoinResult, error)
	// HandleLeave marks a referred user as having left. A later rejoin is
	// judged against the cooldown window, not against this event.
	HandleLeave(ctx context.Context, referredID string) (*model.Referral, error)
	// Reject moves a referral to rejected status. Moderation only; it does
	// not claw back settled rewards.
	Reject(ctx context.Context, id uuid.UUID) (*model.Referral, error)
	List(ctx context.Context, limit, offset int) ([]model.Referral, error)
}

type referralService struct {
	referralRepo     repository.ReferralRepository
	notificationRepo repository.NotificationRepository
	ledger           LedgerService
	progression      ProgressionService
	policy           config.RewardConfig
	logger           *zap.Logger
	now              func() time.Time
}

func NewReferralService(
	referralRepo repository.ReferralRepository,
	notificationRepo repository.NotificationRepository,
	ledger LedgerService,
	progression ProgressionService,
	policy config.RewardConfig,
	logger *zap.Logger,
) ReferralService {
	return &referralService{
		referralRepo:     referralRepo,
		notificationRepo: notificationRepo,
		ledger:           ledger,
		progression:      progression,
		policy:           policy,
		logger:           logger,
		now:              time.Now,
	}
}

func (s *referralService) HandleJoin(ctx context.Context, req JoinRequest) (*JoinResult, error) {
	if req.ReferrerID == "" || req.ReferredID == "" {
		return nil, ErrInvalidRequest
	}

	now := s.now().UTC()
	referral := &model.Referral{
		ReferrerID:   req.ReferrerID,
		ReferredID:   req.ReferredID,
		ReferralCode: req.ReferralCode,
		Status:       model.ReferralStatusPending,
		IsActive:     true,
		LastJoinAt:   now,
	}

	// The unique index on referred_id arbitrates concurrent first joins:
	// exactly one request creates the record, every other one lands in the
	// existing-record branch below.
	err := s.referralRepo.Create(ctx, referral)
	switch {
	case err == nil:
		return s.settleFresh(ctx, referral)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		// lost the insert race or record predates this request
	default:
		return nil, fmt.Errorf("create referral: %w", err)
	}

	existing, getErr := s.referralRepo.GetByReferredID(ctx, req.ReferredID)
	if getErr != nil {
		return nil, fmt.Errorf("load existing referral: %w", getErr)
	}

	// The referrer on record is authoritative. A different referrer in the
	// request is a re-attribution attempt and is rejected outright.
	if existing.ReferrerID != req.ReferrerID {
		s.notify(ctx, existing.ReferrerID, model.NotificationKindAttributionConflict,
			"Referral conflict blocked",
			fmt.Sprintf("Another referrer tried to claim user %s, who is attributed to you.", req.ReferredID),
			&existing.ID)
		metrics.JoinOutcomes.WithLabelValues("conflict").Inc()
		return nil, fmt.Errorf("%w: referred user %s", ErrReferralAlreadyAttributed, req.ReferredID)
	}

	// A zero join timestamp means the record is malformed; fail closed and
	// treat the event as an in-cooldown duplicate.
	elapsed := now.Sub(existing.LastJoinAt)
	if existing.LastJoinAt.IsZero() || elapsed < s.policy.RejoinCooldown {
		return s.handleDuplicate(ctx, existing)
	}
	return s.settleRejoin(ctx, existing, now)
}

func (s *referralService) settleFresh(ctx context.Context, referral *model.Referral) (*JoinResult, error) {
	bonus := s.policy.ReferralBonus
	_, err := s.ledger.Settle(ctx, referral.ReferrerID, bonus, &referral.ID,
		model.EarningKindReferralBonus,
		fmt.Sprintf("Referral bonus for user %s", referral.ReferredID))
	if err != nil {
		// Unwind the attribution so a retry of the same event can settle
		// instead of being classified as a duplicate.
		if delErr := s.referralRepo.Delete(ctx, referral.ID); delErr != nil {
			s.logger.Error("failed to unwind unsettled referral",
				zap.String("referral_id", referral.ID.String()),
				zap.Error(delErr),
			)
		}
		return nil, err
	}

	if err := s.referralRepo.MarkVerified(ctx, referral.ID, bonus); err != nil {
		return nil, fmt.Errorf("promote referral to verified: %w", err)
	}
	referral.Status = model.ReferralStatusVerified
	referral.BonusAmount = bonus

	levelUp, err := s.progression.OnVerifiedReferral(ctx, referral.ReferrerID)
	if err != nil {
		return nil, err
	}

	metrics.JoinOutcomes.WithLabelValues("fresh").Inc()
	return &JoinResult{
		Outcome:        OutcomeFresh,
		ReferrerReward: bonus,
		Referral:       referral,
		LevelUp:        levelUp,
	}, nil
}

func (s *referralService) handleDuplicate(ctx context.Context, existing *model.Referral) (*JoinResult, error) {
	// The user is present again; record that with a write scoped to the
	// activity fields. The snapshot in hand may be stale, so nothing else
	// (status, counters, the cooldown clock) is written from it.
	if err := s.referralRepo.Reactivate(ctx, existing.ID); err != nil {
		s.logger.Warn("failed to reactivate referral on duplicate join",
			zap.String("referral_id", existing.ID.String()),
			zap.Error(err),
		)
	}
	existing.IsActive = true
	existing.LeaveAt = nil

	s.notify(ctx, existing.ReferrerID, model.NotificationKindDuplicateJoin,
		"Duplicate join blocked",
		fmt.Sprintf("User %s rejoined within the cooldown window. No bonus was paid.", existing.ReferredID),
		&existing.ID)

	metrics.JoinOutcomes.WithLabelValues("duplicate").Inc()
	return &JoinResult{
		Outcome:        OutcomeDuplicate,
		ReferrerReward: 0,
		Referral:       existing,
	}, nil
}

func (s *referralService) settleRejoin(ctx context.Context, existing *model.Referral, now time.Time) (*JoinResult, error) {
	reward := s.policy.RejoinBonus
	if existing.RejoinCount >= s.policy.MaxRewardedRejoin {
		reward = 0
	}

	// Compare-and-swap on the last_join_at we read: of N concurrent
	// replays of the same cooled-down event exactly one advances the
	// clock and settles. The rest fall through to the duplicate branch.
	won, err := s.referralRepo.TransitionRejoin(ctx, existing.ID, existing.LastJoinAt, now, reward)
	if err != nil {
		return nil, fmt.Errorf("transition referral to rejoined: %w", err)
	}
	if !won {
		current, getErr := s.referralRepo.GetByReferredID(ctx, existing.ReferredID)
		if getErr != nil {
			return nil, fmt.Errorf("reload referral after lost rejoin race: %w", getErr)
		}
		return s.handleDuplicate(ctx, current)
	}

	prev := *existing
	existing.IsActive = true
	existing.LeaveAt = nil
	existing.LastJoinAt = now
	existing.LastRejoinAt = &now
	if reward > 0 {
		existing.RejoinCount++
		existing.BonusAmount += reward
	}

	if reward > 0 {
		_, err := s.ledger.Settle(ctx, existing.ReferrerID, reward, &existing.ID,
			model.EarningKindReferralBonus,
			fmt.Sprintf("Rejoin bonus for user %s", existing.ReferredID))
		if err != nil {
			// Roll the state transition back so a retry can settle again.
			if revErr := s.referralRepo.RevertRejoin(ctx, existing.ID, now, &prev); revErr != nil {
				s.logger.Error("failed to revert rejoin state after settlement failure",
					zap.String("referral_id", existing.ID.String()),
					zap.Error(revErr),
				)
			}
			return nil, err
		}
	}

	metrics.JoinOutcomes.WithLabelValues("rejoin").Inc()
	return &JoinResult{
		Outcome:        OutcomeRejoin,
		ReferrerReward: reward,
		Referral:       existing,
	}, nil
}

func (s *referralService) HandleLeave(ctx context.Context, referredID string) (*model.Referral, error) {
	if referredID == "" {
		return nil, ErrInvalidRequest
	}

	referral, err := s.referralRepo.GetByReferredID(ctx, referredID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReferralNotFound
		}
		return nil, fmt.Errorf("load referral: %w", err)
	}

	now := s.now().UTC()
	if err := s.referralRepo.MarkLeft(ctx, referral.ID, now); err != nil {
		return nil, fmt.Errorf("mark referral left: %w", err)
	}
	referral.IsActive = false
	referral.LeaveAt = &now
	return referral, nil
}

func (s *referralService) Reject(ctx context.Context, id uuid.UUID) (*model.Referral, error) {
	referral, err := s.referralRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReferralNotFound
		}
		return nil, fmt.Errorf("load referral: %w", err)
	}

	if err := s.referralRepo.MarkRejected(ctx, referral.ID); err != nil {
		return nil, fmt.Errorf("reject referral: %w", err)
	}
	referral.Status = model.ReferralStatusRejected
	referral.IsActive = false
	return referral, nil
}

func (s *referralService) List(ctx context.Context, limit, offset int) ([]model.Referral, error) {
	return s.referralRepo.List(ctx, limit, offset)
}

// notify inserts a warning row for the delivery layer. Failures are logged,
// never propagated; notifications are fire-and-forget.
func (s *referralService) notify(ctx context.Context, userID string, kind model.NotificationKind, title, body string, referralID *uuid.UUID) {
	notification := &model.Notification{
		UserID:     userID,
		Kind:       kind,
		Title:      title,
		Body:       body,
		ReferralID: referralID,
	}
	if err := s.notificationRepo.Insert(ctx, notification); err != nil {
		s.logger.Warn("failed to insert notification",
			zap.String("user_id", userID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}

var _ ReferralService = (*referralService)(nil)
