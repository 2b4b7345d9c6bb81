package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"cashpoints/referralhub/internal/model"
	"cashpoints/referralhub/internal/repository"
	"cashpoints/referralhub/pkg/metrics"
)

// LevelThreshold maps a cumulative verified-referral count to a level and
// its one-time bonus.
type LevelThreshold struct {
	Level    int   `json:"level"`
	Required int64 `json:"required"`
	Bonus    int64 `json:"bonus"`
	XP       int64 `json:"xp"`
}

// LevelThresholds is the fixed progression table. Levels are forward-only
// and each level's bonus is granted exactly once.
var LevelThresholds = []LevelThreshold{
	{Level: 1, Required: 100, Bonus: 200, XP: 100},
	{Level: 2, Required: 1000, Bonus: 500, XP: 200},
	{Level: 3, Required: 5000, Bonus: 1500, XP: 500},
	{Level: 4, Required: 10000, Bonus: 3000, XP: 1000},
	{Level: 5, Required: 100000, Bonus: 10000, XP: 5000},
}

// LevelForCount returns the highest level whose threshold the count meets,
// or 0 when no threshold is met.
func LevelForCount(count int64) int {
	level := 0
	for _, th := range LevelThresholds {
		if count >= th.Required {
			level = th.Level
		}
	}
	return level
}

// LevelUp describes a completed level transition.
type LevelUp struct {
	From  int   `json:"from"`
	To    int   `json:"to"`
	Bonus int64 `json:"bonus"`
}

// ProgressionService recomputes a referrer's level after every settlement
// that increases the verified-referral count.
type ProgressionService interface {
	// OnVerifiedReferral bumps the referrer's verified count, promotes the
	// level if a threshold was crossed, and grants each crossed level's
	// bonus through the ledger. Returns nil when no transition happened.
	OnVerifiedReferral(ctx context.Context, referrerID string) (*LevelUp, error)
	Thresholds() []LevelThreshold
}

type progressionService struct {
	referrerRepo     repository.ReferrerRepository
	notificationRepo repository.NotificationRepository
	ledger           LedgerService
	logger           *zap.Logger
}

func NewProgressionService(
	referrerRepo repository.ReferrerRepository,
	notificationRepo repository.NotificationRepository,
	ledger LedgerService,
	logger *zap.Logger,
) ProgressionService {
	return &progressionService{
		referrerRepo:     referrerRepo,
		notificationRepo: notificationRepo,
		ledger:           ledger,
		logger:           logger,
	}
}

func (s *progressionService) OnVerifiedReferral(ctx context.Context, referrerID string) (*LevelUp, error) {
	total, err := s.referrerRepo.IncrementVerifiedReferrals(ctx, referrerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownReferrer, referrerID)
		}
		return nil, fmt.Errorf("increment verified referrals: %w", err)
	}

	target := LevelForCount(total)
	if target == 0 {
		return nil, nil
	}

	referrer, err := s.referrerRepo.GetByID(ctx, referrerID)
	if err != nil {
		return nil, fmt.Errorf("load referrer: %w", err)
	}
	if referrer.Level >= target {
		return nil, nil
	}

	up := &LevelUp{From: referrer.Level, To: referrer.Level}
	for level := referrer.Level + 1; level <= target; level++ {
		// The conditional update is the exactly-once gate: of N concurrent
		// settlements crossing the same threshold, one promotion wins and
		// only the winner grants the bonus.
		promoted, err := s.referrerRepo.PromoteLevel(ctx, referrerID, level)
		if err != nil {
			return nil, fmt.Errorf("promote level: %w", err)
		}
		if !promoted {
			continue
		}

		th := LevelThresholds[level-1]
		if _, err := s.ledger.Settle(ctx, referrerID, th.Bonus, nil, model.EarningKindLevelBonus,
			fmt.Sprintf("Level %d bonus", level)); err != nil {
			return nil, err
		}

		up.To = level
		up.Bonus += th.Bonus
		metrics.LevelUps.WithLabelValues(strconv.Itoa(level)).Inc()

		notification := &model.Notification{
			UserID: referrerID,
			Kind:   model.NotificationKindLevelUp,
			Title:  fmt.Sprintf("Level %d reached", level),
			Body:   fmt.Sprintf("You reached level %d and earned a %d bonus.", level, th.Bonus),
		}
		if err := s.notificationRepo.Insert(ctx, notification); err != nil {
			s.logger.Warn("failed to insert level-up notification",
				zap.String("referrer_id", referrerID),
				zap.Int("level", level),
				zap.Error(err),
			)
		}
	}

	if up.To == up.From {
		return nil, nil
	}
	return up, nil
}

func (s *progressionService) Thresholds() []LevelThreshold {
	return LevelThresholds
}

var _ ProgressionService = (*progressionService)(nil)
