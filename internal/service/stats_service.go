package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"cashpoints/referralhub/internal/model"
	"cashpoints/referralhub/internal/repository"
)

// EarningsWindows holds rolling earnings sums. Boundaries are computed at
// query time, so two queries moments apart may differ slightly.
type EarningsWindows struct {
	Today     int64 `json:"today"`
	ThisWeek  int64 `json:"this_week"`
	ThisMonth int64 `json:"this_month"`
	AllTime   int64 `json:"all_time"`
}

// Summary is the dashboard projection for one referrer.
type Summary struct {
	ReferrerID             string                  `json:"referrer_id"`
	Balance                int64                   `json:"balance"`
	Level                  int                     `json:"level"`
	TotalVerifiedReferrals int64                   `json:"total_verified_referrals"`
	Earnings               EarningsWindows         `json:"earnings"`
	Referrals              repository.StatusCounts `json:"referrals"`
}

// LeaderboardEntry is one ranked row. Ties on the verified count break on
// referrer id ascending, so ranking is stable across queries.
type LeaderboardEntry struct {
	Rank              int    `json:"rank"`
	ReferrerID        string `json:"referrer_id"`
	ReferralCode      string `json:"referral_code"`
	Level             int    `json:"level"`
	VerifiedReferrals int64  `json:"verified_referrals"`
}

// StatsService is the read-only aggregation side: rolling windows,
// per-kind breakdowns, and the leaderboard. It never mutates records and
// is documented as eventually consistent with respect to in-flight
// settlements.
type StatsService interface {
	Summary(ctx context.Context, referrerID string) (*Summary, error)
	Breakdown(ctx context.Context, referrerID string) (map[model.EarningKind]int64, error)
	Earnings(ctx context.Context, referrerID string, limit, offset int) ([]model.Earning, error)
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

type statsService struct {
	referrerRepo repository.ReferrerRepository
	referralRepo repository.ReferralRepository
	earningRepo  repository.EarningRepository
	cache        repository.LeaderboardCache
	cacheTTL     time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func NewStatsService(
	referrerRepo repository.ReferrerRepository,
	referralRepo repository.ReferralRepository,
	earningRepo repository.EarningRepository,
	cache repository.LeaderboardCache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) StatsService {
	return &statsService{
		referrerRepo: referrerRepo,
		referralRepo: referralRepo,
		earningRepo:  earningRepo,
		cache:        cache,
		cacheTTL:     cacheTTL,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *statsService) Summary(ctx context.Context, referrerID string) (*Summary, error) {
	referrer, err := s.referrerRepo.GetByID(ctx, referrerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReferrerNotFound
		}
		return nil, fmt.Errorf("load referrer: %w", err)
	}

	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := now.Add(-7 * 24 * time.Hour)
	monthStart := now.AddDate(0, -1, 0)

	windows := EarningsWindows{}
	if windows.Today, err = s.earningRepo.SumByUserSince(ctx, referrerID, dayStart); err != nil {
		return nil, fmt.Errorf("sum today: %w", err)
	}
	if windows.ThisWeek, err = s.earningRepo.SumByUserSince(ctx, referrerID, weekStart); err != nil {
		return nil, fmt.Errorf("sum week: %w", err)
	}
	if windows.ThisMonth, err = s.earningRepo.SumByUserSince(ctx, referrerID, monthStart); err != nil {
		return nil, fmt.Errorf("sum month: %w", err)
	}
	if windows.AllTime, err = s.earningRepo.SumByUser(ctx, referrerID); err != nil {
		return nil, fmt.Errorf("sum all time: %w", err)
	}

	counts, err := s.referralRepo.CountByStatus(ctx, referrerID)
	if err != nil {
		return nil, fmt.Errorf("count referrals: %w", err)
	}

	return &Summary{
		ReferrerID:             referrerID,
		Balance:                referrer.Balance,
		Level:                  referrer.Level,
		TotalVerifiedReferrals: referrer.TotalVerifiedReferrals,
		Earnings:               windows,
		Referrals:              *counts,
	}, nil
}

func (s *statsService) Breakdown(ctx context.Context, referrerID string) (map[model.EarningKind]int64, error) {
	if referrerID == "" {
		return nil, ErrInvalidRequest
	}
	return s.earningRepo.SumByUserPerKind(ctx, referrerID)
}

func (s *statsService) Earnings(ctx context.Context, referrerID string, limit, offset int) ([]model.Earning, error) {
	if referrerID == "" {
		return nil, ErrInvalidRequest
	}
	return s.earningRepo.ListByUser(ctx, referrerID, limit, offset)
}

func (s *statsService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	key := fmt.Sprintf("leaderboard:%d", limit)

	// Cache problems degrade to a direct query, never to an error.
	if cached, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("leaderboard cache read failed", zap.Error(err))
	} else if cached != nil {
		var entries []LeaderboardEntry
		if err := json.Unmarshal(cached, &entries); err == nil {
			return entries, nil
		}
		s.logger.Warn("leaderboard cache entry corrupt, refreshing", zap.String("key", key))
	}

	referrers, err := s.referrerRepo.TopByVerifiedReferrals(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(referrers))
	for i, referrer := range referrers {
		entries = append(entries, LeaderboardEntry{
			Rank:              i + 1,
			ReferrerID:        referrer.ID,
			ReferralCode:      referrer.ReferralCode,
			Level:             referrer.Level,
			VerifiedReferrals: referrer.TotalVerifiedReferrals,
		})
	}

	if encoded, err := json.Marshal(entries); err == nil {
		if err := s.cache.Set(ctx, key, encoded, s.cacheTTL); err != nil {
			s.logger.Warn("leaderboard cache write failed", zap.Error(err))
		}
	}
	return entries, nil
}

var _ StatsService = (*statsService)(nil)
