package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cashpoints/referralhub/internal/model"
)

type pgReferralRepository struct {
	db *gorm.DB
}

func NewPGReferralRepository(db *gorm.DB) ReferralRepository {
	return &pgReferralRepository{db: db}
}

func (r *pgReferralRepository) Create(ctx context.Context, referral *model.Referral) error {
	return r.db.WithContext(ctx).Create(referral).Error
}

func (r *pgReferralRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Referral, error) {
	var referral model.Referral
	if err := r.db.WithContext(ctx).First(&referral, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &referral, nil
}

func (r *pgReferralRepository) GetByReferredID(ctx context.Context, referredID string) (*model.Referral, error) {
	var referral model.Referral
	if err := r.db.WithContext(ctx).Where("referred_id = ?", referredID).First(&referral).Error; err != nil {
		return nil, err
	}
	return &referral, nil
}

func (r *pgReferralRepository) MarkVerified(ctx context.Context, id uuid.UUID, bonus int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Referral{}).
		Where("id = ? AND status = ?", id, model.ReferralStatusPending).
		Updates(map[string]interface{}{
			"status":       model.ReferralStatusVerified,
			"bonus_amount": bonus,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *pgReferralRepository) Reactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Referral{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active": true,
			"leave_at":  nil,
		}).Error
}

func (r *pgReferralRepository) TransitionRejoin(ctx context.Context, id uuid.UUID, observedJoinAt, joinAt time.Time, reward int64) (bool, error) {
	updates := map[string]interface{}{
		"is_active":      true,
		"leave_at":       nil,
		"last_join_at":   joinAt,
		"last_rejoin_at": joinAt,
	}
	if reward > 0 {
		updates["rejoin_count"] = gorm.Expr("rejoin_count + 1")
		updates["bonus_amount"] = gorm.Expr("bonus_amount + ?", reward)
	}

	// The last_join_at predicate is the compare-and-swap: a concurrent
	// replay that already advanced the clock makes this a zero-row update.
	res := r.db.WithContext(ctx).
		Model(&model.Referral{}).
		Where("id = ? AND last_join_at = ?", id, observedJoinAt).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *pgReferralRepository) RevertRejoin(ctx context.Context, id uuid.UUID, joinAt time.Time, prev *model.Referral) error {
	return r.db.WithContext(ctx).
		Model(&model.Referral{}).
		Where("id = ? AND last_join_at = ?", id, joinAt).
		Updates(map[string]interface{}{
			"is_active":      prev.IsActive,
			"leave_at":       prev.LeaveAt,
			"last_join_at":   prev.LastJoinAt,
			"last_rejoin_at": prev.LastRejoinAt,
			"rejoin_count":   prev.RejoinCount,
			"bonus_amount":   prev.BonusAmount,
		}).Error
}

func (r *pgReferralRepository) MarkLeft(ctx context.Context, id uuid.UUID, leaveAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Referral{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active": false,
			"leave_at":  leaveAt,
		}).Error
}

func (r *pgReferralRepository) MarkRejected(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Referral{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":    model.ReferralStatusRejected,
			"is_active": false,
		}).Error
}

func (r *pgReferralRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Referral{}, "id = ?", id).Error
}

func (r *pgReferralRepository) CountByStatus(ctx context.Context, referrerID string) (*StatusCounts, error) {
	rows := []struct {
		Status model.ReferralStatus
		N      int64
	}{}
	err := r.db.WithContext(ctx).
		Model(&model.Referral{}).
		Select("status, count(*) as n").
		Where("referrer_id = ?", referrerID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := &StatusCounts{}
	for _, row := range rows {
		switch row.Status {
		case model.ReferralStatusPending:
			counts.Pending = row.N
		case model.ReferralStatusVerified:
			counts.Verified = row.N
		case model.ReferralStatusRejected:
			counts.Rejected = row.N
		}
	}
	return counts, nil
}

func (r *pgReferralRepository) ListByReferrer(ctx context.Context, referrerID string, limit, offset int) ([]model.Referral, error) {
	var referrals []model.Referral
	err := r.db.WithContext(ctx).
		Where("referrer_id = ?", referrerID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&referrals).Error
	return referrals, err
}

func (r *pgReferralRepository) List(ctx context.Context, limit, offset int) ([]model.Referral, error) {
	var referrals []model.Referral
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&referrals).Error
	return referrals, err
}
