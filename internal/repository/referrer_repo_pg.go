package repository

import (
	"context"

	"gorm.io/gorm"

	"cashpoints/referralhub/internal/model"
)

type pgReferrerRepository struct {
	db *gorm.DB
}

func NewPGReferrerRepository(db *gorm.DB) ReferrerRepository {
	return &pgReferrerRepository{db: db}
}

func (r *pgReferrerRepository) Create(ctx context.Context, referrer *model.Referrer) error {
	return r.db.WithContext(ctx).Create(referrer).Error
}

func (r *pgReferrerRepository) GetByID(ctx context.Context, id string) (*model.Referrer, error) {
	var referrer model.Referrer
	if err := r.db.WithContext(ctx).First(&referrer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &referrer, nil
}

func (r *pgReferrerRepository) IncrementBalance(ctx context.Context, id string, delta int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Referrer{}).
		Where("id = ?", id).
		UpdateColumn("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *pgReferrerRepository) IncrementVerifiedReferrals(ctx context.Context, id string) (int64, error) {
	var total *int64
	err := r.db.WithContext(ctx).Raw(
		"UPDATE referrers SET total_verified_referrals = total_verified_referrals + 1, "+
			"updated_at = now() WHERE id = ? RETURNING total_verified_referrals",
		id,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, gorm.ErrRecordNotFound
	}
	return *total, nil
}

func (r *pgReferrerRepository) PromoteLevel(ctx context.Context, id string, level int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Referrer{}).
		Where("id = ? AND level < ?", id, level).
		UpdateColumn("level", level)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *pgReferrerRepository) TopByVerifiedReferrals(ctx context.Context, limit int) ([]model.Referrer, error) {
	var referrers []model.Referrer
	err := r.db.WithContext(ctx).
		Order("total_verified_referrals DESC, id ASC").
		Limit(limit).
		Find(&referrers).Error
	return referrers, err
}
