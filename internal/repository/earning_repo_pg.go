package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"cashpoints/referralhub/internal/model"
)

type pgEarningRepository struct {
	db *gorm.DB
}

func NewPGEarningRepository(db *gorm.DB) EarningRepository {
	return &pgEarningRepository{db: db}
}

func (r *pgEarningRepository) Insert(ctx context.Context, earning *model.Earning) error {
	return r.db.WithContext(ctx).Create(earning).Error
}

func (r *pgEarningRepository) SumByUser(ctx context.Context, userID string) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&model.Earning{}).
		Select("coalesce(sum(amount), 0)").
		Where("user_id = ?", userID).
		Scan(&sum).Error
	return sum, err
}

func (r *pgEarningRepository) SumByUserSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&model.Earning{}).
		Select("coalesce(sum(amount), 0)").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Scan(&sum).Error
	return sum, err
}

func (r *pgEarningRepository) SumByUserPerKind(ctx context.Context, userID string) (map[model.EarningKind]int64, error) {
	rows := []struct {
		Kind model.EarningKind
		Sum  int64
	}{}
	err := r.db.WithContext(ctx).
		Model(&model.Earning{}).
		Select("kind, coalesce(sum(amount), 0) as sum").
		Where("user_id = ?", userID).
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	sums := make(map[model.EarningKind]int64, len(rows))
	for _, row := range rows {
		sums[row.Kind] = row.Sum
	}
	return sums, nil
}

func (r *pgEarningRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Earning, error) {
	var earnings []model.Earning
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&earnings).Error
	return earnings, err
}
