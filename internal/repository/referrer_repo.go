package repository

import (
	"context"

	"cashpoints/referralhub/internal/model"
)

type ReferrerRepository interface {
	Create(ctx context.Context, referrer *model.Referrer) error
	GetByID(ctx context.Context, id string) (*model.Referrer, error)
	// IncrementBalance applies the delta with a single atomic UPDATE; it is
	// the only balance writer. Returns gorm.ErrRecordNotFound when the
	// referrer does not exist.
	IncrementBalance(ctx context.Context, id string, delta int64) error
	// IncrementVerifiedReferrals bumps the counter atomically and returns
	// the new total in the same statement, so concurrent settlements each
	// observe a distinct count.
	IncrementVerifiedReferrals(ctx context.Context, id string) (int64, error)
	// PromoteLevel sets the level only if it is strictly higher than the
	// stored one. The conditional write is what makes each threshold
	// crossing pay its bonus at most once.
	PromoteLevel(ctx context.Context, id string, level int) (bool, error)
	TopByVerifiedReferrals(ctx context.Context, limit int) ([]model.Referrer, error)
}
