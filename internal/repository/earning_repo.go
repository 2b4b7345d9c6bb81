package repository

import (
	"context"
	"time"

	"cashpoints/referralhub/internal/model"
)

type EarningRepository interface {
	// Insert appends one ledger row. Earnings are never updated or deleted.
	Insert(ctx context.Context, earning *model.Earning) error
	SumByUser(ctx context.Context, userID string) (int64, error)
	SumByUserSince(ctx context.Context, userID string, since time.Time) (int64, error)
	SumByUserPerKind(ctx context.Context, userID string) (map[model.EarningKind]int64, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Earning, error)
}
