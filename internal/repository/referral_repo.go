package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"cashpoints/referralhub/internal/model"
)

// StatusCounts holds per-status referral counts for one referrer.
type StatusCounts struct {
	Pending  int64 `json:"pending"`
	Verified int64 `json:"verified"`
	Rejected int64 `json:"rejected"`
}

// ReferralRepository mutates referral records only through field-scoped
// transition writes. Whole-struct saves are deliberately absent: a caller
// holding a stale read must never be able to overwrite fields another
// request advanced concurrently.
type ReferralRepository interface {
	// Create inserts a new referral record. The referred_id unique index
	// makes this the atomic arbiter of "first attribution wins": the loser
	// of a concurrent insert race gets gorm.ErrDuplicatedKey.
	Create(ctx context.Context, referral *model.Referral) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Referral, error)
	GetByReferredID(ctx context.Context, referredID string) (*model.Referral, error)
	// MarkVerified promotes a pending referral to verified and records the
	// settled bonus. Conditional on pending status.
	MarkVerified(ctx context.Context, id uuid.UUID, bonus int64) error
	// Reactivate flips is_active back on and clears leave_at, touching
	// nothing else: not the status, not the counters, not the cooldown
	// clock.
	Reactivate(ctx context.Context, id uuid.UUID) error
	// TransitionRejoin applies the rejoin transition keyed on the
	// last_join_at value the caller observed. Of N concurrent replays of
	// the same cooled-down event exactly one advances the clock and
	// returns true; the rest return false and are handled as in-cooldown
	// duplicates. A positive reward advances rejoin_count and bonus_amount
	// in the same statement.
	TransitionRejoin(ctx context.Context, id uuid.UUID, observedJoinAt, joinAt time.Time, reward int64) (bool, error)
	// RevertRejoin restores the pre-rejoin snapshot after a failed
	// settlement. Keyed on the joinAt the transition wrote, so a newer
	// transition is never clobbered.
	RevertRejoin(ctx context.Context, id uuid.UUID, joinAt time.Time, prev *model.Referral) error
	MarkLeft(ctx context.Context, id uuid.UUID, leaveAt time.Time) error
	MarkRejected(ctx context.Context, id uuid.UUID) error
	// Delete unwinds an attribution whose settlement failed in the same
	// request. It is never used on settled records.
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context, referrerID string) (*StatusCounts, error)
	ListByReferrer(ctx context.Context, referrerID string, limit, offset int) ([]model.Referral, error)
	List(ctx context.Context, limit, offset int) ([]model.Referral, error)
}
