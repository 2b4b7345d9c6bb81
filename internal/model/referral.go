package model

import (
	"time"

	"github.com/google/uuid"
)

type ReferralStatus string

const (
	ReferralStatusPending  ReferralStatus = "pending"
	ReferralStatusVerified ReferralStatus = "verified"
	ReferralStatusRejected ReferralStatus = "rejected"
)

// Referral is the single attribution record for a referred user.
// The unique index on ReferredID is what closes the concurrent
// check-then-insert race: the store, not the application, enforces
// that at most one record exists per referred user.
type Referral struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ReferrerID   string         `gorm:"type:varchar(64);index;not null" json:"referrer_id"`
	ReferredID   string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"referred_id"`
	ReferralCode string         `gorm:"type:varchar(64)" json:"referral_code,omitempty"`
	Status       ReferralStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	BonusAmount  int64          `gorm:"not null;default:0" json:"bonus_amount"`
	RejoinCount  int            `gorm:"not null;default:0" json:"rejoin_count"`
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`
	LastJoinAt   time.Time      `gorm:"not null" json:"last_join_at"`
	LastRejoinAt *time.Time     `json:"last_rejoin_at,omitempty"`
	LeaveAt      *time.Time     `json:"leave_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (Referral) TableName() string { return "referrals" }
