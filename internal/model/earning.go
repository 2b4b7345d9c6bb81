package model

import (
	"time"

	"github.com/google/uuid"
)

type EarningKind string

const (
	EarningKindReferralBonus EarningKind = "referral_bonus"
	EarningKindLevelBonus    EarningKind = "level_bonus"
)

// Earning is an append-only ledger entry. Rows are inserted exactly once
// per settlement and never updated or deleted.
type Earning struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID      string      `gorm:"type:varchar(64);index;not null" json:"user_id"`
	Amount      int64       `gorm:"not null" json:"amount"`
	Kind        EarningKind `gorm:"type:varchar(32);index;not null" json:"kind"`
	Description string      `gorm:"type:text" json:"description"`
	ReferralID  *uuid.UUID  `gorm:"type:uuid;index" json:"referral_id,omitempty"`
	CreatedAt   time.Time   `gorm:"index" json:"created_at"`
}

func (Earning) TableName() string { return "earnings" }
