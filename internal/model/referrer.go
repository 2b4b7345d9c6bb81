package model

import "time"

// Referrer is the per-user aggregate this service owns. Balance is written
// only through the ledger's atomic increment; Level only by the progression
// state machine. The ID is the opaque external user identifier.
type Referrer struct {
	ID                     string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	ReferralCode           string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"referral_code"`
	Balance                int64     `gorm:"not null;default:0" json:"balance"`
	Level                  int       `gorm:"not null;default:0" json:"level"`
	TotalVerifiedReferrals int64     `gorm:"not null;default:0" json:"total_verified_referrals"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func (Referrer) TableName() string { return "referrers" }
