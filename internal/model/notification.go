package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotificationKindDuplicateJoin       NotificationKind = "duplicate_join"
	NotificationKindAttributionConflict NotificationKind = "attribution_conflict"
	NotificationKindLevelUp             NotificationKind = "level_up"
)

// Notification is written by this service and consumed by the delivery
// layer, which is a separate system. Inserts are fire-and-forget.
type Notification struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID     string           `gorm:"type:varchar(64);index;not null" json:"user_id"`
	Kind       NotificationKind `gorm:"type:varchar(32);not null" json:"kind"`
	Title      string           `gorm:"type:varchar(128);not null" json:"title"`
	Body       string           `gorm:"type:text" json:"body"`
	ReferralID *uuid.UUID       `gorm:"type:uuid" json:"referral_id,omitempty"`
	Read       bool             `gorm:"not null;default:false" json:"read"`
	CreatedAt  time.Time        `json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
