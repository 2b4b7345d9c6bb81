package model

import "gorm.io/gorm"

// AutoMigrate runs GORM auto-migration for all models and creates custom indexes.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Referrer{},
		&Referral{},
		&Earning{},
		&Notification{},
	); err != nil {
		return err
	}

	// Leaderboard ordering: verified-referral count descending, referrer id
	// ascending as the deterministic tie-break.
	return db.Exec(
		"CREATE INDEX IF NOT EXISTS idx_referrers_leaderboard " +
			"ON referrers (total_verified_referrals DESC, id ASC)",
	).Error
}
