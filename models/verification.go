package models

import "gorm.io/gorm"

// VerificationEvent records a single paid provider verification for the audit
// trail. Addresses are stored only as truncated SHA-256 hashes.
type VerificationEvent struct {
	gorm.Model
	EmailHash  string `gorm:"not null;index;size:64" json:"email_hash"`
	Domain     string `gorm:"index" json:"domain"`
	Provider   string `gorm:"not null" json:"provider"`
	Status     string `gorm:"not null" json:"status"` // valid, invalid, catch_all, unknown, spamtrap, abuse, do_not_mail
	Source     string `gorm:"not null" json:"source"` // provider, cache, deduped_inflight
	DurationMs int64  `gorm:"default:0" json:"duration_ms"`
}

// ContactMessage records the outcome of a send-message attempt.
type ContactMessage struct {
	gorm.Model
	EmailHash string `gorm:"not null;index;size:64" json:"email_hash"`
	Accepted  bool   `gorm:"default:false" json:"accepted"`
	Reason    string `json:"reason"`
}
