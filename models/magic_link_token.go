package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MagicLinkToken is the one-time token emailed to an applicant. Verifying it
// exchanges the row for a short-lived applicant bearer token (JWT).
type MagicLinkToken struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ApplicantID string    `gorm:"type:uuid;not null;index" json:"applicant_id"`
	Applicant   Applicant `gorm:"foreignKey:ApplicantID" json:"-"`

	Token     string     `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time  `gorm:"not null;index" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

func (t *MagicLinkToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// IsExpired reports whether the token has passed its expiry
func (t *MagicLinkToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsUsed reports whether the token has already been redeemed
func (t *MagicLinkToken) IsUsed() bool {
	return t.UsedAt != nil
}

func (MagicLinkToken) TableName() string {
	return "magic_link_tokens"
}
