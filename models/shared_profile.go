package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SharedProfile permissions
const (
	SharePermissionReadOnly = "read_only"
)

// SharedProfile is a cross-masjid read-only grant exposing one case record to
// another masjid. Revocation flips IsActive; rows are never physically removed
// so the audit trail survives.
type SharedProfile struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Case being shared
	ApplicantID string    `gorm:"type:uuid;not null;index:idx_share_triple" json:"applicant_id"`
	Applicant   Applicant `gorm:"foreignKey:ApplicantID" json:"applicant,omitempty"`

	FromMasjidID string `gorm:"type:uuid;not null;index:idx_share_triple" json:"from_masjid_id"`
	ToMasjidID   string `gorm:"type:uuid;not null;index:idx_share_triple" json:"to_masjid_id"`

	SharedByID  string `gorm:"type:uuid;not null" json:"shared_by_id"`
	SharedBy    *User  `gorm:"foreignKey:SharedByID" json:"shared_by,omitempty"`
	Note        string `gorm:"type:text" json:"note"`
	Permissions string `gorm:"not null;default:read_only" json:"permissions"`

	IsActive bool       `gorm:"not null;default:true" json:"is_active"`
	ViewedAt *time.Time `json:"viewed_at,omitempty"`
	ViewedBy *string    `gorm:"type:uuid" json:"viewed_by,omitempty"`
}

// BeforeCreate hook to generate UUID
func (s *SharedProfile) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Permissions == "" {
		s.Permissions = SharePermissionReadOnly
	}
	return nil
}

// TableName specifies the table name for SharedProfile model
func (SharedProfile) TableName() string {
	return "shared_profiles"
}
