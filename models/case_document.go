package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CaseDocument represents a stored file belonging to a case or a message
type CaseDocument struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Masjid relationship (for scoping)
	MasjidID string `gorm:"type:uuid;not null;index" json:"masjid_id"`
	Masjid   Masjid `gorm:"foreignKey:MasjidID" json:"-"`

	// Relationships - can belong to either an Applicant case OR a Message
	ApplicantID *string    `gorm:"type:uuid;index" json:"applicant_id,omitempty"`
	Applicant   *Applicant `gorm:"foreignKey:ApplicantID" json:"-"`

	MessageID *string `gorm:"type:uuid;index" json:"message_id,omitempty"`

	// File metadata
	FileName         string `gorm:"not null" json:"file_name"`
	FileOriginalName string `gorm:"not null" json:"file_original_name"`
	StorageKey       string `gorm:"not null" json:"-"` // Not exposed in JSON for security
	FileSize         int64  `gorm:"not null" json:"file_size"`
	MimeType         string `json:"mime_type,omitempty"`
	URL              string `json:"url,omitempty"`

	// Upload tracking
	UploadedByID *string `gorm:"type:uuid" json:"uploaded_by_id,omitempty"`
	UploadedBy   *User   `gorm:"foreignKey:UploadedByID" json:"uploaded_by,omitempty"`
}

// BeforeCreate hook to generate UUID and the download URL. The URL points at
// the authenticated download endpoint, never at the storage backend.
func (d *CaseDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.URL == "" {
		d.URL = d.GetDownloadURL()
	}
	return nil
}

// GetDownloadURL returns the API path a caller downloads this document from
func (d *CaseDocument) GetDownloadURL() string {
	return "/api/documents/" + d.ID
}

// TableName specifies the table name for CaseDocument model
func (CaseDocument) TableName() string {
	return "case_documents"
}
