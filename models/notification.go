package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification types
const (
	NotificationTypeNewMessage = "NEW_MESSAGE"
	NotificationTypeCaseStatus = "CASE_STATUS"
	NotificationTypeAssignment = "ASSIGNMENT"
	NotificationTypeSystem     = "SYSTEM"
)

type Notification struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Targeting
	MasjidID string  `gorm:"type:uuid;not null;index" json:"masjid_id"`
	UserID   *string `gorm:"type:uuid;index" json:"user_id,omitempty"` // null = all masjid users

	// Context
	ApplicantID    *string `gorm:"type:uuid" json:"applicant_id,omitempty"`
	ConversationID *string `json:"conversation_id,omitempty"`

	// Content
	Type    string `gorm:"not null" json:"type"`
	Title   string `gorm:"not null" json:"title"`
	Message string `gorm:"type:text" json:"message"`
	LinkURL string `json:"link_url,omitempty"` // e.g., "/conversations/{conversation_id}"

	// Read tracking
	ReadAt *time.Time `json:"read_at,omitempty"`

	// Relationships
	Masjid    Masjid     `gorm:"foreignKey:MasjidID" json:"-"`
	User      *User      `gorm:"foreignKey:UserID" json:"-"`
	Applicant *Applicant `gorm:"foreignKey:ApplicantID" json:"applicant,omitempty"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

func (Notification) TableName() string {
	return "notifications"
}
