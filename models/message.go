package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message type constants
const (
	MessageTypeText   = "text"
	MessageTypeSystem = "system"
)

// Message belongs to exactly one conversation through the natural string key.
// Ordering inside a conversation is by CreatedAt ascending; there is no
// sequence number, so equal timestamps have undefined relative order.
type Message struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_messages_conv_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ConversationID string  `gorm:"not null;index:idx_messages_conv_created,priority:1" json:"conversation_id"`
	CaseID         *string `json:"case_id,omitempty"`
	MasjidID       string  `gorm:"type:uuid;not null;index" json:"masjid_id"`

	// Sender identity, denormalized so the thread reads correctly even after
	// the sender record changes
	SenderID    string `gorm:"type:uuid;not null;index" json:"sender_id"`
	SenderEmail string `gorm:"not null" json:"sender_email"`
	SenderName  string `gorm:"not null" json:"sender_name"`
	SenderRole  string `gorm:"not null" json:"sender_role"`

	Body        string `gorm:"type:text;not null" json:"body"`
	MessageType string `gorm:"not null;default:text" json:"message_type"`

	RecipientIDs    []string `gorm:"serializer:json" json:"recipient_ids,omitempty"`
	RecipientEmails []string `gorm:"serializer:json" json:"recipient_emails,omitempty"`

	IsDeleted bool `gorm:"not null;default:false" json:"is_deleted"`

	// Relationships
	Attachments []CaseDocument `gorm:"foreignKey:MessageID" json:"attachments,omitempty"`
	ReadBy      []MessageRead  `gorm:"foreignKey:MessageID" json:"read_by,omitempty"`
}

// BeforeCreate hook to generate UUID
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.MessageType == "" {
		m.MessageType = MessageTypeText
	}
	return nil
}

// Preview returns the truncated body used for conversation summaries
func (m *Message) Preview() string {
	runes := []rune(m.Body)
	if len(runes) <= LastMessagePreviewLen {
		return m.Body
	}
	return string(runes[:LastMessagePreviewLen])
}

// IsReadBy reports whether userID has a read receipt on this message
func (m *Message) IsReadBy(userID string) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// TableName specifies the table name for Message model
func (Message) TableName() string {
	return "messages"
}

// MessageRead is a per-user read receipt. The sender's receipt is written
// together with the message itself.
type MessageRead struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	MessageID string    `gorm:"type:uuid;not null;uniqueIndex:idx_message_reader" json:"message_id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_message_reader;index" json:"user_id"`
	ReadAt    time.Time `gorm:"not null" json:"read_at"`
}

// BeforeCreate hook to generate UUID
func (r *MessageRead) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for MessageRead model
func (MessageRead) TableName() string {
	return "message_reads"
}
