package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// LastMessagePreviewLen bounds the denormalized preview stored on the conversation
	LastMessagePreviewLen = 100
)

// Conversation is a message thread, either bound to a case or an ad hoc staff
// thread. ConversationID is the natural string key every other row references;
// messages and participants never reference the store id.
type Conversation struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Natural key: conv-<case number> for case-bound threads, conv-<uuid> otherwise
	ConversationID string `gorm:"uniqueIndex;not null" json:"conversation_id"`

	// Case reference by human-facing case number, nullable for staff-only threads
	CaseID *string `gorm:"uniqueIndex" json:"case_id,omitempty"`

	// Masjid relationship (for scoping)
	MasjidID string `gorm:"type:uuid;not null;index" json:"masjid_id"`

	Title     string `gorm:"not null" json:"title"`
	CreatedBy string `gorm:"not null" json:"created_by"`

	// Denormalized message summary, maintained on send
	MessageCount  int64      `gorm:"not null;default:0" json:"message_count"`
	LastMessageAt *time.Time `gorm:"index:idx_conversations_last_message,sort:desc" json:"last_message_at,omitempty"`
	LastMessage   string     `json:"last_message,omitempty"`

	IsArchived bool `gorm:"not null;default:false" json:"is_archived"`

	// Relationships
	Participants []Participant `gorm:"foreignKey:ConversationID;references:ConversationID" json:"participants,omitempty"`
}

// BeforeCreate hook to generate UUIDs
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.ConversationID == "" {
		c.ConversationID = "conv-" + uuid.New().String()
	}
	return nil
}

// ConversationKeyForCase derives the deterministic thread key for a case number
func ConversationKeyForCase(caseID string) string {
	return "conv-" + caseID
}

// IsCaseBound reports whether this thread is tied to a case
func (c *Conversation) IsCaseBound() bool {
	return c.CaseID != nil && *c.CaseID != ""
}

// Participant returns the entry for userID, or nil when absent
func (c *Conversation) Participant(userID string) *Participant {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			return &c.Participants[i]
		}
	}
	return nil
}

// HasParticipant reports whether userID is a member of this conversation
func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participant(userID) != nil
}

// TableName specifies the table name for Conversation model
func (Conversation) TableName() string {
	return "conversations"
}

// Participant is a role-tagged member of a conversation with an individual
// read cursor. LastReadAt only ever moves forward.
type Participant struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ConversationID string `gorm:"not null;uniqueIndex:idx_conv_participant" json:"conversation_id"`
	UserID         string `gorm:"type:uuid;not null;uniqueIndex:idx_conv_participant;index" json:"user_id"`

	Email         string `gorm:"not null" json:"email"`
	InternalEmail string `json:"internal_email,omitempty"`
	Name          string `gorm:"not null" json:"name"`
	// Role is one of the closed enum; unknown staff roles are coerced to
	// caseworker before the row is written
	Role string `gorm:"not null" json:"role"`

	JoinedAt   time.Time `gorm:"not null" json:"joined_at"`
	LastReadAt time.Time `gorm:"not null" json:"last_read_at"`
	IsActive   bool      `gorm:"not null;default:true" json:"is_active"`
}

// BeforeCreate hook to generate UUID
func (p *Participant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// IsStaff reports whether this participant entry belongs to a staff member
func (p *Participant) IsStaff() bool {
	return p.Role != RoleApplicant
}

// TableName specifies the table name for Participant model
func (Participant) TableName() string {
	return "conversation_participants"
}
