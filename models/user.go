package models

import (
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Staff role constants. Roles form a closed set; anything else arriving from
// tokens or imports is coerced to caseworker at the boundary.
const (
	RoleAdmin      = "admin"
	RoleCaseworker = "caseworker"
	RoleApprover   = "approver"
	RoleTreasurer  = "treasurer"
	// RoleApplicant is never stored on a User row; it exists only for
	// conversation participant entries belonging to the applicant.
	RoleApplicant = "applicant"
)

// StaffRoles lists every role a User row may carry
var StaffRoles = []string{RoleAdmin, RoleCaseworker, RoleApprover, RoleTreasurer}

// IsValidStaffRole reports whether role belongs to the closed staff enum
func IsValidStaffRole(role string) bool {
	for _, r := range StaffRoles {
		if r == role {
			return true
		}
	}
	return false
}

// NormalizeStaffRole coerces unknown role strings to caseworker.
// The coercion is logged so drifted data can be traced back to its source.
func NormalizeStaffRole(role string) string {
	if IsValidStaffRole(role) {
		return role
	}
	log.Printf("[ROLE] Unrecognized staff role %q coerced to %q", role, RoleCaseworker)
	return RoleCaseworker
}

type User struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name          string     `gorm:"not null" json:"name"`
	Email         string     `gorm:"uniqueIndex;not null" json:"email"`
	InternalEmail string     `json:"internal_email,omitempty"`
	Password      string     `gorm:"not null" json:"-"`
	MasjidID      *string    `gorm:"type:uuid;index" json:"masjid_id"` // Nullable - user may not have masjid yet
	Role          string     `gorm:"not null;default:caseworker" json:"role"`
	IsActive      bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt   *time.Time `json:"last_login_at"`

	// Relationships
	Masjid *Masjid `gorm:"foreignKey:MasjidID" json:"masjid,omitempty"`
}

// BeforeCreate hook to generate UUID and pin the role to the closed enum
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.Role = NormalizeStaffRole(u.Role)
	return nil
}

// HasMasjid checks if the user has a masjid assigned
func (u *User) HasMasjid() bool {
	return u.MasjidID != nil && *u.MasjidID != ""
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}
