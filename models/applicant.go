package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Applicant status constants
const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

// Applicant represents a zakat aid request (the "case"). The human-facing
// case number lives in CaseID; the store id in ID.
type Applicant struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Masjid relationship
	MasjidID string `gorm:"type:uuid;not null;index:idx_applicant_masjid_status" json:"masjid_id"`
	Masjid   Masjid `gorm:"foreignKey:MasjidID" json:"masjid,omitempty"`

	// Case identification
	CaseID string `gorm:"not null;uniqueIndex" json:"case_id"`

	// Applicant contact info
	Name    string `gorm:"not null" json:"name"`
	Email   string `gorm:"not null;index" json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`

	// Financial situation
	MonthlyIncome   float64 `json:"monthly_income"`
	MonthlyExpenses float64 `json:"monthly_expenses"`
	HouseholdSize   int     `json:"household_size"`
	AmountRequested float64 `json:"amount_requested"`
	Reason          string  `gorm:"type:text;not null" json:"reason"`

	// Status and lifecycle - status mutated only by staff
	Status          string     `gorm:"not null;default:Pending;index:idx_applicant_masjid_status" json:"status"`
	StatusChangedAt *time.Time `json:"status_changed_at,omitempty"`
	StatusChangedBy *string    `gorm:"type:uuid" json:"status_changed_by,omitempty"`

	// Assignment
	AssignedToID *string `gorm:"type:uuid" json:"assigned_to_id,omitempty"`
	AssignedTo   *User   `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`

	// Relationships
	Documents []CaseDocument `gorm:"foreignKey:ApplicantID" json:"documents,omitempty"`
}

// BeforeCreate hook to generate UUID and case number
func (a *Applicant) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CaseID == "" {
		a.CaseID = generateCaseID(tx)
	}
	return nil
}

// generateCaseID builds a human-facing case number like ZKT-2026-000042.
// The sequence is per-year; a uniqueness loop guards against concurrent inserts.
func generateCaseID(tx *gorm.DB) string {
	year := time.Now().Year()
	var count int64
	tx.Model(&Applicant{}).Where("case_id LIKE ?", fmt.Sprintf("ZKT-%d-%%", year)).Count(&count)

	seq := count + 1
	for {
		caseID := fmt.Sprintf("ZKT-%d-%06d", year, seq)
		var exists int64
		tx.Model(&Applicant{}).Where("case_id = ?", caseID).Count(&exists)
		if exists == 0 {
			return caseID
		}
		seq++
	}
}

// IsPending checks if the case is awaiting review
func (a *Applicant) IsPending() bool {
	return a.Status == StatusPending
}

// IsApproved checks if the case has been approved
func (a *Applicant) IsApproved() bool {
	return a.Status == StatusApproved
}

// IsValidStatus checks if the status is valid
func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// TableName specifies the table name for Applicant model
func (Applicant) TableName() string {
	return "applicants"
}
