package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Masjid struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name         string `gorm:"not null" json:"name"`
	Slug         string `gorm:"uniqueIndex;not null" json:"slug"`
	Country      string `gorm:"not null" json:"country"`
	Timezone     string `gorm:"not null;default:UTC" json:"timezone"`
	Address      string `json:"address"`
	City         string `json:"city"`
	Phone        string `json:"phone"`
	Description  string `gorm:"type:text" json:"description"`
	ContactEmail string `gorm:"not null" json:"contact_email"`
	NoreplyEmail string `json:"noreply_email"`

	// Relationships
	Users []User `gorm:"foreignKey:MasjidID" json:"-"`
}

// BeforeCreate hook to generate UUID and slug
func (m *Masjid) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Slug == "" {
		m.Slug = generateSlug(tx, m.Name)
	}
	return nil
}

// generateSlug creates a URL-friendly slug from the masjid name
func generateSlug(tx *gorm.DB, name string) string {
	// Convert to lowercase
	slug := strings.ToLower(name)

	// Replace spaces with hyphens
	slug = strings.ReplaceAll(slug, " ", "-")

	// Remove special characters (keep only alphanumeric and hyphens)
	reg := regexp.MustCompile(`[^a-z0-9-]+`)
	slug = reg.ReplaceAllString(slug, "")

	// Remove consecutive hyphens
	reg = regexp.MustCompile(`-+`)
	slug = reg.ReplaceAllString(slug, "-")

	// Trim hyphens from start and end
	slug = strings.Trim(slug, "-")

	// Limit to 50 characters
	if len(slug) > 50 {
		slug = slug[:50]
		slug = strings.TrimRight(slug, "-")
	}

	// Ensure uniqueness
	originalSlug := slug
	counter := 1
	for {
		var count int64
		tx.Model(&Masjid{}).Where("slug = ?", slug).Count(&count)
		if count == 0 {
			break
		}
		slug = originalSlug + "-" + strconv.Itoa(counter)
		counter++
	}

	return slug
}

// TableName specifies the table name for Masjid model
func (Masjid) TableName() string {
	return "masjids"
}
