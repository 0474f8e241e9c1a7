package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"zakat_flow_go/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10
	// MagicLinkTokenLength is the length of the emailed token in bytes (64 chars hex)
	MagicLinkTokenLength = 32
	// ApplicantTokenDuration bounds the bearer token handed out after a magic
	// link is redeemed
	ApplicantTokenDuration = 24 * time.Hour
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPassword verifies a password against a bcrypt hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// StaffClaims is the payload of a staff session token
type StaffClaims struct {
	UserID   string `json:"user_id"`
	MasjidID string `json:"masjid_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// ApplicantClaims is the payload of an applicant bearer token. It lives in a
// separate token domain from staff sessions: different secret, different TTL.
type ApplicantClaims struct {
	ApplicantID string `json:"applicant_id"`
	CaseID      string `json:"case_id"`
	MasjidID    string `json:"masjid_id"`
	jwt.RegisteredClaims
}

// GenerateStaffToken creates a signed session token for a staff user
func GenerateStaffToken(user *models.User, secret string, ttl time.Duration) (string, error) {
	masjidID := ""
	if user.MasjidID != nil {
		masjidID = *user.MasjidID
	}

	now := time.Now()
	claims := StaffClaims{
		UserID:   user.ID,
		MasjidID: masjidID,
		Role:     models.NormalizeStaffRole(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "zakatflow",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign staff token: %w", err)
	}
	return signed, nil
}

// ParseStaffToken validates a staff session token and extracts the claims
func ParseStaffToken(tokenString, secret string) (*StaffClaims, error) {
	claims := &StaffClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse staff token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid staff token")
	}
	return claims, nil
}

// GenerateApplicantToken creates a signed bearer token for an applicant
func GenerateApplicantToken(applicant *models.Applicant, secret string) (string, error) {
	now := time.Now()
	claims := ApplicantClaims{
		ApplicantID: applicant.ID,
		CaseID:      applicant.CaseID,
		MasjidID:    applicant.MasjidID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ApplicantTokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "zakatflow",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign applicant token: %w", err)
	}
	return signed, nil
}

// ParseApplicantToken validates an applicant bearer token and extracts the claims
func ParseApplicantToken(tokenString, secret string) (*ApplicantClaims, error) {
	claims := &ApplicantClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse applicant token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid applicant token")
	}
	return claims, nil
}

// GenerateMagicLinkToken generates a cryptographically secure random token
func GenerateMagicLinkToken() (string, error) {
	bytes := make([]byte, MagicLinkTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate magic link token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// CreateMagicLink creates a one-time token row for an applicant
func CreateMagicLink(db *gorm.DB, applicantID string, expiry time.Duration) (*models.MagicLinkToken, error) {
	token, err := GenerateMagicLinkToken()
	if err != nil {
		return nil, err
	}

	link := &models.MagicLinkToken{
		ApplicantID: applicantID,
		Token:       token,
		ExpiresAt:   time.Now().Add(expiry),
	}

	if err := db.Create(link).Error; err != nil {
		return nil, fmt.Errorf("failed to create magic link token: %w", err)
	}
	return link, nil
}

// RedeemMagicLink validates a one-time token and marks it used
func RedeemMagicLink(db *gorm.DB, token string) (*models.Applicant, error) {
	var link models.MagicLinkToken
	err := db.Preload("Applicant").Where("token = ?", token).First(&link).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("magic link not found")
		}
		return nil, fmt.Errorf("failed to look up magic link: %w", err)
	}

	if link.IsExpired() {
		db.Delete(&link)
		return nil, fmt.Errorf("magic link expired")
	}
	if link.IsUsed() {
		return nil, fmt.Errorf("magic link already used")
	}

	now := time.Now()
	if err := db.Model(&link).Update("used_at", now).Error; err != nil {
		return nil, fmt.Errorf("failed to mark magic link used: %w", err)
	}

	applicant := link.Applicant
	return &applicant, nil
}

// CleanupExpiredMagicLinks removes expired magic link tokens
func CleanupExpiredMagicLinks(db *gorm.DB) error {
	result := db.Where("expires_at < ?", time.Now()).Delete(&models.MagicLinkToken{})
	if result.Error != nil {
		return fmt.Errorf("failed to cleanup expired magic links: %w", result.Error)
	}
	return nil
}
