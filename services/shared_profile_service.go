package services

import (
	"errors"
	"fmt"
	"time"

	"zakat_flow_go/models"

	"gorm.io/gorm"
)

type SharedProfileService struct {
	DB *gorm.DB
}

func NewSharedProfileService(db *gorm.DB) *SharedProfileService {
	return &SharedProfileService{DB: db}
}

// Share grants toMasjid read-only access to a case record. At most one active
// share may exist per (case, from, to) triple; a duplicate attempt is rejected
// with a conflict, not merged.
func (s *SharedProfileService) Share(caseRef, toMasjidID, note string, identity Identity) (*models.SharedProfile, error) {
	if identity.IsApplicant {
		return nil, ErrForbidden
	}

	applicant, err := ResolveCase(s.DB, caseRef)
	if err != nil {
		return nil, err
	}
	if !identity.IsSuperRole() && applicant.MasjidID != identity.MasjidID {
		return nil, ErrForbidden
	}
	if toMasjidID == "" || toMasjidID == applicant.MasjidID {
		return nil, ErrInvalidArgument
	}

	var target models.Masjid
	if err := s.DB.Where("id = ?", toMasjidID).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve target masjid: %w", err)
	}

	var active int64
	err = s.DB.Model(&models.SharedProfile{}).
		Where("applicant_id = ? AND from_masjid_id = ? AND to_masjid_id = ? AND is_active = ?",
			applicant.ID, applicant.MasjidID, toMasjidID, true).
		Count(&active).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check existing shares: %w", err)
	}
	if active > 0 {
		return nil, ErrConflict
	}

	share := &models.SharedProfile{
		ApplicantID:  applicant.ID,
		FromMasjidID: applicant.MasjidID,
		ToMasjidID:   toMasjidID,
		SharedByID:   identity.ID,
		Note:         note,
		Permissions:  models.SharePermissionReadOnly,
		IsActive:     true,
	}
	if err := s.DB.Create(share).Error; err != nil {
		return nil, fmt.Errorf("failed to create shared profile: %w", err)
	}
	return share, nil
}

// Revoke deactivates a share. Only an admin of the sharing masjid may revoke;
// the row is kept for the audit trail.
func (s *SharedProfileService) Revoke(shareID string, identity Identity) (*models.SharedProfile, error) {
	share, err := s.find(shareID)
	if err != nil {
		return nil, err
	}

	if identity.IsApplicant || identity.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	if !identity.IsSuperRole() && share.FromMasjidID != identity.MasjidID {
		return nil, ErrForbidden
	}

	if err := s.DB.Model(share).Update("is_active", false).Error; err != nil {
		return nil, fmt.Errorf("failed to revoke shared profile: %w", err)
	}
	share.IsActive = false
	return share, nil
}

// View reads a share either as an authenticated member of the receiving
// masjid or anonymously by opaque id (the unlisted-link model). Only
// authenticated views are recorded on the share.
func (s *SharedProfileService) View(shareID string, identity *Identity) (*models.SharedProfile, error) {
	share, err := s.find(shareID)
	if err != nil {
		return nil, err
	}
	if !share.IsActive {
		return nil, ErrNotFound
	}

	if err := s.DB.Preload("Documents").Where("id = ?", share.ApplicantID).First(&share.Applicant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load shared case: %w", err)
	}

	if identity != nil && identity.IsStaff() {
		if !identity.IsSuperRole() && identity.MasjidID != share.ToMasjidID && identity.MasjidID != share.FromMasjidID {
			return nil, ErrForbidden
		}
		if identity.MasjidID == share.ToMasjidID {
			now := time.Now()
			viewer := identity.ID
			s.DB.Model(share).Updates(map[string]interface{}{"viewed_at": now, "viewed_by": viewer})
			share.ViewedAt = &now
			share.ViewedBy = &viewer
		}
	}
	return share, nil
}

// ListForMasjid returns shares sent or received by a masjid
func (s *SharedProfileService) ListForMasjid(identity Identity) ([]models.SharedProfile, error) {
	if identity.IsApplicant {
		return nil, ErrForbidden
	}
	var shares []models.SharedProfile
	q := s.DB.Preload("Applicant").Order("created_at DESC")
	if !identity.IsSuperRole() {
		q = q.Where("from_masjid_id = ? OR to_masjid_id = ?", identity.MasjidID, identity.MasjidID)
	}
	if err := q.Find(&shares).Error; err != nil {
		return nil, fmt.Errorf("failed to list shared profiles: %w", err)
	}
	return shares, nil
}

func (s *SharedProfileService) find(shareID string) (*models.SharedProfile, error) {
	var share models.SharedProfile
	err := s.DB.Where("id = ?", shareID).First(&share).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load shared profile: %w", err)
	}
	return &share, nil
}
