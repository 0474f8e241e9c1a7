package services

import (
	"fmt"
	"log"
	"mime/multipart"
	"strings"
	"time"

	"zakat_flow_go/config"
	"zakat_flow_go/models"

	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

var caseTextPolicy = bluemonday.StrictPolicy()

type CaseService struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewCaseService(db *gorm.DB, cfg *config.Config) *CaseService {
	return &CaseService{DB: db, Cfg: cfg}
}

// ApplicationInput is the public submission payload
type ApplicationInput struct {
	Name            string
	Email           string
	Phone           string
	Address         string
	MonthlyIncome   float64
	MonthlyExpenses float64
	HouseholdSize   int
	AmountRequested float64
	Reason          string
}

// SubmitApplication creates a new zakat case for a masjid. Document upload
// failures are partial-failure-tolerant: the case is still created and the
// failed filenames are returned.
func (s *CaseService) SubmitApplication(masjid *models.Masjid, input ApplicationInput, documents []*multipart.FileHeader) (*models.Applicant, []string, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	input.Reason = strings.TrimSpace(caseTextPolicy.Sanitize(input.Reason))

	if input.Name == "" || input.Email == "" || input.Reason == "" {
		return nil, nil, ErrInvalidArgument
	}

	applicant := &models.Applicant{
		MasjidID:        masjid.ID,
		Name:            input.Name,
		Email:           input.Email,
		Phone:           strings.TrimSpace(input.Phone),
		Address:         strings.TrimSpace(input.Address),
		MonthlyIncome:   input.MonthlyIncome,
		MonthlyExpenses: input.MonthlyExpenses,
		HouseholdSize:   input.HouseholdSize,
		AmountRequested: input.AmountRequested,
		Reason:          input.Reason,
		Status:          models.StatusPending,
	}

	if err := s.DB.Create(applicant).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create application: %w", err)
	}

	var failed []string
	for _, fh := range documents {
		if err := ValidateAttachment(fh); err != nil {
			log.Printf("[CASE] Rejected document %s for %s: %v", fh.Filename, applicant.CaseID, err)
			failed = append(failed, fh.Filename)
			continue
		}
		result, err := UploadAttachment(fh, masjid.ID)
		if err != nil {
			log.Printf("[CASE] Failed to store document %s for %s: %v", fh.Filename, applicant.CaseID, err)
			failed = append(failed, fh.Filename)
			continue
		}
		doc := models.CaseDocument{
			MasjidID:         masjid.ID,
			ApplicantID:      &applicant.ID,
			FileName:         result.FileName,
			FileOriginalName: result.FileOriginalName,
			StorageKey:       result.Key,
			FileSize:         result.FileSize,
			MimeType:         result.MimeType,
		}
		if err := s.DB.Create(&doc).Error; err != nil {
			log.Printf("[CASE] Failed to record document %s for %s: %v", fh.Filename, applicant.CaseID, err)
			failed = append(failed, fh.Filename)
			continue
		}
		applicant.Documents = append(applicant.Documents, doc)
	}

	return applicant, failed, nil
}

// List returns a masjid's cases, newest first, optionally filtered by status
func (s *CaseService) List(identity Identity, status string, page, limit int) ([]models.Applicant, int64, error) {
	if identity.IsApplicant {
		return nil, 0, ErrForbidden
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	q := s.DB.Model(&models.Applicant{})
	if !identity.IsSuperRole() {
		q = q.Where("masjid_id = ?", identity.MasjidID)
	}
	if status != "" {
		if !models.IsValidStatus(status) {
			return nil, 0, ErrInvalidArgument
		}
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count cases: %w", err)
	}

	var cases []models.Applicant
	err := q.Preload("Documents").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&cases).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cases: %w", err)
	}
	return cases, total, nil
}

// Get loads a case by store id or case number and authorizes the caller
func (s *CaseService) Get(caseRef string, identity Identity) (*models.Applicant, error) {
	applicant, err := ResolveCase(s.DB, caseRef)
	if err != nil {
		return nil, err
	}
	if identity.IsApplicant {
		if identity.ID != applicant.ID {
			return nil, ErrForbidden
		}
	} else if !identity.IsSuperRole() && applicant.MasjidID != identity.MasjidID {
		return nil, ErrForbidden
	}
	if err := s.DB.Preload("Documents").Where("id = ?", applicant.ID).First(applicant).Error; err != nil {
		return nil, fmt.Errorf("failed to load case documents: %w", err)
	}
	return applicant, nil
}

// UpdateStatus moves a case between Pending/Approved/Rejected. Staff only;
// the transition is audit-logged and the applicant is emailed best-effort.
func (s *CaseService) UpdateStatus(caseRef, status string, identity Identity, audit AuditContext) (*models.Applicant, error) {
	if identity.IsApplicant {
		return nil, ErrForbidden
	}
	if !models.IsValidStatus(status) {
		return nil, ErrInvalidArgument
	}

	applicant, err := s.Get(caseRef, identity)
	if err != nil {
		return nil, err
	}

	oldStatus := applicant.Status
	now := time.Now()
	userID := identity.ID
	updates := map[string]interface{}{
		"status":            status,
		"status_changed_at": now,
		"status_changed_by": userID,
	}
	if err := s.DB.Model(applicant).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update case status: %w", err)
	}
	applicant.Status = status
	applicant.StatusChangedAt = &now
	applicant.StatusChangedBy = &userID

	LogAuditEvent(s.DB, audit, models.AuditActionUpdate, "Applicant", applicant.ID, applicant.CaseID,
		fmt.Sprintf("Status changed from %s to %s", oldStatus, status),
		map[string]string{"status": oldStatus},
		map[string]string{"status": status})

	go func() {
		email := BuildCaseStatusEmail(s.Cfg, applicant.Email, applicant.Name, applicant.CaseID, status)
		if err := SendEmail(s.Cfg, email); err != nil {
			log.Printf("[CASE] Failed to send status email for %s: %v", applicant.CaseID, err)
		}
	}()

	return applicant, nil
}

// Assign hands the case to a staff member and notifies them
func (s *CaseService) Assign(caseRef, assigneeID string, identity Identity) (*models.Applicant, error) {
	if identity.IsApplicant {
		return nil, ErrForbidden
	}

	applicant, err := s.Get(caseRef, identity)
	if err != nil {
		return nil, err
	}

	var assignee models.User
	if err := s.DB.Where("id = ? AND is_active = ?", assigneeID, true).First(&assignee).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve assignee: %w", err)
	}
	if assignee.MasjidID == nil || *assignee.MasjidID != applicant.MasjidID {
		return nil, ErrInvalidArgument
	}

	if err := s.DB.Model(applicant).Update("assigned_to_id", assignee.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to assign case: %w", err)
	}
	applicant.AssignedToID = &assignee.ID

	assigneeUserID := assignee.ID
	applicantID := applicant.ID
	notification := &models.Notification{
		MasjidID:    applicant.MasjidID,
		UserID:      &assigneeUserID,
		ApplicantID: &applicantID,
		Type:        models.NotificationTypeAssignment,
		Title:       fmt.Sprintf("Case %s assigned to you", applicant.CaseID),
		Message:     applicant.Name,
		LinkURL:     "/cases/" + applicant.CaseID,
	}
	if err := NewNotificationService(s.DB).CreateNotification(notification); err != nil {
		log.Printf("[CASE] Failed to create assignment notification: %v", err)
	}

	go func() {
		email := BuildAssignmentEmail(s.Cfg, assignee.Email, assignee.Name, applicant.CaseID)
		if err := SendEmail(s.Cfg, email); err != nil {
			log.Printf("[CASE] Failed to send assignment email: %v", err)
		}
	}()

	return applicant, nil
}

// CascadeDeleteMasjid removes a masjid and everything scoped to it. This is
// the only path that hard-deletes conversations and messages.
func CascadeDeleteMasjid(db *gorm.DB, masjidID string) error {
	var storageKeys []string
	if err := db.Model(&models.CaseDocument{}).Where("masjid_id = ?", masjidID).
		Pluck("storage_key", &storageKeys).Error; err != nil {
		return fmt.Errorf("failed to collect document keys: %w", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var convKeys []string
		if err := tx.Model(&models.Conversation{}).Where("masjid_id = ?", masjidID).
			Pluck("conversation_id", &convKeys).Error; err != nil {
			return fmt.Errorf("failed to collect conversations: %w", err)
		}

		if len(convKeys) > 0 {
			var msgIDs []string
			if err := tx.Model(&models.Message{}).Where("conversation_id IN ?", convKeys).
				Pluck("id", &msgIDs).Error; err != nil {
				return fmt.Errorf("failed to collect messages: %w", err)
			}
			if len(msgIDs) > 0 {
				if err := tx.Unscoped().Where("message_id IN ?", msgIDs).Delete(&models.MessageRead{}).Error; err != nil {
					return fmt.Errorf("failed to delete read receipts: %w", err)
				}
			}
			if err := tx.Unscoped().Where("conversation_id IN ?", convKeys).Delete(&models.Message{}).Error; err != nil {
				return fmt.Errorf("failed to delete messages: %w", err)
			}
			if err := tx.Unscoped().Where("conversation_id IN ?", convKeys).Delete(&models.Participant{}).Error; err != nil {
				return fmt.Errorf("failed to delete participants: %w", err)
			}
		}

		for _, model := range []interface{}{
			&models.Conversation{},
			&models.Notification{},
			&models.CaseDocument{},
			&models.Applicant{},
		} {
			if err := tx.Unscoped().Where("masjid_id = ?", masjidID).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to cascade delete: %w", err)
			}
		}
		if err := tx.Unscoped().Where("from_masjid_id = ? OR to_masjid_id = ?", masjidID, masjidID).
			Delete(&models.SharedProfile{}).Error; err != nil {
			return fmt.Errorf("failed to delete shares: %w", err)
		}
		// Detached staff must also be deactivated: an active admin without a
		// masjid would read as the cross-tenant operator account
		if err := tx.Model(&models.User{}).Where("masjid_id = ?", masjidID).
			Updates(map[string]interface{}{"masjid_id": nil, "is_active": false}).Error; err != nil {
			return fmt.Errorf("failed to detach users: %w", err)
		}
		if err := tx.Unscoped().Where("id = ?", masjidID).Delete(&models.Masjid{}).Error; err != nil {
			return fmt.Errorf("failed to delete masjid: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Stored blobs go after the rows; a failed blob delete only logs
	for _, key := range storageKeys {
		if err := DeleteAttachment(key); err != nil {
			log.Printf("[CASE] Failed to delete stored document %s: %v", key, err)
		}
	}
	return nil
}
