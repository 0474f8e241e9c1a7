package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"zakat_flow_go/models"

	"gorm.io/gorm"
)

type ConversationService struct {
	DB *gorm.DB
}

func NewConversationService(db *gorm.DB) *ConversationService {
	return &ConversationService{DB: db}
}

// ConversationSummary pairs a conversation with the caller's unread count
type ConversationSummary struct {
	models.Conversation
	UnreadCount int64 `json:"unread_count"`
}

// ResolveCase finds an applicant by store id or by human-facing case number
func ResolveCase(db *gorm.DB, caseRef string) (*models.Applicant, error) {
	var applicant models.Applicant
	err := db.Where("id = ? OR case_id = ?", caseRef, caseRef).First(&applicant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve case %q: %w", caseRef, err)
	}
	return &applicant, nil
}

// GetOrCreate returns the single conversation bound to a case, creating it on
// first message-intent. Creation is idempotent: the thread is looked up by its
// natural key OR by case number before insert, and an insert race is resolved
// by re-reading the winning row.
func (s *ConversationService) GetOrCreate(caseRef string, identity Identity) (*models.Conversation, bool, error) {
	applicant, err := ResolveCase(s.DB, caseRef)
	if err != nil {
		return nil, false, err
	}

	if identity.IsApplicant && identity.ID != applicant.ID {
		return nil, false, ErrForbidden
	}
	if identity.IsStaff() && !identity.IsSuperRole() && identity.MasjidID != applicant.MasjidID {
		return nil, false, ErrForbidden
	}

	key := models.ConversationKeyForCase(applicant.CaseID)

	conv, err := s.findExisting(key, applicant.CaseID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	if conv != nil {
		if err := s.repairConversation(conv, key, applicant.MasjidID); err != nil {
			return nil, false, err
		}
		return conv, false, nil
	}

	roster, err := s.activeStaff(applicant.MasjidID)
	if err != nil {
		return nil, false, err
	}

	now := time.Now()
	caseID := applicant.CaseID
	conv = &models.Conversation{
		ConversationID: key,
		CaseID:         &caseID,
		MasjidID:       applicant.MasjidID,
		Title:          fmt.Sprintf("Case %s - %s", applicant.CaseID, applicant.Name),
		CreatedBy:      identity.ID,
		Participants:   buildParticipants(key, applicant, roster, identity, now),
	}

	created, err := s.insertOrFetchExisting(conv, key, applicant.CaseID)
	if err != nil {
		return nil, false, err
	}
	isNew := created == conv
	return created, isNew, nil
}

// CreateStaffThread creates an ad hoc thread between staff members, not bound
// to any case. The natural key is a generated opaque id.
func (s *ConversationService) CreateStaffThread(identity Identity, title string, memberIDs []string) (*models.Conversation, error) {
	if identity.IsApplicant {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(title) == "" {
		return nil, ErrInvalidArgument
	}

	var members []models.User
	if err := s.DB.Where("id IN ? AND is_active = ?", memberIDs, true).Find(&members).Error; err != nil {
		return nil, fmt.Errorf("failed to load staff members: %w", err)
	}

	now := time.Now()
	conv := &models.Conversation{
		MasjidID:  identity.MasjidID,
		Title:     strings.TrimSpace(title),
		CreatedBy: identity.ID,
	}

	// The natural key is assigned by the BeforeCreate hook; participants are
	// attached after so they carry it
	if err := s.DB.Create(conv).Error; err != nil {
		return nil, fmt.Errorf("failed to create staff thread: %w", err)
	}

	participants := []models.Participant{staffParticipant(conv.ConversationID, identity, now)}
	for _, m := range members {
		if m.ID == identity.ID {
			continue
		}
		participants = append(participants, models.Participant{
			ConversationID: conv.ConversationID,
			UserID:         m.ID,
			Email:          m.Email,
			InternalEmail:  m.InternalEmail,
			Name:           m.Name,
			Role:           models.NormalizeStaffRole(m.Role),
			JoinedAt:       now,
			LastReadAt:     time.Unix(0, 0),
			IsActive:       true,
		})
	}
	if err := s.DB.Create(&participants).Error; err != nil {
		return nil, fmt.Errorf("failed to add staff thread participants: %w", err)
	}
	conv.Participants = participants
	return conv, nil
}

// findExisting looks a conversation up by natural key OR by case number,
// covering rows created under an older key scheme
func (s *ConversationService) findExisting(key, caseID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.DB.Preload("Participants").
		Where("conversation_id = ? OR case_id = ?", key, caseID).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// repairConversation reconciles a found row: the canonical key is restored if
// it drifted, and staff hired after creation are backfilled into the
// participant list
func (s *ConversationService) repairConversation(conv *models.Conversation, key, masjidID string) error {
	if conv.ConversationID != key {
		// Key drift: a case-linked row exists under an older id scheme.
		// Participants and messages follow the stored key, so rewrite all three.
		oldKey := conv.ConversationID
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Conversation{}).Where("conversation_id = ?", oldKey).Update("conversation_id", key).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Participant{}).Where("conversation_id = ?", oldKey).Update("conversation_id", key).Error; err != nil {
				return err
			}
			return tx.Model(&models.Message{}).Where("conversation_id = ?", oldKey).Update("conversation_id", key).Error
		})
		if err != nil {
			return fmt.Errorf("failed to reconcile conversation key: %w", err)
		}
		conv.ConversationID = key
		for i := range conv.Participants {
			conv.Participants[i].ConversationID = key
		}
	}

	roster, err := s.activeStaff(masjidID)
	if err != nil {
		return err
	}
	added := ReconcileParticipants(conv, roster)
	if len(added) > 0 {
		if err := s.DB.Create(&added).Error; err != nil {
			return fmt.Errorf("failed to backfill participants: %w", err)
		}
		conv.Participants = append(conv.Participants, added...)
	}
	return nil
}

// ReconcileParticipants returns the participant entries that must be added so
// every staff member of the roster is present on the conversation. Backfilled
// staff start with an epoch-zero read cursor, so the whole thread history
// counts as unread for them. The function never mutates its inputs.
func ReconcileParticipants(conv *models.Conversation, roster []models.User) []models.Participant {
	present := make(map[string]bool, len(conv.Participants))
	for _, p := range conv.Participants {
		present[p.UserID] = true
	}

	var added []models.Participant
	now := time.Now()
	for _, u := range roster {
		if present[u.ID] {
			continue
		}
		added = append(added, models.Participant{
			ConversationID: conv.ConversationID,
			UserID:         u.ID,
			Email:          u.Email,
			InternalEmail:  u.InternalEmail,
			Name:           u.Name,
			Role:           models.NormalizeStaffRole(u.Role),
			JoinedAt:       now,
			LastReadAt:     time.Unix(0, 0),
			IsActive:       true,
		})
	}
	return added
}

// insertOrFetchExisting attempts the insert and treats a uniqueness violation
// as a benign race: the winning row is re-read and returned instead of the
// error. The returned pointer equals the argument only when this call created
// the row.
func (s *ConversationService) insertOrFetchExisting(conv *models.Conversation, key, caseID string) (*models.Conversation, error) {
	err := s.DB.Create(conv).Error
	if err == nil {
		return conv, nil
	}
	if !isDuplicateKeyError(err) {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	winner, ferr := s.findExisting(key, caseID)
	if ferr != nil {
		return nil, fmt.Errorf("failed to re-read conversation after duplicate insert: %w", ferr)
	}
	return winner, nil
}

// isDuplicateKeyError detects a unique-index violation from the store
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// activeStaff returns the masjid's active staff roster
func (s *ConversationService) activeStaff(masjidID string) ([]models.User, error) {
	var users []models.User
	err := s.DB.Where("masjid_id = ? AND is_active = ? AND role IN ?", masjidID, true, models.StaffRoles).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load staff roster: %w", err)
	}
	return users, nil
}

// buildParticipants constructs the initial participant list for a case-bound
// thread: the applicant plus every active staff member. The applicant and the
// initiating staff member start read-up-to-date; everyone else starts at
// epoch zero so the thread shows as unread history.
func buildParticipants(key string, applicant *models.Applicant, roster []models.User, initiator Identity, now time.Time) []models.Participant {
	participants := []models.Participant{{
		ConversationID: key,
		UserID:         applicant.ID,
		Email:          applicant.Email,
		Name:           applicant.Name,
		Role:           models.RoleApplicant,
		JoinedAt:       now,
		LastReadAt:     now,
		IsActive:       true,
	}}

	for _, u := range roster {
		lastRead := time.Unix(0, 0)
		if initiator.IsStaff() && u.ID == initiator.ID {
			lastRead = now
		}
		participants = append(participants, models.Participant{
			ConversationID: key,
			UserID:         u.ID,
			Email:          u.Email,
			InternalEmail:  u.InternalEmail,
			Name:           u.Name,
			Role:           models.NormalizeStaffRole(u.Role),
			JoinedAt:       now,
			LastReadAt:     lastRead,
			IsActive:       true,
		})
	}
	return participants
}

// staffParticipant builds a participant entry for a staff identity with a
// current read cursor
func staffParticipant(key string, identity Identity, now time.Time) models.Participant {
	return models.Participant{
		ConversationID: key,
		UserID:         identity.ID,
		Email:          identity.Email,
		InternalEmail:  identity.InternalEmail,
		Name:           identity.Name,
		Role:           models.NormalizeStaffRole(identity.Role),
		JoinedAt:       now,
		LastReadAt:     now,
		IsActive:       true,
	}
}

// Get loads a conversation by natural key and authorizes the caller: staff
// must match the masjid (super-role excepted), applicants must be a listed
// participant.
func (s *ConversationService) Get(conversationID string, identity Identity) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.DB.Preload("Participants").
		Where("conversation_id = ?", conversationID).
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	if identity.IsApplicant {
		if !conv.HasParticipant(identity.ID) {
			return nil, ErrForbidden
		}
		return &conv, nil
	}
	if !identity.IsSuperRole() && conv.MasjidID != identity.MasjidID {
		return nil, ErrForbidden
	}

	// Self-healing membership: staff added to the roster after creation are
	// backfilled on access
	if conv.IsCaseBound() {
		if err := s.repairConversation(&conv, conv.ConversationID, conv.MasjidID); err != nil {
			return nil, err
		}
	}
	return &conv, nil
}

// List returns conversations visible to the caller ordered by most recent
// message, each with the caller's recomputed unread count. Conversations whose
// case no longer resolves are filtered out rather than erroring.
func (s *ConversationService) List(identity Identity, page, limit int, archived *bool) ([]ConversationSummary, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	q := s.DB.Model(&models.Conversation{})
	switch {
	case identity.IsApplicant:
		sub := s.DB.Model(&models.Participant{}).
			Select("conversation_id").
			Where("user_id = ?", identity.ID)
		q = q.Where("conversation_id IN (?)", sub)
	case identity.IsSuperRole():
		// Cross-tenant operator sees everything
	default:
		q = q.Where("masjid_id = ?", identity.MasjidID)
	}
	if archived != nil {
		q = q.Where("is_archived = ?", *archived)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count conversations: %w", err)
	}

	var conversations []models.Conversation
	offset := (page - 1) * limit
	err := q.Preload("Participants").
		Order("last_message_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&conversations).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list conversations: %w", err)
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		if conv.IsCaseBound() {
			var exists int64
			s.DB.Model(&models.Applicant{}).Where("case_id = ?", *conv.CaseID).Count(&exists)
			if exists == 0 {
				// Orphaned case link, drop the row from the result set
				continue
			}
		}
		unread, err := s.unreadCount(conv, identity.ID)
		if err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, ConversationSummary{Conversation: conv, UnreadCount: unread})
	}
	return summaries, total, nil
}

// unreadCount recomputes the caller's unread total for one conversation:
// messages newer than the read cursor that the caller did not send. Callers
// without a participant entry read from epoch zero.
func (s *ConversationService) unreadCount(conv models.Conversation, userID string) (int64, error) {
	lastRead := time.Unix(0, 0)
	if p := conv.Participant(userID); p != nil {
		lastRead = p.LastReadAt
	}

	var count int64
	err := s.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND created_at > ? AND sender_id != ? AND is_deleted = ?",
			conv.ConversationID, lastRead, userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

// SetArchived toggles the archived flag. Only explicit staff action ever
// changes it.
func (s *ConversationService) SetArchived(conversationID string, identity Identity, archived bool) (*models.Conversation, error) {
	if identity.IsApplicant {
		return nil, ErrForbidden
	}
	conv, err := s.Get(conversationID, identity)
	if err != nil {
		return nil, err
	}
	if err := s.DB.Model(conv).Update("is_archived", archived).Error; err != nil {
		return nil, fmt.Errorf("failed to update archived flag: %w", err)
	}
	conv.IsArchived = archived
	return conv, nil
}
