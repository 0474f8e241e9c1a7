package services

import (
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"strings"
	"time"

	"zakat_flow_go/config"
	"zakat_flow_go/models"

	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var messagePolicy = bluemonday.StrictPolicy()

type MessageService struct {
	DB            *gorm.DB
	Conversations *ConversationService
	Notifications *NotificationService
	Cfg           *config.Config
}

func NewMessageService(db *gorm.DB, cfg *config.Config) *MessageService {
	return &MessageService{
		DB:            db,
		Conversations: NewConversationService(db),
		Notifications: NewNotificationService(db),
		Cfg:           cfg,
	}
}

// SendResult reports a completed send, including attachments that failed to
// upload. Upload failures never block the message itself.
type SendResult struct {
	Message           *models.Message `json:"message"`
	FailedAttachments []string        `json:"failed_attachments,omitempty"`
}

// Send appends a message to a conversation. The sender must be a staff member
// of the conversation's masjid or an applicant participant. Attachments are
// persisted first; failures are collected and the message is still written
// with whichever attachments succeeded. The sender's own read receipt is
// written together with the message, and the conversation's denormalized
// summary (count, timestamp, preview) is updated in the same transaction.
func (s *MessageService) Send(conversationID string, identity Identity, body, messageType string, attachments []*multipart.FileHeader, recipientIDs []string) (*SendResult, error) {
	conv, err := s.Conversations.Get(conversationID, identity)
	if err != nil {
		return nil, err
	}
	if identity.IsApplicant && !conv.HasParticipant(identity.ID) {
		return nil, ErrForbidden
	}

	body = strings.TrimSpace(messagePolicy.Sanitize(body))
	if body == "" {
		return nil, ErrInvalidArgument
	}
	if messageType == "" {
		messageType = models.MessageTypeText
	}

	// Persist attachments before the message row; collect failures instead of
	// aborting
	var stored []*StorageResult
	var failed []string
	for _, fh := range attachments {
		if err := ValidateAttachment(fh); err != nil {
			log.Printf("[MESSAGE] Rejected attachment %s: %v", fh.Filename, err)
			failed = append(failed, fh.Filename)
			continue
		}
		result, err := UploadAttachment(fh, conv.MasjidID)
		if err != nil {
			log.Printf("[MESSAGE] Failed to store attachment %s: %v", fh.Filename, err)
			failed = append(failed, fh.Filename)
			continue
		}
		stored = append(stored, result)
	}

	recipientEmails := make([]string, 0, len(conv.Participants))
	if len(recipientIDs) == 0 {
		for _, p := range conv.Participants {
			if p.UserID != identity.ID {
				recipientIDs = append(recipientIDs, p.UserID)
				recipientEmails = append(recipientEmails, p.Email)
			}
		}
	} else {
		for _, id := range recipientIDs {
			if p := conv.Participant(id); p != nil {
				recipientEmails = append(recipientEmails, p.Email)
			}
		}
	}

	now := time.Now()
	msg := &models.Message{
		ConversationID:  conv.ConversationID,
		CaseID:          conv.CaseID,
		MasjidID:        conv.MasjidID,
		SenderID:        identity.ID,
		SenderEmail:     identity.Email,
		SenderName:      identity.Name,
		SenderRole:      identity.Role,
		Body:            body,
		MessageType:     messageType,
		RecipientIDs:    recipientIDs,
		RecipientEmails: recipientEmails,
		CreatedAt:       now,
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}

		// Invariant: the sender has read their own message from the start
		selfRead := models.MessageRead{MessageID: msg.ID, UserID: identity.ID, ReadAt: now}
		if err := tx.Create(&selfRead).Error; err != nil {
			return fmt.Errorf("failed to create self read receipt: %w", err)
		}
		msg.ReadBy = []models.MessageRead{selfRead}

		for _, res := range stored {
			doc := models.CaseDocument{
				MasjidID:         conv.MasjidID,
				MessageID:        &msg.ID,
				FileName:         res.FileName,
				FileOriginalName: res.FileOriginalName,
				StorageKey:       res.Key,
				FileSize:         res.FileSize,
				MimeType:         res.MimeType,
			}
			if identity.IsStaff() {
				uploaderID := identity.ID
				doc.UploadedByID = &uploaderID
			}
			if err := tx.Create(&doc).Error; err != nil {
				return fmt.Errorf("failed to record attachment: %w", err)
			}
			msg.Attachments = append(msg.Attachments, doc)
		}

		updates := map[string]interface{}{
			"message_count":   gorm.Expr("message_count + 1"),
			"last_message_at": now,
			"last_message":    msg.Preview(),
		}
		if err := tx.Model(&models.Conversation{}).
			Where("conversation_id = ?", conv.ConversationID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update conversation summary: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Best-effort notification fan-out; a failure is logged, never surfaced
	go s.notifyParticipants(conv, msg, identity)

	return &SendResult{Message: msg, FailedAttachments: failed}, nil
}

// notifyParticipants emails every other participant and writes in-app
// notification rows for staff recipients
func (s *MessageService) notifyParticipants(conv *models.Conversation, msg *models.Message, sender Identity) {
	for _, p := range conv.Participants {
		if p.UserID == sender.ID || !p.IsActive {
			continue
		}

		if p.IsStaff() {
			userID := p.UserID
			convID := conv.ConversationID
			notification := &models.Notification{
				MasjidID:       conv.MasjidID,
				UserID:         &userID,
				ConversationID: &convID,
				Type:           models.NotificationTypeNewMessage,
				Title:          fmt.Sprintf("New message from %s", sender.Name),
				Message:        msg.Preview(),
				LinkURL:        "/conversations/" + conv.ConversationID,
			}
			if err := s.Notifications.CreateNotification(notification); err != nil {
				log.Printf("[MESSAGE] Failed to create notification for %s: %v", p.UserID, err)
			}
		}

		if p.Email == "" {
			continue
		}
		email := BuildNewMessageEmail(s.Cfg, p.Email, sender.Name, conv.Title, msg.Preview())
		if err := SendEmail(s.Cfg, email); err != nil {
			log.Printf("[MESSAGE] Failed to send notification email to %s: %v", p.Email, err)
		}
	}
}

// MarkRead appends a read receipt for every message in the conversation the
// user has not read yet, in one bulk insert, and advances the participant's
// read cursor. The cursor is monotonic and the receipt insert ignores
// conflicts, so concurrent calls from the same user are both safe. With no
// new messages the call is a no-op beyond the timestamp bump.
func (s *MessageService) MarkRead(conversationID string, identity Identity) (int, error) {
	conv, err := s.Conversations.Get(conversationID, identity)
	if err != nil {
		return 0, err
	}

	var unreadIDs []string
	err = s.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id != ?", conv.ConversationID, identity.ID).
		Where("id NOT IN (?)", s.DB.Model(&models.MessageRead{}).
			Select("message_id").
			Where("user_id = ?", identity.ID)).
		Pluck("id", &unreadIDs).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find unread messages: %w", err)
	}

	now := time.Now()
	if len(unreadIDs) > 0 {
		receipts := make([]models.MessageRead, 0, len(unreadIDs))
		for _, id := range unreadIDs {
			receipts = append(receipts, models.MessageRead{MessageID: id, UserID: identity.ID, ReadAt: now})
		}
		err = s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&receipts).Error
		if err != nil {
			return 0, fmt.Errorf("failed to append read receipts: %w", err)
		}
	}

	// Advance the read cursor, never rewind it
	err = s.DB.Model(&models.Participant{}).
		Where("conversation_id = ? AND user_id = ? AND last_read_at < ?", conv.ConversationID, identity.ID, now).
		Update("last_read_at", now).Error
	if err != nil {
		return 0, fmt.Errorf("failed to advance read cursor: %w", err)
	}

	return len(unreadIDs), nil
}

// ListMessages returns a page of the conversation's messages ordered by
// created_at ascending (id as a stable tiebreaker only). Soft-deleted
// messages keep their place with a redacted body.
func (s *MessageService) ListMessages(conversationID string, identity Identity, page, limit int) ([]models.Message, int64, *models.Conversation, error) {
	conv, err := s.Conversations.Get(conversationID, identity)
	if err != nil {
		return nil, 0, nil, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	q := s.DB.Model(&models.Message{}).Where("conversation_id = ?", conv.ConversationID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, nil, fmt.Errorf("failed to count messages: %w", err)
	}

	var messages []models.Message
	err = q.Preload("ReadBy").Preload("Attachments").
		Order("created_at ASC, id ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, 0, nil, fmt.Errorf("failed to list messages: %w", err)
	}

	for i := range messages {
		if messages[i].IsDeleted {
			messages[i].Body = "[deleted]"
			messages[i].Attachments = nil
		}
	}
	return messages, total, conv, nil
}

// SoftDelete flags the sender's own message as deleted. The row stays in
// place so ordering and counts are unaffected.
func (s *MessageService) SoftDelete(messageID string, identity Identity) error {
	var msg models.Message
	err := s.DB.Where("id = ?", messageID).First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load message: %w", err)
	}
	if msg.SenderID != identity.ID {
		return ErrForbidden
	}
	if err := s.DB.Model(&msg).Update("is_deleted", true).Error; err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}
