package services

import (
	"time"

	"zakat_flow_go/models"

	"gorm.io/gorm"
)

type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

func (s *NotificationService) GetUnreadNotifications(masjidID, userID string) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.DB.Where("masjid_id = ? AND (user_id IS NULL OR user_id = ?) AND read_at IS NULL", masjidID, userID).
		Order("created_at DESC").
		Limit(5).
		Find(&notifications).Error
	return notifications, err
}

func (s *NotificationService) MarkAsRead(notificationID, userID string, masjidID string) error {
	now := time.Now()
	// Ensure the notification belongs to the masjid and (optionally) the user
	return s.DB.Model(&models.Notification{}).
		Where("id = ? AND masjid_id = ? AND (user_id IS NULL OR user_id = ?)", notificationID, masjidID, userID).
		Update("read_at", now).Error
}

func (s *NotificationService) MarkAllAsRead(masjidID, userID string) error {
	now := time.Now()
	return s.DB.Model(&models.Notification{}).
		Where("masjid_id = ? AND (user_id IS NULL OR user_id = ?) AND read_at IS NULL", masjidID, userID).
		Update("read_at", now).Error
}

func (s *NotificationService) GetNotificationCount(masjidID, userID string) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Notification{}).
		Where("masjid_id = ? AND (user_id IS NULL OR user_id = ?) AND read_at IS NULL", masjidID, userID).
		Count(&count).Error
	return count, err
}

func (s *NotificationService) CreateNotification(notification *models.Notification) error {
	return s.DB.Create(notification).Error
}
