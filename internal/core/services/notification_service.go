package services

import (
	"context"
	"errors"

	"github.com/PriyalGandhi19/taskmanager/internal/adapters/persistence/models"
	"github.com/PriyalGandhi19/taskmanager/internal/adapters/persistence/repositories"
	"github.com/PriyalGandhi19/taskmanager/internal/core/domain"

	"gorm.io/gorm"
)

// NotificationService handles the recipient-facing notification surface
type NotificationService struct {
	notifRepo repositories.NotificationRepository
}

// NewNotificationService creates a new notification service
func NewNotificationService(notifRepo repositories.NotificationRepository) *NotificationService {
	return &NotificationService{notifRepo: notifRepo}
}

// List lists the caller's notifications, newest first
func (s *NotificationService) List(ctx context.Context, recipientID uint, unreadOnly bool, offset, limit int) ([]*models.Notification, int64, error) {
	return s.notifRepo.ListByRecipient(ctx, recipientID, unreadOnly, offset, limit)
}

// UnreadCount counts the caller's unread notifications
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID uint) (int64, error) {
	return s.notifRepo.CountUnread(ctx, recipientID)
}

// MarkRead marks one of the caller's notifications as read. Rows owned
// by someone else are invisible, so they come back NotFound. Marking an
// already-read row succeeds; the flag never flips back.
func (s *NotificationService) MarkRead(ctx context.Context, recipientID, notificationID uint) error {
	notification, err := s.notifRepo.GetByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	if notification.RecipientID != recipientID {
		return domain.ErrNotFound
	}
	if notification.IsRead {
		return nil
	}

	_, err = s.notifRepo.MarkRead(ctx, notificationID, recipientID)
	return err
}

// MarkAllRead marks all of the caller's notifications as read
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID uint) error {
	return s.notifRepo.MarkAllRead(ctx, recipientID)
}
