package repositories

import (
	"context"
	"time"

	"github.com/PriyalGandhi19/taskmanager/internal/adapters/persistence/models"
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, offset, limit int) ([]*models.User, int64, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CountAdmins(ctx context.Context) (int64, error)
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RevokeByTokenHash(ctx context.Context, tokenHash string, at time.Time) error
	RevokeAllByUserID(ctx context.Context, userID uint, at time.Time) error
	DeleteExpired(ctx context.Context, before time.Time) error
}

// OneTimeTokenRepository defines one-time token repository interface
type OneTimeTokenRepository interface {
	// Replace marks all unused tokens of the same user and kind as used,
	// then inserts the new token, within one transaction.
	Replace(ctx context.Context, token *models.OneTimeToken) error
	GetValid(ctx context.Context, kind, tokenHash string, now time.Time) (*models.OneTimeToken, error)
	MarkUsed(ctx context.Context, id uint) error
}

// TaskFilter carries optional list filters
type TaskFilter struct {
	OwnerID  *uint
	Status   string
	Priority string
	Search   string
}

// TaskRepository defines task repository interface
type TaskRepository interface {
	// Create inserts the task and, when given, its initial attachment in
	// one transaction.
	Create(ctx context.Context, task *models.Task, attachment *models.TaskAttachment) error
	GetByID(ctx context.Context, id uint) (*models.Task, error)
	// UpdateTx locks the row, runs apply against the loaded task and saves
	// the result, all in one transaction. An error from apply rolls back.
	UpdateTx(ctx context.Context, id uint, apply func(task *models.Task) error) (*models.Task, error)
	// DeleteTx locks the row, runs authorize, then deletes the task and
	// its comments, attachments and notifications in one transaction.
	// The deleted row is returned so callers can clean up stored files.
	DeleteTx(ctx context.Context, id uint, authorize func(task *models.Task) error) (*models.Task, []*models.TaskAttachment, error)
	List(ctx context.Context, filter TaskFilter, offset, limit int) ([]*models.Task, int64, error)
	CountByStatus(ctx context.Context, ownerID *uint) (map[string]int64, error)
	ListDueBetween(ctx context.Context, from, to time.Time) ([]*models.Task, error)
}

// CommentRepository defines task comment repository interface
type CommentRepository interface {
	Create(ctx context.Context, comment *models.TaskComment) error
	GetByID(ctx context.Context, id uint) (*models.TaskComment, error)
	ListByTask(ctx context.Context, taskID uint, offset, limit int) ([]*models.TaskComment, int64, error)
	Update(ctx context.Context, comment *models.TaskComment) error
	Delete(ctx context.Context, id uint) error
}

// NotificationRepository defines notification repository interface
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, id uint) (*models.Notification, error)
	ListByRecipient(ctx context.Context, recipientID uint, unreadOnly bool, offset, limit int) ([]*models.Notification, int64, error)
	CountUnread(ctx context.Context, recipientID uint) (int64, error)
	MarkRead(ctx context.Context, id, recipientID uint) (int64, error)
	MarkAllRead(ctx context.Context, recipientID uint) error
}

// AttachmentRepository defines task attachment repository interface
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *models.TaskAttachment) error
	GetByID(ctx context.Context, id uint) (*models.TaskAttachment, error)
	ListByTask(ctx context.Context, taskID uint) ([]*models.TaskAttachment, error)
}

// AuthActivityRepository defines auth activity repository interface
type AuthActivityRepository interface {
	Create(ctx context.Context, activity *models.AuthActivity) error
	List(ctx context.Context, email, event string, offset, limit int) ([]*models.AuthActivity, int64, error)
}

// AuditLogRepository defines audit log repository interface
type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, action, entity string, offset, limit int) ([]*models.AuditLog, int64, error)
}
