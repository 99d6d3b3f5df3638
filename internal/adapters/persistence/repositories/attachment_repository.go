package repositories

import (
	"context"

	"github.com/PriyalGandhi19/taskmanager/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// attachmentRepository implements AttachmentRepository interface
type attachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository creates a new attachment repository
func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

// Create creates a new attachment
func (r *attachmentRepository) Create(ctx context.Context, attachment *models.TaskAttachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}

// GetByID gets an attachment with its parent task preloaded, so callers
// can check task ownership before handing out the file
func (r *attachmentRepository) GetByID(ctx context.Context, id uint) (*models.TaskAttachment, error) {
	var attachment models.TaskAttachment
	err := r.db.WithContext(ctx).Preload("Task").Where("id = ?", id).First(&attachment).Error
	if err != nil {
		return nil, err
	}
	return &attachment, nil
}

// ListByTask lists attachments for a task, oldest first
func (r *attachmentRepository) ListByTask(ctx context.Context, taskID uint) ([]*models.TaskAttachment, error) {
	var attachments []*models.TaskAttachment
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).Order("created_at ASC").
		Find(&attachments).Error
	if err != nil {
		return nil, err
	}
	return attachments, nil
}
