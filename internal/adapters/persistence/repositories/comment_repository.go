package repositories

import (
	"context"

	"github.com/PriyalGandhi19/taskmanager/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// commentRepository implements CommentRepository interface
type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create creates a new comment
func (r *commentRepository) Create(ctx context.Context, comment *models.TaskComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// GetByID gets a comment by ID with its author preloaded
func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.TaskComment, error) {
	var comment models.TaskComment
	err := r.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&comment).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByTask lists comments for a task with pagination, oldest first
func (r *commentRepository) ListByTask(ctx context.Context, taskID uint, offset, limit int) ([]*models.TaskComment, int64, error) {
	var comments []*models.TaskComment
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.TaskComment{}).
		Where("task_id = ?", taskID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).Preload("User").
		Where("task_id = ?", taskID).Order("created_at ASC").
		Offset(offset).Limit(limit).Find(&comments).Error; err != nil {
		return nil, 0, err
	}

	return comments, total, nil
}

// Update updates a comment
func (r *commentRepository) Update(ctx context.Context, comment *models.TaskComment) error {
	return r.db.WithContext(ctx).Save(comment).Error
}

// Delete deletes a comment
func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.TaskComment{}, id).Error
}
