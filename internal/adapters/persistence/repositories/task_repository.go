package repositories

import (
	"context"
	"time"

	"github.com/PriyalGandhi19/taskmanager/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// taskRepository implements TaskRepository interface
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Create creates a task and its initial attachment in one transaction
func (r *taskRepository) Create(ctx context.Context, task *models.Task, attachment *models.TaskAttachment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return err
		}
		if attachment != nil {
			attachment.TaskID = task.ID
			if err := tx.Create(attachment).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID gets a task by ID with its owner preloaded
func (r *taskRepository) GetByID(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).Preload("Owner").Where("id = ?", id).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTx loads the task under a row lock, applies the mutation and saves
// it, all in one transaction. An error from apply rolls everything back.
func (r *taskRepository) UpdateTx(ctx context.Context, id uint, apply func(task *models.Task) error) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&task).Error; err != nil {
			return err
		}
		if err := apply(&task); err != nil {
			return err
		}
		return tx.Save(&task).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTx loads the task under a row lock, runs the authorization check
// and deletes the task together with its comments, attachments and
// notifications. The attachment rows are returned for file cleanup.
func (r *taskRepository) DeleteTx(ctx context.Context, id uint, authorize func(task *models.Task) error) (*models.Task, []*models.TaskAttachment, error) {
	var task models.Task
	var attachments []*models.TaskAttachment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&task).Error; err != nil {
			return err
		}
		if err := authorize(&task); err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Find(&attachments).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskAttachment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		return tx.Delete(&task).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &task, attachments, nil
}

// List lists tasks matching the filter with pagination, newest first
func (r *taskRepository) List(ctx context.Context, filter TaskFilter, offset, limit int) ([]*models.Task, int64, error) {
	var tasks []*models.Task
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Task{})
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.Search != "" {
		query = query.Where("title LIKE ?", "%"+filter.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Preload("Owner").Order("created_at DESC").
		Offset(offset).Limit(limit).Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// CountByStatus counts tasks grouped by status, optionally scoped to an owner
func (r *taskRepository) CountByStatus(ctx context.Context, ownerID *uint) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row

	query := r.db.WithContext(ctx).Model(&models.Task{}).
		Select("status, COUNT(*) as count").Group("status")
	if ownerID != nil {
		query = query.Where("owner_id = ?", *ownerID)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// ListDueBetween lists unfinished tasks due within the window
func (r *taskRepository) ListDueBetween(ctx context.Context, from, to time.Time) ([]*models.Task, error) {
	var tasks []*models.Task
	err := r.db.WithContext(ctx).Preload("Owner").
		Where("due_date IS NOT NULL AND due_date >= ? AND due_date < ? AND status <> ?",
			from, to, "COMPLETED").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}
