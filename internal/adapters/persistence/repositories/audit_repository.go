package repositories

import (
	"context"

	"github.com/PriyalGandhi19/taskmanager/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// authActivityRepository implements AuthActivityRepository interface
type authActivityRepository struct {
	db *gorm.DB
}

// NewAuthActivityRepository creates a new auth activity repository
func NewAuthActivityRepository(db *gorm.DB) AuthActivityRepository {
	return &authActivityRepository{db: db}
}

// Create records an auth event
func (r *authActivityRepository) Create(ctx context.Context, activity *models.AuthActivity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

// List lists auth events, newest first, optionally filtered by email and event
func (r *authActivityRepository) List(ctx context.Context, email, event string, offset, limit int) ([]*models.AuthActivity, int64, error) {
	var activities []*models.AuthActivity
	var total int64

	query := r.db.WithContext(ctx).Model(&models.AuthActivity{})
	if email != "" {
		query = query.Where("email = ?", email)
	}
	if event != "" {
		query = query.Where("event = ?", event)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("created_at DESC").
		Offset(offset).Limit(limit).Find(&activities).Error; err != nil {
		return nil, 0, err
	}

	return activities, total, nil
}

// auditLogRepository implements AuditLogRepository interface
type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

// Create records an audit entry
func (r *auditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// List lists audit entries, newest first, optionally filtered by action and entity
func (r *auditLogRepository) List(ctx context.Context, action, entity string, offset, limit int) ([]*models.AuditLog, int64, error) {
	var entries []*models.AuditLog
	var total int64

	query := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if action != "" {
		query = query.Where("action = ?", action)
	}
	if entity != "" {
		query = query.Where("entity = ?", entity)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("created_at DESC").
		Offset(offset).Limit(limit).Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
