package repositories

import (
	"context"
	"time"

	"github.com/PriyalGandhi19/taskmanager/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// oneTimeTokenRepository implements OneTimeTokenRepository interface
type oneTimeTokenRepository struct {
	db *gorm.DB
}

// NewOneTimeTokenRepository creates a new one-time token repository
func NewOneTimeTokenRepository(db *gorm.DB) OneTimeTokenRepository {
	return &oneTimeTokenRepository{db: db}
}

// Replace invalidates prior unused tokens of the same user and kind and
// inserts the new one. Both steps run in one transaction so the invariant
// of at most one live token per (user, kind) holds.
func (r *oneTimeTokenRepository) Replace(ctx context.Context, token *models.OneTimeToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.OneTimeToken{}).
			Where("user_id = ? AND kind = ? AND used = ?", token.UserID, token.Kind, false).
			Update("used", true).Error; err != nil {
			return err
		}
		return tx.Create(token).Error
	})
}

// GetValid gets an unused, unexpired token by kind and hash
func (r *oneTimeTokenRepository) GetValid(ctx context.Context, kind, tokenHash string, now time.Time) (*models.OneTimeToken, error) {
	var token models.OneTimeToken
	err := r.db.WithContext(ctx).
		Where("kind = ? AND token_hash = ? AND used = ? AND expires_at > ?", kind, tokenHash, false, now).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// MarkUsed marks a token as consumed
func (r *oneTimeTokenRepository) MarkUsed(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.OneTimeToken{}).
		Where("id = ?", id).
		Update("used", true).Error
}
