package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/PriyalGandhi19/taskmanager/internal/adapters/persistence/models"
	"github.com/PriyalGandhi19/taskmanager/internal/adapters/persistence/repositories"
	"github.com/PriyalGandhi19/taskmanager/internal/core/domain"

	"gorm.io/gorm"
)

// CommentService handles task comment business logic
type CommentService struct {
	commentRepo repositories.CommentRepository
	taskRepo    repositories.TaskRepository
	notifRepo   repositories.NotificationRepository
}

// NewCommentService creates a new comment service
func NewCommentService(
	commentRepo repositories.CommentRepository,
	taskRepo repositories.TaskRepository,
	notifRepo repositories.NotificationRepository,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		taskRepo:    taskRepo,
		notifRepo:   notifRepo,
	}
}

// AddComment adds a comment to a task. Admins and the task owner may
// comment. The owner gets a COMMENT notification unless they wrote the
// comment themselves.
func (s *CommentService) AddComment(ctx context.Context, actor Actor, taskID uint, content string) (*models.CommentResponse, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: comment cannot be empty", domain.ErrValidation)
	}

	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	if !domain.Capabilities(actor.Role, actor.ID, task.OwnerID).CanView {
		return nil, domain.ErrForbidden
	}

	comment := &models.TaskComment{
		TaskID:  task.ID,
		UserID:  actor.ID,
		Content: content,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	if actor.ID != task.OwnerID {
		go s.notifyComment(task)
	}

	created, err := s.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		return comment.ToResponse(), nil
	}
	return created.ToResponse(), nil
}

// ListComments lists a task's comments for an actor allowed to view it
func (s *CommentService) ListComments(ctx context.Context, actor Actor, taskID uint, offset, limit int) ([]*models.CommentResponse, int64, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, domain.ErrTaskNotFound
		}
		return nil, 0, err
	}

	if !domain.Capabilities(actor.Role, actor.ID, task.OwnerID).CanView {
		return nil, 0, domain.ErrForbidden
	}

	comments, total, err := s.commentRepo.ListByTask(ctx, taskID, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]*models.CommentResponse, 0, len(comments))
	for _, c := range comments {
		responses = append(responses, c.ToResponse())
	}
	return responses, total, nil
}

// EditComment edits a comment's content. Admins and the comment's own
// author may edit; the edited flag flips once and never reverts.
func (s *CommentService) EditComment(ctx context.Context, actor Actor, commentID uint, content string) (*models.CommentResponse, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: comment cannot be empty", domain.ErrValidation)
	}

	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCommentNotFound
		}
		return nil, err
	}

	if actor.Role != domain.RoleAdmin && comment.UserID != actor.ID {
		return nil, domain.ErrForbidden
	}

	comment.Content = content
	comment.IsEdited = true
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}

	return comment.ToResponse(), nil
}

// DeleteComment removes a comment. Same rule as edit.
func (s *CommentService) DeleteComment(ctx context.Context, actor Actor, commentID uint) error {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrCommentNotFound
		}
		return err
	}

	if actor.Role != domain.RoleAdmin && comment.UserID != actor.ID {
		return domain.ErrForbidden
	}

	return s.commentRepo.Delete(ctx, comment.ID)
}

// notifyComment tells the task owner about a new comment, best effort
func (s *CommentService) notifyComment(task *models.Task) {
	notification := &models.Notification{
		RecipientID: task.OwnerID,
		TaskID:      &task.ID,
		Type:        domain.NotifyComment,
		Message:     fmt.Sprintf("New comment on task: %s", task.Title),
	}
	if err := s.notifRepo.Create(context.Background(), notification); err != nil {
		log.Printf("⚠️ Comment notification for task %d failed: %v", task.ID, err)
	}
}
