package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PriyalGandhi19/taskmanager/internal/adapters/persistence/models"
	"github.com/PriyalGandhi19/taskmanager/internal/adapters/persistence/repositories"
	"github.com/PriyalGandhi19/taskmanager/internal/core/domain"
	"github.com/PriyalGandhi19/taskmanager/internal/pkg/storage"

	"gorm.io/gorm"
)

// Attachment limits
const (
	MaxAttachmentBytes = 10 << 20
	attachmentExt      = ".pdf"
)

// Actor identifies the authenticated caller for task operations
type Actor struct {
	ID   uint
	Role string
}

// validTitle checks the trimmed title length in characters, not bytes
func validTitle(title string) bool {
	n := utf8.RuneCountInString(title)
	return n >= 3 && n <= 120
}

// TaskService handles task business logic
type TaskService struct {
	taskRepo   repositories.TaskRepository
	attachRepo repositories.AttachmentRepository
	notifRepo  repositories.NotificationRepository
	userRepo   repositories.UserRepository
	auditRepo  repositories.AuditLogRepository
	files      storage.Store
	mailer     Mailer
	now        func() time.Time
}

// NewTaskService creates a new task service
func NewTaskService(
	taskRepo repositories.TaskRepository,
	attachRepo repositories.AttachmentRepository,
	notifRepo repositories.NotificationRepository,
	userRepo repositories.UserRepository,
	auditRepo repositories.AuditLogRepository,
	files storage.Store,
	mailer Mailer,
) *TaskService {
	return &TaskService{
		taskRepo:   taskRepo,
		attachRepo: attachRepo,
		notifRepo:  notifRepo,
		userRepo:   userRepo,
		auditRepo:  auditRepo,
		files:      files,
		mailer:     mailer,
		now:        time.Now,
	}
}

// CreateTaskInput represents task creation input
type CreateTaskInput struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	OwnerID     *uint      `json:"owner_id"`
}

// AttachmentUpload carries an uploaded file into the service
type AttachmentUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// TaskResponse represents a task with the caller's capability flags
type TaskResponse struct {
	ID           uint                          `json:"id"`
	Title        string                        `json:"title"`
	Description  string                        `json:"description"`
	Status       string                        `json:"status"`
	Priority     string                        `json:"priority"`
	OwnerID      uint                          `json:"owner_id"`
	OwnerEmail   string                        `json:"owner_email,omitempty"`
	CreatedBy    uint                          `json:"created_by"`
	DueDate      *time.Time                    `json:"due_date"`
	CreatedAt    time.Time                     `json:"created_at"`
	UpdatedAt    time.Time                     `json:"updated_at"`
	Capabilities domain.CapabilitySet          `json:"capabilities"`
	Attachments  []*models.TaskAttachment      `json:"attachments,omitempty"`
}

// CreateTaskResult carries the created task plus a warning when a
// best-effort step (the attachment) degraded
type CreateTaskResult struct {
	Task    *TaskResponse
	Warning string
}

// CreateTask validates input and creates a task. Admin callers must name
// a distinct owner; everyone else owns what they create. The ASSIGNED
// notification and mail run after commit and never fail the create.
func (s *TaskService) CreateTask(ctx context.Context, actor Actor, input *CreateTaskInput, upload *AttachmentUpload) (*CreateTaskResult, error) {
	title := strings.TrimSpace(input.Title)
	if !validTitle(title) {
		return nil, fmt.Errorf("%w: title must be 3-120 characters", domain.ErrValidation)
	}

	status := input.Status
	if status == "" {
		status = domain.StatusPending
	}
	if !domain.ValidStatus(status) {
		return nil, fmt.Errorf("%w: invalid status %q", domain.ErrValidation, status)
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return nil, fmt.Errorf("%w: invalid priority %q", domain.ErrValidation, priority)
	}

	ownerID := actor.ID
	if actor.Role == domain.RoleAdmin {
		if input.OwnerID == nil || *input.OwnerID == actor.ID {
			return nil, domain.ErrOwnerRequired
		}
		if _, err := s.userRepo.GetByID(ctx, *input.OwnerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: owner does not exist", domain.ErrValidation)
			}
			return nil, err
		}
		ownerID = *input.OwnerID
	}

	task := &models.Task{
		Title:       title,
		Description: input.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     input.DueDate,
		OwnerID:     ownerID,
		CreatedBy:   actor.ID,
	}

	var attachment *models.TaskAttachment
	var warning string
	if upload != nil {
		attachment, warning = s.prepareAttachment(actor.ID, upload)
		if warning == "" && attachment == nil {
			// validation failure, not a storage failure
			return nil, fmt.Errorf("%w: attachment must be a PDF of at most 10MB", domain.ErrValidation)
		}
	}

	if err := s.taskRepo.Create(ctx, task, attachment); err != nil {
		if attachment != nil {
			s.removeFile(attachment.StorageName)
		}
		return nil, err
	}

	s.recordAudit(ctx, actor.ID, models.AuditCreateTask, task.ID,
		fmt.Sprintf("created task %q for owner %d", task.Title, task.OwnerID))

	go s.notifyAssigned(task)

	var attachments []*models.TaskAttachment
	if attachment != nil {
		attachments = []*models.TaskAttachment{attachment}
	}

	return &CreateTaskResult{
		Task:    s.toResponse(task, actor, attachments),
		Warning: warning,
	}, nil
}

// UpdateTaskInput represents partial task update input. Nil fields keep
// the stored value.
type UpdateTaskInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

// UpdateTask applies a partial update. The capability check and the
// write happen inside one transaction; a status change observed against
// the stored value emits a STATUS notification after commit.
func (s *TaskService) UpdateTask(ctx context.Context, actor Actor, taskID uint, input *UpdateTaskInput) (*TaskResponse, error) {
	var prevStatus string

	task, err := s.taskRepo.UpdateTx(ctx, taskID, func(task *models.Task) error {
		caps := domain.Capabilities(actor.Role, actor.ID, task.OwnerID)
		if !caps.CanEditStatus && !caps.CanEditContent {
			return domain.ErrForbidden
		}

		prevStatus = task.Status

		if input.Title != nil {
			title := strings.TrimSpace(*input.Title)
			if !validTitle(title) {
				return fmt.Errorf("%w: title must be 3-120 characters", domain.ErrValidation)
			}
			task.Title = title
		}
		if input.Description != nil {
			task.Description = *input.Description
		}
		if input.Status != nil {
			if !domain.ValidStatus(*input.Status) {
				return fmt.Errorf("%w: invalid status %q", domain.ErrValidation, *input.Status)
			}
			task.Status = *input.Status
		}
		if input.Priority != nil {
			if !domain.ValidPriority(*input.Priority) {
				return fmt.Errorf("%w: invalid priority %q", domain.ErrValidation, *input.Priority)
			}
			task.Priority = *input.Priority
		}
		if input.DueDate != nil {
			task.DueDate = input.DueDate
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	s.recordAudit(ctx, actor.ID, models.AuditUpdateTask, task.ID,
		fmt.Sprintf("updated task %q", task.Title))

	if task.Status != prevStatus {
		go s.notifyStatusChange(task, prevStatus)
	}

	attachments, _ := s.attachRepo.ListByTask(ctx, task.ID)
	return s.toResponse(task, actor, attachments), nil
}

// DeleteTask deletes a task with the same authorization as update.
// Stored attachment files are removed best effort after commit.
func (s *TaskService) DeleteTask(ctx context.Context, actor Actor, taskID uint) error {
	task, attachments, err := s.taskRepo.DeleteTx(ctx, taskID, func(task *models.Task) error {
		if !domain.Capabilities(actor.Role, actor.ID, task.OwnerID).CanDelete {
			return domain.ErrForbidden
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrTaskNotFound
		}
		return err
	}

	for _, a := range attachments {
		s.removeFile(a.StorageName)
	}

	s.recordAudit(ctx, actor.ID, models.AuditDeleteTask, taskID,
		fmt.Sprintf("deleted task %q", task.Title))

	log.Printf("✅ Task deleted: %d", taskID)
	return nil
}

// GetTask returns a single task the actor may view
func (s *TaskService) GetTask(ctx context.Context, actor Actor, taskID uint) (*TaskResponse, error) {
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

	attachments, _ := s.attachRepo.ListByTask(ctx, task.ID)
	return s.toResponse(task, actor, attachments), nil
}

// ListTasksInput represents list filters
type ListTasksInput struct {
	Status   string
	Priority string
	Search   string
	OwnerID  *uint
}

// ListTasks lists tasks visible to the actor with the actor's capability
// flags on every row. Non-admins only ever see their own tasks.
func (s *TaskService) ListTasks(ctx context.Context, actor Actor, input ListTasksInput, offset, limit int) ([]*TaskResponse, int64, error) {
	filter := repositories.TaskFilter{
		Status:   input.Status,
		Priority: input.Priority,
		Search:   input.Search,
		OwnerID:  input.OwnerID,
	}
	if actor.Role != domain.RoleAdmin {
		filter.OwnerID = &actor.ID
	}

	tasks, total, err := s.taskRepo.List(ctx, filter, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]*TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		attachments, _ := s.attachRepo.ListByTask(ctx, t.ID)
		responses = append(responses, s.toResponse(t, actor, attachments))
	}
	return responses, total, nil
}

// TaskSummary represents per-status counts
type TaskSummary struct {
	Pending       int64   `json:"pending"`
	InProgress    int64   `json:"in_progress"`
	Completed     int64   `json:"completed"`
	Total         int64   `json:"total"`
	CompletionPct float64 `json:"completion_pct"`
}

// Summary counts tasks by status, scoped to the actor unless admin
func (s *TaskService) Summary(ctx context.Context, actor Actor) (*TaskSummary, error) {
	var ownerID *uint
	if actor.Role != domain.RoleAdmin {
		ownerID = &actor.ID
	}

	counts, err := s.taskRepo.CountByStatus(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	summary := &TaskSummary{
		Pending:    counts[domain.StatusPending],
		InProgress: counts[domain.StatusInProgress],
		Completed:  counts[domain.StatusCompleted],
	}
	summary.Total = summary.Pending + summary.InProgress + summary.Completed
	if summary.Total > 0 {
		summary.CompletionPct = float64(summary.Completed) / float64(summary.Total) * 100
	}
	return summary, nil
}

// AddAttachment uploads a further PDF onto an existing task
func (s *TaskService) AddAttachment(ctx context.Context, actor Actor, taskID uint, upload *AttachmentUpload) (*models.TaskAttachment, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	if !domain.Capabilities(actor.Role, actor.ID, task.OwnerID).CanEditContent {
		return nil, domain.ErrForbidden
	}

	if err := validateUpload(upload); err != nil {
		return nil, err
	}

	storageName, size, err := s.files.Save(upload.Reader, attachmentExt)
	if err != nil {
		return nil, err
	}

	attachment := &models.TaskAttachment{
		TaskID:       task.ID,
		OriginalName: upload.Filename,
		StorageName:  storageName,
		ContentType:  upload.ContentType,
		SizeBytes:    size,
		UploadedBy:   actor.ID,
	}
	if err := s.attachRepo.Create(ctx, attachment); err != nil {
		s.removeFile(storageName)
		return nil, err
	}

	return attachment, nil
}

// DownloadAttachment opens an attachment's bytes for the actor. Admins
// may fetch anything; everyone else only files on their own tasks. A
// present row with absent bytes is FileMissing, not NotFound.
func (s *TaskService) DownloadAttachment(ctx context.Context, actor Actor, attachmentID uint) (*models.TaskAttachment, io.ReadCloser, error) {
	attachment, err := s.attachRepo.GetByID(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrAttachmentNotFound
		}
		return nil, nil, err
	}

	if actor.Role != domain.RoleAdmin {
		if attachment.Task == nil || attachment.Task.OwnerID != actor.ID {
			return nil, nil, domain.ErrForbidden
		}
	}

	reader, err := s.files.Open(attachment.StorageName)
	if err != nil {
		if errors.Is(err, storage.ErrFileMissing) {
			return nil, nil, domain.ErrFileMissing
		}
		return nil, nil, err
	}

	return attachment, reader, nil
}

// DueSoonReminders mails owners of tasks due within the next day
func (s *TaskService) DueSoonReminders(ctx context.Context) error {
	from := s.now()
	to := from.Add(24 * time.Hour)

	tasks, err := s.taskRepo.ListDueBetween(ctx, from, to)
	if err != nil {
		return err
	}

	for _, task := range tasks {
		if task.Owner == nil || task.DueDate == nil {
			continue
		}
		if err := s.mailer.SendDueReminderEmail(task.Owner.Email, task.Title, *task.DueDate); err != nil {
			log.Printf("⚠️ Due reminder for task %d failed: %v", task.ID, err)
		}
	}

	log.Printf("✅ Due reminders processed: %d tasks", len(tasks))
	return nil
}

// prepareAttachment validates and stores an upload. A validation failure
// returns (nil, ""); a storage failure returns (nil, warning) so the
// caller can continue without the file.
func (s *TaskService) prepareAttachment(actorID uint, upload *AttachmentUpload) (*models.TaskAttachment, string) {
	if err := validateUpload(upload); err != nil {
		return nil, ""
	}

	storageName, size, err := s.files.Save(upload.Reader, attachmentExt)
	if err != nil {
		log.Printf("⚠️ Attachment save failed: %v", err)
		return nil, "task created but the attachment could not be saved"
	}

	return &models.TaskAttachment{
		OriginalName: upload.Filename,
		StorageName:  storageName,
		ContentType:  upload.ContentType,
		SizeBytes:    size,
		UploadedBy:   actorID,
	}, ""
}

func validateUpload(upload *AttachmentUpload) error {
	if upload == nil {
		return fmt.Errorf("%w: attachment missing", domain.ErrValidation)
	}
	if !strings.HasSuffix(strings.ToLower(upload.Filename), attachmentExt) {
		return fmt.Errorf("%w: only PDF attachments are accepted", domain.ErrValidation)
	}
	if upload.Size > MaxAttachmentBytes {
		return fmt.Errorf("%w: attachment exceeds 10MB", domain.ErrValidation)
	}
	return nil
}

// notifyAssigned creates the ASSIGNED notification and mails the owner.
// Runs detached from the request; failures are logged and dropped.
func (s *TaskService) notifyAssigned(task *models.Task) {
	ctx := context.Background()

	notification := &models.Notification{
		RecipientID: task.OwnerID,
		TaskID:      &task.ID,
		Type:        domain.NotifyAssigned,
		Message:     fmt.Sprintf("New task assigned: %s", task.Title),
	}
	if err := s.notifRepo.Create(ctx, notification); err != nil {
		log.Printf("⚠️ Assignment notification for task %d failed: %v", task.ID, err)
	}

	owner, err := s.userRepo.GetByID(ctx, task.OwnerID)
	if err != nil {
		log.Printf("⚠️ Assignment mail lookup for task %d failed: %v", task.ID, err)
		return
	}
	if err := s.mailer.SendTaskAssignedEmail(owner.Email, task.Title); err != nil {
		log.Printf("⚠️ Assignment mail for task %d failed: %v", task.ID, err)
	}
}

// notifyStatusChange records the before and after of a status move
func (s *TaskService) notifyStatusChange(task *models.Task, prevStatus string) {
	notification := &models.Notification{
		RecipientID: task.OwnerID,
		TaskID:      &task.ID,
		Type:        domain.NotifyStatus,
		Message:     fmt.Sprintf("Task status changed: %s → %s", prevStatus, task.Status),
	}
	if err := s.notifRepo.Create(context.Background(), notification); err != nil {
		log.Printf("⚠️ Status notification for task %d failed: %v", task.ID, err)
	}
}

func (s *TaskService) removeFile(storageName string) {
	if err := s.files.Remove(storageName); err != nil {
		log.Printf("⚠️ File cleanup failed for %s: %v", storageName, err)
	}
}

// recordAudit writes an audit entry, best effort
func (s *TaskService) recordAudit(ctx context.Context, actorID uint, action string, taskID uint, payload string) {
	entry := &models.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "task",
		EntityID: taskID,
		Payload:  payload,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		log.Printf("⚠️ Audit write failed: %v", err)
	}
}

func (s *TaskService) toResponse(task *models.Task, actor Actor, attachments []*models.TaskAttachment) *TaskResponse {
	resp := &TaskResponse{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		Status:       task.Status,
		Priority:     task.Priority,
		OwnerID:      task.OwnerID,
		CreatedBy:    task.CreatedBy,
		DueDate:      task.DueDate,
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
		Capabilities: domain.Capabilities(actor.Role, actor.ID, task.OwnerID),
		Attachments:  attachments,
	}
	if task.Owner != nil {
		resp.OwnerEmail = task.Owner.Email
	}
	return resp
}
