package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/PriyalGandhi19/taskmanager/internal/core/domain"
	"github.com/PriyalGandhi19/taskmanager/internal/core/services"
	"github.com/PriyalGandhi19/taskmanager/internal/pkg/pagination"
	"github.com/PriyalGandhi19/taskmanager/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// TaskHandler handles task endpoints
type TaskHandler struct {
	taskService    *services.TaskService
	commentService *services.CommentService
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *services.TaskService, commentService *services.CommentService) *TaskHandler {
	return &TaskHandler{
		taskService:    taskService,
		commentService: commentService,
	}
}

// CommentRequest represents a comment body
type CommentRequest struct {
	Content string `json:"content"`
}

// CreateTask handles task creation (multipart when a file rides along)
// @Summary Create task
// @Description Create a task; admins must name a distinct owner, optional single PDF attachment
// @Tags Tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /tasks [post]
func (h *TaskHandler) CreateTask(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	input := &services.CreateTaskInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Status:      c.FormValue("status"),
		Priority:    c.FormValue("priority"),
	}
	if input.Title == "" {
		// JSON body without a file
		if err := c.BodyParser(input); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	} else {
		if v := c.FormValue("due_date"); v != "" {
			due, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return response.BadRequest(c, "Invalid due_date, expected RFC3339")
			}
			input.DueDate = &due
		}
		if v := c.FormValue("owner_id"); v != "" {
			id, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return response.BadRequest(c, "Invalid owner_id")
			}
			ownerID := uint(id)
			input.OwnerID = &ownerID
		}
	}

	var upload *services.AttachmentUpload
	if file, err := c.FormFile("attachment"); err == nil && file != nil {
		f, err := file.Open()
		if err != nil {
			return response.BadRequest(c, "Could not read attachment")
		}
		defer f.Close()
		upload = &services.AttachmentUpload{
			Filename:    file.Filename,
			ContentType: file.Header.Get("Content-Type"),
			Size:        file.Size,
			Reader:      f,
		}
	}

	result, err := h.taskService.CreateTask(c.Context(), actor, input, upload)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOwnerRequired):
			return response.ValidationFailed(c, map[string]string{"owner_id": "admin must assign a distinct owner"})
		case errors.Is(err, domain.ErrValidation):
			return response.ValidationFailed(c, map[string]string{"input": err.Error()})
		default:
			return response.InternalServerError(c, "Failed to create task")
		}
	}

	message := "Task created successfully"
	if result.Warning != "" {
		message = result.Warning
	}

	return response.Created(c, message, fiber.Map{"task": result.Task})
}

// ListTasks handles task listing with filters
// @Summary List tasks
// @Description List tasks visible to the caller with capability flags
// @Tags Tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param status query string false "Filter by status"
// @Param priority query string false "Filter by priority"
// @Param search query string false "Search in title"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /tasks [get]
func (h *TaskHandler) ListTasks(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c)

	input := services.ListTasksInput{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Search:   c.Query("search"),
	}
	if v := c.Query("owner_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			ownerID := uint(id)
			input.OwnerID = &ownerID
		}
	}

	tasks, total, err := h.taskService.ListTasks(c.Context(), actor, input, params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list tasks")
	}

	return response.Success(c, "Tasks retrieved successfully", fiber.Map{
		"tasks":      tasks,
		"pagination": pagination.GetMeta(params, total),
	})
}

// GetTask handles fetching a single task
// @Summary Get task
// @Description Get a task the caller may view
// @Tags Tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /tasks/{id} [get]
func (h *TaskHandler) GetTask(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	taskID, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid task ID")
	}

	task, err := h.taskService.GetTask(c.Context(), actor, taskID)
	if err != nil {
		return taskError(c, err, "Failed to get task")
	}

	return response.Success(c, "Task retrieved successfully", fiber.Map{"task": task})
}

// UpdateTask handles partial task updates
// @Summary Update task
// @Description Partially update a task; omitted fields keep their stored values
// @Tags Tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /tasks/{id} [put]
func (h *TaskHandler) UpdateTask(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	taskID, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid task ID")
	}

	var input services.UpdateTaskInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	task, err := h.taskService.UpdateTask(c.Context(), actor, taskID, &input)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return response.ValidationFailed(c, map[string]string{"input": err.Error()})
		}
		return taskError(c, err, "Failed to update task")
	}

	return response.Success(c, "Task updated successfully", fiber.Map{"task": task})
}

// DeleteTask handles task deletion
// @Summary Delete task
// @Description Delete a task together with its comments and attachments
// @Tags Tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	taskID, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid task ID")
	}

	if err := h.taskService.DeleteTask(c.Context(), actor, taskID); err != nil {
		return taskError(c, err, "Failed to delete task")
	}

	return response.Success(c, "Task deleted successfully", nil)
}

// Summary handles the per-status task counts
// @Summary Task summary
// @Description Count tasks by status, scoped to the caller unless admin
// @Tags Tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /tasks/summary [get]
func (h *TaskHandler) Summary(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	summary, err := h.taskService.Summary(c.Context(), actor)
	if err != nil {
		return response.InternalServerError(c, "Failed to get summary")
	}

	return response.Success(c, "Summary retrieved successfully", fiber.Map{"summary": summary})
}

// UploadAttachment handles adding a PDF to an existing task
// @Summary Upload attachment
// @Description Attach a further PDF to a task
// @Tags Tasks
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 201 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /tasks/{id}/attachments [post]
func (h *TaskHandler) UploadAttachment(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	taskID, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid task ID")
	}

	file, err := c.FormFile("attachment")
	if err != nil {
		return response.BadRequest(c, "Attachment file is required")
	}
	f, err := file.Open()
	if err != nil {
		return response.BadRequest(c, "Could not read attachment")
	}
	defer f.Close()

	upload := &services.AttachmentUpload{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		Reader:      f,
	}

	attachment, err := h.taskService.AddAttachment(c.Context(), actor, taskID, upload)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return response.ValidationFailed(c, map[string]string{"attachment": err.Error()})
		}
		return taskError(c, err, "Failed to upload attachment")
	}

	return response.Created(c, "Attachment uploaded successfully", fiber.Map{"attachment": attachment})
}

// DownloadAttachment handles attachment download
// @Summary Download attachment
// @Description Stream an attachment's bytes; admin or parent task owner only
// @Tags Tasks
// @Produce octet-stream
// @Security BearerAuth
// @Param id path int true "Attachment ID"
// @Success 200 {file} binary
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 410 {object} response.Response
// @Router /tasks/attachments/{id} [get]
func (h *TaskHandler) DownloadAttachment(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	attachmentID, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid attachment ID")
	}

	attachment, reader, err := h.taskService.DownloadAttachment(c.Context(), actor, attachmentID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAttachmentNotFound):
			return response.NotFound(c, "Attachment not found")
		case errors.Is(err, domain.ErrForbidden):
			return response.Forbidden(c, "You don't have permission to download this attachment")
		case errors.Is(err, domain.ErrFileMissing):
			return response.Gone(c, "The file is no longer available on the server")
		default:
			return response.InternalServerError(c, "Failed to download attachment")
		}
	}

	c.Set("Content-Type", "application/pdf")
	c.Set("Content-Disposition", `attachment; filename="`+attachment.OriginalName+`"`)
	return c.SendStream(reader)
}

// AddComment handles commenting on a task
// @Summary Add comment
// @Description Comment on a task; the owner is notified unless they wrote it
// @Tags Comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Param body body CommentRequest true "Comment content"
// @Success 201 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /tasks/{id}/comments [post]
func (h *TaskHandler) AddComment(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	taskID, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid task ID")
	}

	var req CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	comment, err := h.commentService.AddComment(c.Context(), actor, taskID, req.Content)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return response.ValidationFailed(c, map[string]string{"content": err.Error()})
		}
		return taskError(c, err, "Failed to add comment")
	}

	return response.Created(c, "Comment added successfully", fiber.Map{"comment": comment})
}

// ListComments handles listing a task's comments
// @Summary List comments
// @Description List a task's comments, oldest first
// @Tags Comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /tasks/{id}/comments [get]
func (h *TaskHandler) ListComments(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	taskID, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid task ID")
	}

	params := pagination.GetParams(c)

	comments, total, err := h.commentService.ListComments(c.Context(), actor, taskID, params.Offset, params.Limit)
	if err != nil {
		return taskError(c, err, "Failed to list comments")
	}

	return response.Success(c, "Comments retrieved successfully", fiber.Map{
		"comments":   comments,
		"pagination": pagination.GetMeta(params, total),
	})
}

// EditComment handles editing a comment
// @Summary Edit comment
// @Description Edit a comment's content; flags it edited permanently
// @Tags Comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Param body body CommentRequest true "New content"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /tasks/comments/{id} [put]
func (h *TaskHandler) EditComment(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	commentID, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid comment ID")
	}

	var req CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	comment, err := h.commentService.EditComment(c.Context(), actor, commentID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			return response.ValidationFailed(c, map[string]string{"content": err.Error()})
		case errors.Is(err, domain.ErrCommentNotFound):
			return response.NotFound(c, "Comment not found")
		case errors.Is(err, domain.ErrForbidden):
			return response.Forbidden(c, "You don't have permission to edit this comment")
		default:
			return response.InternalServerError(c, "Failed to edit comment")
		}
	}

	return response.Success(c, "Comment updated successfully", fiber.Map{"comment": comment})
}

// DeleteComment handles deleting a comment
// @Summary Delete comment
// @Description Delete a comment; admin or its author only
// @Tags Comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /tasks/comments/{id} [delete]
func (h *TaskHandler) DeleteComment(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	commentID, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid comment ID")
	}

	if err := h.commentService.DeleteComment(c.Context(), actor, commentID); err != nil {
		switch {
		case errors.Is(err, domain.ErrCommentNotFound):
			return response.NotFound(c, "Comment not found")
		case errors.Is(err, domain.ErrForbidden):
			return response.Forbidden(c, "You don't have permission to delete this comment")
		default:
			return response.InternalServerError(c, "Failed to delete comment")
		}
	}

	return response.Success(c, "Comment deleted successfully", nil)
}

// taskError maps the shared task error cases to HTTP responses
func taskError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		return response.NotFound(c, "Task not found")
	case errors.Is(err, domain.ErrForbidden):
		return response.Forbidden(c, "You don't have permission for this task")
	default:
		return response.InternalServerError(c, fallback)
	}
}

// actorFromContext builds the service actor from auth middleware locals
func actorFromContext(c *fiber.Ctx) (services.Actor, error) {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return services.Actor{}, errors.New("missing auth context")
	}
	role, _ := c.Locals("role").(string)

	return services.Actor{ID: userID, Role: role}, nil
}

// paramID parses a positive integer path parameter
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}
