package handlers

import (
	"errors"

	"github.com/PriyalGandhi19/taskmanager/internal/core/domain"
	"github.com/PriyalGandhi19/taskmanager/internal/core/services"
	"github.com/PriyalGandhi19/taskmanager/internal/pkg/pagination"
	"github.com/PriyalGandhi19/taskmanager/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles the admin user management endpoints
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// CreateUserRequest represents admin user creation body
type CreateUserRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// CreateUser handles admin user creation
// @Summary Create user
// @Description Create an unverified user and mail a verification link (Admin only)
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateUserRequest true "New user"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/users [post]
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	actorID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Email == "" {
		return response.BadRequest(c, "Email is required")
	}
	if req.Role == "" {
		return response.BadRequest(c, "Role is required")
	}

	input := &services.CreateUserInput{
		Email: req.Email,
		Role:  req.Role,
	}

	user, err := h.userService.CreateUser(c.Context(), actorID, input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			return response.Conflict(c, "Email already registered")
		case errors.Is(err, services.ErrInvalidRole):
			return response.BadRequest(c, "Role must be A or B")
		default:
			return response.InternalServerError(c, "Failed to create user")
		}
	}

	return response.Created(c, "User created, verification email sent", fiber.Map{
		"user": user,
	})
}

// ListUsers handles listing all users
// @Summary List users
// @Description Get a paginated list of all users (Admin only)
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /admin/users [get]
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	users, total, err := h.userService.ListUsers(c.Context(), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list users")
	}

	return response.Success(c, "Users retrieved successfully", fiber.Map{
		"users":      users,
		"pagination": pagination.GetMeta(params, total),
	})
}

// ListAuditLogs handles the audit trail listing
// @Summary List audit logs
// @Description List audit entries with optional action/entity filters (Admin only)
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param action query string false "Filter by action"
// @Param entity query string false "Filter by entity"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /admin/audit-logs [get]
func (h *UserHandler) ListAuditLogs(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	entries, total, err := h.userService.ListAuditLogs(c.Context(), c.Query("action"), c.Query("entity"), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list audit logs")
	}

	return response.Success(c, "Audit logs retrieved successfully", fiber.Map{
		"audit_logs": entries,
		"pagination": pagination.GetMeta(params, total),
	})
}

// ListAuthActivity handles the login/logout trail listing
// @Summary List auth activity
// @Description List login and logout events with optional filters (Admin only)
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param email query string false "Filter by email"
// @Param event query string false "Filter by event"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /admin/auth-activity [get]
func (h *UserHandler) ListAuthActivity(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	entries, total, err := h.userService.ListAuthActivity(c.Context(), c.Query("email"), c.Query("event"), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list auth activity")
	}

	return response.Success(c, "Auth activity retrieved successfully", fiber.Map{
		"auth_activity": entries,
		"pagination":    pagination.GetMeta(params, total),
	})
}

// SendDocumentRequest represents send-document body
type SendDocumentRequest struct {
	UserID       uint   `json:"user_id"`
	AttachmentID uint   `json:"attachment_id"`
	Subject      string `json:"subject"`
	Message      string `json:"message"`
}

// SendDocument handles mailing a stored attachment to a user
// @Summary Send document
// @Description Mail a stored task attachment to a user (Admin only)
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body SendDocumentRequest true "Recipient and document"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/send-document [post]
func (h *UserHandler) SendDocument(c *fiber.Ctx) error {
	var req SendDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.UserID == 0 || req.AttachmentID == 0 {
		return response.BadRequest(c, "user_id and attachment_id are required")
	}

	input := &services.SendDocumentInput{
		UserID:       req.UserID,
		AttachmentID: req.AttachmentID,
		Subject:      req.Subject,
		Message:      req.Message,
	}

	if err := h.userService.SendDocument(c.Context(), input); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, domain.ErrAttachmentNotFound):
			return response.NotFound(c, "Attachment not found")
		default:
			return response.InternalServerError(c, "Failed to send document")
		}
	}

	return response.Success(c, "Document sent successfully", nil)
}
