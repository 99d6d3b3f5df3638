package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/PriyalGandhi19/taskmanager/internal/adapters/persistence/models"
	"github.com/PriyalGandhi19/taskmanager/internal/adapters/persistence/repositories"
	"github.com/PriyalGandhi19/taskmanager/internal/config"
	"github.com/PriyalGandhi19/taskmanager/internal/core/domain"
	"github.com/PriyalGandhi19/taskmanager/internal/pkg/password"
	"github.com/PriyalGandhi19/taskmanager/internal/pkg/storage"

	"gorm.io/gorm"
)

// User errors
var (
	ErrEmailTaken  = errors.New("email already registered")
	ErrInvalidRole = errors.New("invalid role")
)

const tempPasswordBytes = 9

// UserService handles the admin user management surface
type UserService struct {
	userRepo     repositories.UserRepository
	tokenRepo    repositories.OneTimeTokenRepository
	auditRepo    repositories.AuditLogRepository
	activityRepo repositories.AuthActivityRepository
	attachRepo   repositories.AttachmentRepository
	files        storage.Store
	mailer       Mailer
	cfg          *config.Config
	now          func() time.Time
}

// NewUserService creates a new user service
func NewUserService(
	userRepo repositories.UserRepository,
	tokenRepo repositories.OneTimeTokenRepository,
	auditRepo repositories.AuditLogRepository,
	activityRepo repositories.AuthActivityRepository,
	attachRepo repositories.AttachmentRepository,
	files storage.Store,
	mailer Mailer,
	cfg *config.Config,
) *UserService {
	return &UserService{
		userRepo:     userRepo,
		tokenRepo:    tokenRepo,
		auditRepo:    auditRepo,
		activityRepo: activityRepo,
		attachRepo:   attachRepo,
		files:        files,
		mailer:       mailer,
		cfg:          cfg,
		now:          time.Now,
	}
}

// CreateUserInput represents admin user creation input
type CreateUserInput struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required"`
}

// CreateUser creates a user in the unverified state with a temporary
// password, issues a verification token and mails both best effort.
func (s *UserService) CreateUser(ctx context.Context, actorID uint, input *CreateUserInput) (*models.UserResponse, error) {
	if !domain.ValidCreateRole(input.Role) {
		return nil, ErrInvalidRole
	}

	email := normalizeEmail(input.Email)

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	tempPassword, err := password.NewOpaqueToken(tempPasswordBytes)
	if err != nil {
		return nil, err
	}
	hashed, err := password.Hash(tempPassword)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:           email,
		PasswordHash:    hashed,
		Role:            input.Role,
		IsActive:        true,
		EmailVerified:   false,
		MustSetPassword: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	plain, err := s.issueVerificationToken(ctx, user.ID)
	if err != nil {
		// The user row exists; surface the token trouble in logs only
		log.Printf("⚠️ Verification token for %s failed: %v", user.Email, err)
	}

	go func(to, temp, token string) {
		if err := s.mailer.SendWelcomeEmail(to, temp); err != nil {
			log.Printf("⚠️ Welcome mail to %s failed: %v", to, err)
		}
		if token == "" {
			return
		}
		if err := s.mailer.SendVerificationEmail(to, token); err != nil {
			log.Printf("⚠️ Verification mail to %s failed: %v", to, err)
		}
	}(user.Email, tempPassword, plain)

	s.recordAudit(ctx, actorID, models.AuditCreateUser, "user", user.ID,
		fmt.Sprintf("created %s with role %s", user.Email, user.Role))

	log.Printf("✅ User created: %s (role %s)", user.Email, user.Role)
	return user.ToResponse(), nil
}

// ListUsers lists users with pagination
func (s *UserService) ListUsers(ctx context.Context, offset, limit int) ([]*models.UserResponse, int64, error) {
	users, total, err := s.userRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]*models.UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, u.ToResponse())
	}
	return responses, total, nil
}

// ListAuditLogs lists audit entries with optional action/entity filters
func (s *UserService) ListAuditLogs(ctx context.Context, action, entity string, offset, limit int) ([]*models.AuditLog, int64, error) {
	return s.auditRepo.List(ctx, action, entity, offset, limit)
}

// ListAuthActivity lists the login/logout trail with optional filters
func (s *UserService) ListAuthActivity(ctx context.Context, email, event string, offset, limit int) ([]*models.AuthActivity, int64, error) {
	return s.activityRepo.List(ctx, email, event, offset, limit)
}

// SendDocumentInput represents send-document input
type SendDocumentInput struct {
	UserID       uint   `json:"user_id" validate:"required"`
	AttachmentID uint   `json:"attachment_id" validate:"required"`
	Subject      string `json:"subject"`
	Message      string `json:"message"`
}

// SendDocument mails a stored task attachment to a user
func (s *UserService) SendDocument(ctx context.Context, input *SendDocumentInput) error {
	user, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return err
	}

	attachment, err := s.attachRepo.GetByID(ctx, input.AttachmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrAttachmentNotFound
		}
		return err
	}

	subject := input.Subject
	if subject == "" {
		subject = "Document from Task Manager"
	}

	err = s.mailer.SendDocumentEmail(
		user.Email, subject, input.Message,
		s.files.Path(attachment.StorageName), attachment.OriginalName,
	)
	if err != nil {
		log.Printf("⚠️ Document mail to %s failed: %v", user.Email, err)
		return domain.ErrInternalServer
	}

	log.Printf("✅ Document %s mailed to %s", attachment.OriginalName, user.Email)
	return nil
}

// issueVerificationToken issues a fresh verify-email token for the user
func (s *UserService) issueVerificationToken(ctx context.Context, userID uint) (string, error) {
	plain, err := password.NewOpaqueToken(oneTimeTokenBytes)
	if err != nil {
		return "", err
	}

	record := &models.OneTimeToken{
		UserID:    userID,
		Kind:      models.TokenKindVerifyEmail,
		TokenHash: password.HashToken(plain),
		ExpiresAt: s.now().Add(time.Duration(s.cfg.Token.VerifyEmailMins) * time.Minute),
	}
	if err := s.tokenRepo.Replace(ctx, record); err != nil {
		return "", err
	}

	return plain, nil
}

// recordAudit writes an audit entry, best effort
func (s *UserService) recordAudit(ctx context.Context, actorID uint, action, entity string, entityID uint, payload string) {
	entry := &models.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Payload:  payload,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		log.Printf("⚠️ Audit write failed: %v", err)
	}
}
