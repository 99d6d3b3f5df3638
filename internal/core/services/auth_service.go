package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/PriyalGandhi19/taskmanager/internal/adapters/persistence/models"
	"github.com/PriyalGandhi19/taskmanager/internal/adapters/persistence/repositories"
	"github.com/PriyalGandhi19/taskmanager/internal/config"
	"github.com/PriyalGandhi19/taskmanager/internal/core/domain"
	"github.com/PriyalGandhi19/taskmanager/internal/pkg/googleauth"
	"github.com/PriyalGandhi19/taskmanager/internal/pkg/jwt"
	"github.com/PriyalGandhi19/taskmanager/internal/pkg/password"

	"gorm.io/gorm"
)

const (
	refreshTokenBytes = 48
	oneTimeTokenBytes = 32
)

// normalizeEmail trims and lowercases an address before any lookup or insert,
// so casing differences never produce duplicate accounts or missed matches
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GoogleVerifier checks a Google ID token and returns the asserted profile
type GoogleVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*googleauth.Profile, error)
}

// ClientInfo carries request metadata recorded with auth events
type ClientInfo struct {
	IP        string
	UserAgent string
}

// AuthService handles authentication business logic
type AuthService struct {
	userRepo     repositories.UserRepository
	refreshRepo  repositories.RefreshTokenRepository
	tokenRepo    repositories.OneTimeTokenRepository
	activityRepo repositories.AuthActivityRepository
	mailer       Mailer
	google       GoogleVerifier
	cfg          *config.Config
	now          func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repositories.UserRepository,
	refreshRepo repositories.RefreshTokenRepository,
	tokenRepo repositories.OneTimeTokenRepository,
	activityRepo repositories.AuthActivityRepository,
	mailer Mailer,
	google GoogleVerifier,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		refreshRepo:  refreshRepo,
		tokenRepo:    tokenRepo,
		activityRepo: activityRepo,
		mailer:       mailer,
		google:       google,
		cfg:          cfg,
		now:          time.Now,
	}
}

// LoginInput represents login input
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User         *models.UserResponse `json:"user"`
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
}

// RefreshResponse represents refresh response. The refresh token itself
// is not rotated, so only a new access token comes back.
type RefreshResponse struct {
	User        *models.UserResponse `json:"user"`
	AccessToken string               `json:"access_token"`
}

// Login authenticates a user with email and password.
//
// Precondition order is fixed: missing or inactive user fails with the
// generic invalid-credentials error and no audit entry; an unverified
// email and a pending first password each fail with their own error and
// no audit entry; only an actual password mismatch records FAILED_LOGIN.
func (s *AuthService) Login(ctx context.Context, input *LoginInput, client ClientInfo) (*AuthResponse, error) {
	email := normalizeEmail(input.Email)

	// 1. Find user; unknown email is indistinguishable from a bad password
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	// 2. Disabled accounts fail the same generic way
	if !user.IsActive {
		return nil, domain.ErrInvalidCredentials
	}

	// 3. Email must be verified
	if !user.EmailVerified {
		return nil, domain.ErrEmailNotVerified
	}

	// 4. First password must have been set
	if user.MustSetPassword {
		return nil, domain.ErrMustSetPassword
	}

	// 5. Verify password; only this failure is audited
	if !password.Verify(input.Password, user.PasswordHash) {
		s.recordAuth(ctx, nil, email, domain.EventFailedLogin, false, client)
		return nil, domain.ErrInvalidCredentials
	}

	// 6. Issue session
	accessToken, refreshToken, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.recordAuth(ctx, &user.ID, user.Email, domain.EventLogin, true, client)
	log.Printf("✅ User logged in: %s", user.Email)

	return &AuthResponse{
		User:         user.ToResponse(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token stays valid until logout or expiry.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	tokenHash := password.HashToken(refreshToken)

	stored, err := s.refreshRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidOrExpiredToken
		}
		return nil, err
	}

	if stored.IsRevoked() || stored.IsExpired(s.now()) {
		return nil, domain.ErrInvalidOrExpiredToken
	}

	user, err := s.userRepo.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, domain.ErrInvalidOrExpiredToken
	}
	if !user.IsActive {
		return nil, domain.ErrInvalidOrExpiredToken
	}

	accessToken, err := jwt.GenerateAccessToken(
		user.ID, user.Role, user.Email,
		s.cfg.JWT.Secret, s.cfg.JWT.AccessTokenMins,
	)
	if err != nil {
		return nil, err
	}

	return &RefreshResponse{
		User:        user.ToResponse(),
		AccessToken: accessToken,
	}, nil
}

// Logout revokes the supplied refresh token. Revoking an unknown or
// already revoked token is a no-op, so repeated logouts succeed.
func (s *AuthService) Logout(ctx context.Context, refreshToken string, actor *jwt.Claims, client ClientInfo) error {
	tokenHash := password.HashToken(refreshToken)

	if err := s.refreshRepo.RevokeByTokenHash(ctx, tokenHash, s.now()); err != nil {
		return err
	}

	if actor != nil {
		s.recordAuth(ctx, &actor.UserID, actor.Email, domain.EventLogout, true, client)
	}

	log.Printf("✅ User logged out")
	return nil
}

// LogoutAll revokes every active refresh token for a user
func (s *AuthService) LogoutAll(ctx context.Context, userID uint) error {
	if err := s.refreshRepo.RevokeAllByUserID(ctx, userID, s.now()); err != nil {
		return err
	}

	log.Printf("✅ All sessions revoked for user ID: %d", userID)
	return nil
}

// ForgotPassword starts a password reset. It always reports success so
// callers cannot probe which emails are registered.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if !user.IsActive {
		return nil
	}

	plain, err := s.issueOneTimeToken(ctx, user.ID, models.TokenKindPasswordReset, s.cfg.Token.PasswordResetMins)
	if err != nil {
		return err
	}

	go func(to, token string) {
		if err := s.mailer.SendPasswordResetEmail(to, token); err != nil {
			log.Printf("⚠️ Password reset mail to %s failed: %v", to, err)
		}
	}(user.Email, plain)

	return nil
}

// ResetPassword consumes a reset token and stores the new password.
// The must_set_password flag is untouched; a user resetting through
// this path is already active.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := password.ValidatePassword(newPassword); err != nil {
		return err
	}

	stored, err := s.tokenRepo.GetValid(ctx, models.TokenKindPasswordReset, password.HashToken(token), s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrInvalidOrExpiredToken
		}
		return err
	}

	user, err := s.userRepo.GetByID(ctx, stored.UserID)
	if err != nil {
		return domain.ErrInvalidOrExpiredToken
	}

	hashed, err := password.Hash(newPassword)
	if err != nil {
		return err
	}

	user.PasswordHash = hashed
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	if err := s.tokenRepo.MarkUsed(ctx, stored.ID); err != nil {
		return err
	}

	log.Printf("✅ Password reset for user ID: %d", user.ID)
	return nil
}

// VerifyEmail consumes a verification token, marks the email verified
// and issues a set-password token, mailed best effort.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	stored, err := s.tokenRepo.GetValid(ctx, models.TokenKindVerifyEmail, password.HashToken(token), s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrInvalidOrExpiredToken
		}
		return err
	}

	user, err := s.userRepo.GetByID(ctx, stored.UserID)
	if err != nil {
		return domain.ErrInvalidOrExpiredToken
	}

	user.EmailVerified = true
	user.MustSetPassword = true
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	if err := s.tokenRepo.MarkUsed(ctx, stored.ID); err != nil {
		return err
	}

	plain, err := s.issueOneTimeToken(ctx, user.ID, models.TokenKindSetPassword, s.cfg.Token.SetPasswordMins)
	if err != nil {
		return err
	}

	go func(to, token string) {
		if err := s.mailer.SendSetPasswordEmail(to, token); err != nil {
			log.Printf("⚠️ Set-password mail to %s failed: %v", to, err)
		}
	}(user.Email, plain)

	log.Printf("✅ Email verified for user ID: %d", user.ID)
	return nil
}

// SetPassword consumes a set-password token, stores the chosen password
// and activates the account for login.
func (s *AuthService) SetPassword(ctx context.Context, token, newPassword string) error {
	if err := password.ValidatePassword(newPassword); err != nil {
		return err
	}

	stored, err := s.tokenRepo.GetValid(ctx, models.TokenKindSetPassword, password.HashToken(token), s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrInvalidOrExpiredToken
		}
		return err
	}

	user, err := s.userRepo.GetByID(ctx, stored.UserID)
	if err != nil {
		return domain.ErrInvalidOrExpiredToken
	}

	hashed, err := password.Hash(newPassword)
	if err != nil {
		return err
	}

	user.PasswordHash = hashed
	user.MustSetPassword = false
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	if err := s.tokenRepo.MarkUsed(ctx, stored.ID); err != nil {
		return err
	}

	log.Printf("✅ Password set for user ID: %d", user.ID)
	return nil
}

// GoogleLogin signs a user in with a Google ID token. Unknown emails are
// provisioned on the spot as active, verified users with an unusable
// password placeholder, skipping the verify and set-password chain.
func (s *AuthService) GoogleLogin(ctx context.Context, idToken string, client ClientInfo) (*AuthResponse, error) {
	profile, err := s.google.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	email := normalizeEmail(profile.Email)

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		user = &models.User{
			Email:           email,
			PasswordHash:    password.UnusablePassword,
			Role:            domain.RoleA,
			IsActive:        true,
			EmailVerified:   true,
			MustSetPassword: false,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, err
		}
		log.Printf("✅ User auto-provisioned via Google: %s", user.Email)
	}

	if !user.IsActive {
		return nil, domain.ErrInvalidCredentials
	}

	accessToken, refreshToken, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.recordAuth(ctx, &user.ID, user.Email, domain.EventLogin, true, client)
	log.Printf("✅ User logged in via Google: %s", user.Email)

	return &AuthResponse{
		User:         user.ToResponse(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Me returns the authenticated user's profile
func (s *AuthService) Me(ctx context.Context, userID uint) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return user.ToResponse(), nil
}

// issueSession generates an access token and persists a fresh refresh token
func (s *AuthService) issueSession(ctx context.Context, user *models.User) (string, string, error) {
	accessToken, err := jwt.GenerateAccessToken(
		user.ID, user.Role, user.Email,
		s.cfg.JWT.Secret, s.cfg.JWT.AccessTokenMins,
	)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := password.NewOpaqueToken(refreshTokenBytes)
	if err != nil {
		return "", "", err
	}

	record := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: password.HashToken(refreshToken),
		ExpiresAt: s.now().AddDate(0, 0, s.cfg.JWT.RefreshTokenDays),
	}
	if err := s.refreshRepo.Create(ctx, record); err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// issueOneTimeToken creates a one-time token of the given kind, replacing
// any still-unused token of that kind, and returns the plaintext secret
func (s *AuthService) issueOneTimeToken(ctx context.Context, userID uint, kind string, lifetimeMins int) (string, error) {
	plain, err := password.NewOpaqueToken(oneTimeTokenBytes)
	if err != nil {
		return "", err
	}

	record := &models.OneTimeToken{
		UserID:    userID,
		Kind:      kind,
		TokenHash: password.HashToken(plain),
		ExpiresAt: s.now().Add(time.Duration(lifetimeMins) * time.Minute),
	}
	if err := s.tokenRepo.Replace(ctx, record); err != nil {
		return "", err
	}

	return plain, nil
}

// recordAuth writes an auth trail entry. The trail is best effort and
// never fails the request.
func (s *AuthService) recordAuth(ctx context.Context, userID *uint, email, event string, success bool, client ClientInfo) {
	entry := &models.AuthActivity{
		UserID:    userID,
		Email:     email,
		Event:     event,
		IPAddress: client.IP,
		UserAgent: client.UserAgent,
		Success:   success,
	}
	if err := s.activityRepo.Create(ctx, entry); err != nil {
		log.Printf("⚠️ Auth activity write failed: %v", err)
	}
}
