package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/PriyalGandhi19/taskmanager/internal/config"
	"github.com/PriyalGandhi19/taskmanager/internal/core/domain"
	"github.com/PriyalGandhi19/taskmanager/internal/core/services"
	"github.com/PriyalGandhi19/taskmanager/internal/pkg/jwt"
	"github.com/PriyalGandhi19/taskmanager/internal/pkg/password"
	"github.com/PriyalGandhi19/taskmanager/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *services.AuthService
	cfg         *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cfg:         cfg,
	}
}

// LoginRequest represents login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GoogleLoginRequest represents Google sign-in request body
type GoogleLoginRequest struct {
	IDToken string `json:"id_token"`
}

// EmailRequest represents a body carrying only an email
type EmailRequest struct {
	Email string `json:"email"`
}

// TokenPasswordRequest represents a one-time token plus new password
type TokenPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// TokenRequest represents a body carrying only a one-time token
type TokenRequest struct {
	Token string `json:"token"`
}

// Login handles user login
// @Summary Login user
// @Description Authenticate user and return tokens
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Login credentials"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Email == "" {
		return response.BadRequest(c, "Email is required")
	}
	if req.Password == "" {
		return response.BadRequest(c, "Password is required")
	}

	input := &services.LoginInput{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	}

	result, err := h.authService.Login(c.Context(), input, clientInfo(c))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			return response.Unauthorized(c, "Invalid email or password")
		case errors.Is(err, domain.ErrEmailNotVerified):
			return response.Forbidden(c, "Please verify your email before logging in")
		case errors.Is(err, domain.ErrMustSetPassword):
			return response.Forbidden(c, "Please set your password before logging in")
		default:
			return response.InternalServerError(c, "Failed to login")
		}
	}

	h.setAuthCookies(c, result.AccessToken, result.RefreshToken)

	return response.Success(c, "Login successful", fiber.Map{
		"access_token": result.AccessToken,
		"user":         result.User,
	})
}

// GoogleLogin handles Google sign-in
// @Summary Login with Google
// @Description Authenticate with a Google ID token, auto-provisioning unknown emails
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body GoogleLoginRequest true "Google ID token"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/google [post]
func (h *AuthHandler) GoogleLogin(c *fiber.Ctx) error {
	var req GoogleLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.IDToken == "" {
		return response.BadRequest(c, "ID token is required")
	}

	result, err := h.authService.GoogleLogin(c.Context(), req.IDToken, clientInfo(c))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			return response.Unauthorized(c, "Google sign-in failed")
		default:
			return response.InternalServerError(c, "Failed to login")
		}
	}

	h.setAuthCookies(c, result.AccessToken, result.RefreshToken)

	return response.Success(c, "Login successful", fiber.Map{
		"access_token": result.AccessToken,
		"user":         result.User,
	})
}

// RefreshToken handles token refresh
// @Summary Refresh access token
// @Description Exchange the refresh token cookie for a new access token
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	refreshToken := c.Cookies("refresh_token")
	if refreshToken == "" {
		return response.Unauthorized(c, "Refresh token not found")
	}

	result, err := h.authService.Refresh(c.Context(), refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidOrExpiredToken):
			h.clearAuthCookies(c)
			return response.Unauthorized(c, "Invalid or expired refresh token, please login again")
		default:
			return response.InternalServerError(c, "Failed to refresh token")
		}
	}

	// The refresh token is not rotated; only the access cookie changes
	h.setAccessCookie(c, result.AccessToken)

	return response.Success(c, "Token refreshed successfully", fiber.Map{
		"access_token": result.AccessToken,
		"user":         result.User,
	})
}

// Logout handles user logout
// @Summary Logout user
// @Description Revoke the refresh token and clear auth cookies
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	refreshToken := c.Cookies("refresh_token")
	if refreshToken != "" {
		_ = h.authService.Logout(c.Context(), refreshToken, actorClaims(c), clientInfo(c))
	}

	h.clearAuthCookies(c)

	return response.Success(c, "Logged out successfully", nil)
}

// LogoutAll handles logout from all devices
// @Summary Logout from all devices
// @Description Revoke all refresh tokens for the user
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	if err := h.authService.LogoutAll(c.Context(), userID); err != nil {
		return response.InternalServerError(c, "Failed to logout from all devices")
	}

	h.clearAuthCookies(c)

	return response.Success(c, "Logged out from all devices", nil)
}

// ForgotPassword starts a password reset
// @Summary Request password reset
// @Description Send a password reset link if the email is registered; the response never reveals whether it is
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body EmailRequest true "Account email"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req EmailRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Email == "" {
		return response.BadRequest(c, "Email is required")
	}

	if err := h.authService.ForgotPassword(c.Context(), strings.TrimSpace(req.Email)); err != nil {
		return response.InternalServerError(c, "Failed to process request")
	}

	return response.Success(c, "If the email is registered, a reset link has been sent", nil)
}

// ResetPassword consumes a reset token
// @Summary Reset password
// @Description Set a new password using a reset token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body TokenPasswordRequest true "Reset token and new password"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req TokenPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Token == "" {
		return response.BadRequest(c, "Token is required")
	}

	err := h.authService.ResetPassword(c.Context(), req.Token, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, password.ErrWeakPassword):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, domain.ErrInvalidOrExpiredToken):
			return response.Unauthorized(c, "Invalid or expired token")
		default:
			return response.InternalServerError(c, "Failed to reset password")
		}
	}

	return response.Success(c, "Password reset successfully", nil)
}

// VerifyEmail consumes a verification token
// @Summary Verify email
// @Description Verify an email address and issue a set-password token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body TokenRequest true "Verification token"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	var req TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Token == "" {
		return response.BadRequest(c, "Token is required")
	}

	err := h.authService.VerifyEmail(c.Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidOrExpiredToken):
			return response.Unauthorized(c, "Invalid or expired token")
		default:
			return response.InternalServerError(c, "Failed to verify email")
		}
	}

	return response.Success(c, "Email verified, check your inbox to set your password", nil)
}

// SetPassword consumes a set-password token
// @Summary Set first password
// @Description Choose the first password after email verification
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body TokenPasswordRequest true "Set-password token and password"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/set-password [post]
func (h *AuthHandler) SetPassword(c *fiber.Ctx) error {
	var req TokenPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Token == "" {
		return response.BadRequest(c, "Token is required")
	}

	err := h.authService.SetPassword(c.Context(), req.Token, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, password.ErrWeakPassword):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, domain.ErrInvalidOrExpiredToken):
			return response.Unauthorized(c, "Invalid or expired token")
		default:
			return response.InternalServerError(c, "Failed to set password")
		}
	}

	return response.Success(c, "Password set successfully, you can now log in", nil)
}

// Me returns the current user info
// @Summary Get current user
// @Description Get the currently authenticated user's information
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	user, err := h.authService.Me(c.Context(), userID)
	if err != nil {
		return response.NotFound(c, "User not found")
	}

	return response.Success(c, "User retrieved successfully", fiber.Map{
		"user": user,
	})
}

// setAuthCookies sets access and refresh token cookies
func (h *AuthHandler) setAuthCookies(c *fiber.Ctx, accessToken, refreshToken string) {
	h.setAccessCookie(c, accessToken)

	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		Path:     "/",
		MaxAge:   h.cfg.JWT.RefreshTokenDays * 24 * 60 * 60,
		Secure:   h.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: h.cfg.Cookie.SameSite,
		Domain:   h.cfg.Cookie.Domain,
	})
}

// setAccessCookie sets only the access token cookie
func (h *AuthHandler) setAccessCookie(c *fiber.Ctx, accessToken string) {
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    accessToken,
		Path:     "/",
		MaxAge:   h.cfg.JWT.AccessTokenMins * 60,
		Secure:   h.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: h.cfg.Cookie.SameSite,
		Domain:   h.cfg.Cookie.Domain,
	})
}

// clearAuthCookies clears auth cookies
func (h *AuthHandler) clearAuthCookies(c *fiber.Ctx) {
	for _, name := range []string{"access_token", "refresh_token"} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Now().Add(-1 * time.Hour),
			Secure:   h.cfg.Cookie.Secure,
			HTTPOnly: true,
			SameSite: h.cfg.Cookie.SameSite,
			Domain:   h.cfg.Cookie.Domain,
		})
	}
}

// clientInfo extracts request metadata for the auth trail
func clientInfo(c *fiber.Ctx) services.ClientInfo {
	return services.ClientInfo{
		IP:        c.IP(),
		UserAgent: c.Get("User-Agent"),
	}
}

// actorClaims rebuilds claims from context locals, nil when unauthenticated
func actorClaims(c *fiber.Ctx) *jwt.Claims {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return nil
	}
	email, _ := c.Locals("email").(string)
	role, _ := c.Locals("role").(string)

	return &jwt.Claims{UserID: userID, Email: email, Role: role}
}
