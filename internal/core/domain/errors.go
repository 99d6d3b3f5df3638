package domain

import "errors"

// Common domain errors. Handlers translate these into the HTTP taxonomy:
// validation 422, unauthorized 401, forbidden 403, not found 404,
// conflict 409, invalid/expired token 400, file missing 410.
var (
	ErrValidation            = errors.New("validation failed")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrNotFound              = errors.New("resource not found")
	ErrConflict              = errors.New("duplicate entry")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrFileMissing           = errors.New("file missing on server")
	ErrInternalServer        = errors.New("internal server error")
)

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("please verify your email before logging in")
	ErrMustSetPassword    = errors.New("please set your password first")
	ErrUserInactive       = errors.New("user account is inactive")
)

// Task errors
var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrCommentNotFound    = errors.New("comment not found")
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrOwnerRequired      = errors.New("owner_id is required for admin created task")
)
