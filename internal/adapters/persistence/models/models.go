package models

import (
	"time"

	"gorm.io/gorm"
)

// ============================================================
// Auth & User Tables
// ============================================================

// User represents users table
type User struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Email           string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash    string    `gorm:"size:255;not null" json:"-"`
	Role            string    `gorm:"size:20;not null" json:"role"`
	IsActive        bool      `gorm:"default:true" json:"is_active"`
	EmailVerified   bool      `gorm:"default:false" json:"email_verified"`
	MustSetPassword bool      `gorm:"default:false" json:"must_set_password"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID              uint      `json:"id"`
	Email           string    `json:"email"`
	Role            string    `json:"role"`
	IsActive        bool      `json:"is_active"`
	EmailVerified   bool      `json:"email_verified"`
	MustSetPassword bool      `json:"must_set_password"`
	CreatedAt       time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:              u.ID,
		Email:           u.Email,
		Role:            u.Role,
		IsActive:        u.IsActive,
		EmailVerified:   u.EmailVerified,
		MustSetPassword: u.MustSetPassword,
		CreatedAt:       u.CreatedAt,
	}
}

// RefreshToken represents refresh_tokens table.
// Only the SHA-256 digest of the opaque secret is stored. A user may hold
// several live tokens at once (multi-device); expired rows stay inert.
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:64;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(rt.ExpiresAt)
}

// One-time token kinds
const (
	TokenKindVerifyEmail   = "verify_email"
	TokenKindPasswordReset = "password_reset"
	TokenKindSetPassword   = "set_password"
)

// OneTimeToken represents one_time_tokens table.
// At most one unused token per (user, kind); issuing a new one marks all
// prior unused tokens of that kind used within the same transaction.
type OneTimeToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Kind      string    `gorm:"size:20;not null;index" json:"kind"`
	TokenHash string    `gorm:"size:64;not null;index" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Used      bool      `gorm:"default:false" json:"used"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
}

func (OneTimeToken) TableName() string {
	return "one_time_tokens"
}

// ============================================================
// Task Tables
// ============================================================

// Task represents tasks table
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:120;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Status      string     `gorm:"size:20;not null;default:'PENDING'" json:"status"`
	OwnerID     uint       `gorm:"not null;index" json:"owner_id"`
	CreatedBy   uint       `gorm:"not null" json:"created_by"`
	DueDate     *time.Time `json:"due_date"`
	Priority    string     `gorm:"size:10;not null;default:'MEDIUM'" json:"priority"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Owner   *User `gorm:"foreignKey:OwnerID" json:"-"`
	Creator *User `gorm:"foreignKey:CreatedBy" json:"-"`
}

func (Task) TableName() string {
	return "tasks"
}

// TaskAttachment represents task_attachments table (append-only)
type TaskAttachment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TaskID       uint      `gorm:"not null;index" json:"task_id"`
	OriginalName string    `gorm:"size:255;not null" json:"original_name"`
	StorageName  string    `gorm:"size:100;not null" json:"-"`
	ContentType  string    `gorm:"size:100" json:"content_type"`
	SizeBytes    int64     `gorm:"not null" json:"size_bytes"`
	UploadedBy   uint      `gorm:"not null" json:"uploaded_by"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`

	Task *Task `gorm:"foreignKey:TaskID" json:"-"`
}

func (TaskAttachment) TableName() string {
	return "task_attachments"
}

// TaskComment represents task_comments table
type TaskComment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TaskID    uint      `gorm:"not null;index" json:"task_id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	IsEdited  bool      `gorm:"default:false" json:"is_edited"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Task *Task `gorm:"foreignKey:TaskID" json:"-"`
	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (TaskComment) TableName() string {
	return "task_comments"
}

// CommentResponse DTO (includes the author's email for display)
type CommentResponse struct {
	ID        uint      `json:"id"`
	TaskID    uint      `json:"task_id"`
	UserID    uint      `json:"user_id"`
	UserEmail string    `json:"user_email"`
	Content   string    `json:"content"`
	IsEdited  bool      `json:"is_edited"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *TaskComment) ToResponse() *CommentResponse {
	resp := &CommentResponse{
		ID:        c.ID,
		TaskID:    c.TaskID,
		UserID:    c.UserID,
		Content:   c.Content,
		IsEdited:  c.IsEdited,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.User != nil {
		resp.UserEmail = c.User.Email
	}
	return resp
}

// Notification represents notifications table.
// is_read only ever flips false to true.
type Notification struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RecipientID uint      `gorm:"not null;index" json:"recipient_id"`
	TaskID      *uint     `gorm:"index" json:"task_id"`
	Type        string    `gorm:"size:20;not null" json:"type"`
	Message     string    `gorm:"size:255;not null" json:"message"`
	IsRead      bool      `gorm:"default:false" json:"is_read"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`

	Recipient *User `gorm:"foreignKey:RecipientID" json:"-"`
}

func (Notification) TableName() string {
	return "notifications"
}

// ============================================================
// Audit Tables
// ============================================================

// AuthActivity represents auth_activity table (login/logout trail).
// UserID is nil for failed logins so attempted emails never link to rows.
type AuthActivity struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *uint     `gorm:"index" json:"user_id"`
	Email     string    `gorm:"size:255;not null" json:"email"`
	Event     string    `gorm:"size:20;not null;index" json:"event"`
	IPAddress string    `gorm:"size:50" json:"ip_address"`
	UserAgent string    `gorm:"size:255" json:"user_agent"`
	Success   bool      `gorm:"default:true" json:"success"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (AuthActivity) TableName() string {
	return "auth_activity"
}

// AuditLog represents audit_log table
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ActorID   uint      `gorm:"index" json:"actor_id"`
	Action    string    `gorm:"size:50;not null;index" json:"action"`
	Entity    string    `gorm:"size:50;not null;index" json:"entity"`
	EntityID  uint      `json:"entity_id"`
	Payload   string    `gorm:"type:text" json:"payload"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Actor *User `gorm:"foreignKey:ActorID" json:"-"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit actions
const (
	AuditCreateUser = "CREATE_USER"
	AuditCreateTask = "CREATE_TASK"
	AuditUpdateTask = "UPDATE_TASK"
	AuditDeleteTask = "DELETE_TASK"
)

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&OneTimeToken{},
		&Task{},
		&TaskAttachment{},
		&TaskComment{},
		&Notification{},
		&AuthActivity{},
		&AuditLog{},
	)
}
