package routes

import (
	"log"

	"github.com/PriyalGandhi19/taskmanager/internal/adapters/http/handlers"
	"github.com/PriyalGandhi19/taskmanager/internal/adapters/http/middleware"
	"github.com/PriyalGandhi19/taskmanager/internal/adapters/persistence/repositories"
	"github.com/PriyalGandhi19/taskmanager/internal/config"
	"github.com/PriyalGandhi19/taskmanager/internal/core/services"
	"github.com/PriyalGandhi19/taskmanager/internal/pkg/googleauth"
	"github.com/PriyalGandhi19/taskmanager/internal/pkg/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Setup configures all routes for the application and returns the
// background reminder service so main can manage its lifecycle
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) *services.ReminderService {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	oneTimeTokenRepo := repositories.NewOneTimeTokenRepository(db)
	taskRepo := repositories.NewTaskRepository(db)
	commentRepo := repositories.NewCommentRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	attachmentRepo := repositories.NewAttachmentRepository(db)
	authActivityRepo := repositories.NewAuthActivityRepository(db)
	auditLogRepo := repositories.NewAuditLogRepository(db)

	// File store for task attachments
	fileStore, err := storage.NewLocalStore(cfg.Upload.Dir)
	if err != nil {
		log.Fatalf("❌ Failed to initialize file store: %v", err)
	}

	// Outbound collaborators
	mailer := services.NewMailer(cfg)
	googleVerifier := &googleauth.Verifier{ClientID: cfg.Google.ClientID}

	// Initialize services
	authService := services.NewAuthService(
		userRepo, refreshTokenRepo, oneTimeTokenRepo, authActivityRepo,
		mailer, googleVerifier, cfg,
	)
	userService := services.NewUserService(
		userRepo, oneTimeTokenRepo, auditLogRepo, authActivityRepo,
		attachmentRepo, fileStore, mailer, cfg,
	)
	taskService := services.NewTaskService(
		taskRepo, attachmentRepo, notificationRepo, userRepo, auditLogRepo,
		fileStore, mailer,
	)
	commentService := services.NewCommentService(commentRepo, taskRepo, notificationRepo)
	notificationService := services.NewNotificationService(notificationRepo)
	reminderService := services.NewReminderService(taskService, refreshTokenRepo)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	taskHandler := handlers.NewTaskHandler(taskService, commentService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API group
	api := app.Group("/api")

	// Auth routes
	authRoutes := api.Group("/auth")
	setupAuthRoutes(authRoutes, authHandler, cfg)

	// Task routes (authenticated)
	taskRoutes := api.Group("/tasks")
	taskRoutes.Use(middleware.AuthMiddleware(cfg))
	setupTaskRoutes(taskRoutes, taskHandler)

	// Notification routes (authenticated)
	notificationRoutes := api.Group("/notifications")
	notificationRoutes.Use(middleware.AuthMiddleware(cfg))
	setupNotificationRoutes(notificationRoutes, notificationHandler)

	// Admin routes (ADMIN only)
	adminRoutes := api.Group("/admin")
	adminRoutes.Use(middleware.AuthMiddleware(cfg))
	adminRoutes.Use(middleware.AdminOnly())
	setupAdminRoutes(adminRoutes, userHandler)

	return reminderService
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes with stricter rate limits
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/google", middleware.AuthRateLimiter(), handler.GoogleLogin)
	router.Post("/refresh", middleware.AuthRateLimiter(), handler.RefreshToken)
	router.Post("/forgot-password", middleware.StrictRateLimiter(), handler.ForgotPassword)
	router.Post("/reset-password", middleware.StrictRateLimiter(), handler.ResetPassword)
	router.Post("/verify-email", middleware.StrictRateLimiter(), handler.VerifyEmail)
	router.Post("/set-password", middleware.StrictRateLimiter(), handler.SetPassword)

	// Protected routes
	router.Get("/me", middleware.AuthMiddleware(cfg), middleware.NoCache(), handler.Me)
	router.Post("/logout", middleware.AuthMiddleware(cfg), handler.Logout)
	router.Post("/logout-all", middleware.AuthMiddleware(cfg), handler.LogoutAll)
}

// setupTaskRoutes configures task routes
func setupTaskRoutes(router fiber.Router, handler *handlers.TaskHandler) {
	router.Post("/", handler.CreateTask)
	router.Get("/", handler.ListTasks)
	router.Get("/summary", middleware.SummaryCache(), handler.Summary)
	router.Get("/attachments/:id", handler.DownloadAttachment)
	router.Put("/comments/:id", handler.EditComment)
	router.Delete("/comments/:id", handler.DeleteComment)
	router.Get("/:id", handler.GetTask)
	router.Put("/:id", handler.UpdateTask)
	router.Delete("/:id", handler.DeleteTask)
	router.Post("/:id/attachments", handler.UploadAttachment)
	router.Post("/:id/comments", handler.AddComment)
	router.Get("/:id/comments", handler.ListComments)
}

// setupNotificationRoutes configures notification routes
func setupNotificationRoutes(router fiber.Router, handler *handlers.NotificationHandler) {
	router.Get("/", handler.List)
	router.Get("/unread-count", handler.UnreadCount)
	router.Patch("/read-all", handler.MarkAllRead)
	router.Patch("/:id/read", handler.MarkRead)
}

// setupAdminRoutes configures admin routes
func setupAdminRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Post("/users", handler.CreateUser)
	router.Get("/users", handler.ListUsers)
	router.Get("/audit-logs", handler.ListAuditLogs)
	router.Get("/auth-activity", handler.ListAuthActivity)
	router.Post("/send-document", handler.SendDocument)
}
