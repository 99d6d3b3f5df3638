package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/PriyalGandhi19/taskmanager/internal/adapters/http/middleware"
	"github.com/PriyalGandhi19/taskmanager/internal/adapters/http/routes"
	"github.com/PriyalGandhi19/taskmanager/internal/adapters/persistence/models"
	"github.com/PriyalGandhi19/taskmanager/internal/config"

	"github.com/gofiber/fiber/v2"

	_ "github.com/PriyalGandhi19/taskmanager/docs" // Swagger docs
)

// @title Task Manager API
// @version 1.0
// @description Role-based task management backend with email-verified onboarding
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@taskmanager.local

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	log.Println("✅ Database migration completed")

	// Seed the first admin account
	if err := config.NewSeeder(db, cfg).Run(); err != nil {
		log.Printf("⚠️ Warning: Failed to seed database: %v", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Task Manager API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
		BodyLimit:    12 * 1024 * 1024, // headroom over the 10MB attachment cap
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes (pass db and cfg for dependency injection)
	reminderService := routes.Setup(app, db, cfg)

	// Scheduled jobs: due reminders and token cleanup
	reminderService.Start()
	defer reminderService.Stop()

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
