package services

import (
	"context"
	"log"
	"time"

	"github.com/PriyalGandhi19/taskmanager/internal/adapters/persistence/repositories"

	"github.com/robfig/cron/v3"
)

// ReminderService runs scheduled background jobs: due-date reminder
// mails every morning and expired refresh token cleanup nightly.
type ReminderService struct {
	taskService *TaskService
	refreshRepo repositories.RefreshTokenRepository
	cron        *cron.Cron
}

// NewReminderService creates a new reminder service
func NewReminderService(taskService *TaskService, refreshRepo repositories.RefreshTokenRepository) *ReminderService {
	return &ReminderService{
		taskService: taskService,
		refreshRepo: refreshRepo,
		cron:        cron.New(),
	}
}

// Start registers the schedules and launches the cron runner
func (s *ReminderService) Start() {
	// 08:00 every day: mail owners of tasks due within 24 hours
	s.cron.AddFunc("0 8 * * *", func() {
		if err := s.taskService.DueSoonReminders(context.Background()); err != nil {
			log.Printf("❌ Due reminder job error: %v", err)
		}
	})

	// 03:00 every day: drop refresh tokens expired more than a week ago
	s.cron.AddFunc("0 3 * * *", func() {
		cutoff := time.Now().AddDate(0, 0, -7)
		if err := s.refreshRepo.DeleteExpired(context.Background(), cutoff); err != nil {
			log.Printf("❌ Token cleanup job error: %v", err)
		}
	})

	s.cron.Start()
	log.Println("🚀 ReminderService started")
}

// Stop stops the cron runner and waits for running jobs
func (s *ReminderService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("🛑 ReminderService stopped")
}
