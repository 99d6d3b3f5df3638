package config

import (
	"log"

	"github.com/PriyalGandhi19/taskmanager/internal/adapters/persistence/models"
	"github.com/PriyalGandhi19/taskmanager/internal/core/domain"
	"github.com/PriyalGandhi19/taskmanager/internal/pkg/password"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db  *gorm.DB
	cfg *Config
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, cfg *Config) *Seeder {
	return &Seeder{db: db, cfg: cfg}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedAdminUser(); err != nil {
		log.Printf("⚠️ Admin seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedAdminUser seeds the first admin user. The account comes up active
// and verified with a direct password, so it can log in immediately and
// create the rest of the users.
func (s *Seeder) seedAdminUser() error {
	var count int64
	s.db.Model(&models.User{}).Where("role = ?", domain.RoleAdmin).Count(&count)
	if count > 0 {
		return nil // Admin already exists
	}

	email := getEnv("SEED_ADMIN_EMAIL", "admin@taskmanager.local")
	plain := getEnv("SEED_ADMIN_PASSWORD", "admin123456")

	hashedPassword, err := password.Hash(plain)
	if err != nil {
		return err
	}

	admin := &models.User{
		Email:           email,
		PasswordHash:    hashedPassword,
		Role:            domain.RoleAdmin,
		IsActive:        true,
		EmailVerified:   true,
		MustSetPassword: false,
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Admin user created: %s", admin.Email)
	return nil
}
