package config

import (
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/angep72/Community-saver/internal/adapters/persistence/models"
	"github.com/angep72/Community-saver/internal/core/domain"
	"github.com/angep72/Community-saver/internal/pkg/password"
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
	log.Info("🌱 Running database seeders...")

	if err := s.seedAdminUser(); err != nil {
		log.Warnf("⚠️ Admin seeder skipped: %v", err)
	}

	log.Info("✅ Database seeding completed")
	return nil
}

// seedAdminUser seeds the bootstrap admin account. Runs once: skipped as soon
// as any admin exists. The password comes from SEED_ADMIN_PASSWORD; without
// it nothing is created, so a fresh production database stays locked until an
// operator provides one.
func (s *Seeder) seedAdminUser() error {
	var count int64
	s.db.Model(&models.User{}).Where("role = ?", domain.RoleAdmin).Count(&count)
	if count > 0 {
		return nil // Admin already exists
	}

	if s.cfg.Seed.AdminPassword == "" {
		log.Warn("⚠️ Skipping admin seed: SEED_ADMIN_PASSWORD not set")
		return nil
	}

	hashedPassword, err := password.Hash(s.cfg.Seed.AdminPassword)
	if err != nil {
		return err
	}

	admin := &models.User{
		FirstName:      "System",
		LastName:       "Admin",
		Email:          s.cfg.Seed.AdminEmail,
		Password:       hashedPassword,
		Role:           domain.RoleAdmin,
		ApprovalStatus: domain.ApprovalApproved,
		IsActive:       true,
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Infof("✅ Admin user created: %s", admin.Email)
	return nil
}
