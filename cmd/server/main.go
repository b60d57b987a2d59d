package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angep72/Community-saver/internal/adapters/http/middleware"
	"github.com/angep72/Community-saver/internal/adapters/http/routes"
	"github.com/angep72/Community-saver/internal/adapters/persistence/models"
	"github.com/angep72/Community-saver/internal/adapters/persistence/repositories"
	"github.com/angep72/Community-saver/internal/config"
	"github.com/angep72/Community-saver/internal/core/services"
	"github.com/angep72/Community-saver/internal/pkg/cache"
	"github.com/angep72/Community-saver/internal/pkg/mailer"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	_ "github.com/angep72/Community-saver/docs" // Swagger docs
)

// @title Community Saver API
// @version 1.0
// @description Savings group management backend: members, branches, contributions, loans, penalties, interest allocation and treasury reports.

// @contact.name API Support
// @contact.email support@communitysaver.dev

// @license.name MIT

// @host localhost:3000
// @BasePath /api/v1
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
	log.Info("✅ Database migration completed")

	// Seed the bootstrap admin account
	if err := config.NewSeeder(db, cfg).Run(); err != nil {
		log.Warnf("⚠️ Failed to seed admin account: %v", err)
	}

	// Report cache is optional: when Redis is unreachable the reports are
	// recomputed on every request.
	var reportCache services.ReportCache
	if cfg.Redis.Addr != "" {
		client, err := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, time.Duration(cfg.Redis.TTLMins)*time.Minute)
		if err != nil {
			log.Warnf("⚠️ Redis unavailable, report caching disabled: %v", err)
		} else {
			defer client.Close()
			reportCache = client
		}
	}

	// Mail is optional too: without an SMTP host the notifier logs and moves on.
	notifier := services.NewNotificationService(mailer.New(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}))

	// Start the nightly reconcile scheduler (totals, token cleanup, overdue
	// reminders)
	userRepo := repositories.NewUserRepository(db)
	contribRepo := repositories.NewContributionRepository(db)
	loanRepo := repositories.NewLoanRepository(db)
	penaltyRepo := repositories.NewPenaltyRepository(db)
	totals := services.NewTotalsService(userRepo, contribRepo, loanRepo, penaltyRepo)
	reconcile := services.NewReconcileService(
		totals,
		loanRepo,
		userRepo,
		repositories.NewRefreshTokenRepository(db),
		repositories.NewPasswordResetTokenRepository(db),
		notifier,
	)
	reconcile.Start()
	defer reconcile.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Community Saver API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
		BodyLimit:    10 * 1024 * 1024,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes (pass db and cfg for dependency injection)
	routes.Setup(app, db, cfg, reportCache, notifier)

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Infof("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Errorf("❌ Error during shutdown: %v", err)
	}
	log.Info("✅ Server stopped gracefully")
}
