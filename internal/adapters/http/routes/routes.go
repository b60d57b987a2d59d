package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/angep72/Community-saver/internal/adapters/http/handlers"
	"github.com/angep72/Community-saver/internal/adapters/http/middleware"
	"github.com/angep72/Community-saver/internal/adapters/persistence/repositories"
	"github.com/angep72/Community-saver/internal/config"
	"github.com/angep72/Community-saver/internal/core/services"
	"github.com/angep72/Community-saver/internal/pkg/storage"
)

// Setup configures all routes for the application. The report cache and
// notifier are built in main: a nil cache disables report caching and a
// disabled mailer turns notices into logged warnings, so the API works
// without Redis or SMTP.
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config, reportCache services.ReportCache, notifier services.Notifier) {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	branchRepo := repositories.NewBranchRepository(db)
	contributionRepo := repositories.NewContributionRepository(db)
	loanRepo := repositories.NewLoanRepository(db)
	penaltyRepo := repositories.NewPenaltyRepository(db)
	auditRepo := repositories.NewAuditLogRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	resetTokenRepo := repositories.NewPasswordResetTokenRepository(db)

	// Shared services: audit trail and the derived per-member totals
	auditService := services.NewAuditService(auditRepo)
	totalsService := services.NewTotalsService(userRepo, contributionRepo, loanRepo, penaltyRepo)

	// Core services
	authService := services.NewAuthService(userRepo, refreshTokenRepo, resetTokenRepo, branchRepo, notifier, cfg)
	userService := services.NewUserService(userRepo, branchRepo, refreshTokenRepo, auditService, notifier)
	branchService := services.NewBranchService(branchRepo, userRepo, auditService)
	contributionService := services.NewContributionService(contributionRepo, penaltyRepo, userRepo, totalsService, auditService, reportCache, cfg)
	loanService := services.NewLoanService(loanRepo, userRepo, totalsService, auditService, notifier, reportCache)
	penaltyService := services.NewPenaltyService(penaltyRepo, userRepo, totalsService, auditService, reportCache)

	// Read-side reports
	allocationService := services.NewAllocationService(userRepo, contributionRepo, loanRepo, penaltyRepo, reportCache)
	treasuryService := services.NewTreasuryService(contributionRepo, loanRepo, penaltyRepo, reportCache)
	dashboardService := services.NewDashboardService(db, reportCache)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	branchHandler := handlers.NewBranchHandler(branchService)
	contributionHandler := handlers.NewContributionHandler(contributionService)
	loanHandler := handlers.NewLoanHandler(loanService)
	penaltyHandler := handlers.NewPenaltyHandler(penaltyService)
	reportHandler := handlers.NewReportHandler(allocationService, treasuryService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	auditHandler := handlers.NewAuditHandler(auditService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	apiV1.Get("/", healthHandler.APIInfo)

	// Auth routes (public)
	authRoutes := apiV1.Group("/auth")
	setupAuthRoutes(authRoutes, authHandler, cfg)

	// Member management routes
	userRoutes := apiV1.Group("/users")
	userRoutes.Use(middleware.AuthMiddleware(cfg))
	setupUserRoutes(userRoutes, userHandler)

	// Profile routes (authenticated users)
	profileRoutes := apiV1.Group("/profile")
	profileRoutes.Use(middleware.AuthMiddleware(cfg))
	setupProfileRoutes(profileRoutes, userHandler)

	// Branch routes
	branchRoutes := apiV1.Group("/branches")
	branchRoutes.Use(middleware.AuthMiddleware(cfg))
	setupBranchRoutes(branchRoutes, branchHandler)

	// Savings ledger routes
	contributionRoutes := apiV1.Group("/contributions")
	contributionRoutes.Use(middleware.AuthMiddleware(cfg))
	setupContributionRoutes(contributionRoutes, contributionHandler)

	// Loan lifecycle routes
	loanRoutes := apiV1.Group("/loans")
	loanRoutes.Use(middleware.AuthMiddleware(cfg))
	setupLoanRoutes(loanRoutes, loanHandler)

	// Penalty routes
	penaltyRoutes := apiV1.Group("/penalties")
	penaltyRoutes.Use(middleware.AuthMiddleware(cfg))
	setupPenaltyRoutes(penaltyRoutes, penaltyHandler)

	// Report routes (Admin only)
	reportRoutes := apiV1.Group("/reports")
	reportRoutes.Use(middleware.AuthMiddleware(cfg))
	reportRoutes.Use(middleware.AdminOnly())
	setupReportRoutes(reportRoutes, reportHandler)

	// Dashboard routes
	dashboardRoutes := apiV1.Group("/dashboard")
	dashboardRoutes.Use(middleware.AuthMiddleware(cfg))
	setupDashboardRoutes(dashboardRoutes, dashboardHandler)

	// Audit trail routes (Admin only)
	auditRoutes := apiV1.Group("/audit-logs")
	auditRoutes.Use(middleware.AuthMiddleware(cfg))
	auditRoutes.Use(middleware.AdminOnly())
	auditRoutes.Get("/", auditHandler.List)

	// Branch report documents (leads and admins)
	if store, err := storage.NewLocalStore(cfg.Upload.Dir); err != nil {
		log.Warnf("⚠️ Document storage unavailable: %v", err)
	} else {
		documentRoutes := apiV1.Group("/documents")
		documentRoutes.Use(middleware.AuthMiddleware(cfg))
		documentRoutes.Use(middleware.LeadOrAdmin())
		setupDocumentRoutes(documentRoutes, handlers.NewDocumentHandler(store))
	}
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes, rate limited against brute force
	router.Post("/register", middleware.AuthRateLimiter(), handler.Register)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)
	router.Post("/forgot-password", middleware.StrictRateLimiter(), handler.ForgotPassword)
	router.Post("/reset-password", middleware.StrictRateLimiter(), handler.ResetPassword)

	// Protected routes
	router.Get("/me", middleware.AuthMiddleware(cfg), handler.Me)
	router.Post("/logout-all", middleware.AuthMiddleware(cfg), handler.LogoutAll)
}

// setupUserRoutes configures member management routes. Listing is for leads
// and admins; approval, role, branch and deletion are admin only.
func setupUserRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/", middleware.LeadOrAdmin(), handler.List)
	router.Get("/:id", handler.Get)

	adminRoutes := router.Group("")
	adminRoutes.Use(middleware.AdminOnly())
	adminRoutes.Post("/:id/approve", handler.Approve)
	adminRoutes.Post("/:id/reject", handler.Reject)
	adminRoutes.Put("/:id", handler.Update)
	adminRoutes.Put("/:id/role", handler.ChangeRole)
	adminRoutes.Put("/:id/status", handler.SetActive)
	adminRoutes.Put("/:id/branch", handler.AssignBranch)
	adminRoutes.Delete("/:id", handler.Delete)
}

// setupProfileRoutes configures profile routes (authenticated)
func setupProfileRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/", handler.GetProfile)
	router.Put("/", handler.UpdateProfile)
}

// setupBranchRoutes configures branch routes. Reading is open to all
// authenticated users; mutations are admin only.
func setupBranchRoutes(router fiber.Router, handler *handlers.BranchHandler) {
	router.Get("/", handler.List)
	router.Get("/:id", handler.Get)

	adminRoutes := router.Group("")
	adminRoutes.Use(middleware.AdminOnly())
	adminRoutes.Post("/", handler.Create)
	adminRoutes.Put("/:id", handler.Update)
	adminRoutes.Put("/:id/lead", handler.AssignLead)
	adminRoutes.Post("/:id/deactivate", handler.Deactivate)
	adminRoutes.Post("/:id/activate", handler.Activate)
	adminRoutes.Delete("/:id", handler.Delete)
}

// setupContributionRoutes configures savings ledger routes. Members record
// and view their own entries; confirmation is for leads and admins, deletion
// for admins.
func setupContributionRoutes(router fiber.Router, handler *handlers.ContributionHandler) {
	router.Post("/", handler.Record)
	router.Get("/", handler.List)
	router.Get("/:id", handler.Get)
	router.Post("/:id/cancel", handler.Cancel)

	router.Post("/:id/confirm", middleware.LeadOrAdmin(), handler.Confirm)
	router.Delete("/:id", middleware.AdminOnly(), handler.Delete)
}

// setupLoanRoutes configures loan lifecycle routes. Members request and view;
// decisions and state transitions are admin only.
func setupLoanRoutes(router fiber.Router, handler *handlers.LoanHandler) {
	router.Post("/", handler.Request)
	router.Get("/", handler.List)
	router.Get("/:id", handler.Get)

	adminRoutes := router.Group("")
	adminRoutes.Use(middleware.AdminOnly())
	adminRoutes.Post("/:id/decide", handler.Decide)
	adminRoutes.Post("/:id/disburse", handler.Disburse)
	adminRoutes.Post("/:id/repay", handler.Repay)
	adminRoutes.Post("/:id/default", handler.Default)
}

// setupPenaltyRoutes configures penalty routes. Members can view and settle
// their own fines; assigning and waiving are for leads and admins, purging
// the book is admin only.
func setupPenaltyRoutes(router fiber.Router, handler *handlers.PenaltyHandler) {
	router.Get("/", handler.List)
	router.Get("/:id", handler.Get)
	router.Post("/:id/pay", handler.Pay)

	router.Post("/", middleware.LeadOrAdmin(), handler.Assign)
	router.Post("/:id/waive", middleware.LeadOrAdmin(), handler.Waive)
	router.Delete("/", middleware.AdminOnly(), handler.DeleteAll)
}

// setupReportRoutes configures financial report routes (Admin only)
func setupReportRoutes(router fiber.Router, handler *handlers.ReportHandler) {
	router.Get("/allocation", handler.Allocation)
	router.Get("/treasury", handler.Treasury)
}

// setupDashboardRoutes configures dashboard routes
func setupDashboardRoutes(router fiber.Router, handler *handlers.DashboardHandler) {
	// Role-appropriate dashboard (all authenticated users)
	router.Get("/", handler.My)

	// Admin dashboard (Admin only)
	router.Get("/admin", middleware.AdminOnly(), handler.Admin)

	// Branch dashboard (lead of that branch or admin)
	router.Get("/branch/:id", middleware.LeadOrAdmin(), handler.Branch)
}

// setupDocumentRoutes configures branch report document routes. Upload,
// listing and download are for leads and admins; deletion is admin only.
func setupDocumentRoutes(router fiber.Router, handler *handlers.DocumentHandler) {
	router.Post("/", handler.Upload)
	router.Get("/", handler.List)
	router.Get("/:name", handler.Download)
	router.Delete("/:name", middleware.AdminOnly(), handler.Delete)
}
