package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/angep72/Community-saver/internal/adapters/persistence/repositories"
)

// ReconcileService runs the nightly maintenance jobs: recomputing every
// member's running totals from the raw ledgers, purging expired tokens and
// chasing overdue loans. The totals job is the safety net for the
// fire-and-forget refresh that follows each write.
type ReconcileService struct {
	cron             *cron.Cron
	totals           *TotalsService
	loanRepo         repositories.LoanRepository
	userRepo         repositories.UserRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	resetTokenRepo   repositories.PasswordResetTokenRepository
	notifier         Notifier
}

// NewReconcileService creates a new reconcile service
func NewReconcileService(
	totals *TotalsService,
	loanRepo repositories.LoanRepository,
	userRepo repositories.UserRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	resetTokenRepo repositories.PasswordResetTokenRepository,
	notifier Notifier,
) *ReconcileService {
	return &ReconcileService{
		cron:             cron.New(),
		totals:           totals,
		loanRepo:         loanRepo,
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		resetTokenRepo:   resetTokenRepo,
		notifier:         notifier,
	}
}

// Start registers the jobs and launches the scheduler
func (s *ReconcileService) Start() {
	// 02:00 - rebuild member totals from the ledgers
	s.cron.AddFunc("0 2 * * *", s.ReconcileTotals)
	// 03:00 - drop expired refresh and reset tokens
	s.cron.AddFunc("0 3 * * *", s.CleanupTokens)
	// 08:00 - chase loans past their due date
	s.cron.AddFunc("0 8 * * *", s.ScanOverdueLoans)

	s.cron.Start()
	log.Info("🚀 Reconcile scheduler started")
}

// Stop stops the scheduler, waiting for a running job to finish
func (s *ReconcileService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("🛑 Reconcile scheduler stopped")
}

// ReconcileTotals recomputes every member's running totals.
func (s *ReconcileService) ReconcileTotals() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	recomputed, err := s.totals.RecomputeAll(ctx)
	if err != nil {
		log.WithError(err).Error("nightly totals reconcile failed")
		return
	}
	log.Infof("✅ Nightly totals reconcile finished, %d members recomputed", recomputed)
}

// CleanupTokens removes refresh and password reset tokens past their expiry.
func (s *ReconcileService) CleanupTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := s.refreshTokenRepo.DeleteExpired(ctx); err != nil {
		log.WithError(err).Error("refresh token cleanup failed")
	}
	if err := s.resetTokenRepo.DeleteExpired(ctx); err != nil {
		log.WithError(err).Error("password reset token cleanup failed")
	}
	log.Info("🧹 Expired tokens cleaned up")
}

// ScanOverdueLoans logs every disbursed loan whose due date has passed and
// mails the borrower a reminder. Defaulting stays a manual decision; this job
// only surfaces the candidates.
func (s *ReconcileService) ScanOverdueLoans() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	overdue, err := s.loanRepo.ListOverdue(ctx, time.Now())
	if err != nil {
		log.WithError(err).Error("overdue loan scan failed")
		return
	}
	for _, loan := range overdue {
		log.WithFields(log.Fields{
			"loan_id":   loan.ID,
			"user_id":   loan.UserID,
			"due_date":  loan.DueDate.Format("2006-01-02"),
			"remaining": loan.RemainingAmount,
		}).Warn("⏰ Loan past due date")

		borrower, err := s.userRepo.GetByID(ctx, loan.UserID)
		if err != nil {
			log.WithError(err).WithField("loan_id", loan.ID).
				Warn("overdue reminder skipped, borrower lookup failed")
			continue
		}
		if err := s.notifier.LoanOverdue(borrower, loan); err != nil {
			log.WithError(err).WithField("loan_id", loan.ID).
				Warn("overdue reminder could not be sent")
		}
	}
	if len(overdue) > 0 {
		log.Warnf("⏰ %d loans past due date", len(overdue))
	}
}
