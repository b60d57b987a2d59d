package services

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/angep72/Community-saver/internal/adapters/persistence/repositories"
	"github.com/angep72/Community-saver/internal/core/domain"
)

// TotalsService recomputes the per-member running totals from the raw ledger
// and persists them on the user row. The totals are read optimizations: the
// allocator and treasury never trust them, so a failed recompute degrades a
// display figure, nothing more. ReconcileService re-runs all of them nightly.
type TotalsService struct {
	userRepo    repositories.UserRepository
	contribRepo repositories.ContributionRepository
	loanRepo    repositories.LoanRepository
	penaltyRepo repositories.PenaltyRepository
}

// NewTotalsService creates a new totals service
func NewTotalsService(
	userRepo repositories.UserRepository,
	contribRepo repositories.ContributionRepository,
	loanRepo repositories.LoanRepository,
	penaltyRepo repositories.PenaltyRepository,
) *TotalsService {
	return &TotalsService{
		userRepo:    userRepo,
		contribRepo: contribRepo,
		loanRepo:    loanRepo,
		penaltyRepo: penaltyRepo,
	}
}

// Recompute rebuilds one member's totals from the ledger and persists them.
// Contributions count every non-cancelled entry, loans count principal across
// every status, penalties count pending and paid but not waived ones.
func (s *TotalsService) Recompute(ctx context.Context, userID uint) (*domain.MemberTotals, error) {
	contributions, err := s.contribRepo.SumNonCancelledByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	loans, err := s.loanRepo.SumPrincipalByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	penalties, err := s.penaltyRepo.SumByUserAndStatuses(ctx, userID,
		[]domain.PenaltyStatus{domain.PenaltyPending, domain.PenaltyPaid})
	if err != nil {
		return nil, err
	}

	totals := &domain.MemberTotals{
		Contributions: Round2(contributions),
		Loans:         Round2(loans),
		Penalties:     Round2(penalties),
	}

	if err := s.userRepo.UpdateTotals(ctx, userID, *totals); err != nil {
		return nil, err
	}

	return totals, nil
}

// RefreshAfterWrite recomputes totals after a ledger mutation without ever
// failing the caller. The authoritative write has already committed; a
// recompute failure here is logged and repaired by the nightly reconcile.
func (s *TotalsService) RefreshAfterWrite(ctx context.Context, userID uint) {
	if _, err := s.Recompute(ctx, userID); err != nil {
		log.WithError(err).WithField("user_id", userID).
			Warn("totals recompute failed, will be reconciled")
	}
}

// RecomputeAll walks every user and rebuilds their totals. Used by the
// nightly reconcile job.
func (s *TotalsService) RecomputeAll(ctx context.Context) (int, error) {
	const batch = 200

	repaired := 0
	for offset := 0; ; offset += batch {
		users, _, err := s.userRepo.List(ctx, repositories.UserFilter{}, offset, batch)
		if err != nil {
			return repaired, err
		}
		if len(users) == 0 {
			return repaired, nil
		}

		for _, user := range users {
			if _, err := s.Recompute(ctx, user.ID); err != nil {
				log.WithError(err).WithField("user_id", user.ID).
					Warn("totals reconcile failed for user")
				continue
			}
			repaired++
		}

		if len(users) < batch {
			return repaired, nil
		}
	}
}
