package services

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/angep72/Community-saver/internal/adapters/persistence/repositories"
	"github.com/angep72/Community-saver/internal/core/domain"
)

// TreasuryInputs are the raw ledger aggregates the treasury summary is
// computed from. PaidPenaltyEntries is the sum of the negative
// penalty_payment ledger rows, so it carries its sign.
type TreasuryInputs struct {
	TotalContributions      float64
	OutstandingPrincipal    float64
	OutstandingTotal        float64
	InterestFromRepaidLoans float64
	CollectedPenalties      float64
	PaidPenaltyEntries      float64
	PendingPenalties        float64
}

// TreasurySummary is the group's cash position.
//
// NetAvailable is money in hand right now. FutureBalance adds income that is
// booked but not yet collected. BestFutureBalance additionally assumes every
// outstanding loan is repaid in full.
type TreasurySummary struct {
	GeneratedAt time.Time `json:"generated_at"`

	TotalContributions        float64 `json:"total_contributions"`
	TotalApprovedLoans        float64 `json:"total_approved_loans"`
	TotalToBeRepaid           float64 `json:"total_to_be_repaid"`
	InterestFromApprovedLoans float64 `json:"interest_from_approved_loans"`
	InterestFromRepaidLoans   float64 `json:"interest_from_repaid_loans"`
	CollectedPenalties        float64 `json:"collected_penalties"`
	PaidPenalties             float64 `json:"paid_penalties"`
	PendingPenalties          float64 `json:"pending_penalties"`

	NetAvailable      float64 `json:"net_available"`
	FutureBalance     float64 `json:"future_balance"`
	BestFutureBalance float64 `json:"best_future_balance"`
}

// ComputeTreasury derives the treasury summary from raw aggregates. Penalty
// income appears twice in the inputs on purpose: once as penalty records
// flipping to paid, once as the negative settlement entries in the savings
// ledger. Adding both keeps the net position honest, because the settlement
// entries already reduced TotalContributions' gross counterpart.
func ComputeTreasury(in TreasuryInputs) *TreasurySummary {
	s := &TreasurySummary{
		GeneratedAt:               time.Now(),
		TotalContributions:        Round2(in.TotalContributions),
		TotalApprovedLoans:        Round2(in.OutstandingPrincipal),
		TotalToBeRepaid:           Round2(in.OutstandingTotal),
		InterestFromApprovedLoans: Round2(in.OutstandingTotal - in.OutstandingPrincipal),
		InterestFromRepaidLoans:   Round2(in.InterestFromRepaidLoans),
		CollectedPenalties:        Round2(in.CollectedPenalties),
		PaidPenalties:             Round2(in.PaidPenaltyEntries),
		PendingPenalties:          Round2(in.PendingPenalties),
	}

	net := in.TotalContributions -
		in.OutstandingPrincipal +
		in.InterestFromRepaidLoans +
		in.CollectedPenalties +
		in.PaidPenaltyEntries

	s.NetAvailable = Round2(net)
	s.FutureBalance = Round2(net + s.InterestFromApprovedLoans + in.PendingPenalties)
	s.BestFutureBalance = Round2(net + in.OutstandingTotal + in.PendingPenalties)
	return s
}

// TreasuryService assembles the treasury summary from the ledgers.
type TreasuryService struct {
	contribRepo repositories.ContributionRepository
	loanRepo    repositories.LoanRepository
	penaltyRepo repositories.PenaltyRepository
	cache       ReportCache
}

// NewTreasuryService creates a new treasury service
func NewTreasuryService(
	contribRepo repositories.ContributionRepository,
	loanRepo repositories.LoanRepository,
	penaltyRepo repositories.PenaltyRepository,
	cache ReportCache,
) *TreasuryService {
	return &TreasuryService{
		contribRepo: contribRepo,
		loanRepo:    loanRepo,
		penaltyRepo: penaltyRepo,
		cache:       cache,
	}
}

// Summary returns the treasury summary, serving a cached snapshot when one is
// still valid.
func (s *TreasuryService) Summary(ctx context.Context) (*TreasurySummary, error) {
	if s.cache != nil {
		var cached TreasurySummary
		hit, err := s.cache.GetJSON(ctx, CacheKeyTreasury, &cached)
		if err != nil {
			log.WithError(err).Warn("treasury summary cache read failed")
		} else if hit {
			return &cached, nil
		}
	}

	summary, err := s.build(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, CacheKeyTreasury, summary); err != nil {
			log.WithError(err).Warn("treasury summary cache write failed")
		}
	}
	return summary, nil
}

func (s *TreasuryService) build(ctx context.Context) (*TreasurySummary, error) {
	confirmed, err := s.contribRepo.SumConfirmed(ctx)
	if err != nil {
		return nil, err
	}
	settlements, err := s.contribRepo.SumConfirmedByType(ctx, domain.ContributionPenaltyPayment)
	if err != nil {
		return nil, err
	}

	outstanding, err := s.loanRepo.AggregateByStatuses(ctx, domain.OutstandingLoanStatuses)
	if err != nil {
		return nil, err
	}
	repaid, err := s.loanRepo.AggregateByStatuses(ctx, []domain.LoanStatus{domain.LoanRepaid})
	if err != nil {
		return nil, err
	}

	collected, err := s.penaltyRepo.SumByStatus(ctx, domain.PenaltyPaid)
	if err != nil {
		return nil, err
	}
	pending, err := s.penaltyRepo.SumByStatus(ctx, domain.PenaltyPending)
	if err != nil {
		return nil, err
	}

	return ComputeTreasury(TreasuryInputs{
		// Settlement entries are negative, so subtracting them yields the
		// gross savings figure.
		TotalContributions:      confirmed - settlements,
		OutstandingPrincipal:    outstanding.Principal,
		OutstandingTotal:        outstanding.Total,
		InterestFromRepaidLoans: repaid.Total - repaid.Principal,
		CollectedPenalties:      collected,
		PaidPenaltyEntries:      settlements,
		PendingPenalties:        pending,
	}), nil
}
