package services

import (
	"context"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/angep72/Community-saver/internal/adapters/persistence/repositories"
	"github.com/angep72/Community-saver/internal/core/domain"
)

// MemberAllocation is one member's line in the allocation report.
type MemberAllocation struct {
	UserID             uint    `json:"user_id"`
	Name               string  `json:"name"`
	BranchID           *uint   `json:"branch_id,omitempty"`
	TotalContributions float64 `json:"total_contributions"`
	SharePercent       float64 `json:"share_percent"`
	RealizedInterest   float64 `json:"realized_interest"`
	PendingInterest    float64 `json:"pending_interest"`
	TotalInterest      float64 `json:"total_interest"`
}

// AllocationReport distributes the group's interest and penalty income across
// members in proportion to their confirmed savings.
type AllocationReport struct {
	GeneratedAt    time.Time           `json:"generated_at"`
	Pool           float64             `json:"pool"`
	RealizedIncome float64             `json:"realized_income"`
	PendingIncome  float64             `json:"pending_income"`
	Members        []*MemberAllocation `json:"members"`
}

// AllocationService builds the interest allocation report.
//
// Each income event is split across members by their share of the confirmed
// contribution pool as it stood on the event's date; savings deposited after
// an event earn nothing from it. Income that is booked but not yet realized
// (interest on outstanding loans, unpaid penalties) is projected at today's
// shares.
type AllocationService struct {
	userRepo    repositories.UserRepository
	contribRepo repositories.ContributionRepository
	loanRepo    repositories.LoanRepository
	penaltyRepo repositories.PenaltyRepository
	cache       ReportCache
}

// NewAllocationService creates a new allocation service
func NewAllocationService(
	userRepo repositories.UserRepository,
	contribRepo repositories.ContributionRepository,
	loanRepo repositories.LoanRepository,
	penaltyRepo repositories.PenaltyRepository,
	cache ReportCache,
) *AllocationService {
	return &AllocationService{
		userRepo:    userRepo,
		contribRepo: contribRepo,
		loanRepo:    loanRepo,
		penaltyRepo: penaltyRepo,
		cache:       cache,
	}
}

// Report returns the allocation report, serving a cached snapshot when one is
// still valid.
func (s *AllocationService) Report(ctx context.Context) (*AllocationReport, error) {
	if s.cache != nil {
		var cached AllocationReport
		hit, err := s.cache.GetJSON(ctx, CacheKeyAllocation, &cached)
		if err != nil {
			log.WithError(err).Warn("allocation report cache read failed")
		} else if hit {
			return &cached, nil
		}
	}

	report, err := s.build(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, CacheKeyAllocation, report); err != nil {
			log.WithError(err).Warn("allocation report cache write failed")
		}
	}
	return report, nil
}

func (s *AllocationService) build(ctx context.Context) (*AllocationReport, error) {
	members, err := s.userRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	// Already ordered by date; the sweep below walks this slice exactly once.
	contributions, err := s.contribRepo.ListConfirmedByDate(ctx)
	if err != nil {
		return nil, err
	}

	events, realizedIncome, err := s.realizedEvents(ctx)
	if err != nil {
		return nil, err
	}

	pendingIncome, err := s.pendingIncome(ctx)
	if err != nil {
		return nil, err
	}

	balances := make(map[uint]float64, len(members))
	pool := 0.0
	next := 0

	// advance folds every contribution dated on or before the cutoff into the
	// running balances.
	advance := func(cutoff time.Time) {
		for next < len(contributions) && !contributions[next].Date.After(cutoff) {
			c := contributions[next]
			balances[c.UserID] += c.Amount
			pool += c.Amount
			next++
		}
	}

	realized := make(map[uint]float64)
	for _, ev := range events {
		advance(ev.Date)
		if pool <= 0 {
			// Nothing was saved yet when this income landed; there is no one
			// to credit it to.
			continue
		}
		for userID, balance := range balances {
			if balance == 0 {
				continue
			}
			realized[userID] += ev.Amount * balance / pool
		}
	}

	// Fold in the remaining contributions so shares reflect today's pool.
	advance(time.Now())

	report := &AllocationReport{
		GeneratedAt:    time.Now(),
		Pool:           Round2(pool),
		RealizedIncome: Round2(realizedIncome),
		PendingIncome:  Round2(pendingIncome),
		Members:        make([]*MemberAllocation, 0, len(members)),
	}

	for _, m := range members {
		balance := balances[m.ID]
		line := &MemberAllocation{
			UserID:             m.ID,
			Name:               m.FullName(),
			BranchID:           m.BranchID,
			TotalContributions: Round2(balance),
			RealizedInterest:   Round2(realized[m.ID]),
		}
		if pool > 0 {
			line.SharePercent = Round2(balance / pool * 100)
			line.PendingInterest = Round2(pendingIncome * balance / pool)
		}
		line.TotalInterest = Round2(line.RealizedInterest + line.PendingInterest)
		report.Members = append(report.Members, line)
	}

	sort.Slice(report.Members, func(i, j int) bool {
		return report.Members[i].UserID < report.Members[j].UserID
	})

	return report, nil
}

// realizedEvents collects income that has actually arrived: the interest
// component of repaid loans and paid penalty amounts, each dated at the
// moment the money came in.
func (s *AllocationService) realizedEvents(ctx context.Context) ([]domain.InterestEvent, float64, error) {
	repaid, err := s.loanRepo.ListByStatuses(ctx, []domain.LoanStatus{domain.LoanRepaid})
	if err != nil {
		return nil, 0, err
	}
	paid, err := s.penaltyRepo.ListByStatus(ctx, domain.PenaltyPaid)
	if err != nil {
		return nil, 0, err
	}

	events := make([]domain.InterestEvent, 0, len(repaid)+len(paid))
	total := 0.0

	for _, loan := range repaid {
		interest := loan.InterestAmount()
		if interest <= 0 {
			continue
		}
		date := loan.UpdatedAt
		if loan.RepaidDate != nil {
			date = *loan.RepaidDate
		}
		events = append(events, domain.InterestEvent{Amount: interest, Date: date})
		total += interest
	}
	for _, p := range paid {
		if p.Amount <= 0 {
			continue
		}
		date := p.UpdatedAt
		if p.PaidDate != nil {
			date = *p.PaidDate
		}
		events = append(events, domain.InterestEvent{Amount: p.Amount, Date: date})
		total += p.Amount
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
	return events, total, nil
}

// pendingIncome sums income the group expects but has not collected: interest
// on approved and disbursed loans plus unpaid penalties.
func (s *AllocationService) pendingIncome(ctx context.Context) (float64, error) {
	outstanding, err := s.loanRepo.AggregateByStatuses(ctx, domain.OutstandingLoanStatuses)
	if err != nil {
		return 0, err
	}
	pendingPenalties, err := s.penaltyRepo.SumByStatus(ctx, domain.PenaltyPending)
	if err != nil {
		return 0, err
	}
	return (outstanding.Total - outstanding.Principal) + pendingPenalties, nil
}

// MemberLine returns a single member's line, or nil when the member is not
// part of the report.
func (r *AllocationReport) MemberLine(userID uint) *MemberAllocation {
	for _, m := range r.Members {
		if m.UserID == userID {
			return m
		}
	}
	return nil
}
