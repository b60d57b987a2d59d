package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/angep72/Community-saver/internal/adapters/persistence/models"
	"github.com/angep72/Community-saver/internal/adapters/persistence/repositories"
	"github.com/angep72/Community-saver/internal/core/domain"
	"github.com/angep72/Community-saver/internal/core/policy"
)

// Penalty service errors
var (
	ErrPenaltyNotFound   = errors.New("penalty not found")
	ErrPenaltyNotPending = errors.New("penalty is not pending")
	ErrInvalidReason     = errors.New("invalid penalty reason")
)

// PenaltyService handles fines assigned to members. Settling a penalty is a
// dual write: the penalty flips to paid and a negative penalty_payment entry
// lands in the contribution ledger, in one transaction, so the fee shows up
// as a deduction from the member's savings.
type PenaltyService struct {
	penaltyRepo repositories.PenaltyRepository
	userRepo    repositories.UserRepository
	totals      *TotalsService
	audit       *AuditService
	cache       ReportCache
}

// NewPenaltyService creates a new penalty service
func NewPenaltyService(
	penaltyRepo repositories.PenaltyRepository,
	userRepo repositories.UserRepository,
	totals *TotalsService,
	audit *AuditService,
	cache ReportCache,
) *PenaltyService {
	return &PenaltyService{
		penaltyRepo: penaltyRepo,
		userRepo:    userRepo,
		totals:      totals,
		audit:       audit,
		cache:       cache,
	}
}

// AssignPenaltyInput represents penalty assignment input
type AssignPenaltyInput struct {
	UserID uint                 `json:"user_id" validate:"required"`
	Amount float64              `json:"amount" validate:"required,gt=0"`
	Reason domain.PenaltyReason `json:"reason" validate:"required"`
	Notes  string               `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// Assign creates a pending penalty against a member. Branch leads fine inside
// their own branch; admins fine anyone.
func (s *PenaltyService) Assign(ctx context.Context, actor policy.Actor, input *AssignPenaltyInput) (*models.Penalty, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if !input.Reason.Valid() {
		return nil, ErrInvalidReason
	}

	target, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	if !policy.CanManageMember(actor, target.BranchID) {
		return nil, domain.ErrForbidden
	}

	penalty := &models.Penalty{
		UserID:       target.ID,
		Amount:       Round2(input.Amount),
		Reason:       input.Reason,
		AssignedBy:   actor.UserID,
		BranchID:     policy.PenaltyBranch(actor, target.BranchID),
		Status:       domain.PenaltyPending,
		AssignedDate: time.Now(),
		Notes:        input.Notes,
	}

	if err := s.penaltyRepo.Create(ctx, penalty); err != nil {
		return nil, err
	}

	s.totals.RefreshAfterWrite(ctx, target.ID)
	invalidateReports(ctx, s.cache)

	s.audit.Record(ctx, actor.UserID, AuditActionAssign, AuditResourcePenalty, penalty.ID,
		fmt.Sprintf("assigned %.2f to user %d for %s", penalty.Amount, target.ID, penalty.Reason))

	return penalty, nil
}

// Pay settles a pending penalty. The paid amount is deducted from the
// member's savings through a confirmed negative ledger entry written in the
// same transaction as the status flip; if the penalty was already settled or
// waived in the meantime, nothing is written.
func (s *PenaltyService) Pay(ctx context.Context, actor policy.Actor, id uint) (*models.Penalty, error) {
	penalty, err := s.getPenalty(ctx, id)
	if err != nil {
		return nil, err
	}

	var ownerBranch *uint
	if penalty.User != nil {
		ownerBranch = penalty.User.BranchID
	}
	if !policy.CanSettlePenalty(actor, penalty.UserID, ownerBranch) {
		return nil, domain.ErrForbidden
	}

	now := time.Now()
	entry := &models.Contribution{
		UserID:     penalty.UserID,
		Amount:     -penalty.Amount,
		Type:       domain.ContributionPenaltyPayment,
		Date:       now,
		RecordedBy: actor.UserID,
		BranchID:   penalty.BranchID,
		Status:     domain.ContributionConfirmed,
		Notes:      fmt.Sprintf("settlement of penalty #%d (%s)", penalty.ID, penalty.Reason),
	}

	applied, err := s.penaltyRepo.MarkPaidWithLedgerEntry(ctx, id, map[string]interface{}{
		"status":    domain.PenaltyPaid,
		"paid_date": now,
	}, entry)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrPenaltyNotPending
	}

	s.totals.RefreshAfterWrite(ctx, penalty.UserID)
	invalidateReports(ctx, s.cache)

	s.audit.Record(ctx, actor.UserID, AuditActionPay, AuditResourcePenalty, id,
		fmt.Sprintf("settled %.2f, ledger entry %d", penalty.Amount, entry.ID))

	return s.getPenalty(ctx, id)
}

// Waive forgives a pending penalty without payment. Members cannot waive
// their own fees.
func (s *PenaltyService) Waive(ctx context.Context, actor policy.Actor, id uint, notes string) (*models.Penalty, error) {
	penalty, err := s.getPenalty(ctx, id)
	if err != nil {
		return nil, err
	}

	var ownerBranch *uint
	if penalty.User != nil {
		ownerBranch = penalty.User.BranchID
	}
	if !policy.CanWaivePenalty(actor, ownerBranch) {
		return nil, domain.ErrForbidden
	}

	patch := map[string]interface{}{
		"status":      domain.PenaltyWaived,
		"waived_date": time.Now(),
		"waived_by":   actor.UserID,
	}
	if notes != "" {
		patch["notes"] = notes
	}

	applied, err := s.penaltyRepo.UpdateStatusIf(ctx, id, domain.PenaltyPending, patch)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrPenaltyNotPending
	}

	s.totals.RefreshAfterWrite(ctx, penalty.UserID)
	invalidateReports(ctx, s.cache)

	s.audit.Record(ctx, actor.UserID, AuditActionWaive, AuditResourcePenalty, id,
		fmt.Sprintf("waived %.2f", penalty.Amount))

	return s.getPenalty(ctx, id)
}

// DeleteAll purges the whole penalty book. Settlement entries already written
// to the contribution ledger stay; member totals are rebuilt from what
// remains.
func (s *PenaltyService) DeleteAll(ctx context.Context, actor policy.Actor) (int64, error) {
	if !actor.IsAdmin() {
		return 0, domain.ErrForbidden
	}

	deleted, err := s.penaltyRepo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}

	if _, err := s.totals.RecomputeAll(ctx); err != nil {
		log.WithError(err).Warn("totals rebuild after penalty purge failed, will be reconciled")
	}
	invalidateReports(ctx, s.cache)

	s.audit.Record(ctx, actor.UserID, AuditActionPurge, AuditResourcePenalty, 0,
		fmt.Sprintf("purged %d penalties", deleted))

	return deleted, nil
}

// GetByID gets a penalty, enforcing view scope
func (s *PenaltyService) GetByID(ctx context.Context, actor policy.Actor, id uint) (*models.Penalty, error) {
	penalty, err := s.getPenalty(ctx, id)
	if err != nil {
		return nil, err
	}

	var ownerBranch *uint
	if penalty.User != nil {
		ownerBranch = penalty.User.BranchID
	}
	if !policy.CanViewMember(actor, penalty.UserID, ownerBranch) {
		return nil, domain.ErrForbidden
	}
	return penalty, nil
}

// List lists penalties. Members see their own, leads their branch.
func (s *PenaltyService) List(ctx context.Context, actor policy.Actor, filter repositories.PenaltyFilter, offset, limit int) ([]*models.Penalty, int64, error) {
	switch {
	case actor.IsAdmin():
		// unrestricted
	case actor.IsBranchLead():
		filter.BranchID = actor.BranchID
	default:
		userID := actor.UserID
		filter.UserID = &userID
	}
	return s.penaltyRepo.List(ctx, filter, offset, limit)
}

func (s *PenaltyService) getPenalty(ctx context.Context, id uint) (*models.Penalty, error) {
	penalty, err := s.penaltyRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPenaltyNotFound
		}
		return nil, err
	}
	return penalty, nil
}
