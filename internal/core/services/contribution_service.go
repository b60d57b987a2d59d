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
	"github.com/angep72/Community-saver/internal/config"
	"github.com/angep72/Community-saver/internal/core/domain"
	"github.com/angep72/Community-saver/internal/core/policy"
)

// Contribution service errors
var (
	ErrContributionNotFound   = errors.New("contribution not found")
	ErrContributionNotPending = errors.New("contribution has already been processed")
	ErrContributionImmutable  = errors.New("penalty payment entries cannot be modified")
)

// ContributionService handles savings ledger business logic
type ContributionService struct {
	contribRepo repositories.ContributionRepository
	penaltyRepo repositories.PenaltyRepository
	userRepo    repositories.UserRepository
	totals      *TotalsService
	audit       *AuditService
	cache       ReportCache
	cfg         *config.Config
}

// NewContributionService creates a new contribution service
func NewContributionService(
	contribRepo repositories.ContributionRepository,
	penaltyRepo repositories.PenaltyRepository,
	userRepo repositories.UserRepository,
	totals *TotalsService,
	audit *AuditService,
	cache ReportCache,
	cfg *config.Config,
) *ContributionService {
	return &ContributionService{
		contribRepo: contribRepo,
		penaltyRepo: penaltyRepo,
		userRepo:    userRepo,
		totals:      totals,
		audit:       audit,
		cache:       cache,
		cfg:         cfg,
	}
}

// RecordContributionInput represents record contribution input
type RecordContributionInput struct {
	UserID uint                    `json:"user_id" validate:"required"`
	Amount float64                 `json:"amount" validate:"required,gt=0"`
	Type   domain.ContributionType `json:"type,omitempty"`
	Date   *time.Time              `json:"date,omitempty"`
	Notes  string                  `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// Record creates a ledger entry. Entries a member records for themselves
// start pending until a lead or admin confirms them; entries recorded by a
// lead or admin are confirmed immediately.
func (s *ContributionService) Record(ctx context.Context, actor policy.Actor, input *RecordContributionInput) (*models.Contribution, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	if input.Type == "" {
		input.Type = domain.ContributionMonthly
	}
	if !input.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown contribution type %q", domain.ErrInvalidInput, input.Type)
	}
	if input.Type == domain.ContributionPenaltyPayment {
		// Reserved for the penalty engine's offsetting entries.
		return nil, fmt.Errorf("%w: type %q is system generated", domain.ErrInvalidInput, input.Type)
	}

	target, err := s.getTargetMember(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	// Scope: recording for someone else needs manage rights on their branch.
	if target.ID != actor.UserID && !policy.CanManageMember(actor, target.BranchID) {
		return nil, domain.ErrForbidden
	}

	date := time.Now()
	if input.Date != nil && !input.Date.IsZero() {
		date = *input.Date
	}

	status := domain.ContributionPending
	if policy.CanManageMember(actor, target.BranchID) {
		status = domain.ContributionConfirmed
	}

	contribution := &models.Contribution{
		UserID:     target.ID,
		Amount:     Round2(input.Amount),
		Type:       input.Type,
		Date:       date,
		RecordedBy: actor.UserID,
		BranchID:   target.BranchID,
		Status:     status,
		Notes:      input.Notes,
	}

	if err := s.contribRepo.Create(ctx, contribution); err != nil {
		return nil, err
	}

	if status == domain.ContributionConfirmed {
		s.maybeAssessLateFee(ctx, actor.UserID, contribution)
	}

	s.totals.RefreshAfterWrite(ctx, target.ID)
	invalidateReports(ctx, s.cache)

	s.audit.Record(ctx, actor.UserID, AuditActionCreate, AuditResourceContribution, contribution.ID,
		fmt.Sprintf("recorded %.2f (%s) for user %d, status %s", contribution.Amount, contribution.Type, target.ID, status))

	return contribution, nil
}

// Confirm moves a pending entry into the confirmed pool. Guarded against
// double processing: confirming an already-processed entry fails without
// touching the row.
func (s *ContributionService) Confirm(ctx context.Context, actor policy.Actor, id uint) (*models.Contribution, error) {
	contribution, err := s.getContribution(ctx, id)
	if err != nil {
		return nil, err
	}

	if !policy.CanManageMember(actor, contribution.BranchID) {
		return nil, domain.ErrForbidden
	}

	applied, err := s.contribRepo.UpdateStatusIf(ctx, id, domain.ContributionPending, map[string]interface{}{
		"status": domain.ContributionConfirmed,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrContributionNotPending
	}

	contribution, err = s.getContribution(ctx, id)
	if err != nil {
		return nil, err
	}

	s.maybeAssessLateFee(ctx, actor.UserID, contribution)
	s.totals.RefreshAfterWrite(ctx, contribution.UserID)
	invalidateReports(ctx, s.cache)

	s.audit.Record(ctx, actor.UserID, AuditActionConfirm, AuditResourceContribution, id,
		fmt.Sprintf("confirmed %.2f for user %d", contribution.Amount, contribution.UserID))

	return contribution, nil
}

// Cancel voids a pending entry. Confirmed entries are part of the pool and
// can only be removed by an admin delete.
func (s *ContributionService) Cancel(ctx context.Context, actor policy.Actor, id uint) (*models.Contribution, error) {
	contribution, err := s.getContribution(ctx, id)
	if err != nil {
		return nil, err
	}

	if contribution.Type == domain.ContributionPenaltyPayment {
		return nil, ErrContributionImmutable
	}
	if !policy.CanManageMember(actor, contribution.BranchID) && contribution.UserID != actor.UserID {
		return nil, domain.ErrForbidden
	}

	applied, err := s.contribRepo.UpdateStatusIf(ctx, id, domain.ContributionPending, map[string]interface{}{
		"status": domain.ContributionCancelled,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrContributionNotPending
	}

	s.totals.RefreshAfterWrite(ctx, contribution.UserID)
	invalidateReports(ctx, s.cache)

	s.audit.Record(ctx, actor.UserID, AuditActionCancel, AuditResourceContribution, id,
		fmt.Sprintf("cancelled %.2f for user %d", contribution.Amount, contribution.UserID))

	return s.getContribution(ctx, id)
}

// Delete removes an entry outright. Admin only at the route level; the
// synthetic penalty payment entries stay untouchable so the ledger and the
// penalty trail cannot drift apart.
func (s *ContributionService) Delete(ctx context.Context, actor policy.Actor, id uint) error {
	contribution, err := s.getContribution(ctx, id)
	if err != nil {
		return err
	}

	if contribution.Type == domain.ContributionPenaltyPayment {
		return ErrContributionImmutable
	}

	if err := s.contribRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.totals.RefreshAfterWrite(ctx, contribution.UserID)
	invalidateReports(ctx, s.cache)

	s.audit.Record(ctx, actor.UserID, AuditActionDelete, AuditResourceContribution, id,
		fmt.Sprintf("deleted %.2f (%s) of user %d", contribution.Amount, contribution.Type, contribution.UserID))

	return nil
}

// GetByID gets a contribution, enforcing view scope
func (s *ContributionService) GetByID(ctx context.Context, actor policy.Actor, id uint) (*models.Contribution, error) {
	contribution, err := s.getContribution(ctx, id)
	if err != nil {
		return nil, err
	}

	if !policy.CanViewMember(actor, contribution.UserID, contribution.BranchID) {
		return nil, domain.ErrForbidden
	}
	return contribution, nil
}

// List lists contributions. Members see their own, leads their branch.
func (s *ContributionService) List(ctx context.Context, actor policy.Actor, filter repositories.ContributionFilter, offset, limit int) ([]*models.Contribution, int64, error) {
	switch {
	case actor.IsAdmin():
		// unrestricted
	case actor.IsBranchLead():
		filter.BranchID = actor.BranchID
	default:
		userID := actor.UserID
		filter.UserID = &userID
	}
	return s.contribRepo.List(ctx, filter, offset, limit)
}

// maybeAssessLateFee applies the late contribution fee: any confirmed entry
// dated after the policy's day of month earns a pending penalty for the same
// member, dated at the contribution's own date. The fee write is best-effort;
// the confirmed entry has already committed.
func (s *ContributionService) maybeAssessLateFee(ctx context.Context, actorID uint, c *models.Contribution) {
	if c.Type == domain.ContributionPenaltyPayment {
		return
	}
	if c.Date.Day() <= s.cfg.Policy.LateFeeDay {
		return
	}

	penalty := &models.Penalty{
		UserID:       c.UserID,
		Amount:       s.cfg.Policy.LateFeeAmount,
		Reason:       domain.PenaltyLateContribution,
		AssignedBy:   actorID,
		BranchID:     c.BranchID,
		Status:       domain.PenaltyPending,
		AssignedDate: c.Date,
		Notes:        fmt.Sprintf("Contribution of %.2f recorded on day %d", c.Amount, c.Date.Day()),
	}

	if err := s.penaltyRepo.Create(ctx, penalty); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"user_id":         c.UserID,
			"contribution_id": c.ID,
		}).Warn("late fee could not be assigned")
		return
	}

	s.audit.Record(ctx, actorID, AuditActionAssign, AuditResourcePenalty, penalty.ID,
		fmt.Sprintf("late contribution fee %.2f for user %d", penalty.Amount, c.UserID))
}

func (s *ContributionService) getContribution(ctx context.Context, id uint) (*models.Contribution, error) {
	contribution, err := s.contribRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContributionNotFound
		}
		return nil, err
	}
	return contribution, nil
}

func (s *ContributionService) getTargetMember(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	if user.ApprovalStatus != domain.ApprovalApproved {
		return nil, domain.ErrUserNotApproved
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}
	return user, nil
}
