package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/angep72/Community-saver/internal/adapters/persistence/models"
	"github.com/angep72/Community-saver/internal/adapters/persistence/repositories"
	"github.com/angep72/Community-saver/internal/core/domain"
	"github.com/angep72/Community-saver/internal/core/policy"
)

// Loan service errors
var (
	ErrLoanNotFound            = errors.New("loan not found")
	ErrActiveLoanExists        = errors.New("member already has an active loan")
	ErrLoanNotPending          = errors.New("loan has already been decided")
	ErrLoanNotApproved         = errors.New("loan is not in approved state")
	ErrLoanNotDisbursed        = errors.New("loan is not in disbursed state")
	ErrLoanNotYetDue           = errors.New("loan due date has not passed yet")
	ErrInterestRateRequired    = errors.New("interest rate is required to approve a loan")
	ErrRejectionReasonRequired = errors.New("rejection reason is required to reject a loan")
)

// LoanService handles the loan lifecycle:
// pending -> approved -> disbursed -> repaid, with rejected and defaulted as
// the failure exits. Every transition goes through a conditional update, so
// two racing decisions on the same loan resolve to exactly one winner.
type LoanService struct {
	loanRepo repositories.LoanRepository
	userRepo repositories.UserRepository
	totals   *TotalsService
	audit    *AuditService
	notifier Notifier
	cache    ReportCache
}

// NewLoanService creates a new loan service
func NewLoanService(
	loanRepo repositories.LoanRepository,
	userRepo repositories.UserRepository,
	totals *TotalsService,
	audit *AuditService,
	notifier Notifier,
	cache ReportCache,
) *LoanService {
	return &LoanService{
		loanRepo: loanRepo,
		userRepo: userRepo,
		totals:   totals,
		audit:    audit,
		notifier: notifier,
		cache:    cache,
	}
}

// RequestLoanInput represents loan request input. The interest rate is not
// part of the request: pricing is set by the approver.
type RequestLoanInput struct {
	Amount         float64 `json:"amount" validate:"required,gt=0"`
	DurationMonths int     `json:"duration_months" validate:"required,gte=1,lte=60"`
	Purpose        string  `json:"purpose" validate:"required,min=3,max=500"`
}

// Request files a loan for the requesting member. A member can hold at most
// one loan that is pending, approved or disbursed.
func (s *LoanService) Request(ctx context.Context, actor policy.Actor, input *RequestLoanInput) (*models.Loan, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	user, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	hasActive, err := s.loanRepo.HasLoanInStatuses(ctx, user.ID, domain.ActiveLoanStatuses)
	if err != nil {
		return nil, err
	}
	if hasActive {
		return nil, ErrActiveLoanExists
	}

	loan := &models.Loan{
		UserID:         user.ID,
		Amount:         Round2(input.Amount),
		DurationMonths: input.DurationMonths,
		Purpose:        input.Purpose,
		Status:         domain.LoanPending,
		AppliedDate:    time.Now(),
		BranchID:       user.BranchID,
	}

	if err := s.loanRepo.Create(ctx, loan); err != nil {
		return nil, err
	}

	// A pending request already counts into the member's displayed loan
	// total; that is the group's chosen reading of "total loans".
	s.totals.RefreshAfterWrite(ctx, user.ID)
	invalidateReports(ctx, s.cache)

	s.audit.Record(ctx, actor.UserID, AuditActionCreate, AuditResourceLoan, loan.ID,
		fmt.Sprintf("requested %.2f over %d months", loan.Amount, loan.DurationMonths))

	return loan, nil
}

// DecideLoanInput represents the approval decision input
type DecideLoanInput struct {
	Status          domain.LoanStatus `json:"status" validate:"required"`
	InterestRate    *float64          `json:"interest_rate,omitempty"`
	RejectionReason string            `json:"rejection_reason,omitempty" validate:"omitempty,max=500"`
}

// Decide approves or rejects a pending loan. Approval sets the rate and
// derives the simple-interest repayment total:
// total = amount + amount*rate*duration/100.
// Returns a warning when the decision notice email could not be delivered.
func (s *LoanService) Decide(ctx context.Context, actor policy.Actor, loanID uint, input *DecideLoanInput) (*models.Loan, string, error) {
	if !policy.CanDecideLoan(actor) {
		return nil, "", domain.ErrForbidden
	}

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	var patch map[string]interface{}

	switch input.Status {
	case domain.LoanApproved:
		if input.InterestRate == nil || *input.InterestRate <= 0 {
			return nil, "", ErrInterestRateRequired
		}
		total := Round2(loan.Amount + loan.Amount**input.InterestRate*float64(loan.DurationMonths)/100)
		patch = map[string]interface{}{
			"status":           domain.LoanApproved,
			"interest_rate":    *input.InterestRate,
			"total_amount":     total,
			"remaining_amount": total,
			"approved_by":      actor.UserID,
			"approved_date":    now,
		}
	case domain.LoanRejected:
		if input.RejectionReason == "" {
			return nil, "", ErrRejectionReasonRequired
		}
		patch = map[string]interface{}{
			"status":           domain.LoanRejected,
			"rejection_reason": input.RejectionReason,
			"approved_by":      actor.UserID,
			"approved_date":    now,
		}
	default:
		return nil, "", fmt.Errorf("%w: decision must be %q or %q", domain.ErrInvalidInput,
			domain.LoanApproved, domain.LoanRejected)
	}

	applied, err := s.loanRepo.UpdateStatusIf(ctx, loanID, domain.LoanPending, patch)
	if err != nil {
		return nil, "", err
	}
	if !applied {
		return nil, "", ErrLoanNotPending
	}

	loan, err = s.getLoan(ctx, loanID)
	if err != nil {
		return nil, "", err
	}

	invalidateReports(ctx, s.cache)

	action := AuditActionApprove
	details := fmt.Sprintf("approved %.2f at %.2f%%, total %.2f", loan.Amount, loan.InterestRate, loan.TotalAmount)
	if input.Status == domain.LoanRejected {
		action = AuditActionReject
		details = fmt.Sprintf("rejected %.2f: %s", loan.Amount, input.RejectionReason)
	}
	s.audit.Record(ctx, actor.UserID, action, AuditResourceLoan, loan.ID, details)

	warning := ""
	if loan.User != nil {
		if err := s.notifier.LoanDecision(loan.User, loan); err != nil {
			log.WithError(err).WithField("loan_id", loan.ID).
				Warn("loan decision email could not be sent")
			warning = "decision email could not be delivered"
		}
	}

	return loan, warning, nil
}

// Disburse hands the approved principal to the borrower and starts the
// repayment clock: the due date is the disbursement date plus the agreed
// duration.
func (s *LoanService) Disburse(ctx context.Context, actor policy.Actor, loanID uint) (*models.Loan, error) {
	if !policy.CanDecideLoan(actor) {
		return nil, domain.ErrForbidden
	}

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	dueDate := now.AddDate(0, loan.DurationMonths, 0)

	applied, err := s.loanRepo.UpdateStatusIf(ctx, loanID, domain.LoanApproved, map[string]interface{}{
		"status":         domain.LoanDisbursed,
		"disbursed_date": now,
		"due_date":       dueDate,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrLoanNotApproved
	}

	invalidateReports(ctx, s.cache)

	s.audit.Record(ctx, actor.UserID, AuditActionDisburse, AuditResourceLoan, loanID,
		fmt.Sprintf("disbursed %.2f, due %s", loan.Amount, dueDate.Format("2006-01-02")))

	return s.getLoan(ctx, loanID)
}

// MarkRepaid closes a disbursed loan as fully repaid. The repayment date
// drives the interest allocation cutoff, so it is stamped here, once.
func (s *LoanService) MarkRepaid(ctx context.Context, actor policy.Actor, loanID uint) (*models.Loan, error) {
	if !policy.CanDecideLoan(actor) {
		return nil, domain.ErrForbidden
	}

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	applied, err := s.loanRepo.UpdateStatusIf(ctx, loanID, domain.LoanDisbursed, map[string]interface{}{
		"status":           domain.LoanRepaid,
		"repaid_date":      time.Now(),
		"amount_paid":      loan.TotalAmount,
		"remaining_amount": 0,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrLoanNotDisbursed
	}

	invalidateReports(ctx, s.cache)

	s.audit.Record(ctx, actor.UserID, AuditActionRepay, AuditResourceLoan, loanID,
		fmt.Sprintf("repaid in full: %.2f", loan.TotalAmount))

	return s.getLoan(ctx, loanID)
}

// MarkDefaulted flags a disbursed loan whose due date has passed without
// repayment. The principal stays in the outstanding figures; writing it off
// is a separate, manual decision.
func (s *LoanService) MarkDefaulted(ctx context.Context, actor policy.Actor, loanID uint) (*models.Loan, error) {
	if !policy.CanDecideLoan(actor) {
		return nil, domain.ErrForbidden
	}

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != domain.LoanDisbursed {
		return nil, ErrLoanNotDisbursed
	}
	if loan.DueDate == nil || loan.DueDate.After(time.Now()) {
		return nil, ErrLoanNotYetDue
	}

	applied, err := s.loanRepo.UpdateStatusIf(ctx, loanID, domain.LoanDisbursed, map[string]interface{}{
		"status":         domain.LoanDefaulted,
		"defaulted_date": time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrLoanNotDisbursed
	}

	invalidateReports(ctx, s.cache)

	s.audit.Record(ctx, actor.UserID, AuditActionDefault, AuditResourceLoan, loanID,
		fmt.Sprintf("marked defaulted, %.2f outstanding", loan.RemainingAmount))

	return s.getLoan(ctx, loanID)
}

// GetByID gets a loan, enforcing view scope
func (s *LoanService) GetByID(ctx context.Context, actor policy.Actor, id uint) (*models.Loan, error) {
	loan, err := s.getLoan(ctx, id)
	if err != nil {
		return nil, err
	}

	var branchID *uint
	if loan.User != nil {
		branchID = loan.User.BranchID
	}
	if !policy.CanViewMember(actor, loan.UserID, branchID) {
		return nil, domain.ErrForbidden
	}
	return loan, nil
}

// List lists loans. Members see their own, leads their branch.
func (s *LoanService) List(ctx context.Context, actor policy.Actor, filter repositories.LoanFilter, offset, limit int) ([]*models.Loan, int64, error) {
	switch {
	case actor.IsAdmin():
		// unrestricted
	case actor.IsBranchLead():
		filter.BranchID = actor.BranchID
	default:
		userID := actor.UserID
		filter.UserID = &userID
	}
	return s.loanRepo.List(ctx, filter, offset, limit)
}

// ToResponse builds the API shape for a loan, attaching the advisory risk
// score where the borrower's contribution total allows one. The score is the
// requested principal as a share of the member's savings, capped at 100.
func (s *LoanService) ToResponse(loan *models.Loan) *models.LoanResponse {
	resp := loan.ToResponse()
	if loan.User != nil && loan.User.TotalContributions > 0 {
		risk := math.Min(100, Round2(loan.Amount/loan.User.TotalContributions*100))
		resp.RiskScore = &risk
	}
	return resp
}

func (s *LoanService) getLoan(ctx context.Context, id uint) (*models.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	return loan, nil
}
