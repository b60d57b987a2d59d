package services

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/angep72/Community-saver/internal/adapters/persistence/models"
	"github.com/angep72/Community-saver/internal/adapters/persistence/repositories"
	"github.com/angep72/Community-saver/internal/core/domain"
	"github.com/angep72/Community-saver/internal/core/policy"
)

// Branch service errors
var (
	ErrBranchNotFound   = errors.New("branch not found")
	ErrBranchCodeExists = errors.New("branch code already exists")
	ErrBranchInactive   = errors.New("branch is deactivated")
	ErrBranchHasMembers = errors.New("branch still has members attached")
	ErrLeadNotEligible  = errors.New("user is not eligible to lead a branch")
)

// BranchService handles branch business logic
type BranchService struct {
	branchRepo repositories.BranchRepository
	userRepo   repositories.UserRepository
	audit      *AuditService
}

// NewBranchService creates a new branch service
func NewBranchService(
	branchRepo repositories.BranchRepository,
	userRepo repositories.UserRepository,
	audit *AuditService,
) *BranchService {
	return &BranchService{
		branchRepo: branchRepo,
		userRepo:   userRepo,
		audit:      audit,
	}
}

// CreateBranchInput represents create branch input
type CreateBranchInput struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
	Code string `json:"code" validate:"required,alphanum,min=2,max=20"`
}

// Create creates a new branch
func (s *BranchService) Create(ctx context.Context, actor policy.Actor, input *CreateBranchInput) (*models.Branch, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	exists, err := s.branchRepo.ExistsByCode(ctx, input.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrBranchCodeExists
	}

	branch := &models.Branch{
		Name:     input.Name,
		Code:     input.Code,
		IsActive: true,
	}

	if err := s.branchRepo.Create(ctx, branch); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.UserID, AuditActionCreate, AuditResourceBranch, branch.ID,
		fmt.Sprintf("created branch %s (%s)", branch.Name, branch.Code))

	return branch, nil
}

// UpdateBranchInput represents update branch input
type UpdateBranchInput struct {
	Name *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Code *string `json:"code,omitempty" validate:"omitempty,alphanum,min=2,max=20"`
}

// Update updates branch name or code
func (s *BranchService) Update(ctx context.Context, actor policy.Actor, id uint, input *UpdateBranchInput) (*models.Branch, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	branch, err := s.getBranch(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Code != nil && *input.Code != branch.Code {
		exists, err := s.branchRepo.ExistsByCode(ctx, *input.Code)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrBranchCodeExists
		}
		branch.Code = *input.Code
	}
	if input.Name != nil {
		branch.Name = *input.Name
	}

	if err := s.branchRepo.Update(ctx, branch); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.UserID, AuditActionUpdate, AuditResourceBranch, branch.ID,
		fmt.Sprintf("updated branch %s", branch.Code))

	return branch, nil
}

// AssignLead makes a user the lead of a branch. The user is moved into the
// branch if needed and promoted to branch_lead; a previous lead steps down to
// member.
func (s *BranchService) AssignLead(ctx context.Context, actor policy.Actor, branchID, userID uint) (*models.Branch, error) {
	branch, err := s.getBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	if !branch.IsActive {
		return nil, ErrBranchInactive
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsActive || user.ApprovalStatus != domain.ApprovalApproved || user.Role == domain.RoleAdmin {
		return nil, ErrLeadNotEligible
	}

	// Demote the previous lead, if it is someone else.
	if branch.LeadID != nil && *branch.LeadID != userID {
		if prev, err := s.userRepo.GetByID(ctx, *branch.LeadID); err == nil {
			prev.Role = domain.RoleMember
			if err := s.userRepo.Update(ctx, prev); err != nil {
				log.WithError(err).WithField("user_id", prev.ID).
					Warn("could not demote previous branch lead")
			}
		}
	}

	user.Role = domain.RoleBranchLead
	user.BranchID = &branch.ID
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	branch.LeadID = &user.ID
	if err := s.branchRepo.Update(ctx, branch); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.UserID, AuditActionUpdate, AuditResourceBranch, branch.ID,
		fmt.Sprintf("assigned user %d as lead of branch %s", user.ID, branch.Code))

	return s.getBranch(ctx, branchID)
}

// Deactivate turns a branch off and cascades: every member of the branch is
// deactivated with it, dropping out of allocations until reactivated
// individually.
func (s *BranchService) Deactivate(ctx context.Context, actor policy.Actor, id uint) (*models.Branch, error) {
	branch, err := s.getBranch(ctx, id)
	if err != nil {
		return nil, err
	}

	branch.IsActive = false
	if err := s.branchRepo.Update(ctx, branch); err != nil {
		return nil, err
	}

	deactivated, err := s.userRepo.DeactivateByBranch(ctx, id)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.UserID, AuditActionDeactivate, AuditResourceBranch, branch.ID,
		fmt.Sprintf("deactivated branch %s and %d members", branch.Code, deactivated))

	return branch, nil
}

// Activate turns a branch back on
func (s *BranchService) Activate(ctx context.Context, actor policy.Actor, id uint) (*models.Branch, error) {
	branch, err := s.getBranch(ctx, id)
	if err != nil {
		return nil, err
	}

	branch.IsActive = true
	if err := s.branchRepo.Update(ctx, branch); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.UserID, AuditActionActivate, AuditResourceBranch, branch.ID,
		fmt.Sprintf("activated branch %s", branch.Code))

	return branch, nil
}

// Delete removes an empty branch. Branches with members attached cannot be
// deleted, only deactivated.
func (s *BranchService) Delete(ctx context.Context, actor policy.Actor, id uint) error {
	branch, err := s.getBranch(ctx, id)
	if err != nil {
		return err
	}

	count, err := s.branchRepo.CountMembers(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrBranchHasMembers
	}

	if err := s.branchRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.Record(ctx, actor.UserID, AuditActionDelete, AuditResourceBranch, id,
		fmt.Sprintf("deleted branch %s", branch.Code))

	return nil
}

// GetByID gets a branch by ID
func (s *BranchService) GetByID(ctx context.Context, id uint) (*models.Branch, error) {
	return s.getBranch(ctx, id)
}

// List lists branches with pagination
func (s *BranchService) List(ctx context.Context, offset, limit int) ([]*models.Branch, int64, error) {
	return s.branchRepo.List(ctx, offset, limit)
}

func (s *BranchService) getBranch(ctx context.Context, id uint) (*models.Branch, error) {
	branch, err := s.branchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBranchNotFound
		}
		return nil, err
	}
	return branch, nil
}
