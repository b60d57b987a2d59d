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

// User service errors
var (
	ErrUserNotPending  = errors.New("user is not pending approval")
	ErrSelfModify      = errors.New("cannot perform this action on your own account")
	ErrLeadViaBranch   = errors.New("branch leads are assigned through the branch endpoints")
	ErrTargetNotMember = errors.New("target user is not a regular member")
)

// UserService handles member account business logic
type UserService struct {
	userRepo         repositories.UserRepository
	branchRepo       repositories.BranchRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	audit            *AuditService
	notifier         Notifier
}

// NewUserService creates a new user service
func NewUserService(
	userRepo repositories.UserRepository,
	branchRepo repositories.BranchRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	audit *AuditService,
	notifier Notifier,
) *UserService {
	return &UserService{
		userRepo:         userRepo,
		branchRepo:       branchRepo,
		refreshTokenRepo: refreshTokenRepo,
		audit:            audit,
		notifier:         notifier,
	}
}

// GetByID gets a user, enforcing view scope: admins see anyone, leads their
// branch, members themselves.
func (s *UserService) GetByID(ctx context.Context, actor policy.Actor, id uint) (*models.User, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if !policy.CanViewMember(actor, user.ID, user.BranchID) {
		return nil, domain.ErrForbidden
	}
	return user, nil
}

// List lists users. Branch leads are always scoped to their own branch.
func (s *UserService) List(ctx context.Context, actor policy.Actor, filter repositories.UserFilter, offset, limit int) ([]*models.User, int64, error) {
	if actor.IsBranchLead() {
		filter.BranchID = actor.BranchID
	}
	return s.userRepo.List(ctx, filter, offset, limit)
}

// ApproveMember approves a pending registration. Returns a warning when the
// welcome email could not be delivered.
func (s *UserService) ApproveMember(ctx context.Context, actor policy.Actor, id uint) (*models.User, string, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if user.ApprovalStatus != domain.ApprovalPending {
		return nil, "", ErrUserNotPending
	}

	user.ApprovalStatus = domain.ApprovalApproved
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, "", err
	}

	s.audit.Record(ctx, actor.UserID, AuditActionApprove, AuditResourceUser, user.ID,
		fmt.Sprintf("approved membership for %s", user.Email))

	warning := ""
	if err := s.notifier.MemberApproved(user); err != nil {
		log.WithError(err).WithField("user_id", user.ID).
			Warn("member approval email could not be sent")
		warning = "approval email could not be delivered"
	}

	return user, warning, nil
}

// RejectMember rejects a pending registration
func (s *UserService) RejectMember(ctx context.Context, actor policy.Actor, id uint) (*models.User, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.ApprovalStatus != domain.ApprovalPending {
		return nil, ErrUserNotPending
	}

	user.ApprovalStatus = domain.ApprovalRejected
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.UserID, AuditActionReject, AuditResourceUser, user.ID,
		fmt.Sprintf("rejected membership for %s", user.Email))

	return user, nil
}

// UpdateProfileInput represents profile update input
type UpdateProfileInput struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,min=2,max=50"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,min=2,max=50"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,min=6,max=20"`
}

// UpdateProfile updates a user's own fields. Admins may edit anyone; email
// and role are not editable here.
func (s *UserService) UpdateProfile(ctx context.Context, actor policy.Actor, id uint, input *UpdateProfileInput) (*models.User, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	if actor.UserID != id && !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.UserID, AuditActionUpdate, AuditResourceUser, user.ID, "updated profile")
	return user, nil
}

// ChangeRole switches a user between member and admin. Branch leads are
// managed through AssignLead so the branch's lead pointer stays consistent.
func (s *UserService) ChangeRole(ctx context.Context, actor policy.Actor, id uint, role domain.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}
	if role == domain.RoleBranchLead {
		return nil, ErrLeadViaBranch
	}
	if actor.UserID == id {
		return nil, ErrSelfModify
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Role = role
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.UserID, AuditActionUpdate, AuditResourceUser, user.ID,
		fmt.Sprintf("changed role to %s", role))

	return user, nil
}

// SetActive activates or deactivates an account. Deactivation revokes every
// session and removes the member from future allocations.
func (s *UserService) SetActive(ctx context.Context, actor policy.Actor, id uint, active bool) (*models.User, error) {
	if actor.UserID == id {
		return nil, ErrSelfModify
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	user.IsActive = active
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	action := AuditActionActivate
	if !active {
		action = AuditActionDeactivate
		if err := s.refreshTokenRepo.RevokeAllByUserID(ctx, user.ID); err != nil {
			log.WithError(err).WithField("user_id", user.ID).
				Warn("could not revoke sessions on deactivation")
		}
	}

	s.audit.Record(ctx, actor.UserID, action, AuditResourceUser, user.ID, user.Email)
	return user, nil
}

// AssignBranch moves a user into a branch, or out of any branch when
// branchID is nil
func (s *UserService) AssignBranch(ctx context.Context, actor policy.Actor, id uint, branchID *uint) (*models.User, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if branchID != nil {
		branch, err := s.branchRepo.GetByID(ctx, *branchID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrBranchNotFound
			}
			return nil, err
		}
		if !branch.IsActive {
			return nil, ErrBranchInactive
		}
	}

	user.BranchID = branchID
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.UserID, AuditActionUpdate, AuditResourceUser, user.ID, "reassigned branch")
	return s.getUser(ctx, id)
}

// Delete soft deletes a user. Their ledger entries survive but drop out of
// every pool and treasury figure as orphaned records.
func (s *UserService) Delete(ctx context.Context, actor policy.Actor, id uint) error {
	if actor.UserID == id {
		return ErrSelfModify
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return err
	}

	if err := s.refreshTokenRepo.RevokeAllByUserID(ctx, user.ID); err != nil {
		log.WithError(err).WithField("user_id", user.ID).
			Warn("could not revoke sessions on delete")
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.Record(ctx, actor.UserID, AuditActionDelete, AuditResourceUser, id, user.Email)
	return nil
}

func (s *UserService) getUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
