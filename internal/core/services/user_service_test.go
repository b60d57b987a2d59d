package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angep72/Community-saver/internal/adapters/persistence/models"
	"github.com/angep72/Community-saver/internal/adapters/persistence/repositories"
	"github.com/angep72/Community-saver/internal/core/domain"
)

func TestApproveMember(t *testing.T) {
	f := newFixture()
	pending := f.users.add(&models.User{
		FirstName: "New", LastName: "Joiner", Email: "new@example.com",
		Role: domain.RoleMember, ApprovalStatus: domain.ApprovalPending, IsActive: true,
	})
	svc := f.userService()

	approved, warning, err := svc.ApproveMember(context.Background(), adminActor(1), pending.ID)
	require.NoError(t, err)
	assert.Empty(t, warning)
	assert.Equal(t, domain.ApprovalApproved, approved.ApprovalStatus)
	assert.Equal(t, []uint{pending.ID}, f.notifier.approved)

	_, _, err = svc.ApproveMember(context.Background(), adminActor(1), pending.ID)
	assert.ErrorIs(t, err, ErrUserNotPending)
}

func TestApproveMemberEmailFailureIsSoftWarning(t *testing.T) {
	f := newFixture()
	f.notifier.err = errors.New("smtp unreachable")
	pending := f.users.add(&models.User{
		FirstName: "New", LastName: "Joiner", Email: "new@example.com",
		Role: domain.RoleMember, ApprovalStatus: domain.ApprovalPending, IsActive: true,
	})
	svc := f.userService()

	approved, warning, err := svc.ApproveMember(context.Background(), adminActor(1), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, approved.ApprovalStatus)
	assert.NotEmpty(t, warning)
}

func TestRejectMember(t *testing.T) {
	f := newFixture()
	pending := f.users.add(&models.User{
		FirstName: "New", LastName: "Joiner", Email: "new@example.com",
		Role: domain.RoleMember, ApprovalStatus: domain.ApprovalPending, IsActive: true,
	})
	svc := f.userService()

	rejected, err := svc.RejectMember(context.Background(), adminActor(1), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalRejected, rejected.ApprovalStatus)

	_, err = svc.RejectMember(context.Background(), adminActor(1), pending.ID)
	assert.ErrorIs(t, err, ErrUserNotPending)
}

func TestGetByIDEnforcesViewScope(t *testing.T) {
	f := newFixture()
	branchA, branchB := ptrUint(1), ptrUint(2)
	f.member(5, branchA)
	f.member(6, branchB)
	svc := f.userService()
	ctx := context.Background()

	_, err := svc.GetByID(ctx, adminActor(1), 6)
	assert.NoError(t, err)

	_, err = svc.GetByID(ctx, leadActor(2, branchA), 5)
	assert.NoError(t, err)
	_, err = svc.GetByID(ctx, leadActor(2, branchA), 6)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.GetByID(ctx, memberActor(5, branchA), 5)
	assert.NoError(t, err)
	_, err = svc.GetByID(ctx, memberActor(5, branchA), 6)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.GetByID(ctx, adminActor(1), 99)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestListScopesLeadsToOwnBranch(t *testing.T) {
	f := newFixture()
	branchA, branchB := ptrUint(1), ptrUint(2)
	f.member(5, branchA)
	f.member(6, branchB)
	f.member(7, branchA)
	svc := f.userService()
	ctx := context.Background()

	all, total, err := svc.List(ctx, adminActor(1), repositories.UserFilter{}, 0, 50)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.EqualValues(t, 3, total)

	scoped, total, err := svc.List(ctx, leadActor(2, branchA), repositories.UserFilter{}, 0, 50)
	require.NoError(t, err)
	assert.Len(t, scoped, 2)
	assert.EqualValues(t, 2, total)
	for _, u := range scoped {
		assert.Equal(t, branchA, u.BranchID)
	}
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture()
	branch := ptrUint(1)
	f.member(5, branch)
	f.member(6, branch)
	svc := f.userService()
	ctx := context.Background()

	name := "Renamed"
	updated, err := svc.UpdateProfile(ctx, memberActor(5, branch), 5, &UpdateProfileInput{FirstName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.FirstName)

	_, err = svc.UpdateProfile(ctx, memberActor(5, branch), 6, &UpdateProfileInput{FirstName: &name})
	assert.ErrorIs(t, err, domain.ErrForbidden, "members edit only themselves")

	_, err = svc.UpdateProfile(ctx, adminActor(1), 6, &UpdateProfileInput{FirstName: &name})
	assert.NoError(t, err, "admins edit anyone")
}

func TestChangeRole(t *testing.T) {
	f := newFixture()
	f.member(5, nil)
	svc := f.userService()
	ctx := context.Background()

	promoted, err := svc.ChangeRole(ctx, adminActor(1), 5, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, promoted.Role)

	_, err = svc.ChangeRole(ctx, adminActor(1), 5, domain.RoleBranchLead)
	assert.ErrorIs(t, err, ErrLeadViaBranch, "leads are appointed through their branch")

	_, err = svc.ChangeRole(ctx, adminActor(1), 1, domain.RoleMember)
	assert.ErrorIs(t, err, ErrSelfModify)

	_, err = svc.ChangeRole(ctx, adminActor(1), 5, domain.Role("owner"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDeactivateRevokesSessions(t *testing.T) {
	f := newFixture()
	user := approvedUser(t, f, "jane@example.com", "secret123")
	auth := f.authService()
	ctx := context.Background()

	login, err := auth.Login(ctx, &LoginInput{Email: "jane@example.com", Password: "secret123"})
	require.NoError(t, err)

	svc := f.userService()
	deactivated, err := svc.SetActive(ctx, adminActor(99), user.ID, false)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)

	_, err = auth.RefreshToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = svc.SetActive(ctx, adminActor(99), user.ID, true)
	require.NoError(t, err)
	_, err = auth.Login(ctx, &LoginInput{Email: "jane@example.com", Password: "secret123"})
	assert.NoError(t, err)
}

func TestSetActiveSelfGuard(t *testing.T) {
	f := newFixture()
	f.member(5, nil)
	svc := f.userService()

	_, err := svc.SetActive(context.Background(), adminActor(5), 5, false)
	assert.ErrorIs(t, err, ErrSelfModify, "admins cannot lock themselves out")
}

func TestAssignBranch(t *testing.T) {
	f := newFixture()
	f.branches.add(&models.Branch{ID: 1, Name: "Central", Code: "CEN", IsActive: true})
	f.branches.add(&models.Branch{ID: 2, Name: "Closed", Code: "CLO", IsActive: false})
	f.member(5, nil)
	svc := f.userService()
	ctx := context.Background()

	moved, err := svc.AssignBranch(ctx, adminActor(1), 5, ptrUint(1))
	require.NoError(t, err)
	assert.Equal(t, ptrUint(1), moved.BranchID)

	_, err = svc.AssignBranch(ctx, adminActor(1), 5, ptrUint(2))
	assert.ErrorIs(t, err, ErrBranchInactive)

	_, err = svc.AssignBranch(ctx, adminActor(1), 5, ptrUint(9))
	assert.ErrorIs(t, err, ErrBranchNotFound)

	cleared, err := svc.AssignBranch(ctx, adminActor(1), 5, nil)
	require.NoError(t, err)
	assert.Nil(t, cleared.BranchID)
}

func TestDeleteMemberKeepsLedgerOutOfPools(t *testing.T) {
	f := newFixture()
	f.member(5, nil)
	f.member(6, nil)
	f.confirmed(5, 1000, day(1))
	f.confirmed(6, 500, day(2))
	svc := f.userService()
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, adminActor(1), 6))

	assert.ErrorIs(t, svc.Delete(ctx, adminActor(1), 6), domain.ErrUserNotFound)

	// The orphaned entries stop counting anywhere.
	report, err := f.allocationService().Report(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1000, report.Pool, 0.001)

	summary, err := f.treasuryService().Summary(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1000, summary.TotalContributions, 0.001)
}
