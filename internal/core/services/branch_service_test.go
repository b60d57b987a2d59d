package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angep72/Community-saver/internal/adapters/persistence/models"
	"github.com/angep72/Community-saver/internal/core/domain"
)

func TestCreateBranch(t *testing.T) {
	f := newFixture()
	svc := f.branchService()
	ctx := context.Background()

	branch, err := svc.Create(ctx, adminActor(1), &CreateBranchInput{Name: "Central", Code: "CEN"})
	require.NoError(t, err)
	assert.True(t, branch.IsActive)
	assert.NotZero(t, branch.ID)

	_, err = svc.Create(ctx, adminActor(1), &CreateBranchInput{Name: "Centre", Code: "CEN"})
	assert.ErrorIs(t, err, ErrBranchCodeExists)
}

func TestUpdateBranch(t *testing.T) {
	f := newFixture()
	f.branches.add(&models.Branch{ID: 1, Name: "Central", Code: "CEN", IsActive: true})
	f.branches.add(&models.Branch{ID: 2, Name: "North", Code: "NOR", IsActive: true})
	svc := f.branchService()
	ctx := context.Background()

	name := "Central Market"
	updated, err := svc.Update(ctx, adminActor(1), 1, &UpdateBranchInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Central Market", updated.Name)
	assert.Equal(t, "CEN", updated.Code)

	taken := "NOR"
	_, err = svc.Update(ctx, adminActor(1), 1, &UpdateBranchInput{Code: &taken})
	assert.ErrorIs(t, err, ErrBranchCodeExists)

	// Re-submitting the current code is not a collision.
	same := "CEN"
	_, err = svc.Update(ctx, adminActor(1), 1, &UpdateBranchInput{Code: &same})
	assert.NoError(t, err)
}

func TestAssignLeadPromotesAndDemotes(t *testing.T) {
	f := newFixture()
	branch := f.branches.add(&models.Branch{ID: 1, Name: "Central", Code: "CEN", IsActive: true})
	f.member(5, ptrUint(1))
	f.member(6, nil)
	svc := f.branchService()
	ctx := context.Background()

	updated, err := svc.AssignLead(ctx, adminActor(1), branch.ID, 5)
	require.NoError(t, err)
	require.NotNil(t, updated.LeadID)
	assert.Equal(t, uint(5), *updated.LeadID)
	assert.Equal(t, domain.RoleBranchLead, f.users.users[5].Role)

	// Handing the branch to someone outside it pulls them in and steps the
	// old lead down.
	updated, err = svc.AssignLead(ctx, adminActor(1), branch.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, uint(6), *updated.LeadID)
	assert.Equal(t, domain.RoleBranchLead, f.users.users[6].Role)
	assert.Equal(t, ptrUint(1), f.users.users[6].BranchID)
	assert.Equal(t, domain.RoleMember, f.users.users[5].Role)
}

func TestAssignLeadEligibility(t *testing.T) {
	f := newFixture()
	f.branches.add(&models.Branch{ID: 1, Name: "Central", Code: "CEN", IsActive: true})
	f.branches.add(&models.Branch{ID: 2, Name: "Closed", Code: "CLO", IsActive: false})
	svc := f.branchService()
	ctx := context.Background()

	boss := f.member(3, nil)
	boss.Role = domain.RoleAdmin
	_, err := svc.AssignLead(ctx, adminActor(1), 1, 3)
	assert.ErrorIs(t, err, ErrLeadNotEligible, "admins do not lead branches")

	waiting := f.member(4, nil)
	waiting.ApprovalStatus = domain.ApprovalPending
	_, err = svc.AssignLead(ctx, adminActor(1), 1, 4)
	assert.ErrorIs(t, err, ErrLeadNotEligible)

	f.member(5, nil)
	_, err = svc.AssignLead(ctx, adminActor(1), 2, 5)
	assert.ErrorIs(t, err, ErrBranchInactive)

	_, err = svc.AssignLead(ctx, adminActor(1), 1, 99)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestDeactivateAndActivateBranch(t *testing.T) {
	f := newFixture()
	f.branches.add(&models.Branch{ID: 1, Name: "Central", Code: "CEN", IsActive: true})
	f.member(5, ptrUint(1))
	f.member(6, ptrUint(1))
	f.member(7, nil)
	svc := f.branchService()
	ctx := context.Background()

	off, err := svc.Deactivate(ctx, adminActor(1), 1)
	require.NoError(t, err)
	assert.False(t, off.IsActive)
	assert.False(t, f.users.users[5].IsActive, "members follow their branch down")
	assert.False(t, f.users.users[6].IsActive)
	assert.True(t, f.users.users[7].IsActive, "unassigned members are untouched")

	// Turning the branch back on does not mass-reactivate members.
	on, err := svc.Activate(ctx, adminActor(1), 1)
	require.NoError(t, err)
	assert.True(t, on.IsActive)
	assert.False(t, f.users.users[5].IsActive)
}

func TestDeleteBranchRequiresNoMembers(t *testing.T) {
	f := newFixture()
	f.branches.add(&models.Branch{ID: 1, Name: "Central", Code: "CEN", IsActive: true})
	f.member(5, ptrUint(1))
	svc := f.branchService()
	ctx := context.Background()

	err := svc.Delete(ctx, adminActor(1), 1)
	assert.ErrorIs(t, err, ErrBranchHasMembers)

	f.users.users[5].BranchID = nil
	require.NoError(t, svc.Delete(ctx, adminActor(1), 1))

	_, err = svc.GetByID(ctx, 1)
	assert.ErrorIs(t, err, ErrBranchNotFound)
}
