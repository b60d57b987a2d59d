package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angep72/Community-saver/internal/core/domain"
)

func uintPtr(v uint) *uint {
	return &v
}

func TestCanViewMember(t *testing.T) {
	branch1 := uintPtr(1)
	branch2 := uintPtr(2)

	tests := []struct {
		name     string
		actor    Actor
		targetID uint
		branch   *uint
		want     bool
	}{
		{"admin views anyone", Actor{UserID: 1, Role: domain.RoleAdmin}, 99, branch2, true},
		{"lead views own branch", Actor{UserID: 2, Role: domain.RoleBranchLead, BranchID: branch1}, 10, branch1, true},
		{"lead blocked on other branch", Actor{UserID: 2, Role: domain.RoleBranchLead, BranchID: branch1}, 10, branch2, false},
		{"lead views self outside branch scope", Actor{UserID: 2, Role: domain.RoleBranchLead, BranchID: branch1}, 2, nil, true},
		{"member views self", Actor{UserID: 5, Role: domain.RoleMember, BranchID: branch1}, 5, branch1, true},
		{"member blocked on others", Actor{UserID: 5, Role: domain.RoleMember, BranchID: branch1}, 6, branch1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanViewMember(tt.actor, tt.targetID, tt.branch))
		})
	}
}

func TestCanManageMember(t *testing.T) {
	branch1 := uintPtr(1)
	branch2 := uintPtr(2)

	assert.True(t, CanManageMember(Actor{Role: domain.RoleAdmin}, branch2))
	assert.True(t, CanManageMember(Actor{Role: domain.RoleBranchLead, BranchID: branch1}, branch1))
	assert.False(t, CanManageMember(Actor{Role: domain.RoleBranchLead, BranchID: branch1}, branch2))
	assert.False(t, CanManageMember(Actor{Role: domain.RoleBranchLead, BranchID: branch1}, nil))
	assert.False(t, CanManageMember(Actor{UserID: 5, Role: domain.RoleMember, BranchID: branch1}, branch1))
}

func TestCanSettlePenalty(t *testing.T) {
	branch1 := uintPtr(1)

	// Owner may pay their own penalty regardless of role.
	assert.True(t, CanSettlePenalty(Actor{UserID: 7, Role: domain.RoleMember, BranchID: branch1}, 7, branch1))
	// Another member may not.
	assert.False(t, CanSettlePenalty(Actor{UserID: 8, Role: domain.RoleMember, BranchID: branch1}, 7, branch1))
	// Lead of the same branch may.
	assert.True(t, CanSettlePenalty(Actor{UserID: 2, Role: domain.RoleBranchLead, BranchID: branch1}, 7, branch1))
}

func TestCanWaivePenalty(t *testing.T) {
	branch1 := uintPtr(1)

	// Owing member cannot waive their own fee.
	assert.False(t, CanWaivePenalty(Actor{UserID: 7, Role: domain.RoleMember, BranchID: branch1}, branch1))
	assert.True(t, CanWaivePenalty(Actor{Role: domain.RoleAdmin}, branch1))
}

func TestCanDecideLoan(t *testing.T) {
	assert.True(t, CanDecideLoan(Actor{Role: domain.RoleAdmin}))
	assert.False(t, CanDecideLoan(Actor{Role: domain.RoleBranchLead}))
	assert.False(t, CanDecideLoan(Actor{Role: domain.RoleMember}))
}

func TestPenaltyBranch(t *testing.T) {
	branch1 := uintPtr(1)
	branch2 := uintPtr(2)

	// Admin assigns into the target's branch.
	assert.Equal(t, branch2, PenaltyBranch(Actor{Role: domain.RoleAdmin, BranchID: branch1}, branch2))
	// Lead assigns into their own branch, whatever the target claims.
	assert.Equal(t, branch1, PenaltyBranch(Actor{Role: domain.RoleBranchLead, BranchID: branch1}, branch2))
}
