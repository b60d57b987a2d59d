// Package policy holds the role and branch scoping rules in one place.
// Admins act group-wide, branch leads act inside their own branch, members
// act on their own records only. Handlers gate routes by role; services call
// these checks for the finer branch and ownership scoping.
package policy

import "github.com/angep72/Community-saver/internal/core/domain"

// Actor is the authenticated principal taken from the access token.
type Actor struct {
	UserID   uint
	Role     domain.Role
	BranchID *uint
}

func (a Actor) IsAdmin() bool {
	return a.Role == domain.RoleAdmin
}

func (a Actor) IsBranchLead() bool {
	return a.Role == domain.RoleBranchLead
}

// SameBranch reports whether the actor belongs to the given branch.
func (a Actor) SameBranch(branchID *uint) bool {
	return a.BranchID != nil && branchID != nil && *a.BranchID == *branchID
}

// CanViewMember allows admins everywhere, branch leads inside their branch,
// and everyone on themselves.
func CanViewMember(actor Actor, targetID uint, targetBranchID *uint) bool {
	if actor.UserID == targetID {
		return true
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleBranchLead:
		return actor.SameBranch(targetBranchID)
	default:
		return false
	}
}

// CanManageMember gates mutations on another member's ledger (recording
// contributions, assigning penalties). Members never manage other members.
func CanManageMember(actor Actor, targetBranchID *uint) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleBranchLead:
		return actor.SameBranch(targetBranchID)
	default:
		return false
	}
}

// CanSettlePenalty allows the owing member to pay their own penalty, plus
// anyone who could have assigned it.
func CanSettlePenalty(actor Actor, ownerID uint, ownerBranchID *uint) bool {
	if actor.UserID == ownerID {
		return true
	}
	return CanManageMember(actor, ownerBranchID)
}

// CanWaivePenalty is lead/admin only; members cannot forgive their own fees.
func CanWaivePenalty(actor Actor, ownerBranchID *uint) bool {
	return CanManageMember(actor, ownerBranchID)
}

// CanDecideLoan gates loan approval, rejection, disbursement and closure.
func CanDecideLoan(actor Actor) bool {
	return actor.IsAdmin()
}

// PenaltyBranch resolves which branch a new penalty is attributed to: the
// assigning lead's own branch, or the target member's branch when an admin
// assigns.
func PenaltyBranch(actor Actor, targetBranchID *uint) *uint {
	if actor.IsAdmin() {
		return targetBranchID
	}
	return actor.BranchID
}
