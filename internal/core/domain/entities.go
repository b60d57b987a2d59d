package domain

import "time"

// Role represents a user role in the system
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleBranchLead Role = "branch_lead"
	RoleMember     Role = "member"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleBranchLead, RoleMember:
		return true
	}
	return false
}

// ApprovalStatus represents a member account's approval state
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ContributionStatus represents a contribution ledger entry's state.
// Only confirmed entries count toward totals and allocation pools.
type ContributionStatus string

const (
	ContributionPending   ContributionStatus = "pending"
	ContributionConfirmed ContributionStatus = "confirmed"
	ContributionCancelled ContributionStatus = "cancelled"
)

// ContributionType classifies a contribution ledger entry
type ContributionType string

const (
	ContributionMonthly        ContributionType = "monthly"
	ContributionVoluntary      ContributionType = "voluntary"
	ContributionPenaltyPayment ContributionType = "penalty_payment"
	ContributionOther          ContributionType = "other"
)

// Valid reports whether the type is one of the known contribution types.
func (t ContributionType) Valid() bool {
	switch t {
	case ContributionMonthly, ContributionVoluntary, ContributionPenaltyPayment, ContributionOther:
		return true
	}
	return false
}

// LoanStatus represents a loan's lifecycle state.
//
//	pending → approved | rejected
//	approved → disbursed
//	disbursed → repaid | defaulted
//
// rejected, repaid and defaulted are terminal.
type LoanStatus string

const (
	LoanPending   LoanStatus = "pending"
	LoanApproved  LoanStatus = "approved"
	LoanRejected  LoanStatus = "rejected"
	LoanDisbursed LoanStatus = "disbursed"
	LoanRepaid    LoanStatus = "repaid"
	LoanDefaulted LoanStatus = "defaulted"
)

// ActiveLoanStatuses are the states in which a member's existing loan blocks
// a new loan request.
var ActiveLoanStatuses = []LoanStatus{LoanPending, LoanApproved, LoanDisbursed}

// OutstandingLoanStatuses are the states in which loan principal is out of
// the treasury and its interest is not yet realized.
var OutstandingLoanStatuses = []LoanStatus{LoanApproved, LoanDisbursed}

// PenaltyStatus represents a penalty's state
type PenaltyStatus string

const (
	PenaltyPending PenaltyStatus = "pending"
	PenaltyPaid    PenaltyStatus = "paid"
	PenaltyWaived  PenaltyStatus = "waived"
)

// PenaltyReason classifies why a penalty was assigned
type PenaltyReason string

const (
	PenaltyLateContribution PenaltyReason = "late_contribution"
	PenaltyMissedMeeting    PenaltyReason = "missed_meeting"
	PenaltyLoanDefault      PenaltyReason = "loan_default"
	PenaltyOther            PenaltyReason = "other"
)

// Valid reports whether the reason is one of the known reasons.
func (r PenaltyReason) Valid() bool {
	switch r {
	case PenaltyLateContribution, PenaltyMissedMeeting, PenaltyLoanDefault, PenaltyOther:
		return true
	}
	return false
}

// MemberTotals holds the three derived per-member totals. They are caches
// recomputed from the ledger after every write and must always be
// recomputable from raw entries.
type MemberTotals struct {
	Contributions float64 `json:"total_contributions"`
	Loans         float64 `json:"total_loans"`
	Penalties     float64 `json:"total_penalties"`
}

// InterestEvent is a realized income event: the interest component of a
// repaid loan or the amount of a paid penalty, dated at realization time.
// The date is the cutoff used to allocate the amount across members.
type InterestEvent struct {
	Amount float64
	Date   time.Time
}
