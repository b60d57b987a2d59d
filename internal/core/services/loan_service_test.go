package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angep72/Community-saver/internal/adapters/persistence/models"
	"github.com/angep72/Community-saver/internal/core/domain"
)

func TestRequestLoanCreatesPending(t *testing.T) {
	f := newFixture()
	branch := ptrUint(1)
	f.member(5, branch)
	svc := f.loanService()

	loan, err := svc.Request(context.Background(), memberActor(5, branch), &RequestLoanInput{
		Amount:         2000,
		DurationMonths: 12,
		Purpose:        "school fees",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.LoanPending, loan.Status)
	assert.Equal(t, branch, loan.BranchID)
	assert.Zero(t, loan.TotalAmount, "total is unknown until the rate is set at approval")
	assert.False(t, loan.AppliedDate.IsZero())

	// The principal counts into the member's loan total from request time.
	assert.InDelta(t, 2000, f.users.users[5].TotalLoans, 0.001)
}

func TestRequestLoanBlockedByOpenLoan(t *testing.T) {
	blocking := []domain.LoanStatus{domain.LoanPending, domain.LoanApproved, domain.LoanDisbursed}

	for _, status := range blocking {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture()
			f.member(5, nil)
			f.loans.add(&models.Loan{UserID: 5, Amount: 500, DurationMonths: 6, Status: status, AppliedDate: day(1)})
			svc := f.loanService()

			_, err := svc.Request(context.Background(), memberActor(5, nil), &RequestLoanInput{
				Amount: 1000, DurationMonths: 6, Purpose: "another loan",
			})
			assert.ErrorIs(t, err, ErrActiveLoanExists)
			assert.Len(t, f.loans.items, 1, "no record may be created on conflict")
		})
	}
}

func TestRequestLoanAllowedAfterSettledHistory(t *testing.T) {
	for _, status := range []domain.LoanStatus{domain.LoanRejected, domain.LoanRepaid, domain.LoanDefaulted} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture()
			f.member(5, nil)
			f.loans.add(&models.Loan{UserID: 5, Amount: 500, DurationMonths: 6, Status: status, AppliedDate: day(1)})
			svc := f.loanService()

			_, err := svc.Request(context.Background(), memberActor(5, nil), &RequestLoanInput{
				Amount: 1000, DurationMonths: 6, Purpose: "fresh start",
			})
			assert.NoError(t, err)
		})
	}
}

func TestApproveLoanSetsSimpleInterestTotal(t *testing.T) {
	f := newFixture()
	f.member(5, nil)
	loan := f.loans.add(&models.Loan{UserID: 5, Amount: 2000, DurationMonths: 12, Status: domain.LoanPending, AppliedDate: day(1)})
	svc := f.loanService()

	approved, warning, err := svc.Decide(context.Background(), adminActor(1), loan.ID, &DecideLoanInput{
		Status:       domain.LoanApproved,
		InterestRate: ptrFloat(10),
	})
	require.NoError(t, err)
	assert.Empty(t, warning)

	// 2000 + 2000*10%*12 months
	assert.Equal(t, domain.LoanApproved, approved.Status)
	assert.InDelta(t, 4400, approved.TotalAmount, 0.001)
	assert.InDelta(t, 4400, approved.RemainingAmount, 0.001)
	assert.InDelta(t, 2400, approved.InterestAmount(), 0.001)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, uint(1), *approved.ApprovedBy)
	assert.NotNil(t, approved.ApprovedDate)

	assert.Equal(t, []uint{loan.ID}, f.notifier.decisions)
}

func TestApproveLoanRequiresRate(t *testing.T) {
	f := newFixture()
	f.member(5, nil)
	loan := f.loans.add(&models.Loan{UserID: 5, Amount: 2000, DurationMonths: 12, Status: domain.LoanPending, AppliedDate: day(1)})
	svc := f.loanService()

	_, _, err := svc.Decide(context.Background(), adminActor(1), loan.ID, &DecideLoanInput{
		Status: domain.LoanApproved,
	})
	assert.ErrorIs(t, err, ErrInterestRateRequired)
	assert.Equal(t, domain.LoanPending, loan.Status)
}

func TestRejectLoanRequiresReason(t *testing.T) {
	f := newFixture()
	f.member(5, nil)
	loan := f.loans.add(&models.Loan{UserID: 5, Amount: 2000, DurationMonths: 12, Status: domain.LoanPending, AppliedDate: day(1)})
	svc := f.loanService()

	_, _, err := svc.Decide(context.Background(), adminActor(1), loan.ID, &DecideLoanInput{
		Status: domain.LoanRejected,
	})
	assert.ErrorIs(t, err, ErrRejectionReasonRequired)

	rejected, _, err := svc.Decide(context.Background(), adminActor(1), loan.ID, &DecideLoanInput{
		Status:          domain.LoanRejected,
		RejectionReason: "insufficient savings history",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LoanRejected, rejected.Status)
	assert.Equal(t, "insufficient savings history", rejected.RejectionReason)
}

func TestDecideAlreadyDecidedLoan(t *testing.T) {
	f := newFixture()
	f.member(5, nil)
	loan := f.loans.add(&models.Loan{UserID: 5, Amount: 2000, DurationMonths: 12, Status: domain.LoanPending, AppliedDate: day(1)})
	svc := f.loanService()
	ctx := context.Background()

	_, _, err := svc.Decide(ctx, adminActor(1), loan.ID, &DecideLoanInput{
		Status: domain.LoanApproved, InterestRate: ptrFloat(10),
	})
	require.NoError(t, err)

	// A second decision must leave the loan untouched.
	_, _, err = svc.Decide(ctx, adminActor(1), loan.ID, &DecideLoanInput{
		Status: domain.LoanRejected, RejectionReason: "changed my mind",
	})
	assert.ErrorIs(t, err, ErrLoanNotPending)
	assert.Equal(t, domain.LoanApproved, loan.Status)
	assert.InDelta(t, 4400, loan.TotalAmount, 0.001)
	assert.Empty(t, loan.RejectionReason)
}

func TestDecideLoanAdminOnly(t *testing.T) {
	f := newFixture()
	branch := ptrUint(1)
	f.member(5, branch)
	loan := f.loans.add(&models.Loan{UserID: 5, Amount: 2000, DurationMonths: 12, Status: domain.LoanPending, AppliedDate: day(1)})
	svc := f.loanService()

	_, _, err := svc.Decide(context.Background(), leadActor(2, branch), loan.ID, &DecideLoanInput{
		Status: domain.LoanApproved, InterestRate: ptrFloat(10),
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestDisburseStartsRepaymentClock(t *testing.T) {
	f := newFixture()
	f.member(5, nil)
	loan := f.loans.add(&models.Loan{
		UserID: 5, Amount: 2000, InterestRate: 10, DurationMonths: 12,
		TotalAmount: 4400, RemainingAmount: 4400,
		Status: domain.LoanApproved, AppliedDate: day(1),
	})
	svc := f.loanService()

	disbursed, err := svc.Disburse(context.Background(), adminActor(1), loan.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.LoanDisbursed, disbursed.Status)
	require.NotNil(t, disbursed.DisbursedDate)
	require.NotNil(t, disbursed.DueDate)
	wantDue := disbursed.DisbursedDate.AddDate(0, 12, 0)
	assert.WithinDuration(t, wantDue, *disbursed.DueDate, time.Second)

	// Only approved loans can be disbursed, and only once.
	_, err = svc.Disburse(context.Background(), adminActor(1), loan.ID)
	assert.ErrorIs(t, err, ErrLoanNotApproved)
}

func TestMarkRepaidClosesLoan(t *testing.T) {
	f := newFixture()
	f.member(5, nil)
	now := time.Now()
	loan := f.loans.add(&models.Loan{
		UserID: 5, Amount: 2000, InterestRate: 10, DurationMonths: 12,
		TotalAmount: 4400, RemainingAmount: 4400,
		Status: domain.LoanDisbursed, AppliedDate: day(1), DisbursedDate: &now,
	})
	svc := f.loanService()

	repaid, err := svc.MarkRepaid(context.Background(), adminActor(1), loan.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.LoanRepaid, repaid.Status)
	assert.NotNil(t, repaid.RepaidDate)
	assert.InDelta(t, 4400, repaid.AmountPaid, 0.001)
	assert.Zero(t, repaid.RemainingAmount)

	_, err = svc.MarkRepaid(context.Background(), adminActor(1), loan.ID)
	assert.ErrorIs(t, err, ErrLoanNotDisbursed)
}

func TestMarkDefaultedRequiresPassedDueDate(t *testing.T) {
	f := newFixture()
	f.member(5, nil)
	svc := f.loanService()
	ctx := context.Background()

	future := time.Now().AddDate(0, 1, 0)
	current := f.loans.add(&models.Loan{
		UserID: 5, Amount: 2000, DurationMonths: 12, TotalAmount: 4400,
		Status: domain.LoanDisbursed, AppliedDate: day(1), DueDate: &future,
	})
	_, err := svc.MarkDefaulted(ctx, adminActor(1), current.ID)
	assert.ErrorIs(t, err, ErrLoanNotYetDue)

	past := time.Now().AddDate(0, -1, 0)
	overdue := f.loans.add(&models.Loan{
		UserID: 6, Amount: 1000, DurationMonths: 6, TotalAmount: 1600, RemainingAmount: 1600,
		Status: domain.LoanDisbursed, AppliedDate: day(1), DueDate: &past,
	})
	f.member(6, nil)

	defaulted, err := svc.MarkDefaulted(ctx, adminActor(1), overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanDefaulted, defaulted.Status)
	assert.NotNil(t, defaulted.DefaultedDate)
}

func TestLoanTotalCountsEveryStatus(t *testing.T) {
	f := newFixture()
	f.member(5, nil)
	f.loans.add(&models.Loan{UserID: 5, Amount: 1000, DurationMonths: 6, Status: domain.LoanRejected, AppliedDate: day(1)})
	f.loans.add(&models.Loan{UserID: 5, Amount: 2000, DurationMonths: 6, Status: domain.LoanRepaid, AppliedDate: day(2)})
	f.loans.add(&models.Loan{UserID: 5, Amount: 4000, DurationMonths: 6, Status: domain.LoanDisbursed, AppliedDate: day(3)})

	_, err := f.totals.Recompute(context.Background(), 5)
	require.NoError(t, err)

	// The displayed figure is lifetime principal, not open debt.
	assert.InDelta(t, 7000, f.users.users[5].TotalLoans, 0.001)
}

func TestRiskScore(t *testing.T) {
	f := newFixture()
	svc := f.loanService()

	borrower := &models.User{ID: 5, TotalContributions: 10000}
	resp := svc.ToResponse(&models.Loan{UserID: 5, Amount: 2500, User: borrower})
	require.NotNil(t, resp.RiskScore)
	assert.InDelta(t, 25, *resp.RiskScore, 0.001)

	// Borrowing far beyond savings caps at 100.
	resp = svc.ToResponse(&models.Loan{UserID: 5, Amount: 50000, User: borrower})
	require.NotNil(t, resp.RiskScore)
	assert.InDelta(t, 100, *resp.RiskScore, 0.001)

	// No savings means no meaningful score.
	resp = svc.ToResponse(&models.Loan{UserID: 6, Amount: 500, User: &models.User{ID: 6}})
	assert.Nil(t, resp.RiskScore)
}

func TestDecisionEmailFailureIsSoftWarning(t *testing.T) {
	f := newFixture()
	f.member(5, nil)
	f.notifier.err = errors.New("smtp unreachable")
	loan := f.loans.add(&models.Loan{UserID: 5, Amount: 2000, DurationMonths: 12, Status: domain.LoanPending, AppliedDate: day(1)})
	svc := f.loanService()

	approved, warning, err := svc.Decide(context.Background(), adminActor(1), loan.ID, &DecideLoanInput{
		Status: domain.LoanApproved, InterestRate: ptrFloat(10),
	})
	require.NoError(t, err, "a failed notice must not fail the decision")
	assert.Equal(t, domain.LoanApproved, approved.Status)
	assert.NotEmpty(t, warning)
}
