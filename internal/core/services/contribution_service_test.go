package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angep72/Community-saver/internal/adapters/persistence/models"
	"github.com/angep72/Community-saver/internal/adapters/persistence/repositories"
	"github.com/angep72/Community-saver/internal/core/domain"
)

func TestRecordContributionSelfStartsPending(t *testing.T) {
	f := newFixture()
	branch := ptrUint(1)
	f.member(5, branch)
	svc := f.contributionService()

	d := day(5)
	c, err := svc.Record(context.Background(), memberActor(5, branch), &RecordContributionInput{
		UserID: 5,
		Amount: 100,
		Date:   &d,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ContributionPending, c.Status)
	assert.Equal(t, domain.ContributionMonthly, c.Type)
	assert.Equal(t, uint(5), c.RecordedBy)

	// Pending entries already count toward the member's displayed total.
	assert.InDelta(t, 100, f.users.users[5].TotalContributions, 0.001)
}

func TestRecordContributionByLeadIsConfirmed(t *testing.T) {
	f := newFixture()
	branch := ptrUint(1)
	f.member(5, branch)
	svc := f.contributionService()

	d := day(5)
	c, err := svc.Record(context.Background(), leadActor(2, branch), &RecordContributionInput{
		UserID: 5,
		Amount: 250,
		Date:   &d,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ContributionConfirmed, c.Status)
	assert.Equal(t, uint(2), c.RecordedBy)
	assert.Equal(t, branch, c.BranchID)
}

func TestRecordContributionScope(t *testing.T) {
	f := newFixture()
	branch1 := ptrUint(1)
	branch2 := ptrUint(2)
	f.member(5, branch1)
	svc := f.contributionService()
	d := day(5)

	// Another member cannot record for someone else.
	_, err := svc.Record(context.Background(), memberActor(6, branch1), &RecordContributionInput{
		UserID: 5, Amount: 100, Date: &d,
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// A lead of a different branch cannot either.
	_, err = svc.Record(context.Background(), leadActor(2, branch2), &RecordContributionInput{
		UserID: 5, Amount: 100, Date: &d,
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRecordContributionRejectsSystemType(t *testing.T) {
	f := newFixture()
	f.member(5, nil)
	svc := f.contributionService()

	_, err := svc.Record(context.Background(), adminActor(1), &RecordContributionInput{
		UserID: 5,
		Amount: 25,
		Type:   domain.ContributionPenaltyPayment,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, f.contribs.items)
}

func TestRecordContributionRequiresApprovedActiveMember(t *testing.T) {
	f := newFixture()
	pending := f.member(5, nil)
	pending.ApprovalStatus = domain.ApprovalPending
	inactive := f.member(6, nil)
	inactive.IsActive = false
	svc := f.contributionService()

	_, err := svc.Record(context.Background(), adminActor(1), &RecordContributionInput{UserID: 5, Amount: 100})
	assert.ErrorIs(t, err, domain.ErrUserNotApproved)

	_, err = svc.Record(context.Background(), adminActor(1), &RecordContributionInput{UserID: 6, Amount: 100})
	assert.ErrorIs(t, err, domain.ErrUserInactive)
}

func TestLateFeeAssessedAfterPolicyDay(t *testing.T) {
	f := newFixture()
	branch := ptrUint(1)
	f.member(5, branch)
	svc := f.contributionService()

	d := day(15)
	_, err := svc.Record(context.Background(), leadActor(2, branch), &RecordContributionInput{
		UserID: 5,
		Amount: 100,
		Date:   &d,
	})
	require.NoError(t, err)

	require.Len(t, f.penalties.items, 1)
	fee := f.penalties.items[0]
	assert.Equal(t, uint(5), fee.UserID)
	assert.InDelta(t, 25, fee.Amount, 0.001)
	assert.Equal(t, domain.PenaltyLateContribution, fee.Reason)
	assert.Equal(t, domain.PenaltyPending, fee.Status)
	// The fee carries the contribution's own date, not the processing time.
	assert.Equal(t, d, fee.AssignedDate)

	// Both the savings and the new fee land in the member's totals.
	assert.InDelta(t, 100, f.users.users[5].TotalContributions, 0.001)
	assert.InDelta(t, 25, f.users.users[5].TotalPenalties, 0.001)
}

func TestLateFeeNotAssessedOnPolicyDay(t *testing.T) {
	f := newFixture()
	branch := ptrUint(1)
	f.member(5, branch)
	svc := f.contributionService()

	d := day(10)
	_, err := svc.Record(context.Background(), leadActor(2, branch), &RecordContributionInput{
		UserID: 5,
		Amount: 100,
		Date:   &d,
	})
	require.NoError(t, err)
	assert.Empty(t, f.penalties.items)
}

func TestLateFeeWaitsForConfirmation(t *testing.T) {
	f := newFixture()
	branch := ptrUint(1)
	f.member(5, branch)
	svc := f.contributionService()

	d := day(20)
	c, err := svc.Record(context.Background(), memberActor(5, branch), &RecordContributionInput{
		UserID: 5,
		Amount: 100,
		Date:   &d,
	})
	require.NoError(t, err)
	assert.Empty(t, f.penalties.items, "pending entries must not trigger the fee")

	_, err = svc.Confirm(context.Background(), leadActor(2, branch), c.ID)
	require.NoError(t, err)
	assert.Len(t, f.penalties.items, 1)
}

func TestConfirmAlreadyProcessed(t *testing.T) {
	f := newFixture()
	branch := ptrUint(1)
	f.member(5, branch)
	svc := f.contributionService()

	d := day(5)
	c, err := svc.Record(context.Background(), memberActor(5, branch), &RecordContributionInput{
		UserID: 5, Amount: 100, Date: &d,
	})
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), leadActor(2, branch), c.ID)
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), leadActor(2, branch), c.ID)
	assert.ErrorIs(t, err, ErrContributionNotPending)
}

func TestCancelPendingEntry(t *testing.T) {
	f := newFixture()
	branch := ptrUint(1)
	f.member(5, branch)
	svc := f.contributionService()

	d := day(5)
	c, err := svc.Record(context.Background(), memberActor(5, branch), &RecordContributionInput{
		UserID: 5, Amount: 100, Date: &d,
	})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), memberActor(5, branch), c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContributionCancelled, cancelled.Status)

	// Cancelled entries leave the member's total.
	assert.InDelta(t, 0, f.users.users[5].TotalContributions, 0.001)
}

func TestCancelConfirmedEntryFails(t *testing.T) {
	f := newFixture()
	f.member(5, ptrUint(1))
	c := f.confirmed(5, 100, day(5))
	svc := f.contributionService()

	_, err := svc.Cancel(context.Background(), adminActor(1), c.ID)
	assert.ErrorIs(t, err, ErrContributionNotPending)
}

func TestPenaltyPaymentEntriesAreImmutable(t *testing.T) {
	f := newFixture()
	f.member(5, nil)
	entry := f.contribs.add(&models.Contribution{
		UserID:     5,
		Amount:     -25,
		Type:       domain.ContributionPenaltyPayment,
		Date:       day(12),
		RecordedBy: 5,
		Status:     domain.ContributionConfirmed,
	})
	svc := f.contributionService()

	_, err := svc.Cancel(context.Background(), adminActor(1), entry.ID)
	assert.ErrorIs(t, err, ErrContributionImmutable)

	err = svc.Delete(context.Background(), adminActor(1), entry.ID)
	assert.ErrorIs(t, err, ErrContributionImmutable)
}

func TestListScopedByRole(t *testing.T) {
	f := newFixture()
	branch1 := ptrUint(1)
	branch2 := ptrUint(2)
	f.member(5, branch1)
	f.member(6, branch2)
	f.confirmed(5, 100, day(1))
	f.confirmed(6, 200, day(2))
	svc := f.contributionService()
	ctx := context.Background()

	all, total, err := svc.List(ctx, adminActor(1), repositories.ContributionFilter{}, 0, 20)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.EqualValues(t, 2, total)

	own, _, err := svc.List(ctx, memberActor(5, branch1), repositories.ContributionFilter{}, 0, 20)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, uint(5), own[0].UserID)

	scoped, _, err := svc.List(ctx, leadActor(2, branch2), repositories.ContributionFilter{}, 0, 20)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, uint(6), scoped[0].UserID)
}
