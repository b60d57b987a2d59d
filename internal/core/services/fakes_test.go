package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angep72/Community-saver/internal/adapters/persistence/models"
	"github.com/angep72/Community-saver/internal/adapters/persistence/repositories"
	"github.com/angep72/Community-saver/internal/config"
	"github.com/angep72/Community-saver/internal/core/domain"
	"github.com/angep72/Community-saver/internal/core/policy"
)

// In-memory repository fakes. They mirror the SQL implementations closely
// enough for service-level behavior: status guards only apply when the
// current status matches, sums skip the same rows the JOINs skip, and the
// dual-write on penalty settlement lands in the contribution fake.

func ptrUint(v uint) *uint        { return &v }
func ptrFloat(v float64) *float64 { return &v }

// day returns noon UTC on the given day of March 2025.
func day(d int) time.Time { return time.Date(2025, 3, d, 12, 0, 0, 0, time.UTC) }

func asFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	}
	return 0
}

func asTimePtr(v interface{}) *time.Time {
	if t, ok := v.(time.Time); ok {
		return &t
	}
	return nil
}

// ------------------------------------------------------------
// users
// ------------------------------------------------------------

type fakeUserRepo struct {
	nextID uint
	users  map[uint]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint]*models.User)}
}

// add seeds a user, keeping any preset ID.
func (f *fakeUserRepo) add(u *models.User) *models.User {
	if u.ID == 0 {
		f.nextID++
		u.ID = f.nextID
	} else if u.ID > f.nextID {
		f.nextID = u.ID
	}
	f.users[u.ID] = u
	return u
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	f.add(user)
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id uint) error {
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) List(_ context.Context, filter repositories.UserFilter, offset, limit int) ([]*models.User, int64, error) {
	var all []*models.User
	for _, u := range f.users {
		if filter.BranchID != nil && (u.BranchID == nil || *u.BranchID != *filter.BranchID) {
			continue
		}
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.ApprovalStatus != "" && u.ApprovalStatus != filter.ApprovalStatus {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakeUserRepo) ListActive(_ context.Context) ([]*models.User, error) {
	var all []*models.User
	for _, u := range f.users {
		if u.IsActive && u.ApprovalStatus == domain.ApprovalApproved {
			all = append(all, u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

func (f *fakeUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) UpdateTotals(_ context.Context, id uint, totals domain.MemberTotals) error {
	u, ok := f.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.TotalContributions = totals.Contributions
	u.TotalLoans = totals.Loans
	u.TotalPenalties = totals.Penalties
	return nil
}

func (f *fakeUserRepo) DeactivateByBranch(_ context.Context, branchID uint) (int64, error) {
	var count int64
	for _, u := range f.users {
		if u.BranchID != nil && *u.BranchID == branchID && u.IsActive {
			u.IsActive = false
			count++
		}
	}
	return count, nil
}

// ------------------------------------------------------------
// branches
// ------------------------------------------------------------

type fakeBranchRepo struct {
	nextID   uint
	branches map[uint]*models.Branch
	users    *fakeUserRepo
}

func newFakeBranchRepo(users *fakeUserRepo) *fakeBranchRepo {
	return &fakeBranchRepo{branches: make(map[uint]*models.Branch), users: users}
}

func (f *fakeBranchRepo) add(b *models.Branch) *models.Branch {
	if b.ID == 0 {
		f.nextID++
		b.ID = f.nextID
	} else if b.ID > f.nextID {
		f.nextID = b.ID
	}
	f.branches[b.ID] = b
	return b
}

func (f *fakeBranchRepo) Create(_ context.Context, branch *models.Branch) error {
	f.add(branch)
	return nil
}

func (f *fakeBranchRepo) GetByID(_ context.Context, id uint) (*models.Branch, error) {
	b, ok := f.branches[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return b, nil
}

func (f *fakeBranchRepo) GetByCode(_ context.Context, code string) (*models.Branch, error) {
	for _, b := range f.branches {
		if b.Code == code {
			return b, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBranchRepo) Update(_ context.Context, branch *models.Branch) error {
	if _, ok := f.branches[branch.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.branches[branch.ID] = branch
	return nil
}

func (f *fakeBranchRepo) Delete(_ context.Context, id uint) error {
	delete(f.branches, id)
	return nil
}

func (f *fakeBranchRepo) List(_ context.Context, offset, limit int) ([]*models.Branch, int64, error) {
	var all []*models.Branch
	for _, b := range f.branches {
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakeBranchRepo) ExistsByCode(_ context.Context, code string) (bool, error) {
	for _, b := range f.branches {
		if b.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBranchRepo) CountMembers(_ context.Context, branchID uint) (int64, error) {
	var count int64
	for _, u := range f.users.users {
		if u.BranchID != nil && *u.BranchID == branchID {
			count++
		}
	}
	return count, nil
}

// ------------------------------------------------------------
// contributions
// ------------------------------------------------------------

type fakeContributionRepo struct {
	nextID uint
	items  []*models.Contribution
	users  *fakeUserRepo
}

func newFakeContributionRepo(users *fakeUserRepo) *fakeContributionRepo {
	return &fakeContributionRepo{users: users}
}

func (f *fakeContributionRepo) add(c *models.Contribution) *models.Contribution {
	if c.ID == 0 {
		f.nextID++
		c.ID = f.nextID
	} else if c.ID > f.nextID {
		f.nextID = c.ID
	}
	f.items = append(f.items, c)
	return c
}

func (f *fakeContributionRepo) userExists(id uint) bool {
	_, ok := f.users.users[id]
	return ok
}

func (f *fakeContributionRepo) userActive(id uint) bool {
	u, ok := f.users.users[id]
	return ok && u.IsActive
}

func (f *fakeContributionRepo) Create(_ context.Context, contribution *models.Contribution) error {
	f.add(contribution)
	return nil
}

func (f *fakeContributionRepo) GetByID(_ context.Context, id uint) (*models.Contribution, error) {
	for _, c := range f.items {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeContributionRepo) Update(_ context.Context, contribution *models.Contribution) error {
	for i, c := range f.items {
		if c.ID == contribution.ID {
			f.items[i] = contribution
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeContributionRepo) Delete(_ context.Context, id uint) error {
	for i, c := range f.items {
		if c.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeContributionRepo) List(_ context.Context, filter repositories.ContributionFilter, offset, limit int) ([]*models.Contribution, int64, error) {
	var all []*models.Contribution
	for _, c := range f.items {
		if filter.UserID != nil && c.UserID != *filter.UserID {
			continue
		}
		if filter.BranchID != nil && (c.BranchID == nil || *c.BranchID != *filter.BranchID) {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.Type != "" && c.Type != filter.Type {
			continue
		}
		all = append(all, c)
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakeContributionRepo) UpdateStatusIf(_ context.Context, id uint, expected domain.ContributionStatus, patch map[string]interface{}) (bool, error) {
	for _, c := range f.items {
		if c.ID != id || c.Status != expected {
			continue
		}
		for key, v := range patch {
			switch key {
			case "status":
				c.Status = v.(domain.ContributionStatus)
			case "notes":
				c.Notes = v.(string)
			}
		}
		return true, nil
	}
	return false, nil
}

func (f *fakeContributionRepo) SumNonCancelledByUser(_ context.Context, userID uint) (float64, error) {
	var total float64
	for _, c := range f.items {
		if c.UserID == userID && c.Status != domain.ContributionCancelled {
			total += c.Amount
		}
	}
	return total, nil
}

func (f *fakeContributionRepo) SumConfirmed(_ context.Context) (float64, error) {
	var total float64
	for _, c := range f.items {
		if c.Status == domain.ContributionConfirmed && f.userExists(c.UserID) {
			total += c.Amount
		}
	}
	return total, nil
}

func (f *fakeContributionRepo) SumConfirmedByType(_ context.Context, contributionType domain.ContributionType) (float64, error) {
	var total float64
	for _, c := range f.items {
		if c.Status == domain.ContributionConfirmed && c.Type == contributionType && f.userExists(c.UserID) {
			total += c.Amount
		}
	}
	return total, nil
}

func (f *fakeContributionRepo) ListConfirmedByDate(_ context.Context) ([]*models.Contribution, error) {
	var out []*models.Contribution
	for _, c := range f.items {
		if c.Status == domain.ContributionConfirmed && f.userActive(c.UserID) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// ------------------------------------------------------------
// loans
// ------------------------------------------------------------

type fakeLoanRepo struct {
	nextID uint
	items  []*models.Loan
	users  *fakeUserRepo
}

func newFakeLoanRepo(users *fakeUserRepo) *fakeLoanRepo {
	return &fakeLoanRepo{users: users}
}

func (f *fakeLoanRepo) add(l *models.Loan) *models.Loan {
	if l.ID == 0 {
		f.nextID++
		l.ID = f.nextID
	} else if l.ID > f.nextID {
		f.nextID = l.ID
	}
	f.items = append(f.items, l)
	return l
}

func (f *fakeLoanRepo) Create(_ context.Context, loan *models.Loan) error {
	f.add(loan)
	return nil
}

func (f *fakeLoanRepo) GetByID(_ context.Context, id uint) (*models.Loan, error) {
	for _, l := range f.items {
		if l.ID == id {
			if l.User == nil {
				l.User = f.users.users[l.UserID]
			}
			return l, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLoanRepo) Update(_ context.Context, loan *models.Loan) error {
	for i, l := range f.items {
		if l.ID == loan.ID {
			f.items[i] = loan
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeLoanRepo) Delete(_ context.Context, id uint) error {
	for i, l := range f.items {
		if l.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeLoanRepo) List(_ context.Context, filter repositories.LoanFilter, offset, limit int) ([]*models.Loan, int64, error) {
	var all []*models.Loan
	for _, l := range f.items {
		if filter.UserID != nil && l.UserID != *filter.UserID {
			continue
		}
		if filter.BranchID != nil && (l.BranchID == nil || *l.BranchID != *filter.BranchID) {
			continue
		}
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		all = append(all, l)
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakeLoanRepo) ListByStatuses(_ context.Context, statuses []domain.LoanStatus) ([]*models.Loan, error) {
	var out []*models.Loan
	for _, l := range f.items {
		if !loanStatusIn(l.Status, statuses) {
			continue
		}
		if _, ok := f.users.users[l.UserID]; !ok {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeLoanRepo) ListOverdue(_ context.Context, asOf time.Time) ([]*models.Loan, error) {
	var out []*models.Loan
	for _, l := range f.items {
		if l.Status == domain.LoanDisbursed && l.DueDate != nil && l.DueDate.Before(asOf) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLoanRepo) HasLoanInStatuses(_ context.Context, userID uint, statuses []domain.LoanStatus) (bool, error) {
	for _, l := range f.items {
		if l.UserID == userID && loanStatusIn(l.Status, statuses) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLoanRepo) UpdateStatusIf(_ context.Context, id uint, expected domain.LoanStatus, patch map[string]interface{}) (bool, error) {
	for _, l := range f.items {
		if l.ID != id || l.Status != expected {
			continue
		}
		for key, v := range patch {
			switch key {
			case "status":
				l.Status = v.(domain.LoanStatus)
			case "interest_rate":
				l.InterestRate = asFloat(v)
			case "total_amount":
				l.TotalAmount = asFloat(v)
			case "amount_paid":
				l.AmountPaid = asFloat(v)
			case "remaining_amount":
				l.RemainingAmount = asFloat(v)
			case "approved_by":
				by := v.(uint)
				l.ApprovedBy = &by
			case "approved_date":
				l.ApprovedDate = asTimePtr(v)
			case "disbursed_date":
				l.DisbursedDate = asTimePtr(v)
			case "due_date":
				l.DueDate = asTimePtr(v)
			case "repaid_date":
				l.RepaidDate = asTimePtr(v)
			case "defaulted_date":
				l.DefaultedDate = asTimePtr(v)
			case "rejection_reason":
				l.RejectionReason = v.(string)
			}
		}
		return true, nil
	}
	return false, nil
}

func (f *fakeLoanRepo) SumPrincipalByUser(_ context.Context, userID uint) (float64, error) {
	var total float64
	for _, l := range f.items {
		if l.UserID == userID {
			total += l.Amount
		}
	}
	return total, nil
}

func (f *fakeLoanRepo) AggregateByStatuses(_ context.Context, statuses []domain.LoanStatus) (*repositories.LoanAggregate, error) {
	agg := &repositories.LoanAggregate{}
	for _, l := range f.items {
		if !loanStatusIn(l.Status, statuses) {
			continue
		}
		if _, ok := f.users.users[l.UserID]; !ok {
			continue
		}
		agg.Principal += l.Amount
		agg.Total += l.TotalAmount
	}
	return agg, nil
}

func loanStatusIn(s domain.LoanStatus, set []domain.LoanStatus) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

// ------------------------------------------------------------
// penalties
// ------------------------------------------------------------

type fakePenaltyRepo struct {
	nextID   uint
	items    []*models.Penalty
	users    *fakeUserRepo
	contribs *fakeContributionRepo
}

func newFakePenaltyRepo(users *fakeUserRepo, contribs *fakeContributionRepo) *fakePenaltyRepo {
	return &fakePenaltyRepo{users: users, contribs: contribs}
}

func (f *fakePenaltyRepo) add(p *models.Penalty) *models.Penalty {
	if p.ID == 0 {
		f.nextID++
		p.ID = f.nextID
	} else if p.ID > f.nextID {
		f.nextID = p.ID
	}
	f.items = append(f.items, p)
	return p
}

func (f *fakePenaltyRepo) Create(_ context.Context, penalty *models.Penalty) error {
	f.add(penalty)
	return nil
}

func (f *fakePenaltyRepo) GetByID(_ context.Context, id uint) (*models.Penalty, error) {
	for _, p := range f.items {
		if p.ID == id {
			if p.User == nil {
				p.User = f.users.users[p.UserID]
			}
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePenaltyRepo) Update(_ context.Context, penalty *models.Penalty) error {
	for i, p := range f.items {
		if p.ID == penalty.ID {
			f.items[i] = penalty
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakePenaltyRepo) List(_ context.Context, filter repositories.PenaltyFilter, offset, limit int) ([]*models.Penalty, int64, error) {
	var all []*models.Penalty
	for _, p := range f.items {
		if filter.UserID != nil && p.UserID != *filter.UserID {
			continue
		}
		if filter.BranchID != nil && (p.BranchID == nil || *p.BranchID != *filter.BranchID) {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Reason != "" && p.Reason != filter.Reason {
			continue
		}
		all = append(all, p)
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakePenaltyRepo) ListByStatus(_ context.Context, status domain.PenaltyStatus) ([]*models.Penalty, error) {
	var out []*models.Penalty
	for _, p := range f.items {
		if p.Status != status {
			continue
		}
		if _, ok := f.users.users[p.UserID]; !ok {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AssignedDate.Before(out[j].AssignedDate) })
	return out, nil
}

func (f *fakePenaltyRepo) applyPatch(p *models.Penalty, patch map[string]interface{}) {
	for key, v := range patch {
		switch key {
		case "status":
			p.Status = v.(domain.PenaltyStatus)
		case "paid_date":
			p.PaidDate = asTimePtr(v)
		case "waived_date":
			p.WaivedDate = asTimePtr(v)
		case "waived_by":
			by := v.(uint)
			p.WaivedBy = &by
		case "notes":
			p.Notes = v.(string)
		}
	}
}

func (f *fakePenaltyRepo) UpdateStatusIf(_ context.Context, id uint, expected domain.PenaltyStatus, patch map[string]interface{}) (bool, error) {
	for _, p := range f.items {
		if p.ID == id && p.Status == expected {
			f.applyPatch(p, patch)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePenaltyRepo) MarkPaidWithLedgerEntry(_ context.Context, id uint, patch map[string]interface{}, entry *models.Contribution) (bool, error) {
	for _, p := range f.items {
		if p.ID == id && p.Status == domain.PenaltyPending {
			f.applyPatch(p, patch)
			f.contribs.add(entry)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePenaltyRepo) SumByStatus(_ context.Context, status domain.PenaltyStatus) (float64, error) {
	var total float64
	for _, p := range f.items {
		if p.Status != status {
			continue
		}
		if _, ok := f.users.users[p.UserID]; !ok {
			continue
		}
		total += p.Amount
	}
	return total, nil
}

func (f *fakePenaltyRepo) SumByUserAndStatuses(_ context.Context, userID uint, statuses []domain.PenaltyStatus) (float64, error) {
	var total float64
	for _, p := range f.items {
		if p.UserID != userID {
			continue
		}
		for _, s := range statuses {
			if p.Status == s {
				total += p.Amount
				break
			}
		}
	}
	return total, nil
}

func (f *fakePenaltyRepo) DeleteAll(_ context.Context) (int64, error) {
	deleted := int64(len(f.items))
	f.items = nil
	return deleted, nil
}

// ------------------------------------------------------------
// audit log
// ------------------------------------------------------------

type fakeAuditRepo struct {
	nextID  uint
	entries []*models.AuditLog
}

func (f *fakeAuditRepo) Create(_ context.Context, entry *models.AuditLog) error {
	f.nextID++
	entry.ID = f.nextID
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) List(_ context.Context, filter repositories.AuditLogFilter, offset, limit int) ([]*models.AuditLog, int64, error) {
	var all []*models.AuditLog
	for _, e := range f.entries {
		if filter.ActorID != nil && e.ActorID != *filter.ActorID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.Resource != "" && e.Resource != filter.Resource {
			continue
		}
		all = append(all, e)
	}
	return all, int64(len(all)), nil
}

// lastAction returns the most recent entry for a resource, or nil.
func (f *fakeAuditRepo) lastAction(resource string) *models.AuditLog {
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].Resource == resource {
			return f.entries[i]
		}
	}
	return nil
}

// ------------------------------------------------------------
// auth token stores
// ------------------------------------------------------------

type fakeRefreshTokenRepo struct {
	nextID uint
	tokens map[string]*models.RefreshToken
}

func newFakeRefreshTokenRepo() *fakeRefreshTokenRepo {
	return &fakeRefreshTokenRepo{tokens: make(map[string]*models.RefreshToken)}
}

func (f *fakeRefreshTokenRepo) Create(_ context.Context, token *models.RefreshToken) error {
	f.nextID++
	token.ID = f.nextID
	f.tokens[token.TokenHash] = token
	return nil
}

func (f *fakeRefreshTokenRepo) GetByTokenHash(_ context.Context, tokenHash string) (*models.RefreshToken, error) {
	t, ok := f.tokens[tokenHash]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (f *fakeRefreshTokenRepo) RevokeByTokenHash(_ context.Context, tokenHash string) error {
	if t, ok := f.tokens[tokenHash]; ok && t.RevokedAt == nil {
		now := time.Now()
		t.RevokedAt = &now
	}
	return nil
}

func (f *fakeRefreshTokenRepo) RevokeAllByUserID(_ context.Context, userID uint) error {
	now := time.Now()
	for _, t := range f.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
		}
	}
	return nil
}

func (f *fakeRefreshTokenRepo) DeleteExpired(_ context.Context) error {
	for hash, t := range f.tokens {
		if t.IsExpired() {
			delete(f.tokens, hash)
		}
	}
	return nil
}

func (f *fakeRefreshTokenRepo) CountActiveByUserID(_ context.Context, userID uint) (int64, error) {
	var count int64
	for _, t := range f.tokens {
		if t.UserID == userID && !t.IsRevoked() && !t.IsExpired() {
			count++
		}
	}
	return count, nil
}

type fakeResetTokenRepo struct {
	nextID uint
	tokens []*models.PasswordResetToken
}

func (f *fakeResetTokenRepo) Create(_ context.Context, token *models.PasswordResetToken) error {
	f.nextID++
	token.ID = f.nextID
	f.tokens = append(f.tokens, token)
	return nil
}

func (f *fakeResetTokenRepo) GetByTokenHash(_ context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	for _, t := range f.tokens {
		if t.TokenHash == tokenHash && t.UsedAt == nil && t.ExpiresAt.After(time.Now()) {
			return t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeResetTokenRepo) MarkUsed(_ context.Context, id uint) error {
	for _, t := range f.tokens {
		if t.ID == id {
			now := time.Now()
			t.UsedAt = &now
		}
	}
	return nil
}

func (f *fakeResetTokenRepo) DeleteExpired(_ context.Context) error {
	var kept []*models.PasswordResetToken
	for _, t := range f.tokens {
		if t.ExpiresAt.After(time.Now()) {
			kept = append(kept, t)
		}
	}
	f.tokens = kept
	return nil
}

// ------------------------------------------------------------
// notifier and cache
// ------------------------------------------------------------

type fakeNotifier struct {
	err       error
	decisions []uint
	reminders []uint
	approved  []uint
	resets    []string
}

func (f *fakeNotifier) LoanDecision(_ *models.User, loan *models.Loan) error {
	if f.err != nil {
		return f.err
	}
	f.decisions = append(f.decisions, loan.ID)
	return nil
}

func (f *fakeNotifier) LoanOverdue(_ *models.User, loan *models.Loan) error {
	if f.err != nil {
		return f.err
	}
	f.reminders = append(f.reminders, loan.ID)
	return nil
}

func (f *fakeNotifier) MemberApproved(user *models.User) error {
	if f.err != nil {
		return f.err
	}
	f.approved = append(f.approved, user.ID)
	return nil
}

func (f *fakeNotifier) PasswordReset(_ *models.User, resetLink string) error {
	if f.err != nil {
		return f.err
	}
	f.resets = append(f.resets, resetLink)
	return nil
}

type fakeCache struct {
	data    map[string][]byte
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (f *fakeCache) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := f.data[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (f *fakeCache) SetJSON(_ context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = raw
	return nil
}

func (f *fakeCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
		f.deleted = append(f.deleted, key)
	}
	return nil
}

// ------------------------------------------------------------
// fixture
// ------------------------------------------------------------

// fixture bundles the fakes and the services under test.
type fixture struct {
	users         *fakeUserRepo
	branches      *fakeBranchRepo
	contribs      *fakeContributionRepo
	loans         *fakeLoanRepo
	penalties     *fakePenaltyRepo
	auditRepo     *fakeAuditRepo
	refreshTokens *fakeRefreshTokenRepo
	resetTokens   *fakeResetTokenRepo
	notifier      *fakeNotifier
	cache         *fakeCache
	cfg           *config.Config

	totals *TotalsService
	audit  *AuditService
}

func newFixture() *fixture {
	users := newFakeUserRepo()
	contribs := newFakeContributionRepo(users)
	loans := newFakeLoanRepo(users)
	penalties := newFakePenaltyRepo(users, contribs)
	auditRepo := &fakeAuditRepo{}

	f := &fixture{
		users:         users,
		branches:      newFakeBranchRepo(users),
		contribs:      contribs,
		loans:         loans,
		penalties:     penalties,
		auditRepo:     auditRepo,
		refreshTokens: newFakeRefreshTokenRepo(),
		resetTokens:   &fakeResetTokenRepo{},
		notifier:      &fakeNotifier{},
		cache:         newFakeCache(),
		cfg: &config.Config{
			FrontendURL: "http://localhost:5173",
			JWT: config.JWTConfig{
				Secret:           "test-access-secret",
				RefreshSecret:    "test-refresh-secret",
				AccessTokenMins:  15,
				RefreshTokenDays: 7,
				ResetTokenMins:   30,
			},
			Policy: config.PolicyConfig{
				LateFeeAmount: 25,
				LateFeeDay:    10,
			},
		},
		totals: NewTotalsService(users, contribs, loans, penalties),
		audit:  NewAuditService(auditRepo),
	}
	return f
}

func (f *fixture) authService() *AuthService {
	return NewAuthService(f.users, f.refreshTokens, f.resetTokens, f.branches, f.notifier, f.cfg)
}

func (f *fixture) userService() *UserService {
	return NewUserService(f.users, f.branches, f.refreshTokens, f.audit, f.notifier)
}

func (f *fixture) branchService() *BranchService {
	return NewBranchService(f.branches, f.users, f.audit)
}

func (f *fixture) contributionService() *ContributionService {
	return NewContributionService(f.contribs, f.penalties, f.users, f.totals, f.audit, f.cache, f.cfg)
}

func (f *fixture) loanService() *LoanService {
	return NewLoanService(f.loans, f.users, f.totals, f.audit, f.notifier, f.cache)
}

func (f *fixture) penaltyService() *PenaltyService {
	return NewPenaltyService(f.penalties, f.users, f.totals, f.audit, f.cache)
}

func (f *fixture) allocationService() *AllocationService {
	return NewAllocationService(f.users, f.contribs, f.loans, f.penalties, f.cache)
}

func (f *fixture) treasuryService() *TreasuryService {
	return NewTreasuryService(f.contribs, f.loans, f.penalties, f.cache)
}

func (f *fixture) reconcileService() *ReconcileService {
	return NewReconcileService(f.totals, f.loans, f.users, f.refreshTokens, f.resetTokens, f.notifier)
}

// member seeds an approved, active member in the given branch.
func (f *fixture) member(id uint, branchID *uint) *models.User {
	return f.users.add(&models.User{
		ID:             id,
		FirstName:      "Member",
		LastName:       fmt.Sprintf("Number%d", id),
		Email:          fmt.Sprintf("member%d@example.com", id),
		Role:           domain.RoleMember,
		BranchID:       branchID,
		ApprovalStatus: domain.ApprovalApproved,
		IsActive:       true,
	})
}

// confirmed seeds a confirmed monthly contribution in the member's branch.
func (f *fixture) confirmed(userID uint, amount float64, date time.Time) *models.Contribution {
	var branchID *uint
	if u, ok := f.users.users[userID]; ok {
		branchID = u.BranchID
	}
	return f.contribs.add(&models.Contribution{
		UserID:     userID,
		Amount:     amount,
		Type:       domain.ContributionMonthly,
		Date:       date,
		RecordedBy: userID,
		BranchID:   branchID,
		Status:     domain.ContributionConfirmed,
	})
}

func adminActor(id uint) policy.Actor {
	return policy.Actor{UserID: id, Role: domain.RoleAdmin}
}

func leadActor(id uint, branchID *uint) policy.Actor {
	return policy.Actor{UserID: id, Role: domain.RoleBranchLead, BranchID: branchID}
}

func memberActor(id uint, branchID *uint) policy.Actor {
	return policy.Actor{UserID: id, Role: domain.RoleMember, BranchID: branchID}
}
