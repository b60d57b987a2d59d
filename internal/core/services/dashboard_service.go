package services

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"gorm.io/gorm"

	"github.com/angep72/Community-saver/internal/core/domain"
)

// DashboardService handles dashboard operations. It reads straight off the
// tables; these are display figures, not ledger math.
type DashboardService struct {
	db    *gorm.DB
	cache ReportCache
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(db *gorm.DB, cache ReportCache) *DashboardService {
	return &DashboardService{db: db, cache: cache}
}

// ============================================================
// Admin Dashboard
// ============================================================

// AdminDashboardData represents admin dashboard data
type AdminDashboardData struct {
	// Member statistics
	TotalMembers     int64 `json:"total_members"`
	ActiveMembers    int64 `json:"active_members"`
	PendingApprovals int64 `json:"pending_approvals"`
	TotalBranches    int64 `json:"total_branches"`

	// Savings statistics
	ConfirmedSavings     float64 `json:"confirmed_savings"`
	PendingContributions int64   `json:"pending_contributions"`
	SavingsThisMonth     float64 `json:"savings_this_month"`

	// Loan statistics
	PendingLoans         int64   `json:"pending_loans"`
	ApprovedLoans        int64   `json:"approved_loans"`
	DisbursedLoans       int64   `json:"disbursed_loans"`
	RepaidLoans          int64   `json:"repaid_loans"`
	DefaultedLoans       int64   `json:"defaulted_loans"`
	OutstandingPrincipal float64 `json:"outstanding_principal"`

	// Penalty statistics
	PendingPenalties      int64   `json:"pending_penalties"`
	PendingPenaltyAmount  float64 `json:"pending_penalty_amount"`
	CollectedPenaltyTotal float64 `json:"collected_penalty_total"`

	// Recent activity
	RecentContributions []ContributionSummary `json:"recent_contributions"`

	// Top savers
	TopSavers []SaverStats `json:"top_savers"`
}

// ContributionSummary represents a contribution ledger line
type ContributionSummary struct {
	ID         uint      `json:"id"`
	MemberName string    `json:"member_name"`
	Amount     float64   `json:"amount"`
	Type       string    `json:"type"`
	Status     string    `json:"status"`
	Date       time.Time `json:"date"`
}

// SaverStats represents a member's savings standing
type SaverStats struct {
	UserID             uint    `json:"user_id"`
	Name               string  `json:"name"`
	TotalContributions float64 `json:"total_contributions"`
	TotalLoans         float64 `json:"total_loans"`
}

// GetAdminDashboard returns admin dashboard data
func (s *DashboardService) GetAdminDashboard(ctx context.Context) (*AdminDashboardData, error) {
	if s.cache != nil {
		var cached AdminDashboardData
		hit, err := s.cache.GetJSON(ctx, CacheKeyDashboard, &cached)
		if err != nil {
			log.WithError(err).Warn("dashboard cache read failed")
		} else if hit {
			return &cached, nil
		}
	}

	data := &AdminDashboardData{}

	// Member counts
	s.db.WithContext(ctx).Table("users").Where("deleted_at IS NULL").Count(&data.TotalMembers)
	s.db.WithContext(ctx).Table("users").
		Where("is_active = ? AND approval_status = ? AND deleted_at IS NULL", true, domain.ApprovalApproved).
		Count(&data.ActiveMembers)
	s.db.WithContext(ctx).Table("users").
		Where("approval_status = ? AND deleted_at IS NULL", domain.ApprovalPending).
		Count(&data.PendingApprovals)
	s.db.WithContext(ctx).Table("branches").Where("is_active = ?", true).Count(&data.TotalBranches)

	// Savings
	s.db.WithContext(ctx).Table("contributions").
		Where("status = ?", domain.ContributionConfirmed).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&data.ConfirmedSavings)
	s.db.WithContext(ctx).Table("contributions").
		Where("status = ?", domain.ContributionPending).
		Count(&data.PendingContributions)

	startOfMonth := time.Now().AddDate(0, 0, -time.Now().Day()+1).Truncate(24 * time.Hour)
	s.db.WithContext(ctx).Table("contributions").
		Where("status = ? AND date >= ?", domain.ContributionConfirmed, startOfMonth).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&data.SavingsThisMonth)

	// Loan counts by status
	s.db.WithContext(ctx).Table("loans").
		Where("status = ? AND deleted_at IS NULL", domain.LoanPending).Count(&data.PendingLoans)
	s.db.WithContext(ctx).Table("loans").
		Where("status = ? AND deleted_at IS NULL", domain.LoanApproved).Count(&data.ApprovedLoans)
	s.db.WithContext(ctx).Table("loans").
		Where("status = ? AND deleted_at IS NULL", domain.LoanDisbursed).Count(&data.DisbursedLoans)
	s.db.WithContext(ctx).Table("loans").
		Where("status = ? AND deleted_at IS NULL", domain.LoanRepaid).Count(&data.RepaidLoans)
	s.db.WithContext(ctx).Table("loans").
		Where("status = ? AND deleted_at IS NULL", domain.LoanDefaulted).Count(&data.DefaultedLoans)

	s.db.WithContext(ctx).Table("loans").
		Where("status IN ? AND deleted_at IS NULL", []domain.LoanStatus{domain.LoanApproved, domain.LoanDisbursed}).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&data.OutstandingPrincipal)

	// Penalties
	s.db.WithContext(ctx).Table("penalties").
		Where("status = ?", domain.PenaltyPending).Count(&data.PendingPenalties)
	s.db.WithContext(ctx).Table("penalties").
		Where("status = ?", domain.PenaltyPending).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&data.PendingPenaltyAmount)
	s.db.WithContext(ctx).Table("penalties").
		Where("status = ?", domain.PenaltyPaid).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&data.CollectedPenaltyTotal)

	// Recent contributions
	var recent []struct {
		ID         uint
		MemberName string
		Amount     float64
		Type       string
		Status     string
		Date       time.Time
	}
	s.db.WithContext(ctx).Table("contributions").
		Select("contributions.id, CONCAT(users.first_name, ' ', users.last_name) as member_name, contributions.amount, contributions.type, contributions.status, contributions.date").
		Joins("JOIN users ON contributions.user_id = users.id AND users.deleted_at IS NULL").
		Order("contributions.date DESC").
		Limit(10).
		Scan(&recent)

	data.RecentContributions = make([]ContributionSummary, len(recent))
	for i, c := range recent {
		data.RecentContributions[i] = ContributionSummary{
			ID:         c.ID,
			MemberName: c.MemberName,
			Amount:     c.Amount,
			Type:       c.Type,
			Status:     c.Status,
			Date:       c.Date,
		}
	}

	// Top savers
	var savers []struct {
		UserID             uint
		Name               string
		TotalContributions float64
		TotalLoans         float64
	}
	s.db.WithContext(ctx).Table("users").
		Select("users.id as user_id, CONCAT(users.first_name, ' ', users.last_name) as name, users.total_contributions, users.total_loans").
		Where("users.is_active = ? AND users.deleted_at IS NULL", true).
		Order("users.total_contributions DESC").
		Limit(5).
		Scan(&savers)

	data.TopSavers = make([]SaverStats, len(savers))
	for i, u := range savers {
		data.TopSavers[i] = SaverStats{
			UserID:             u.UserID,
			Name:               u.Name,
			TotalContributions: u.TotalContributions,
			TotalLoans:         u.TotalLoans,
		}
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, CacheKeyDashboard, data); err != nil {
			log.WithError(err).Warn("dashboard cache write failed")
		}
	}

	return data, nil
}

// ============================================================
// Branch Dashboard
// ============================================================

// BranchDashboardData represents a branch lead's dashboard data
type BranchDashboardData struct {
	BranchID         uint    `json:"branch_id"`
	MemberCount      int64   `json:"member_count"`
	PendingApprovals int64   `json:"pending_approvals"`
	ConfirmedSavings float64 `json:"confirmed_savings"`

	PendingContributions []ContributionSummary `json:"pending_contributions"`

	ActiveLoans          int64   `json:"active_loans"`
	PendingPenalties     int64   `json:"pending_penalties"`
	PendingPenaltyAmount float64 `json:"pending_penalty_amount"`
}

// GetBranchDashboard returns the dashboard for one branch
func (s *DashboardService) GetBranchDashboard(ctx context.Context, branchID uint) (*BranchDashboardData, error) {
	data := &BranchDashboardData{BranchID: branchID}

	s.db.WithContext(ctx).Table("users").
		Where("branch_id = ? AND deleted_at IS NULL", branchID).
		Count(&data.MemberCount)
	s.db.WithContext(ctx).Table("users").
		Where("branch_id = ? AND approval_status = ? AND deleted_at IS NULL", branchID, domain.ApprovalPending).
		Count(&data.PendingApprovals)

	s.db.WithContext(ctx).Table("contributions").
		Where("branch_id = ? AND status = ?", branchID, domain.ContributionConfirmed).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&data.ConfirmedSavings)

	// Oldest first so leads clear the backlog in order
	var pending []struct {
		ID         uint
		MemberName string
		Amount     float64
		Type       string
		Status     string
		Date       time.Time
	}
	s.db.WithContext(ctx).Table("contributions").
		Select("contributions.id, CONCAT(users.first_name, ' ', users.last_name) as member_name, contributions.amount, contributions.type, contributions.status, contributions.date").
		Joins("JOIN users ON contributions.user_id = users.id AND users.deleted_at IS NULL").
		Where("contributions.branch_id = ? AND contributions.status = ?", branchID, domain.ContributionPending).
		Order("contributions.date ASC").
		Limit(10).
		Scan(&pending)

	data.PendingContributions = make([]ContributionSummary, len(pending))
	for i, c := range pending {
		data.PendingContributions[i] = ContributionSummary{
			ID:         c.ID,
			MemberName: c.MemberName,
			Amount:     c.Amount,
			Type:       c.Type,
			Status:     c.Status,
			Date:       c.Date,
		}
	}

	s.db.WithContext(ctx).Table("loans").
		Where("branch_id = ? AND status IN ? AND deleted_at IS NULL", branchID, domain.ActiveLoanStatuses).
		Count(&data.ActiveLoans)

	s.db.WithContext(ctx).Table("penalties").
		Where("branch_id = ? AND status = ?", branchID, domain.PenaltyPending).
		Count(&data.PendingPenalties)
	s.db.WithContext(ctx).Table("penalties").
		Where("branch_id = ? AND status = ?", branchID, domain.PenaltyPending).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&data.PendingPenaltyAmount)

	return data, nil
}

// ============================================================
// Member Dashboard
// ============================================================

// MemberDashboardData represents a member's own dashboard data
type MemberDashboardData struct {
	TotalContributions float64 `json:"total_contributions"`
	TotalLoans         float64 `json:"total_loans"`
	TotalPenalties     float64 `json:"total_penalties"`

	ActiveLoan *LoanSummary `json:"active_loan,omitempty"`

	RecentContributions []ContributionSummary `json:"recent_contributions"`

	PendingPenalties     int64   `json:"pending_penalties"`
	PendingPenaltyAmount float64 `json:"pending_penalty_amount"`
}

// LoanSummary represents a member's open loan
type LoanSummary struct {
	ID              uint       `json:"id"`
	Amount          float64    `json:"amount"`
	TotalAmount     float64    `json:"total_amount"`
	RemainingAmount float64    `json:"remaining_amount"`
	Status          string     `json:"status"`
	DueDate         *time.Time `json:"due_date,omitempty"`
}

// GetMemberDashboard returns a member's own dashboard data
func (s *DashboardService) GetMemberDashboard(ctx context.Context, userID uint) (*MemberDashboardData, error) {
	data := &MemberDashboardData{}

	var totals struct {
		TotalContributions float64
		TotalLoans         float64
		TotalPenalties     float64
	}
	s.db.WithContext(ctx).Table("users").
		Select("total_contributions, total_loans, total_penalties").
		Where("id = ? AND deleted_at IS NULL", userID).
		Scan(&totals)
	data.TotalContributions = totals.TotalContributions
	data.TotalLoans = totals.TotalLoans
	data.TotalPenalties = totals.TotalPenalties

	var loan struct {
		ID              uint
		Amount          float64
		TotalAmount     float64
		RemainingAmount float64
		Status          string
		DueDate         *time.Time
	}
	result := s.db.WithContext(ctx).Table("loans").
		Select("id, amount, total_amount, remaining_amount, status, due_date").
		Where("user_id = ? AND status IN ? AND deleted_at IS NULL", userID, domain.ActiveLoanStatuses).
		Order("created_at DESC").
		Limit(1).
		Scan(&loan)
	if result.RowsAffected > 0 {
		data.ActiveLoan = &LoanSummary{
			ID:              loan.ID,
			Amount:          loan.Amount,
			TotalAmount:     loan.TotalAmount,
			RemainingAmount: loan.RemainingAmount,
			Status:          loan.Status,
			DueDate:         loan.DueDate,
		}
	}

	var recent []struct {
		ID     uint
		Amount float64
		Type   string
		Status string
		Date   time.Time
	}
	s.db.WithContext(ctx).Table("contributions").
		Select("id, amount, type, status, date").
		Where("user_id = ?", userID).
		Order("date DESC").
		Limit(10).
		Scan(&recent)

	data.RecentContributions = make([]ContributionSummary, len(recent))
	for i, c := range recent {
		data.RecentContributions[i] = ContributionSummary{
			ID:     c.ID,
			Amount: c.Amount,
			Type:   c.Type,
			Status: c.Status,
			Date:   c.Date,
		}
	}

	s.db.WithContext(ctx).Table("penalties").
		Where("user_id = ? AND status = ?", userID, domain.PenaltyPending).
		Count(&data.PendingPenalties)
	s.db.WithContext(ctx).Table("penalties").
		Where("user_id = ? AND status = ?", userID, domain.PenaltyPending).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&data.PendingPenaltyAmount)

	return data, nil
}
