package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angep72/Community-saver/internal/adapters/persistence/models"
	"github.com/angep72/Community-saver/internal/core/domain"
)

// loanRepository implements LoanRepository interface
type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

// Create creates a new loan
func (r *loanRepository) Create(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Create(loan).Error
}

// GetByID gets a loan by ID with relations
func (r *loanRepository) GetByID(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Approver").
		Where("id = ?", id).
		First(&loan).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// Update updates a loan
func (r *loanRepository) Update(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Save(loan).Error
}

// Delete soft deletes a loan
func (r *loanRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Loan{}, id).Error
}

// List lists loans matching the filter with pagination
func (r *loanRepository) List(ctx context.Context, filter LoanFilter, offset, limit int) ([]*models.Loan, int64, error) {
	var loans []*models.Loan
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Loan{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.BranchID != nil {
		query = query.Where("branch_id = ?", *filter.BranchID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("User").
		Preload("Approver").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&loans).Error

	return loans, total, err
}

// ListByStatuses lists loans in any of the given statuses whose borrower
// still exists
func (r *loanRepository) ListByStatuses(ctx context.Context, statuses []domain.LoanStatus) ([]*models.Loan, error) {
	var loans []*models.Loan
	err := r.db.WithContext(ctx).
		Joins("JOIN users ON users.id = loans.user_id AND users.deleted_at IS NULL").
		Where("loans.status IN ?", statuses).
		Order("loans.created_at ASC").
		Find(&loans).Error
	return loans, err
}

// ListOverdue lists disbursed loans whose due date has passed
func (r *loanRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]*models.Loan, error) {
	var loans []*models.Loan
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("status = ? AND due_date IS NOT NULL AND due_date < ?", domain.LoanDisbursed, asOf).
		Find(&loans).Error
	return loans, err
}

// HasLoanInStatuses checks whether the user holds a loan in any of the given
// statuses
func (r *loanRepository) HasLoanInStatuses(ctx context.Context, userID uint, statuses []domain.LoanStatus) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("user_id = ? AND status IN ?", userID, statuses).
		Count(&count).Error
	return count > 0, err
}

// UpdateStatusIf applies the patch only when the current status still matches
// expected. Returns whether a row was updated.
func (r *loanRepository) UpdateStatusIf(ctx context.Context, id uint, expected domain.LoanStatus, patch map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(patch)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SumPrincipalByUser sums loan principal for a user across every status
func (r *loanRepository) SumPrincipalByUser(ctx context.Context, userID uint) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ?", userID).
		Scan(&total).Error
	return total, err
}

// AggregateByStatuses sums principal and total repayable over the given
// statuses, skipping loans whose borrower no longer exists
func (r *loanRepository) AggregateByStatuses(ctx context.Context, statuses []domain.LoanStatus) (*LoanAggregate, error) {
	var agg LoanAggregate
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Select("COALESCE(SUM(loans.amount), 0) AS principal, COALESCE(SUM(loans.total_amount), 0) AS total").
		Joins("JOIN users ON users.id = loans.user_id AND users.deleted_at IS NULL").
		Where("loans.status IN ?", statuses).
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}
	return &agg, nil
}
