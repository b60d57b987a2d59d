package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/angep72/Community-saver/internal/adapters/persistence/models"
	"github.com/angep72/Community-saver/internal/core/domain"
)

// penaltyRepository implements PenaltyRepository interface
type penaltyRepository struct {
	db *gorm.DB
}

// NewPenaltyRepository creates a new penalty repository
func NewPenaltyRepository(db *gorm.DB) PenaltyRepository {
	return &penaltyRepository{db: db}
}

// Create creates a new penalty
func (r *penaltyRepository) Create(ctx context.Context, penalty *models.Penalty) error {
	return r.db.WithContext(ctx).Create(penalty).Error
}

// GetByID gets a penalty by ID with relations
func (r *penaltyRepository) GetByID(ctx context.Context, id uint) (*models.Penalty, error) {
	var penalty models.Penalty
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Assigner").
		Where("id = ?", id).
		First(&penalty).Error
	if err != nil {
		return nil, err
	}
	return &penalty, nil
}

// Update updates a penalty
func (r *penaltyRepository) Update(ctx context.Context, penalty *models.Penalty) error {
	return r.db.WithContext(ctx).Save(penalty).Error
}

// List lists penalties matching the filter with pagination
func (r *penaltyRepository) List(ctx context.Context, filter PenaltyFilter, offset, limit int) ([]*models.Penalty, int64, error) {
	var penalties []*models.Penalty
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Penalty{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.BranchID != nil {
		query = query.Where("branch_id = ?", *filter.BranchID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Reason != "" {
		query = query.Where("reason = ?", filter.Reason)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("User").
		Order("assigned_date DESC").
		Offset(offset).
		Limit(limit).
		Find(&penalties).Error

	return penalties, total, err
}

// ListByStatus lists penalties in one status whose member still exists
func (r *penaltyRepository) ListByStatus(ctx context.Context, status domain.PenaltyStatus) ([]*models.Penalty, error) {
	var penalties []*models.Penalty
	err := r.db.WithContext(ctx).
		Joins("JOIN users ON users.id = penalties.user_id AND users.deleted_at IS NULL").
		Where("penalties.status = ?", status).
		Order("penalties.assigned_date ASC").
		Find(&penalties).Error
	return penalties, err
}

// UpdateStatusIf applies the patch only when the current status still matches
// expected. Returns whether a row was updated.
func (r *penaltyRepository) UpdateStatusIf(ctx context.Context, id uint, expected domain.PenaltyStatus, patch map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Penalty{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(patch)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkPaidWithLedgerEntry transitions a pending penalty to paid and writes
// the offsetting negative contribution in the same transaction. When the
// status guard matches no row the transaction commits empty and the method
// reports false.
func (r *penaltyRepository) MarkPaidWithLedgerEntry(ctx context.Context, id uint, patch map[string]interface{}, entry *models.Contribution) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Penalty{}).
			Where("id = ? AND status = ?", id, domain.PenaltyPending).
			Updates(patch)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}

// SumByStatus sums penalty amounts in one status, skipping penalties whose
// member no longer exists
func (r *penaltyRepository) SumByStatus(ctx context.Context, status domain.PenaltyStatus) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&models.Penalty{}).
		Select("COALESCE(SUM(penalties.amount), 0)").
		Joins("JOIN users ON users.id = penalties.user_id AND users.deleted_at IS NULL").
		Where("penalties.status = ?", status).
		Scan(&total).Error
	return total, err
}

// SumByUserAndStatuses sums a user's penalty amounts over the given statuses
func (r *penaltyRepository) SumByUserAndStatuses(ctx context.Context, userID uint, statuses []domain.PenaltyStatus) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&models.Penalty{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND status IN ?", userID, statuses).
		Scan(&total).Error
	return total, err
}

// DeleteAll removes every penalty record and returns how many were deleted.
// Ledger entries written by paid penalties are kept.
func (r *penaltyRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&models.Penalty{})
	return result.RowsAffected, result.Error
}
