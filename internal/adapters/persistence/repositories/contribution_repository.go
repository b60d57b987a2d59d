package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/angep72/Community-saver/internal/adapters/persistence/models"
	"github.com/angep72/Community-saver/internal/core/domain"
)

// contributionRepository implements ContributionRepository interface
type contributionRepository struct {
	db *gorm.DB
}

// NewContributionRepository creates a new contribution repository
func NewContributionRepository(db *gorm.DB) ContributionRepository {
	return &contributionRepository{db: db}
}

// Create creates a new contribution
func (r *contributionRepository) Create(ctx context.Context, contribution *models.Contribution) error {
	return r.db.WithContext(ctx).Create(contribution).Error
}

// GetByID gets a contribution by ID with relations
func (r *contributionRepository) GetByID(ctx context.Context, id uint) (*models.Contribution, error) {
	var contribution models.Contribution
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Recorder").
		Preload("Branch").
		Where("id = ?", id).
		First(&contribution).Error
	if err != nil {
		return nil, err
	}
	return &contribution, nil
}

// Update updates a contribution
func (r *contributionRepository) Update(ctx context.Context, contribution *models.Contribution) error {
	return r.db.WithContext(ctx).Save(contribution).Error
}

// Delete deletes a contribution
func (r *contributionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Contribution{}, id).Error
}

// List lists contributions matching the filter with pagination
func (r *contributionRepository) List(ctx context.Context, filter ContributionFilter, offset, limit int) ([]*models.Contribution, int64, error) {
	var contributions []*models.Contribution
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Contribution{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.BranchID != nil {
		query = query.Where("branch_id = ?", *filter.BranchID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.From != nil {
		query = query.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("date <= ?", *filter.To)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("User").
		Order("date DESC").
		Offset(offset).
		Limit(limit).
		Find(&contributions).Error

	return contributions, total, err
}

// UpdateStatusIf applies the patch only when the current status still matches
// expected. Returns whether a row was updated.
func (r *contributionRepository) UpdateStatusIf(ctx context.Context, id uint, expected domain.ContributionStatus, patch map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Contribution{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(patch)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SumNonCancelledByUser sums a user's contributions excluding cancelled ones
func (r *contributionRepository) SumNonCancelledByUser(ctx context.Context, userID uint) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&models.Contribution{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND status <> ?", userID, domain.ContributionCancelled).
		Scan(&total).Error
	return total, err
}

// SumConfirmed sums all confirmed contributions whose owner still exists
func (r *contributionRepository) SumConfirmed(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&models.Contribution{}).
		Select("COALESCE(SUM(contributions.amount), 0)").
		Joins("JOIN users ON users.id = contributions.user_id AND users.deleted_at IS NULL").
		Where("contributions.status = ?", domain.ContributionConfirmed).
		Scan(&total).Error
	return total, err
}

// SumConfirmedByType sums confirmed contributions of one type whose owner
// still exists
func (r *contributionRepository) SumConfirmedByType(ctx context.Context, contributionType domain.ContributionType) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&models.Contribution{}).
		Select("COALESCE(SUM(contributions.amount), 0)").
		Joins("JOIN users ON users.id = contributions.user_id AND users.deleted_at IS NULL").
		Where("contributions.status = ? AND contributions.type = ?", domain.ContributionConfirmed, contributionType).
		Scan(&total).Error
	return total, err
}

// ListConfirmedByDate lists confirmed contributions of active members in
// ascending date order. The allocator sweeps this slice once, so the ordering
// matters.
func (r *contributionRepository) ListConfirmedByDate(ctx context.Context) ([]*models.Contribution, error) {
	var contributions []*models.Contribution
	err := r.db.WithContext(ctx).
		Joins("JOIN users ON users.id = contributions.user_id AND users.deleted_at IS NULL AND users.is_active = ?", true).
		Where("contributions.status = ?", domain.ContributionConfirmed).
		Order("contributions.date ASC").
		Find(&contributions).Error
	return contributions, err
}
