package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/angep72/Community-saver/internal/adapters/persistence/models"
)

// branchRepository implements BranchRepository interface
type branchRepository struct {
	db *gorm.DB
}

// NewBranchRepository creates a new branch repository
func NewBranchRepository(db *gorm.DB) BranchRepository {
	return &branchRepository{db: db}
}

// Create creates a new branch
func (r *branchRepository) Create(ctx context.Context, branch *models.Branch) error {
	return r.db.WithContext(ctx).Create(branch).Error
}

// GetByID gets a branch by ID with lead preloaded
func (r *branchRepository) GetByID(ctx context.Context, id uint) (*models.Branch, error) {
	var branch models.Branch
	err := r.db.WithContext(ctx).
		Preload("Lead").
		Where("id = ?", id).
		First(&branch).Error
	if err != nil {
		return nil, err
	}
	return &branch, nil
}

// GetByCode gets a branch by code
func (r *branchRepository) GetByCode(ctx context.Context, code string) (*models.Branch, error) {
	var branch models.Branch
	err := r.db.WithContext(ctx).
		Preload("Lead").
		Where("code = ?", code).
		First(&branch).Error
	if err != nil {
		return nil, err
	}
	return &branch, nil
}

// Update updates a branch
func (r *branchRepository) Update(ctx context.Context, branch *models.Branch) error {
	return r.db.WithContext(ctx).Save(branch).Error
}

// Delete soft deletes a branch
func (r *branchRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Branch{}, id).Error
}

// List lists branches with pagination
func (r *branchRepository) List(ctx context.Context, offset, limit int) ([]*models.Branch, int64, error) {
	var branches []*models.Branch
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Branch{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Preload("Lead").
		Order("name ASC").
		Offset(offset).
		Limit(limit).
		Find(&branches).Error

	return branches, total, err
}

// ExistsByCode checks if a branch code exists
func (r *branchRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Branch{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

// CountMembers counts users attached to a branch
func (r *branchRepository) CountMembers(ctx context.Context, branchID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("branch_id = ?", branchID).Count(&count).Error
	return count, err
}
