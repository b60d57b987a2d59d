package repositories

import (
	"context"
	"time"

	"github.com/angep72/Community-saver/internal/adapters/persistence/models"
	"github.com/angep72/Community-saver/internal/core/domain"
)

// UserFilter narrows user listings. Zero-value fields are ignored.
type UserFilter struct {
	BranchID       *uint
	Role           domain.Role
	ApprovalStatus domain.ApprovalStatus
	IsActive       *bool
	Search         string
}

// ContributionFilter narrows contribution listings. Zero-value fields are
// ignored.
type ContributionFilter struct {
	UserID   *uint
	BranchID *uint
	Status   domain.ContributionStatus
	Type     domain.ContributionType
	From     *time.Time
	To       *time.Time
}

// LoanFilter narrows loan listings. Zero-value fields are ignored.
type LoanFilter struct {
	UserID   *uint
	BranchID *uint
	Status   domain.LoanStatus
}

// PenaltyFilter narrows penalty listings. Zero-value fields are ignored.
type PenaltyFilter struct {
	UserID   *uint
	BranchID *uint
	Status   domain.PenaltyStatus
	Reason   domain.PenaltyReason
}

// AuditLogFilter narrows audit log listings. Zero-value fields are ignored.
type AuditLogFilter struct {
	ActorID  *uint
	Action   string
	Resource string
	From     *time.Time
	To       *time.Time
}

// LoanAggregate carries summed loan figures for a status set. Interest is
// Total minus Principal.
type LoanAggregate struct {
	Principal float64
	Total     float64
}

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter UserFilter, offset, limit int) ([]*models.User, int64, error)
	ListActive(ctx context.Context) ([]*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateTotals(ctx context.Context, id uint, totals domain.MemberTotals) error
	DeactivateByBranch(ctx context.Context, branchID uint) (int64, error)
}

// BranchRepository defines branch repository interface
type BranchRepository interface {
	Create(ctx context.Context, branch *models.Branch) error
	GetByID(ctx context.Context, id uint) (*models.Branch, error)
	GetByCode(ctx context.Context, code string) (*models.Branch, error)
	Update(ctx context.Context, branch *models.Branch) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, offset, limit int) ([]*models.Branch, int64, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	CountMembers(ctx context.Context, branchID uint) (int64, error)
}

// ContributionRepository defines contribution repository interface.
// UpdateStatusIf is the optimistic guard for state transitions: the update
// applies only when the row's current status still matches expected, and the
// return value reports whether it did.
type ContributionRepository interface {
	Create(ctx context.Context, contribution *models.Contribution) error
	GetByID(ctx context.Context, id uint) (*models.Contribution, error)
	Update(ctx context.Context, contribution *models.Contribution) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter ContributionFilter, offset, limit int) ([]*models.Contribution, int64, error)
	UpdateStatusIf(ctx context.Context, id uint, expected domain.ContributionStatus, patch map[string]interface{}) (bool, error)
	SumNonCancelledByUser(ctx context.Context, userID uint) (float64, error)
	SumConfirmed(ctx context.Context) (float64, error)
	SumConfirmedByType(ctx context.Context, contributionType domain.ContributionType) (float64, error)
	ListConfirmedByDate(ctx context.Context) ([]*models.Contribution, error)
}

// LoanRepository defines loan repository interface
type LoanRepository interface {
	Create(ctx context.Context, loan *models.Loan) error
	GetByID(ctx context.Context, id uint) (*models.Loan, error)
	Update(ctx context.Context, loan *models.Loan) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter LoanFilter, offset, limit int) ([]*models.Loan, int64, error)
	ListByStatuses(ctx context.Context, statuses []domain.LoanStatus) ([]*models.Loan, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]*models.Loan, error)
	HasLoanInStatuses(ctx context.Context, userID uint, statuses []domain.LoanStatus) (bool, error)
	UpdateStatusIf(ctx context.Context, id uint, expected domain.LoanStatus, patch map[string]interface{}) (bool, error)
	SumPrincipalByUser(ctx context.Context, userID uint) (float64, error)
	AggregateByStatuses(ctx context.Context, statuses []domain.LoanStatus) (*LoanAggregate, error)
}

// PenaltyRepository defines penalty repository interface.
// MarkPaidWithLedgerEntry performs the paid transition and the offsetting
// ledger entry in one transaction; it reports false when the status guard
// loses the race.
type PenaltyRepository interface {
	Create(ctx context.Context, penalty *models.Penalty) error
	GetByID(ctx context.Context, id uint) (*models.Penalty, error)
	Update(ctx context.Context, penalty *models.Penalty) error
	List(ctx context.Context, filter PenaltyFilter, offset, limit int) ([]*models.Penalty, int64, error)
	ListByStatus(ctx context.Context, status domain.PenaltyStatus) ([]*models.Penalty, error)
	UpdateStatusIf(ctx context.Context, id uint, expected domain.PenaltyStatus, patch map[string]interface{}) (bool, error)
	MarkPaidWithLedgerEntry(ctx context.Context, id uint, patch map[string]interface{}, entry *models.Contribution) (bool, error)
	SumByStatus(ctx context.Context, status domain.PenaltyStatus) (float64, error)
	SumByUserAndStatuses(ctx context.Context, userID uint, statuses []domain.PenaltyStatus) (float64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// AuditLogRepository defines audit log repository interface. Append-only:
// no update or delete.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, filter AuditLogFilter, offset, limit int) ([]*models.AuditLog, int64, error)
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByUserID(ctx context.Context, userID uint) error
	DeleteExpired(ctx context.Context) error
	CountActiveByUserID(ctx context.Context, userID uint) (int64, error)
}

// PasswordResetTokenRepository defines password reset token repository interface
type PasswordResetTokenRepository interface {
	Create(ctx context.Context, token *models.PasswordResetToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error)
	MarkUsed(ctx context.Context, id uint) error
	DeleteExpired(ctx context.Context) error
}
