package services

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/angep72/Community-saver/internal/adapters/persistence/models"
)

// validate is shared by every service; inputs carry validate tags.
var validate = validator.New()

// Cache keys for read-side reports. Every ledger write invalidates all of
// them, so a report never outlives the data it was built from.
const (
	CacheKeyAllocation = "report:allocation"
	CacheKeyTreasury   = "report:treasury"
	CacheKeyDashboard  = "report:dashboard"
)

// Notifier delivers member-facing email notices. Implementations must treat
// delivery as best-effort: the triggering operation has already committed by
// the time a notice goes out.
type Notifier interface {
	LoanDecision(user *models.User, loan *models.Loan) error
	LoanOverdue(user *models.User, loan *models.Loan) error
	MemberApproved(user *models.User) error
	PasswordReset(user *models.User, resetLink string) error
}

// ReportCache caches heavy read-side reports. A nil ReportCache disables
// caching.
type ReportCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, keys ...string) error
}

// invalidateReports drops all cached reports after a ledger write.
func invalidateReports(ctx context.Context, cache ReportCache) {
	if cache == nil {
		return
	}
	// Best effort; a stale delete is repaired by the TTL.
	_ = cache.Delete(ctx, CacheKeyAllocation, CacheKeyTreasury, CacheKeyDashboard)
}
