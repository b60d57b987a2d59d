package services

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/angep72/Community-saver/internal/adapters/persistence/models"
	"github.com/angep72/Community-saver/internal/adapters/persistence/repositories"
)

// Audit actions
const (
	AuditActionCreate     = "create"
	AuditActionUpdate     = "update"
	AuditActionDelete     = "delete"
	AuditActionPurge      = "purge"
	AuditActionApprove    = "approve"
	AuditActionReject     = "reject"
	AuditActionDisburse   = "disburse"
	AuditActionRepay      = "repay"
	AuditActionDefault    = "default"
	AuditActionConfirm    = "confirm"
	AuditActionCancel     = "cancel"
	AuditActionPay        = "pay"
	AuditActionWaive      = "waive"
	AuditActionAssign     = "assign"
	AuditActionActivate   = "activate"
	AuditActionDeactivate = "deactivate"
)

// Audit resources
const (
	AuditResourceUser         = "user"
	AuditResourceBranch       = "branch"
	AuditResourceContribution = "contribution"
	AuditResourceLoan         = "loan"
	AuditResourcePenalty      = "penalty"
)

// AuditService appends entries to the immutable audit trail. Recording is
// best-effort from the caller's side: the financial write has already
// committed, so a failed append is logged rather than propagated.
type AuditService struct {
	repo repositories.AuditLogRepository
}

// NewAuditService creates a new audit service
func NewAuditService(repo repositories.AuditLogRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Record appends one audit entry
func (s *AuditService) Record(ctx context.Context, actorID uint, action, resource string, resourceID uint, details string) {
	entry := &models.AuditLog{
		ActorID:    actorID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"actor_id": actorID,
			"action":   action,
			"resource": resource,
		}).Warn("audit entry could not be recorded")
	}
}

// List returns audit entries matching the filter, newest first
func (s *AuditService) List(ctx context.Context, filter repositories.AuditLogFilter, offset, limit int) ([]*models.AuditLog, int64, error) {
	return s.repo.List(ctx, filter, offset, limit)
}
