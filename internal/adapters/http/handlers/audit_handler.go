package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/angep72/Community-saver/internal/adapters/persistence/repositories"
	"github.com/angep72/Community-saver/internal/core/services"
	"github.com/angep72/Community-saver/internal/pkg/pagination"
	"github.com/angep72/Community-saver/internal/pkg/response"
)

// AuditHandler handles audit trail endpoints
type AuditHandler struct {
	auditService *services.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
	}
}

// List handles listing audit log entries (Admin only)
// @Summary List audit log
// @Description Get a paginated list of sensitive actions, newest first (Admin only)
// @Tags Audit
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param actor_id query int false "Filter by acting user"
// @Param action query string false "Filter by action"
// @Param resource query string false "Filter by resource"
// @Param from query string false "Entries on or after (RFC 3339 or YYYY-MM-DD)"
// @Param to query string false "Entries on or before (RFC 3339 or YYYY-MM-DD)"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	filter := repositories.AuditLogFilter{
		ActorID:  queryUintPtr(c, "actor_id"),
		Action:   c.Query("action"),
		Resource: c.Query("resource"),
		From:     queryTimePtr(c, "from"),
		To:       queryTimePtr(c, "to"),
	}

	entries, total, err := h.auditService.List(c.Context(), filter, params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list audit log")
	}

	return response.Success(c, "Audit log retrieved successfully", pagination.NewResponse(entries, params, total))
}
