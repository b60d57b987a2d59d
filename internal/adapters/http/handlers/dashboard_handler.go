package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/angep72/Community-saver/internal/core/domain"
	"github.com/angep72/Community-saver/internal/core/services"
	"github.com/angep72/Community-saver/internal/pkg/response"
)

// DashboardHandler handles dashboard endpoints
type DashboardHandler struct {
	dashboardService *services.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// My handles the role-appropriate dashboard for the current user
// @Summary Get my dashboard
// @Description Admins get the group dashboard, branch leads their branch, members their own figures
// @Tags Dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /dashboard [get]
func (h *DashboardHandler) My(c *fiber.Ctx) error {
	actor := actorFromCtx(c)
	if actor.UserID == 0 {
		return response.Unauthorized(c, "Unauthorized")
	}

	switch {
	case actor.IsAdmin():
		data, err := h.dashboardService.GetAdminDashboard(c.Context())
		if err != nil {
			return response.InternalServerError(c, "Failed to build dashboard")
		}
		return response.Success(c, "Dashboard retrieved successfully", data)

	case actor.Role == domain.RoleBranchLead && actor.BranchID != nil:
		data, err := h.dashboardService.GetBranchDashboard(c.Context(), *actor.BranchID)
		if err != nil {
			return response.InternalServerError(c, "Failed to build dashboard")
		}
		return response.Success(c, "Dashboard retrieved successfully", data)

	default:
		data, err := h.dashboardService.GetMemberDashboard(c.Context(), actor.UserID)
		if err != nil {
			return response.InternalServerError(c, "Failed to build dashboard")
		}
		return response.Success(c, "Dashboard retrieved successfully", data)
	}
}

// Admin handles the group-wide dashboard (Admin only)
// @Summary Get admin dashboard
// @Description Group-wide totals, treasury snapshot, loan and penalty counts (Admin only)
// @Tags Dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /dashboard/admin [get]
func (h *DashboardHandler) Admin(c *fiber.Ctx) error {
	data, err := h.dashboardService.GetAdminDashboard(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to build dashboard")
	}

	return response.Success(c, "Dashboard retrieved successfully", data)
}

// Branch handles a branch-scoped dashboard (lead or admin)
// @Summary Get branch dashboard
// @Description Branch totals and member activity; branch leads can only see their own branch
// @Tags Dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Branch ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /dashboard/branch/{id} [get]
func (h *DashboardHandler) Branch(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid branch ID")
	}

	actor := actorFromCtx(c)
	if !actor.IsAdmin() && !actor.SameBranch(&id) {
		return response.Forbidden(c, "You don't have permission to view this branch")
	}

	data, err := h.dashboardService.GetBranchDashboard(c.Context(), id)
	if err != nil {
		return response.InternalServerError(c, "Failed to build dashboard")
	}

	return response.Success(c, "Dashboard retrieved successfully", data)
}
