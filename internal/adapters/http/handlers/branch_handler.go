package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/angep72/Community-saver/internal/adapters/persistence/models"
	"github.com/angep72/Community-saver/internal/core/domain"
	"github.com/angep72/Community-saver/internal/core/services"
	"github.com/angep72/Community-saver/internal/pkg/pagination"
	"github.com/angep72/Community-saver/internal/pkg/response"
)

// BranchHandler handles branch management endpoints
type BranchHandler struct {
	branchService *services.BranchService
}

// NewBranchHandler creates a new branch handler
func NewBranchHandler(branchService *services.BranchService) *BranchHandler {
	return &BranchHandler{
		branchService: branchService,
	}
}

// CreateBranchRequest represents branch creation request body
type CreateBranchRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// UpdateBranchRequest represents branch update request body
type UpdateBranchRequest struct {
	Name *string `json:"name"`
	Code *string `json:"code"`
}

// AssignLeadRequest represents lead assignment request body
type AssignLeadRequest struct {
	UserID uint `json:"user_id"`
}

// Create handles creating a branch (Admin only)
// @Summary Create branch
// @Description Create a new branch (Admin only)
// @Tags Branches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateBranchRequest true "Branch data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /branches [post]
func (h *BranchHandler) Create(c *fiber.Ctx) error {
	var req CreateBranchRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Name == "" {
		return response.BadRequest(c, "Branch name is required")
	}
	if req.Code == "" {
		return response.BadRequest(c, "Branch code is required")
	}

	input := &services.CreateBranchInput{
		Name: strings.TrimSpace(req.Name),
		Code: strings.TrimSpace(req.Code),
	}

	branch, err := h.branchService.Create(c.Context(), actorFromCtx(c), input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBranchCodeExists):
			return response.Conflict(c, "Branch code already exists")
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Invalid branch data")
		default:
			return response.InternalServerError(c, "Failed to create branch")
		}
	}

	return response.Created(c, "Branch created successfully", fiber.Map{
		"branch": branch.ToResponse(),
	})
}

// List handles listing branches
// @Summary List branches
// @Description Get a paginated list of branches
// @Tags Branches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /branches [get]
func (h *BranchHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	branches, total, err := h.branchService.List(c.Context(), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list branches")
	}

	items := make([]*models.BranchResponse, 0, len(branches))
	for _, b := range branches {
		items = append(items, b.ToResponse())
	}

	return response.Success(c, "Branches retrieved successfully", pagination.NewResponse(items, params, total))
}

// Get handles getting a branch by ID
// @Summary Get branch by ID
// @Description Get a specific branch
// @Tags Branches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Branch ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /branches/{id} [get]
func (h *BranchHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid branch ID")
	}

	branch, err := h.branchService.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrBranchNotFound) {
			return response.NotFound(c, "Branch not found")
		}
		return response.InternalServerError(c, "Failed to get branch")
	}

	return response.Success(c, "Branch retrieved successfully", fiber.Map{
		"branch": branch.ToResponse(),
	})
}

// Update handles renaming a branch (Admin only)
// @Summary Update branch
// @Description Update branch name or code (Admin only)
// @Tags Branches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Branch ID"
// @Param body body UpdateBranchRequest true "Update data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /branches/{id} [put]
func (h *BranchHandler) Update(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid branch ID")
	}

	var req UpdateBranchRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	input := &services.UpdateBranchInput{
		Name: req.Name,
		Code: req.Code,
	}

	branch, err := h.branchService.Update(c.Context(), actorFromCtx(c), id, input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBranchNotFound):
			return response.NotFound(c, "Branch not found")
		case errors.Is(err, services.ErrBranchCodeExists):
			return response.Conflict(c, "Branch code already exists")
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Invalid branch data")
		default:
			return response.InternalServerError(c, "Failed to update branch")
		}
	}

	return response.Success(c, "Branch updated successfully", fiber.Map{
		"branch": branch.ToResponse(),
	})
}

// AssignLead handles assigning a branch lead (Admin only)
// @Summary Assign branch lead
// @Description Promote a member to lead the branch, demoting the previous lead (Admin only)
// @Tags Branches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Branch ID"
// @Param body body AssignLeadRequest true "Lead assignment"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /branches/{id}/lead [put]
func (h *BranchHandler) AssignLead(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid branch ID")
	}

	var req AssignLeadRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.UserID == 0 {
		return response.BadRequest(c, "user_id is required")
	}

	branch, err := h.branchService.AssignLead(c.Context(), actorFromCtx(c), id, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBranchNotFound):
			return response.NotFound(c, "Branch not found")
		case errors.Is(err, services.ErrBranchInactive):
			return response.BadRequest(c, "Branch is not active")
		case errors.Is(err, domain.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, services.ErrLeadNotEligible):
			return response.BadRequest(c, "User is not eligible to lead a branch")
		default:
			return response.InternalServerError(c, "Failed to assign branch lead")
		}
	}

	return response.Success(c, "Branch lead assigned successfully", fiber.Map{
		"branch": branch.ToResponse(),
	})
}

// Deactivate handles deactivating a branch (Admin only)
// @Summary Deactivate branch
// @Description Deactivate a branch and all of its members; ledger history is kept (Admin only)
// @Tags Branches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Branch ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /branches/{id}/deactivate [post]
func (h *BranchHandler) Deactivate(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid branch ID")
	}

	branch, err := h.branchService.Deactivate(c.Context(), actorFromCtx(c), id)
	if err != nil {
		if errors.Is(err, services.ErrBranchNotFound) {
			return response.NotFound(c, "Branch not found")
		}
		return response.InternalServerError(c, "Failed to deactivate branch")
	}

	return response.Success(c, "Branch deactivated", fiber.Map{
		"branch": branch.ToResponse(),
	})
}

// Activate handles reactivating a branch (Admin only)
// @Summary Activate branch
// @Description Reactivate a previously deactivated branch (Admin only)
// @Tags Branches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Branch ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /branches/{id}/activate [post]
func (h *BranchHandler) Activate(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid branch ID")
	}

	branch, err := h.branchService.Activate(c.Context(), actorFromCtx(c), id)
	if err != nil {
		if errors.Is(err, services.ErrBranchNotFound) {
			return response.NotFound(c, "Branch not found")
		}
		return response.InternalServerError(c, "Failed to activate branch")
	}

	return response.Success(c, "Branch activated", fiber.Map{
		"branch": branch.ToResponse(),
	})
}

// Delete handles deleting an empty branch (Admin only)
// @Summary Delete branch
// @Description Delete a branch that has no members attached (Admin only)
// @Tags Branches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Branch ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /branches/{id} [delete]
func (h *BranchHandler) Delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid branch ID")
	}

	if err := h.branchService.Delete(c.Context(), actorFromCtx(c), id); err != nil {
		switch {
		case errors.Is(err, services.ErrBranchNotFound):
			return response.NotFound(c, "Branch not found")
		case errors.Is(err, services.ErrBranchHasMembers):
			return response.Conflict(c, "Branch still has members attached")
		default:
			return response.InternalServerError(c, "Failed to delete branch")
		}
	}

	return response.Success(c, "Branch deleted successfully", nil)
}
