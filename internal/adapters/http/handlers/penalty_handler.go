package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/angep72/Community-saver/internal/adapters/persistence/models"
	"github.com/angep72/Community-saver/internal/adapters/persistence/repositories"
	"github.com/angep72/Community-saver/internal/core/domain"
	"github.com/angep72/Community-saver/internal/core/services"
	"github.com/angep72/Community-saver/internal/pkg/pagination"
	"github.com/angep72/Community-saver/internal/pkg/response"
)

// PenaltyHandler handles penalty endpoints
type PenaltyHandler struct {
	penaltyService *services.PenaltyService
}

// NewPenaltyHandler creates a new penalty handler
func NewPenaltyHandler(penaltyService *services.PenaltyService) *PenaltyHandler {
	return &PenaltyHandler{
		penaltyService: penaltyService,
	}
}

// AssignPenaltyRequest represents penalty assignment request body
type AssignPenaltyRequest struct {
	UserID uint    `json:"user_id"`
	Amount float64 `json:"amount"`
	Reason string  `json:"reason"`
	Notes  string  `json:"notes"`
}

// WaivePenaltyRequest represents penalty waiver request body
type WaivePenaltyRequest struct {
	Notes string `json:"notes"`
}

// Assign handles assigning a penalty to a member (lead or admin)
// @Summary Assign penalty
// @Description Fine a member; branch leads can only fine within their own branch
// @Tags Penalties
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body AssignPenaltyRequest true "Penalty data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /penalties [post]
func (h *PenaltyHandler) Assign(c *fiber.Ctx) error {
	var req AssignPenaltyRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.UserID == 0 {
		return response.BadRequest(c, "user_id is required")
	}
	if req.Amount <= 0 {
		return response.BadRequest(c, "Amount must be greater than zero")
	}
	if req.Reason == "" {
		return response.BadRequest(c, "Reason is required")
	}

	input := &services.AssignPenaltyInput{
		UserID: req.UserID,
		Amount: req.Amount,
		Reason: domain.PenaltyReason(req.Reason),
		Notes:  req.Notes,
	}

	penalty, err := h.penaltyService.Assign(c.Context(), actorFromCtx(c), input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return response.NotFound(c, "Member not found")
		case errors.Is(err, services.ErrInvalidReason):
			return response.BadRequest(c, "Invalid penalty reason")
		case errors.Is(err, domain.ErrForbidden):
			return response.Forbidden(c, "You don't have permission to fine this member")
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Invalid penalty data")
		default:
			return response.InternalServerError(c, "Failed to assign penalty")
		}
	}

	return response.Created(c, "Penalty assigned", fiber.Map{
		"penalty": penalty.ToResponse(),
	})
}

// List handles listing penalties
// @Summary List penalties
// @Description Get a paginated list of penalties, scoped by the caller's role
// @Tags Penalties
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param user_id query int false "Filter by member"
// @Param branch_id query int false "Filter by branch"
// @Param status query string false "Filter by status"
// @Param reason query string false "Filter by reason"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /penalties [get]
func (h *PenaltyHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	filter := repositories.PenaltyFilter{
		UserID:   queryUintPtr(c, "user_id"),
		BranchID: queryUintPtr(c, "branch_id"),
		Status:   domain.PenaltyStatus(c.Query("status")),
		Reason:   domain.PenaltyReason(c.Query("reason")),
	}

	penalties, total, err := h.penaltyService.List(c.Context(), actorFromCtx(c), filter, params.Offset, params.Limit)
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			return response.Forbidden(c, "You don't have permission to list these penalties")
		}
		return response.InternalServerError(c, "Failed to list penalties")
	}

	items := make([]*models.PenaltyResponse, 0, len(penalties))
	for _, p := range penalties {
		items = append(items, p.ToResponse())
	}

	return response.Success(c, "Penalties retrieved successfully", pagination.NewResponse(items, params, total))
}

// Get handles getting a penalty by ID
// @Summary Get penalty by ID
// @Description Get a single penalty
// @Tags Penalties
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Penalty ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /penalties/{id} [get]
func (h *PenaltyHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid penalty ID")
	}

	penalty, err := h.penaltyService.GetByID(c.Context(), actorFromCtx(c), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPenaltyNotFound):
			return response.NotFound(c, "Penalty not found")
		case errors.Is(err, domain.ErrForbidden):
			return response.Forbidden(c, "You don't have permission to view this penalty")
		default:
			return response.InternalServerError(c, "Failed to get penalty")
		}
	}

	return response.Success(c, "Penalty retrieved successfully", fiber.Map{
		"penalty": penalty.ToResponse(),
	})
}

// Pay handles settling a pending penalty
// @Summary Pay penalty
// @Description Settle a pending penalty; the payment is recorded as a negative ledger entry against the member's savings
// @Tags Penalties
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Penalty ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /penalties/{id}/pay [post]
func (h *PenaltyHandler) Pay(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid penalty ID")
	}

	penalty, err := h.penaltyService.Pay(c.Context(), actorFromCtx(c), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPenaltyNotFound):
			return response.NotFound(c, "Penalty not found")
		case errors.Is(err, services.ErrPenaltyNotPending):
			return response.Conflict(c, "Penalty is not pending")
		case errors.Is(err, domain.ErrForbidden):
			return response.Forbidden(c, "You don't have permission to settle this penalty")
		default:
			return response.InternalServerError(c, "Failed to pay penalty")
		}
	}

	return response.Success(c, "Penalty settled", fiber.Map{
		"penalty": penalty.ToResponse(),
	})
}

// Waive handles waiving a pending penalty (lead or admin)
// @Summary Waive penalty
// @Description Forgive a pending penalty without payment (lead or admin)
// @Tags Penalties
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Penalty ID"
// @Param body body WaivePenaltyRequest false "Waiver notes"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /penalties/{id}/waive [post]
func (h *PenaltyHandler) Waive(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid penalty ID")
	}

	// Body is optional for waivers
	var req WaivePenaltyRequest
	_ = c.BodyParser(&req)

	penalty, err := h.penaltyService.Waive(c.Context(), actorFromCtx(c), id, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPenaltyNotFound):
			return response.NotFound(c, "Penalty not found")
		case errors.Is(err, services.ErrPenaltyNotPending):
			return response.Conflict(c, "Penalty is not pending")
		case errors.Is(err, domain.ErrForbidden):
			return response.Forbidden(c, "You don't have permission to waive this penalty")
		default:
			return response.InternalServerError(c, "Failed to waive penalty")
		}
	}

	return response.Success(c, "Penalty waived", fiber.Map{
		"penalty": penalty.ToResponse(),
	})
}

// DeleteAll handles purging every penalty record (Admin only)
// @Summary Delete all penalties
// @Description Remove every penalty record; settlement entries in the ledger are kept (Admin only)
// @Tags Penalties
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /penalties [delete]
func (h *PenaltyHandler) DeleteAll(c *fiber.Ctx) error {
	deleted, err := h.penaltyService.DeleteAll(c.Context(), actorFromCtx(c))
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			return response.Forbidden(c, "Only admins can delete penalties")
		}
		return response.InternalServerError(c, "Failed to delete penalties")
	}

	return response.Success(c, "Penalties deleted", fiber.Map{
		"deleted": deleted,
	})
}
