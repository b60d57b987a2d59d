package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/angep72/Community-saver/internal/adapters/persistence/models"
	"github.com/angep72/Community-saver/internal/adapters/persistence/repositories"
	"github.com/angep72/Community-saver/internal/core/domain"
	"github.com/angep72/Community-saver/internal/core/services"
	"github.com/angep72/Community-saver/internal/pkg/pagination"
	"github.com/angep72/Community-saver/internal/pkg/response"
)

// ContributionHandler handles savings ledger endpoints
type ContributionHandler struct {
	contributionService *services.ContributionService
}

// NewContributionHandler creates a new contribution handler
func NewContributionHandler(contributionService *services.ContributionService) *ContributionHandler {
	return &ContributionHandler{
		contributionService: contributionService,
	}
}

// RecordContributionRequest represents contribution recording request body
type RecordContributionRequest struct {
	UserID uint       `json:"user_id"`
	Amount float64    `json:"amount"`
	Type   string     `json:"type"`
	Date   *time.Time `json:"date"`
	Notes  string     `json:"notes"`
}

// Record handles recording a contribution
// @Summary Record contribution
// @Description Record a savings entry; self-recorded entries start pending until a manager confirms them
// @Tags Contributions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body RecordContributionRequest true "Contribution data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /contributions [post]
func (h *ContributionHandler) Record(c *fiber.Ctx) error {
	var req RecordContributionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.UserID == 0 {
		return response.BadRequest(c, "user_id is required")
	}
	if req.Amount <= 0 {
		return response.BadRequest(c, "Amount must be greater than zero")
	}

	input := &services.RecordContributionInput{
		UserID: req.UserID,
		Amount: req.Amount,
		Type:   domain.ContributionType(req.Type),
		Date:   req.Date,
		Notes:  req.Notes,
	}

	contribution, err := h.contributionService.Record(c.Context(), actorFromCtx(c), input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return response.NotFound(c, "Member not found")
		case errors.Is(err, domain.ErrForbidden):
			return response.Forbidden(c, "You don't have permission to record for this member")
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Invalid contribution data")
		default:
			return response.InternalServerError(c, "Failed to record contribution")
		}
	}

	return response.Created(c, "Contribution recorded successfully", fiber.Map{
		"contribution": contribution.ToResponse(),
	})
}

// List handles listing contributions
// @Summary List contributions
// @Description Get a paginated list of contributions, scoped by the caller's role
// @Tags Contributions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param user_id query int false "Filter by member"
// @Param branch_id query int false "Filter by branch"
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by type"
// @Param from query string false "Entries dated on or after (RFC 3339 or YYYY-MM-DD)"
// @Param to query string false "Entries dated on or before (RFC 3339 or YYYY-MM-DD)"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /contributions [get]
func (h *ContributionHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	filter := repositories.ContributionFilter{
		UserID:   queryUintPtr(c, "user_id"),
		BranchID: queryUintPtr(c, "branch_id"),
		Status:   domain.ContributionStatus(c.Query("status")),
		Type:     domain.ContributionType(c.Query("type")),
		From:     queryTimePtr(c, "from"),
		To:       queryTimePtr(c, "to"),
	}

	contributions, total, err := h.contributionService.List(c.Context(), actorFromCtx(c), filter, params.Offset, params.Limit)
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			return response.Forbidden(c, "You don't have permission to list these contributions")
		}
		return response.InternalServerError(c, "Failed to list contributions")
	}

	items := make([]*models.ContributionResponse, 0, len(contributions))
	for _, entry := range contributions {
		items = append(items, entry.ToResponse())
	}

	return response.Success(c, "Contributions retrieved successfully", pagination.NewResponse(items, params, total))
}

// Get handles getting a contribution by ID
// @Summary Get contribution by ID
// @Description Get a single ledger entry
// @Tags Contributions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Contribution ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /contributions/{id} [get]
func (h *ContributionHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid contribution ID")
	}

	contribution, err := h.contributionService.GetByID(c.Context(), actorFromCtx(c), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrContributionNotFound):
			return response.NotFound(c, "Contribution not found")
		case errors.Is(err, domain.ErrForbidden):
			return response.Forbidden(c, "You don't have permission to view this contribution")
		default:
			return response.InternalServerError(c, "Failed to get contribution")
		}
	}

	return response.Success(c, "Contribution retrieved successfully", fiber.Map{
		"contribution": contribution.ToResponse(),
	})
}

// Confirm handles confirming a pending contribution
// @Summary Confirm contribution
// @Description Confirm a pending entry so it counts toward totals and pools (lead or admin)
// @Tags Contributions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Contribution ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /contributions/{id}/confirm [post]
func (h *ContributionHandler) Confirm(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid contribution ID")
	}

	contribution, err := h.contributionService.Confirm(c.Context(), actorFromCtx(c), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrContributionNotFound):
			return response.NotFound(c, "Contribution not found")
		case errors.Is(err, services.ErrContributionNotPending):
			return response.Conflict(c, "Contribution has already been processed")
		case errors.Is(err, domain.ErrForbidden):
			return response.Forbidden(c, "You don't have permission to confirm this contribution")
		default:
			return response.InternalServerError(c, "Failed to confirm contribution")
		}
	}

	return response.Success(c, "Contribution confirmed successfully", fiber.Map{
		"contribution": contribution.ToResponse(),
	})
}

// Cancel handles cancelling a pending contribution
// @Summary Cancel contribution
// @Description Cancel a pending entry; cancelled entries never count toward totals
// @Tags Contributions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Contribution ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /contributions/{id}/cancel [post]
func (h *ContributionHandler) Cancel(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid contribution ID")
	}

	contribution, err := h.contributionService.Cancel(c.Context(), actorFromCtx(c), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrContributionNotFound):
			return response.NotFound(c, "Contribution not found")
		case errors.Is(err, services.ErrContributionNotPending):
			return response.Conflict(c, "Contribution has already been processed")
		case errors.Is(err, services.ErrContributionImmutable):
			return response.BadRequest(c, "Penalty payment entries cannot be modified")
		case errors.Is(err, domain.ErrForbidden):
			return response.Forbidden(c, "You don't have permission to cancel this contribution")
		default:
			return response.InternalServerError(c, "Failed to cancel contribution")
		}
	}

	return response.Success(c, "Contribution cancelled", fiber.Map{
		"contribution": contribution.ToResponse(),
	})
}

// Delete handles deleting a contribution (Admin only)
// @Summary Delete contribution
// @Description Remove a ledger entry and recompute the member's totals (Admin only)
// @Tags Contributions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Contribution ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /contributions/{id} [delete]
func (h *ContributionHandler) Delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid contribution ID")
	}

	if err := h.contributionService.Delete(c.Context(), actorFromCtx(c), id); err != nil {
		switch {
		case errors.Is(err, services.ErrContributionNotFound):
			return response.NotFound(c, "Contribution not found")
		case errors.Is(err, services.ErrContributionImmutable):
			return response.BadRequest(c, "Penalty payment entries cannot be modified")
		case errors.Is(err, domain.ErrForbidden):
			return response.Forbidden(c, "You don't have permission to delete this contribution")
		default:
			return response.InternalServerError(c, "Failed to delete contribution")
		}
	}

	return response.Success(c, "Contribution deleted successfully", nil)
}
