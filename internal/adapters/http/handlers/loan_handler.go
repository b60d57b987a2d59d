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

// LoanHandler handles loan lifecycle endpoints
type LoanHandler struct {
	loanService *services.LoanService
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(loanService *services.LoanService) *LoanHandler {
	return &LoanHandler{
		loanService: loanService,
	}
}

// RequestLoanRequest represents loan application request body
type RequestLoanRequest struct {
	Amount         float64 `json:"amount"`
	DurationMonths int     `json:"duration_months"`
	Purpose        string  `json:"purpose"`
}

// DecideLoanRequest represents loan decision request body
type DecideLoanRequest struct {
	Status          string   `json:"status"`
	InterestRate    *float64 `json:"interest_rate"`
	RejectionReason string   `json:"rejection_reason"`
}

// Request handles filing a loan application
// @Summary Request loan
// @Description File a loan application; a member can hold only one open loan at a time
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body RequestLoanRequest true "Loan application"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans [post]
func (h *LoanHandler) Request(c *fiber.Ctx) error {
	var req RequestLoanRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Amount <= 0 {
		return response.BadRequest(c, "Amount must be greater than zero")
	}
	if req.DurationMonths < 1 {
		return response.BadRequest(c, "Duration must be at least one month")
	}
	if req.Purpose == "" {
		return response.BadRequest(c, "Purpose is required")
	}

	input := &services.RequestLoanInput{
		Amount:         req.Amount,
		DurationMonths: req.DurationMonths,
		Purpose:        req.Purpose,
	}

	loan, err := h.loanService.Request(c.Context(), actorFromCtx(c), input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrActiveLoanExists):
			return response.Conflict(c, "You already have an active loan")
		case errors.Is(err, domain.ErrUserNotFound):
			return response.NotFound(c, "Member not found")
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Invalid loan application")
		default:
			return response.InternalServerError(c, "Failed to request loan")
		}
	}

	return response.Created(c, "Loan application submitted", fiber.Map{
		"loan": h.loanService.ToResponse(loan),
	})
}

// List handles listing loans
// @Summary List loans
// @Description Get a paginated list of loans, scoped by the caller's role
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param user_id query int false "Filter by member"
// @Param branch_id query int false "Filter by branch"
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /loans [get]
func (h *LoanHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	filter := repositories.LoanFilter{
		UserID:   queryUintPtr(c, "user_id"),
		BranchID: queryUintPtr(c, "branch_id"),
		Status:   domain.LoanStatus(c.Query("status")),
	}

	loans, total, err := h.loanService.List(c.Context(), actorFromCtx(c), filter, params.Offset, params.Limit)
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			return response.Forbidden(c, "You don't have permission to list these loans")
		}
		return response.InternalServerError(c, "Failed to list loans")
	}

	items := make([]*models.LoanResponse, 0, len(loans))
	for _, loan := range loans {
		items = append(items, h.loanService.ToResponse(loan))
	}

	return response.Success(c, "Loans retrieved successfully", pagination.NewResponse(items, params, total))
}

// Get handles getting a loan by ID
// @Summary Get loan by ID
// @Description Get a loan with its repayment figures and risk score
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/{id} [get]
func (h *LoanHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	loan, err := h.loanService.GetByID(c.Context(), actorFromCtx(c), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case errors.Is(err, domain.ErrForbidden):
			return response.Forbidden(c, "You don't have permission to view this loan")
		default:
			return response.InternalServerError(c, "Failed to get loan")
		}
	}

	return response.Success(c, "Loan retrieved successfully", fiber.Map{
		"loan": h.loanService.ToResponse(loan),
	})
}

// Decide handles approving or rejecting a pending loan (Admin only)
// @Summary Decide loan
// @Description Approve a pending loan with an interest rate, or reject it with a reason (Admin only)
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param body body DecideLoanRequest true "Decision"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/decide [post]
func (h *LoanHandler) Decide(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	var req DecideLoanRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	status := domain.LoanStatus(req.Status)
	if status != domain.LoanApproved && status != domain.LoanRejected {
		return response.BadRequest(c, "Status must be approved or rejected")
	}

	input := &services.DecideLoanInput{
		Status:          status,
		InterestRate:    req.InterestRate,
		RejectionReason: req.RejectionReason,
	}

	loan, warning, err := h.loanService.Decide(c.Context(), actorFromCtx(c), id, input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case errors.Is(err, services.ErrLoanNotPending):
			return response.Conflict(c, "Loan has already been decided")
		case errors.Is(err, services.ErrInterestRateRequired):
			return response.BadRequest(c, "Interest rate is required to approve a loan")
		case errors.Is(err, services.ErrRejectionReasonRequired):
			return response.BadRequest(c, "Rejection reason is required to reject a loan")
		case errors.Is(err, domain.ErrForbidden):
			return response.Forbidden(c, "Only admins can decide loans")
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Invalid decision")
		default:
			return response.InternalServerError(c, "Failed to decide loan")
		}
	}

	if warning != "" {
		return response.SuccessWithWarning(c, "Loan decision recorded", warning, fiber.Map{
			"loan": h.loanService.ToResponse(loan),
		})
	}

	return response.Success(c, "Loan decision recorded", fiber.Map{
		"loan": h.loanService.ToResponse(loan),
	})
}

// Disburse handles paying out an approved loan (Admin only)
// @Summary Disburse loan
// @Description Mark an approved loan as disbursed, starting the repayment clock (Admin only)
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/disburse [post]
func (h *LoanHandler) Disburse(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	loan, err := h.loanService.Disburse(c.Context(), actorFromCtx(c), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case errors.Is(err, services.ErrLoanNotApproved):
			return response.Conflict(c, "Loan is not in approved state")
		case errors.Is(err, domain.ErrForbidden):
			return response.Forbidden(c, "Only admins can disburse loans")
		default:
			return response.InternalServerError(c, "Failed to disburse loan")
		}
	}

	return response.Success(c, "Loan disbursed", fiber.Map{
		"loan": h.loanService.ToResponse(loan),
	})
}

// Repay handles closing a disbursed loan as repaid (Admin only)
// @Summary Mark loan repaid
// @Description Close a disbursed loan as fully repaid; its interest becomes realized income (Admin only)
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/repay [post]
func (h *LoanHandler) Repay(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	loan, err := h.loanService.MarkRepaid(c.Context(), actorFromCtx(c), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case errors.Is(err, services.ErrLoanNotDisbursed):
			return response.Conflict(c, "Loan is not in disbursed state")
		case errors.Is(err, domain.ErrForbidden):
			return response.Forbidden(c, "Only admins can mark loans repaid")
		default:
			return response.InternalServerError(c, "Failed to mark loan repaid")
		}
	}

	return response.Success(c, "Loan marked repaid", fiber.Map{
		"loan": h.loanService.ToResponse(loan),
	})
}

// Default handles marking an overdue loan as defaulted (Admin only)
// @Summary Mark loan defaulted
// @Description Mark a disbursed loan whose due date has passed as defaulted (Admin only)
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/default [post]
func (h *LoanHandler) Default(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	loan, err := h.loanService.MarkDefaulted(c.Context(), actorFromCtx(c), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case errors.Is(err, services.ErrLoanNotDisbursed):
			return response.Conflict(c, "Loan is not in disbursed state")
		case errors.Is(err, services.ErrLoanNotYetDue):
			return response.BadRequest(c, "Loan due date has not passed yet")
		case errors.Is(err, domain.ErrForbidden):
			return response.Forbidden(c, "Only admins can mark loans defaulted")
		default:
			return response.InternalServerError(c, "Failed to mark loan defaulted")
		}
	}

	return response.Success(c, "Loan marked defaulted", fiber.Map{
		"loan": h.loanService.ToResponse(loan),
	})
}
