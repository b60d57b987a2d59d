package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/angep72/Community-saver/internal/core/services"
	"github.com/angep72/Community-saver/internal/pkg/response"
)

// ReportHandler handles financial report endpoints
type ReportHandler struct {
	allocationService *services.AllocationService
	treasuryService   *services.TreasuryService
}

// NewReportHandler creates a new report handler
func NewReportHandler(allocationService *services.AllocationService, treasuryService *services.TreasuryService) *ReportHandler {
	return &ReportHandler{
		allocationService: allocationService,
		treasuryService:   treasuryService,
	}
}

// Allocation handles the share and interest allocation report (Admin only)
// @Summary Allocation report
// @Description Per-member savings shares and time-weighted interest allocation (Admin only)
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /reports/allocation [get]
func (h *ReportHandler) Allocation(c *fiber.Ctx) error {
	report, err := h.allocationService.Report(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to build allocation report")
	}

	return response.Success(c, "Allocation report generated", report)
}

// Treasury handles the treasury summary report (Admin only)
// @Summary Treasury summary
// @Description Net treasury, future value and best-case projection for the whole group (Admin only)
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /reports/treasury [get]
func (h *ReportHandler) Treasury(c *fiber.Ctx) error {
	summary, err := h.treasuryService.Summary(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to build treasury summary")
	}

	return response.Success(c, "Treasury summary generated", summary)
}
