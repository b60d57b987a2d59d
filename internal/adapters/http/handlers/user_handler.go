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

// UserHandler handles member management endpoints
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// List handles listing members (Admin sees all, branch leads their branch)
// @Summary List members
// @Description Get a paginated list of members, scoped to the caller's branch for branch leads
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param branch_id query int false "Filter by branch"
// @Param role query string false "Filter by role"
// @Param approval_status query string false "Filter by approval status"
// @Param is_active query bool false "Filter by active flag"
// @Param search query string false "Search by name or email"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /users [get]
func (h *UserHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	filter := repositories.UserFilter{
		BranchID:       queryUintPtr(c, "branch_id"),
		Role:           domain.Role(c.Query("role")),
		ApprovalStatus: domain.ApprovalStatus(c.Query("approval_status")),
		IsActive:       queryBoolPtr(c, "is_active"),
		Search:         c.Query("search"),
	}

	users, total, err := h.userService.List(c.Context(), actorFromCtx(c), filter, params.Offset, params.Limit)
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			return response.Forbidden(c, "You don't have permission to list members")
		}
		return response.InternalServerError(c, "Failed to list members")
	}

	items := make([]*models.UserResponse, 0, len(users))
	for _, u := range users {
		items = append(items, u.ToResponse())
	}

	return response.Success(c, "Members retrieved successfully", pagination.NewResponse(items, params, total))
}

// Get handles getting a member by ID
// @Summary Get member by ID
// @Description Get a member; branch leads can see their own branch, members only themselves
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	user, err := h.userService.GetByID(c.Context(), actorFromCtx(c), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, domain.ErrForbidden):
			return response.Forbidden(c, "You don't have permission to view this member")
		default:
			return response.InternalServerError(c, "Failed to get member")
		}
	}

	return response.Success(c, "Member retrieved successfully", fiber.Map{
		"user": user.ToResponse(),
	})
}

// Approve handles approving a pending member (Admin only)
// @Summary Approve member
// @Description Approve a pending member registration (Admin only)
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id}/approve [post]
func (h *UserHandler) Approve(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	user, warning, err := h.userService.ApproveMember(c.Context(), actorFromCtx(c), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, services.ErrUserNotPending):
			return response.Conflict(c, "User is not pending approval")
		default:
			return response.InternalServerError(c, "Failed to approve member")
		}
	}

	if warning != "" {
		return response.SuccessWithWarning(c, "Member approved successfully", warning, fiber.Map{
			"user": user.ToResponse(),
		})
	}

	return response.Success(c, "Member approved successfully", fiber.Map{
		"user": user.ToResponse(),
	})
}

// Reject handles rejecting a pending member (Admin only)
// @Summary Reject member
// @Description Reject a pending member registration (Admin only)
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id}/reject [post]
func (h *UserHandler) Reject(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	user, err := h.userService.RejectMember(c.Context(), actorFromCtx(c), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, services.ErrUserNotPending):
			return response.Conflict(c, "User is not pending approval")
		default:
			return response.InternalServerError(c, "Failed to reject member")
		}
	}

	return response.Success(c, "Member rejected", fiber.Map{
		"user": user.ToResponse(),
	})
}

// UpdateUserRequest represents profile update request body
type UpdateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
}

// Update handles updating a member's profile fields
// @Summary Update member profile
// @Description Update profile fields; members can edit themselves, admins anyone
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body UpdateUserRequest true "Update data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id} [put]
func (h *UserHandler) Update(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	input := &services.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	}

	user, err := h.userService.UpdateProfile(c.Context(), actorFromCtx(c), id, input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, domain.ErrForbidden):
			return response.Forbidden(c, "You don't have permission to edit this member")
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Invalid profile data")
		default:
			return response.InternalServerError(c, "Failed to update member")
		}
	}

	return response.Success(c, "Member updated successfully", fiber.Map{
		"user": user.ToResponse(),
	})
}

// ChangeRoleRequest represents role change request body
type ChangeRoleRequest struct {
	Role string `json:"role"`
}

// ChangeRole handles changing a member's role (Admin only)
// @Summary Change member role
// @Description Change a member's role between member and admin (Admin only)
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body ChangeRoleRequest true "Role data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id}/role [put]
func (h *UserHandler) ChangeRole(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req ChangeRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Role == "" {
		return response.BadRequest(c, "Role is required")
	}

	user, err := h.userService.ChangeRole(c.Context(), actorFromCtx(c), id, domain.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, services.ErrSelfModify):
			return response.BadRequest(c, "Cannot change your own role")
		case errors.Is(err, services.ErrLeadViaBranch):
			return response.BadRequest(c, "Assign branch leads through the branch lead endpoint")
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Invalid role")
		default:
			return response.InternalServerError(c, "Failed to change role")
		}
	}

	return response.Success(c, "Role changed successfully", fiber.Map{
		"user": user.ToResponse(),
	})
}

// SetActiveRequest represents activation request body
type SetActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

// SetActive handles activating or deactivating a member (Admin only)
// @Summary Activate or deactivate member
// @Description Toggle a member's active flag; deactivation revokes all sessions (Admin only)
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body SetActiveRequest true "Active flag"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id}/status [put]
func (h *UserHandler) SetActive(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req SetActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.IsActive == nil {
		return response.BadRequest(c, "is_active is required")
	}

	user, err := h.userService.SetActive(c.Context(), actorFromCtx(c), id, *req.IsActive)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, services.ErrSelfModify):
			return response.BadRequest(c, "Cannot change your own active status")
		default:
			return response.InternalServerError(c, "Failed to update member status")
		}
	}

	message := "Member deactivated"
	if user.IsActive {
		message = "Member activated"
	}

	return response.Success(c, message, fiber.Map{
		"user": user.ToResponse(),
	})
}

// AssignBranchRequest represents branch assignment request body
type AssignBranchRequest struct {
	BranchID *uint `json:"branch_id"`
}

// AssignBranch handles moving a member between branches (Admin only)
// @Summary Assign member to branch
// @Description Move a member to a branch, or clear the branch with null (Admin only)
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body AssignBranchRequest true "Branch assignment"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id}/branch [put]
func (h *UserHandler) AssignBranch(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req AssignBranchRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.userService.AssignBranch(c.Context(), actorFromCtx(c), id, req.BranchID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, services.ErrBranchNotFound):
			return response.NotFound(c, "Branch not found")
		case errors.Is(err, services.ErrBranchInactive):
			return response.BadRequest(c, "Branch is not active")
		default:
			return response.InternalServerError(c, "Failed to assign branch")
		}
	}

	return response.Success(c, "Branch assigned successfully", fiber.Map{
		"user": user.ToResponse(),
	})
}

// Delete handles removing a member (Admin only)
// @Summary Delete member
// @Description Soft-delete a member; their ledger history is kept (Admin only)
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	if err := h.userService.Delete(c.Context(), actorFromCtx(c), id); err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, services.ErrSelfModify):
			return response.BadRequest(c, "Cannot delete your own account")
		default:
			return response.InternalServerError(c, "Failed to delete member")
		}
	}

	return response.Success(c, "Member deleted successfully", nil)
}

// GetProfile handles getting own profile
// @Summary Get own profile
// @Description Get the current member's profile
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /profile [get]
func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	actor := actorFromCtx(c)
	if actor.UserID == 0 {
		return response.Unauthorized(c, "Unauthorized")
	}

	user, err := h.userService.GetByID(c.Context(), actor, actor.UserID)
	if err != nil {
		return response.InternalServerError(c, "Failed to get profile")
	}

	return response.Success(c, "Profile retrieved successfully", fiber.Map{
		"user": user.ToResponse(),
	})
}

// UpdateProfile handles updating own profile
// @Summary Update own profile
// @Description Update the current member's profile fields
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body UpdateUserRequest true "Update data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /profile [put]
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	actor := actorFromCtx(c)
	if actor.UserID == 0 {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	input := &services.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	}

	user, err := h.userService.UpdateProfile(c.Context(), actor, actor.UserID, input)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return response.BadRequest(c, "Invalid profile data")
		}
		return response.InternalServerError(c, "Failed to update profile")
	}

	return response.Success(c, "Profile updated successfully", fiber.Map{
		"user": user.ToResponse(),
	})
}
