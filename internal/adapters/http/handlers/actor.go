package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/angep72/Community-saver/internal/core/domain"
	"github.com/angep72/Community-saver/internal/core/policy"
)

// actorFromCtx rebuilds the authenticated principal from the locals set by
// the auth middleware. The zero Actor carries no role and fails every policy
// check, so a missing token never widens access.
func actorFromCtx(c *fiber.Ctx) policy.Actor {
	actor := policy.Actor{}
	if id, ok := c.Locals("userID").(uint); ok {
		actor.UserID = id
	}
	if role, ok := c.Locals("role").(string); ok {
		actor.Role = domain.Role(role)
	}
	if branchID, ok := c.Locals("branchID").(*uint); ok {
		actor.BranchID = branchID
	}
	return actor
}
