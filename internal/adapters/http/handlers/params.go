package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// queryUintPtr parses an optional uint query parameter, nil when absent or
// malformed.
func queryUintPtr(c *fiber.Ctx, name string) *uint {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil
	}
	u := uint(v)
	return &u
}

// queryBoolPtr parses an optional bool query parameter, nil when absent or
// malformed.
func queryBoolPtr(c *fiber.Ctx, name string) *bool {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

// queryTimePtr parses an optional RFC 3339 or date-only query parameter, nil
// when absent or malformed.
func queryTimePtr(c *fiber.Ctx, name string) *time.Time {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t
	}
	return nil
}

// parseIDParam parses the :id path parameter.
func parseIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
