package response

import "github.com/gofiber/fiber/v2"

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Response represents a standard API envelope
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Warning string      `json:"warning,omitempty"`
}

// Success sends a success response
func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(Response{
		Status:  statusSuccess,
		Message: message,
		Data:    data,
	})
}

// SuccessWithWarning sends a success response carrying a soft warning, used
// when a side channel (email, file delivery) failed but the operation itself
// committed.
func SuccessWithWarning(c *fiber.Ctx, message, warning string, data interface{}) error {
	return c.JSON(Response{
		Status:  statusSuccess,
		Message: message,
		Data:    data,
		Warning: warning,
	})
}

// Created sends a 201 created response
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Response{
		Status:  statusSuccess,
		Message: message,
		Data:    data,
	})
}

// Error sends an error response
func Error(c *fiber.Ctx, statusCode int, message string) error {
	return c.Status(statusCode).JSON(Response{
		Status: statusError,
		Error:  message,
	})
}

// ValidationError sends a 400 response with field-level details
func ValidationError(c *fiber.Ctx, message string, fields interface{}) error {
	return c.Status(fiber.StatusBadRequest).JSON(Response{
		Status: statusError,
		Error:  message,
		Data:   fields,
	})
}

// BadRequest sends a 400 bad request response
func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, message)
}

// Forbidden sends a 403 forbidden response
func Forbidden(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusForbidden, message)
}

// NotFound sends a 404 not found response
func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, message)
}

// Conflict sends a 409 conflict response
func Conflict(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusConflict, message)
}

// InternalServerError sends a 500 internal server error response
func InternalServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}
