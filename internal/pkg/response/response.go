package response

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Error codes shared by handlers
const (
	CodeInvalidBody        = "INVALID_BODY"
	CodeNotFound           = "NOT_FOUND"
	CodeAlreadyExists      = "ALREADY_EXISTS"
	CodeNotVerified        = "NOT_VERIFIED"
	CodeNoPassword         = "NO_PASSWORD"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeNoOTP              = "NO_OTP"
	CodeOTPExpired         = "OTP_EXPIRED"
	CodeOTPInvalid         = "OTP_INVALID"
	CodeUnknownStatus      = "UNKNOWN_STATUS"
	CodeTruckNotAvailable  = "TRUCK_NOT_AVAILABLE"
	CodeCustomerNotFound   = "CUSTOMER_NOT_FOUND"
	CodeAlreadyFinalized   = "ALREADY_FINALIZED"
	CodeProviderError      = "PROVIDER_ERROR"
	CodeDBError            = "DB_ERROR"
	CodeServerError        = "SERVER_ERROR"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeUnauthorized       = "UNAUTHORIZED"
)

// Success sends a success response
func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Created sends a 201 created response
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends an error response with a machine-readable code
func Error(c *fiber.Ctx, statusCode int, code, message string) error {
	return c.Status(statusCode).JSON(Response{
		Success: false,
		Message: message,
		Error:   code,
	})
}

// InvalidBody sends a 400 listing the missing fields
func InvalidBody(c *fiber.Ctx, fields ...string) error {
	return BadRequest(c, CodeInvalidBody, "Missing required field(s): "+strings.Join(fields, ", "))
}

// BadRequest sends a 400 bad request response
func BadRequest(c *fiber.Ctx, code, message string) error {
	return Error(c, fiber.StatusBadRequest, code, message)
}

// Unauthorized sends a 401 unauthorized response
func Unauthorized(c *fiber.Ctx, code, message string) error {
	return Error(c, fiber.StatusUnauthorized, code, message)
}

// Forbidden sends a 403 forbidden response
func Forbidden(c *fiber.Ctx, code, message string) error {
	return Error(c, fiber.StatusForbidden, code, message)
}

// NotFound sends a 404 not found response
func NotFound(c *fiber.Ctx, code, message string) error {
	return Error(c, fiber.StatusNotFound, code, message)
}

// Conflict sends a 409 conflict response
func Conflict(c *fiber.Ctx, code, message string) error {
	return Error(c, fiber.StatusConflict, code, message)
}

// BadGateway sends a 502 response for upstream failures
func BadGateway(c *fiber.Ctx, code, message string) error {
	return Error(c, fiber.StatusBadGateway, code, message)
}

// InternalServerError sends a 500 internal server error response
func InternalServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, CodeServerError, message)
}
