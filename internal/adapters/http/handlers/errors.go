package handlers

import (
	"errors"
	"strings"

	"e2e-transit/internal/core/domain"
	"e2e-transit/internal/pkg/logger"
	"e2e-transit/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// handleServiceError maps service errors to API responses. Anything
// unrecognised is logged and reported as a 500 with fallback as message.
func handleServiceError(c *fiber.Ctx, err error, fallback string) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return response.BadRequest(c, verr.Code, verr.Message)

	// auth
	case errors.Is(err, domain.ErrUserNotFound):
		return response.NotFound(c, response.CodeNotFound, "User not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		return response.Conflict(c, response.CodeAlreadyExists, "Account already exists and is verified. Please log in.")
	case errors.Is(err, domain.ErrNotVerified):
		return response.Forbidden(c, response.CodeNotVerified, "Account not verified. OTP re-sent.")
	case errors.Is(err, domain.ErrNoPassword):
		return response.BadRequest(c, response.CodeNoPassword, "Account created via OAuth. Use social login.")
	case errors.Is(err, domain.ErrInvalidCredentials):
		return response.Unauthorized(c, response.CodeInvalidCredentials, "Invalid email or password.")
	case errors.Is(err, domain.ErrNoActiveOTP):
		return response.BadRequest(c, response.CodeNoOTP, "No active OTP. Please initiate signup or password reset.")
	case errors.Is(err, domain.ErrOTPExpired):
		return response.BadRequest(c, response.CodeOTPExpired, "OTP expired. Request a new one.")
	case errors.Is(err, domain.ErrOTPInvalid):
		return response.BadRequest(c, response.CodeOTPInvalid, "Incorrect OTP.")
	case errors.Is(err, domain.ErrProvider):
		logger.WithError(err).Warn("Auth provider exchange failed")
		return response.BadGateway(c, response.CodeProviderError, "Auth provider request failed")

	// alerts
	case errors.Is(err, domain.ErrUnknownStatus):
		return response.BadRequest(c, response.CodeUnknownStatus, "Unknown status: "+strings.TrimPrefix(err.Error(), domain.ErrUnknownStatus.Error()+": "))
	case errors.Is(err, domain.ErrOrganisationNotFound):
		return response.NotFound(c, response.CodeNotFound, "Organisation not found")

	// trips
	case errors.Is(err, domain.ErrStagedTripNotFound):
		return response.NotFound(c, response.CodeNotFound, "Temp trip not found")
	case errors.Is(err, domain.ErrStagedTripConsumed):
		return response.Conflict(c, response.CodeAlreadyFinalized, "Temp trip already finalized")
	case errors.Is(err, domain.ErrTruckNotAvailable):
		return response.NotFound(c, response.CodeTruckNotAvailable, "Selected truck is not available for this load")
	case errors.Is(err, domain.ErrCustomerNotFound):
		return response.NotFound(c, response.CodeCustomerNotFound, "Customer not found")

	default:
		logger.WithError(err).Errorf("%s [%s %s]", fallback, c.Method(), c.Path())
		return response.Error(c, fiber.StatusInternalServerError, response.CodeDBError, fallback)
	}
}

// missingFields returns the names whose values are blank. Arguments are
// name/value pairs.
func missingFields(pairs ...string) []string {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	return missing
}

func invalidJSON(c *fiber.Ctx) error {
	return response.BadRequest(c, response.CodeInvalidBody, "Invalid request body")
}
