package domain

import "errors"

// Common domain errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrProvider     = errors.New("auth provider request failed")
)

// User / credential errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrAlreadyExists      = errors.New("account already exists and is verified")
	ErrNotVerified        = errors.New("account not verified")
	ErrNoPassword         = errors.New("account has no password")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoActiveOTP        = errors.New("no active otp")
	ErrOTPExpired         = errors.New("otp expired")
	ErrOTPInvalid         = errors.New("otp invalid")
)

// Alert errors
var (
	ErrUnknownStatus        = errors.New("unknown alert status")
	ErrOrganisationNotFound = errors.New("organisation not found")
)

// Trip errors
var (
	ErrStagedTripNotFound = errors.New("temp trip not found")
	ErrStagedTripConsumed = errors.New("temp trip already finalized")
	ErrTruckNotAvailable  = errors.New("truck not available")
	ErrCustomerNotFound   = errors.New("customer not found")
)

// Error codes returned to API clients
const (
	CodeInvalidBody    = "INVALID_BODY"
	CodeStepIncomplete = "STEP_INCOMPLETE"
)

// ValidationError is a rejected request whose message is safe to show the client.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrInvalidInput) match any validation failure.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// InvalidBody builds an INVALID_BODY validation error.
func InvalidBody(message string) error {
	return &ValidationError{Code: CodeInvalidBody, Message: message}
}

// StepIncomplete reports a wizard step whose prerequisites were not met.
func StepIncomplete(message string) error {
	return &ValidationError{Code: CodeStepIncomplete, Message: message}
}
