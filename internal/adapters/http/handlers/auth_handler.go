package handlers

import (
	"strings"

	"e2e-transit/internal/core/services"
	"e2e-transit/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// ForgotPasswordRequest represents forgot-password request body
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// Signup handles account creation
// @Summary Sign up
// @Description Create an unverified account and mail a 6-digit OTP. Re-sends the OTP for unverified accounts.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.SignupInput true "Credentials"
// @Success 201 {object} response.Response
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req services.SignupInput
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	req.Email = normalizeEmail(req.Email)
	if missing := missingFields("email", req.Email, "password", req.Password); len(missing) > 0 {
		return response.InvalidBody(c, missing...)
	}

	result, err := h.authService.Signup(c.UserContext(), &req)
	if err != nil {
		return handleServiceError(c, err, "Signup failed")
	}

	if result.Created {
		return response.Created(c, result.Message, nil)
	}
	return response.Success(c, result.Message, nil)
}

// Verify handles OTP verification and password reset
// @Summary Verify OTP
// @Description Verify a signup OTP, or reset the password when newPassword is given
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.VerifyInput true "OTP"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /auth/verify [post]
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var req services.VerifyInput
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	req.Email = normalizeEmail(req.Email)
	req.OTP = strings.TrimSpace(req.OTP)
	if missing := missingFields("email", req.Email, "otp", req.OTP); len(missing) > 0 {
		return response.InvalidBody(c, missing...)
	}

	result, err := h.authService.Verify(c.UserContext(), &req)
	if err != nil {
		return handleServiceError(c, err, "Verification failed")
	}

	return response.Success(c, result.Message, fiber.Map{"isVerified": result.IsVerified})
}

// Login handles user login
// @Summary Login user
// @Description Authenticate with email and password. Unverified accounts get a fresh OTP.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.LoginInput true "Credentials"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req services.LoginInput
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	req.Email = normalizeEmail(req.Email)
	if missing := missingFields("email", req.Email, "password", req.Password); len(missing) > 0 {
		return response.InvalidBody(c, missing...)
	}

	result, err := h.authService.Login(c.UserContext(), &req)
	if err != nil {
		return handleServiceError(c, err, "Login failed")
	}

	return response.Success(c, "Login successful", result)
}

// ForgotPassword mails a reset OTP
// @Summary Forgot password
// @Description Mail a password-reset OTP. The answer does not reveal whether the email exists.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body ForgotPasswordRequest true "Email"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" {
		return response.InvalidBody(c, "email")
	}

	message, err := h.authService.ForgotPassword(c.UserContext(), req.Email)
	if err != nil {
		return handleServiceError(c, err, "Failed to send reset OTP")
	}

	return response.Success(c, message, nil)
}

// SyncUser reconciles an OAuth identity with the users table
// @Summary Sync OAuth user
// @Description Create or update the user row for an identity issued by the OAuth provider
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.SyncUserInput true "Provider identity"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /auth/syncuser [post]
func (h *AuthHandler) SyncUser(c *fiber.Ctx) error {
	var req services.SyncUserInput
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	req.Email = normalizeEmail(req.Email)

	result, err := h.authService.SyncOAuthUser(c.UserContext(), &req)
	if err != nil {
		return handleServiceError(c, err, "User sync failed")
	}

	return response.Success(c, result.Message, fiber.Map{
		"user":    result.User.ToResponse(),
		"created": result.Created,
	})
}

// Callback completes the OAuth PKCE flow
// @Summary OAuth callback
// @Description Exchange an authorization code with the auth provider and sync the user
// @Tags Auth
// @Produce json
// @Param code query string true "Authorization code"
// @Param code_verifier query string false "PKCE verifier"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /auth/callback [get]
func (h *AuthHandler) Callback(c *fiber.Ctx) error {
	if errParam := c.Query("error"); errParam != "" {
		return response.BadRequest(c, response.CodeProviderError, c.Query("error_description", errParam))
	}

	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		return response.InvalidBody(c, "code")
	}

	result, err := h.authService.OAuthCallback(c.UserContext(), code, c.Query("code_verifier"))
	if err != nil {
		return handleServiceError(c, err, "OAuth callback failed")
	}

	return response.Success(c, result.Sync.Message, fiber.Map{
		"session": result.Session,
		"user":    result.Sync.User.ToResponse(),
		"created": result.Sync.Created,
	})
}
