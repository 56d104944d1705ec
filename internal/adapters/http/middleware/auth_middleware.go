package middleware

import (
	"errors"
	"strings"

	"e2e-transit/internal/config"
	"e2e-transit/internal/pkg/jwt"
	"e2e-transit/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware requires a valid access token when cfg.RequireAuth is set.
// Otherwise a valid token is still decoded into Locals("userID"); a missing or
// unverifiable token leaves the request anonymous.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// 1. Bearer header
		var accessToken string
		authHeader := c.Get(fiber.HeaderAuthorization)
		if strings.HasPrefix(authHeader, "Bearer ") {
			accessToken = strings.TrimPrefix(authHeader, "Bearer ")
		}

		// 2. No token found
		if accessToken == "" {
			if !cfg.RequireAuth {
				return c.Next()
			}
			return response.Unauthorized(c, response.CodeUnauthorized, "Access token required")
		}

		// 3. Validate token
		claims, err := jwt.ValidateAccessToken(accessToken, cfg.JWT.Secret)
		if err != nil {
			if !cfg.RequireAuth {
				return c.Next()
			}
			if errors.Is(err, jwt.ErrTokenExpired) {
				return response.Unauthorized(c, response.CodeUnauthorized, "Access token expired")
			}
			return response.Unauthorized(c, response.CodeUnauthorized, "Invalid access token")
		}

		// 4. Set user info in context
		c.Locals("userID", claims.UserID)

		return c.Next()
	}
}
