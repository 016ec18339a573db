package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/certiva/website-backend/database"
	"github.com/certiva/website-backend/model"
	"github.com/certiva/website-backend/restapi/modules/common"
)

// CookieName is the session cookie.
const CookieName = "auth_token"

// ErrSessionRevoked is returned for a well-formed token whose account was
// deleted, deactivated or had its sessions revoked.
var ErrSessionRevoked = errors.New("auth: session revoked")

// tokenFromRequest reads the session cookie, falling back to a bearer token.
func tokenFromRequest(c *fiber.Ctx) string {
	if token := c.Cookies(CookieName); token != "" {
		return token
	}
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// Authenticate validates token and checks it against the stored account. The
// returned admin carries the current role, not the one signed into the token.
func Authenticate(ctx context.Context, tokens *TokenManager, admins database.Store[model.Admin], token string) (*model.Admin, error) {
	claims, err := tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	admin, err := admins.Get(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrSessionRevoked
		}
		return nil, err
	}
	if !admin.CanWrite() || admin.SessionVersion != claims.Version {
		return nil, ErrSessionRevoked
	}
	return admin, nil
}

func setLocals(c *fiber.Ctx, admin *model.Admin) {
	c.Locals(common.LocalAuthenticated, true)
	c.Locals(common.LocalAdminKey, admin.Key)
	c.Locals(common.LocalEmail, admin.Email)
	c.Locals(common.LocalRole, admin.Role)
}

// RequireAuth middleware validates the session token and blocks guests
func RequireAuth(tokens *TokenManager, admins database.Store[model.Admin]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := tokenFromRequest(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		admin, err := Authenticate(c.Context(), tokens, admins, token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired session",
			})
		}

		setLocals(c, admin)
		return c.Next()
	}
}

// OptionalAuth identifies the admin if a token is present but does not block guests.
// This allows a single endpoint to serve both public and admin data.
func OptionalAuth(tokens *TokenManager, admins database.Store[model.Admin]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(common.LocalAuthenticated, false)
		token := tokenFromRequest(c)
		if token == "" {
			return c.Next()
		}

		// Treat invalid, expired and revoked tokens as guest access
		if admin, err := Authenticate(c.Context(), tokens, admins, token); err == nil {
			setLocals(c, admin)
		}
		return c.Next()
	}
}

// RequireRole middleware checks if the admin has one of the required roles
func RequireRole(allowedRoles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userRole, ok := c.Locals(common.LocalRole).(string)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		for _, role := range allowedRoles {
			if userRole == role {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}
}
