// Package auth provides authentication handlers for Fiber.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/certiva/website-backend/database"
	"github.com/certiva/website-backend/internal/services/otp"
	"github.com/certiva/website-backend/model"
	"github.com/certiva/website-backend/restapi/modules/common"
)

// ============================================================================
// AUTH HANDLERS
// ============================================================================

// RequestOTP emails a login code. The response is the same whether or not
// the account exists.
func (d Deps) RequestOTP() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req OTPRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		email := model.NormalizeEmail(req.Email)
		if email == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email is required"})
		}

		ctx := c.Context()
		admin, err := d.findByEmail(ctx, email)
		switch {
		case err == nil && admin.IsActive:
			code, err := d.OTP.Issue(email)
			if err != nil {
				return err
			}
			if err := d.Mailer.SendOTP(ctx, email, code, d.OTP.TTL()); err != nil {
				d.Logger.Error("Failed to send login code", zap.String("email", email), zap.Error(err))
			}
		case err == nil:
			d.Logger.Info("Login code requested for inactive account", zap.String("email", email))
		case !errors.Is(err, database.ErrNotFound):
			return err
		}

		return c.JSON(fiber.Map{"message": "If the account exists, a login code has been sent"})
	}
}

// VerifyOTP exchanges a login code for a session.
func (d Deps) VerifyOTP() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req OTPVerifyRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		email := model.NormalizeEmail(req.Email)
		if email == "" || req.Code == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email and code are required"})
		}

		if err := d.OTP.Verify(email, req.Code); err != nil {
			switch {
			case errors.Is(err, otp.ErrTooManyAttempts):
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many attempts, request a new code"})
			case errors.Is(err, otp.ErrExpired):
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Code expired"})
			default:
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid code"})
			}
		}

		admin, err := d.findByEmail(c.Context(), email)
		if err != nil || !admin.IsActive {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid code"})
		}
		return d.startSession(c, admin)
	}
}

// Login handles password authentication
func (d Deps) Login() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		if req.Email == "" || req.Password == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email and password are required"})
		}

		admin, err := d.findByEmail(c.Context(), model.NormalizeEmail(req.Email))
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
			}
			return err
		}

		if !admin.IsActive {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Account is inactive"})
		}

		if !CheckPasswordHash(req.Password, admin.PasswordHash) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
		}

		return d.startSession(c, admin)
	}
}

// Logout clears the session cookie
func (d Deps) Logout() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Cookie(&fiber.Cookie{
			Name:     CookieName,
			Value:    "",
			Expires:  time.Now().Add(-1 * time.Hour),
			MaxAge:   -1,
			HTTPOnly: true,
			Secure:   d.SecureCookie,
			SameSite: "Lax",
			Path:     "/",
		})
		return c.JSON(fiber.Map{"message": "Logged out successfully"})
	}
}

// Me returns the current admin's info
func (d Deps) Me() fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, err := d.Admins.Get(c.Context(), common.AdminKey(c))
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Account no longer exists"})
			}
			return err
		}
		return c.JSON(admin.View())
	}
}

// ChangePassword allows an admin to change their password
func (d Deps) ChangePassword() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ChangePasswordRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		if err := ValidatePasswordStrength(req.NewPassword); err != nil {
			return common.FieldError(c, "new_password", err.Error())
		}

		ctx := c.Context()
		admin, err := d.Admins.Get(ctx, common.AdminKey(c))
		if err != nil {
			return common.WriteError(c, err)
		}

		if !CheckPasswordHash(req.OldPassword, admin.PasswordHash) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid current password"})
		}

		hash, err := HashPassword(req.NewPassword)
		if err != nil {
			return err
		}
		admin.PasswordHash = hash
		// Sign out every other session; this one gets a fresh token.
		admin.SessionVersion++
		if err := d.Admins.Replace(ctx, admin.Key, admin); err != nil {
			return common.WriteError(c, err)
		}

		token, err := d.Tokens.Generate(admin)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
		}
		d.SetAuthCookie(c, token)
		return c.JSON(fiber.Map{
			"message":    "Password changed successfully",
			"token":      token,
			"expires_in": int64(d.Tokens.TTL().Seconds()),
		})
	}
}

// RefreshToken issues a new token for a still valid session
func (d Deps) RefreshToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, err := d.Admins.Get(c.Context(), common.AdminKey(c))
		if err != nil || !admin.IsActive {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Account is inactive"})
		}

		token, err := d.Tokens.Generate(admin)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
		}
		d.SetAuthCookie(c, token)
		return c.JSON(fiber.Map{
			"message":    "Token refreshed",
			"token":      token,
			"expires_in": int64(d.Tokens.TTL().Seconds()),
		})
	}
}

// ============================================================================
// ADMIN MANAGEMENT HANDLERS
// ============================================================================

// ListAdmins returns all admin accounts
func (d Deps) ListAdmins() fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := d.Admins.List(c.Context(), common.ParseListOptions(c, "email", false, "email", "name", "created_at"))
		if err != nil {
			return common.WriteError(c, err)
		}
		items := make([]model.AdminView, len(res.Items))
		for i, a := range res.Items {
			items[i] = a.View()
		}
		return c.JSON(fiber.Map{
			"items": items,
			"total": res.Total,
			"page":  res.Page,
			"limit": res.Limit,
			"pages": res.Pages,
		})
	}
}

// CreateAdmin creates a new admin account
func (d Deps) CreateAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req CreateAdminRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		admin, err := CreateAccount(c.Context(), d.Admins, req)
		if err != nil {
			return common.WriteError(c, err)
		}

		d.Logger.Info("Admin created", zap.String("email", admin.Email), zap.String("by", common.AdminKey(c)))
		return c.Status(fiber.StatusCreated).JSON(admin.View())
	}
}

// DeleteAdmin removes an admin account. Admins cannot delete themselves.
func (d Deps) DeleteAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Params("key")
		if key == common.AdminKey(c) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "You cannot delete your own account"})
		}
		if err := d.Admins.Delete(c.Context(), key); err != nil {
			return common.WriteError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Deleted", "_key": key})
	}
}

// ============================================================================
// HELPERS
// ============================================================================

// SetAuthCookie sets the session cookie
func (d Deps) SetAuthCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   d.SecureCookie,
		SameSite: "Lax",
		MaxAge:   int(d.Tokens.TTL().Seconds()),
		Path:     "/",
	})
}

func (d Deps) startSession(c *fiber.Ctx, admin *model.Admin) error {
	token, err := d.Tokens.Generate(admin)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
	}

	now := time.Now().UTC()
	admin.LastLoginAt = &now
	if err := d.Admins.Replace(c.Context(), admin.Key, admin); err != nil {
		d.Logger.Warn("Failed to record last login", zap.String("email", admin.Email), zap.Error(err))
	}

	d.SetAuthCookie(c, token)
	return c.JSON(SessionResponse{
		Message:   "Login successful",
		Token:     token,
		ExpiresIn: int64(d.Tokens.TTL().Seconds()),
		Admin:     admin.View(),
	})
}

func (d Deps) findByEmail(ctx context.Context, email string) (*model.Admin, error) {
	return d.Admins.FindOne(ctx, map[string]any{"email": email})
}
