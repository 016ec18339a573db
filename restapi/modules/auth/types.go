package auth

import (
	"go.uber.org/zap"

	"github.com/certiva/website-backend/database"
	"github.com/certiva/website-backend/internal/services/mailer"
	"github.com/certiva/website-backend/internal/services/otp"
	"github.com/certiva/website-backend/model"
)

// Deps are the dependencies of the auth handlers.
type Deps struct {
	Admins       database.Store[model.Admin]
	Tokens       *TokenManager
	OTP          *otp.Store
	Mailer       mailer.Mailer
	Logger       *zap.Logger
	SecureCookie bool
}

// LoginRequest defines the body for password login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OTPRequest asks for a login code.
type OTPRequest struct {
	Email string `json:"email"`
}

// OTPVerifyRequest exchanges a login code for a session.
type OTPVerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// ChangePasswordRequest changes the caller's password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// CreateAdminRequest creates an admin account.
type CreateAdminRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// SessionResponse is returned after a successful login.
type SessionResponse struct {
	Message   string          `json:"message"`
	Token     string          `json:"token"`
	ExpiresIn int64           `json:"expires_in"`
	Admin     model.AdminView `json:"admin"`
}
