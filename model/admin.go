package model

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Admin roles.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// Admin represents a user of the admin panel.
type Admin struct {
	Base
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"password_hash,omitempty"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`

	// SessionVersion is embedded in issued tokens. Bumping it revokes them.
	SessionVersion int `json:"session_version"`
}

// NewAdmin creates an active admin with a normalized email.
func NewAdmin(email, name, role string) *Admin {
	if role == "" {
		role = RoleEditor
	}
	return &Admin{
		Email:    NormalizeEmail(email),
		Name:     strings.TrimSpace(name),
		Role:     role,
		IsActive: true,
	}
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Prepare normalizes the email and defaults the role.
func (a *Admin) Prepare(time.Time) error {
	a.Email = NormalizeEmail(a.Email)
	if a.Role == "" {
		a.Role = RoleEditor
	}
	return nil
}

// Validate implements Validator.
func (a *Admin) Validate() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.Email, validation.Required, is.EmailFormat),
		validation.Field(&a.Name, validation.Length(0, 120)),
		validation.Field(&a.Role, validation.Required, validation.In(RoleAdmin, RoleEditor)),
		validation.Field(&a.PasswordHash, validation.Required.Error("password is required")),
	)
}

// IsAdmin returns true if the account has the admin role
func (a *Admin) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanWrite returns true if the account may edit content
func (a *Admin) CanWrite() bool {
	return a.IsActive && (a.Role == RoleAdmin || a.Role == RoleEditor)
}

// AdminView is the public representation of an Admin.
type AdminView struct {
	Key         string     `json:"_key"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// View strips credentials from the admin.
func (a *Admin) View() AdminView {
	return AdminView{
		Key:         a.Key,
		Email:       a.Email,
		Name:        a.Name,
		Role:        a.Role,
		IsActive:    a.IsActive,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
	}
}
