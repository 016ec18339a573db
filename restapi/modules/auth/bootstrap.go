package auth

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"github.com/certiva/website-backend/database"
	"github.com/certiva/website-backend/model"
)

// CreateAccount validates the password, hashes it and stores a new admin.
func CreateAccount(ctx context.Context, admins database.Store[model.Admin], req CreateAdminRequest) (*model.Admin, error) {
	if err := ValidatePasswordStrength(req.Password); err != nil {
		return nil, validation.Errors{"password": err}
	}

	admin := model.NewAdmin(req.Email, req.Name, req.Role)
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	admin.PasswordHash = hash

	if err := admins.Create(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// BootstrapAdmin creates the configured admin account when no account with
// that email exists yet. An empty email or password disables it.
func BootstrapAdmin(ctx context.Context, admins database.Store[model.Admin], email, password string, logger *zap.Logger) error {
	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}

	_, err := admins.FindOne(ctx, map[string]any{"email": email})
	if err == nil {
		logger.Debug("Bootstrap admin already exists", zap.String("email", email))
		return nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("look up bootstrap admin: %w", err)
	}

	_, err = CreateAccount(ctx, admins, CreateAdminRequest{
		Email:    email,
		Name:     "Administrator",
		Password: password,
		Role:     model.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	logger.Info("Bootstrap admin created", zap.String("email", email))
	return nil
}
