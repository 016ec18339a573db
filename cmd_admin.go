package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/certiva/website-backend/database"
	"github.com/certiva/website-backend/internal/services/geocoder"
	"github.com/certiva/website-backend/model"
	"github.com/certiva/website-backend/restapi/modules/auth"
	"github.com/certiva/website-backend/restapi/modules/contact"
)

var (
	adminEmail    string
	adminName     string
	adminPassword string
	adminRole     string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin account",
	Example: `  website-backend admin create --email ops@example.com --name Ops --password 'S3cure-pass' --role admin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmdContext(cmd)
		stores, err := database.Open(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		admin, err := auth.CreateAccount(ctx, stores.Admins, auth.CreateAdminRequest{
			Email:    adminEmail,
			Name:     adminName,
			Password: adminPassword,
			Role:     adminRole,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (%s)\n", admin.Role, admin.Email, admin.Key)
		return nil
	},
}

var officesCmd = &cobra.Command{
	Use:   "offices",
	Short: "Maintain contact offices",
}

var officesGeocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Geocode every office that has no coordinates yet",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmdContext(cmd)
		stores, err := database.Open(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		n, err := contact.Backfill(ctx, stores.ContactOffices, geocoder.New(cfg.Geocoder, logger), logger)
		if err != nil {
			return err
		}
		logger.Info("Office geocoding finished", zap.Int("updated", n))
		fmt.Fprintf(cmd.OutOrStdout(), "Geocoded %d offices\n", n)
		return nil
	},
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminEmail, "email", "", "login email")
	adminCreateCmd.Flags().StringVar(&adminName, "name", "", "display name")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "initial password")
	adminCreateCmd.Flags().StringVar(&adminRole, "role", model.RoleEditor, "admin or editor")
	_ = adminCreateCmd.MarkFlagRequired("email")
	_ = adminCreateCmd.MarkFlagRequired("password")
	adminCmd.AddCommand(adminCreateCmd)

	officesCmd.AddCommand(officesGeocodeCmd)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
