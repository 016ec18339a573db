package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/certiva/website-backend/database"
	gqlschema "github.com/certiva/website-backend/graphql"
	gqlcontent "github.com/certiva/website-backend/graphql/modules/content"
	"github.com/certiva/website-backend/internal/api"
	"github.com/certiva/website-backend/internal/cache"
	"github.com/certiva/website-backend/internal/kafka"
	"github.com/certiva/website-backend/internal/services/geocoder"
	"github.com/certiva/website-backend/internal/services/mailer"
	"github.com/certiva/website-backend/internal/services/otp"
	"github.com/certiva/website-backend/internal/services/storage"
	"github.com/certiva/website-backend/internal/services/translator"
	"github.com/certiva/website-backend/restapi"
	"github.com/certiva/website-backend/restapi/modules/auth"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// instanceID names this process in content events so it can skip its own.
func instanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "website-backend"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}

func openCache(ctx context.Context) (cache.Cache, error) {
	if cfg.Cache.RedisURL == "" {
		logger.Info("Using in-memory cache", zap.Int("max_entries", cfg.Cache.MaxEntries))
		return cache.NewMemory(cache.WithMaxEntries(cfg.Cache.MaxEntries)), nil
	}
	c, err := cache.NewRedis(ctx, cfg.Cache.RedisURL)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to Redis cache")
	return c, nil
}

// buildDeps wires every service the routes need.
func buildDeps(ctx context.Context, id string) (restapi.Deps, error) {
	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return restapi.Deps{}, err
	}

	stores, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		return restapi.Deps{}, fmt.Errorf("open database: %w", err)
	}
	if err := auth.BootstrapAdmin(ctx, stores.Admins, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword, logger); err != nil {
		return restapi.Deps{}, fmt.Errorf("bootstrap admin: %w", err)
	}

	c, err := openCache(ctx)
	if err != nil {
		return restapi.Deps{}, err
	}

	uploader, err := storage.New(cfg.Storage)
	if err != nil {
		return restapi.Deps{}, err
	}

	d := restapi.Deps{
		Config:     cfg,
		Stores:     stores,
		Cache:      c,
		Events:     kafka.NewPublisher(cfg.Kafka, id),
		Tokens:     tokens,
		Mailer:     mailer.New(cfg.SMTP, logger),
		Uploader:   uploader,
		Translator: translator.New(cfg.Translator, c, cfg.Cache.TranslationTTL, cfg.Content.Languages, logger),
		Logger:     logger,
	}

	if cfg.Features.OTP {
		d.OTP = otp.New(otp.Options{TTL: cfg.Auth.OTPTTL, MaxAttempts: cfg.Auth.OTPMaxAttempts})
	}
	if cfg.Features.Geocoding {
		d.Geocoder = geocoder.New(cfg.Geocoder, logger)
	}
	if cfg.Features.GraphQL {
		schema, err := gqlschema.NewSchema(&gqlcontent.Resolver{
			Stores:          stores,
			DefaultLanguage: cfg.Content.DefaultLanguage,
			Languages:       cfg.Content.Languages,
			Logger:          logger,
		})
		if err != nil {
			return restapi.Deps{}, fmt.Errorf("create graphql schema: %w", err)
		}
		d.Schema = &schema
	}
	return d, nil
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	id := instanceID()
	d, err := buildDeps(ctx, id)
	if err != nil {
		return err
	}
	defer func() {
		_ = d.Events.Close()
		_ = d.Cache.Close()
	}()

	app := api.NewFiberApp(d)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port), zap.String("instance", id))
		if d.Schema != nil {
			logger.Info("GraphQL endpoint available at /api/graphql")
		}
		return app.Listen(api.Addr(cfg.Server.Port))
	})

	g.Go(func() error {
		// Without events each instance still serves correct data once its cache expires.
		if err := kafka.RunEventProcessor(gctx, cfg.Kafka, id, d.Cache, logger); err != nil {
			logger.Error("Kafka event processor stopped", zap.Error(err))
		}
		return nil
	})

	if d.OTP != nil {
		g.Go(func() error {
			return d.OTP.Run(gctx)
		})
	}

	if mem, ok := d.Cache.(*cache.Memory); ok && cfg.Cache.SweepInterval > 0 {
		g.Go(func() error {
			return mem.Run(gctx, cfg.Cache.SweepInterval)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
