// Package restapi provides the main router and initialization for REST API endpoints.
package restapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/graphql-go/graphql"
	"go.uber.org/zap"

	"github.com/certiva/website-backend/database"
	"github.com/certiva/website-backend/events/modules/content"
	"github.com/certiva/website-backend/internal/cache"
	"github.com/certiva/website-backend/internal/config"
	"github.com/certiva/website-backend/internal/services/geocoder"
	"github.com/certiva/website-backend/internal/services/mailer"
	"github.com/certiva/website-backend/internal/services/otp"
	"github.com/certiva/website-backend/internal/services/storage"
	"github.com/certiva/website-backend/model"
	"github.com/certiva/website-backend/restapi/modules/admin"
	"github.com/certiva/website-backend/restapi/modules/auth"
	"github.com/certiva/website-backend/restapi/modules/blogs"
	"github.com/certiva/website-backend/restapi/modules/careers"
	"github.com/certiva/website-backend/restapi/modules/common"
	contactmod "github.com/certiva/website-backend/restapi/modules/contact"
	"github.com/certiva/website-backend/restapi/modules/crud"
	"github.com/certiva/website-backend/restapi/modules/industries"
	"github.com/certiva/website-backend/restapi/modules/sections"
	"github.com/certiva/website-backend/restapi/modules/translate"
	"github.com/certiva/website-backend/restapi/modules/uploads"
)

// Deps are the services the routes are built from. OTP, Geocoder and Schema
// are nil when their feature is disabled.
type Deps struct {
	Config     *config.Config
	Stores     *database.Stores
	Cache      cache.Cache
	Events     content.Publisher
	Tokens     *auth.TokenManager
	OTP        *otp.Store
	Mailer     mailer.Mailer
	Uploader   storage.Uploader
	Geocoder   geocoder.Geocoder
	Translator translate.Translator
	Schema     *graphql.Schema
	Logger     *zap.Logger
}

// SetupRoutes configures all REST API routes and the GraphQL endpoint.
func SetupRoutes(app *fiber.App, d Deps) {
	cfg := d.Config
	langs := common.Languages{Default: cfg.Content.DefaultLanguage, Supported: cfg.Content.Languages}
	env := crud.Env{Cache: d.Cache, Events: d.Events, Logger: d.Logger}

	requireAuth := auth.RequireAuth(d.Tokens, d.Stores.Admins)
	adminOnly := auth.RequireRole(model.RoleAdmin)
	limited := limiter.New(limiter.Config{
		Max:        cfg.Server.RateLimit,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many requests, try again later"})
		},
	})
	cached := func(collection string, params ...string) fiber.Handler {
		return common.CacheResponses(d.Cache, collection, cfg.Cache.ContentTTL, langs, d.Logger, params...)
	}

	// API Group /api. Every route may read the session; writes require it.
	api := app.Group("/api", auth.OptionalAuth(d.Tokens, d.Stores.Admins))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "UP"})
	})

	// GraphQL Route
	if d.Schema != nil {
		gql := GraphQLHandler(*d.Schema)
		api.Get("/graphql", gql)
		api.Post("/graphql", gql)
	}

	// Auth Routes
	authDeps := auth.Deps{
		Admins:       d.Stores.Admins,
		Tokens:       d.Tokens,
		OTP:          d.OTP,
		Mailer:       d.Mailer,
		Logger:       d.Logger,
		SecureCookie: cfg.Auth.SecureCookie,
	}
	authGroup := api.Group("/auth")
	if d.OTP != nil {
		authGroup.Post("/otp/request", limited, authDeps.RequestOTP())
		authGroup.Post("/otp/verify", limited, authDeps.VerifyOTP())
	}
	authGroup.Post("/login", limited, authDeps.Login())
	authGroup.Post("/logout", authDeps.Logout())
	authGroup.Get("/me", requireAuth, authDeps.Me())
	authGroup.Post("/change-password", requireAuth, authDeps.ChangePassword())
	authGroup.Post("/refresh", requireAuth, authDeps.RefreshToken())

	// Admin Management
	admins := api.Group("/admins", requireAuth, adminOnly)
	admins.Get("/", authDeps.ListAdmins())
	admins.Post("/", authDeps.CreateAdmin())
	admins.Delete("/:key", authDeps.DeleteAdmin())

	// Blogs
	blog := blogs.New(d.Stores.Blogs, env, d.Uploader, langs)
	api.Get("/blogs", cached(database.ColBlogs, "category", "tag"), blog.PublicList())
	api.Get("/blogs/:slug", cached(database.ColBlogs), blog.GetBySlug())
	api.Get("/admin/blogs", requireAuth, blog.AdminList())
	api.Post("/blogs", requireAuth, blog.Create())
	api.Put("/blogs/:key", requireAuth, blog.Replace())
	api.Delete("/blogs/:key", requireAuth, blog.Delete())

	// Careers
	career := careers.New(d.Stores.Careers, d.Stores.JobApplications, env, d.Uploader, d.Mailer)
	api.Get("/careers", cached(database.ColCareers, "department", "employment_type", "location", "active"), career.List())
	api.Get("/careers/:slug", cached(database.ColCareers), career.GetBySlug())
	api.Post("/careers/:key/apply", limited, career.Apply())
	api.Get("/careers/:key/applications", requireAuth, career.Applications())
	api.Post("/careers", requireAuth, career.Create())
	api.Put("/careers/:key", requireAuth, career.Replace())
	api.Delete("/careers/:key", requireAuth, career.Delete())

	// Contact
	offices := contactmod.NewOffices(d.Stores.ContactOffices, env, d.Geocoder)
	api.Get("/contact-offices", cached(database.ColContactOffices, "region", "office_type"), offices.List())
	api.Get("/contact-offices/:key", cached(database.ColContactOffices), offices.Get())
	api.Post("/contact-offices", requireAuth, offices.Create())
	api.Put("/contact-offices/:key", requireAuth, offices.Replace())
	api.Delete("/contact-offices/:key", requireAuth, offices.Delete())
	api.Post("/contact-offices/:key/geocode", requireAuth, offices.Geocode())

	// Admin maintenance jobs
	backfill := admin.NewBackfill(d.Stores.ContactOffices, d.Geocoder, env)
	app.Hooks().OnShutdown(func() error {
		backfill.Stop()
		return nil
	})
	jobs := api.Group("/admin/jobs", requireAuth, adminOnly)
	jobs.Post("/geocode-offices", backfill.PostGeocodeOffices())
	jobs.Get("/geocode-offices", backfill.GetBackfillStatus())

	inquiries := contactmod.NewInquiries(d.Stores.Inquiries, d.Stores.ContactOffices, d.Mailer, d.Logger)
	api.Post("/contact/inquiries", limited, inquiries.Submit())
	api.Get("/contact/inquiries", requireAuth, inquiries.List())
	api.Patch("/contact/inquiries/:key", requireAuth, inquiries.UpdateStatus())
	api.Delete("/contact/inquiries/:key", requireAuth, inquiries.Delete())

	// Industry stats
	stats := industries.New(d.Stores.IndustryStats, env, langs)
	api.Get("/industry-stats", cached(database.ColIndustryStats, "industry"), stats.List())
	api.Post("/industry-stats", requireAuth, stats.Create())
	api.Put("/industry-stats/:key", requireAuth, stats.Replace())
	api.Delete("/industry-stats/:key", requireAuth, stats.Delete())

	// Pages & Sections
	cms := sections.New(d.Stores.Pages, d.Stores.Sections, env, langs)
	api.Get("/pages/:slug", cached(database.ColPages), cms.RenderPage())
	api.Get("/pages", requireAuth, cms.ListPages())
	api.Post("/pages", requireAuth, cms.Pages.Create())
	api.Put("/pages/:key", requireAuth, cms.Pages.Replace())
	api.Delete("/pages/:key", requireAuth, cms.Pages.Delete())
	api.Get("/sections", requireAuth, cms.ListSections())
	api.Get("/sections/:key", requireAuth, cms.Sections.Get())
	api.Post("/sections", requireAuth, cms.Sections.Create())
	api.Put("/sections/:key", requireAuth, cms.Sections.Replace())
	api.Delete("/sections/:key", requireAuth, cms.Sections.Delete())

	// Translation & Uploads
	api.Post("/translate", limited, translate.Handler(d.Translator, d.Logger))
	api.Post("/uploads", requireAuth, uploads.Upload(d.Uploader, d.Logger))
	api.Delete("/uploads", requireAuth, uploads.Delete(d.Uploader, d.Logger))

	d.Logger.Info("API routes initialized successfully")
}
