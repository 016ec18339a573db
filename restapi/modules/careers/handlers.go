// Package careers serves job openings and accepts applications.
package careers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/certiva/website-backend/database"
	"github.com/certiva/website-backend/internal/services/mailer"
	"github.com/certiva/website-backend/internal/services/storage"
	"github.com/certiva/website-backend/model"
	"github.com/certiva/website-backend/restapi/modules/common"
	"github.com/certiva/website-backend/restapi/modules/crud"
)

const resumeFolder = "resumes"

var sortable = []string{"created_at", "title", "department", "closing_date"}

// Handler serves the career routes.
type Handler struct {
	crud.Resource[model.Career]
	applications database.Store[model.JobApplication]
	uploader     storage.Uploader
	mailer       mailer.Mailer
	now          func() time.Time
}

// New returns a Handler.
func New(careers database.Store[model.Career], applications database.Store[model.JobApplication], env crud.Env, uploader storage.Uploader, m mailer.Mailer) *Handler {
	return &Handler{
		Resource:     crud.Resource[model.Career]{Name: database.ColCareers, Store: careers, Env: env},
		applications: applications,
		uploader:     uploader,
		mailer:       m,
		now:          time.Now,
	}
}

// List returns openings. Guests only see active ones; admins may filter with
// ?active=true|false.
func (h *Handler) List() fiber.Handler {
	return h.Resource.List(func(c *fiber.Ctx) database.ListOptions {
		opts := common.ParseListOptions(c, "created_at", true, sortable...)
		opts.SearchFields = []string{"title", "department", "location"}
		common.AddFilter(&opts, "department", c.Query("department"))
		common.AddFilter(&opts, "employment_type", c.Query("employment_type"))
		common.AddFilter(&opts, "location", c.Query("location"))

		active := c.Query("active")
		if !common.IsAuthenticated(c) {
			active = "true"
		}
		switch active {
		case "true", "false":
			if opts.Filters == nil {
				opts.Filters = map[string]any{}
			}
			opts.Filters["is_active"] = active == "true"
		}
		return opts
	})
}

// GetBySlug returns one opening. Guests only see active ones.
func (h *Handler) GetBySlug() fiber.Handler {
	return h.FindOne(func(c *fiber.Ctx) map[string]any {
		filters := map[string]any{"slug": c.Params("slug")}
		if !common.IsAuthenticated(c) {
			filters["is_active"] = true
		}
		return filters
	})
}

// Apply accepts a multipart application with a PDF "resume".
func (h *Handler) Apply() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.Context()
		career, err := h.Store.Get(ctx, c.Params("key"))
		if err != nil {
			return common.WriteError(c, err)
		}
		if !career.OpenAt(h.now()) {
			return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": "This position is no longer accepting applications"})
		}

		if !common.IsMultipart(c) {
			return common.BadRequest(c, "Expected a multipart form with a resume")
		}
		fh, err := c.FormFile("resume")
		if err != nil {
			fh = nil
		}

		app := &model.JobApplication{
			CareerKey: career.Key,
			Name:      c.FormValue("name"),
			Email:     c.FormValue("email"),
			Phone:     c.FormValue("phone"),
			Message:   c.FormValue("message"),
		}
		if fh != nil {
			// Validate the form before the upload so rejected forms store nothing.
			app.Resume = &model.Media{}
		}
		if err := app.Prepare(h.now()); err != nil {
			return common.WriteError(c, err)
		}
		if err := app.Validate(); err != nil {
			return common.WriteError(c, err)
		}
		if !storage.IsPDF(fh.Filename) {
			return common.FieldError(c, "resume", "resume must be a PDF")
		}

		resume, err := common.UploadFormFile(ctx, h.uploader, fh, resumeFolder)
		if err != nil {
			return common.WriteError(c, err)
		}
		app.Resume = resume

		if err := h.applications.Create(ctx, app); err != nil {
			if derr := h.uploader.Delete(ctx, resume.PublicID, resume.ResourceType); derr != nil {
				h.Env.Logger.Warn("Failed to delete orphaned resume", zap.String("public_id", resume.PublicID), zap.Error(derr))
			}
			return common.WriteError(c, err)
		}

		if err := h.mailer.SendApplicationNotification(ctx, app, career); err != nil {
			h.Env.Logger.Error("Failed to send application notification", zap.String("career", career.Key), zap.Error(err))
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Application received",
			"_key":    app.Key,
		})
	}
}

// Applications lists the applications for the career named by :key.
func (h *Handler) Applications() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Params("key")
		if _, err := h.Store.Get(c.Context(), key); err != nil {
			return common.WriteError(c, err)
		}
		opts := common.ParseListOptions(c, "created_at", true, "created_at", "name")
		opts.SearchFields = []string{"name", "email"}
		common.AddFilter(&opts, "career_key", key)

		res, err := h.applications.List(c.Context(), opts)
		if err != nil {
			return common.WriteError(c, err)
		}
		return c.JSON(crud.ListResponse{Items: res.Items, Total: res.Total, Page: res.Page, Limit: res.Limit, Pages: res.Pages})
	}
}
