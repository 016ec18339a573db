// Package blogs serves blog posts to the site and the admin editor.
package blogs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/certiva/website-backend/database"
	"github.com/certiva/website-backend/internal/services/storage"
	"github.com/certiva/website-backend/model"
	"github.com/certiva/website-backend/restapi/modules/common"
	"github.com/certiva/website-backend/restapi/modules/crud"
)

const (
	folder = "blogs"

	// uploadsLocal holds the media uploaded by the current request.
	uploadsLocal = "blog_uploads"
)

var sortable = []string{"published_at", "created_at", "updated_at", "title"}

// Handler serves the blog routes.
type Handler struct {
	crud.Resource[model.Blog]
	uploader  storage.Uploader
	languages common.Languages
	now       func() time.Time
}

// New returns a Handler over store.
func New(store database.Store[model.Blog], env crud.Env, uploader storage.Uploader, languages common.Languages) *Handler {
	h := &Handler{uploader: uploader, languages: languages, now: time.Now}
	h.Resource = crud.Resource[model.Blog]{
		Name:  database.ColBlogs,
		Store: store,
		Env:   env,
		Hooks: crud.Hooks[model.Blog]{
			Decode:      h.decode,
			BeforeWrite: h.beforeWrite,
			Rollback:    h.rollback,
			AfterWrite:  h.afterWrite,
			AfterDelete: h.afterDelete,
		},
	}
	return h
}

// PublicList lists published posts. Supports category, tag, q and lang.
func (h *Handler) PublicList() fiber.Handler {
	return func(c *fiber.Ctx) error {
		opts := h.listOptions(c)
		opts.Filters = withFilter(opts.Filters, "published", true)
		return h.respond(c, opts)
	}
}

// AdminList lists every post, optionally filtered by ?published=true|false.
func (h *Handler) AdminList() fiber.Handler {
	return func(c *fiber.Ctx) error {
		opts := h.listOptions(c)
		switch c.Query("published") {
		case "true":
			opts.Filters = withFilter(opts.Filters, "published", true)
		case "false":
			opts.Filters = withFilter(opts.Filters, "published", false)
		}
		return h.respond(c, opts)
	}
}

// GetBySlug returns one post. Guests only see published posts.
func (h *Handler) GetBySlug() fiber.Handler {
	return func(c *fiber.Ctx) error {
		filters := map[string]any{"slug": c.Params("slug")}
		if !common.IsAuthenticated(c) {
			filters["published"] = true
		}
		doc, err := h.Store.FindOne(c.Context(), filters)
		if err != nil {
			return common.WriteError(c, err)
		}
		return c.JSON(h.localize(c, doc))
	}
}

func (h *Handler) listOptions(c *fiber.Ctx) database.ListOptions {
	opts := common.ParseListOptions(c, "published_at", true, sortable...)
	opts.SearchFields = []string{"title", "excerpt"}
	common.AddFilter(&opts, "category", c.Query("category"))
	if tag := c.Query("tag"); tag != "" {
		opts.Contains = map[string]any{"tags": tag}
	}
	return opts
}

func (h *Handler) respond(c *fiber.Ctx, opts database.ListOptions) error {
	res, err := h.Store.List(c.Context(), opts)
	if err != nil {
		return common.WriteError(c, err)
	}
	items := make([]model.Blog, len(res.Items))
	for i, doc := range res.Items {
		items[i] = h.localize(c, doc)
	}
	return c.JSON(crud.ListResponse{Items: items, Total: res.Total, Page: res.Page, Limit: res.Limit, Pages: res.Pages})
}

// localize applies the translation only when a language was asked for.
func (h *Handler) localize(c *fiber.Ctx, doc *model.Blog) model.Blog {
	if c.Query("lang") == "" {
		return *doc
	}
	return doc.Localized(h.languages.Resolve(c))
}

// decode accepts JSON or a multipart form with the post in "data" and
// optional "cover" and "attachments" files. Files are uploaded in beforeWrite.
func (h *Handler) decode(c *fiber.Ctx) (*model.Blog, error) {
	if !common.IsMultipart(c) {
		return crud.DecodeJSON[model.Blog](c)
	}
	doc := new(model.Blog)
	if err := json.Unmarshal([]byte(c.FormValue("data")), doc); err != nil {
		return nil, common.ErrInvalidBody
	}
	return doc, nil
}

func (h *Handler) beforeWrite(c *fiber.Ctx, doc, prev *model.Blog) error {
	if doc.Language == "" {
		doc.Language = h.languages.Default
	}
	if prev != nil && doc.PublishedAt == nil {
		doc.PublishedAt = prev.PublishedAt
	}

	// Reject invalid posts before anything is uploaded.
	if err := doc.Prepare(h.now().UTC()); err != nil {
		return err
	}
	if err := doc.Validate(); err != nil {
		return err
	}

	if !common.IsMultipart(c) {
		return nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return common.ErrInvalidBody
	}

	var uploaded []model.Media
	if files := form.File["cover"]; len(files) > 0 {
		if !storage.IsImage(files[0].Filename) {
			return storage.ErrUnsupportedType
		}
		m, err := common.UploadFormFile(c.Context(), h.uploader, files[0], folder)
		if err != nil {
			return err
		}
		doc.CoverImage = m
		uploaded = append(uploaded, *m)
		c.Locals(uploadsLocal, uploaded)
	}
	for _, fh := range form.File["attachments"] {
		m, err := common.UploadFormFile(c.Context(), h.uploader, fh, folder+"/attachments")
		if err != nil {
			h.deleteMedia(c.Context(), uploaded)
			return err
		}
		doc.Attachments = append(doc.Attachments, *m)
		uploaded = append(uploaded, *m)
		c.Locals(uploadsLocal, uploaded)
	}
	return nil
}

// rollback removes the files this request uploaded for a write the store
// rejected. Media the post already referenced stays.
func (h *Handler) rollback(c *fiber.Ctx, _ *model.Blog) {
	uploaded, _ := c.Locals(uploadsLocal).([]model.Media)
	h.deleteMedia(c.Context(), uploaded)
}

// afterWrite removes files the new version no longer references.
func (h *Handler) afterWrite(ctx context.Context, doc, prev *model.Blog) {
	if prev == nil {
		return
	}
	keep := map[string]bool{}
	for _, m := range mediaOf(doc) {
		keep[m.PublicID] = true
	}
	var stale []model.Media
	for _, m := range mediaOf(prev) {
		if !keep[m.PublicID] {
			stale = append(stale, m)
		}
	}
	h.deleteMedia(ctx, stale)
}

func (h *Handler) afterDelete(ctx context.Context, doc *model.Blog) {
	h.deleteMedia(ctx, mediaOf(doc))
}

func (h *Handler) deleteMedia(ctx context.Context, media []model.Media) {
	for _, m := range media {
		if m.PublicID == "" {
			continue
		}
		if err := h.uploader.Delete(ctx, m.PublicID, m.ResourceType); err != nil {
			h.Env.Logger.Warn("Failed to delete blog media", zap.String("public_id", m.PublicID), zap.Error(err))
		}
	}
}

func mediaOf(doc *model.Blog) []model.Media {
	var out []model.Media
	if doc.CoverImage != nil {
		out = append(out, *doc.CoverImage)
	}
	return append(out, doc.Attachments...)
}

func withFilter(filters map[string]any, field string, value any) map[string]any {
	if filters == nil {
		filters = map[string]any{}
	}
	filters[field] = value
	return filters
}
