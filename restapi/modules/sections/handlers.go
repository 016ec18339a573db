// Package sections serves CMS pages and the sections they are built from.
package sections

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"

	"github.com/certiva/website-backend/database"
	"github.com/certiva/website-backend/model"
	"github.com/certiva/website-backend/restapi/modules/common"
	"github.com/certiva/website-backend/restapi/modules/crud"
)

// Handler serves the page and section routes.
type Handler struct {
	Pages     crud.Resource[model.Page]
	Sections  crud.Resource[model.Section]
	languages common.Languages
}

// New returns a Handler.
func New(pages database.Store[model.Page], sections database.Store[model.Section], env crud.Env, languages common.Languages) *Handler {
	h := &Handler{languages: languages}
	h.Pages = crud.Resource[model.Page]{
		Name:  database.ColPages,
		Store: pages,
		Env:   env,
		Hooks: crud.Hooks[model.Page]{BeforeWrite: h.checkSections},
	}
	h.Sections = crud.Resource[model.Section]{Name: database.ColSections, Store: sections, Env: env}
	return h
}

// ListPages returns every page for the admin editor.
func (h *Handler) ListPages() fiber.Handler {
	return h.Pages.List(func(c *fiber.Ctx) database.ListOptions {
		opts := common.ParseListOptions(c, "slug", false, "slug", "created_at", "updated_at")
		opts.SearchFields = []string{"slug"}
		return opts
	})
}

// RenderPage returns the page named by :slug with its sections resolved for
// the requested language. Guests only see published pages.
func (h *Handler) RenderPage() fiber.Handler {
	return func(c *fiber.Ctx) error {
		filters := map[string]any{"slug": c.Params("slug")}
		if !common.IsAuthenticated(c) {
			filters["published"] = true
		}
		ctx := c.Context()
		page, err := h.Pages.Store.FindOne(ctx, filters)
		if err != nil {
			return common.WriteError(c, err)
		}
		sections, err := h.Resolve(ctx, page)
		if err != nil {
			return err
		}
		return c.JSON(page.Localize(h.languages.Resolve(c), h.languages.Default, sections))
	}
}

// Resolve loads the page's sections in page order. Missing sections are
// skipped with a warning.
func (h *Handler) Resolve(ctx context.Context, page *model.Page) ([]*model.Section, error) {
	return database.PageSections(ctx, h.Sections.Store, page, h.Pages.Env.Logger)
}

// ListSections returns sections, filtered by ?kind= and searched by name.
func (h *Handler) ListSections() fiber.Handler {
	return h.Sections.List(func(c *fiber.Ctx) database.ListOptions {
		opts := common.ParseListOptions(c, "order", false, "order", "name", "updated_at")
		opts.SearchFields = []string{"name"}
		common.AddFilter(&opts, "kind", c.Query("kind"))
		return opts
	})
}

// checkSections derives the slug from the default language title and
// rejects pages that reference unknown sections.
func (h *Handler) checkSections(c *fiber.Ctx, doc, _ *model.Page) error {
	if err := doc.DeriveSlug(h.languages.Default); err != nil {
		return err
	}
	seen := make(map[string]bool, len(doc.Sections))
	for _, key := range doc.Sections {
		if seen[key] {
			return validation.Errors{"sections": fmt.Errorf("section %s is listed twice", key)}
		}
		seen[key] = true
		if _, err := h.Sections.Store.Get(c.Context(), key); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return validation.Errors{"sections": fmt.Errorf("unknown section %s", key)}
			}
			return err
		}
	}
	return nil
}
