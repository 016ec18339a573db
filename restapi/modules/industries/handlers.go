// Package industries serves the headline figures shown per industry.
package industries

import (
	"github.com/gofiber/fiber/v2"

	"github.com/certiva/website-backend/database"
	"github.com/certiva/website-backend/model"
	"github.com/certiva/website-backend/restapi/modules/common"
	"github.com/certiva/website-backend/restapi/modules/crud"
)

// Handler serves the industry stat routes.
type Handler struct {
	crud.Resource[model.IndustryStat]
	languages common.Languages
}

// New returns a Handler.
func New(store database.Store[model.IndustryStat], env crud.Env, languages common.Languages) *Handler {
	h := &Handler{languages: languages}
	h.Resource = crud.Resource[model.IndustryStat]{
		Name:  database.ColIndustryStats,
		Store: store,
		Env:   env,
		Hooks: crud.Hooks[model.IndustryStat]{View: h.view},
	}
	return h
}

// List returns stats in display order, optionally for one ?industry=.
func (h *Handler) List() fiber.Handler {
	return h.Resource.List(func(c *fiber.Ctx) database.ListOptions {
		opts := common.ParseListOptions(c, "order", false, "order", "industry", "value")
		if industry := c.Query("industry"); industry != "" {
			common.AddFilter(&opts, "industry", model.IndustryKey(industry))
		}
		return opts
	})
}

// view resolves labels for guests and for any request with ?lang=. Admins
// get the stored translations.
func (h *Handler) view(c *fiber.Ctx, doc *model.IndustryStat) any {
	if common.IsAuthenticated(c) && c.Query("lang") == "" {
		return doc
	}
	return doc.Localize(h.languages.Resolve(c), h.languages.Default)
}
