// Package contact serves office locations and the contact form.
package contact

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/certiva/website-backend/database"
	"github.com/certiva/website-backend/events/modules/content"
	"github.com/certiva/website-backend/internal/services/geocoder"
	"github.com/certiva/website-backend/model"
	"github.com/certiva/website-backend/restapi/modules/common"
	"github.com/certiva/website-backend/restapi/modules/crud"
)

// Offices serves the contact office routes.
type Offices struct {
	crud.Resource[model.ContactOffice]
	geocoder geocoder.Geocoder
	now      func() time.Time
}

// NewOffices returns an Offices handler. A nil geocoder disables geocoding.
func NewOffices(store database.Store[model.ContactOffice], env crud.Env, g geocoder.Geocoder) *Offices {
	h := &Offices{geocoder: g, now: time.Now}
	h.Resource = crud.Resource[model.ContactOffice]{
		Name:  database.ColContactOffices,
		Store: store,
		Env:   env,
		Hooks: crud.Hooks[model.ContactOffice]{BeforeWrite: h.beforeWrite},
	}
	return h
}

// List returns offices ordered for display, filtered by region and office_type.
func (h *Offices) List() fiber.Handler {
	return h.Resource.List(func(c *fiber.Ctx) database.ListOptions {
		opts := common.ParseListOptions(c, "order", false, "order", "name", "region")
		opts.SearchFields = []string{"name", "address.city", "address.country"}
		common.AddFilter(&opts, "region", c.Query("region"))
		common.AddFilter(&opts, "office_type", c.Query("office_type"))
		return opts
	})
}

// Geocode re-resolves the coordinates of the office named by :key.
func (h *Offices) Geocode() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if h.geocoder == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Geocoding is disabled"})
		}
		ctx := c.Context()
		key := c.Params("key")
		office, err := h.Store.Get(ctx, key)
		if err != nil {
			return common.WriteError(c, err)
		}

		point, err := h.geocoder.Geocode(ctx, office.Address)
		if err != nil {
			if errors.Is(err, geocoder.ErrNoMatch) {
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Address could not be geocoded"})
			}
			return err
		}
		h.setLocation(office, point)

		if err := h.Store.Replace(ctx, key, office); err != nil {
			return common.WriteError(c, err)
		}
		h.Env.Changed(ctx, h.Name, key, content.ActionUpdated)
		return c.JSON(office)
	}
}

// beforeWrite geocodes new offices and changed addresses. A failed lookup is
// logged and the write goes ahead without coordinates.
func (h *Offices) beforeWrite(c *fiber.Ctx, doc, prev *model.ContactOffice) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	if doc.Location == nil && prev != nil && prev.Location != nil && prev.Address.Equal(doc.Address) {
		doc.Location = prev.Location
		doc.GeocodedAt = prev.GeocodedAt
	}
	if h.geocoder == nil || !doc.NeedsGeocoding(prev) {
		return nil
	}

	point, err := h.geocoder.Geocode(c.Context(), doc.Address)
	if err != nil {
		h.Env.Logger.Warn("Office geocoding failed", zap.String("office", doc.Name), zap.Error(err))
		// coordinates of the old address would misplace the office
		if prev != nil && !prev.Address.Equal(doc.Address) {
			doc.Location = nil
			doc.GeocodedAt = nil
		}
		return nil
	}
	h.setLocation(doc, point)
	return nil
}

func (h *Offices) setLocation(office *model.ContactOffice, point *model.GeoPoint) {
	at := h.now().UTC()
	office.Location = point
	office.GeocodedAt = &at
}

// Backfill geocodes every office that has no coordinates and returns how
// many were updated. Offices that cannot be geocoded are logged and skipped.
// Each office is re-read before saving so edits made during the lookup
// survive. Only the location fields are written, and offices whose address
// changed meanwhile are skipped.
func Backfill(ctx context.Context, store database.Store[model.ContactOffice], g geocoder.Geocoder, logger *zap.Logger) (int, error) {
	var missing []*model.ContactOffice
	for page := 1; ; page++ {
		res, err := store.List(ctx, database.ListOptions{Page: page, Limit: database.MaxLimit, Sort: "order"})
		if err != nil {
			return 0, err
		}
		for _, office := range res.Items {
			if office.Location == nil {
				missing = append(missing, office)
			}
		}
		if page >= res.Pages {
			break
		}
	}

	updated := 0
	for _, office := range missing {
		point, err := g.Geocode(ctx, office.Address)
		if err != nil {
			if ctx.Err() != nil {
				return updated, ctx.Err()
			}
			logger.Warn("Skipping office", zap.String("key", office.Key), zap.String("name", office.Name), zap.Error(err))
			continue
		}

		current, err := store.Get(ctx, office.Key)
		if errors.Is(err, database.ErrNotFound) {
			logger.Info("Office deleted while geocoding", zap.String("key", office.Key))
			continue
		}
		if err != nil {
			return updated, err
		}
		if current.Location != nil || !current.Address.Equal(office.Address) {
			logger.Info("Office changed while geocoding", zap.String("key", office.Key), zap.String("name", current.Name))
			continue
		}

		at := time.Now().UTC()
		current.Location = point
		current.GeocodedAt = &at
		if err := store.Replace(ctx, current.Key, current); err != nil {
			return updated, err
		}
		logger.Info("Geocoded office", zap.String("key", current.Key), zap.String("name", current.Name))
		updated++
	}
	return updated, nil
}
