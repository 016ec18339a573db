// Package crud provides generic Fiber handlers over a document store. Every
// successful write invalidates cached responses and publishes a content event.
package crud

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/certiva/website-backend/database"
	"github.com/certiva/website-backend/events/modules/content"
	"github.com/certiva/website-backend/internal/cache"
	"github.com/certiva/website-backend/model"
	"github.com/certiva/website-backend/restapi/modules/common"
)

// Env carries the dependencies shared by every resource.
type Env struct {
	Cache  cache.Cache
	Events content.Publisher
	Logger *zap.Logger
}

// Changed invalidates the collection's cached responses and announces the
// change. Failures are logged and never returned.
func (e Env) Changed(ctx context.Context, collection, key, action string) {
	if e.Cache != nil {
		if err := cache.InvalidateCollection(ctx, e.Cache, collection); err != nil {
			e.Logger.Warn("Cache invalidation failed", zap.String("collection", collection), zap.Error(err))
		}
	}
	if e.Events != nil {
		pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.Events.PublishContentChanged(pubCtx, collection, key, action); err != nil {
			e.Logger.Warn("Content event not published", zap.String("collection", collection), zap.String("key", key), zap.Error(err))
		}
	}
}

// Hooks customize a Resource.
type Hooks[T any] struct {
	// Decode reads the request body. The default parses JSON into a new T.
	Decode func(c *fiber.Ctx) (*T, error)
	// BeforeWrite runs before Create and Replace. prev is nil on create.
	BeforeWrite func(c *fiber.Ctx, doc, prev *T) error
	// Rollback runs when the store rejects a write that BeforeWrite accepted.
	// It must only undo side effects of the current request.
	Rollback func(c *fiber.Ctx, doc *T)
	// AfterWrite runs once Create or Replace succeeded. prev is nil on create.
	AfterWrite func(ctx context.Context, doc, prev *T)
	// AfterDelete runs once the document is gone.
	AfterDelete func(ctx context.Context, doc *T)
	// View converts a document for the response. The default returns it as is.
	View func(c *fiber.Ctx, doc *T) any
}

// Resource exposes one collection over HTTP.
type Resource[T any] struct {
	Name  string
	Store database.Store[T]
	Env   Env
	Hooks Hooks[T]
}

// DecodeJSON parses the JSON body into a new T.
func DecodeJSON[T any](c *fiber.Ctx) (*T, error) {
	doc := new(T)
	if err := c.BodyParser(doc); err != nil {
		return nil, common.ErrInvalidBody
	}
	return doc, nil
}

func (r Resource[T]) decode(c *fiber.Ctx) (*T, error) {
	if r.Hooks.Decode != nil {
		return r.Hooks.Decode(c)
	}
	return DecodeJSON[T](c)
}

func (r Resource[T]) view(c *fiber.Ctx, doc *T) any {
	if r.Hooks.View != nil {
		return r.Hooks.View(c, doc)
	}
	return doc
}

// ListResponse is the JSON shape of every list endpoint.
type ListResponse struct {
	Items any   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

// Respond writes res with every item passed through the view hook.
func (r Resource[T]) Respond(c *fiber.Ctx, res database.ListResult[T]) error {
	items := make([]any, len(res.Items))
	for i, doc := range res.Items {
		items[i] = r.view(c, doc)
	}
	return c.JSON(ListResponse{Items: items, Total: res.Total, Page: res.Page, Limit: res.Limit, Pages: res.Pages})
}

// List returns a handler listing documents with options built from the request.
func (r Resource[T]) List(build func(c *fiber.Ctx) database.ListOptions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := r.Store.List(c.Context(), build(c))
		if err != nil {
			return common.WriteError(c, err)
		}
		return r.Respond(c, res)
	}
}

// Get returns a handler reading the document named by the :key param.
func (r Resource[T]) Get() fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := r.Store.Get(c.Context(), c.Params("key"))
		if err != nil {
			return common.WriteError(c, err)
		}
		return c.JSON(r.view(c, doc))
	}
}

// FindOne returns a handler reading the first document matching the filters
// built from the request.
func (r Resource[T]) FindOne(filters func(c *fiber.Ctx) map[string]any) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := r.Store.FindOne(c.Context(), filters(c))
		if err != nil {
			return common.WriteError(c, err)
		}
		return c.JSON(r.view(c, doc))
	}
}

// Create returns a handler inserting the decoded body.
func (r Resource[T]) Create() fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := r.decode(c)
		if err != nil {
			return common.WriteError(c, err)
		}
		resetIdentity(doc)
		if r.Hooks.BeforeWrite != nil {
			if err := r.Hooks.BeforeWrite(c, doc, nil); err != nil {
				return common.WriteError(c, err)
			}
		}
		if err := r.Store.Create(c.Context(), doc); err != nil {
			r.rollback(c, doc)
			return common.WriteError(c, err)
		}
		if r.Hooks.AfterWrite != nil {
			r.Hooks.AfterWrite(c.Context(), doc, nil)
		}
		r.Env.Changed(c.Context(), r.Name, keyOf(doc), content.ActionCreated)
		return c.Status(fiber.StatusCreated).JSON(r.view(c, doc))
	}
}

// Replace returns a handler overwriting the document named by :key.
func (r Resource[T]) Replace() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Params("key")
		prev, err := r.Store.Get(c.Context(), key)
		if err != nil {
			return common.WriteError(c, err)
		}
		doc, err := r.decode(c)
		if err != nil {
			return common.WriteError(c, err)
		}
		if r.Hooks.BeforeWrite != nil {
			if err := r.Hooks.BeforeWrite(c, doc, prev); err != nil {
				return common.WriteError(c, err)
			}
		}
		if err := r.Store.Replace(c.Context(), key, doc); err != nil {
			r.rollback(c, doc)
			return common.WriteError(c, err)
		}
		if r.Hooks.AfterWrite != nil {
			r.Hooks.AfterWrite(c.Context(), doc, prev)
		}
		r.Env.Changed(c.Context(), r.Name, key, content.ActionUpdated)
		return c.JSON(r.view(c, doc))
	}
}

// Delete returns a handler removing the document named by :key.
func (r Resource[T]) Delete() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Params("key")
		doc, err := r.Store.Get(c.Context(), key)
		if err != nil {
			return common.WriteError(c, err)
		}
		if err := r.Store.Delete(c.Context(), key); err != nil {
			return common.WriteError(c, err)
		}
		if r.Hooks.AfterDelete != nil {
			r.Hooks.AfterDelete(c.Context(), doc)
		}
		r.Env.Changed(c.Context(), r.Name, key, content.ActionDeleted)
		return c.JSON(fiber.Map{"message": "Deleted", "_key": key})
	}
}

func (r Resource[T]) rollback(c *fiber.Ctx, doc *T) {
	if r.Hooks.Rollback != nil {
		r.Hooks.Rollback(c, doc)
	}
}

// resetIdentity clears client supplied keys and timestamps on create.
func resetIdentity[T any](doc *T) {
	if d, ok := any(doc).(model.Document); ok {
		d.SetKey("")
		d.SetCreatedAt(time.Time{})
	}
}

func keyOf[T any](doc *T) string {
	if d, ok := any(doc).(model.Document); ok {
		return d.GetKey()
	}
	return ""
}
