package common

import (
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/certiva/website-backend/internal/cache"
)

// listParams are read by ParseListOptions on every list route.
var listParams = []string{"page", "limit", "sort", "order", "q"}

// CacheResponses serves public GET responses of collection from c. Requests
// with a session bypass the cache because they may see unpublished content.
// Only the list parameters and params take part in the key, so unknown query
// strings cannot fill the cache with copies of one response.
func CacheResponses(c cache.Cache, collection string, ttl time.Duration, langs Languages, logger *zap.Logger, params ...string) fiber.Handler {
	prefix := cache.ContentPrefix(collection)
	allowed := append(append([]string{}, listParams...), params...)
	return func(ctx *fiber.Ctx) error {
		if ctx.Method() != fiber.MethodGet || IsAuthenticated(ctx) || ttl <= 0 {
			return ctx.Next()
		}
		key := prefix + CacheKey(ctx, langs, allowed)

		if body, err := c.Get(ctx.Context(), key); err == nil {
			ctx.Set("X-Cache", "HIT")
			ctx.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
			return ctx.Send(body)
		}

		if err := ctx.Next(); err != nil {
			return err
		}
		if ctx.Response().StatusCode() != fiber.StatusOK {
			return nil
		}
		ctx.Set("X-Cache", "MISS")
		body := append([]byte(nil), ctx.Response().Body()...)
		if err := c.Set(ctx.Context(), key, body, ttl); err != nil {
			logger.Warn("Failed to cache response", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
}

// CacheKey identifies a public response: the path, the allowed non-empty
// query parameters in sorted order and the resolved language. An explicit
// ?lang is kept apart from Accept-Language because some handlers only
// localize when it is given.
func CacheKey(ctx *fiber.Ctx, langs Languages, allowed []string) string {
	args := ctx.Request().URI().QueryArgs()
	q := url.Values{}
	for _, name := range allowed {
		if q.Has(name) {
			continue
		}
		for _, v := range args.PeekMulti(name) {
			if len(v) > 0 {
				q.Add(name, string(v))
			}
		}
	}

	source := "accept"
	if ctx.Query("lang") != "" {
		source = "lang"
	}
	return ctx.Path() + "?" + q.Encode() + "|" + source + "=" + langs.Resolve(ctx)
}
