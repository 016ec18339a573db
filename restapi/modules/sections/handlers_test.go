package sections

import (
	"context"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/certiva/website-backend/database"
	"github.com/certiva/website-backend/events/modules/content"
	"github.com/certiva/website-backend/internal/cache"
	"github.com/certiva/website-backend/internal/testutil"
	"github.com/certiva/website-backend/model"
	"github.com/certiva/website-backend/restapi/modules/auth"
	"github.com/certiva/website-backend/restapi/modules/common"
	"github.com/certiva/website-backend/restapi/modules/crud"
)

type fixture struct {
	app      *fiber.App
	sections *database.MemoryStore[model.Section]
	token    string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	return setupWithLanguages(t, common.Languages{Default: "en", Supported: []string{"en", "de"}})
}

func setupWithLanguages(t *testing.T, langs common.Languages) *fixture {
	t.Helper()
	pages := database.NewMemoryStore[model.Page](database.ColPages, "slug")
	sections := database.NewMemoryStore[model.Section](database.ColSections, "name")
	env := crud.Env{Cache: cache.NewMemory(), Events: content.NoopPublisher{}, Logger: zap.NewNop()}
	h := New(pages, sections, env, langs)

	tm := testutil.Tokens(t)
	admins := database.NewMemoryStore[model.Admin](database.ColAdmins)
	app := fiber.New(fiber.Config{Immutable: true})
	api := app.Group("/api", auth.OptionalAuth(tm, admins))
	api.Get("/pages/:slug", h.RenderPage())
	admin := api.Group("", auth.RequireAuth(tm, admins))
	admin.Get("/pages", h.ListPages())
	admin.Post("/pages", h.Pages.Create())
	admin.Put("/pages/:key", h.Pages.Replace())
	admin.Delete("/pages/:key", h.Pages.Delete())
	admin.Get("/sections", h.ListSections())
	admin.Get("/sections/:key", h.Sections.Get())
	admin.Post("/sections", h.Sections.Create())
	admin.Put("/sections/:key", h.Sections.Replace())
	admin.Delete("/sections/:key", h.Sections.Delete())

	return &fixture{app: app, sections: sections, token: testutil.Token(t, tm, admins, model.RoleEditor)}
}

func (f *fixture) post(t *testing.T, path string, body map[string]any) map[string]any {
	t.Helper()
	resp, out := testutil.Do(t, f.app, testutil.Request{Method: http.MethodPost, Path: path, Body: body, Token: f.token})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, out)
	return out
}

func TestRenderPage(t *testing.T) {
	f := setup(t)
	hero := f.post(t, "/api/sections", map[string]any{
		"name": "Home Hero", "kind": "hero",
		"content": map[string]any{
			"en": map[string]any{"heading": "Trusted testing"},
			"de": map[string]any{"heading": "Geprüfte Qualität"},
		},
	})
	assert.Equal(t, "home-hero", hero["name"])
	cta := f.post(t, "/api/sections", map[string]any{
		"name": "cta", "kind": "cta",
		"content": map[string]any{"en": map[string]any{"label": "Contact us"}},
	})

	f.post(t, "/api/pages", map[string]any{
		"title":     map[string]any{"en": "Home", "de": "Startseite"},
		"sections":  []string{cta["_key"].(string), hero["_key"].(string)},
		"published": true,
	})
	f.post(t, "/api/pages", map[string]any{"title": map[string]any{"en": "Draft Page"}})

	resp, out := testutil.Do(t, f.app, testutil.Request{Method: http.MethodGet, Path: "/api/pages/home?lang=de"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, out)
	assert.Equal(t, "Startseite", out["title"])
	assert.Equal(t, "de", out["language"])
	secs := out["sections"].([]any)
	require.Len(t, secs, 2)
	first := secs[0].(map[string]any)
	second := secs[1].(map[string]any)
	assert.Equal(t, "cta", first["kind"])
	assert.Equal(t, "Contact us", first["fields"].(map[string]any)["label"], "falls back to the default language")
	assert.Equal(t, "Geprüfte Qualität", second["fields"].(map[string]any)["heading"])

	resp, _ = testutil.Do(t, f.app, testutil.Request{Method: http.MethodGet, Path: "/api/pages/draft-page"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = testutil.Do(t, f.app, testutil.Request{Method: http.MethodGet, Path: "/api/pages/draft-page", Token: f.token})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// a deleted section is skipped on render
	require.NoError(t, f.sections.Delete(context.Background(), cta["_key"].(string)))
	_, out = testutil.Do(t, f.app, testutil.Request{Method: http.MethodGet, Path: "/api/pages/home"})
	assert.Len(t, out["sections"], 1)
}

func TestPageWrite_ChecksSections(t *testing.T) {
	f := setup(t)
	resp, out := testutil.Do(t, f.app, testutil.Request{Method: http.MethodPost, Path: "/api/pages", Token: f.token, Body: map[string]any{
		"title": map[string]any{"en": "About"}, "sections": []string{"ghost"},
	}})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out["fields"], "sections")

	resp, out = testutil.Do(t, f.app, testutil.Request{Method: http.MethodPost, Path: "/api/pages", Token: f.token, Body: map[string]any{
		"title": map[string]any{},
	}})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out["fields"], "title")
}

func TestPageSlugUsesDefaultLanguage(t *testing.T) {
	f := setupWithLanguages(t, common.Languages{Default: "de", Supported: []string{"de", "en"}})
	out := f.post(t, "/api/pages", map[string]any{
		"title":     map[string]any{"en": "Services", "de": "Leistungen"},
		"published": true,
	})
	assert.Equal(t, "leistungen", out["slug"])

	resp, _ := testutil.Do(t, f.app, testutil.Request{Method: http.MethodGet, Path: "/api/pages/leistungen"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// an explicit slug is kept
	out = f.post(t, "/api/pages", map[string]any{"slug": "Our Team", "title": map[string]any{"de": "Team"}})
	assert.Equal(t, "our-team", out["slug"])
}

func TestSections_CRUD(t *testing.T) {
	f := setup(t)
	out := f.post(t, "/api/sections", map[string]any{"name": "faq", "kind": "faq", "content": map[string]any{"en": map[string]any{"q": "a"}}})
	key := out["_key"].(string)

	resp, _ := testutil.Do(t, f.app, testutil.Request{Method: http.MethodPost, Path: "/api/sections", Token: f.token,
		Body: map[string]any{"name": "FAQ", "kind": "faq", "content": map[string]any{"en": map[string]any{}}}})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, out = testutil.Do(t, f.app, testutil.Request{Method: http.MethodPost, Path: "/api/sections", Token: f.token,
		Body: map[string]any{"name": "odd", "kind": "marquee", "content": map[string]any{"en": map[string]any{}}}})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out["fields"], "kind")

	_, out = testutil.Do(t, f.app, testutil.Request{Method: http.MethodGet, Path: "/api/sections?kind=faq", Token: f.token})
	assert.EqualValues(t, 1, out["total"])

	resp, out = testutil.Do(t, f.app, testutil.Request{Method: http.MethodPut, Path: "/api/sections/" + key, Token: f.token,
		Body: map[string]any{"name": "faq", "kind": "text", "content": map[string]any{"en": map[string]any{"body": "x"}}}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, out)
	assert.Equal(t, "text", out["kind"])

	resp, _ = testutil.Do(t, f.app, testutil.Request{Method: http.MethodGet, Path: "/api/sections/" + key})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
