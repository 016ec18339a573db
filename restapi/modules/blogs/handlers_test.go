package blogs

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
	store    *database.MemoryStore[model.Blog]
	uploader *testutil.Uploader
	token    string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := database.NewMemoryStore[model.Blog](database.ColBlogs, "slug")
	uploader := testutil.NewUploader()
	env := crud.Env{Cache: cache.NewMemory(), Events: content.NoopPublisher{}, Logger: zap.NewNop()}
	h := New(store, env, uploader, common.Languages{Default: "en", Supported: []string{"en", "de"}})

	tm := testutil.Tokens(t)
	admins := database.NewMemoryStore[model.Admin](database.ColAdmins)
	app := fiber.New(fiber.Config{Immutable: true})
	api := app.Group("/api")
	api.Get("/blogs", h.PublicList())
	api.Get("/blogs/:slug", auth.OptionalAuth(tm, admins), h.GetBySlug())
	admin := api.Group("", auth.RequireAuth(tm, admins))
	admin.Get("/admin/blogs", h.AdminList())
	admin.Post("/blogs", h.Create())
	admin.Put("/blogs/:key", h.Replace())
	admin.Delete("/blogs/:key", h.Delete())

	return &fixture{app: app, store: store, uploader: uploader, token: testutil.Token(t, tm, admins, model.RoleEditor)}
}

func (f *fixture) create(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	resp, out := testutil.Do(t, f.app, testutil.Request{Method: http.MethodPost, Path: "/api/blogs", Body: body, Token: f.token})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, out)
	return out
}

func TestCreate_DerivesSlugAndRendersMarkdown(t *testing.T) {
	f := setup(t)
	out := f.create(t, map[string]any{
		"title":     "Testing Lab Opens in Berlin",
		"content":   "# Hello\n\nWe **opened**.",
		"tags":      []string{"News", "news", " Lab "},
		"published": true,
		"translations": map[string]any{
			"de": map[string]any{"title": "Prüflabor eröffnet", "content": "*Hallo*"},
		},
	})

	assert.Equal(t, "testing-lab-opens-in-berlin", out["slug"])
	assert.Equal(t, "en", out["language"])
	assert.Contains(t, out["content_html"], "<strong>opened</strong>")
	assert.Equal(t, []any{"news", "lab"}, out["tags"])
	assert.NotEmpty(t, out["published_at"])
	de := out["translations"].(map[string]any)["de"].(map[string]any)
	assert.Contains(t, de["content_html"], "<em>Hallo</em>")
}

func TestCreate_Validation(t *testing.T) {
	f := setup(t)

	resp, out := testutil.Do(t, f.app, testutil.Request{Method: http.MethodPost, Path: "/api/blogs", Body: map[string]any{"title": "No body"}, Token: f.token})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out["fields"], "content")

	resp, _ = testutil.Do(t, f.app, testutil.Request{Method: http.MethodPost, Path: "/api/blogs", Body: map[string]any{"title": "x", "content": "y"}})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	f.create(t, map[string]any{"title": "Same", "content": "a"})
	resp, _ = testutil.Do(t, f.app, testutil.Request{Method: http.MethodPost, Path: "/api/blogs", Body: map[string]any{"title": "Same", "content": "b"}, Token: f.token})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestPublicList_HidesDraftsAndFilters(t *testing.T) {
	f := setup(t)
	f.create(t, map[string]any{"title": "Draft", "content": "x"})
	f.create(t, map[string]any{"title": "Audit Guide", "content": "x", "published": true, "category": "guides", "tags": []string{"audit"}})
	f.create(t, map[string]any{"title": "Company News", "content": "x", "published": true, "category": "news", "excerpt": "An audit story"})

	resp, out := testutil.Do(t, f.app, testutil.Request{Method: http.MethodGet, Path: "/api/blogs"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, out["total"])

	_, out = testutil.Do(t, f.app, testutil.Request{Method: http.MethodGet, Path: "/api/blogs?category=guides"})
	items := testutil.Items(t, out)
	require.Len(t, items, 1)
	assert.Equal(t, "audit-guide", items[0]["slug"])

	_, out = testutil.Do(t, f.app, testutil.Request{Method: http.MethodGet, Path: "/api/blogs?tag=audit"})
	assert.Len(t, testutil.Items(t, out), 1)

	_, out = testutil.Do(t, f.app, testutil.Request{Method: http.MethodGet, Path: "/api/blogs?q=AUDIT"})
	assert.Len(t, testutil.Items(t, out), 2)

	_, out = testutil.Do(t, f.app, testutil.Request{Method: http.MethodGet, Path: "/api/admin/blogs", Token: f.token})
	assert.EqualValues(t, 3, out["total"])

	_, out = testutil.Do(t, f.app, testutil.Request{Method: http.MethodGet, Path: "/api/admin/blogs?published=false", Token: f.token})
	assert.EqualValues(t, 1, out["total"])
}

func TestGetBySlug(t *testing.T) {
	f := setup(t)
	f.create(t, map[string]any{"title": "Draft", "content": "x"})
	f.create(t, map[string]any{
		"title": "Live", "content": "hello", "published": true,
		"translations": map[string]any{"de": map[string]any{"title": "Live DE", "content": "hallo"}},
	})

	resp, _ := testutil.Do(t, f.app, testutil.Request{Method: http.MethodGet, Path: "/api/blogs/draft"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = testutil.Do(t, f.app, testutil.Request{Method: http.MethodGet, Path: "/api/blogs/draft", Token: f.token})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	_, out := testutil.Do(t, f.app, testutil.Request{Method: http.MethodGet, Path: "/api/blogs/live?lang=de"})
	assert.Equal(t, "Live DE", out["title"])
	assert.Equal(t, "de", out["language"])

	_, out = testutil.Do(t, f.app, testutil.Request{Method: http.MethodGet, Path: "/api/blogs/live?lang=fr"})
	assert.Equal(t, "Live", out["title"])
}

func TestReplace_KeepsPublishedAt(t *testing.T) {
	f := setup(t)
	out := f.create(t, map[string]any{"title": "Post", "content": "x", "published": true})
	key := out["_key"].(string)
	publishedAt := out["published_at"]

	resp, out := testutil.Do(t, f.app, testutil.Request{Method: http.MethodPut, Path: "/api/blogs/" + key, Token: f.token,
		Body: map[string]any{"title": "Post", "content": "edited", "published": true}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, out)
	assert.Equal(t, publishedAt, out["published_at"])

	stored, err := f.store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "edited", stored.Content)
}

func TestMultipart_UploadsAndCleansUpMedia(t *testing.T) {
	f := setup(t)

	form := testutil.NewForm().
		JSON(t, "data", map[string]any{"title": "With Cover", "content": "x"}).
		File(t, "cover", "cover.png", "image/png", []byte("png-bytes")).
		File(t, "attachments", "report.pdf", "application/pdf", []byte("%PDF-1.4")).
		Close(t)
	resp, out := testutil.Do(t, f.app, testutil.Request{Method: http.MethodPost, Path: "/api/blogs", Body: form, Token: f.token})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, out)
	require.NotNil(t, out["cover_image"])
	assert.Len(t, out["attachments"], 1)
	assert.Equal(t, 2, f.uploader.Count())
	key := out["_key"].(string)
	cover := out["cover_image"].(map[string]any)["public_id"].(string)

	// a new cover replaces the old one, the attachment is kept
	form = testutil.NewForm().
		JSON(t, "data", map[string]any{"title": "With Cover", "content": "x", "attachments": out["attachments"]}).
		File(t, "cover", "new.jpg", "image/jpeg", []byte("jpg-bytes")).
		Close(t)
	resp, out = testutil.Do(t, f.app, testutil.Request{Method: http.MethodPut, Path: "/api/blogs/" + key, Body: form, Token: f.token})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, out)
	assert.Contains(t, f.uploader.Deleted, cover)
	assert.Equal(t, 2, f.uploader.Count())

	resp, _ = testutil.Do(t, f.app, testutil.Request{Method: http.MethodDelete, Path: "/api/blogs/" + key, Token: f.token})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Zero(t, f.uploader.Count())
}

func TestMultipart_RejectsBadFiles(t *testing.T) {
	f := setup(t)

	form := testutil.NewForm().
		JSON(t, "data", map[string]any{"title": "Bad", "content": "x"}).
		File(t, "cover", "cover.pdf", "application/pdf", []byte("%PDF")).
		Close(t)
	resp, _ := testutil.Do(t, f.app, testutil.Request{Method: http.MethodPost, Path: "/api/blogs", Body: form, Token: f.token})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	form = testutil.NewForm().
		JSON(t, "data", map[string]any{"title": "Bad", "content": "x"}).
		File(t, "attachments", "tool.exe", "application/octet-stream", []byte("MZ")).
		Close(t)
	resp, _ = testutil.Do(t, f.app, testutil.Request{Method: http.MethodPost, Path: "/api/blogs", Body: form, Token: f.token})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	form = testutil.NewForm().
		JSON(t, "data", map[string]any{"title": "No content"}).
		File(t, "cover", "cover.png", "image/png", []byte("png")).
		Close(t)
	resp, _ = testutil.Do(t, f.app, testutil.Request{Method: http.MethodPost, Path: "/api/blogs", Body: form, Token: f.token})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, f.uploader.Count(), "invalid posts must not leave uploads behind")
}

func TestReplace_ConflictKeepsStoredMedia(t *testing.T) {
	f := setup(t)
	f.create(t, map[string]any{"title": "Taken", "content": "x"})

	form := testutil.NewForm().
		JSON(t, "data", map[string]any{"title": "Mine", "content": "x"}).
		File(t, "cover", "cover.png", "image/png", []byte("png-bytes")).
		Close(t)
	resp, out := testutil.Do(t, f.app, testutil.Request{Method: http.MethodPost, Path: "/api/blogs", Body: form, Token: f.token})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, out)
	key := out["_key"].(string)
	cover := out["cover_image"]

	// JSON edit taking another post's slug
	resp, _ = testutil.Do(t, f.app, testutil.Request{Method: http.MethodPut, Path: "/api/blogs/" + key, Token: f.token,
		Body: map[string]any{"title": "Mine", "slug": "taken", "content": "x", "cover_image": cover}})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Empty(t, f.uploader.Deleted)
	assert.Equal(t, 1, f.uploader.Count())

	// multipart edit: only the upload of the rejected request is removed
	form = testutil.NewForm().
		JSON(t, "data", map[string]any{"title": "Mine", "slug": "taken", "content": "x"}).
		File(t, "cover", "new.jpg", "image/jpeg", []byte("jpg-bytes")).
		Close(t)
	resp, _ = testutil.Do(t, f.app, testutil.Request{Method: http.MethodPut, Path: "/api/blogs/" + key, Body: form, Token: f.token})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	require.Len(t, f.uploader.Deleted, 1)
	assert.NotEqual(t, cover.(map[string]any)["public_id"], f.uploader.Deleted[0])
	assert.Equal(t, 1, f.uploader.Count())

	stored, err := f.store.Get(context.Background(), key)
	require.NoError(t, err)
	require.NotNil(t, stored.CoverImage)
	assert.Equal(t, cover.(map[string]any)["public_id"], stored.CoverImage.PublicID)
}
