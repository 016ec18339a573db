package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/certiva/website-backend/database"
	"github.com/certiva/website-backend/internal/services/otp"
	"github.com/certiva/website-backend/model"
)

type fakeMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *fakeMailer) SendOTP(_ context.Context, to, code string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[to] = code
	return nil
}

func (m *fakeMailer) SendInquiryNotification(context.Context, *model.Inquiry, *model.ContactOffice) error {
	return nil
}

func (m *fakeMailer) SendApplicationNotification(context.Context, *model.JobApplication, *model.Career) error {
	return nil
}

func (m *fakeMailer) code(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

type harness struct {
	app    *fiber.App
	deps   Deps
	mailer *fakeMailer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tokens, err := NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)

	mailer := &fakeMailer{codes: map[string]string{}}
	deps := Deps{
		Admins: database.NewMemoryStore[model.Admin](database.ColAdmins, "email"),
		Tokens: tokens,
		OTP:    otp.New(otp.Options{Cost: bcrypt.MinCost}),
		Mailer: mailer,
		Logger: zap.NewNop(),
	}

	app := fiber.New(fiber.Config{Immutable: true})
	api := app.Group("/api")
	api.Post("/auth/otp/request", deps.RequestOTP())
	api.Post("/auth/otp/verify", deps.VerifyOTP())
	api.Post("/auth/login", deps.Login())
	api.Post("/auth/logout", deps.Logout())

	protected := api.Group("", RequireAuth(tokens, deps.Admins))
	protected.Get("/auth/me", deps.Me())
	protected.Post("/auth/change-password", deps.ChangePassword())
	protected.Post("/auth/refresh", deps.RefreshToken())
	protected.Get("/admins", RequireRole(model.RoleAdmin), deps.ListAdmins())
	protected.Post("/admins", RequireRole(model.RoleAdmin), deps.CreateAdmin())
	protected.Delete("/admins/:key", RequireRole(model.RoleAdmin), deps.DeleteAdmin())

	return &harness{app: app, deps: deps, mailer: mailer}
}

func (h *harness) seed(t *testing.T, email, password, role string) *model.Admin {
	t.Helper()
	admin, err := CreateAccount(context.Background(), h.deps.Admins, CreateAdminRequest{
		Email: email, Name: "Test", Password: password, Role: role,
	})
	require.NoError(t, err)
	return admin
}

func (h *harness) do(t *testing.T, method, path string, body any, token string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func (h *harness) login(t *testing.T, email, password string) string {
	t.Helper()
	resp, body := h.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: email, Password: password}, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	return body["token"].(string)
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tm, err := NewTokenManager("secret", time.Minute)
	require.NoError(t, err)

	admin := &model.Admin{Email: "a@example.com", Role: model.RoleEditor}
	admin.Key = "k1"

	token, err := tm.Generate(admin)
	require.NoError(t, err)

	claims, err := tm.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "k1", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, model.RoleEditor, claims.Role)

	other, err := NewTokenManager("other", time.Minute)
	require.NoError(t, err)
	_, err = other.Validate(token)
	assert.Error(t, err)

	tm.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tm.Validate(token)
	assert.Error(t, err, "expired token must be rejected")
}

func TestNewTokenManager_EmptySecret(t *testing.T) {
	_, err := NewTokenManager("", time.Hour)
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "Owner@Example.com", "correct-horse", model.RoleAdmin)

	t.Run("wrong password", func(t *testing.T) {
		resp, body := h.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "owner@example.com", Password: "nope-nope"}, "")
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Invalid credentials", body["error"])
	})

	t.Run("unknown email", func(t *testing.T) {
		resp, _ := h.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "ghost@example.com", Password: "whatever1"}, "")
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing fields", func(t *testing.T) {
		resp, _ := h.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "owner@example.com"}, "")
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("success sets cookie and records login", func(t *testing.T) {
		resp, body := h.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: " OWNER@example.com ", Password: "correct-horse"}, "")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, body["token"])
		assert.EqualValues(t, 3600, body["expires_in"])

		var cookie *http.Cookie
		for _, ck := range resp.Cookies() {
			if ck.Name == CookieName {
				cookie = ck
			}
		}
		require.NotNil(t, cookie)
		assert.True(t, cookie.HttpOnly)

		admin, err := h.deps.Admins.FindOne(context.Background(), map[string]any{"email": "owner@example.com"})
		require.NoError(t, err)
		assert.NotNil(t, admin.LastLoginAt)
	})
}

func TestLogin_InactiveAccount(t *testing.T) {
	h := newHarness(t)
	admin := h.seed(t, "off@example.com", "password1", model.RoleEditor)
	admin.IsActive = false
	require.NoError(t, h.deps.Admins.Replace(context.Background(), admin.Key, admin))

	resp, body := h.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "off@example.com", Password: "password1"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Account is inactive", body["error"])
}

func TestOTPFlow(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "editor@example.com", "password1", model.RoleEditor)

	resp, body := h.do(t, http.MethodPost, "/api/auth/otp/request", OTPRequest{Email: "Editor@example.com"}, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	msg := body["message"]

	code := h.mailer.code("editor@example.com")
	require.Len(t, code, 6)

	resp, _ = h.do(t, http.MethodPost, "/api/auth/otp/verify", OTPVerifyRequest{Email: "editor@example.com", Code: "000000x"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, body = h.do(t, http.MethodPost, "/api/auth/otp/verify", OTPVerifyRequest{Email: "editor@example.com", Code: code}, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	token := body["token"].(string)

	resp, body = h.do(t, http.MethodGet, "/api/auth/me", nil, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "editor@example.com", body["email"])
	assert.NotContains(t, body, "password_hash")

	// single use
	resp, _ = h.do(t, http.MethodPost, "/api/auth/otp/verify", OTPVerifyRequest{Email: "editor@example.com", Code: code}, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// unknown accounts get the same answer and no code
	resp, body = h.do(t, http.MethodPost, "/api/auth/otp/request", OTPRequest{Email: "nobody@example.com"}, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, msg, body["message"])
	assert.Empty(t, h.mailer.code("nobody@example.com"))
}

func TestOTPVerify_TooManyAttempts(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "editor@example.com", "password1", model.RoleEditor)

	resp, _ := h.do(t, http.MethodPost, "/api/auth/otp/request", OTPRequest{Email: "editor@example.com"}, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	for i := 0; i < 4; i++ {
		resp, _ = h.do(t, http.MethodPost, "/api/auth/otp/verify", OTPVerifyRequest{Email: "editor@example.com", Code: "bad"}, "")
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	}
	resp, _ = h.do(t, http.MethodPost, "/api/auth/otp/verify", OTPVerifyRequest{Email: "editor@example.com", Code: "bad"}, "")
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	// the code is burnt once the budget is spent
	resp, _ = h.do(t, http.MethodPost, "/api/auth/otp/verify", OTPVerifyRequest{Email: "editor@example.com", Code: h.mailer.code("editor@example.com")}, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAuth(t *testing.T) {
	h := newHarness(t)

	resp, _ := h.do(t, http.MethodGet, "/api/auth/me", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = h.do(t, http.MethodGet, "/api/auth/me", nil, "garbage")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	h.seed(t, "c@example.com", "password1", model.RoleEditor)
	token := h.login(t, "c@example.com", "password1")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	cookieResp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, cookieResp.StatusCode)
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "p@example.com", "password1", model.RoleEditor)
	token := h.login(t, "p@example.com", "password1")

	resp, _ := h.do(t, http.MethodPost, "/api/auth/change-password", ChangePasswordRequest{OldPassword: "wrong-one", NewPassword: "password2"}, token)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, body := h.do(t, http.MethodPost, "/api/auth/change-password", ChangePasswordRequest{OldPassword: "password1", NewPassword: "short"}, token)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["fields"], "new_password")

	other := h.login(t, "p@example.com", "password1")

	resp, body = h.do(t, http.MethodPost, "/api/auth/change-password", ChangePasswordRequest{OldPassword: "password1", NewPassword: "password2"}, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	fresh, _ := body["token"].(string)
	require.NotEmpty(t, fresh)

	// older sessions are signed out, the returned one keeps working
	resp, _ = h.do(t, http.MethodGet, "/api/auth/me", nil, other)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp, _ = h.do(t, http.MethodGet, "/api/auth/me", nil, fresh)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	h.login(t, "p@example.com", "password2")
}

func TestRequireAuth_RevokedAccounts(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "owner@example.com", "password1", model.RoleAdmin)
	editor := h.seed(t, "gone@example.com", "password1", model.RoleEditor)
	h.seed(t, "idle@example.com", "password1", model.RoleEditor)

	ownerToken := h.login(t, "owner@example.com", "password1")
	editorToken := h.login(t, "gone@example.com", "password1")
	idleToken := h.login(t, "idle@example.com", "password1")

	resp, _ := h.do(t, http.MethodDelete, "/api/admins/"+editor.Key, nil, ownerToken)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = h.do(t, http.MethodGet, "/api/auth/me", nil, editorToken)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	ctx := context.Background()
	idle, err := h.deps.Admins.FindOne(ctx, map[string]any{"email": "idle@example.com"})
	require.NoError(t, err)
	idle.IsActive = false
	require.NoError(t, h.deps.Admins.Replace(ctx, idle.Key, idle))
	resp, _ = h.do(t, http.MethodGet, "/api/auth/me", nil, idleToken)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAuth_UsesStoredRole(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "boss@example.com", "password1", model.RoleAdmin)
	token := h.login(t, "boss@example.com", "password1")

	ctx := context.Background()
	boss, err := h.deps.Admins.FindOne(ctx, map[string]any{"email": "boss@example.com"})
	require.NoError(t, err)
	boss.Role = model.RoleEditor
	require.NoError(t, h.deps.Admins.Replace(ctx, boss.Key, boss))

	resp, _ := h.do(t, http.MethodGet, "/api/admins", nil, token)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRefreshToken(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "r@example.com", "password1", model.RoleEditor)
	token := h.login(t, "r@example.com", "password1")

	resp, body := h.do(t, http.MethodPost, "/api/auth/refresh", nil, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["token"])
}

func TestAdminManagement(t *testing.T) {
	h := newHarness(t)
	owner := h.seed(t, "owner@example.com", "password1", model.RoleAdmin)
	h.seed(t, "editor@example.com", "password1", model.RoleEditor)

	ownerToken := h.login(t, "owner@example.com", "password1")
	editorToken := h.login(t, "editor@example.com", "password1")

	resp, _ := h.do(t, http.MethodGet, "/api/admins", nil, editorToken)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, body := h.do(t, http.MethodGet, "/api/admins", nil, ownerToken)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, body["total"])
	for _, item := range body["items"].([]any) {
		assert.NotContains(t, item.(map[string]any), "password_hash")
	}

	resp, body = h.do(t, http.MethodPost, "/api/admins", CreateAdminRequest{Email: "new@example.com", Password: "password1"}, ownerToken)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, model.RoleEditor, body["role"])
	newKey := body["_key"].(string)

	resp, _ = h.do(t, http.MethodPost, "/api/admins", CreateAdminRequest{Email: "new@example.com", Password: "password1"}, ownerToken)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, body = h.do(t, http.MethodPost, "/api/admins", CreateAdminRequest{Email: "not-an-email", Password: "password1"}, ownerToken)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["fields"], "email")

	resp, _ = h.do(t, http.MethodDelete, "/api/admins/"+owner.Key, nil, ownerToken)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = h.do(t, http.MethodDelete, "/api/admins/"+newKey, nil, ownerToken)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = h.do(t, http.MethodDelete, "/api/admins/"+newKey, nil, ownerToken)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestBootstrapAdmin(t *testing.T) {
	admins := database.NewMemoryStore[model.Admin](database.ColAdmins, "email")
	ctx := context.Background()

	require.NoError(t, BootstrapAdmin(ctx, admins, "", "", zap.NewNop()))
	n, err := admins.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, BootstrapAdmin(ctx, admins, "Root@Example.com", "bootstrap-pass", zap.NewNop()))
	require.NoError(t, BootstrapAdmin(ctx, admins, "root@example.com", "bootstrap-pass", zap.NewNop()))

	n, err = admins.Count(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	admin, err := admins.FindOne(ctx, map[string]any{"email": "root@example.com"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)
	assert.True(t, CheckPasswordHash("bootstrap-pass", admin.PasswordHash))
	assert.False(t, strings.Contains(admin.PasswordHash, "bootstrap-pass"))

	assert.Error(t, BootstrapAdmin(ctx, admins, "weak@example.com", "short", zap.NewNop()))
}
