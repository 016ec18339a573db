package translate

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/certiva/website-backend/internal/services/translator"
	"github.com/certiva/website-backend/internal/testutil"
)

type translatorFunc func(translator.Request) ([]string, error)

func (f translatorFunc) Translate(_ context.Context, req translator.Request) ([]string, error) {
	return f(req)
}

func TestHandler(t *testing.T) {
	upper := translatorFunc(func(req translator.Request) ([]string, error) {
		switch req.Target {
		case "xx":
			return nil, translator.ErrUnsupportedLanguage
		case "down":
			return nil, errors.New("connection refused")
		}
		out := make([]string, len(req.Texts))
		for i, s := range req.Texts {
			out[i] = strings.ToUpper(s)
		}
		return out, nil
	})
	app := fiber.New()
	app.Post("/api/translate", Handler(upper, zap.NewNop()))

	resp, out := testutil.Do(t, app, testutil.Request{Method: http.MethodPost, Path: "/api/translate", Body: map[string]any{"texts": []string{"hello", "world"}, "target": "de"}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"HELLO", "WORLD"}, out["translations"])

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"missing target", map[string]any{"texts": []string{"a"}}, fiber.StatusBadRequest},
		{"no texts", map[string]any{"target": "de"}, fiber.StatusBadRequest},
		{"too long", map[string]any{"texts": []string{strings.Repeat("a", maxTextLength+1)}, "target": "de"}, fiber.StatusBadRequest},
		{"unsupported language", map[string]any{"texts": []string{"a"}, "target": "xx"}, fiber.StatusBadRequest},
		{"upstream failure", map[string]any{"texts": []string{"a"}, "target": "down"}, fiber.StatusBadGateway},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := testutil.Do(t, app, testutil.Request{Method: http.MethodPost, Path: "/api/translate", Body: tc.body})
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
