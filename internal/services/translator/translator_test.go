package translator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/certiva/website-backend/internal/cache"
	"github.com/certiva/website-backend/internal/config"
)

func newUpstream(t *testing.T, calls *int32, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/translate", r.URL.Path)
		var req apiRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "secret", req.APIKey)

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(apiResponse{Error: "quota exceeded"})
			return
		}
		out := make([]string, len(req.Q))
		for i, q := range req.Q {
			out[i] = strings.ToUpper(q) + "@" + req.Target
		}
		_ = json.NewEncoder(w).Encode(apiResponse{TranslatedText: out})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newService(url string, c cache.Cache) *Service {
	return New(config.TranslatorConfig{BaseURL: url, APIKey: "secret", Timeout: 5 * time.Second}, c, time.Hour, []string{"en", "de", "ar"}, zap.NewNop())
}

func TestTranslate_CachesResults(t *testing.T) {
	var calls int32
	srv := newUpstream(t, &calls, http.StatusOK)
	c := cache.NewMemory()
	svc := newService(srv.URL, c)
	ctx := context.Background()

	out, err := svc.Translate(ctx, Request{Texts: []string{"hello", "", "world"}, Source: "en", Target: "de"})
	require.NoError(t, err)
	assert.Equal(t, []string{"HELLO@de", "", "WORLD@de"}, out)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	out, err = svc.Translate(ctx, Request{Texts: []string{"world", "new"}, Source: "en", Target: "de"})
	require.NoError(t, err)
	assert.Equal(t, []string{"WORLD@de", "NEW@de"}, out)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	cached, err := c.Get(ctx, CacheKey("en", "de", "new"))
	require.NoError(t, err)
	assert.Equal(t, "NEW@de", string(cached))

	_, err = svc.Translate(ctx, Request{Texts: []string{"hello", "world"}, Source: "en", Target: "de"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "fully cached batch does not hit the API")
}

func TestTranslate_UnsupportedLanguage(t *testing.T) {
	svc := newService("http://unused", cache.NewMemory())
	_, err := svc.Translate(context.Background(), Request{Texts: []string{"x"}, Target: "xx"})
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)

	_, err = svc.Translate(context.Background(), Request{Texts: []string{"x"}, Source: "zz", Target: "de"})
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestTranslate_SameLanguageIsIdentity(t *testing.T) {
	svc := newService("http://unused", cache.NewMemory())
	out, err := svc.Translate(context.Background(), Request{Texts: []string{"hi"}, Source: "de", Target: "de"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hi"}, out)
}

func TestTranslate_UpstreamError(t *testing.T) {
	var calls int32
	srv := newUpstream(t, &calls, http.StatusTooManyRequests)
	svc := newService(srv.URL, cache.NewMemory())

	_, err := svc.Translate(context.Background(), Request{Texts: []string{"hello"}, Target: "ar"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestCacheKey(t *testing.T) {
	k := CacheKey("en", "de", "hello")
	assert.True(t, strings.HasPrefix(k, "translate:de:"))
	assert.Len(t, strings.TrimPrefix(k, "translate:de:"), 64)
	assert.NotEqual(t, k, CacheKey("fr", "de", "hello"))
}
