package geocoder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/certiva/website-backend/internal/config"
	"github.com/certiva/website-backend/model"
)

func TestVariants(t *testing.T) {
	addr := model.Address{Street: "1 Main St", City: "Hamburg", PostalCode: "20095", Country: "Germany"}
	assert.Equal(t, []string{
		"1 Main St, Hamburg, 20095, Germany",
		"Hamburg, 20095, Germany",
		"Hamburg, Germany",
		"20095, Germany",
	}, Variants(addr))

	// without street and postal code the variants collapse
	assert.Equal(t, []string{"Dubai, UAE"}, Variants(model.Address{City: "Dubai", Country: "UAE"}))
	assert.Empty(t, Variants(model.Address{Country: "UAE"}))
}

type recorder struct {
	mu      sync.Mutex
	queries []string
	agents  []string
}

func newServer(t *testing.T, rec *recorder, respond func(q string) (int, string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		q := r.URL.Query().Get("q")
		rec.mu.Lock()
		rec.queries = append(rec.queries, q)
		rec.agents = append(rec.agents, r.UserAgent())
		rec.mu.Unlock()
		status, body := respond(q)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newTestGeocoder returns a geocoder on a fake clock that only moves when
// the geocoder sleeps.
func newTestGeocoder(url string) (*Nominatim, *[]time.Duration) {
	var slept []time.Duration
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g := New(config.GeocoderConfig{BaseURL: url + "/", UserAgent: "test-agent/1.0", Delay: time.Second, Timeout: 5 * time.Second}, zap.NewNop())
	g.now = func() time.Time { return clock }
	g.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		clock = clock.Add(d)
		return nil
	}
	return g, &slept
}

func TestGeocode_FallsBackThroughVariants(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec, func(q string) (int, string) {
		switch q {
		case "1 Main St, Hamburg, 20095, Germany":
			return http.StatusOK, `[]`
		case "Hamburg, 20095, Germany":
			return http.StatusInternalServerError, `oops`
		case "Hamburg, Germany":
			return http.StatusOK, `[{"lat":"53.5511","lon":"9.9937"}]`
		}
		t.Errorf("unexpected query %q", q)
		return http.StatusOK, `[]`
	})

	g, slept := newTestGeocoder(srv.URL)
	point, err := g.Geocode(context.Background(), model.Address{Street: "1 Main St", City: "Hamburg", PostalCode: "20095", Country: "Germany"})
	require.NoError(t, err)
	assert.InDelta(t, 53.5511, point.Lat, 1e-9)
	assert.InDelta(t, 9.9937, point.Lng, 1e-9)

	assert.Len(t, rec.queries, 3)
	assert.Equal(t, []time.Duration{0, time.Second, time.Second}, *slept)
	for _, ua := range rec.agents {
		assert.Equal(t, "test-agent/1.0", ua)
	}
}

func TestGeocode_NoMatch(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec, func(string) (int, string) { return http.StatusOK, `[]` })

	g, _ := newTestGeocoder(srv.URL)
	_, err := g.Geocode(context.Background(), model.Address{City: "Atlantis", PostalCode: "00000", Country: "Nowhere"})
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Len(t, rec.queries, 3)
}

func TestGeocode_ContextCancelled(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec, func(string) (int, string) { return http.StatusOK, `[]` })

	g := New(config.GeocoderConfig{BaseURL: srv.URL, Delay: time.Hour, Timeout: time.Second}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Geocode(ctx, model.Address{City: "Hamburg", PostalCode: "20095", Country: "Germany"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGeocode_SpacesSuccessiveCalls(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec, func(string) (int, string) { return http.StatusOK, `[{"lat":"25.2","lon":"55.3"}]` })

	g, slept := newTestGeocoder(srv.URL)
	for i := 0; i < 3; i++ {
		_, err := g.Geocode(context.Background(), model.Address{City: "Dubai", Country: "UAE"})
		require.NoError(t, err)
	}
	assert.Equal(t, []time.Duration{0, time.Second, time.Second}, *slept)
}

func TestGeocode_SpacesConcurrentCalls(t *testing.T) {
	const delay = 40 * time.Millisecond
	var (
		mu       sync.Mutex
		arrivals []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		arrivals = append(arrivals, time.Now())
		mu.Unlock()
		_, _ = w.Write([]byte(`[{"lat":"1","lon":"2"}]`))
	}))
	t.Cleanup(srv.Close)

	g := New(config.GeocoderConfig{BaseURL: srv.URL, Delay: delay, Timeout: 5 * time.Second}, zap.NewNop())
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Geocode(context.Background(), model.Address{City: "Dubai", Country: "UAE"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Len(t, arrivals, 4)
	sort.Slice(arrivals, func(i, j int) bool { return arrivals[i].Before(arrivals[j]) })
	// slack covers request latency jitter
	for i := 1; i < len(arrivals); i++ {
		assert.GreaterOrEqual(t, arrivals[i].Sub(arrivals[i-1]), delay/2)
	}
	assert.GreaterOrEqual(t, arrivals[3].Sub(arrivals[0]), 3*delay-10*time.Millisecond)
}
