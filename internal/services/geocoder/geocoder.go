// Package geocoder resolves office addresses to coordinates through a
// Nominatim-compatible search API.
package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/certiva/website-backend/internal/config"
	"github.com/certiva/website-backend/model"
)

// ErrNoMatch is returned when no address variant produced a result.
var ErrNoMatch = errors.New("geocoder: no match for address")

// Geocoder resolves an address to a point.
type Geocoder interface {
	Geocode(ctx context.Context, addr model.Address) (*model.GeoPoint, error)
}

// Nominatim queries the /search endpoint of a Nominatim server.
type Nominatim struct {
	baseURL   string
	userAgent string
	delay     time.Duration
	client    *http.Client
	logger    *zap.Logger
	sleep     func(ctx context.Context, d time.Duration) error
	now       func() time.Time

	// next is the earliest time the next request may start, shared by
	// every caller of this client.
	mu   sync.Mutex
	next time.Time
}

// New returns a Nominatim geocoder for cfg.
func New(cfg config.GeocoderConfig, logger *zap.Logger) *Nominatim {
	return &Nominatim{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		delay:     cfg.Delay,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    logger,
		sleep:     sleepContext,
		now:       time.Now,
	}
}

// Variants returns the query strings tried for addr, most specific first,
// with blanks and duplicates removed.
func Variants(addr model.Address) []string {
	candidates := []string{
		join(addr.Street, addr.City, addr.State, addr.PostalCode, addr.Country),
		join(addr.City, addr.State, addr.PostalCode, addr.Country),
		join(addr.City, addr.Country),
		join(addr.PostalCode, addr.Country),
	}
	out := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		// a lone country is too vague to place an office
		if c == "" || c == strings.TrimSpace(addr.Country) {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Geocode tries each address variant in turn and returns the first hit.
// Requests are spaced by the configured delay across all calls, concurrent
// ones included.
func (n *Nominatim) Geocode(ctx context.Context, addr model.Address) (*model.GeoPoint, error) {
	for _, q := range Variants(addr) {
		if err := n.wait(ctx); err != nil {
			return nil, err
		}
		point, err := n.search(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			n.logger.Warn("Geocoding request failed", zap.String("query", q), zap.Error(err))
			continue
		}
		if point != nil {
			n.logger.Debug("Geocoded address", zap.String("query", q), zap.Float64("lat", point.Lat), zap.Float64("lng", point.Lng))
			return point, nil
		}
	}
	return nil, ErrNoMatch
}

// wait reserves the next request slot and sleeps until it starts.
func (n *Nominatim) wait(ctx context.Context) error {
	n.mu.Lock()
	now := n.now()
	at := n.next
	if at.Before(now) {
		at = now
	}
	n.next = at.Add(n.delay)
	n.mu.Unlock()
	return n.sleep(ctx, at.Sub(now))
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (n *Nominatim) search(ctx context.Context, q string) (*model.GeoPoint, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("q", q)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode geocoder response: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse lat: %w", err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse lon: %w", err)
	}
	return &model.GeoPoint{Lat: lat, Lng: lng}, nil
}

func join(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
