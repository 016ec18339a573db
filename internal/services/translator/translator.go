// Package translator translates site copy through a LibreTranslate-compatible
// API and caches the results.
package translator

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/certiva/website-backend/internal/cache"
	"github.com/certiva/website-backend/internal/config"
)

// ErrUnsupportedLanguage is returned for a language outside the site list.
var ErrUnsupportedLanguage = errors.New("translator: unsupported language")

// Request is a batch of texts to translate.
type Request struct {
	Texts  []string `json:"texts"`
	Source string   `json:"source,omitempty"`
	Target string   `json:"target"`
}

// Service translates texts, serving repeats from the cache.
type Service struct {
	baseURL   string
	apiKey    string
	client    *http.Client
	cache     cache.Cache
	ttl       time.Duration
	languages map[string]struct{}
	logger    *zap.Logger
}

// New returns a Service. languages is the set of accepted language codes.
func New(cfg config.TranslatorConfig, c cache.Cache, ttl time.Duration, languages []string, logger *zap.Logger) *Service {
	langs := make(map[string]struct{}, len(languages))
	for _, l := range languages {
		langs[l] = struct{}{}
	}
	return &Service{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		client:    &http.Client{Timeout: cfg.Timeout},
		cache:     c,
		ttl:       ttl,
		languages: langs,
		logger:    logger,
	}
}

// CacheKey is the cache key for one translated text.
func CacheKey(source, target, text string) string {
	sum := sha256.Sum256([]byte(source + "|" + text))
	return "translate:" + target + ":" + hex.EncodeToString(sum[:])
}

// Translate returns one translation per input text, in order.
func (s *Service) Translate(ctx context.Context, req Request) ([]string, error) {
	if _, ok := s.languages[req.Target]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, req.Target)
	}
	source := req.Source
	if source == "" {
		source = "auto"
	} else if _, ok := s.languages[source]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, source)
	}

	out := make([]string, len(req.Texts))
	var missing []string
	var missingIdx []int
	for i, text := range req.Texts {
		if strings.TrimSpace(text) == "" || source == req.Target {
			out[i] = text
			continue
		}
		if cached, err := s.cache.Get(ctx, CacheKey(source, req.Target, text)); err == nil {
			out[i] = string(cached)
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	translated, err := s.call(ctx, missing, source, req.Target)
	if err != nil {
		return nil, err
	}
	for j, i := range missingIdx {
		out[i] = translated[j]
		if err := s.cache.Set(ctx, CacheKey(source, req.Target, missing[j]), []byte(translated[j]), s.ttl); err != nil {
			s.logger.Warn("Failed to cache translation", zap.Error(err))
		}
	}
	return out, nil
}

type apiRequest struct {
	Q      []string `json:"q"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Format string   `json:"format"`
	APIKey string   `json:"api_key,omitempty"`
}

type apiResponse struct {
	TranslatedText []string `json:"translatedText"`
	Error          string   `json:"error"`
}

func (s *Service) call(ctx context.Context, texts []string, source, target string) ([]string, error) {
	body, err := json.Marshal(apiRequest{Q: texts, Source: source, Target: target, Format: "text", APIKey: s.apiKey})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("translate request: %w", err)
	}
	defer resp.Body.Close()

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode translate response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("translate API status %d: %s", resp.StatusCode, parsed.Error)
	}
	if len(parsed.TranslatedText) != len(texts) {
		return nil, fmt.Errorf("translate API returned %d texts for %d inputs", len(parsed.TranslatedText), len(texts))
	}
	return parsed.TranslatedText, nil
}
