// Package model provides the document types stored by the website backend.
package model

import (
	"sort"
	"strings"
	"time"
)

// Document is implemented by every stored record.
type Document interface {
	GetKey() string
	SetKey(key string)
	GetCreatedAt() time.Time
	SetCreatedAt(t time.Time)
	Touch(now time.Time)
}

// Validator is implemented by documents that check themselves before a write.
type Validator interface {
	Validate() error
}

// Preparer is implemented by documents that normalize derived fields (slugs,
// rendered markdown) before validation.
type Preparer interface {
	Prepare(now time.Time) error
}

// Base carries the fields shared by all documents.
type Base struct {
	Key       string    `json:"_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetKey returns the document key.
func (b *Base) GetKey() string { return b.Key }

// SetKey sets the document key.
func (b *Base) SetKey(key string) { b.Key = key }

// GetCreatedAt returns the creation time.
func (b *Base) GetCreatedAt() time.Time { return b.CreatedAt }

// SetCreatedAt restores the creation time, used when a document is replaced.
func (b *Base) SetCreatedAt(t time.Time) { b.CreatedAt = t }

// Touch stamps UpdatedAt, and CreatedAt on first save.
func (b *Base) Touch(now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// LocalizedText maps a language code to a value.
type LocalizedText map[string]string

// Resolve returns the value for lang, falling back to fallback and then to the
// first non-empty value by language code so a partially translated field
// never renders blank.
func (t LocalizedText) Resolve(lang, fallback string) string {
	if v := strings.TrimSpace(t[lang]); v != "" {
		return t[lang]
	}
	if v := strings.TrimSpace(t[fallback]); v != "" {
		return t[fallback]
	}
	langs := make([]string, 0, len(t))
	for lang := range t {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		if strings.TrimSpace(t[lang]) != "" {
			return t[lang]
		}
	}
	return ""
}

// HasAny reports whether at least one language has a non-empty value.
func (t LocalizedText) HasAny() bool {
	for _, v := range t {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// Media references a file hosted by the storage backend.
type Media struct {
	URL          string `json:"url"`
	PublicID     string `json:"public_id"`
	ResourceType string `json:"resource_type,omitempty"`
	Format       string `json:"format,omitempty"`
	Bytes        int64  `json:"bytes,omitempty"`
	Filename     string `json:"filename,omitempty"`
}
