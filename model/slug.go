package model

import (
	"errors"
	"fmt"
	"strings"

	slug "github.com/goliatone/go-slug"
)

// ErrSlugInvalid is returned when a value cannot be turned into a slug.
var ErrSlugInvalid = errors.New("model: slug contains no usable characters")

// Slugify normalizes value into a URL slug.
func Slugify(value string) (string, error) {
	s, err := slug.Normalize(strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSlugInvalid, err)
	}
	if s == "" {
		return "", ErrSlugInvalid
	}
	return s, nil
}

// ensureSlug fills target from source when target is empty and normalizes it.
func ensureSlug(target *string, source string) error {
	raw := strings.TrimSpace(*target)
	if raw == "" {
		raw = source
	}
	if strings.TrimSpace(raw) == "" {
		return nil // left for the Required rule
	}
	s, err := Slugify(raw)
	if err != nil {
		return err
	}
	*target = s
	return nil
}

// IsValidSlug reports whether value is already a normalized slug.
func IsValidSlug(value string) bool {
	return slug.IsValid(value)
}
