package common

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Languages resolves the language requested by a client.
type Languages struct {
	Default   string
	Supported []string
}

// Supports reports whether lang is a site language.
func (l Languages) Supports(lang string) bool {
	for _, s := range l.Supported {
		if s == lang {
			return true
		}
	}
	return false
}

// Resolve returns the ?lang= value, then the first supported
// Accept-Language entry, then the default.
func (l Languages) Resolve(c *fiber.Ctx) string {
	if lang := strings.ToLower(c.Query("lang")); lang != "" {
		if l.Supports(lang) {
			return lang
		}
		return l.Default
	}
	for _, part := range strings.Split(c.Get(fiber.HeaderAcceptLanguage), ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		tag = strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if l.Supports(tag) {
			return tag
		}
	}
	return l.Default
}
