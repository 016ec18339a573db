package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Section is a reusable block of CMS content. Content maps a language code
// to the fields rendered by the section's kind.
type Section struct {
	Base
	Name    string                    `json:"name"`
	Kind    string                    `json:"kind"`
	Content map[string]map[string]any `json:"content"`
	Images  []Media                   `json:"images,omitempty"`
	Order   int                       `json:"order"`
}

// Section kinds understood by the public site.
var SectionKinds = []any{"hero", "text", "cards", "stats", "gallery", "cta", "services", "testimonials", "faq", "custom"}

// Prepare normalizes the section before validation.
func (s *Section) Prepare(time.Time) error {
	return ensureSlug(&s.Name, s.Name)
}

// Validate implements Validator.
func (s *Section) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&s.Kind, validation.Required, validation.In(SectionKinds...)),
		validation.Field(&s.Content, validation.Required),
	)
}

// Localize returns the fields for lang, falling back to fallback.
func (s *Section) Localize(lang, fallback string) map[string]any {
	if fields, ok := s.Content[lang]; ok && len(fields) > 0 {
		return fields
	}
	if fields, ok := s.Content[fallback]; ok {
		return fields
	}
	return map[string]any{}
}

// SEO holds per-page search metadata.
type SEO struct {
	MetaTitle       LocalizedText `json:"meta_title,omitempty"`
	MetaDescription LocalizedText `json:"meta_description,omitempty"`
	OGImage         string        `json:"og_image,omitempty"`
}

// Page is an ordered composition of sections.
type Page struct {
	Base
	Slug        string        `json:"slug"`
	Title       LocalizedText `json:"title"`
	Description LocalizedText `json:"description,omitempty"`
	Sections    []string      `json:"sections"`
	SEO         SEO           `json:"seo"`
	Published   bool          `json:"published"`
}

// DeriveSlug normalizes the slug, deriving a missing one from the title in
// lang.
func (p *Page) DeriveSlug(lang string) error {
	return ensureSlug(&p.Slug, p.Title.Resolve(lang, ""))
}

// Prepare normalizes the page slug. Callers that know the site language
// should run DeriveSlug first; otherwise the first titled language in
// alphabetical order is used.
func (p *Page) Prepare(time.Time) error {
	if p.Sections == nil {
		p.Sections = []string{}
	}
	return p.DeriveSlug("")
}

// Validate implements Validator.
func (p *Page) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Slug, validation.Required, validation.Length(1, 160)),
		validation.Field(&p.Title, validation.By(requireLocalized)),
	)
}

// LocalizedSection is a section rendered for one language.
type LocalizedSection struct {
	Key    string         `json:"_key"`
	Name   string         `json:"name"`
	Kind   string         `json:"kind"`
	Fields map[string]any `json:"fields"`
	Images []Media        `json:"images,omitempty"`
}

// LocalizedPage is a page with its sections resolved for one language.
type LocalizedPage struct {
	Key             string             `json:"_key"`
	Slug            string             `json:"slug"`
	Language        string             `json:"language"`
	Title           string             `json:"title"`
	Description     string             `json:"description,omitempty"`
	MetaTitle       string             `json:"meta_title,omitempty"`
	MetaDescription string             `json:"meta_description,omitempty"`
	OGImage         string             `json:"og_image,omitempty"`
	Sections        []LocalizedSection `json:"sections"`
}

// Localize renders the page for lang. sections must be in page order.
func (p *Page) Localize(lang, fallback string, sections []*Section) LocalizedPage {
	out := LocalizedPage{
		Key:             p.Key,
		Slug:            p.Slug,
		Language:        lang,
		Title:           p.Title.Resolve(lang, fallback),
		Description:     p.Description.Resolve(lang, fallback),
		MetaTitle:       p.SEO.MetaTitle.Resolve(lang, fallback),
		MetaDescription: p.SEO.MetaDescription.Resolve(lang, fallback),
		OGImage:         p.SEO.OGImage,
		Sections:        make([]LocalizedSection, 0, len(sections)),
	}
	for _, s := range sections {
		out.Sections = append(out.Sections, LocalizedSection{
			Key:    s.Key,
			Name:   s.Name,
			Kind:   s.Kind,
			Fields: s.Localize(lang, fallback),
			Images: s.Images,
		})
	}
	return out
}

func requireLocalized(value any) error {
	t, _ := value.(LocalizedText)
	if !t.HasAny() {
		return validation.NewError("validation_required_localized", "at least one language is required")
	}
	return nil
}
