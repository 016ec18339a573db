package model

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// BlogTranslation holds the translated copy of a blog post.
type BlogTranslation struct {
	Title       string `json:"title"`
	Excerpt     string `json:"excerpt,omitempty"`
	Content     string `json:"content"`
	ContentHTML string `json:"content_html,omitempty"`
}

// Blog is a news or insight article.
type Blog struct {
	Base
	Slug         string                     `json:"slug"`
	Title        string                     `json:"title"`
	Excerpt      string                     `json:"excerpt,omitempty"`
	Content      string                     `json:"content"`
	ContentHTML  string                     `json:"content_html,omitempty"`
	Author       string                     `json:"author,omitempty"`
	Category     string                     `json:"category,omitempty"`
	Tags         []string                   `json:"tags"`
	CoverImage   *Media                     `json:"cover_image,omitempty"`
	Attachments  []Media                    `json:"attachments"`
	Language     string                     `json:"language"`
	Translations map[string]BlogTranslation `json:"translations,omitempty"`
	Published    bool                       `json:"published"`
	PublishedAt  *time.Time                 `json:"published_at,omitempty"`
}

// Prepare normalizes the slug and tags, renders markdown and stamps
// PublishedAt the first time the post is published.
func (b *Blog) Prepare(now time.Time) error {
	if err := ensureSlug(&b.Slug, b.Title); err != nil {
		return err
	}
	b.Tags = normalizeTags(b.Tags)
	if b.Attachments == nil {
		b.Attachments = []Media{}
	}

	html, err := RenderMarkdown(b.Content)
	if err != nil {
		return fmt.Errorf("render content: %w", err)
	}
	b.ContentHTML = html

	for lang, tr := range b.Translations {
		html, err := RenderMarkdown(tr.Content)
		if err != nil {
			return fmt.Errorf("render %s translation: %w", lang, err)
		}
		tr.ContentHTML = html
		b.Translations[lang] = tr
	}

	if b.Published && b.PublishedAt == nil {
		at := now
		b.PublishedAt = &at
	}
	return nil
}

// Validate implements Validator.
func (b *Blog) Validate() error {
	return validation.ValidateStruct(b,
		validation.Field(&b.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&b.Slug, validation.Required, validation.Length(1, 200)),
		validation.Field(&b.Excerpt, validation.Length(0, 500)),
		validation.Field(&b.Content, validation.Required),
		validation.Field(&b.Language, validation.Required, validation.Length(2, 8)),
	)
}

// Localized returns a copy of the post with the translation for lang applied.
// The original language is returned when no translation exists.
func (b *Blog) Localized(lang string) Blog {
	out := *b
	if lang == "" || lang == b.Language {
		return out
	}
	tr, ok := b.Translations[lang]
	if !ok || strings.TrimSpace(tr.Title) == "" {
		return out
	}
	out.Title = tr.Title
	if tr.Excerpt != "" {
		out.Excerpt = tr.Excerpt
	}
	if tr.Content != "" {
		out.Content = tr.Content
		out.ContentHTML = tr.ContentHTML
	}
	out.Language = lang
	return out
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
