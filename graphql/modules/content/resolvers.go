package content

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/certiva/website-backend/database"
	"github.com/certiva/website-backend/model"
	"github.com/certiva/website-backend/restapi/modules/auth"
)

// Resolver reads site content for GraphQL queries. Drafts, unpublished pages
// and inactive careers are only visible to authenticated admins.
type Resolver struct {
	Stores          *database.Stores
	DefaultLanguage string
	Languages       []string
	Logger          *zap.Logger
}

// toMap converts a document to the map shape graphql-go resolves fields
// from, exposing _key as key.
func toMap(v any) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if key, ok := out["_key"]; ok {
		out["key"] = key
	}
	return out, nil
}

func toMaps[T any](items []T) ([]interface{}, error) {
	out := make([]interface{}, len(items))
	for i, item := range items {
		m, err := toMap(item)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// language returns lang when it is a site language, else the default.
func (r *Resolver) language(lang string) string {
	for _, l := range r.Languages {
		if l == lang {
			return lang
		}
	}
	return r.DefaultLanguage
}

// notFound turns ErrNotFound into a null result.
func notFound(v interface{}, err error) (interface{}, error) {
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

// ResolveBlogs returns one page of posts.
func (r *Resolver) ResolveBlogs(ctx context.Context, page, limit int, lang, category, tag, search string) (interface{}, error) {
	opts := database.ListOptions{Page: page, Limit: limit, Sort: "published_at", Desc: true, Search: search, SearchFields: []string{"title", "excerpt"}}
	opts.Filters = map[string]any{}
	if !auth.IsAdminContext(ctx) {
		opts.Filters["published"] = true
	}
	if category != "" {
		opts.Filters["category"] = category
	}
	if tag != "" {
		opts.Contains = map[string]any{"tags": tag}
	}

	res, err := r.Stores.Blogs.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	posts := make([]model.Blog, len(res.Items))
	for i, b := range res.Items {
		posts[i] = r.localizeBlog(b, lang)
	}
	items, err := toMaps(posts)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"items": items,
		"total": res.Total,
		"page":  res.Page,
		"limit": res.Limit,
		"pages": res.Pages,
	}, nil
}

// ResolveBlog returns one post by slug, or null.
func (r *Resolver) ResolveBlog(ctx context.Context, slug, lang string) (interface{}, error) {
	filters := map[string]any{"slug": slug}
	if !auth.IsAdminContext(ctx) {
		filters["published"] = true
	}
	b, err := r.Stores.Blogs.FindOne(ctx, filters)
	if err != nil {
		return notFound(nil, err)
	}
	return toMap(r.localizeBlog(b, lang))
}

func (r *Resolver) localizeBlog(b *model.Blog, lang string) model.Blog {
	if lang == "" {
		return *b
	}
	return b.Localized(r.language(lang))
}

// ResolveCareers returns openings, filtered by department and employment type.
func (r *Resolver) ResolveCareers(ctx context.Context, department, employmentType string) (interface{}, error) {
	opts := database.ListOptions{Limit: database.MaxLimit, Sort: "created_at", Desc: true, Filters: map[string]any{}}
	if !auth.IsAdminContext(ctx) {
		opts.Filters["is_active"] = true
	}
	if department != "" {
		opts.Filters["department"] = department
	}
	if employmentType != "" {
		opts.Filters["employment_type"] = employmentType
	}
	res, err := r.Stores.Careers.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	return toMaps(res.Items)
}

// ResolveCareer returns one opening by slug, or null.
func (r *Resolver) ResolveCareer(ctx context.Context, slug string) (interface{}, error) {
	filters := map[string]any{"slug": slug}
	if !auth.IsAdminContext(ctx) {
		filters["is_active"] = true
	}
	c, err := r.Stores.Careers.FindOne(ctx, filters)
	if err != nil {
		return notFound(nil, err)
	}
	return toMap(c)
}

// ResolveOffices returns offices in display order.
func (r *Resolver) ResolveOffices(ctx context.Context, region string) (interface{}, error) {
	opts := database.ListOptions{Limit: database.MaxLimit, Sort: "order"}
	if region != "" {
		opts.Filters = map[string]any{"region": region}
	}
	res, err := r.Stores.ContactOffices.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	return toMaps(res.Items)
}

// ResolveIndustryStats returns stats with labels resolved for lang.
func (r *Resolver) ResolveIndustryStats(ctx context.Context, industry, lang string) (interface{}, error) {
	opts := database.ListOptions{Limit: database.MaxLimit, Sort: "order"}
	if industry != "" {
		opts.Filters = map[string]any{"industry": model.IndustryKey(industry)}
	}
	res, err := r.Stores.IndustryStats.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	lang = r.language(lang)
	stats := make([]model.LocalizedIndustryStat, len(res.Items))
	for i, s := range res.Items {
		stats[i] = s.Localize(lang, r.DefaultLanguage)
	}
	return toMaps(stats)
}

// ResolvePage returns a page with its sections rendered for lang, or null.
func (r *Resolver) ResolvePage(ctx context.Context, slug, lang string) (interface{}, error) {
	filters := map[string]any{"slug": slug}
	if !auth.IsAdminContext(ctx) {
		filters["published"] = true
	}
	page, err := r.Stores.Pages.FindOne(ctx, filters)
	if err != nil {
		return notFound(nil, err)
	}

	sections, err := database.PageSections(ctx, r.Stores.Sections, page, r.Logger)
	if err != nil {
		return nil, err
	}

	out, err := toMap(page.Localize(r.language(lang), r.DefaultLanguage, sections))
	if err != nil {
		return nil, err
	}
	// section keys are nested one level down
	if list, ok := out["sections"].([]interface{}); ok {
		for _, item := range list {
			if m, ok := item.(map[string]interface{}); ok {
				m["key"] = m["_key"]
			}
		}
	}
	return out, nil
}
