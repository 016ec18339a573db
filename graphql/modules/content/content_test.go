package content

import (
	"context"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/certiva/website-backend/database"
	"github.com/certiva/website-backend/model"
	"github.com/certiva/website-backend/restapi/modules/auth"
)

func newSchema(t *testing.T) (graphql.Schema, *database.Stores) {
	t.Helper()
	stores := database.NewMemoryStores()
	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name: "Query",
			Fields: GetQueryFields(&Resolver{
				Stores:          stores,
				DefaultLanguage: "en",
				Languages:       []string{"en", "de"},
				Logger:          zap.NewNop(),
			}),
		}),
	})
	require.NoError(t, err)
	return schema, stores
}

func run(t *testing.T, schema graphql.Schema, ctx context.Context, query string) map[string]interface{} {
	t.Helper()
	res := graphql.Do(graphql.Params{Schema: schema, RequestString: query, Context: ctx})
	require.Empty(t, res.Errors)
	return res.Data.(map[string]interface{})
}

func seed(t *testing.T, stores *database.Stores) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, stores.Blogs.Create(ctx, &model.Blog{
		Title: "Live Post", Content: "**hi**", Language: "en", Published: true, Category: "news", Tags: []string{"lab"},
		Translations: map[string]model.BlogTranslation{"de": {Title: "Beitrag", Content: "hallo"}},
	}))
	require.NoError(t, stores.Blogs.Create(ctx, &model.Blog{Title: "Draft Post", Content: "x", Language: "en"}))
	require.NoError(t, stores.Careers.Create(ctx, &model.Career{Title: "Chemist", EmploymentType: "full-time", Description: "x", IsActive: true}))
	require.NoError(t, stores.Careers.Create(ctx, &model.Career{Title: "Closed", EmploymentType: "contract", Description: "x"}))
	require.NoError(t, stores.ContactOffices.Create(ctx, &model.ContactOffice{
		Name: "Berlin", OfficeType: model.OfficeHeadquarters, Region: "europe",
		Address: model.Address{City: "Berlin", Country: "DE"}, Location: &model.GeoPoint{Lat: 52.5, Lng: 13.4},
	}))
	require.NoError(t, stores.IndustryStats.Create(ctx, &model.IndustryStat{
		Industry: "food", Label: model.LocalizedText{"en": "Labs", "de": "Labore"}, Value: "12",
	}))

	hero := &model.Section{Name: "hero", Kind: "hero", Content: map[string]map[string]any{"en": {"heading": "Hi"}, "de": {"heading": "Hallo"}}}
	require.NoError(t, stores.Sections.Create(ctx, hero))
	require.NoError(t, stores.Pages.Create(ctx, &model.Page{
		Title: model.LocalizedText{"en": "Home"}, Sections: []string{hero.Key, "gone"}, Published: true,
	}))
}

func TestBlogs(t *testing.T) {
	schema, stores := newSchema(t)
	seed(t, stores)

	data := run(t, schema, context.Background(), `{ blogs(lang: "de") { total items { key slug title content_html tags } } }`)
	blogs := data["blogs"].(map[string]interface{})
	assert.Equal(t, 1, blogs["total"])
	item := blogs["items"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Beitrag", item["title"])
	assert.NotEmpty(t, item["key"])

	admin := auth.WithSession(context.Background(), "k", model.RoleEditor)
	data = run(t, schema, admin, `{ blogs { total } }`)
	assert.Equal(t, 2, data["blogs"].(map[string]interface{})["total"])

	data = run(t, schema, context.Background(), `{ blog(slug: "draft-post") { title } }`)
	assert.Nil(t, data["blog"])

	data = run(t, schema, context.Background(), `{ blog(slug: "live-post") { title content_html } }`)
	assert.Contains(t, data["blog"].(map[string]interface{})["content_html"], "<strong>hi</strong>")

	data = run(t, schema, context.Background(), `{ blogs(tag: "lab", category: "news") { total } }`)
	assert.Equal(t, 1, data["blogs"].(map[string]interface{})["total"])
}

func TestCareersOfficesStats(t *testing.T) {
	schema, stores := newSchema(t)
	seed(t, stores)

	data := run(t, schema, context.Background(), `{ careers { slug } career(slug: "closed") { slug } }`)
	assert.Len(t, data["careers"], 1)
	assert.Nil(t, data["career"])

	data = run(t, schema, context.Background(), `{ offices(region: "europe") { name address { city } location { lat } } }`)
	offices := data["offices"].([]interface{})
	require.Len(t, offices, 1)
	office := offices[0].(map[string]interface{})
	assert.Equal(t, "Berlin", office["address"].(map[string]interface{})["city"])
	assert.InDelta(t, 52.5, office["location"].(map[string]interface{})["lat"], 1e-9)

	data = run(t, schema, context.Background(), `{ industryStats(lang: "de") { label value } }`)
	stat := data["industryStats"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Labore", stat["label"])
}

func TestIndustryStatsFilterMatchesStoredSlug(t *testing.T) {
	schema, stores := newSchema(t)
	seed(t, stores)
	require.NoError(t, stores.IndustryStats.Create(context.Background(), &model.IndustryStat{
		Industry: "Oil & Gas", Label: model.LocalizedText{"en": "Rigs"}, Value: "30",
	}))

	data := run(t, schema, context.Background(), `{ industryStats(industry: "Oil & Gas") { label } }`)
	stats := data["industryStats"].([]interface{})
	require.Len(t, stats, 1)
	assert.Equal(t, "Rigs", stats[0].(map[string]interface{})["label"])

	data = run(t, schema, context.Background(), `{ industryStats(industry: "FOOD") { value } }`)
	assert.Len(t, data["industryStats"], 1)
}

func TestPage(t *testing.T) {
	schema, stores := newSchema(t)
	seed(t, stores)

	data := run(t, schema, context.Background(), `{ page(slug: "home", lang: "de") { title language sections { key kind fields } } }`)
	page := data["page"].(map[string]interface{})
	assert.Equal(t, "Home", page["title"])
	sections := page["sections"].([]interface{})
	require.Len(t, sections, 1, "missing sections are skipped")
	section := sections[0].(map[string]interface{})
	assert.NotEmpty(t, section["key"])
	assert.Equal(t, map[string]interface{}{"heading": "Hallo"}, section["fields"])
}
