package content

import (
	"github.com/graphql-go/graphql"
)

func stringArg(p graphql.ResolveParams, name string) string {
	s, _ := p.Args[name].(string)
	return s
}

func intArg(p graphql.ResolveParams, name string, def int) int {
	if n, ok := p.Args[name].(int); ok {
		return n
	}
	return def
}

// GetQueryFields returns the content queries to be mounted in the root schema.
func GetQueryFields(r *Resolver) graphql.Fields {
	return graphql.Fields{
		"blogs": &graphql.Field{
			Type: BlogListType,
			Args: graphql.FieldConfigArgument{
				"page":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
				"limit":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 10},
				"lang":     &graphql.ArgumentConfig{Type: graphql.String},
				"category": &graphql.ArgumentConfig{Type: graphql.String},
				"tag":      &graphql.ArgumentConfig{Type: graphql.String},
				"search":   &graphql.ArgumentConfig{Type: graphql.String},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return r.ResolveBlogs(p.Context, intArg(p, "page", 1), intArg(p, "limit", 10),
					stringArg(p, "lang"), stringArg(p, "category"), stringArg(p, "tag"), stringArg(p, "search"))
			},
		},
		"blog": &graphql.Field{
			Type: BlogType,
			Args: graphql.FieldConfigArgument{
				"slug": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				"lang": &graphql.ArgumentConfig{Type: graphql.String},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return r.ResolveBlog(p.Context, stringArg(p, "slug"), stringArg(p, "lang"))
			},
		},
		"careers": &graphql.Field{
			Type: graphql.NewList(CareerType),
			Args: graphql.FieldConfigArgument{
				"department":     &graphql.ArgumentConfig{Type: graphql.String},
				"employmentType": &graphql.ArgumentConfig{Type: graphql.String},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return r.ResolveCareers(p.Context, stringArg(p, "department"), stringArg(p, "employmentType"))
			},
		},
		"career": &graphql.Field{
			Type: CareerType,
			Args: graphql.FieldConfigArgument{
				"slug": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return r.ResolveCareer(p.Context, stringArg(p, "slug"))
			},
		},
		"offices": &graphql.Field{
			Type: graphql.NewList(OfficeType),
			Args: graphql.FieldConfigArgument{
				"region": &graphql.ArgumentConfig{Type: graphql.String},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return r.ResolveOffices(p.Context, stringArg(p, "region"))
			},
		},
		"industryStats": &graphql.Field{
			Type: graphql.NewList(IndustryStatType),
			Args: graphql.FieldConfigArgument{
				"industry": &graphql.ArgumentConfig{Type: graphql.String},
				"lang":     &graphql.ArgumentConfig{Type: graphql.String},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return r.ResolveIndustryStats(p.Context, stringArg(p, "industry"), stringArg(p, "lang"))
			},
		},
		"page": &graphql.Field{
			Type: PageType,
			Args: graphql.FieldConfigArgument{
				"slug": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				"lang": &graphql.ArgumentConfig{Type: graphql.String},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return r.ResolvePage(p.Context, stringArg(p, "slug"), stringArg(p, "lang"))
			},
		},
	}
}
