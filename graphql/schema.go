// Package graphql assembles the read-only GraphQL schema.
package graphql

import (
	"github.com/graphql-go/graphql"

	"github.com/certiva/website-backend/graphql/modules/content"
)

// NewSchema builds the root schema from the content queries.
func NewSchema(r *content.Resolver) (graphql.Schema, error) {
	return graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Query",
			Fields: content.GetQueryFields(r),
		}),
	})
}
