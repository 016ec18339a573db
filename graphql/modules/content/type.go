// Package content defines the GraphQL types and queries for site content.
package content

import (
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// JSONType passes free-form section fields through unchanged.
var JSONType = graphql.NewScalar(graphql.ScalarConfig{
	Name:         "JSON",
	Description:  "Arbitrary JSON value",
	Serialize:    func(value interface{}) interface{} { return value },
	ParseValue:   func(value interface{}) interface{} { return value },
	ParseLiteral: func(valueAST ast.Value) interface{} { return valueAST.GetValue() },
})

// MediaType represents an uploaded file.
var MediaType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Media",
	Fields: graphql.Fields{
		"url":           &graphql.Field{Type: graphql.String},
		"public_id":     &graphql.Field{Type: graphql.String},
		"resource_type": &graphql.Field{Type: graphql.String},
		"format":        &graphql.Field{Type: graphql.String},
		"bytes":         &graphql.Field{Type: graphql.Int},
		"filename":      &graphql.Field{Type: graphql.String},
	},
})

// BlogType represents a blog post in one language.
var BlogType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Blog",
	Fields: graphql.Fields{
		"key":          &graphql.Field{Type: graphql.String},
		"slug":         &graphql.Field{Type: graphql.String},
		"title":        &graphql.Field{Type: graphql.String},
		"excerpt":      &graphql.Field{Type: graphql.String},
		"content":      &graphql.Field{Type: graphql.String},
		"content_html": &graphql.Field{Type: graphql.String},
		"author":       &graphql.Field{Type: graphql.String},
		"category":     &graphql.Field{Type: graphql.String},
		"tags":         &graphql.Field{Type: graphql.NewList(graphql.String)},
		"cover_image":  &graphql.Field{Type: MediaType},
		"attachments":  &graphql.Field{Type: graphql.NewList(MediaType)},
		"language":     &graphql.Field{Type: graphql.String},
		"published":    &graphql.Field{Type: graphql.Boolean},
		"published_at": &graphql.Field{Type: graphql.String},
		"created_at":   &graphql.Field{Type: graphql.String},
		"updated_at":   &graphql.Field{Type: graphql.String},
	},
})

// BlogListType is one page of blog posts.
var BlogListType = graphql.NewObject(graphql.ObjectConfig{
	Name: "BlogList",
	Fields: graphql.Fields{
		"items": &graphql.Field{Type: graphql.NewList(BlogType)},
		"total": &graphql.Field{Type: graphql.Int},
		"page":  &graphql.Field{Type: graphql.Int},
		"limit": &graphql.Field{Type: graphql.Int},
		"pages": &graphql.Field{Type: graphql.Int},
	},
})

// CareerType represents a job opening.
var CareerType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Career",
	Fields: graphql.Fields{
		"key":              &graphql.Field{Type: graphql.String},
		"title":            &graphql.Field{Type: graphql.String},
		"slug":             &graphql.Field{Type: graphql.String},
		"department":       &graphql.Field{Type: graphql.String},
		"location":         &graphql.Field{Type: graphql.String},
		"employment_type":  &graphql.Field{Type: graphql.String},
		"description":      &graphql.Field{Type: graphql.String},
		"requirements":     &graphql.Field{Type: graphql.NewList(graphql.String)},
		"responsibilities": &graphql.Field{Type: graphql.NewList(graphql.String)},
		"apply_email":      &graphql.Field{Type: graphql.String},
		"is_active":        &graphql.Field{Type: graphql.Boolean},
		"closing_date":     &graphql.Field{Type: graphql.String},
	},
})

// AddressType represents a postal address.
var AddressType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Address",
	Fields: graphql.Fields{
		"street":      &graphql.Field{Type: graphql.String},
		"city":        &graphql.Field{Type: graphql.String},
		"state":       &graphql.Field{Type: graphql.String},
		"postal_code": &graphql.Field{Type: graphql.String},
		"country":     &graphql.Field{Type: graphql.String},
	},
})

// GeoPointType represents map coordinates.
var GeoPointType = graphql.NewObject(graphql.ObjectConfig{
	Name: "GeoPoint",
	Fields: graphql.Fields{
		"lat": &graphql.Field{Type: graphql.Float},
		"lng": &graphql.Field{Type: graphql.Float},
	},
})

// OfficeType represents a contact office.
var OfficeType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Office",
	Fields: graphql.Fields{
		"key":         &graphql.Field{Type: graphql.String},
		"name":        &graphql.Field{Type: graphql.String},
		"office_type": &graphql.Field{Type: graphql.String},
		"region":      &graphql.Field{Type: graphql.String},
		"address":     &graphql.Field{Type: AddressType},
		"phone":       &graphql.Field{Type: graphql.String},
		"email":       &graphql.Field{Type: graphql.String},
		"hours":       &graphql.Field{Type: graphql.String},
		"location":    &graphql.Field{Type: GeoPointType},
		"order":       &graphql.Field{Type: graphql.Int},
	},
})

// IndustryStatType represents an industry figure with its label resolved.
var IndustryStatType = graphql.NewObject(graphql.ObjectConfig{
	Name: "IndustryStat",
	Fields: graphql.Fields{
		"key":      &graphql.Field{Type: graphql.String},
		"industry": &graphql.Field{Type: graphql.String},
		"label":    &graphql.Field{Type: graphql.String},
		"value":    &graphql.Field{Type: graphql.String},
		"suffix":   &graphql.Field{Type: graphql.String},
		"icon":     &graphql.Field{Type: graphql.String},
		"order":    &graphql.Field{Type: graphql.Int},
	},
})

// SectionType represents a page section rendered for one language.
var SectionType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Section",
	Fields: graphql.Fields{
		"key":    &graphql.Field{Type: graphql.String},
		"name":   &graphql.Field{Type: graphql.String},
		"kind":   &graphql.Field{Type: graphql.String},
		"fields": &graphql.Field{Type: JSONType},
		"images": &graphql.Field{Type: graphql.NewList(MediaType)},
	},
})

// PageType represents a page rendered for one language.
var PageType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Page",
	Fields: graphql.Fields{
		"key":              &graphql.Field{Type: graphql.String},
		"slug":             &graphql.Field{Type: graphql.String},
		"language":         &graphql.Field{Type: graphql.String},
		"title":            &graphql.Field{Type: graphql.String},
		"description":      &graphql.Field{Type: graphql.String},
		"meta_title":       &graphql.Field{Type: graphql.String},
		"meta_description": &graphql.Field{Type: graphql.String},
		"og_image":         &graphql.Field{Type: graphql.String},
		"sections":         &graphql.Field{Type: graphql.NewList(SectionType)},
	},
})
