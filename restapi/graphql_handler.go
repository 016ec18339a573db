// Package restapi provides HTTP handlers for the REST API including GraphQL support.
package restapi

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/certiva/website-backend/restapi/modules/auth"
	"github.com/certiva/website-backend/restapi/modules/common"
)

type graphQLRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

func graphQLError(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"errors": []map[string]interface{}{{"message": msg}},
	})
}

// parseGraphQLRequest reads a POST body, or query, operationName and
// variables from the query string of a GET.
func parseGraphQLRequest(c *fiber.Ctx) (graphQLRequest, error) {
	var params graphQLRequest
	if c.Method() != fiber.MethodGet {
		err := c.BodyParser(&params)
		return params, err
	}
	params.Query = c.Query("query")
	params.OperationName = c.Query("operationName")
	if vars := c.Query("variables"); vars != "" {
		if err := json.Unmarshal([]byte(vars), &params.Variables); err != nil {
			return params, err
		}
	}
	return params, nil
}

// GraphQLHandler returns a Fiber handler for GraphQL requests
func GraphQLHandler(schema graphql.Schema) fiber.Handler {
	return func(c *fiber.Ctx) error {
		params, err := parseGraphQLRequest(c)
		if err != nil {
			return graphQLError(c, "Invalid request body")
		}
		if params.Query == "" {
			return graphQLError(c, "Query is required")
		}

		opName := params.OperationName
		if opName == "" {
			opName = "-"
		}
		c.Locals("graphql_op", opName)

		ctx := c.UserContext()
		if common.IsAuthenticated(c) {
			role, _ := c.Locals(common.LocalRole).(string)
			ctx = auth.WithSession(ctx, common.AdminKey(c), role)
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  params.Query,
			VariableValues: params.Variables,
			OperationName:  params.OperationName,
			Context:        ctx,
		})

		return c.JSON(result)
	}
}
