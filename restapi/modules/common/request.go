package common

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/certiva/website-backend/database"
)

// Locals keys set by the auth middleware.
const (
	LocalAuthenticated = "is_authenticated"
	LocalAdminKey      = "admin_key"
	LocalEmail         = "email"
	LocalRole          = "role"
)

// IsAuthenticated reports whether the request carries a valid session.
func IsAuthenticated(c *fiber.Ctx) bool {
	ok, _ := c.Locals(LocalAuthenticated).(bool)
	return ok
}

// AdminKey returns the key of the authenticated admin.
func AdminKey(c *fiber.Ctx) string {
	key, _ := c.Locals(LocalAdminKey).(string)
	return key
}

// ParseListOptions reads page, limit, q, sort and order from the query
// string. sort must be one of sortable, else defaultSort is used.
func ParseListOptions(c *fiber.Ctx, defaultSort string, defaultDesc bool, sortable ...string) database.ListOptions {
	opts := database.ListOptions{
		Page:  atoi(c.Query("page"), 1),
		Limit: atoi(c.Query("limit"), database.DefaultLimit),
		Sort:  defaultSort,
		Desc:  defaultDesc,
	}
	if s := c.Query("sort"); s != "" {
		for _, allowed := range sortable {
			if s == allowed {
				opts.Sort = s
				break
			}
		}
	}
	switch strings.ToLower(c.Query("order")) {
	case "asc":
		opts.Desc = false
	case "desc":
		opts.Desc = true
	}
	opts.Search = strings.TrimSpace(c.Query("q"))
	return opts.Normalized()
}

// AddFilter sets an equality filter when value is non-empty.
func AddFilter(opts *database.ListOptions, field, value string) {
	if value == "" {
		return
	}
	if opts.Filters == nil {
		opts.Filters = map[string]any{}
	}
	opts.Filters[field] = value
}

func atoi(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
