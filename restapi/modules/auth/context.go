package auth

import "context"

type contextKey string

// Context keys carrying the session into non-Fiber code such as GraphQL
// resolvers.
const (
	AdminKeyCtx contextKey = "admin_key"
	RoleCtx     contextKey = "role"
)

// WithSession returns ctx carrying the admin key and role.
func WithSession(ctx context.Context, adminKey, role string) context.Context {
	ctx = context.WithValue(ctx, AdminKeyCtx, adminKey)
	return context.WithValue(ctx, RoleCtx, role)
}

// IsAdminContext reports whether ctx carries an authenticated session.
func IsAdminContext(ctx context.Context) bool {
	key, _ := ctx.Value(AdminKeyCtx).(string)
	return key != ""
}
