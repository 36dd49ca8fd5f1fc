package user

import "context"

type principalKey struct{}

// WithPrincipalID stores the authenticated principal id on ctx.
func WithPrincipalID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, principalKey{}, id)
}

// PrincipalIDFrom returns the principal id set by the auth middleware, or ""
// when the request is anonymous.
func PrincipalIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(principalKey{}).(string)
	return id
}
