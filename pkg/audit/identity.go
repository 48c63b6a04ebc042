package audit

import "context"

// AnonymousPrincipal is the sentinel reported for unauthenticated calls.
const AnonymousPrincipal = "anonymous"

// AnonymousIdentity is an IdentityProvider for deployments without
// authentication; every call is attributed to the anonymous sentinel.
type AnonymousIdentity struct{}

func (AnonymousIdentity) CurrentPrincipal(context.Context) string { return AnonymousPrincipal }
func (AnonymousIdentity) CurrentRoles(context.Context) []string   { return nil }

var _ IdentityProvider = AnonymousIdentity{}

// identityContextKey is a custom type for context keys to avoid collisions.
type identityContextKey string

const principalKey identityContextKey = "audit-principal"

type principalValue struct {
	name  string
	roles []string
}

// WithPrincipal returns a context carrying the authenticated caller, set by
// the boundary layer after authentication succeeds.
func WithPrincipal(ctx context.Context, name string, roles []string) context.Context {
	return context.WithValue(ctx, principalKey, principalValue{name: name, roles: roles})
}

// ContextIdentity is an IdentityProvider reading the principal stored with
// WithPrincipal. Requests without one are reported as anonymous.
type ContextIdentity struct{}

func (ContextIdentity) CurrentPrincipal(ctx context.Context) string {
	if p, ok := ctx.Value(principalKey).(principalValue); ok && p.name != "" {
		return p.name
	}
	return AnonymousPrincipal
}

func (ContextIdentity) CurrentRoles(ctx context.Context) []string {
	if p, ok := ctx.Value(principalKey).(principalValue); ok {
		return p.roles
	}
	return nil
}

var _ IdentityProvider = ContextIdentity{}
