package capture

import (
	"context"
	"net/http"
)

// Profile decides whether a given request is captured at all. It runs
// before any time is recorded, so rejected requests cost nothing.
type Profile interface {
	ShouldCapture(r *http.Request) bool
}

// ProfileFunc adapts a predicate to the Profile interface.
type ProfileFunc func(r *http.Request) bool

// ShouldCapture calls f.
func (f ProfileFunc) ShouldCapture(r *http.Request) bool { return f(r) }

// AlwaysProfile captures every request. This is the default.
type AlwaysProfile struct{}

// ShouldCapture always returns true.
func (AlwaysProfile) ShouldCapture(*http.Request) bool { return true }

// IdentityResolver resolves the authenticated identity for a request as an
// opaque mapping, or nil when there is none. Resolver failures never block
// capture: the record is written without an identity.
type IdentityResolver interface {
	Resolve(r *http.Request) (map[string]any, error)
}

// IdentityResolverFunc adapts a function to the IdentityResolver interface.
type IdentityResolverFunc func(r *http.Request) (map[string]any, error)

// Resolve calls f.
func (f IdentityResolverFunc) Resolve(r *http.Request) (map[string]any, error) {
	return f(r)
}

type identityKey struct{}

// WithIdentity returns a context carrying an identity mapping. Auth
// middleware runs ahead of the capture middleware and deposits the identity
// here for the default resolver to pick up.
func WithIdentity(ctx context.Context, identity map[string]any) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity mapping stored in ctx, if any.
func IdentityFromContext(ctx context.Context) map[string]any {
	id, _ := ctx.Value(identityKey{}).(map[string]any)
	return id
}

// ContextIdentityResolver is the default resolver: it returns whatever
// identity an upstream auth layer stored in the request context, or nil.
type ContextIdentityResolver struct{}

// Resolve returns the context identity.
func (ContextIdentityResolver) Resolve(r *http.Request) (map[string]any, error) {
	return IdentityFromContext(r.Context()), nil
}
