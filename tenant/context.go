// Package tenant resolves the acting tenant and actor on every entry
// point (API call or inbound channel message) and carries them through
// the core as an explicit, immutable request context.
package tenant

import "context"

// Actor is the identity the request is acting as: a human user through
// the admin API, or the system itself for channel-originated traffic.
type Actor struct {
	ID     string
	Kind   ActorKind
	Scopes []string
}

type ActorKind string

const (
	ActorUser   ActorKind = "user"
	ActorSystem ActorKind = "system"
)

// HasScope reports whether the actor carries the given permission code.
func (a Actor) HasScope(scope string) bool {
	for _, s := range a.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Context is the immutable bundle produced by Resolver.ResolveAPI and
// Resolver.ResolveChannel. Core
// calls take it explicitly as a parameter; WithContext/FromContext
// exist only at API-boundary adapters that must carry it through a
// standard context.Context.
type Context struct {
	TenantID  string
	Actor     Actor
	RequestID string
}

type ctxKey struct{}

func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok
}
