package tenant

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/conversagent/core/store"
)

// ErrUnknownTenant, ErrNotAMember, and ErrSignatureInvalid correspond to
// the 404/403/401 failure modes a Resolver reports.
var (
	ErrUnknownTenant    = errors.New("unknown tenant")
	ErrNotAMember       = errors.New("actor is not a member of tenant")
	ErrSignatureInvalid = errors.New("channel signature invalid")
)

// ScopeChecker is the RBAC permission-evaluation collaborator; its
// implementation lives outside this module's core (§6).
type ScopeChecker interface {
	Scopes(ctx context.Context, tenantID, actorID string) ([]string, error)
}

// ChannelVerifier validates an inbound channel webhook's signature and
// resolves the destination address to a tenant's channel identity.
type ChannelVerifier interface {
	Verify(channel, signature string, body []byte) bool
	ResolveDestination(channel, destination string) (channelIdentity string, ok bool)
}

// Resolver produces a Context for every entry point.
type Resolver struct {
	store  *store.Store
	scopes ScopeChecker
	verify ChannelVerifier
	cache  *ScopeCache
}

func NewResolver(st *store.Store, scopes ScopeChecker, verify ChannelVerifier, cache *ScopeCache) *Resolver {
	return &Resolver{store: st, scopes: scopes, verify: verify, cache: cache}
}

// ResolveAPI resolves an admin-API request carrying an explicit tenant
// header and an already-authenticated user id.
func (r *Resolver) ResolveAPI(ctx context.Context, tenantID, userID, requestID string) (Context, error) {
	t, err := r.store.GetTenantCached(ctx, tenantID)
	if err != nil {
		return Context{}, ErrUnknownTenant
	}

	scopes, err := r.scopeSet(ctx, t.ID, userID)
	if err != nil {
		return Context{}, err
	}
	if len(scopes) == 0 {
		r.auditFailure(ctx, t.ID, userID, "scope_check.no_membership")
		return Context{}, ErrNotAMember
	}

	return Context{
		TenantID:  t.ID,
		Actor:     Actor{ID: userID, Kind: ActorUser, Scopes: scopes},
		RequestID: requestID,
	}, nil
}

// ResolveChannel resolves an inbound channel webhook to the tenant that
// owns the destination address, verifying the transport signature
// first.
func (r *Resolver) ResolveChannel(ctx context.Context, channel, destination, signature string, body []byte, requestID string) (Context, error) {
	if !r.verify.Verify(channel, signature, body) {
		r.auditFailure(ctx, "", destination, "scope_check.invalid_channel_signature")
		return Context{}, ErrSignatureInvalid
	}

	channelIdentity, ok := r.verify.ResolveDestination(channel, destination)
	if !ok {
		return Context{}, ErrUnknownTenant
	}

	t, err := r.store.GetTenant(ctx, &store.FindTenant{ChannelIdentity: &channelIdentity})
	if err != nil {
		return Context{}, ErrUnknownTenant
	}

	return Context{
		TenantID:  t.ID,
		Actor:     Actor{ID: "system", Kind: ActorSystem},
		RequestID: requestID,
	}, nil
}

// auditFailure appends a best-effort security audit entry for a
// scope-check or signature-verification failure; a tenantID of ""
// (the channel destination couldn't yet be resolved to a tenant) is
// logged against the platform rather than dropped.
func (r *Resolver) auditFailure(ctx context.Context, tenantID, actor, action string) {
	if tenantID == "" {
		tenantID = "unresolved"
	}
	_ = r.store.AppendSecurityAuditLog(ctx, &store.CreateSecurityAuditLog{
		Log: &store.SecurityAuditLog{
			TenantID:  tenantID,
			Actor:     actor,
			Action:    action,
			RiskLevel: "high",
			CreatedAt: time.Now(),
		},
	})
}

func (r *Resolver) scopeSet(ctx context.Context, tenantID, userID string) ([]string, error) {
	if cached, ok := r.cache.Get(tenantID, userID); ok {
		return cached, nil
	}
	scopes, err := r.scopes.Scopes(ctx, tenantID, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to evaluate rbac scopes")
	}
	r.cache.Set(tenantID, userID, scopes)
	return scopes, nil
}
