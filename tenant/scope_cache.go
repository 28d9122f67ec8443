package tenant

import (
	"time"

	"github.com/conversagent/core/internal/cache"
)

// ScopeCache caches RBAC scope lookups per (tenant, actor), keyed with a
// version counter so a membership change invalidates old entries without
// a scan (§5's "Shared-resource policy").
type ScopeCache struct {
	entries  *cache.LRUCache[string, []string]
	versions *cache.VersionCounter
}

func NewScopeCache(capacity int, ttl time.Duration) *ScopeCache {
	return &ScopeCache{
		entries:  cache.New[string, []string](capacity, ttl),
		versions: cache.NewVersionCounter(),
	}
}

func (s *ScopeCache) Get(tenantID, actorID string) ([]string, bool) {
	return s.entries.Get(s.versions.Key(tenantID, actorID))
}

func (s *ScopeCache) Set(tenantID, actorID string, scopes []string) {
	s.entries.SetDefault(s.versions.Key(tenantID, actorID), scopes)
}

// Invalidate drops all cached scope lookups for a tenant, e.g. after a
// membership or role change.
func (s *ScopeCache) Invalidate(tenantID string) {
	s.versions.Bump(tenantID)
}
