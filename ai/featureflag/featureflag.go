// Package featureflag gates gradual per-tenant rollout of new
// agent behaviour. Grounded on
// original_source/apps/bot/services/feature_flags.py's
// FeatureFlagService: the same enabled/rollout_percentage shape, the
// same consistent-hash bucketing so a given tenant always lands on the
// same side of a partial rollout, and the same short-TTL cache in
// front of the decision.
package featureflag

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/conversagent/core/internal/cache"
)

const cacheTTL = 5 * time.Minute

// Flag is one feature's rollout configuration.
type Flag struct {
	Enabled           bool
	RolloutPercentage int // 0-100
}

// defaultFlags mirrors the original's DEFAULT_FLAGS, renamed to this
// module's own feature names.
var defaultFlags = map[string]Flag{
	"multi_provider_routing": {Enabled: true, RolloutPercentage: 100},
	"forgot_request_recovery": {Enabled: true, RolloutPercentage: 100},
	"source_attribution":      {Enabled: true, RolloutPercentage: 100},
	"spelling_correction_fallback": {Enabled: true, RolloutPercentage: 50},
}

// Service evaluates and overrides feature flags per tenant.
type Service struct {
	mu        sync.RWMutex
	overrides map[string]map[string]Flag // tenantID -> featureName -> Flag
	cache     *cache.LRUCache[string, bool]
}

func New() *Service {
	return &Service{
		overrides: make(map[string]map[string]Flag),
		cache:     cache.New[string, bool](1000, cacheTTL),
	}
}

// IsEnabled reports whether featureName is enabled for tenantID,
// falling back to def if no flag configuration exists at all.
func (s *Service) IsEnabled(featureName, tenantID string, def bool) bool {
	key := tenantID + ":" + featureName
	if cached, ok := s.cache.Get(key); ok {
		return cached
	}

	flag, ok := s.flagFor(featureName, tenantID)
	if !ok {
		return def
	}

	enabled := evaluate(flag, tenantID)
	s.cache.SetDefault(key, enabled)
	return enabled
}

func evaluate(flag Flag, tenantID string) bool {
	if !flag.Enabled {
		return false
	}
	switch {
	case flag.RolloutPercentage >= 100:
		return true
	case flag.RolloutPercentage <= 0:
		return false
	default:
		return bucket(tenantID) < flag.RolloutPercentage
	}
}

// bucket assigns tenantID to a stable 0-99 rollout bucket via FNV-1a,
// the same role hash(tenant_id) % 100 plays in the original.
func bucket(tenantID string) int {
	h := fnv.New32a()
	h.Write([]byte(tenantID))
	return int(h.Sum32() % 100)
}

func (s *Service) flagFor(featureName, tenantID string) (Flag, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tenantFlags, ok := s.overrides[tenantID]; ok {
		if f, ok := tenantFlags[featureName]; ok {
			return f, true
		}
	}
	f, ok := defaultFlags[featureName]
	return f, ok
}

// SetFlag overrides featureName's rollout for a single tenant,
// clamping rolloutPercentage to [0,100] and invalidating the cached
// decision so the next IsEnabled call re-evaluates.
func (s *Service) SetFlag(tenantID, featureName string, enabled bool, rolloutPercentage int) {
	if rolloutPercentage < 0 {
		rolloutPercentage = 0
	}
	if rolloutPercentage > 100 {
		rolloutPercentage = 100
	}

	s.mu.Lock()
	if s.overrides[tenantID] == nil {
		s.overrides[tenantID] = make(map[string]Flag)
	}
	s.overrides[tenantID][featureName] = Flag{Enabled: enabled, RolloutPercentage: rolloutPercentage}
	s.mu.Unlock()

	s.cache.Remove(tenantID + ":" + featureName)
}

// AllFlags returns every known feature's Flag configuration for
// tenantID, with the tenant's overrides replacing the defaults. The
// rollout percentage is returned as configured, not evaluated against
// tenantID's bucket, so it may differ from what IsEnabled reports.
func (s *Service) AllFlags(tenantID string) map[string]Flag {
	s.mu.RLock()
	tenantFlags := s.overrides[tenantID]
	resolved := make(map[string]Flag, len(defaultFlags))
	for name, flag := range defaultFlags {
		resolved[name] = flag
	}
	for name, flag := range tenantFlags {
		resolved[name] = flag
	}
	s.mu.RUnlock()
	return resolved
}
