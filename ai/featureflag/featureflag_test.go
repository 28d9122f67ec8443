package featureflag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsEnabled_UnknownFeatureUsesDefault(t *testing.T) {
	s := New()
	require.True(t, s.IsEnabled("nonexistent", "tenant-1", true))
	require.False(t, s.IsEnabled("nonexistent", "tenant-1", false))
}

func TestIsEnabled_FullyRolledOutDefault(t *testing.T) {
	s := New()
	require.True(t, s.IsEnabled("multi_provider_routing", "tenant-1", false))
}

func TestIsEnabled_DisabledOverrideWins(t *testing.T) {
	s := New()
	s.SetFlag("tenant-1", "multi_provider_routing", false, 100)
	require.False(t, s.IsEnabled("multi_provider_routing", "tenant-1", true))
}

func TestIsEnabled_PartialRolloutIsConsistentPerTenant(t *testing.T) {
	s := New()
	s.SetFlag("tenant-1", "spelling_correction_fallback", true, 50)

	first := s.IsEnabled("spelling_correction_fallback", "tenant-1", false)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, s.IsEnabled("spelling_correction_fallback", "tenant-1", false))
	}
}

func TestIsEnabled_ZeroRolloutAlwaysOff(t *testing.T) {
	s := New()
	s.SetFlag("tenant-1", "spelling_correction_fallback", true, 0)
	require.False(t, s.IsEnabled("spelling_correction_fallback", "tenant-1", true))
}

func TestIsEnabled_OverrideDoesNotLeakAcrossTenants(t *testing.T) {
	s := New()
	s.SetFlag("tenant-1", "multi_provider_routing", false, 100)
	require.False(t, s.IsEnabled("multi_provider_routing", "tenant-1", true))
	require.True(t, s.IsEnabled("multi_provider_routing", "tenant-2", true))
}

func TestSetFlag_InvalidatesCachedDecision(t *testing.T) {
	s := New()
	s.SetFlag("tenant-1", "multi_provider_routing", true, 100)
	require.True(t, s.IsEnabled("multi_provider_routing", "tenant-1", false))

	s.SetFlag("tenant-1", "multi_provider_routing", false, 100)
	require.False(t, s.IsEnabled("multi_provider_routing", "tenant-1", true))
}

func TestAllFlags_MergesDefaultsAndOverrides(t *testing.T) {
	s := New()
	s.SetFlag("tenant-1", "source_attribution", false, 0)

	flags := s.AllFlags("tenant-1")
	require.False(t, flags["source_attribution"].Enabled)
	require.True(t, flags["multi_provider_routing"].Enabled)
}
