package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conversagent/core/store"
)

func TestInQuietHours_NonWrappingWindow(t *testing.T) {
	tenant := &store.Tenant{QuietHoursStart: "13:00", QuietHoursEnd: "15:00"}
	inside := time.Date(2026, 1, 1, 14, 0, 0, 0, time.UTC)
	outside := time.Date(2026, 1, 1, 16, 0, 0, 0, time.UTC)
	require.True(t, inQuietHours(tenant, inside))
	require.False(t, inQuietHours(tenant, outside))
}

func TestInQuietHours_WrappingWindow(t *testing.T) {
	tenant := &store.Tenant{QuietHoursStart: "22:00", QuietHoursEnd: "07:00"}
	lateNight := time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)
	earlyMorning := time.Date(2026, 1, 1, 5, 0, 0, 0, time.UTC)
	midday := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	require.True(t, inQuietHours(tenant, lateNight))
	require.True(t, inQuietHours(tenant, earlyMorning))
	require.False(t, inQuietHours(tenant, midday))
}

func TestInQuietHours_UnsetWindowNeverGates(t *testing.T) {
	tenant := &store.Tenant{}
	require.False(t, inQuietHours(tenant, time.Now()))
}

func TestNextQuietHoursBoundary_SameDay(t *testing.T) {
	tenant := &store.Tenant{QuietHoursStart: "22:00", QuietHoursEnd: "07:00"}
	now := time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC)
	next := nextQuietHoursBoundary(tenant, now)
	require.Equal(t, 7, next.Hour())
	require.Equal(t, 1, next.Day())
}
