package scheduler

import (
	"time"

	"github.com/conversagent/core/store"
)

// inQuietHours reports whether now falls within tenant's configured
// quiet-hours window. Both bounds are "HH:MM" wall-clock strings
// (store.Tenant.QuietHoursStart/End); an unset or unparsable window
// never gates delivery. The window may wrap midnight (e.g. 22:00 to
// 07:00).
func inQuietHours(tenant *store.Tenant, now time.Time) bool {
	if tenant == nil || tenant.QuietHoursStart == "" || tenant.QuietHoursEnd == "" {
		return false
	}
	start, ok := parseClock(tenant.QuietHoursStart)
	if !ok {
		return false
	}
	end, ok := parseClock(tenant.QuietHoursEnd)
	if !ok {
		return false
	}
	cur := clockMinutes(now)
	if start <= end {
		return cur >= start && cur < end
	}
	return cur >= start || cur < end
}

// nextQuietHoursBoundary returns the next instant at or after now when
// tenant's quiet hours end, so a rescheduled message is retried right
// as the window closes.
func nextQuietHoursBoundary(tenant *store.Tenant, now time.Time) time.Time {
	end, ok := parseClock(tenant.QuietHoursEnd)
	if !ok {
		return now.Add(time.Hour)
	}
	endHour, endMin := end/60, end%60
	candidate := time.Date(now.Year(), now.Month(), now.Day(), endHour, endMin, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = candidate.Add(24 * time.Hour)
	}
	return candidate
}

func clockMinutes(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func parseClock(s string) (int, bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
