package scheduler

import (
	"context"

	"github.com/conversagent/core/store"
)

// checkConsent re-checks consent for msg's kind against the customer's
// current CustomerPreferences, per spec.md §4.13: transactional bypasses
// consent entirely, reminder bypasses promotional opt-in but requires
// the customer's reminder consent (ReminderEnabled), and promotional
// and re-engagement messages require explicit promotional opt-in.
func checkConsent(ctx context.Context, st *store.Store, msg *store.ScheduledMessage) (allowed bool, failureReason string) {
	if msg.MessageType == store.MessageAutomatedTransactional {
		return true, ""
	}

	prefs, err := st.GetCustomerPreferences(ctx, msg.TenantID, msg.CustomerID)
	if err != nil {
		return false, "no_consent: failed to load preferences"
	}

	switch msg.MessageType {
	case store.MessageAutomatedReminder:
		if !prefs.ReminderEnabled {
			return false, "no_consent: reminders disabled"
		}
		return true, ""
	case store.MessageScheduledPromotional, store.MessageAutomatedReengagement:
		if !prefs.PromotionalEnabled {
			return false, "no_consent: promotional opt-in not granted"
		}
		return true, ""
	default:
		return true, ""
	}
}
