package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conversagent/core/store"
)

type fakeConsentDriver struct {
	store.Driver
	prefs *store.CustomerPreferences
	err   error
}

func (f *fakeConsentDriver) GetCustomerPreferences(ctx context.Context, tenantID, customerID string) (*store.CustomerPreferences, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.prefs, nil
}

func newConsentStore(prefs *store.CustomerPreferences) *store.Store {
	return store.New(&fakeConsentDriver{prefs: prefs}, nil)
}

func TestCheckConsent_TransactionalBypassesPreferences(t *testing.T) {
	st := newConsentStore(&store.CustomerPreferences{ReminderEnabled: false, PromotionalEnabled: false})
	msg := &store.ScheduledMessage{TenantID: "t1", CustomerID: "c1", MessageType: store.MessageAutomatedTransactional}
	allowed, _ := checkConsent(context.Background(), st, msg)
	require.True(t, allowed)
}

func TestCheckConsent_ReminderRequiresReminderEnabled(t *testing.T) {
	st := newConsentStore(&store.CustomerPreferences{ReminderEnabled: false})
	msg := &store.ScheduledMessage{TenantID: "t1", CustomerID: "c1", MessageType: store.MessageAutomatedReminder}
	allowed, reason := checkConsent(context.Background(), st, msg)
	require.False(t, allowed)
	require.NotEmpty(t, reason)

	st2 := newConsentStore(&store.CustomerPreferences{ReminderEnabled: true})
	allowed2, _ := checkConsent(context.Background(), st2, msg)
	require.True(t, allowed2)
}

func TestCheckConsent_PromotionalRequiresOptIn(t *testing.T) {
	st := newConsentStore(&store.CustomerPreferences{PromotionalEnabled: false})
	msg := &store.ScheduledMessage{TenantID: "t1", CustomerID: "c1", MessageType: store.MessageScheduledPromotional}
	allowed, _ := checkConsent(context.Background(), st, msg)
	require.False(t, allowed)

	st2 := newConsentStore(&store.CustomerPreferences{PromotionalEnabled: true})
	allowed2, _ := checkConsent(context.Background(), st2, msg)
	require.True(t, allowed2)
}

func TestCheckConsent_ReengagementRequiresPromotionalOptIn(t *testing.T) {
	st := newConsentStore(&store.CustomerPreferences{PromotionalEnabled: false})
	msg := &store.ScheduledMessage{TenantID: "t1", CustomerID: "c1", MessageType: store.MessageAutomatedReengagement}
	allowed, _ := checkConsent(context.Background(), st, msg)
	require.False(t, allowed)
}
