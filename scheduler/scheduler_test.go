package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conversagent/core/ai/errs"
	"github.com/conversagent/core/store"
)

type fakeSchedulerDriver struct {
	store.Driver

	tenant   *store.Tenant
	prefs    *store.CustomerPreferences
	customer *store.Customer

	transitioned  bool
	claimOK       bool
	failedReason  string
	rescheduledAt *time.Time
	sentMessageID string
	appendedMsg   *store.AppendMessage
	conversations []*store.Conversation
}

func (f *fakeSchedulerDriver) GetTenant(ctx context.Context, find *store.FindTenant) (*store.Tenant, error) {
	return f.tenant, nil
}

func (f *fakeSchedulerDriver) GetCustomerPreferences(ctx context.Context, tenantID, customerID string) (*store.CustomerPreferences, error) {
	return f.prefs, nil
}

func (f *fakeSchedulerDriver) FindCustomer(ctx context.Context, find *store.FindCustomer) (*store.Customer, error) {
	if f.customer != nil {
		return f.customer, nil
	}
	return &store.Customer{ID: *find.ID, TenantID: find.TenantID, Phone: "+1555" + *find.ID}, nil
}

func (f *fakeSchedulerDriver) RescheduleMessage(ctx context.Context, tenantID, id string, newTime time.Time) error {
	f.rescheduledAt = &newTime
	return nil
}

func (f *fakeSchedulerDriver) MarkScheduledMessageFailed(ctx context.Context, tenantID, id, errMsg string) error {
	f.failedReason = errMsg
	return nil
}

func (f *fakeSchedulerDriver) MarkScheduledMessageSent(ctx context.Context, tenantID, id, messageID string, sentAt time.Time) error {
	f.sentMessageID = messageID
	return nil
}

func (f *fakeSchedulerDriver) TransitionScheduledMessage(ctx context.Context, tenantID, id string, from, to store.ScheduledMessageStatus) (bool, error) {
	f.transitioned = true
	return f.claimOK, nil
}

func (f *fakeSchedulerDriver) ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	return f.conversations, nil
}

func (f *fakeSchedulerDriver) CreateConversation(ctx context.Context, create *store.CreateConversation) (*store.Conversation, error) {
	return &store.Conversation{ID: "conv-new", TenantID: create.TenantID, CustomerID: create.CustomerID}, nil
}

func (f *fakeSchedulerDriver) AppendMessage(ctx context.Context, append *store.AppendMessage) (*store.Message, error) {
	f.appendedMsg = append
	return &store.Message{ID: "msg-1"}, nil
}

type fakeGateway struct {
	accepted bool
	err      error
	id       string
}

func (g *fakeGateway) Send(ctx context.Context, tenantID, to, payload string) (string, bool, error) {
	return g.id, g.accepted, g.err
}

func newTestPoller(driver *fakeSchedulerDriver, gw Gateway) *Poller {
	st := store.New(driver, nil)
	return NewPoller(st, gw, nil)
}

func baseTenant() *store.Tenant {
	return &store.Tenant{ID: "t1"}
}

func TestDispatch_ConsentFailureMarksFailed(t *testing.T) {
	driver := &fakeSchedulerDriver{
		tenant: baseTenant(),
		prefs:  &store.CustomerPreferences{PromotionalEnabled: false},
	}
	p := newTestPoller(driver, &fakeGateway{accepted: true})
	msg := &store.ScheduledMessage{TenantID: "t1", CustomerID: "c1", MessageType: store.MessageScheduledPromotional}

	err := p.dispatch(context.Background(), msg, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, driver.failedReason)
	require.False(t, driver.transitioned)
}

func TestDispatch_QuietHoursReschedules(t *testing.T) {
	tenant := baseTenant()
	tenant.QuietHoursStart = "00:00"
	tenant.QuietHoursEnd = "23:59"
	driver := &fakeSchedulerDriver{tenant: tenant, prefs: &store.CustomerPreferences{ReminderEnabled: true}}
	p := newTestPoller(driver, &fakeGateway{accepted: true})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &store.ScheduledMessage{TenantID: "t1", CustomerID: "c1", MessageType: store.MessageAutomatedReminder}

	err := p.dispatch(context.Background(), msg, now)
	require.NoError(t, err)
	require.NotNil(t, driver.rescheduledAt)
	require.False(t, driver.transitioned)
}

func TestDispatch_TransactionalBypassesQuietHours(t *testing.T) {
	tenant := baseTenant()
	tenant.QuietHoursStart = "00:00"
	tenant.QuietHoursEnd = "23:59"
	driver := &fakeSchedulerDriver{tenant: tenant, claimOK: true}
	p := newTestPoller(driver, &fakeGateway{accepted: true, id: "prov-1"})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &store.ScheduledMessage{TenantID: "t1", CustomerID: "c1", MessageType: store.MessageAutomatedTransactional, Content: "your order shipped"}

	err := p.dispatch(context.Background(), msg, now)
	require.NoError(t, err)
	require.Nil(t, driver.rescheduledAt)
	require.Equal(t, "msg-1", driver.sentMessageID)
	require.NotNil(t, driver.appendedMsg)
	require.Equal(t, store.DirectionOut, driver.appendedMsg.Direction)
}

func TestDispatch_NotClaimedStopsEarly(t *testing.T) {
	driver := &fakeSchedulerDriver{tenant: baseTenant(), claimOK: false}
	p := newTestPoller(driver, &fakeGateway{accepted: true})
	msg := &store.ScheduledMessage{TenantID: "t1", CustomerID: "c1", MessageType: store.MessageAutomatedTransactional, Content: "hi"}

	err := p.dispatch(context.Background(), msg, time.Now())
	require.NoError(t, err)
	require.Empty(t, driver.sentMessageID)
	require.Empty(t, driver.failedReason)
}

func TestDispatch_TransientGatewayErrorReschedules(t *testing.T) {
	driver := &fakeSchedulerDriver{tenant: baseTenant(), claimOK: true}
	gw := &fakeGateway{err: errs.New(errs.KindTransientProvider, 503, "provider down", nil)}
	p := newTestPoller(driver, gw)
	msg := &store.ScheduledMessage{TenantID: "t1", CustomerID: "c1", MessageType: store.MessageAutomatedTransactional, Content: "hi"}

	err := p.dispatch(context.Background(), msg, time.Now())
	require.NoError(t, err)
	require.NotNil(t, driver.rescheduledAt)
	require.Empty(t, driver.failedReason)
}

func TestDispatch_PermanentGatewayErrorMarksFailed(t *testing.T) {
	driver := &fakeSchedulerDriver{tenant: baseTenant(), claimOK: true}
	gw := &fakeGateway{err: errs.New(errs.KindPermanentProvider, 400, "bad number", nil)}
	p := newTestPoller(driver, gw)
	msg := &store.ScheduledMessage{TenantID: "t1", CustomerID: "c1", MessageType: store.MessageAutomatedTransactional, Content: "hi"}

	err := p.dispatch(context.Background(), msg, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, driver.failedReason)
	require.Nil(t, driver.rescheduledAt)
}

func TestDispatch_GatewayNotAcceptedMarksFailed(t *testing.T) {
	driver := &fakeSchedulerDriver{tenant: baseTenant(), claimOK: true}
	gw := &fakeGateway{accepted: false}
	p := newTestPoller(driver, gw)
	msg := &store.ScheduledMessage{TenantID: "t1", CustomerID: "c1", MessageType: store.MessageAutomatedTransactional, Content: "hi"}

	err := p.dispatch(context.Background(), msg, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, driver.failedReason)
}

func TestDispatch_ResolvesExistingConversation(t *testing.T) {
	driver := &fakeSchedulerDriver{
		tenant:        baseTenant(),
		claimOK:       true,
		conversations: []*store.Conversation{{ID: "conv-existing"}},
	}
	p := newTestPoller(driver, &fakeGateway{accepted: true, id: "prov-1"})
	msg := &store.ScheduledMessage{TenantID: "t1", CustomerID: "c1", MessageType: store.MessageAutomatedTransactional, Content: "hi"}

	err := p.dispatch(context.Background(), msg, time.Now())
	require.NoError(t, err)
	require.Equal(t, "conv-existing", driver.appendedMsg.ConversationID)
}
