// Package scheduler polls due ScheduledMessages and dispatches them
// through the channel gateway, per spec.md §4.13. Grounded on
// server/service/schedule/interface.go's Service/request shape
// (re-themed from calendar reminders to ScheduledMessage/
// MessageCampaign) and on the teacher's plugin/cron use of a
// logger-injected poll loop, reimplemented here with a plain
// time.Ticker since no cron-expression library is part of this
// module's dependency set.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/conversagent/core/ai/errs"
	"github.com/conversagent/core/store"
)

// DefaultPollInterval is the due-time poll cadence, per spec.md §4.13.
const DefaultPollInterval = 30 * time.Second

// Gateway is the outbound channel send contract from spec.md §6: a
// single send function returning a provider message id and accepted
// status, or a transient/permanent *errs.Error.
type Gateway interface {
	Send(ctx context.Context, tenantID, to, payload string) (providerMessageID string, accepted bool, err error)
}

// Poller drives ScheduledMessage dispatch on a fixed cadence.
type Poller struct {
	store    *store.Store
	gateway  Gateway
	log      *slog.Logger
	interval time.Duration
	batch    int
}

func NewPoller(st *store.Store, gateway Gateway, log *slog.Logger) *Poller {
	if log == nil {
		log = slog.Default()
	}
	return &Poller{store: st, gateway: gateway, log: log, interval: DefaultPollInterval, batch: 100}
}

func (p *Poller) WithInterval(d time.Duration) *Poller {
	p.interval = d
	return p
}

// Run blocks, dispatching due messages every interval until ctx is
// cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.PollOnce(ctx); err != nil {
				p.log.Error("scheduler poll failed", "error", err)
			}
		}
	}
}

// PollOnce lists due ScheduledMessages and dispatches each. Errors
// dispatching one message are logged and do not stop the batch.
func (p *Poller) PollOnce(ctx context.Context) error {
	now := time.Now()
	due, err := p.store.ListDueScheduledMessages(ctx, &store.FindDueScheduledMessages{Now: now, Limit: p.batch})
	if err != nil {
		return err
	}
	for _, msg := range due {
		if err := p.dispatch(ctx, msg, now); err != nil {
			p.log.Error("scheduled message dispatch failed", "id", msg.ID, "error", err)
		}
	}
	return nil
}

// dispatch re-checks consent and quiet hours, claims the message via a
// conditional pending→processing transition (at-most-one delivery
// under concurrent pollers), renders its template, and submits it
// through the gateway.
func (p *Poller) dispatch(ctx context.Context, msg *store.ScheduledMessage, now time.Time) error {
	tenant, err := p.store.GetTenantCached(ctx, msg.TenantID)
	if err != nil {
		return err
	}

	if msg.CustomerID != "" {
		allowed, reason := checkConsent(ctx, p.store, msg)
		if !allowed {
			return p.store.MarkScheduledMessageFailed(ctx, msg.TenantID, msg.ID, reason)
		}
	}

	if inQuietHours(tenant, now) && !bypassesQuietHours(msg.MessageType) {
		next := nextQuietHoursBoundary(tenant, now)
		return p.store.RescheduleMessage(ctx, msg.TenantID, msg.ID, next)
	}

	claimed, err := p.store.TransitionScheduledMessage(ctx, msg.TenantID, msg.ID, store.ScheduledPending, store.ScheduledProcessing)
	if err != nil {
		return err
	}
	if !claimed {
		return nil // another poller already claimed it
	}

	content, err := Render(msg.Template, msg.TemplateContext, msg.Content)
	if err != nil {
		return p.store.MarkScheduledMessageFailed(ctx, msg.TenantID, msg.ID, "template render failed: "+err.Error())
	}

	customer, err := p.store.FindCustomer(ctx, &store.FindCustomer{TenantID: msg.TenantID, ID: &msg.CustomerID})
	if err != nil {
		return p.store.MarkScheduledMessageFailed(ctx, msg.TenantID, msg.ID, "customer lookup failed: "+err.Error())
	}

	providerMessageID, accepted, sendErr := p.gateway.Send(ctx, msg.TenantID, customer.Phone, content)
	if sendErr != nil {
		var apiErr *errs.Error
		if errors.As(sendErr, &apiErr) && apiErr.Kind == errs.KindTransientProvider {
			return p.store.RescheduleMessage(ctx, msg.TenantID, msg.ID, now.Add(time.Minute))
		}
		return p.store.MarkScheduledMessageFailed(ctx, msg.TenantID, msg.ID, sendErr.Error())
	}
	if !accepted {
		return p.store.MarkScheduledMessageFailed(ctx, msg.TenantID, msg.ID, "gateway did not accept message")
	}

	conversationID, err := p.resolveConversation(ctx, msg.TenantID, msg.CustomerID)
	if err != nil {
		return err
	}
	appended, err := p.store.AppendMessage(ctx, &store.AppendMessage{
		TenantID:          msg.TenantID,
		ConversationID:    conversationID,
		Direction:         store.DirectionOut,
		Type:              msg.MessageType,
		Text:              content,
		ProviderMessageID: providerMessageID,
	})
	if err != nil {
		return err
	}
	return p.store.MarkScheduledMessageSent(ctx, msg.TenantID, msg.ID, appended.ID, now)
}

// resolveConversation finds the customer's most recent conversation or
// opens a new one; a ScheduledMessage is not itself tied to a
// conversation (it may be a broadcast), so the outbound Message it
// produces attaches to whichever conversation the channel normally
// uses for this customer.
func (p *Poller) resolveConversation(ctx context.Context, tenantID, customerID string) (string, error) {
	existing, err := p.store.ListConversations(ctx, &store.FindConversation{TenantID: tenantID, CustomerID: &customerID, Limit: 1})
	if err != nil {
		return "", err
	}
	if len(existing) > 0 {
		return existing[0].ID, nil
	}
	created, err := p.store.CreateConversation(ctx, &store.CreateConversation{TenantID: tenantID, CustomerID: customerID})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func bypassesQuietHours(t store.MessageType) bool {
	return t == store.MessageAutomatedTransactional
}
