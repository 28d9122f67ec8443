package main

import (
	"context"

	"github.com/conversagent/core/ai/harmonizer"
	"github.com/conversagent/core/channels"
	"github.com/conversagent/core/store"
)

// ingress turns a verified channels.InboundEvent into a harmonized
// conversation turn: resolve-or-create the customer and their open
// conversation, append the inbound message, and enqueue it for
// burst-window batching. This is the "ingress pool" server.Config.OnInbound
// refers to; the harmonizer and orchestrator do the rest.
type ingress struct {
	store      *store.Store
	harmonizer *harmonizer.Harmonizer
	channel    string
}

func newIngress(st *store.Store, h *harmonizer.Harmonizer, channel string) *ingress {
	return &ingress{store: st, harmonizer: h, channel: channel}
}

func (i *ingress) Handle(ctx context.Context, event *channels.InboundEvent) error {
	customer, err := i.resolveCustomer(ctx, event.TenantID, event.PlatformUserID)
	if err != nil {
		return err
	}

	conversationID, err := i.resolveConversation(ctx, event.TenantID, customer.ID)
	if err != nil {
		return err
	}

	msg, err := i.store.AppendMessage(ctx, &store.AppendMessage{
		TenantID:          event.TenantID,
		ConversationID:    conversationID,
		Direction:         store.DirectionIn,
		Type:              store.MessageCustomerInbound,
		Text:              event.Text,
		ProviderMessageID: event.ProviderEventID,
	})
	if err != nil {
		return err
	}

	return i.harmonizer.Enqueue(ctx, event.TenantID, conversationID, msg.ID, event.Text)
}

func (i *ingress) resolveCustomer(ctx context.Context, tenantID, phone string) (*store.Customer, error) {
	existing, err := i.store.FindCustomer(ctx, &store.FindCustomer{TenantID: tenantID, Phone: &phone})
	if err == nil {
		return existing, nil
	}
	return i.store.CreateCustomer(ctx, &store.CreateCustomer{TenantID: tenantID, Phone: phone})
}

func (i *ingress) resolveConversation(ctx context.Context, tenantID, customerID string) (string, error) {
	existing, err := i.store.ListConversations(ctx, &store.FindConversation{TenantID: tenantID, CustomerID: &customerID, Limit: 1})
	if err != nil {
		return "", err
	}
	for _, c := range existing {
		if c.State != store.ConversationClosed {
			return c.ID, nil
		}
	}
	created, err := i.store.CreateConversation(ctx, &store.CreateConversation{
		TenantID:   tenantID,
		CustomerID: customerID,
		Channel:    i.channel,
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}
