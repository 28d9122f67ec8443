package main

import (
	"context"

	"github.com/conversagent/core/ai/errs"
	"github.com/conversagent/core/channels"
	"github.com/conversagent/core/store"
)

// channelGateway adapts channels.Router's credentialed, typed-payload
// Send to scheduler.Gateway's plain-text contract: scheduler.Poller only
// ever sends rendered template text, never rich messages, so a plain
// OutboundPayload{Kind: PayloadText} is always correct here.
type channelGateway struct {
	store    *store.Store
	channels *channels.Router
	platform string
}

func newChannelGateway(st *store.Store, ch *channels.Router, platform string) *channelGateway {
	return &channelGateway{store: st, channels: ch, platform: platform}
}

func (g *channelGateway) Send(ctx context.Context, tenantID, to, payload string) (string, bool, error) {
	tenant, err := g.store.GetTenantCached(ctx, tenantID)
	if err != nil {
		return "", false, errs.PermanentProvider("unknown tenant for scheduled send", err)
	}

	result, err := g.channels.Send(ctx, g.platform, tenant.ChannelCredentials, channels.OutboundPayload{
		Kind: channels.PayloadText,
		To:   to,
		Text: payload,
	})
	if err != nil {
		return "", false, err
	}
	return result.ProviderMessageID, result.Accepted, nil
}
