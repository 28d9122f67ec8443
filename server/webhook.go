package server

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/conversagent/core/ai/errs"
	"github.com/conversagent/core/store"
)

// handleWebhook accepts an inbound channel event at
// /webhooks/:platform/:channel_identity. The channel identity in the
// path (the tenant's registered WhatsApp business number, Telegram bot
// id, etc.) resolves the owning tenant directly via
// store.FindTenant.ChannelIdentity, per spec.md §4.1's "for channel
// webhooks [the tenant] is the tenant whose channel identity owns the
// destination address." The tenant is looked up first so its channel
// credentials can be passed to signature verification; a signature
// failure is always a 401 and the event is dropped without touching any
// tenant state.
func (s *Server) handleWebhook(c echo.Context) error {
	platform := c.Param("platform")
	channelIdentity := c.Param("channel_identity")

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return errs.InputInvalid("could not read webhook body", err)
	}

	ch := s.channels.Get(platform)
	if ch == nil {
		return errs.NotFound("no channel registered for platform")
	}

	t, err := s.store.GetTenant(c.Request().Context(), &store.FindTenant{ChannelIdentity: &channelIdentity})
	if err != nil {
		return errs.NotFound("unknown tenant channel identity")
	}

	headers := map[string]string{}
	for k := range c.Request().Header {
		headers[k] = c.Request().Header.Get(k)
	}

	if err := ch.ValidateWebhook(c.Request().Context(), t.ChannelCredentials, headers, body); err != nil {
		return errs.SignatureInvalid("webhook signature validation failed")
	}

	event, err := ch.ParseWebhook(c.Request().Context(), t.ID, body)
	if err != nil {
		return errs.InputInvalid("could not parse webhook payload", err)
	}

	// Handing the parsed event to the ingress pool (per-conversation
	// queue, harmonizer, agent pipeline) is the caller's job — this
	// handler's only responsibility is verified extraction. cmd wires
	// the ingress pool as the InboundHandler passed via Config.
	if s.onInbound != nil {
		if err := s.onInbound(c.Request().Context(), event); err != nil {
			return err
		}
	}

	return c.NoContent(http.StatusOK)
}
