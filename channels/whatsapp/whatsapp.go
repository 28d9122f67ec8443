// Package whatsapp implements channels.ChatChannel over a Baileys-style
// HTTP bridge, grounded on plugin/chat_apps/channels/whatsapp/bridge.go's
// BaileysBridgeClient (bridge URL + API key, JSON request/response) and
// plugin/chat_apps/channels/base.go's webhook verification step,
// specialised to spec.md §6's single send()/ValidateWebhook contract and
// §7's transient/permanent provider error taxonomy (the teacher's bridge
// client returns bare errors; here every failure is tagged via ai/errs
// so scheduler.Poller and the orchestrator can branch on retryability).
package whatsapp

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/conversagent/core/ai/errs"
	"github.com/conversagent/core/channels"
)

// SigningSecretEnv names the per-process webhook-signing secret
// environment variable from spec.md §4 ("a per-process secret for
// webhook signing") — the secret is process-wide, not per-tenant, so it
// is supplied at construction rather than read from tenant credentials.
const SigningSecretEnv = "AGENTCORE_WEBHOOK_SECRET"

// Channel sends/receives WhatsApp messages through a Baileys bridge.
// Credentials per tenant (bridge URL, bridge API key) are passed per
// call rather than held on the struct, since a single process serves
// many tenants' bridges.
type Channel struct {
	httpClient    *http.Client
	signingSecret []byte
}

func New(signingSecret string) *Channel {
	return &Channel{
		httpClient:    &http.Client{},
		signingSecret: []byte(signingSecret),
	}
}

func (c *Channel) Name() string { return "whatsapp" }

// bridgeSendRequest mirrors the teacher's SendMessageRequest, narrowed
// to the fields this adapter populates from an OutboundPayload.
type bridgeSendRequest struct {
	JID      string               `json:"jid"`
	Type     string               `json:"type"`
	Content  string               `json:"content,omitempty"`
	Buttons  []channels.ButtonOption `json:"buttons,omitempty"`
	Sections []channels.ListSection  `json:"sections,omitempty"`
	ListTitle string              `json:"list_title,omitempty"`
	CardTitle string              `json:"card_title,omitempty"`
	MediaURL  string              `json:"media_url,omitempty"`
}

type bridgeSendResponse struct {
	MessageID string `json:"message_id"`
	Accepted  bool   `json:"accepted"`
}

// Send posts payload to the tenant's Baileys bridge. credentials must
// carry "bridge_url" and may carry "bridge_api_key".
func (c *Channel) Send(ctx context.Context, credentials map[string]string, payload channels.OutboundPayload) (channels.SendResult, error) {
	bridgeURL := credentials["bridge_url"]
	if bridgeURL == "" {
		return channels.SendResult{}, errs.New(errs.KindPermanentProvider, http.StatusBadGateway, "whatsapp: no bridge_url configured for tenant", nil)
	}

	req := bridgeSendRequest{
		JID:       payload.To,
		Type:      string(payload.Kind),
		Content:   payload.Text,
		Buttons:   payload.Buttons,
		Sections:  payload.Sections,
		ListTitle: payload.ListTitle,
		CardTitle: payload.CardTitle,
		MediaURL:  payload.MediaURL,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return channels.SendResult{}, errs.New(errs.KindPermanentProvider, http.StatusInternalServerError, "whatsapp: failed to encode send request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, bridgeURL+"/send", bytes.NewReader(body))
	if err != nil {
		return channels.SendResult{}, errs.New(errs.KindPermanentProvider, http.StatusInternalServerError, "whatsapp: failed to build send request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if key := credentials["bridge_api_key"]; key != "" {
		httpReq.Header.Set("x-bridge-api-key", key)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return channels.SendResult{}, errs.New(errs.KindTransientProvider, http.StatusBadGateway, "whatsapp: bridge unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return channels.SendResult{}, errs.New(errs.KindTransientProvider, resp.StatusCode, "whatsapp: bridge returned a server error", nil)
	}
	if resp.StatusCode != http.StatusOK {
		return channels.SendResult{}, errs.New(errs.KindPermanentProvider, resp.StatusCode, fmt.Sprintf("whatsapp: bridge rejected send (status %d)", resp.StatusCode), nil)
	}

	var parsed bridgeSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return channels.SendResult{}, errs.New(errs.KindTransientProvider, http.StatusBadGateway, "whatsapp: could not parse bridge response", err)
	}
	return channels.SendResult{ProviderMessageID: parsed.MessageID, Accepted: parsed.Accepted}, nil
}

// ValidateWebhook checks the bridge's HMAC-SHA256 signature header
// against the process-wide signing secret.
func (c *Channel) ValidateWebhook(ctx context.Context, credentials map[string]string, headers map[string]string, body []byte) error {
	if len(c.signingSecret) == 0 {
		return nil
	}
	sig := headers["X-Bridge-Signature"]
	if sig == "" {
		return fmt.Errorf("whatsapp: missing signature header")
	}
	mac := hmac.New(sha256.New, c.signingSecret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return fmt.Errorf("whatsapp: signature mismatch")
	}
	return nil
}

// webhookPayload mirrors the teacher's WhatsAppMessage shape.
type webhookPayload struct {
	Key struct {
		RemoteJID string `json:"remoteJid"`
		FromMe    bool   `json:"fromMe"`
		ID        string `json:"id"`
	} `json:"key"`
	Message struct {
		Conversation string `json:"conversation"`
	} `json:"message"`
}

func (c *Channel) ParseWebhook(ctx context.Context, tenantID string, body []byte) (*channels.InboundEvent, error) {
	var wa webhookPayload
	if err := json.Unmarshal(body, &wa); err != nil {
		return nil, channels.ErrInvalidPayload
	}
	return &channels.InboundEvent{
		TenantID:        tenantID,
		PlatformUserID:  wa.Key.RemoteJID,
		PlatformChatID:  wa.Key.RemoteJID,
		Text:            wa.Message.Conversation,
		ProviderEventID: wa.Key.ID,
	}, nil
}

var _ channels.ChatChannel = (*Channel)(nil)
