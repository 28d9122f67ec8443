// Package channels defines the outbound/inbound contract a messaging
// platform adapter implements, per spec.md §6. Grounded directly on
// plugin/chat_apps/channels/base.go's ChatChannel/ChannelRouter/
// ChannelError shape, narrowed to the payload variants spec.md §6
// actually names (plain text, button, list, media card) and re-themed
// from a generic multi-platform router into the single outbound
// Gateway/inbound webhook contract this spec's core consumes — the core
// never encodes the channel wire format itself.
package channels

import (
	"context"
	"sync"
)

// PayloadKind names one of the outbound payload variants spec.md §6
// enumerates.
type PayloadKind string

const (
	PayloadText   PayloadKind = "text"
	PayloadButton PayloadKind = "button"
	PayloadList   PayloadKind = "list"
	PayloadCard   PayloadKind = "card"
)

// ButtonOption is one quick-reply choice in a PayloadButton message.
type ButtonOption struct {
	Label   string
	Payload string
}

// ListRow is one row within a ListSection.
type ListRow struct {
	Title    string
	Subtitle string
}

// ListSection groups rows under a heading in a PayloadList message.
type ListSection struct {
	Title string
	Rows  []ListRow
}

// OutboundPayload is the channel-agnostic message the core hands to a
// ChatChannel. Exactly one of the variant-specific fields is populated,
// selected by Kind; Text is always set as the accessible fallback body.
type OutboundPayload struct {
	Kind       PayloadKind
	To         string
	Text       string
	Buttons    []ButtonOption // PayloadButton, <= 3 per spec.md §6
	ListTitle  string
	ListBody   string
	Sections   []ListSection // PayloadList
	CardTitle  string
	CardCaption string
	MediaURL   string // PayloadCard
}

// SendResult is what a successful or rejected send reports back.
type SendResult struct {
	ProviderMessageID string
	Accepted          bool
}

// InboundEvent is a verified inbound message the gateway delivered to
// the webhook endpoint, handed up to the ingress pool for harmonization.
type InboundEvent struct {
	TenantID       string
	PlatformUserID string
	PlatformChatID string
	Text           string
	MediaURL       string
	ProviderEventID string
}

// ChatChannel is the single function send(tenant_credentials, to,
// payload) contract from spec.md §6, plus the webhook verification/parse
// steps needed to accept inbound events.
type ChatChannel interface {
	// Name identifies the platform this channel speaks (e.g. "whatsapp").
	Name() string

	// Send transmits payload, returning a transient or permanent
	// *errs.Error on failure (ai/errs.KindTransientProvider /
	// KindPermanentProvider), never a bare error, so callers such as
	// scheduler.Poller can branch on retryability.
	Send(ctx context.Context, credentials map[string]string, payload OutboundPayload) (SendResult, error)

	// ValidateWebhook verifies an inbound webhook request's signature.
	// A failure here is always treated as 401 and the event dropped,
	// per spec.md §6's "signature failure as 401".
	ValidateWebhook(ctx context.Context, credentials map[string]string, headers map[string]string, body []byte) error

	// ParseWebhook parses a verified webhook body into an InboundEvent.
	ParseWebhook(ctx context.Context, tenantID string, body []byte) (*InboundEvent, error)
}

// Router dispatches outbound sends and inbound webhooks to the
// registered channel for a platform. Concurrent-safe for Register/Get.
type Router struct {
	mu       sync.RWMutex
	channels map[string]ChatChannel
}

func NewRouter() *Router {
	return &Router{channels: make(map[string]ChatChannel)}
}

// Register adds (or replaces) the channel for its platform name.
func (r *Router) Register(ch ChatChannel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channels == nil {
		r.channels = make(map[string]ChatChannel)
	}
	r.channels[ch.Name()] = ch
}

// Get returns the channel registered for platform, or nil.
func (r *Router) Get(platform string) ChatChannel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channels[platform]
}

// Send resolves platform's channel and sends payload through it.
func (r *Router) Send(ctx context.Context, platform string, credentials map[string]string, payload OutboundPayload) (SendResult, error) {
	ch := r.Get(platform)
	if ch == nil {
		return SendResult{}, ErrNoChannelForPlatform
	}
	return ch.Send(ctx, credentials, payload)
}

// HandleWebhook verifies and parses an inbound webhook for platform.
func (r *Router) HandleWebhook(ctx context.Context, platform, tenantID string, credentials map[string]string, headers map[string]string, body []byte) (*InboundEvent, error) {
	ch := r.Get(platform)
	if ch == nil {
		return nil, ErrNoChannelForPlatform
	}
	if err := ch.ValidateWebhook(ctx, credentials, headers, body); err != nil {
		return nil, ErrSignatureInvalid
	}
	return ch.ParseWebhook(ctx, tenantID, body)
}
