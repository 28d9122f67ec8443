package channels

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubChannel struct {
	name        string
	sendResult  SendResult
	sendErr     error
	validateErr error
	event       *InboundEvent
}

func (s *stubChannel) Name() string { return s.name }

func (s *stubChannel) Send(ctx context.Context, credentials map[string]string, payload OutboundPayload) (SendResult, error) {
	return s.sendResult, s.sendErr
}

func (s *stubChannel) ValidateWebhook(ctx context.Context, credentials map[string]string, headers map[string]string, body []byte) error {
	return s.validateErr
}

func (s *stubChannel) ParseWebhook(ctx context.Context, tenantID string, body []byte) (*InboundEvent, error) {
	return s.event, nil
}

func TestRouter_SendUnregisteredPlatformReturnsError(t *testing.T) {
	r := NewRouter()
	_, err := r.Send(context.Background(), "whatsapp", nil, OutboundPayload{})
	require.ErrorIs(t, err, ErrNoChannelForPlatform)
}

func TestRouter_SendDispatchesToRegisteredChannel(t *testing.T) {
	r := NewRouter()
	ch := &stubChannel{name: "whatsapp", sendResult: SendResult{ProviderMessageID: "m1", Accepted: true}}
	r.Register(ch)

	result, err := r.Send(context.Background(), "whatsapp", nil, OutboundPayload{Kind: PayloadText, Text: "hi"})
	require.NoError(t, err)
	require.Equal(t, "m1", result.ProviderMessageID)
}

func TestRouter_HandleWebhookRejectsBadSignature(t *testing.T) {
	r := NewRouter()
	ch := &stubChannel{name: "whatsapp", validateErr: require.AnError}
	r.Register(ch)

	_, err := r.HandleWebhook(context.Background(), "whatsapp", "t1", nil, nil, []byte("{}"))
	require.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestRouter_HandleWebhookParsesOnValidSignature(t *testing.T) {
	r := NewRouter()
	ch := &stubChannel{name: "whatsapp", event: &InboundEvent{TenantID: "t1", Text: "hello"}}
	r.Register(ch)

	event, err := r.HandleWebhook(context.Background(), "whatsapp", "t1", nil, nil, []byte("{}"))
	require.NoError(t, err)
	require.Equal(t, "hello", event.Text)
}
