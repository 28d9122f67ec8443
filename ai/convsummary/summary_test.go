package convsummary

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conversagent/core/ai/llmclient"
	"github.com/conversagent/core/store"
)

type fakeDriver struct {
	store.Driver

	messages []*store.Message
	context  *store.ConversationContext
	upserted *store.ConversationContext
}

func (f *fakeDriver) ListRecentMessages(ctx context.Context, find *store.FindMessages) ([]*store.Message, error) {
	return f.messages, nil
}

func (f *fakeDriver) GetConversationContext(ctx context.Context, tenantID, conversationID string) (*store.ConversationContext, error) {
	return f.context, nil
}

func (f *fakeDriver) UpsertConversationContext(ctx context.Context, upsert *store.UpsertConversationContext) (*store.ConversationContext, error) {
	f.upserted = upsert.Context
	return upsert.Context, nil
}

type chatStub struct {
	reply string
	err   error
}

func (s *chatStub) Generate(ctx context.Context, messages []llmclient.Message, model string, temperature float64, maxTokens int) (*llmclient.Result, error) {
	return &llmclient.Result{Content: s.reply}, s.err
}

func (s *chatStub) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}

func (s *chatStub) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func messagesAt(seqs ...int64) []*store.Message {
	out := make([]*store.Message, 0, len(seqs))
	for i, seq := range seqs {
		direction := store.DirectionIn
		if i%2 == 1 {
			direction = store.DirectionOut
		}
		out = append(out, &store.Message{Text: "hello", Direction: direction, Seq: seq})
	}
	return out
}

func TestMaybeSummarize_SkipsBelowThreshold(t *testing.T) {
	driver := &fakeDriver{messages: messagesAt(1, 2, 3)}
	st := store.New(driver, nil)
	g := NewGenerator(st, &chatStub{reply: "a summary"}).WithThreshold(5)

	g.MaybeSummarize(context.Background(), "t1", "c1")

	require.Nil(t, driver.upserted)
}

func TestMaybeSummarize_GeneratesAtThresholdMultiple(t *testing.T) {
	driver := &fakeDriver{
		messages: messagesAt(3, 4, 5),
		context:  &store.ConversationContext{ConversationID: "c1", TenantID: "t1"},
	}
	st := store.New(driver, nil)
	g := NewGenerator(st, &chatStub{reply: "customer asked about pricing"}).WithThreshold(5)

	g.MaybeSummarize(context.Background(), "t1", "c1")

	require.NotNil(t, driver.upserted)
	require.Equal(t, "customer asked about pricing", driver.upserted.Summary)
}

func TestMaybeSummarize_CreatesContextWhenMissing(t *testing.T) {
	driver := &fakeDriver{messages: messagesAt(5), context: nil}
	st := store.New(driver, nil)
	g := NewGenerator(st, &chatStub{reply: "fresh summary"}).WithThreshold(5)

	g.MaybeSummarize(context.Background(), "t1", "c1")

	require.NotNil(t, driver.upserted)
	require.Equal(t, "fresh summary", driver.upserted.Summary)
	require.Equal(t, "c1", driver.upserted.ConversationID)
}

func TestMaybeSummarize_SwallowsLLMError(t *testing.T) {
	driver := &fakeDriver{
		messages: messagesAt(5),
		context:  &store.ConversationContext{ConversationID: "c1", TenantID: "t1"},
	}
	st := store.New(driver, nil)
	g := NewGenerator(st, &chatStub{err: errors.New("provider down")}).WithThreshold(5)

	g.MaybeSummarize(context.Background(), "t1", "c1")

	require.Nil(t, driver.upserted)
}
