package context

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conversagent/core/ai/catalog"
	"github.com/conversagent/core/ai/knowledge"
	"github.com/conversagent/core/store"
)

type fakeBuilderDriver struct {
	store.Driver

	messages []*store.Message
	convCtx  *store.ConversationContext
	products []*store.Product
	services []*store.Service
}

func (f *fakeBuilderDriver) ListRecentMessages(ctx context.Context, find *store.FindMessages) ([]*store.Message, error) {
	return f.messages, nil
}

func (f *fakeBuilderDriver) GetConversationContext(ctx context.Context, tenantID, conversationID string) (*store.ConversationContext, error) {
	return f.convCtx, nil
}

func (f *fakeBuilderDriver) UpsertConversationContext(ctx context.Context, upsert *store.UpsertConversationContext) (*store.ConversationContext, error) {
	f.convCtx = upsert.Context
	return upsert.Context, nil
}

func (f *fakeBuilderDriver) SearchKnowledge(ctx context.Context, tenantID string, queryEmbedding []float32, kinds []store.KnowledgeKind, limit int, minSimilarity float64) ([]store.KnowledgeMatch, error) {
	return nil, nil
}

func (f *fakeBuilderDriver) ListProducts(ctx context.Context, filter *store.CatalogFilter) ([]*store.Product, error) {
	return f.products, nil
}

func (f *fakeBuilderDriver) ListServices(ctx context.Context, filter *store.CatalogFilter) ([]*store.Service, error) {
	return f.services, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func TestBuilder_Build_AssemblesAllSections(t *testing.T) {
	driver := &fakeBuilderDriver{
		messages: []*store.Message{{Text: "hello"}, {Text: "hi there"}},
		products: []*store.Product{{ID: "p1", Name: "Widget"}},
		services: []*store.Service{{ID: "s1", Name: "Install"}},
	}
	st := store.New(driver, nil)
	ks := knowledge.NewService(st, fakeEmbedder{})
	cat := catalog.NewReader(st, 10, time.Minute)
	builder := NewBuilder(st, ks, cat)

	got, err := builder.Build(context.Background(), Request{
		TenantID:       "t1",
		ConversationID: "c1",
		CurrentMessage: "how much is the widget?",
		Filter:         &store.CatalogFilter{TenantID: "t1"},
	})
	require.NoError(t, err)
	require.Len(t, got.RecentMessages, 2)
	require.Len(t, got.Products, 1)
	require.Len(t, got.Services, 1)
	require.NotNil(t, got.Conversation)
	require.False(t, got.Truncated)
}

func TestBuilder_Build_SmallBudgetTruncates(t *testing.T) {
	messages := make([]*store.Message, 10)
	for i := range messages {
		messages[i] = &store.Message{Text: "this is a fairly long message body to push past budget"}
	}
	driver := &fakeBuilderDriver{messages: messages}
	st := store.New(driver, nil)
	ks := knowledge.NewService(st, fakeEmbedder{})
	cat := catalog.NewReader(st, 10, time.Minute)
	builder := NewBuilder(st, ks, cat)

	got, err := builder.Build(context.Background(), Request{
		TenantID:       "t1",
		ConversationID: "c1",
		CurrentMessage: "hi",
		TokenBudget:    5,
	})
	require.NoError(t, err)
	require.True(t, got.Truncated)
	require.LessOrEqual(t, len(got.RecentMessages), 5)
}
