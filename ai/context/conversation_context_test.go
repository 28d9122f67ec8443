package context

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conversagent/core/store"
)

type fakeContextDriver struct {
	store.Driver

	existing *store.ConversationContext
	upserted *store.ConversationContext
}

func (f *fakeContextDriver) GetConversationContext(ctx context.Context, tenantID, conversationID string) (*store.ConversationContext, error) {
	return f.existing, nil
}

func (f *fakeContextDriver) UpsertConversationContext(ctx context.Context, upsert *store.UpsertConversationContext) (*store.ConversationContext, error) {
	f.upserted = upsert.Context
	return upsert.Context, nil
}

func TestLoadOrCreate_NoExistingRecordCreatesFresh(t *testing.T) {
	driver := &fakeContextDriver{}
	st := store.New(driver, nil)
	now := time.Now()

	got, err := LoadOrCreate(context.Background(), st, "t1", "c1", now)
	require.NoError(t, err)
	require.Equal(t, "c1", got.ConversationID)
	require.Equal(t, now.Add(DefaultExpiryExtension), got.ExpiresAt)
}

func TestLoadOrCreate_ExpiredRecordPreservesKeyFacts(t *testing.T) {
	now := time.Now()
	driver := &fakeContextDriver{existing: &store.ConversationContext{
		ConversationID:    "c1",
		TenantID:          "t1",
		KeyFacts:          []string{"likes blue"},
		Summary:           "stale summary",
		LastProductViewed: "p1",
		ExpiresAt:         now.Add(-time.Minute),
	}}
	st := store.New(driver, nil)

	got, err := LoadOrCreate(context.Background(), st, "t1", "c1", now)
	require.NoError(t, err)
	require.Equal(t, []string{"likes blue"}, got.KeyFacts)
	require.Empty(t, got.Summary)
	require.Empty(t, got.LastProductViewed)
}

func TestLoadOrCreate_LiveRecordExtendsExpiryWithoutClearing(t *testing.T) {
	now := time.Now()
	driver := &fakeContextDriver{existing: &store.ConversationContext{
		ConversationID: "c1",
		TenantID:       "t1",
		Summary:        "fresh summary",
		ExpiresAt:      now.Add(10 * time.Minute),
	}}
	st := store.New(driver, nil)

	got, err := LoadOrCreate(context.Background(), st, "t1", "c1", now)
	require.NoError(t, err)
	require.Equal(t, "fresh summary", got.Summary)
	require.Equal(t, now.Add(DefaultExpiryExtension), got.ExpiresAt)
}
