package context

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/conversagent/core/store"
)

// DefaultExpiryExtension is how far LoadOrCreate pushes out a
// ConversationContext's expiry on every access, per spec.md §4.6.
const DefaultExpiryExtension = 30 * time.Minute

// LoadOrCreate fetches the conversation's persistent context. If none
// exists, or the stored one has expired, it creates a fresh record that
// preserves the expired record's key facts (everything else — summary,
// current topic, last viewed product/service — is cleared). Every
// access extends expiry by DefaultExpiryExtension. Grounded on the
// teacher's episodic_provider.go expiry-aware loading, narrowed from
// vector-similarity episode retrieval to a single per-conversation
// record.
func LoadOrCreate(ctx context.Context, st *store.Store, tenantID, conversationID string, now time.Time) (*store.ConversationContext, error) {
	existing, err := st.GetConversationContext(ctx, tenantID, conversationID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load conversation context")
	}

	var next *store.ConversationContext
	switch {
	case existing == nil:
		next = &store.ConversationContext{
			ConversationID: conversationID,
			TenantID:       tenantID,
		}
	case existing.ExpiresAt.Before(now):
		next = &store.ConversationContext{
			ConversationID: conversationID,
			TenantID:       tenantID,
			KeyFacts:       existing.KeyFacts,
		}
	default:
		next = existing
	}

	next.ExpiresAt = now.Add(DefaultExpiryExtension)
	next.UpdatedAt = now

	saved, err := st.UpsertConversationContext(ctx, &store.UpsertConversationContext{Context: next})
	if err != nil {
		return nil, errors.Wrap(err, "failed to persist conversation context")
	}
	return saved, nil
}
