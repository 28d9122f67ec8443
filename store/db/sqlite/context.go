package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/conversagent/core/store"
)

func (d *DB) GetConversationContext(ctx context.Context, tenantID, conversationID string) (*store.ConversationContext, error) {
	query := `SELECT conversation_id, tenant_id, current_topic, key_facts, summary, last_product_viewed, last_service_viewed, expires_at, updated_at
		FROM conversation_context WHERE tenant_id = ? AND conversation_id = ?`

	c := &store.ConversationContext{}
	var facts []byte
	err := d.db.QueryRowContext(ctx, query, tenantID, conversationID).Scan(
		&c.ConversationID, &c.TenantID, &c.CurrentTopic, &facts, &c.Summary, &c.LastProductViewed, &c.LastServiceViewed, &c.ExpiresAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get conversation context")
	}
	_ = json.Unmarshal(facts, &c.KeyFacts)
	return c, nil
}

func (d *DB) UpsertConversationContext(ctx context.Context, upsert *store.UpsertConversationContext) (*store.ConversationContext, error) {
	c := upsert.Context
	facts, _ := json.Marshal(c.KeyFacts)
	c.UpdatedAt = time.Now().UTC()

	stmt := `INSERT INTO conversation_context (conversation_id, tenant_id, current_topic, key_facts, summary, last_product_viewed, last_service_viewed, expires_at, updated_at)
		VALUES (` + placeholders(9) + `)
		ON CONFLICT (conversation_id) DO UPDATE SET
			current_topic = excluded.current_topic,
			key_facts = excluded.key_facts,
			summary = excluded.summary,
			last_product_viewed = excluded.last_product_viewed,
			last_service_viewed = excluded.last_service_viewed,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`
	_, err := d.db.ExecContext(ctx, stmt, c.ConversationID, c.TenantID, c.CurrentTopic, facts, c.Summary, c.LastProductViewed, c.LastServiceViewed, c.ExpiresAt, c.UpdatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert conversation context")
	}
	return c, nil
}
