package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/conversagent/core/store"
)

func (d *DB) CreateConversation(ctx context.Context, create *store.CreateConversation) (*store.Conversation, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	stmt := `INSERT INTO conversation (id, tenant_id, customer_id, channel, state, low_confidence_counter, metadata, created_at, updated_at, last_activity_at)
		VALUES (` + placeholders(10) + `)`
	meta, _ := json.Marshal(map[string]any{})
	_, err := d.db.ExecContext(ctx, stmt, id, create.TenantID, create.CustomerID, create.Channel, store.ConversationOpen, 0, meta, now, now, now)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create conversation")
	}
	return &store.Conversation{
		ID: id, TenantID: create.TenantID, CustomerID: create.CustomerID, Channel: create.Channel,
		State: store.ConversationOpen, CreatedAt: now, UpdatedAt: now, LastActivityAt: now,
	}, nil
}

func scanConversation(row interface{ Scan(...any) error }) (*store.Conversation, error) {
	c := &store.Conversation{}
	var meta []byte
	var handoffAt sql.NullTime
	err := row.Scan(
		&c.ID, &c.TenantID, &c.CustomerID, &c.Channel, &c.State, &c.LastIntent, &c.LastConfidence,
		&c.LowConfidenceCounter, &c.LastAssignedAgentID, &handoffAt, &c.HandoffReason, &meta,
		&c.CreatedAt, &c.UpdatedAt, &c.LastActivityAt, &c.Deleted,
	)
	if err != nil {
		return nil, err
	}
	if handoffAt.Valid {
		c.HandoffAt = &handoffAt.Time
	}
	_ = json.Unmarshal(meta, &c.Metadata)
	return c, nil
}

const conversationColumns = `id, tenant_id, customer_id, channel, state, last_intent, last_confidence,
	low_confidence_counter, last_assigned_agent_id, handoff_at, handoff_reason, metadata,
	created_at, updated_at, last_activity_at, deleted`

func (d *DB) GetConversation(ctx context.Context, tenantID, id string) (*store.Conversation, error) {
	row := d.db.QueryRowContext(ctx,
		"SELECT "+conversationColumns+" FROM conversation WHERE tenant_id = ? AND id = ?",
		tenantID, id)
	c, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, errors.New("conversation not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get conversation")
	}
	return c, nil
}

func (d *DB) ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	where, args := []string{"tenant_id = ?", "deleted = false"}, []any{find.TenantID}
	if find.ID != nil {
		args = append(args, *find.ID)
		where = append(where, "id = ?")
	}
	if find.CustomerID != nil {
		args = append(args, *find.CustomerID)
		where = append(where, "customer_id = ?")
	}
	if find.State != nil {
		args = append(args, *find.State)
		where = append(where, "state = ?")
	}
	limit := find.Limit
	if limit <= 0 {
		limit = 50
	}
	query := "SELECT " + conversationColumns + " FROM conversation WHERE " + join(where, " AND ") +
		" ORDER BY last_activity_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, find.Offset)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversations")
	}
	defer rows.Close()

	list := []*store.Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan conversation")
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (d *DB) TransitionConversationState(ctx context.Context, update *store.UpdateConversationState) (*store.Conversation, error) {
	now := time.Now().UTC()
	var stmt string
	args := []any{}

	if update.State == store.ConversationHandedOff {
		meta, _ := json.Marshal(update.Metadata)
		stmt = `UPDATE conversation SET state = ?, handoff_at = ?, handoff_reason = ?, metadata = ?,
			low_confidence_counter = 0, updated_at = ?, last_activity_at = ? WHERE tenant_id = ? AND id = ?`
		args = []any{update.State, now, update.Reason, meta, now, now, update.TenantID, update.ID}
	} else {
		stmt = `UPDATE conversation SET state = ?, updated_at = ?, last_activity_at = ? WHERE tenant_id = ? AND id = ?`
		args = []any{update.State, now, now, update.TenantID, update.ID}
	}

	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "failed to transition conversation state")
	}
	return d.GetConversation(ctx, update.TenantID, update.ID)
}

// IncrementLowConfidence atomically increments the counter via a single
// UPDATE ... SET counter = counter + 1, avoiding read-modify-write.
func (d *DB) IncrementLowConfidence(ctx context.Context, tenantID, conversationID string) (int, error) {
	now := time.Now().UTC()
	var counter int
	err := d.db.QueryRowContext(ctx,
		`UPDATE conversation SET low_confidence_counter = low_confidence_counter + 1, updated_at = ?
		 WHERE tenant_id = ? AND id = ? RETURNING low_confidence_counter`,
		now, tenantID, conversationID).Scan(&counter)
	if err != nil {
		return 0, errors.Wrap(err, "failed to increment low confidence counter")
	}
	return counter, nil
}

func (d *DB) ResetLowConfidence(ctx context.Context, tenantID, conversationID string) error {
	_, err := d.db.ExecContext(ctx,
		"UPDATE conversation SET low_confidence_counter = 0, updated_at = ? WHERE tenant_id = ? AND id = ?",
		time.Now().UTC(), tenantID, conversationID)
	return errors.Wrap(err, "failed to reset low confidence counter")
}

func (d *DB) SoftDeleteConversation(ctx context.Context, tenantID, id string) error {
	_, err := d.db.ExecContext(ctx,
		"UPDATE conversation SET deleted = true, updated_at = ? WHERE tenant_id = ? AND id = ?",
		time.Now().UTC(), tenantID, id)
	return errors.Wrap(err, "failed to soft delete conversation")
}

func (d *DB) UpdateConversationIntent(ctx context.Context, tenantID, conversationID, intent string, confidence float64) error {
	_, err := d.db.ExecContext(ctx,
		"UPDATE conversation SET last_intent = ?, last_confidence = ?, updated_at = ? WHERE tenant_id = ? AND id = ?",
		intent, confidence, time.Now().UTC(), tenantID, conversationID)
	return errors.Wrap(err, "failed to update conversation intent")
}
