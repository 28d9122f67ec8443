package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/conversagent/core/store"
)

func (d *DB) EnqueueMessage(ctx context.Context, enqueue *store.EnqueueMessage) (*store.MessageQueueEntry, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	stmt := `INSERT INTO message_queue (id, tenant_id, conversation_id, message_id, text, status, queued_at)
		VALUES (` + placeholders(7) + `)`
	_, err := d.db.ExecContext(ctx, stmt, id, enqueue.TenantID, enqueue.ConversationID, enqueue.MessageID, enqueue.Text, store.QueueQueued, now)
	if err != nil {
		return nil, errors.Wrap(err, "failed to enqueue message")
	}
	return &store.MessageQueueEntry{
		ID: id, TenantID: enqueue.TenantID, ConversationID: enqueue.ConversationID, MessageID: enqueue.MessageID,
		Text: enqueue.Text, Status: store.QueueQueued, QueuedAt: now,
	}, nil
}

// TransitionQueueToProcessing atomically flips every queued entry older
// than olderThan for the conversation to processing and returns them in no
// guaranteed order (ai/harmonizer sorts them by QueuedAt). Per §4.5, at most one batch per conversation may be
// processing at a time — enforced by the caller's exclusive per-
// conversation lock, not by this query.
func (d *DB) TransitionQueueToProcessing(ctx context.Context, tenantID, conversationID string, olderThan time.Time) ([]*store.MessageQueueEntry, error) {
	rows, err := d.db.QueryContext(ctx,
		`UPDATE message_queue SET status = `+placeholder(1)+`
		 WHERE tenant_id = `+placeholder(2)+` AND conversation_id = `+placeholder(3)+`
			AND status = `+placeholder(4)+` AND queued_at <= `+placeholder(5)+`
		 RETURNING id, tenant_id, conversation_id, message_id, text, status, queued_at, processed_at, error`,
		store.QueueProcessing, tenantID, conversationID, store.QueueQueued, olderThan)
	if err != nil {
		return nil, errors.Wrap(err, "failed to transition queue entries to processing")
	}
	defer rows.Close()

	list := []*store.MessageQueueEntry{}
	for rows.Next() {
		e := &store.MessageQueueEntry{}
		var processedAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ConversationID, &e.MessageID, &e.Text, &e.Status, &e.QueuedAt, &processedAt, &e.Error); err != nil {
			return nil, errors.Wrap(err, "failed to scan queue entry")
		}
		if processedAt.Valid {
			e.ProcessedAt = &processedAt.Time
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func (d *DB) MarkQueueProcessed(ctx context.Context, ids []string) error {
	return d.markQueue(ctx, ids, store.QueueProcessed, "")
}

func (d *DB) MarkQueueFailed(ctx context.Context, ids []string, errMsg string) error {
	return d.markQueue(ctx, ids, store.QueueFailed, errMsg)
}

func (d *DB) markQueue(ctx context.Context, ids []string, status store.QueueStatus, errMsg string) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC()
	placeholdersList := make([]string, len(ids))
	args := []any{status, now, errMsg}
	for i, id := range ids {
		args = append(args, id)
		placeholdersList[i] = placeholder(len(args))
	}
	stmt := `UPDATE message_queue SET status = ` + placeholder(1) + `, processed_at = ` + placeholder(2) +
		`, error = ` + placeholder(3) + ` WHERE id IN (` + join(placeholdersList, ", ") + `)`
	_, err := d.db.ExecContext(ctx, stmt, args...)
	return errors.Wrap(err, "failed to mark queue entries")
}
