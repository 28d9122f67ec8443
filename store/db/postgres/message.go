package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/conversagent/core/store"
)

func (d *DB) AppendMessage(ctx context.Context, append *store.AppendMessage) (*store.Message, error) {
	if len(append.Text) > 10000 {
		return nil, errors.New("message text exceeds 10000 characters")
	}

	if append.ProviderMessageID != "" {
		var exists bool
		err := d.db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM message WHERE conversation_id = "+placeholder(1)+" AND provider_message_id = "+placeholder(2)+")",
			append.ConversationID, append.ProviderMessageID).Scan(&exists)
		if err != nil {
			return nil, errors.Wrap(err, "failed to check message uniqueness")
		}
		if exists {
			return nil, errors.New("message with this provider_message_id already exists for conversation")
		}
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	var seq int64
	stmt := `INSERT INTO message (id, tenant_id, conversation_id, direction, type, text, provider_message_id, delivery_status, created_at, seq)
		VALUES (` + placeholders(8) + `, ` + placeholder(9) + `,
			COALESCE((SELECT MAX(seq) FROM message WHERE conversation_id = ` + placeholder(3) + `), 0) + 1)
		RETURNING seq`
	err := d.db.QueryRowContext(ctx, stmt, id, append.TenantID, append.ConversationID, append.Direction, append.Type, append.Text, append.ProviderMessageID, store.DeliveryNone, now).Scan(&seq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to append message")
	}

	return &store.Message{
		ID: id, TenantID: append.TenantID, ConversationID: append.ConversationID, Direction: append.Direction,
		Type: append.Type, Text: append.Text, ProviderMessageID: append.ProviderMessageID,
		DeliveryStatus: store.DeliveryNone, CreatedAt: now, Seq: seq,
	}, nil
}

func (d *DB) ListRecentMessages(ctx context.Context, find *store.FindMessages) ([]*store.Message, error) {
	limit := find.Limit
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, tenant_id, conversation_id, direction, type, text, provider_message_id, delivery_status,
			sent_at, delivered_at, read_at, failed_at, error, created_at, seq
		 FROM (
			SELECT * FROM message WHERE tenant_id = `+placeholder(1)+` AND conversation_id = `+placeholder(2)+`
			ORDER BY seq DESC LIMIT `+placeholder(3)+`
		 ) recent ORDER BY seq ASC`,
		find.TenantID, find.ConversationID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recent messages")
	}
	defer rows.Close()

	list := []*store.Message{}
	for rows.Next() {
		m := &store.Message{}
		var sentAt, deliveredAt, readAt, failedAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.TenantID, &m.ConversationID, &m.Direction, &m.Type, &m.Text,
			&m.ProviderMessageID, &m.DeliveryStatus, &sentAt, &deliveredAt, &readAt, &failedAt, &m.Error, &m.CreatedAt, &m.Seq); err != nil {
			return nil, errors.Wrap(err, "failed to scan message")
		}
		if sentAt.Valid {
			m.SentAt = &sentAt.Time
		}
		if deliveredAt.Valid {
			m.DeliveredAt = &deliveredAt.Time
		}
		if readAt.Valid {
			m.ReadAt = &readAt.Time
		}
		if failedAt.Valid {
			m.FailedAt = &failedAt.Time
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// UpdateMessageDeliveryState advances a Message's delivery status.
// Transitions are monotonic (sent -> delivered -> read, or -> failed) per
// §5's ordering guarantees; the caller is responsible for not regressing.
func (d *DB) UpdateMessageDeliveryState(ctx context.Context, tenantID, messageID string, status store.DeliveryStatus, at time.Time, errMsg string) error {
	var column string
	switch status {
	case store.DeliverySent:
		column = "sent_at"
	case store.DeliveryDelivered:
		column = "delivered_at"
	case store.DeliveryRead:
		column = "read_at"
	case store.DeliveryFailed:
		column = "failed_at"
	default:
		return errors.Errorf("unsupported delivery status %q", status)
	}

	stmt := `UPDATE message SET delivery_status = ` + placeholder(1) + `, ` + column + ` = ` + placeholder(2) +
		`, error = ` + placeholder(3) + ` WHERE tenant_id = ` + placeholder(4) + ` AND id = ` + placeholder(5)
	_, err := d.db.ExecContext(ctx, stmt, status, at, errMsg, tenantID, messageID)
	return errors.Wrap(err, "failed to update message delivery state")
}
