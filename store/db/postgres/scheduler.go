package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/conversagent/core/store"
)

func (d *DB) CreateScheduledMessage(ctx context.Context, create *store.CreateScheduledMessage) (*store.ScheduledMessage, error) {
	m := create.Message
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = time.Now().UTC()
	if m.Status == "" {
		m.Status = store.ScheduledPending
	}
	ctxJSON, _ := json.Marshal(m.TemplateContext)

	stmt := `INSERT INTO scheduled_message (id, tenant_id, customer_id, content, template, template_context, scheduled_at,
		status, recipient_criteria, message_type, campaign_id, variant, created_at)
		VALUES (` + placeholders(13) + `)`
	_, err := d.db.ExecContext(ctx, stmt, m.ID, m.TenantID, m.CustomerID, m.Content, m.Template, ctxJSON, m.ScheduledAt,
		m.Status, m.RecipientCriteria, m.MessageType, m.CampaignID, m.Variant, m.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create scheduled message")
	}
	return m, nil
}

func (d *DB) ListDueScheduledMessages(ctx context.Context, find *store.FindDueScheduledMessages) ([]*store.ScheduledMessage, error) {
	limit := find.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, tenant_id, customer_id, content, template, template_context, scheduled_at, status, recipient_criteria,
			message_type, sent_at, failed_at, error, message_id, campaign_id, variant, created_at
		 FROM scheduled_message WHERE status = `+placeholder(1)+` AND scheduled_at <= `+placeholder(2)+`
		 ORDER BY scheduled_at ASC LIMIT `+placeholder(3),
		store.ScheduledPending, find.Now, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list due scheduled messages")
	}
	defer rows.Close()

	list := []*store.ScheduledMessage{}
	for rows.Next() {
		m, err := scanScheduledMessage(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan scheduled message")
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func scanScheduledMessage(row interface{ Scan(...any) error }) (*store.ScheduledMessage, error) {
	m := &store.ScheduledMessage{}
	var tmplCtx []byte
	var sentAt, failedAt sql.NullTime
	err := row.Scan(&m.ID, &m.TenantID, &m.CustomerID, &m.Content, &m.Template, &tmplCtx, &m.ScheduledAt, &m.Status,
		&m.RecipientCriteria, &m.MessageType, &sentAt, &failedAt, &m.Error, &m.MessageID, &m.CampaignID, &m.Variant, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal(tmplCtx, &m.TemplateContext)
	if sentAt.Valid {
		m.SentAt = &sentAt.Time
	}
	if failedAt.Valid {
		m.FailedAt = &failedAt.Time
	}
	return m, nil
}

// TransitionScheduledMessage performs a conditional pending->processing (or
// any from->to) update and reports whether it took effect, giving
// at-most-one delivery when two workers race the same due message.
func (d *DB) TransitionScheduledMessage(ctx context.Context, tenantID, id string, from, to store.ScheduledMessageStatus) (bool, error) {
	result, err := d.db.ExecContext(ctx,
		"UPDATE scheduled_message SET status = "+placeholder(1)+" WHERE tenant_id = "+placeholder(2)+
			" AND id = "+placeholder(3)+" AND status = "+placeholder(4),
		to, tenantID, id, from)
	if err != nil {
		return false, errors.Wrap(err, "failed to transition scheduled message")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read rows affected")
	}
	return n == 1, nil
}

func (d *DB) MarkScheduledMessageSent(ctx context.Context, tenantID, id, messageID string, sentAt time.Time) error {
	_, err := d.db.ExecContext(ctx,
		"UPDATE scheduled_message SET status = "+placeholder(1)+", sent_at = "+placeholder(2)+", message_id = "+placeholder(3)+
			" WHERE tenant_id = "+placeholder(4)+" AND id = "+placeholder(5),
		store.ScheduledSent, sentAt, messageID, tenantID, id)
	return errors.Wrap(err, "failed to mark scheduled message sent")
}

func (d *DB) MarkScheduledMessageFailed(ctx context.Context, tenantID, id, errMsg string) error {
	_, err := d.db.ExecContext(ctx,
		"UPDATE scheduled_message SET status = "+placeholder(1)+", failed_at = now(), error = "+placeholder(2)+
			" WHERE tenant_id = "+placeholder(3)+" AND id = "+placeholder(4),
		store.ScheduledFailed, errMsg, tenantID, id)
	return errors.Wrap(err, "failed to mark scheduled message failed")
}

func (d *DB) RescheduleMessage(ctx context.Context, tenantID, id string, newTime time.Time) error {
	_, err := d.db.ExecContext(ctx,
		"UPDATE scheduled_message SET scheduled_at = "+placeholder(1)+", status = "+placeholder(2)+
			" WHERE tenant_id = "+placeholder(3)+" AND id = "+placeholder(4),
		newTime, store.ScheduledPending, tenantID, id)
	return errors.Wrap(err, "failed to reschedule message")
}

func (d *DB) CancelScheduledMessage(ctx context.Context, tenantID, id string) error {
	_, err := d.db.ExecContext(ctx,
		"UPDATE scheduled_message SET status = "+placeholder(1)+" WHERE tenant_id = "+placeholder(2)+" AND id = "+placeholder(3)+" AND status = "+placeholder(4),
		store.ScheduledCanceled, tenantID, id, store.ScheduledPending)
	return errors.Wrap(err, "failed to cancel scheduled message")
}

func (d *DB) CreateMessageCampaign(ctx context.Context, create *store.CreateMessageCampaign) (*store.MessageCampaign, error) {
	c := create.Campaign
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC()
	if c.Status == "" {
		c.Status = store.CampaignDraft
	}
	variants, _ := json.Marshal(c.Variants)

	stmt := `INSERT INTO message_campaign (id, tenant_id, target_criteria, default_content, variants, status, scheduled_at, created_by, created_at)
		VALUES (` + placeholders(9) + `)`
	_, err := d.db.ExecContext(ctx, stmt, c.ID, c.TenantID, c.TargetCriteria, c.DefaultContent, variants, c.Status, c.ScheduledAt, c.CreatedBy, c.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create message campaign")
	}
	return c, nil
}

func (d *DB) GetMessageCampaign(ctx context.Context, tenantID, id string) (*store.MessageCampaign, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, target_criteria, default_content, variants, status, scheduled_at, delivered_count,
			delivered_ok_count, failed_count, read_count, response_count, conversion_count, started_at, completed_at, created_by, created_at
		 FROM message_campaign WHERE tenant_id = `+placeholder(1)+` AND id = `+placeholder(2), tenantID, id)

	c := &store.MessageCampaign{}
	var variants []byte
	var startedAt, completedAt sql.NullTime
	err := row.Scan(&c.ID, &c.TenantID, &c.TargetCriteria, &c.DefaultContent, &variants, &c.Status, &c.ScheduledAt,
		&c.DeliveredCount, &c.DeliveredOKCount, &c.FailedCount, &c.ReadCount, &c.ResponseCount, &c.ConversionCount,
		&startedAt, &completedAt, &c.CreatedBy, &c.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get message campaign")
	}
	_ = json.Unmarshal(variants, &c.Variants)
	if startedAt.Valid {
		c.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		c.CompletedAt = &completedAt.Time
	}
	return c, nil
}

func (d *DB) UpdateCampaignStatus(ctx context.Context, tenantID, id string, status store.CampaignStatus) error {
	set := "status = " + placeholder(1)
	args := []any{status}
	if status == store.CampaignSending {
		set += ", started_at = now()"
	}
	if status == store.CampaignCompleted || status == store.CampaignCanceled {
		set += ", completed_at = now()"
	}
	args = append(args, tenantID, id)
	_, err := d.db.ExecContext(ctx,
		"UPDATE message_campaign SET "+set+" WHERE tenant_id = "+placeholder(len(args)-1)+" AND id = "+placeholder(len(args)),
		args...)
	return errors.Wrap(err, "failed to update campaign status")
}

// campaignCounterColumn maps a store.CampaignCounter to its backing column,
// rejecting anything outside the known set.
func campaignCounterColumn(counter store.CampaignCounter) (string, error) {
	switch counter {
	case store.CampaignCounterDelivered:
		return "delivered_count", nil
	case store.CampaignCounterDeliveredOK:
		return "delivered_ok_count", nil
	case store.CampaignCounterFailed:
		return "failed_count", nil
	case store.CampaignCounterRead:
		return "read_count", nil
	case store.CampaignCounterResponse:
		return "response_count", nil
	case store.CampaignCounterConversion:
		return "conversion_count", nil
	default:
		return "", errors.Errorf("unknown campaign counter %q", counter)
	}
}

func (d *DB) IncrementCampaignCounter(ctx context.Context, tenantID, id string, counter store.CampaignCounter, delta int64) error {
	column, err := campaignCounterColumn(counter)
	if err != nil {
		return err
	}
	_, err = d.db.ExecContext(ctx,
		"UPDATE message_campaign SET "+column+" = "+column+" + "+placeholder(1)+
			" WHERE tenant_id = "+placeholder(2)+" AND id = "+placeholder(3),
		delta, tenantID, id)
	return errors.Wrap(err, "failed to increment campaign counter")
}
