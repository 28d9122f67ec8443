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

func (d *DB) CreateCustomer(ctx context.Context, create *store.CreateCustomer) (*store.Customer, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	stmt := `INSERT INTO customer (id, tenant_id, phone, display_name, locale, tags, first_seen_at, last_seen_at)
		VALUES (` + placeholders(8) + `)`
	tags, _ := json.Marshal([]string{})
	if _, err := d.db.ExecContext(ctx, stmt, id, create.TenantID, create.Phone, create.DisplayName, create.Locale, tags, now, now); err != nil {
		return nil, errors.Wrap(err, "failed to create customer")
	}
	return &store.Customer{
		ID: id, TenantID: create.TenantID, Phone: create.Phone, DisplayName: create.DisplayName,
		Locale: create.Locale, FirstSeenAt: now, LastSeenAt: now,
	}, nil
}

func (d *DB) FindCustomer(ctx context.Context, find *store.FindCustomer) (*store.Customer, error) {
	where, args := []string{"tenant_id = ?"}, []any{find.TenantID}
	if find.ID != nil {
		args = append(args, *find.ID)
		where = append(where, "id = ?")
	}
	if find.Phone != nil {
		args = append(args, *find.Phone)
		where = append(where, "phone = ?")
	}
	query := `SELECT id, tenant_id, phone, display_name, locale, tags, first_seen_at, last_seen_at FROM customer WHERE ` + join(where, " AND ")

	c := &store.Customer{}
	var tags []byte
	err := d.db.QueryRowContext(ctx, query, args...).Scan(&c.ID, &c.TenantID, &c.Phone, &c.DisplayName, &c.Locale, &tags, &c.FirstSeenAt, &c.LastSeenAt)
	if err == sql.ErrNoRows {
		return nil, errors.New("customer not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find customer")
	}
	_ = json.Unmarshal(tags, &c.Tags)
	return c, nil
}

func (d *DB) ListCustomers(ctx context.Context, tenantID string, limit, offset int) ([]*store.Customer, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, tenant_id, phone, display_name, locale, tags, first_seen_at, last_seen_at FROM customer
		 WHERE tenant_id = ? ORDER BY last_seen_at DESC LIMIT ? OFFSET ?`,
		tenantID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list customers")
	}
	defer rows.Close()

	list := []*store.Customer{}
	for rows.Next() {
		c := &store.Customer{}
		var tags []byte
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Phone, &c.DisplayName, &c.Locale, &tags, &c.FirstSeenAt, &c.LastSeenAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan customer")
		}
		_ = json.Unmarshal(tags, &c.Tags)
		list = append(list, c)
	}
	return list, rows.Err()
}

func (d *DB) UpdateCustomer(ctx context.Context, update *store.UpdateCustomer) (*store.Customer, error) {
	set, args := []string{}, []any{}
	if update.DisplayName != nil {
		args = append(args, *update.DisplayName)
		set = append(set, "display_name = ?")
	}
	if update.Locale != nil {
		args = append(args, *update.Locale)
		set = append(set, "locale = ?")
	}
	if update.Tags != nil {
		encoded, _ := json.Marshal(*update.Tags)
		args = append(args, encoded)
		set = append(set, "tags = ?")
	}
	if update.LastSeenAt != nil {
		args = append(args, *update.LastSeenAt)
		set = append(set, "last_seen_at = ?")
	}
	if len(set) == 0 {
		return d.FindCustomer(ctx, &store.FindCustomer{TenantID: update.TenantID, ID: &update.ID})
	}
	args = append(args, update.TenantID, update.ID)
	stmt := "UPDATE customer SET " + join(set, ", ") + " WHERE tenant_id = ? AND id = ?"
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "failed to update customer")
	}
	return d.FindCustomer(ctx, &store.FindCustomer{TenantID: update.TenantID, ID: &update.ID})
}

func (d *DB) GetCustomerPreferences(ctx context.Context, tenantID, customerID string) (*store.CustomerPreferences, error) {
	p := &store.CustomerPreferences{CustomerID: customerID, TenantID: tenantID}
	query := `SELECT transactional_enabled, reminder_enabled, promotional_enabled, updated_at
		FROM customer_preferences WHERE tenant_id = ? AND customer_id = ?`
	err := d.db.QueryRowContext(ctx, query, tenantID, customerID).Scan(&p.TransactionalEnabled, &p.ReminderEnabled, &p.PromotionalEnabled, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return &store.CustomerPreferences{
			CustomerID: customerID, TenantID: tenantID,
			TransactionalEnabled: true, ReminderEnabled: true, PromotionalEnabled: false,
			UpdatedAt: time.Now().UTC(),
		}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get customer preferences")
	}
	return p, nil
}

func (d *DB) UpdateConsent(ctx context.Context, tenantID, customerID string, kind store.ConsentKind, newVal bool, source store.ConsentSource, reason, changedBy string) (*store.CustomerPreferences, error) {
	if kind == store.ConsentTransactional && !newVal {
		return nil, errors.New("transactional consent cannot be revoked")
	}

	prefs, err := d.GetCustomerPreferences(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	var previous bool
	switch kind {
	case store.ConsentTransactional:
		previous = prefs.TransactionalEnabled
		prefs.TransactionalEnabled = newVal
	case store.ConsentReminder:
		previous = prefs.ReminderEnabled
		prefs.ReminderEnabled = newVal
	case store.ConsentPromotional:
		previous = prefs.PromotionalEnabled
		prefs.PromotionalEnabled = newVal
	default:
		return nil, errors.Errorf("unknown consent kind %q", kind)
	}
	prefs.UpdatedAt = time.Now().UTC()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin consent tx")
	}
	defer tx.Rollback() //nolint:errcheck

	upsert := `INSERT INTO customer_preferences (tenant_id, customer_id, transactional_enabled, reminder_enabled, promotional_enabled, updated_at)
		VALUES (` + placeholders(6) + `)
		ON CONFLICT (tenant_id, customer_id) DO UPDATE SET
			transactional_enabled = excluded.transactional_enabled,
			reminder_enabled = excluded.reminder_enabled,
			promotional_enabled = excluded.promotional_enabled,
			updated_at = excluded.updated_at`
	if _, err := tx.ExecContext(ctx, upsert, tenantID, customerID, prefs.TransactionalEnabled, prefs.ReminderEnabled, prefs.PromotionalEnabled, prefs.UpdatedAt); err != nil {
		return nil, errors.Wrap(err, "failed to upsert customer preferences")
	}

	eventStmt := `INSERT INTO consent_event (id, tenant_id, customer_id, kind, previous_val, new_val, source, reason, changed_by, created_at)
		VALUES (` + placeholders(10) + `)`
	if _, err := tx.ExecContext(ctx, eventStmt, uuid.NewString(), tenantID, customerID, kind, previous, newVal, source, reason, changedBy, prefs.UpdatedAt); err != nil {
		return nil, errors.Wrap(err, "failed to record consent event")
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit consent change")
	}
	return prefs, nil
}

func (d *DB) ListConsentEvents(ctx context.Context, tenantID, customerID string) ([]*store.ConsentEvent, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, tenant_id, customer_id, kind, previous_val, new_val, source, reason, changed_by, created_at
		 FROM consent_event WHERE tenant_id = ? AND customer_id = ? ORDER BY created_at ASC`,
		tenantID, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list consent events")
	}
	defer rows.Close()

	list := []*store.ConsentEvent{}
	for rows.Next() {
		e := &store.ConsentEvent{}
		if err := rows.Scan(&e.ID, &e.TenantID, &e.CustomerID, &e.Kind, &e.PreviousVal, &e.NewVal, &e.Source, &e.Reason, &e.ChangedBy, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan consent event")
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
