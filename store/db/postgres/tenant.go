package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/conversagent/core/store"
)

func (d *DB) CreateTenant(ctx context.Context, t *store.Tenant) (*store.Tenant, error) {
	creds, err := json.Marshal(t.ChannelCredentials)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal channel credentials")
	}
	langs, err := json.Marshal(t.AllowedLanguages)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal allowed languages")
	}

	stmt := `
		INSERT INTO tenant (channel_identity, channel_credentials, allowed_languages, quiet_hours_start, quiet_hours_end, monthly_message_budget, max_catalog_size, campaign_quota, created_at, updated_at)
		VALUES (` + placeholders(9) + `, now())
		RETURNING id, created_at, updated_at`

	now := time.Now().UTC()
	err = d.db.QueryRowContext(ctx, stmt,
		t.ChannelIdentity, creds, langs, t.QuietHoursStart, t.QuietHoursEnd,
		t.MonthlyMessageBudget, t.MaxCatalogSize, t.CampaignQuota, now,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create tenant")
	}
	return t, nil
}

func (d *DB) GetTenant(ctx context.Context, find *store.FindTenant) (*store.Tenant, error) {
	where, args := "1 = 1", []any{}
	if find.ID != nil {
		args = append(args, *find.ID)
		where = "id = " + placeholder(len(args))
	} else if find.ChannelIdentity != nil {
		args = append(args, *find.ChannelIdentity)
		where = "channel_identity = " + placeholder(len(args))
	} else {
		return nil, errors.New("tenant lookup requires id or channel identity")
	}

	query := `SELECT id, channel_identity, channel_credentials, allowed_languages, quiet_hours_start, quiet_hours_end, monthly_message_budget, max_catalog_size, campaign_quota, created_at, updated_at FROM tenant WHERE ` + where

	t := &store.Tenant{}
	var creds, langs []byte
	err := d.db.QueryRowContext(ctx, query, args...).Scan(
		&t.ID, &t.ChannelIdentity, &creds, &langs, &t.QuietHoursStart, &t.QuietHoursEnd,
		&t.MonthlyMessageBudget, &t.MaxCatalogSize, &t.CampaignQuota, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.New("tenant not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get tenant")
	}
	_ = json.Unmarshal(creds, &t.ChannelCredentials)
	_ = json.Unmarshal(langs, &t.AllowedLanguages)

	keys, err := d.ListAPIKeys(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.APIKeys = keys
	return t, nil
}

func (d *DB) UpdateTenant(ctx context.Context, update *store.UpdateTenant) (*store.Tenant, error) {
	set, args := []string{"updated_at = now()"}, []any{}

	if update.ChannelIdentity != nil {
		args = append(args, *update.ChannelIdentity)
		set = append(set, "channel_identity = "+placeholder(len(args)))
	}
	if update.AllowedLanguages != nil {
		encoded, err := json.Marshal(*update.AllowedLanguages)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal allowed languages")
		}
		args = append(args, encoded)
		set = append(set, "allowed_languages = "+placeholder(len(args)))
	}
	if update.QuietHoursStart != nil {
		args = append(args, *update.QuietHoursStart)
		set = append(set, "quiet_hours_start = "+placeholder(len(args)))
	}
	if update.QuietHoursEnd != nil {
		args = append(args, *update.QuietHoursEnd)
		set = append(set, "quiet_hours_end = "+placeholder(len(args)))
	}
	if update.MonthlyMessageBudget != nil {
		args = append(args, *update.MonthlyMessageBudget)
		set = append(set, "monthly_message_budget = "+placeholder(len(args)))
	}
	if update.MaxCatalogSize != nil {
		args = append(args, *update.MaxCatalogSize)
		set = append(set, "max_catalog_size = "+placeholder(len(args)))
	}
	if update.CampaignQuota != nil {
		args = append(args, *update.CampaignQuota)
		set = append(set, "campaign_quota = "+placeholder(len(args)))
	}

	args = append(args, update.ID)
	stmt := "UPDATE tenant SET " + join(set, ", ") + " WHERE id = " + placeholder(len(args))
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "failed to update tenant")
	}
	return d.GetTenant(ctx, &store.FindTenant{ID: &update.ID})
}

func (d *DB) AddAPIKey(ctx context.Context, tenantID string, key store.APIKey) error {
	stmt := `INSERT INTO tenant_api_key (id, tenant_id, hash_sha256, prefix, label, created_by, created_at)
		VALUES (` + placeholders(6) + `, now())`
	_, err := d.db.ExecContext(ctx, stmt, key.ID, tenantID, key.HashSHA256, key.Prefix, key.Label, key.CreatedBy)
	return errors.Wrap(err, "failed to add api key")
}

func (d *DB) RevokeAPIKey(ctx context.Context, tenantID, keyID string) error {
	res, err := d.db.ExecContext(ctx,
		"DELETE FROM tenant_api_key WHERE tenant_id = "+placeholder(1)+" AND id = "+placeholder(2),
		tenantID, keyID)
	if err != nil {
		return errors.Wrap(err, "failed to revoke api key")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("api key not found")
	}
	return nil
}

func (d *DB) ListAPIKeys(ctx context.Context, tenantID string) ([]store.APIKey, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT id, hash_sha256, prefix, label, created_by, created_at, last_used_at FROM tenant_api_key WHERE tenant_id = "+placeholder(1)+" ORDER BY created_at DESC",
		tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list api keys")
	}
	defer rows.Close()

	keys := []store.APIKey{}
	for rows.Next() {
		var k store.APIKey
		var lastUsed sql.NullTime
		if err := rows.Scan(&k.ID, &k.HashSHA256, &k.Prefix, &k.Label, &k.CreatedBy, &k.CreatedAt, &lastUsed); err != nil {
			return nil, errors.Wrap(err, "failed to scan api key")
		}
		if lastUsed.Valid {
			k.LastUsedAt = &lastUsed.Time
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func join(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}
