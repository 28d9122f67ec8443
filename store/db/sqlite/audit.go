package sqlite

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/conversagent/core/store"
)

func (d *DB) AppendSecurityAuditLog(ctx context.Context, create *store.CreateSecurityAuditLog) error {
	l := create.Log
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = time.Now().UTC()

	stmt := `INSERT INTO security_audit_log (id, tenant_id, actor, action, detail, risk_level, created_at)
		VALUES (` + placeholders(7) + `)`
	_, err := d.db.ExecContext(ctx, stmt, l.ID, l.TenantID, l.Actor, l.Action, l.Detail, l.RiskLevel, l.CreatedAt)
	return errors.Wrap(err, "failed to append security audit log")
}

func (d *DB) ListSecurityAuditLog(ctx context.Context, tenantID string, limit, offset int) ([]*store.SecurityAuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, tenant_id, actor, action, detail, risk_level, created_at FROM security_audit_log
		 WHERE tenant_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		tenantID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list security audit log")
	}
	defer rows.Close()

	list := []*store.SecurityAuditLog{}
	for rows.Next() {
		l := &store.SecurityAuditLog{}
		if err := rows.Scan(&l.ID, &l.TenantID, &l.Actor, &l.Action, &l.Detail, &l.RiskLevel, &l.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan security audit log")
		}
		list = append(list, l)
	}
	return list, rows.Err()
}
