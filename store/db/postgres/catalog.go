package postgres

import (
	"context"

	"github.com/pkg/errors"

	"github.com/conversagent/core/store"
)

func (d *DB) ListProducts(ctx context.Context, filter *store.CatalogFilter) ([]*store.Product, error) {
	where, args := []string{"tenant_id = " + placeholder(1), "active = true"}, []any{filter.TenantID}
	if filter.Text != "" {
		args = append(args, "%"+filter.Text+"%")
		where = append(where, "name ILIKE "+placeholder(len(args)))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, tenant_id, name, description, price, currency, in_stock, stock_count, active
		FROM product WHERE ` + join(where, " AND ") + ` ORDER BY name ASC LIMIT ` + placeholder(len(args)+1)
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list products")
	}
	defer rows.Close()

	list := []*store.Product{}
	for rows.Next() {
		p := &store.Product{}
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.Description, &p.Price, &p.Currency, &p.InStock, &p.StockCount, &p.Active); err != nil {
			return nil, errors.Wrap(err, "failed to scan product")
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (d *DB) ListServices(ctx context.Context, filter *store.CatalogFilter) ([]*store.Service, error) {
	where, args := []string{"tenant_id = " + placeholder(1), "active = true"}, []any{filter.TenantID}
	if filter.Text != "" {
		args = append(args, "%"+filter.Text+"%")
		where = append(where, "name ILIKE "+placeholder(len(args)))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, tenant_id, name, description, price, currency, active, next_available
		FROM service WHERE ` + join(where, " AND ") + ` ORDER BY name ASC LIMIT ` + placeholder(len(args)+1)
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list services")
	}
	defer rows.Close()

	list := []*store.Service{}
	for rows.Next() {
		s := &store.Service{}
		if err := rows.Scan(&s.ID, &s.TenantID, &s.Name, &s.Description, &s.Price, &s.Currency, &s.Active, &s.NextAvailable); err != nil {
			return nil, errors.Wrap(err, "failed to scan service")
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (d *DB) ListRecentOrders(ctx context.Context, tenantID, customerID string, limit int) ([]*store.Order, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, tenant_id, customer_id, total, currency, created_at FROM "order"
		 WHERE tenant_id = `+placeholder(1)+` AND customer_id = `+placeholder(2)+`
		 ORDER BY created_at DESC LIMIT `+placeholder(3),
		tenantID, customerID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recent orders")
	}
	defer rows.Close()

	list := []*store.Order{}
	for rows.Next() {
		o := &store.Order{}
		if err := rows.Scan(&o.ID, &o.TenantID, &o.CustomerID, &o.Total, &o.Currency, &o.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan order")
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

func (d *DB) ListRecentAppointments(ctx context.Context, tenantID, customerID string, limit int) ([]*store.Appointment, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, tenant_id, customer_id, service_id, scheduled_at, status FROM appointment
		 WHERE tenant_id = `+placeholder(1)+` AND customer_id = `+placeholder(2)+`
		 ORDER BY scheduled_at DESC LIMIT `+placeholder(3),
		tenantID, customerID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recent appointments")
	}
	defer rows.Close()

	list := []*store.Appointment{}
	for rows.Next() {
		a := &store.Appointment{}
		if err := rows.Scan(&a.ID, &a.TenantID, &a.CustomerID, &a.ServiceID, &a.ScheduledAt, &a.Status); err != nil {
			return nil, errors.Wrap(err, "failed to scan appointment")
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func (d *DB) AggregateSpend(ctx context.Context, tenantID, customerID string) (float64, error) {
	var total float64
	err := d.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total), 0) FROM "order" WHERE tenant_id = `+placeholder(1)+` AND customer_id = `+placeholder(2),
		tenantID, customerID).Scan(&total)
	if err != nil {
		return 0, errors.Wrap(err, "failed to aggregate spend")
	}
	return total, nil
}
