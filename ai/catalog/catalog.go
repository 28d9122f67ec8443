// Package catalog provides a short-TTL cache in front of the read-only
// catalog/history views (products, services, order and appointment
// history, aggregated spend) used while assembling conversation context.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/conversagent/core/internal/cache"
	"github.com/conversagent/core/store"
)

const defaultTTL = 30 * time.Second

// MetricsSink is the subset of internal/metrics.Exporter the reader
// needs; satisfied structurally by *metrics.Exporter. Declared locally
// so this package does not need to import internal/metrics.
type MetricsSink interface {
	ObserveCache(name string, hit bool)
}

// Reader wraps store.Store's catalog/history reads with a short-TTL
// cache keyed by (tenant, filter), per spec.md §4.4.
type Reader struct {
	store *store.Store
	ttl   time.Duration

	productCache *cache.LRUCache[string, []*store.Product]
	serviceCache *cache.LRUCache[string, []*store.Service]

	metrics MetricsSink // nil disables cache metrics
}

func NewReader(st *store.Store, capacity int, ttl time.Duration) *Reader {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Reader{
		store:        st,
		ttl:          ttl,
		productCache: cache.New[string, []*store.Product](capacity, ttl),
		serviceCache: cache.New[string, []*store.Service](capacity, ttl),
	}
}

// WithMetrics attaches a cache-hit/miss metrics sink.
func (r *Reader) WithMetrics(m MetricsSink) *Reader {
	r.metrics = m
	return r
}

func (r *Reader) observeCache(name string, hit bool) {
	if r.metrics != nil {
		r.metrics.ObserveCache(name, hit)
	}
}

func filterKey(prefix string, filter *store.CatalogFilter) string {
	return fmt.Sprintf("%s:%s:%s:%s:%d", prefix, filter.TenantID, filter.Text, filter.Cursor, filter.Limit)
}

// ListProducts returns active products matching filter, serving from
// cache within the TTL window.
func (r *Reader) ListProducts(ctx context.Context, filter *store.CatalogFilter) ([]*store.Product, error) {
	key := filterKey("products", filter)
	if cached, ok := r.productCache.Get(key); ok {
		r.observeCache("catalog.products", true)
		return cached, nil
	}
	r.observeCache("catalog.products", false)
	products, err := r.store.ListProducts(ctx, filter)
	if err != nil {
		return nil, err
	}
	r.productCache.SetDefault(key, products)
	return products, nil
}

// ListServices returns active services matching filter, serving from
// cache within the TTL window.
func (r *Reader) ListServices(ctx context.Context, filter *store.CatalogFilter) ([]*store.Service, error) {
	key := filterKey("services", filter)
	if cached, ok := r.serviceCache.Get(key); ok {
		r.observeCache("catalog.services", true)
		return cached, nil
	}
	r.observeCache("catalog.services", false)
	services, err := r.store.ListServices(ctx, filter)
	if err != nil {
		return nil, err
	}
	r.serviceCache.SetDefault(key, services)
	return services, nil
}

// ListRecentOrders, ListRecentAppointments, and AggregateSpend are
// customer-scoped and change with every purchase; they pass straight
// through uncached.
func (r *Reader) ListRecentOrders(ctx context.Context, tenantID, customerID string, limit int) ([]*store.Order, error) {
	return r.store.ListRecentOrders(ctx, tenantID, customerID, limit)
}

func (r *Reader) ListRecentAppointments(ctx context.Context, tenantID, customerID string, limit int) ([]*store.Appointment, error) {
	return r.store.ListRecentAppointments(ctx, tenantID, customerID, limit)
}

func (r *Reader) AggregateSpend(ctx context.Context, tenantID, customerID string) (float64, error) {
	return r.store.AggregateSpend(ctx, tenantID, customerID)
}
