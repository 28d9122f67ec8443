package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conversagent/core/store"
)

type fakeDriver struct {
	store.Driver

	products    []*store.Product
	productHits int
	services    []*store.Service
	serviceHits int
}

func (f *fakeDriver) ListProducts(ctx context.Context, filter *store.CatalogFilter) ([]*store.Product, error) {
	f.productHits++
	return f.products, nil
}

func (f *fakeDriver) ListServices(ctx context.Context, filter *store.CatalogFilter) ([]*store.Service, error) {
	f.serviceHits++
	return f.services, nil
}

func (f *fakeDriver) ListRecentOrders(ctx context.Context, tenantID, customerID string, limit int) ([]*store.Order, error) {
	return []*store.Order{{ID: "o1", TenantID: tenantID, CustomerID: customerID}}, nil
}

func (f *fakeDriver) AggregateSpend(ctx context.Context, tenantID, customerID string) (float64, error) {
	return 42.5, nil
}

func newTestReader(driver *fakeDriver, ttl time.Duration) *Reader {
	return NewReader(store.New(driver, nil), 64, ttl)
}

func TestListProducts_CachesWithinTTL(t *testing.T) {
	driver := &fakeDriver{products: []*store.Product{{ID: "p1"}}}
	r := newTestReader(driver, time.Minute)

	filter := &store.CatalogFilter{TenantID: "tenant-1", Limit: 10}

	_, err := r.ListProducts(context.Background(), filter)
	require.NoError(t, err)
	_, err = r.ListProducts(context.Background(), filter)
	require.NoError(t, err)

	assert.Equal(t, 1, driver.productHits)
}

func TestListProducts_DistinctFiltersMiss(t *testing.T) {
	driver := &fakeDriver{products: []*store.Product{{ID: "p1"}}}
	r := newTestReader(driver, time.Minute)

	_, err := r.ListProducts(context.Background(), &store.CatalogFilter{TenantID: "tenant-1", Text: "widget"})
	require.NoError(t, err)
	_, err = r.ListProducts(context.Background(), &store.CatalogFilter{TenantID: "tenant-1", Text: "gadget"})
	require.NoError(t, err)

	assert.Equal(t, 2, driver.productHits)
}

func TestListProducts_ExpiresAfterTTL(t *testing.T) {
	driver := &fakeDriver{products: []*store.Product{{ID: "p1"}}}
	r := newTestReader(driver, 50*time.Millisecond)

	filter := &store.CatalogFilter{TenantID: "tenant-1"}
	_, err := r.ListProducts(context.Background(), filter)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	_, err = r.ListProducts(context.Background(), filter)
	require.NoError(t, err)

	assert.Equal(t, 2, driver.productHits)
}

func TestListServices_Caches(t *testing.T) {
	driver := &fakeDriver{services: []*store.Service{{ID: "s1"}}}
	r := newTestReader(driver, time.Minute)

	filter := &store.CatalogFilter{TenantID: "tenant-1"}
	_, err := r.ListServices(context.Background(), filter)
	require.NoError(t, err)
	_, err = r.ListServices(context.Background(), filter)
	require.NoError(t, err)

	assert.Equal(t, 1, driver.serviceHits)
}

func TestHistoryReads_PassThroughUncached(t *testing.T) {
	driver := &fakeDriver{}
	r := newTestReader(driver, time.Minute)

	orders, err := r.ListRecentOrders(context.Background(), "tenant-1", "cust-1", 5)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	spend, err := r.AggregateSpend(context.Background(), "tenant-1", "cust-1")
	require.NoError(t, err)
	assert.Equal(t, 42.5, spend)
}
