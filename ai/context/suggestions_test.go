package context

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conversagent/core/ai/catalog"
	"github.com/conversagent/core/store"
)

type fakeSuggestDriver struct {
	store.Driver

	products []*store.Product
	services []*store.Service
}

func (f *fakeSuggestDriver) ListProducts(ctx context.Context, filter *store.CatalogFilter) ([]*store.Product, error) {
	return f.products, nil
}

func (f *fakeSuggestDriver) ListServices(ctx context.Context, filter *store.CatalogFilter) ([]*store.Service, error) {
	return f.services, nil
}

func TestSuggest_NoAnchorReturnsNothing(t *testing.T) {
	st := store.New(&fakeSuggestDriver{}, nil)
	reader := catalog.NewReader(st, 10, time.Minute)
	engine := NewSuggestionEngine(reader)

	out, err := engine.Suggest(context.Background(), "t1", "", nil)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestSuggest_ComplementaryProductsWithinPriceBand(t *testing.T) {
	driver := &fakeSuggestDriver{products: []*store.Product{
		{ID: "anchor", Name: "Anchor", Price: 100, InStock: true, Active: true},
		{ID: "in-band", Name: "InBand", Price: 120, InStock: true, Active: true},
		{ID: "too-expensive", Name: "TooExpensive", Price: 200, InStock: true, Active: true},
		{ID: "out-of-stock", Name: "OOS", Price: 110, InStock: false, Active: true},
	}}
	st := store.New(driver, nil)
	reader := catalog.NewReader(st, 10, time.Minute)
	engine := NewSuggestionEngine(reader)

	out, err := engine.Suggest(context.Background(), "t1", "", &store.ConversationContext{LastProductViewed: "anchor"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "in-band", out[0].ID)
}

func TestSuggest_ServicesWithinNextSevenDays(t *testing.T) {
	soon := time.Now().Add(2 * 24 * time.Hour)
	tooLate := time.Now().Add(30 * 24 * time.Hour)
	driver := &fakeSuggestDriver{services: []*store.Service{
		{ID: "soon", Name: "Soon", Active: true, NextAvailable: &soon},
		{ID: "late", Name: "Late", Active: true, NextAvailable: &tooLate},
	}}
	st := store.New(driver, nil)
	reader := catalog.NewReader(st, 10, time.Minute)
	engine := NewSuggestionEngine(reader)

	out, err := engine.Suggest(context.Background(), "t1", "", &store.ConversationContext{LastServiceViewed: "soon"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "soon", out[0].ID)
}
