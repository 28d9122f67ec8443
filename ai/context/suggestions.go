package context

import (
	"context"
	"time"

	"github.com/conversagent/core/ai/catalog"
	"github.com/conversagent/core/store"
)

const (
	maxSuggestedProducts = 3
	maxSuggestedServices = 3
	priceBandRatio       = 0.30
	availabilityWindow   = 7 * 24 * time.Hour
)

// SuggestionEngine implements Suggester: up to 3 complementary products
// (same tenant, price within ±30% of the anchor) and up to 3 services
// available in the next 7 days, deduplicated by id with out-of-stock
// items filtered, per spec.md §4.6.2.
type SuggestionEngine struct {
	catalog *catalog.Reader
}

func NewSuggestionEngine(cat *catalog.Reader) *SuggestionEngine {
	return &SuggestionEngine{catalog: cat}
}

func (e *SuggestionEngine) Suggest(ctx context.Context, tenantID, customerID string, conv *store.ConversationContext) ([]Suggestion, error) {
	anchorProductID := ""
	anchorServiceID := ""
	if conv != nil {
		anchorProductID = conv.LastProductViewed
		anchorServiceID = conv.LastServiceViewed
	}
	if anchorProductID == "" && anchorServiceID == "" && customerID == "" {
		return nil, nil
	}

	filter := &store.CatalogFilter{TenantID: tenantID, Limit: 50}
	products, err := e.catalog.ListProducts(ctx, filter)
	if err != nil {
		return nil, err
	}
	services, err := e.catalog.ListServices(ctx, filter)
	if err != nil {
		return nil, err
	}

	var anchorPrice float64
	anchorFound := false
	for _, p := range products {
		if p.ID == anchorProductID {
			anchorPrice = p.Price
			anchorFound = true
			break
		}
	}

	seen := make(map[string]bool)
	var suggestions []Suggestion

	if anchorFound {
		lower := anchorPrice * (1 - priceBandRatio)
		upper := anchorPrice * (1 + priceBandRatio)
		for _, p := range products {
			if len(suggestions) >= maxSuggestedProducts {
				break
			}
			if p.ID == anchorProductID || !p.InStock || !p.Active || seen[p.ID] {
				continue
			}
			if p.Price < lower || p.Price > upper {
				continue
			}
			seen[p.ID] = true
			suggestions = append(suggestions, Suggestion{Kind: "product", ID: p.ID, Label: p.Name, Why: "similar to a recently viewed item"})
		}
	}

	now := time.Now()
	cutoff := now.Add(availabilityWindow)
	serviceCount := 0
	for _, s := range services {
		if serviceCount >= maxSuggestedServices {
			break
		}
		if !s.Active || seen[s.ID] || s.NextAvailable == nil {
			continue
		}
		if s.NextAvailable.Before(now) || s.NextAvailable.After(cutoff) {
			continue
		}
		seen[s.ID] = true
		serviceCount++
		suggestions = append(suggestions, Suggestion{Kind: "service", ID: s.ID, Label: s.Name, Why: "available within the next week"})
	}

	return suggestions, nil
}
