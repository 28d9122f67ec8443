// Package context assembles the AgentContext handed to the prompt
// assembler: current message, recent history, knowledge, catalog slice,
// customer history, persistent conversation memory, and (optionally)
// RAG results and proactive suggestions. Grounded on the teacher's
// ai/context package: the ContextBuilder/TokenBudget/BudgetAllocator
// shape is kept, re-themed from session/memory ratios to this spec's
// history/knowledge/catalog/RAG shares, and combined with the fixed
// truncation priority order spec.md §4.6 requires once a budget is
// exceeded.
package context

// DefaultTokenBudget is the default ceiling on assembled context size,
// matching the example in spec.md §4.6.
const DefaultTokenBudget = 100_000

// EstimateTokens approximates token count as ⌈chars/4⌉, per spec.md §4.6.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return (len(s) + 3) / 4
}

// TokenBudget is the allocation plan a BudgetAllocator produces before
// any content is assembled; it only shapes how much of the budget each
// section is initially expected to use, it does not itself enforce the
// truncation order (Builder.Build does that once actual sizes are known).
type TokenBudget struct {
	Total     int
	History   int
	Knowledge int
	Catalog   int
	RAG       int
}

// BudgetAllocator splits a total token budget across sections by ratio,
// re-themed from the teacher's session/long-term/retrieval ratios to
// this spec's history/knowledge/catalog/RAG shares.
type BudgetAllocator struct {
	historyRatio   float64
	knowledgeRatio float64
	catalogRatio   float64
	ragRatio       float64
}

func NewBudgetAllocator() *BudgetAllocator {
	return &BudgetAllocator{
		historyRatio:   0.35,
		knowledgeRatio: 0.20,
		catalogRatio:   0.20,
		ragRatio:       0.25,
	}
}

func (a *BudgetAllocator) Allocate(total int) TokenBudget {
	if total <= 0 {
		total = DefaultTokenBudget
	}
	return TokenBudget{
		Total:     total,
		History:   int(float64(total) * a.historyRatio),
		Knowledge: int(float64(total) * a.knowledgeRatio),
		Catalog:   int(float64(total) * a.catalogRatio),
		RAG:       int(float64(total) * a.ragRatio),
	}
}

// truncationStep removes one slice of content per spec.md §4.6's fixed
// priority order: history to last 5, knowledge to top 3, catalog
// products to top 5, catalog services to top 5, then drop customer
// order/appointment history entirely. Returns whether it changed
// anything (callers stop once a step fires and recompute tokens).
type truncationStep struct {
	name  string
	apply func(*AgentContext) bool
}

func truncationSteps() []truncationStep {
	return []truncationStep{
		{"history", func(c *AgentContext) bool {
			if len(c.RecentMessages) > 5 {
				c.RecentMessages = c.RecentMessages[len(c.RecentMessages)-5:]
				return true
			}
			return false
		}},
		{"knowledge", func(c *AgentContext) bool {
			if len(c.Knowledge) > 3 {
				c.Knowledge = c.Knowledge[:3]
				return true
			}
			return false
		}},
		{"catalog_products", func(c *AgentContext) bool {
			if len(c.Products) > 5 {
				c.Products = c.Products[:5]
				return true
			}
			return false
		}},
		{"catalog_services", func(c *AgentContext) bool {
			if len(c.Services) > 5 {
				c.Services = c.Services[:5]
				return true
			}
			return false
		}},
		{"customer_history", func(c *AgentContext) bool {
			if len(c.RecentOrders) > 0 || len(c.RecentAppointments) > 0 {
				c.RecentOrders = nil
				c.RecentAppointments = nil
				return true
			}
			return false
		}},
	}
}
