package context

import (
	"context"
	"time"

	"github.com/conversagent/core/ai/catalog"
	"github.com/conversagent/core/ai/fuzzymatch"
	"github.com/conversagent/core/ai/knowledge"
	"github.com/conversagent/core/store"
)

// AgentContext is the transient value the prompt assembler consumes. It
// is rebuilt every turn from ids and must never be persisted itself —
// only ConversationContext (the durable summary/facts slice) survives
// across turns. See spec.md §9's cyclic-reference note.
type AgentContext struct {
	TenantID       string
	ConversationID string
	CurrentMessage string

	RecentMessages []*store.Message
	Knowledge      []knowledge.Match
	Products       []*store.Product
	Services       []*store.Service

	RecentOrders       []*store.Order
	RecentAppointments []*store.Appointment

	Conversation *store.ConversationContext

	RAGSources  []RAGSource
	Suggestions []Suggestion

	// RecoveredQuestion is the most recent unanswered question the
	// customer's current message is calling out as forgotten, if any.
	// Set only when the current message itself reads as a
	// forgot-my-request callout; see ai/recovery.
	RecoveredQuestion string

	Truncated bool
}

// RAGSource is one item retrieved by ai/retrieval, carried through so
// ai/prompt can render it and §4.9's citation/attribution can cite it.
type RAGSource struct {
	Origin  string // document | database | internet
	Title   string
	Content string
	Score   float64
}

// Suggestion is a proactive cross-sell/upsell candidate from §4.6.2.
type Suggestion struct {
	Kind  string // product | service
	ID    string
	Label string
	Why   string
}

// HistoryLimit is the default K most-recent messages pulled into
// context before any truncation runs, per spec.md §4.6.
const HistoryLimit = 20

// Retriever is the subset of ai/retrieval.Orchestrator the builder
// needs; satisfied by *retrieval.Orchestrator.
type Retriever interface {
	Fetch(ctx context.Context, tenantID, query string) ([]RAGSource, error)
}

// Suggester is the subset of suggestions.go the builder needs.
type Suggester interface {
	Suggest(ctx context.Context, tenantID, customerID string, conv *store.ConversationContext) ([]Suggestion, error)
}

// RecoveryDetector is the subset of ai/recovery.Detector the builder
// needs; satisfied by *recovery.Detector.
type RecoveryDetector interface {
	FindUnanswered(ctx context.Context, tenantID, conversationID string) (*Unanswered, error)
}

// Unanswered is a single unaddressed customer question surfaced by
// ai/recovery, defined here (rather than in ai/recovery) the same way
// RAGSource and Suggestion are: the producer package imports
// agentcontext and returns this shape directly.
type Unanswered struct {
	Text      string
	CreatedAt time.Time
	Age       time.Duration
}

// Builder assembles AgentContext for a single turn.
type Builder struct {
	store     *store.Store
	knowledge *knowledge.Service
	catalog   *catalog.Reader
	allocator *BudgetAllocator
	retriever Retriever // nil disables RAG
	suggester Suggester // nil disables proactive suggestions
	recovery  RecoveryDetector // nil disables forgot-request recovery
}

func NewBuilder(st *store.Store, ks *knowledge.Service, cat *catalog.Reader) *Builder {
	return &Builder{store: st, knowledge: ks, catalog: cat, allocator: NewBudgetAllocator()}
}

func (b *Builder) WithRetriever(r Retriever) *Builder {
	b.retriever = r
	return b
}

func (b *Builder) WithSuggester(s Suggester) *Builder {
	b.suggester = s
	return b
}

func (b *Builder) WithRecovery(r RecoveryDetector) *Builder {
	b.recovery = r
	return b
}

// Request carries the inputs that vary per turn.
type Request struct {
	TenantID       string
	ConversationID string
	CustomerID     string
	CurrentMessage string
	Config         *store.AgentConfiguration
	Filter         *store.CatalogFilter
	EnableRAG      bool
	EnableSuggest  bool
	// CheckRecovery is set by the caller once it has already determined
	// (ai/recovery.IsForgotRequest) that CurrentMessage is calling out a
	// forgotten or ignored request; the builder does not re-run that
	// check itself so it never needs to import ai/recovery.
	CheckRecovery bool
	TokenBudget   int // 0 uses DefaultTokenBudget
}

// Build assembles the full AgentContext, then truncates in the fixed
// priority order (history→5, knowledge→top3, products→top5,
// services→top5, drop customer history), recomputing the token estimate
// after each step and stopping as soon as it fits the budget; once every
// step has been applied the result is returned even if the estimate is
// still over budget. The current message and the
// tenant's can-do/cannot-do/disclaimer strings are never truncated;
// those live in the system prompt, not in AgentContext's truncated
// fields.
func (b *Builder) Build(ctx context.Context, req Request) (*AgentContext, error) {
	conv, err := b.loadConversationContext(ctx, req.TenantID, req.ConversationID)
	if err != nil {
		return nil, err
	}

	messages, err := b.store.ListRecentMessages(ctx, &store.FindMessages{
		TenantID:       req.TenantID,
		ConversationID: req.ConversationID,
		Limit:          HistoryLimit,
	})
	if err != nil {
		return nil, err
	}

	var matches []knowledge.Match
	if b.knowledge != nil {
		matches, err = b.knowledge.Search(ctx, req.TenantID, req.CurrentMessage, nil, 10, 0)
		if err != nil {
			return nil, err
		}
	}

	var products []*store.Product
	var services []*store.Service
	if b.catalog != nil && req.Filter != nil {
		products, err = b.catalog.ListProducts(ctx, req.Filter)
		if err != nil {
			return nil, err
		}
		services, err = b.catalog.ListServices(ctx, req.Filter)
		if err != nil {
			return nil, err
		}
		if req.Config != nil && req.Config.EnableSpellingCorrection && req.Filter.Text != "" {
			if len(products) == 0 {
				products, err = b.fuzzyProducts(ctx, req.Filter)
				if err != nil {
					return nil, err
				}
			}
			if len(services) == 0 {
				services, err = b.fuzzyServices(ctx, req.Filter)
				if err != nil {
					return nil, err
				}
			}
		}
	}

	var orders []*store.Order
	var appointments []*store.Appointment
	if b.catalog != nil && req.CustomerID != "" {
		orders, err = b.catalog.ListRecentOrders(ctx, req.TenantID, req.CustomerID, 10)
		if err != nil {
			return nil, err
		}
		appointments, err = b.catalog.ListRecentAppointments(ctx, req.TenantID, req.CustomerID, 10)
		if err != nil {
			return nil, err
		}
	}

	agentCtx := &AgentContext{
		TenantID:           req.TenantID,
		ConversationID:     req.ConversationID,
		CurrentMessage:     req.CurrentMessage,
		RecentMessages:     messages,
		Knowledge:          matches,
		Products:           products,
		Services:           services,
		RecentOrders:       orders,
		RecentAppointments: appointments,
		Conversation:       conv,
	}

	if req.EnableRAG && b.retriever != nil {
		sources, err := b.retriever.Fetch(ctx, req.TenantID, req.CurrentMessage)
		if err == nil {
			agentCtx.RAGSources = sources
		}
	}
	if req.EnableSuggest && b.suggester != nil {
		suggestions, err := b.suggester.Suggest(ctx, req.TenantID, req.CustomerID, conv)
		if err == nil {
			agentCtx.Suggestions = suggestions
		}
	}
	if req.CheckRecovery && b.recovery != nil {
		unanswered, err := b.recovery.FindUnanswered(ctx, req.TenantID, req.ConversationID)
		if err == nil && unanswered != nil {
			agentCtx.RecoveredQuestion = unanswered.Text
		}
	}

	budget := req.TokenBudget
	if budget <= 0 {
		budget = DefaultTokenBudget
	}
	agentCtx.Truncated = enforceBudget(agentCtx, budget)

	return agentCtx, nil
}

// fuzzyCatalogLimit bounds the fuzzy-reranked fallback result the same
// way the exact SQL LIKE filter is bounded by CatalogFilter.Limit, used
// when the filter itself carries no limit.
const fuzzyCatalogLimit = 5

// fuzzyProducts runs when the exact name LIKE filter in req.Filter.Text
// starved (the SQL filter has zero typo tolerance; see
// store/db/sqlite/catalog.go). It re-fetches the tenant's products
// unfiltered and reranks them against the original query text with
// fuzzymatch, so a misspelled product name can still surface a match.
func (b *Builder) fuzzyProducts(ctx context.Context, filter *store.CatalogFilter) ([]*store.Product, error) {
	broad := &store.CatalogFilter{TenantID: filter.TenantID, Cursor: filter.Cursor}
	candidates, err := b.catalog.ListProducts(ctx, broad)
	if err != nil {
		return nil, err
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = fuzzyCatalogLimit
	}
	matches := fuzzymatch.MatchProducts(filter.Text, candidates, fuzzymatch.LowConfidenceThreshold, limit)
	products := make([]*store.Product, len(matches))
	for i, m := range matches {
		products[i] = m.Product
	}
	return products, nil
}

// fuzzyServices is fuzzyProducts' counterpart for services.
func (b *Builder) fuzzyServices(ctx context.Context, filter *store.CatalogFilter) ([]*store.Service, error) {
	broad := &store.CatalogFilter{TenantID: filter.TenantID, Cursor: filter.Cursor}
	candidates, err := b.catalog.ListServices(ctx, broad)
	if err != nil {
		return nil, err
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = fuzzyCatalogLimit
	}
	matches := fuzzymatch.MatchServices(filter.Text, candidates, fuzzymatch.LowConfidenceThreshold, limit)
	services := make([]*store.Service, len(matches))
	for i, m := range matches {
		services[i] = m.Service
	}
	return services, nil
}

// enforceBudget estimates agentCtx's size and, while it exceeds budget,
// applies the next truncation step in priority order, recomputing the
// estimate after each step. It reports whether any step fired.
func enforceBudget(c *AgentContext, budget int) bool {
	fired := false
	for estimate(c) > budget {
		applied := false
		for _, step := range truncationSteps() {
			if step.apply(c) {
				applied = true
				fired = true
				break
			}
		}
		if !applied {
			break
		}
	}
	return fired
}

func estimate(c *AgentContext) int {
	total := EstimateTokens(c.CurrentMessage)
	for _, m := range c.RecentMessages {
		total += EstimateTokens(m.Text)
	}
	for _, k := range c.Knowledge {
		if k.Entry != nil {
			total += EstimateTokens(k.Entry.Title) + EstimateTokens(k.Entry.Content)
		}
	}
	for _, p := range c.Products {
		total += EstimateTokens(p.Name) + EstimateTokens(p.Description)
	}
	for _, s := range c.Services {
		total += EstimateTokens(s.Name) + EstimateTokens(s.Description)
	}
	total += len(c.RecentOrders) * 10
	total += len(c.RecentAppointments) * 10
	if c.Conversation != nil {
		total += EstimateTokens(c.Conversation.Summary)
		for _, f := range c.Conversation.KeyFacts {
			total += EstimateTokens(f)
		}
	}
	for _, r := range c.RAGSources {
		total += EstimateTokens(r.Content)
	}
	return total
}

func (b *Builder) loadConversationContext(ctx context.Context, tenantID, conversationID string) (*store.ConversationContext, error) {
	return LoadOrCreate(ctx, b.store, tenantID, conversationID, time.Now())
}
