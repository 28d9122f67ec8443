// Package usage records per-call and per-turn LLM cost/latency ledgers,
// per spec.md §4.14. Grounded on the teacher's store.AIBlock.TokenUsage/
// CostEstimate fields (a block records usage even when generation
// fails) and ai/core/llm/service.go's LLMCallStats shape; re-themed from
// a conversation-block ledger into the two flatter store.ProviderUsage/
// store.AgentInteraction rows this spec's store layer already defines.
package usage

import (
	"context"
	"log/slog"
	"time"

	"github.com/conversagent/core/ai/filter"
	"github.com/conversagent/core/ai/providerrouter"
	"github.com/conversagent/core/store"
)

// Recorder writes usage ledger rows best-effort: a write failure is
// logged, never propagated, so a logging outage cannot block an
// outbound reply.
type Recorder struct {
	store  *store.Store
	log    *slog.Logger
	filter *filter.Filter // optional; nil persists customer/reply text unmasked
}

func NewRecorder(st *store.Store, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{store: st, log: log}
}

// WithFilter masks phone numbers, emails, payment card numbers, and
// order-reference UUIDs out of the customer message and generated reply before
// RecordTurn persists them, since AgentInteraction rows are an
// analytics ledger, not a place this deployment wants raw PII to land.
func (r *Recorder) WithFilter(f *filter.Filter) *Recorder {
	r.filter = f
	return r
}

// CallOutcome describes one LLM provider call, success or failure, fed
// to RecordCall regardless of outcome per spec.md §4.14 ("one
// ProviderUsage row per LLM call (even on failure)").
type CallOutcome struct {
	TenantID        string
	Provider        string
	Model           string
	InputTokens     int
	OutputTokens    int
	TotalTokens     int
	EstimatedCost   float64
	LatencyMS       int64
	Success         bool
	FinishReason    string
	Failover        bool
	RoutingReason   string
	ComplexityScore float64
}

// RecordCall persists one ProviderUsage row and returns its id (empty on
// write failure, which is logged, not returned as an error) so the
// caller can set AgentInteraction.PrimaryUsageID.
func (r *Recorder) RecordCall(ctx context.Context, o CallOutcome) string {
	row, err := r.store.CreateProviderUsage(ctx, &store.CreateProviderUsage{
		Usage: &store.ProviderUsage{
			TenantID:        o.TenantID,
			Provider:        o.Provider,
			Model:           o.Model,
			InputTokens:     o.InputTokens,
			OutputTokens:    o.OutputTokens,
			TotalTokens:     o.TotalTokens,
			EstimatedCost:   o.EstimatedCost,
			LatencyMS:       o.LatencyMS,
			Success:         o.Success,
			FinishReason:    o.FinishReason,
			Failover:        o.Failover,
			RoutingReason:   o.RoutingReason,
			ComplexityScore: o.ComplexityScore,
		},
	})
	if err != nil {
		r.log.Error("usage: failed to record provider usage", "tenant_id", o.TenantID, "provider", o.Provider, "error", err)
		return ""
	}
	return row.ID
}

// RecordAttempts records one ProviderUsage row per providerrouter.Attempt
// from a failover chain, in order, and returns the last attempt's usage
// row id (the one that ultimately served or failed the turn) for
// AgentInteraction.PrimaryUsageID.
func (r *Recorder) RecordAttempts(ctx context.Context, tenantID string, attempts []providerrouter.Attempt, latencyPerAttempt time.Duration) string {
	var primaryID string
	for _, a := range attempts {
		finishReason := ""
		if a.Err != nil {
			finishReason = a.Err.Error()
		}
		primaryID = r.RecordCall(ctx, CallOutcome{
			TenantID:      tenantID,
			Provider:      a.Model.Provider,
			Model:         a.Model.ModelID,
			Success:       a.Success,
			Failover:      a.WasFailover,
			FinishReason:  finishReason,
			LatencyMS:     latencyPerAttempt.Milliseconds(),
		})
	}
	return primaryID
}

// Turn describes one agent turn, fed to RecordTurn after the reply (or
// handoff, or failure) is decided.
type Turn struct {
	TenantID         string
	ConversationID   string
	CustomerMessage  string
	DetectedIntents  []string
	ModelID          string
	ContextTokens    int
	ProcessingTime   time.Duration
	GeneratedReply   string
	Confidence       float64
	HandoffTriggered bool
	HandoffReason    string
	ReplyShape       store.ReplyShape
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	EstimatedCost    float64
	PrimaryUsageID   string
}

// RecordTurn persists one AgentInteraction row, best-effort.
func (r *Recorder) RecordTurn(ctx context.Context, t Turn) {
	customerMessage, generatedReply := t.CustomerMessage, t.GeneratedReply
	if r.filter != nil {
		customerMessage = r.filter.FilterText(customerMessage)
		generatedReply = r.filter.FilterText(generatedReply)
	}
	_, err := r.store.CreateAgentInteraction(ctx, &store.CreateAgentInteraction{
		Interaction: &store.AgentInteraction{
			TenantID:         t.TenantID,
			ConversationID:   t.ConversationID,
			CustomerMessage:  customerMessage,
			DetectedIntents:  t.DetectedIntents,
			ModelID:          t.ModelID,
			ContextTokens:    t.ContextTokens,
			ProcessingTimeMS: t.ProcessingTime.Milliseconds(),
			GeneratedReply:   generatedReply,
			Confidence:       t.Confidence,
			HandoffTriggered: t.HandoffTriggered,
			HandoffReason:    t.HandoffReason,
			ReplyShape:       t.ReplyShape,
			PromptTokens:     t.PromptTokens,
			CompletionTokens: t.CompletionTokens,
			TotalTokens:      t.TotalTokens,
			EstimatedCost:    t.EstimatedCost,
			PrimaryUsageID:   t.PrimaryUsageID,
		},
	})
	if err != nil {
		r.log.Error("usage: failed to record agent interaction", "tenant_id", t.TenantID, "conversation_id", t.ConversationID, "error", err)
	}
}
