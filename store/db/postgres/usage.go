package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/conversagent/core/store"
)

func (d *DB) CreateAgentInteraction(ctx context.Context, create *store.CreateAgentInteraction) (*store.AgentInteraction, error) {
	in := create.Interaction
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	in.CreatedAt = time.Now().UTC()
	intents, _ := json.Marshal(in.DetectedIntents)

	stmt := `INSERT INTO agent_interaction (id, tenant_id, conversation_id, customer_message, detected_intents, model_id,
		context_tokens, processing_time_ms, generated_reply, confidence, handoff_triggered, handoff_reason, reply_shape,
		prompt_tokens, completion_tokens, total_tokens, estimated_cost, primary_usage_id, created_at)
		VALUES (` + placeholders(19) + `)`
	_, err := d.db.ExecContext(ctx, stmt, in.ID, in.TenantID, in.ConversationID, in.CustomerMessage, intents, in.ModelID,
		in.ContextTokens, in.ProcessingTimeMS, in.GeneratedReply, in.Confidence, in.HandoffTriggered, in.HandoffReason, in.ReplyShape,
		in.PromptTokens, in.CompletionTokens, in.TotalTokens, in.EstimatedCost, in.PrimaryUsageID, in.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create agent interaction")
	}
	return in, nil
}

func (d *DB) CreateProviderUsage(ctx context.Context, create *store.CreateProviderUsage) (*store.ProviderUsage, error) {
	u := create.Usage
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now().UTC()

	stmt := `INSERT INTO provider_usage (id, tenant_id, provider, model, input_tokens, output_tokens, total_tokens,
		estimated_cost, latency_ms, success, finish_reason, failover, routing_reason, complexity_score, interaction_id, created_at)
		VALUES (` + placeholders(16) + `)`
	_, err := d.db.ExecContext(ctx, stmt, u.ID, u.TenantID, u.Provider, u.Model, u.InputTokens, u.OutputTokens, u.TotalTokens,
		u.EstimatedCost, u.LatencyMS, u.Success, u.FinishReason, u.Failover, u.RoutingReason, u.ComplexityScore, u.InteractionID, u.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create provider usage")
	}
	return u, nil
}
