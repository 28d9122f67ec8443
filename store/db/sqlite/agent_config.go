package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/conversagent/core/store"
)

func (d *DB) GetAgentConfiguration(ctx context.Context, tenantID string) (*store.AgentConfiguration, error) {
	query := `SELECT tenant_id, display_name, persona_traits, tone, default_model_id, fallback_model_ids,
		temperature, max_reply_length, behavioural_restrictions, required_disclaimers, confidence_threshold,
		auto_handoff_topics, max_low_confidence_attempts, enable_proactive_suggestions, enable_spelling_correction,
		enable_rich_messages, enable_document_retrieval, enable_database_retrieval, enable_internet_retrieval,
		enable_source_attribution, enable_feedback_collection, feedback_frequency, agent_can_do, agent_cannot_do,
		per_source_retrieval_caps, version, updated_at
		FROM agent_configuration WHERE tenant_id = ?`

	c := &store.AgentConfiguration{}
	var traits, fallback, restrictions, disclaimers, topics, caps []byte
	err := d.db.QueryRowContext(ctx, query, tenantID).Scan(
		&c.TenantID, &c.DisplayName, &traits, &c.Tone, &c.DefaultModelID, &fallback,
		&c.Temperature, &c.MaxReplyLength, &restrictions, &disclaimers, &c.ConfidenceThreshold,
		&topics, &c.MaxLowConfidenceAttempts, &c.EnableProactiveSuggestions, &c.EnableSpellingCorrection,
		&c.EnableRichMessages, &c.EnableDocumentRetrieval, &c.EnableDatabaseRetrieval, &c.EnableInternetRetrieval,
		&c.EnableSourceAttribution, &c.EnableFeedbackCollection, &c.FeedbackFrequency, &c.AgentCanDo, &c.AgentCannotDo,
		&caps, &c.Version, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return defaultAgentConfiguration(tenantID), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get agent configuration")
	}
	_ = json.Unmarshal(traits, &c.PersonaTraits)
	_ = json.Unmarshal(fallback, &c.FallbackModelIDs)
	_ = json.Unmarshal(restrictions, &c.BehaviouralRestrictions)
	_ = json.Unmarshal(disclaimers, &c.RequiredDisclaimers)
	_ = json.Unmarshal(topics, &c.AutoHandoffTopics)
	_ = json.Unmarshal(caps, &c.PerSourceRetrievalCaps)
	return c, nil
}

func defaultAgentConfiguration(tenantID string) *store.AgentConfiguration {
	return &store.AgentConfiguration{
		TenantID:                 tenantID,
		Tone:                     "professional",
		Temperature:              0.7,
		MaxReplyLength:           500,
		ConfidenceThreshold:      0.7,
		MaxLowConfidenceAttempts: 3,
		FeedbackFrequency:        store.FeedbackSometimes,
		Version:                  0,
	}
}

func (d *DB) UpsertAgentConfiguration(ctx context.Context, upsert *store.UpsertAgentConfiguration) (*store.AgentConfiguration, error) {
	c := upsert.Config
	if err := store.ValidateJSONColumn(c.PersonaTraits); err != nil {
		return nil, err
	}

	traits, _ := json.Marshal(c.PersonaTraits)
	fallback, _ := json.Marshal(c.FallbackModelIDs)
	restrictions, _ := json.Marshal(c.BehaviouralRestrictions)
	disclaimers, _ := json.Marshal(c.RequiredDisclaimers)
	topics, _ := json.Marshal(c.AutoHandoffTopics)
	caps, _ := json.Marshal(c.PerSourceRetrievalCaps)
	now := time.Now().UTC()

	stmt := `
		INSERT INTO agent_configuration (
			tenant_id, display_name, persona_traits, tone, default_model_id, fallback_model_ids,
			temperature, max_reply_length, behavioural_restrictions, required_disclaimers, confidence_threshold,
			auto_handoff_topics, max_low_confidence_attempts, enable_proactive_suggestions, enable_spelling_correction,
			enable_rich_messages, enable_document_retrieval, enable_database_retrieval, enable_internet_retrieval,
			enable_source_attribution, enable_feedback_collection, feedback_frequency, agent_can_do, agent_cannot_do,
			per_source_retrieval_caps, version, updated_at
		) VALUES (` + placeholders(24) + `, 1, ?)
		ON CONFLICT (tenant_id) DO UPDATE SET
			display_name = excluded.display_name,
			persona_traits = excluded.persona_traits,
			tone = excluded.tone,
			default_model_id = excluded.default_model_id,
			fallback_model_ids = excluded.fallback_model_ids,
			temperature = excluded.temperature,
			max_reply_length = excluded.max_reply_length,
			behavioural_restrictions = excluded.behavioural_restrictions,
			required_disclaimers = excluded.required_disclaimers,
			confidence_threshold = excluded.confidence_threshold,
			auto_handoff_topics = excluded.auto_handoff_topics,
			max_low_confidence_attempts = excluded.max_low_confidence_attempts,
			enable_proactive_suggestions = excluded.enable_proactive_suggestions,
			enable_spelling_correction = excluded.enable_spelling_correction,
			enable_rich_messages = excluded.enable_rich_messages,
			enable_document_retrieval = excluded.enable_document_retrieval,
			enable_database_retrieval = excluded.enable_database_retrieval,
			enable_internet_retrieval = excluded.enable_internet_retrieval,
			enable_source_attribution = excluded.enable_source_attribution,
			enable_feedback_collection = excluded.enable_feedback_collection,
			feedback_frequency = excluded.feedback_frequency,
			agent_can_do = excluded.agent_can_do,
			agent_cannot_do = excluded.agent_cannot_do,
			per_source_retrieval_caps = excluded.per_source_retrieval_caps,
			version = agent_configuration.version + 1,
			updated_at = excluded.updated_at
		RETURNING version, updated_at`

	err := d.db.QueryRowContext(ctx, stmt,
		c.TenantID, c.DisplayName, traits, c.Tone, c.DefaultModelID, fallback,
		c.Temperature, c.MaxReplyLength, restrictions, disclaimers, c.ConfidenceThreshold,
		topics, c.MaxLowConfidenceAttempts, c.EnableProactiveSuggestions, c.EnableSpellingCorrection,
		c.EnableRichMessages, c.EnableDocumentRetrieval, c.EnableDatabaseRetrieval, c.EnableInternetRetrieval,
		c.EnableSourceAttribution, c.EnableFeedbackCollection, c.FeedbackFrequency, c.AgentCanDo, c.AgentCannotDo,
		caps, now,
	).Scan(&c.Version, &c.UpdatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert agent configuration")
	}
	return c, nil
}
