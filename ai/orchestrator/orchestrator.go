// Package orchestrator drives one harmonized customer turn through the
// full pipeline: context assembly (C6), intent detection (C7), model
// routing and failover (C8), prompt assembly and generation (C9),
// grounded-response validation (C10), handoff evaluation (C11),
// rich-message shaping (C12), and usage recording (C14), then dispatches
// the reply through the channel gateway. Grounded on
// plugin/chat_apps/channels/base.go's ChannelRouter as the thing that
// ties message receipt to dispatch, generalised here into the turn loop
// spec.md's component table implies but never names as its own package.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/conversagent/core/ai/attribution"
	"github.com/conversagent/core/ai/cache"
	agentcontext "github.com/conversagent/core/ai/context"
	"github.com/conversagent/core/ai/convsummary"
	"github.com/conversagent/core/ai/featureflag"
	"github.com/conversagent/core/ai/format"
	"github.com/conversagent/core/ai/handoff"
	"github.com/conversagent/core/ai/harmonizer"
	"github.com/conversagent/core/ai/intent"
	"github.com/conversagent/core/ai/llmclient"
	"github.com/conversagent/core/ai/prompt"
	"github.com/conversagent/core/ai/providerrouter"
	"github.com/conversagent/core/ai/recovery"
	"github.com/conversagent/core/ai/richmessage"
	"github.com/conversagent/core/ai/usage"
	"github.com/conversagent/core/ai/validator"
	"github.com/conversagent/core/channels"
	"github.com/conversagent/core/internal/metrics"
	"github.com/conversagent/core/store"
)

// scenario is the fixed base template every tenant's system prompt
// overlays its persona onto; spec.md §4.9 leaves the base scenario text
// to the deployment, so this is the one this module ships.
const scenario = `You are a conversational commerce assistant helping a customer over a messaging channel. Answer from the context you are given; never invent prices, stock levels, or features that are not present in it.`

// defaultMaxTokens bounds generation when AgentConfiguration carries no
// override; spec.md names no default, so this mirrors llmclient's own
// provider-agnostic fallback.
const defaultMaxTokens = 1024

// Turn orchestrates a single harmonized message. It implements
// harmonizer.Handler so the message harmonizer (C5) can hand it
// finished batches directly.
type Turn struct {
	store     *store.Store
	builder   *agentcontext.Builder
	detector  *intent.Detector
	multi     *llmclient.MultiProvider
	health    *providerrouter.HealthTracker
	routerCfg providerrouter.Config
	channels  *channels.Router
	// platform is the outbound channel name looked up in channels.Router
	// when dispatching a reply. store.Tenant carries no per-tenant
	// channel-platform field (§3's data model ties a tenant to channel
	// credentials, not a named platform), and this module ships exactly
	// one channel adapter (channels/whatsapp), so the deployed platform
	// is a process-wide constant rather than a per-tenant lookup.
	platform string
	limits    richmessage.Limits
	recorder  *usage.Recorder
	summarize *convsummary.Generator
	flags     *featureflag.Service
	metrics   *metrics.Exporter
	log       *slog.Logger

	attemptTimeout time.Duration
}

var _ harmonizer.Handler = (*Turn)(nil)

// Config bundles Turn's collaborators.
type Config struct {
	Store          *store.Store
	Builder        *agentcontext.Builder
	LLM            llmclient.Service
	Multi          *llmclient.MultiProvider
	RouterConfig   providerrouter.Config
	Channels       *channels.Router
	Platform       string
	Limits         richmessage.Limits
	Recorder       *usage.Recorder
	Summarize      *convsummary.Generator // optional; nil disables rolling summaries
	Flags          *featureflag.Service   // optional; nil disables gradual-rollout gating (every flag defaults on)
	Metrics        *metrics.Exporter      // optional; nil disables turn/provider metrics
	IntentCache    *cache.SemanticCache   // optional; nil re-runs intent detection on every message
	Log            *slog.Logger
	AttemptTimeout time.Duration // default 20s
}

func New(cfg Config) *Turn {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	timeout := cfg.AttemptTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Turn{
		store:          cfg.Store,
		builder:        cfg.Builder,
		detector:       intent.NewDetector(cfg.LLM).WithCache(cfg.IntentCache),
		multi:          cfg.Multi,
		health:         providerrouter.NewHealthTracker(),
		routerCfg:      cfg.RouterConfig,
		channels:       cfg.Channels,
		platform:       cfg.Platform,
		limits:         cfg.Limits,
		recorder:       cfg.Recorder,
		summarize:      cfg.Summarize,
		flags:          cfg.Flags,
		metrics:        cfg.Metrics,
		log:            log,
		attemptTimeout: timeout,
	}
}

// HandleBatch is the harmonizer.Handler entry point: text is the
// concatenated customer message for this burst.
func (t *Turn) HandleBatch(ctx context.Context, tenantID, conversationID, text string) error {
	start := time.Now()

	conv, err := t.store.GetConversation(ctx, tenantID, conversationID)
	if err != nil {
		return errors.Wrap(err, "orchestrator: load conversation")
	}

	config, err := t.store.GetAgentConfigurationCached(ctx, tenantID)
	if err != nil {
		return errors.Wrap(err, "orchestrator: load agent configuration")
	}

	intentNames, cues := t.detectIntents(ctx, tenantID, conversationID, text)

	agentCtx, err := t.builder.Build(ctx, agentcontext.Request{
		TenantID:       tenantID,
		ConversationID: conversationID,
		CustomerID:     conv.CustomerID,
		CurrentMessage: text,
		Config:         config,
		Filter:         &store.CatalogFilter{TenantID: tenantID, Text: text, Limit: 5},
		EnableRAG:      config.EnableDocumentRetrieval || config.EnableInternetRetrieval,
		EnableSuggest:  config.EnableProactiveSuggestions,
		CheckRecovery:  t.recoveryEnabled(tenantID) && recovery.IsForgotRequest(text),
	})
	if err != nil {
		return errors.Wrap(err, "orchestrator: build context")
	}
	_ = cues
	t.observeRetrieval(agentCtx)

	decision, chain, contextTokens, complexity := t.route(config, agentCtx, text)

	result, attempts, genErr := t.generate(ctx, config, agentCtx, text, decision.Model, chain)
	latency := time.Since(start)
	t.observeAttempts(attempts, latency)
	primaryUsageID := t.recorder.RecordAttempts(ctx, tenantID, attempts, latency)
	if genErr != nil {
		t.observeTurn("error", latency)
		return errors.Wrap(genErr, "orchestrator: generation failed on every configured provider")
	}

	reply := result.Content
	confidence := t.scoreConfidence(reply, agentCtx)

	handoffDecision := handoff.Evaluate(handoff.Input{
		Confidence:               confidence,
		ConfidenceThreshold:      config.ConfidenceThreshold,
		LowConfidenceCounter:     conv.LowConfidenceCounter,
		MaxLowConfidenceAttempts: config.MaxLowConfidenceAttempts,
		LastInboundMessage:       text,
		GeneratedReply:           reply,
		AutoHandoffTopics:        config.AutoHandoffTopics,
	})

	t.applyTurnOutcome(ctx, tenantID, conversationID, intentNames, confidence, handoffDecision)

	replyShape := store.ReplyText
	if !handoffDecision.ShouldHandoff {
		replyShape = t.deliverReply(ctx, tenantID, conversationID, conv.CustomerID, config, agentCtx, reply)
	}

	if t.summarize != nil {
		t.summarize.MaybeSummarize(ctx, tenantID, conversationID)
	}

	t.recorder.RecordTurn(ctx, usage.Turn{
		TenantID:         tenantID,
		ConversationID:   conversationID,
		CustomerMessage:  text,
		DetectedIntents:  intentNames,
		ModelID:          decision.Model.ModelID,
		ContextTokens:    contextTokens,
		ProcessingTime:   latency,
		GeneratedReply:   reply,
		Confidence:       confidence,
		HandoffTriggered: handoffDecision.ShouldHandoff,
		HandoffReason:    string(handoffDecision.Reason),
		ReplyShape:       replyShape,
		PromptTokens:     result.InputTokens,
		CompletionTokens: result.OutputTokens,
		TotalTokens:      result.TotalTokens,
		EstimatedCost:    result.EstimatedCost,
		PrimaryUsageID:   primaryUsageID,
	})

	status := "success"
	if handoffDecision.ShouldHandoff {
		status = "handoff"
	}
	t.observeTurn(status, latency)

	_ = complexity
	return nil
}

// observeAttempts and observeTurn are no-ops when no metrics exporter is
// configured, following the same nil-safe collaborator pattern as
// recoveryEnabled.
func (t *Turn) observeAttempts(attempts []providerrouter.Attempt, latency time.Duration) {
	if t.metrics == nil {
		return
	}
	for _, a := range attempts {
		status := "success"
		if !a.Success {
			status = "error"
		}
		t.metrics.ObserveProviderAttempt(a.Model.Provider, a.Model.ModelID, status, latency.Seconds())
	}
}

func (t *Turn) observeTurn(status string, latency time.Duration) {
	if t.metrics == nil {
		return
	}
	t.metrics.ObserveTurn(status, latency.Seconds())
}

func (t *Turn) observeRetrieval(agentCtx *agentcontext.AgentContext) {
	if t.metrics == nil {
		return
	}
	for _, r := range agentCtx.RAGSources {
		t.metrics.ObserveRetrieval(r.Origin)
	}
}

// detectIntents runs C7 and logs rather than fails the turn on error,
// since a missed intent classification should not block a reply the
// context builder and LLM can still produce.
func (t *Turn) detectIntents(ctx context.Context, tenantID, conversationID, text string) ([]string, intent.ContextCues) {
	cues := intent.ContextCues{}
	intents, err := t.detector.Detect(ctx, text, cues)
	if err != nil {
		t.log.Warn("orchestrator: intent detection failed", "tenant_id", tenantID, "conversation_id", conversationID, "error", err)
		return nil, cues
	}
	names := make([]string, 0, len(intents))
	for _, in := range intents {
		names = append(names, string(in.Name))
	}
	return names, cues
}

// recoveryEnabled gates the forgot-request-recovery check behind its
// gradual rollout flag; a nil flags service (no gating configured)
// defaults every tenant to enabled.
func (t *Turn) recoveryEnabled(tenantID string) bool {
	if t.flags == nil {
		return true
	}
	return t.flags.IsEnabled("forgot_request_recovery", tenantID, true)
}

// route applies C8's complexity/context-size routing table against the
// tenant's configured default and fallback models, all bound to the
// single LLM provider this deployment's Profile configures (see
// providerrouter.Config's doc on this module's single-provider scope).
func (t *Turn) route(config *store.AgentConfiguration, agentCtx *agentcontext.AgentContext, text string) (providerrouter.Decision, []providerrouter.Model, int, float64) {
	provider := t.routerCfg.Default.Provider

	cfg := t.routerCfg
	if config.DefaultModelID != "" {
		cfg.Default = providerrouter.Model{Provider: provider, ModelID: config.DefaultModelID}
	}
	chain := make([]providerrouter.Model, 0, len(config.FallbackModelIDs))
	for _, m := range config.FallbackModelIDs {
		chain = append(chain, providerrouter.Model{Provider: provider, ModelID: m})
	}

	contextTokens := estimateTokens(agentCtx)
	complexity := providerrouter.Complexity(providerrouter.ComplexityInput{
		ConversationMessageCount: len(agentCtx.RecentMessages),
		TotalMessageLength:       totalMessageLength(agentCtx.RecentMessages),
		LastUserMessage:          text,
	})

	decision := providerrouter.Route(cfg, contextTokens, complexity)
	if decision.Model.ModelID == "" {
		decision.Model = cfg.Default
	}
	return decision, chain, contextTokens, complexity
}

// generate assembles the system/user prompt and walks the failover
// chain (C9 + C8's fallback behaviour).
func (t *Turn) generate(ctx context.Context, config *store.AgentConfiguration, agentCtx *agentcontext.AgentContext, text string, primary providerrouter.Model, chain []providerrouter.Model) (*llmclient.Result, []providerrouter.Attempt, error) {
	systemPrompt := prompt.BuildSystemPrompt(scenario, prompt.Persona{
		DisplayName:             config.DisplayName,
		Tone:                    config.Tone,
		Traits:                  config.PersonaTraits,
		BehaviouralRestrictions: config.BehaviouralRestrictions,
		RequiredDisclaimers:     config.RequiredDisclaimers,
		MaxReplyLength:          config.MaxReplyLength,
		ConfidenceThreshold:     config.ConfidenceThreshold,
		AgentCanDo:              config.AgentCanDo,
		AgentCannotDo:           config.AgentCannotDo,
	})
	userPrompt := prompt.BuildUserPrompt(buildSections(agentCtx, text))

	maxTokens := defaultMaxTokens
	if config.MaxReplyLength > 0 && config.MaxReplyLength*2 < maxTokens {
		maxTokens = config.MaxReplyLength * 2
	}

	caller := t.multi.ForRequest(llmclient.GenerateRequest{
		Messages: []llmclient.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: config.Temperature,
		MaxTokens:   maxTokens,
	})

	resp, attempts, err := providerrouter.Failover(ctx, t.health, caller, primary, chain, t.attemptTimeout)
	if err != nil {
		return nil, attempts, err
	}
	result, ok := resp.(*llmclient.Result)
	if !ok || result == nil {
		return nil, attempts, errors.New("orchestrator: provider returned an unexpected response type")
	}
	return result, attempts, nil
}

// scoreConfidence runs C10's validator and folds an unverified-claims
// penalty into C9's confidence score, per spec.md §4.10's "a reply that
// fails validation is treated as low-confidence for handoff purposes".
func (t *Turn) scoreConfidence(reply string, agentCtx *agentcontext.AgentContext) float64 {
	usedKnowledge := len(agentCtx.Knowledge) > 0
	var avgScore float64
	if usedKnowledge {
		var sum float64
		for _, m := range agentCtx.Knowledge {
			sum += m.Similarity
		}
		avgScore = sum / float64(len(agentCtx.Knowledge))
	}
	confidence := prompt.Confidence(prompt.ConfidenceInput{
		UsedKnowledge:         usedKnowledge,
		Reply:                 reply,
		AverageKnowledgeScore: avgScore,
	})

	result := validator.Validate(reply, agentCtx)
	if !result.Pass {
		confidence -= 0.2
		if confidence < 0 {
			confidence = 0
		}
	}
	return confidence
}

// applyTurnOutcome persists C11's decision: a handoff transitions the
// conversation state, otherwise the intent/confidence and low-confidence
// counter are updated in place. Persistence failures are logged, not
// returned, so a store hiccup here never blocks the reply that was
// already generated.
func (t *Turn) applyTurnOutcome(ctx context.Context, tenantID, conversationID string, intentNames []string, confidence float64, decision handoff.Decision) {
	lastIntent := ""
	if len(intentNames) > 0 {
		lastIntent = intentNames[0]
	}
	if err := t.store.UpdateConversationIntent(ctx, tenantID, conversationID, lastIntent, confidence); err != nil {
		t.log.Error("orchestrator: failed to update conversation intent", "tenant_id", tenantID, "conversation_id", conversationID, "error", err)
	}

	if decision.ShouldHandoff {
		if _, err := t.store.TransitionConversationState(ctx, &store.UpdateConversationState{
			TenantID: tenantID,
			ID:       conversationID,
			State:    store.ConversationHandedOff,
			Reason:   string(decision.Reason),
		}); err != nil {
			t.log.Error("orchestrator: failed to transition conversation to handed-off", "tenant_id", tenantID, "conversation_id", conversationID, "error", err)
		}
		return
	}

	if decision.NewCounter == 0 {
		if err := t.store.ResetLowConfidence(ctx, tenantID, conversationID); err != nil {
			t.log.Error("orchestrator: failed to reset low confidence counter", "tenant_id", tenantID, "conversation_id", conversationID, "error", err)
		}
	} else {
		if _, err := t.store.IncrementLowConfidence(ctx, tenantID, conversationID); err != nil {
			t.log.Error("orchestrator: failed to increment low confidence counter", "tenant_id", tenantID, "conversation_id", conversationID, "error", err)
		}
	}
}

// deliverReply shapes the reply (C12), persists it as an outbound
// Message, and dispatches it through the channel gateway. A dispatch or
// persistence failure is logged, not returned, since the reply has
// already been decided and a transport hiccup shouldn't re-run
// generation.
func (t *Turn) deliverReply(ctx context.Context, tenantID, conversationID, customerID string, config *store.AgentConfiguration, agentCtx *agentcontext.AgentContext, reply string) store.ReplyShape {
	reply = attribution.Add(reply, agentCtx.RAGSources, attribution.StyleEndnote, config.EnableSourceAttribution)
	if channelText, err := format.ToChannelText(reply); err != nil {
		t.log.Warn("orchestrator: markdown-to-channel formatting failed, sending raw reply", "tenant_id", tenantID, "conversation_id", conversationID, "error", err)
	} else {
		reply = channelText
	}

	replyShape := store.ReplyText
	var rm richmessage.Message
	if config.EnableRichMessages {
		rm = richmessage.Build(reply, agentCtx, t.limits)
		replyShape = toReplyShape(rm.Shape)
	}

	if _, err := t.store.AppendMessage(ctx, &store.AppendMessage{
		TenantID:       tenantID,
		ConversationID: conversationID,
		Direction:      store.DirectionOut,
		Type:           store.MessageBotResponse,
		Text:           reply,
	}); err != nil {
		t.log.Error("orchestrator: failed to persist outbound message", "tenant_id", tenantID, "conversation_id", conversationID, "error", err)
	}

	customer, err := t.store.FindCustomer(ctx, &store.FindCustomer{TenantID: tenantID, ID: &customerID})
	if err != nil {
		t.log.Error("orchestrator: failed to load customer for dispatch", "tenant_id", tenantID, "customer_id", customerID, "error", err)
		return replyShape
	}

	var outbound channels.OutboundPayload
	if config.EnableRichMessages {
		outbound = channels.FromRichMessage(rm, customer.Phone)
	} else {
		outbound = channels.OutboundPayload{Kind: channels.PayloadText, To: customer.Phone, Text: reply}
	}

	tenant, err := t.store.GetTenantCached(ctx, tenantID)
	if err != nil {
		t.log.Error("orchestrator: failed to load tenant for dispatch", "tenant_id", tenantID, "error", err)
		return replyShape
	}
	if _, err := t.channels.Send(ctx, t.platform, tenant.ChannelCredentials, outbound); err != nil {
		t.log.Error("orchestrator: failed to dispatch outbound reply", "tenant_id", tenantID, "conversation_id", conversationID, "platform", t.platform, "error", err)
	}
	return replyShape
}

func toReplyShape(s richmessage.Shape) store.ReplyShape {
	switch s {
	case richmessage.ShapeButtons:
		return store.ReplyButton
	case richmessage.ShapeList:
		return store.ReplyList
	case richmessage.ShapeCard:
		return store.ReplyMedia
	default:
		return store.ReplyText
	}
}

func buildSections(agentCtx *agentcontext.AgentContext, text string) prompt.UserPromptSections {
	sections := prompt.UserPromptSections{
		CurrentMessage: text,
	}
	if agentCtx.Conversation != nil {
		sections.Summary = agentCtx.Conversation.Summary
		sections.KeyFacts = agentCtx.Conversation.KeyFacts
	}

	recent := make([]string, 0, len(agentCtx.RecentMessages))
	for _, m := range agentCtx.RecentMessages {
		speaker := "Customer"
		if m.Direction == store.DirectionOut {
			speaker = "Assistant"
		}
		recent = append(recent, speaker+": "+m.Text)
	}
	sections.RecentTurns = recent

	snippets := make([]prompt.KnowledgeSnippet, 0, len(agentCtx.Knowledge))
	for _, k := range agentCtx.Knowledge {
		snippets = append(snippets, prompt.KnowledgeSnippet{Title: k.Entry.Title, Content: k.Entry.Content, Similarity: k.Similarity})
	}
	sections.Knowledge = snippets

	if len(agentCtx.RAGSources) > 0 {
		var b string
		for _, r := range agentCtx.RAGSources {
			b += "- [" + r.Origin + "] " + r.Title + ": " + r.Content + "\n"
		}
		sections.RAGSection = b
	}
	if len(agentCtx.Suggestions) > 0 {
		var b string
		for _, s := range agentCtx.Suggestions {
			b += "- " + s.Label + " (" + s.Why + ")\n"
		}
		sections.SuggestionSection = b
	}
	sections.RecoveredQuestion = agentCtx.RecoveredQuestion

	return sections
}

func totalMessageLength(messages []*store.Message) int {
	total := 0
	for _, m := range messages {
		total += len(m.Text)
	}
	return total
}

// estimateTokens approximates token count at four characters per token,
// the same rough ratio ai/context's budget allocator uses.
func estimateTokens(agentCtx *agentcontext.AgentContext) int {
	chars := len(agentCtx.CurrentMessage)
	chars += totalMessageLength(agentCtx.RecentMessages)
	for _, k := range agentCtx.Knowledge {
		chars += len(k.Entry.Content)
	}
	if agentCtx.Conversation != nil {
		chars += len(agentCtx.Conversation.Summary)
	}
	return chars / 4
}
