// Package convsummary rolls a conversation's message history into the
// short summary string carried by store.ConversationContext.Summary,
// keeping C6's context builder from re-reading the full history on
// every turn. Grounded on original_source/apps/bot/services/
// conversation_summary_service.py's ConversationSummaryService: an LLM
// call over the formatted "Speaker: text" transcript, triggered when
// the latest message's sequence number is a multiple of a message-count
// threshold, with generation
// failures swallowed rather than propagated (a stale or missing summary
// degrades context quality, it never blocks a reply).
package convsummary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/conversagent/core/ai/llmclient"
	"github.com/conversagent/core/store"
)

// DefaultThreshold is how many messages must accumulate in a
// conversation before a fresh summary is generated, mirroring the
// Python service's summarize_old_messages cutoff.
const DefaultThreshold = 20

// DefaultMaxWords bounds the summary length instructed to the model,
// matching the original's "under 200 words" prompt guidance.
const DefaultMaxWords = 200

const systemPrompt = "You are a helpful assistant that summarizes customer service conversations."

const userPromptTemplate = `Summarize the following conversation between a customer and a business assistant. Focus on:
1. Key topics discussed
2. Customer needs and preferences
3. Products or services mentioned
4. Any pending actions or requests
5. Important facts to remember

Keep the summary concise (under %d words) but preserve all important information.

Conversation:
%s

Summary:`

// Generator produces and persists rolling conversation summaries.
type Generator struct {
	store     *store.Store
	llm       llmclient.Service
	threshold int
	maxWords  int
	log       *slog.Logger
}

func NewGenerator(st *store.Store, llm llmclient.Service) *Generator {
	return &Generator{store: st, llm: llm, threshold: DefaultThreshold, maxWords: DefaultMaxWords, log: slog.Default()}
}

func (g *Generator) WithThreshold(n int) *Generator {
	g.threshold = n
	return g
}

// MaybeSummarize regenerates the conversation's summary when the latest
// message's Seq is an exact multiple of the threshold, so the work
// happens periodically rather than on every single turn; a Seq that
// skips past a multiple does not trigger it. Every failure (LLM
// call, persistence) is logged and swallowed: a turn must never fail
// because the rolling summary could not be refreshed.
func (g *Generator) MaybeSummarize(ctx context.Context, tenantID, conversationID string) {
	messages, err := g.store.ListRecentMessages(ctx, &store.FindMessages{TenantID: tenantID, ConversationID: conversationID, Limit: g.threshold})
	if err != nil {
		g.log.Error("convsummary: failed to list messages", "tenant_id", tenantID, "conversation_id", conversationID, "error", err)
		return
	}
	if len(messages) == 0 {
		return
	}
	latest := messages[len(messages)-1]
	if latest.Seq == 0 || latest.Seq%int64(g.threshold) != 0 {
		return
	}

	summary, err := g.generate(ctx, messages)
	if err != nil {
		g.log.Error("convsummary: summary generation failed", "tenant_id", tenantID, "conversation_id", conversationID, "error", err)
		return
	}

	existing, err := g.store.GetConversationContext(ctx, tenantID, conversationID)
	if err != nil {
		g.log.Error("convsummary: failed to load conversation context", "tenant_id", tenantID, "conversation_id", conversationID, "error", err)
		return
	}
	if existing == nil {
		existing = &store.ConversationContext{ConversationID: conversationID, TenantID: tenantID}
	}
	existing.Summary = summary

	if _, err := g.store.UpsertConversationContext(ctx, &store.UpsertConversationContext{Context: existing}); err != nil {
		g.log.Error("convsummary: failed to persist summary", "tenant_id", tenantID, "conversation_id", conversationID, "error", err)
	}
}

func (g *Generator) generate(ctx context.Context, messages []*store.Message) (string, error) {
	transcript := formatTranscript(messages)
	userPrompt := fmt.Sprintf(userPromptTemplate, g.maxWords, transcript)

	reply, err := g.llm.Chat(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

func formatTranscript(messages []*store.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		speaker := "Assistant"
		if m.Direction == store.DirectionIn {
			speaker = "Customer"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, m.Text))
	}
	return strings.Join(lines, "\n")
}
