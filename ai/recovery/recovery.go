// Package recovery detects when a customer is pointing out that the
// agent forgot or ignored an earlier request, and locates the
// unanswered question so it can be re-surfaced into the next turn's
// context. Grounded on original_source/apps/bot/services/
// forgot_request_recovery_service.py's ForgotRequestRecoveryService:
// the same closed phrase list, the same lookback window, and the same
// answered/unanswered heuristic (a substantial outbound message inside
// a short window after the question counts as answered). Unlike the
// original, which builds its own canned apology response, this package
// only locates the question; ai/context carries it into the prompt and
// the model addresses it in its own generated reply.
package recovery

import (
	"context"
	"strings"
	"time"

	agentcontext "github.com/conversagent/core/ai/context"
	"github.com/conversagent/core/store"
)

// forgotPhrases are substring matches against the lowercased inbound
// message; any one firing means the customer is calling out a missed
// or ignored request.
var forgotPhrases = []string{
	"did you forget",
	"you forgot",
	"didn't answer",
	"ignored my",
	"what about",
	"still waiting",
	"never answered",
	"didn't respond",
	"no response",
	"forgot to",
	"missed my",
}

// questionIndicators flag a message as having asked something, beyond
// the obvious "?".
var questionIndicators = []string{"how", "what", "when", "where", "why", "who", "can you", "could you", "would you"}

// LookbackWindow bounds how far back an unanswered question is looked
// for, mirroring the original's LOOKBACK_WINDOW_MINUTES.
const LookbackWindow = 60 * time.Minute

// AnswerWindow is how long after a question an outbound message still
// counts as a reply to it.
const AnswerWindow = 5 * time.Minute

// MinAnswerLength is the length an outbound message must exceed to count
// as a substantial answer rather than a bare acknowledgement.
const MinAnswerLength = 50

// historyLimit caps how many recent messages are scanned, matching the
// original's "last 20 messages".
const historyLimit = 20

// IsForgotRequest reports whether text contains one of the closed
// phrases a customer uses to call out a missed request.
func IsForgotRequest(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range forgotPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// isQuestion reports whether text reads like a question: it contains a
// "?", or it opens with (or contains, space-bounded) one of
// questionIndicators.
func isQuestion(text string) bool {
	if strings.Contains(text, "?") {
		return true
	}
	lower := strings.ToLower(text)
	for _, indicator := range questionIndicators {
		if strings.HasPrefix(lower, indicator) || strings.Contains(lower, " "+indicator) {
			return true
		}
	}
	return false
}

// Detector locates unanswered questions in a conversation's recent
// history.
type Detector struct {
	store *store.Store
	now   func() time.Time
}

func NewDetector(st *store.Store) *Detector {
	return &Detector{store: st, now: time.Now}
}

// FindUnanswered scans the conversation's recent history for the most
// recent inbound question, within LookbackWindow, that no substantial
// outbound message followed inside AnswerWindow. Messages that are
// themselves forgot-requests are skipped. Returns nil if none is found
// or every question was answered.
func (d *Detector) FindUnanswered(ctx context.Context, tenantID, conversationID string) (*agentcontext.Unanswered, error) {
	messages, err := d.store.ListRecentMessages(ctx, &store.FindMessages{
		TenantID:       tenantID,
		ConversationID: conversationID,
		Limit:          historyLimit,
	})
	if err != nil {
		return nil, err
	}

	now := d.now()
	cutoff := now.Add(-LookbackWindow)

	for i := len(messages) - 1; i >= 0; i-- {
		question := messages[i]
		if question.Direction != store.DirectionIn {
			continue
		}
		if question.CreatedAt.Before(cutoff) {
			continue
		}
		if IsForgotRequest(question.Text) {
			continue
		}
		if !isQuestion(question.Text) {
			continue
		}
		if answered(messages[i+1:], question) {
			continue
		}
		return &agentcontext.Unanswered{Text: question.Text, CreatedAt: question.CreatedAt, Age: now.Sub(question.CreatedAt)}, nil
	}
	return nil, nil
}

// answered reports whether any outbound message following question
// within AnswerWindow is long enough to count as a substantial reply.
func answered(following []*store.Message, question *store.Message) bool {
	deadline := question.CreatedAt.Add(AnswerWindow)
	for _, m := range following {
		if m.Direction != store.DirectionOut {
			continue
		}
		if m.CreatedAt.After(deadline) {
			break
		}
		if len(m.Text) > MinAnswerLength {
			return true
		}
	}
	return false
}
