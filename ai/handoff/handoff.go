// Package handoff evaluates the ordered rule set that decides whether
// a conversation escalates to a human, per spec.md §4.11. Reuses the
// closed phrase-list idiom from ai/routing/rule_matcher.go, matching
// phrases by case-insensitive substring rather than by regex.
package handoff

import "strings"

// Reason identifies which rule fired.
type Reason string

const (
	ReasonConsecutiveLowConfidence Reason = "consecutive_low_confidence"
	ReasonExplicitRequest          Reason = "explicit_request"
	ReasonAgentSuggested           Reason = "agent_suggested"
	ReasonAutoHandoffTopic         Reason = "auto_handoff_topic"
	ReasonSensitiveKeyword         Reason = "sensitive_keyword"
)

var explicitRequestPhrases = []string{
	"speak to a human", "talk to a human", "real person", "human agent",
	"customer service", "speak to someone", "talk to someone",
}

var agentSuggestedPhrases = []string{
	"connect you with", "escalate", "transfer you to", "hand you off to",
}

var sensitiveKeywords = []string{
	"refund", "complaint", "legal", "lawsuit", "lawyer", "sue", "fraud",
	"scam", "emergency", "urgent", "critical",
}

func containsAny(haystack string, phrases []string) bool {
	lower := strings.ToLower(haystack)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Decision is the evaluation outcome: whether to hand off, and why.
type Decision struct {
	ShouldHandoff bool
	Reason        Reason
	NewCounter    int // the low-confidence counter's value after this turn
}

// Input carries every signal the ordered rule set consumes.
type Input struct {
	Confidence               float64
	ConfidenceThreshold      float64
	LowConfidenceCounter     int
	MaxLowConfidenceAttempts int
	LastInboundMessage       string
	GeneratedReply           string
	AutoHandoffTopics        []string
}

// Evaluate runs the five rules in spec.md §4.11's fixed order and
// returns the first match. Confidence at or above threshold resets the
// low-confidence counter to 0 regardless of which other rule (if any)
// fires; a confidence below threshold that does not yet trigger
// handoff increments the counter by one.
func Evaluate(in Input) Decision {
	counter := in.LowConfidenceCounter
	if in.Confidence >= in.ConfidenceThreshold {
		counter = 0
	} else {
		maxAttempts := in.MaxLowConfidenceAttempts
		if maxAttempts <= 0 {
			maxAttempts = 1
		}
		if counter >= maxAttempts-1 {
			return Decision{ShouldHandoff: true, Reason: ReasonConsecutiveLowConfidence, NewCounter: 0}
		}
		counter++
	}

	if containsAny(in.LastInboundMessage, explicitRequestPhrases) {
		return Decision{ShouldHandoff: true, Reason: ReasonExplicitRequest, NewCounter: 0}
	}
	if containsAny(in.GeneratedReply, agentSuggestedPhrases) {
		return Decision{ShouldHandoff: true, Reason: ReasonAgentSuggested, NewCounter: 0}
	}
	if containsAny(in.LastInboundMessage, in.AutoHandoffTopics) {
		return Decision{ShouldHandoff: true, Reason: ReasonAutoHandoffTopic, NewCounter: 0}
	}
	if containsAny(in.LastInboundMessage, sensitiveKeywords) {
		return Decision{ShouldHandoff: true, Reason: ReasonSensitiveKeyword, NewCounter: 0}
	}

	return Decision{ShouldHandoff: false, NewCounter: counter}
}
