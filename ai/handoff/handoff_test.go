package handoff

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluate_HighConfidenceResetsCounterAndNoHandoff(t *testing.T) {
	d := Evaluate(Input{
		Confidence: 0.9, ConfidenceThreshold: 0.6, LowConfidenceCounter: 2,
		MaxLowConfidenceAttempts: 3, LastInboundMessage: "thanks", GeneratedReply: "you're welcome",
	})
	require.False(t, d.ShouldHandoff)
	require.Equal(t, 0, d.NewCounter)
}

func TestEvaluate_LowConfidenceIncrementsCounterBeforeThreshold(t *testing.T) {
	d := Evaluate(Input{
		Confidence: 0.3, ConfidenceThreshold: 0.6, LowConfidenceCounter: 0,
		MaxLowConfidenceAttempts: 3, LastInboundMessage: "hmm", GeneratedReply: "let me check",
	})
	require.False(t, d.ShouldHandoff)
	require.Equal(t, 1, d.NewCounter)
}

func TestEvaluate_ConsecutiveLowConfidenceTriggersHandoff(t *testing.T) {
	d := Evaluate(Input{
		Confidence: 0.3, ConfidenceThreshold: 0.6, LowConfidenceCounter: 2,
		MaxLowConfidenceAttempts: 3, LastInboundMessage: "hmm", GeneratedReply: "let me check",
	})
	require.True(t, d.ShouldHandoff)
	require.Equal(t, ReasonConsecutiveLowConfidence, d.Reason)
	require.Equal(t, 0, d.NewCounter)
}

func TestEvaluate_ExplicitRequestBeatsAutoHandoffTopic(t *testing.T) {
	d := Evaluate(Input{
		Confidence: 0.9, ConfidenceThreshold: 0.6, LastInboundMessage: "I want to speak to a human about billing",
		GeneratedReply: "sure", AutoHandoffTopics: []string{"billing"},
	})
	require.True(t, d.ShouldHandoff)
	require.Equal(t, ReasonExplicitRequest, d.Reason)
}

func TestEvaluate_AgentSuggestedPhrase(t *testing.T) {
	d := Evaluate(Input{
		Confidence: 0.9, ConfidenceThreshold: 0.6, LastInboundMessage: "ok",
		GeneratedReply: "Let me connect you with a specialist.",
	})
	require.True(t, d.ShouldHandoff)
	require.Equal(t, ReasonAgentSuggested, d.Reason)
}

func TestEvaluate_AutoHandoffTopic(t *testing.T) {
	d := Evaluate(Input{
		Confidence: 0.9, ConfidenceThreshold: 0.6, LastInboundMessage: "I have a question about billing",
		GeneratedReply: "sure", AutoHandoffTopics: []string{"billing"},
	})
	require.True(t, d.ShouldHandoff)
	require.Equal(t, ReasonAutoHandoffTopic, d.Reason)
}

func TestEvaluate_SensitiveKeyword(t *testing.T) {
	d := Evaluate(Input{
		Confidence: 0.9, ConfidenceThreshold: 0.6, LastInboundMessage: "I want a refund immediately",
		GeneratedReply: "ok",
	})
	require.True(t, d.ShouldHandoff)
	require.Equal(t, ReasonSensitiveKeyword, d.Reason)
}

func TestEvaluate_NoRuleFiresNoHandoff(t *testing.T) {
	d := Evaluate(Input{
		Confidence: 0.9, ConfidenceThreshold: 0.6, LastInboundMessage: "what time do you open",
		GeneratedReply: "we open at 9am",
	})
	require.False(t, d.ShouldHandoff)
}
