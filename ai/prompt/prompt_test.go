package prompt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildSystemPrompt_IncludesPersonaFields(t *testing.T) {
	p := Persona{
		DisplayName:             "Ava",
		Tone:                    "friendly",
		BehaviouralRestrictions: []string{"never promise refunds"},
		RequiredDisclaimers:     []string{"prices exclude tax"},
		MaxReplyLength:          500,
		ConfidenceThreshold:     0.7,
		AgentCanDo:              "answer product questions",
		AgentCannotDo:           "process payments",
		LanguageLock:            "Spanish",
	}
	out := BuildSystemPrompt("You are a commerce assistant.", p)
	require.Contains(t, out, "Ava")
	require.Contains(t, out, "friendly")
	require.Contains(t, out, "never promise refunds")
	require.Contains(t, out, "prices exclude tax")
	require.Contains(t, out, "500")
	require.Contains(t, out, "answer product questions")
	require.Contains(t, out, "process payments")
	require.Contains(t, out, "Spanish")
}

func TestBuildUserPrompt_OmitsEmptySections(t *testing.T) {
	out := BuildUserPrompt(UserPromptSections{CurrentMessage: "hello"})
	require.Contains(t, out, "hello")
	require.NotContains(t, out, "Conversation summary")
	require.NotContains(t, out, "Relevant knowledge")
}

func TestBuildUserPrompt_IncludesKnowledgeScores(t *testing.T) {
	out := BuildUserPrompt(UserPromptSections{
		Knowledge: []KnowledgeSnippet{{Title: "Return policy", Content: "30 days", Similarity: 0.93}},
	})
	require.Contains(t, out, "Return policy")
	require.Contains(t, out, "0.93")
}

func TestExtractJSON_BareObject(t *testing.T) {
	require.Equal(t, `{"a":1}`, ExtractJSON(`{"a":1}`))
}

func TestExtractJSON_FencedBlock(t *testing.T) {
	raw := "here you go:\n```json\n{\"a\":1}\n```\nthanks"
	require.Equal(t, `{"a":1}`, ExtractJSON(raw))
}

func TestExtractJSON_BalancedSubstring(t *testing.T) {
	raw := `some preamble {"a": {"b": 1}} trailing text`
	require.Equal(t, `{"a": {"b": 1}}`, ExtractJSON(raw))
}

func TestExtractJSON_NoneFound(t *testing.T) {
	require.Equal(t, "", ExtractJSON("no json here"))
}

func TestConfidence_BaseCase(t *testing.T) {
	c := Confidence(ConfidenceInput{UsedKnowledge: true, Reply: "The price is $10.", AverageKnowledgeScore: 0.5})
	require.Equal(t, 0.8, c)
}

func TestConfidence_NoKnowledgePenalty(t *testing.T) {
	c := Confidence(ConfidenceInput{UsedKnowledge: false, Reply: "Hello there."})
	require.InDelta(t, 0.7, c, 0.001)
}

func TestConfidence_UncertaintyPhrasePenalty(t *testing.T) {
	c := Confidence(ConfidenceInput{UsedKnowledge: true, Reply: "I'm not sure about that.", AverageKnowledgeScore: 0.5})
	require.InDelta(t, 0.6, c, 0.001)
}

func TestConfidence_HighSimilarityBonus(t *testing.T) {
	c := Confidence(ConfidenceInput{UsedKnowledge: true, Reply: "Yes, in stock.", AverageKnowledgeScore: 0.9})
	require.InDelta(t, 0.9, c, 0.001)
}

func TestConfidence_ClampedToUnitInterval(t *testing.T) {
	c := Confidence(ConfidenceInput{UsedKnowledge: false, Reply: "I'm not sure, I don't know."})
	require.GreaterOrEqual(t, c, 0.0)
}
