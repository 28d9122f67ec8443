package intent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conversagent/core/ai/cache"
)

type fakeLLM struct {
	response string
	err      error
	lastUser string
	calls    int
}

func (f *fakeLLM) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.lastUser = userPrompt
	f.calls++
	return f.response, f.err
}

func (f *fakeLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func TestDetect_ParsesAndSortsByPriority(t *testing.T) {
	llm := &fakeLLM{response: `{"intents":[
		{"name":"BROWSE_PRODUCTS","confidence":0.6,"slots":{},"reasoning":"browsing"},
		{"name":"HUMAN_HANDOFF","confidence":0.5,"slots":{},"reasoning":"upset"}
	]}`}
	d := NewDetector(llm)

	intents, err := d.Detect(context.Background(), "show me shirts, also get me a human", ContextCues{})
	require.NoError(t, err)
	require.Len(t, intents, 2)
	require.Equal(t, HumanHandoff, intents[0].Name)
	require.Equal(t, CategoryUrgent, intents[0].Category)
	require.Equal(t, BrowseProducts, intents[1].Name)
}

func TestDetect_UnknownNameCollapsesToOther(t *testing.T) {
	llm := &fakeLLM{response: `{"intents":[{"name":"DANCE_PARTY","confidence":0.9}]}`}
	d := NewDetector(llm)

	intents, err := d.Detect(context.Background(), "let's party", ContextCues{})
	require.NoError(t, err)
	require.Len(t, intents, 1)
	require.Equal(t, Other, intents[0].Name)
	require.Equal(t, CategorySupport, intents[0].Category)
}

func TestDetect_FencedJSONBlock(t *testing.T) {
	llm := &fakeLLM{response: "Sure, here:\n```json\n{\"intents\":[{\"name\":\"GREETING\",\"confidence\":0.9}]}\n```"}
	d := NewDetector(llm)

	intents, err := d.Detect(context.Background(), "hi", ContextCues{})
	require.NoError(t, err)
	require.Len(t, intents, 1)
	require.Equal(t, Greeting, intents[0].Name)
}

func TestDetect_NoJSONReturnsEmpty(t *testing.T) {
	llm := &fakeLLM{response: "I don't understand."}
	d := NewDetector(llm)

	intents, err := d.Detect(context.Background(), "???", ContextCues{})
	require.NoError(t, err)
	require.Empty(t, intents)
}

func TestDetect_TerseMessageInjectsCues(t *testing.T) {
	llm := &fakeLLM{response: `{"intents":[{"name":"PRICE_CHECK","confidence":0.9}]}`}
	d := NewDetector(llm)

	_, err := d.Detect(context.Background(), "how much?", ContextCues{LastProductViewed: "Blue Shirt"})
	require.NoError(t, err)
	require.Contains(t, llm.lastUser, "Blue Shirt")
}

func TestDetect_CacheSkipsSecondLLMCall(t *testing.T) {
	llm := &fakeLLM{response: `{"intents":[{"name":"STOCK_CHECK","confidence":0.9}]}`}
	c := cache.NewSemanticCache(cache.SemanticCacheConfig{EmbeddingService: llm, SimilarityThreshold: 0.95})
	d := NewDetector(llm).WithCache(c)

	first, err := d.Detect(context.Background(), "do you have size M?", ContextCues{})
	require.NoError(t, err)
	require.Equal(t, 1, llm.calls)

	second, err := d.Detect(context.Background(), "do you have size M?", ContextCues{})
	require.NoError(t, err)
	require.Equal(t, 1, llm.calls, "second call should be served from cache")
	require.Equal(t, first, second)
}

func TestDetect_CacheSkipsTerseMessages(t *testing.T) {
	llm := &fakeLLM{response: `{"intents":[{"name":"PRICE_CHECK","confidence":0.9}]}`}
	c := cache.NewSemanticCache(cache.SemanticCacheConfig{EmbeddingService: llm, SimilarityThreshold: 0.95})
	d := NewDetector(llm).WithCache(c)

	_, err := d.Detect(context.Background(), "how much?", ContextCues{LastProductViewed: "Blue Shirt"})
	require.NoError(t, err)
	_, err = d.Detect(context.Background(), "how much?", ContextCues{LastProductViewed: "Red Hat"})
	require.NoError(t, err)
	require.Equal(t, 2, llm.calls, "terse messages must not be cached since their meaning depends on cues")
}

func TestNormalize_ClampsConfidence(t *testing.T) {
	in := Intent{Name: Greeting, Confidence: 1.5}
	out := normalize(in)
	require.Equal(t, 1.0, out.Confidence)
	require.Equal(t, categoryBase[CategorySupport]+20, out.Priority)
}
