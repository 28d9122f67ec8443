// Package llmclient implements the LLM provider interface (spec.md §6):
// generate/embed against an OpenAI-compatible surface. Grounded on
// ai/core/llm/service.go's provider-to-baseURL switch and go-openai
// wrapping; narrowed to the Chat/Embed shape this module's orchestration
// pipeline actually calls, and feeds ai/providerrouter.Failover through
// the Caller adapter in failover.go.
package llmclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Message is a single chat turn submitted to the provider.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// Result is the provider's response to a Generate call, mirroring
// spec.md §6's generate() contract.
type Result struct {
	Content         string
	FinishReason    string
	InputTokens     int
	OutputTokens    int
	TotalTokens     int
	EstimatedCost   float64
	ProviderMetadata map[string]any
}

// Service is the LLM provider interface consumed by the orchestration
// pipeline (prompt assembler, intent detector).
type Service interface {
	Generate(ctx context.Context, messages []Message, model string, temperature float64, maxTokens int) (*Result, error)
	Embed(ctx context.Context, text string) ([]float32, error)
	// Chat is the simplified two-message convenience used by ai/intent
	// and ai/prompt callers that don't need token accounting directly.
	Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ProviderConfig configures one provider connection.
type ProviderConfig struct {
	Provider       string // openai, deepseek, ollama, ...
	APIKey         string
	BaseURL        string
	DefaultModel   string
	EmbeddingModel string
	// CostPerInputToken/CostPerOutputToken are USD per token, used to
	// estimate EstimatedCost when the provider doesn't report it.
	CostPerInputToken  float64
	CostPerOutputToken float64
}

var providerDefaultBaseURL = map[string]string{
	"openai":   "https://api.openai.com/v1",
	"deepseek": "https://api.deepseek.com",
	"ollama":   "http://localhost:11434/v1",
}

type client struct {
	openai *openai.Client
	cfg    ProviderConfig
}

// New constructs a Service against an OpenAI-compatible endpoint.
func New(cfg ProviderConfig) Service {
	occ := openai.DefaultConfig(cfg.APIKey)
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = providerDefaultBaseURL[cfg.Provider]
	}
	if baseURL != "" {
		occ.BaseURL = baseURL
	}
	occ.HTTPClient = &http.Client{Timeout: 60 * time.Second}

	return &client{openai: openai.NewClientWithConfig(occ), cfg: cfg}
}

func (c *client) Generate(ctx context.Context, messages []Message, model string, temperature float64, maxTokens int) (*Result, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: float32(temperature),
		MaxTokens:   maxTokens,
		Messages:    convert(messages),
	}

	resp, err := c.openai.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("llm generate failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm generate returned no choices")
	}

	usage := resp.Usage
	cost := float64(usage.PromptTokens)*c.cfg.CostPerInputToken + float64(usage.CompletionTokens)*c.cfg.CostPerOutputToken

	return &Result{
		Content:       resp.Choices[0].Message.Content,
		FinishReason:  string(resp.Choices[0].FinishReason),
		InputTokens:   usage.PromptTokens,
		OutputTokens:  usage.CompletionTokens,
		TotalTokens:   usage.TotalTokens,
		EstimatedCost: cost,
		ProviderMetadata: map[string]any{
			"provider": c.cfg.Provider,
			"model":    model,
		},
	}, nil
}

func (c *client) Embed(ctx context.Context, text string) ([]float32, error) {
	model := c.cfg.EmbeddingModel
	if model == "" {
		model = "text-embedding-3-small"
	}

	resp, err := c.openai.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, fmt.Errorf("llm embed failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("llm embed returned no vectors")
	}
	return resp.Data[0].Embedding, nil
}

func (c *client) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	result, err := c.Generate(ctx, []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}, c.cfg.DefaultModel, 0.2, 1024)
	if err != nil {
		return "", err
	}
	return result.Content, nil
}

func convert(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}
