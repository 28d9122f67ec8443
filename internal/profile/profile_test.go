package profile

import (
	"os"
	"testing"
	"time"
)

func clearEnvVars() {
	for _, key := range []string{
		"AGENTCORE_LLM_PROVIDER",
		"AGENTCORE_LLM_API_KEY",
		"AGENTCORE_LLM_BASE_URL",
		"AGENTCORE_LLM_MODEL",
		"AGENTCORE_LLM_TIMEOUT_SECONDS",
		"AGENTCORE_LLM_FALLBACK_MODELS",
		"AGENTCORE_EMBEDDING_PROVIDER",
		"AGENTCORE_EMBEDDING_MODEL",
		"AGENTCORE_EMBEDDING_API_KEY",
		"AGENTCORE_EMBEDDING_BASE_URL",
		"AGENTCORE_EMBEDDING_TIMEOUT_SECONDS",
		"AGENTCORE_INTERNET_SEARCH_API_KEY",
		"AGENTCORE_WEBHOOK_SECRET",
	} {
		os.Unsetenv(key)
	}
}

func TestProfileDefaults(t *testing.T) {
	clearEnvVars()

	p := &Profile{}
	p.FromEnv()

	tests := []struct {
		name     string
		expected string
		actual   string
	}{
		{"LLMProvider default", "openai", p.LLMProvider},
		{"LLMBaseURL default", "https://api.openai.com/v1", p.LLMBaseURL},
		{"LLMModel default", "gpt-4o-mini", p.LLMModel},
		{"EmbeddingProvider default", "openai", p.EmbeddingProvider},
		{"EmbeddingModel default", "text-embedding-3-small", p.EmbeddingModel},
		{"EmbeddingBaseURL default", "https://api.openai.com/v1", p.EmbeddingBaseURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.actual != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, tt.actual)
			}
		})
	}

	if p.AIEnabled {
		t.Errorf("AIEnabled: expected false with no API key, got true")
	}
	if p.LLMTimeout != 30*time.Second {
		t.Errorf("LLMTimeout default: expected 30s, got %s", p.LLMTimeout)
	}
}

func TestProfileFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVar   string
		envValue string
		field    func(*Profile) string
		expected string
	}{
		{
			name:     "deepseek provider",
			envVar:   "AGENTCORE_LLM_PROVIDER",
			envValue: "deepseek",
			field:    func(p *Profile) string { return p.LLMProvider },
			expected: "deepseek",
		},
		{
			name:     "llm api key",
			envVar:   "AGENTCORE_LLM_API_KEY",
			envValue: "test-key",
			field:    func(p *Profile) string { return p.LLMAPIKey },
			expected: "test-key",
		},
		{
			name:     "webhook secret",
			envVar:   "AGENTCORE_WEBHOOK_SECRET",
			envValue: "shh",
			field:    func(p *Profile) string { return p.WebhookSecret },
			expected: "shh",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars()
			os.Setenv(tt.envVar, tt.envValue)
			defer clearEnvVars()

			p := &Profile{}
			p.FromEnv()

			actual := tt.field(p)
			if actual != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, actual)
			}
		})
	}
}

func TestProfileFromEnv_UnknownProviderFallsBackToOpenAI(t *testing.T) {
	clearEnvVars()
	os.Setenv("AGENTCORE_LLM_PROVIDER", "not-a-real-provider")
	defer clearEnvVars()

	p := &Profile{}
	p.FromEnv()

	if p.LLMProvider != "openai" {
		t.Errorf("expected fallback to openai, got %q", p.LLMProvider)
	}
	if p.LLMBaseURL != "https://api.openai.com/v1" {
		t.Errorf("expected openai base url, got %q", p.LLMBaseURL)
	}
}

func TestProfileFromEnv_FallbackModels(t *testing.T) {
	clearEnvVars()
	os.Setenv("AGENTCORE_LLM_FALLBACK_MODELS", "gpt-4o-mini,gpt-4o,gpt-3.5-turbo")
	defer clearEnvVars()

	p := &Profile{}
	p.FromEnv()

	expected := []string{"gpt-4o-mini", "gpt-4o", "gpt-3.5-turbo"}
	if len(p.LLMFallbackModels) != len(expected) {
		t.Fatalf("expected %d fallback models, got %d", len(expected), len(p.LLMFallbackModels))
	}
	for i, m := range expected {
		if p.LLMFallbackModels[i] != m {
			t.Errorf("fallback model %d: expected %q, got %q", i, m, p.LLMFallbackModels[i])
		}
	}
}

func TestIsAIEnabled(t *testing.T) {
	tests := []struct {
		name           string
		apiKey         string
		expectedResult bool
	}{
		{"no api key returns false", "", false},
		{"api key set returns true", "test-key", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Profile{LLMAPIKey: tt.apiKey}
			if got := p.IsAIEnabled(); got != tt.expectedResult {
				t.Errorf("IsAIEnabled(): expected %v, got %v", tt.expectedResult, got)
			}
		})
	}
}

func TestIsDev(t *testing.T) {
	tests := []struct {
		mode     string
		expected bool
	}{
		{"dev", true},
		{"demo", true},
		{"", true},
		{"prod", false},
	}

	for _, tt := range tests {
		p := &Profile{Mode: tt.mode}
		if got := p.IsDev(); got != tt.expected {
			t.Errorf("IsDev() with Mode=%q: expected %v, got %v", tt.mode, tt.expected, got)
		}
	}
}

func TestValidate_UnsupportedDriver(t *testing.T) {
	p := &Profile{Driver: "mongodb"}
	if err := p.Validate(); err == nil {
		t.Error("expected error for unsupported driver, got nil")
	}
}

func TestValidate_NormalisesMode(t *testing.T) {
	p := &Profile{Driver: "postgres", Mode: "bogus"}
	if err := p.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Mode != "demo" {
		t.Errorf("expected Mode to normalise to demo, got %q", p.Mode)
	}
}

func TestValidate_SqliteDefaultsDataDir(t *testing.T) {
	p := &Profile{Driver: "sqlite", Mode: "dev", Data: "."}
	if err := p.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Data == "" {
		t.Error("expected Data to be resolved to an absolute path")
	}
	if p.DSN == "" {
		t.Error("expected DSN to default to a file path under Data")
	}
}
