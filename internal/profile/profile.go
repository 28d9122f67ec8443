// Package profile holds process-wide configuration resolved from flags and
// environment variables at startup.
package profile

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration used to start the orchestration engine.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol). All providers
	// (openai, deepseek, anthropic-compatible gateways, ollama) share the
	// same shape; provider-specific defaults fill in BaseURL/Model when
	// unset.
	LLMProvider string
	LLMAPIKey   string
	LLMBaseURL  string
	LLMModel    string
	LLMTimeout  time.Duration

	// Fallback model chain, ordered most to least preferred, used by the
	// provider router when the primary provider/model is unhealthy.
	LLMFallbackModels []string

	// Embedding provider configuration, used by the knowledge store for
	// semantic search (C3).
	EmbeddingProvider string
	EmbeddingModel    string
	EmbeddingAPIKey   string
	EmbeddingBaseURL  string
	EmbeddingTimeout  time.Duration

	// Optional internet search API key for multi-source RAG (C6.1).
	InternetSearchAPIKey string

	// Webhook signing secret shared with the channel gateway.
	WebhookSecret string

	// AdminJWTSecret verifies bearer tokens on the admin HTTP API
	// (server.JWTAuthenticator). Distinct from WebhookSecret: one
	// authenticates operators calling /v1, the other verifies inbound
	// channel webhook signatures.
	AdminJWTSecret string

	Mode        string
	DSN         string
	Driver      string
	Version     string
	InstanceURL string
	Addr        string
	UNIXSock    string
	Data        string
	Port        int

	AIEnabled bool
}

// providerDefaults supplies BaseURL/Model when unset, mirroring the
// OpenAI-compatible gateways the LLM client speaks to.
var providerDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if the LLM provider is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.LLMAPIKey != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables, per §6's
// "Environment variables recognised by the core".
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("AGENTCORE_LLM_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("AGENTCORE_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("AGENTCORE_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("AGENTCORE_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultDuration("AGENTCORE_LLM_TIMEOUT_SECONDS", 30*time.Second)

	if fallback := getEnvOrDefault("AGENTCORE_LLM_FALLBACK_MODELS", ""); fallback != "" {
		p.LLMFallbackModels = strings.Split(fallback, ",")
	}

	p.AIEnabled = p.LLMAPIKey != ""

	if _, ok := providerDefaults[p.LLMProvider]; !ok {
		p.LLMProvider = "openai"
	}
	if defaults, ok := providerDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}

	p.EmbeddingProvider = getEnvOrDefault("AGENTCORE_EMBEDDING_PROVIDER", "openai")
	p.EmbeddingModel = getEnvOrDefault("AGENTCORE_EMBEDDING_MODEL", "text-embedding-3-small")
	p.EmbeddingAPIKey = getEnvOrDefault("AGENTCORE_EMBEDDING_API_KEY", "")
	p.EmbeddingBaseURL = getEnvOrDefault("AGENTCORE_EMBEDDING_BASE_URL", "https://api.openai.com/v1")
	p.EmbeddingTimeout = getEnvOrDefaultDuration("AGENTCORE_EMBEDDING_TIMEOUT_SECONDS", 10*time.Second)

	p.InternetSearchAPIKey = getEnvOrDefault("AGENTCORE_INTERNET_SEARCH_API_KEY", "")
	p.WebhookSecret = getEnvOrDefault("AGENTCORE_WEBHOOK_SECRET", "")
	p.AdminJWTSecret = getEnvOrDefault("AGENTCORE_ADMIN_JWT_SECRET", "")
}

func checkDataDir(dataDir string) (string, error) {
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate normalises Mode and resolves the data directory / sqlite DSN.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "postgres" && p.Driver != "sqlite" {
		return errors.Errorf("unsupported driver %q, expected postgres or sqlite", p.Driver)
	}

	if p.Driver == "sqlite" {
		if p.Mode == "prod" && p.Data == "" {
			if runtime.GOOS == "windows" {
				p.Data = filepath.Join(os.Getenv("ProgramData"), "agentcore")
			} else {
				p.Data = "/var/opt/agentcore"
			}
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0o770); err != nil {
					return errors.Wrap(err, "failed to create data directory")
				}
			}
		}
		if p.Data == "" {
			p.Data = "."
		}

		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			return err
		}
		p.Data = dataDir

		if p.DSN == "" {
			p.DSN = filepath.Join(dataDir, "agentcore_"+p.Mode+".db")
		}
	}

	return nil
}
