package llmclient

import (
	"context"
	"time"

	"github.com/conversagent/core/ai/providerrouter"
)

// MultiProvider holds one Service per configured provider name and
// implements providerrouter.Caller, so ai/providerrouter.Failover can
// walk the fallback chain across real provider connections.
type MultiProvider struct {
	services map[string]Service
	request  *GenerateRequest
}

// GenerateRequest carries the call parameters shared across every
// attempt in a failover chain (the message list, temperature, max
// tokens); only the (provider, model) pair varies per attempt.
type GenerateRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

func NewMultiProvider(services map[string]Service) *MultiProvider {
	return &MultiProvider{services: services}
}

// ForRequest binds a request so Call (invoked by providerrouter.Failover)
// only needs the per-attempt (provider, model).
func (m *MultiProvider) ForRequest(req GenerateRequest) *MultiProvider {
	return &MultiProvider{services: m.services, request: &req}
}

// Call implements providerrouter.Caller.
func (m *MultiProvider) Call(ctx context.Context, model providerrouter.Model, timeout time.Duration) (any, error) {
	svc, ok := m.services[model.Provider]
	if !ok {
		return nil, &unknownProviderError{Provider: model.Provider}
	}
	req := m.request
	if req == nil {
		req = &GenerateRequest{Temperature: 0.7, MaxTokens: 1024}
	}
	return svc.Generate(ctx, req.Messages, model.ModelID, req.Temperature, req.MaxTokens)
}

type unknownProviderError struct{ Provider string }

func (e *unknownProviderError) Error() string { return "llmclient: unknown provider " + e.Provider }
