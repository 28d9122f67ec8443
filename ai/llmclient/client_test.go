package llmclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conversagent/core/ai/providerrouter"
)

func TestConvert_PreservesRoleAndContent(t *testing.T) {
	out := convert([]Message{{Role: "system", Content: "be nice"}, {Role: "user", Content: "hi"}})
	require.Len(t, out, 2)
	require.Equal(t, "system", out[0].Role)
	require.Equal(t, "hi", out[1].Content)
}

func TestNew_DefaultsBaseURLByProvider(t *testing.T) {
	svc := New(ProviderConfig{Provider: "deepseek", APIKey: "k"})
	require.NotNil(t, svc)
}

func TestMultiProvider_CallUnknownProvider(t *testing.T) {
	mp := NewMultiProvider(map[string]Service{"openai": New(ProviderConfig{Provider: "openai", APIKey: "k"})})
	_, err := mp.Call(context.Background(), providerrouter.Model{Provider: "unknown", ModelID: "x"}, time.Second)
	require.Error(t, err)
}
