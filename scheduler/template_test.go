package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRender_SubstitutesPlaceholders(t *testing.T) {
	out, err := Render("Hi {{name}}, your order {{order_id}} shipped.", map[string]any{
		"name":     "Ada",
		"order_id": 42,
	}, "")
	require.NoError(t, err)
	require.Equal(t, "Hi Ada, your order 42 shipped.", out)
}

func TestRender_EmptyTemplateUsesFallback(t *testing.T) {
	out, err := Render("", nil, "fallback body")
	require.NoError(t, err)
	require.Equal(t, "fallback body", out)
}

func TestRender_UnresolvedPlaceholderErrors(t *testing.T) {
	_, err := Render("Hi {{name}}, {{missing}}", map[string]any{"name": "Ada"}, "")
	require.Error(t, err)
}
