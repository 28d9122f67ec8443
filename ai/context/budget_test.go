package context

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conversagent/core/ai/knowledge"
	"github.com/conversagent/core/store"
)

func TestEstimateTokens_RoundsUp(t *testing.T) {
	require.Equal(t, 0, EstimateTokens(""))
	require.Equal(t, 1, EstimateTokens("abc"))
	require.Equal(t, 1, EstimateTokens("abcd"))
	require.Equal(t, 2, EstimateTokens("abcde"))
}

func bigText(n int) string {
	return strings.Repeat("x", n)
}

func TestEnforceBudget_TruncatesInFixedOrder(t *testing.T) {
	c := &AgentContext{
		CurrentMessage: "hi",
		RecentMessages: []*store.Message{
			{Text: bigText(40)}, {Text: bigText(40)}, {Text: bigText(40)},
			{Text: bigText(40)}, {Text: bigText(40)}, {Text: bigText(40)}, {Text: bigText(40)},
		},
		Knowledge: make([]knowledge.Match, 5),
		Products:  make([]*store.Product, 7),
		Services:  make([]*store.Service, 7),
		RecentOrders:       make([]*store.Order, 2),
		RecentAppointments: make([]*store.Appointment, 2),
	}
	for i := range c.Products {
		c.Products[i] = &store.Product{Name: bigText(40)}
	}
	for i := range c.Services {
		c.Services[i] = &store.Service{Name: bigText(40)}
	}

	fired := enforceBudget(c, 5)
	require.True(t, fired)
	require.LessOrEqual(t, len(c.RecentMessages), 5)
	require.LessOrEqual(t, len(c.Knowledge), 3)
	require.LessOrEqual(t, len(c.Products), 5)
	require.LessOrEqual(t, len(c.Services), 5)
	require.Empty(t, c.RecentOrders)
	require.Empty(t, c.RecentAppointments)
}

func TestEnforceBudget_WithinBudgetDoesNotFire(t *testing.T) {
	c := &AgentContext{CurrentMessage: "hi"}
	fired := enforceBudget(c, 100000)
	require.False(t, fired)
}
