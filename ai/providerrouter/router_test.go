package providerrouter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Default:      Model{Provider: "openai", ModelID: "gpt-4o-mini"},
		LargeContext: Model{Provider: "openai", ModelID: "gpt-4o-128k"},
		Cheap:        Model{Provider: "openai", ModelID: "gpt-4o-nano"},
		Reasoning:    Model{Provider: "openai", ModelID: "o1"},
	}
}

func TestRoute_LargeContextWins(t *testing.T) {
	d := Route(testConfig(), 120_000, 0.1)
	require.Equal(t, "gpt-4o-128k", d.Model.ModelID)
	require.Contains(t, d.Reason, "Large context")
}

func TestRoute_Cheap(t *testing.T) {
	d := Route(testConfig(), 1000, 0.2)
	require.Equal(t, "gpt-4o-nano", d.Model.ModelID)
}

func TestRoute_Reasoning(t *testing.T) {
	d := Route(testConfig(), 1000, 0.8)
	require.Equal(t, "o1", d.Model.ModelID)
}

func TestRoute_Default(t *testing.T) {
	d := Route(testConfig(), 1000, 0.5)
	require.Equal(t, "gpt-4o-mini", d.Model.ModelID)
}

func TestRoute_Deterministic(t *testing.T) {
	cfg := testConfig()
	d1 := Route(cfg, 50_000, 0.85)
	d2 := Route(cfg, 50_000, 0.85)
	require.Equal(t, d1, d2)
}

func TestComplexity_ClampedToUnitInterval(t *testing.T) {
	c := Complexity(ComplexityInput{
		ConversationMessageCount: 1000,
		TotalMessageLength:       100000,
		LastUserMessage:          "refund legal lawsuit??? " + string(make([]byte, 600)),
		ComplexKeywords:          []string{"refund", "legal", "lawsuit"},
	})
	require.LessOrEqual(t, c, 1.0)
	require.GreaterOrEqual(t, c, 0.0)
}

func TestComplexity_SimpleMessageIsLow(t *testing.T) {
	c := Complexity(ComplexityInput{LastUserMessage: "hi"})
	require.Less(t, c, 0.3)
}

type fakeCaller struct {
	calls     []Model
	failUntil int
}

func (f *fakeCaller) Call(ctx context.Context, m Model, timeout time.Duration) (any, error) {
	f.calls = append(f.calls, m)
	if len(f.calls) <= f.failUntil {
		return nil, errors.New("transient provider error")
	}
	return "ok", nil
}

func TestFailover_FallsOverOnFailure(t *testing.T) {
	health := NewHealthTracker()
	caller := &fakeCaller{failUntil: 1}
	primary := Model{Provider: "primary", ModelID: "m1"}
	fallback := Model{Provider: "fallback", ModelID: "m2"}

	resp, attempts, err := Failover(context.Background(), health, caller, primary, []Model{fallback}, time.Second)
	require.NoError(t, err)
	require.Equal(t, "ok", resp)
	require.Len(t, attempts, 2)
	require.False(t, attempts[0].Success)
	require.True(t, attempts[1].Success)
	require.True(t, attempts[1].WasFailover)
}

func TestFailover_AllFail(t *testing.T) {
	health := NewHealthTracker()
	caller := &fakeCaller{failUntil: 10}
	primary := Model{Provider: "primary", ModelID: "m1"}

	_, _, err := Failover(context.Background(), health, caller, primary, nil, time.Second)
	require.Error(t, err)
	var allFailed *AllProvidersFailedError
	require.ErrorAs(t, err, &allFailed)
}

func TestFailover_SkipsUnhealthyProvider(t *testing.T) {
	health := NewHealthTracker()
	health.RecordFailure("flaky")
	health.RecordFailure("flaky")
	require.True(t, health.Unhealthy("flaky"))

	caller := &fakeCaller{}
	primary := Model{Provider: "flaky", ModelID: "m1"}
	fallback := Model{Provider: "stable", ModelID: "m2"}

	resp, attempts, err := Failover(context.Background(), health, caller, primary, []Model{fallback}, time.Second)
	require.NoError(t, err)
	require.Equal(t, "ok", resp)
	require.Len(t, attempts, 1)
	require.Equal(t, "stable", attempts[0].Model.Provider)
}

func TestHealthTracker_ResetsAfterWindow(t *testing.T) {
	h := NewHealthTracker()
	h.mu.Lock()
	h.stats["old"] = &healthStats{successes: 0, failures: 5, lastSeen: time.Now().Add(-2 * healthWindow)}
	h.mu.Unlock()
	require.False(t, h.Unhealthy("old"))
}
