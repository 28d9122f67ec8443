package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActor_HasScope(t *testing.T) {
	a := Actor{ID: "user-1", Kind: ActorUser, Scopes: []string{"conversations:read", "conversations:write"}}

	assert.True(t, a.HasScope("conversations:read"))
	assert.True(t, a.HasScope("conversations:write"))
	assert.False(t, a.HasScope("conversations:delete"))
}

func TestActor_HasScope_Empty(t *testing.T) {
	a := Actor{ID: "system", Kind: ActorSystem}
	assert.False(t, a.HasScope("anything"))
}

func TestWithContext_FromContext(t *testing.T) {
	tc := Context{
		TenantID:  "tenant-1",
		Actor:     Actor{ID: "user-1", Kind: ActorUser, Scopes: []string{"conversations:read"}},
		RequestID: "req-1",
	}

	ctx := WithContext(context.Background(), tc)

	got, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, tc, got)
}

func TestFromContext_Missing(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
}
