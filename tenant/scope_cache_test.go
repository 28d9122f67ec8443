package tenant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScopeCache_SetGet(t *testing.T) {
	c := NewScopeCache(10, time.Minute)

	_, found := c.Get("tenant-1", "user-1")
	assert.False(t, found)

	c.Set("tenant-1", "user-1", []string{"conversations:read", "conversations:write"})

	scopes, found := c.Get("tenant-1", "user-1")
	assert.True(t, found)
	assert.Equal(t, []string{"conversations:read", "conversations:write"}, scopes)
}

func TestScopeCache_DistinctActorsAndTenants(t *testing.T) {
	c := NewScopeCache(10, time.Minute)

	c.Set("tenant-1", "user-1", []string{"a"})
	c.Set("tenant-1", "user-2", []string{"b"})
	c.Set("tenant-2", "user-1", []string{"c"})

	scopes, found := c.Get("tenant-1", "user-1")
	assert.True(t, found)
	assert.Equal(t, []string{"a"}, scopes)

	scopes, found = c.Get("tenant-1", "user-2")
	assert.True(t, found)
	assert.Equal(t, []string{"b"}, scopes)

	scopes, found = c.Get("tenant-2", "user-1")
	assert.True(t, found)
	assert.Equal(t, []string{"c"}, scopes)
}

func TestScopeCache_Invalidate(t *testing.T) {
	c := NewScopeCache(10, time.Minute)

	c.Set("tenant-1", "user-1", []string{"a"})
	c.Set("tenant-1", "user-2", []string{"b"})
	c.Set("tenant-2", "user-1", []string{"c"})

	c.Invalidate("tenant-1")

	_, found := c.Get("tenant-1", "user-1")
	assert.False(t, found)
	_, found = c.Get("tenant-1", "user-2")
	assert.False(t, found)

	scopes, found := c.Get("tenant-2", "user-1")
	assert.True(t, found)
	assert.Equal(t, []string{"c"}, scopes)
}

func TestScopeCache_TTLExpiry(t *testing.T) {
	c := NewScopeCache(10, 50*time.Millisecond)

	c.Set("tenant-1", "user-1", []string{"a"})

	_, found := c.Get("tenant-1", "user-1")
	assert.True(t, found)

	time.Sleep(100 * time.Millisecond)

	_, found = c.Get("tenant-1", "user-1")
	assert.False(t, found)
}
