package harmonizer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conversagent/core/store"
)

type fakeDriver struct {
	store.Driver

	mu      sync.Mutex
	entries []*store.MessageQueueEntry
	failed  [][]string
	ok      []string
}

func (f *fakeDriver) EnqueueMessage(ctx context.Context, enqueue *store.EnqueueMessage) (*store.MessageQueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := &store.MessageQueueEntry{
		ID:             enqueue.MessageID,
		TenantID:       enqueue.TenantID,
		ConversationID: enqueue.ConversationID,
		MessageID:      enqueue.MessageID,
		Text:           enqueue.Text,
		Status:         store.QueueQueued,
		QueuedAt:       time.Now(),
	}
	f.entries = append(f.entries, e)
	return e, nil
}

func (f *fakeDriver) TransitionQueueToProcessing(ctx context.Context, tenantID, conversationID string, olderThan time.Time) ([]*store.MessageQueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*store.MessageQueueEntry
	for _, e := range f.entries {
		if e.TenantID != tenantID || e.ConversationID != conversationID || e.Status != store.QueueQueued {
			continue
		}
		if e.QueuedAt.After(olderThan) {
			continue
		}
		e.Status = store.QueueProcessing
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeDriver) MarkQueueProcessed(ctx context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ok = append(f.ok, ids...)
	return nil
}

func (f *fakeDriver) MarkQueueFailed(ctx context.Context, ids []string, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, ids)
	return nil
}

type fakeHandler struct {
	mu      sync.Mutex
	batches []string
	calls   int
	err     error
}

func (f *fakeHandler) HandleBatch(ctx context.Context, tenantID, conversationID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.batches = append(f.batches, text)
	return f.err
}

func TestEnqueue_SingleMessageFlushesAfterDelay(t *testing.T) {
	driver := &fakeDriver{}
	handler := &fakeHandler{}
	h := New(store.New(driver, nil), handler, 10*time.Millisecond, 30*time.Millisecond)

	err := h.Enqueue(context.Background(), "tenant-1", "conv-1", "m1", "hello")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		handler.mu.Lock()
		defer handler.mu.Unlock()
		return handler.calls == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "hello", handler.batches[0])
}

func TestEnqueue_BurstConcatenatesInArrivalOrder(t *testing.T) {
	driver := &fakeDriver{}
	handler := &fakeHandler{}
	h := New(store.New(driver, nil), handler, 10*time.Millisecond, 40*time.Millisecond)

	require.NoError(t, h.Enqueue(context.Background(), "tenant-1", "conv-1", "m1", "first"))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, h.Enqueue(context.Background(), "tenant-1", "conv-1", "m2", "second"))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, h.Enqueue(context.Background(), "tenant-1", "conv-1", "m3", "third"))

	require.Eventually(t, func() bool {
		handler.mu.Lock()
		defer handler.mu.Unlock()
		return handler.calls >= 1
	}, time.Second, 5*time.Millisecond)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Equal(t, "first\nsecond\nthird", handler.batches[0])
}

func TestFlush_FailureMarksQueueFailed(t *testing.T) {
	driver := &fakeDriver{}
	handler := &fakeHandler{err: assertError{}}
	h := New(store.New(driver, nil), handler, 10*time.Millisecond, 20*time.Millisecond)

	require.NoError(t, h.Enqueue(context.Background(), "tenant-1", "conv-1", "m1", "hi"))

	require.Eventually(t, func() bool {
		driver.mu.Lock()
		defer driver.mu.Unlock()
		return len(driver.failed) == 1
	}, time.Second, 5*time.Millisecond)

	driver.mu.Lock()
	defer driver.mu.Unlock()
	assert.Empty(t, driver.ok)
}

type assertError struct{}

func (assertError) Error() string { return "handler boom" }
