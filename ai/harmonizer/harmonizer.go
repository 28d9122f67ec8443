// Package harmonizer buffers inbound messages from the same conversation
// that arrive within a burst window, so a flurry of fast follow-up texts
// is handed to the context builder as one logical turn instead of many.
package harmonizer

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/conversagent/core/store"
)

const (
	// DefaultBurstWindow (W) is how recent an enqueue must be to be
	// excluded from a flush — only entries older than now-W are taken.
	DefaultBurstWindow = 3 * time.Second
	// DefaultFlushDelay (T_flush) is how long after the latest enqueue
	// the per-conversation timer waits before firing.
	DefaultFlushDelay = 5 * time.Second
)

// Handler processes one harmonized turn: the concatenated text of every
// message in the batch, in arrival order.
type Handler interface {
	HandleBatch(ctx context.Context, tenantID, conversationID, text string) error
}

// conversationState holds the per-conversation timer and the exclusive
// lock that keeps at most one batch processing at a time, matching the
// teacher's RWMutex-guarded per-platform registry in
// plugin/chat_apps/channels/base.go, narrowed here to a per-conversation
// granularity.
type conversationState struct {
	timerMu sync.Mutex
	timer   *time.Timer

	processingMu sync.Mutex
}

// Harmonizer buffers MessageQueue entries per (tenant, conversation) and
// flushes them as one batch after the burst window settles.
type Harmonizer struct {
	store   *store.Store
	handler Handler

	burstWindow time.Duration
	flushDelay  time.Duration

	states sync.Map // key "tenant:conversation" -> *conversationState
}

func New(st *store.Store, handler Handler, burstWindow, flushDelay time.Duration) *Harmonizer {
	if burstWindow <= 0 {
		burstWindow = DefaultBurstWindow
	}
	if flushDelay <= 0 {
		flushDelay = DefaultFlushDelay
	}
	return &Harmonizer{
		store:       st,
		handler:     handler,
		burstWindow: burstWindow,
		flushDelay:  flushDelay,
	}
}

func stateKey(tenantID, conversationID string) string {
	return tenantID + ":" + conversationID
}

func (h *Harmonizer) stateFor(tenantID, conversationID string) *conversationState {
	actual, _ := h.states.LoadOrStore(stateKey(tenantID, conversationID), &conversationState{})
	return actual.(*conversationState)
}

// Enqueue records an inbound message and arms (or rearms) the flush timer
// for flushDelay after this enqueue, per spec.md §4.5.
func (h *Harmonizer) Enqueue(ctx context.Context, tenantID, conversationID, messageID, text string) error {
	if _, err := h.store.EnqueueMessage(ctx, &store.EnqueueMessage{
		TenantID:       tenantID,
		ConversationID: conversationID,
		MessageID:      messageID,
		Text:           text,
	}); err != nil {
		return errors.Wrap(err, "failed to enqueue message for harmonization")
	}

	st := h.stateFor(tenantID, conversationID)
	st.timerMu.Lock()
	defer st.timerMu.Unlock()

	if st.timer != nil {
		st.timer.Stop()
	}
	st.timer = time.AfterFunc(h.flushDelay, func() {
		h.flush(tenantID, conversationID)
	})
	return nil
}

// flush transitions every entry older than now-burstWindow to processing
// and hands the concatenated batch to the handler. At most one flush per
// conversation runs at a time, enforced by conversationState.processingMu.
func (h *Harmonizer) flush(tenantID, conversationID string) {
	st := h.stateFor(tenantID, conversationID)
	st.processingMu.Lock()
	defer st.processingMu.Unlock()

	ctx := context.Background()
	cutoff := time.Now().Add(-h.burstWindow)

	entries, err := h.store.TransitionQueueToProcessing(ctx, tenantID, conversationID, cutoff)
	if err != nil {
		slog.Error("harmonizer: failed to transition queue to processing", "tenant_id", tenantID, "conversation_id", conversationID, "error", err)
		return
	}
	if len(entries) == 0 {
		return
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].QueuedAt.Before(entries[j].QueuedAt)
	})

	ids := make([]string, len(entries))
	texts := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
		texts[i] = e.Text
	}
	batch := strings.Join(texts, "\n")

	if err := h.handler.HandleBatch(ctx, tenantID, conversationID, batch); err != nil {
		slog.Error("harmonizer: batch handling failed", "tenant_id", tenantID, "conversation_id", conversationID, "error", err)
		if markErr := h.store.MarkQueueFailed(ctx, ids, err.Error()); markErr != nil {
			slog.Error("harmonizer: failed to mark queue entries failed", "error", markErr)
		}
		return
	}

	if err := h.store.MarkQueueProcessed(ctx, ids); err != nil {
		slog.Error("harmonizer: failed to mark queue entries processed", "error", err)
	}
}
