package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	agentcontext "github.com/conversagent/core/ai/context"
)

type stubSource struct {
	origin string
	hits   []agentcontext.RAGSource
	err    error
	delay  time.Duration
}

func (s *stubSource) Origin() string { return s.origin }

func (s *stubSource) Fetch(ctx context.Context, tenantID, query string, cap int) ([]agentcontext.RAGSource, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}

func TestFetch_OrdersDatabaseBeforeDocumentBeforeInternet(t *testing.T) {
	o := NewOrchestrator([]Source{
		&stubSource{origin: OriginInternet, hits: []agentcontext.RAGSource{{Origin: OriginInternet, Title: "web"}}},
		&stubSource{origin: OriginDocument, hits: []agentcontext.RAGSource{{Origin: OriginDocument, Title: "doc"}}},
		&stubSource{origin: OriginDatabase, hits: []agentcontext.RAGSource{{Origin: OriginDatabase, Title: "db"}}},
	}, nil)

	out, err := o.Fetch(context.Background(), "t1", "query")
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, "db", out[0].Title)
	require.Equal(t, "doc", out[1].Title)
	require.Equal(t, "web", out[2].Title)
}

func TestFetch_FailingSourceContributesNothing(t *testing.T) {
	o := NewOrchestrator([]Source{
		&stubSource{origin: OriginDatabase, err: errors.New("boom")},
		&stubSource{origin: OriginDocument, hits: []agentcontext.RAGSource{{Origin: OriginDocument, Title: "doc"}}},
	}, nil)

	out, err := o.Fetch(context.Background(), "t1", "query")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "doc", out[0].Title)
}

func TestFetch_RespectsDeadline(t *testing.T) {
	o := NewOrchestrator([]Source{
		&stubSource{origin: OriginInternet, delay: 50 * time.Millisecond, hits: []agentcontext.RAGSource{{Title: "late"}}},
	}, nil).WithDeadline(5 * time.Millisecond)

	out, err := o.Fetch(context.Background(), "t1", "query")
	require.NoError(t, err)
	require.Empty(t, out)
}
