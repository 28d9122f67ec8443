// Package retrieval fans out to document/database/internet sources in
// parallel with a shared deadline and synthesises the results with
// database as authoritative, document as supplement, and internet as
// lowest priority, per spec.md §4.6.1. Grounded on
// ai/core/retrieval/adaptive_retrieval.go's parallel multi-source
// dispatch pattern, reimplemented with golang.org/x/sync/errgroup (the
// pack dependency SPEC_FULL.md names for this fan-out) rather than the
// teacher's hand-rolled goroutine/WaitGroup bookkeeping.
package retrieval

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	agentcontext "github.com/conversagent/core/ai/context"
)

// Origin names match agentcontext.RAGSource.Origin.
const (
	OriginDocument = "document"
	OriginDatabase = "database"
	OriginInternet = "internet"
)

// Source fetches results from one retrieval backend.
type Source interface {
	Origin() string
	Fetch(ctx context.Context, tenantID, query string, cap int) ([]agentcontext.RAGSource, error)
}

// DefaultDeadline is the shared fan-out timeout, per spec.md §4.6.1.
const DefaultDeadline = 5 * time.Second

// Orchestrator dispatches the enabled sources in parallel and
// synthesises a single ranked manifest.
type Orchestrator struct {
	sources  []Source
	deadline time.Duration
	caps     map[string]int
}

func NewOrchestrator(sources []Source, caps map[string]int) *Orchestrator {
	return &Orchestrator{sources: sources, deadline: DefaultDeadline, caps: caps}
}

func (o *Orchestrator) WithDeadline(d time.Duration) *Orchestrator {
	o.deadline = d
	return o
}

// originPriority ranks synthesis order: database first (authoritative),
// then document, then internet lowest, matching spec.md §4.6.1.
var originPriority = map[string]int{
	OriginDatabase: 0,
	OriginDocument: 1,
	OriginInternet: 2,
}

// Fetch runs every configured source concurrently against a shared
// deadline; a source that errors or times out simply contributes no
// results (partial results are synthesised, per spec.md §5). The
// combined manifest is sorted by origin priority so a downstream
// conflict (e.g. a price mismatch between document and database
// results) is resolved by whichever composer reads database entries
// first.
func (o *Orchestrator) Fetch(ctx context.Context, tenantID, query string) ([]agentcontext.RAGSource, error) {
	deadline := o.deadline
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	fetchCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	results := make([][]agentcontext.RAGSource, len(o.sources))
	g, gctx := errgroup.WithContext(fetchCtx)
	for i, src := range o.sources {
		i, src := i, src
		g.Go(func() error {
			sourceCap := o.caps[src.Origin()]
			if sourceCap <= 0 {
				sourceCap = 5
			}
			out, err := src.Fetch(gctx, tenantID, query, sourceCap)
			if err != nil {
				return nil // partial results: a failing source contributes nothing
			}
			results[i] = out
			return nil
		})
	}
	_ = g.Wait()

	var manifest []agentcontext.RAGSource
	for priority := 0; priority < 3; priority++ {
		for i, src := range o.sources {
			if originPriority[src.Origin()] != priority {
				continue
			}
			manifest = append(manifest, results[i]...)
		}
	}
	return manifest, nil
}
