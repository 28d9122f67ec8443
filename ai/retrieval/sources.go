package retrieval

import (
	"context"

	agentcontext "github.com/conversagent/core/ai/context"
	"github.com/conversagent/core/ai/knowledge"
	"github.com/conversagent/core/store"
)

// DatabaseSource searches the tenant's catalog/knowledge store directly;
// its results are treated as authoritative by Orchestrator.Fetch.
type DatabaseSource struct {
	knowledge *knowledge.Service
	store     *store.Store
}

func NewDatabaseSource(ks *knowledge.Service, st *store.Store) *DatabaseSource {
	return &DatabaseSource{knowledge: ks, store: st}
}

func (s *DatabaseSource) Origin() string { return OriginDatabase }

func (s *DatabaseSource) Fetch(ctx context.Context, tenantID, query string, cap int) ([]agentcontext.RAGSource, error) {
	matches, err := s.knowledge.Search(ctx, tenantID, query, nil, cap, 0)
	if err != nil {
		return nil, err
	}
	out := make([]agentcontext.RAGSource, 0, len(matches))
	for _, m := range matches {
		out = append(out, agentcontext.RAGSource{
			Origin:  OriginDatabase,
			Title:   m.Entry.Title,
			Content: m.Entry.Content,
			Score:   m.Similarity,
		})
	}
	return out, nil
}

// DocumentSearcher is the minimal surface a document/file index must
// expose for DocumentSource to consume it.
type DocumentSearcher interface {
	SearchDocuments(ctx context.Context, tenantID, query string, limit int) ([]DocumentHit, error)
}

// DocumentHit is one result from a tenant's uploaded-document index.
type DocumentHit struct {
	Title   string
	Snippet string
	Score   float64
}

// DocumentSource wraps an injected document index; results supplement
// the database source but never override it.
type DocumentSource struct {
	searcher DocumentSearcher
}

func NewDocumentSource(searcher DocumentSearcher) *DocumentSource {
	return &DocumentSource{searcher: searcher}
}

func (s *DocumentSource) Origin() string { return OriginDocument }

func (s *DocumentSource) Fetch(ctx context.Context, tenantID, query string, cap int) ([]agentcontext.RAGSource, error) {
	hits, err := s.searcher.SearchDocuments(ctx, tenantID, query, cap)
	if err != nil {
		return nil, err
	}
	out := make([]agentcontext.RAGSource, 0, len(hits))
	for _, h := range hits {
		out = append(out, agentcontext.RAGSource{Origin: OriginDocument, Title: h.Title, Content: h.Snippet, Score: h.Score})
	}
	return out, nil
}

// WebSearcher is the minimal surface an internet search provider must
// expose (e.g. an API keyed by internal/profile.Profile's
// InternetSearchAPIKey).
type WebSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]WebHit, error)
}

// WebHit is one internet search result.
type WebHit struct {
	Title   string
	Snippet string
}

// InternetSource wraps an injected web search client; lowest-priority
// supplementary results per spec.md §4.6.1.
type InternetSource struct {
	searcher WebSearcher
}

func NewInternetSource(searcher WebSearcher) *InternetSource {
	return &InternetSource{searcher: searcher}
}

func (s *InternetSource) Origin() string { return OriginInternet }

func (s *InternetSource) Fetch(ctx context.Context, _ string, query string, cap int) ([]agentcontext.RAGSource, error) {
	hits, err := s.searcher.Search(ctx, query, cap)
	if err != nil {
		return nil, err
	}
	out := make([]agentcontext.RAGSource, 0, len(hits))
	for _, h := range hits {
		out = append(out, agentcontext.RAGSource{Origin: OriginInternet, Title: h.Title, Content: h.Snippet})
	}
	return out, nil
}
