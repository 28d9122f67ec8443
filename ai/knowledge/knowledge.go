// Package knowledge wraps the tenant-scoped knowledge store with semantic
// search and a keyword-matching fallback for when the embedding provider is
// unavailable.
package knowledge

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/conversagent/core/store"
)

// Embedder produces a vector embedding for a piece of text. Implementations
// wrap an OpenAI-compatible embeddings endpoint.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Service implements semantic search over store.Driver's knowledge entries,
// degrading to keyword matching when the embedder is unavailable.
type Service struct {
	store    *store.Store
	embedder Embedder
}

func NewService(st *store.Store, embedder Embedder) *Service {
	return &Service{store: st, embedder: embedder}
}

// Match pairs an entry with its search score, in [0,1].
type Match struct {
	Entry      *store.KnowledgeEntry
	Similarity float64
}

// Search returns entries for tenant matching query, sorted by
// (similarity desc, priority desc). It embeds query and delegates to the
// vector path; if the embedder errors, it falls back to keyword scoring
// over title/body/keywords.
func (s *Service) Search(ctx context.Context, tenantID, query string, kinds []store.KnowledgeKind, limit int, minSimilarity float64) ([]Match, error) {
	if limit <= 0 {
		limit = 5
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return s.searchByKeyword(ctx, tenantID, query, kinds, limit, minSimilarity)
	}

	matches, err := s.store.SearchKnowledge(ctx, tenantID, embedding, kinds, limit, minSimilarity)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search knowledge")
	}

	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		out = append(out, Match{Entry: m.Entry, Similarity: m.Similarity})
	}
	return out, nil
}

// searchByKeyword scores active entries by weighted substring matches
// against title (0.5), content (0.3), keywords (0.2) when no embedding is
// available.
func (s *Service) searchByKeyword(ctx context.Context, tenantID, query string, kinds []store.KnowledgeKind, limit int, minSimilarity float64) ([]Match, error) {
	entries, err := s.store.ListKnowledgeEntries(ctx, &store.FindKnowledge{TenantID: tenantID, Kinds: kinds})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list knowledge entries for keyword fallback")
	}

	terms := tokenize(query)

	matches := make([]Match, 0, len(entries))
	for _, e := range entries {
		if !e.Active {
			continue
		}
		score := keywordScore(terms, e)
		if score < minSimilarity {
			continue
		}
		matches = append(matches, Match{Entry: e, Similarity: score})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Entry.Priority > matches[j].Entry.Priority
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

const (
	titleWeight    = 0.5
	contentWeight  = 0.3
	keywordsWeight = 0.2
)

// keywordScore sums weighted coverage of query terms across an entry's
// title, content, and keyword list, case-insensitively.
func keywordScore(terms []string, e *store.KnowledgeEntry) float64 {
	if len(terms) == 0 {
		return 0
	}

	title := strings.ToLower(e.Title)
	content := strings.ToLower(e.Content)
	keywords := strings.ToLower(e.Keywords)

	var titleHits, contentHits, keywordHits int
	for _, term := range terms {
		if strings.Contains(title, term) {
			titleHits++
		}
		if strings.Contains(content, term) {
			contentHits++
		}
		if strings.Contains(keywords, term) {
			keywordHits++
		}
	}

	n := float64(len(terms))
	return titleWeight*(float64(titleHits)/n) +
		contentWeight*(float64(contentHits)/n) +
		keywordsWeight*(float64(keywordHits)/n)
}

func tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:\"'()")
		if f != "" {
			terms = append(terms, f)
		}
	}
	return terms
}

// Create embeds title+content and stores a new entry at version 1.
func (s *Service) Create(ctx context.Context, create *store.CreateKnowledgeEntry) (*store.KnowledgeEntry, error) {
	embedding, err := s.embedder.Embed(ctx, create.Title+"\n"+create.Content)
	if err == nil {
		create.Embedding = embedding
	}
	entry, err := s.store.CreateKnowledgeEntry(ctx, create)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create knowledge entry")
	}
	return entry, nil
}

// Update applies the given fields, regenerating the embedding (and
// implicitly bumping the version, via store.Driver.UpdateKnowledgeEntry)
// whenever title or content changes.
func (s *Service) Update(ctx context.Context, update *store.UpdateKnowledgeEntry) (*store.KnowledgeEntry, error) {
	if update.Title != nil || update.Content != nil {
		current, err := s.currentText(ctx, update)
		if err != nil {
			return nil, err
		}
		if embedding, err := s.embedder.Embed(ctx, current); err == nil {
			update.Embedding = &embedding
		}
	}

	entry, err := s.store.UpdateKnowledgeEntry(ctx, update)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update knowledge entry")
	}
	return entry, nil
}

func (s *Service) currentText(ctx context.Context, update *store.UpdateKnowledgeEntry) (string, error) {
	entries, err := s.store.ListKnowledgeEntries(ctx, &store.FindKnowledge{TenantID: update.TenantID})
	if err != nil {
		return "", errors.Wrap(err, "failed to load knowledge entry for re-embedding")
	}
	for _, e := range entries {
		if e.ID != update.ID {
			continue
		}
		title, content := e.Title, e.Content
		if update.Title != nil {
			title = *update.Title
		}
		if update.Content != nil {
			content = *update.Content
		}
		return title + "\n" + content, nil
	}
	return "", errors.Errorf("knowledge entry %s not found", update.ID)
}
