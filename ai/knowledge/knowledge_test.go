package knowledge

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conversagent/core/store"
)

type fakeDriver struct {
	store.Driver

	entries        []*store.KnowledgeEntry
	searchMatches  []store.KnowledgeMatch
	searchErr      error
	lastEmbedding  []float32
	updated        *store.UpdateKnowledgeEntry
	created        *store.CreateKnowledgeEntry
}

func (f *fakeDriver) ListKnowledgeEntries(ctx context.Context, find *store.FindKnowledge) ([]*store.KnowledgeEntry, error) {
	return f.entries, nil
}

func (f *fakeDriver) SearchKnowledge(ctx context.Context, tenantID string, queryEmbedding []float32, kinds []store.KnowledgeKind, limit int, minSimilarity float64) ([]store.KnowledgeMatch, error) {
	f.lastEmbedding = queryEmbedding
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchMatches, nil
}

func (f *fakeDriver) CreateKnowledgeEntry(ctx context.Context, create *store.CreateKnowledgeEntry) (*store.KnowledgeEntry, error) {
	f.created = create
	return &store.KnowledgeEntry{ID: "new-entry", TenantID: create.TenantID, Title: create.Title, Content: create.Content, Embedding: create.Embedding, Version: 1}, nil
}

func (f *fakeDriver) UpdateKnowledgeEntry(ctx context.Context, update *store.UpdateKnowledgeEntry) (*store.KnowledgeEntry, error) {
	f.updated = update
	return &store.KnowledgeEntry{ID: update.ID, TenantID: update.TenantID, Version: 2}, nil
}

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func newTestService(driver *fakeDriver, embedder Embedder) *Service {
	return NewService(store.New(driver, nil), embedder)
}

func TestSearch_VectorPath(t *testing.T) {
	driver := &fakeDriver{
		searchMatches: []store.KnowledgeMatch{
			{Entry: &store.KnowledgeEntry{ID: "k1", Title: "Return policy"}, Similarity: 0.9},
		},
	}
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}}

	s := newTestService(driver, embedder)

	matches, err := s.Search(context.Background(), "tenant-1", "what is your return policy", nil, 5, 0.5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "k1", matches[0].Entry.ID)
	assert.Equal(t, 0.9, matches[0].Similarity)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, driver.lastEmbedding)
}

func TestSearch_KeywordFallbackOnEmbedderError(t *testing.T) {
	driver := &fakeDriver{
		entries: []*store.KnowledgeEntry{
			{ID: "k1", Title: "Return policy", Content: "Items may be returned within 30 days", Keywords: "refund,return", Active: true, Priority: 10},
			{ID: "k2", Title: "Shipping times", Content: "Orders ship within 2 business days", Keywords: "shipping", Active: true, Priority: 5},
			{ID: "k3", Title: "Inactive return policy", Content: "stale", Keywords: "return", Active: false, Priority: 20},
		},
	}
	embedder := &fakeEmbedder{err: errors.New("embedding provider unavailable")}

	s := newTestService(driver, embedder)

	matches, err := s.Search(context.Background(), "tenant-1", "return policy", nil, 5, 0.01)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "k1", matches[0].Entry.ID)
	for _, m := range matches {
		assert.NotEqual(t, "k3", m.Entry.ID, "inactive entries must not be searched")
	}
}

func TestKeywordScore_Weights(t *testing.T) {
	entry := &store.KnowledgeEntry{
		Title:    "Return policy",
		Content:  "irrelevant body",
		Keywords: "irrelevant",
	}
	titleOnly := keywordScore([]string{"return"}, entry)
	assert.InDelta(t, titleWeight, titleOnly, 0.001)

	all := &store.KnowledgeEntry{
		Title:    "return",
		Content:  "return",
		Keywords: "return",
	}
	assert.InDelta(t, titleWeight+contentWeight+keywordsWeight, keywordScore([]string{"return"}, all), 0.001)
}

func TestCreate_EmbedsTitleAndContent(t *testing.T) {
	driver := &fakeDriver{}
	embedder := &fakeEmbedder{vector: []float32{1, 2, 3}}

	s := newTestService(driver, embedder)

	_, err := s.Create(context.Background(), &store.CreateKnowledgeEntry{TenantID: "tenant-1", Title: "FAQ", Content: "body"})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, driver.created.Embedding)
}

func TestUpdate_ReEmbedsOnTitleChange(t *testing.T) {
	driver := &fakeDriver{
		entries: []*store.KnowledgeEntry{
			{ID: "k1", TenantID: "tenant-1", Title: "old title", Content: "old content"},
		},
	}
	embedder := &fakeEmbedder{vector: []float32{9, 9}}

	s := newTestService(driver, embedder)

	newTitle := "new title"
	_, err := s.Update(context.Background(), &store.UpdateKnowledgeEntry{TenantID: "tenant-1", ID: "k1", Title: &newTitle})
	require.NoError(t, err)
	require.NotNil(t, driver.updated.Embedding)
	assert.Equal(t, []float32{9, 9}, *driver.updated.Embedding)
}

func TestUpdate_SkipsReEmbedWhenTitleAndContentUnchanged(t *testing.T) {
	driver := &fakeDriver{}
	embedder := &fakeEmbedder{vector: []float32{9, 9}}

	s := newTestService(driver, embedder)

	newPriority := 7
	_, err := s.Update(context.Background(), &store.UpdateKnowledgeEntry{TenantID: "tenant-1", ID: "k1", Priority: &newPriority})
	require.NoError(t, err)
	assert.Nil(t, driver.updated.Embedding)
}
